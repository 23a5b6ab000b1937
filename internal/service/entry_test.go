package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keepsake-app/keepsake/internal/apperr"
	"github.com/keepsake-app/keepsake/internal/model"
	"github.com/keepsake-app/keepsake/internal/notify"
)

type entryFixture struct {
	*groupFixture
	users   *fakeUserRepo
	entries IEntryService
	groupID string
	hostID  string
}

// newEntryFixture builds a group owned by alice with bob as an accepted
// contributor and carol holding a pending invitation.
func newEntryFixture(t *testing.T) *entryFixture {
	t.Helper()
	gf := newGroupFixture()
	gf.follows.follow("alice", "bob")
	gf.follows.follow("alice", "carol")

	users := &fakeUserRepo{users: map[string]*model.User{
		"alice": {ID: "alice", UserName: "alice", FullName: "Alice A"},
		"bob":   {ID: "bob", UserName: "bob", FullName: "Bob B"},
	}}

	result := gf.createGroup(t, "alice", []string{"bob", "carol"})
	require.NoError(t, gf.service.RespondToInvitation(context.Background(), result.Group.ID, "bob", ResponseAccept))

	entries := NewEntryService(&fakeGroupRepo{s: gf.store}, &fakeEntryRepo{s: gf.store}, users, gf.follows, gf.emitter)
	return &entryFixture{
		groupFixture: gf,
		users:        users,
		entries:      entries,
		groupID:      result.Group.ID,
		hostID:       result.Memory.ID,
	}
}

func TestAddEntry(t *testing.T) {
	f := newEntryFixture(t)
	ctx := context.Background()

	entry, err := f.entries.AddEntry(ctx, f.groupID, "bob", &AddEntryRequest{
		Content:     "I remember the capsized canoe",
		Perspective: "from the dock",
		Mood:        "funny",
	})
	require.NoError(t, err)

	assert.Equal(t, "bob", entry.AuthorID)
	assert.Equal(t, model.EntryVisibilityPublished, entry.Visibility)
	// The seed entry holds position zero, so this one lands at one.
	assert.Equal(t, 1, entry.DisplayOrder)
	assert.Equal(t, 2, f.store.groups[f.groupID].EntryCount)

	// The owner hears about it, the author does not.
	assert.Equal(t, 1, f.emitter.sentTo("alice", notify.KindNewCollaborationEntry))
	assert.Equal(t, 0, f.emitter.sentTo("bob", notify.KindNewCollaborationEntry))
}

func TestAddEntryAuthorization(t *testing.T) {
	f := newEntryFixture(t)
	ctx := context.Background()
	req := &AddEntryRequest{Content: "hello"}

	// A pending invitee is not yet a contributor.
	_, err := f.entries.AddEntry(ctx, f.groupID, "carol", req)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	_, err = f.entries.AddEntry(ctx, f.groupID, "stranger", req)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	_, err = f.entries.AddEntry(ctx, "missing-group", "bob", req)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestAddEntryClosedGroup(t *testing.T) {
	f := newEntryFixture(t)
	ctx := context.Background()

	paused := model.GroupStatusPaused
	_, err := f.service.UpdateGroupSettings(ctx, f.groupID, "alice", &UpdateGroupSettingsRequest{Status: &paused})
	require.NoError(t, err)

	_, err = f.entries.AddEntry(ctx, f.groupID, "bob", &AddEntryRequest{Content: "too late"})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	active := model.GroupStatusActive
	noContrib := false
	_, err = f.service.UpdateGroupSettings(ctx, f.groupID, "alice", &UpdateGroupSettingsRequest{
		Status:                &active,
		AllowNewContributions: &noContrib,
	})
	require.NoError(t, err)

	_, err = f.entries.AddEntry(ctx, f.groupID, "bob", &AddEntryRequest{Content: "still too late"})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestAddEntryDuplicate(t *testing.T) {
	f := newEntryFixture(t)
	ctx := context.Background()

	_, err := f.entries.AddEntry(ctx, f.groupID, "bob", &AddEntryRequest{Content: "first"})
	require.NoError(t, err)

	_, err = f.entries.AddEntry(ctx, f.groupID, "bob", &AddEntryRequest{Content: "second"})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Equal(t, 2, f.store.groups[f.groupID].EntryCount)

	// The owner already holds the seed entry.
	_, err = f.entries.AddEntry(ctx, f.groupID, "alice", &AddEntryRequest{Content: "another"})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestAddEntryVisibility(t *testing.T) {
	f := newEntryFixture(t)
	ctx := context.Background()

	_, err := f.entries.AddEntry(ctx, f.groupID, "bob", &AddEntryRequest{Content: "x", Visibility: "hidden"})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))

	entry, err := f.entries.AddEntry(ctx, f.groupID, "bob", &AddEntryRequest{Content: "x", Visibility: model.EntryVisibilityDraft})
	require.NoError(t, err)
	assert.Equal(t, model.EntryVisibilityDraft, entry.Visibility)
}

func TestUpdateEntry(t *testing.T) {
	f := newEntryFixture(t)
	ctx := context.Background()

	entry, err := f.entries.AddEntry(ctx, f.groupID, "bob", &AddEntryRequest{
		Content: "original",
		Mood:    "nostalgic",
	})
	require.NoError(t, err)

	_, err = f.entries.UpdateEntry(ctx, f.groupID, entry.ID, "alice", &UpdateEntryRequest{})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	badVisibility := "hidden"
	_, err = f.entries.UpdateEntry(ctx, f.groupID, entry.ID, "bob", &UpdateEntryRequest{Visibility: &badVisibility})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))

	content := "revised"
	draft := model.EntryVisibilityDraft
	updated, err := f.entries.UpdateEntry(ctx, f.groupID, entry.ID, "bob", &UpdateEntryRequest{
		Content:    &content,
		Visibility: &draft,
	})
	require.NoError(t, err)
	assert.Equal(t, "revised", updated.Content)
	assert.Equal(t, model.EntryVisibilityDraft, updated.Visibility)
	// Untouched fields survive the patch.
	assert.Equal(t, "nostalgic", updated.Mood)
	assert.Equal(t, entry.DisplayOrder, updated.DisplayOrder)
}

func TestDeleteEntry(t *testing.T) {
	f := newEntryFixture(t)
	ctx := context.Background()

	entry, err := f.entries.AddEntry(ctx, f.groupID, "bob", &AddEntryRequest{Content: "mine"})
	require.NoError(t, err)

	err = f.entries.DeleteEntry(ctx, f.groupID, entry.ID, "carol")
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	err = f.entries.DeleteEntry(ctx, "other-group", entry.ID, "bob")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	// The group owner may delete another author's entry.
	require.NoError(t, f.entries.DeleteEntry(ctx, f.groupID, entry.ID, "alice"))
	assert.Equal(t, 1, f.store.groups[f.groupID].EntryCount)

	err = f.entries.DeleteEntry(ctx, f.groupID, entry.ID, "alice")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestListGroupView(t *testing.T) {
	f := newEntryFixture(t)
	ctx := context.Background()

	_, err := f.entries.AddEntry(ctx, f.groupID, "bob", &AddEntryRequest{
		Content:    "draft in progress",
		Visibility: model.EntryVisibilityDraft,
	})
	require.NoError(t, err)

	// collaborators_only denies a stranger.
	_, err = f.entries.ListGroupView(ctx, f.groupID, "stranger")
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	// A contributor sees published entries only.
	view, err := f.entries.ListGroupView(ctx, f.groupID, "bob")
	require.NoError(t, err)
	assert.False(t, view.IsOwner)
	assert.True(t, view.IsContributor)
	assert.True(t, view.CanContribute)
	require.Len(t, view.Entries, 1)
	assert.Equal(t, "alice", view.Entries[0].AuthorID)
	require.NotNil(t, view.Entries[0].Author)
	assert.Equal(t, "Alice A", view.Entries[0].Author.FullName)

	// The owner additionally sees drafts, in display order.
	ownerView, err := f.entries.ListGroupView(ctx, f.groupID, "alice")
	require.NoError(t, err)
	assert.True(t, ownerView.IsOwner)
	require.Len(t, ownerView.Entries, 2)
	assert.Equal(t, "alice", ownerView.Entries[0].AuthorID)
	assert.Equal(t, "bob", ownerView.Entries[1].AuthorID)
}

func TestListGroupViewPrivacyLevels(t *testing.T) {
	f := newEntryFixture(t)
	ctx := context.Background()

	followers := model.PrivacyFollowersOnly
	_, err := f.service.UpdateGroupSettings(ctx, f.groupID, "alice", &UpdateGroupSettingsRequest{Privacy: &followers})
	require.NoError(t, err)

	// followers_only admits followers of the owner, directionally.
	f.follows.follow("fan", "alice")
	_, err = f.entries.ListGroupView(ctx, f.groupID, "fan")
	require.NoError(t, err)
	_, err = f.entries.ListGroupView(ctx, f.groupID, "stranger")
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	public := model.PrivacyPublic
	_, err = f.service.UpdateGroupSettings(ctx, f.groupID, "alice", &UpdateGroupSettingsRequest{Privacy: &public})
	require.NoError(t, err)

	view, err := f.entries.ListGroupView(ctx, f.groupID, "stranger")
	require.NoError(t, err)
	assert.False(t, view.IsOwner)
	assert.False(t, view.CanContribute)
}
