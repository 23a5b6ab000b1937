package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/keepsake-app/keepsake/internal/model"
	"github.com/keepsake-app/keepsake/internal/repository"
)

// fakeStore is an in-memory stand-in for the database shared by the fake
// repositories, so cross-table effects (cascades, derived counts) behave
// like the real transactional implementations.
type fakeStore struct {
	mu           sync.Mutex
	groups       map[string]*model.SharedMemoryGroup
	invitations  []*model.GroupInvitation
	contributors []*model.GroupContributor
	entries      []*model.CollaborativeMemory
	memories     map[string]*model.Memory
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		groups:   map[string]*model.SharedMemoryGroup{},
		memories: map[string]*model.Memory{},
	}
}

// appendMemoryCollaborator mirrors what the real group repository does on
// accept: the host memory's collaborator list is updated in the same
// transaction. Callers hold s.mu.
func (s *fakeStore) appendMemoryCollaborator(groupID, userID string) {
	group, ok := s.groups[groupID]
	if !ok {
		return
	}
	memory, ok := s.memories[group.HostMemoryID]
	if !ok {
		return
	}
	for _, id := range memory.CollaboratorIDs {
		if id == userID {
			return
		}
	}
	memory.CollaboratorIDs = append(memory.CollaboratorIDs, userID)
}

func (s *fakeStore) refreshCounts(groupID string) {
	group, ok := s.groups[groupID]
	if !ok {
		return
	}
	contributors := 0
	for _, c := range s.contributors {
		if c.GroupID == groupID {
			contributors++
		}
	}
	entries := 0
	for _, e := range s.entries {
		if e.GroupID == groupID {
			entries++
		}
	}
	group.ContributorCount = contributors
	group.EntryCount = entries
}

type fakeGroupRepo struct {
	s *fakeStore
}

func (r *fakeGroupRepo) Create(_ context.Context, group *model.SharedMemoryGroup, invitations []*model.GroupInvitation, contributors []*model.GroupContributor, seedEntry *model.CollaborativeMemory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.groups[group.ID] = group
	r.s.invitations = append(r.s.invitations, invitations...)
	r.s.contributors = append(r.s.contributors, contributors...)
	if seedEntry != nil {
		r.s.entries = append(r.s.entries, seedEntry)
	}
	return nil
}

func (r *fakeGroupRepo) FindByID(_ context.Context, id string) (*model.SharedMemoryGroup, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	group, ok := r.s.groups[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return group, nil
}

func (r *fakeGroupRepo) LoadAggregate(ctx context.Context, id string) (*model.SharedMemoryGroup, []*model.GroupContributor, []*model.GroupInvitation, error) {
	group, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var contributors []*model.GroupContributor
	for _, c := range r.s.contributors {
		if c.GroupID == id {
			contributors = append(contributors, c)
		}
	}
	var invitations []*model.GroupInvitation
	for _, inv := range r.s.invitations {
		if inv.GroupID == id {
			invitations = append(invitations, inv)
		}
	}
	return group, contributors, invitations, nil
}

func (r *fakeGroupRepo) FindInvitation(_ context.Context, groupID, userID string) (*model.GroupInvitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invitations {
		if inv.GroupID == groupID && inv.UserID == userID {
			return inv, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeGroupRepo) AnswerInvitation(_ context.Context, groupID, userID, status string, respondedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var target *model.GroupInvitation
	for _, inv := range r.s.invitations {
		if inv.GroupID == groupID && inv.UserID == userID && inv.Status == model.InviteStatusPending {
			target = inv
			break
		}
	}
	if target == nil {
		return repository.ErrInvitationAnswered
	}
	target.Status = status
	target.RespondedAt = &respondedAt

	if status != model.InviteStatusAccepted {
		return nil
	}
	for _, c := range r.s.contributors {
		if c.GroupID == groupID && c.UserID == userID {
			r.s.refreshCounts(groupID)
			r.s.appendMemoryCollaborator(groupID, userID)
			return nil
		}
	}
	r.s.contributors = append(r.s.contributors, &model.GroupContributor{
		ID:      "contrib-" + userID,
		GroupID: groupID,
		UserID:  userID,
		AddedAt: respondedAt,
	})
	r.s.refreshCounts(groupID)
	r.s.appendMemoryCollaborator(groupID, userID)
	return nil
}

func (r *fakeGroupRepo) AddInvitation(_ context.Context, invitation *model.GroupInvitation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invitations {
		if inv.GroupID == invitation.GroupID && inv.UserID == invitation.UserID {
			return gorm.ErrDuplicatedKey
		}
	}
	r.s.invitations = append(r.s.invitations, invitation)
	return nil
}

func (r *fakeGroupRepo) RemoveCollaborator(_ context.Context, groupID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	keepInv := r.s.invitations[:0]
	for _, inv := range r.s.invitations {
		if !(inv.GroupID == groupID && inv.UserID == userID) {
			keepInv = append(keepInv, inv)
		}
	}
	r.s.invitations = keepInv
	keepContrib := r.s.contributors[:0]
	for _, c := range r.s.contributors {
		if !(c.GroupID == groupID && c.UserID == userID) {
			keepContrib = append(keepContrib, c)
		}
	}
	r.s.contributors = keepContrib
	keepEntries := r.s.entries[:0]
	for _, e := range r.s.entries {
		if !(e.GroupID == groupID && e.AuthorID == userID) {
			keepEntries = append(keepEntries, e)
		}
	}
	r.s.entries = keepEntries
	r.s.refreshCounts(groupID)
	if group, ok := r.s.groups[groupID]; ok {
		if memory, ok := r.s.memories[group.HostMemoryID]; ok {
			keep := memory.CollaboratorIDs[:0]
			for _, id := range memory.CollaboratorIDs {
				if id != userID {
					keep = append(keep, id)
				}
			}
			memory.CollaboratorIDs = keep
		}
	}
	return nil
}

func (r *fakeGroupRepo) UpdateSettings(_ context.Context, groupID string, fields map[string]any) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	group, ok := r.s.groups[groupID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range fields {
		switch key {
		case "status":
			group.Status = value.(string)
		case "allow_new_contributions":
			group.AllowNewContributions = value.(bool)
		case "privacy":
			group.Privacy = value.(string)
		case "title":
			group.Title = value.(string)
		case "description":
			group.Description = value.(string)
		}
	}
	return nil
}

func (r *fakeGroupRepo) ListOwnedBy(_ context.Context, userID string) ([]*model.SharedMemoryGroup, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var groups []*model.SharedMemoryGroup
	for _, g := range r.s.groups {
		if g.OwnerID == userID {
			groups = append(groups, g)
		}
	}
	return groups, nil
}

func (r *fakeGroupRepo) ListContributing(_ context.Context, userID string) ([]*model.SharedMemoryGroup, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var groups []*model.SharedMemoryGroup
	for _, c := range r.s.contributors {
		if c.UserID != userID {
			continue
		}
		if g, ok := r.s.groups[c.GroupID]; ok && g.OwnerID != userID {
			groups = append(groups, g)
		}
	}
	return groups, nil
}

func (r *fakeGroupRepo) ListPendingInvitations(_ context.Context, userID string) ([]*model.GroupInvitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var invitations []*model.GroupInvitation
	for _, inv := range r.s.invitations {
		if inv.UserID == userID && inv.Status == model.InviteStatusPending {
			invitations = append(invitations, inv)
		}
	}
	return invitations, nil
}

type fakeEntryRepo struct {
	s *fakeStore
}

func (r *fakeEntryRepo) Create(_ context.Context, entry *model.CollaborativeMemory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	group, ok := r.s.groups[entry.GroupID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for _, e := range r.s.entries {
		if e.GroupID == entry.GroupID && e.AuthorID == entry.AuthorID {
			return gorm.ErrDuplicatedKey
		}
	}
	entry.DisplayOrder = group.EntryCount
	entry.CreatedAt = time.Now()
	r.s.entries = append(r.s.entries, entry)
	r.s.refreshCounts(entry.GroupID)
	return nil
}

func (r *fakeEntryRepo) FindByID(_ context.Context, id string) (*model.CollaborativeMemory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeEntryRepo) FindByGroupAndAuthor(_ context.Context, groupID, authorID string) (*model.CollaborativeMemory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.entries {
		if e.GroupID == groupID && e.AuthorID == authorID {
			return e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeEntryRepo) ListByGroup(_ context.Context, groupID string, includeDrafts bool) ([]*model.CollaborativeMemory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var entries []*model.CollaborativeMemory
	for _, e := range r.s.entries {
		if e.GroupID != groupID {
			continue
		}
		if !includeDrafts && e.Visibility != model.EntryVisibilityPublished {
			continue
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].DisplayOrder != entries[j].DisplayOrder {
			return entries[i].DisplayOrder < entries[j].DisplayOrder
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

func (r *fakeEntryRepo) Update(_ context.Context, entry *model.CollaborativeMemory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, e := range r.s.entries {
		if e.ID == entry.ID {
			r.s.entries[i] = entry
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeEntryRepo) Delete(_ context.Context, groupID, entryID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	keep := r.s.entries[:0]
	for _, e := range r.s.entries {
		if !(e.GroupID == groupID && e.ID == entryID) {
			keep = append(keep, e)
		}
	}
	r.s.entries = keep
	r.s.refreshCounts(groupID)
	return nil
}

type fakeMemoryRepo struct {
	s *fakeStore
}

func (r *fakeMemoryRepo) Create(_ context.Context, memory *model.Memory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.memories[memory.ID] = memory
	return nil
}

func (r *fakeMemoryRepo) FindByID(_ context.Context, id string) (*model.Memory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	memory, ok := r.s.memories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return memory, nil
}

func (r *fakeMemoryRepo) LinkSharedGroup(_ context.Context, memoryID, groupID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	memory, ok := r.s.memories[memoryID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	memory.SharedGroupID = groupID
	memory.IsGroupHost = true
	return nil
}

type fakeUserRepo struct {
	users map[string]*model.User
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.UserName == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) PublicProfiles(_ context.Context, ids []string) (map[string]model.PublicProfile, error) {
	profiles := map[string]model.PublicProfile{}
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			profiles[id] = model.PublicProfile{
				ID:        u.ID,
				UserName:  u.UserName,
				FullName:  u.FullName,
				AvatarURL: u.AvatarURL,
			}
		}
	}
	return profiles, nil
}

// fakeFollowGraph holds directed edges.
type fakeFollowGraph struct {
	edges map[[2]string]bool
}

func newFakeFollowGraph() *fakeFollowGraph {
	return &fakeFollowGraph{edges: map[[2]string]bool{}}
}

func (g *fakeFollowGraph) follow(followerID, followingID string) {
	g.edges[[2]string{followerID, followingID}] = true
}

func (g *fakeFollowGraph) Exists(_ context.Context, followerID, followingID string) (bool, error) {
	return g.edges[[2]string{followerID, followingID}], nil
}

func (g *fakeFollowGraph) IsFriend(_ context.Context, userID, otherID string) (bool, error) {
	return g.edges[[2]string{userID, otherID}] || g.edges[[2]string{otherID, userID}], nil
}

// failingFollowGraph simulates the social graph being unreachable.
type failingFollowGraph struct{}

func (failingFollowGraph) Exists(context.Context, string, string) (bool, error) {
	return false, errors.New("follow graph unavailable")
}

func (failingFollowGraph) IsFriend(context.Context, string, string) (bool, error) {
	return false, errors.New("follow graph unavailable")
}

type sentEvent struct {
	TargetUserID string
	Kind         string
	Payload      map[string]any
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []sentEvent
}

func (e *fakeEmitter) Send(_ context.Context, targetUserID, kind string, payload map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, sentEvent{TargetUserID: targetUserID, Kind: kind, Payload: payload})
}

func (e *fakeEmitter) sentTo(targetUserID, kind string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ev := range e.events {
		if ev.TargetUserID == targetUserID && ev.Kind == kind {
			n++
		}
	}
	return n
}
