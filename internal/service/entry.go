package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/keepsake-app/keepsake/internal/apperr"
	"github.com/keepsake-app/keepsake/internal/authz"
	"github.com/keepsake-app/keepsake/internal/model"
	"github.com/keepsake-app/keepsake/internal/notify"
	"github.com/keepsake-app/keepsake/internal/repository"
)

// AddEntryRequest carries a new first-person contribution.
type AddEntryRequest struct {
	Title       string   `json:"title"`
	Content     string   `json:"content" binding:"required"`
	ImageURL    string   `json:"image_url"`
	Media       []string `json:"media"`
	Perspective string   `json:"perspective"`
	Mood        string   `json:"mood"`
	Visibility  string   `json:"visibility"`
}

// UpdateEntryRequest patches an entry. Only the whitelisted fields below
// can change; nil fields are left untouched.
type UpdateEntryRequest struct {
	Title       *string   `json:"title"`
	Content     *string   `json:"content"`
	ImageURL    *string   `json:"image_url"`
	Media       *[]string `json:"media"`
	Perspective *string   `json:"perspective"`
	Mood        *string   `json:"mood"`
	Visibility  *string   `json:"visibility"`
}

// EntryView is one entry enriched with its author's public profile.
type EntryView struct {
	*model.CollaborativeMemory
	Author *model.PublicProfile `json:"author,omitempty"`
}

// GroupView is the full read model for a group page: the group, its
// visible entries in display order, and the requester's standing.
type GroupView struct {
	Group         *model.SharedMemoryGroup `json:"group"`
	Entries       []*EntryView             `json:"entries"`
	IsOwner       bool                     `json:"is_owner"`
	IsContributor bool                     `json:"is_contributor"`
	CanContribute bool                     `json:"can_contribute"`
}

// IEntryService defines the interface for entry contribution operations
type IEntryService interface {
	AddEntry(ctx context.Context, groupID, authorID string, req *AddEntryRequest) (*model.CollaborativeMemory, error)
	UpdateEntry(ctx context.Context, groupID, entryID, requesterID string, req *UpdateEntryRequest) (*model.CollaborativeMemory, error)
	DeleteEntry(ctx context.Context, groupID, entryID, requesterID string) error
	ListGroupView(ctx context.Context, groupID, requesterID string) (*GroupView, error)
}

// EntryService implements the IEntryService interface
type EntryService struct {
	groupRepo repository.IGroupRepository
	entryRepo repository.IEntryRepository
	userRepo  repository.IUserRepository
	follows   repository.IFollowGraph
	emitter   notify.Emitter
}

// NewEntryService creates a new IEntryService instance
func NewEntryService(groupRepo repository.IGroupRepository, entryRepo repository.IEntryRepository, userRepo repository.IUserRepository, follows repository.IFollowGraph, emitter notify.Emitter) IEntryService {
	return &EntryService{
		groupRepo: groupRepo,
		entryRepo: entryRepo,
		userRepo:  userRepo,
		follows:   follows,
		emitter:   emitter,
	}
}

// AddEntry creates the author's contribution. One entry per author per
// group: a second attempt is a conflict, with the storage-level unique
// index as the backstop against concurrent duplicates.
func (s *EntryService) AddEntry(ctx context.Context, groupID, authorID string, req *AddEntryRequest) (*model.CollaborativeMemory, error) {
	group, contributors, invitations, err := s.groupRepo.LoadAggregate(ctx, groupID)
	if err != nil {
		return nil, groupLookupErr(groupID, err)
	}
	snap := authz.NewSnapshot(group, contributors, invitations)

	if !snap.CanContribute(authorID) {
		return nil, apperr.Forbidden("user may not contribute to this group")
	}

	if _, err := s.entryRepo.FindByGroupAndAuthor(ctx, groupID, authorID); err == nil {
		return nil, apperr.Conflict("an entry by this author already exists; edit it instead")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal("failed to check existing entry", err)
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = model.EntryVisibilityPublished
	}
	if visibility != model.EntryVisibilityPublished && visibility != model.EntryVisibilityDraft {
		return nil, apperr.InvalidArgument("unknown visibility value %q", visibility)
	}

	entry := &model.CollaborativeMemory{
		ID:          uuid.New().String(),
		GroupID:     groupID,
		AuthorID:    authorID,
		Title:       req.Title,
		Content:     req.Content,
		ImageURL:    req.ImageURL,
		Media:       req.Media,
		Perspective: req.Perspective,
		Mood:        req.Mood,
		Visibility:  visibility,
	}
	if err := s.entryRepo.Create(ctx, entry); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("an entry by this author already exists; edit it instead")
		}
		return nil, apperr.Internal("failed to create entry", err)
	}

	for _, userID := range snap.ContributorIDs() {
		if userID == authorID {
			continue
		}
		s.notifyNewEntry(ctx, userID, group, authorID)
	}
	if !snap.IsContributor(group.OwnerID) && group.OwnerID != authorID {
		s.notifyNewEntry(ctx, group.OwnerID, group, authorID)
	}

	return entry, nil
}

// UpdateEntry patches the author's own entry. Fields outside the whitelist
// never reach this service and are silently ignored.
func (s *EntryService) UpdateEntry(ctx context.Context, groupID, entryID, requesterID string, req *UpdateEntryRequest) (*model.CollaborativeMemory, error) {
	entry, err := s.findGroupEntry(ctx, groupID, entryID)
	if err != nil {
		return nil, err
	}
	if entry.AuthorID != requesterID {
		return nil, apperr.Forbidden("only the author can edit an entry")
	}

	if req.Visibility != nil &&
		*req.Visibility != model.EntryVisibilityPublished &&
		*req.Visibility != model.EntryVisibilityDraft {
		return nil, apperr.InvalidArgument("unknown visibility value %q", *req.Visibility)
	}

	if req.Title != nil {
		entry.Title = *req.Title
	}
	if req.Content != nil {
		entry.Content = *req.Content
	}
	if req.ImageURL != nil {
		entry.ImageURL = *req.ImageURL
	}
	if req.Media != nil {
		entry.Media = *req.Media
	}
	if req.Perspective != nil {
		entry.Perspective = *req.Perspective
	}
	if req.Mood != nil {
		entry.Mood = *req.Mood
	}
	if req.Visibility != nil {
		entry.Visibility = *req.Visibility
	}

	if err := s.entryRepo.Update(ctx, entry); err != nil {
		return nil, apperr.Internal("failed to update entry", err)
	}
	return entry, nil
}

// DeleteEntry removes an entry. Allowed for its author or the group owner.
func (s *EntryService) DeleteEntry(ctx context.Context, groupID, entryID, requesterID string) error {
	entry, err := s.findGroupEntry(ctx, groupID, entryID)
	if err != nil {
		return err
	}

	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return groupLookupErr(groupID, err)
	}
	if entry.AuthorID != requesterID && group.OwnerID != requesterID {
		return apperr.Forbidden("only the author or the group owner can delete an entry")
	}

	if err := s.entryRepo.Delete(ctx, groupID, entryID); err != nil {
		return apperr.Internal("failed to delete entry", err)
	}
	return nil
}

// ListGroupView returns the group with its visible entries and the
// requester's standing. Drafts are visible to the owner only.
func (s *EntryService) ListGroupView(ctx context.Context, groupID, requesterID string) (*GroupView, error) {
	group, contributors, invitations, err := s.groupRepo.LoadAggregate(ctx, groupID)
	if err != nil {
		return nil, groupLookupErr(groupID, err)
	}
	snap := authz.NewSnapshot(group, contributors, invitations)

	visible, err := snap.CanView(ctx, s.follows, requesterID)
	if err != nil {
		return nil, apperr.Internal("failed to evaluate visibility", err)
	}
	if !visible {
		return nil, apperr.Forbidden("user may not view this group")
	}

	isOwner := snap.IsOwner(requesterID)
	entries, err := s.entryRepo.ListByGroup(ctx, groupID, isOwner)
	if err != nil {
		return nil, apperr.Internal("failed to list entries", err)
	}

	authorIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		authorIDs = append(authorIDs, entry.AuthorID)
	}
	profiles, err := s.userRepo.PublicProfiles(ctx, authorIDs)
	if err != nil {
		return nil, apperr.Internal("failed to load author profiles", err)
	}

	views := make([]*EntryView, 0, len(entries))
	for _, entry := range entries {
		view := &EntryView{CollaborativeMemory: entry}
		if profile, ok := profiles[entry.AuthorID]; ok {
			view.Author = &profile
		}
		views = append(views, view)
	}

	return &GroupView{
		Group:         group,
		Entries:       views,
		IsOwner:       isOwner,
		IsContributor: snap.IsContributor(requesterID),
		CanContribute: snap.CanContribute(requesterID),
	}, nil
}

// findGroupEntry loads an entry and verifies it belongs to the group.
func (s *EntryService) findGroupEntry(ctx context.Context, groupID, entryID string) (*model.CollaborativeMemory, error) {
	entry, err := s.entryRepo.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("entry %s not found", entryID)
		}
		return nil, apperr.Internal("failed to load entry", err)
	}
	if entry.GroupID != groupID {
		return nil, apperr.NotFound("entry %s not found in group %s", entryID, groupID)
	}
	return entry, nil
}

func (s *EntryService) notifyNewEntry(ctx context.Context, targetUserID string, group *model.SharedMemoryGroup, authorID string) {
	s.emitter.Send(ctx, targetUserID, notify.KindNewCollaborationEntry, map[string]any{
		"group_id":    group.ID,
		"group_title": group.Title,
		"author_id":   authorID,
	})
}
