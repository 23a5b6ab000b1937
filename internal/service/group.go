package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/keepsake-app/keepsake/internal/apperr"
	"github.com/keepsake-app/keepsake/internal/authz"
	"github.com/keepsake-app/keepsake/internal/model"
	"github.com/keepsake-app/keepsake/internal/notify"
	"github.com/keepsake-app/keepsake/internal/repository"
)

// Invitation response values accepted by RespondToInvitation.
const (
	ResponseAccept  = "accept"
	ResponseDecline = "decline"
)

// CreateSharedGroupRequest carries the host memory fields plus the initial
// collaborator set for a new shared group.
type CreateSharedGroupRequest struct {
	Title           string     `json:"title" binding:"required,min=1,max=255"`
	Content         string     `json:"content" binding:"required"`
	Description     string     `json:"description"`
	ImageURL        string     `json:"image_url"`
	Location        string     `json:"location"`
	EventName       string     `json:"event_name"`
	EventDate       *time.Time `json:"event_date"`
	Privacy         string     `json:"privacy"`
	CollaboratorIDs []string   `json:"collaborator_ids" binding:"required"`
}

// CreateSharedGroupResult returns the populated memory and group, plus the
// requested collaborators that were dropped for lacking a follow
// relationship (a diagnostic, not an error).
type CreateSharedGroupResult struct {
	Memory         *model.Memory            `json:"memory"`
	Group          *model.SharedMemoryGroup `json:"group"`
	InvitedUserIDs []string                 `json:"invited_user_ids"`
	DroppedUserIDs []string                 `json:"dropped_user_ids,omitempty"`
}

// UpdateGroupSettingsRequest has patch semantics: nil fields are left
// untouched.
type UpdateGroupSettingsRequest struct {
	Status                *string `json:"status"`
	AllowNewContributions *bool   `json:"allow_new_contributions"`
	Privacy               *string `json:"privacy"`
	Title                 *string `json:"title"`
	Description           *string `json:"description"`
}

// PendingInvitationView pairs an invitation with its group for display.
type PendingInvitationView struct {
	Invitation *model.GroupInvitation   `json:"invitation"`
	Group      *model.SharedMemoryGroup `json:"group"`
}

// MyGroupsView is the caller's collaboration overview, each list sorted
// newest-first.
type MyGroupsView struct {
	Owned              []*model.SharedMemoryGroup `json:"owned"`
	Contributing       []*model.SharedMemoryGroup `json:"contributing"`
	PendingInvitations []*PendingInvitationView   `json:"pending_invitations"`
}

// IGroupService defines the interface for group lifecycle operations
type IGroupService interface {
	CreateSharedGroup(ctx context.Context, creatorID string, req *CreateSharedGroupRequest) (*CreateSharedGroupResult, error)
	RespondToInvitation(ctx context.Context, groupID, userID, response string) error
	InviteCollaborator(ctx context.Context, groupID, requesterID, collaboratorID string) error
	RemoveCollaborator(ctx context.Context, groupID, requesterID, collaboratorID string) error
	UpdateGroupSettings(ctx context.Context, groupID, requesterID string, req *UpdateGroupSettingsRequest) (*model.SharedMemoryGroup, error)
	ListMyGroups(ctx context.Context, userID string) (*MyGroupsView, error)
}

// GroupService implements the IGroupService interface
type GroupService struct {
	groupRepo  repository.IGroupRepository
	memoryRepo repository.IMemoryRepository
	follows    repository.IFollowGraph
	emitter    notify.Emitter
}

// NewGroupService creates a new IGroupService instance
func NewGroupService(groupRepo repository.IGroupRepository, memoryRepo repository.IMemoryRepository, follows repository.IFollowGraph, emitter notify.Emitter) IGroupService {
	return &GroupService{
		groupRepo:  groupRepo,
		memoryRepo: memoryRepo,
		follows:    follows,
		emitter:    emitter,
	}
}

// CreateSharedGroup creates the host memory and the group atomically with
// the owner seeded as the first contributor, one pending invitation per
// requested collaborator that is a friend of the creator, and the owner's
// seed entry. Requested collaborators without a follow relationship in
// either direction are silently dropped.
func (s *GroupService) CreateSharedGroup(ctx context.Context, creatorID string, req *CreateSharedGroupRequest) (*CreateSharedGroupResult, error) {
	if len(req.CollaboratorIDs) == 0 {
		return nil, apperr.InvalidArgument("at least one collaborator is required")
	}

	privacy := req.Privacy
	if privacy == "" {
		privacy = model.PrivacyCollaboratorsOnly
	}
	if !validPrivacy(privacy) {
		return nil, apperr.InvalidArgument("unknown privacy value %q", privacy)
	}

	invited, dropped, err := s.filterFriends(ctx, creatorID, req.CollaboratorIDs)
	if err != nil {
		return nil, apperr.Internal("failed to filter collaborators", err)
	}
	if len(invited) == 0 {
		return nil, apperr.InvalidArgument("none of the requested collaborators are friends of the creator")
	}

	now := time.Now()

	memory := &model.Memory{
		ID:          uuid.New().String(),
		OwnerID:     creatorID,
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Location:    req.Location,
		EventName:   req.EventName,
		EventDate:   req.EventDate,
	}
	if err := s.memoryRepo.Create(ctx, memory); err != nil {
		return nil, apperr.Internal("failed to create host memory", err)
	}

	group := &model.SharedMemoryGroup{
		ID:                    uuid.New().String(),
		HostMemoryID:          memory.ID,
		OwnerID:               creatorID,
		Title:                 req.Title,
		Description:           req.Description,
		Location:              req.Location,
		EventName:             req.EventName,
		EventDate:             req.EventDate,
		Status:                model.GroupStatusActive,
		AllowNewContributions: true,
		Privacy:               privacy,
		ContributorCount:      1,
		EntryCount:            1,
	}

	invitations := make([]*model.GroupInvitation, 0, len(invited))
	for _, userID := range invited {
		invitations = append(invitations, &model.GroupInvitation{
			ID:        uuid.New().String(),
			GroupID:   group.ID,
			UserID:    userID,
			Status:    model.InviteStatusPending,
			InvitedAt: now,
		})
	}

	contributors := []*model.GroupContributor{{
		ID:      uuid.New().String(),
		GroupID: group.ID,
		UserID:  creatorID,
		AddedAt: now,
	}}

	seedEntry := &model.CollaborativeMemory{
		ID:         uuid.New().String(),
		GroupID:    group.ID,
		AuthorID:   creatorID,
		Title:      req.Title,
		Content:    req.Content,
		ImageURL:   req.ImageURL,
		Visibility: model.EntryVisibilityPublished,
		// The seed entry predates the counter, so it sits at position zero.
		DisplayOrder: 0,
	}

	if err := s.groupRepo.Create(ctx, group, invitations, contributors, seedEntry); err != nil {
		return nil, apperr.Internal("failed to create shared group", err)
	}
	if err := s.memoryRepo.LinkSharedGroup(ctx, memory.ID, group.ID); err != nil {
		return nil, apperr.Internal("failed to link host memory to group", err)
	}
	memory.SharedGroupID = group.ID
	memory.IsGroupHost = true

	for _, userID := range invited {
		s.emitter.Send(ctx, userID, notify.KindCollaborationInvite, map[string]any{
			"group_id":    group.ID,
			"group_title": group.Title,
			"inviter_id":  creatorID,
		})
	}

	return &CreateSharedGroupResult{
		Memory:         memory,
		Group:          group,
		InvitedUserIDs: invited,
		DroppedUserIDs: dropped,
	}, nil
}

// RespondToInvitation answers a pending invitation. An invitation can be
// answered exactly once; the second attempt reports the prior answer.
func (s *GroupService) RespondToInvitation(ctx context.Context, groupID, userID, response string) error {
	if response != ResponseAccept && response != ResponseDecline {
		return apperr.InvalidArgument("response must be %q or %q", ResponseAccept, ResponseDecline)
	}

	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return groupLookupErr(groupID, err)
	}

	invitation, err := s.groupRepo.FindInvitation(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("no invitation to this group for the user")
		}
		return apperr.Internal("failed to find invitation", err)
	}
	if invitation.Status != model.InviteStatusPending {
		return apperr.Conflict("invitation was already %s", invitation.Status)
	}

	status := model.InviteStatusDeclined
	if response == ResponseAccept {
		status = model.InviteStatusAccepted
	}

	// On accept the repository also mirrors the user into the host memory's
	// collaborator list, in the same transaction as the status flip.
	if err := s.groupRepo.AnswerInvitation(ctx, groupID, userID, status, time.Now()); err != nil {
		if errors.Is(err, repository.ErrInvitationAnswered) {
			return apperr.Conflict("invitation was already answered")
		}
		return apperr.Internal("failed to answer invitation", err)
	}

	s.emitter.Send(ctx, group.OwnerID, notify.KindCollaborationResponse, map[string]any{
		"group_id": group.ID,
		"user_id":  userID,
		"response": response,
	})
	return nil
}

// InviteCollaborator lets the owner invite one more friend after creation.
// A user with any existing invitation record cannot be re-invited, even
// after declining; removal clears the record and re-opens the door.
func (s *GroupService) InviteCollaborator(ctx context.Context, groupID, requesterID, collaboratorID string) error {
	group, contributors, invitations, err := s.groupRepo.LoadAggregate(ctx, groupID)
	if err != nil {
		return groupLookupErr(groupID, err)
	}
	snap := authz.NewSnapshot(group, contributors, invitations)

	if !snap.IsOwner(requesterID) {
		return apperr.Forbidden("only the group owner can invite collaborators")
	}
	if collaboratorID == group.OwnerID {
		return apperr.InvalidArgument("the owner is already a contributor")
	}
	if inv := snap.Invitation(collaboratorID); inv != nil {
		return apperr.Conflict("user already has a %s invitation to this group", inv.Status)
	}

	friend, err := s.follows.IsFriend(ctx, requesterID, collaboratorID)
	if err != nil {
		return apperr.Internal("failed to check follow relationship", err)
	}
	if !friend {
		return apperr.InvalidArgument("can only invite users with a follow relationship")
	}

	invitation := &model.GroupInvitation{
		ID:        uuid.New().String(),
		GroupID:   groupID,
		UserID:    collaboratorID,
		Status:    model.InviteStatusPending,
		InvitedAt: time.Now(),
	}
	if err := s.groupRepo.AddInvitation(ctx, invitation); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("user already has an invitation to this group")
		}
		return apperr.Internal("failed to add invitation", err)
	}

	s.emitter.Send(ctx, collaboratorID, notify.KindCollaborationInvite, map[string]any{
		"group_id":    group.ID,
		"group_title": group.Title,
		"inviter_id":  requesterID,
	})
	return nil
}

// RemoveCollaborator strips a collaborator from the group: every
// invitation record, the contributor row, the host memory's collaborator
// list entry, and the collaborator's entry (cascade).
func (s *GroupService) RemoveCollaborator(ctx context.Context, groupID, requesterID, collaboratorID string) error {
	group, contributors, invitations, err := s.groupRepo.LoadAggregate(ctx, groupID)
	if err != nil {
		return groupLookupErr(groupID, err)
	}
	snap := authz.NewSnapshot(group, contributors, invitations)

	if !snap.IsOwner(requesterID) {
		return apperr.Forbidden("only the group owner can remove collaborators")
	}
	if collaboratorID == group.OwnerID {
		return apperr.Conflict("the group owner cannot be removed")
	}
	if !snap.IsContributor(collaboratorID) && snap.Invitation(collaboratorID) == nil {
		return apperr.NotFound("user is not a collaborator of this group")
	}

	if err := s.groupRepo.RemoveCollaborator(ctx, groupID, collaboratorID); err != nil {
		return apperr.Internal("failed to remove collaborator", err)
	}
	return nil
}

// UpdateGroupSettings applies a partial settings update. Owner-only.
func (s *GroupService) UpdateGroupSettings(ctx context.Context, groupID, requesterID string, req *UpdateGroupSettingsRequest) (*model.SharedMemoryGroup, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, groupLookupErr(groupID, err)
	}
	if group.OwnerID != requesterID {
		return nil, apperr.Forbidden("only the group owner can change settings")
	}

	fields := map[string]any{}
	if req.Status != nil {
		if !validStatus(*req.Status) {
			return nil, apperr.InvalidArgument("unknown status value %q", *req.Status)
		}
		fields["status"] = *req.Status
	}
	if req.AllowNewContributions != nil {
		fields["allow_new_contributions"] = *req.AllowNewContributions
	}
	if req.Privacy != nil {
		if !validPrivacy(*req.Privacy) {
			return nil, apperr.InvalidArgument("unknown privacy value %q", *req.Privacy)
		}
		fields["privacy"] = *req.Privacy
	}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}

	if err := s.groupRepo.UpdateSettings(ctx, groupID, fields); err != nil {
		return nil, apperr.Internal("failed to update group settings", err)
	}
	return s.groupRepo.FindByID(ctx, groupID)
}

// ListMyGroups returns the caller's owned groups, contributing groups, and
// pending invitations, each sorted newest-first by the repository.
func (s *GroupService) ListMyGroups(ctx context.Context, userID string) (*MyGroupsView, error) {
	owned, err := s.groupRepo.ListOwnedBy(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list owned groups", err)
	}
	contributing, err := s.groupRepo.ListContributing(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list contributing groups", err)
	}
	invitations, err := s.groupRepo.ListPendingInvitations(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list pending invitations", err)
	}

	pending := make([]*PendingInvitationView, 0, len(invitations))
	for _, inv := range invitations {
		group, err := s.groupRepo.FindByID(ctx, inv.GroupID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, apperr.Internal("failed to load invited group", err)
		}
		pending = append(pending, &PendingInvitationView{Invitation: inv, Group: group})
	}

	return &MyGroupsView{
		Owned:              owned,
		Contributing:       contributing,
		PendingInvitations: pending,
	}, nil
}

// filterFriends splits the requested collaborator ids into friends of the
// creator and dropped ids, deduplicating and skipping the creator itself.
func (s *GroupService) filterFriends(ctx context.Context, creatorID string, ids []string) (invited, dropped []string, err error) {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == creatorID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		friend, err := s.follows.IsFriend(ctx, creatorID, id)
		if err != nil {
			return nil, nil, err
		}
		if friend {
			invited = append(invited, id)
		} else {
			dropped = append(dropped, id)
		}
	}
	return invited, dropped, nil
}

// groupLookupErr maps a group read failure into the error taxonomy.
func groupLookupErr(groupID string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("group %s not found", groupID)
	}
	return apperr.Internal("failed to load group", err)
}

func validStatus(status string) bool {
	switch status {
	case model.GroupStatusActive, model.GroupStatusPaused, model.GroupStatusClosed:
		return true
	}
	return false
}

func validPrivacy(privacy string) bool {
	switch privacy {
	case model.PrivacyPublic, model.PrivacyPrivate, model.PrivacyFollowersOnly, model.PrivacyCollaboratorsOnly:
		return true
	}
	return false
}
