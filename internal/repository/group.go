package repository

import (
	"context"
	"errors"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/keepsake-app/keepsake/internal/model"
)

// ErrInvitationAnswered is returned by AnswerInvitation when the pending
// row vanished between the caller's check and the update, i.e. a
// concurrent response won the race.
var ErrInvitationAnswered = errors.New("invitation already answered")

// IGroupRepository defines the interface for shared group data operations.
// Mutations touching more than one row of the group aggregate run in a
// single transaction and recompute the cached contributor and entry counts
// from the authoritative tables before committing.
type IGroupRepository interface {
	Create(ctx context.Context, group *model.SharedMemoryGroup, invitations []*model.GroupInvitation, contributors []*model.GroupContributor, seedEntry *model.CollaborativeMemory) error
	FindByID(ctx context.Context, id string) (*model.SharedMemoryGroup, error)
	LoadAggregate(ctx context.Context, id string) (*model.SharedMemoryGroup, []*model.GroupContributor, []*model.GroupInvitation, error)
	FindInvitation(ctx context.Context, groupID, userID string) (*model.GroupInvitation, error)
	AnswerInvitation(ctx context.Context, groupID, userID, status string, respondedAt time.Time) error
	AddInvitation(ctx context.Context, invitation *model.GroupInvitation) error
	RemoveCollaborator(ctx context.Context, groupID, userID string) error
	UpdateSettings(ctx context.Context, groupID string, fields map[string]any) error
	ListOwnedBy(ctx context.Context, userID string) ([]*model.SharedMemoryGroup, error)
	ListContributing(ctx context.Context, userID string) ([]*model.SharedMemoryGroup, error)
	ListPendingInvitations(ctx context.Context, userID string) ([]*model.GroupInvitation, error)
}

// GroupRepository implements IGroupRepository interface
type GroupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new IGroupRepository instance
func NewGroupRepository(db *gorm.DB) IGroupRepository {
	return &GroupRepository{db: db}
}

// Create persists the group together with its invitation rows, seed
// contributor rows, and the owner's seed entry in one transaction.
func (r *GroupRepository) Create(ctx context.Context, group *model.SharedMemoryGroup, invitations []*model.GroupInvitation, contributors []*model.GroupContributor, seedEntry *model.CollaborativeMemory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		if len(invitations) > 0 {
			if err := tx.Create(invitations).Error; err != nil {
				return err
			}
		}
		if len(contributors) > 0 {
			if err := tx.Create(contributors).Error; err != nil {
				return err
			}
		}
		if seedEntry != nil {
			if err := tx.Create(seedEntry).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID finds a group by ID
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*model.SharedMemoryGroup, error) {
	var group model.SharedMemoryGroup
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// LoadAggregate loads the group with its contributors and invitations.
func (r *GroupRepository) LoadAggregate(ctx context.Context, id string) (*model.SharedMemoryGroup, []*model.GroupContributor, []*model.GroupInvitation, error) {
	group, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	var contributors []*model.GroupContributor
	if err := r.db.WithContext(ctx).Where("group_id = ?", id).Find(&contributors).Error; err != nil {
		return nil, nil, nil, err
	}
	var invitations []*model.GroupInvitation
	if err := r.db.WithContext(ctx).Where("group_id = ?", id).Order("invited_at ASC").Find(&invitations).Error; err != nil {
		return nil, nil, nil, err
	}
	return group, contributors, invitations, nil
}

// FindInvitation finds the invitation record for a (group, user) pair.
func (r *GroupRepository) FindInvitation(ctx context.Context, groupID, userID string) (*model.GroupInvitation, error) {
	var invitation model.GroupInvitation
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&invitation).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

// AnswerInvitation marks the pending invitation as accepted or declined.
// On accept it also adds the contributor row (if absent), refreshes the
// contributor count, and mirrors the user into the host memory's
// collaborator list, all in one transaction so the denormalized list can
// never diverge from the contributors table. The status update is
// conditional on the row still being pending, so a concurrent second
// answer loses with ErrInvitationAnswered.
func (r *GroupRepository) AnswerInvitation(ctx context.Context, groupID, userID, status string, respondedAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialize concurrent responders on the same group.
		var group model.SharedMemoryGroup
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", groupID).First(&group).Error; err != nil {
			return err
		}

		res := tx.Model(&model.GroupInvitation{}).
			Where("group_id = ? AND user_id = ? AND status = ?", groupID, userID, model.InviteStatusPending).
			Updates(map[string]any{"status": status, "responded_at": respondedAt})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvitationAnswered
		}

		if status != model.InviteStatusAccepted {
			return nil
		}

		var count int64
		if err := tx.Model(&model.GroupContributor{}).
			Where("group_id = ? AND user_id = ?", groupID, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			contributor := &model.GroupContributor{
				ID:      newID(),
				GroupID: groupID,
				UserID:  userID,
				AddedAt: respondedAt,
			}
			if err := tx.Create(contributor).Error; err != nil {
				return err
			}
		}
		if err := refreshContributorCount(tx, groupID); err != nil {
			return err
		}
		return appendMemoryCollaborator(tx, group.HostMemoryID, userID)
	})
}

// AddInvitation appends a new pending invitation row.
func (r *GroupRepository) AddInvitation(ctx context.Context, invitation *model.GroupInvitation) error {
	return r.db.WithContext(ctx).Create(invitation).Error
}

// RemoveCollaborator deletes every invitation record and the contributor
// row for userID, cascades to the user's entry and the host memory's
// collaborator list, and refreshes both cached counts, all in one
// transaction.
func (r *GroupRepository) RemoveCollaborator(ctx context.Context, groupID, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group model.SharedMemoryGroup
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", groupID).First(&group).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).
			Delete(&model.GroupInvitation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).
			Delete(&model.GroupContributor{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ? AND author_id = ?", groupID, userID).
			Delete(&model.CollaborativeMemory{}).Error; err != nil {
			return err
		}
		if err := removeMemoryCollaborator(tx, group.HostMemoryID, userID); err != nil {
			return err
		}
		if err := refreshContributorCount(tx, groupID); err != nil {
			return err
		}
		return refreshEntryCount(tx, groupID)
	})
}

// UpdateSettings applies the given column patch to the group row.
func (r *GroupRepository) UpdateSettings(ctx context.Context, groupID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.SharedMemoryGroup{}).
		Where("id = ?", groupID).
		Updates(fields).Error
}

// ListOwnedBy retrieves the groups owned by userID, newest first.
func (r *GroupRepository) ListOwnedBy(ctx context.Context, userID string) ([]*model.SharedMemoryGroup, error) {
	var groups []*model.SharedMemoryGroup
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", userID).
		Order("created_at DESC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// ListContributing retrieves groups where userID is a contributor but not
// the owner, newest first.
func (r *GroupRepository) ListContributing(ctx context.Context, userID string) ([]*model.SharedMemoryGroup, error) {
	var groups []*model.SharedMemoryGroup
	err := r.db.WithContext(ctx).
		Table("shared_memory_groups").
		Joins("JOIN group_contributors ON shared_memory_groups.id = group_contributors.group_id").
		Where("group_contributors.user_id = ? AND shared_memory_groups.owner_id <> ?", userID, userID).
		Order("shared_memory_groups.created_at DESC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// ListPendingInvitations retrieves userID's unanswered invitations, newest
// first.
func (r *GroupRepository) ListPendingInvitations(ctx context.Context, userID string) ([]*model.GroupInvitation, error) {
	var invitations []*model.GroupInvitation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.InviteStatusPending).
		Order("invited_at DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

// appendMemoryCollaborator mirrors an accepted user into the host memory's
// denormalized collaborator list. The row lock serializes concurrent
// accepts so the read-modify-write on the JSON column cannot drop a
// concurrently added id.
func appendMemoryCollaborator(tx *gorm.DB, memoryID, userID string) error {
	var memory model.Memory
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", memoryID).First(&memory).Error; err != nil {
		return err
	}
	if slices.Contains(memory.CollaboratorIDs, userID) {
		return nil
	}
	memory.CollaboratorIDs = append(memory.CollaboratorIDs, userID)
	return tx.Model(&memory).Update("collaborator_ids", memory.CollaboratorIDs).Error
}

// removeMemoryCollaborator strips a removed user from the host memory's
// collaborator list, under the same row lock as appendMemoryCollaborator.
func removeMemoryCollaborator(tx *gorm.DB, memoryID, userID string) error {
	var memory model.Memory
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", memoryID).First(&memory).Error; err != nil {
		return err
	}
	idx := slices.Index(memory.CollaboratorIDs, userID)
	if idx < 0 {
		return nil
	}
	memory.CollaboratorIDs = slices.Delete(memory.CollaboratorIDs, idx, idx+1)
	return tx.Model(&memory).Update("collaborator_ids", memory.CollaboratorIDs).Error
}

// refreshContributorCount recomputes the cached contributor count from the
// contributors table inside the caller's transaction.
func refreshContributorCount(tx *gorm.DB, groupID string) error {
	var count int64
	if err := tx.Model(&model.GroupContributor{}).
		Where("group_id = ?", groupID).
		Count(&count).Error; err != nil {
		return err
	}
	return tx.Model(&model.SharedMemoryGroup{}).
		Where("id = ?", groupID).
		Update("contributor_count", count).Error
}

// refreshEntryCount recomputes the cached entry count from the entries
// table inside the caller's transaction.
func refreshEntryCount(tx *gorm.DB, groupID string) error {
	var count int64
	if err := tx.Model(&model.CollaborativeMemory{}).
		Where("group_id = ?", groupID).
		Count(&count).Error; err != nil {
		return err
	}
	return tx.Model(&model.SharedMemoryGroup{}).
		Where("id = ?", groupID).
		Update("entry_count", count).Error
}
