package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/keepsake-app/keepsake/internal/model"
)

// IEntryRepository defines the interface for collaborative entry data
// operations.
type IEntryRepository interface {
	// Create assigns the entry's display order from the group's entry count
	// under a row lock, inserts it, and refreshes the count. A duplicate
	// (group, author) insert surfaces as gorm.ErrDuplicatedKey.
	Create(ctx context.Context, entry *model.CollaborativeMemory) error
	FindByID(ctx context.Context, id string) (*model.CollaborativeMemory, error)
	FindByGroupAndAuthor(ctx context.Context, groupID, authorID string) (*model.CollaborativeMemory, error)
	ListByGroup(ctx context.Context, groupID string, includeDrafts bool) ([]*model.CollaborativeMemory, error)
	Update(ctx context.Context, entry *model.CollaborativeMemory) error
	Delete(ctx context.Context, groupID, entryID string) error
}

// EntryRepository implements IEntryRepository interface
type EntryRepository struct {
	db *gorm.DB
}

// NewEntryRepository creates a new IEntryRepository instance
func NewEntryRepository(db *gorm.DB) IEntryRepository {
	return &EntryRepository{db: db}
}

// Create inserts the entry with its order taken from the group's current
// entry count, then refreshes the count, all in one transaction.
func (r *EntryRepository) Create(ctx context.Context, entry *model.CollaborativeMemory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group model.SharedMemoryGroup
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", entry.GroupID).First(&group).Error; err != nil {
			return err
		}

		entry.DisplayOrder = group.EntryCount
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		return refreshEntryCount(tx, entry.GroupID)
	})
}

// FindByID finds an entry by ID
func (r *EntryRepository) FindByID(ctx context.Context, id string) (*model.CollaborativeMemory, error) {
	var entry model.CollaborativeMemory
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindByGroupAndAuthor finds the author's entry in a group, if any.
func (r *EntryRepository) FindByGroupAndAuthor(ctx context.Context, groupID, authorID string) (*model.CollaborativeMemory, error) {
	var entry model.CollaborativeMemory
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND author_id = ?", groupID, authorID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByGroup retrieves a group's entries in display order. Draft entries
// are included only when includeDrafts is set.
func (r *EntryRepository) ListByGroup(ctx context.Context, groupID string, includeDrafts bool) ([]*model.CollaborativeMemory, error) {
	query := r.db.WithContext(ctx).Where("group_id = ?", groupID)
	if !includeDrafts {
		query = query.Where("visibility = ?", model.EntryVisibilityPublished)
	}
	var entries []*model.CollaborativeMemory
	err := query.Order("display_order ASC, created_at ASC").Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Update saves the modified entry.
func (r *EntryRepository) Update(ctx context.Context, entry *model.CollaborativeMemory) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

// Delete removes the entry and refreshes the group's entry count in one
// transaction.
func (r *EntryRepository) Delete(ctx context.Context, groupID, entryID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group model.SharedMemoryGroup
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", groupID).First(&group).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ? AND group_id = ?", entryID, groupID).
			Delete(&model.CollaborativeMemory{}).Error; err != nil {
			return err
		}
		return refreshEntryCount(tx, groupID)
	})
}

// newID generates a fresh record id.
func newID() string {
	return uuid.New().String()
}
