package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/keepsake-app/keepsake/internal/model"
)

// IMemoryRepository defines the interface for host memory data operations.
// The collaborator list on the memory row is maintained by the group
// repository inside its accept/remove transactions.
type IMemoryRepository interface {
	Create(ctx context.Context, memory *model.Memory) error
	FindByID(ctx context.Context, id string) (*model.Memory, error)
	LinkSharedGroup(ctx context.Context, memoryID, groupID string) error
}

// MemoryRepository implements IMemoryRepository interface
type MemoryRepository struct {
	db *gorm.DB
}

// NewMemoryRepository creates a new IMemoryRepository instance
func NewMemoryRepository(db *gorm.DB) IMemoryRepository {
	return &MemoryRepository{db: db}
}

// Create creates a new memory in the database
func (r *MemoryRepository) Create(ctx context.Context, memory *model.Memory) error {
	return r.db.WithContext(ctx).Create(memory).Error
}

// FindByID finds a memory by ID
func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*model.Memory, error) {
	var memory model.Memory
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&memory).Error
	if err != nil {
		return nil, err
	}
	return &memory, nil
}

// LinkSharedGroup marks the memory as the host of the given group.
func (r *MemoryRepository) LinkSharedGroup(ctx context.Context, memoryID, groupID string) error {
	return r.db.WithContext(ctx).
		Model(&model.Memory{}).
		Where("id = ?", memoryID).
		Updates(map[string]any{
			"shared_group_id": groupID,
			"is_group_host":   true,
		}).Error
}
