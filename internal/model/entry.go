package model

import (
	"time"
)

// Entry visibility values.
const (
	EntryVisibilityPublished = "published"
	EntryVisibilityDraft     = "draft"
)

// Mood labels an entry's emotional tone; free-form but typically one of
// happy, nostalgic, funny, bittersweet, proud.
//
// CollaborativeMemory is one author's first-person contribution to a shared
// group. The unique index on (group_id, author_id) enforces the
// one-entry-per-author rule even under concurrent writes.
type CollaborativeMemory struct {
	ID       string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	GroupID  string `gorm:"not null;type:varchar(64);uniqueIndex:idx_group_author" json:"group_id"`
	AuthorID string `gorm:"not null;type:varchar(64);uniqueIndex:idx_group_author" json:"author_id"`

	Title       string   `gorm:"type:varchar(255)" json:"title"`
	Content     string   `gorm:"type:text;not null" json:"content"`
	ImageURL    string   `json:"image_url"`
	Media       []string `gorm:"serializer:json" json:"media"`
	Perspective string   `gorm:"type:varchar(255)" json:"perspective"`
	Mood        string   `gorm:"type:varchar(32)" json:"mood"`
	Visibility  string   `gorm:"not null;default:published;type:varchar(16)" json:"visibility"`

	// DisplayOrder is assigned at creation from the group's entry count at
	// that moment and never changes afterwards.
	DisplayOrder int `gorm:"column:display_order;not null" json:"order"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CollaborativeMemory) TableName() string {
	return "collaborative_memories"
}
