package model

import (
	"time"
)

// Memory 回忆模型
// A memory that hosts a shared group carries the group reference and the
// accepted collaborator ids so feed queries need no join.
type Memory struct {
	ID          string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	OwnerID     string     `gorm:"index;not null;type:varchar(64)" json:"owner_id"`
	Title       string     `gorm:"not null;type:varchar(255)" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	ImageURL    string     `json:"image_url"`
	Location    string     `gorm:"type:varchar(255)" json:"location"`
	EventName   string     `gorm:"type:varchar(255)" json:"event_name"`
	EventDate   *time.Time `json:"event_date,omitempty"`

	SharedGroupID   string   `gorm:"index;type:varchar(64)" json:"shared_group_id,omitempty"`
	IsGroupHost     bool     `gorm:"not null;default:false" json:"is_group_host"`
	CollaboratorIDs []string `gorm:"serializer:json" json:"collaborator_ids"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Memory) TableName() string {
	return "memories"
}
