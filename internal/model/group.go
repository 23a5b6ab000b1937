package model

import (
	"time"
)

// Group status values. A paused or closed group accepts no new entries
// regardless of AllowNewContributions.
const (
	GroupStatusActive = "active"
	GroupStatusPaused = "paused"
	GroupStatusClosed = "closed"
)

// Privacy levels for a shared group.
// Note: "private" and "collaborators_only" currently resolve to the same
// owner/contributor-only visibility. Both values are kept pending product
// clarification.
const (
	PrivacyPublic            = "public"
	PrivacyPrivate           = "private"
	PrivacyFollowersOnly     = "followers_only"
	PrivacyCollaboratorsOnly = "collaborators_only"
)

// Invitation status values. pending is the only non-terminal state.
const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusDeclined = "declined"
)

// SharedMemoryGroup 共享回忆群组模型
// ContributorCount and EntryCount are derived caches; every mutation
// recomputes them from the authoritative tables inside the same
// transaction.
type SharedMemoryGroup struct {
	ID           string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	HostMemoryID string `gorm:"uniqueIndex;not null;type:varchar(64)" json:"host_memory_id"`
	OwnerID      string `gorm:"index;not null;type:varchar(64)" json:"owner_id"`

	Title       string     `gorm:"not null;type:varchar(255)" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Location    string     `gorm:"type:varchar(255)" json:"location"`
	EventName   string     `gorm:"type:varchar(255)" json:"event_name"`
	EventDate   *time.Time `json:"event_date,omitempty"`

	Status                string `gorm:"not null;default:active;type:varchar(16)" json:"status"`
	AllowNewContributions bool   `gorm:"not null;default:true" json:"allow_new_contributions"`
	Privacy               string `gorm:"not null;default:collaborators_only;type:varchar(32)" json:"privacy"`

	ContributorCount int `gorm:"not null;default:1" json:"contributor_count"`
	EntryCount       int `gorm:"not null;default:1" json:"entry_count"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (SharedMemoryGroup) TableName() string {
	return "shared_memory_groups"
}

// GroupInvitation records one invitation per (group, user) pair. The unique
// index backs the O(1) duplicate-invitation check.
type GroupInvitation struct {
	ID      string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	GroupID string `gorm:"not null;type:varchar(64);uniqueIndex:idx_group_invitee" json:"group_id"`
	UserID  string `gorm:"not null;type:varchar(64);uniqueIndex:idx_group_invitee" json:"user_id"`
	Status  string `gorm:"not null;default:pending;type:varchar(16)" json:"status"`

	InvitedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"invited_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

func (GroupInvitation) TableName() string {
	return "group_invitations"
}

// GroupContributor is one row per user with a live entry right in a group.
// The owner is seeded at group creation.
type GroupContributor struct {
	ID      string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	GroupID string `gorm:"not null;type:varchar(64);uniqueIndex:idx_group_contributor" json:"group_id"`
	UserID  string `gorm:"not null;type:varchar(64);uniqueIndex:idx_group_contributor" json:"user_id"`

	AddedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"added_at"`
}

func (GroupContributor) TableName() string {
	return "group_contributors"
}
