package model

import (
	"time"
)

// User 用户模型
type User struct {
	ID           string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserName     string `gorm:"column:username;uniqueIndex;not null;type:varchar(255)" json:"username"`
	Email        string `gorm:"uniqueIndex;not null;type:varchar(255)" json:"email"`
	PasswordHash string `gorm:"not null;type:varchar(255)" json:"-"`
	FullName     string `gorm:"type:varchar(255)" json:"full_name"`
	AvatarURL    string `json:"avatar_url"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// PublicProfile is the subset of User safe to embed in group views.
type PublicProfile struct {
	ID        string `json:"id"`
	UserName  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

// Follow is a directed edge in the social graph: follower -> following.
type Follow struct {
	ID          string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	FollowerID  string `gorm:"not null;type:varchar(64);uniqueIndex:idx_follower_following" json:"follower_id"`
	FollowingID string `gorm:"not null;type:varchar(64);uniqueIndex:idx_follower_following" json:"following_id"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Follow) TableName() string {
	return "follows"
}
