package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/keepsake-app/keepsake/internal/model"
)

// IUserRepository defines the interface for user data operations. It also
// serves as the user directory for display enrichment on group views.
type IUserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	PublicProfiles(ctx context.Context, ids []string) (map[string]model.PublicProfile, error)
}

// UserRepository implements IUserRepository interface
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new IUserRepository instance
func NewUserRepository(db *gorm.DB) IUserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user in the database
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID finds a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername finds a user by username
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// PublicProfiles loads the public profile fields for the given user ids.
// Unknown ids are simply absent from the result.
func (r *UserRepository) PublicProfiles(ctx context.Context, ids []string) (map[string]model.PublicProfile, error) {
	if len(ids) == 0 {
		return map[string]model.PublicProfile{}, nil
	}
	var users []*model.User
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	if err != nil {
		return nil, err
	}
	profiles := make(map[string]model.PublicProfile, len(users))
	for _, u := range users {
		profiles[u.ID] = model.PublicProfile{
			ID:        u.ID,
			UserName:  u.UserName,
			FullName:  u.FullName,
			AvatarURL: u.AvatarURL,
		}
	}
	return profiles, nil
}
