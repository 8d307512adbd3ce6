package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/zfogg/inkwell/internal/models"
	"gorm.io/gorm"
)

// UserRepository stores the accounts that author content and cast votes
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// IDsByEmailDomain lists users whose email ends in domain, e.g. "@example.com"
	IDsByEmailDomain(ctx context.Context, domain string) ([]string, error)
	// DeleteUsers hard deletes the given users and returns how many were removed
	DeleteUsers(ctx context.Context, ids []string) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil || user.Username == "" || user.Email == "" {
		return ErrInvalidInput
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return r.first(ctx, "id = ?", userID)
}

// GetUserByUsername matches case-insensitively
func (r *userRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "LOWER(username) = LOWER(?)", username)
}

func (r *userRepository) IDsByEmailDomain(ctx context.Context, domain string) ([]string, error) {
	if !strings.HasPrefix(domain, "@") || len(domain) < 2 {
		return nil, ErrInvalidInput
	}
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email LIKE ?", "%"+strings.ToLower(domain)).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *userRepository) DeleteUsers(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Unscoped().Where("id IN ?", ids).Delete(&models.User{})
	return res.RowsAffected, res.Error
}

func (r *userRepository) first(ctx context.Context, query string, arg string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
