package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Khakverdiev/exam/internal/autherr"
	"github.com/Khakverdiev/exam/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

var _ UserRepo = (*GormRepo)(nil)

func (r *GormRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, autherr.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &user, nil
}

func (r *GormRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, autherr.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &user, nil
}

func (r *GormRepo) FindByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("refresh_token = ?", token).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, autherr.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &user, nil
}

func (r *GormRepo) CreateUser(ctx context.Context, user *models.User) error {
	tx := r.DB.WithContext(ctx).Where("username = ?", user.Username).FirstOrCreate(user)
	if tx.Error != nil {
		return fmt.Errorf("db error: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return autherr.ErrUserExists
	}
	return nil
}

func (r *GormRepo) SaveRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	return r.updateUser(ctx, userID, map[string]any{
		"refresh_token":            token,
		"refresh_token_expires_at": expiresAt,
	})
}

// ClearRefreshToken drops the stored refresh token and backdates its
// expiry, so a refresh racing with logout loses even if it read the
// old value first.
func (r *GormRepo) ClearRefreshToken(ctx context.Context, userID string) error {
	return r.updateUser(ctx, userID, map[string]any{
		"refresh_token":            nil,
		"refresh_token_expires_at": time.Now(),
	})
}

func (r *GormRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return r.updateUser(ctx, userID, map[string]any{"password_hash": passwordHash})
}

func (r *GormRepo) MarkEmailConfirmed(ctx context.Context, userID string) error {
	return r.updateUser(ctx, userID, map[string]any{"email_confirmed": true})
}

func (r *GormRepo) UpdateRole(ctx context.Context, userID, role string) error {
	return r.updateUser(ctx, userID, map[string]any{"role": role})
}

func (r *GormRepo) updateUser(ctx context.Context, userID string, values map[string]any) error {
	tx := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(values)
	if tx.Error != nil {
		return fmt.Errorf("db error: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return autherr.ErrUserNotFound
	}
	return nil
}
