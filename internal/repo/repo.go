package repo

import (
	"context"
	"time"

	"github.com/Khakverdiev/exam/internal/models"
)

// UserRepo is the credential store boundary. The relational store owns
// the principal rows; this core only reads them and rotates refresh
// token state. Rotation races resolve last-write-wins at the store.
type UserRepo interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByRefreshToken(ctx context.Context, token string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	SaveRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	ClearRefreshToken(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	MarkEmailConfirmed(ctx context.Context, userID string) error
	UpdateRole(ctx context.Context, userID, role string) error
}
