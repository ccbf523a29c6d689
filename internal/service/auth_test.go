package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Khakverdiev/exam/internal/autherr"
	"github.com/Khakverdiev/exam/internal/blacklist"
	"github.com/Khakverdiev/exam/internal/hash"
	"github.com/Khakverdiev/exam/internal/models"
	"github.com/Khakverdiev/exam/internal/mykafka"
	"github.com/Khakverdiev/exam/internal/repo"
	"github.com/Khakverdiev/exam/internal/tokens"
)

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One in-memory database, one connection.
	sqlDB.SetMaxOpenConns(1)
	return db
}

func newAuthService(t *testing.T) (*AuthService, *repo.GormRepo) {
	t.Helper()
	r := &repo.GormRepo{DB: initTestDB(t)}
	issuer := tokens.NewIssuer([]byte("access-secret"), []byte("email-secret"),
		"exam-shop", "exam-shop-client", 10*time.Minute, 5*time.Minute)
	return &AuthService{
		Repo:       r,
		Issuer:     issuer,
		Blacklist:  blacklist.NewRegistry(issuer, time.Minute, nil),
		Producer:   &mykafka.Producer{},
		RefreshTTL: 30 * 24 * time.Hour,
	}, r
}

func seedAlice(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	pwHash, err := hash.HashPassword("Secret1_")
	require.NoError(t, err)
	user := &models.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: pwHash,
		Role:         RoleUser,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestLogin(t *testing.T) {
	svc, r := newAuthService(t)
	seedAlice(t, r.DB)
	ctx := context.Background()

	info, err := svc.Login(ctx, "alice", "Secret1_")
	require.NoError(t, err)
	require.NotEmpty(t, info.AccessToken)
	require.NotEmpty(t, info.RefreshToken)
	require.Equal(t, "alice", info.Username)
	require.Equal(t, RoleUser, info.Role)
	require.WithinDuration(t, time.Now().Add(30*24*time.Hour), info.RefreshTokenExpireTime, 5*time.Second)

	// The refresh token landed on the principal.
	stored, err := r.FindByRefreshToken(ctx, info.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, info.UserID, stored.ID)
}

func TestLoginDoesNotLeakWhichHalfFailed(t *testing.T) {
	svc, r := newAuthService(t)
	seedAlice(t, r.DB)
	ctx := context.Background()

	_, badUser := svc.Login(ctx, "bob", "Secret1_")
	_, badPass := svc.Login(ctx, "alice", "wrong")

	require.ErrorIs(t, badUser, autherr.ErrInvalidCredentials)
	require.ErrorIs(t, badPass, autherr.ErrInvalidCredentials)
}

func TestRefreshRotationIsSingleUse(t *testing.T) {
	svc, r := newAuthService(t)
	seedAlice(t, r.DB)
	ctx := context.Background()

	info, err := svc.Login(ctx, "alice", "Secret1_")
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, info.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, info.RefreshToken, rotated.RefreshToken)

	// The pre-rotation value is dead.
	_, err = svc.Refresh(ctx, info.RefreshToken)
	require.ErrorIs(t, err, autherr.ErrInvalidToken)

	// The rotated one works.
	_, err = svc.Refresh(ctx, rotated.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRejectsExpiredStoredToken(t *testing.T) {
	svc, r := newAuthService(t)
	user := seedAlice(t, r.DB)
	ctx := context.Background()

	require.NoError(t, r.SaveRefreshToken(ctx, user.ID, "stale-token", time.Now().Add(-time.Hour)))

	_, err := svc.Refresh(ctx, "stale-token")
	require.ErrorIs(t, err, autherr.ErrInvalidToken)
}

func TestLogoutKillsBothCredentials(t *testing.T) {
	svc, r := newAuthService(t)
	seedAlice(t, r.DB)
	ctx := context.Background()

	info, err := svc.Login(ctx, "alice", "Secret1_")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, info.AccessToken))

	require.True(t, svc.Blacklist.IsRevoked(info.AccessToken))

	_, err = svc.Refresh(ctx, info.RefreshToken)
	require.ErrorIs(t, err, autherr.ErrInvalidToken)
}

func TestLogoutAcceptsExpiredAccessToken(t *testing.T) {
	svc, r := newAuthService(t)
	user := seedAlice(t, r.DB)
	ctx := context.Background()

	expiredIssuer := tokens.NewIssuer([]byte("access-secret"), []byte("email-secret"),
		"exam-shop", "exam-shop-client", 10*time.Minute, 5*time.Minute)
	expiredIssuer.AccessTTL = -time.Minute
	expired, _, err := expiredIssuer.IssueAccessToken(user)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, expired))
	require.True(t, svc.Blacklist.IsRevoked(expired))
}

func TestConcurrentRefreshLastWriteWins(t *testing.T) {
	svc, r := newAuthService(t)
	seedAlice(t, r.DB)
	ctx := context.Background()

	info, err := svc.Login(ctx, "alice", "Secret1_")
	require.NoError(t, err)

	const workers = 8
	results := make([]*AccessInfo, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if rotated, err := svc.Refresh(ctx, info.RefreshToken); err == nil {
				results[i] = rotated
			}
		}(i)
	}
	wg.Wait()

	var succeeded []*AccessInfo
	for _, res := range results {
		if res != nil {
			succeeded = append(succeeded, res)
		}
	}
	require.NotEmpty(t, succeeded)

	// Exactly one rotated token survived: the last persisted one.
	user, err := r.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, user.RefreshToken)

	var matches int
	for _, res := range succeeded {
		if res.RefreshToken == *user.RefreshToken {
			matches++
		}
	}
	require.Equal(t, 1, matches)
}
