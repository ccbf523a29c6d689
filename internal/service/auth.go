package service

import (
	"context"
	"errors"
	"time"

	"github.com/Khakverdiev/exam/internal/autherr"
	"github.com/Khakverdiev/exam/internal/blacklist"
	"github.com/Khakverdiev/exam/internal/hash"
	"github.com/Khakverdiev/exam/internal/logging"
	"github.com/Khakverdiev/exam/internal/models"
	"github.com/Khakverdiev/exam/internal/mykafka"
	"github.com/Khakverdiev/exam/internal/repo"
	"github.com/Khakverdiev/exam/internal/tokens"
)

const (
	RoleUser  = "appuser"
	RoleAdmin = "appadmin"
)

type AuthService struct {
	Repo      repo.UserRepo
	Issuer    *tokens.Issuer
	Blacklist *blacklist.Registry
	Producer  *mykafka.Producer

	// RefreshTTL is how long a freshly issued refresh token lives.
	// Login, refresh and middleware rotation all use the same value.
	RefreshTTL time.Duration
}

// AccessInfo is what a successful login or refresh hands back: the new
// token pair plus the identity fields the client mirrors into cookies.
type AccessInfo struct {
	UserID                 string    `json:"userId"`
	Username               string    `json:"username"`
	Role                   string    `json:"role"`
	AccessToken            string    `json:"accessToken"`
	AccessTokenExpireTime  time.Time `json:"accessTokenExpireTime"`
	RefreshToken           string    `json:"refreshToken"`
	RefreshTokenExpireTime time.Time `json:"refreshTokenExpireTime"`
}

func (s *AuthService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return 30 * 24 * time.Hour
}

// Login verifies credentials and issues a fresh token pair. A missing
// user and a wrong password both come back as ErrInvalidCredentials so
// the response cannot be used to enumerate usernames.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AccessInfo, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, autherr.ErrUserNotFound) {
			l.Warn("login failed", "reason", "user not found")
			return nil, autherr.ErrInvalidCredentials
		}
		l.Error("login failed", "error", err)
		return nil, err
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login failed", "reason", "bad password")
		return nil, autherr.ErrInvalidCredentials
	}

	info, err := s.issuePair(ctx, user)
	if err != nil {
		l.Error("login failed", "error", err)
		return nil, err
	}

	s.publish(ctx, "user_logged_in", user)
	return info, nil
}

// Refresh exchanges a stored refresh token for a new pair. The old
// value stops working the moment the rotation is persisted; a second
// call with the stale token fails with ErrInvalidToken.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AccessInfo, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if refreshToken == "" {
		return nil, autherr.ErrInvalidRequest
	}

	user, err := s.Repo.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, autherr.ErrUserNotFound) {
			l.Warn("refresh failed", "reason", "no matching user")
			return nil, autherr.ErrInvalidToken
		}
		l.Error("refresh failed", "error", err)
		return nil, err
	}

	if time.Now().After(user.RefreshTokenExpiresAt) {
		l.Warn("refresh failed", "reason", "refresh token expired")
		return nil, autherr.ErrInvalidToken
	}

	info, err := s.issuePair(ctx, user)
	if err != nil {
		l.Error("refresh failed", "error", err)
		return nil, err
	}
	return info, nil
}

// Logout invalidates both halves of the session: the stored refresh
// token is cleared with its expiry backdated, and the still
// signature-valid access token goes onto the blacklist for the rest of
// its natural lifetime. The token is allowed to be expired here.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	claims, err := s.Issuer.Parse(accessToken, false)
	if err != nil {
		l.Warn("logout failed", "reason", "undecodable access token", "error", err)
		return autherr.ErrInvalidToken
	}

	if err := s.Repo.ClearRefreshToken(ctx, claims.Subject); err != nil && !errors.Is(err, autherr.ErrUserNotFound) {
		l.Error("logout failed", "error", err)
		return err
	}

	s.Blacklist.Revoke(accessToken)

	s.publish(ctx, "user_logged_out", &models.User{ID: claims.Subject, Username: claims.Username})
	return nil
}

// Register creates a principal with a hashed password, the default
// role and an unconfirmed email. The profile record belongs to a
// collaborator; it only hears about the signup through the event bus.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register failed", "error", err)
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
		Role:         RoleUser,
	}

	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, autherr.ErrUserExists) {
			l.Warn("register failed", "reason", "user already exists")
			return nil, autherr.ErrUserExists
		}
		l.Error("register failed", "error", err)
		return nil, err
	}

	s.publish(ctx, "user_registered", user)
	return user, nil
}

func (s *AuthService) issuePair(ctx context.Context, user *models.User) (*AccessInfo, error) {
	accessToken, accessExp, err := s.Issuer.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken := s.Issuer.NewRefreshToken()
	refreshExp := time.Now().Add(s.refreshTTL())

	if err := s.Repo.SaveRefreshToken(ctx, user.ID, refreshToken, refreshExp); err != nil {
		return nil, err
	}

	return &AccessInfo{
		UserID:                 user.ID,
		Username:               user.Username,
		Role:                   user.Role,
		AccessToken:            accessToken,
		AccessTokenExpireTime:  accessExp,
		RefreshToken:           refreshToken,
		RefreshTokenExpireTime: refreshExp,
	}, nil
}

func (s *AuthService) publish(ctx context.Context, eventType string, user *models.User) {
	event := map[string]interface{}{
		"type":     eventType,
		"userId":   user.ID,
		"username": user.Username,
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.Producer.PublishEvent(pubCtx, "user_events", user.ID, event); err != nil {
		logging.FromContext(ctx).Error("kafka publish error", "event", eventType, "error", err)
	}
}
