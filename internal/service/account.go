package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Khakverdiev/exam/internal/autherr"
	"github.com/Khakverdiev/exam/internal/hash"
	"github.com/Khakverdiev/exam/internal/logging"
	"github.com/Khakverdiev/exam/internal/mail"
	"github.com/Khakverdiev/exam/internal/models"
	"github.com/Khakverdiev/exam/internal/repo"
	"github.com/Khakverdiev/exam/internal/tokens"
)

type AccountService struct {
	Repo   repo.UserRepo
	Issuer *tokens.Issuer
	Mailer mail.Sender

	// ConfirmBaseURL is where confirmation links point, e.g.
	// "https://shop.example.com/api/account/validateconfirmation".
	ConfirmBaseURL string
}

// ResetPassword rotates the password of the principal named by the
// bearer token. The token must still be within its lifetime here;
// password changes are not allowed on an expired session.
func (s *AccountService) ResetPassword(ctx context.Context, accessToken, oldPassword, newPassword, confirmPassword string) error {
	l := logging.FromContext(ctx).With("svc", "account.reset_password")

	user, err := s.userFromToken(ctx, accessToken)
	if err != nil {
		return err
	}

	if !hash.CheckPassword(user.PasswordHash, oldPassword) {
		l.Warn("reset rejected", "reason", "old password does not match")
		return autherr.ErrInvalidCredentials
	}
	if newPassword != confirmPassword {
		return autherr.ErrPasswordMismatch
	}
	if !ValidPassword(newPassword) {
		return autherr.ErrInvalidPasswordFormat
	}

	newHash, err := hash.HashPassword(newPassword)
	if err != nil {
		l.Error("reset failed", "error", err)
		return err
	}
	if err := s.Repo.UpdatePassword(ctx, user.ID, newHash); err != nil {
		l.Error("reset failed", "error", err)
		return err
	}

	if err := s.Mailer.Send(ctx, user.Email, "Password Reset", "Your password has been reset"); err != nil {
		l.Error("reset notification failed", "error", err)
	}
	return nil
}

// ConfirmEmail issues a short-lived confirmation token for the bearer
// and mails the validation link.
func (s *AccountService) ConfirmEmail(ctx context.Context, accessToken string) error {
	l := logging.FromContext(ctx).With("svc", "account.confirm_email")

	user, err := s.userFromToken(ctx, accessToken)
	if err != nil {
		return err
	}
	if user.EmailConfirmed {
		return autherr.ErrEmailAlreadyConfirmed
	}

	confirmToken, err := s.Issuer.IssueEmailToken(user.ID)
	if err != nil {
		l.Error("confirm failed", "error", err)
		return err
	}

	link := fmt.Sprintf("%s?token=%s", s.ConfirmBaseURL, confirmToken)
	body := fmt.Sprintf("Please confirm your account by <a href=%q>clicking here</a>.", link)
	if err := s.Mailer.Send(ctx, user.Email, "Email confirmation", body); err != nil {
		l.Error("confirmation mail failed", "error", err)
		return err
	}
	return nil
}

// ValidateConfirmation consumes an emailed confirmation token and
// marks the principal's email confirmed.
func (s *AccountService) ValidateConfirmation(ctx context.Context, emailToken string) error {
	l := logging.FromContext(ctx).With("svc", "account.validate_confirmation")

	claims, err := s.Issuer.ParseEmailToken(emailToken)
	if err != nil {
		l.Warn("validation rejected", "error", err)
		return err
	}

	user, err := s.Repo.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, autherr.ErrUserNotFound) {
			return autherr.ErrUserNotFound
		}
		l.Error("validation failed", "error", err)
		return err
	}
	if user.EmailConfirmed {
		return autherr.ErrEmailAlreadyConfirmed
	}

	if err := s.Repo.MarkEmailConfirmed(ctx, user.ID); err != nil {
		l.Error("validation failed", "error", err)
		return err
	}
	return nil
}

func (s *AccountService) userFromToken(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.Issuer.Parse(accessToken, true)
	if err != nil {
		return nil, err
	}
	return s.Repo.FindByID(ctx, claims.Subject)
}
