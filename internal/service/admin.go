package service

import (
	"context"
	"errors"

	"github.com/Khakverdiev/exam/internal/autherr"
	"github.com/Khakverdiev/exam/internal/logging"
	"github.com/Khakverdiev/exam/internal/mykafka"
	"github.com/Khakverdiev/exam/internal/repo"
)

type AdminService struct {
	Repo     repo.UserRepo
	Producer *mykafka.Producer
}

// UpdateRole moves a user between the two platform roles. Whether the
// caller is allowed to do this is decided upstream from the role claim
// of an already validated token.
func (s *AdminService) UpdateRole(ctx context.Context, userID, role string) error {
	l := logging.FromContext(ctx).With("svc", "admin.update_role", "user_id", userID)

	if role != RoleUser && role != RoleAdmin {
		return autherr.ErrInvalidRequest
	}

	if err := s.Repo.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, autherr.ErrUserNotFound) {
			return autherr.ErrUserNotFound
		}
		l.Error("role update failed", "error", err)
		return err
	}

	if s.Producer != nil {
		event := map[string]interface{}{
			"type":   "role_updated",
			"userId": userID,
			"role":   role,
		}
		if err := s.Producer.PublishEvent(ctx, "user_events", userID, event); err != nil {
			l.Error("kafka publish error", "error", err)
		}
	}

	return nil
}
