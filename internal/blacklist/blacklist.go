package blacklist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Khakverdiev/exam/internal/tokens"
)

// Registry is the process-local set of revoked access tokens. Tokens
// land here on logout and stay until their own embedded expiry passes,
// at which point the sweep reclaims them: a token past its exp fails
// lifetime validation anyway, so keeping it is wasted memory.
//
// State does not survive a restart. That is accepted: the longest a
// revoked token can outlive a restart is one access-token TTL.
type Registry struct {
	mu     sync.Mutex
	tokens map[string]struct{}

	issuer   *tokens.Issuer
	interval time.Duration
	logger   *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

func NewRegistry(issuer *tokens.Issuer, interval time.Duration, logger *slog.Logger) *Registry {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tokens:   make(map[string]struct{}),
		issuer:   issuer,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Revoke adds the token to the set. Idempotent.
func (r *Registry) Revoke(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = struct{}{}
}

func (r *Registry) IsRevoked(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tokens[token]
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

// Run drives the periodic sweep until the context is cancelled.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep drops every entry whose embedded expiry has passed. The member
// snapshot is copied under the lock and decoded outside it, so request
// handling is never blocked on JWT parsing.
func (r *Registry) Sweep() {
	r.mu.Lock()
	snapshot := make([]string, 0, len(r.tokens))
	for t := range r.tokens {
		snapshot = append(snapshot, t)
	}
	r.mu.Unlock()

	expired := make([]string, 0, len(snapshot))
	for _, t := range snapshot {
		claims, err := r.issuer.Parse(t, false)
		if err != nil {
			// A corrupt entry must not kill the sweep; it will be
			// retried (and logged) on the next pass.
			r.logger.Warn("blacklist sweep: undecodable entry kept", "error", err)
			continue
		}
		if claims.ExpiresAt != nil && r.now().After(claims.ExpiresAt.Time) {
			expired = append(expired, t)
		}
	}

	if len(expired) == 0 {
		return
	}

	r.mu.Lock()
	for _, t := range expired {
		delete(r.tokens, t)
	}
	r.mu.Unlock()

	r.logger.Info("blacklist sweep", "evicted", len(expired))
}
