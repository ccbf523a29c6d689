package tokens

import (
	"strings"

	"github.com/Khakverdiev/exam/internal/autherr"
)

const bearerPrefix = "Bearer "

// FromAuthHeader extracts the raw token from an "Authorization: Bearer"
// header value. Every call site goes through here instead of stripping
// the prefix ad hoc.
func FromAuthHeader(header string) (string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", autherr.ErrInvalidRequest
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return "", autherr.ErrInvalidRequest
	}
	return token, nil
}
