package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Khakverdiev/exam/internal/autherr"
	"github.com/Khakverdiev/exam/internal/models"
)

// Issuer mints and verifies every credential the platform hands out:
// short-lived HS256 access tokens, opaque refresh tokens and
// email-confirmation tokens. Email tokens are signed with a separate
// key and issuer/audience pair so a leaked access key cannot forge
// confirmation links, and vice versa.
type Issuer struct {
	AccessSecret []byte
	EmailSecret  []byte
	IssuerName   string
	Audience     string

	AccessTTL time.Duration
	EmailTTL  time.Duration

	// now is swappable in tests.
	now func() time.Time
}

func NewIssuer(accessSecret, emailSecret []byte, issuer, audience string, accessTTL, emailTTL time.Duration) *Issuer {
	if accessTTL <= 0 {
		accessTTL = 10 * time.Minute
	}
	if emailTTL <= 0 {
		emailTTL = 5 * time.Minute
	}
	return &Issuer{
		AccessSecret: accessSecret,
		EmailSecret:  emailSecret,
		IssuerName:   issuer,
		Audience:     audience,
		AccessTTL:    accessTTL,
		EmailTTL:     emailTTL,
		now:          time.Now,
	}
}

func (i *Issuer) clock() time.Time {
	if i.now != nil {
		return i.now()
	}
	return time.Now()
}

// IssueAccessToken signs a fresh access token for the user. The token
// is never stored server-side; the revocation registry holds the raw
// string only after a logout.
func (i *Issuer) IssueAccessToken(user *models.User) (string, time.Time, error) {
	exp := i.clock().Add(i.AccessTTL)
	claims := AccessClaims{
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    i.IssuerName,
			Audience:  jwt.ClaimStrings{i.Audience},
			IssuedAt:  jwt.NewNumericDate(i.clock()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.AccessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// NewRefreshToken returns an opaque, unguessable token. No claims are
// encoded; the server-side user row is the single source of truth for
// its expiry.
func (i *Issuer) NewRefreshToken() string {
	return uuid.NewString()
}

// Parse verifies the signature and algorithm of an access token.
// With validateLifetime=false an expired token still parses, which
// logout and the blacklist sweep rely on to read identity out of
// tokens that are past their exp.
func (i *Issuer) Parse(tokenStr string, validateLifetime bool) (*AccessClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if !validateLifetime {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	var claims AccessClaims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return i.AccessSecret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, autherr.ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", autherr.ErrInvalidToken, err)
	}
	if !tkn.Valid {
		return nil, autherr.ErrInvalidToken
	}
	return &claims, nil
}

// IssueEmailToken signs a short-lived confirmation token for the user
// id. Separate key, issuer and audience from access tokens.
func (i *Issuer) IssueEmailToken(userID string) (string, error) {
	claims := EmailClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    i.IssuerName + "/email",
			Audience:  jwt.ClaimStrings{i.Audience + "/email"},
			IssuedAt:  jwt.NewNumericDate(i.clock()),
			ExpiresAt: jwt.NewNumericDate(i.clock().Add(i.EmailTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.EmailSecret)
	if err != nil {
		return "", fmt.Errorf("sign email token: %w", err)
	}
	return signed, nil
}

// ParseEmailToken verifies an email-confirmation token. Lifetime is
// always enforced here; there is no legitimate use for an expired
// confirmation link.
func (i *Issuer) ParseEmailToken(tokenStr string) (*EmailClaims, error) {
	var claims EmailClaims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return i.EmailSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.IssuerName+"/email"),
		jwt.WithAudience(i.Audience+"/email"),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, autherr.ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", autherr.ErrInvalidToken, err)
	}
	if !tkn.Valid {
		return nil, autherr.ErrInvalidToken
	}
	return &claims, nil
}
