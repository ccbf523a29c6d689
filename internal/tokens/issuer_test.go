package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Khakverdiev/exam/internal/autherr"
	"github.com/Khakverdiev/exam/internal/models"
)

func testIssuer() *Issuer {
	return NewIssuer(
		[]byte("access-secret"),
		[]byte("email-secret"),
		"exam-shop",
		"exam-shop-client",
		10*time.Minute,
		5*time.Minute,
	)
}

func testUser() *models.User {
	return &models.User{
		ID:       "4f4a871e-8b9c-4aee-9353-ab73bc31a15e",
		Username: "alice",
		Email:    "alice@example.com",
		Role:     "appuser",
	}
}

func TestIssueAndParseAccessToken(t *testing.T) {
	issuer := testIssuer()
	user := testUser()

	token, exp, err := issuer.IssueAccessToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, time.Now().Add(10*time.Minute), exp, 5*time.Second)

	claims, err := issuer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.Subject)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "alice@example.com", claims.Email)
	require.Equal(t, "appuser", claims.Role)
}

func TestParseExpiredToken(t *testing.T) {
	issuer := testIssuer()
	issuer.AccessTTL = -time.Minute

	token, _, err := issuer.IssueAccessToken(testUser())
	require.NoError(t, err)

	_, err = issuer.Parse(token, true)
	require.ErrorIs(t, err, autherr.ErrExpiredToken)

	// Same token, lifetime ignored: identity is still readable.
	claims, err := issuer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Username)
}

func TestParseRejectsWrongKey(t *testing.T) {
	issuer := testIssuer()
	token, _, err := issuer.IssueAccessToken(testUser())
	require.NoError(t, err)

	other := testIssuer()
	other.AccessSecret = []byte("different-secret")

	_, err = other.Parse(token, true)
	require.ErrorIs(t, err, autherr.ErrInvalidToken)

	// A bad signature is invalid in both modes, expired or not.
	_, err = other.Parse(token, false)
	require.ErrorIs(t, err, autherr.ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	issuer := testIssuer()
	_, err := issuer.Parse("not-a-jwt", true)
	require.ErrorIs(t, err, autherr.ErrInvalidToken)
}

func TestNewRefreshTokenIsUnique(t *testing.T) {
	issuer := testIssuer()
	seen := make(map[string]struct{})
	for range 100 {
		token := issuer.NewRefreshToken()
		require.NotEmpty(t, token)
		_, dup := seen[token]
		require.False(t, dup)
		seen[token] = struct{}{}
	}
}

func TestEmailTokenUsesSeparateKey(t *testing.T) {
	issuer := testIssuer()

	emailToken, err := issuer.IssueEmailToken("user-1")
	require.NoError(t, err)

	claims, err := issuer.ParseEmailToken(emailToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)

	// An email token must never pass as an access token.
	_, err = issuer.Parse(emailToken, true)
	require.ErrorIs(t, err, autherr.ErrInvalidToken)

	// And an access token must never pass as an email token.
	accessToken, _, err := issuer.IssueAccessToken(testUser())
	require.NoError(t, err)
	_, err = issuer.ParseEmailToken(accessToken)
	require.ErrorIs(t, err, autherr.ErrInvalidToken)
}

func TestExpiredEmailTokenRejected(t *testing.T) {
	issuer := testIssuer()
	issuer.EmailTTL = -time.Minute

	emailToken, err := issuer.IssueEmailToken("user-1")
	require.NoError(t, err)

	_, err = issuer.ParseEmailToken(emailToken)
	require.ErrorIs(t, err, autherr.ErrExpiredToken)
}

func TestFromAuthHeader(t *testing.T) {
	token, err := FromAuthHeader("Bearer abc.def.ghi")
	require.NoError(t, err)
	require.Equal(t, "abc.def.ghi", token)

	_, err = FromAuthHeader("abc.def.ghi")
	require.ErrorIs(t, err, autherr.ErrInvalidRequest)

	_, err = FromAuthHeader("")
	require.ErrorIs(t, err, autherr.ErrInvalidRequest)

	_, err = FromAuthHeader("Bearer ")
	require.ErrorIs(t, err, autherr.ErrInvalidRequest)
}
