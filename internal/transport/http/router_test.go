package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Khakverdiev/exam/internal/blacklist"
	"github.com/Khakverdiev/exam/internal/handlers"
	"github.com/Khakverdiev/exam/internal/logging"
	"github.com/Khakverdiev/exam/internal/mail"
	"github.com/Khakverdiev/exam/internal/middleware"
	"github.com/Khakverdiev/exam/internal/models"
	"github.com/Khakverdiev/exam/internal/mykafka"
	"github.com/Khakverdiev/exam/internal/repo"
	"github.com/Khakverdiev/exam/internal/service"
	"github.com/Khakverdiev/exam/internal/tokens"
)

type routerFixture struct {
	e        *echo.Echo
	repo     *repo.GormRepo
	issuer   *tokens.Issuer
	registry *blacklist.Registry
}

func newRouter(t *testing.T) *routerFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	logger := logging.New("error")
	r := &repo.GormRepo{DB: db}
	issuer := tokens.NewIssuer([]byte("access-secret"), []byte("email-secret"),
		"exam-shop", "exam-shop-client", 10*time.Minute, 5*time.Minute)
	registry := blacklist.NewRegistry(issuer, 10*time.Minute, logger)
	prod := &mykafka.Producer{}

	authSvc := &service.AuthService{
		Repo:       r,
		Issuer:     issuer,
		Blacklist:  registry,
		Producer:   prod,
		RefreshTTL: 30 * 24 * time.Hour,
	}
	accountSvc := &service.AccountService{
		Repo:           r,
		Issuer:         issuer,
		Mailer:         &mail.LogSender{Logger: logger},
		ConfirmBaseURL: "https://localhost/api/account/validateconfirmation",
	}

	e := echo.New()
	Register(e, &Deps{
		AuthHandler:     &handlers.AuthHandler{Auth: authSvc},
		AccountHandler:  &handlers.AccountHandler{Account: accountSvc},
		AdminHandler:    &handlers.AdminHandler{Admin: &service.AdminService{Repo: r, Producer: prod}},
		RevocationCheck: &middleware.RevocationCheck{Blacklist: registry},
		SessionRefresh:  middleware.NewSessionRefresh(r, issuer, 30*24*time.Hour),
	})
	return &routerFixture{e: e, repo: r, issuer: issuer, registry: registry}
}

func setCookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

// A revoked access token must be rejected by the outer group before the
// session refresh ever runs, no matter how valid the refresh token is.
func TestRevokedTokenRejectedBeforeRenewal(t *testing.T) {
	f := newRouter(t)

	user := &models.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "irrelevant",
		Role:         service.RoleUser,
	}
	require.NoError(t, f.repo.DB.Create(user).Error)

	f.issuer.AccessTTL = -time.Minute
	expired, _, err := f.issuer.IssueAccessToken(user)
	require.NoError(t, err)
	f.issuer.AccessTTL = 10 * time.Minute

	// Refresh token inside the rotation window, so renewal would also
	// rotate it if it were allowed to run.
	refreshExp := time.Now().Add(3 * 24 * time.Hour)
	require.NoError(t, f.repo.SaveRefreshToken(t.Context(), user.ID, "live-refresh", refreshExp))

	f.registry.Revoke(expired)

	req := httptest.NewRequest(http.MethodPost, "/api/account/confirmemail", nil)
	req.AddCookie(&http.Cookie{Name: handlers.CookieAccessToken, Value: expired})
	req.AddCookie(&http.Cookie{Name: handlers.CookieRefreshToken, Value: "live-refresh"})
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)

	// No renewal artifacts: no token cookies were set and the stored
	// refresh token is untouched.
	require.Nil(t, setCookieByName(rec, handlers.CookieAccessToken))
	require.Nil(t, setCookieByName(rec, handlers.CookieRefreshToken))
	stored, err := f.repo.FindByRefreshToken(t.Context(), "live-refresh")
	require.NoError(t, err)
	require.Equal(t, user.ID, stored.ID)
}

func TestUnrevokedExpiredTokenStillRenews(t *testing.T) {
	f := newRouter(t)

	user := &models.User{
		Username:     "bob",
		Email:        "bob@example.com",
		PasswordHash: "irrelevant",
		Role:         service.RoleUser,
	}
	require.NoError(t, f.repo.DB.Create(user).Error)

	f.issuer.AccessTTL = -time.Minute
	expired, _, err := f.issuer.IssueAccessToken(user)
	require.NoError(t, err)
	f.issuer.AccessTTL = 10 * time.Minute

	refreshExp := time.Now().Add(20 * 24 * time.Hour)
	require.NoError(t, f.repo.SaveRefreshToken(t.Context(), user.ID, "bob-refresh", refreshExp))

	req := httptest.NewRequest(http.MethodPost, "/api/account/confirmemail", nil)
	req.AddCookie(&http.Cookie{Name: handlers.CookieAccessToken, Value: expired})
	req.AddCookie(&http.Cookie{Name: handlers.CookieRefreshToken, Value: "bob-refresh"})
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	// The chain renewed the session; the handler then rejects the
	// request for its missing bearer header, which proves it ran.
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, setCookieByName(rec, handlers.CookieAccessToken))
}
