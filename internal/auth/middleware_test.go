package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	TokenStoreInterface
	revoked map[string]bool
}

func (f *fakeStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	return f.revoked[tokenID], nil
}

func newProtectedServer(svc *JWTService, store TokenStoreInterface) *echo.Echo {
	e := echo.New()
	g := e.Group("", JWTMiddleware(svc.Secret()), RequireAccessToken(store))
	g.GET("/me", func(c echo.Context) error {
		claims, _ := ClaimsFromContext(c)
		return c.String(http.StatusOK, claims.Email)
	})
	g.GET("/admin", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, RequireRole("ROLE_ADMIN"))
	return e
}

func doGet(e *echo.Echo, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware(t *testing.T) {
	svc := NewJWTService("test-secret")
	store := &fakeStore{revoked: map[string]bool{}}
	e := newProtectedServer(svc, store)

	userToken, err := svc.GenerateAccessToken(testSubject)
	require.NoError(t, err)
	adminSubject := testSubject
	adminSubject.Roles = []string{"ROLE_USER", "ROLE_ADMIN"}
	adminToken, err := svc.GenerateAccessToken(adminSubject)
	require.NoError(t, err)
	_, refreshToken, err := svc.GenerateRefreshToken(testSubject)
	require.NoError(t, err)

	t.Run("missing token", func(t *testing.T) {
		code := doGet(e, "/me", "").Code
		assert.True(t, code == http.StatusUnauthorized || code == http.StatusBadRequest, "got %d", code)
	})

	t.Run("valid access token", func(t *testing.T) {
		rec := doGet(e, "/me", userToken)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "reader@example.com", rec.Body.String())
	})

	t.Run("refresh token is not a bearer token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, doGet(e, "/me", refreshToken).Code)
	})

	t.Run("role required", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, doGet(e, "/admin", userToken).Code)
		assert.Equal(t, http.StatusNoContent, doGet(e, "/admin", adminToken).Code)
	})

	t.Run("revoked token", func(t *testing.T) {
		claims, err := svc.ValidateToken(userToken)
		require.NoError(t, err)
		store.revoked[claims.ID] = true
		assert.Equal(t, http.StatusUnauthorized, doGet(e, "/me", userToken).Code)
	})
}

func TestTokenStore_NilCacheBehavesAsEmpty(t *testing.T) {
	store := NewTokenStore(nil)
	ctx := context.Background()

	require.NoError(t, store.StoreRefreshToken(ctx, "id", 1, "a@b.c", time.Minute))
	_, _, err := store.GetRefreshToken(ctx, "id")
	assert.Error(t, err)

	revoked, err := store.IsAccessTokenBlacklisted(ctx, "id")
	assert.NoError(t, err)
	assert.False(t, revoked)
}
