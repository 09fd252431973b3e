package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/classroom-quiz/internal/auth/jwt"
)

func newTestChain(t *testing.T, role string) (http.Handler, *jwt.Verifier) {
	t.Helper()
	verifier := jwt.NewVerifier([]byte("secret"), "")
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		_, _ = io.WriteString(w, claims.DisplayName)
	})
	var inner http.Handler = final
	if role != "" {
		inner = RequireRole(role, final)
	}
	return Middleware(verifier, zerolog.New(io.Discard))(inner), verifier
}

func TestMiddlewareInjectsClaims(t *testing.T) {
	chain, verifier := newTestChain(t, "")
	token, err := verifier.Sign(jwt.Claims{UserID: uuid.New(), DisplayName: "ana", Role: jwt.RoleStudent}, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ana", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/?token="+token, nil)
	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareRejectsMissingOrInvalidToken(t *testing.T) {
	chain, _ := newTestChain(t, "")

	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "authentication_required")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_token")
}

func TestRequireRole(t *testing.T) {
	chain, verifier := newTestChain(t, jwt.RoleProfessor)

	student, err := verifier.Sign(jwt.Claims{UserID: uuid.New(), Role: jwt.RoleStudent}, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+student)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	prof, err := verifier.Sign(jwt.Claims{UserID: uuid.New(), DisplayName: "Dr. Rao", Role: jwt.RoleProfessor}, time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+prof)
	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dr. Rao", rec.Body.String())
}
