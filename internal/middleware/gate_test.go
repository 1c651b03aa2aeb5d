package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/task-management-api/internal/auth"
	"github.com/iliyamo/task-management-api/internal/model"
)

// capture runs a request through the gate plus optional guards and records
// what the innermost handler saw.
func capture(t *testing.T, signer *auth.Signer, header string, guards ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, Identity, bool, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var (
		got     Identity
		authed  bool
		reached bool
	)
	h := func(c echo.Context) error {
		got, authed = IdentityFrom(c)
		reached = true
		return c.NoContent(http.StatusOK)
	}
	for i := len(guards) - 1; i >= 0; i-- {
		h = guards[i](h)
	}
	require.NoError(t, Gate(signer)(h)(c))
	return rec, got, authed, reached
}

func TestGate_NoHeaderIsAnonymous(t *testing.T) {
	t.Parallel()
	signer := auth.NewSigner("gate-secret")

	rec, _, authed, reached := capture(t, signer, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached, "anonymous request must still reach the handler")
	assert.False(t, authed)
}

func TestGate_InvalidTokenIsAnonymous(t *testing.T) {
	t.Parallel()
	signer := auth.NewSigner("gate-secret")

	for _, header := range []string{
		"Bearer not.a.token",
		"Basic dXNlcjpwYXNz",
		"Bearer",
	} {
		rec, _, authed, reached := capture(t, signer, header)
		assert.Equal(t, http.StatusOK, rec.Code, header)
		assert.True(t, reached, header)
		assert.False(t, authed, header)
	}
}

func TestGate_ValidTokenAttachesIdentity(t *testing.T) {
	t.Parallel()
	signer := auth.NewSigner("gate-secret")
	token, err := signer.SignAccess("alice", []model.Authority{model.AuthorityUser, model.AuthorityAdmin}, time.Now().UTC(), time.Minute)
	require.NoError(t, err)

	rec, id, authed, reached := capture(t, signer, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, reached)
	require.True(t, authed)
	assert.Equal(t, "alice", id.Subject)
	assert.Equal(t, []model.Authority{model.AuthorityUser, model.AuthorityAdmin}, id.Authorities)
}

func TestGate_WrongSecretIsAnonymous(t *testing.T) {
	t.Parallel()
	signer := auth.NewSigner("gate-secret")
	other := auth.NewSigner("another-secret")
	token, err := other.SignAccess("alice", []model.Authority{model.AuthorityUser}, time.Now().UTC(), time.Minute)
	require.NoError(t, err)

	rec, _, _, reached := capture(t, signer, "Bearer "+token,
		RequireAuthenticated())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestRequireAuthenticated(t *testing.T) {
	t.Parallel()
	signer := auth.NewSigner("gate-secret")
	token, err := signer.SignAccess("bob", []model.Authority{model.AuthorityUser}, time.Now().UTC(), time.Minute)
	require.NoError(t, err)

	rec, _, _, reached := capture(t, signer, "", RequireAuthenticated())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)

	rec, _, _, reached = capture(t, signer, "Bearer "+token, RequireAuthenticated())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestRequireAuthority(t *testing.T) {
	t.Parallel()
	signer := auth.NewSigner("gate-secret")
	user, err := signer.SignAccess("bob", []model.Authority{model.AuthorityUser}, time.Now().UTC(), time.Minute)
	require.NoError(t, err)
	admin, err := signer.SignAccess("root", []model.Authority{model.AuthorityUser, model.AuthorityAdmin}, time.Now().UTC(), time.Minute)
	require.NoError(t, err)

	// Anonymous: 401.
	rec, _, _, reached := capture(t, signer, "", RequireAuthority(model.AuthorityAdmin))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)

	// Authenticated without the tag: 403.
	rec, _, _, reached = capture(t, signer, "Bearer "+user, RequireAuthority(model.AuthorityAdmin))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)

	// Authenticated with the tag: through.
	rec, id, _, reached := capture(t, signer, "Bearer "+admin, RequireAuthority(model.AuthorityAdmin))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, reached)
	assert.Equal(t, "root", id.Subject)
}
