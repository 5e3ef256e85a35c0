package shared

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func protectedHandler(t *testing.T) http.Handler {
	t.Helper()
	return RequireRole(RoleAdmin, RoleOwner)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func requestWithSession(sess *Session) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/customers", nil)
	if sess != nil {
		req = req.WithContext(ContextWithSession(req.Context(), sess))
	}
	return req
}

func TestRequireRoleAnonymous(t *testing.T) {
	rec := httptest.NewRecorder()
	protectedHandler(t).ServeHTTP(rec, requestWithSession(nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleWrongRole(t *testing.T) {
	sess := &Session{}
	sess.SetUser(5, "viewer")
	rec := httptest.NewRecorder()
	protectedHandler(t).ServeHTTP(rec, requestWithSession(sess))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleAllows(t *testing.T) {
	for _, role := range []string{RoleAdmin, RoleOwner} {
		sess := &Session{}
		sess.SetUser(5, role)
		rec := httptest.NewRecorder()
		protectedHandler(t).ServeHTTP(rec, requestWithSession(sess))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
