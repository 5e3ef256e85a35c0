package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ternaklink/ternaklink/internal/shared"
)

type memAuthRepo struct {
	users map[string]*User
}

func (r *memAuthRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func newTestHandler(t *testing.T) (*Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "ternaklink_session", time.Hour, false)

	hash, err := bcrypt.GenerateFromPassword([]byte("rahasia-kuat"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &memAuthRepo{users: map[string]*User{
		"admin@ternaklink.id": {
			ID: 1, Email: "admin@ternaklink.id", Name: "Admin",
			Role: shared.RoleAdmin, PasswordHash: string(hash), IsActive: true,
		},
	}}
	// Built inline instead of via app.NewLogger to avoid an auth<->app import
	// cycle in tests; matches what app.NewLogger(nil) produces.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true})).With(slog.String("service", "ternaklink"))
	return NewHandler(logger, NewService(repo), sessions), sessions
}

func doLogin(t *testing.T, h *Handler, sessions *shared.SessionManager, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	sess, err := sessions.Load(req.Context(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	rec := httptest.NewRecorder()
	h.login(rec, req)
	require.NoError(t, sessions.Commit(req.Context(), rec, sess))
	return rec
}

func TestLoginSuccess(t *testing.T) {
	h, sessions := newTestHandler(t)
	rec := doLogin(t, h, sessions, map[string]string{
		"email":    "admin@ternaklink.id",
		"password": "rahasia-kuat",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(1), resp.UserID)
	require.Equal(t, shared.RoleAdmin, resp.Role)
	require.NotEmpty(t, rec.Result().Cookies())
}

func TestLoginWrongPassword(t *testing.T) {
	h, sessions := newTestHandler(t)
	rec := doLogin(t, h, sessions, map[string]string{
		"email":    "admin@ternaklink.id",
		"password": "salah-semua",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginUnknownUser(t *testing.T) {
	h, sessions := newTestHandler(t)
	rec := doLogin(t, h, sessions, map[string]string{
		"email":    "nobody@ternaklink.id",
		"password": "rahasia-kuat",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginValidation(t *testing.T) {
	h, sessions := newTestHandler(t)
	rec := doLogin(t, h, sessions, map[string]string{"email": "not-an-email", "password": "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
