package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"moodboard/internal/config"
	"moodboard/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// newTestServer builds a server over in-memory storage and miniredis with
// routes mounted on a bare fiber app.
func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		JWTSecret:     "test-secret",
		Env:           "test",
		StorageDriver: config.DriverMemory,
	}

	s := NewServerWithDeps(cfg, storage.NewMemory(), rdb)
	t.Cleanup(func() {
		s.sessMu.Lock()
		for _, sess := range s.sessions {
			sess.store.Close()
		}
		s.sessions = map[string]*session{}
		s.sessMu.Unlock()
	})

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app
}

// doJSON performs a request with an optional bearer token and JSON body and
// decodes the JSON response.
func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	decoded := map[string]any{}
	if len(raw) > 0 {
		// Some error paths return plain text; tolerate them.
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp.StatusCode, decoded
}

// signUpUser registers an account through the API and returns its token and
// user id.
func signUpUser(t *testing.T, app *fiber.App, username, email string) (token, userID string) {
	t.Helper()
	status, body := doJSON(t, app, http.MethodPost, "/api/auth/signup", "", fiber.Map{
		"username": username,
		"email":    email,
		"password": "Password1",
	})
	require.Equal(t, http.StatusCreated, status, "signup response: %v", body)

	token, _ = body["token"].(string)
	require.NotEmpty(t, token)

	user, _ := body["user"].(map[string]any)
	require.NotNil(t, user)
	userID, _ = user["id"].(string)
	require.NotEmpty(t, userID)
	return token, userID
}
