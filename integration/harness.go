package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skillbridge/skillbridge/server/app"
	"github.com/skillbridge/skillbridge/server/cache"
	"github.com/skillbridge/skillbridge/server/config"
	"github.com/skillbridge/skillbridge/server/grader"
	"github.com/skillbridge/skillbridge/server/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const AdminKey = "integration-admin-key"

// TestServer is a real HTTP server over the same wiring main.go uses.
type TestServer struct {
	App    *app.App
	DB     *gorm.DB
	Cache  cache.Cache
	PubSub cache.PubSub
	Config *config.Config
	Server *httptest.Server
	URL    string
}

// Option adjusts the config or infrastructure before the app is built.
type Option func(cfg *config.Config, in *app.Infra)

// WithGrader replaces the configured grader.
func WithGrader(g grader.Grader) Option {
	return func(_ *config.Config, in *app.Infra) { in.Grader = g }
}

// WithConfig edits the config before validation.
func WithConfig(fn func(cfg *config.Config)) Option {
	return func(cfg *config.Config, _ *app.Infra) { fn(cfg) }
}

// NewTestServer starts a fully wired server on SQLite and the in-process
// cache.
func NewTestServer(t *testing.T, opts ...Option) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	c, pubsub := testutil.SetupTestCache(t)

	cfg := config.Default()
	cfg.Server.AdminKey = AdminKey
	cfg.Security.JWTSecret = "integration-test-secret"
	cfg.Security.RateLimitRPS = 1000
	cfg.Security.RateLimitBurst = 2000
	cfg.Leaderboard.RefreshInterval = time.Hour

	in := app.Infra{DB: db, Cache: c, PubSub: pubsub, Logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg, &in)
	}
	require.NoError(t, cfg.Validate())

	a, err := app.New(cfg, in)
	require.NoError(t, err)

	server := httptest.NewServer(a.Router)
	ts := &TestServer{
		App:    a,
		DB:     db,
		Cache:  c,
		PubSub: pubsub,
		Config: cfg,
		Server: server,
		URL:    server.URL,
	}
	t.Cleanup(ts.Close)
	return ts
}

func (ts *TestServer) Close() {
	ts.App.Events.Close()
	ts.Server.Close()
	ts.App.Close(context.Background())
}

// --- HTTP helpers ---

func (ts *TestServer) do(t *testing.T, method, path string, body interface{}, header http.Header) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func bearer(token string) http.Header {
	if token == "" {
		return nil
	}
	return http.Header{"Authorization": {"Bearer " + token}}
}

// PostJSON sends a POST request with a JSON body and optional Bearer token.
func (ts *TestServer) PostJSON(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	return ts.do(t, http.MethodPost, path, body, bearer(token))
}

// Get sends a GET request with optional Bearer token.
func (ts *TestServer) Get(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	return ts.do(t, http.MethodGet, path, nil, bearer(token))
}

// Put sends a PUT request with a JSON body and optional Bearer token.
func (ts *TestServer) Put(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	return ts.do(t, http.MethodPut, path, body, bearer(token))
}

// Admin sends an admin request with the test admin key.
func (ts *TestServer) Admin(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	return ts.do(t, method, path, body, http.Header{"X-Admin-Key": {AdminKey}})
}

// ReadJSON reads and decodes a JSON response body into target.
func ReadJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// RequireStatus asserts the status code and closes the body.
func RequireStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != want {
		data, _ := io.ReadAll(resp.Body)
		require.Equalf(t, want, resp.StatusCode, "body: %s", string(data))
	}
}

// --- Auth helpers ---

// Login logs in (auto-registering on first call) and returns the token and
// user id.
func (ts *TestServer) Login(t *testing.T, username, password string) (token, userID string) {
	t.Helper()
	resp := ts.PostJSON(t, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result struct {
		Token  string `json:"token"`
		UserID string `json:"userId"`
	}
	ReadJSON(t, resp, &result)
	require.NotEmpty(t, result.Token)
	return result.Token, result.UserID
}

var testCounter uint64

// UniqueID returns a short unique string suitable for usernames.
func UniqueID(prefix string) string {
	n := atomic.AddUint64(&testCounter, 1)
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixNano()%100000, n)
}

func itoa(n int64) string { return fmt.Sprintf("%d", n) }
