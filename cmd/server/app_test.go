package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kenlau666/tg-bulk-invite-next/internal/config"
	"github.com/kenlau666/tg-bulk-invite-next/internal/domain"
	"github.com/kenlau666/tg-bulk-invite-next/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const worldYAML = `
login_code: "4242"
users:
  - {id: 1, first_name: Ann, status: online}
  - {id: 2, first_name: Bob, status: online}
  - {id: 3, first_name: Cy, status: online}
  - {id: 4, first_name: Dee, status: online, phone: "+15550104"}
groups:
  - {ref: "@target", title: Target, members: [1, 2]}
  - {ref: "@source", title: Source, members: [1, 3, 4]}
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns a configuration that invites without pauses and uses a
// memory platform seeded from worldYAML.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	seed := filepath.Join(t.TempDir(), "world.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(worldYAML), 0o600))

	return &config.Config{
		Server: config.ServerConfig{
			Port:                   0,
			LogLevel:               "debug",
			ShutdownTimeoutSeconds: 5,
			AllowedOrigins:         []string{"http://localhost"},
		},
		Auth: config.AuthConfig{
			SessionTokenSecret:   "test-secret-that-is-long-enough-for-testing",
			TokenLifetimeMinutes: 60,
		},
		Session: config.SessionConfig{MaxSessions: 10, QueueSize: 4},
		Scan:    config.ScanConfig{DefaultMaxMessages: 100, RecencyWindowDays: 7},
		Invite:  config.InviteConfig{BatchSize: 5, MaxAttempts: 3},
		Client:  config.ClientConfig{Driver: "memory", Burst: 1, SeedFile: seed},
	}
}

func TestNewApplication_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "unsupported driver", mutate: func(c *config.Config) { c.Client.Driver = "carrier-pigeon" }},
		{name: "missing seed file", mutate: func(c *config.Config) { c.Client.SeedFile = filepath.Join(t.TempDir(), "none.yaml") }},
		{name: "short token secret", mutate: func(c *config.Config) { c.Auth.SessionTokenSecret = "short" }},
		{name: "inverted default delay", mutate: func(c *config.Config) { c.Invite.DefaultDelayMin = 5 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig(t)
			tc.mutate(cfg)
			app, err := newApplication(cfg, testLogger())
			assert.Error(t, err)
			assert.Nil(t, app)
		})
	}

	_, err := newApplication(nil, testLogger())
	assert.Error(t, err)
	_, err = newApplication(testConfig(t), nil)
	assert.Error(t, err)
}

func TestServiceConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Invite = config.InviteConfig{
		BatchSize:              3,
		BatchPauseSeconds:      7,
		MaxAttempts:            4,
		RetryBackoffSeconds:    30,
		FailureCooldownSeconds: 60,
		DefaultDelayMin:        10,
		DefaultDelayMax:        20,
	}
	cfg.Client.RequestsPerSecond = 2.5
	cfg.Client.Burst = 3

	got := serviceConfig(cfg)
	assert.Equal(t, 3, got.Job.BatchSize)
	assert.Equal(t, 7*time.Second, got.Job.BatchPause)
	assert.Equal(t, 4, got.Job.Retry.MaxAttempts)
	assert.Equal(t, 30*time.Second, got.Job.Retry.Backoff)
	assert.Equal(t, time.Minute, got.Job.Retry.Cooldown)
	assert.Equal(t, domain.DelayRange{Min: 10, Max: 20}, got.DefaultDelay)
	assert.Equal(t, 2.5, got.RequestsPerSecond)
	assert.Equal(t, 3, got.Burst)
}

type envelope struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	SessionID    string `json:"sessionId"`
	Status       string `json:"status"`
	TraceID      string `json:"traceId"`
	Participants []struct {
		ID    *int64 `json:"id"`
		Phone string `json:"phone"`
	} `json:"participants"`
	Job *struct {
		ID       string          `json:"id"`
		State    string          `json:"state"`
		Progress events.Progress `json:"progress"`
	} `json:"job"`
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body any) (int, envelope) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

// TestBulkInviteFlow drives sign-in, scan, background invite and progress
// through the HTTP surface.
func TestBulkInviteFlow(t *testing.T) {
	t.Parallel()

	app, err := newApplication(testConfig(t), testLogger())
	require.NoError(t, err)
	srv := httptest.NewServer(app.setupRouter())
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		app.cleanup(ctx)
	})

	status, env := postJSON(t, srv, "/api/connect", map[string]any{
		"apiId": 12345, "apiHash": "0123abcd", "phoneNumber": "+15550100",
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, "code_required", env.Status)
	require.NotEmpty(t, env.SessionID)
	assert.NotEmpty(t, env.TraceID)
	pending := env.SessionID

	status, env = postJSON(t, srv, "/api/connect", map[string]any{"sessionId": pending, "code": "0000"})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid code", env.Message)
	assert.False(t, env.Success)

	status, env = postJSON(t, srv, "/api/connect", map[string]any{"sessionId": pending, "code": "4242"})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, "authorized", env.Status)
	token := env.SessionID

	status, env = postJSON(t, srv, "/api/stop", map[string]any{"sessionId": token})
	require.Equal(t, http.StatusOK, status)
	assert.False(t, env.Success)
	assert.Equal(t, "No active process found", env.Message)

	status, env = postJSON(t, srv, "/api/getParticipants", map[string]any{
		"sessionId":          token,
		"targetGroup":        "@target",
		"sourceGroups":       []string{"@source"},
		"previouslyInvited":  []map[string]any{{"id": 3, "groupId": "@target"}},
		"onlyRecentlyActive": false,
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, "Found 1 eligible participants", env.Message)
	require.Len(t, env.Participants, 1)
	assert.Equal(t, int64(4), *env.Participants[0].ID)

	// Subscribe before the job starts so no event is missed.
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/jobs/" + token + "/progress"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"http://localhost:5173"}})
	require.NoError(t, err)
	defer conn.Close()

	status, env = postJSON(t, srv, "/api/startBackgroundInvite", map[string]any{
		"sessionId":  token,
		"delayRange": map[string]int{"min": 0, "max": 0},
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, "Background invite process started for 1 participants", env.Message)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	var last events.JobEvent
	for !last.Terminal() {
		require.NoError(t, conn.ReadJSON(&last))
	}
	assert.Equal(t, "completed", last.State)
	assert.Equal(t, 1, last.Progress.Invited)

	status, env = postJSON(t, srv, "/api/jobStatus", map[string]any{"sessionId": token})
	require.Equal(t, http.StatusOK, status, env.Message)
	require.NotNil(t, env.Job)
	assert.Equal(t, "completed", env.Job.State)
	assert.Equal(t, "1 of 1 participants processed", env.Message)

	// Job completion tears the session down.
	require.Eventually(t, func() bool { return app.registry.Len() == 0 }, 5*time.Second, 10*time.Millisecond)
	status, env = postJSON(t, srv, "/api/getParticipants", map[string]any{
		"sessionId": token, "targetGroup": "@target", "sourceGroups": []string{"@source"},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "No active session found", env.Message)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	app, err := newApplication(testConfig(t), testLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	app.setupRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))
}

func TestServe_GracefulShutdown(t *testing.T) {
	t.Parallel()

	app, err := newApplication(testConfig(t), testLogger())
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.serve(ctx, listener, app.setupRouter()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Equal(t, 0, app.registry.Len())
}

func TestReaperInterval(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 15*time.Minute, reaperInterval(time.Hour))
	assert.Equal(t, time.Minute, reaperInterval(2*time.Minute))
}
