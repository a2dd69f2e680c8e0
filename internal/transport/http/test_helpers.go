package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/voicerelay-server/internal/auth"
	"github.com/vovakirdan/voicerelay-server/internal/config"
	"github.com/vovakirdan/voicerelay-server/internal/core"
	"github.com/vovakirdan/voicerelay-server/internal/store/sqlite"
)

// testServer bundles the pieces tests need to poke at a running relay.
type testServer struct {
	ts       *httptest.Server
	registry *core.Registry
	auth     *auth.Service
}

func (s *testServer) wsURL() string {
	return strings.Replace(s.ts.URL, "http", "ws", 1) + "/ws"
}

// startTestServer spins up a full relay on an in-memory store. mutate can
// adjust the config (auth gate, OAuth endpoints) before the server starts.
func startTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()

	logger := zerolog.Nop()

	cfg := config.Default()
	cfg.StaticDir = ""
	cfg.WriteTimeout = 2 * time.Second
	cfg.Auth.Timeout = 2 * time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.JWTIssuer,
		Audience: cfg.Auth.JWTAudience,
		TTL:      cfg.Auth.SessionTTL,
	}, cfg.Auth.EntitlementURL, &logger)

	registry := core.NewRegistry(&logger)
	server := NewServer(registry, authService, cfg, &logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testServer{ts: ts, registry: registry, auth: authService}
}

func dialWS(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func sendFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, frame any) {
	t.Helper()

	if err := wsjson.Write(ctx, conn, frame); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) map[string]any {
	t.Helper()

	var frame map[string]any
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}
