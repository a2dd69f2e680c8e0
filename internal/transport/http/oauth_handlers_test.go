package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/vovakirdan/voicerelay-server/internal/config"
)

// fakeProvider mimics the minimum of an OAuth provider: a token endpoint
// accepting the fixed code "good-code" and a userinfo endpoint.
func fakeProvider(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"provider-token","token_type":"bearer"}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"user-7","name":"Grace"}`))
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func startOAuthTestServer(t *testing.T) *testServer {
	t.Helper()

	provider := fakeProvider(t)
	return startTestServer(t, func(cfg *config.Config) {
		cfg.OAuth = config.OAuthConfig{
			ClientID:     "relay",
			ClientSecret: "secret",
			AuthURL:      provider.URL + "/authorize",
			TokenURL:     provider.URL + "/token",
			RedirectURL:  "http://localhost/auth/callback",
			UserinfoURL:  provider.URL + "/userinfo",
		}
	})
}

func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func TestLoginRedirectsToProvider(t *testing.T) {
	srv := startOAuthTestServer(t)

	resp, err := noRedirectClient().Get(srv.ts.URL + "/auth/login")
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}

	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("parse redirect location: %v", err)
	}
	if !strings.HasSuffix(loc.Path, "/authorize") {
		t.Fatalf("redirect does not target authorize endpoint: %s", loc)
	}
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatal("redirect missing state parameter")
	}

	var cookieState string
	for _, c := range resp.Cookies() {
		if c.Name == stateCookie {
			cookieState = c.Value
		}
	}
	if cookieState != state {
		t.Fatalf("state cookie %q does not match redirect state %q", cookieState, state)
	}
}

func TestCallbackIssuesVerifiableCredential(t *testing.T) {
	srv := startOAuthTestServer(t)

	req, _ := http.NewRequest(http.MethodGet,
		srv.ts.URL+"/auth/callback?code=good-code&state=xyz", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "xyz"})

	resp, err := srv.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("callback request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	var body AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Token == "" {
		t.Fatal("callback returned empty token")
	}

	// The issued credential verifies against the relay's own auth service.
	ident, err := srv.auth.Verify(context.Background(), body.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if ident.ID != "user-7" || ident.Name != "Grace" {
		t.Fatalf("unexpected identity: %+v", ident)
	}
}

func TestCallbackRejectsStateMismatch(t *testing.T) {
	srv := startOAuthTestServer(t)

	req, _ := http.NewRequest(http.MethodGet,
		srv.ts.URL+"/auth/callback?code=good-code&state=evil", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "xyz"})

	resp, err := srv.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("callback request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for state mismatch, got %d", resp.StatusCode)
	}
}

func TestCallbackRejectsBadCode(t *testing.T) {
	srv := startOAuthTestServer(t)

	req, _ := http.NewRequest(http.MethodGet,
		srv.ts.URL+"/auth/callback?code=bad-code&state=xyz", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "xyz"})

	resp, err := srv.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("callback request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 for failed exchange, got %d", resp.StatusCode)
	}
}
