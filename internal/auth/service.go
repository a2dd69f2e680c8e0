package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/voicerelay-server/internal/store"
)

var (
	// ErrNoCredential is returned when no token was supplied.
	ErrNoCredential = errors.New("no credential")
	// ErrInvalidCredential is returned when the token fails verification.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrAccessDenied is returned when the entitlement provider rejects the caller.
	ErrAccessDenied = errors.New("access denied")
)

// Identity describes the verified holder of a credential.
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Service is the authorization gate consulted once per join attempt.
// Verification either asks a remote entitlement endpoint (when configured)
// or validates a locally issued token against the session store.
type Service struct {
	sessions       store.SessionStore
	jwtConfig      *JWTConfig
	entitlementURL string
	client         *http.Client
	log            *zerolog.Logger
}

// NewService creates a new authorization service. entitlementURL may be
// empty, in which case only locally issued tokens verify.
func NewService(sessions store.SessionStore, jwtConfig *JWTConfig, entitlementURL string, logger *zerolog.Logger) *Service {
	return &Service{
		sessions:       sessions,
		jwtConfig:      jwtConfig,
		entitlementURL: entitlementURL,
		client:         &http.Client{},
		log:            logger,
	}
}

// IssueToken creates a session record and returns a signed token for it.
// Called by the OAuth callback after a successful code exchange.
func (s *Service) IssueToken(ctx context.Context, subject, name string) (string, error) {
	now := time.Now().UTC()
	sess := &store.Session{
		ID:        uuid.NewString(),
		Subject:   subject,
		Name:      name,
		CreatedAt: now,
		ExpiresAt: now.Add(s.jwtConfig.TTL),
	}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return GenerateToken(s.jwtConfig, sess.ID, subject, name)
}

// Verify resolves a credential to an identity or fails.
func (s *Service) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrNoCredential
	}
	if s.entitlementURL != "" {
		return s.verifyRemote(ctx, token, "")
	}
	return s.verifyLocal(ctx, token)
}

// CheckAccess is the boolean admission gate: it reports whether the holder
// of the credential may join resourceID. Every failure path, including a
// timed-out entitlement call, is a denial.
func (s *Service) CheckAccess(ctx context.Context, token, resourceID string) bool {
	if token == "" {
		return false
	}

	var err error
	if s.entitlementURL != "" {
		_, err = s.verifyRemote(ctx, token, resourceID)
	} else {
		_, err = s.verifyLocal(ctx, token)
	}
	if err != nil {
		s.log.Debug().Err(err).Str("resource", resourceID).Msg("access check failed")
		return false
	}
	return true
}

func (s *Service) verifyLocal(ctx context.Context, token string) (*Identity, error) {
	claims, err := ValidateToken(s.jwtConfig, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	sess, err := s.sessions.GetSession(ctx, claims.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: session revoked", ErrInvalidCredential)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if time.Now().After(sess.ExpiresAt) {
		return nil, fmt.Errorf("%w: session expired", ErrInvalidCredential)
	}

	return &Identity{ID: sess.Subject, Name: sess.Name}, nil
}

func (s *Service) verifyRemote(ctx context.Context, token, resourceID string) (*Identity, error) {
	endpoint := s.entitlementURL
	if resourceID != "" {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("entitlement url: %w", err)
		}
		q := u.Query()
		q.Set("resource", resourceID)
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build entitlement request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("entitlement request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrAccessDenied
	default:
		return nil, fmt.Errorf("entitlement status %d", resp.StatusCode)
	}

	var ident Identity
	if err := json.NewDecoder(resp.Body).Decode(&ident); err != nil {
		return nil, fmt.Errorf("decode entitlement response: %w", err)
	}
	return &ident, nil
}
