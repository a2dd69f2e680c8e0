package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/vovakirdan/voicerelay-server/internal/auth"
	"github.com/vovakirdan/voicerelay-server/internal/config"
	"github.com/vovakirdan/voicerelay-server/internal/utils"
)

const stateCookie = "oauth_state"

// OAuthHandlers implements the authorization-code flow that hands the
// browser a signaling credential. The relay never stores provider tokens
// beyond the exchange; it issues its own short-lived credential instead.
type OAuthHandlers struct {
	cfg   config.OAuthConfig
	auth  *auth.Service
	oauth *oauth2.Config
	log   *zerolog.Logger
}

// NewOAuthHandlers creates a new OAuth handlers instance.
func NewOAuthHandlers(cfg config.OAuthConfig, authService *auth.Service, logger *zerolog.Logger) *OAuthHandlers {
	return &OAuthHandlers{
		cfg:  cfg,
		auth: authService,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		log: logger,
	}
}

// Login redirects the browser to the provider's authorize page.
// GET /auth/login
func (h *OAuthHandlers) Login(c *gin.Context) {
	state := utils.NewNonce()
	c.SetCookie(stateCookie, state, 600, "/", "", false, true)
	c.Redirect(stdhttp.StatusFound, h.oauth.AuthCodeURL(state))
}

// Callback exchanges the authorization code and responds with a signaling
// credential for the join frame.
// GET /auth/callback
func (h *OAuthHandlers) Callback(c *gin.Context) {
	state, err := c.Cookie(stateCookie)
	if err != nil || state == "" || c.Query("state") != state {
		c.JSON(stdhttp.StatusBadRequest, ErrorResponse{Error: "invalid state"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(stdhttp.StatusBadRequest, ErrorResponse{Error: "missing code"})
		return
	}

	tok, err := h.oauth.Exchange(c.Request.Context(), code)
	if err != nil {
		h.log.Warn().Err(err).Msg("oauth code exchange failed")
		c.JSON(stdhttp.StatusBadGateway, ErrorResponse{Error: "code exchange failed"})
		return
	}

	ident := h.fetchIdentity(c.Request.Context(), tok)
	token, err := h.auth.IssueToken(c.Request.Context(), ident.ID, ident.Name)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to issue token")
		c.JSON(stdhttp.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("subject", ident.ID).Msg("credential issued")
	c.JSON(stdhttp.StatusOK, AuthResponse{Token: token})
}

// fetchIdentity asks the provider who the token belongs to. Identity is
// advisory only (it seeds the default display name), so failures fall back
// to an anonymous subject rather than aborting the flow.
func (h *OAuthHandlers) fetchIdentity(ctx context.Context, tok *oauth2.Token) auth.Identity {
	anonymous := auth.Identity{ID: "anon:" + utils.NewNonce()}
	if h.cfg.UserinfoURL == "" {
		return anonymous
	}

	resp, err := h.oauth.Client(ctx, tok).Get(h.cfg.UserinfoURL)
	if err != nil {
		h.log.Warn().Err(err).Msg("userinfo request failed")
		return anonymous
	}
	defer resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusOK {
		h.log.Warn().Int("status", resp.StatusCode).Msg("userinfo request rejected")
		return anonymous
	}

	var ident auth.Identity
	if err := json.NewDecoder(resp.Body).Decode(&ident); err != nil || ident.ID == "" {
		h.log.Warn().Err(err).Msg("userinfo response unusable")
		return anonymous
	}
	return ident
}
