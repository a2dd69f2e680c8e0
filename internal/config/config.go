package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	StaticDir    string `mapstructure:"static_dir" yaml:"static_dir"`
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	// WriteTimeout bounds each outbound send so one stuck peer cannot
	// stall a broadcast.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// MessageRateLimit caps inbound frames per connection per minute.
	// Zero disables the limit.
	MessageRateLimit int `mapstructure:"message_rate_limit" yaml:"message_rate_limit"`

	CORSAllowOrigins []string `mapstructure:"cors_allow_origins" yaml:"cors_allow_origins"`

	Auth  AuthConfig  `mapstructure:"auth" yaml:"auth"`
	OAuth OAuthConfig `mapstructure:"oauth" yaml:"oauth"`
}

// AuthConfig controls the admission gate on join.
type AuthConfig struct {
	// Required enables the authorization check on every join. The default
	// is off for development; production deployments must set it
	// explicitly.
	Required bool `mapstructure:"required" yaml:"required"`

	// Timeout bounds the authorization call; expiry counts as a denial.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// EntitlementURL is the remote verification endpoint. When empty only
	// locally issued tokens verify.
	EntitlementURL string `mapstructure:"entitlement_url" yaml:"entitlement_url"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	SessionTTL  time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
}

// OAuthConfig describes the upstream authorization-code provider.
type OAuthConfig struct {
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"`
	AuthURL      string `mapstructure:"auth_url" yaml:"auth_url"`
	TokenURL     string `mapstructure:"token_url" yaml:"token_url"`
	RedirectURL  string `mapstructure:"redirect_url" yaml:"redirect_url"`
	UserinfoURL  string `mapstructure:"userinfo_url" yaml:"userinfo_url"`
}

// Enabled reports whether the OAuth flow is configured.
func (o OAuthConfig) Enabled() bool {
	return o.ClientID != "" && o.AuthURL != "" && o.TokenURL != ""
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		StaticDir:         "public",
		DatabasePath:      "voicerelay.db",
		WriteTimeout:      10 * time.Second,
		MessageRateLimit:  0,
		CORSAllowOrigins:  []string{"*"},
		Auth: AuthConfig{
			Required:    false,
			Timeout:     5 * time.Second,
			JWTSecret:   "dev-secret-change-me",
			JWTIssuer:   "voicerelay",
			JWTAudience: "voicerelay",
			SessionTTL:  24 * time.Hour,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}
