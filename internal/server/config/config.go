// Package config handles configuration for the server binary, including
// defaults, JSON overlay, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/token"
)

// Roles the server binary can run as.
const (
	RoleGateway = "gateway"
	RoleAuth    = "auth"
	RoleFiles   = "files"
	RoleAll     = "all"
)

// Config holds runtime settings for the gatekeeper server.
//
// Fields:
//   - Role: which component(s) this process runs.
//   - GatewayAddr / AuthAddr / FilesAddr: bind addresses per component.
//   - AuthUpstream / FilesUpstream: base URLs the gateway proxies to.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty keeps users in memory.
//   - AccessSecret / RefreshSecret: HMAC secrets for the two token kinds (HS256).
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - PublicPaths: path prefixes the gateway forwards without a token.
//   - TrustedHeader: header carrying the verified principal id to the services.
//   - CookieSecure: sets the Secure attribute on the refresh cookie.
//   - S3RootUser / S3RootPassword / S3Bucket / S3Region / S3BaseEndpoint: object storage.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	Role                         string
	GatewayAddr                  string
	AuthAddr                     string
	FilesAddr                    string
	AuthUpstream                 string
	FilesUpstream                string
	DatabaseDSN                  string
	AccessSecret                 string
	RefreshSecret                string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	PublicPaths                  []string
	TrustedHeader                string
	CookieSecure                 bool
	S3RootUser                   string
	S3RootPassword               string
	S3Bucket                     string
	S3Region                     string
	S3BaseEndpoint               string
	LogLevel                     string
}

// DefaultPublicPaths are reachable without an access token.
var DefaultPublicPaths = []string{
	"/api/auth/register",
	"/api/auth/login",
	"/api/auth/refresh-token",
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secrets are insecure for production and must be overridden.
func (c *Config) LoadDefaults() {
	c.Role = RoleAll
	c.GatewayAddr = ":8080"
	c.AuthAddr = ":8081"
	c.FilesAddr = ":8082"
	c.AuthUpstream = "http://127.0.0.1:8081"
	c.FilesUpstream = "http://127.0.0.1:8082"
	c.DatabaseDSN = ""
	c.AccessSecret = "access-secret-change-me"
	c.RefreshSecret = "refresh-secret-change-me"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 7 * 24 * time.Hour
	c.PublicPaths = append([]string(nil), DefaultPublicPaths...)
	c.TrustedHeader = common.TrustedIdentityHeader
	c.CookieSecure = true
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "gatekeeper"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// TokenConfig extracts the token codec settings.
func (c *Config) TokenConfig() token.Config {
	return token.Config{
		AccessSecret:  []byte(c.AccessSecret),
		RefreshSecret: []byte(c.RefreshSecret),
		AccessTTL:     c.AccessTokenValidityDuration,
		RefreshTTL:    c.RefreshTokenValidityDuration,
	}
}

// Validate checks the settings the configured role depends on.
func (c *Config) Validate() error {
	var errs []error

	switch c.Role {
	case RoleGateway, RoleAuth, RoleFiles, RoleAll:
	default:
		errs = append(errs, fmt.Errorf("unknown role %q", c.Role))
	}

	if c.TrustedHeader == "" {
		errs = append(errs, errors.New("trusted header must not be empty"))
	}

	// The gateway only verifies access tokens, so a gateway on its own does
	// not need the refresh secret.
	switch {
	case c.Runs(RoleAuth):
		if err := c.TokenConfig().Validate(); err != nil {
			errs = append(errs, err)
		}
	case c.Runs(RoleGateway):
		if err := c.TokenConfig().ValidateAccess(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Runs(RoleGateway) {
		if err := absoluteURL("auth upstream", c.AuthUpstream); err != nil {
			errs = append(errs, err)
		}
		if err := absoluteURL("files upstream", c.FilesUpstream); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Runs(RoleFiles) && c.S3Bucket == "" {
		errs = append(errs, errors.New("s3 bucket must not be empty"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", common.ErrValidation, errors.Join(errs...))
	}
	return nil
}

// Runs reports whether the configured role includes role.
func (c *Config) Runs(role string) bool {
	return c.Role == RoleAll || c.Role == role
}

func absoluteURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s %q is not an absolute URL", name, raw)
	}
	return nil
}
