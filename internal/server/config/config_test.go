package config

import (
	"os"
	"testing"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	want := &Config{
		Role:                         RoleAll,
		GatewayAddr:                  ":8080",
		AuthAddr:                     ":8081",
		FilesAddr:                    ":8082",
		AuthUpstream:                 "http://127.0.0.1:8081",
		FilesUpstream:                "http://127.0.0.1:8082",
		AccessSecret:                 "access-secret-change-me",
		RefreshSecret:                "refresh-secret-change-me",
		AccessTokenValidityDuration:  15 * time.Minute,
		RefreshTokenValidityDuration: 7 * 24 * time.Hour,
		PublicPaths:                  []string{"/api/auth/register", "/api/auth/login", "/api/auth/refresh-token"},
		TrustedHeader:                "X-User-ID",
		CookieSecure:                 true,
		S3RootUser:                   "admin",
		S3RootPassword:               "secretpassword",
		S3Bucket:                     "gatekeeper",
		S3Region:                     "us-east-1",
		S3BaseEndpoint:               "http://127.0.0.1:9000/",
		LogLevel:                     "info",
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, c.Validate())
}

func TestLoadDefaults_PublicPathsAreACopy(t *testing.T) {
	c := defaults()
	c.PublicPaths[0] = "/changed"
	assert.Equal(t, "/api/auth/register", DefaultPublicPaths[0])
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	c := LoadConfig()
	require.NotNil(t, c, "LoadConfig must not return nil")
	if diff := cmp.Diff(defaults(), c); diff != "" {
		t.Fatalf("LoadConfig without args mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"role":          "auth",
		"access_secret": "from-json",
		"auth_addr":     ":9001",
	})
	os.Args = []string{"testbin", "-c", path, "-s", "from-flag"}

	c := LoadConfig()
	assert.Equal(t, RoleAuth, c.Role)
	assert.Equal(t, ":9001", c.AuthAddr)
	assert.Equal(t, "from-flag", c.AccessSecret)
}

func TestConfig_TokenConfig(t *testing.T) {
	c := defaults()
	tc := c.TokenConfig()
	assert.Equal(t, []byte(c.AccessSecret), tc.AccessSecret)
	assert.Equal(t, []byte(c.RefreshSecret), tc.RefreshSecret)
	assert.Equal(t, c.AccessTokenValidityDuration, tc.AccessTTL)
	assert.Equal(t, c.RefreshTokenValidityDuration, tc.RefreshTTL)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown role", func(c *Config) { c.Role = "proxy" }, `unknown role "proxy"`},
		{"empty access secret", func(c *Config) { c.AccessSecret = "" }, "access token secret is required"},
		{"empty refresh secret", func(c *Config) { c.RefreshSecret = "" }, "refresh token secret is required"},
		{"same secrets", func(c *Config) { c.RefreshSecret = c.AccessSecret }, "must differ"},
		{"zero ttl", func(c *Config) { c.AccessTokenValidityDuration = 0 }, "lifetimes must be positive"},
		{"empty trusted header", func(c *Config) { c.TrustedHeader = "" }, "trusted header"},
		{"relative upstream", func(c *Config) { c.AuthUpstream = "auth:8081" }, "auth upstream"},
		{"files role ignores secrets", func(c *Config) { c.Role = RoleFiles; c.AccessSecret = "" }, ""},
		{"files role needs bucket", func(c *Config) { c.Role = RoleFiles; c.S3Bucket = "" }, "s3 bucket"},
		{"gateway role without refresh secret", func(c *Config) { c.Role = RoleGateway; c.RefreshSecret = "" }, ""},
		{"gateway role ignores refresh ttl", func(c *Config) { c.Role = RoleGateway; c.RefreshTokenValidityDuration = 0 }, ""},
		{"gateway role needs access secret", func(c *Config) { c.Role = RoleGateway; c.AccessSecret = "" }, "access token secret is required"},
		{"auth role needs refresh secret", func(c *Config) { c.Role = RoleAuth; c.RefreshSecret = "" }, "refresh token secret is required"},
		{"auth role ignores upstreams", func(c *Config) { c.Role = RoleAuth; c.FilesUpstream = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaults()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, common.ErrValidation)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRuns(t *testing.T) {
	c := &Config{Role: RoleAll}
	for _, role := range []string{RoleGateway, RoleAuth, RoleFiles} {
		assert.True(t, c.Runs(role), role)
	}

	c.Role = RoleAuth
	assert.True(t, c.Runs(RoleAuth))
	assert.False(t, c.Runs(RoleGateway))
	assert.False(t, c.Runs(RoleFiles))
}
