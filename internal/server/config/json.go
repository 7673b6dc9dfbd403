package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gatekeeper/internal/flagx"
	"github.com/dmitrijs2005/gatekeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
//
// Only keys present in the file override the defaults.
type JsonConfig struct {
	Role                         string          `json:"role"`
	GatewayAddr                  string          `json:"gateway_addr"`
	AuthAddr                     string          `json:"auth_addr"`
	FilesAddr                    string          `json:"files_addr"`
	AuthUpstream                 string          `json:"auth_upstream"`
	FilesUpstream                string          `json:"files_upstream"`
	DatabaseDSN                  string          `json:"database_dsn"`
	AccessSecret                 string          `json:"access_secret"`
	RefreshSecret                string          `json:"refresh_secret"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	PublicPaths                  []string        `json:"public_paths"`
	TrustedHeader                string          `json:"trusted_header"`
	CookieSecure                 *bool           `json:"cookie_secure"`
	S3RootUser                   string          `json:"s3_root_user"`
	S3RootPassword               string          `json:"s3_root_password"`
	S3Bucket                     string          `json:"s3_bucket"`
	S3Region                     string          `json:"s3_region"`
	S3BaseEndpoint               string          `json:"s3_base_endpoint"`
	LogLevel                     string          `json:"log_level"`
}

// parseJson loads values from the file named by -c / -config into config.
// Without either flag nothing is loaded. An unreadable file or invalid JSON
// panics, like a bad flag does.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFile(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.Role, c.Role)
	setString(&config.GatewayAddr, c.GatewayAddr)
	setString(&config.AuthAddr, c.AuthAddr)
	setString(&config.FilesAddr, c.FilesAddr)
	setString(&config.AuthUpstream, c.AuthUpstream)
	setString(&config.FilesUpstream, c.FilesUpstream)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AccessSecret, c.AccessSecret)
	setString(&config.RefreshSecret, c.RefreshSecret)
	setString(&config.TrustedHeader, c.TrustedHeader)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)

	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.PublicPaths != nil {
		config.PublicPaths = append([]string(nil), c.PublicPaths...)
	}
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
