package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/flagx"
)

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags:
//
//	-role string            gateway, auth, files or all
//	-a string               gateway bind address (e.g., ":8080")
//	-auth-addr string       auth service bind address
//	-files-addr string      file service bind address
//	-auth-upstream string   auth service base URL used by the gateway
//	-files-upstream string  file service base URL used by the gateway
//	-d string               PostgreSQL DSN
//	-s string               access token HMAC secret
//	-rs string              refresh token HMAC secret
//	-t int                  access token validity, minutes
//	-r int                  refresh token validity, minutes
//	-public string          comma-separated public path prefixes
//	-trusted-header string  identity header name
//	-cookie-secure bool     Secure attribute on the refresh cookie
//	-u, -p, -b, -g, -e      S3 user, password, bucket, region, endpoint
//	-log-level string       debug, info, warn or error
//
// Notes:
//   - os.Args is first filtered down to the flags defined here using
//     flagx.FilterArgs, so the config-file flags do not trip the parser.
//   - Duration flags are accepted as integers in minutes and then converted
//     to time.Duration values.
func parseFlags(config *Config) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.Role, "role", config.Role, "component to run: gateway, auth, files or all")
	fs.StringVar(&config.GatewayAddr, "a", config.GatewayAddr, "gateway address and port")
	fs.StringVar(&config.AuthAddr, "auth-addr", config.AuthAddr, "auth service address and port")
	fs.StringVar(&config.FilesAddr, "files-addr", config.FilesAddr, "file service address and port")
	fs.StringVar(&config.AuthUpstream, "auth-upstream", config.AuthUpstream, "auth service base URL")
	fs.StringVar(&config.FilesUpstream, "files-upstream", config.FilesUpstream, "file service base URL")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccessSecret, "s", config.AccessSecret, "access token secret")
	fs.StringVar(&config.RefreshSecret, "rs", config.RefreshSecret, "refresh token secret")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")
	publicPaths := fs.String("public", strings.Join(config.PublicPaths, ","), "comma-separated public path prefixes")

	fs.StringVar(&config.TrustedHeader, "trusted-header", config.TrustedHeader, "identity header forwarded to services")
	fs.BoolVar(&config.CookieSecure, "cookie-secure", config.CookieSecure, "mark the refresh cookie Secure")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	args := flagx.FilterArgs(os.Args[1:], flagx.AllowedFrom(fs))
	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	config.PublicPaths = splitList(*publicPaths)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
