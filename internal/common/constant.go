// Package common contains shared constants and sentinel errors used across
// the gateway, the internal services and the CLI client.
package common

const (
	// TrustedIdentityHeader carries the verified principal id from the edge
	// gateway to internal services.
	TrustedIdentityHeader = "X-User-ID"

	// RefreshTokenCookieName is the cookie holding the refresh token.
	RefreshTokenCookieName = "refreshToken"

	// AuthorizationHeader and BearerPrefix describe the access token transport.
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
)
