// Package token issues and verifies the signed tokens used between the
// client, the edge gateway and the identity service.
//
// Access and refresh tokens are HS256 JWTs signed with independent secrets,
// so a refresh token never verifies as an access token and vice versa.
package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/juju/clock"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind int

const (
	KindAccess Kind = iota
	KindRefresh
)

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRefresh:
		return "refresh"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	ErrMalformed        = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpired          = errors.New("token expired")
)

// Principal is the identity a token is issued for.
type Principal struct {
	ID       string
	Username string
}

// Claims is the verified content of a token.
type Claims struct {
	Subject   string
	Username  string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// jwtClaims is the wire form. Username is only set on access tokens.
type jwtClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

// Issue signs a new token of the given kind for p, valid for ttl from clk.Now().
func Issue(kind Kind, p Principal, secret []byte, ttl time.Duration, clk clock.Clock) (string, error) {
	if p.ID == "" {
		return "", fmt.Errorf("issue %s token: empty subject", kind)
	}
	if len(secret) == 0 {
		return "", fmt.Errorf("issue %s token: empty secret", kind)
	}

	now := clk.Now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if kind == KindAccess {
		claims.Username = p.Username
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of tokenString against secret.
// The returned error is always one of ErrMalformed, ErrInvalidSignature or
// ErrExpired. A token is expired once exp <= now; there is no leeway.
func Verify(tokenString string, secret []byte, clk clock.Clock) (*Claims, error) {
	claims := &jwtClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(clk.Now),
	)
	if err != nil {
		return nil, classify(tokenString, err)
	}

	if claims.Subject == "" || claims.IssuedAt == nil {
		return nil, ErrMalformed
	}

	return &Claims{
		Subject:   claims.Subject,
		Username:  claims.Username,
		ID:        claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// classify folds the parser's error tree into the three verification errors.
// A token whose header and payload decode cleanly but whose signature
// segment does not is reported as a bad signature, not as malformed input.
func classify(tokenString string, err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		if signatureOnlyDamage(tokenString) {
			return ErrInvalidSignature
		}
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing), errors.Is(err, jwt.ErrTokenInvalidClaims):
		return ErrMalformed
	default:
		return ErrMalformed
	}
}

func signatureOnlyDamage(tokenString string) bool {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return false
	}
	enc := base64.RawURLEncoding.Strict()
	for _, segment := range parts[:2] {
		raw, err := enc.DecodeString(segment)
		if err != nil || !json.Valid(raw) {
			return false
		}
	}
	return true
}
