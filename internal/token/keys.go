package token

import (
	"errors"
	"time"

	"github.com/juju/clock"
)

// Config is the immutable signing configuration shared by the identity
// service (which issues tokens) and the gateway (which only needs the access
// secret).
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Validate reports configuration that would make the two token kinds
// interchangeable or unusable.
func (c Config) Validate() error {
	switch {
	case len(c.AccessSecret) == 0:
		return errors.New("access token secret is required")
	case len(c.RefreshSecret) == 0:
		return errors.New("refresh token secret is required")
	case string(c.AccessSecret) == string(c.RefreshSecret):
		return errors.New("access and refresh token secrets must differ")
	case c.AccessTTL <= 0 || c.RefreshTTL <= 0:
		return errors.New("token lifetimes must be positive")
	}
	return nil
}

// ValidateAccess checks only what verifying access tokens needs. The refresh
// settings may be empty.
func (c Config) ValidateAccess() error {
	switch {
	case len(c.AccessSecret) == 0:
		return errors.New("access token secret is required")
	case c.AccessTTL <= 0:
		return errors.New("access token lifetime must be positive")
	}
	return nil
}

// Pair is what a successful login, registration or refresh hands back.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Codec binds a Config and a clock to Issue and Verify.
type Codec struct {
	cfg   Config
	clock clock.Clock
}

// NewCodec copies cfg; later changes to the caller's slices have no effect.
func NewCodec(cfg Config, clk clock.Clock) *Codec {
	cfg.AccessSecret = append([]byte(nil), cfg.AccessSecret...)
	cfg.RefreshSecret = append([]byte(nil), cfg.RefreshSecret...)
	if clk == nil {
		clk = clock.WallClock
	}
	return &Codec{cfg: cfg, clock: clk}
}

func (c *Codec) AccessTTL() time.Duration  { return c.cfg.AccessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.cfg.RefreshTTL }

// IssuePair signs a fresh access token and a fresh refresh token for p.
func (c *Codec) IssuePair(p Principal) (*Pair, error) {
	access, err := Issue(KindAccess, p, c.cfg.AccessSecret, c.cfg.AccessTTL, c.clock)
	if err != nil {
		return nil, err
	}
	refresh, err := Issue(KindRefresh, p, c.cfg.RefreshSecret, c.cfg.RefreshTTL, c.clock)
	if err != nil {
		return nil, err
	}
	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (c *Codec) VerifyAccess(tokenString string) (*Claims, error) {
	return Verify(tokenString, c.cfg.AccessSecret, c.clock)
}

func (c *Codec) VerifyRefresh(tokenString string) (*Claims, error) {
	return Verify(tokenString, c.cfg.RefreshSecret, c.clock)
}
