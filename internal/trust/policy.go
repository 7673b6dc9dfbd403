// Package trust decides which requests need a token at the edge and carries
// the verified identity from the gateway to the internal services in a
// single trusted header.
package trust

import (
	"path"
	"strings"
)

// Policy lists the path prefixes that are reachable without an access token.
// The zero value has no public paths.
type Policy struct {
	prefixes []string
}

// NewPolicy keeps the non-empty prefixes in order.
func NewPolicy(prefixes []string) Policy {
	p := Policy{}
	for _, prefix := range prefixes {
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			p.prefixes = append(p.prefixes, prefix)
		}
	}
	return p
}

// IsPublic reports whether requestPath starts with a public prefix. The path
// is matched as routed, without cleaning; callers reject non-canonical paths
// first (see Canonical).
func (p Policy) IsPublic(requestPath string) bool {
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(requestPath, prefix) {
			return true
		}
	}
	return false
}

// Prefixes returns a copy of the configured prefixes.
func (p Policy) Prefixes() []string {
	return append([]string(nil), p.prefixes...)
}

// Canonical reports whether p is an absolute path with no dot segments,
// empty segments or other parts path.Clean would rewrite. A single trailing
// slash is allowed.
func Canonical(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	clean := path.Clean(p)
	if strings.HasSuffix(p, "/") && clean != "/" {
		clean += "/"
	}
	return clean == p
}
