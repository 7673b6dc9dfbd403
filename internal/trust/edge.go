package trust

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/httpx"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/token"
)

// AccessVerifier checks an access token. *token.Codec implements it.
type AccessVerifier interface {
	VerifyAccess(tokenString string) (*token.Claims, error)
}

// EdgeFilter authenticates requests at the gateway. It holds no per-request
// state and is safe for concurrent use.
type EdgeFilter struct {
	policy   Policy
	verifier AccessVerifier
	header   string
	log      logging.Logger
}

func NewEdgeFilter(policy Policy, verifier AccessVerifier, header string, log logging.Logger) *EdgeFilter {
	if log == nil {
		log = logging.Nop{}
	}
	return &EdgeFilter{policy: policy, verifier: verifier, header: header, log: log}
}

// Middleware forwards public requests untouched apart from dropping any
// client-supplied identity header. Every other request must carry a valid
// bearer access token; its subject replaces whatever identity header the
// client sent. Paths that are not canonical, in decoded or escaped form, are
// refused with 400 so the policy and the router always see the same path.
// Rejected requests never reach next.
func (f *EdgeFilter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !Canonical(r.URL.Path) || (r.URL.RawPath != "" && !Canonical(r.URL.RawPath)) {
			f.log.Warn(r.Context(), "non-canonical path rejected", "path", r.URL.EscapedPath())
			httpx.Fail(w, http.StatusBadRequest, "Invalid request path")
			return
		}

		if f.policy.IsPublic(r.URL.Path) {
			if r.Header.Get(f.header) != "" {
				r = r.Clone(r.Context())
				r.Header.Del(f.header)
			}
			next.ServeHTTP(w, r)
			return
		}

		raw, ok := bearerToken(r)
		if !ok {
			httpx.Fail(w, http.StatusUnauthorized, "Missing or invalid Authorization header")
			return
		}

		claims, err := f.verifier.VerifyAccess(raw)
		if err != nil {
			f.log.Debug(r.Context(), "access token rejected", "path", r.URL.Path, "reason", err.Error())
			httpx.Fail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		httpx.NotePrincipal(r.Context(), claims.Subject)

		forwarded := r.Clone(r.Context())
		forwarded.Header.Set(f.header, claims.Subject)
		next.ServeHTTP(w, forwarded)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get(common.AuthorizationHeader)
	if !strings.HasPrefix(h, common.BearerPrefix) {
		return "", false
	}
	t := strings.TrimSpace(strings.TrimPrefix(h, common.BearerPrefix))
	return t, t != ""
}
