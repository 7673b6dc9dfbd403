package trust

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/httpx"
)

type principalKey struct{}

// WithPrincipal returns a context carrying the principal id.
func WithPrincipal(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, principalKey{}, id)
}

// PrincipalFromContext returns the id stored by RequireIdentity.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(principalKey{}).(string)
	return id, ok && id != ""
}

// RequireIdentity is the service-side half of the contract: the header is
// taken at face value, since only the gateway can reach the services.
// Requests without it get 401.
func RequireIdentity(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(header))
			if id == "" {
				httpx.Fail(w, http.StatusUnauthorized, "Missing user identity")
				return
			}
			httpx.NotePrincipal(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), id)))
		})
	}
}
