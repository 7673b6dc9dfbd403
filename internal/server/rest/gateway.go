package rest

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/httpx"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/trust"
	"github.com/go-chi/chi/v5"
)

// Route sends every request under Prefix to Upstream, path unchanged.
type Route struct {
	Name     string
	Prefix   string
	Upstream string
}

// NewGateway builds the edge handler: /healthz answers locally, everything
// else passes the edge filter and is proxied to the first matching route.
func NewGateway(filter *trust.EdgeFilter, routes []Route, l logging.Logger) (http.Handler, error) {
	logger := l.With("module", "gateway")

	proxied := chi.NewRouter()
	proxied.NotFound(notFound)
	proxied.MethodNotAllowed(methodNotAllowed)

	for _, rt := range routes {
		target, err := url.Parse(rt.Upstream)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("route %s: invalid upstream %q", rt.Name, rt.Upstream)
		}
		prefix := strings.TrimSuffix(rt.Prefix, "/")
		proxy := newReverseProxy(rt.Name, target, logger)
		proxied.Handle(prefix, proxy)
		proxied.Handle(prefix+"/*", proxy)
	}

	r := newRouter(logger)
	r.Mount("/", filter.Middleware(proxied))
	return r, nil
}

func newReverseProxy(name string, target *url.URL, logger logging.Logger) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error(r.Context(), "upstream unreachable", "upstream", name, "path", r.URL.Path, "error", err)
			httpx.Fail(w, http.StatusBadGateway, "Upstream service unavailable")
		},
	}
}
