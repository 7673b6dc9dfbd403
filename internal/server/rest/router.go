package rest

import (
	"net/http"

	"github.com/dmitrijs2005/gatekeeper/internal/httpx"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// newRouter returns a chi router with the middleware every service shares.
func newRouter(log logging.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(httpx.RequestLogger(log))
	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)
	r.Get("/healthz", healthz)
	return r
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	httpx.Fail(w, http.StatusNotFound, "Not found")
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	httpx.Fail(w, http.StatusMethodNotAllowed, "Method not allowed")
}
