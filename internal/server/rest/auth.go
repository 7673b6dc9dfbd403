package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/httpx"
	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/services"
	"github.com/dmitrijs2005/gatekeeper/internal/token"
	"github.com/dmitrijs2005/gatekeeper/internal/trust"
	"github.com/go-chi/chi/v5"
)

// refreshFailed is the one message every refresh rejection carries.
const refreshFailed = "Invalid or expired refresh token"

// Sessions is the part of services.SessionService the auth handlers use.
type Sessions interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.Session, error)
	Login(ctx context.Context, username, password string) (*services.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*token.Pair, error)
	Logout(ctx context.Context, userID string) error
	Profile(ctx context.Context, userID string) (*models.User, error)
	RefreshTTL() time.Duration
}

type registerRequest struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken string `json:"accessToken"`
}

type profileResponse struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AuthHandler serves /api/auth/*.
type AuthHandler struct {
	sessions      Sessions
	trustedHeader string
	cookieSecure  bool
	logger        logging.Logger
}

func NewAuthHandler(sessions Sessions, trustedHeader string, cookieSecure bool, l logging.Logger) *AuthHandler {
	return &AuthHandler{
		sessions:      sessions,
		trustedHeader: trustedHeader,
		cookieSecure:  cookieSecure,
		logger:        l.With("module", "auth_handler"),
	}
}

// Routes builds the auth service router. Logout and profile trust the
// identity header set by the gateway.
func (h *AuthHandler) Routes() http.Handler {
	r := newRouter(h.logger)
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/refresh-token", h.refresh)

		r.Group(func(r chi.Router) {
			r.Use(trust.RequireIdentity(h.trustedHeader))
			r.Post("/logout", h.logout)
			r.Get("/me", h.me)
		})
	})
	return r
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Error(w, err)
		return
	}

	s, err := h.sessions.Register(r.Context(), services.RegisterInput{
		FullName: req.FullName,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.setRefreshCookie(w, s.Tokens.RefreshToken)
	httpx.JSON(w, http.StatusCreated, "User registered successfully", authResponse{AccessToken: s.Tokens.AccessToken})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.Error(w, err)
		return
	}

	s, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.setRefreshCookie(w, s.Tokens.RefreshToken)
	httpx.JSON(w, http.StatusOK, "Login successful", authResponse{AccessToken: s.Tokens.AccessToken})
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var refreshToken string
	if c, err := r.Cookie(common.RefreshTokenCookieName); err == nil {
		refreshToken = c.Value
	}

	pair, err := h.sessions.Refresh(r.Context(), refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			httpx.Fail(w, http.StatusUnauthorized, refreshFailed)
			return
		}
		h.fail(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	httpx.JSON(w, http.StatusOK, "Access token refreshed successfully", authResponse{AccessToken: pair.AccessToken})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	userID, _ := trust.PrincipalFromContext(r.Context())

	if err := h.sessions.Logout(r.Context(), userID); err != nil {
		h.fail(w, r, err)
		return
	}

	http.SetCookie(w, h.refreshCookie("", -1))
	httpx.JSON(w, http.StatusOK, "Logout successful", nil)
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	userID, _ := trust.PrincipalFromContext(r.Context())

	u, err := h.sessions.Profile(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, "Profile fetched successfully", profileResponse{
		ID:       u.ID,
		FullName: u.FullName,
		Username: u.UserName,
		Email:    u.Email,
	})
}

// fail writes err, logging anything that maps to a 5xx.
func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	httpx.Error(w, err)
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, h.refreshCookie(value, int(h.sessions.RefreshTTL().Seconds())))
}

// refreshCookie builds the refresh token cookie. A negative maxAge expires it.
func (h *AuthHandler) refreshCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     common.RefreshTokenCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}
