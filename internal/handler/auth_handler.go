package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/handout-viewer/internal/config"
	"github.com/stemsi/handout-viewer/internal/middleware"
	"github.com/stemsi/handout-viewer/internal/model"
	"github.com/stemsi/handout-viewer/internal/response"
	"github.com/stemsi/handout-viewer/internal/service"
	"github.com/stemsi/handout-viewer/internal/session"
	"github.com/stemsi/handout-viewer/internal/validator"
	"github.com/stemsi/handout-viewer/internal/view"
)

// AuthHandler handles sign-in, sign-out and the portal handoff.
type AuthHandler struct {
	auth     *service.AuthService
	sessions *session.Manager
	cfg      *config.Config
	log      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, sessions *session.Manager, cfg *config.Config, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		sessions: sessions,
		cfg:      cfg,
		log:      log.With().Str("component", "auth_handler").Logger(),
	}
}

// LoginPage godoc
// GET /login?next=
func (h *AuthHandler) LoginPage(c *gin.Context) {
	h.renderLogin(c, http.StatusOK, view.LoginPage{Next: safeNext(c.Query("next"))})
}

// Login godoc
// POST /login
// Accepts the login form (or JSON) and establishes the viewer session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.BindAny(c, &req); fields != nil {
		if response.WantsJSON(c) {
			response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, fields)
			return
		}
		h.renderLogin(c, http.StatusUnprocessableEntity, view.LoginPage{
			Email: req.Email, Next: safeNext(req.Next), Fields: fields,
		})
		return
	}

	sess, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		code, status := response.ErrInvalidCredentials, http.StatusUnauthorized
		if errors.Is(err, service.ErrRoleNotAllowed) {
			code, status = response.ErrRoleNotAllowed, http.StatusForbidden
		}
		h.log.Info().Str("email", req.Email).Str("reason", string(code)).Msg("Login rejected")

		if response.WantsJSON(c) {
			response.Fail(c, status, code)
			return
		}
		h.renderLogin(c, status, view.LoginPage{
			Email: req.Email, Next: safeNext(req.Next), Error: response.GetMessage(code),
		})
		return
	}

	if err := h.sessions.Establish(c.Request.Context(), sess); err != nil {
		h.log.Error().Err(err).Int("user_id", sess.UserID).Msg("Establishing session failed")
		response.AbortPage(c, http.StatusInternalServerError, response.ErrInternal, view.KindError)
		return
	}

	h.log.Info().Int("user_id", sess.UserID).Str("role", sess.Role.String()).Msg("Viewer signed in")

	target := h.landing(req.Next)
	if response.WantsJSON(c) {
		response.Success(c, http.StatusOK, gin.H{"redirect": target, "role": sess.Role})
		return
	}
	c.Redirect(http.StatusSeeOther, target)
}

// Logout godoc
// POST /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Destroy(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("Destroying session failed")
		response.AbortPage(c, http.StatusInternalServerError, response.ErrInternal, view.KindError)
		return
	}
	c.Redirect(http.StatusSeeOther, h.cfg.LoginURL)
}

// Handoff godoc
// GET /auth/handoff?token=&next=
// Exchanges a short-lived portal token for a viewer session. Each token works once.
func (h *AuthHandler) Handoff(c *gin.Context) {
	c.Header("Referrer-Policy", "no-referrer")

	claims, err := h.auth.ValidateHandoffToken(c.Request.Context(), c.Query("token"))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrHandoffInvalid), errors.Is(err, service.ErrHandoffDisabled):
		h.log.Warn().Err(err).Msg("Handoff rejected")
		response.AbortPage(c, http.StatusUnauthorized, response.ErrHandoffInvalid, view.KindDenied)
		return
	default:
		h.log.Error().Err(err).Msg("Handoff could not be verified")
		response.AbortPage(c, http.StatusInternalServerError, response.ErrServiceUnavailable, view.KindError)
		return
	}

	sess := claims.Session()
	if err := h.sessions.Establish(c.Request.Context(), sess); err != nil {
		h.log.Error().Err(err).Int("user_id", sess.UserID).Msg("Establishing session failed")
		response.AbortPage(c, http.StatusInternalServerError, response.ErrInternal, view.KindError)
		return
	}

	h.log.Info().Int("user_id", sess.UserID).Str("role", sess.Role.String()).Str("jti", claims.ID).Msg("Handoff accepted")
	c.Redirect(http.StatusFound, h.landing(c.Query("next")))
}

func (h *AuthHandler) renderLogin(c *gin.Context, status int, page view.LoginPage) {
	page.Chrome = chrome(c, nil, "Sign in", "", "")
	c.HTML(status, view.PageLogin, page)
}

// landing is where a signed-in viewer goes next.
func (h *AuthHandler) landing(next string) string {
	if next = safeNext(next); next != "" {
		return next
	}
	return service.HandoutBasePath
}

func safeNext(next string) string {
	if middleware.SafeNext(next) {
		return next
	}
	return ""
}

// HandoffEnabled reports whether /auth/handoff should be mounted.
func (h *AuthHandler) HandoffEnabled() bool {
	return h.auth.HandoffEnabled()
}
