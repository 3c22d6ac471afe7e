package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/handout-viewer/internal/model"
	"github.com/stemsi/handout-viewer/internal/session"
)

const (
	// ContextKeyViewer is the Gin context key for the validated session.
	ContextKeyViewer = "viewer"
)

// SessionValidator checks a session without touching the database.
type SessionValidator interface {
	ValidateSession(sess *model.Session) error
}

// RequireViewerSession loads the session and redirects to the login page
// unless it belongs to a student or instructor.
func RequireViewerSession(sessions *session.Manager, gate SessionValidator, loginURL string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := sessions.Load(c.Request.Context())
		if err == nil {
			err = gate.ValidateSession(sess)
		}
		if err != nil {
			ev := log.Debug().Err(err).Str("path", c.Request.URL.Path)
			if sess != nil {
				ev = ev.Int("user_id", sess.UserID).Str("role", sess.Role.String())
			}
			ev.Msg("Viewer session rejected")

			c.Redirect(http.StatusFound, LoginRedirect(loginURL, c.Request.URL.RequestURI()))
			c.Abort()
			return
		}

		c.Set(ContextKeyViewer, sess)
		c.Next()
	}
}

// GetViewer retrieves the validated session from the Gin context.
func GetViewer(c *gin.Context) *model.Session {
	val, exists := c.Get(ContextKeyViewer)
	if !exists {
		return nil
	}
	sess, ok := val.(*model.Session)
	if !ok {
		return nil
	}
	return sess
}

// LoginRedirect appends the page to return to after signing in.
func LoginRedirect(loginURL, next string) string {
	if next == "" || !SafeNext(next) {
		return loginURL
	}
	sep := "?"
	if strings.Contains(loginURL, "?") {
		sep = "&"
	}
	return loginURL + sep + "next=" + url.QueryEscape(next)
}

// SafeNext reports whether next is a site-relative path. Scheme-relative
// (//host) and backslash forms are rejected.
func SafeNext(next string) bool {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return false
	}
	u, err := url.Parse(next)
	return err == nil && u.Scheme == "" && u.Host == ""
}
