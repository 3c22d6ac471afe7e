package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/csrf"
)

// CSRFOptions configures CSRF.
type CSRFOptions struct {
	Secure         bool
	TrustedOrigins []string
	ErrorHandler   http.Handler
}

// CSRF protects form posts. JSON requests are exempt.
// Over plain HTTP the request is marked so gorilla/csrf skips the
// HTTPS-only Referer check.
func CSRF(authKey []byte, opts CSRFOptions) func(http.Handler) http.Handler {
	options := []csrf.Option{
		csrf.Secure(opts.Secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
	}
	if len(opts.TrustedOrigins) > 0 {
		options = append(options, csrf.TrustedOrigins(originHosts(opts.TrustedOrigins)))
	}
	if opts.ErrorHandler != nil {
		options = append(options, csrf.ErrorHandler(opts.ErrorHandler))
	}
	protect := csrf.Protect(authKey, options...)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
				next.ServeHTTP(w, r)
				return
			}
			if !opts.Secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

// originHosts reduces CORS-style origins (https://host:port) to the host
// form gorilla/csrf compares against.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		hosts = append(hosts, o)
	}
	return hosts
}

// Chain wraps h with each middleware in turn; the last one runs first.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for _, m := range middlewares {
		h = m(h)
	}
	return h
}
