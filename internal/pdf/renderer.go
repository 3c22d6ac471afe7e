// Package pdf turns handout HTML into PDF bytes.
//
// The backend is chosen once at startup by New. Callers check Available
// before rendering and show a print fallback when it reports an error.
package pdf

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/handout-viewer/internal/config"
)

// ErrRendererUnavailable means no working PDF backend is configured.
var ErrRendererUnavailable = errors.New("pdf renderer unavailable")

// Document is one PDF to produce.
type Document struct {
	Title    string
	Author   string
	Subject  string
	Filename string

	// HTML is a complete standalone document.
	HTML string

	// HeaderTemplate and FooterTemplate use Chromium's print template
	// classes (pageNumber, totalPages, title, date).
	HeaderTemplate string
	FooterTemplate string
}

// Renderer converts a Document to PDF bytes.
type Renderer interface {
	Name() string
	// Available returns nil when Render can be expected to work,
	// otherwise an error wrapping ErrRendererUnavailable.
	Available() error
	Render(ctx context.Context, doc Document) ([]byte, error)
	Close() error
}

// Backend names accepted by PDF_BACKEND.
const (
	BackendChromium = "chromium"
	BackendNone     = "none"
)

// New selects the configured backend. A Chromium backend that fails to start
// is replaced by an UnavailableRenderer so the HTML path keeps working.
func New(cfg *config.Config, log zerolog.Logger) Renderer {
	log = log.With().Str("component", "pdf").Logger()

	switch cfg.PDFBackend {
	case BackendChromium:
		r, err := NewChromium(cfg.PDFInstallBrowsers, log)
		if err != nil {
			log.Warn().Err(err).Msg("Chromium PDF backend unavailable, PDF export disabled")
			return NewUnavailable(fmt.Sprintf("Chromium could not be started: %v", err))
		}
		log.Info().Str("backend", r.Name()).Str("version", r.Version()).Msg("PDF backend ready")
		return r
	case BackendNone, "":
		log.Info().Msg("PDF export disabled by configuration")
		return NewUnavailable("PDF export is disabled on this server")
	default:
		log.Warn().Str("backend", cfg.PDFBackend).Msg("Unknown PDF backend, PDF export disabled")
		return NewUnavailable(fmt.Sprintf("unknown PDF backend %q", cfg.PDFBackend))
	}
}

// UnavailableRenderer is selected when no backend can run.
type UnavailableRenderer struct {
	reason string
}

// NewUnavailable creates a renderer that always reports reason. The reason
// is for operators: it reaches the logs and /health, not the remediation page.
func NewUnavailable(reason string) *UnavailableRenderer {
	return &UnavailableRenderer{reason: reason}
}

func (u *UnavailableRenderer) Name() string { return BackendNone }

func (u *UnavailableRenderer) Available() error {
	return fmt.Errorf("%w: %s", ErrRendererUnavailable, u.reason)
}

func (u *UnavailableRenderer) Render(context.Context, Document) ([]byte, error) {
	return nil, u.Available()
}

func (u *UnavailableRenderer) Close() error { return nil }
