package pdf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"
)

const defaultRenderTimeout = 30 * time.Second

// ChromiumRenderer prints HTML with headless Chromium driven by Playwright.
// The browser is shared; every render gets its own browser context.
type ChromiumRenderer struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	log     zerolog.Logger
}

// NewChromium starts Playwright and launches headless Chromium.
// With install set, the driver and browser are downloaded first.
func NewChromium(install bool, log zerolog.Logger) (*ChromiumRenderer, error) {
	if install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	return &ChromiumRenderer{pw: pw, browser: browser, log: log}, nil
}

func (r *ChromiumRenderer) Name() string { return BackendChromium }

// Version reports the launched Chromium version.
func (r *ChromiumRenderer) Version() string { return r.browser.Version() }

func (r *ChromiumRenderer) Available() error {
	if !r.browser.IsConnected() {
		return fmt.Errorf("%w: chromium disconnected", ErrRendererUnavailable)
	}
	return nil
}

// Render loads doc.HTML into a fresh page and prints it as A4.
func (r *ChromiumRenderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	if err := r.Available(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := defaultRenderTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	bctx, err := r.browser.NewContext()
	if err != nil {
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	defer func() {
		if err := bctx.Close(); err != nil {
			r.log.Warn().Err(err).Msg("Closing browser context failed")
		}
	}()

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("new page: %w", err)
	}

	if err := page.SetContent(doc.HTML, playwright.PageSetContentOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	}); err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	if doc.Title != "" {
		if _, err := page.Evaluate(`t => { document.title = t }`, doc.Title); err != nil {
			return nil, fmt.Errorf("set title: %w", err)
		}
	}

	out, err := page.PDF(playwright.PagePdfOptions{
		Format:              playwright.String("A4"),
		PrintBackground:     playwright.Bool(true),
		DisplayHeaderFooter: playwright.Bool(doc.HeaderTemplate != "" || doc.FooterTemplate != ""),
		HeaderTemplate:      playwright.String(orEmptySpan(doc.HeaderTemplate)),
		FooterTemplate:      playwright.String(orEmptySpan(doc.FooterTemplate)),
		Margin: &playwright.Margin{
			Top:    playwright.String("22mm"),
			Bottom: playwright.String("20mm"),
			Left:   playwright.String("16mm"),
			Right:  playwright.String("16mm"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("print pdf: empty output")
	}

	return out, nil
}

// Close shuts down the browser and the Playwright driver.
func (r *ChromiumRenderer) Close() error {
	return errors.Join(r.browser.Close(), r.pw.Stop())
}

// Chromium prints its own default header when a template is empty.
func orEmptySpan(tpl string) string {
	if tpl == "" {
		return "<span></span>"
	}
	return tpl
}
