// Package view renders the handout pages from embedded html/template files.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
	"time"

	"github.com/gin-gonic/gin/render"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

const layoutFile = "templates/layout.html"

// Page templates rendered inside the layout.
const (
	PageIndex   = "index.html"
	PageLesson  = "lesson.html"
	PageMessage = "message.html"
	PageLogin   = "login.html"
)

// Standalone templates used to build PDF documents.
const (
	printFile  = "print.html"
	headerFile = "pdf_header.html"
	footerFile = "pdf_footer.html"
)

var funcs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("January 2, 2006") },
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
}

// Views holds the parsed page templates. It implements gin's HTMLRender so
// handlers can call c.HTML with a page name.
type Views struct {
	pages map[string]*template.Template
	print *template.Template
	css   template.CSS
}

// Load parses every template. It fails fast on a broken template.
func Load() (*Views, error) {
	v := &Views{pages: make(map[string]*template.Template)}

	for _, page := range []string{PageIndex, PageLesson, PageMessage, PageLogin} {
		tpl, err := template.New("layout.html").Funcs(funcs).
			ParseFS(templateFS, layoutFile, "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		v.pages[page] = tpl
	}

	tpl, err := template.New(printFile).Funcs(funcs).
		ParseFS(templateFS, "templates/"+printFile, "templates/"+headerFile, "templates/"+footerFile)
	if err != nil {
		return nil, fmt.Errorf("parse print templates: %w", err)
	}
	v.print = tpl

	css, err := fs.ReadFile(staticFS, "static/handout.css")
	if err != nil {
		return nil, fmt.Errorf("read stylesheet: %w", err)
	}
	v.css = template.CSS(css)

	return v, nil
}

// Instance implements render.HTMLRender.
func (v *Views) Instance(name string, data any) render.Render {
	tpl, ok := v.pages[name]
	if !ok {
		tpl = template.Must(template.New("missing").Parse(`template {{.}} not found`))
		return render.HTML{Template: tpl, Name: "missing", Data: name}
	}
	return render.HTML{Template: tpl, Name: "layout.html", Data: data}
}

// RenderPage writes a page to a buffer. Used outside gin and in tests.
func (v *Views) RenderPage(name string, data any) (string, error) {
	tpl, ok := v.pages[name]
	if !ok {
		return "", fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// PrintDocument renders the standalone print HTML plus the Chromium
// header and footer templates for a handout.
func (v *Views) PrintDocument(data PrintPage) (html, header, footer string, err error) {
	data.CSS = v.css

	if html, err = v.execPrint(printFile, data); err != nil {
		return "", "", "", err
	}
	if header, err = v.execPrint(headerFile, data); err != nil {
		return "", "", "", err
	}
	if footer, err = v.execPrint(footerFile, data); err != nil {
		return "", "", "", err
	}
	return html, header, footer, nil
}

func (v *Views) execPrint(name string, data PrintPage) (string, error) {
	var buf bytes.Buffer
	if err := v.print.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// Static returns the stylesheet directory served under /static.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
