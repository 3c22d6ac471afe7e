package view

import (
	"html/template"
	"time"

	"github.com/stemsi/handout-viewer/internal/model"
)

// Chrome is the data every layout page needs.
type Chrome struct {
	Title     string
	Program   string
	ExamCode  string
	Viewer    string
	LoggedIn  bool
	CSRFField template.HTML
}

// Link is a labelled URL.
type Link struct {
	Label string
	URL   string
}

// IndexPage lists the published handouts.
type IndexPage struct {
	Chrome
	Lessons []LessonLink
}

// LessonLink is one entry on the index.
type LessonLink struct {
	Week     int
	Title    string
	Subtitle string
	URL      string
	PDFURL   string
}

// LessonPage is the HTML rendition of a handout.
type LessonPage struct {
	Chrome
	Lesson     model.Lesson
	Body       template.HTML
	Student    model.Identity
	Instructor model.InstructorInfo
	ShowViewer bool
	PDFURL     string
	IndexURL   string
	Generated  time.Time
}

// MessageKind selects the styling of a MessagePage.
type MessageKind string

const (
	KindDenied      MessageKind = "denied"
	KindError       MessageKind = "error"
	KindNotFound    MessageKind = "not-found"
	KindRemediation MessageKind = "remediation"
)

// MessagePage is used for denial, error, not-found and PDF remediation pages.
type MessagePage struct {
	Chrome
	Kind    MessageKind
	Heading string
	Message string
	Code    string
	// PrintURL, when set, offers the browser print dialog as a fallback.
	PrintURL string
	Actions  []Link
}

// LoginPage is the sign-in form.
type LoginPage struct {
	Chrome
	Email  string
	Next   string
	Error  string
	Fields map[string]string
}

// PrintPage feeds the standalone PDF templates.
type PrintPage struct {
	Title      string
	Author     string
	Subject    string
	Program    string
	ExamCode   string
	Lesson     model.Lesson
	Body       template.HTML
	Student    model.Identity
	Instructor model.InstructorInfo
	Generated  time.Time
	CSS        template.CSS
}
