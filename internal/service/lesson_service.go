package service

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stemsi/handout-viewer/internal/model"
	"github.com/stemsi/handout-viewer/internal/pdf"
	"github.com/stemsi/handout-viewer/internal/view"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// ErrLessonNotFound is returned for lesson IDs missing from the catalog.
var ErrLessonNotFound = errors.New("lesson not found")

// HandoutBasePath is where lessons are mounted.
const HandoutBasePath = "/handouts"

// LessonRequest is everything needed to render one handout for one viewer.
type LessonRequest struct {
	Lesson     model.Lesson
	Class      model.ClassContext
	Viewer     model.Identity
	Instructor model.InstructorInfo
	Generated  time.Time
}

// LessonViewer renders any catalog lesson as an HTML page or a PDF document.
// Lesson bodies are converted once at construction.
type LessonViewer struct {
	catalog *model.Catalog
	byID    map[string]int
	bodies  map[string]template.HTML
	views   *view.Views
}

// NewLessonViewer converts every lesson body and indexes the catalog.
func NewLessonViewer(catalog *model.Catalog, views *view.Views) (*LessonViewer, error) {
	v := &LessonViewer{
		catalog: catalog,
		byID:    make(map[string]int, len(catalog.Lessons)),
		bodies:  make(map[string]template.HTML, len(catalog.Lessons)),
		views:   views,
	}

	for i, l := range catalog.Lessons {
		body, err := RenderMarkdown(l.Content)
		if err != nil {
			return nil, fmt.Errorf("render lesson %s: %w", l.ID, err)
		}
		v.byID[l.ID] = i
		v.bodies[l.ID] = body
	}

	return v, nil
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Typographer),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// RenderMarkdown converts a lesson body to HTML. Raw HTML in the source
// is dropped.
func RenderMarkdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// Program returns the catalog's program name.
func (v *LessonViewer) Program() string { return v.catalog.Program }

// ExamCode returns the certification code the handouts target.
func (v *LessonViewer) ExamCode() string { return v.catalog.ExamCode }

// Lessons returns the catalog in week order.
func (v *LessonViewer) Lessons() []model.Lesson {
	return v.catalog.Lessons
}

// Lesson looks a lesson up by ID.
func (v *LessonViewer) Lesson(id string) (model.Lesson, error) {
	i, ok := v.byID[id]
	if !ok {
		return model.Lesson{}, fmt.Errorf("%w: %q", ErrLessonNotFound, id)
	}
	return v.catalog.Lessons[i], nil
}

// RenderBody returns the converted body for a lesson.
func (v *LessonViewer) RenderBody(lesson model.Lesson) (template.HTML, error) {
	if body, ok := v.bodies[lesson.ID]; ok {
		return body, nil
	}
	return RenderMarkdown(lesson.Content)
}

// Index returns the links shown on the handout index for a class context.
func (v *LessonViewer) Index(class model.ClassContext) []view.LessonLink {
	links := make([]view.LessonLink, 0, len(v.catalog.Lessons))
	for _, l := range v.catalog.Lessons {
		links = append(links, view.LessonLink{
			Week:     l.Week,
			Title:    l.Title,
			Subtitle: l.Subtitle,
			URL:      LessonURL(l.ID, class, false),
			PDFURL:   LessonURL(l.ID, class, true),
		})
	}
	return links
}

// BuildPage assembles the HTML page data. The caller fills in Chrome fields
// that depend on the HTTP request.
func (v *LessonViewer) BuildPage(req LessonRequest) (view.LessonPage, error) {
	body, err := v.RenderBody(req.Lesson)
	if err != nil {
		return view.LessonPage{}, err
	}

	return view.LessonPage{
		Chrome: view.Chrome{
			Title:    fmt.Sprintf("Week %d: %s", req.Lesson.Week, req.Lesson.Title),
			Program:  v.catalog.Program,
			ExamCode: v.catalog.ExamCode,
		},
		Lesson:     req.Lesson,
		Body:       body,
		Student:    req.Viewer,
		Instructor: req.Instructor,
		ShowViewer: req.Viewer.FullName() != "" || req.Viewer.Email != "",
		PDFURL:     LessonURL(req.Lesson.ID, req.Class, true),
		IndexURL:   IndexURL(req.Class),
		Generated:  req.Generated,
	}, nil
}

// BuildDocument assembles the PDF document for a handout.
func (v *LessonViewer) BuildDocument(req LessonRequest) (pdf.Document, error) {
	body, err := v.RenderBody(req.Lesson)
	if err != nil {
		return pdf.Document{}, err
	}

	title := fmt.Sprintf("%s Week %d Handout: %s", v.catalog.ExamCode, req.Lesson.Week, req.Lesson.Title)
	subject := fmt.Sprintf("%s (%s), week %d", v.catalog.Program, v.catalog.ExamCode, req.Lesson.Week)

	html, header, footer, err := v.views.PrintDocument(view.PrintPage{
		Title:      title,
		Author:     req.Instructor.Name,
		Subject:    subject,
		Program:    v.catalog.Program,
		ExamCode:   v.catalog.ExamCode,
		Lesson:     req.Lesson,
		Body:       body,
		Student:    req.Viewer,
		Instructor: req.Instructor,
		Generated:  req.Generated,
	})
	if err != nil {
		return pdf.Document{}, err
	}

	return pdf.Document{
		Title:          title,
		Author:         req.Instructor.Name,
		Subject:        subject,
		Filename:       Filename(v.catalog.ExamCode, req.Lesson.Week),
		HTML:           html,
		HeaderTemplate: header,
		FooterTemplate: footer,
	}, nil
}

// Filename is the download name for a week's handout, e.g.
// MO-200_Week_2_Handout.pdf.
func Filename(examCode string, week int) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, examCode)
	if safe == "" {
		safe = "Handout"
	}
	return fmt.Sprintf("%s_Week_%d_Handout.pdf", safe, week)
}

// LessonURL builds the lesson link, keeping the class context.
func LessonURL(lessonID string, class model.ClassContext, download bool) string {
	q := url.Values{}
	if class.Present() {
		q.Set("class_id", strconv.Itoa(class.ID))
	}
	if download {
		q.Set("download", "pdf")
	}
	u := HandoutBasePath + "/" + url.PathEscape(lessonID)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// IndexURL links back to the handout index.
func IndexURL(class model.ClassContext) string {
	if class.Present() {
		return HandoutBasePath + "?class_id=" + strconv.Itoa(class.ID)
	}
	return HandoutBasePath
}

// PrintURL opens the HTML handout and triggers the print dialog.
func PrintURL(lessonID string, class model.ClassContext) string {
	return LessonURL(lessonID, class, false) + "#print"
}
