package handler

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/handout-viewer/internal/config"
	"github.com/stemsi/handout-viewer/internal/metrics"
	"github.com/stemsi/handout-viewer/internal/middleware"
	"github.com/stemsi/handout-viewer/internal/pdf"
	"github.com/stemsi/handout-viewer/internal/response"
	"github.com/stemsi/handout-viewer/internal/service"
	"github.com/stemsi/handout-viewer/internal/view"
)

const pdfRenderTimeout = 30 * time.Second

// LessonHandler serves the handout index and individual handouts.
type LessonHandler struct {
	gate     *service.AccessService
	lessons  *service.LessonViewer
	renderer pdf.Renderer
	cfg      *config.Config
	log      zerolog.Logger
	now      func() time.Time
}

// NewLessonHandler creates a new LessonHandler.
func NewLessonHandler(
	gate *service.AccessService,
	lessons *service.LessonViewer,
	renderer pdf.Renderer,
	cfg *config.Config,
	log zerolog.Logger,
) *LessonHandler {
	return &LessonHandler{
		gate:     gate,
		lessons:  lessons,
		renderer: renderer,
		cfg:      cfg,
		log:      log.With().Str("component", "lesson_handler").Logger(),
		now:      time.Now,
	}
}

// Index godoc
// GET /handouts?class_id=
// Lists the handouts after the same access check as a single lesson.
func (h *LessonHandler) Index(c *gin.Context) {
	viewer := middleware.GetViewer(c)
	class := h.gate.ParseClassID(c.Query("class_id"))

	if !h.authorize(c, service.ViewerRequest{Session: viewer, Class: class}) {
		return
	}

	c.HTML(http.StatusOK, view.PageIndex, view.IndexPage{
		Chrome:  chrome(c, viewer, "Course handouts", h.lessons.Program(), h.lessons.ExamCode()),
		Lessons: h.lessons.Index(class),
	})
}

// Show godoc
// GET /handouts/:lesson?class_id=&download=pdf
// Renders one handout as HTML, or as a PDF attachment when download=pdf.
func (h *LessonHandler) Show(c *gin.Context) {
	viewer := middleware.GetViewer(c)
	req := service.ViewerRequest{
		Session:  viewer,
		Class:    h.gate.ParseClassID(c.Query("class_id")),
		LessonID: c.Param("lesson"),
		Download: c.Query("download") == "pdf",
	}

	if !h.authorize(c, req) {
		return
	}

	lesson, err := h.lessons.Lesson(req.LessonID)
	if err != nil {
		response.AbortPage(c, http.StatusNotFound, response.ErrLessonNotFound, view.KindNotFound)
		return
	}

	ctx := c.Request.Context()
	lr := service.LessonRequest{
		Lesson:     lesson,
		Class:      req.Class,
		Viewer:     h.gate.ResolveIdentity(ctx, viewer),
		Instructor: h.gate.ResolveInstructor(ctx, viewer, req.Class),
		Generated:  h.now(),
	}

	if req.Download {
		h.servePDF(c, lr)
		return
	}

	page, err := h.lessons.BuildPage(lr)
	if err != nil {
		h.log.Error().Err(err).Str("lesson", lesson.ID).Msg("Building lesson page failed")
		response.AbortPage(c, http.StatusInternalServerError, response.ErrInternal, view.KindError)
		return
	}
	page.Chrome = chrome(c, viewer, page.Title, page.Program, page.ExamCode)

	c.HTML(http.StatusOK, view.PageLesson, page)
}

// authorize runs the access gate and writes the terminal response when
// access is not granted.
func (h *LessonHandler) authorize(c *gin.Context, req service.ViewerRequest) bool {
	_, err := h.gate.Authorize(c.Request.Context(), req)
	switch {
	case err == nil:
		return true
	case errors.Is(err, service.ErrUnauthenticated):
		c.Redirect(http.StatusFound, middleware.LoginRedirect(h.cfg.LoginURL, c.Request.URL.RequestURI()))
	case errors.Is(err, service.ErrAccessDenied):
		response.Page(c, http.StatusForbidden, response.ErrAccessDenied, view.KindDenied)
	case errors.Is(err, service.ErrNoCourseAccess):
		c.Redirect(http.StatusFound, h.cfg.DashboardURL(req.Session.Role.String()))
	default:
		response.Page(c, http.StatusInternalServerError, response.ErrServiceUnavailable, view.KindError)
	}
	c.Abort()
	return false
}

// servePDF renders the handout through the configured backend. Any failure
// ends on the remediation page instead of a partial download.
func (h *LessonHandler) servePDF(c *gin.Context, lr service.LessonRequest) {
	backend := h.renderer.Name()
	log := h.log.With().Str("lesson", lr.Lesson.ID).Str("backend", backend).Logger()

	if err := h.renderer.Available(); err != nil {
		log.Warn().Err(err).Msg("PDF backend unavailable")
		metrics.ObservePDFExport(backend, "unavailable")
		h.remediate(c, lr, response.ErrPDFUnavailable)
		return
	}

	doc, err := h.lessons.BuildDocument(lr)
	if err != nil {
		log.Error().Err(err).Msg("Building PDF document failed")
		metrics.ObservePDFExport(backend, "error")
		h.remediate(c, lr, response.ErrPDFFailed)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), pdfRenderTimeout)
	defer cancel()

	start := time.Now()
	out, err := h.renderer.Render(ctx, doc)
	if err != nil {
		log.Error().Err(err).Msg("PDF render failed")
		metrics.ObservePDFExport(backend, "error")
		h.remediate(c, lr, response.ErrPDFFailed)
		return
	}

	metrics.ObservePDFExport(backend, "ok")
	log.Info().
		Int("bytes", len(out)).
		Dur("took", time.Since(start)).
		Str("filename", doc.Filename).
		Msg("PDF exported")

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	c.Data(http.StatusOK, "application/pdf", out)
}

// remediate answers a failed PDF request with 200 and a print fallback.
func (h *LessonHandler) remediate(c *gin.Context, lr service.LessonRequest, code response.ErrCode) {
	page := response.MessagePage(code, view.KindRemediation)
	page.Chrome = chrome(c, middleware.GetViewer(c), page.Title, h.lessons.Program(), h.lessons.ExamCode())
	page.PrintURL = service.PrintURL(lr.Lesson.ID, lr.Class)
	page.Actions = []view.Link{
		{Label: "Back to the handout", URL: service.LessonURL(lr.Lesson.ID, lr.Class, false)},
	}

	c.HTML(http.StatusOK, view.PageMessage, page)
}

