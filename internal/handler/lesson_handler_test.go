package handler_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stemsi/handout-viewer/internal/model"
	"github.com/stemsi/handout-viewer/internal/pdf"
	"github.com/stemsi/handout-viewer/internal/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestShowLesson(t *testing.T) {
	t.Run("student with active enrollment in the class sees the handout", func(t *testing.T) {
		f := newFixture(t, &fakeRenderer{})
		f.access.On("CountStudentClassAccess", mock.Anything, 42, 5, "MO-200").Return(1, nil)
		f.users.On("GetByID", mock.Anything, 42).Return(anaUser(), nil)
		f.classes.On("GetInstructor", mock.Anything, 5).Return(markUser(), nil)

		w := f.get("/handouts/week-2?class_id=5", f.login(t, ana))

		assert.Equal(t, http.StatusOK, w.Code)
		assertNoStore(t, w)
		body := w.Body.String()
		assert.Contains(t, body, "Managing Worksheets and Workbooks")
		assert.Contains(t, body, "Ana Reyes")
		assert.Contains(t, body, "Mark Cruz &lt;mark@example.com&gt;")
		assert.Contains(t, body, "/handouts/week-2?class_id=5&amp;download=pdf")
		f.access.AssertExpectations(t)
	})

	t.Run("student outside the class gets only the denial page", func(t *testing.T) {
		f := newFixture(t, &fakeRenderer{})
		f.access.On("CountStudentClassAccess", mock.Anything, 42, 999, "MO-200").Return(0, nil)

		w := f.get("/handouts/week-2?class_id=999", f.login(t, ana))

		assert.Equal(t, http.StatusForbidden, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, response.GetMessage(response.ErrAccessDenied))
		assert.NotContains(t, body, "Managing Worksheets and Workbooks")
		assert.NotContains(t, body, "Ana Reyes")
		f.users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		f.classes.AssertNotCalled(t, "GetInstructor", mock.Anything, mock.Anything)
	})

	t.Run("instructor without class uses the general check", func(t *testing.T) {
		f := newFixture(t, &fakeRenderer{})
		f.access.On("CountInstructorGeneralAccess", mock.Anything, 7, "MO-200").Return(2, nil)
		f.users.On("GetByID", mock.Anything, 7).Return(markUser(), nil)

		w := f.get("/handouts/week-4", f.login(t, mark))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Managing Data Cells and Ranges")
		assert.Contains(t, w.Body.String(), "Mark Cruz")
		f.classes.AssertNotCalled(t, "GetInstructor", mock.Anything, mock.Anything)
	})

	t.Run("non-numeric class id falls back to the general check", func(t *testing.T) {
		f := newFixture(t, &fakeRenderer{})
		f.access.On("CountStudentGeneralAccess", mock.Anything, 42, "MO-200").Return(1, nil)
		f.users.On("GetByID", mock.Anything, 42).Return(anaUser(), nil)

		w := f.get("/handouts/week-2?class_id=abc", f.login(t, ana))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Course Instructor")
		f.access.AssertNotCalled(t, "CountStudentClassAccess", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no course access redirects to the role dashboard", func(t *testing.T) {
		f := newFixture(t, &fakeRenderer{})
		f.access.On("CountInstructorGeneralAccess", mock.Anything, 7, "MO-200").Return(0, nil)

		w := f.get("/handouts/week-2", f.login(t, mark))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/instructor/dashboard", w.Header().Get("Location"))
	})

	t.Run("admin session redirects to login without touching the database", func(t *testing.T) {
		f := newFixture(t, &fakeRenderer{})

		w := f.get("/handouts/week-2?class_id=5", f.login(t, model.Session{UserID: 1, Role: model.RoleAdmin}))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login?next=%2Fhandouts%2Fweek-2%3Fclass_id%3D5", w.Header().Get("Location"))
		assert.Empty(t, f.access.Calls)
		assert.Empty(t, f.users.Calls)
	})

	t.Run("no session redirects to login", func(t *testing.T) {
		f := newFixture(t, &fakeRenderer{})

		w := f.get("/handouts/week-2", nil)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login?next=%2Fhandouts%2Fweek-2", w.Header().Get("Location"))
	})

	t.Run("database failure shows the service unavailable page", func(t *testing.T) {
		f := newFixture(t, &fakeRenderer{})
		f.access.On("CountStudentClassAccess", mock.Anything, 42, 5, "MO-200").Return(0, errDBDown)

		w := f.get("/handouts/week-2?class_id=5", f.login(t, ana))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), response.GetMessage(response.ErrServiceUnavailable))
		assert.NotContains(t, w.Body.String(), "Managing Worksheets and Workbooks")
	})

	t.Run("identity lookup failure falls back to session values", func(t *testing.T) {
		f := newFixture(t, &fakeRenderer{})
		f.access.On("CountStudentClassAccess", mock.Anything, 42, 5, "MO-200").Return(1, nil)
		f.users.On("GetByID", mock.Anything, 42).Return(nil, errDBDown)
		f.classes.On("GetInstructor", mock.Anything, 5).Return(nil, errDBDown)

		w := f.get("/handouts/week-2?class_id=5", f.login(t, ana))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Ana Reyes")
		assert.Contains(t, w.Body.String(), "Course Instructor")
	})

	t.Run("unknown lesson is not found", func(t *testing.T) {
		f := newFixture(t, &fakeRenderer{})
		f.access.On("CountStudentGeneralAccess", mock.Anything, 42, "MO-200").Return(1, nil)

		w := f.get("/handouts/week-3", f.login(t, ana))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), response.GetMessage(response.ErrLessonNotFound))
	})
}

func TestDownloadPDF(t *testing.T) {
	t.Run("authorized download returns an attachment", func(t *testing.T) {
		renderer := &fakeRenderer{}
		f := newFixture(t, renderer)
		f.access.On("CountStudentClassAccess", mock.Anything, 42, 5, "MO-200").Return(1, nil)
		f.users.On("GetByID", mock.Anything, 42).Return(anaUser(), nil)
		f.classes.On("GetInstructor", mock.Anything, 5).Return(markUser(), nil)

		w := f.get("/handouts/week-2?class_id=5&download=pdf", f.login(t, ana))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename=MO-200_Week_2_Handout.pdf`, w.Header().Get("Content-Disposition"))
		assertNoStore(t, w)
		assert.Equal(t, "%PDF-1.7 fake", w.Body.String())
		if assert.Len(t, renderer.docs, 1) {
			assert.Equal(t, "Mark Cruz", renderer.docs[0].Author)
			assert.Contains(t, renderer.docs[0].HTML, "Ana Reyes")
		}
	})

	t.Run("unavailable backend shows remediation without attachment", func(t *testing.T) {
		f := newFixture(t, pdf.NewUnavailable("PDF export is disabled on this server"))
		f.access.On("CountStudentClassAccess", mock.Anything, 42, 5, "MO-200").Return(1, nil)
		f.users.On("GetByID", mock.Anything, 42).Return(anaUser(), nil)
		f.classes.On("GetInstructor", mock.Anything, 5).Return(markUser(), nil)

		w := f.get("/handouts/week-2?class_id=5&download=pdf", f.login(t, ana))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Content-Disposition"))
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "Print instead")
		assert.Contains(t, w.Body.String(), `href="/handouts/week-2?class_id=5#print"`)
		assert.NotContains(t, w.Body.String(), "disabled on this server")
	})

	t.Run("render failure shows remediation", func(t *testing.T) {
		f := newFixture(t, &fakeRenderer{err: errors.New("chromium crashed")})
		f.access.On("CountStudentGeneralAccess", mock.Anything, 42, "MO-200").Return(1, nil)
		f.users.On("GetByID", mock.Anything, 42).Return(anaUser(), nil)

		w := f.get("/handouts/week-8?download=pdf", f.login(t, ana))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Content-Disposition"))
		assert.Contains(t, w.Body.String(), response.GetMessage(response.ErrPDFFailed))
	})

	t.Run("denied download renders nothing", func(t *testing.T) {
		renderer := &fakeRenderer{}
		f := newFixture(t, renderer)
		f.access.On("CountStudentClassAccess", mock.Anything, 42, 999, "MO-200").Return(0, nil)

		w := f.get("/handouts/week-2?class_id=999&download=pdf", f.login(t, ana))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, w.Header().Get("Content-Disposition"))
		assert.Empty(t, renderer.docs)
	})
}

func TestIndex(t *testing.T) {
	f := newFixture(t, &fakeRenderer{})
	f.access.On("CountStudentClassAccess", mock.Anything, 42, 5, "MO-200").Return(1, nil)

	w := f.get("/handouts?class_id=5", f.login(t, ana))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	for _, title := range []string{"Managing Worksheets and Workbooks", "Managing Data Cells and Ranges", "Working with Tables and Formulas"} {
		assert.Contains(t, body, title)
	}
	assert.Contains(t, body, `href="/handouts/week-6?class_id=5"`)
}
