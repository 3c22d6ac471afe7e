package handler_test

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/handout-viewer/internal/model"
	"github.com/stemsi/handout-viewer/internal/pdf"
	"github.com/stemsi/handout-viewer/internal/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestLogin(t *testing.T) {
	t.Run("valid credentials establish a session and follow next", func(t *testing.T) {
		f := newFixture(t, &fakeRenderer{})
		hash, err := f.auth.HashPassword("excel2019!")
		require.NoError(t, err)
		user := anaUser()
		user.PasswordHash = hash
		f.users.On("GetByEmail", mock.Anything, "ana@example.com").Return(user, nil)

		w := f.do(postForm("/login", url.Values{
			"email": {"ana@example.com"}, "password": {"excel2019!"}, "next": {"/handouts/week-2?class_id=5"},
		}), nil)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/handouts/week-2?class_id=5", w.Header().Get("Location"))
		cookie := cookieFrom(t, w)

		f.access.On("CountStudentClassAccess", mock.Anything, 42, 5, "MO-200").Return(1, nil)
		f.users.On("GetByID", mock.Anything, 42).Return(anaUser(), nil)
		f.classes.On("GetInstructor", mock.Anything, 5).Return(markUser(), nil)
		assert.Equal(t, http.StatusOK, f.get("/handouts/week-2?class_id=5", cookie).Code)
	})

	t.Run("unsafe next is ignored", func(t *testing.T) {
		f := newFixture(t, &fakeRenderer{})
		hash, _ := f.auth.HashPassword("excel2019!")
		user := markUser()
		user.PasswordHash = hash
		f.users.On("GetByEmail", mock.Anything, "mark@example.com").Return(user, nil)

		w := f.do(postForm("/login", url.Values{
			"email": {"mark@example.com"}, "password": {"excel2019!"}, "next": {"//evil.example.com"},
		}), nil)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/handouts", w.Header().Get("Location"))
	})

	t.Run("wrong password re-renders the form", func(t *testing.T) {
		f := newFixture(t, &fakeRenderer{})
		f.users.On("GetByEmail", mock.Anything, "ana@example.com").Return(nil, pgx.ErrNoRows)

		w := f.do(postForm("/login", url.Values{"email": {"ana@example.com"}, "password": {"nope-nope"}}), nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), response.GetMessage(response.ErrInvalidCredentials))
		assert.Contains(t, w.Body.String(), `value="ana@example.com"`)
	})

	t.Run("admin accounts are refused", func(t *testing.T) {
		f := newFixture(t, &fakeRenderer{})
		hash, _ := f.auth.HashPassword("excel2019!")
		f.users.On("GetByEmail", mock.Anything, "root@example.com").Return(&model.User{ID: 1, Role: model.RoleAdmin, PasswordHash: hash}, nil)

		w := f.do(postForm("/login", url.Values{"email": {"root@example.com"}, "password": {"excel2019!"}}), nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), response.GetMessage(response.ErrRoleNotAllowed))
	})

	t.Run("invalid form shows field errors", func(t *testing.T) {
		f := newFixture(t, &fakeRenderer{})

		w := f.do(postForm("/login", url.Values{"email": {"not-an-email"}}), nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "field-error")
		f.users.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	})

	t.Run("json login returns the envelope", func(t *testing.T) {
		f := newFixture(t, &fakeRenderer{})
		hash, _ := f.auth.HashPassword("excel2019!")
		user := anaUser()
		user.PasswordHash = hash
		f.users.On("GetByEmail", mock.Anything, "ana@example.com").Return(user, nil)

		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"ana@example.com","password":"excel2019!"}`))
		req.Header.Set("Content-Type", "application/json")
		w := f.do(req, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeEnvelope(t, w)
		data := body["data"].(map[string]any)
		assert.Equal(t, "/handouts", data["redirect"])
		assert.Equal(t, "student", data["role"])
	})
}

func TestLoginPage(t *testing.T) {
	f := newFixture(t, &fakeRenderer{})

	w := f.get("/login?next=%2Fhandouts%2Fweek-6", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="next" value="/handouts/week-6"`)
}

func TestLogout(t *testing.T) {
	f := newFixture(t, &fakeRenderer{})
	cookie := f.login(t, ana)

	w := f.do(httptest.NewRequest(http.MethodPost, "/logout", nil), cookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = f.get("/handouts/week-2", cookie)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/login"))
}

func TestHandoff(t *testing.T) {
	t.Run("valid token establishes the session", func(t *testing.T) {
		f := newFixture(t, &fakeRenderer{})
		token, err := f.auth.IssueHandoffToken(mark)
		require.NoError(t, err)

		w := f.get("/auth/handoff?token="+url.QueryEscape(token)+"&next=%2Fhandouts%2Fweek-4", nil)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/handouts/week-4", w.Header().Get("Location"))
		cookie := cookieFrom(t, w)

		f.access.On("CountInstructorGeneralAccess", mock.Anything, 7, "MO-200").Return(1, nil)
		f.users.On("GetByID", mock.Anything, 7).Return(markUser(), nil)
		assert.Equal(t, http.StatusOK, f.get("/handouts/week-4", cookie).Code)
	})

	t.Run("token works only once", func(t *testing.T) {
		f := newFixture(t, &fakeRenderer{})
		token, err := f.auth.IssueHandoffToken(ana)
		require.NoError(t, err)
		path := "/auth/handoff?token=" + url.QueryEscape(token)

		first := f.get(path, nil)
		require.Equal(t, http.StatusFound, first.Code)

		for i := 0; i < 2; i++ {
			again := f.get(path, nil)
			assert.Equal(t, http.StatusUnauthorized, again.Code)
			assert.Empty(t, again.Result().Cookies())
		}
	})

	t.Run("nonce store outage is a server error", func(t *testing.T) {
		f := newFixture(t, &fakeRenderer{})
		f.nonces.err = errors.New("redis: connection refused")
		token, err := f.auth.IssueHandoffToken(ana)
		require.NoError(t, err)

		w := f.get("/auth/handoff?token="+url.QueryEscape(token), nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("token stays out of the access log and referrers", func(t *testing.T) {
		var logBuf bytes.Buffer
		prev := gin.DefaultWriter
		gin.DefaultWriter = &logBuf
		t.Cleanup(func() { gin.DefaultWriter = prev })

		f := newFixture(t, &fakeRenderer{})
		token, err := f.auth.IssueHandoffToken(mark)
		require.NoError(t, err)

		w := f.get("/auth/handoff?token="+url.QueryEscape(token), nil)

		assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
		assert.Contains(t, logBuf.String(), "/auth/handoff?token=REDACTED")
		assert.NotContains(t, logBuf.String(), token)
	})

	t.Run("bad token is rejected", func(t *testing.T) {
		f := newFixture(t, &fakeRenderer{})

		w := f.get("/auth/handoff?token=not-a-jwt", nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "sign-in link is invalid")
	})
}

func TestHealth(t *testing.T) {
	f := newFixture(t, &fakeRenderer{})

	w := f.get("/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]any)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, "up", data["checks"].(map[string]any)["postgres"])
	assert.Equal(t, true, data["pdf"].(map[string]any)["available"])
}

func TestHealthReportsRendererReason(t *testing.T) {
	f := newFixture(t, pdf.NewUnavailable("PDF export is disabled on this server"))

	w := f.get("/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	report := decodeEnvelope(t, w)["data"].(map[string]any)["pdf"].(map[string]any)
	assert.Equal(t, false, report["available"])
	assert.Contains(t, report["reason"], "disabled on this server")
}
