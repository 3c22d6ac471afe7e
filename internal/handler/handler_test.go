package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2/memstore"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/handout-viewer/internal/config"
	"github.com/stemsi/handout-viewer/internal/content"
	"github.com/stemsi/handout-viewer/internal/handler"
	"github.com/stemsi/handout-viewer/internal/model"
	"github.com/stemsi/handout-viewer/internal/pdf"
	"github.com/stemsi/handout-viewer/internal/router"
	"github.com/stemsi/handout-viewer/internal/service"
	"github.com/stemsi/handout-viewer/internal/session"
	"github.com/stemsi/handout-viewer/internal/validator"
	"github.com/stemsi/handout-viewer/internal/view"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

// ─── Mocks ──────────────────────────────────────────────────────────────────

type MockAccessStore struct{ mock.Mock }

func (m *MockAccessStore) CountStudentClassAccess(ctx context.Context, studentID, classID int, filter string) (int, error) {
	args := m.Called(ctx, studentID, classID, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockAccessStore) CountInstructorClassAccess(ctx context.Context, instructorID, classID int, filter string) (int, error) {
	args := m.Called(ctx, instructorID, classID, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockAccessStore) CountStudentGeneralAccess(ctx context.Context, studentID int, filter string) (int, error) {
	args := m.Called(ctx, studentID, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockAccessStore) CountInstructorGeneralAccess(ctx context.Context, instructorID int, filter string) (int, error) {
	args := m.Called(ctx, instructorID, filter)
	return args.Int(0), args.Error(1)
}

type MockUsers struct{ mock.Mock }

func (m *MockUsers) GetByID(ctx context.Context, id int) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type MockClasses struct{ mock.Mock }

func (m *MockClasses) GetInstructor(ctx context.Context, classID int) (*model.User, error) {
	args := m.Called(ctx, classID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// fakeNonces is an in-memory stand-in for the Redis spent-token markers.
type fakeNonces struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (n *fakeNonces) SetNX(_ context.Context, key string, _ interface{}, _ time.Duration) *redis.BoolCmd {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return redis.NewBoolResult(false, n.err)
	}
	if n.seen[key] {
		return redis.NewBoolResult(false, nil)
	}
	n.seen[key] = true
	return redis.NewBoolResult(true, nil)
}

// fakeRenderer stands in for Chromium.
type fakeRenderer struct {
	err  error
	docs []pdf.Document
}

func (f *fakeRenderer) Name() string     { return "fake" }
func (f *fakeRenderer) Available() error { return nil }
func (f *fakeRenderer) Close() error     { return nil }
func (f *fakeRenderer) Render(_ context.Context, doc pdf.Document) ([]byte, error) {
	f.docs = append(f.docs, doc)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7 fake"), nil
}

// ─── Fixture ────────────────────────────────────────────────────────────────

type fixture struct {
	access  *MockAccessStore
	users   *MockUsers
	classes *MockClasses
	nonces  *fakeNonces
	auth    *service.AuthService
	server  http.Handler
}

func testConfig() *config.Config {
	return &config.Config{
		GinMode:                gin.TestMode,
		SessionCookie:          "portal_session",
		SessionLifetime:        time.Hour,
		HandoffSecret:          "handoff-test-secret",
		HandoffIssuer:          "course-portal",
		BcryptCost:             bcrypt.MinCost,
		CourseTitleFilter:      "MO-200",
		LoginURL:               "/login",
		StudentDashboardURL:    "/student/dashboard",
		InstructorDashboardURL: "/instructor/dashboard",
		DefaultInstructorName:  "Course Instructor",
		DefaultInstructorEmail: "instructors@example.com",
		LoginRateLimit:         100,
	}
}

func newFixture(t *testing.T, renderer pdf.Renderer) *fixture {
	t.Helper()
	cfg := testConfig()
	log := zerolog.Nop()

	views, err := view.Load()
	require.NoError(t, err)
	catalog, err := content.LoadCatalog(content.Embedded())
	require.NoError(t, err)
	lessons, err := service.NewLessonViewer(catalog, views)
	require.NoError(t, err)

	f := &fixture{
		access:  new(MockAccessStore),
		users:   new(MockUsers),
		classes: new(MockClasses),
		nonces:  &fakeNonces{seen: make(map[string]bool)},
	}
	gate := service.NewAccessService(f.access, f.users, f.classes, cfg, log)
	f.auth = service.NewAuthService(cfg, f.users, f.nonces)
	sessions := session.NewWithStore(cfg, memstore.New())

	engine := router.SetupRouter(&router.Handlers{
		Lesson: handler.NewLessonHandler(gate, lessons, renderer, cfg, log),
		Auth:   handler.NewAuthHandler(f.auth, sessions, cfg, log),
		System: handler.NewSystemHandler(map[string]handler.HealthCheck{
			"postgres": func(context.Context) error { return nil },
		}, renderer, log),
	}, sessions, gate, views, cfg, log)

	// Writes raw session values the way the portal would.
	engine.GET("/_seed", func(c *gin.Context) {
		ctx := c.Request.Context()
		id, _ := strconv.Atoi(c.Query("user_id"))
		sessions.Put(ctx, session.KeyUserID, id)
		sessions.Put(ctx, session.KeyUserRole, c.Query("role"))
		sessions.Put(ctx, session.KeyUserEmail, c.Query("email"))
		sessions.Put(ctx, session.KeyFirstName, c.Query("first"))
		sessions.Put(ctx, session.KeyLastName, c.Query("last"))
		c.Status(http.StatusNoContent)
	})

	f.server = sessions.Wrap(engine)
	return f
}

func (f *fixture) login(t *testing.T, s model.Session) *http.Cookie {
	t.Helper()
	q := url.Values{
		"user_id": {strconv.Itoa(s.UserID)},
		"role":    {string(s.Role)},
		"email":   {s.Email},
		"first":   {s.FirstName},
		"last":    {s.LastName},
	}
	w := f.do(httptest.NewRequest(http.MethodGet, "/_seed?"+q.Encode(), nil), nil)
	return cookieFrom(t, w)
}

func (f *fixture) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, req)
	return w
}

func (f *fixture) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	return f.do(httptest.NewRequest(http.MethodGet, path, nil), cookie)
}

func cookieFrom(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "portal_session" {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

var (
	ana  = model.Session{UserID: 42, Role: model.RoleStudent, Email: "ana@example.com", FirstName: "Ana", LastName: "Reyes"}
	mark = model.Session{UserID: 7, Role: model.RoleInstructor, Email: "mark@example.com", FirstName: "Mark", LastName: "Cruz"}
)

func anaUser() *model.User {
	return &model.User{ID: 42, Role: model.RoleStudent, Email: "ana@example.com", FirstName: "Ana", LastName: "Reyes"}
}

func markUser() *model.User {
	return &model.User{ID: 7, Role: model.RoleInstructor, Email: "mark@example.com", FirstName: "Mark", LastName: "Cruz"}
}

func assertNoStore(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, "private, no-store", w.Header().Get("Cache-Control"))
}

var errDBDown = errors.New("connection refused")

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

