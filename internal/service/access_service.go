package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/handout-viewer/internal/config"
	"github.com/stemsi/handout-viewer/internal/metrics"
	"github.com/stemsi/handout-viewer/internal/model"
)

// Access gate errors.
var (
	ErrUnauthenticated = errors.New("no valid viewer session")
	ErrAccessDenied    = errors.New("no access to this class")
	ErrNoCourseAccess  = errors.New("no enrollment or assignment in the course")
	ErrInfrastructure  = errors.New("database unavailable")
)

// AccessStore runs the authorization counts.
type AccessStore interface {
	CountStudentClassAccess(ctx context.Context, studentID, classID int, titleFilter string) (int, error)
	CountInstructorClassAccess(ctx context.Context, instructorID, classID int, titleFilter string) (int, error)
	CountStudentGeneralAccess(ctx context.Context, studentID int, titleFilter string) (int, error)
	CountInstructorGeneralAccess(ctx context.Context, instructorID int, titleFilter string) (int, error)
}

// UserLookup reads a user's display fields.
type UserLookup interface {
	GetByID(ctx context.Context, id int) (*model.User, error)
}

// InstructorLookup finds the instructor assigned to a class.
type InstructorLookup interface {
	GetInstructor(ctx context.Context, classID int) (*model.User, error)
}

// ViewerRequest carries everything the gate needs about one handout request.
type ViewerRequest struct {
	Session  *model.Session
	Class    model.ClassContext
	LessonID string
	Download bool
}

// AccessDecision is the result of Authorize.
type AccessDecision struct {
	Scope   model.AccessScope
	Outcome model.AccessOutcome
	Matches int
}

// AccessService decides whether a session may view course handouts and
// gathers the identity printed on them.
type AccessService struct {
	access      AccessStore
	users       UserLookup
	classes     InstructorLookup
	titleFilter string
	defaultName string
	defaultMail string
	log         zerolog.Logger
}

// NewAccessService creates a new AccessService.
func NewAccessService(
	access AccessStore,
	users UserLookup,
	classes InstructorLookup,
	cfg *config.Config,
	log zerolog.Logger,
) *AccessService {
	return &AccessService{
		access:      access,
		users:       users,
		classes:     classes,
		titleFilter: cfg.CourseTitleFilter,
		defaultName: cfg.DefaultInstructorName,
		defaultMail: cfg.DefaultInstructorEmail,
		log:         log.With().Str("component", "access_gate").Logger(),
	}
}

// ValidateSession checks that a session exists and carries a viewer role.
// It never touches the database.
func (s *AccessService) ValidateSession(sess *model.Session) error {
	if sess == nil || sess.UserID <= 0 || !sess.Role.Valid() {
		return ErrUnauthenticated
	}
	return nil
}

// ParseClassID turns the raw class_id parameter into a ClassContext.
// Anything that is not a positive base-10 integer yields an absent class.
func (s *AccessService) ParseClassID(raw string) model.ClassContext {
	return ParseClassID(raw)
}

// ParseClassID is the stateless form of AccessService.ParseClassID.
func ParseClassID(raw string) model.ClassContext {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.ClassContext{}
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return model.ClassContext{}
	}
	return model.ClassContext{ID: id}
}

// Authorize runs the role-specific access query.
//
// With a class, zero matches return ErrAccessDenied. Without one, the general
// query runs and zero matches return ErrNoCourseAccess. Query failures are
// wrapped in ErrInfrastructure.
func (s *AccessService) Authorize(ctx context.Context, req ViewerRequest) (AccessDecision, error) {
	if err := s.ValidateSession(req.Session); err != nil {
		return AccessDecision{}, err
	}

	userID, role := req.Session.UserID, req.Session.Role

	decision := AccessDecision{Scope: model.ScopeGeneral}
	if req.Class.Present() {
		decision.Scope = model.ScopeClass
	}

	n, err := s.count(ctx, userID, role, req.Class)
	if err != nil {
		s.log.Error().Err(err).
			Int("user_id", userID).
			Str("role", role.String()).
			Str("scope", string(decision.Scope)).
			Msg("Access query failed")
		return decision, fmt.Errorf("%w: %w", ErrInfrastructure, err)
	}
	decision.Matches = n

	switch {
	case n > 0:
		decision.Outcome = model.OutcomeGranted
		err = nil
	case decision.Scope == model.ScopeClass:
		decision.Outcome = model.OutcomeDenied
		err = ErrAccessDenied
	default:
		decision.Outcome = model.OutcomeRedirected
		err = ErrNoCourseAccess
	}

	metrics.ObserveAccess(role.String(), string(decision.Scope), string(decision.Outcome))
	s.log.Info().
		Int("user_id", userID).
		Str("role", role.String()).
		Str("scope", string(decision.Scope)).
		Int("class_id", req.Class.ID).
		Str("lesson", req.LessonID).
		Int("matches", n).
		Str("outcome", string(decision.Outcome)).
		Msg("Access decision")

	return decision, err
}

func (s *AccessService) count(ctx context.Context, userID int, role model.Role, class model.ClassContext) (int, error) {
	switch {
	case role == model.RoleStudent && class.Present():
		return s.access.CountStudentClassAccess(ctx, userID, class.ID, s.titleFilter)
	case role == model.RoleInstructor && class.Present():
		return s.access.CountInstructorClassAccess(ctx, userID, class.ID, s.titleFilter)
	case role == model.RoleStudent:
		return s.access.CountStudentGeneralAccess(ctx, userID, s.titleFilter)
	case role == model.RoleInstructor:
		return s.access.CountInstructorGeneralAccess(ctx, userID, s.titleFilter)
	}
	return 0, fmt.Errorf("no access query for role %q", role)
}

// ResolveIdentity reads the viewer's display fields from users.
// On any failure it returns the values cached in the session.
func (s *AccessService) ResolveIdentity(ctx context.Context, sess *model.Session) model.Identity {
	cached := sess.Identity()
	if sess == nil {
		return cached
	}

	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		s.log.Warn().Err(err).Int("user_id", sess.UserID).Msg("Identity lookup failed, using session values")
		return cached
	}
	return u.Identity()
}

// ResolveInstructor returns the instructor to print on the handout: the class's
// assigned instructor when a class is given, otherwise the viewer (when they
// are an instructor) or the configured default.
func (s *AccessService) ResolveInstructor(ctx context.Context, sess *model.Session, class model.ClassContext) model.InstructorInfo {
	if class.Present() {
		u, err := s.classes.GetInstructor(ctx, class.ID)
		if err == nil {
			if info, ok := instructorFrom(u.Identity(), model.InstructorFromClass); ok {
				return info
			}
		} else {
			s.log.Warn().Err(err).Int("class_id", class.ID).Msg("Instructor lookup failed, using fallback")
		}
	}

	if sess != nil && sess.Role == model.RoleInstructor {
		if info, ok := instructorFrom(sess.Identity(), model.InstructorFromSession); ok {
			return info
		}
	}

	return model.InstructorInfo{
		Name:   s.defaultName,
		Email:  s.defaultMail,
		Source: model.InstructorFromDefault,
	}
}

func instructorFrom(id model.Identity, source model.InstructorSource) (model.InstructorInfo, bool) {
	name := id.FullName()
	if name == "" {
		name = id.Email
	}
	if name == "" {
		return model.InstructorInfo{}, false
	}
	return model.InstructorInfo{Name: name, Email: id.Email, Source: source}, true
}
