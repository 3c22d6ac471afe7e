package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/handout-viewer/internal/model"
)

// AccessRepository runs the authorization counts behind the handout gate.
// Every query filters on course title so only the certification's classes count.
type AccessRepository struct {
	pool *pgxpool.Pool
}

// NewAccessRepository creates a new AccessRepository.
func NewAccessRepository(pool *pgxpool.Pool) *AccessRepository {
	return &AccessRepository{pool: pool}
}

// CountStudentClassAccess counts the student's granting enrollments in one class.
func (r *AccessRepository) CountStudentClassAccess(ctx context.Context, studentID, classID int, titleFilter string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM enrollments e
		 JOIN class_batches cb ON cb.id = e.class_id
		 JOIN courses c ON c.id = cb.course_id
		 WHERE e.student_id = $1
		   AND e.class_id = $2
		   AND e.status = ANY($3)
		   AND c.title ILIKE '%' || $4 || '%' ESCAPE '\'`,
		studentID, classID, model.GrantingStatuses(), EscapeLike(titleFilter),
	).Scan(&n)
	return n, err
}

// CountInstructorClassAccess counts classes with this ID assigned to the instructor.
func (r *AccessRepository) CountInstructorClassAccess(ctx context.Context, instructorID, classID int, titleFilter string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM class_batches cb
		 JOIN courses c ON c.id = cb.course_id
		 WHERE cb.id = $1
		   AND cb.instructor_id = $2
		   AND c.title ILIKE '%' || $3 || '%' ESCAPE '\'`,
		classID, instructorID, EscapeLike(titleFilter),
	).Scan(&n)
	return n, err
}

// CountStudentGeneralAccess counts the student's granting enrollments in any matching class.
func (r *AccessRepository) CountStudentGeneralAccess(ctx context.Context, studentID int, titleFilter string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM enrollments e
		 JOIN class_batches cb ON cb.id = e.class_id
		 JOIN courses c ON c.id = cb.course_id
		 WHERE e.student_id = $1
		   AND e.status = ANY($2)
		   AND c.title ILIKE '%' || $3 || '%' ESCAPE '\'`,
		studentID, model.GrantingStatuses(), EscapeLike(titleFilter),
	).Scan(&n)
	return n, err
}

// CountInstructorGeneralAccess counts matching classes assigned to the instructor.
func (r *AccessRepository) CountInstructorGeneralAccess(ctx context.Context, instructorID int, titleFilter string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*)
		 FROM class_batches cb
		 JOIN courses c ON c.id = cb.course_id
		 WHERE cb.instructor_id = $1
		   AND c.title ILIKE '%' || $2 || '%' ESCAPE '\'`,
		instructorID, EscapeLike(titleFilter),
	).Scan(&n)
	return n, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE metacharacters so the value matches literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
