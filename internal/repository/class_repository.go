package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/handout-viewer/internal/model"
)

// ClassRepository handles class batch data access.
type ClassRepository struct {
	pool *pgxpool.Pool
}

// NewClassRepository creates a new ClassRepository.
func NewClassRepository(pool *pgxpool.Pool) *ClassRepository {
	return &ClassRepository{pool: pool}
}

// GetByID retrieves a class batch by its ID.
func (r *ClassRepository) GetByID(ctx context.Context, id int) (*model.ClassBatch, error) {
	c := &model.ClassBatch{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, course_id, instructor_id, batch_name, created_at
		 FROM class_batches WHERE id = $1`, id,
	).Scan(&c.ID, &c.CourseID, &c.InstructorID, &c.BatchName, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetInstructor retrieves the instructor assigned to a class batch.
func (r *ClassRepository) GetInstructor(ctx context.Context, classID int) (*model.User, error) {
	u := &model.User{}
	err := r.pool.QueryRow(ctx,
		`SELECT u.id, u.email, COALESCE(u.first_name, ''), COALESCE(u.last_name, ''), u.role
		 FROM class_batches cb
		 JOIN users u ON u.id = cb.instructor_id
		 WHERE cb.id = $1`, classID,
	).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateCourse inserts a course and returns it with its ID. Used by seeding.
func (r *ClassRepository) CreateCourse(ctx context.Context, c *model.Course) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO courses (title) VALUES ($1) RETURNING id`, c.Title,
	).Scan(&c.ID)
}

// Create inserts a class batch. Used by seeding.
func (r *ClassRepository) Create(ctx context.Context, c *model.ClassBatch) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO class_batches (course_id, instructor_id, batch_name)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		c.CourseID, c.InstructorID, c.BatchName,
	).Scan(&c.ID, &c.CreatedAt)
}

// Enroll inserts or updates a student's enrollment in a class batch. Used by seeding.
func (r *ClassRepository) Enroll(ctx context.Context, e *model.Enrollment) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO enrollments (student_id, class_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (student_id, class_id) DO UPDATE SET status = EXCLUDED.status
		 RETURNING id`,
		e.StudentID, e.ClassID, e.Status,
	).Scan(&e.ID)
}
