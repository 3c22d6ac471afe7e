package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stemsi/handout-viewer/internal/config"
	"github.com/stemsi/handout-viewer/internal/database"
	"github.com/stemsi/handout-viewer/internal/logger"
	"github.com/stemsi/handout-viewer/internal/model"
	"github.com/stemsi/handout-viewer/internal/repository"
	"github.com/stemsi/handout-viewer/internal/service"
)

const demoPassword = "excel2019!"

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	s := &seeder{
		pool:    pool,
		users:   repository.NewUserRepository(pool),
		classes: repository.NewClassRepository(pool),
		auth:    service.NewAuthService(cfg, nil, nil),
		log:     log,
	}

	fmt.Println("=== Seeding MO-200 demo data ===")

	instructor := s.user(ctx, "mark.cruz@example.com", "Mark", "Cruz", model.RoleInstructor)
	student := s.user(ctx, "ana.reyes@example.com", "Ana", "Reyes", model.RoleStudent)
	dropped := s.user(ctx, "leo.santos@example.com", "Leo", "Santos", model.RoleStudent)
	s.user(ctx, "admin@example.com", "Portal", "Admin", model.RoleAdmin)

	excel := s.course(ctx, "Microsoft Excel (Office 2019) — MO-200")
	word := s.course(ctx, "Microsoft Word (Office 2019) — MO-100")

	excelBatch := s.batch(ctx, excel, instructor, "MO-200 Evening Batch")
	wordBatch := s.batch(ctx, word, instructor, "MO-100 Weekend Batch")

	s.enroll(ctx, student, excelBatch, model.EnrollmentActive)
	s.enroll(ctx, student, wordBatch, model.EnrollmentActive)
	s.enroll(ctx, dropped, excelBatch, model.EnrollmentDropped)

	fmt.Printf("\nSeed completed. Every demo account uses the password %q.\n", demoPassword)
	fmt.Printf("  Granted:  /handouts/week-2?class_id=%d as ana.reyes@example.com\n", excelBatch)
	fmt.Printf("  Denied:   /handouts/week-2?class_id=%d as ana.reyes@example.com\n", wordBatch)
	fmt.Printf("  Redirect: /handouts/week-2 as leo.santos@example.com\n")
}

type seeder struct {
	pool    *pgxpool.Pool
	users   *repository.UserRepository
	classes *repository.ClassRepository
	auth    *service.AuthService
	log     zerolog.Logger
}

func (s *seeder) user(ctx context.Context, email, first, last string, role model.Role) int {
	if u, err := s.users.GetByEmail(ctx, email); err == nil {
		fmt.Printf("Found %s (%s) with ID %d\n", email, u.Role, u.ID)
		return u.ID
	} else if !errors.Is(err, pgx.ErrNoRows) {
		s.log.Fatal().Err(err).Str("email", email).Msg("Failed to look up user")
	}

	hash, err := s.auth.HashPassword(demoPassword)
	if err != nil {
		s.log.Fatal().Err(err).Msg("Failed to hash password")
	}
	u := &model.User{Email: email, FirstName: first, LastName: last, Role: role, PasswordHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		s.log.Fatal().Err(err).Str("email", email).Msg("Failed to create user")
	}
	fmt.Printf("Created %s (%s) with ID %d\n", email, role, u.ID)
	return u.ID
}

func (s *seeder) course(ctx context.Context, title string) int {
	var id int
	err := s.pool.QueryRow(ctx, "SELECT id FROM courses WHERE title = $1", title).Scan(&id)
	if err == nil {
		return id
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		s.log.Fatal().Err(err).Str("title", title).Msg("Failed to look up course")
	}

	c := &model.Course{Title: title}
	if err := s.classes.CreateCourse(ctx, c); err != nil {
		s.log.Fatal().Err(err).Str("title", title).Msg("Failed to create course")
	}
	fmt.Printf("Created course %q with ID %d\n", title, c.ID)
	return c.ID
}

func (s *seeder) batch(ctx context.Context, courseID, instructorID int, name string) int {
	var id int
	err := s.pool.QueryRow(ctx,
		"SELECT id FROM class_batches WHERE course_id = $1 AND batch_name = $2", courseID, name,
	).Scan(&id)
	if err == nil {
		return id
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		s.log.Fatal().Err(err).Str("batch", name).Msg("Failed to look up class batch")
	}

	b := &model.ClassBatch{CourseID: courseID, InstructorID: instructorID, BatchName: name}
	if err := s.classes.Create(ctx, b); err != nil {
		s.log.Fatal().Err(err).Str("batch", name).Msg("Failed to create class batch")
	}
	fmt.Printf("Created class batch %q with ID %d\n", name, b.ID)
	return b.ID
}

func (s *seeder) enroll(ctx context.Context, studentID, classID int, status model.EnrollmentStatus) {
	e := &model.Enrollment{StudentID: studentID, ClassID: classID, Status: status}
	if err := s.classes.Enroll(ctx, e); err != nil {
		s.log.Fatal().Err(err).Int("student_id", studentID).Int("class_id", classID).Msg("Failed to enroll student")
	}
}
