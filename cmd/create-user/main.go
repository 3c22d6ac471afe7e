package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/stemsi/handout-viewer/internal/config"
	"github.com/stemsi/handout-viewer/internal/database"
	"github.com/stemsi/handout-viewer/internal/logger"
	"github.com/stemsi/handout-viewer/internal/model"
	"github.com/stemsi/handout-viewer/internal/repository"
	"github.com/stemsi/handout-viewer/internal/service"
	"github.com/stemsi/handout-viewer/internal/validator"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	validator.Setup()

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	authService := service.NewAuthService(cfg, userRepo, nil)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)
	prompt := func(label string) string {
		fmt.Print(label)
		s, _ := reader.ReadString('\n')
		return strings.TrimSpace(s)
	}

	fmt.Println("=== Create Portal User ===")

	req := model.CreateUserRequest{
		FirstName: prompt("First name: "),
		LastName:  prompt("Last name: "),
		Email:     prompt("Email: "),
		Role:      model.Role(strings.ToLower(prompt("Role (student/instructor/admin) [student]: "))),
	}
	if req.Role == "" {
		req.Role = model.RoleStudent
	}

	fmt.Print("Password: ")
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		return
	}
	req.Password = string(pw)

	if fields := validator.Validate(&req); fields != nil {
		for field, msg := range fields {
			fmt.Printf("Error: %s: %s\n", field, msg)
		}
		os.Exit(1)
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	hash, err := authService.HashPassword(req.Password)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	user := &model.User{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         req.Role,
		PasswordHash: hash,
	}
	if err := userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			fmt.Printf("Error: %s already has an account\n", req.Email)
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Failed to create user")
	}

	fmt.Printf("\nCreated %s %s <%s> as %s with ID %d\n", user.FirstName, user.LastName, user.Email, user.Role, user.ID)
}
