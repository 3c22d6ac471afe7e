package model

import (
	"strings"
	"time"
)

// User is a portal account. Only the columns the viewer reads are mapped.
type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the display identity printed on a handout.
type Identity struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// FullName joins first and last name, skipping empty parts.
func (i Identity) FullName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// Identity returns the user's display identity.
func (u *User) Identity() Identity {
	return Identity{FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}

// LoginRequest is the payload for the login form.
type LoginRequest struct {
	Email    string `form:"email" json:"email" binding:"required,email,max=255"`
	Password string `form:"password" json:"password" binding:"required,min=6,max=128"`
	Next     string `form:"next" json:"next" binding:"omitempty,max=512"`
}

// CreateUserRequest is validated by the create-user command.
type CreateUserRequest struct {
	Email     string `json:"email" binding:"required,email,max=255"`
	FirstName string `json:"first_name" binding:"required,min=1,max=100"`
	LastName  string `json:"last_name" binding:"required,min=1,max=100"`
	Role      Role   `json:"role" binding:"required,oneof=student instructor admin"`
	Password  string `json:"password" binding:"required,min=6,max=128"`
}
