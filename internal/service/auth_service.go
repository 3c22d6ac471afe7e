package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/handout-viewer/internal/config"
	"github.com/stemsi/handout-viewer/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRoleNotAllowed     = errors.New("account role cannot view handouts")
	ErrHandoffDisabled    = errors.New("handoff is not configured")
	ErrHandoffInvalid     = errors.New("invalid handoff token")
	ErrHandoffReused      = errors.New("handoff token already used")
)

// handoffTTL bounds tokens minted by IssueHandoffToken.
const handoffTTL = 2 * time.Minute

// HandoffClaims are issued by the portal when it sends a logged-in user to the viewer.
type HandoffClaims struct {
	jwt.RegisteredClaims
	UserID    int        `json:"user_id"`
	Role      model.Role `json:"role"`
	Email     string     `json:"email,omitempty"`
	FirstName string     `json:"first_name,omitempty"`
	LastName  string     `json:"last_name,omitempty"`
}

// Session converts the claims into the session written for the viewer.
func (c *HandoffClaims) Session() model.Session {
	return model.Session{
		UserID:    c.UserID,
		Role:      c.Role,
		Email:     c.Email,
		FirstName: c.FirstName,
		LastName:  c.LastName,
	}
}

// UserFinder looks accounts up by login email.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// NonceStore records spent handoff token IDs. *redis.Client satisfies it.
type NonceStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// AuthService handles password login and portal handoff tokens.
type AuthService struct {
	cfg    *config.Config
	users  UserFinder
	nonces NonceStore
}

// NewAuthService creates a new AuthService. nonces may be nil for tools that
// never accept handoff tokens; handoff is then disabled.
func NewAuthService(cfg *config.Config, users UserFinder, nonces NonceStore) *AuthService {
	return &AuthService{cfg: cfg, users: users, nonces: nonces}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Login verifies email and password and returns the session to establish.
// Accounts outside the viewer roles are rejected after the password check.
func (s *AuthService) Login(ctx context.Context, email, password string) (model.Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		// Burn a comparison so unknown emails take as long as bad passwords.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return model.Session{}, ErrInvalidCredentials
	}

	if err := s.CheckPassword(u.PasswordHash, password); err != nil {
		return model.Session{}, err
	}

	if !u.Role.Valid() {
		return model.Session{}, ErrRoleNotAllowed
	}

	return model.Session{
		UserID:    u.ID,
		Role:      u.Role,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}, nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("handout-viewer"), bcrypt.MinCost)

// HandoffEnabled reports whether handoff tokens can be accepted: a secret is
// configured and spent tokens can be recorded.
func (s *AuthService) HandoffEnabled() bool {
	return s.cfg.HandoffSecret != "" && s.nonces != nil
}

// IssueHandoffToken mints a handoff token the way the portal does.
func (s *AuthService) IssueHandoffToken(sess model.Session) (string, error) {
	if s.cfg.HandoffSecret == "" {
		return "", ErrHandoffDisabled
	}

	now := time.Now()
	claims := HandoffClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.cfg.HandoffIssuer,
			Subject:   strconv.Itoa(sess.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(handoffTTL)),
		},
		UserID:    sess.UserID,
		Role:      sess.Role,
		Email:     sess.Email,
		FirstName: sess.FirstName,
		LastName:  sess.LastName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.HandoffSecret))
}

// ValidateHandoffToken parses a portal handoff token and spends it. A token is
// accepted once; later uses fail with ErrHandoffReused. Errors from the nonce
// store are returned unwrapped by ErrHandoffInvalid.
func (s *AuthService) ValidateHandoffToken(ctx context.Context, tokenStr string) (*HandoffClaims, error) {
	if !s.HandoffEnabled() {
		return nil, ErrHandoffDisabled
	}

	token, err := jwt.ParseWithClaims(tokenStr, &HandoffClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.HandoffSecret), nil
	},
		jwt.WithIssuer(s.cfg.HandoffIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHandoffInvalid, err)
	}

	claims, ok := token.Claims.(*HandoffClaims)
	if !ok || !token.Valid {
		return nil, ErrHandoffInvalid
	}
	if claims.UserID <= 0 || !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: %w", ErrHandoffInvalid, ErrRoleNotAllowed)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrHandoffInvalid)
	}

	if err := s.spend(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// spend marks the token ID as used until the token would have expired anyway.
func (s *AuthService) spend(ctx context.Context, claims *HandoffClaims) error {
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return fmt.Errorf("%w: expired", ErrHandoffInvalid)
	}

	fresh, err := s.nonces.SetNX(ctx, config.CacheKey.HandoffKey(claims.ID), claims.UserID, ttl).Result()
	if err != nil {
		return fmt.Errorf("record handoff token: %w", err)
	}
	if !fresh {
		return fmt.Errorf("%w: %w", ErrHandoffInvalid, ErrHandoffReused)
	}
	return nil
}
