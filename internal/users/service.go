package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"visionreport/internal/sessions"
	"visionreport/internal/shared/telemetry"
	"visionreport/internal/shared/util"
)

const minPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

type Service struct {
	Repo     Repo
	Sessions sessions.Store

	cost int
	now  func() time.Time
}

func NewService(repo Repo, store sessions.Store) *Service {
	return &Service{
		Repo:     repo,
		Sessions: store,
		cost:     bcrypt.DefaultCost,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, email, password string) (User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if !usernamePattern.MatchString(username) {
		return User{}, fmt.Errorf("%w: username must be 3-32 letters, digits, '.', '_' or '-'", ErrInvalidInput)
	}
	if email != "" && !util.ValidEmail(email) {
		return User{}, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	user := User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	telemetry.Info("users.registered", map[string]any{"user_id": user.ID})
	return user, nil
}

// Login verifies credentials and opens a session. Unknown users and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (User, string, error) {
	user, err := s.Repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, "", ErrInvalidCredentials
		}
		return User{}, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		telemetry.Warn("users.login.failed", map[string]any{"user_id": user.ID})
		return User{}, "", ErrInvalidCredentials
	}
	token, err := s.Sessions.Create(sessions.Identity{UserID: user.ID, Username: user.Username})
	if err != nil {
		return User{}, "", fmt.Errorf("create session: %w", err)
	}
	telemetry.Info("users.login", map[string]any{"user_id": user.ID})
	return user, token, nil
}

// Logout destroys the session.
func (s *Service) Logout(token string) {
	if token != "" {
		s.Sessions.Invalidate(token)
	}
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userID)
}
