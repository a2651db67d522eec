package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agrokasa/advert_market/internal/hash"
	"github.com/agrokasa/advert_market/internal/logging"
	"github.com/agrokasa/advert_market/internal/models"
	"github.com/agrokasa/advert_market/internal/mykafka"
	"github.com/agrokasa/advert_market/internal/tokens"
)

const MinPasswordLength = 8

type AuthService struct {
	Users  UserStore
	Tokens *tokens.Issuer
	Events mykafka.Publisher
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *models.User
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user or vendor account. Admins are never self-registered.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	if username == "" || email == "" {
		return nil, fmt.Errorf("%w: username and email are required", ErrInvalidArgument)
	}
	if len(in.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidArgument, MinPasswordLength)
	}

	role := models.Role(strings.TrimSpace(in.Role))
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleVendor {
		return nil, fmt.Errorf("%w: role must be 'user' or 'vendor'", ErrInvalidArgument)
	}

	taken, err := s.Users.EmailTaken(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: user already exists", ErrConflict)
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
		Role:         role,
	}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	publish(ctx, s.Events, mykafka.TopicUserEvents, user.ID.String(), UserEvent{
		Type:   "user_registered",
		UserID: user.ID.String(),
		Role:   string(user.Role),
		At:     time.Now().UTC(),
	})
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.Users.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("%w: incorrect email or password", ErrUnauthorized)
	}

	token, exp, err := s.Tokens.Issue(user.ID.String(), string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	publish(ctx, s.Events, mykafka.TopicUserEvents, user.ID.String(), UserEvent{
		Type:   "user_logged_in",
		UserID: user.ID.String(),
		Role:   string(user.Role),
		At:     time.Now().UTC(),
	})

	return &LoginResult{AccessToken: token, ExpiresAt: exp, User: user}, nil
}

// ResolveUser verifies raw and loads its subject. The role is taken from the
// stored user, not from the token.
func (s *AuthService) ResolveUser(ctx context.Context, raw string) (*models.User, error) {
	claims, err := s.Tokens.Verify(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed subject", ErrUnauthorized)
	}

	user, err := s.Users.UserByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUnknownSubject
		}
		return nil, err
	}
	return user, nil
}
