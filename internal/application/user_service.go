package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coursebind/user-service/internal/domain/entity"
	repo "github.com/coursebind/user-service/internal/domain/repository"
	"github.com/coursebind/user-service/pkg/helpers"
)

var (
	ErrEmailInUse         = errors.New("email already in use")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrDuplicateIdentity  = errors.New("duplicate identity")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// Service implements the credential lifecycle workflows: registration,
// authentication, and profile reads. It holds no mutable state; every
// invocation is independent and the repository is the only shared
// resource.
type Service struct {
	Repo   repo.UserRepository
	Hasher *helpers.PasswordHasher
	JWT    *helpers.JWTManager
	Logger *logrus.Logger
}

func NewService(repo repo.UserRepository, hasher *helpers.PasswordHasher, jwt *helpers.JWTManager, logger *logrus.Logger) *Service {
	return &Service{Repo: repo, Hasher: hasher, JWT: jwt, Logger: logger}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     entity.Role
}

// Register creates a new user with a hashed password. The email and
// username pre-checks give specific errors for the common case; the
// authoritative uniqueness guarantee is the repository's atomic Create,
// whose conflict surfaces as ErrDuplicateIdentity (retryable by the
// caller).
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	if _, err := s.Repo.GetByUsername(ctx, in.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = entity.DefaultRole
	}

	u := &entity.User{
		Username:     in.Username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateKey) {
			// Lost the race between the pre-checks and the insert.
			return nil, ErrDuplicateIdentity
		}
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("user registered")
	}
	return u, nil
}

// LoginResult carries the issued token and the claims snapshot it embeds.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	UserID    string
	Email     string
	Role      entity.Role
}

// Login verifies credentials and issues a bearer token. A missing
// account and a wrong password return the same error so callers cannot
// enumerate registered emails.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.Repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.Hasher.Verify(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.JWT.Generate(u)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("token generation failed")
		}
		return nil, err
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: exp,
		UserID:    u.ID,
		Email:     u.Email,
		Role:      u.Role,
	}, nil
}

// Profile is the read-only projection of a user with the password hash
// stripped. It is built fresh on every request and never cached.
type Profile struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      entity.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// GetProfile loads a user by id and projects it without sensitive fields.
func (s *Service) GetProfile(ctx context.Context, id string) (*Profile, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &Profile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}, nil
}

// VerifyToken validates a presented bearer token and returns its claims.
func (s *Service) VerifyToken(token string) (*helpers.Claims, error) {
	return s.JWT.Parse(token)
}
