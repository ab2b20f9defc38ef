package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/toko-backend/internal/domain"
	"github.com/josh-kwaku/toko-backend/internal/logging"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type UserService struct {
	users userRepository
	cost  int
}

func NewUserService(users userRepository) *UserService {
	return &UserService{users: users, cost: bcrypt.DefaultCost}
}

// Authenticate checks an email/password pair. Unknown emails and wrong
// passwords return the same error.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Authenticate: %w", ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("Authenticate: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("Authenticate: %w", ErrInvalidCredentials)
	}
	return user, nil
}

type CreateUserRequest struct {
	Email    string
	Name     string
	Password string
	Role     domain.Role
}

func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error) {
	log := logging.FromContext(ctx)

	if !req.Role.IsValid() {
		return nil, fmt.Errorf("CreateUser: role %q: %w", req.Role, domain.ErrInvalidRequest)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("CreateUser: email and password required: %w", domain.ErrInvalidRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("CreateUser: hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Role:         req.Role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("CreateUser: %w", err)
	}

	log.Info("user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}
