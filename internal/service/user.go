package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shivanand-hulikatti/samudaya-events/internal/model"
	"github.com/Shivanand-hulikatti/samudaya-events/internal/repository"
)

// UserService manages member records.
type UserService struct {
	users         repository.UserStore
	registrations repository.RegistrationStore
	log           *slog.Logger
}

// NewUserService constructs a UserService.
func NewUserService(users repository.UserStore, registrations repository.RegistrationStore, log *slog.Logger) *UserService {
	return &UserService{users: users, registrations: registrations, log: log}
}

// CreateUser validates and stores a new member.
func (s *UserService) CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, model.Invalid("name is required")
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" {
		return nil, model.Invalid("email is required")
	}
	if !isValidEmail(email) {
		return nil, model.Invalid("email is not a valid email address")
	}
	role := req.Role
	if role == "" {
		role = model.RoleUser
	}
	if role != model.RoleUser && role != model.RoleAdmin {
		return nil, model.Invalid("unknown role %q", role)
	}

	u := &model.User{Name: name, Email: email, Role: role}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.log.Info("user created", slog.String("user_id", u.ID), slog.String("role", string(u.Role)))
	return u, nil
}

// GetUser returns a user by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, model.Invalid("user id is required")
	}
	return s.users.FindByID(ctx, id)
}

// ListUserEvents returns the events a user is registered for.
func (s *UserService) ListUserEvents(ctx context.Context, userID string) ([]model.Event, error) {
	ok, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return s.registrations.ListEventsByUser(ctx, userID)
}

// isValidEmail does a basic structural check.
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}
