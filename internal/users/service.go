package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"docflow-backend/internal/shared/telemetry"
	"docflow-backend/internal/shared/validation"
)

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// CreateInput describes a new directory entry.
type CreateInput struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName" validate:"max=200"`
	Role     string `json:"role" validate:"required,oneof=user supervisor admin"`
}

// UpdateInput carries optional changes to an existing user.
type UpdateInput struct {
	FullName *string `json:"fullName" validate:"omitempty,max=200"`
	Role     *string `json:"role" validate:"omitempty,oneof=user supervisor admin"`
	IsActive *bool   `json:"isActive"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	in.Email = normalizeEmail(in.Email)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if err := validation.Struct(in); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	role, _ := ParseRole(in.Role)
	user := User{
		ID:       uuid.NewString(),
		Email:    in.Email,
		FullName: strings.TrimSpace(in.FullName),
		Role:     role,
		IsActive: true,
	}
	if err := s.Repo.Upsert(ctx, user); err != nil {
		return User{}, err
	}
	created, err := s.Repo.GetByID(ctx, user.ID)
	if err != nil {
		return User{}, err
	}
	telemetry.Info("user.created", map[string]any{"user_id": created.ID, "role": string(created.Role)})
	return created, nil
}

func (s *Service) Update(ctx context.Context, userID string, in UpdateInput) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if err := validation.Struct(in); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if in.FullName != nil {
		user.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Role != nil {
		role, ok := ParseRole(*in.Role)
		if !ok {
			return User{}, ErrInvalidInput
		}
		user.Role = role
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if err := s.Repo.Upsert(ctx, user); err != nil {
		return User{}, err
	}
	return s.Repo.GetByID(ctx, user.ID)
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userID)
}

// FindByEmail resolves a user by email, case-insensitively.
func (s *Service) FindByEmail(ctx context.Context, email string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if normalizeEmail(email) == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.FindByEmail(ctx, email)
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	if s == nil || s.Repo == nil {
		return nil, errors.New("users service not configured")
	}
	return s.Repo.List(ctx)
}
