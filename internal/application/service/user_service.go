package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/expensehub/approval-workflow/internal/application/port"
	"github.com/expensehub/approval-workflow/internal/domain/authz"
	"github.com/expensehub/approval-workflow/internal/domain/entity"
	"github.com/expensehub/approval-workflow/pkg/utils"
)

// UserService manages user accounts and role assignment. Role changes are an
// ADMIN-only capability and take effect immediately: authorization decisions
// always read the role stored on the user record, never a cached copy.
type UserService interface {
	Create(ctx context.Context, input CreateUserInput, actor *entity.User) (*entity.User, error)
	List(ctx context.Context, actor *entity.User) ([]*entity.User, error)
	AssignRole(ctx context.Context, userID int64, newRole entity.Role, actor *entity.User) (*entity.User, error)
}

// CreateUserInput is the validated shape for creating an account. Role is
// optional and defaults to USER.
type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Role      entity.Role
}

type userServiceImpl struct {
	userRepo port.UserRepository
	logger   Logger
}

// NewUserService creates a new UserService
func NewUserService(userRepo port.UserRepository, logger Logger) UserService {
	return &userServiceImpl{
		userRepo: userRepo,
		logger:   logger,
	}
}

// Create adds a user account with a freshly generated API token. ADMIN only.
func (s *userServiceImpl) Create(ctx context.Context, input CreateUserInput, actor *entity.User) (*entity.User, error) {
	if !authz.CanAssignRoles(actor.Role) {
		return nil, &entity.ForbiddenError{Reason: "user management requires ADMIN role"}
	}

	if input.FirstName == "" {
		return nil, &entity.ValidationError{Field: "first_name", Reason: "is required"}
	}
	if input.LastName == "" {
		return nil, &entity.ValidationError{Field: "last_name", Reason: "is required"}
	}
	if err := utils.ValidateEmail(input.Email); err != nil {
		return nil, &entity.ValidationError{Field: "email", Reason: "is not a valid email address"}
	}

	role := input.Role
	if role == "" {
		role = entity.RoleUser
	}
	if !role.IsValid() {
		return nil, &entity.ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", role)}
	}

	token, err := generateAPIToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate api token: %w", err)
	}

	user := &entity.User{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Role:      role,
		APIToken:  token,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		s.logger.Error("Failed to create user", "error", err, "email", input.Email)
		return nil, err
	}

	s.logger.Info("User created",
		"user_id", user.ID,
		"role", string(role),
		"actor_id", actor.ID)

	return user, nil
}

// generateAPIToken returns a 64 character hex bearer token.
func generateAPIToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// List returns all users. ADMIN only.
func (s *userServiceImpl) List(ctx context.Context, actor *entity.User) ([]*entity.User, error) {
	if !authz.CanAssignRoles(actor.Role) {
		return nil, &entity.ForbiddenError{Reason: "user management requires ADMIN role"}
	}
	return s.userRepo.List(ctx)
}

// AssignRole changes a user's role. ADMIN only.
func (s *userServiceImpl) AssignRole(ctx context.Context, userID int64, newRole entity.Role, actor *entity.User) (*entity.User, error) {
	if !authz.CanAssignRoles(actor.Role) {
		return nil, &entity.ForbiddenError{Reason: "role assignment requires ADMIN role"}
	}
	if !newRole.IsValid() {
		return nil, &entity.ValidationError{Field: "role", Reason: fmt.Sprintf("unknown role %q", newRole)}
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &entity.NotFoundError{Kind: "user", ID: userID}
	}

	if err := s.userRepo.UpdateRole(ctx, userID, newRole); err != nil {
		s.logger.Error("Failed to update role", "error", err, "user_id", userID, "role", string(newRole))
		return nil, err
	}

	s.logger.Info("Role assigned",
		"user_id", userID,
		"previous_role", string(user.Role),
		"new_role", string(newRole),
		"actor_id", actor.ID)

	user.Role = newRole
	return user, nil
}
