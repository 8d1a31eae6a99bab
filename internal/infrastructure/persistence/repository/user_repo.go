package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/expensehub/approval-workflow/internal/application/port"
	"github.com/expensehub/approval-workflow/internal/domain/entity"
	"github.com/expensehub/approval-workflow/internal/infrastructure/persistence/sqlite"
)

// UserRepository implements port.UserRepository over sqlite
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

const userColumns = `
	id, first_name, last_name, email, verified, role, api_token,
	created_at, updated_at
`

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (
			first_name, last_name, email, verified, role, api_token,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.Verified,
		string(user.Role),
		user.APIToken,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create user", zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	user.ID = id
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := r.scanUser(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByToken retrieves a user by API token
func (r *UserRepository) GetByToken(ctx context.Context, token string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE api_token = ?`

	user, err := r.scanUser(r.getExecutor(ctx).QueryRowContext(ctx, query, token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user by token", zap.Error(err))
		return nil, fmt.Errorf("failed to get user by token: %w", err)
	}
	return user, nil
}

// List retrieves all users ordered by creation time
func (r *UserRepository) List(ctx context.Context) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at ASC, id ASC`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// UpdateRole changes the role assigned to a user
func (r *UserRepository) UpdateRole(ctx context.Context, id int64, role entity.Role) error {
	query := `UPDATE users SET role = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, string(role), id)
	if err != nil {
		r.logger.Error("Failed to update user role",
			zap.Int64("id", id),
			zap.String("role", role.String()),
			zap.Error(err))
		return fmt.Errorf("failed to update user role: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return &entity.NotFoundError{Kind: "user", ID: id}
	}
	return nil
}

func (r *UserRepository) scanUser(row rowScanner) (*entity.User, error) {
	var user entity.User
	var role string

	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Verified,
		&role,
		&user.APIToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = entity.Role(role)
	return &user, nil
}

func (r *UserRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
