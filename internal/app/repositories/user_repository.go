package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/notespace/internal/app/models"
	"github.com/yigit/notespace/internal/db"
	"github.com/yigit/notespace/internal/pkg/apperrors"
	"github.com/yigit/notespace/internal/pkg/dberrors"
	"github.com/yigit/notespace/internal/pkg/logger"
)

// IUserRepository defines the interface for user-related database operations
type IUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// UserRepository handles user database operations
type UserRepository struct {
	db db.DBTX
	sb squirrel.StatementBuilderType
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(conn db.DBTX) *UserRepository {
	return &UserRepository{
		db: conn,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var userColumns = []string{"id", "name", "email", "password_hash", "created_at"}

// Create inserts a user and fills in its ID and creation time
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	sql, args, err := r.sb.Insert("users").
		Columns("name", "email", "password_hash").
		Values(user.Name, user.Email, user.PasswordHash).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create user SQL")
		return fmt.Errorf("failed to build create user query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&user.ID, &user.CreatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, dberrors.ConstraintUsersEmail) {
			return apperrors.ErrEmailAlreadyExists
		}
		logger.Error().Err(err).Str("email", user.Email).Msg("Error executing create user query")
		return fmt.Errorf("error creating user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves a user by normalized email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": email})
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Eq) (*models.User, error) {
	sql, args, err := r.sb.Select(userColumns...).
		From("users").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get user SQL")
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}

	user := &models.User{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		logger.Error().Err(err).Msg("Error scanning user row")
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}

	return user, nil
}

// EmailExists checks if an email already exists
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		logger.Error().Err(err).Msg("Error checking email existence")
		return false, fmt.Errorf("error checking email: %w", err)
	}
	return exists, nil
}
