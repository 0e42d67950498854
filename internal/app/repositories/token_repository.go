package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/notespace/internal/app/models"
	"github.com/yigit/notespace/internal/db"
	"github.com/yigit/notespace/internal/pkg/logger"
)

// ITokenRepository defines the interface for revoked access token storage
type ITokenRepository interface {
	Revoke(ctx context.Context, token *models.RevokedToken) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenRepository handles revoked token database operations
type TokenRepository struct {
	db db.DBTX
	sb squirrel.StatementBuilderType
}

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(conn db.DBTX) *TokenRepository {
	return &TokenRepository{
		db: conn,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Revoke stores a token ID until its expiry. Revoking twice is not an error.
func (r *TokenRepository) Revoke(ctx context.Context, token *models.RevokedToken) error {
	sql, args, err := r.sb.Insert("revoked_tokens").
		Columns("jti", "user_id", "expires_at").
		Values(token.JTI, token.UserID, token.ExpiresAt).
		Suffix("ON CONFLICT (jti) DO NOTHING").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building revoke token SQL")
		return fmt.Errorf("failed to build revoke token query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Int64("userID", token.UserID).Msg("Error executing revoke token query")
		return fmt.Errorf("error revoking token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a token ID has been revoked
func (r *TokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti = $1)`, jti).Scan(&revoked)
	if err != nil {
		logger.Error().Err(err).Msg("Error checking token revocation")
		return false, fmt.Errorf("error checking token revocation: %w", err)
	}
	return revoked, nil
}

// DeleteExpired removes revocations whose tokens have expired anyway
func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	sql, args, err := r.sb.Delete("revoked_tokens").
		Where(squirrel.Lt{"expires_at": now}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete expired tokens query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error deleting expired revoked tokens")
		return 0, fmt.Errorf("error deleting expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
