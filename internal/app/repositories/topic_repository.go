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
	"github.com/yigit/notespace/internal/pkg/logger"
)

// ITopicRepository defines the interface for topic database operations
type ITopicRepository interface {
	List(ctx context.Context) ([]*models.Topic, error)
	Create(ctx context.Context, topic *models.Topic) error
	GetByID(ctx context.Context, id int64) (*models.Topic, error)
	Count(ctx context.Context) (int64, error)
}

// TopicRepository handles topic database operations
type TopicRepository struct {
	db db.DBTX
	sb squirrel.StatementBuilderType
}

// NewTopicRepository creates a new TopicRepository
func NewTopicRepository(conn db.DBTX) *TopicRepository {
	return &TopicRepository{
		db: conn,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// List returns all topics, newest first
func (r *TopicRepository) List(ctx context.Context) ([]*models.Topic, error) {
	sql, args, err := r.sb.Select("id", "name", "deadline", "created_at").
		From("topics").
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list topics SQL")
		return nil, fmt.Errorf("failed to build list topics query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list topics query")
		return nil, fmt.Errorf("error listing topics: %w", err)
	}
	defer rows.Close()

	topics := make([]*models.Topic, 0)
	for rows.Next() {
		t := &models.Topic{}
		if err := rows.Scan(&t.ID, &t.Name, &t.Deadline, &t.CreatedAt); err != nil {
			logger.Error().Err(err).Msg("Error scanning topic row")
			return nil, fmt.Errorf("error scanning topic: %w", err)
		}
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating topics: %w", err)
	}

	return topics, nil
}

// Create inserts a topic and fills in its ID and creation time
func (r *TopicRepository) Create(ctx context.Context, topic *models.Topic) error {
	sql, args, err := r.sb.Insert("topics").
		Columns("name", "deadline").
		Values(topic.Name, topic.Deadline).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create topic SQL")
		return fmt.Errorf("failed to build create topic query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&topic.ID, &topic.CreatedAt); err != nil {
		logger.Error().Err(err).Str("name", topic.Name).Msg("Error executing create topic query")
		return fmt.Errorf("error creating topic: %w", err)
	}
	return nil
}

// GetByID retrieves a topic by ID
func (r *TopicRepository) GetByID(ctx context.Context, id int64) (*models.Topic, error) {
	sql, args, err := r.sb.Select("id", "name", "deadline", "created_at").
		From("topics").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get topic SQL")
		return nil, fmt.Errorf("failed to build get topic query: %w", err)
	}

	t := &models.Topic{}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&t.ID, &t.Name, &t.Deadline, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTopicNotFound
		}
		logger.Error().Err(err).Int64("topicID", id).Msg("Error scanning topic row")
		return nil, fmt.Errorf("error retrieving topic: %w", err)
	}
	return t, nil
}

// Count returns the number of topics
func (r *TopicRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM topics`).Scan(&n); err != nil {
		logger.Error().Err(err).Msg("Error counting topics")
		return 0, fmt.Errorf("error counting topics: %w", err)
	}
	return n, nil
}
