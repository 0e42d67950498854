package repositories

import (
	"context"
	"encoding/json"
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

// IMetaDocumentRepository defines the interface for meta document database operations.
// Status updates are guarded by the expected current status so that only the
// pending -> processing -> completed|failed edges can be taken.
type IMetaDocumentRepository interface {
	Create(ctx context.Context, doc *models.MetaDocument) error
	GetByID(ctx context.Context, id int64) (*models.MetaDocument, error)
	GetLatestByTopic(ctx context.Context, topicID int64) (*models.MetaDocument, error)
	List(ctx context.Context, topicID *int64) ([]*models.MetaDocument, error)
	MarkProcessing(ctx context.Context, id int64) error
	Complete(ctx context.Context, id int64, result *models.MetaDocumentResult) error
	Fail(ctx context.Context, id int64, message string) error
	FailActive(ctx context.Context, message string) (int64, error)
}

// MetaDocumentRepository handles meta document database operations
type MetaDocumentRepository struct {
	db db.DBTX
	sb squirrel.StatementBuilderType
}

// NewMetaDocumentRepository creates a new MetaDocumentRepository
func NewMetaDocumentRepository(conn db.DBTX) *MetaDocumentRepository {
	return &MetaDocumentRepository{
		db: conn,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var activeStatuses = []string{string(models.StatusPending), string(models.StatusProcessing)}

// Create inserts a new pending run for a topic
func (r *MetaDocumentRepository) Create(ctx context.Context, doc *models.MetaDocument) error {
	sql, args, err := r.sb.Insert("meta_documents").
		Columns("topic_id", "note_id", "processing_status").
		Values(doc.TopicID, doc.NoteID, string(models.StatusPending)).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create meta document SQL")
		return fmt.Errorf("failed to build create meta document query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		switch {
		case dberrors.IsDuplicateConstraintError(err, dberrors.ConstraintMetaDocumentsActive):
			return apperrors.ErrProcessingInProgress
		case dberrors.IsForeignKeyError(err, dberrors.ConstraintMetaDocumentsTopic):
			return apperrors.ErrTopicNotFound
		}
		logger.Error().Err(err).Int64("topicID", doc.TopicID).Msg("Error executing create meta document query")
		return fmt.Errorf("error creating meta document: %w", err)
	}

	doc.ProcessingStatus = models.StatusPending
	doc.SourceFilenames = []string{}
	return nil
}

func (r *MetaDocumentRepository) selectDocs() squirrel.SelectBuilder {
	return r.sb.Select(
		"m.id", "m.topic_id", "m.note_id", "m.synthesized_content", "m.source_filenames",
		"m.chunk_count", "m.token_count", "m.processing_status", "m.error_message",
		"m.created_at", "m.updated_at", "t.name",
	).
		From("meta_documents m").
		Join("topics t ON t.id = m.topic_id")
}

func scanMetaDocument(row pgx.Row) (*models.MetaDocument, error) {
	var (
		d       = &models.MetaDocument{}
		sources []byte
		status  string
	)
	err := row.Scan(
		&d.ID, &d.TopicID, &d.NoteID, &d.SynthesizedContent, &sources,
		&d.ChunkCount, &d.TokenCount, &status, &d.ErrorMessage,
		&d.CreatedAt, &d.UpdatedAt, &d.TopicName,
	)
	if err != nil {
		return nil, err
	}

	d.ProcessingStatus = models.ProcessingStatus(status)
	d.SourceFilenames = []string{}
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &d.SourceFilenames); err != nil {
			return nil, fmt.Errorf("invalid source_filenames: %w", err)
		}
	}
	return d, nil
}

// GetByID retrieves a meta document with its topic name
func (r *MetaDocumentRepository) GetByID(ctx context.Context, id int64) (*models.MetaDocument, error) {
	return r.getOne(ctx, r.selectDocs().Where(squirrel.Eq{"m.id": id}))
}

// GetLatestByTopic returns the most recent run for a topic
func (r *MetaDocumentRepository) GetLatestByTopic(ctx context.Context, topicID int64) (*models.MetaDocument, error) {
	return r.getOne(ctx, r.selectDocs().
		Where(squirrel.Eq{"m.topic_id": topicID}).
		OrderBy("m.created_at DESC", "m.id DESC").
		Limit(1))
}

func (r *MetaDocumentRepository) getOne(ctx context.Context, q squirrel.SelectBuilder) (*models.MetaDocument, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get meta document SQL")
		return nil, fmt.Errorf("failed to build get meta document query: %w", err)
	}

	doc, err := scanMetaDocument(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMetaDocumentNotFound
		}
		logger.Error().Err(err).Msg("Error scanning meta document row")
		return nil, fmt.Errorf("error retrieving meta document: %w", err)
	}
	return doc, nil
}

// List returns meta documents, optionally for one topic, newest first
func (r *MetaDocumentRepository) List(ctx context.Context, topicID *int64) ([]*models.MetaDocument, error) {
	q := r.selectDocs()
	if topicID != nil {
		q = q.Where(squirrel.Eq{"m.topic_id": *topicID})
	}

	sql, args, err := q.OrderBy("m.created_at DESC", "m.id DESC").ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list meta documents SQL")
		return nil, fmt.Errorf("failed to build list meta documents query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list meta documents query")
		return nil, fmt.Errorf("error listing meta documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*models.MetaDocument, 0)
	for rows.Next() {
		d, err := scanMetaDocument(rows)
		if err != nil {
			logger.Error().Err(err).Msg("Error scanning meta document row")
			return nil, fmt.Errorf("error scanning meta document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meta documents: %w", err)
	}
	return docs, nil
}

// MarkProcessing moves a pending run to processing
func (r *MetaDocumentRepository) MarkProcessing(ctx context.Context, id int64) error {
	return r.transition(ctx, id, []string{string(models.StatusPending)}, squirrel.Eq{
		"processing_status": string(models.StatusProcessing),
	})
}

// Complete stores the synthesized content of a processing run
func (r *MetaDocumentRepository) Complete(ctx context.Context, id int64, result *models.MetaDocumentResult) error {
	sources, err := json.Marshal(nonNil(result.SourceFilenames))
	if err != nil {
		return fmt.Errorf("failed to encode source filenames: %w", err)
	}

	return r.transition(ctx, id, []string{string(models.StatusProcessing)}, squirrel.Eq{
		"processing_status":   string(models.StatusCompleted),
		"synthesized_content": result.Content,
		"source_filenames":    sources,
		"chunk_count":         result.ChunkCount,
		"token_count":         result.TokenCount,
		"error_message":       nil,
	})
}

// Fail records an error on a pending or processing run
func (r *MetaDocumentRepository) Fail(ctx context.Context, id int64, message string) error {
	return r.transition(ctx, id, activeStatuses, squirrel.Eq{
		"processing_status": string(models.StatusFailed),
		"error_message":     message,
	})
}

func (r *MetaDocumentRepository) transition(ctx context.Context, id int64, from []string, set squirrel.Eq) error {
	set["updated_at"] = squirrel.Expr("NOW()")

	sql, args, err := r.sb.Update("meta_documents").
		SetMap(set).
		Where(squirrel.Eq{"id": id, "processing_status": from}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building meta document status SQL")
		return fmt.Errorf("failed to build meta document status query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("metaDocumentID", id).Msg("Error updating meta document status")
		return fmt.Errorf("error updating meta document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrInvalidTransition
	}
	return nil
}

// FailActive marks every pending or processing run as failed. It is used at
// startup to close runs orphaned by a previous process.
func (r *MetaDocumentRepository) FailActive(ctx context.Context, message string) (int64, error) {
	sql, args, err := r.sb.Update("meta_documents").
		Set("processing_status", string(models.StatusFailed)).
		Set("error_message", message).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"processing_status": activeStatuses}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build fail active query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error failing active meta documents")
		return 0, fmt.Errorf("error failing active meta documents: %w", err)
	}
	return tag.RowsAffected(), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
