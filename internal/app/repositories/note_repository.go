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

// NoteFilter narrows a note listing. Nil fields are ignored.
type NoteFilter struct {
	TopicID *int64
	UserID  *int64
}

// INoteRepository defines the interface for note database operations
type INoteRepository interface {
	Create(ctx context.Context, note *models.Note) error
	GetByID(ctx context.Context, id int64) (*models.Note, error)
	List(ctx context.Context, filter NoteFilter) ([]*models.Note, error)
	Upvote(ctx context.Context, noteID, userID int64) (*models.UpvoteResult, error)
}

// NoteRepository handles note and upvote database operations
type NoteRepository struct {
	db db.DBTX
	sb squirrel.StatementBuilderType
}

// NewNoteRepository creates a new NoteRepository
func NewNoteRepository(conn db.DBTX) *NoteRepository {
	return &NoteRepository{
		db: conn,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a note record for an already stored file
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	sql, args, err := r.sb.Insert("notes").
		Columns("user_id", "topic_id", "file_url", "original_filename", "file_size").
		Values(note.UserID, note.TopicID, note.FileURL, note.OriginalFilename, note.FileSize).
		Suffix("RETURNING id, upvote_count, uploaded_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create note SQL")
		return fmt.Errorf("failed to build create note query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&note.ID, &note.UpvoteCount, &note.UploadedAt); err != nil {
		if dberrors.IsForeignKeyError(err, dberrors.ConstraintNotesTopic) {
			return apperrors.ErrTopicNotFound
		}
		logger.Error().Err(err).Int64("topicID", note.TopicID).Msg("Error executing create note query")
		return fmt.Errorf("error creating note: %w", err)
	}
	return nil
}

func (r *NoteRepository) selectNotes() squirrel.SelectBuilder {
	return r.sb.Select(
		"n.id", "n.user_id", "n.topic_id", "n.file_url", "n.original_filename",
		"n.file_size", "n.upvote_count", "n.uploaded_at", "t.name", "u.name",
	).
		From("notes n").
		Join("topics t ON t.id = n.topic_id").
		LeftJoin("users u ON u.id = n.user_id")
}

func scanNote(row pgx.Row) (*models.Note, error) {
	n := &models.Note{}
	err := row.Scan(
		&n.ID, &n.UserID, &n.TopicID, &n.FileURL, &n.OriginalFilename,
		&n.FileSize, &n.UpvoteCount, &n.UploadedAt, &n.TopicName, &n.UploaderName,
	)
	return n, err
}

// GetByID retrieves a note with its topic and uploader names
func (r *NoteRepository) GetByID(ctx context.Context, id int64) (*models.Note, error) {
	sql, args, err := r.selectNotes().Where(squirrel.Eq{"n.id": id}).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get note SQL")
		return nil, fmt.Errorf("failed to build get note query: %w", err)
	}

	note, err := scanNote(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNoteNotFound
		}
		logger.Error().Err(err).Int64("noteID", id).Msg("Error scanning note row")
		return nil, fmt.Errorf("error retrieving note: %w", err)
	}
	return note, nil
}

// List returns notes matching filter, newest first
func (r *NoteRepository) List(ctx context.Context, filter NoteFilter) ([]*models.Note, error) {
	q := r.selectNotes()
	if filter.TopicID != nil {
		q = q.Where(squirrel.Eq{"n.topic_id": *filter.TopicID})
	}
	if filter.UserID != nil {
		q = q.Where(squirrel.Eq{"n.user_id": *filter.UserID})
	}

	sql, args, err := q.OrderBy("n.uploaded_at DESC", "n.id DESC").ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building list notes SQL")
		return nil, fmt.Errorf("failed to build list notes query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list notes query")
		return nil, fmt.Errorf("error listing notes: %w", err)
	}
	defer rows.Close()

	notes := make([]*models.Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			logger.Error().Err(err).Msg("Error scanning note row")
			return nil, fmt.Errorf("error scanning note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}
	return notes, nil
}

// Upvote records userID's upvote on noteID and bumps the counter in the same
// transaction. A repeated upvote leaves both untouched and reports the current count.
func (r *NoteRepository) Upvote(ctx context.Context, noteID, userID int64) (*models.UpvoteResult, error) {
	lockSQL, lockArgs, err := r.sb.Select("upvote_count").
		From("notes").
		Where(squirrel.Eq{"id": noteID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build lock note query: %w", err)
	}

	insertSQL, insertArgs, err := r.sb.Insert("upvotes").
		Columns("user_id", "note_id").
		Values(userID, noteID).
		Suffix("ON CONFLICT (user_id, note_id) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert upvote query: %w", err)
	}

	bumpSQL, bumpArgs, err := r.sb.Update("notes").
		Set("upvote_count", squirrel.Expr("upvote_count + 1")).
		Where(squirrel.Eq{"id": noteID}).
		Suffix("RETURNING upvote_count").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build increment upvote query: %w", err)
	}

	result := &models.UpvoteResult{}
	err = db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, lockSQL, lockArgs...).Scan(&result.UpvoteCount); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrNoteNotFound
			}
			return fmt.Errorf("error locking note: %w", err)
		}

		var upvoteID int64
		if err := tx.QueryRow(ctx, insertSQL, insertArgs...).Scan(&upvoteID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				result.AlreadyUpvoted = true
				return nil
			}
			if dberrors.IsForeignKeyError(err, "") {
				return apperrors.ErrUserNotFound
			}
			return fmt.Errorf("error inserting upvote: %w", err)
		}

		if err := tx.QueryRow(ctx, bumpSQL, bumpArgs...).Scan(&result.UpvoteCount); err != nil {
			return fmt.Errorf("error incrementing upvote count: %w", err)
		}
		return nil
	})
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrNoteNotFound, apperrors.ErrUserNotFound) {
			logger.Error().Err(err).Int64("noteID", noteID).Int64("userID", userID).Msg("Error upvoting note")
		}
		return nil, err
	}

	return result, nil
}
