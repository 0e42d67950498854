package dberrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the repositories care about
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeCheckViolation      = "23514"
)

// Constraint names declared in the schema migrations
const (
	ConstraintUsersEmail           = "users_email_key"
	ConstraintUpvotesUserNote      = "upvotes_user_id_note_id_key"
	ConstraintNotesTopic           = "notes_topic_id_fkey"
	ConstraintMetaDocumentsActive  = "meta_documents_active_topic_idx"
	ConstraintMetaDocumentsTopic   = "meta_documents_topic_id_fkey"
	ConstraintRevokedTokensPrimary = "revoked_tokens_pkey"
)

// IsDuplicateConstraintError checks if the error is a PostgreSQL unique violation error
// for a specific constraint.
func IsDuplicateConstraintError(err error, constraintName string) bool {
	return hasCode(err, CodeUniqueViolation, constraintName)
}

// IsForeignKeyError reports whether err is a foreign key violation on the named constraint.
func IsForeignKeyError(err error, constraintName string) bool {
	return hasCode(err, CodeForeignKeyViolation, constraintName)
}

func hasCode(err error, code, constraintName string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != code {
		return false
	}
	return constraintName == "" || pgErr.ConstraintName == constraintName
}
