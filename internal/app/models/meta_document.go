package models

import "time"

// ProcessingStatus is the lifecycle state of a meta document run
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// allowedTransitions lists the only legal edges of the status machine
var allowedTransitions = map[ProcessingStatus][]ProcessingStatus{
	StatusPending:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether a run may move from s to next
func (s ProcessingStatus) CanTransition(next ProcessingStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Active reports whether a run in this state still occupies its topic
func (s ProcessingStatus) Active() bool {
	return s == StatusPending || s == StatusProcessing
}

// Terminal reports whether no further transitions are possible
func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is one of the known states
func (s ProcessingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// MetaDocument is an AI-synthesized summary of the notes of a topic
type MetaDocument struct {
	ID                 int64            `db:"id"`
	TopicID            int64            `db:"topic_id"`
	NoteID             *int64           `db:"note_id"`
	SynthesizedContent string           `db:"synthesized_content"`
	SourceFilenames    []string         `db:"source_filenames"`
	ChunkCount         int              `db:"chunk_count"`
	TokenCount         int              `db:"token_count"`
	ProcessingStatus   ProcessingStatus `db:"processing_status"`
	ErrorMessage       *string          `db:"error_message"`
	CreatedAt          time.Time        `db:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at"`

	// Populated by joins
	TopicName string `db:"topic_name"`
}

// MetaDocumentResult is what a successful run stores on its record
type MetaDocumentResult struct {
	Content         string
	SourceFilenames []string
	ChunkCount      int
	TokenCount      int
}
