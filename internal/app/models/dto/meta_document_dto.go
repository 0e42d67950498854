package dto

import (
	"fmt"
	"strings"

	"github.com/yigit/notespace/internal/app/models"
)

// MetaDocumentResponse represents a synthesized document and its processing state
type MetaDocumentResponse struct {
	ID                 int64    `json:"id" example:"3"`
	TopicID            int64    `json:"topic_id" example:"1"`
	NoteID             *int64   `json:"note_id"`
	SynthesizedContent *string  `json:"synthesized_content"`
	SourceFilenames    []string `json:"source_filenames"`
	ChunkCount         int      `json:"chunk_count" example:"2"`
	TokenCount         int      `json:"token_count" example:"5120"`
	ProcessingStatus   string   `json:"processing_status" example:"completed" enums:"pending,processing,completed,failed"`
	ErrorMessage       *string  `json:"error_message"`
	CreatedAt          string   `json:"created_at"`
	UpdatedAt          string   `json:"updated_at"`
	TopicName          *string  `json:"topic_name"`
}

// MetaDocumentStatusResponse is the lightweight polling view of a run
type MetaDocumentStatusResponse struct {
	ID               int64   `json:"id" example:"3"`
	TopicID          int64   `json:"topic_id" example:"1"`
	ProcessingStatus string  `json:"processing_status" example:"processing"`
	ErrorMessage     *string `json:"error_message"`
	ChunkCount       int     `json:"chunk_count"`
	TokenCount       int     `json:"token_count"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

// MetaDocumentListResponse lists meta documents newest first
type MetaDocumentListResponse struct {
	MetaDocuments []*MetaDocumentResponse `json:"meta_documents"`
}

// MetaDocumentDetailResponse wraps one meta document
type MetaDocumentDetailResponse struct {
	MetaDocument *MetaDocumentResponse `json:"meta_document"`
}

// ProcessResponse is returned when a processing run was accepted
type ProcessResponse struct {
	Message      string                `json:"message" example:"Processing started successfully"`
	MetaDocument *MetaDocumentResponse `json:"meta_document"`
}

// NewMetaDocumentResponse converts a meta document model
func NewMetaDocumentResponse(m *models.MetaDocument) *MetaDocumentResponse {
	if m == nil {
		return nil
	}
	sources := m.SourceFilenames
	if sources == nil {
		sources = []string{}
	}
	resp := &MetaDocumentResponse{
		ID:               m.ID,
		TopicID:          m.TopicID,
		NoteID:           m.NoteID,
		SourceFilenames:  sources,
		ChunkCount:       m.ChunkCount,
		TokenCount:       m.TokenCount,
		ProcessingStatus: string(m.ProcessingStatus),
		ErrorMessage:     m.ErrorMessage,
		CreatedAt:        m.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:        m.UpdatedAt.UTC().Format(timeFormat),
	}
	if m.SynthesizedContent != "" {
		content := m.SynthesizedContent
		resp.SynthesizedContent = &content
	}
	if m.TopicName != "" {
		name := m.TopicName
		resp.TopicName = &name
	}
	return resp
}

// NewMetaDocumentListResponse converts a list of meta documents
func NewMetaDocumentListResponse(docs []*models.MetaDocument) *MetaDocumentListResponse {
	out := &MetaDocumentListResponse{MetaDocuments: make([]*MetaDocumentResponse, 0, len(docs))}
	for _, d := range docs {
		out.MetaDocuments = append(out.MetaDocuments, NewMetaDocumentResponse(d))
	}
	return out
}

// NewMetaDocumentStatusResponse builds the polling view
func NewMetaDocumentStatusResponse(m *models.MetaDocument) *MetaDocumentStatusResponse {
	return &MetaDocumentStatusResponse{
		ID:               m.ID,
		TopicID:          m.TopicID,
		ProcessingStatus: string(m.ProcessingStatus),
		ErrorMessage:     m.ErrorMessage,
		ChunkCount:       m.ChunkCount,
		TokenCount:       m.TokenCount,
		CreatedAt:        m.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:        m.UpdatedAt.UTC().Format(timeFormat),
	}
}

// MetaDocumentFilename is the attachment name of a downloaded meta document
func MetaDocumentFilename(m *models.MetaDocument) string {
	return fmt.Sprintf("meta_document_topic_%d.txt", m.TopicID)
}

// RenderMetaDocumentText renders the downloadable text file: a header with the
// topic, the sources and the creation time, a rule, then the content.
func RenderMetaDocumentText(m *models.MetaDocument) string {
	topic := m.TopicName
	if topic == "" {
		topic = fmt.Sprintf("%d", m.TopicID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Meta Document - Topic: %s\n", topic)
	fmt.Fprintf(&b, "Source Files: %s\n", strings.Join(m.SourceFilenames, ", "))
	fmt.Fprintf(&b, "Created: %s\n", m.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("=", 80))
	b.WriteString("\n\n")
	b.WriteString(m.SynthesizedContent)
	return b.String()
}
