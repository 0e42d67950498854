package dto

import "github.com/yigit/notespace/internal/app/models"

// NoteResponse represents an uploaded note
type NoteResponse struct {
	ID               int64              `json:"id" example:"12"`
	UserID           *int64             `json:"user_id"`
	TopicID          int64              `json:"topic_id" example:"1"`
	FileURL          string             `json:"file_url" example:"/api/upload/files/5f0c1e7e-9a7b-4c8e-8f7a-2b1d3c4e5f60.pdf"`
	OriginalFilename string             `json:"original_filename" example:"week1.pdf"`
	FileSize         int64              `json:"file_size" example:"1048576"`
	UpvoteCount      int                `json:"upvote_count" example:"3"`
	UploadedAt       string             `json:"uploaded_at"`
	UploaderName     string             `json:"uploader_name" example:"Anonymous"`
	TopicName        *string            `json:"topic_name"`
	PreviewKind      models.PreviewKind `json:"preview_kind" example:"pdf"`
}

// NoteListResponse lists notes newest first
type NoteListResponse struct {
	Notes []*NoteResponse `json:"notes"`
}

// NoteDetailResponse wraps one note
type NoteDetailResponse struct {
	Note *NoteResponse `json:"note"`
}

// UploadResponse is returned after a successful upload
type UploadResponse struct {
	Message string        `json:"message" example:"File uploaded successfully"`
	Note    *NoteResponse `json:"note"`
}

// UpvoteResponse reports the upvote outcome
type UpvoteResponse struct {
	Message        string `json:"message" example:"Upvoted successfully"`
	UpvoteCount    int    `json:"upvote_count" example:"4"`
	AlreadyUpvoted bool   `json:"already_upvoted" example:"false"`
}

// NewNoteResponse converts a note model
func NewNoteResponse(n *models.Note) *NoteResponse {
	if n == nil {
		return nil
	}
	resp := &NoteResponse{
		ID:               n.ID,
		UserID:           n.UserID,
		TopicID:          n.TopicID,
		FileURL:          n.FileURL,
		OriginalFilename: n.OriginalFilename,
		FileSize:         n.FileSize,
		UpvoteCount:      n.UpvoteCount,
		UploadedAt:       n.UploadedAt.UTC().Format(timeFormat),
		UploaderName:     n.Uploader(),
		PreviewKind:      n.PreviewKind(),
	}
	if n.TopicName != "" {
		name := n.TopicName
		resp.TopicName = &name
	}
	return resp
}

// NewNoteListResponse converts a list of notes
func NewNoteListResponse(notes []*models.Note) *NoteListResponse {
	out := &NoteListResponse{Notes: make([]*NoteResponse, 0, len(notes))}
	for _, n := range notes {
		out.Notes = append(out.Notes, NewNoteResponse(n))
	}
	return out
}

// NewUpvoteResponse builds the upvote reply
func NewUpvoteResponse(r *models.UpvoteResult) *UpvoteResponse {
	msg := "Upvoted successfully"
	if r.AlreadyUpvoted {
		msg = "Already upvoted"
	}
	return &UpvoteResponse{Message: msg, UpvoteCount: r.UpvoteCount, AlreadyUpvoted: r.AlreadyUpvoted}
}
