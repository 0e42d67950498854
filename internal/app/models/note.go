package models

import (
	"path"
	"strings"
	"time"
)

// Note is the metadata record of one uploaded file
type Note struct {
	ID               int64     `db:"id"`
	UserID           *int64    `db:"user_id"`
	TopicID          int64     `db:"topic_id"`
	FileURL          string    `db:"file_url"`
	OriginalFilename string    `db:"original_filename"`
	FileSize         int64     `db:"file_size"`
	UpvoteCount      int       `db:"upvote_count"`
	UploadedAt       time.Time `db:"uploaded_at"`

	// Populated by joins, not stored on the notes table
	TopicName    string  `db:"topic_name"`
	UploaderName *string `db:"uploader_name"`
}

// StorageName is the generated file name the bytes are stored under
func (n *Note) StorageName() string {
	return path.Base(n.FileURL)
}

// Uploader returns the uploader's display name
func (n *Note) Uploader() string {
	if n.UploaderName == nil || *n.UploaderName == "" {
		return AnonymousUploader
	}
	return *n.UploaderName
}

// Extension returns the lowercased extension of the original file name, dot included
func (n *Note) Extension() string {
	return strings.ToLower(path.Ext(n.OriginalFilename))
}

// PreviewKind returns how a client can render the file
func (n *Note) PreviewKind() PreviewKind {
	return PreviewKindFor(n.OriginalFilename)
}

// PreviewKind classifies files by how a client can display them
type PreviewKind string

const (
	PreviewText        PreviewKind = "text"
	PreviewImage       PreviewKind = "image"
	PreviewPDF         PreviewKind = "pdf"
	PreviewUnsupported PreviewKind = "unsupported"
)

var previewByExtension = map[string]PreviewKind{
	".txt":  PreviewText,
	".md":   PreviewText,
	".csv":  PreviewText,
	".json": PreviewText,
	".log":  PreviewText,
	".png":  PreviewImage,
	".jpg":  PreviewImage,
	".jpeg": PreviewImage,
	".gif":  PreviewImage,
	".webp": PreviewImage,
	".svg":  PreviewImage,
	".pdf":  PreviewPDF,
}

// PreviewKindFor classifies a file name by its extension
func PreviewKindFor(filename string) PreviewKind {
	if kind, ok := previewByExtension[strings.ToLower(path.Ext(filename))]; ok {
		return kind
	}
	return PreviewUnsupported
}

// inlineImageTypes lists raster images the browser may render in place.
// SVG is absent: it can carry script.
var inlineImageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// InlineContentType returns the content type a file is served with when shown
// in the browser, derived from its name only. ok is false when the file must
// be downloaded instead.
func InlineContentType(filename string) (contentType string, ok bool) {
	switch PreviewKindFor(filename) {
	case PreviewText:
		return "text/plain; charset=utf-8", true
	case PreviewPDF:
		return "application/pdf", true
	case PreviewImage:
		contentType, ok = inlineImageTypes[strings.ToLower(path.Ext(filename))]
		return contentType, ok
	}
	return "", false
}
