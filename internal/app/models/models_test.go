package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessingStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to ProcessingStatus
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusFailed, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusPending, StatusCompleted, false},
		{StatusProcessing, StatusPending, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusFailed, StatusProcessing, false},
		{StatusCompleted, StatusFailed, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}

	assert.True(t, StatusPending.Active())
	assert.True(t, StatusProcessing.Active())
	assert.True(t, StatusCompleted.Terminal())
	assert.False(t, ProcessingStatus("done").Valid())
}

func TestPreviewKindFor(t *testing.T) {
	assert.Equal(t, PreviewText, PreviewKindFor("notes.TXT"))
	assert.Equal(t, PreviewImage, PreviewKindFor("diagram.jpeg"))
	assert.Equal(t, PreviewPDF, PreviewKindFor("slides.pdf"))
	assert.Equal(t, PreviewUnsupported, PreviewKindFor("lecture.docx"))
	assert.Equal(t, PreviewUnsupported, PreviewKindFor("Makefile"))
}

func TestInlineContentType(t *testing.T) {
	tests := []struct {
		name   string
		want   string
		inline bool
	}{
		{"notes.txt", "text/plain; charset=utf-8", true},
		{"page.md", "text/plain; charset=utf-8", true},
		{"slides.PDF", "application/pdf", true},
		{"photo.jpg", "image/jpeg", true},
		{"diagram.png", "image/png", true},
		{"drawing.svg", "", false},
		{"lecture.docx", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := InlineContentType(tt.name)
			assert.Equal(t, tt.inline, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNoteDerivedFields(t *testing.T) {
	name := "Ann"
	n := &Note{FileURL: FileURLPrefix + "abc.pdf", OriginalFilename: "Week 1.PDF"}

	assert.Equal(t, "abc.pdf", n.StorageName())
	assert.Equal(t, ".pdf", n.Extension())
	assert.Equal(t, AnonymousUploader, n.Uploader())
	assert.Equal(t, PreviewPDF, n.PreviewKind())

	n.UploaderName = &name
	assert.Equal(t, "Ann", n.Uploader())
}
