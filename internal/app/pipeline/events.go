package pipeline

import (
	"github.com/yigit/notespace/internal/app/models"
	"github.com/yigit/notespace/internal/pkg/websocket"
)

// Publisher receives meta document status changes. *websocket.Hub implements it.
type Publisher interface {
	Publish(event *websocket.StatusEvent)
}

// NewStatusEvent describes the current state of doc
func NewStatusEvent(doc *models.MetaDocument) *websocket.StatusEvent {
	return &websocket.StatusEvent{
		Type:             websocket.EventTypeStatus,
		MetaDocumentID:   doc.ID,
		TopicID:          doc.TopicID,
		ProcessingStatus: string(doc.ProcessingStatus),
		ErrorMessage:     doc.ErrorMessage,
		ChunkCount:       doc.ChunkCount,
		TokenCount:       doc.TokenCount,
	}
}
