package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/notespace/internal/app/models"
	"github.com/yigit/notespace/internal/app/pipeline"
	"github.com/yigit/notespace/internal/app/repositories"
	"github.com/yigit/notespace/internal/pkg/apperrors"
	"github.com/yigit/notespace/internal/pkg/textextract"
)

// JobSubmitter accepts meta document jobs. *pipeline.Queue implements it.
type JobSubmitter interface {
	Submit(job pipeline.Job) error
	Active(topicID int64) bool
}

// MetaDocumentService triggers and reads AI-generated topic summaries
type MetaDocumentService interface {
	ProcessTopic(ctx context.Context, topicID int64) (*models.MetaDocument, error)
	ProcessNote(ctx context.Context, noteID int64) (*models.MetaDocument, error)
	List(ctx context.Context, topicID *int64) ([]*models.MetaDocument, error)
	Get(ctx context.Context, id int64) (*models.MetaDocument, error)
	GetLatestForTopic(ctx context.Context, topicID int64) (*models.MetaDocument, error)
	GetStatus(ctx context.Context, id int64) (*models.MetaDocument, error)
	Download(ctx context.Context, id int64) (*models.MetaDocument, error)
}

type metaDocumentServiceImpl struct {
	docRepo   repositories.IMetaDocumentRepository
	topicRepo repositories.ITopicRepository
	noteRepo  repositories.INoteRepository
	queue     JobSubmitter
	publisher pipeline.Publisher
	logger    zerolog.Logger
}

// NewMetaDocumentService creates a new MetaDocumentService. publisher may be nil.
func NewMetaDocumentService(
	docRepo repositories.IMetaDocumentRepository,
	topicRepo repositories.ITopicRepository,
	noteRepo repositories.INoteRepository,
	queue JobSubmitter,
	publisher pipeline.Publisher,
	logger zerolog.Logger,
) MetaDocumentService {
	return &metaDocumentServiceImpl{
		docRepo:   docRepo,
		topicRepo: topicRepo,
		noteRepo:  noteRepo,
		queue:     queue,
		publisher: publisher,
		logger:    logger,
	}
}

// ProcessTopic starts a new run over every note of the topic
func (s *metaDocumentServiceImpl) ProcessTopic(ctx context.Context, topicID int64) (*models.MetaDocument, error) {
	return s.start(ctx, topicID, nil)
}

// ProcessNote starts a run for the topic the note belongs to and links the
// record to the note
func (s *metaDocumentServiceImpl) ProcessNote(ctx context.Context, noteID int64) (*models.MetaDocument, error) {
	note, err := s.noteRepo.GetByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	return s.start(ctx, note.TopicID, &note.ID)
}

func (s *metaDocumentServiceImpl) start(ctx context.Context, topicID int64, noteID *int64) (*models.MetaDocument, error) {
	topic, err := s.topicRepo.GetByID(ctx, topicID)
	if err != nil {
		return nil, err
	}

	notes, err := s.noteRepo.List(ctx, repositories.NoteFilter{TopicID: &topicID})
	if err != nil {
		return nil, err
	}
	if !hasExtractable(notes) {
		return nil, apperrors.ErrNoFiles
	}

	// The worker may still hold the topic after its final status is stored
	if s.queue.Active(topicID) {
		return nil, apperrors.ErrProcessingInProgress
	}

	doc := &models.MetaDocument{TopicID: topicID, NoteID: noteID, TopicName: topic.Name}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}
	s.publish(doc)
	log := s.logger.With().Int64("metaDocumentID", doc.ID).Int64("topicID", topicID).Logger()

	if err := s.docRepo.MarkProcessing(ctx, doc.ID); err != nil {
		log.Error().Err(err).Msg("Failed to mark meta document as processing")
		s.fail(ctx, doc, pipeline.MessageQueueReject)
		return nil, fmt.Errorf("failed to start processing: %w", err)
	}
	doc.ProcessingStatus = models.StatusProcessing
	s.publish(doc)

	err = s.queue.Submit(pipeline.Job{MetaDocumentID: doc.ID, TopicID: topicID, TopicName: topic.Name})
	if err != nil {
		log.Warn().Err(err).Msg("Processing queue rejected job")
		if errors.Is(err, pipeline.ErrTopicActive) {
			s.fail(ctx, doc, pipeline.MessageTopicActive)
			return nil, apperrors.ErrProcessingInProgress
		}
		s.fail(ctx, doc, pipeline.MessageQueueReject)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPipelineUnavailable, err)
	}

	log.Info().Int("notes", len(notes)).Msg("Meta document processing queued")
	return doc, nil
}

func (s *metaDocumentServiceImpl) fail(ctx context.Context, doc *models.MetaDocument, message string) {
	if err := s.docRepo.Fail(context.WithoutCancel(ctx), doc.ID, message); err != nil {
		s.logger.Error().Err(err).Int64("metaDocumentID", doc.ID).Msg("Failed to mark meta document as failed")
		return
	}
	doc.ProcessingStatus = models.StatusFailed
	doc.ErrorMessage = &message
	s.publish(doc)
}

func (s *metaDocumentServiceImpl) publish(doc *models.MetaDocument) {
	if s.publisher != nil {
		s.publisher.Publish(pipeline.NewStatusEvent(doc))
	}
}

func hasExtractable(notes []*models.Note) bool {
	for _, n := range notes {
		if textextract.Supported(n.OriginalFilename) {
			return true
		}
	}
	return false
}

// List returns meta documents, optionally of one topic, newest first
func (s *metaDocumentServiceImpl) List(ctx context.Context, topicID *int64) ([]*models.MetaDocument, error) {
	return s.docRepo.List(ctx, topicID)
}

// Get returns one meta document or ErrMetaDocumentNotFound
func (s *metaDocumentServiceImpl) Get(ctx context.Context, id int64) (*models.MetaDocument, error) {
	return s.docRepo.GetByID(ctx, id)
}

// GetLatestForTopic returns the newest run of a topic
func (s *metaDocumentServiceImpl) GetLatestForTopic(ctx context.Context, topicID int64) (*models.MetaDocument, error) {
	if _, err := s.topicRepo.GetByID(ctx, topicID); err != nil {
		return nil, err
	}
	return s.docRepo.GetLatestByTopic(ctx, topicID)
}

// GetStatus returns the record for status polling
func (s *metaDocumentServiceImpl) GetStatus(ctx context.Context, id int64) (*models.MetaDocument, error) {
	return s.docRepo.GetByID(ctx, id)
}

// Download returns a completed meta document, or ErrMetaDocumentNotReady
func (s *metaDocumentServiceImpl) Download(ctx context.Context, id int64) (*models.MetaDocument, error) {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.ProcessingStatus != models.StatusCompleted {
		return nil, apperrors.NewCustomError(apperrors.ErrMetaDocumentNotReady,
			fmt.Sprintf("Meta document is not ready (status: %s)", doc.ProcessingStatus))
	}
	return doc, nil
}
