package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/notespace/internal/app/models"
	"github.com/yigit/notespace/internal/app/repositories"
	"github.com/yigit/notespace/internal/pkg/filestorage"
	"github.com/yigit/notespace/internal/pkg/summarizer"
	"github.com/yigit/notespace/internal/pkg/textextract"
	"golang.org/x/sync/errgroup"
)

// Failure messages recorded on meta documents
const (
	MessageNoText      = "No text could be extracted from any files"
	MessageShutdown    = "processing interrupted by shutdown"
	MessageRestart     = "processing interrupted by restart"
	MessageQueueReject = "processing queue is unavailable"
	MessageTopicActive = "another run for this topic is still finishing"
)

// persistTimeout bounds the final status write, which must succeed even when
// the run itself was cancelled
const persistTimeout = 10 * time.Second

var errNoText = errors.New(MessageNoText)

// Config tunes a Processor
type Config struct {
	ExtractConcurrency int
	ChunkSizeTokens    int
	ChunkOverlapTokens int
	SummarizerTimeout  time.Duration
}

// Processor turns the notes of a topic into a synthesized meta document
type Processor struct {
	notes      repositories.INoteRepository
	docs       repositories.IMetaDocumentRepository
	storage    filestorage.FileStorage
	summarizer summarizer.Summarizer
	publisher  Publisher
	config     Config
	logger     zerolog.Logger
}

// NewProcessor creates a Processor. publisher may be nil.
func NewProcessor(
	notes repositories.INoteRepository,
	docs repositories.IMetaDocumentRepository,
	storage filestorage.FileStorage,
	sum summarizer.Summarizer,
	publisher Publisher,
	config Config,
	logger zerolog.Logger,
) *Processor {
	if config.ExtractConcurrency < 1 {
		config.ExtractConcurrency = 1
	}
	if config.ChunkSizeTokens < 1 {
		config.ChunkSizeTokens = 8000
	}
	if config.SummarizerTimeout <= 0 {
		config.SummarizerTimeout = 5 * time.Minute
	}

	return &Processor{
		notes:      notes,
		docs:       docs,
		storage:    storage,
		summarizer: sum,
		publisher:  publisher,
		config:     config,
		logger:     logger,
	}
}

// Run executes job and records completion or failure on its meta document
func (p *Processor) Run(ctx context.Context, job Job) {
	log := p.logger.With().Int64("metaDocumentID", job.MetaDocumentID).Int64("topicID", job.TopicID).Logger()
	started := time.Now()

	result, err := p.safeSynthesize(ctx, job)

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err != nil {
		message := p.failureMessage(ctx, err)
		log.Warn().Err(err).Str("reason", message).Msg("Meta document generation failed")
		p.fail(storeCtx, job, message)
		return
	}

	if err := p.docs.Complete(storeCtx, job.MetaDocumentID, result); err != nil {
		log.Error().Err(err).Msg("Failed to store completed meta document")
		p.fail(storeCtx, job, err.Error())
		return
	}

	log.Info().
		Int("chunks", result.ChunkCount).
		Int("tokens", result.TokenCount).
		Int("sources", len(result.SourceFilenames)).
		Dur("took", time.Since(started)).
		Msg("Meta document completed")

	p.publish(&models.MetaDocument{
		ID:               job.MetaDocumentID,
		TopicID:          job.TopicID,
		ProcessingStatus: models.StatusCompleted,
		ChunkCount:       result.ChunkCount,
		TokenCount:       result.TokenCount,
	})
}

func (p *Processor) failureMessage(ctx context.Context, err error) string {
	if ctx.Err() != nil {
		return MessageShutdown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("summarizer timed out after %s", p.config.SummarizerTimeout)
	}
	return err.Error()
}

func (p *Processor) fail(ctx context.Context, job Job, message string) {
	if err := p.docs.Fail(ctx, job.MetaDocumentID, message); err != nil {
		p.logger.Error().Err(err).Int64("metaDocumentID", job.MetaDocumentID).Msg("Failed to mark meta document as failed")
		return
	}
	p.publish(&models.MetaDocument{
		ID:               job.MetaDocumentID,
		TopicID:          job.TopicID,
		ProcessingStatus: models.StatusFailed,
		ErrorMessage:     &message,
	})
}

func (p *Processor) publish(doc *models.MetaDocument) {
	if p.publisher != nil {
		p.publisher.Publish(NewStatusEvent(doc))
	}
}

func (p *Processor) safeSynthesize(ctx context.Context, job Job) (result *models.MetaDocumentResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processing failed: %v", r)
		}
	}()
	return p.synthesize(ctx, job)
}

func (p *Processor) synthesize(ctx context.Context, job Job) (*models.MetaDocumentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	notes, err := p.notes.List(ctx, repositories.NoteFilter{TopicID: &job.TopicID})
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	sources, err := p.extractAll(ctx, notes)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, errNoText
	}

	combined := textextract.Combine(sources)
	chunks := textextract.Chunk(combined, p.config.ChunkSizeTokens, p.config.ChunkOverlapTokens)

	estimated := 0
	for _, chunk := range chunks {
		estimated += textextract.EstimateTokens(chunk)
	}

	sumCtx, cancel := context.WithTimeout(ctx, p.config.SummarizerTimeout)
	defer cancel()

	out, err := p.summarizer.Summarize(sumCtx, summarizer.Request{TopicName: job.TopicName, Chunks: chunks})
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(out.Content)
	if content == "" {
		return nil, summarizer.ErrEmptyOutput
	}

	tokens := out.TotalTokens
	if tokens <= 0 {
		tokens = estimated
	}

	filenames := make([]string, 0, len(sources))
	for _, s := range sources {
		filenames = append(filenames, s.Filename)
	}

	return &models.MetaDocumentResult{
		Content:         content,
		SourceFilenames: filenames,
		ChunkCount:      len(chunks),
		TokenCount:      tokens,
	}, nil
}

// extractAll reads and cleans every extractable note. Files that cannot be
// read or parsed are skipped. The result keeps the order of notes.
func (p *Processor) extractAll(ctx context.Context, notes []*models.Note) ([]textextract.Source, error) {
	texts := make([]string, len(notes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.ExtractConcurrency)

	for i, note := range notes {
		if !textextract.Supported(note.OriginalFilename) {
			continue
		}
		i, note := i, note
		g.Go(func() error {
			text, err := p.extract(gctx, note)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				p.logger.Warn().Err(err).
					Int64("noteID", note.ID).
					Str("filename", note.OriginalFilename).
					Msg("Skipping file, text extraction failed")
				return nil
			}
			texts[i] = textextract.Clean(text)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sources := make([]textextract.Source, 0, len(notes))
	for i, text := range texts {
		if text == "" {
			continue
		}
		sources = append(sources, textextract.Source{Filename: notes[i].OriginalFilename, Text: text})
	}
	return sources, nil
}

func (p *Processor) extract(ctx context.Context, note *models.Note) (string, error) {
	obj, err := p.storage.Open(ctx, note.StorageName())
	if err != nil {
		return "", fmt.Errorf("failed to open stored file: %w", err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read stored file: %w", err)
	}

	return textextract.Extract(note.OriginalFilename, data)
}

// RecoverInterrupted fails every run left pending or processing by a previous
// process. It must run before the queue accepts jobs.
func RecoverInterrupted(ctx context.Context, docs repositories.IMetaDocumentRepository, logger zerolog.Logger) (int64, error) {
	n, err := docs.FailActive(ctx, MessageRestart)
	if err != nil {
		return 0, fmt.Errorf("failed to recover interrupted meta documents: %w", err)
	}
	if n > 0 {
		logger.Warn().Int64("count", n).Msg("Marked interrupted meta documents as failed")
	}
	return n, nil
}
