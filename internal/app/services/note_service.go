package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/yigit/notespace/internal/app/models"
	"github.com/yigit/notespace/internal/app/repositories"
	"github.com/yigit/notespace/internal/pkg/apperrors"
	"github.com/yigit/notespace/internal/pkg/filestorage"
)

// maxFilenameLength caps stored original file names, in runes
const maxFilenameLength = 255

// UploadConfig limits what can be uploaded
type UploadConfig struct {
	MaxFileSize int64
	// AllowedExtensions restricts uploads to these extensions, dot included.
	// An empty list accepts any file.
	AllowedExtensions []string
}

// UploadInput is one file sent by a client
type UploadInput struct {
	Filename string
	Size     int64
	Content  io.Reader
	TopicID  int64
	UserID   *int64
}

// NoteService handles uploaded files and their upvotes
type NoteService interface {
	UploadFile(ctx context.Context, input *UploadInput) (*models.Note, error)
	ListFiles(ctx context.Context, filter repositories.NoteFilter) ([]*models.Note, error)
	GetFile(ctx context.Context, id int64) (*models.Note, error)
	OpenFile(ctx context.Context, storageName string) (*filestorage.Object, error)
	Upvote(ctx context.Context, noteID, userID int64) (*models.UpvoteResult, error)
}

type noteServiceImpl struct {
	noteRepo  repositories.INoteRepository
	topicRepo repositories.ITopicRepository
	storage   filestorage.FileStorage
	config    UploadConfig
	allowed   map[string]bool
	logger    zerolog.Logger
}

// NewNoteService creates a new NoteService
func NewNoteService(
	noteRepo repositories.INoteRepository,
	topicRepo repositories.ITopicRepository,
	storage filestorage.FileStorage,
	config UploadConfig,
	logger zerolog.Logger,
) NoteService {
	allowed := make(map[string]bool, len(config.AllowedExtensions))
	for _, ext := range config.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = true
	}

	return &noteServiceImpl{
		noteRepo:  noteRepo,
		topicRepo: topicRepo,
		storage:   storage,
		config:    config,
		allowed:   allowed,
		logger:    logger,
	}
}

// SanitizeFilename strips any directory part and control characters from a
// client supplied file name
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if runes := []rune(name); len(runes) > maxFilenameLength {
		ext := []rune(path.Ext(name))
		if len(ext) >= maxFilenameLength {
			ext = nil
		}
		name = string(runes[:maxFilenameLength-len(ext)]) + string(ext)
	}
	return name
}

// UploadFile stores the file and records it as a note of the topic. The bytes
// are written first; if the record cannot be inserted the stored file is removed.
func (s *noteServiceImpl) UploadFile(ctx context.Context, input *UploadInput) (*models.Note, error) {
	filename := SanitizeFilename(input.Filename)
	if filename == "" {
		return nil, apperrors.NewValidationError("No file selected")
	}

	if _, err := s.topicRepo.GetByID(ctx, input.TopicID); err != nil {
		return nil, err
	}

	if input.Size > s.config.MaxFileSize {
		return nil, s.tooLarge()
	}

	ext := strings.ToLower(path.Ext(filename))
	if len(s.allowed) > 0 && !s.allowed[ext] {
		return nil, apperrors.NewCustomError(apperrors.ErrFileTypeNotAllowed,
			fmt.Sprintf("File type %q is not allowed", ext))
	}

	storageName := filestorage.GenerateName(filename)
	written, err := s.storage.Save(ctx, storageName, io.LimitReader(input.Content, s.config.MaxFileSize+1))
	if err != nil {
		s.logger.Error().Err(err).Str("filename", filename).Msg("Failed to store uploaded file")
		return nil, fmt.Errorf("failed to store file: %w", err)
	}
	if written > s.config.MaxFileSize {
		s.removeStored(storageName)
		return nil, s.tooLarge()
	}

	note := &models.Note{
		UserID:           input.UserID,
		TopicID:          input.TopicID,
		FileURL:          models.FileURLPrefix + storageName,
		OriginalFilename: filename,
		FileSize:         written,
	}
	if err := s.noteRepo.Create(ctx, note); err != nil {
		s.removeStored(storageName)
		return nil, err
	}

	// Read back for the joined topic and uploader names
	stored, err := s.noteRepo.GetByID(ctx, note.ID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("noteID", note.ID).Msg("Failed to reload uploaded note")
		return note, nil
	}

	s.logger.Info().
		Int64("noteID", stored.ID).
		Int64("topicID", stored.TopicID).
		Int64("size", stored.FileSize).
		Msg("File uploaded")
	return stored, nil
}

func (s *noteServiceImpl) tooLarge() error {
	return apperrors.NewCustomError(apperrors.ErrFileTooLarge,
		fmt.Sprintf("File exceeds the maximum size of %d bytes", s.config.MaxFileSize))
}

func (s *noteServiceImpl) removeStored(name string) {
	if err := s.storage.Delete(context.Background(), name); err != nil {
		s.logger.Error().Err(err).Str("storageName", name).Msg("Failed to remove orphaned upload")
	}
}

// ListFiles returns notes matching filter, newest first
func (s *noteServiceImpl) ListFiles(ctx context.Context, filter repositories.NoteFilter) ([]*models.Note, error) {
	return s.noteRepo.List(ctx, filter)
}

// GetFile returns one note or ErrNoteNotFound
func (s *noteServiceImpl) GetFile(ctx context.Context, id int64) (*models.Note, error) {
	return s.noteRepo.GetByID(ctx, id)
}

// OpenFile opens stored bytes by their generated name. The caller closes the body.
func (s *noteServiceImpl) OpenFile(ctx context.Context, storageName string) (*filestorage.Object, error) {
	if !filestorage.ValidName(storageName) {
		return nil, apperrors.ErrFileNotFound
	}

	obj, err := s.storage.Open(ctx, storageName)
	if err != nil {
		if errors.Is(err, filestorage.ErrNotFound) || errors.Is(err, filestorage.ErrInvalidName) {
			return nil, apperrors.ErrFileNotFound
		}
		s.logger.Error().Err(err).Str("storageName", storageName).Msg("Failed to open stored file")
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return obj, nil
}

// Upvote records one upvote per user and note
func (s *noteServiceImpl) Upvote(ctx context.Context, noteID, userID int64) (*models.UpvoteResult, error) {
	return s.noteRepo.Upvote(ctx, noteID, userID)
}
