package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/notespace/internal/app/models"
	"github.com/yigit/notespace/internal/app/repositories"
	"github.com/yigit/notespace/internal/pkg/apperrors"
	"github.com/yigit/notespace/internal/pkg/helpers"
	"github.com/yigit/notespace/internal/pkg/validation"
)

// TopicService manages topics
type TopicService interface {
	ListTopics(ctx context.Context) ([]*models.Topic, error)
	CreateTopic(ctx context.Context, name string, deadline *string) (*models.Topic, error)
	GetTopic(ctx context.Context, id int64) (*models.Topic, error)
}

type topicServiceImpl struct {
	topicRepo repositories.ITopicRepository
	logger    zerolog.Logger
}

// NewTopicService creates a new TopicService
func NewTopicService(topicRepo repositories.ITopicRepository, logger zerolog.Logger) TopicService {
	return &topicServiceImpl{topicRepo: topicRepo, logger: logger}
}

// ListTopics returns every topic, newest first
func (s *topicServiceImpl) ListTopics(ctx context.Context) ([]*models.Topic, error) {
	return s.topicRepo.List(ctx)
}

// CreateTopic validates and stores a topic. Names need not be unique.
func (s *topicServiceImpl) CreateTopic(ctx context.Context, name string, deadline *string) (*models.Topic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewCustomError(apperrors.ErrEmptyName, "Topic name is required")
	}
	if !validation.IsValidTopicName(name) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("Topic name must be at most %d characters", validation.TopicNameMaxLength))
	}

	topic := &models.Topic{Name: name}
	if deadline != nil {
		parsed, err := helpers.ParseDeadline(*deadline)
		if err != nil {
			return nil, apperrors.NewValidationError("Invalid deadline format, expected ISO 8601")
		}
		topic.Deadline = parsed
	}

	if err := s.topicRepo.Create(ctx, topic); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("topicID", topic.ID).Str("name", topic.Name).Msg("Topic created")
	return topic, nil
}

// GetTopic returns one topic or ErrTopicNotFound
func (s *topicServiceImpl) GetTopic(ctx context.Context, id int64) (*models.Topic, error) {
	return s.topicRepo.GetByID(ctx, id)
}
