package dto

import "github.com/yigit/notespace/internal/app/models"

// CreateTopicRequest represents a new topic. Deadline is ISO-8601.
type CreateTopicRequest struct {
	Name     string  `json:"name" example:"CS 35L"`
	Deadline *string `json:"deadline" example:"2025-03-01T23:59:00Z"`
}

// TopicResponse represents a topic
type TopicResponse struct {
	ID        int64   `json:"id" example:"1"`
	Name      string  `json:"name" example:"CS 35L"`
	Deadline  *string `json:"deadline"`
	CreatedAt string  `json:"created_at"`
}

// TopicListResponse lists topics newest first
type TopicListResponse struct {
	Topics []*TopicResponse `json:"topics"`
}

// TopicDetailResponse wraps one topic
type TopicDetailResponse struct {
	Topic *TopicResponse `json:"topic"`
}

// CreateTopicResponse is returned after creating a topic
type CreateTopicResponse struct {
	Message string         `json:"message" example:"Topic created successfully"`
	Topic   *TopicResponse `json:"topic"`
}

// NewTopicResponse converts a topic model
func NewTopicResponse(t *models.Topic) *TopicResponse {
	if t == nil {
		return nil
	}
	resp := &TopicResponse{
		ID:        t.ID,
		Name:      t.Name,
		CreatedAt: t.CreatedAt.UTC().Format(timeFormat),
	}
	if t.Deadline != nil {
		d := t.Deadline.UTC().Format(timeFormat)
		resp.Deadline = &d
	}
	return resp
}

// NewTopicListResponse converts a list of topics
func NewTopicListResponse(topics []*models.Topic) *TopicListResponse {
	out := &TopicListResponse{Topics: make([]*TopicResponse, 0, len(topics))}
	for _, t := range topics {
		out.Topics = append(out.Topics, NewTopicResponse(t))
	}
	return out
}
