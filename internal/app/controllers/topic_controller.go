package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/notespace/internal/app/models/dto"
	"github.com/yigit/notespace/internal/app/services"
	"github.com/yigit/notespace/internal/middleware"
	"github.com/yigit/notespace/internal/pkg/helpers"
)

// TopicController handles topic endpoints
type TopicController struct {
	topicService services.TopicService
	logger       zerolog.Logger
}

// NewTopicController creates a new TopicController
func NewTopicController(topicService services.TopicService, logger zerolog.Logger) *TopicController {
	return &TopicController{
		topicService: topicService,
		logger:       logger,
	}
}

// ListTopics godoc
// @Summary List topics
// @Description Returns every topic, newest first
// @Tags topics
// @Produce json
// @Success 200 {object} dto.TopicListResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /topics/ [get]
func (c *TopicController) ListTopics(ctx *gin.Context) {
	topics, err := c.topicService.ListTopics(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewTopicListResponse(topics))
}

// CreateTopic godoc
// @Summary Create a topic
// @Description Creates a topic. Names need not be unique; deadline is optional ISO-8601.
// @Tags topics
// @Accept json
// @Produce json
// @Param request body dto.CreateTopicRequest true "Topic"
// @Success 200 {object} dto.CreateTopicResponse
// @Failure 400 {object} dto.ErrorResponse "Empty or too long name, or invalid deadline"
// @Failure 500 {object} dto.ErrorResponse
// @Router /topics/ [post]
func (c *TopicController) CreateTopic(ctx *gin.Context) {
	var req dto.CreateTopicRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	topic, err := c.topicService.CreateTopic(ctx.Request.Context(), req.Name, req.Deadline)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.CreateTopicResponse{
		Message: "Topic created successfully",
		Topic:   dto.NewTopicResponse(topic),
	})
}

// GetTopic godoc
// @Summary Get a topic
// @Tags topics
// @Produce json
// @Param id path int true "Topic ID"
// @Success 200 {object} dto.TopicDetailResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /topics/{id} [get]
func (c *TopicController) GetTopic(ctx *gin.Context) {
	id, err := helpers.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	topic, err := c.topicService.GetTopic(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.TopicDetailResponse{Topic: dto.NewTopicResponse(topic)})
}
