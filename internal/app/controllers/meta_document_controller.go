package controllers

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/notespace/internal/app/models/dto"
	"github.com/yigit/notespace/internal/app/services"
	"github.com/yigit/notespace/internal/middleware"
	"github.com/yigit/notespace/internal/pkg/apperrors"
	"github.com/yigit/notespace/internal/pkg/helpers"
)

// StreamHandler upgrades a request into a status subscription for a topic.
// *websocket.Handler implements it.
type StreamHandler interface {
	ServeTopic(w http.ResponseWriter, r *http.Request, topicID int64) error
}

// MetaDocumentController handles meta document processing and retrieval
type MetaDocumentController struct {
	metaDocumentService services.MetaDocumentService
	topicService        services.TopicService
	stream              StreamHandler
	logger              zerolog.Logger
}

// NewMetaDocumentController creates a new MetaDocumentController
func NewMetaDocumentController(
	metaDocumentService services.MetaDocumentService,
	topicService services.TopicService,
	stream StreamHandler,
	logger zerolog.Logger,
) *MetaDocumentController {
	return &MetaDocumentController{
		metaDocumentService: metaDocumentService,
		topicService:        topicService,
		stream:              stream,
		logger:              logger,
	}
}

// List godoc
// @Summary List meta documents
// @Description Lists meta documents newest first, optionally for one topic
// @Tags meta-documents
// @Produce json
// @Param topic_id query int false "Topic ID"
// @Success 200 {object} dto.MetaDocumentListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /meta-documents/list [get]
func (c *MetaDocumentController) List(ctx *gin.Context) {
	topicID, err := helpers.OptionalInt64Query(ctx, "topic_id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	docs, err := c.metaDocumentService.List(ctx.Request.Context(), topicID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewMetaDocumentListResponse(docs))
}

// ProcessTopic godoc
// @Summary Synthesize a topic
// @Description Starts a background run over every note in the topic. Progress is reported on the status endpoint and the websocket stream.
// @Tags meta-documents
// @Produce json
// @Param id path int true "Topic ID"
// @Success 200 {object} dto.ProcessResponse
// @Failure 400 {object} dto.ErrorResponse "Topic has no extractable files"
// @Failure 404 {object} dto.ErrorResponse "Topic not found"
// @Failure 409 {object} dto.ErrorResponse "A run for this topic is already active"
// @Failure 503 {object} dto.ErrorResponse "Processing queue unavailable"
// @Router /meta-documents/process/topic/{id} [post]
func (c *MetaDocumentController) ProcessTopic(ctx *gin.Context) {
	topicID, err := helpers.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	doc, err := c.metaDocumentService.ProcessTopic(ctx.Request.Context(), topicID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("topicID", topicID).Int64("metaDocumentID", doc.ID).Msg("Topic processing started")
	ctx.JSON(http.StatusOK, dto.ProcessResponse{
		Message:      "Processing started successfully",
		MetaDocument: dto.NewMetaDocumentResponse(doc),
	})
}

// ProcessNote godoc
// @Summary Synthesize a note's topic
// @Description Starts a background run for the topic the note belongs to
// @Tags meta-documents
// @Produce json
// @Param id path int true "Note ID"
// @Success 200 {object} dto.ProcessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Note not found"
// @Failure 409 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /meta-documents/process/note/{id} [post]
func (c *MetaDocumentController) ProcessNote(ctx *gin.Context) {
	noteID, err := helpers.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	doc, err := c.metaDocumentService.ProcessNote(ctx.Request.Context(), noteID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("noteID", noteID).Int64("metaDocumentID", doc.ID).Msg("Note processing started")
	ctx.JSON(http.StatusOK, dto.ProcessResponse{
		Message:      "Processing started successfully",
		MetaDocument: dto.NewMetaDocumentResponse(doc),
	})
}

// GetByTopic godoc
// @Summary Latest meta document of a topic
// @Tags meta-documents
// @Produce json
// @Param id path int true "Topic ID"
// @Success 200 {object} dto.MetaDocumentDetailResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /meta-documents/topic/{id} [get]
func (c *MetaDocumentController) GetByTopic(ctx *gin.Context) {
	topicID, err := helpers.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	doc, err := c.metaDocumentService.GetLatestForTopic(ctx.Request.Context(), topicID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.MetaDocumentDetailResponse{MetaDocument: dto.NewMetaDocumentResponse(doc)})
}

// Get godoc
// @Summary Get a meta document
// @Tags meta-documents
// @Produce json
// @Param id path int true "Meta document ID"
// @Success 200 {object} dto.MetaDocumentDetailResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /meta-documents/{id} [get]
func (c *MetaDocumentController) Get(ctx *gin.Context) {
	id, err := helpers.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	doc, err := c.metaDocumentService.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.MetaDocumentDetailResponse{MetaDocument: dto.NewMetaDocumentResponse(doc)})
}

// Status godoc
// @Summary Processing status
// @Tags meta-documents
// @Produce json
// @Param id path int true "Meta document ID"
// @Success 200 {object} dto.MetaDocumentStatusResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /meta-documents/{id}/status [get]
func (c *MetaDocumentController) Status(ctx *gin.Context) {
	id, err := helpers.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	doc, err := c.metaDocumentService.GetStatus(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewMetaDocumentStatusResponse(doc))
}

// Download godoc
// @Summary Download a meta document
// @Description Returns the synthesized content as a text attachment. Only completed documents can be downloaded.
// @Tags meta-documents
// @Produce plain
// @Param id path int true "Meta document ID"
// @Success 200 {string} string
// @Failure 400 {object} dto.ErrorResponse "Not completed yet"
// @Failure 404 {object} dto.ErrorResponse
// @Router /meta-documents/{id}/download [get]
func (c *MetaDocumentController) Download(ctx *gin.Context) {
	id, err := helpers.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	doc, err := c.metaDocumentService.Download(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": dto.MetaDocumentFilename(doc),
	}))
	ctx.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(dto.RenderMetaDocumentText(doc)))
}

// Stream godoc
// @Summary Status stream
// @Description Upgrades to a websocket that receives a JSON event for every status change of the topic's meta documents
// @Tags meta-documents
// @Param topic_id query int true "Topic ID"
// @Success 101 {string} string "Switching Protocols"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /meta-documents/ws [get]
func (c *MetaDocumentController) Stream(ctx *gin.Context) {
	topicID, err := helpers.OptionalInt64Query(ctx, "topic_id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if topicID == nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("topic_id is required"))
		return
	}

	if _, err := c.topicService.GetTopic(ctx.Request.Context(), *topicID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err := c.stream.ServeTopic(ctx.Writer, ctx.Request, *topicID); err != nil {
		c.logger.Debug().Err(err).Int64("topicID", *topicID).Msg("Status stream not established")
	}
}

// Ping godoc
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} dto.PingResponse
// @Router /ping [get]
func Ping(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.PingResponse{Status: "ok"})
}
