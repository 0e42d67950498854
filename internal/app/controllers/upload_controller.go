package controllers

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/notespace/internal/app/models"
	"github.com/yigit/notespace/internal/app/models/dto"
	"github.com/yigit/notespace/internal/app/repositories"
	"github.com/yigit/notespace/internal/app/services"
	"github.com/yigit/notespace/internal/middleware"
	"github.com/yigit/notespace/internal/pkg/apperrors"
	"github.com/yigit/notespace/internal/pkg/helpers"
)

// multipartOverhead is allowed on top of the file size for form fields and boundaries
const multipartOverhead = 1 << 20

// sniffLength is how much of a file is read to detect its content type
const sniffLength = 3072

// fileContentSecurityPolicy keeps served uploads from running script on the API origin
const fileContentSecurityPolicy = "default-src 'none'; sandbox"

// UploadController handles note upload, listing, download and upvotes
type UploadController struct {
	noteService    services.NoteService
	maxFileSize    int64
	allowAnonymous bool
	logger         zerolog.Logger
}

// NewUploadController creates a new UploadController
func NewUploadController(noteService services.NoteService, maxFileSize int64, allowAnonymous bool, logger zerolog.Logger) *UploadController {
	return &UploadController{
		noteService:    noteService,
		maxFileSize:    maxFileSize,
		allowAnonymous: allowAnonymous,
		logger:         logger,
	}
}

// Upload godoc
// @Summary Upload a file
// @Description Stores a file in a topic. Requires a bearer token unless anonymous uploads are enabled.
// @Tags upload
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "File to upload"
// @Param topic_id formData int true "Topic ID"
// @Success 200 {object} dto.UploadResponse
// @Failure 400 {object} dto.ErrorResponse "Missing file or topic, or file type not allowed"
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Topic not found"
// @Failure 413 {object} dto.ErrorResponse "File too large"
// @Failure 500 {object} dto.ErrorResponse
// @Router /upload/ [post]
func (c *UploadController) Upload(ctx *gin.Context) {
	userID, authenticated := middleware.GetUserID(ctx)
	if !authenticated && !c.allowAnonymous {
		middleware.HandleAPIError(ctx, apperrors.ErrUnauthorized)
		return
	}

	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, c.maxFileSize+multipartOverhead)

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			middleware.HandleAPIError(ctx, apperrors.ErrFileTooLarge)
			return
		}
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("No file provided"))
		return
	}

	topicID, err := strconv.ParseInt(strings.TrimSpace(ctx.PostForm("topic_id")), 10, 64)
	if err != nil || topicID <= 0 {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("topic_id is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to open uploaded file")
		middleware.HandleAPIError(ctx, err)
		return
	}
	defer file.Close()

	input := &services.UploadInput{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Content:  file,
		TopicID:  topicID,
	}
	if authenticated {
		input.UserID = &userID
	}

	note, err := c.noteService.UploadFile(ctx.Request.Context(), input)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.UploadResponse{
		Message: "File uploaded successfully",
		Note:    dto.NewNoteResponse(note),
	})
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

// ListFiles godoc
// @Summary List uploaded files
// @Description Lists notes newest first, optionally filtered by topic or uploader
// @Tags upload
// @Produce json
// @Param topic_id query int false "Topic ID"
// @Param user_id query int false "Uploader user ID"
// @Success 200 {object} dto.NoteListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /upload/list [get]
func (c *UploadController) ListFiles(ctx *gin.Context) {
	topicID, err := helpers.OptionalInt64Query(ctx, "topic_id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	userID, err := helpers.OptionalInt64Query(ctx, "user_id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	notes, err := c.noteService.ListFiles(ctx.Request.Context(), repositories.NoteFilter{TopicID: topicID, UserID: userID})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewNoteListResponse(notes))
}

// GetFile godoc
// @Summary Get file metadata
// @Tags upload
// @Produce json
// @Param id path int true "Note ID"
// @Success 200 {object} dto.NoteDetailResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /upload/{id} [get]
func (c *UploadController) GetFile(ctx *gin.Context) {
	id, err := helpers.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	note, err := c.noteService.GetFile(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NoteDetailResponse{Note: dto.NewNoteResponse(note)})
}

// ServeFile godoc
// @Summary Download a stored file
// @Description Streams the file. Previewable types are served inline unless download=1.
// @Tags upload
// @Produce octet-stream
// @Param filename path string true "Stored file name"
// @Param download query bool false "Force attachment"
// @Success 200 {file} file
// @Failure 404 {object} dto.ErrorResponse
// @Router /upload/files/{filename} [get]
func (c *UploadController) ServeFile(ctx *gin.Context) {
	name := ctx.Param("filename")

	obj, err := c.noteService.OpenFile(ctx.Request.Context(), name)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	defer obj.Body.Close()

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(obj.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		c.logger.Error().Err(err).Str("filename", name).Msg("Failed to read stored file")
		middleware.HandleAPIError(ctx, err)
		return
	}
	head = head[:n]
	sniffed := mimetype.Detect(head)

	// Inline files get a type derived from the name, never from the bytes,
	// and anything that sniffs as markup is only offered as a download.
	contentType, inline := models.InlineContentType(name)
	if helpers.BoolQuery(ctx, "download") || isMarkup(sniffed) {
		inline = false
	}

	disposition := "inline"
	if !inline {
		disposition = "attachment"
		contentType = sniffed.String()
		if isMarkup(sniffed) {
			contentType = "application/octet-stream"
		}
	}

	ctx.DataFromReader(http.StatusOK, obj.Size, contentType,
		io.MultiReader(bytes.NewReader(head), obj.Body),
		map[string]string{
			"Content-Disposition":     mime.FormatMediaType(disposition, map[string]string{"filename": name}),
			"Content-Security-Policy": fileContentSecurityPolicy,
			"X-Content-Type-Options":  "nosniff",
		})
}

// isMarkup reports whether the detected type, or a type it derives from, is
// HTML or XML a browser could execute script from.
func isMarkup(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		mediaType, _, err := mime.ParseMediaType(m.String())
		if err != nil {
			continue
		}
		if mediaType == "text/html" || strings.HasSuffix(mediaType, "/xml") || strings.HasSuffix(mediaType, "+xml") {
			return true
		}
	}
	return false
}

// Upvote godoc
// @Summary Upvote a note
// @Description Each user can upvote a note once. Repeated upvotes report the current count.
// @Tags upload
// @Produce json
// @Security BearerAuth
// @Param id path int true "Note ID"
// @Success 200 {object} dto.UpvoteResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /upload/{id}/upvote [post]
func (c *UploadController) Upvote(ctx *gin.Context) {
	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrUnauthorized)
		return
	}

	noteID, err := helpers.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	result, err := c.noteService.Upvote(ctx.Request.Context(), noteID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewUpvoteResponse(result))
}
