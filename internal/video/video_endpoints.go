package video

import (
	"context"
	"errors"
	"mime"

	"github.com/clipvault/clipvault_server/internal/response"
	"github.com/clipvault/clipvault_server/internal/user"
	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const (
	uploadFieldName     = "video"
	defaultDownloadType = "application/octet-stream"
	// PathParamVideoID is set by the router on download requests.
	PathParamVideoID = "videoID"
)

// UploadGate answers the plan-limit question before any bytes are accepted.
type UploadGate interface {
	CanUpload(ctx context.Context, u *user.User) (bool, error)
}

type VideoEndpoints struct {
	videoService *VideoService
	uploadGate   UploadGate
}

func NewVideoEndpoints(videoService *VideoService, uploadGate UploadGate) *VideoEndpoints {
	return &VideoEndpoints{
		videoService: videoService,
		uploadGate:   uploadGate,
	}
}

// List handles GET /api/v1/videos
func (ve *VideoEndpoints) List(ctx *fasthttp.RequestCtx) {
	authenticatedUser, ok := authenticated(ctx)
	if !ok {
		return
	}

	videos, err := ve.videoService.List(ctx, authenticatedUser)
	if err != nil {
		writeError(ctx, err)
		return
	}
	response.JSON(ctx, fasthttp.StatusOK, videos)
}

// Download handles GET /api/v1/videos/download/{videoId}
func (ve *VideoEndpoints) Download(ctx *fasthttp.RequestCtx) {
	authenticatedUser, ok := authenticated(ctx)
	if !ok {
		return
	}

	videoID, _ := ctx.UserValue(PathParamVideoID).(string)
	video, filePath, err := ve.videoService.Open(ctx, authenticatedUser, videoID)
	if err != nil {
		writeError(ctx, err)
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": video.OriginalName})
	if disposition == "" {
		disposition = "attachment"
	}
	contentType := defaultDownloadType
	if detected, err := mimetype.DetectFile(filePath); err == nil {
		contentType = detected.String()
	}

	// Response.SendFile opens the path as-is; RequestCtx.SendFile would parse
	// it as a URI and break on names holding '?', '#' or '%'.
	if err := ctx.Response.SendFile(filePath); err != nil {
		writeError(ctx, internalError(err))
		return
	}
	ctx.SetContentType(contentType)
	ctx.Response.Header.Set("Content-Disposition", disposition)
}

// Upload handles POST /api/v1/videos/upload
func (ve *VideoEndpoints) Upload(ctx *fasthttp.RequestCtx) {
	authenticatedUser, ok := authenticated(ctx)
	if !ok {
		return
	}

	allowed, err := ve.uploadGate.CanUpload(ctx, authenticatedUser)
	if err != nil {
		writeError(ctx, internalError(err))
		return
	}
	if !allowed {
		writeError(ctx, ErrPlanLimit())
		return
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		if errors.Is(err, fasthttp.ErrNoMultipartForm) {
			writeError(ctx, ErrFileMissing())
			return
		}
		log.Warn().Err(err).Msg("Failed to parse multipart form")
		writeError(ctx, newError(KindInvalidRequest, "Failed to parse multipart form", ""))
		return
	}

	total := 0
	for _, headers := range form.File {
		total += len(headers)
	}
	files := form.File[uploadFieldName]
	if len(files) == 0 {
		writeError(ctx, ErrFileMissing())
		return
	}
	if total > 1 {
		writeError(ctx, newError(KindInvalidRequest, "Only one file is allowed", uploadFieldName))
		return
	}

	fileHeader := files[0]
	tempPath := ve.videoService.IncomingPath()
	if err := fasthttp.SaveMultipartFile(fileHeader, tempPath); err != nil {
		ve.videoService.discard(tempPath)
		writeError(ctx, internalError(err))
		return
	}

	video, err := ve.videoService.Ingest(ctx, authenticatedUser, IngestRequest{
		TempPath:     tempPath,
		OriginalName: fileHeader.Filename,
		ContentType:  fileHeader.Header.Get("Content-Type"),
		Size:         fileHeader.Size,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	response.JSON(ctx, fasthttp.StatusCreated, video)
}

// Trim handles POST /api/v1/videos/trim
func (ve *VideoEndpoints) Trim(ctx *fasthttp.RequestCtx) {
	authenticatedUser, ok := authenticated(ctx)
	if !ok {
		return
	}

	var req TrimRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		log.Debug().Err(err).Msg("Failed to parse trim request")
		writeError(ctx, newError(KindInvalidRequest, "Invalid request body", ""))
		return
	}
	if req.VideoID == "" {
		writeError(ctx, newError(KindInvalidRequest, "videoId is required", "videoId"))
		return
	}

	video, err := ve.videoService.Trim(ctx, authenticatedUser, req)
	if err != nil {
		writeError(ctx, err)
		return
	}
	response.JSON(ctx, fasthttp.StatusCreated, video)
}

func authenticated(ctx *fasthttp.RequestCtx) (*user.User, bool) {
	authenticatedUser, ok := ctx.UserValue(user.ContextKey).(*user.User)
	if !ok || authenticatedUser == nil {
		log.Error().Msg("Failed to get authenticated user from context")
		response.Error(ctx, fasthttp.StatusUnauthorized, "Token is required")
		return nil, false
	}
	return authenticatedUser, true
}

func writeError(ctx *fasthttp.RequestCtx, err error) {
	var videoErr *Error
	if !errors.As(err, &videoErr) {
		videoErr = internalError(err)
	}

	status := StatusCode(videoErr.Kind)
	if status >= fasthttp.StatusInternalServerError {
		log.Error().Err(err).Str("path", string(ctx.Path())).Msg("Video request failed")
	}
	response.FieldError(ctx, status, videoErr.Message, videoErr.Field)
}

// StatusCode maps an error kind to its HTTP status.
func StatusCode(kind Kind) int {
	switch kind {
	case KindInvalidRequest, KindFileMissing, KindFileTooLarge, KindInvalidFileType,
		KindVideoTooLong, KindVideoTooShort, KindNoBoundsProvided, KindInvalidStart,
		KindInvalidEnd, KindInvalidRange, KindTooShortAfterTrim:
		return fasthttp.StatusBadRequest
	case KindNotFound:
		return fasthttp.StatusNotFound
	case KindForbidden, KindPlanLimit:
		return fasthttp.StatusForbidden
	default:
		return fasthttp.StatusInternalServerError
	}
}
