package video

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"time"

	"github.com/clipvault/clipvault_server/internal/media"
	"github.com/clipvault/clipvault_server/internal/metrics"
	"github.com/clipvault/clipvault_server/internal/storage"
	"github.com/clipvault/clipvault_server/internal/user"
	"github.com/rs/zerolog/log"
)

const outcomeAccepted = metrics.ResultSuccess

type Trimmer interface {
	Trim(ctx context.Context, inputPath, outputPath string, start, end float64) error
}

type IngestRequest struct {
	TempPath     string
	OriginalName string
	ContentType  string
	Size         int64
}

// TrimRequest bounds are in seconds. A nil bound was not provided; an
// explicit zero is a provided bound.
type TrimRequest struct {
	VideoID string   `json:"videoId"`
	Start   *float64 `json:"start"`
	End     *float64 `json:"end"`
}

type VideoService struct {
	config    Config
	repo      VideoRepository
	layout    *storage.Layout
	files     FileStore
	validator *Validator
	trimmer   Trimmer
	now       func() time.Time
}

func NewVideoService(config Config, repo VideoRepository, layout *storage.Layout, files FileStore, prober Prober, trimmer Trimmer) *VideoService {
	return &VideoService{
		config:    config,
		repo:      repo,
		layout:    layout,
		files:     files,
		validator: NewValidator(config, prober, files),
		trimmer:   trimmer,
		now:       time.Now,
	}
}

// IncomingPath is where the transport should write the next upload.
func (s *VideoService) IncomingPath() string {
	return s.layout.NewIncomingPath()
}

// Ingest validates a written upload and moves it into the owner's directory.
// The temp file never outlives a failed call.
func (s *VideoService) Ingest(ctx context.Context, owner *user.User, req IngestRequest) (*Video, error) {
	video, err := s.ingest(ctx, owner, req)
	if err != nil {
		metrics.RecordUpload(KindOf(err).String(), req.Size)
		return nil, err
	}
	metrics.RecordUpload(outcomeAccepted, video.Size)
	return video, nil
}

func (s *VideoService) ingest(ctx context.Context, owner *user.User, req IngestRequest) (*Video, error) {
	directory, err := s.files.EnsureUserDirectory(owner.ID)
	if err != nil {
		s.discard(req.TempPath)
		return nil, internalError(err)
	}

	duration, err := s.validator.Validate(ctx, Upload{
		Path:        req.TempPath,
		ContentType: req.ContentType,
		Size:        req.Size,
	})
	if err != nil {
		return nil, err
	}

	name := s.layout.NewFileName(req.OriginalName)
	destination := filepath.Join(directory, name)
	if err := s.files.Move(req.TempPath, destination); err != nil {
		s.discard(req.TempPath)
		return nil, internalError(err)
	}

	size, err := s.files.Size(destination)
	if err != nil {
		s.discard(destination)
		return nil, internalError(err)
	}

	video := &Video{
		UserID:       owner.ID,
		Path:         s.layout.RelativePath(owner.ID, name),
		Name:         name,
		OriginalName: req.OriginalName,
		Size:         size,
		Duration:     duration,
		CreatedAt:    s.now().Unix(),
	}
	if err := s.repo.Create(ctx, video); err != nil {
		s.discard(destination)
		return nil, internalError(err)
	}

	log.Info().
		Str("videoId", video.ID).
		Str("userId", owner.ID).
		Int64("size", video.Size).
		Float64("duration", video.Duration).
		Msg("Video uploaded")
	return video, nil
}

// Trim cuts a new video out of one the caller owns. The source is never modified.
func (s *VideoService) Trim(ctx context.Context, owner *user.User, req TrimRequest) (*Video, error) {
	video, err := s.trim(ctx, owner, req)
	if err != nil {
		metrics.RecordTrim(KindOf(err).String())
		return nil, err
	}
	metrics.RecordTrim(outcomeAccepted)
	return video, nil
}

func (s *VideoService) trim(ctx context.Context, owner *user.User, req TrimRequest) (*Video, error) {
	if req.Start == nil && req.End == nil {
		return nil, ErrNoBoundsProvided()
	}

	source, err := s.owned(ctx, owner, req.VideoID)
	if err != nil {
		return nil, err
	}

	start, end, err := s.bounds(source, req)
	if err != nil {
		return nil, err
	}

	directory, err := s.files.EnsureUserDirectory(owner.ID)
	if err != nil {
		return nil, internalError(err)
	}
	name := s.layout.NewFileName(source.OriginalName)
	output := filepath.Join(directory, name)

	if err := s.trimmer.Trim(ctx, s.layout.Resolve(source.Path), output, start, end); err != nil {
		s.discard(output)
		if errors.Is(err, media.ErrTrimFailed) {
			return nil, &Error{Kind: KindTrimFailed, Message: internalErrorMessage, Err: err}
		}
		return nil, internalError(err)
	}

	size, err := s.files.Size(output)
	if err != nil || size == 0 {
		s.discard(output)
		return nil, &Error{Kind: KindTrimFailed, Message: internalErrorMessage, Err: err}
	}

	trimmed := &Video{
		UserID:       owner.ID,
		Path:         s.layout.RelativePath(owner.ID, name),
		Name:         name,
		OriginalName: source.OriginalName,
		Size:         size,
		Duration:     end - start,
		CreatedAt:    s.now().Unix(),
	}
	if err := s.repo.Create(ctx, trimmed); err != nil {
		s.discard(output)
		return nil, internalError(err)
	}

	log.Info().
		Str("videoId", trimmed.ID).
		Str("sourceId", source.ID).
		Float64("start", start).
		Float64("end", end).
		Msg("Video trimmed")
	return trimmed, nil
}

// bounds resolves the effective range. Checks run in a fixed order so the
// caller always sees the first violated rule.
func (s *VideoService) bounds(source *Video, req TrimRequest) (float64, float64, error) {
	start := 0.0
	end := source.Duration

	if req.Start != nil {
		if !finite(*req.Start) || *req.Start < 0 {
			return 0, 0, ErrInvalidStart()
		}
		start = *req.Start
	}
	if req.End != nil {
		if !finite(*req.End) || *req.End >= source.Duration {
			return 0, 0, ErrInvalidEnd()
		}
		end = *req.End
	}
	if req.Start != nil && req.End != nil && *req.Start >= *req.End {
		return 0, 0, ErrInvalidRange()
	}
	if end-start < s.config.MinDuration {
		return 0, 0, ErrTooShortAfterTrim()
	}
	return start, end, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (s *VideoService) List(ctx context.Context, owner *user.User) ([]*Video, error) {
	videos, err := s.repo.ListByUser(ctx, owner.ID)
	if err != nil {
		return nil, internalError(err)
	}
	if videos == nil {
		videos = []*Video{}
	}
	return videos, nil
}

// Open returns the caller's video and the absolute path of its file.
func (s *VideoService) Open(ctx context.Context, owner *user.User, videoID string) (*Video, string, error) {
	video, err := s.owned(ctx, owner, videoID)
	if err != nil {
		return nil, "", err
	}

	filePath := s.layout.Resolve(video.Path)
	exists, err := s.files.Exists(filePath)
	if err != nil {
		return nil, "", internalError(err)
	}
	if !exists {
		log.Warn().Str("videoId", video.ID).Str("path", filePath).Msg("Video file is missing")
		return nil, "", ErrNotFound()
	}
	return video, filePath, nil
}

// owned loads a video, reporting a missing record before a foreign owner.
func (s *VideoService) owned(ctx context.Context, owner *user.User, videoID string) (*Video, error) {
	if videoID == "" {
		return nil, ErrNotFound()
	}

	video, err := s.repo.GetByID(ctx, videoID)
	if err != nil {
		return nil, internalError(err)
	}
	if video == nil {
		return nil, ErrNotFound()
	}
	if video.UserID != owner.ID {
		return nil, ErrForbidden()
	}
	return video, nil
}

func (s *VideoService) discard(path string) {
	if err := s.files.Delete(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to remove video file")
	}
}
