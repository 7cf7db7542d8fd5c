package video

import (
	"context"
	"errors"
	"strings"

	"github.com/clipvault/clipvault_server/internal/media"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

const (
	videoTypePrefix    = "video/"
	genericContentType = "application/octet-stream"
)

type Prober interface {
	Probe(ctx context.Context, filePath string) (*media.ProbeResult, error)
}

// FileStore is the part of the local storage the pipeline writes through.
type FileStore interface {
	EnsureUserDirectory(userID string) (string, error)
	Move(src, dst string) error
	Delete(path string) error
	Size(path string) (int64, error)
	Exists(path string) (bool, error)
}

// Upload is a file the transport has already written to disk.
type Upload struct {
	Path        string
	ContentType string
	// Size is the size the client declared; the observed size on disk is checked as well.
	Size int64
}

// Validator accepts or rejects a written upload. Every rejection removes
// the file before returning.
type Validator struct {
	config Config
	prober Prober
	files  FileStore
}

func NewValidator(config Config, prober Prober, files FileStore) *Validator {
	return &Validator{
		config: config,
		prober: prober,
		files:  files,
	}
}

// Validate returns the probed duration in seconds of an accepted upload.
func (v *Validator) Validate(ctx context.Context, upload Upload) (float64, error) {
	size, err := v.files.Size(upload.Path)
	if err != nil {
		return 0, v.reject(upload, internalError(err))
	}
	if upload.Size > size {
		size = upload.Size
	}
	if v.config.MaxFileSize > 0 && size > v.config.MaxFileSize {
		return 0, v.reject(upload, ErrFileTooLarge())
	}

	if !isVideoType(v.contentType(upload)) {
		return 0, v.reject(upload, ErrInvalidFileType())
	}

	probed, err := v.prober.Probe(ctx, upload.Path)
	if err != nil {
		if errors.Is(err, media.ErrProbe) {
			log.Info().Err(err).Str("path", upload.Path).Msg("Upload is not a readable video")
			return 0, v.reject(upload, ErrInvalidFileType())
		}
		return 0, v.reject(upload, internalError(err))
	}

	if probed.Duration > v.config.MaxDuration {
		return 0, v.reject(upload, ErrVideoTooLong())
	}
	if probed.Duration < v.config.MinDuration {
		return 0, v.reject(upload, ErrVideoTooShort())
	}

	return probed.Duration, nil
}

// contentType trusts the declared type unless the client sent none or the
// generic binary type, in which case the leading bytes decide.
func (v *Validator) contentType(upload Upload) string {
	declared := strings.TrimSpace(upload.ContentType)
	if declared != "" && !strings.HasPrefix(declared, genericContentType) {
		return declared
	}

	detected, err := mimetype.DetectFile(upload.Path)
	if err != nil {
		log.Warn().Err(err).Str("path", upload.Path).Msg("Failed to detect content type")
		return declared
	}
	return detected.String()
}

func (v *Validator) reject(upload Upload, rejection *Error) *Error {
	if err := v.files.Delete(upload.Path); err != nil {
		log.Warn().Err(err).Str("path", upload.Path).Msg("Failed to remove rejected upload")
	}
	return rejection
}

func isVideoType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), videoTypePrefix)
}
