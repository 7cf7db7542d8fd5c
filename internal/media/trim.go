package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/clipvault/clipvault_server/internal/metrics"
	"github.com/rs/zerolog/log"
)

// ErrTrimFailed is returned when ffmpeg exits non-zero or leaves no output.
var ErrTrimFailed = errors.New("trim failed")

const defaultFFmpegPath = "ffmpeg"

// Trimmer cuts [start, end) out of a video with ffmpeg. Callers validate the
// bounds against the source duration; Trimmer only rejects an empty range.
type Trimmer struct {
	binary  string
	timeout time.Duration
	runner  CommandRunner
}

func NewTrimmer(config Config, runner CommandRunner) *Trimmer {
	binary := config.FFmpegPath
	if binary == "" {
		binary = defaultFFmpegPath
	}
	if runner == nil {
		runner = ExecCommandRunner{}
	}

	return &Trimmer{
		binary:  binary,
		timeout: config.TrimTimeout,
		runner:  runner,
	}
}

func (t *Trimmer) Trim(ctx context.Context, inputPath, outputPath string, start, end float64) error {
	if end <= start {
		return fmt.Errorf("%w: empty range [%v, %v)", ErrTrimFailed, start, end)
	}

	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-n",
		"-ss", formatSeconds(start),
		"-i", inputPath,
		"-t", formatSeconds(end - start),
		outputPath,
	}

	started := time.Now()
	if _, err := t.runner.Run(ctx, t.binary, args...); err != nil {
		metrics.ObserveTrim(metrics.ResultFailure, time.Since(started).Seconds())
		log.Error().Err(err).Str("input", inputPath).Str("output", outputPath).Msg("ffmpeg trim failed")
		return fmt.Errorf("%w: %w", ErrTrimFailed, err)
	}

	info, err := os.Stat(outputPath)
	if err != nil || info.Size() == 0 {
		metrics.ObserveTrim(metrics.ResultFailure, time.Since(started).Seconds())
		return fmt.Errorf("%w: no output written to %s", ErrTrimFailed, outputPath)
	}

	metrics.ObserveTrim(metrics.ResultSuccess, time.Since(started).Seconds())
	return nil
}

func (t *Trimmer) VerifyInstalled(ctx context.Context) error {
	return verifyInstalled(ctx, t.runner, t.binary)
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}
