package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/clipvault/clipvault_server/internal/metrics"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// ErrProbe is returned when a file cannot be inspected as a media container.
var ErrProbe = errors.New("media probe failed")

const defaultFFprobePath = "ffprobe"

type ProbeResult struct {
	Duration   float64
	FormatName string
	VideoCodec string
	Width      int
	Height     int
}

type ffprobeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Prober reads container metadata with ffprobe. It never modifies the file.
type Prober struct {
	binary  string
	timeout time.Duration
	runner  CommandRunner
}

func NewProber(config Config, runner CommandRunner) *Prober {
	binary := config.FFprobePath
	if binary == "" {
		binary = defaultFFprobePath
	}
	if runner == nil {
		runner = ExecCommandRunner{}
	}

	return &Prober{
		binary:  binary,
		timeout: config.ProbeTimeout,
		runner:  runner,
	}
}

func (p *Prober) Probe(ctx context.Context, filePath string) (*ProbeResult, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	started := time.Now()
	output, err := p.runner.Run(ctx, p.binary,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)
	if err != nil {
		metrics.ObserveProbe(metrics.ResultFailure, time.Since(started).Seconds())
		log.Debug().Err(err).Str("path", filePath).Msg("ffprobe failed")
		return nil, fmt.Errorf("%w: %w", ErrProbe, err)
	}

	result, err := parseProbeOutput(output)
	if err != nil {
		metrics.ObserveProbe(metrics.ResultFailure, time.Since(started).Seconds())
		return nil, err
	}

	metrics.ObserveProbe(metrics.ResultSuccess, time.Since(started).Seconds())
	return result, nil
}

func (p *Prober) VerifyInstalled(ctx context.Context) error {
	return verifyInstalled(ctx, p.runner, p.binary)
}

func parseProbeOutput(output []byte) (*ProbeResult, error) {
	var parsed ffprobeOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed ffprobe output: %w", ErrProbe, err)
	}

	rawDuration := strings.TrimSpace(parsed.Format.Duration)
	if rawDuration == "" {
		return nil, fmt.Errorf("%w: duration missing", ErrProbe)
	}
	duration, err := strconv.ParseFloat(rawDuration, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid duration %q", ErrProbe, rawDuration)
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0 {
		return nil, fmt.Errorf("%w: invalid duration %q", ErrProbe, rawDuration)
	}

	result := &ProbeResult{
		Duration:   duration,
		FormatName: parsed.Format.FormatName,
	}
	for _, stream := range parsed.Streams {
		if stream.CodecType == "video" {
			result.VideoCodec = stream.CodecName
			result.Width = stream.Width
			result.Height = stream.Height
			break
		}
	}

	return result, nil
}
