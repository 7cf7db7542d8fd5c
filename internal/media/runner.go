package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

type Config struct {
	FFprobePath  string        `mapstructure:"ffprobe_path"`
	FFmpegPath   string        `mapstructure:"ffmpeg_path"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	TrimTimeout  time.Duration `mapstructure:"trim_timeout"`
}

// CommandRunner runs an external program to completion and returns its stdout.
// Tests swap it for a fake so ffprobe and ffmpeg need not be installed.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type ExecCommandRunner struct{}

func (ExecCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", name, ctxErr)
		}
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}

	return stdout.Bytes(), nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func verifyInstalled(ctx context.Context, runner CommandRunner, binary string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := runner.Run(ctx, binary, "-version"); err != nil {
		return fmt.Errorf("%s not found or not executable: %w", binary, err)
	}
	return nil
}
