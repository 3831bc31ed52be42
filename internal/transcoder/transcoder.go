package transcoder

import (
	"context"
	"fmt"
	"time"

	"tubeshelf/internal/logging"
	"tubeshelf/internal/process"

	"github.com/spf13/afero"
)

// ToolName labels ffmpeg runs in logs and metrics.
const ToolName = "ffmpeg"

// DefaultSeekOffset is where the thumbnail frame is taken from.
const DefaultSeekOffset = "00:00:01.000"

// Config configures frame extraction.
type Config struct {
	FFmpegPath string
	Timeout    time.Duration
	SeekOffset string
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		FFmpegPath: "ffmpeg",
		Timeout:    30 * time.Second,
		SeekOffset: DefaultSeekOffset,
	}
}

// Transcoder drives ffmpeg to pull single frames out of videos.
type Transcoder struct {
	runner process.Runner
	fs     afero.Fs
	config Config
}

// New creates a Transcoder. fs is used only to check that ffmpeg produced
// output.
func New(runner process.Runner, fs afero.Fs, config Config) *Transcoder {
	if config.FFmpegPath == "" {
		config.FFmpegPath = "ffmpeg"
	}
	if config.SeekOffset == "" {
		config.SeekOffset = DefaultSeekOffset
	}
	return &Transcoder{runner: runner, fs: fs, config: config}
}

// FrameArgs builds the ffmpeg arguments that write the frame at seek of
// input to output.
func FrameArgs(input, output, seek string) []string {
	return []string{"-y", "-ss", seek, "-i", input, "-frames:v", "1", output}
}

// ExtractFrame runs ffmpeg once to write one frame of input to output as an
// image whose format follows output's extension. A failed run is not
// repeated.
func (t *Transcoder) ExtractFrame(ctx context.Context, input, output string) (*process.Result, error) {
	logging.Debug("Extracting video frame: %s -> %s", input, output)

	result, err := t.run(ctx, FrameArgs(input, output, t.config.SeekOffset))
	if err != nil {
		return result, err
	}
	if !t.produced(output) {
		return result, fmt.Errorf("ffmpeg produced no output for %s", input)
	}
	return result, nil
}

func (t *Transcoder) run(ctx context.Context, args []string) (*process.Result, error) {
	return t.runner.Run(ctx, process.Command{
		Tool:    ToolName,
		Path:    t.config.FFmpegPath,
		Args:    args,
		Timeout: t.config.Timeout,
	})
}

func (t *Transcoder) produced(path string) bool {
	info, err := t.fs.Stat(path)
	return err == nil && info.Size() > 0
}
