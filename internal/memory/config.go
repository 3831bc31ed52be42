package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"tubeshelf/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. The remainder covers ffmpeg and yt-dlp children and goroutine stacks.
const DefaultMemoryRatio = 0.85

// Source values reported in ConfigResult.
const (
	SourceGOMEMLIMIT  = "GOMEMLIMIT"
	SourceMemoryLimit = "MEMORY_LIMIT"
	SourceNone        = "none"
)

// ConfigResult holds the result of memory configuration
type ConfigResult struct {
	// Configured indicates whether a Go memory limit is in effect
	Configured bool

	// Source is one of SourceGOMEMLIMIT, SourceMemoryLimit or SourceNone
	Source string

	// ContainerLimit is the container memory limit in bytes (0 if not set)
	ContainerLimit int64

	// GoMemLimit is the configured GOMEMLIMIT in bytes (0 if not set)
	GoMemLimit int64

	// Ratio is the memory ratio used (0 if not applicable)
	Ratio float64
}

// Configure sets the Go soft memory limit to ratio * containerLimit. An
// explicit GOMEMLIMIT in the environment takes precedence, and a
// containerLimit <= 0 leaves the runtime untouched. Call this early in
// main, before significant allocations.
func Configure(containerLimit int64, ratio float64) ConfigResult {
	result := ConfigResult{Source: SourceNone}

	if goMemLimitEnv := os.Getenv("GOMEMLIMIT"); goMemLimitEnv != "" {
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		result.Source = SourceGOMEMLIMIT
		logging.Info("GOMEMLIMIT set via environment: %s", goMemLimitEnv)
		return result
	}

	if containerLimit <= 0 {
		logging.Debug("MEMORY_LIMIT not set, GOMEMLIMIT will not be configured automatically")
		return result
	}

	if ratio <= 0 || ratio > 1.0 {
		logging.Warn("Memory ratio %v out of range (0.0-1.0), using default %.2f", ratio, DefaultMemoryRatio)
		ratio = DefaultMemoryRatio
	}

	goMemLimit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	result.Configured = true
	result.Source = SourceMemoryLimit
	result.ContainerLimit = containerLimit
	result.GoMemLimit = goMemLimit
	result.Ratio = ratio

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s container limit)",
		FormatBytes(goMemLimit),
		ratio*100,
		FormatBytes(containerLimit),
	)

	return result
}

// FormatBytes formats bytes into a human-readable IEC string ("1.5 GiB").
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
