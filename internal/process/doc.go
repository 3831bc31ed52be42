// Package process runs the external programs tubeshelf delegates to
// (ffmpeg for frame extraction, yt-dlp for downloads).
//
// Every invocation is bounded by the caller's context plus an optional
// per-command timeout, and its outcome is classified into one of:
//
//   - success
//   - ErrTimeout: killed after exceeding Command.Timeout
//   - *ExitError: ran and exited non-zero, stderr attached
//   - ErrLaunch: could not be started
//   - context.Canceled: the caller (usually an HTTP client) went away
//
// ExecRunner keeps a registry of live processes so shutdown can kill them.
// The processtest subpackage provides a FakeRunner for tests.
package process
