// Package transcoder wraps the ffmpeg invocations tubeshelf needs.
//
// Only single-frame extraction is supported: a frame one second into the
// video is written to an image file for the thumbnail cache, with a single
// ffmpeg run per request. Commands run through a process.Runner so they are
// bounded by a timeout and killed on shutdown.
package transcoder
