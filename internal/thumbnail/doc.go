// Package thumbnail generates and caches one JPEG per video.
//
// A thumbnail is a single frame extracted with ffmpeg. New frames are written
// to a temporary file, decoded to make sure they are real images, optionally
// downscaled, and only then renamed to <title>.jpg, so a partially written
// file is never served. Generation for a given title is serialized; different
// titles generate in parallel.
package thumbnail
