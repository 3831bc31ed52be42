// Package middleware provides HTTP middleware for tubeshelf.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Request ids (X-Request-ID)
//   - CORS through rs/cors
//   - Prometheus request metrics labeled by route
//   - gzip compression of JSON responses
//
// Every wrapping ResponseWriter implements Unwrap so the video streamer can
// set write deadlines through http.ResponseController.
package middleware
