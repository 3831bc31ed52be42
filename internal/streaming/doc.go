/*
Package streaming sends video files to HTTP clients with timeout protection.

# Overview

Video responses are large and long-lived. A client that stops reading, or a
network path that stalls, would otherwise pin a goroutine and an open file
for as long as the TCP connection survives. TimeoutWriter wraps the
http.ResponseWriter and ends the stream when:

  - a single chunk cannot be written within WriteTimeout
  - no chunk has been written for IdleTimeout
  - the whole stream has run longer than MaxDuration (when set)
  - the request context is canceled because the client went away

# Serving a file

ServeFile is what the video handler uses:

	f, err := fs.Open(video.Path)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Error streaming video")
		return
	}
	defer f.Close()

	err = streaming.ServeFile(r.Context(), w, f, video.Size, "video/mp4", cfg)
	switch {
	case errors.Is(err, streaming.ErrNotStarted):
		// nothing sent yet, an error status is still possible
	case errors.Is(err, streaming.ErrClientGone):
		// not a server error
	}

The response always carries Content-Type, Content-Length and
Accept-Ranges: none; range requests are answered with the full body.

# Errors

ErrClientGone, ErrWriteTimeout and ErrStreamCanceled classify why a stream
ended early and can be checked with errors.Is. ErrNotStarted wraps read
failures that happened before the status line was written.

# Deadlines

Per-write deadlines go through http.ResponseController, so they reach the
underlying connection even when middleware wraps the ResponseWriter, as long
as the wrapper implements Unwrap. Writers without deadline support are
written to directly and rely on the idle checker alone.
*/
package streaming
