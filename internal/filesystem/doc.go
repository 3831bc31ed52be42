/*
Package filesystem wraps afero filesystem operations with retry logic for NFS
stale file handle errors.

The videos directory is often a network mount shared with the machine that
runs the downloader. A listing or stream that races a server-side change can
observe ESTALE; these helpers retry such errors with exponential backoff and
fail immediately on anything else.

	fs := afero.NewOsFs()
	info, err := filesystem.StatWithRetry(fs, "/srv/videos/clip.mp4", filesystem.DefaultRetryConfig())

Defaults: 3 retries, 50ms initial backoff doubling up to 500ms.

All helpers take an afero.Fs so the catalog, streamer, thumbnail cache and
renamer can run against afero.NewMemMapFs in tests. Metrics are reported via
an Observer installed at startup with SetObserver; the VolumeResolver turns
paths into the "videos" and "thumbnails" labels.
*/
package filesystem
