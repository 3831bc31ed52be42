package mediatypes

import (
	"path/filepath"
	"strings"
)

// FileType represents the kind of entry found in the videos directory.
type FileType string

const (
	// FileTypeVideo is a playable container the catalog lists.
	FileTypeVideo FileType = "video"
	// FileTypeSidecar is a downloader-written metadata file.
	FileTypeSidecar FileType = "sidecar"
	// FileTypeOther is anything else (partial downloads, the downloader binary).
	FileTypeOther FileType = "other"
)

const (
	// SidecarSuffix is appended to a title to locate its metadata file.
	SidecarSuffix = ".info.json"
	// ThumbnailExt is the extension of cached thumbnails.
	ThumbnailExt = ".jpg"
	// ThumbnailMimeType is served for every cached thumbnail.
	ThumbnailMimeType = "image/jpeg"
)

// VideoExtensions lists the recognized containers in resolution priority:
// when a title exists with several extensions the first one wins.
var VideoExtensions = []string{".mp4", ".webm"}

// MimeTypes maps recognized video extensions to their MIME types.
var MimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
}

// VideoExt returns the lowercase recognized extension of name, or "" when
// name is not a recognized video.
func VideoExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	for _, v := range VideoExtensions {
		if ext == v {
			return ext
		}
	}
	return ""
}

// TitleOf strips a recognized video extension from name. ok is false when
// name is not a recognized video.
func TitleOf(name string) (title string, ok bool) {
	ext := VideoExt(name)
	if ext == "" {
		return "", false
	}
	return name[:len(name)-len(ext)], true
}

// GetFileType classifies a directory entry name.
func GetFileType(name string) FileType {
	if VideoExt(name) != "" {
		return FileTypeVideo
	}
	if strings.HasSuffix(strings.ToLower(name), SidecarSuffix) {
		return FileTypeSidecar
	}
	return FileTypeOther
}

// GetMimeType returns the MIME type for a video extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[strings.ToLower(ext)]; ok {
		return mime
	}
	return "application/octet-stream"
}
