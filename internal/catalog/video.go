package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
)

// Default paging values applied when the caller supplies nothing usable.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Video is one playable file joined with its sidecar metadata. It is built
// fresh on every scan and never stored.
type Video struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Metadata json.RawMessage `json:"metadata"`

	Path string `json:"-"`
	Ext  string `json:"-"`
	Size int64  `json:"-"`
}

// Page is one slice of the full listing.
type Page struct {
	Total  int     `json:"total"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
	Videos []Video `json:"videos"`
}

// SearchResult holds every video whose title matched a query.
type SearchResult struct {
	Total  int     `json:"total"`
	Videos []Video `json:"videos"`
}

// Suggestion is a fuzzy title match; lower Distance ranks first.
type Suggestion struct {
	Title    string `json:"title"`
	Distance int    `json:"distance"`
}

// ComputeID derives a video's identifier: the hex SHA-256 of the title
// followed by the canonical form of the metadata JSON. Metadata that does not
// parse is hashed as given.
func ComputeID(title string, metadata json.RawMessage) string {
	if canonical, err := canonicalJSON(metadata); err == nil {
		metadata = canonical
	}
	return hashID(title, metadata)
}

// hashID is ComputeID for metadata already in canonical form.
func hashID(title string, canonical []byte) string {
	h := sha256.New()
	h.Write([]byte(title))
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil))
}

// NormalizePaging turns raw page/limit strings into positive integers, falling
// back to DefaultPage and DefaultLimit for anything absent, non-numeric or
// not positive.
func NormalizePaging(pageStr, limitStr string) (page, limit int) {
	return positiveOr(pageStr, DefaultPage), positiveOr(limitStr, DefaultLimit)
}

func positiveOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
