// Package catalog lists, searches and resolves the videos stored in a single
// directory.
//
// Nothing is cached: every call re-reads the directory and the
// <title>.info.json sidecars written by the downloader, so files added or
// renamed on disk show up immediately. Each video gets an id derived from
// its title and metadata (see ComputeID) which changes whenever either does.
package catalog
