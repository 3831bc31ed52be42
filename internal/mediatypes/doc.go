// Package mediatypes defines the file classification shared by the catalog,
// the streamer and the thumbnail cache: which extensions are videos, how a
// title is derived from a file name, and which MIME type each container is
// served with.
package mediatypes
