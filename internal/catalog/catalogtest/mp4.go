// Package catalogtest builds video fixtures for tests.
package catalogtest

import (
	"bytes"
	"encoding/binary"
)

// atom encodes an MP4 box: a big-endian size, the four-byte name and the
// concatenated payload.
func atom(name string, payload ...[]byte) []byte {
	body := bytes.Join(payload, nil)
	b := make([]byte, 8, 8+len(body))
	binary.BigEndian.PutUint32(b, uint32(8+len(body)))
	copy(b[4:], name)
	return append(b, body...)
}

// textAtom is an ilst entry holding a UTF-8 data box.
func textAtom(name, value string) []byte {
	// version 0, class 1 (text), locale 0
	header := []byte{0, 0, 0, 1, 0, 0, 0, 0}
	return atom(name, atom("data", header, []byte(value)))
}

// TaggedMP4 returns the smallest MP4 container carrying iTunes-style title,
// artist and year tags. It has no media tracks.
func TaggedMP4(title, artist, year string) []byte {
	ilst := atom("ilst",
		textAtom("\xa9nam", title),
		textAtom("\xa9ART", artist),
		textAtom("\xa9day", year),
	)
	return bytes.Join([][]byte{
		atom("ftyp", []byte("isom"), []byte{0, 0, 2, 0}),
		atom("moov", atom("udta", atom("meta", []byte{0, 0, 0, 0}, ilst))),
	}, nil)
}
