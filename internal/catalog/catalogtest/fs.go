package catalogtest

import "github.com/spf13/afero"

// ReadErrorFs opens and stats files normally but fails every read from an
// opened file with Err.
type ReadErrorFs struct {
	afero.Fs
	Err error
}

// Open opens name on the wrapped filesystem.
func (fs ReadErrorFs) Open(name string) (afero.File, error) {
	f, err := fs.Fs.Open(name)
	if err != nil {
		return nil, err
	}
	return readErrorFile{File: f, err: fs.Err}, nil
}

type readErrorFile struct {
	afero.File
	err error
}

func (f readErrorFile) Read([]byte) (int, error)          { return 0, f.err }
func (f readErrorFile) ReadAt([]byte, int64) (int, error) { return 0, f.err }
