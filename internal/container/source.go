package container

import (
	"io"
	"os"

	"github.com/tvpio/tvpp/internal/tvperr"
)

// Source owns the backing bytes of an opened .tvpp file. The file is
// memory-mapped read-only where the platform supports it; elsewhere it
// falls back to a single full read, which is still "mapped once" in
// spirit.
type Source struct {
	data    []byte
	mmapped bool
}

// Open memory-maps (or, on platforms without mmap support, fully
// reads) the file at path. The file descriptor is not retained past
// Open: once mapped, the mapping is independent of the fd.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, tvperr.Wrap(tvperr.KindIO, err, "open %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, tvperr.Wrap(tvperr.KindIO, err, "stat %s", path)
	}
	size := info.Size()
	if size == 0 {
		return nil, tvperr.New(tvperr.KindIO, "%s is empty", path)
	}

	if data, err := mmapFile(f.Fd(), int(size)); err == nil {
		return &Source{data: data, mmapped: true}, nil
	}

	// mmap unsupported on this platform (or failed) — fall back to one
	// full read, keeping the same "read the backing bytes once" contract.
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, tvperr.Wrap(tvperr.KindIO, err, "seek %s", path)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, tvperr.Wrap(tvperr.KindIO, err, "read %s", path)
	}
	return &Source{data: data}, nil
}

// Data returns the full backing byte slice. Callers must not retain
// slices of it past Close when the source is memory-mapped.
func (s *Source) Data() []byte { return s.data }

// Close releases the memory mapping, if one was established.
func (s *Source) Close() error {
	if s.mmapped {
		if err := munmapFile(s.data); err != nil {
			return tvperr.Wrap(tvperr.KindIO, err, "munmap")
		}
	}
	return nil
}
