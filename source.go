package extractor

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"

	"github.com/archsafe/extractor/entryiter"
	"github.com/archsafe/extractor/xerr"
)

// Format identifies which EntryIterator implementation to use.
type Format int

const (
	FormatZip Format = iota
	FormatTar
	FormatTarGz
)

// iterFactory produces a fresh Iterator over the same underlying archive.
// validate_first mode calls it twice (plan pass, then write pass); streaming
// mode calls it once. File and byte-slice sources can always satisfy this
// cheaply; a genuine single-shot io.Reader cannot, and source.go
// materialises it to a temp file the first time it's needed so the second
// call can simply reopen that file.
type iterFactory func() (entryiter.Iterator, error)

// source describes one archive to extract, list, or verify.
type source struct {
	format Format

	path string // set for a file-path source
	data []byte // set for an in-memory source

	// reader is set for the lower-level Reader-based entry points. factory
	// keeps the path of a materialised non-seekable reader in its own
	// closure; materializedPath is not assigned.
	reader           io.Reader
	materializedPath string
	tempDir          string
}

func fileSource(format Format, path string) source {
	return source{format: format, path: path}
}

func bytesSource(format Format, data []byte) source {
	return source{format: format, data: data}
}

func readerSource(format Format, r io.Reader, tempDir string) source {
	return source{format: format, reader: r, tempDir: tempDir}
}

// factory returns an iterFactory for s. When needsSecondPass is set and s is
// a non-seekable reader source, the reader is materialised to a temp file
// up front so the returned iterFactory can be called again; otherwise a
// reader source is read in place.
func (s *source) factory(needsSecondPass bool) (iterFactory, func(), error) {
	cleanup := func() {}

	switch {
	case s.path != "":
		return func() (entryiter.Iterator, error) { return s.open(s.path) }, cleanup, nil

	case s.data != nil:
		return func() (entryiter.Iterator, error) { return s.openBytes(s.data) }, cleanup, nil

	case s.reader != nil:
		if _, ok := s.reader.(io.Seeker); !ok && needsSecondPass {
			tmpPath, err := s.materialize()
			if err != nil {
				return nil, cleanup, err
			}
			cleanup = func() { os.Remove(tmpPath) }
			return func() (entryiter.Iterator, error) { return s.open(tmpPath) }, cleanup, nil
		}
		// Either seekable (re-wrap below) or single-pass is fine.
		used := false
		return func() (entryiter.Iterator, error) {
			if used {
				if seeker, ok := s.reader.(io.Seeker); ok {
					if _, err := seeker.Seek(0, io.SeekStart); err != nil {
						return nil, fmt.Errorf("%w: rewind source: %v", xerr.ErrNotSeekable, err)
					}
				} else {
					return nil, fmt.Errorf("%w: reader source already consumed", xerr.ErrNotSeekable)
				}
			}
			used = true
			return s.openReader(s.reader)
		}, cleanup, nil

	default:
		return nil, cleanup, fmt.Errorf("empty archive source")
	}
}

// materialize copies a single-shot reader to a ulid-named temp file so a
// second pass (validate_first's write phase) can reopen it, per spec §4.7's
// note that a non-seekable source must be materialised or rejected.
func (s *source) materialize() (string, error) {
	dir := s.tempDir
	if dir == "" {
		dir = os.TempDir()
	}
	name := filepath.Join(dir, "archivex-"+ulid.Make().String()+".tmp")

	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("%w: create materialisation file: %v", xerr.ErrIO, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, s.reader); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("%w: materialising non-seekable source: %v", xerr.ErrIO, err)
	}
	return name, nil
}

func (s *source) open(path string) (entryiter.Iterator, error) {
	switch s.format {
	case FormatZip:
		return entryiter.OpenZipFile(path)
	case FormatTar:
		return entryiter.OpenTarFile(path)
	case FormatTarGz:
		return entryiter.OpenTarGzFile(path)
	default:
		return nil, fmt.Errorf("unknown format %d", s.format)
	}
}

func (s *source) openBytes(data []byte) (entryiter.Iterator, error) {
	switch s.format {
	case FormatZip:
		return entryiter.OpenZipBytes(bytes.NewReader(data), int64(len(data)))
	case FormatTar:
		return entryiter.OpenTarReader(bytes.NewReader(data)), nil
	case FormatTarGz:
		return entryiter.OpenTarGzReader(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unknown format %d", s.format)
	}
}

func (s *source) openReader(r io.Reader) (entryiter.Iterator, error) {
	switch s.format {
	case FormatZip:
		ra, ok := r.(io.ReaderAt)
		if !ok {
			return nil, fmt.Errorf("%w: zip source requires io.ReaderAt", xerr.ErrNotSeekable)
		}
		sk, ok := r.(io.Seeker)
		if !ok {
			return nil, fmt.Errorf("%w: zip source requires seeking to determine size", xerr.ErrNotSeekable)
		}
		size, err := sk.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", xerr.ErrIO, err)
		}
		if _, err := sk.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("%w: %v", xerr.ErrIO, err)
		}
		return entryiter.OpenZipBytes(ra, size)
	case FormatTar:
		return entryiter.OpenTarReader(r), nil
	case FormatTarGz:
		return entryiter.OpenTarGzReader(r)
	default:
		return nil, fmt.Errorf("unknown format %d", s.format)
	}
}
