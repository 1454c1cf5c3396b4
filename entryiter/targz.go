package entryiter

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/archsafe/extractor/xerr"
)

// targzIterator inflates a gzip stream and walks the TAR it contains.
type targzIterator struct {
	inner  *tarIterator
	gz     *gzip.Reader
	closer io.Closer
}

// OpenTarGzFile opens a gzip-compressed TAR archive from a file path.
func OpenTarGzFile(path string) (Iterator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", xerr.ErrFormat, err)
	}
	return &targzIterator{
		inner:  &tarIterator{tr: tar.NewReader(gz)},
		gz:     gz,
		closer: f,
	}, nil
}

// OpenTarGzReader wraps an arbitrary reader (e.g. bytes.NewReader over an
// in-memory archive) as a gzip+TAR iterator.
func OpenTarGzReader(r io.Reader) (Iterator, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xerr.ErrFormat, err)
	}
	return &targzIterator{inner: &tarIterator{tr: tar.NewReader(gz)}, gz: gz}, nil
}

func (g *targzIterator) Next() (RawEntry, error) {
	// tarIterator.Next already wraps malformed TAR data (including a
	// corrupt gzip stream surfacing as a bad read) in xerr.ErrFormat, and
	// unsupported typeflags in xerr.ErrUnsupportedEntryType, so nothing
	// further to reclassify here.
	return g.inner.Next()
}

func (g *targzIterator) Close() error {
	gzErr := g.gz.Close()
	if g.closer != nil {
		if err := g.closer.Close(); err != nil {
			return err
		}
	}
	return gzErr
}
