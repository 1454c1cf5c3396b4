package entryiter

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/archsafe/extractor/xerr"
)

// tarIterator walks a *tar.Reader. PAX extended headers and GNU long-name
// headers are consumed transparently by archive/tar itself — Next never
// hands us one directly, only the normalized entry they describe. PAX global
// headers are returned by tar.Reader.Next and skipped here.
type tarIterator struct {
	tr     *tar.Reader
	closer io.Closer
}

// OpenTarFile opens a plain (uncompressed) TAR archive from a file path.
func OpenTarFile(path string) (Iterator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &tarIterator{tr: tar.NewReader(f), closer: f}, nil
}

// OpenTarReader wraps an arbitrary reader as a TAR iterator. Closing it is
// the caller's responsibility.
func OpenTarReader(r io.Reader) Iterator {
	return &tarIterator{tr: tar.NewReader(r)}
}

func (t *tarIterator) Next() (RawEntry, error) {
	for {
		hdr, err := t.tr.Next()
		if err == io.EOF {
			return RawEntry{}, io.EOF
		}
		if err != nil {
			return RawEntry{}, fmt.Errorf("%w: %v", xerr.ErrFormat, err)
		}

		entry := RawEntry{
			Name:         hdr.Name,
			DeclaredSize: hdr.Size,
			Mode:         uint32(hdr.Mode),
			LinkTarget:   hdr.Linkname,
		}

		switch hdr.Typeflag {
		case tar.TypeReg, tar.TypeRegA:
			entry.Kind = KindFile
			entry.Body = t.tr
		case tar.TypeDir:
			entry.Kind = KindDirectory
			entry.Body = strings.NewReader("")
		case tar.TypeSymlink:
			entry.Kind = KindSymlink
			entry.Body = strings.NewReader("")
		case tar.TypeXGlobalHeader:
			// archive/tar surfaces global headers as their own entries; they
			// carry no body, so skip to the next header.
			continue
		default:
			return RawEntry{}, fmt.Errorf("%w: typeflag %q on %s", xerr.ErrUnsupportedEntryType, string(hdr.Typeflag), hdr.Name)
		}

		return entry, nil
	}
}

func (t *tarIterator) Close() error {
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}
