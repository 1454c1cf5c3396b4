// Package entryiter supplies the single capability the driver needs from an
// archive format: produce the next entry, or signal end-of-stream or a
// format error. One implementation exists per supported format (ZIP, TAR,
// TAR+gzip); the driver never branches on format, only on this interface.
package entryiter

import "io"

// Kind classifies a RawEntry the way the archive itself reports it.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
	KindSymlink
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// RawEntry is a format-neutral view of one archive entry. Name is exactly
// what the archive reports — it is not trusted, and every consumer downstream
// (FilterSet, PathGuard) treats it as adversarial input.
type RawEntry struct {
	// Name is the archive-relative entry name, as bytes the decoder handed
	// back verbatim (decoded as UTF-8 where the format requires it).
	Name string

	// Kind is the entry's type.
	Kind Kind

	// LinkTarget holds the symlink target when Kind == KindSymlink.
	LinkTarget string

	// DeclaredSize is the size the archive header claims for the entry body.
	// It may be 0 for formats/entries that don't declare a size up front and
	// must never be trusted for accounting — only for a cheap pre-reject.
	DeclaredSize int64

	// Mode carries the permission bits the archive reports, if any
	// (0 if the format doesn't carry permission metadata).
	Mode uint32

	// Body is a reader over the entry's uninterpreted byte stream. It is
	// valid only until the next call to Iterator.Next, and must be fully
	// drained (or the iterator advanced past it) before that call.
	Body io.Reader
}

// Iterator produces entries from one archive, in archive order. Next returns
// io.EOF (wrapped or bare, checked with errors.Is) once every entry has been
// produced. A non-EOF, non-nil error is a terminal format or I/O failure;
// the iterator must not be called again afterward.
type Iterator interface {
	Next() (RawEntry, error)

	// Close releases any resources (open file handles, decompressors) held
	// by the iterator. Safe to call multiple times.
	Close() error
}
