package xerr

import "errors"

// Sentinel errors for the taxonomy in the extraction design: every failure
// surfaced by the engine wraps exactly one of these with fmt.Errorf("%w: ...")
// so callers can classify with errors.Is regardless of the archive format or
// the specific entry that triggered it.
var (
	// ErrPathEscape is returned when an entry's resolved path does not stay
	// within the sealed root, or its name is otherwise unsafe (NUL byte,
	// control byte, absolute prefix, drive letter, ".."  component).
	ErrPathEscape = errors.New("archive entry escapes destination root")

	// ErrSymlinkNotAllowed is returned when a symlink-kind entry is
	// encountered under the "error" symlink policy.
	ErrSymlinkNotAllowed = errors.New("symlink entries not allowed")

	// ErrQuotaExceeded is returned when any configured cap (total bytes,
	// file count, single-file bytes, path depth) would be exceeded.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrAlreadyExists is returned when the destination path already exists
	// under the "error" overwrite policy, or when an overwrite is attempted
	// across incompatible kinds (file vs directory).
	ErrAlreadyExists = errors.New("destination already exists")

	// ErrEncryptedArchive is returned for a ZIP entry with the encryption
	// bit set in its general-purpose flags.
	ErrEncryptedArchive = errors.New("encrypted archive entries are not supported")

	// ErrUnsupportedEntryType is returned for a TAR typeflag outside
	// {regular, directory, symlink, long-name, PAX} or a ZIP compression
	// method outside {stored, deflate}.
	ErrUnsupportedEntryType = errors.New("unsupported archive entry type")

	// ErrFormat is returned when the underlying decoder produces malformed
	// data: a truncated header, a bad gzip stream, or a CRC mismatch during
	// verification.
	ErrFormat = errors.New("malformed archive data")

	// ErrNotSeekable is returned when a reader source cannot be read the way
	// its format or pass count needs: a ZIP reader without io.ReaderAt and
	// io.Seeker, or a reader that has already been consumed and cannot be
	// rewound.
	ErrNotSeekable = errors.New("archive source is not seekable")

	// ErrIO wraps an operating-system failure (filesystem or input stream)
	// that isn't otherwise classified, and also wraps a panic recovered from
	// a caller-supplied progress callback — the callback runs inline on the
	// calling thread and a panic there must not crash the extraction.
	ErrIO = errors.New("i/o error")
)
