package extractor

import (
	"context"
	"io"
)

// ExtractZipFile extracts the ZIP archive at path into destDir, which must
// already exist. destDir becomes the sealed root: every written path is
// proven to resolve inside it before a single byte is written.
func ExtractZipFile(ctx context.Context, path, destDir string, opts ...Option) (*Report, error) {
	return New(opts...).extract(ctx, fileSource(FormatZip, path), destDir)
}

// ExtractZipBytes extracts a ZIP archive already held in memory.
func ExtractZipBytes(ctx context.Context, data []byte, destDir string, opts ...Option) (*Report, error) {
	return New(opts...).extract(ctx, bytesSource(FormatZip, data), destDir)
}

// ExtractTarFile extracts an uncompressed TAR archive at path.
func ExtractTarFile(ctx context.Context, path, destDir string, opts ...Option) (*Report, error) {
	return New(opts...).extract(ctx, fileSource(FormatTar, path), destDir)
}

// ExtractTarBytes extracts an uncompressed TAR archive already in memory.
func ExtractTarBytes(ctx context.Context, data []byte, destDir string, opts ...Option) (*Report, error) {
	return New(opts...).extract(ctx, bytesSource(FormatTar, data), destDir)
}

// ExtractTarGzFile extracts a gzip-compressed TAR archive at path.
func ExtractTarGzFile(ctx context.Context, path, destDir string, opts ...Option) (*Report, error) {
	return New(opts...).extract(ctx, fileSource(FormatTarGz, path), destDir)
}

// ExtractTarGzBytes extracts a gzip-compressed TAR archive already in
// memory.
func ExtractTarGzBytes(ctx context.Context, data []byte, destDir string, opts ...Option) (*Report, error) {
	return New(opts...).extract(ctx, bytesSource(FormatTarGz, data), destDir)
}

// ExtractTarStream extracts an uncompressed TAR archive read from r. When
// the configured mode is ModeValidateFirst and r does not implement
// io.Seeker, the stream is first materialized to a temp file under
// WithTempDir (or os.TempDir) so the required second pass can replay it.
func ExtractTarStream(ctx context.Context, r io.Reader, destDir string, opts ...Option) (*Report, error) {
	e := New(opts...)
	return e.extract(ctx, readerSource(FormatTar, r, e.cfg.TempDir), destDir)
}

// ExtractTarGzStream extracts a gzip-compressed TAR archive read from r,
// with the same non-seekable materialization behavior as ExtractTarStream.
func ExtractTarGzStream(ctx context.Context, r io.Reader, destDir string, opts ...Option) (*Report, error) {
	e := New(opts...)
	return e.extract(ctx, readerSource(FormatTarGz, r, e.cfg.TempDir), destDir)
}

// ExtractZipStream extracts a ZIP archive read from r. ZIP's central
// directory lives at the end of the file, so in streaming mode r must
// implement both io.ReaderAt and io.Seeker. In ModeValidateFirst an r that
// does not implement io.Seeker is first materialized to a temp file, as in
// ExtractTarStream.
func ExtractZipStream(ctx context.Context, r io.Reader, destDir string, opts ...Option) (*Report, error) {
	e := New(opts...)
	return e.extract(ctx, readerSource(FormatZip, r, e.cfg.TempDir), destDir)
}
