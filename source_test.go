package extractor

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

// nonSeekableReader wraps a bytes.Reader but hides the io.Seeker/io.ReaderAt
// methods, forcing source.factory to take the materialize-to-temp-file path
// when a second pass is needed.
type nonSeekableReader struct {
	r *bytes.Reader
}

func (n *nonSeekableReader) Read(p []byte) (int, error) { return n.r.Read(p) }

func TestExtractZipStreamFromNonSeekableReaderValidateFirst(t *testing.T) {
	dest := t.TempDir()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("a.txt")
	fw.Write([]byte("hello"))
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}

	src := &nonSeekableReader{r: bytes.NewReader(buf.Bytes())}
	tempDir := t.TempDir()

	report, err := ExtractZipStream(context.Background(), src, dest, WithMode(ModeValidateFirst), WithTempDir(tempDir))
	if err != nil {
		t.Fatalf("ExtractZipStream: %v", err)
	}
	if report.FilesExtracted != 1 {
		t.Errorf("FilesExtracted = %d, want 1", report.FilesExtracted)
	}

	got, err := os.ReadFile(filepath.Join(dest, "a.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("content = %q, want %q", got, "hello")
	}

	leftover, _ := filepath.Glob(filepath.Join(tempDir, "archivex-*.tmp"))
	if len(leftover) != 0 {
		t.Errorf("materialised temp file was not cleaned up: %v", leftover)
	}
}

func TestExtractTarStreamFromSinglePassReader(t *testing.T) {
	dest := t.TempDir()
	data := buildTarArchive(t, func(w *tar.Writer) {
		w.WriteHeader(&tar.Header{Name: "a.txt", Typeflag: tar.TypeReg, Size: 5, Mode: 0o644})
		w.Write([]byte("hello"))
	})

	report, err := ExtractTarStream(context.Background(), &nonSeekableReader{r: bytes.NewReader(data)}, dest)
	if err != nil {
		t.Fatalf("ExtractTarStream: %v", err)
	}
	if report.FilesExtracted != 1 {
		t.Errorf("FilesExtracted = %d, want 1", report.FilesExtracted)
	}
}
