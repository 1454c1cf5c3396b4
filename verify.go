package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/archsafe/extractor/entryiter"
	"github.com/archsafe/extractor/pathguard"
	"github.com/archsafe/extractor/xerr"
)

// Verify reads every path-safe entry of an archive end to end without
// writing anything to disk, the same entries List would enumerate
// (FilterSet narrows what gets written, not what gets read back): names are
// proven containable the same way extraction would prove them, and file
// bodies are drained fully so the underlying decoder's own integrity check
// runs (ZIP's CRC-32, in particular, is only evaluated on the final Read of
// an entry).
func Verify(ctx context.Context, path string, format Format, destDir string, opts ...Option) (*VerifyReport, error) {
	e := New(opts...)
	return e.verify(ctx, fileSource(format, path), destDir)
}

// VerifyBytes is Verify for an in-memory archive.
func VerifyBytes(ctx context.Context, data []byte, format Format, destDir string, opts ...Option) (*VerifyReport, error) {
	e := New(opts...)
	return e.verify(ctx, bytesSource(format, data), destDir)
}

func (e *Extractor) verify(ctx context.Context, src source, destDir string) (*VerifyReport, error) {
	root, err := sealedRoot(destDir)
	if err != nil {
		return nil, err
	}

	guard, err := pathguard.New(root)
	if err != nil {
		return nil, err
	}
	if e.cfg.Caps.MaxDepth > 0 {
		guard.MaxDepth = e.cfg.Caps.MaxDepth
	}

	mk, cleanup, err := src.factory(false)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	it, err := mk()
	if err != nil {
		return nil, err
	}
	defer it.Close()

	report := &VerifyReport{}

	for {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("%w: %v", xerr.ErrIO, err)
		}
		entry, nextErr := it.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			return report, nextErr
		}

		if _, err := guard.Resolve(entry.Name); err != nil {
			return report, err
		}

		if entry.Kind != entryiter.KindFile {
			continue
		}

		n, err := io.Copy(io.Discard, entry.Body)
		if err != nil {
			return report, err
		}

		report.EntriesVerified++
		report.BytesVerified += uint64(n)
	}

	return report, nil
}
