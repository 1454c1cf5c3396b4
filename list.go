package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/archsafe/extractor/entryiter"
	"github.com/archsafe/extractor/pathguard"
	"github.com/archsafe/extractor/quota"
	"github.com/archsafe/extractor/xerr"
)

// List enumerates every path-safe entry in an archive without writing
// anything to disk. Per spec §4.8/§8 property 5, the Lister's contract
// names PathGuard only: List returns exactly what the driver would
// consider before FilterSet narrows it for extraction, so a caller can see
// the whole archive (and any path-escape rejections) regardless of
// --only/--include/--exclude. It is still capped by max_files, to bound
// enumeration cost against a hostile archive.
func List(ctx context.Context, path string, format Format, destDir string, opts ...Option) ([]EntryInfo, error) {
	e := New(opts...)
	return e.list(ctx, fileSource(format, path), destDir)
}

// ListBytes is List for an in-memory archive.
func ListBytes(ctx context.Context, data []byte, format Format, destDir string, opts ...Option) ([]EntryInfo, error) {
	e := New(opts...)
	return e.list(ctx, bytesSource(format, data), destDir)
}

func (e *Extractor) list(ctx context.Context, src source, destDir string) ([]EntryInfo, error) {
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

	var out []EntryInfo
	var count uint64

	for {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("%w: %v", xerr.ErrIO, err)
		}
		entry, nextErr := it.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			return out, nextErr
		}

		if _, err := guard.Resolve(entry.Name); err != nil {
			return out, err
		}

		if entry.Kind == entryiter.KindFile {
			count++
			if e.cfg.Caps.MaxFiles != quota.Unbounded && count > e.cfg.Caps.MaxFiles {
				return out, fmt.Errorf("%w: file count would exceed max_files=%d", xerr.ErrQuotaExceeded, e.cfg.Caps.MaxFiles)
			}
		}

		out = append(out, entryInfoFrom(entry))
	}

	return out, nil
}
