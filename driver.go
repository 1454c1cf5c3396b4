package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/archsafe/extractor/copier"
	"github.com/archsafe/extractor/entryiter"
	"github.com/archsafe/extractor/filterset"
	"github.com/archsafe/extractor/overwrite"
	"github.com/archsafe/extractor/pathguard"
	"github.com/archsafe/extractor/quota"
	"github.com/archsafe/extractor/rootlock"
	"github.com/archsafe/extractor/xerr"
)

// Extractor runs extractions, listings, and verifications against one
// Config. It is safe for concurrent use across independent destinations;
// spec §5 requires extractions into the *same* sealed root to serialize,
// which Extractor enforces via a shared rootlock.Table.
type Extractor struct {
	cfg   Config
	locks *rootlock.Table
}

// New builds an Extractor from DefaultConfig with opts applied.
func New(opts ...Option) *Extractor {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = DefaultConfig().Logger
	}
	return &Extractor{cfg: cfg, locks: rootlock.Default}
}

// entryPlan is the per-entry outcome recorded by validate_first's first
// pass and consumed by its second.
type entryPlan struct {
	index    int
	name     string
	kind     entryiter.Kind
	declared int64
	extract  bool // false => skip (filtered, symlink-skip)
}

func (e *Extractor) extract(ctx context.Context, src source, destDir string) (*Report, error) {
	root, err := sealedRoot(destDir)
	if err != nil {
		return nil, err
	}

	release, err := e.locks.Acquire(root)
	if err != nil {
		return nil, err
	}
	defer release()

	guard, err := pathguard.New(root)
	if err != nil {
		return nil, err
	}
	if e.cfg.Caps.MaxDepth > 0 {
		guard.MaxDepth = e.cfg.Caps.MaxDepth
	}

	filters, err := filterset.New(e.cfg.Only, e.cfg.IncludeGlob, e.cfg.ExcludeGlob)
	if err != nil {
		return nil, err
	}

	logger := e.cfg.Logger.WithField("dest", root)

	if e.cfg.Mode == ModeValidateFirst {
		return e.extractValidateFirst(ctx, src, guard, filters, logger)
	}
	return e.extractStreaming(ctx, src, guard, filters, logger)
}

// sealedRoot resolves destDir and requires it to already exist as a
// directory, per the SealedRoot invariant in spec §3: the engine extends an
// existing root, it does not create one for the caller. (Callers that want
// mkdir-if-missing behavior, like cmd/archivex, do that themselves before
// calling into the engine.)
func sealedRoot(destDir string) (string, error) {
	abs, err := filepath.Abs(destDir)
	if err != nil {
		return "", fmt.Errorf("resolve destination: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: sealed root %s: %v", xerr.ErrIO, abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: sealed root %s is not a directory", xerr.ErrIO, abs)
	}
	return filepath.Clean(abs), nil
}

// --- streaming mode -------------------------------------------------------

func (e *Extractor) extractStreaming(ctx context.Context, src source, guard *pathguard.Guard, filters *filterset.Set, logger *logrus.Entry) (*Report, error) {
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

	ledger := quota.New(e.cfg.Caps)
	report := &Report{}
	index := 0

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
		index++

		resolved, proceed, err := e.resolveEntry(entry, guard, filters, ledger, report)
		if err != nil {
			return report, err
		}
		if !proceed {
			if err := e.notifyProgress(logger, entry.Name, entry.DeclaredSize, index, 0, report); err != nil {
				return report, err
			}
			continue
		}

		if err := e.writeEntry(entry, resolved, ledger, report); err != nil {
			return report, err
		}

		if err := e.notifyProgress(logger, entry.Name, entry.DeclaredSize, index, 0, report); err != nil {
			return report, err
		}
	}

	logger.WithField("files", report.FilesExtracted).Info("extraction completed")
	return report, nil
}

// --- validate_first mode ---------------------------------------------------

func (e *Extractor) extractValidateFirst(ctx context.Context, src source, guard *pathguard.Guard, filters *filterset.Set, logger *logrus.Entry) (*Report, error) {
	mk, cleanup, err := src.factory(true)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	planLedger := quota.New(e.cfg.Caps)
	var plan []entryPlan

	// Pass 1: every check that does not require writing.
	it1, err := mk()
	if err != nil {
		return nil, err
	}
	index := 0
	for {
		if err := ctx.Err(); err != nil {
			it1.Close()
			return nil, fmt.Errorf("%w: %v", xerr.ErrIO, err)
		}
		entry, nextErr := it1.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			it1.Close()
			return nil, nextErr
		}
		index++

		admitted := filters.Admit(entry.Name)
		extractIt := admitted

		if admitted && entry.Kind == entryiter.KindSymlink {
			if e.cfg.Symlinks == SymlinkError {
				it1.Close()
				return nil, fmt.Errorf("%w: %s", xerr.ErrSymlinkNotAllowed, entry.Name)
			}
			extractIt = false // symlink-skip
		}

		if admitted {
			if _, err := guard.Resolve(entry.Name); err != nil {
				it1.Close()
				return nil, err
			}
		}

		if extractIt && entry.Kind == entryiter.KindFile {
			if err := planLedger.CheckDeclaredFileBytes(entry.DeclaredSize); err != nil {
				it1.Close()
				return nil, err
			}
			if err := planLedger.ReserveFile(); err != nil {
				it1.Close()
				return nil, err
			}
		}

		plan = append(plan, entryPlan{index: index, name: entry.Name, kind: entry.Kind, declared: entry.DeclaredSize, extract: extractIt})
	}
	it1.Close()

	total := len(plan)

	// Pass 2: perform the writes the plan approved. Nothing above this line
	// touched the filesystem; everything below is tracked for rollback so a
	// failure here still leaves the sealed root as it was found.
	it2, err := mk()
	if err != nil {
		return nil, err
	}
	defer it2.Close()

	writeLedger := quota.New(e.cfg.Caps)
	report := &Report{}
	var created []string

	planIdx := 0
	index = 0
	for {
		entry, nextErr := it2.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			rollback(created)
			return nil, nextErr
		}
		index++

		if planIdx >= len(plan) || plan[planIdx].index != index {
			rollback(created)
			return nil, fmt.Errorf("%w: archive changed between validate-first passes at entry %d", xerr.ErrFormat, index)
		}
		decision := plan[planIdx]
		planIdx++

		if !decision.extract {
			report.EntriesSkipped++
			if err := e.notifyProgress(logger, entry.Name, entry.DeclaredSize, index, total, report); err != nil {
				rollback(created)
				return nil, err
			}
			continue
		}

		resolved, err := guard.Resolve(entry.Name)
		if err != nil {
			rollback(created)
			return nil, err
		}

		paths, err := e.writeEntryTracked(entry, resolved, writeLedger, report)
		created = append(created, paths...)
		if err != nil {
			rollback(created)
			return nil, err
		}

		if err := e.notifyProgress(logger, entry.Name, entry.DeclaredSize, index, total, report); err != nil {
			rollback(created)
			return nil, err
		}
	}

	logger.WithField("files", report.FilesExtracted).Info("extraction completed")
	return report, nil
}

// rollback best-effort removes everything validate_first's write pass
// created, in reverse creation order so a file is removed before the
// directory that (might) contain it.
func rollback(created []string) {
	for i := len(created) - 1; i >= 0; i-- {
		os.Remove(created[i])
	}
}

// --- shared per-entry logic -------------------------------------------------

// resolveEntry runs filter -> symlink policy -> PathGuard -> declared-size
// quota for streaming mode, where overwrite policy and the actual write
// happen immediately afterward in writeEntry. proceed=false means the
// caller should move on without writing (filtered out or symlink-skip).
func (e *Extractor) resolveEntry(entry entryiter.RawEntry, guard *pathguard.Guard, filters *filterset.Set, ledger *quota.Ledger, report *Report) (pathguard.Resolved, bool, error) {
	if !filters.Admit(entry.Name) {
		ledger.MarkSkipped()
		report.EntriesSkipped++
		return pathguard.Resolved{}, false, nil
	}

	if entry.Kind == entryiter.KindSymlink {
		if e.cfg.Symlinks == SymlinkError {
			return pathguard.Resolved{}, false, fmt.Errorf("%w: %s", xerr.ErrSymlinkNotAllowed, entry.Name)
		}
		ledger.MarkSkipped()
		report.EntriesSkipped++
		return pathguard.Resolved{}, false, nil
	}

	resolved, err := guard.Resolve(entry.Name)
	if err != nil {
		return pathguard.Resolved{}, false, err
	}

	if entry.Kind == entryiter.KindFile {
		if err := ledger.CheckDeclaredFileBytes(entry.DeclaredSize); err != nil {
			return pathguard.Resolved{}, false, err
		}
	}

	return resolved, true, nil
}

// writeEntry performs the overwrite decision and the actual filesystem
// write for one approved entry in streaming mode.
func (e *Extractor) writeEntry(entry entryiter.RawEntry, resolved pathguard.Resolved, ledger *quota.Ledger, report *Report) error {
	_, err := e.writeEntryTracked(entry, resolved, ledger, report)
	return err
}

// writeEntryTracked is writeEntry plus the list of paths it created, used by
// validate_first mode to support rollback on a later failure.
func (e *Extractor) writeEntryTracked(entry entryiter.RawEntry, resolved pathguard.Resolved, ledger *quota.Ledger, report *Report) ([]string, error) {
	switch entry.Kind {
	case entryiter.KindDirectory:
		decision, err := overwrite.Resolve(e.cfg.Overwrite, resolved.Path, true)
		if err != nil {
			return nil, err
		}
		if decision == overwrite.SkipEntry {
			ledger.MarkSkipped()
			report.EntriesSkipped++
			return nil, nil
		}
		_, statErr := os.Lstat(resolved.Path)
		existed := statErr == nil
		if err := os.MkdirAll(resolved.Path, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create directory %s: %v", xerr.ErrIO, resolved.Path, err)
		}
		report.DirsCreated++
		if existed {
			// Merged into a directory that was already there: not ours to
			// roll back.
			return nil, nil
		}
		return []string{resolved.Path}, nil

	case entryiter.KindFile:
		decision, err := overwrite.Resolve(e.cfg.Overwrite, resolved.Path, false)
		if err != nil {
			return nil, err
		}
		if decision == overwrite.SkipEntry {
			ledger.MarkSkipped()
			report.EntriesSkipped++
			return nil, nil
		}

		if err := ledger.ReserveFile(); err != nil {
			return nil, err
		}

		if err := os.MkdirAll(filepath.Dir(resolved.Path), 0o755); err != nil {
			return nil, fmt.Errorf("%w: create parent of %s: %v", xerr.ErrIO, resolved.Path, err)
		}

		mode := os.FileMode(0o644)
		if entry.Mode&0o111 != 0 {
			mode |= 0o111 // honor the executable bit; only 0o111 is taken from entry.Mode, so setuid/setgid/sticky are never applied
		}
		f, err := os.OpenFile(resolved.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode|0o200)
		if err != nil {
			return nil, fmt.Errorf("%w: create file %s: %v", xerr.ErrIO, resolved.Path, err)
		}

		written, copyErr := copier.Copy(f, entry.Body, ledger)
		closeErr := f.Close()

		if copyErr != nil {
			os.Remove(resolved.Path)
			return nil, copyErr
		}
		if closeErr != nil {
			os.Remove(resolved.Path)
			return nil, fmt.Errorf("%w: closing %s: %v", xerr.ErrIO, resolved.Path, closeErr)
		}
		_ = written
		report.FilesExtracted++
		report.BytesWritten += uint64(written)
		return []string{resolved.Path}, nil

	case entryiter.KindSymlink:
		// Reached only when Symlinks == SymlinkSkip never applies here —
		// resolveEntry / the plan already filtered symlinks out before this
		// point. Kept for completeness; materialising symlinks is never
		// offered per spec §4.1.
		ledger.MarkSkipped()
		report.EntriesSkipped++
		return nil, nil

	default:
		ledger.MarkSkipped()
		report.EntriesSkipped++
		return nil, nil
	}
}

// notifyProgress invokes the configured progress callback, recovering a
// panic raised inside it. The callback runs inline between entries and must
// never crash the process; a panic is instead reported as an Io-kind
// extraction failure to the caller.
func (e *Extractor) notifyProgress(logger *logrus.Entry, name string, size int64, index, total int, report *Report) (err error) {
	if e.cfg.OnProgress == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("progress callback panicked")
			err = fmt.Errorf("%w: progress callback panicked: %v", xerr.ErrIO, r)
		}
	}()
	e.cfg.OnProgress(name, size, index, total, int64(report.BytesWritten), int(report.FilesExtracted))
	return nil
}

