// Package overwrite decides what happens when an extraction target already
// exists on disk. See spec §4.4.
package overwrite

import (
	"fmt"
	"os"

	"github.com/archsafe/extractor/xerr"
)

// Policy is the configured behavior for a pre-existing destination path.
type Policy int

const (
	// Error fails the extraction when the destination already exists.
	Error Policy = iota
	// Skip leaves the existing destination untouched and increments the
	// skipped-entries counter.
	Skip
	// Overwrite removes the existing destination (without following a
	// symlink) and lets the caller create a fresh one.
	Overwrite
)

// ParsePolicy parses the CLI-facing spelling ("error"|"skip"|"overwrite").
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "error":
		return Error, nil
	case "skip":
		return Skip, nil
	case "overwrite":
		return Overwrite, nil
	default:
		return Error, fmt.Errorf("unknown overwrite policy %q", s)
	}
}

// Decision is the outcome of resolving a policy against the filesystem.
type Decision int

const (
	// ProceedCreate means the target does not exist; create it normally.
	ProceedCreate Decision = iota
	// ProceedReplace means the target existed, was same-kind, and has been
	// removed; the caller should create a fresh file/symlink at path.
	ProceedReplace
	// SkipEntry means the target exists and the entry should be dropped
	// without touching disk.
	SkipEntry
)

// Resolve inspects path and decides what the driver should do next.
// isDir distinguishes a directory entry (which is allowed to silently merge
// with an existing directory regardless of policy) from a file/symlink
// entry.
func Resolve(policy Policy, path string, isDir bool) (Decision, error) {
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return ProceedCreate, nil
	}
	if err != nil {
		return ProceedCreate, fmt.Errorf("stat existing destination: %w", err)
	}

	existingIsDir := info.IsDir()

	if isDir {
		if existingIsDir {
			// Directories merge silently regardless of policy.
			return ProceedCreate, nil
		}
		return kindMismatch(policy, path)
	}

	if existingIsDir {
		return kindMismatch(policy, path)
	}

	switch policy {
	case Skip:
		return SkipEntry, nil
	case Overwrite:
		// Remove via an unlink-style operation that never dereferences a
		// symlink: if the existing name is itself a symlink, os.Remove
		// removes the link, not its target, which is exactly what an
		// unlink(2) on the link path does.
		if err := os.Remove(path); err != nil {
			return ProceedCreate, fmt.Errorf("remove existing destination %s: %w", path, err)
		}
		return ProceedReplace, nil
	default: // Error
		return ProceedCreate, fmt.Errorf("%w: %s", xerr.ErrAlreadyExists, path)
	}
}

func kindMismatch(policy Policy, path string) (Decision, error) {
	// For directory-vs-file kind mismatches the policy is always "error":
	// only same-kind overwrites proceed, per spec §4.4.
	return ProceedCreate, fmt.Errorf("%w: kind mismatch at %s", xerr.ErrAlreadyExists, path)
}
