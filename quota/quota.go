// Package quota implements the running counters that defend against
// zip-bomb style resource exhaustion: total bytes, file count, per-file
// bytes, and path depth. See spec §4.2.
package quota

import (
	"fmt"
	"math"

	"github.com/archsafe/extractor/xerr"
)

const (
	DefaultMaxTotalBytes      = 1 << 30    // 1 GiB
	DefaultMaxFiles           = 10000
	DefaultMaxSingleFileBytes = 100 << 20  // 100 MiB
	DefaultMaxDepth           = 50
)

// Unbounded opts a cap out entirely. It is distinct from the zero value:
// spec §8 names `max_total_mb=0` as a scenario in its own right (the
// extraction must reject the first byte), so a literal 0 in a Caps field
// is enforced as a real zero-byte/zero-file budget, not "no cap".
const Unbounded = math.MaxUint64

// Caps holds the configured limits. Each field is a non-negative count;
// use Unbounded to opt a cap out entirely. Callers normally start from
// DefaultCaps and override fields.
type Caps struct {
	MaxTotalBytes      uint64
	MaxFiles           uint64
	MaxSingleFileBytes uint64
	MaxDepth           int
}

// DefaultCaps returns the table of defaults from spec §4.2.
func DefaultCaps() Caps {
	return Caps{
		MaxTotalBytes:      DefaultMaxTotalBytes,
		MaxFiles:           DefaultMaxFiles,
		MaxSingleFileBytes: DefaultMaxSingleFileBytes,
		MaxDepth:           DefaultMaxDepth,
	}
}

// Ledger tracks the running totals for one extraction. It is not safe for
// concurrent use; an extraction is single-threaded per spec §5.
type Ledger struct {
	caps Caps

	TotalBytesWritten uint64
	FilesExtracted    uint64
	EntriesSkipped    uint64
}

// New creates a ledger enforcing caps.
func New(caps Caps) *Ledger {
	return &Ledger{caps: caps}
}

// Caps returns the configured limits.
func (l *Ledger) Caps() Caps { return l.caps }

// CheckDeclaredFileBytes pre-rejects a file entry using the archive header's
// declared size, before any byte is read. This is the cheap check; charging
// actual bytes happens per chunk via ChargeBytes.
func (l *Ledger) CheckDeclaredFileBytes(declared int64) error {
	if declared < 0 {
		return fmt.Errorf("%w: negative declared size %d", xerr.ErrQuotaExceeded, declared)
	}
	if l.caps.MaxSingleFileBytes != Unbounded && uint64(declared) > l.caps.MaxSingleFileBytes {
		return fmt.Errorf("%w: declared size %d exceeds per-file cap %d", xerr.ErrQuotaExceeded, declared, l.caps.MaxSingleFileBytes)
	}
	if l.caps.MaxTotalBytes != Unbounded {
		if sum, overflow := addOverflows(l.TotalBytesWritten, uint64(declared)); overflow || sum > l.caps.MaxTotalBytes {
			return fmt.Errorf("%w: declared size %d would push total past cap %d", xerr.ErrQuotaExceeded, declared, l.caps.MaxTotalBytes)
		}
	}
	return nil
}

// ReserveFile charges one unit against the file-count cap before the output
// for a file entry is opened. Directories and skipped entries never call
// this.
func (l *Ledger) ReserveFile() error {
	if l.caps.MaxFiles != Unbounded && l.FilesExtracted+1 > l.caps.MaxFiles {
		return fmt.Errorf("%w: file count would exceed max_files=%d", xerr.ErrQuotaExceeded, l.caps.MaxFiles)
	}
	l.FilesExtracted++
	return nil
}

// ChargeBytes is called by the streaming copier before each chunk is
// written to disk (pre-increment comparison, per spec §4.2's "upper bound
// check performed before the resource is consumed"). fileBytesSoFar is the
// running total for the current entry only, used to enforce the per-file
// cap independently of the global one.
func (l *Ledger) ChargeBytes(n int, fileBytesSoFar uint64) error {
	add := uint64(n)

	if l.caps.MaxSingleFileBytes != Unbounded {
		if sum, overflow := addOverflows(fileBytesSoFar, add); overflow || sum > l.caps.MaxSingleFileBytes {
			return fmt.Errorf("%w: per-file cap %d exceeded", xerr.ErrQuotaExceeded, l.caps.MaxSingleFileBytes)
		}
	}
	if l.caps.MaxTotalBytes != Unbounded {
		if sum, overflow := addOverflows(l.TotalBytesWritten, add); overflow || sum > l.caps.MaxTotalBytes {
			return fmt.Errorf("%w: total cap %d exceeded", xerr.ErrQuotaExceeded, l.caps.MaxTotalBytes)
		}
	}
	l.TotalBytesWritten += add
	return nil
}

// MarkSkipped increments the skipped-entries counter (filtered out,
// overwrite-skip, or symlink-skip).
func (l *Ledger) MarkSkipped() {
	l.EntriesSkipped++
}

func addOverflows(a, b uint64) (sum uint64, overflow bool) {
	sum = a + b
	if sum < a {
		return 0, true
	}
	if sum > math.MaxInt64 {
		// Keep well clear of int64 overflow for callers that convert back.
		return sum, true
	}
	return sum, false
}
