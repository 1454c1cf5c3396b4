package quota

import (
	"errors"
	"testing"

	"github.com/archsafe/extractor/xerr"
)

func TestDefaultCaps(t *testing.T) {
	c := DefaultCaps()
	if c.MaxTotalBytes != DefaultMaxTotalBytes {
		t.Errorf("MaxTotalBytes = %d, want %d", c.MaxTotalBytes, DefaultMaxTotalBytes)
	}
	if c.MaxFiles != DefaultMaxFiles {
		t.Errorf("MaxFiles = %d, want %d", c.MaxFiles, DefaultMaxFiles)
	}
	if c.MaxSingleFileBytes != DefaultMaxSingleFileBytes {
		t.Errorf("MaxSingleFileBytes = %d, want %d", c.MaxSingleFileBytes, DefaultMaxSingleFileBytes)
	}
	if c.MaxDepth != DefaultMaxDepth {
		t.Errorf("MaxDepth = %d, want %d", c.MaxDepth, DefaultMaxDepth)
	}
}

func TestCheckDeclaredFileBytesRejectsOversizeFile(t *testing.T) {
	l := New(Caps{MaxSingleFileBytes: 100, MaxTotalBytes: Unbounded})
	if err := l.CheckDeclaredFileBytes(50); err != nil {
		t.Fatalf("within cap: unexpected error %v", err)
	}
	if err := l.CheckDeclaredFileBytes(101); !errors.Is(err, xerr.ErrQuotaExceeded) {
		t.Fatalf("over cap: want ErrQuotaExceeded, got %v", err)
	}
}

func TestCheckDeclaredFileBytesRejectsNegative(t *testing.T) {
	l := New(DefaultCaps())
	if err := l.CheckDeclaredFileBytes(-1); !errors.Is(err, xerr.ErrQuotaExceeded) {
		t.Fatalf("negative declared size: want ErrQuotaExceeded, got %v", err)
	}
}

func TestCheckDeclaredFileBytesAgainstRunningTotal(t *testing.T) {
	l := New(Caps{MaxTotalBytes: 100, MaxSingleFileBytes: Unbounded})
	l.TotalBytesWritten = 90
	if err := l.CheckDeclaredFileBytes(10); err != nil {
		t.Fatalf("exactly at cap: unexpected error %v", err)
	}
	l.TotalBytesWritten = 95
	if err := l.CheckDeclaredFileBytes(10); !errors.Is(err, xerr.ErrQuotaExceeded) {
		t.Fatalf("would exceed total cap: want ErrQuotaExceeded, got %v", err)
	}
}

func TestReserveFileEnforcesMaxFiles(t *testing.T) {
	l := New(Caps{MaxFiles: 2})
	if err := l.ReserveFile(); err != nil {
		t.Fatalf("file 1: unexpected error %v", err)
	}
	if err := l.ReserveFile(); err != nil {
		t.Fatalf("file 2: unexpected error %v", err)
	}
	if err := l.ReserveFile(); !errors.Is(err, xerr.ErrQuotaExceeded) {
		t.Fatalf("file 3 over cap: want ErrQuotaExceeded, got %v", err)
	}
	if l.FilesExtracted != 2 {
		t.Errorf("FilesExtracted = %d, want 2 (rejected reservation must not count)", l.FilesExtracted)
	}
}

func TestChargeBytesEnforcesPerFileAndTotalCaps(t *testing.T) {
	l := New(Caps{MaxSingleFileBytes: 10, MaxTotalBytes: 15})

	if err := l.ChargeBytes(5, 0); err != nil {
		t.Fatalf("first chunk: unexpected error %v", err)
	}
	if l.TotalBytesWritten != 5 {
		t.Fatalf("TotalBytesWritten = %d, want 5", l.TotalBytesWritten)
	}

	if err := l.ChargeBytes(6, 5); !errors.Is(err, xerr.ErrQuotaExceeded) {
		t.Fatalf("chunk pushing per-file total to 11 > cap 10: want ErrQuotaExceeded, got %v", err)
	}

	// Per-file charge rejected above must not have mutated the running total.
	if l.TotalBytesWritten != 5 {
		t.Fatalf("TotalBytesWritten after rejected charge = %d, want unchanged 5", l.TotalBytesWritten)
	}
}

func TestChargeBytesEnforcesTotalCapAcrossFiles(t *testing.T) {
	l := New(Caps{MaxTotalBytes: 10, MaxSingleFileBytes: Unbounded})
	if err := l.ChargeBytes(6, 0); err != nil {
		t.Fatalf("first file chunk: unexpected error %v", err)
	}
	if err := l.ChargeBytes(5, 0); !errors.Is(err, xerr.ErrQuotaExceeded) {
		t.Fatalf("second file's chunk pushing total to 11 > cap 10: want ErrQuotaExceeded, got %v", err)
	}
}

// TestZeroCapsRejectEverything pins down spec §8 scenario 2: a literal 0
// cap is a real zero-byte/zero-file budget, not "unbounded". Caps{} (the
// zero value) must behave the same as an explicit Caps{MaxTotalBytes: 0,
// MaxFiles: 0, MaxSingleFileBytes: 0}.
func TestZeroCapsRejectEverything(t *testing.T) {
	l := New(Caps{})
	if err := l.CheckDeclaredFileBytes(1); !errors.Is(err, xerr.ErrQuotaExceeded) {
		t.Fatalf("zero MaxSingleFileBytes/MaxTotalBytes: want ErrQuotaExceeded, got %v", err)
	}
	if err := l.ReserveFile(); !errors.Is(err, xerr.ErrQuotaExceeded) {
		t.Fatalf("zero MaxFiles: want ErrQuotaExceeded, got %v", err)
	}
	if err := l.ChargeBytes(1, 0); !errors.Is(err, xerr.ErrQuotaExceeded) {
		t.Fatalf("zero caps: want ErrQuotaExceeded, got %v", err)
	}
}

// TestUnboundedCapsAllowAnything verifies the opt-out sentinel, distinct
// from the zero value exercised above.
func TestUnboundedCapsAllowAnything(t *testing.T) {
	l := New(Caps{MaxTotalBytes: Unbounded, MaxFiles: Unbounded, MaxSingleFileBytes: Unbounded})
	if err := l.CheckDeclaredFileBytes(1 << 40); err != nil {
		t.Fatalf("unbounded MaxSingleFileBytes/MaxTotalBytes: unexpected error %v", err)
	}
	if err := l.ReserveFile(); err != nil {
		t.Fatalf("unbounded MaxFiles: unexpected error %v", err)
	}
	if err := l.ChargeBytes(1<<20, 0); err != nil {
		t.Fatalf("unbounded caps: unexpected error %v", err)
	}
}

func TestMarkSkipped(t *testing.T) {
	l := New(DefaultCaps())
	l.MarkSkipped()
	l.MarkSkipped()
	if l.EntriesSkipped != 2 {
		t.Errorf("EntriesSkipped = %d, want 2", l.EntriesSkipped)
	}
}
