package extractor

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/archsafe/extractor/overwrite"
	"github.com/archsafe/extractor/quota"
)

// Mode selects between the two extraction strategies in spec §4.7.
type Mode int

const (
	// ModeStreaming extracts entries as they are read; a failure may leave
	// earlier entries on disk. O(1) additional memory.
	ModeStreaming Mode = iota

	// ModeValidateFirst runs every non-writing check over the whole archive
	// before any byte is written, so a failure leaves the destination
	// untouched.
	ModeValidateFirst
)

// SymlinkPolicy governs entries whose Kind is symlink.
type SymlinkPolicy int

const (
	// SymlinkSkip drops symlink entries and increments entries_skipped.
	SymlinkSkip SymlinkPolicy = iota
	// SymlinkError fails extraction when a symlink entry is encountered.
	SymlinkError
)

// ProgressFunc is invoked once per entry, after that entry has been written
// or skipped and before the next entry is read (never during a chunk copy,
// so it observes a consistent ledger). It is not invoked before an entry is
// processed, and not for an entry whose processing failed. In streaming
// mode totalEntries is 0. It must not mutate engine state or re-enter the
// engine; a panic inside it is recovered and surfaced as an ErrIO failure.
type ProgressFunc func(entryName string, entrySize int64, entryIndex, totalEntries int, bytesWritten int64, filesExtracted int)

// Config bundles every knob from spec §6. Build one with the With* options
// below, or start from DefaultConfig and override fields directly.
type Config struct {
	Caps             quota.Caps
	Overwrite        overwrite.Policy
	Symlinks         SymlinkPolicy
	Mode             Mode
	Only             []string
	IncludeGlob      []string
	ExcludeGlob      []string
	OnProgress       ProgressFunc
	Logger           logrus.FieldLogger
	// TempDir is where validate_first mode materialises a non-seekable
	// source for its second pass. Empty means os.TempDir().
	TempDir string
}

// DefaultConfig returns the caps table from spec §4.2 plus an "error"
// overwrite policy, a "skip" symlink policy, streaming mode, and a default
// logrus logger — the same defensive defaults the teacher's
// extraction.DefaultOptions establishes.
func DefaultConfig() Config {
	return Config{
		Caps:      quota.DefaultCaps(),
		Overwrite: overwrite.Error,
		Symlinks:  SymlinkSkip,
		Mode:      ModeStreaming,
		Logger:    logrus.StandardLogger(),
	}
}

// Option mutates a Config being built by New.
type Option func(*Config)

// Unbounded opts a cap out entirely; pass it to With* cap options in place
// of a byte/file count. A literal 0 means what it says — reject the first
// byte or file — per spec §8's max_total_mb=0 scenario, so it is never
// treated as "no cap".
const Unbounded = quota.Unbounded

func WithMaxTotalMB(n uint64) Option {
	return func(c *Config) { c.Caps.MaxTotalBytes = n * 1024 * 1024 }
}

// WithMaxTotalBytes sets the total-bytes cap directly. Pass Unbounded, not
// 0, to opt the cap out; 0 enforces a real zero-byte budget.
func WithMaxTotalBytes(n uint64) Option {
	return func(c *Config) { c.Caps.MaxTotalBytes = n }
}

func WithMaxFiles(n uint64) Option {
	return func(c *Config) { c.Caps.MaxFiles = n }
}

func WithMaxSingleFileMB(n uint64) Option {
	return func(c *Config) { c.Caps.MaxSingleFileBytes = n * 1024 * 1024 }
}

// WithMaxSingleFileBytes sets the per-file cap directly. Pass Unbounded, not
// 0, to opt the cap out; 0 enforces a real zero-byte budget.
func WithMaxSingleFileBytes(n uint64) Option {
	return func(c *Config) { c.Caps.MaxSingleFileBytes = n }
}

func WithMaxDepth(n int) Option {
	return func(c *Config) { c.Caps.MaxDepth = n }
}

func WithOverwritePolicy(p overwrite.Policy) Option {
	return func(c *Config) { c.Overwrite = p }
}

func WithSymlinkPolicy(p SymlinkPolicy) Option {
	return func(c *Config) { c.Symlinks = p }
}

func WithMode(m Mode) Option {
	return func(c *Config) { c.Mode = m }
}

func WithOnly(names []string) Option {
	return func(c *Config) { c.Only = names }
}

func WithIncludeGlob(patterns []string) Option {
	return func(c *Config) { c.IncludeGlob = patterns }
}

func WithExcludeGlob(patterns []string) Option {
	return func(c *Config) { c.ExcludeGlob = patterns }
}

func WithProgress(fn ProgressFunc) Option {
	return func(c *Config) { c.OnProgress = fn }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithDiscardLogs silences the engine's own logging, for embedding behind a
// caller-rendered progress display (mirrors Extractor.SuppressLogs in the
// teacher).
func WithDiscardLogs() Option {
	return func(c *Config) {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		c.Logger = logger
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) { c.TempDir = dir }
}
