package extractor

import "github.com/archsafe/extractor/xerr"

// Re-exported at the module root so callers classify failures with
// errors.Is(err, extractor.ErrPathEscape) without reaching into an internal
// package. The taxonomy itself lives in xerr so every internal package
// (pathguard, quota, filterset, overwrite, copier, entryiter) can produce and
// wrap these without importing this package back (which would cycle, since
// this package imports all of them).
var (
	ErrPathEscape           = xerr.ErrPathEscape
	ErrSymlinkNotAllowed    = xerr.ErrSymlinkNotAllowed
	ErrQuotaExceeded        = xerr.ErrQuotaExceeded
	ErrAlreadyExists        = xerr.ErrAlreadyExists
	ErrEncryptedArchive     = xerr.ErrEncryptedArchive
	ErrUnsupportedEntryType = xerr.ErrUnsupportedEntryType
	ErrFormat               = xerr.ErrFormat
	ErrNotSeekable          = xerr.ErrNotSeekable
	ErrIO                   = xerr.ErrIO
)
