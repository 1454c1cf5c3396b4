// Package copier streams an entry body into an open destination file in
// fixed-size chunks, charging a quota ledger between chunks so a bomb is
// cut off at the first chunk that would cross a cap. See spec §4.5.
package copier

import (
	"io"
	"os"

	"github.com/archsafe/extractor/quota"
)

// ChunkSize is the fixed read size used between quota checks. 64 KiB keeps
// syscall overhead low; a chunk that would cross a cap is rejected whole,
// before any of it is written.
const ChunkSize = 64 * 1024

// Copy streams src into dst, charging ledger per chunk. It returns the
// number of bytes written and, on a quota failure, that error unwrapped from
// any I/O error — the caller is responsible for deleting the partial file.
func Copy(dst *os.File, src io.Reader, ledger *quota.Ledger) (int64, error) {
	buf := make([]byte, ChunkSize)
	var written int64

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if chargeErr := ledger.ChargeBytes(n, uint64(written)); chargeErr != nil {
				return written, chargeErr
			}
			wn, writeErr := dst.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				return written, writeErr
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}
