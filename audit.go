package extractor

import (
	"fmt"
	"os"
	"path/filepath"
)

// AuditReport summarizes a permission audit over an already-extracted tree.
type AuditReport struct {
	DirsChecked int
	Findings    []string
}

// AuditPermissions walks criticalDirs (paths relative to root) and flags
// world-writable directories and files carrying setuid or setgid bits — the
// same belt-and-suspenders pass the extraction layer's own caller runs on
// the destination afterward, generalized to an arbitrary list of paths
// instead of a fixed container-image layout. A directory that doesn't exist
// under root is skipped, not an error: callers may legitimately ask about
// directories an archive didn't happen to populate.
func AuditPermissions(root string, criticalDirs []string) (*AuditReport, error) {
	report := &AuditReport{}

	for _, dir := range criticalDirs {
		full := filepath.Join(root, dir)
		info, err := os.Lstat(full)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return report, err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			report.Findings = append(report.Findings, fmt.Sprintf("%s: symlink where a directory was expected", dir))
			continue
		}
		if !info.IsDir() {
			report.Findings = append(report.Findings, fmt.Sprintf("%s: expected directory but found file", dir))
			continue
		}
		report.DirsChecked++

		if err := auditTree(full, report); err != nil {
			return report, err
		}
	}

	return report, nil
}

func auditTree(dir string, report *AuditReport) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		mode := info.Mode()
		if mode&os.ModeSymlink != 0 {
			return nil
		}
		perm := mode.Perm()
		if info.IsDir() && perm&0o002 != 0 {
			report.Findings = append(report.Findings, fmt.Sprintf("%s: world-writable directory", path))
		}
		if !info.IsDir() {
			if mode&os.ModeSetuid != 0 {
				report.Findings = append(report.Findings, fmt.Sprintf("%s: setuid bit set", path))
			}
			if mode&os.ModeSetgid != 0 {
				report.Findings = append(report.Findings, fmt.Sprintf("%s: setgid bit set", path))
			}
		}
		return nil
	})
}
