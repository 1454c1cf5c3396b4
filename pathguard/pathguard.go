// Package pathguard canonicalises archive entry names and proves that the
// resolved destination lies within a sealed root, defending against
// Zip-Slip style path traversal. See spec §4.1.
package pathguard

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/archsafe/extractor/xerr"
)

// DefaultMaxDepth is the default cap on archive-relative path component
// count, applied before any filesystem access.
const DefaultMaxDepth = 50

// Guard resolves archive entry names against one sealed root.
type Guard struct {
	// Root is the absolute, canonical path of the sealed destination
	// directory. It must exist and be a directory before any entry is
	// resolved.
	Root string

	// MaxDepth caps the archive-relative component count. Zero means
	// DefaultMaxDepth.
	MaxDepth int
}

// New returns a Guard for root with MaxDepth set to DefaultMaxDepth.
func New(root string) (*Guard, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve sealed root: %w", err)
	}
	return &Guard{Root: filepath.Clean(abs), MaxDepth: DefaultMaxDepth}, nil
}

// Resolved is the outcome of successfully guarding one entry name.
type Resolved struct {
	// Path is the canonical absolute target path, guaranteed to lie
	// strictly within Root.
	Path string

	// Depth is the archive-relative component count.
	Depth int
}

// Resolve validates name and, on success, returns its canonical destination
// path beneath g.Root. A name deeper than MaxDepth is rejected with
// xerr.ErrQuotaExceeded; every other rejection wraps xerr.ErrPathEscape.
func (g *Guard) Resolve(name string) (Resolved, error) {
	maxDepth := g.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	if name == "" {
		return Resolved{}, fmt.Errorf("%w: empty entry name", xerr.ErrPathEscape)
	}
	if err := checkBytes(name); err != nil {
		return Resolved{}, err
	}
	if err := checkPrefix(name); err != nil {
		return Resolved{}, err
	}
	if runtime.GOOS == "windows" && strings.Contains(name, `\`) {
		return Resolved{}, fmt.Errorf("%w: backslash in entry name %q is not allowed on this platform", xerr.ErrPathEscape, name)
	}

	components, err := splitComponents(name)
	if err != nil {
		return Resolved{}, err
	}
	if len(components) > maxDepth {
		return Resolved{}, fmt.Errorf("%w: depth %d exceeds max depth %d for %q", xerr.ErrQuotaExceeded, len(components), maxDepth, name)
	}

	candidate := filepath.Join(append([]string{g.Root}, components...)...)
	candidate = filepath.Clean(candidate)

	if err := containmentCheck(g.Root, candidate); err != nil {
		return Resolved{}, fmt.Errorf("%w: %q resolves to %q: %v", xerr.ErrPathEscape, name, candidate, err)
	}

	// Defense in depth: an earlier entry in the same archive may have planted
	// a symlink at some component of this path that would make a later
	// os.OpenFile silently escape the root even though the lexical candidate
	// above looks contained. SecureJoin walks the filesystem and resolves
	// symlinks as it goes, refusing to leave root; require that its result
	// for the parent components equals the lexical parent, so any existing
	// symlink among the parent components is rejected. The final component
	// is not compared: a symlink there is handled by the overwrite policy,
	// and we only use the lexical candidate as the actual target.
	if len(components) > 1 {
		parent := strings.Join(components[:len(components)-1], string(filepath.Separator))
		joined, err := securejoin.SecureJoin(g.Root, parent)
		if err != nil {
			return Resolved{}, fmt.Errorf("%w: %q escapes root via an existing symlink: %v", xerr.ErrPathEscape, name, err)
		}
		if joined != filepath.Dir(candidate) {
			return Resolved{}, fmt.Errorf("%w: %q passes through an existing symlink (resolves to %q)", xerr.ErrPathEscape, name, joined)
		}
	}

	return Resolved{Path: candidate, Depth: len(components)}, nil
}

// checkBytes rejects NUL bytes and raw control bytes (other than the normal
// high-bit continuation bytes of multi-byte UTF-8, which are >= 0x80 and so
// never trip this check).
func checkBytes(name string) error {
	for _, b := range []byte(name) {
		if b == 0 {
			return fmt.Errorf("%w: NUL byte in entry name", xerr.ErrPathEscape)
		}
		if b < 0x20 {
			return fmt.Errorf("%w: control byte 0x%02x in entry name %q", xerr.ErrPathEscape, b, name)
		}
	}
	return nil
}

// checkPrefix rejects absolute paths, Windows drive letters, and UNC / long
// path prefixes, regardless of the host platform.
func checkPrefix(name string) error {
	if strings.HasPrefix(name, "/") {
		return fmt.Errorf("%w: absolute path %q", xerr.ErrPathEscape, name)
	}
	if strings.HasPrefix(name, `\\?\`) {
		return fmt.Errorf("%w: long-path prefix %q", xerr.ErrPathEscape, name)
	}
	if strings.HasPrefix(name, `\\`) {
		return fmt.Errorf("%w: UNC prefix %q", xerr.ErrPathEscape, name)
	}
	if len(name) >= 2 && name[1] == ':' && isDriveLetter(name[0]) {
		return fmt.Errorf("%w: drive-letter prefix %q", xerr.ErrPathEscape, name)
	}
	return nil
}

func isDriveLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// splitComponents splits an archive-relative name on '/' and rejects any
// component equal to "." or "..". Empty components from a trailing slash
// (directory entries) or doubled separators are dropped silently.
func splitComponents(name string) ([]string, error) {
	parts := strings.Split(name, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		if p == "." || p == ".." {
			return nil, fmt.Errorf("%w: %q component in %q", xerr.ErrPathEscape, p, name)
		}
		out = append(out, p)
	}
	return out, nil
}

// containmentCheck proves candidate's component-wise path is a strict
// descendant of root. Equality with root itself is rejected: entries must
// name something inside the root, not the root.
func containmentCheck(root, candidate string) error {
	if candidate == root {
		return fmt.Errorf("entry resolves to the sealed root itself")
	}
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("outside sealed root (relative path %q)", rel)
	}
	return nil
}
