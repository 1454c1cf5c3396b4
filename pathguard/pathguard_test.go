package pathguard

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/archsafe/extractor/xerr"
)

func newGuard(t *testing.T) *Guard {
	t.Helper()
	g, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestResolveAcceptsOrdinaryPaths(t *testing.T) {
	g := newGuard(t)

	cases := []string{
		"a.txt",
		"dir/b.txt",
		"deep/nested/dir/c.txt",
		"dir/",
	}
	for _, name := range cases {
		resolved, err := g.Resolve(name)
		if err != nil {
			t.Fatalf("Resolve(%q): unexpected error %v", name, err)
		}
		if !strings.HasPrefix(resolved.Path, g.Root) {
			t.Fatalf("Resolve(%q) = %q, not under root %q", name, resolved.Path, g.Root)
		}
	}
}

func TestResolveRejectsParentTraversal(t *testing.T) {
	g := newGuard(t)

	cases := []string{
		"../escape.txt",
		"../../etc/passwd",
		"dir/../../escape.txt",
		"a/b/../../../escape.txt",
	}
	for _, name := range cases {
		if _, err := g.Resolve(name); !errors.Is(err, xerr.ErrPathEscape) {
			t.Fatalf("Resolve(%q): want ErrPathEscape, got %v", name, err)
		}
	}
}

func TestResolveRejectsAbsolutePaths(t *testing.T) {
	g := newGuard(t)

	cases := []string{"/etc/passwd", "/a/b/c"}
	for _, name := range cases {
		if _, err := g.Resolve(name); !errors.Is(err, xerr.ErrPathEscape) {
			t.Fatalf("Resolve(%q): want ErrPathEscape, got %v", name, err)
		}
	}
}

func TestResolveRejectsWindowsDriveAndUNC(t *testing.T) {
	g := newGuard(t)

	cases := []string{`C:\Windows\System32`, `\\server\share\file`, `\\?\C:\file`}
	for _, name := range cases {
		if _, err := g.Resolve(name); !errors.Is(err, xerr.ErrPathEscape) {
			t.Fatalf("Resolve(%q): want ErrPathEscape, got %v", name, err)
		}
	}
}

func TestResolveRejectsNULAndControlBytes(t *testing.T) {
	g := newGuard(t)

	if _, err := g.Resolve("a\x00b"); !errors.Is(err, xerr.ErrPathEscape) {
		t.Fatalf("NUL byte: want ErrPathEscape, got %v", err)
	}
	if _, err := g.Resolve("a\nb"); !errors.Is(err, xerr.ErrPathEscape) {
		t.Fatalf("control byte: want ErrPathEscape, got %v", err)
	}
}

func TestResolveRejectsEmptyName(t *testing.T) {
	g := newGuard(t)
	if _, err := g.Resolve(""); !errors.Is(err, xerr.ErrPathEscape) {
		t.Fatalf("empty name: want ErrPathEscape, got %v", err)
	}
}

func TestResolveRejectsRootItself(t *testing.T) {
	g := newGuard(t)
	if _, err := g.Resolve("."); err == nil {
		t.Fatalf("Resolve(\".\"): want error, got nil")
	}
}

func TestResolveEnforcesMaxDepth(t *testing.T) {
	g := newGuard(t)
	g.MaxDepth = 2

	if _, err := g.Resolve("a/b"); err != nil {
		t.Fatalf("depth 2 within cap: unexpected error %v", err)
	}
	if _, err := g.Resolve("a/b/c"); !errors.Is(err, xerr.ErrQuotaExceeded) {
		t.Fatalf("depth 3 over cap: want ErrQuotaExceeded, got %v", err)
	}
}

func TestResolveDetectsSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	g, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	outside := t.TempDir()
	link := filepath.Join(root, "evil")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlink unsupported on this platform: %v", err)
	}

	if _, err := g.Resolve("evil/payload.txt"); !errors.Is(err, xerr.ErrPathEscape) {
		t.Fatalf("Resolve through planted symlink: want ErrPathEscape, got %v", err)
	}
}
