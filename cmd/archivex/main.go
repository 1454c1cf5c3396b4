// Package main implements archivex, a thin command-line front end over the
// extractor engine: one archive argument plus flags, matching the teacher's
// own flag.FlagSet-based cmd/flyio-image-manager in shape.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/archsafe/extractor"
	"github.com/archsafe/extractor/overwrite"
)

var log = logrus.New()

// repeatableFlag accumulates every occurrence of a flag passed more than
// once, e.g. `-include a.go -include b.go`, as flag.FlagSet has no built-in
// multi-value string flag.
type repeatableFlag []string

func (r *repeatableFlag) String() string { return strings.Join(*r, ",") }
func (r *repeatableFlag) Set(v string) error {
	*r = append(*r, v)
	return nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.WithError(err).Error("archivex failed")
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("archivex", flag.ExitOnError)

	var (
		dest         string
		list         bool
		verify       bool
		audit        string
		maxSize      string
		maxFiles     uint64
		maxDepth     int
		overwriteStr string
		symlinksStr  string
		format       string
		validate     bool
		quiet        bool
		verbose      bool
		live         bool
		include      repeatableFlag
		exclude      repeatableFlag
		only         repeatableFlag
		logLevel     string
	)

	fs.StringVar(&dest, "d", "", "destination directory to extract into (required unless -l/--verify)")
	fs.BoolVar(&list, "l", false, "list archive entries without extracting")
	fs.BoolVar(&list, "list", false, "list archive entries without extracting")
	fs.BoolVar(&verify, "verify", false, "read the archive fully, checking integrity and path safety, without extracting")
	fs.StringVar(&audit, "audit", "", "after extracting, audit this comma-separated list of critical subdirectories for permission hygiene")
	fs.StringVar(&maxSize, "max-size", "1GiB", "cap on total bytes written across the archive, K/M/G suffixes accepted (0 means zero bytes, not unlimited)")
	fs.Uint64Var(&maxFiles, "max-files", 10000, "cap on number of file entries (0 means zero files, not unlimited)")
	fs.IntVar(&maxDepth, "max-depth", 50, "cap on archive-relative path component count")
	fs.Var(&include, "include", "doublestar glob admitting matching entries; repeatable")
	fs.Var(&exclude, "exclude", "doublestar glob dropping matching entries; repeatable")
	fs.Var(&only, "only", "exact entry name to admit; repeatable")
	fs.StringVar(&overwriteStr, "overwrite", "error", "behavior when a destination path exists: error, skip, overwrite")
	fs.StringVar(&symlinksStr, "symlinks", "skip", "behavior for symlink entries: skip, error")
	fs.StringVar(&format, "format", "", "archive format: zip, tar, targz (default: guessed from extension)")
	fs.BoolVar(&validate, "validate-first", false, "run a full validation pass before writing anything")
	fs.BoolVar(&quiet, "q", false, "suppress progress output")
	fs.BoolVar(&verbose, "v", false, "print a per-entry progress status line while extracting")
	fs.BoolVar(&live, "live", false, "use the interactive Bubble Tea progress bar instead of the plain status line (implies -v)")
	fs.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	fs.Usage = func() {
		fmt.Println("archivex: extract, list, or verify an archive safely")
		fmt.Println()
		fmt.Println("Usage: archivex [options] <archive>")
		fmt.Println()
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) != 1 {
		fs.Usage()
		os.Exit(1)
	}
	archivePath := rest[0]

	if err := setupLogger(logLevel); err != nil {
		return err
	}

	opts, err := buildOptions(maxSize, maxFiles, maxDepth, only, include, exclude)
	if err != nil {
		return err
	}

	fmtID, err := resolveFormat(format, archivePath)
	if err != nil {
		return err
	}

	switch {
	case list:
		return runList(archivePath, fmtID, opts)
	case verify:
		return runVerify(archivePath, fmtID, opts)
	default:
		return runExtract(archivePath, dest, fmtID, opts, overwriteStr, symlinksStr, audit, validate, quiet, verbose || live, live)
	}
}

func runExtract(archivePath, destDir string, format extractor.Format, opts []extractor.Option, overwriteStr, symlinksStr, auditDirs string, validate, quiet, verboseProgress, live bool) error {
	if destDir == "" {
		return fmt.Errorf("-d DEST is required for extraction")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create destination %s: %w", destDir, err)
	}

	overwritePolicy, err := overwrite.ParsePolicy(overwriteStr)
	if err != nil {
		return err
	}
	opts = append(opts, extractor.WithOverwritePolicy(overwritePolicy))

	switch symlinksStr {
	case "skip", "":
		opts = append(opts, extractor.WithSymlinkPolicy(extractor.SymlinkSkip))
	case "error":
		opts = append(opts, extractor.WithSymlinkPolicy(extractor.SymlinkError))
	default:
		return fmt.Errorf("unknown -symlinks value %q", symlinksStr)
	}

	if validate {
		opts = append(opts, extractor.WithMode(extractor.ModeValidateFirst))
	}

	runOne := func(opts []extractor.Option) (*extractor.Report, error) {
		ctx := context.Background()
		switch format {
		case extractor.FormatZip:
			return extractor.ExtractZipFile(ctx, archivePath, destDir, opts...)
		case extractor.FormatTar:
			return extractor.ExtractTarFile(ctx, archivePath, destDir, opts...)
		case extractor.FormatTarGz:
			return extractor.ExtractTarGzFile(ctx, archivePath, destDir, opts...)
		default:
			return nil, fmt.Errorf("unsupported format")
		}
	}

	var report *extractor.Report
	var err2 error
	if live && !quiet {
		lp := newLiveProgress()
		liveOpts := append(opts, extractor.WithProgress(lp.onProgress), extractor.WithDiscardLogs())

		go func() {
			report, err2 = runOne(liveOpts)
			lp.finish(err2)
		}()
		if err := lp.run(); err != nil {
			return fmt.Errorf("progress display: %w", err)
		}
	} else {
		bar := newProgressBar(quiet || !verboseProgress, false)
		plainOpts := append(opts, extractor.WithProgress(bar.onProgress), extractor.WithDiscardLogs())
		bar.start(filepath.Base(archivePath))
		report, err2 = runOne(plainOpts)
		bar.finish(err2)
	}

	if err2 != nil {
		return err2
	}

	if !quiet {
		fmt.Printf("extracted %d files, %d directories, %s written, %d entries skipped\n",
			report.FilesExtracted, report.DirsCreated, humanize.IBytes(report.BytesWritten), report.EntriesSkipped)
	}

	if auditDirs != "" {
		auditReport, err := extractor.AuditPermissions(destDir, splitCSV(auditDirs))
		if err != nil {
			return err
		}
		if !quiet {
			fmt.Printf("audit: checked %d directories\n", auditReport.DirsChecked)
		}
		for _, f := range auditReport.Findings {
			fmt.Println("-", f)
		}
		if len(auditReport.Findings) > 0 {
			return fmt.Errorf("%d permission findings", len(auditReport.Findings))
		}
	}

	return nil
}

func runList(archivePath string, format extractor.Format, opts []extractor.Option) error {
	// List only validates names, never writes; the destination just anchors
	// PathGuard's containment proof, so a throwaway directory is fine.
	nominalRoot, err := os.MkdirTemp("", "archivex-list-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(nominalRoot)

	entries, err := extractor.List(context.Background(), archivePath, format, nominalRoot, opts...)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%-9s %10s  %s\n", e.Kind, humanize.IBytes(uint64(e.Size)), e.Name)
	}
	return nil
}

func runVerify(archivePath string, format extractor.Format, opts []extractor.Option) error {
	nominalRoot, err := os.MkdirTemp("", "archivex-verify-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(nominalRoot)

	report, err := extractor.Verify(context.Background(), archivePath, format, nominalRoot, opts...)
	if err != nil {
		return err
	}
	fmt.Printf("verified %d entries, %s read, no integrity or path-safety failures\n",
		report.EntriesVerified, humanize.IBytes(report.BytesVerified))
	return nil
}

func buildOptions(maxSize string, maxFiles uint64, maxDepth int, only, include, exclude repeatableFlag) ([]extractor.Option, error) {
	var opts []extractor.Option

	// A literal 0 here is a real zero-byte budget, not "no cap" — matching
	// extractor.WithMaxTotalBytes's own semantics. There is no CLI spelling
	// for extractor.Unbounded; the spec's CLI surface names only numeric
	// -max-size values.
	n, err := humanize.ParseBytes(maxSize)
	if err != nil {
		return nil, fmt.Errorf("parse -max-size: %w", err)
	}
	opts = append(opts, extractor.WithMaxTotalBytes(n))

	opts = append(opts, extractor.WithMaxFiles(maxFiles))
	opts = append(opts, extractor.WithMaxDepth(maxDepth))

	if len(only) > 0 {
		opts = append(opts, extractor.WithOnly([]string(only)))
	}
	if len(include) > 0 {
		opts = append(opts, extractor.WithIncludeGlob([]string(include)))
	}
	if len(exclude) > 0 {
		opts = append(opts, extractor.WithExcludeGlob([]string(exclude)))
	}

	return opts, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func resolveFormat(explicit, path string) (extractor.Format, error) {
	switch explicit {
	case "zip":
		return extractor.FormatZip, nil
	case "tar":
		return extractor.FormatTar, nil
	case "targz", "tar.gz":
		return extractor.FormatTarGz, nil
	case "":
		// fall through to extension sniffing
	default:
		return 0, fmt.Errorf("unknown -format value %q", explicit)
	}

	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return extractor.FormatZip, nil
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return extractor.FormatTarGz, nil
	case strings.HasSuffix(lower, ".tar"):
		return extractor.FormatTar, nil
	default:
		return 0, fmt.Errorf("cannot infer archive format from %q; pass -format explicitly", path)
	}
}

func setupLogger(level string) error {
	log.SetFormatter(&logrus.TextFormatter{})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(lvl)
	return nil
}
