package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

const (
	symbolSuccess = "✓"
	symbolError   = "✗"
)

// progressBar renders a single overwritten line as entries are processed,
// in the style of the teacher's CLIProgress: a carriage-return-driven bar
// with no alternate screen, so it composes with normal terminal scrollback.
type progressBar struct {
	mu      sync.Mutex
	quiet   bool
	archive string
}

func newProgressBar(quiet, noColor bool) *progressBar {
	if noColor {
		styleSuccess = lipgloss.NewStyle()
		styleError = lipgloss.NewStyle()
		styleMuted = lipgloss.NewStyle()
	}
	return &progressBar{quiet: quiet}
}

func (p *progressBar) start(archiveName string) {
	p.archive = archiveName
	if p.quiet {
		return
	}
	fmt.Fprintf(os.Stderr, "extracting %s\n", archiveName)
}

// onProgress is passed as extractor.ProgressFunc; it is called once per
// entry between writes, never during a chunk copy.
func (p *progressBar) onProgress(name string, size int64, index, total int, bytesWritten int64, filesExtracted int) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	var progressText string
	if total > 0 {
		progressText = fmt.Sprintf("[%d/%d] %s", index, total, name)
	} else {
		progressText = fmt.Sprintf("[%d files] %s", filesExtracted, name)
	}
	fmt.Fprintf(os.Stderr, "\r\033[K  %s", styleMuted.Render(progressText))
}

func (p *progressBar) finish(err error) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprint(os.Stderr, "\r\033[K")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %s failed: %v\n", styleError.Render(symbolError), p.archive, err)
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s done\n", styleSuccess.Render(symbolSuccess), p.archive)
}
