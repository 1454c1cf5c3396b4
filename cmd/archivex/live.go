package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// liveProgressMsg carries one onProgress callback invocation into the
// Bubble Tea event loop; entryName is shown under the bar the way the
// teacher's ProgressModel shows the current file/phase.
type liveProgressMsg struct {
	index, total int
	entryName    string
	done         bool
	err          error
}

// liveModel is a minimal Bubble Tea program: one bubbles/progress bar plus
// a status line, fed by liveProgressMsg from the extraction goroutine.
type liveModel struct {
	bar       progress.Model
	entryName string
	index     int
	total     int
	done      bool
	err       error
}

func newLiveModel() liveModel {
	return liveModel{bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))}
}

func (m liveModel) Init() tea.Cmd { return nil }

func (m liveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case liveProgressMsg:
		m.index, m.total, m.entryName = msg.index, msg.total, msg.entryName
		m.done, m.err = msg.done, msg.err
		if m.done {
			return m, tea.Quit
		}
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m liveModel) View() string {
	if m.done {
		if m.err != nil {
			return fmt.Sprintf("%s extraction failed: %v\n", styleError.Render(symbolError), m.err)
		}
		return fmt.Sprintf("%s extraction complete\n", styleSuccess.Render(symbolSuccess))
	}
	var percent float64
	if m.total > 0 {
		percent = float64(m.index) / float64(m.total)
	}
	return fmt.Sprintf("%s\n  %s\n", m.bar.ViewAs(percent), styleMuted.Render(m.entryName))
}

// liveProgress drives a Bubble Tea program from extractor.ProgressFunc
// callbacks, run on a background goroutine by the caller. Send must be
// called from the extraction goroutine; Run blocks the main goroutine
// until a liveProgressMsg with done=true arrives or the program exits.
type liveProgress struct {
	program *tea.Program
}

func newLiveProgress() *liveProgress {
	return &liveProgress{program: tea.NewProgram(newLiveModel())}
}

func (l *liveProgress) onProgress(name string, size int64, index, total int, bytesWritten int64, filesExtracted int) {
	l.program.Send(liveProgressMsg{index: index, total: total, entryName: name})
}

func (l *liveProgress) finish(err error) {
	l.program.Send(liveProgressMsg{done: true, err: err})
	// Give the final View a moment to render before Run's caller returns.
	time.Sleep(50 * time.Millisecond)
}

func (l *liveProgress) run() error {
	_, err := l.program.Run()
	return err
}
