package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/dtsfetch/pkg/acquire"
	"github.com/matzehuels/dtsfetch/pkg/store"
)

// Progress view styles
var (
	barFullStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	barEmptyStyle = lipgloss.NewStyle().Foreground(colorDim)
	listDimStyle  = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	recentFiles = 8
	barWidth    = 40
)

// =============================================================================
// Messages
// =============================================================================

type progressMsg struct{ downloaded, total int }

type fileMsg struct {
	path string
	size int
}

type errorMsg string

type doneMsg struct{ err error }

// =============================================================================
// FetchModel - Live acquisition progress
// =============================================================================

// FetchModel is the bubbletea model showing a running acquisition.
type FetchModel struct {
	Sources    []string
	Downloaded int
	Total      int
	Files      int
	Bytes      int
	Recent     []string
	Errors     []string
	Done       bool
	Aborted    bool
	Width      int
}

// NewFetchModel creates a progress model for the given source names.
func NewFetchModel(sources []string) FetchModel {
	return FetchModel{Sources: sources, Width: 80}
}

func (m FetchModel) Init() tea.Cmd {
	return nil
}

func (m FetchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Aborted = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Width = msg.Width
	case progressMsg:
		m.Downloaded = msg.downloaded
		m.Total = msg.total
	case fileMsg:
		m.Files++
		m.Bytes += msg.size
		m.Recent = append(m.Recent, msg.path)
		if len(m.Recent) > recentFiles {
			m.Recent = m.Recent[len(m.Recent)-recentFiles:]
		}
	case errorMsg:
		m.Errors = append(m.Errors, string(msg))
	case doneMsg:
		m.Done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m FetchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Acquiring declarations"))
	b.WriteString(" ")
	b.WriteString(listDimStyle.Render(strings.Join(m.Sources, ", ")))
	b.WriteString("\n\n")

	b.WriteString(m.bar())
	b.WriteString(fmt.Sprintf("  %s/%s", StyleNumber.Render(fmt.Sprint(m.Downloaded)), StyleNumber.Render(fmt.Sprint(m.Total))))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("%d files · %s", m.Files, formatBytes(m.Bytes))))
	b.WriteString("\n\n")

	for _, p := range m.Recent {
		b.WriteString("  " + StyleDim.Render(iconArrow) + " " + truncate(p, m.Width-4))
		b.WriteString("\n")
	}
	for _, e := range m.Errors {
		b.WriteString(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(truncate(e, m.Width-2)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.Done {
		b.WriteString(StyleSuccess.Render(iconSuccess + " done"))
	} else {
		b.WriteString(listDimStyle.Render("q quit"))
	}
	b.WriteString("\n")
	return b.String()
}

// bar renders the download progress. An unknown total draws an empty bar.
func (m FetchModel) bar() string {
	filled := 0
	if m.Total > 0 {
		filled = min(barWidth*m.Downloaded/m.Total, barWidth)
	}
	return barFullStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))
}

// =============================================================================
// Runner
// =============================================================================

// acquireWithTUI runs the session while the progress view is shown. Quitting
// the view cancels the acquisition.
func (c *CLI) acquireWithTUI(ctx context.Context, reg acquire.Registry, sources []source, opts runOptions) (*fetchResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.path
	}
	p := tea.NewProgram(NewFetchModel(names), tea.WithContext(ctx), tea.WithOutput(os.Stderr))

	res := &fetchResult{}
	d := acquire.Delegate{
		ReceivedFile: func(text, path string) { p.Send(fileMsg{path: path, size: len(text)}) },
		Progress:     func(downloaded, total int) { p.Send(progressMsg{downloaded, total}) },
		ErrorMessage: func(msg string, _ error) {
			res.errors = append(res.errors, msg)
			p.Send(errorMsg(msg))
		},
	}
	sess := acquire.New(c.newSessionConfig(reg, d, opts))

	done := make(chan error, 1)
	go func() {
		err := runSources(ctx, sess, sources)
		done <- err
		p.Send(doneMsg{err})
	}()

	_, tuiErr := p.Run()
	cancel()
	if err := <-done; err != nil {
		return nil, err
	}
	if tuiErr != nil {
		return nil, fmt.Errorf("progress view: %w", tuiErr)
	}

	res.run = store.NewRun(joinPaths(sources), sess.Files())
	res.trace = sess.Trace()
	return res, nil
}

// =============================================================================
// Helpers
// =============================================================================

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func truncate(s string, width int) string {
	if width <= 1 || len(s) <= width {
		return s
	}
	return "…" + s[len(s)-width+1:]
}
