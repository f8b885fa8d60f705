package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent = lipgloss.Color("#FF5F87")
	colorDimmed = lipgloss.Color("#626262")
	colorOK     = lipgloss.Color("#04B575")

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(1, 4).
			Align(lipgloss.Center)
	titleStyle = lipgloss.NewStyle().Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(colorDimmed)
	doneStyle  = lipgloss.NewStyle().Foreground(colorOK).Bold(true)
)

// Terminal draws screens as text boxes, for a kiosk console or development.
// Identical consecutive frames are written once.
type Terminal struct {
	out   io.Writer
	width int
	last  string
}

// NewTerminal writes to out (usually the raw-mode stdout).
func NewTerminal(out io.Writer, width int) *Terminal {
	if width < 30 {
		width = 30
	}
	return &Terminal{out: out, width: width}
}

// Render returns the text drawn for f.
func (t *Terminal) Render(f Frame) string {
	if !f.Visible {
		return ""
	}
	s := f.Screen
	title := titleStyle.Render(s.Title())
	if s.Kind == KindSentToPrint && s.PrintDone {
		title = doneStyle.Render(s.Title())
	}

	lines := []string{title}
	switch {
	case s.Live() && f.Preview != nil:
		b := f.Preview.Bounds()
		lines = append(lines, hintStyle.Render(fmt.Sprintf("[live preview %dx%d]", b.Dx(), b.Dy())))
	case s.Photo != nil:
		b := s.Photo.Bounds()
		lines = append(lines, hintStyle.Render(fmt.Sprintf("[photo %dx%d]", b.Dx(), b.Dy())))
	}

	left, right := s.Hints()
	if left != "" || right != "" {
		hints := fmt.Sprintf("◀ %-12s %12s ▶", left, right)
		lines = append(lines, "", hintStyle.Render(hints))
	}
	return boxStyle.Width(t.width).Render(strings.Join(lines, "\n"))
}

// Paint writes the frame when it differs from the previous one.
func (t *Terminal) Paint(f Frame) error {
	text := t.Render(f)
	if text == t.last {
		return nil
	}
	t.last = text
	// raw mode: move home, clear, and use CRLF line ends
	out := "\x1b[H\x1b[2J" + strings.ReplaceAll(text, "\n", "\r\n") + "\r\n"
	if _, err := io.WriteString(t.out, out); err != nil {
		return fmt.Errorf("write terminal: %w", err)
	}
	return nil
}
