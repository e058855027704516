// Package display provides terminal formatting for maildesk output.
package display

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/maildesk/maildesk/internal/types"
)

var (
	Muted     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	Bold      = lipgloss.NewStyle().Bold(true)
	Success   = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	ErrStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
	WarnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706"))
)

// Header prints a bold section heading.
func Header(text string) {
	fmt.Println(Bold.Render(text))
}

// SuccessMsg prints a green success line.
func SuccessMsg(format string, args ...any) {
	fmt.Println(Success.Render("✓ " + fmt.Sprintf(format, args...)))
}

// ErrorMsg prints a red failure line.
func ErrorMsg(format string, args ...any) {
	fmt.Println(ErrStyle.Render("✗ " + fmt.Sprintf(format, args...)))
}

// RunSummary prints the outcome of one batch run.
func RunSummary(s *types.RunSummary) {
	fmt.Println()
	fmt.Println(Bold.Render(fmt.Sprintf("%s run summary", s.Direction)))
	fmt.Printf("  %s %d\n", Success.Render("processed:"), s.Processed)
	if s.Skipped > 0 {
		fmt.Printf("  %s %d\n", Muted.Render("skipped:"), s.Skipped)
	}
	if s.Failed > 0 {
		fmt.Printf("  %s %d\n", ErrStyle.Render("failed:"), s.Failed)
		fmt.Println(Muted.Render("  failed units stay pending and retry on the next run"))
	}
}
