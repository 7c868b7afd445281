// Package style holds the colors and symbols shared by the logger and the CLI tables.
package style

import "github.com/charmbracelet/lipgloss"

// Brand Colors.
var (
	Thread = lipgloss.Color("#0EA5E9")
	Slate  = lipgloss.Color("#667085")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Arrow   = "→"
	Dot     = "●"
	Circle  = "○"
)

// Bold renders s in bold with lipgloss, used for table headers.
func Bold(s string) string {
	return lipgloss.NewStyle().Bold(true).Render(s)
}
