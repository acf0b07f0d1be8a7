package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/ProducerMatt/stampy-chat/client"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	bylineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	ruleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	linkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Underline(true)
)

// Text lays out one rendered entry for a terminal of the given width. The
// link keeps its visible label; the target travels in an OSC 8 hyperlink.
func Text(entry RenderedEntry, width int) string {
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(entry.Title))
	b.WriteString("\n")
	b.WriteString(bylineStyle.Render(entry.Byline))
	b.WriteString("\n")

	for _, block := range entry.Body {
		b.WriteString("\n")
		switch block.Kind {
		case BlockRule:
			b.WriteString(ruleStyle.Render(strings.Repeat("─", width)))
		default:
			b.WriteString(lipgloss.NewStyle().Width(width).Render(block.Text))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(linkStyle.Render(termenv.Hyperlink(entry.Link.Target, entry.Link.Label)))
	b.WriteString("\n")

	return b.String()
}

// EntryText is the one-step form used by the CLI and the results list.
func EntryText(e client.ResultEntry, width int) string {
	return Text(Entry(e), width)
}
