package browse

import "github.com/charmbracelet/lipgloss"

// styles are the lipgloss styles of the browser
type styles struct {
	Title    lipgloss.Style
	Row      lipgloss.Style
	Selected lipgloss.Style
	Sealed   lipgloss.Style
	Muted    lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style
	Label    lipgloss.Style
}

func defaultStyles() styles {
	accent := lipgloss.Color("#bd93f9")
	muted := lipgloss.Color("#6272a4")

	return styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			MarginBottom(1),
		Row: lipgloss.NewStyle().
			PaddingLeft(2),
		Selected: lipgloss.NewStyle().
			PaddingLeft(1).
			Bold(true).
			Foreground(lipgloss.Color("#f8f8f2")).
			Background(lipgloss.Color("#44475a")),
		Sealed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffb86c")),
		Muted: lipgloss.NewStyle().
			Foreground(muted),
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50fa7b")),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff5555")),
		Label: lipgloss.NewStyle().
			Bold(true).
			Width(12),
	}
}
