package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used by the renderer.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	ID      lipgloss.Style

	StatusCompleted lipgloss.Style
	StatusRunning   lipgloss.Style
}

// DefaultStyles returns the colored styles used on a terminal.
func DefaultStyles() *Styles {
	return &Styles{
		Header1: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2: lipgloss.NewStyle().Bold(true),
		Bold:    lipgloss.NewStyle().Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		ID:      lipgloss.NewStyle().Foreground(lipgloss.Color("13")),

		StatusCompleted: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		StatusRunning:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// PlainStyles returns styles that render text unchanged.
func PlainStyles() *Styles {
	plain := lipgloss.NewStyle()
	return &Styles{
		Header1:         plain,
		Header2:         plain,
		Bold:            plain,
		Muted:           plain,
		Success:         plain,
		Warning:         plain,
		Error:           plain,
		Info:            plain,
		ID:              plain,
		StatusCompleted: plain,
		StatusRunning:   plain,
	}
}

// Status returns the style for a run status.
func (s *Styles) Status(status string) lipgloss.Style {
	switch status {
	case "completed":
		return s.StatusCompleted
	case "running":
		return s.StatusRunning
	default:
		return s.Muted
	}
}
