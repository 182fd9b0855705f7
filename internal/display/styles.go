package display

import "github.com/charmbracelet/lipgloss"

// Styles holds every style the renderer uses. They are bound to one
// lipgloss renderer so colour output follows that renderer's terminal.
type Styles struct {
	Header    lipgloss.Style
	RedCard   lipgloss.Style
	BlackCard lipgloss.Style
	Hidden    lipgloss.Style
	Pot       lipgloss.Style
	Player    lipgloss.Style
	ToAct     lipgloss.Style
	Folded    lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Info      lipgloss.Style
	Action    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Header: r.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			Bold(true),
		RedCard: r.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true),
		BlackCard: r.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FAFAFA"}).
			Bold(true),
		Hidden: r.NewStyle().Foreground(lipgloss.Color("#7D56F4")),
		Pot: r.NewStyle().
			Foreground(lipgloss.Color("#FFEAA7")).
			Bold(true),
		Player:  r.NewStyle().Foreground(lipgloss.Color("#FAFAFA")),
		ToAct:   r.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true),
		Folded:  r.NewStyle().Foreground(lipgloss.Color("#626262")).Strikethrough(true),
		Success: r.NewStyle().Foreground(lipgloss.Color("#96CEB4")).Bold(true),
		Error:   r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		Warning: r.NewStyle().Foreground(lipgloss.Color("#FFEAA7")).Bold(true),
		Info:    r.NewStyle().Foreground(lipgloss.Color("#626262")),
		Action:  r.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true),
	}
}
