package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	tilePalette = []lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B267")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#F4F1BB")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#9BC53D")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#C879FF")),
	}
	placeholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
)

// tile is the revealed content of one grid cell.
type tile struct {
	index int
}

func (t tile) Init() tea.Cmd                       { return nil }
func (t tile) Update(tea.Msg) (tea.Model, tea.Cmd) { return t, nil }

func (t tile) View() string {
	return tilePalette[(t.index/8)%len(tilePalette)].Render("█")
}

// placeholder stands in for a tile until it is released. A spinner per cell
// would flood the program with tick messages at this grid size.
type placeholder struct{}

func (placeholder) Init() tea.Cmd                       { return nil }
func (p placeholder) Update(tea.Msg) (tea.Model, tea.Cmd) { return p, nil }
func (placeholder) View() string                        { return placeholderStyle.Render("·") }
