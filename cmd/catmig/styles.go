package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	Primary     = lipgloss.Color("#8BC34A") // Lime Green
	Border      = lipgloss.Color("#2a3850") // Muted dark blue
	Muted       = lipgloss.Color("#6b7a90")
	Destructive = lipgloss.Color("#e53935") // Red
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(Muted)
	errorStyle  = lipgloss.NewStyle().Foreground(Destructive)
)

// newTable returns a bordered table with catmig's header and cell styles.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Border)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}
