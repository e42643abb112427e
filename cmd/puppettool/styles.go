package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginTop(1)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	cellStyle     = valueStyle.PaddingRight(2)
	cellHeadStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true).PaddingRight(2)
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).PaddingLeft(2)
)

func header(title string) string {
	return headerStyle.Render(title)
}

func field(label string, value any) string {
	return labelStyle.Render(label) + valueStyle.Render(fmt.Sprint(value))
}

// table renders rows under a header row with a rule between them.
func table(head []string, rows [][]string) string {
	t := ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderTop(false).BorderBottom(false).BorderLeft(false).BorderRight(false).
		BorderColumn(false).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return cellHeadStyle
			}
			return cellStyle
		}).
		Headers(head...).
		Rows(rows...)
	return panelStyle.Render(t.String())
}
