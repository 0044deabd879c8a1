package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rxtech-lab/argo-core/internal/types"
)

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)

	labelStyle = lipgloss.NewStyle().Faint(true).Width(16)

	gainStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	lossStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))

	boxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// formatSigned renders v with a sign and colours it by direction.
func formatSigned(v float64, format string) string {
	text := fmt.Sprintf("%+"+format, v)

	switch {
	case v > 0:
		return gainStyle.Render(text)
	case v < 0:
		return lossStyle.Render(text)
	default:
		return text
	}
}

// renderSummary renders the headline numbers of a run as a bordered table.
func renderSummary(title string, res types.RunResult) string {
	rows := []struct {
		label string
		value string
	}{
		{"Initial cash", fmt.Sprintf("%.2f", res.InitialCash)},
		{"Final value", fmt.Sprintf("%.2f", res.FinalValue)},
		{"PnL", formatSigned(res.PnL, ".2f")},
		{"Sharpe ratio", fmt.Sprintf("%.4f", res.SharpeRatio)},
		{"Max drawdown", fmt.Sprintf("%.2f%%", res.MaxDrawdown*100)},
		{"Trades", fmt.Sprintf("%d (%d won, %d lost)", res.TotalTrades, res.WinningTrades, res.LosingTrades)},
		{"Win rate", fmt.Sprintf("%.2f%%", res.WinRate*100)},
		{"Bars", fmt.Sprintf("%d", res.Bars)},
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, titleStyle.Render(title))

	for _, row := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(row.label), row.value))
	}

	return boxStyle.Render(strings.Join(lines, "\n"))
}
