// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the treq TUI.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/morganforge/treq-tui/internal/api"
	"github.com/morganforge/treq-tui/internal/ui/styles"
	"github.com/morganforge/treq-tui/internal/util"
)

// =============================================================================
// TERMINAL BAR CHART
// =============================================================================

// Chart renders a chart payload as horizontal ASCII bars. Every chart
// type falls back to bars in the terminal; richer rendering belongs to
// the HTML export.
type Chart struct {
	Payload  *api.ChartPayload
	MaxWidth int
}

// NewChart creates a chart renderer for the given payload.
func NewChart(payload *api.ChartPayload) Chart {
	return Chart{
		Payload:  payload,
		MaxWidth: 80,
	}
}

// SetMaxWidth sets the maximum width for the chart box.
func (c *Chart) SetMaxWidth(width int) {
	c.MaxWidth = width
}

// Render renders the chart, or an empty string when there is nothing
// to plot.
func (c Chart) Render() string {
	p := c.Payload
	if p.IsEmpty() {
		return ""
	}

	titleStyle := lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(styles.TextSecondary)
	valueStyle := lipgloss.NewStyle().Foreground(styles.TextMuted)

	labelWidth := maxLabelWidth(p.Labels)
	barWidth := c.barWidth(labelWidth)

	maxVal := maxSeriesValue(p.Series)
	if maxVal <= 0 {
		maxVal = 1
	}

	var lines []string
	if p.Title != "" {
		lines = append(lines, titleStyle.Render(p.Title))
	}

	for i, label := range p.Labels {
		lines = append(lines, labelStyle.Render(padLabel(label, labelWidth)))
		for si, series := range p.Series {
			if i >= len(series.Values) {
				continue
			}
			v := series.Values[i]
			bar := renderBar(v, maxVal, barWidth, styles.ChartBars[si%len(styles.ChartBars)])
			value := valueStyle.Render(" " + util.FloatToString(v))
			name := ""
			if len(p.Series) > 1 {
				name = valueStyle.Render(" " + series.Name)
			}
			lines = append(lines, "  "+bar+value+name)
		}
	}

	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Overlay).
		Padding(0, 1).
		MaxWidth(c.MaxWidth)

	return box.Render(strings.Join(lines, "\n"))
}

// barWidth computes the bar area left after labels and padding.
func (c Chart) barWidth(labelWidth int) int {
	w := c.MaxWidth - labelWidth - 16
	if w < 10 {
		w = 10
	}
	if w > 50 {
		w = 50
	}
	return w
}

// renderBar draws a single proportional bar in the given color.
func renderBar(value, maxVal float64, width int, color lipgloss.AdaptiveColor) string {
	if value < 0 {
		value = 0
	}
	filled := int(value / maxVal * float64(width))
	if filled == 0 && value > 0 {
		filled = 1
	}
	if filled > width {
		filled = width
	}

	// ASCII bars keep the chart legible on terminals without Unicode.
	bar := strings.Repeat("#", filled)
	return lipgloss.NewStyle().Foreground(color).Render(bar)
}

// maxLabelWidth returns the display width of the widest label.
// UNICODE: uses runewidth so CJK and accented labels align correctly.
func maxLabelWidth(labels []string) int {
	max := 0
	for _, l := range labels {
		if w := runewidth.StringWidth(l); w > max {
			max = w
		}
	}
	return max
}

// padLabel pads a label to the given display width.
func padLabel(label string, width int) string {
	pad := width - runewidth.StringWidth(label)
	if pad < 0 {
		pad = 0
	}
	return label + strings.Repeat(" ", pad)
}

// maxSeriesValue returns the largest value across all series.
func maxSeriesValue(series []api.ChartSeries) float64 {
	max := 0.0
	for _, s := range series {
		for _, v := range s.Values {
			if v > max {
				max = v
			}
		}
	}
	return max
}
