package components

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/gistr/gistr/internal/ui/theme"
)

// lowFraction is the remaining share under which a countdown turns red.
const lowFraction = 0.2

// Countdown is a horizontal bar draining as time runs out.
type Countdown struct {
	Label     string
	Total     time.Duration
	Remaining time.Duration
	Width     int
}

// NewCountdown creates a full countdown of total.
func NewCountdown(label string, total time.Duration, width int) Countdown {
	return Countdown{Label: label, Total: total, Remaining: total, Width: width}
}

// Tick removes d from the remaining time and reports whether it ran out.
func (c *Countdown) Tick(d time.Duration) bool {
	c.Remaining = max(c.Remaining-d, 0)
	return c.Remaining == 0
}

// Fraction returns the remaining share of the total, in [0, 1].
func (c Countdown) Fraction() float64 {
	if c.Total <= 0 {
		return 0
	}
	return min(max(float64(c.Remaining)/float64(c.Total), 0), 1)
}

// View renders the countdown bar.
func (c Countdown) View() string {
	var result string
	if c.Label != "" {
		result += lipgloss.NewStyle().Foreground(theme.Text).Render(c.Label) + "  "
	}

	secs := fmt.Sprintf("  %2ds", int(c.Remaining.Round(time.Second)/time.Second))
	barWidth := max(c.Width-lipgloss.Width(result)-len(secs), 4)

	frac := c.Fraction()
	filled := min(max(int(float64(barWidth)*frac), 0), barWidth)

	fill := theme.ProgressFilled
	if frac < lowFraction {
		fill = theme.ProgressLow
	}
	result += fill.Render(strings.Repeat(" ", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat(" ", barWidth-filled))

	return result + lipgloss.NewStyle().Foreground(theme.TextDim).Render(secs)
}
