package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wonny/stockpick/internal/contracts"
	"github.com/wonny/stockpick/internal/scoring"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Width(16)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// PrintTitle prints a command title
func PrintTitle(title string) {
	fmt.Println()
	fmt.Println(titleStyle.Render(title))
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Println(successStyle.Render("✅ " + message))
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println(warningStyle.Render("⚠️  " + message))
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Println(errorStyle.Render("❌ " + message))
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Println(mutedStyle.Render("ℹ️  " + message))
}

// kv renders one aligned key-value line
func kv(key, value string) string {
	return keyStyle.Render(key) + value
}

// PrintPanel prints key-value lines inside a bordered panel
func PrintPanel(lines ...string) {
	fmt.Println(panelStyle.Render(strings.Join(lines, "\n")))
}

// PrintPick prints a stored pick
func PrintPick(p *contracts.Pick) {
	source := p.Source
	if p.IsSimulated() {
		source = warningStyle.Render(source)
	}

	PrintPanel(
		headerStyle.Render(fmt.Sprintf("%s  %s", p.Code, p.Name)),
		"",
		kv("날짜", p.Date.Format("2006-01-02")),
		kv("현재가", fmt.Sprintf("%s원 (%+.2f%%)", formatPrice(p.Price), p.ChangePercent)),
		kv("총점", fmt.Sprintf("%.2f", p.TotalScore)),
		kv("기술 점수", fmt.Sprintf("%.1f / %.0f", p.TechnicalScore, scoring.MaxTechnicalScore)),
		kv("테마 점수", fmt.Sprintf("%.1f", p.ThemeScore)),
		kv("데이터 출처", source),
		"",
		indicatorLines(p.Indicators),
	)
}

// PrintCandidate prints one analyzed stock with its score breakdown
func PrintCandidate(c contracts.Candidate) {
	b := scoring.Explain(c)

	price := "-"
	if last, ok := c.Series.Last(); ok {
		price = fmt.Sprintf("%s원 (%+.2f%%)", formatPrice(last.Close), c.Series.ChangePercent())
	}

	PrintPanel(
		headerStyle.Render(fmt.Sprintf("%s  %s", c.Code, c.Name)),
		"",
		kv("현재가", price),
		kv("데이터", fmt.Sprintf("%d일 (%s)", len(c.Series), c.Source)),
		"",
		indicatorLines(c.Derived),
		"",
		kv("변동성 ×0.3", fmt.Sprintf("%.2f", b.Volatility)),
		kv("거래량 ×0.4", fmt.Sprintf("%.2f", b.VolumeRatio)),
		kv("테마 ×0.2", fmt.Sprintf("%.2f", b.Theme)),
		kv("기술 ×0.1", fmt.Sprintf("%.2f", b.Technical)),
		kv("총점", successStyle.Render(fmt.Sprintf("%.2f", b.Total()))),
	)
}

func indicatorLines(set contracts.IndicatorSet) string {
	macd := "-"
	if set.MACD != nil {
		macd = fmt.Sprintf("%.2f (signal %.2f)", set.MACD.Line, set.MACD.Signal)
	}

	return strings.Join([]string{
		kv("SMA20", formatOptional(set.SMA20, "%.0f")),
		kv("SMA60", formatOptional(set.SMA60, "%.0f")),
		kv("RSI14", formatOptional(set.RSI14, "%.1f")),
		kv("MACD", macd),
		kv("거래량 비율", formatOptional(set.VolumeRatio, "%.1f%%")),
		kv("변동성", formatOptional(set.Volatility, "%.1f%%")),
	}, "\n")
}

// PrintTable prints rows under a bold header with fixed column widths
func PrintTable(columns []string, widths []int, rows [][]string) {
	cells := func(values []string) string {
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = lipgloss.NewStyle().Width(widths[i]).Render(v)
		}
		return strings.Join(parts, "  ")
	}

	fmt.Println(headerStyle.Render(cells(columns)))

	total := 0
	for _, w := range widths {
		total += w + 2
	}
	fmt.Println(mutedStyle.Render(strings.Repeat("─", total-2)))

	for _, row := range rows {
		fmt.Println(cells(row))
	}
}

func formatOptional(v *float64, format string) string {
	if v == nil {
		return mutedStyle.Render("n/a")
	}
	return fmt.Sprintf(format, *v)
}

// formatPrice renders a won price with thousands separators
func formatPrice(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
