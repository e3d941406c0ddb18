package insight

import "sort"

// Rank maps a severity to its display order: more urgent sorts first.
// Unknown or unset severities sink to the bottom.
func Rank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	default:
		return 3
	}
}

// SortBySeverity orders insights most urgent first. The sort is stable, so
// insights of equal severity keep their generation order.
func SortBySeverity(insights []Insight) {
	sort.SliceStable(insights, func(i, j int) bool {
		return Rank(insights[i].Severity) < Rank(insights[j].Severity)
	})
}

// Icon names the display icon for an insight type.
func Icon(t Type) string {
	switch t {
	case TypeAlert:
		return "AlertCircle"
	case TypePattern:
		return "TrendingDown"
	case TypeSuggestion:
		return "Lightbulb"
	default:
		return "Info"
	}
}

// StyleClass returns the presentation style class for a severity.
func StyleClass(s Severity) string {
	switch s {
	case SeverityHigh:
		return "insight--high"
	case SeverityMedium:
		return "insight--medium"
	case SeverityLow:
		return "insight--low"
	default:
		return "insight--neutral"
	}
}
