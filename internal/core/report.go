package core

import (
	"fmt"
	"strings"
)

// DefaultNotifyThreshold is the score from which an alert is prepared
const DefaultNotifyThreshold = 75

// FormatReport renders the result for the analyst and prepares a
// notification when the score reaches notifyThreshold.
func FormatReport(result *AnalysisResult, listing Listing, notifyThreshold int) *Report {
	summary := formatSummary(result, listing)
	report := &Report{Summary: summary}

	if result.SimilarityScore >= notifyThreshold {
		report.Notification = &Notification{
			Subject: fmt.Sprintf("[AAG] %s risk listing: %s", result.RiskLevel, oneLine(listing.Name)),
			Body:    "A new product listing crossed the similarity alert threshold.\n\n" + summary,
		}
	}
	return report
}

func formatSummary(result *AnalysisResult, listing Listing) string {
	var b strings.Builder
	b.WriteString("=== Listing Risk Report ===\n")
	fmt.Fprintf(&b, "Listing: %s\n", oneLine(listing.Name))
	fmt.Fprintf(&b, "Price: %d\n", listing.Price)
	fmt.Fprintf(&b, "Similarity score: %d/100\n", result.SimilarityScore)
	if result.ModelRiskLabel != "" && !strings.EqualFold(result.ModelRiskLabel, string(result.RiskLevel)) {
		fmt.Fprintf(&b, "Risk level: %s (model reported: %s)\n", result.RiskLevel, result.ModelRiskLabel)
	} else {
		fmt.Fprintf(&b, "Risk level: %s\n", result.RiskLevel)
	}
	if result.HasMatch() {
		fmt.Fprintf(&b, "Matched product: %s\n", result.MatchingItemID)
	} else {
		b.WriteString("Matched product: none\n")
	}
	fmt.Fprintf(&b, "Recommended action: %s\n", result.RecommendedAction)
	fmt.Fprintf(&b, "Reasoning: %s\n", result.Reasoning)
	if result.Degraded {
		b.WriteString("DEGRADED RESULT: treat the score with caution\n")
	}
	if len(result.Warnings) > 0 {
		b.WriteString("Warnings:\n")
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(&b, "  - %s\n", w)
	}
	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
