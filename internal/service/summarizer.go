package service

import (
	"github.com/edumeet/errwatch-backend/internal/domain"
)

// Summarizer turns a queried error set into the dashboard's aggregate report
type Summarizer interface {
	Summarize(errors []domain.StoredError) domain.SummaryReport
}

// CountSummarizer is the default summarizer: severity and category counts
// plus the unresolved total.
type CountSummarizer struct{}

// Summarize counts the selected set
func (CountSummarizer) Summarize(errors []domain.StoredError) domain.SummaryReport {
	report := domain.SummaryReport{
		Total:      len(errors),
		BySeverity: make(map[domain.Severity]int),
		ByCategory: make(map[string]int),
	}
	for _, e := range errors {
		report.BySeverity[e.Severity]++
		report.ByCategory[e.Category]++
		if !e.Resolved {
			report.Unresolved++
		}
	}
	return report
}
