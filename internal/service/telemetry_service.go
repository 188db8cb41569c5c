package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/edumeet/errwatch-backend/internal/archive"
	"github.com/edumeet/errwatch-backend/internal/domain"
	"github.com/edumeet/errwatch-backend/internal/notify"
	"github.com/edumeet/errwatch-backend/internal/store"
	"github.com/edumeet/errwatch-backend/pkg/logger"
)

const (
	// DefaultQueryLimit bounds query results when the caller gives no limit
	DefaultQueryLimit = 50

	// recentWindow is the span analytics treat as "recent"
	recentWindow = time.Hour

	// minRateWindowHours floors the error-rate denominator so a bucket whose
	// oldest entry is seconds old does not report an absurd hourly rate
	minRateWindowHours = 1.0 / 60.0

	notifyTimeout = 5 * time.Second
)

var (
	reportsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_reports_ingested_total",
			Help: "Ingested error reports by outcome",
		},
		[]string{"outcome", "severity"},
	)

	criticalNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_critical_notifications_total",
			Help: "Critical error notifications by delivery result",
		},
		[]string{"result"},
	)
)

// TelemetryService implements ingestion, query/analytics and resolution over
// one shared TelemetryStore. The analyzer, summarizer and notifier are
// pluggable; the archive is an optional durable sink.
type TelemetryService struct {
	store        *store.TelemetryStore
	analyzer     Analyzer
	summarizer   Summarizer
	notifier     notify.Notifier
	archive      *archive.Archive
	source       string
	defaultLimit int
}

// NewTelemetryService wires the pipeline. source tags stored errors as
// "production" or "local"; nil summarizer/notifier get defaults.
func NewTelemetryService(
	st *store.TelemetryStore,
	analyzer Analyzer,
	summarizer Summarizer,
	notifier notify.Notifier,
	arch *archive.Archive,
	source string,
) *TelemetryService {
	if summarizer == nil {
		summarizer = CountSummarizer{}
	}
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	if source == "" {
		source = "local"
	}
	return &TelemetryService{
		store:        st,
		analyzer:     analyzer,
		summarizer:   summarizer,
		notifier:     notifier,
		archive:      arch,
		source:       source,
		defaultLimit: DefaultQueryLimit,
	}
}

// SetDefaultLimit overrides the query result cap applied when a caller gives
// no limit. Values <= 0 are ignored.
func (s *TelemetryService) SetDefaultLimit(n int) {
	if n > 0 {
		s.defaultLimit = n
	}
}

// Ingest classifies, deduplicates and stores one report. It always succeeds:
// a duplicate is acknowledged without being stored, and an analyzer that
// panics on exotic input degrades to the unknown classification. Returns the
// assigned id, the truncated classification view, and whether the report was
// actually stored.
func (s *TelemetryService) Ingest(report domain.ErrorReport) (string, domain.IngestAck, bool) {
	cls := s.classify(report)

	stored := &domain.StoredError{
		ID:             uuid.New().String(),
		Source:         s.source,
		Resolved:       false,
		ErrorReport:    report,
		Classification: cls,
	}

	inserted := s.store.Insert(stored)
	if inserted {
		reportsIngested.WithLabelValues("stored", string(cls.Severity)).Inc()
		if cls.Severity == domain.SeverityCritical {
			go s.notifyCritical(stored)
		}
		if s.archive.Enabled() {
			go s.archive.Append(stored)
		}
	} else {
		reportsIngested.WithLabelValues("deduplicated", string(cls.Severity)).Inc()
	}

	return stored.ID, ackFor(cls), inserted
}

// classify runs the analyzer with a panic guard so a misbehaving pluggable
// analyzer can never fail ingestion.
func (s *TelemetryService) classify(report domain.ErrorReport) (cls domain.Classification) {
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().Warn().
				Interface("panic", r).
				Str("message", report.Message).
				Msg("analyzer panicked, using default classification")
			cls = domain.Classification{
				Category:         "unknown",
				Severity:         domain.SeverityLow,
				PageContext:      NormalizePageContext(report.URL),
				Description:      "The analyzer could not classify this error",
				Solutions:        []string{"Inspect the raw message and stack"},
				PriorityScore:    25,
				EstimatedFixTime: "unknown",
			}
		}
	}()
	return s.analyzer.Analyze(report.Message, report.URL, report.Stack)
}

// ackFor truncates a classification to the view returned to the reporter:
// category, severity, top two solutions, estimated fix time.
func ackFor(cls domain.Classification) domain.IngestAck {
	solutions := cls.Solutions
	if len(solutions) > 2 {
		solutions = solutions[:2]
	}
	return domain.IngestAck{
		Category:         cls.Category,
		Severity:         cls.Severity,
		Solutions:        solutions,
		EstimatedFixTime: cls.EstimatedFixTime,
	}
}

func (s *TelemetryService) notifyCritical(e *domain.StoredError) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := s.notifier.Notify(ctx, e); err != nil {
		criticalNotifications.WithLabelValues("failed").Inc()
		logger.GetLogger().Warn().Err(err).Str("error_id", e.ID).Msg("critical notification failed")
		return
	}
	criticalNotifications.WithLabelValues("delivered").Inc()
}

// QueryResult bundles everything the dashboard renders for one query
type QueryResult struct {
	Errors        []domain.StoredError  `json:"errors"`
	Report        domain.SummaryReport  `json:"report"`
	PageAnalytics *domain.PageAnalytics `json:"pageAnalytics"`
}

// Query filters and sorts stored errors, then derives the aggregate report
// and, when a page is selected, that page's analytics over its full bucket
// (independent of the query filters).
func (s *TelemetryService) Query(filter domain.QueryFilter) QueryResult {
	if filter.Limit <= 0 {
		filter.Limit = s.defaultLimit
	}

	var selected []domain.StoredError
	if filter.PageContext != "" {
		selected = s.store.Page(filter.PageContext)
	} else {
		selected = s.store.All()
	}

	filtered := selected[:0:0]
	for _, e := range selected {
		if filter.Severity != "" && e.Severity != filter.Severity {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		if e.Resolved != filter.Resolved {
			continue
		}
		filtered = append(filtered, e)
	}

	// Priority first, then recency. SliceStable keeps equal pairs in their
	// existing newest-first order, giving a total order.
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].PriorityScore != filtered[j].PriorityScore {
			return filtered[i].PriorityScore > filtered[j].PriorityScore
		}
		return filtered[i].ReceivedAt.After(filtered[j].ReceivedAt)
	})

	report := s.summarizer.Summarize(filtered)

	if len(filtered) > filter.Limit {
		filtered = filtered[:filter.Limit]
	}

	result := QueryResult{Errors: filtered, Report: report}
	if filter.PageContext != "" {
		analytics := ComputePageAnalytics(s.store.Page(filter.PageContext), s.store.Now())
		result.PageAnalytics = &analytics
	}
	return result
}

// Resolve flips the resolved state of a stored error. An unknown id is a
// silent no-op per the monitoring contract: resolution is idempotent and the
// entry may simply have been evicted.
func (s *TelemetryService) Resolve(errorID string, resolved bool) {
	if !s.store.Resolve(errorID, resolved) {
		logger.GetLogger().Debug().Str("error_id", errorID).Msg("resolve: id not found, no-op")
	}
}

// ComputePageAnalytics derives the health view of one page bucket. The
// bucket must be newest-first, as the store returns it.
func ComputePageAnalytics(bucket []domain.StoredError, now time.Time) domain.PageAnalytics {
	analytics := domain.PageAnalytics{
		TotalErrors:       len(bucket),
		SeverityBreakdown: make(map[domain.Severity]int),
		HealthScore:       100,
	}
	if len(bucket) == 0 {
		return analytics
	}

	cutoff := now.Add(-recentWindow)
	prioritySum := 0
	score := 100
	categoryCounts := make(map[string]int)

	for _, e := range bucket {
		analytics.SeverityBreakdown[e.Severity]++
		categoryCounts[e.Category]++
		prioritySum += e.PriorityScore

		if e.ReceivedAt.After(cutoff) {
			analytics.RecentErrors++
			switch e.Severity {
			case domain.SeverityCritical:
				score -= 30
			case domain.SeverityHigh:
				score -= 15
			default:
				score -= 2
			}
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	analytics.HealthScore = score
	analytics.AveragePriority = float64(prioritySum) / float64(len(bucket))
	analytics.MostCommonCategory = mostCommonCategory(bucket, categoryCounts)

	last := bucket[0].ReceivedAt
	analytics.LastErrorTime = &last

	// Rate window runs from the oldest retained entry; the floor keeps a
	// seconds-old bucket from reporting an absurd hourly rate.
	elapsedHours := now.Sub(bucket[len(bucket)-1].ReceivedAt).Hours()
	if elapsedHours < minRateWindowHours {
		elapsedHours = minRateWindowHours
	}
	analytics.ErrorRate = float64(len(bucket)) / elapsedHours

	return analytics
}

// mostCommonCategory picks the highest-frequency category; on ties the one
// encountered first in bucket order wins.
func mostCommonCategory(bucket []domain.StoredError, counts map[string]int) string {
	best := ""
	bestCount := 0
	for _, e := range bucket {
		if counts[e.Category] > bestCount {
			best = e.Category
			bestCount = counts[e.Category]
		}
	}
	return best
}
