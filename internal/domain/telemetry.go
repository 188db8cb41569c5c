package domain

import "time"

// ErrorType classifies how a client-side failure was captured
type ErrorType string

const (
	ErrorTypeRuntime            ErrorType = "runtime_error"
	ErrorTypeUnhandledRejection ErrorType = "unhandled_rejection"
	ErrorTypeConsoleWarning     ErrorType = "console_warning"
	ErrorTypeConsoleError       ErrorType = "console_error"
	ErrorTypeNetwork            ErrorType = "network_error"
)

// Severity ordinal urgency level, critical > high > medium > low
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// ErrorReport is the wire envelope a page sends to the ingest endpoint.
// Only message, url, userAgent and timestamp are required; the rest is
// best-effort session context.
type ErrorReport struct {
	Type         ErrorType `json:"type,omitempty"`
	Message      string    `json:"message" binding:"required"`
	Stack        string    `json:"stack,omitempty"`
	Filename     string    `json:"filename,omitempty"`
	Line         int       `json:"line,omitempty"`
	Column       int       `json:"column,omitempty"`
	URL          string    `json:"url"`
	UserAgent    string    `json:"userAgent,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	UserID       string    `json:"userId,omitempty"`
	SessionID    string    `json:"sessionId,omitempty"`
	PageLoadTime float64   `json:"pageLoadTime,omitempty"`
	NetworkSpeed string    `json:"networkSpeed,omitempty"`
	DeviceInfo   string    `json:"deviceInfo,omitempty"`
}

// Classification is the analyzer's verdict for one report
type Classification struct {
	Category         string   `json:"category"`
	Severity         Severity `json:"severity"`
	PageContext      string   `json:"pageContext"`
	Description      string   `json:"description"`
	Impact           string   `json:"impact"`
	Solutions        []string `json:"solutions"`
	PriorityScore    int      `json:"priorityScore"`
	EstimatedFixTime string   `json:"estimatedFixTime"`
}

// StoredError is a classified, deduplicated error held in the telemetry store
type StoredError struct {
	ID         string     `json:"id"`
	ReceivedAt time.Time  `json:"receivedAt"`
	Source     string     `json:"source"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	ErrorReport
	Classification
}

// IngestAck is the truncated classification view returned to the reporter
type IngestAck struct {
	Category         string   `json:"category"`
	Severity         Severity `json:"severity"`
	Solutions        []string `json:"solutions"`
	EstimatedFixTime string   `json:"estimatedFixTime"`
}

// QueryFilter narrows query results. Zero values mean "no filter" except
// Resolved, which defaults to showing open errors only.
type QueryFilter struct {
	PageContext string
	Severity    Severity
	Category    string
	Resolved    bool
	Limit       int
}

// PageAnalytics is derived per page at query time, never stored
type PageAnalytics struct {
	TotalErrors        int              `json:"totalErrors"`
	RecentErrors       int              `json:"recentErrors"`
	SeverityBreakdown  map[Severity]int `json:"severityBreakdown"`
	MostCommonCategory string           `json:"mostCommonCategory"`
	AveragePriority    float64          `json:"averagePriority"`
	LastErrorTime      *time.Time       `json:"lastErrorTime"`
	HealthScore        int              `json:"healthScore"`
	ErrorRate          float64          `json:"errorRate"`
}

// SummaryReport aggregates the queried set for dashboard consumption
type SummaryReport struct {
	Total      int              `json:"total"`
	BySeverity map[Severity]int `json:"bySeverity"`
	ByCategory map[string]int   `json:"byCategory"`
	Unresolved int              `json:"unresolved"`
}
