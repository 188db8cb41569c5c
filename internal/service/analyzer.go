package service

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/edumeet/errwatch-backend/internal/domain"
)

// Analyzer derives a classification from a raw error report. Implementations
// must never fail: input they cannot categorize degrades to the default
// low-confidence classification.
type Analyzer interface {
	Analyze(message, pageURL, stack string) domain.Classification
}

// rule pairs a predicate with the classification it yields. Rules are
// evaluated in order; the first match wins.
type rule struct {
	category         string
	severity         domain.Severity
	match            func(message, stack string) bool
	description      string
	impact           string
	solutions        []string
	priorityScore    int
	estimatedFixTime string
}

func keywords(words ...string) func(string, string) bool {
	return func(message, stack string) bool {
		haystack := strings.ToLower(message + "\n" + stack)
		for _, w := range words {
			if strings.Contains(haystack, w) {
				return true
			}
		}
		return false
	}
}

// classificationRules is the ordered strategy table. More specific failure
// signatures come first; the unknown fallback is appended by NewRuleAnalyzer.
var classificationRules = []rule{
	{
		category:    "null_reference",
		severity:    domain.SeverityHigh,
		match:       keywords("cannot read propert", "is not defined", "is undefined", "of undefined", "of null", "null is not an object"),
		description: "Code dereferenced a value that was null or undefined",
		impact:      "The interaction that triggered it is broken for the user",
		solutions: []string{
			"Guard the access with an optional chain or null check",
			"Verify the API response contains the expected field",
			"Initialize state before first render",
		},
		priorityScore:    75,
		estimatedFixTime: "1-2 hours",
	},
	{
		category:    "type_error",
		severity:    domain.SeverityHigh,
		match:       keywords("typeerror", "is not a function", "is not a constructor"),
		description: "A value was used with an operation its type does not support",
		impact:      "The current page flow stops at the failing call",
		solutions: []string{
			"Check the shape of the object at the call site",
			"Add a runtime type guard before the call",
			"Align client types with the server payload",
		},
		priorityScore:    70,
		estimatedFixTime: "1-2 hours",
	},
	{
		category:    "syntax_error",
		severity:    domain.SeverityCritical,
		match:       keywords("syntaxerror", "unexpected token", "unexpected end of input"),
		description: "A script or JSON payload failed to parse",
		impact:      "The whole bundle or payload is unusable, likely affecting every visitor",
		solutions: []string{
			"Check the last deploy for a truncated or mis-built asset",
			"Validate JSON payloads before shipping",
		},
		priorityScore:    95,
		estimatedFixTime: "30 minutes",
	},
	{
		category:    "chunk_load",
		severity:    domain.SeverityCritical,
		match:       keywords("chunkloaderror", "loading chunk", "failed to fetch dynamically imported module"),
		description: "A lazy-loaded bundle chunk could not be fetched",
		impact:      "Navigation to the affected route fails entirely",
		solutions: []string{
			"Keep old chunk files available after a deploy",
			"Reload the page on chunk load failure",
		},
		priorityScore:    90,
		estimatedFixTime: "2-4 hours",
	},
	{
		category:    "network",
		severity:    domain.SeverityHigh,
		match:       keywords("network_error", "failed to fetch", "networkerror", "load failed", "http 5", "status 5", "err_network", "err_internet_disconnected", "timeout"),
		description: "An HTTP call failed or returned a non-success status",
		impact:      "Data did not load or save; the user may retry into the same failure",
		solutions: []string{
			"Check server-side logs for the failing endpoint",
			"Add retry with backoff for idempotent requests",
			"Surface a recoverable error state in the UI",
		},
		priorityScore:    80,
		estimatedFixTime: "2-4 hours",
	},
	{
		category:    "permission",
		severity:    domain.SeverityMedium,
		match:       keywords("permission denied", "not allowed", "forbidden", " 403", "unauthorized", " 401"),
		description: "The client attempted an operation it is not authorized for",
		impact:      "A user sees a denied action; may indicate a stale session",
		solutions: []string{
			"Refresh the session token on 401",
			"Hide actions the current role cannot perform",
		},
		priorityScore:    55,
		estimatedFixTime: "1-2 hours",
	},
	{
		category:    "unhandled_rejection",
		severity:    domain.SeverityMedium,
		match:       keywords("unhandled_rejection", "unhandled promise rejection", "uncaught (in promise)"),
		description: "A promise rejected with no handler attached",
		impact:      "Silent failure; follow-up state updates never happened",
		solutions: []string{
			"Attach a catch handler at the call site",
			"Route async errors into the page error boundary",
		},
		priorityScore:    50,
		estimatedFixTime: "1 hour",
	},
	{
		category:    "range_error",
		severity:    domain.SeverityMedium,
		match:       keywords("rangeerror", "maximum call stack", "invalid array length"),
		description: "A value exceeded its allowed range, often infinite recursion",
		impact:      "The tab may freeze while the stack unwinds",
		solutions: []string{
			"Look for unbounded recursion in the stack trace",
			"Validate numeric inputs before use",
		},
		priorityScore:    60,
		estimatedFixTime: "2-4 hours",
	},
	{
		category:    "console_warning",
		severity:    domain.SeverityLow,
		match:       keywords("console_warning", "deprecat", "warning:"),
		description: "A diagnostic warning was emitted on the console",
		impact:      "No direct user impact, but signals drift worth cleaning up",
		solutions: []string{
			"Address the warning before it becomes a breaking change",
		},
		priorityScore:    20,
		estimatedFixTime: "30 minutes",
	},
}

var defaultRule = rule{
	category:    "unknown",
	severity:    domain.SeverityLow,
	match:       func(string, string) bool { return true },
	description: "The error did not match any known failure signature",
	impact:      "Unknown; inspect the raw message and stack",
	solutions: []string{
		"Inspect the stack trace manually",
		"Add a classification rule once the cause is understood",
	},
	priorityScore:    25,
	estimatedFixTime: "unknown",
}

// RuleAnalyzer classifies reports with the ordered rule table
type RuleAnalyzer struct {
	rules []rule
}

// NewRuleAnalyzer builds the default analyzer. The fallback rule is always
// last, so Analyze is total.
func NewRuleAnalyzer() *RuleAnalyzer {
	rules := make([]rule, 0, len(classificationRules)+1)
	rules = append(rules, classificationRules...)
	rules = append(rules, defaultRule)
	return &RuleAnalyzer{rules: rules}
}

// Analyze matches the report against the rule table and returns the first
// hit, with the page context normalized from the reporting URL.
func (a *RuleAnalyzer) Analyze(message, pageURL, stack string) domain.Classification {
	page := NormalizePageContext(pageURL)
	for _, r := range a.rules {
		if !r.match(message, stack) {
			continue
		}
		return domain.Classification{
			Category:         r.category,
			Severity:         r.severity,
			PageContext:      page,
			Description:      r.description,
			Impact:           r.impact,
			Solutions:        r.solutions,
			PriorityScore:    r.priorityScore,
			EstimatedFixTime: r.estimatedFixTime,
		}
	}
	// unreachable: defaultRule matches everything
	return domain.Classification{Category: "unknown", Severity: domain.SeverityLow, PageContext: page}
}

var numericSegment = regexp.MustCompile(`^\d+$`)

// NormalizePageContext reduces a reporting URL to a route-shaped partition
// key (e.g. /meetings/:id) to avoid cardinality explosion in the store.
func NormalizePageContext(pageURL string) string {
	if pageURL == "" {
		return "/"
	}
	path := pageURL
	if u, err := url.Parse(pageURL); err == nil {
		if u.Path == "" {
			return "/"
		}
		path = u.Path
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if numericSegment.MatchString(seg) {
			segments[i] = ":id"
		}
	}
	return "/" + strings.Join(segments, "/")
}
