package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edumeet/errwatch-backend/internal/domain"
)

func TestRuleAnalyzer_Categories(t *testing.T) {
	a := NewRuleAnalyzer()

	tests := []struct {
		name         string
		message      string
		stack        string
		wantCategory string
		wantSeverity domain.Severity
	}{
		{
			name:         "null reference",
			message:      "TypeError: Cannot read properties of undefined (reading 'name')",
			wantCategory: "null_reference",
			wantSeverity: domain.SeverityHigh,
		},
		{
			name:         "undefined variable",
			message:      "ReferenceError: totals is not defined",
			wantCategory: "null_reference",
			wantSeverity: domain.SeverityHigh,
		},
		{
			name:         "type error",
			message:      "TypeError: meetings.map is not a function",
			wantCategory: "type_error",
			wantSeverity: domain.SeverityHigh,
		},
		{
			name:         "syntax error",
			message:      "SyntaxError: Unexpected token '<'",
			wantCategory: "syntax_error",
			wantSeverity: domain.SeverityCritical,
		},
		{
			name:         "chunk load",
			message:      "ChunkLoadError: Loading chunk 42 failed",
			wantCategory: "chunk_load",
			wantSeverity: domain.SeverityCritical,
		},
		{
			name:         "network failure",
			message:      "GET /api/v2/meetings failed: Failed to fetch",
			wantCategory: "network",
			wantSeverity: domain.SeverityHigh,
		},
		{
			name:         "permission denied",
			message:      "POST /api/v2/teams failed: 403 Forbidden",
			wantCategory: "permission",
			wantSeverity: domain.SeverityMedium,
		},
		{
			name:         "unhandled rejection",
			message:      "Uncaught (in promise) Error: save failed",
			wantCategory: "unhandled_rejection",
			wantSeverity: domain.SeverityMedium,
		},
		{
			name:         "stack overflow",
			message:      "RangeError: Maximum call stack size exceeded",
			wantCategory: "range_error",
			wantSeverity: domain.SeverityMedium,
		},
		{
			name:         "deprecation warning",
			message:      "Warning: componentWillMount has been deprecated",
			wantCategory: "console_warning",
			wantSeverity: domain.SeverityLow,
		},
		{
			name:         "unclassifiable input falls back to unknown",
			message:      "something completely novel happened",
			wantCategory: "unknown",
			wantSeverity: domain.SeverityLow,
		},
		{
			name:         "empty message falls back to unknown",
			message:      "",
			wantCategory: "unknown",
			wantSeverity: domain.SeverityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := a.Analyze(tt.message, "https://app.example.com/dashboard", tt.stack)
			assert.Equal(t, tt.wantCategory, cls.Category)
			assert.Equal(t, tt.wantSeverity, cls.Severity)
			assert.NotEmpty(t, cls.Solutions)
			assert.Positive(t, cls.PriorityScore)
		})
	}
}

func TestRuleAnalyzer_MatchesStack(t *testing.T) {
	a := NewRuleAnalyzer()

	cls := a.Analyze("boom", "/dashboard", "TypeError: x is not a function\n  at render (app.js:10)")
	assert.Equal(t, "type_error", cls.Category)
}

func TestRuleAnalyzer_SetsPageContext(t *testing.T) {
	a := NewRuleAnalyzer()

	cls := a.Analyze("boom", "https://app.example.com/meetings/42?tab=agenda", "")
	assert.Equal(t, "/meetings/:id", cls.PageContext)
}

func TestNormalizePageContext(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://app.example.com/dashboard", "/dashboard"},
		{"https://app.example.com/meetings/42", "/meetings/:id"},
		{"/teams/7/members?sort=name", "/teams/:id/members"},
		{"/dashboard#section", "/dashboard"},
		{"https://app.example.com", "/"},
		{"", "/"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePageContext(tt.in), "input %q", tt.in)
	}
}
