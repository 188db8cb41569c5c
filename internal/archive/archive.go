package archive

import (
	"time"

	"gorm.io/gorm"

	"github.com/edumeet/errwatch-backend/internal/domain"
	"github.com/edumeet/errwatch-backend/pkg/logger"
)

// ArchivedError is the append-only durable row written beneath the in-memory
// store. It exists for offline analysis; the serving path never reads it.
type ArchivedError struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	ErrorID     string    `gorm:"size:36;uniqueIndex"`
	PageContext string    `gorm:"size:255;index"`
	Category    string    `gorm:"size:64"`
	Severity    string    `gorm:"size:16"`
	Message     string    `gorm:"type:text"`
	Stack       string    `gorm:"type:text"`
	URL         string    `gorm:"size:2048"`
	UserAgent   string    `gorm:"size:512"`
	UserID      string    `gorm:"size:64"`
	SessionID   string    `gorm:"size:64"`
	Source      string    `gorm:"size:16"`
	Priority    int
	ReceivedAt  time.Time `gorm:"index"`
}

// TableName keeps the table alongside the app's other telemetry tables
func (ArchivedError) TableName() string {
	return "telemetry_errors"
}

// Archive appends stored errors to MySQL, best-effort. A nil DB disables it,
// matching how the API continues without a database connection.
type Archive struct {
	db *gorm.DB
}

// New creates an Archive and migrates its table. db may be nil.
func New(db *gorm.DB) (*Archive, error) {
	if db != nil {
		if err := db.AutoMigrate(&ArchivedError{}); err != nil {
			return nil, err
		}
	}
	return &Archive{db: db}, nil
}

// Enabled reports whether a database is attached
func (a *Archive) Enabled() bool {
	return a != nil && a.db != nil
}

// Append writes one row. Failures are logged and swallowed; durability is an
// extra, not part of the ingestion contract.
func (a *Archive) Append(e *domain.StoredError) {
	if !a.Enabled() {
		return
	}
	row := ArchivedError{
		ErrorID:     e.ID,
		PageContext: e.PageContext,
		Category:    e.Category,
		Severity:    string(e.Severity),
		Message:     e.Message,
		Stack:       e.Stack,
		URL:         e.URL,
		UserAgent:   e.UserAgent,
		UserID:      e.UserID,
		SessionID:   e.SessionID,
		Source:      e.Source,
		Priority:    e.PriorityScore,
		ReceivedAt:  e.ReceivedAt,
	}
	if err := a.db.Create(&row).Error; err != nil {
		logger.GetLogger().Warn().Err(err).Str("error_id", e.ID).Msg("archive append failed")
	}
}
