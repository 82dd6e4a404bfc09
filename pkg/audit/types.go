package audit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Severity classifies how important an audit event is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// ParseSeverity parses a severity name case-insensitively.
// An empty string yields SeverityMedium.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return SeverityMedium, nil
	case string(SeverityLow):
		return SeverityLow, nil
	case string(SeverityMedium):
		return SeverityMedium, nil
	case string(SeverityHigh):
		return SeverityHigh, nil
	case string(SeverityCritical):
		return SeverityCritical, nil
	default:
		return "", NewValidationError("severity", fmt.Sprintf("unknown severity %q", s))
	}
}

// Valid reports whether s is one of the defined severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Record is a single audit trail entry. Records are treated as immutable
// values once constructed: components copy them rather than mutating shared
// instances.
type Record struct {
	// ID is assigned by the primary store. Empty until persisted.
	ID string `json:"id,omitempty"`

	EventType   string    `json:"eventType"`
	Severity    Severity  `json:"severity"`
	UserID      string    `json:"userId,omitempty"`
	TargetID    string    `json:"targetId,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RecordOption customizes a record built by NewRecord.
type RecordOption func(*Record)

// WithID sets the record identifier.
func WithID(id string) RecordOption {
	return func(r *Record) { r.ID = id }
}

// WithSeverity sets the record severity.
func WithSeverity(s Severity) RecordOption {
	return func(r *Record) { r.Severity = s }
}

// WithUser sets the acting user.
func WithUser(userID string) RecordOption {
	return func(r *Record) { r.UserID = userID }
}

// WithTarget sets the target entity.
func WithTarget(targetID string) RecordOption {
	return func(r *Record) { r.TargetID = targetID }
}

// WithDescription sets a free-form description.
func WithDescription(desc string) RecordOption {
	return func(r *Record) { r.Description = desc }
}

// WithCreatedAt sets the event time.
func WithCreatedAt(t time.Time) RecordOption {
	return func(r *Record) { r.CreatedAt = t }
}

// NewRecord builds a validated audit record. The event type must be
// non-blank. Severity defaults to MEDIUM and CreatedAt to the current time.
func NewRecord(eventType string, opts ...RecordOption) (*Record, error) {
	r := &Record{EventType: strings.TrimSpace(eventType)}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.normalize(); err != nil {
		return nil, err
	}
	return r, nil
}

// Normalize applies defaults and validates a record that was built without
// NewRecord (for example decoded from storage).
func (r *Record) Normalize() error {
	return r.normalize()
}

func (r *Record) normalize() error {
	if strings.TrimSpace(r.EventType) == "" {
		return NewValidationError("eventType", "event type must not be blank")
	}
	if r.Severity == "" {
		r.Severity = SeverityMedium
	}
	if !r.Severity.Valid() {
		return NewValidationError("severity", fmt.Sprintf("unknown severity %q", r.Severity))
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	return nil
}

// Clone returns a copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Equal reports whether two records carry the same values.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.ID == o.ID &&
		r.EventType == o.EventType &&
		r.Severity == o.Severity &&
		r.UserID == o.UserID &&
		r.TargetID == o.TargetID &&
		r.Description == o.Description &&
		r.CreatedAt.Equal(o.CreatedAt)
}

// Filter holds exact-match filters for searching the primary store.
type Filter struct {
	EventType string     // Exact event type
	Severity  Severity   // Exact severity
	UserID    string     // Acting user
	TargetID  string     // Target entity
	StartTime *time.Time // Inclusive lower bound on CreatedAt
	EndTime   *time.Time // Exclusive upper bound on CreatedAt
}

// Page describes a pagination window.
type Page struct {
	Limit  int // Max records to return (0 = store default)
	Offset int // Skip N records
}

// Store is the primary record store. It is an external collaborator of the
// archive core; implementations must be safe for concurrent use.
type Store interface {
	// Save persists a record and returns it with its assigned ID.
	Save(ctx context.Context, record *Record) (*Record, error)

	// FindByID returns the record with the given ID or ErrNotFound.
	FindByID(ctx context.Context, id string) (*Record, error)

	// FindBetween returns records with start <= CreatedAt < end, oldest first.
	FindBetween(ctx context.Context, start, end time.Time) ([]*Record, error)

	// FindAll returns every record in the store.
	FindAll(ctx context.Context) ([]*Record, error)

	// Search returns records matching the filter, newest first.
	Search(ctx context.Context, filter *Filter, page Page) ([]*Record, error)

	// Count returns the number of records matching the filter.
	Count(ctx context.Context, filter *Filter) (int64, error)

	// FindLatest returns the newest records, newest first.
	FindLatest(ctx context.Context, limit int) ([]*Record, error)

	Counter

	// DeleteBefore removes records with CreatedAt < before.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)

	// DeleteIDs removes the records with the given IDs. Unknown IDs are
	// ignored.
	DeleteIDs(ctx context.Context, ids []string) (int64, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Counter reports how many records older than a cutoff still live in the
// primary store. The archive store uses it as a data-loss guard.
type Counter interface {
	CountBefore(ctx context.Context, before time.Time) (int64, error)
}

// Matches reports whether r satisfies every set field of the filter.
// A nil filter matches all records.
func (f *Filter) Matches(r *Record) bool {
	if f == nil {
		return true
	}
	if f.EventType != "" && r.EventType != f.EventType {
		return false
	}
	if f.Severity != "" && r.Severity != f.Severity {
		return false
	}
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if f.TargetID != "" && r.TargetID != f.TargetID {
		return false
	}
	if f.StartTime != nil && r.CreatedAt.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && !r.CreatedAt.Before(*f.EndTime) {
		return false
	}
	return true
}
