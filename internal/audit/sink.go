// Package audit defines the audit sink the decision engines emit to: one
// record per state-changing operation (tier decided, release transitioned,
// incident logged). The core builds records; persistence belongs to the
// sink implementation.
package audit

import (
	"log"
	"time"
)

// Record is a single audit trail entry.
type Record struct {
	Action       string                 `json:"action"`
	Actor        string                 `json:"actor"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   string                 `json:"resource_id"`
	Details      map[string]interface{} `json:"details,omitempty"`
	PrevState    string                 `json:"previous_state,omitempty"`
	NewState     string                 `json:"new_state,omitempty"`
	RecordedAt   time.Time              `json:"recorded_at"`
}

// Sink accepts audit records. Implementations must be safe for
// concurrent use; a failing sink must never block a decision.
type Sink interface {
	Record(rec Record)
}

// LogSink writes audit records to the process log. The default sink for
// development and tests.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a log-backed audit sink.
func NewLogSink() *LogSink {
	return &LogSink{logger: log.New(log.Writer(), "[AUDIT] ", log.LstdFlags)}
}

// Record logs the entry.
func (s *LogSink) Record(rec Record) {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	if rec.PrevState != "" || rec.NewState != "" {
		s.logger.Printf("%s %s/%s by %s (%s -> %s)",
			rec.Action, rec.ResourceType, rec.ResourceID, rec.Actor, rec.PrevState, rec.NewState)
		return
	}
	s.logger.Printf("%s %s/%s by %s", rec.Action, rec.ResourceType, rec.ResourceID, rec.Actor)
}

// NopSink discards all records. Useful in tests that assert on the core
// outputs only.
type NopSink struct{}

// Record discards the entry.
func (NopSink) Record(Record) {}
