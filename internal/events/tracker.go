// ABOUTME: Audit trail of install/uninstall operations issued against a target
// ABOUTME: Recording never fails the operation it describes
package events

import (
	"time"
)

// OperationEvent records the outcome of one plugin operation
type OperationEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	RunID     string            `json:"runId"`
	Operation string            `json:"operation"` // "install" or "uninstall"
	Target    string            `json:"target"`    // Base URL of the instance
	Plugin    string            `json:"plugin"`
	Version   string            `json:"version,omitempty"`
	Status    string            `json:"status"` // succeeded/failed/skipped
	Error     string            `json:"error,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Context   map[string]string `json:"context,omitempty"`
}

// EventWriter writes and queries operation events
type EventWriter interface {
	Write(event *OperationEvent) error
	Query(filters EventFilters) ([]*OperationEvent, error)
}

// EventFilters for querying events
type EventFilters struct {
	Plugin    string
	Operation string
	RunID     string
	Status    string
	Since     time.Time
	Limit     int
}

// Tracker records operation events
type Tracker struct {
	enabled bool
	writer  EventWriter
	now     func() time.Time
}

// NewTracker creates a new event tracker. A nil writer disables it.
func NewTracker(writer EventWriter, enabled bool) *Tracker {
	return &Tracker{
		enabled: enabled && writer != nil,
		writer:  writer,
		now:     time.Now,
	}
}

// SetEnabled enables or disables the tracker
func (t *Tracker) SetEnabled(enabled bool) {
	t.enabled = enabled && t.writer != nil
}

// IsEnabled returns whether the tracker is enabled
func (t *Tracker) IsEnabled() bool {
	return t != nil && t.enabled
}

// Record stamps and writes event. The returned error is informational;
// callers log it and carry on.
func (t *Tracker) Record(event OperationEvent) error {
	if !t.IsEnabled() {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = t.now()
	}
	return t.writer.Write(&event)
}
