// Package events reports slot outcomes to operators. Outcomes are buffered
// and published to Kafka so a failed zone is visible without anything being
// shown to visitors.
package events

import "time"

type EventType string

const (
	EventSlotFilled EventType = "slot_filled"
	EventSlotFailed EventType = "slot_failed"
)

// Outcome describes one resolved ad fetch for one slot.
type Outcome struct {
	Type      EventType `json:"type"`
	ZoneID    string    `json:"zone_id"`
	Keyword   string    `json:"keyword"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Sequence  uint64    `json:"sequence"`
	Stale     bool      `json:"stale"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Tracker accepts outcomes without blocking the caller.
type Tracker interface {
	Track(Outcome)
}

// Nop discards every outcome.
type Nop struct{}

func (Nop) Track(Outcome) {}
