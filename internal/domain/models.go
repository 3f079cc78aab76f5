package domain

import (
	"errors"
	"time"
)

// HostID identifies a monitored endpoint, usually an IP address.
type HostID string

// Outcome is the classification of one line of probe output.
// The zero value means the host has not reported yet.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeDown    Outcome = "down"
	OutcomeUnknown Outcome = "unknown"
)

var (
	ErrMissingHost      = errors.New("observation: missing host")
	ErrMissingTimestamp = errors.New("observation: missing timestamp")
)

// Observation is one chunk of raw probe output for one host.
type Observation struct {
	Host      HostID    `json:"host"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate rejects observations the detector cannot evaluate.
// An empty Message is valid text and classifies as unknown.
func (o Observation) Validate() error {
	if o.Host == "" {
		return ErrMissingHost
	}
	if o.Timestamp.IsZero() {
		return ErrMissingTimestamp
	}
	return nil
}

// HostState is the latest classified observation for a host.
type HostState struct {
	Outcome   Outcome   `json:"outcome,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Observed reports whether the host has reported at least once.
func (s HostState) Observed() bool { return s.Outcome != "" }

// DowntimeEvent is a closed interval during which every tracked host was down.
type DowntimeEvent struct {
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration"`
}

// NewDowntimeEvent closes an interval. An end before start (possible when two
// hosts' clocks disagree) is clamped so the duration is never negative.
func NewDowntimeEvent(start, end time.Time) DowntimeEvent {
	if end.Before(start) {
		end = start
	}
	return DowntimeEvent{Start: start, End: end, Duration: end.Sub(start)}
}
