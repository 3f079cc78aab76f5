package detector

import "github.com/hamed0406/downdetector/internal/domain"

// Ledger is the append-only history of closed downtime intervals.
type Ledger struct {
	events []domain.DowntimeEvent
}

func NewLedger() *Ledger {
	return &Ledger{events: make([]domain.DowntimeEvent, 0, 16)}
}

func (l *Ledger) Append(ev domain.DowntimeEvent) {
	l.events = append(l.events, ev)
}

// All returns a copy in insertion order.
func (l *Ledger) All() []domain.DowntimeEvent {
	out := make([]domain.DowntimeEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Last returns the most recent event, or false if nothing was recorded yet.
func (l *Ledger) Last() (domain.DowntimeEvent, bool) {
	if len(l.events) == 0 {
		return domain.DowntimeEvent{}, false
	}
	return l.events[len(l.events)-1], true
}

func (l *Ledger) Len() int { return len(l.events) }
