package detector

import "github.com/hamed0406/downdetector/internal/domain"

// HostTable holds the latest state per tracked host. Hosts are never removed.
// It is not safe for concurrent use; Detector serializes access.
type HostTable struct {
	states map[domain.HostID]domain.HostState
}

// NewHostTable seeds the table with unset entries.
func NewHostTable(hosts []domain.HostID) *HostTable {
	t := &HostTable{states: make(map[domain.HostID]domain.HostState, len(hosts))}
	for _, h := range hosts {
		t.states[h] = domain.HostState{}
	}
	return t
}

// Record overwrites the state for host and reports whether the host was new.
func (t *HostTable) Record(host domain.HostID, s domain.HostState) (admitted bool) {
	_, known := t.states[host]
	t.states[host] = s
	return !known
}

// Get returns the state for host.
func (t *HostTable) Get(host domain.HostID) (domain.HostState, bool) {
	s, ok := t.states[host]
	return s, ok
}

// AllDown reports whether every tracked host is down. An empty table is not.
func (t *HostTable) AllDown() bool {
	if len(t.states) == 0 {
		return false
	}
	for _, s := range t.states {
		if s.Outcome != domain.OutcomeDown {
			return false
		}
	}
	return true
}

func (t *HostTable) Len() int { return len(t.states) }

// Snapshot copies the current mapping.
func (t *HostTable) Snapshot() map[domain.HostID]domain.HostState {
	out := make(map[domain.HostID]domain.HostState, len(t.states))
	for h, s := range t.states {
		out[h] = s
	}
	return out
}
