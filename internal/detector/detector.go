// Package detector derives network-wide availability from per-host probe output.
//
// The network is down when every tracked host last reported a timeout. Any
// host that replied, printed something unrecognised, or has not reported yet
// keeps the network up. Each down interval is closed into a DowntimeEvent
// when the first non-down observation arrives.
package detector

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/downdetector/internal/domain"
	"github.com/hamed0406/downdetector/internal/probe"
)

// ErrOutOfOrder is returned when a host reports a timestamp older than its
// previous observation.
var ErrOutOfOrder = errors.New("observation older than host's last observation")

// Hooks are called synchronously from Handle, once per transition, after the
// transition has been committed. They should return quickly: a slow hook
// delays ingestion for every host.
type Hooks struct {
	OnNetworkDown   func(since time.Time)
	OnNetworkBackUp func(ev domain.DowntimeEvent)
}

type Detector struct {
	log *zap.Logger

	// handleMu serializes Handle end to end, hooks included.
	handleMu sync.Mutex

	// mu guards the fields below. It is released before hooks run so that
	// hooks may use the read API.
	mu     sync.RWMutex
	hosts  *HostTable
	ledger *Ledger
	down   bool
	since  time.Time

	onDown   func(time.Time)
	onBackUp func(domain.DowntimeEvent)
}

// New seeds the tracked set with hosts. Nil hooks are no-ops; a nil logger
// discards output.
func New(hosts []domain.HostID, hooks Hooks, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Detector{
		log:      logger,
		hosts:    NewHostTable(hosts),
		ledger:   NewLedger(),
		onDown:   hooks.OnNetworkDown,
		onBackUp: hooks.OnNetworkBackUp,
	}
	if d.onDown == nil {
		d.onDown = func(time.Time) {}
	}
	if d.onBackUp == nil {
		d.onBackUp = func(domain.DowntimeEvent) {}
	}
	return d
}

type transition int

const (
	noTransition transition = iota
	wentDown
	cameBackUp
)

// Handle classifies obs, records it and re-evaluates the aggregate state,
// firing at most one hook. Observations for unknown hosts add the host to the
// tracked set.
func (d *Detector) Handle(obs domain.Observation) error {
	if err := obs.Validate(); err != nil {
		return err
	}
	outcome := probe.Classify(obs.Message)

	d.handleMu.Lock()
	defer d.handleMu.Unlock()

	tr, since, ev, err := d.apply(obs, outcome)
	if err != nil {
		return err
	}

	switch tr {
	case wentDown:
		d.log.Warn("network_down",
			zap.Time("since", since),
			zap.String("host", string(obs.Host)),
		)
		d.fire("on_network_down", func() { d.onDown(since) })
	case cameBackUp:
		d.log.Info("network_back_up",
			zap.Time("start", ev.Start),
			zap.Time("end", ev.End),
			zap.Duration("duration", ev.Duration),
			zap.String("host", string(obs.Host)),
		)
		d.fire("on_network_back_up", func() { d.onBackUp(ev) })
	}
	return nil
}

func (d *Detector) apply(obs domain.Observation, outcome domain.Outcome) (transition, time.Time, domain.DowntimeEvent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prev, ok := d.hosts.Get(obs.Host); ok && prev.Observed() && obs.Timestamp.Before(prev.Timestamp) {
		return noTransition, time.Time{}, domain.DowntimeEvent{}, fmt.Errorf("host %s: %w", obs.Host, ErrOutOfOrder)
	}

	admitted := d.hosts.Record(obs.Host, domain.HostState{
		Outcome:   outcome,
		Message:   obs.Message,
		Timestamp: obs.Timestamp,
	})
	if admitted {
		d.log.Info("host_admitted",
			zap.String("host", string(obs.Host)),
			zap.Int("tracked_hosts", d.hosts.Len()),
		)
	}

	allDown := d.hosts.AllDown()
	switch {
	case allDown && !d.down:
		d.down = true
		d.since = obs.Timestamp
		return wentDown, d.since, domain.DowntimeEvent{}, nil
	case !allDown && d.down:
		ev := domain.NewDowntimeEvent(d.since, obs.Timestamp)
		if obs.Timestamp.Before(d.since) {
			d.log.Warn("downtime_end_before_start",
				zap.Time("since", d.since),
				zap.Time("end", obs.Timestamp),
				zap.String("host", string(obs.Host)),
			)
		}
		d.ledger.Append(ev)
		d.down = false
		d.since = time.Time{}
		return cameBackUp, time.Time{}, ev, nil
	}
	return noTransition, time.Time{}, domain.DowntimeEvent{}, nil
}

// fire runs a hook, turning a panic into a log line. State is already
// committed at this point and is not rolled back.
func (d *Detector) fire(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("hook_panic", zap.String("hook", name), zap.Any("panic", r))
		}
	}()
	fn()
}

func (d *Detector) IsNetworkDown() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.down
}

// DownSince returns the start of the open downtime interval, if any.
func (d *Detector) DownSince() (time.Time, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.since, d.down
}

func (d *Detector) RecordedEvents() []domain.DowntimeEvent {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ledger.All()
}

func (d *Detector) LastEvent() (domain.DowntimeEvent, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ledger.Last()
}

// Hosts returns a copy of the host state table.
func (d *Detector) Hosts() map[domain.HostID]domain.HostState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.hosts.Snapshot()
}
