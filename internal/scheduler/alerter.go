package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hamed0406/downdetector/internal/detector"
	"github.com/hamed0406/downdetector/internal/domain"
	"github.com/hamed0406/downdetector/internal/notify"
	"github.com/hamed0406/downdetector/internal/repo"
)

type AlerterConfig struct {
	AlertOnRecovery bool
	Cooldown        time.Duration // minimum gap between two down alerts
	RatePerMin      int           // send throttle; 0 = unlimited
	QueueSize       int
}

// transition is one detector edge waiting to be alerted on.
type transition struct {
	down  bool
	since time.Time
	event domain.DowntimeEvent
}

// Alerter turns detector transitions into notifications and durable history.
// The detector hooks only enqueue; Run does the slow work.
type Alerter struct {
	log      *zap.Logger
	events   repo.EventStore
	notifier notify.Notifier
	cfg      AlerterConfig
	limiter  *rate.Limiter

	queue        chan transition
	lastDownSent time.Time
	now          func() time.Time

	// closed events waiting to be written to events
	pendingMu sync.Mutex
	pending   []domain.DowntimeEvent
}

func NewAlerter(
	logger *zap.Logger,
	events repo.EventStore,
	notifier notify.Notifier,
	cfg AlerterConfig,
) *Alerter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 64
	}
	limit := rate.Inf
	if cfg.RatePerMin > 0 {
		limit = rate.Limit(float64(cfg.RatePerMin) / 60.0)
	}
	return &Alerter{
		log:      logger,
		events:   events,
		notifier: notifier,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, 2),
		queue:    make(chan transition, cfg.QueueSize),
		now:      time.Now,
	}
}

// Hooks returns detector hooks that never block. When the queue is full the
// notification is dropped, but a closed event is still kept for history.
func (a *Alerter) Hooks() detector.Hooks {
	return detector.Hooks{
		OnNetworkDown: func(since time.Time) {
			a.enqueue(transition{down: true, since: since})
		},
		OnNetworkBackUp: func(ev domain.DowntimeEvent) {
			a.keep(ev)
			a.enqueue(transition{event: ev})
		},
	}
}

func (a *Alerter) keep(ev domain.DowntimeEvent) {
	if a.events == nil {
		return
	}
	a.pendingMu.Lock()
	a.pending = append(a.pending, ev)
	a.pendingMu.Unlock()
}

// flushHistory writes pending events. Failed writes are logged, not retried.
func (a *Alerter) flushHistory(ctx context.Context) {
	a.pendingMu.Lock()
	evs := a.pending
	a.pending = nil
	a.pendingMu.Unlock()

	for _, ev := range evs {
		rec := &repo.Record{Event: ev}
		if err := a.events.Append(ctx, rec); err != nil {
			a.log.Error("downtime_event_store_error", zap.Error(err))
			continue
		}
		a.log.Info("downtime_event_stored",
			zap.String("id", rec.ID),
			zap.Duration("duration", ev.Duration),
		)
	}
}

func (a *Alerter) enqueue(tr transition) {
	select {
	case a.queue <- tr:
	default:
		a.log.Warn("alert_queue_full", zap.Bool("down", tr.down))
	}
}

// Run processes queued transitions until ctx is cancelled.
func (a *Alerter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			a.flushHistory(flushCtx)
			cancel()
			return ctx.Err()
		case tr := <-a.queue:
			a.process(ctx, tr)
		}
	}
}

func (a *Alerter) process(ctx context.Context, tr transition) {
	a.flushHistory(ctx)

	if tr.down {
		// Cooldown only matters for DOWN alerts (suppresses flapping).
		now := a.now()
		if !a.lastDownSent.IsZero() && now.Sub(a.lastDownSent) < a.cfg.Cooldown {
			a.log.Info("alert_suppressed_cooldown", zap.Time("since", tr.since))
			return
		}
		title, text := notify.DownMessage(tr.since)
		if a.send(ctx, title, text) {
			a.lastDownSent = now
		}
		return
	}

	if a.cfg.AlertOnRecovery {
		title, text := notify.UpMessage(tr.event)
		a.send(ctx, title, text)
	}
}

func (a *Alerter) send(ctx context.Context, title, text string) bool {
	if a.notifier == nil {
		return false
	}
	if err := a.limiter.Wait(ctx); err != nil {
		a.log.Warn("alert_throttled", zap.String("title", title), zap.Error(err))
		return false
	}
	if err := a.notifier.Send(ctx, title, text); err != nil {
		a.log.Warn("alert_send_error", zap.String("title", title), zap.Error(err))
		return false
	}
	a.log.Info("alert_sent", zap.String("title", title))
	return true
}
