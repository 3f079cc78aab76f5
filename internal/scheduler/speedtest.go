package scheduler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Reading is one throughput measurement.
type Reading struct {
	URL           string        `json:"url"`
	Bytes         int64         `json:"bytes"`
	Elapsed       time.Duration `json:"elapsed"`
	BitsPerSecond float64       `json:"bits_per_second"`
	Rate          string        `json:"rate"`
	MeasuredAt    time.Time     `json:"measured_at"`
	Error         string        `json:"error,omitempty"`
}

// SpeedTest periodically downloads URL and reports the observed throughput.
// It runs independently of downtime detection.
type SpeedTest struct {
	Logger   *zap.Logger
	Client   *http.Client
	URL      string
	Interval time.Duration
	OnReport func(Reading)

	mu     sync.RWMutex
	latest *Reading
}

func NewSpeedTest(logger *zap.Logger, url string, interval, timeout time.Duration) *SpeedTest {
	if interval < 0 {
		interval = 0
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SpeedTest{
		Logger:   logger,
		Client:   &http.Client{Timeout: timeout},
		URL:      url,
		Interval: interval,
	}
}

// Run measures immediately, then once per Interval, until ctx is cancelled.
func (s *SpeedTest) Run(ctx context.Context) {
	if s.Interval == 0 {
		// disabled
		s.Logger.Info("speedtest_disabled")
		return
	}
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	// immediate pass
	s.Once(ctx)

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("speedtest_stopped")
			return
		case <-t.C:
			s.Once(ctx)
		}
	}
}

// Once runs a single measurement and records it as the latest reading.
func (s *SpeedTest) Once(ctx context.Context) Reading {
	r := s.measure(ctx)

	s.mu.Lock()
	s.latest = &r
	s.mu.Unlock()

	if r.Error != "" {
		s.Logger.Warn("speedtest_error", zap.String("url", r.URL), zap.String("error", r.Error))
	} else {
		s.Logger.Info("speedtest_result",
			zap.String("url", r.URL),
			zap.String("rate", r.Rate),
			zap.Int64("bytes", r.Bytes),
			zap.Duration("elapsed", r.Elapsed),
		)
	}
	if s.OnReport != nil {
		s.OnReport(r)
	}
	return r
}

// Latest returns the most recent reading, if any.
func (s *SpeedTest) Latest() (Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Reading{}, false
	}
	return *s.latest, true
}

func (s *SpeedTest) measure(ctx context.Context) (r Reading) {
	r.URL = s.URL
	start := time.Now()
	defer func() { r.MeasuredAt = time.Now().UTC() }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.Discard, resp.Body)
	r.Bytes = n
	r.Elapsed = time.Since(start)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	if resp.StatusCode/100 != 2 {
		r.Error = fmt.Sprintf("unexpected status %s", resp.Status)
	}
	if secs := r.Elapsed.Seconds(); secs > 0 {
		r.BitsPerSecond = float64(n*8) / secs
	}
	r.Rate = humanize.SI(r.BitsPerSecond, "b/s")
	return r
}
