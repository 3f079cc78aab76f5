package probe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/downdetector/internal/domain"
)

// Handler receives every line of probe output. Detector.Handle satisfies it.
type Handler func(domain.Observation) error

// DefaultMaxLine bounds one line of probe output.
const DefaultMaxLine = 64 * 1024

// CommandFunc builds the long-running probe process for host.
type CommandFunc func(ctx context.Context, host domain.HostID) *exec.Cmd

// Supervisor keeps one ping process per host alive and forwards its output,
// line by line, stamped with the time it was read.
type Supervisor struct {
	Logger         *zap.Logger
	ProbeLog       *zap.Logger // raw output sink
	Hosts          []domain.HostID
	RestartBackoff time.Duration
	Handle         Handler
	Command        CommandFunc
	MaxLine        int

	now func() time.Time
}

func NewSupervisor(
	logger, probeLog *zap.Logger,
	hosts []domain.HostID,
	interval time.Duration,
	iface string,
	restartBackoff time.Duration,
	handle Handler,
) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if probeLog == nil {
		probeLog = zap.NewNop()
	}
	if restartBackoff <= 0 {
		restartBackoff = 2 * time.Second
	}
	return &Supervisor{
		Logger:         logger,
		ProbeLog:       probeLog,
		Hosts:          hosts,
		RestartBackoff: restartBackoff,
		Handle:         handle,
		Command:        PingCommand(interval, iface),
		MaxLine:        DefaultMaxLine,
		now:            time.Now,
	}
}

// PingArgs returns the ping arguments for goos. Windows ping has no interval
// flag and needs -t to run until stopped.
func PingArgs(goos, host string, interval time.Duration, iface string) []string {
	args := []string{host}
	if goos == "windows" {
		return append(args, "-t")
	}
	if interval > 0 {
		args = append(args, "-i", strconv.FormatFloat(interval.Seconds(), 'f', -1, 64))
	}
	if iface != "" {
		args = append(args, "-I", iface)
	}
	return args
}

// PingCommand runs the system ping binary for each host.
func PingCommand(interval time.Duration, iface string) CommandFunc {
	return func(ctx context.Context, host domain.HostID) *exec.Cmd {
		return exec.CommandContext(ctx, "ping", PingArgs(runtime.GOOS, string(host), interval, iface)...)
	}
}

// Run supervises every host until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	if len(s.Hosts) == 0 {
		return errors.New("no hosts to probe")
	}
	var wg sync.WaitGroup
	for _, h := range s.Hosts {
		wg.Add(1)
		go func(host domain.HostID) {
			defer wg.Done()
			s.superviseHost(ctx, host)
		}(h)
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Supervisor) superviseHost(ctx context.Context, host domain.HostID) {
	for {
		err := s.runOnce(ctx, host)
		s.ProbeLog.Info("probe_stopped", zap.String("host", string(host)), zap.Error(err))
		if ctx.Err() != nil {
			return
		}
		s.Logger.Warn("probe_restarting",
			zap.String("host", string(host)),
			zap.Duration("restart_in", s.RestartBackoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.RestartBackoff):
		}
	}
}

func (s *Supervisor) runOnce(ctx context.Context, host domain.HostID) error {
	// cancelled when output can no longer be read, which kills the process
	ctx, kill := context.WithCancel(ctx)
	defer kill()

	cmd := s.Command(ctx, host)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", cmd.Path, err)
	}
	s.Logger.Info("probe_started", zap.String("host", string(host)), zap.Strings("args", cmd.Args))

	// stdout and stderr share one lock so each host's timestamps stay ordered.
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.scan(host, stdout, false, &mu, kill) }()
	go func() { defer wg.Done(); s.scan(host, stderr, true, &mu, kill) }()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return err
	}
	return errors.New("probe exited")
}

func (s *Supervisor) scan(host domain.HostID, r io.Reader, isErr bool, mu *sync.Mutex, kill func()) {
	maxLine := s.MaxLine
	if maxLine <= 0 {
		maxLine = DefaultMaxLine
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, min(4096, maxLine)), maxLine)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		mu.Lock()
		obs := domain.Observation{Host: host, Message: line, Timestamp: s.now()}
		if isErr {
			s.ProbeLog.Error(line, zap.String("host", string(host)))
		} else {
			s.ProbeLog.Debug(line, zap.String("host", string(host)))
		}
		if err := s.Handle(obs); err != nil {
			s.Logger.Warn("observation_rejected", zap.String("host", string(host)), zap.Error(err))
		}
		mu.Unlock()
	}
	if err := sc.Err(); err != nil {
		s.Logger.Error("probe_output_error",
			zap.String("host", string(host)),
			zap.Bool("stderr", isErr),
			zap.Error(err),
		)
		kill()
		// keep the pipe flowing so the process can exit
		_, _ = io.Copy(io.Discard, r)
	}
}
