package scanner

import (
	"context"
	"sync"
	"time"

	"creator-missions/pkg/metrics"

	"go.uber.org/zap"
)

// Scanner is one periodic pass over the ledger.
type Scanner interface {
	Name() string
	Scan(ctx context.Context) error
}

// Scheduler runs a Scanner on a fixed interval. Every tick starts its own
// run, so a slow scan never delays the next one; overlapping runs are allowed.
type Scheduler struct {
	scanner  Scanner
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(s Scanner, interval time.Duration) *Scheduler {
	return &Scheduler{scanner: s, interval: interval}
}

// Start runs the scanner once immediately and then on every tick until Stop
// is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop cancels in-flight scans and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	name := s.scanner.Name()
	zap.L().Info("[Scheduler] started", zap.String("scanner", name), zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.spawn(ctx)
	for {
		select {
		case <-ticker.C:
			s.spawn(ctx)
		case <-ctx.Done():
			zap.L().Info("[Scheduler] stopped", zap.String("scanner", name))
			return
		}
	}
}

func (s *Scheduler) spawn(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.RunOnce(ctx)
	}()
}

// RunOnce performs a single scan synchronously.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	name := s.scanner.Name()
	start := time.Now()

	err := s.scanner.Scan(ctx)

	elapsed := time.Since(start)
	metrics.ScannerLatency.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		metrics.ScannerRuns.WithLabelValues(name, "error").Inc()
		zap.L().Error("[Scheduler] scan failed", zap.String("scanner", name), zap.Duration("duration", elapsed), zap.Error(err))
		return err
	}

	metrics.ScannerRuns.WithLabelValues(name, "ok").Inc()
	zap.L().Info("[Scheduler] scan finished", zap.String("scanner", name), zap.Duration("duration", elapsed))
	return nil
}
