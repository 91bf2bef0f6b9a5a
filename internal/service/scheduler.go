package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/AdarBahar/MyTrip-sub003/internal/repository"
)

// Scheduler drives the session engine in the background: every interval it
// processes each known device up to now. Devices are processed by
// independent goroutines; the engine's per-device lock guarantees a single
// device is never processed twice concurrently. Batch failures are logged
// and retried on the next tick from the unmoved checkpoint.
type Scheduler struct {
	pings    *repository.PingRepository
	dedup    *repository.DedupStore
	sessions *SessionService
	interval time.Duration
	timeout  time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a background processing scheduler
func NewScheduler(pings *repository.PingRepository, dedup *repository.DedupStore, sessions *SessionService, interval, timeout time.Duration) *Scheduler {
	return &Scheduler{
		pings:    pings,
		dedup:    dedup,
		sessions: sessions,
		interval: interval,
		timeout:  timeout,
		done:     make(chan struct{}),
	}
}

// Start launches the processing loop
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.run(ctx)
	log.Printf("[scheduler] started, interval=%s", s.interval)
}

// Stop terminates the loop and waits for the current sweep to finish
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep processes every known device once and purges expired dedup keys
func (s *Scheduler) sweep(ctx context.Context) {
	devices, err := s.pings.DeviceIDs()
	if err != nil {
		log.Printf("[scheduler] listing devices failed: %v", err)
		return
	}

	var wg sync.WaitGroup
	for _, deviceID := range devices {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()

			batchCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			res, err := s.sessions.Process(batchCtx, id, nil, nil)
			if err != nil {
				log.Printf("[scheduler] device %s batch failed, will retry: %v", id, err)
				return
			}
			if res.SessionsCreated > 0 {
				log.Printf("[scheduler] device %s: %d new sessions", id, res.SessionsCreated)
			}
		}(deviceID)
	}
	wg.Wait()

	if purged, err := s.dedup.Purge(); err != nil {
		log.Printf("[scheduler] dedup purge failed: %v", err)
	} else if purged > 0 {
		log.Printf("[scheduler] purged %d expired dedup keys", purged)
	}
}
