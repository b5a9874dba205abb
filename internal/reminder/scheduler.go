package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sender delivers a reminder payload.
type Sender interface {
	Send(ctx context.Context, payload Payload) error
}

// Scheduler holds the pending reminder and sends it once a day at its hour.
type Scheduler struct {
	mu       sync.RWMutex
	sender   Sender
	pending  *Request
	lastSent string // local date of the last delivery
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a reminder scheduler.
func NewScheduler(sender Sender, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		sender:   sender,
		interval: 30 * time.Second,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *Scheduler) Schedule(req Request) {
	s.mu.Lock()
	s.pending = &req
	s.mu.Unlock()
	s.logger.Debug("reminder scheduled", "overdue", req.OverdueCount, "hour", req.Hour)
}

func (s *Scheduler) Clear() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

// Pending returns the scheduled reminder, if any.
func (s *Scheduler) Pending() (Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pending == nil {
		return Request{}, false
	}
	return *s.pending, true
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// tick sends the pending reminder when the local hour matches and it has not
// gone out today. A failed send is retried on the next tick.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	day := now.Format("2006-01-02")

	s.mu.RLock()
	pending, lastSent := s.pending, s.lastSent
	s.mu.RUnlock()

	if pending == nil || pending.OverdueCount <= 0 {
		return
	}
	if now.Hour() != pending.Hour || lastSent == day {
		return
	}

	if err := s.sender.Send(ctx, PayloadFor(*pending)); err != nil {
		s.logger.Error("send reminder", "error", err)
		return
	}

	s.mu.Lock()
	s.lastSent = day
	s.mu.Unlock()
	s.logger.Info("reminder sent", "overdue", pending.OverdueCount)
}
