// Package service provides the domain services for the viewer token
// lifecycle.
package service

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is the default period between expiry sweeps.
const DefaultSweepInterval = time.Hour

// Sweeper periodically reclaims expired token rows.
//
// It is safe to run concurrently with issuance and resolution: the
// delete path only touches rows that resolution already treats as
// dead. A late or skipped sweep delays storage reclamation and
// nothing else.
type Sweeper struct {
	issuer   *Issuer
	interval time.Duration
	logger   *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSweeper creates a new Sweeper driving the given Issuer.
func NewSweeper(issuer *Issuer, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		issuer:   issuer,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the sweep loop in a background goroutine.
func (s *Sweeper) Start() {
	go s.loop()
}

// loop runs until Stop is called.
func (s *Sweeper) loop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			s.RunOnce(ctx)
			cancel()

		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs a single sweep and reports the deleted count.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	count, err := s.issuer.Sweep(ctx, time.Now())
	if err != nil {
		s.logger.Error("expiry sweep failed", "error", err)
		return 0
	}
	if count > 0 {
		s.logger.Info("expired tokens swept", "count", count)
	}
	return count
}

// Stop terminates the sweep loop and waits for it to finish.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}
