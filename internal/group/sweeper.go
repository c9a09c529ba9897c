package group

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// SweeperConfig controls the empty-group garbage collector.
type SweeperConfig struct {
	Interval time.Duration
	// MinAge keeps freshly created groups out of the sweep so a just-created
	// group is not collected before its owner row lands.
	MinAge time.Duration
}

func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval: 5 * time.Minute,
		MinAge:   time.Minute,
	}
}

// Sweeper periodically deletes zero-member ACTIVE groups left behind when
// the last member leaves. The store operations themselves never delete.
type Sweeper struct {
	service *Service
	clock   clockwork.Clock
	config  SweeperConfig

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewSweeper(service *Service, clock clockwork.Clock, cfg SweeperConfig) *Sweeper {
	return &Sweeper{
		service:  service,
		clock:    clock,
		config:   cfg,
		stopChan: make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("group sweeper already running")
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx)

	log.Info().
		Dur("interval", s.config.Interval).
		Dur("min_age", s.config.MinAge).
		Msg("group sweeper started")
	return nil
}

func (s *Sweeper) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("group sweeper not running")
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()

	log.Info().Msg("group sweeper stopped")
	return nil
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			s.sweep(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.service.sweepOnce(ctx, s.config.MinAge)
	if err != nil {
		log.Error().Err(err).Msg("group sweep failed")
		return
	}
	if n > 0 {
		log.Info().Int64("swept", n).Msg("swept empty groups")
	}
}
