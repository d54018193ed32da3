package metadata

import (
	"fmt"

	"github.com/go-co-op/gocron/v2"
)

// Start launches the liveness sweep: a background job that periodically
// evicts nodes whose last heartbeat is older than the heartbeat timeout.
// Between sweeps, stale nodes are already excluded from placement and
// failover by the read-time liveness check; the sweep garbage-collects
// their registry entries.
func (s *Service) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create sweep scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.heartbeatTimeout),
		gocron.NewTask(s.sweep),
		gocron.WithName("liveness-sweep"),
	)
	if err != nil {
		return fmt.Errorf("create liveness sweep job: %w", err)
	}
	sched.Start()
	s.mu.Lock()
	s.scheduler = sched
	s.mu.Unlock()
	s.logger.Info("liveness sweep started", "interval", s.heartbeatTimeout)
	return nil
}

// Stop shuts down the liveness sweep and the service's outbound
// connections.
func (s *Service) Stop() error {
	s.mu.Lock()
	sched := s.scheduler
	s.scheduler = nil
	s.mu.Unlock()
	if sched != nil {
		if err := sched.Shutdown(); err != nil {
			return fmt.Errorf("shutdown sweep scheduler: %w", err)
		}
	}
	return s.conns.Close()
}

// sweep evicts every node whose heartbeat has expired.
func (s *Service) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.heartbeatTimeout)
	for addr, n := range s.nodes {
		if n.LastSeen.Before(cutoff) {
			s.logger.Warn("evicting dead node", "address", addr, "last_seen", n.LastSeen)
			delete(s.nodes, addr)
		}
	}
}
