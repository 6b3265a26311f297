package usecase

import (
	"context"
	"sync"
	"time"

	"trip-planner-service/pkg/logger"
	"trip-planner-service/pkg/metrics"

	"golang.org/x/time/rate"
)

// StalenessMonitor periodically checks whether the shared trip changed since
// this client last synced it. It never pulls; it only keeps the latest
// observation for display.
type StalenessMonitor struct {
	coordinator *SyncCoordinator
	logger      logger.Logger
	metrics     *metrics.Metrics
	interval    time.Duration
	limiter     *rate.Limiter

	mu       sync.RWMutex
	state    RemoteState
	nudges   chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

// NewStalenessMonitor creates a monitor checking every interval. Nudges are
// limited to nudgesPerMinute; extra nudges are dropped.
func NewStalenessMonitor(coordinator *SyncCoordinator, logger logger.Logger, m *metrics.Metrics, interval time.Duration, nudgesPerMinute int) *StalenessMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if nudgesPerMinute <= 0 {
		nudgesPerMinute = 1
	}
	return &StalenessMonitor{
		coordinator: coordinator,
		logger:      logger,
		metrics:     m,
		interval:    interval,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(nudgesPerMinute)), 1),
		nudges:      make(chan struct{}, 1),
		stop:        make(chan struct{}),
	}
}

// Run checks the current trip code on every tick and nudge until ctx is done
// or Stop is called
func (m *StalenessMonitor) Run(ctx context.Context) {
	if !m.coordinator.Available() {
		m.logger.Info("Staleness monitor disabled, sync is not configured")
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("Staleness monitor started", "interval", m.interval)
	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Staleness monitor stopped")
			return
		case <-m.stop:
			m.logger.Info("Staleness monitor stopped")
			return
		case <-ticker.C:
			m.Check(ctx)
		case <-m.nudges:
			m.Check(ctx)
		}
	}
}

// Nudge asks for an immediate check, for example when the user returns to the
// planner. It reports false when the nudge was throttled.
func (m *StalenessMonitor) Nudge() bool {
	if !m.limiter.Allow() {
		return false
	}
	select {
	case m.nudges <- struct{}{}:
	default:
	}
	return true
}

// Stop ends Run
func (m *StalenessMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

// State returns the latest observation
func (m *StalenessMonitor) State() RemoteState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Check compares the remote updatedAt of the current trip code with the last
// known value. Observations of a previous code are discarded when the code
// changes.
func (m *StalenessMonitor) Check(ctx context.Context) RemoteState {
	code := m.coordinator.TripCode(ctx)
	if code == "" {
		m.setState(RemoteState{})
		return RemoteState{}
	}

	state := m.coordinator.CheckRemote(ctx, code)
	switch state.Status.Kind {
	case StatusOK, StatusNotFound:
		if state.Changed {
			m.logger.Info("Shared trip changed remotely", "code", code, "remoteUpdatedAt", state.RemoteUpdatedAt, "lastKnown", state.LastKnown)
		}
	default:
		m.logger.Warn("Staleness check failed", "code", code, "status", state.Status.Kind, "message", state.Status.Message)
		// keep the last good observation of the same code
		if prev := m.State(); prev.Code == state.Code && prev.Exists {
			prev.Status = state.Status
			prev.CheckedAt = state.CheckedAt
			state = prev
		}
	}
	m.setState(state)
	return state
}

func (m *StalenessMonitor) setState(state RemoteState) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()

	if m.metrics != nil {
		if state.Changed {
			m.metrics.RemoteChanged.Set(1)
		} else {
			m.metrics.RemoteChanged.Set(0)
		}
	}
}
