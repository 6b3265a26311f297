package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-planner-service/internal/domain/entity"
	repo "trip-planner-service/internal/interface/repository"
	"trip-planner-service/pkg/logger"
	"trip-planner-service/pkg/metrics"
)

func TestStalenessMonitorCheck(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t, repo.NewMemoryRemoteRepository())
	m := NewStalenessMonitor(f.sync, logger.NewNopLogger(), metrics.NewNopMetrics(), time.Minute, 6)

	// nothing synced yet
	assert.Equal(t, RemoteState{}, m.Check(ctx))

	require.Equal(t, StatusOK, f.sync.Push(ctx, "WATCH", nil).Kind)
	state := m.Check(ctx)
	assert.Equal(t, "WATCH", state.Code)
	assert.True(t, state.Exists)
	assert.False(t, state.Changed)

	writeRemote(t, f.remote, "WATCH", entity.RemoteDocument{
		Destinations: []entity.Destination{},
		Settings:     entity.DefaultSettings(),
		Meta:         entity.RemoteMeta{UpdatedAt: fixedNow.UnixMilli() + 10, UpdatedBy: "peer"},
	})
	state = m.Check(ctx)
	assert.True(t, state.Changed)
	assert.Equal(t, state, m.State())

	// pulling catches up
	require.Equal(t, StatusOK, f.sync.Pull(ctx, "WATCH").Kind)
	assert.False(t, m.Check(ctx).Changed)
}

// flakyRemote fails meta reads on demand
type flakyRemote struct {
	*repo.MemoryRemoteRepository
	failMeta bool
}

func (f *flakyRemote) ReadMeta(ctx context.Context, path string) (entity.RemoteMeta, error) {
	if f.failMeta {
		return entity.RemoteMeta{}, errConnectionReset
	}
	return f.MemoryRemoteRepository.ReadMeta(ctx, path)
}

func TestStalenessMonitorKeepsLastGoodStateOnFailure(t *testing.T) {
	ctx := context.Background()
	remote := &flakyRemote{MemoryRemoteRepository: repo.NewMemoryRemoteRepository()}
	kv := repo.NewMemoryKeyValueRepository()
	c, err := NewSyncCoordinator(ctx, newTestStore(t, kv), kv, remote, logger.NewNopLogger(), nil, time.Second, WithSyncClock(fixedClock))
	require.NoError(t, err)
	m := NewStalenessMonitor(c, logger.NewNopLogger(), nil, time.Minute, 6)

	require.Equal(t, StatusOK, c.Push(ctx, "WATCH", nil).Kind)
	good := m.Check(ctx)
	require.True(t, good.Exists)

	remote.failMeta = true
	state := m.Check(ctx)

	assert.True(t, state.Exists)
	assert.Equal(t, good.RemoteUpdatedAt, state.RemoteUpdatedAt)
	assert.Equal(t, StatusTransportFailure, state.Status.Kind)
}

func TestStalenessMonitorNudgeIsThrottled(t *testing.T) {
	f := newSyncFixture(t, repo.NewMemoryRemoteRepository())
	m := NewStalenessMonitor(f.sync, logger.NewNopLogger(), nil, time.Minute, 1)

	assert.True(t, m.Nudge())
	assert.False(t, m.Nudge())
}

func TestStalenessMonitorRunStops(t *testing.T) {
	f := newSyncFixture(t, repo.NewMemoryRemoteRepository())
	m := NewStalenessMonitor(f.sync, logger.NewNopLogger(), nil, 10*time.Millisecond, 60)

	done := make(chan struct{})
	go func() {
		m.Run(context.Background())
		close(done)
	}()
	m.Nudge()
	m.Stop()
	m.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestStalenessMonitorRunEndsWithContext(t *testing.T) {
	f := newSyncFixture(t, repo.NewMemoryRemoteRepository())
	m := NewStalenessMonitor(f.sync, logger.NewNopLogger(), nil, 10*time.Millisecond, 60)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
}
