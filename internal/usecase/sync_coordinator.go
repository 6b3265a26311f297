package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"trip-planner-service/internal/domain/entity"
	"trip-planner-service/internal/domain/normalize"
	"trip-planner-service/internal/domain/repository"
	"trip-planner-service/pkg/logger"
	"trip-planner-service/pkg/metrics"
	"trip-planner-service/pkg/utils"

	"github.com/spf13/cast"
)

// Sync bookkeeping keys in the local key-value store
const (
	KeyTripCode       = "tripCode"
	KeyTripRemoteSeen = "tripRemoteSeen"
	KeyTripLocalPush  = "tripLocalPush"
	KeyClientID       = "clientId"
)

// DefaultConnectTimeout bounds every remote call
const DefaultConnectTimeout = 8 * time.Second

// SyncCoordinator pulls and pushes the whole planner document against a
// shared remote store. Conflicts are resolved by the user: a push over a
// newer remote write needs explicit confirmation.
type SyncCoordinator struct {
	store    *PlannerStore
	kv       repository.KeyValueRepository
	remote   repository.TripRepository
	logger   logger.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
	now      func() time.Time
	clientID string

	busy atomic.Bool
	mu   sync.Mutex
}

// SyncOption customises a SyncCoordinator
type SyncOption func(*SyncCoordinator)

// WithSyncClock overrides the clock used for remote timestamps
func WithSyncClock(now func() time.Time) SyncOption {
	return func(c *SyncCoordinator) {
		c.now = now
	}
}

// NewSyncCoordinator creates a coordinator. A nil remote disables sync: every
// operation then reports StatusSyncUnavailable. The client id is generated on
// first use and persisted in kv.
func NewSyncCoordinator(
	ctx context.Context,
	store *PlannerStore,
	kv repository.KeyValueRepository,
	remote repository.TripRepository,
	logger logger.Logger,
	m *metrics.Metrics,
	timeout time.Duration,
	opts ...SyncOption,
) (*SyncCoordinator, error) {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	c := &SyncCoordinator{
		store:   store,
		kv:      kv,
		remote:  remote,
		logger:  logger,
		metrics: m,
		timeout: timeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	clientID := c.loadString(ctx, KeyClientID)
	if clientID == "" {
		clientID = utils.NewClientID()
		if err := c.saveJSON(ctx, KeyClientID, clientID); err != nil {
			return nil, err
		}
		logger.Info("Generated sync client id", "clientId", clientID)
	}
	c.clientID = clientID
	return c, nil
}

// ClientID identifies this process as a remote writer
func (c *SyncCoordinator) ClientID() string {
	return c.clientID
}

// Available reports whether a remote store is configured
func (c *SyncCoordinator) Available() bool {
	return c.remote != nil
}

// Busy reports whether a pull or push is in flight
func (c *SyncCoordinator) Busy() bool {
	return c.busy.Load()
}

// TripCode returns the last trip code used successfully
func (c *SyncCoordinator) TripCode(ctx context.Context) string {
	return c.loadString(ctx, KeyTripCode)
}

// LastKnownRemote returns the remote updatedAt this client last saw for code
func (c *SyncCoordinator) LastKnownRemote(ctx context.Context, code string) int64 {
	return c.loadTimestamps(ctx, KeyTripRemoteSeen)[code]
}

// LastLocalPush returns when this client last pushed code
func (c *SyncCoordinator) LastLocalPush(ctx context.Context, code string) int64 {
	return c.loadTimestamps(ctx, KeyTripLocalPush)[code]
}

// Pull replaces the local document with the remote one for raw
func (c *SyncCoordinator) Pull(ctx context.Context, raw string) Status {
	start := time.Now()
	return c.finish("pull", start, c.pull(ctx, raw))
}

func (c *SyncCoordinator) pull(ctx context.Context, raw string) Status {
	code, status, ok := c.prepare(raw)
	if !ok {
		return status
	}
	if !c.busy.CompareAndSwap(false, true) {
		return busyStatus(code)
	}
	defer c.busy.Store(false)

	var data []byte
	err := c.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		data, err = c.remote.Read(ctx, TripPath(code))
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return Status{Kind: StatusNotFound, Message: fmt.Sprintf("No shared trip found for code %s", code), Code: code}
	}
	if err != nil {
		return c.failure(code, err)
	}

	v, err := normalize.Decode(data)
	if err != nil {
		return Status{Kind: StatusInvalidRemoteData, Message: "Remote trip is not valid JSON", Code: code}
	}
	report := &normalize.Report{}
	doc, err := normalize.Payload(v, c.store.Settings(), report)
	if err != nil {
		c.logger.Warn("Rejected remote trip", "code", code, "error", err, "details", report.Messages())
		return Status{Kind: StatusInvalidRemoteData, Message: fmt.Sprintf("Remote trip is invalid: %v", err), Code: code}
	}
	c.store.recordDrops("remote", report)
	meta := normalize.RemoteMeta(v)

	if _, err := c.store.ReplaceDocument(ctx, doc, OriginPull); err != nil {
		return Status{Kind: StatusTransportFailure, Message: fmt.Sprintf("Failed to save pulled trip: %v", err), Code: code}
	}
	c.remember(ctx, code, meta.UpdatedAt, 0)

	msg := fmt.Sprintf("Pulled %d destinations", len(doc.Destinations))
	if n := report.Count(); n > 0 {
		msg = fmt.Sprintf("%s (%d invalid records skipped)", msg, n)
	}
	return Status{Kind: StatusOK, Message: msg, Code: code, RemoteUpdatedAt: meta.UpdatedAt}
}

// Push writes the local document to the remote path of raw. When the remote
// was written after this client last saw it, confirm decides whether to
// overwrite; a nil confirm declines.
func (c *SyncCoordinator) Push(ctx context.Context, raw string, confirm func(Conflict) bool) Status {
	start := time.Now()
	return c.finish("push", start, c.push(ctx, raw, confirm))
}

func (c *SyncCoordinator) push(ctx context.Context, raw string, confirm func(Conflict) bool) Status {
	code, status, ok := c.prepare(raw)
	if !ok {
		return status
	}
	if !c.busy.CompareAndSwap(false, true) {
		return busyStatus(code)
	}
	defer c.busy.Store(false)

	path := TripPath(code)
	var meta entity.RemoteMeta
	exists := true
	err := c.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		meta, err = c.remote.ReadMeta(ctx, path)
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		exists = false
		err = nil
	}
	if err != nil {
		return c.failure(code, err)
	}

	lastKnown := c.LastKnownRemote(ctx, code)
	if exists && meta.UpdatedAt > lastKnown {
		conflict := Conflict{
			Code:            code,
			LastKnown:       lastKnown,
			RemoteUpdatedAt: meta.UpdatedAt,
			RemoteUpdatedBy: meta.UpdatedBy,
		}
		if confirm == nil || !confirm(conflict) {
			c.logger.Info("Push declined over newer remote", "code", code, "lastKnown", lastKnown, "remoteUpdatedAt", meta.UpdatedAt)
			return Status{
				Kind:            StatusStaleRemoteConflict,
				Message:         "The shared trip changed since your last sync. Confirm to overwrite it.",
				Code:            code,
				RemoteUpdatedAt: meta.UpdatedAt,
			}
		}
	}

	now := c.now().UnixMilli()
	if now <= meta.UpdatedAt {
		now = meta.UpdatedAt + 1
	}
	doc := c.store.Document()
	data, err := json.Marshal(entity.RemoteDocument{
		Destinations: doc.Destinations,
		Settings:     doc.Settings,
		Meta:         entity.RemoteMeta{UpdatedAt: now, UpdatedBy: c.clientID},
	})
	if err != nil {
		return Status{Kind: StatusTransportFailure, Message: fmt.Sprintf("Failed to encode trip: %v", err), Code: code}
	}

	err = c.withTimeout(ctx, func(ctx context.Context) error {
		return c.remote.Write(ctx, path, data)
	})
	if err != nil {
		return c.failure(code, err)
	}
	c.remember(ctx, code, now, now)

	return Status{
		Kind:            StatusOK,
		Message:         fmt.Sprintf("Pushed %d destinations", len(doc.Destinations)),
		Code:            code,
		RemoteUpdatedAt: now,
	}
}

// CheckRemote reads only the remote updatedAt of raw and compares it with the
// last known value
func (c *SyncCoordinator) CheckRemote(ctx context.Context, raw string) RemoteState {
	state := RemoteState{CheckedAt: c.now().UnixMilli()}
	code, status, ok := c.prepare(raw)
	state.Code = code
	if !ok {
		state.Status = status
		return state
	}

	var meta entity.RemoteMeta
	err := c.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		meta, err = c.remote.ReadMeta(ctx, TripPath(code))
		return err
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		state.Status = Status{Kind: StatusNotFound, Message: fmt.Sprintf("No shared trip found for code %s", code), Code: code}
		return state
	case err != nil:
		state.Status = c.failure(code, err)
		return state
	}

	state.Exists = true
	state.RemoteUpdatedAt = meta.UpdatedAt
	state.LastKnown = c.LastKnownRemote(ctx, code)
	state.Changed = meta.UpdatedAt > state.LastKnown
	state.Status = Status{Kind: StatusOK, Code: code, RemoteUpdatedAt: meta.UpdatedAt}
	if state.Changed {
		state.Status.Message = "The shared trip has changed"
	}
	return state
}

// prepare checks the preconditions shared by every sync operation
func (c *SyncCoordinator) prepare(raw string) (string, Status, bool) {
	if c.remote == nil {
		return "", Status{Kind: StatusSyncUnavailable, Message: "Sync is not configured"}, false
	}
	code, ok := NormalizeTripCode(raw, ManualMinTripCodeLength)
	if !ok {
		return code, Status{
			Kind:    StatusInvalidCode,
			Message: fmt.Sprintf("Trip code must have at least %d letters or digits", ManualMinTripCodeLength),
			Code:    code,
		}, false
	}
	return code, Status{}, true
}

func (c *SyncCoordinator) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return fn(ctx)
}

func (c *SyncCoordinator) failure(code string, err error) Status {
	return classifyRemoteError(code, err, c.timeout)
}

func classifyRemoteError(code string, err error, timeout time.Duration) Status {
	if errors.Is(err, context.DeadlineExceeded) {
		return Status{
			Kind:    StatusConnectTimeout,
			Message: fmt.Sprintf("Remote store did not answer within %s; check the sync configuration", timeout),
			Code:    code,
		}
	}
	return Status{Kind: StatusTransportFailure, Message: fmt.Sprintf("Remote store error: %v", err), Code: code}
}

func busyStatus(code string) Status {
	return Status{Kind: StatusBusy, Message: "Another sync operation is in progress", Code: code}
}

func (c *SyncCoordinator) finish(op string, start time.Time, status Status) Status {
	if c.metrics != nil {
		c.metrics.SyncOperations.WithLabelValues(op, string(status.Kind)).Inc()
		c.metrics.SyncDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
	switch status.Kind {
	case StatusOK, StatusNotFound:
		c.logger.Info("Sync finished", "operation", op, "status", status.Kind, "code", status.Code)
	case StatusConnectTimeout, StatusTransportFailure, StatusInvalidRemoteData:
		c.logger.Error("Sync failed", "operation", op, "status", status.Kind, "code", status.Code, "message", status.Message)
	default:
		c.logger.Warn("Sync not performed", "operation", op, "status", status.Kind, "code", status.Code)
	}
	return status
}

// remember records the sync bookkeeping for code. A zero pushed leaves the
// local push marker alone.
func (c *SyncCoordinator) remember(ctx context.Context, code string, seen, pushed int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	seenMap := c.loadTimestamps(ctx, KeyTripRemoteSeen)
	seenMap[code] = seen
	if err := c.saveJSON(ctx, KeyTripRemoteSeen, seenMap); err != nil {
		c.logger.Warn("Failed to save sync bookkeeping", "key", KeyTripRemoteSeen, "error", err)
	}
	if pushed > 0 {
		pushMap := c.loadTimestamps(ctx, KeyTripLocalPush)
		pushMap[code] = pushed
		if err := c.saveJSON(ctx, KeyTripLocalPush, pushMap); err != nil {
			c.logger.Warn("Failed to save sync bookkeeping", "key", KeyTripLocalPush, "error", err)
		}
	}
	if err := c.saveJSON(ctx, KeyTripCode, code); err != nil {
		c.logger.Warn("Failed to save sync bookkeeping", "key", KeyTripCode, "error", err)
	}
}

func (c *SyncCoordinator) loadString(ctx context.Context, key string) string {
	data, err := c.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			c.logger.Warn("Failed to read sync bookkeeping", "key", key, "error", err)
		}
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ""
	}
	return s
}

// loadTimestamps reads a code to unix-ms map, skipping unusable entries
func (c *SyncCoordinator) loadTimestamps(ctx context.Context, key string) map[string]int64 {
	out := make(map[string]int64)
	data, err := c.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			c.logger.Warn("Failed to read sync bookkeeping", "key", key, "error", err)
		}
		return out
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return out
	}
	for code, v := range raw {
		if ts, err := cast.ToInt64E(v); err == nil && ts >= 0 {
			out[code] = ts
		}
	}
	return out
}

func (c *SyncCoordinator) saveJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := c.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
