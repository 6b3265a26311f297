package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"trip-planner-service/internal/domain/entity"
	"trip-planner-service/internal/domain/normalize"
	"trip-planner-service/internal/domain/repository"
	"trip-planner-service/pkg/logger"
	"trip-planner-service/pkg/metrics"
	"trip-planner-service/pkg/utils"
)

// LiveSync mirrors the planner document to a shared trip as it changes.
// Every local change is pushed without confirmation (last write wins) and
// every peer write is applied locally. Writes carrying this client's id are
// echoes of our own pushes and are ignored.
type LiveSync struct {
	store    *PlannerStore
	remote   repository.LiveTripRepository
	clientID string
	logger   logger.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration
	now      func() time.Time

	mu               sync.Mutex
	code             string
	unsubscribe      func()
	unsubscribeStore func()
	lastStatus       Status
}

// NewLiveSync creates a live sync session manager. A nil remote makes Join
// report StatusSyncUnavailable.
func NewLiveSync(store *PlannerStore, remote repository.LiveTripRepository, clientID string, logger logger.Logger, m *metrics.Metrics, timeout time.Duration) *LiveSync {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	return &LiveSync{
		store:    store,
		remote:   remote,
		clientID: clientID,
		logger:   logger,
		metrics:  m,
		timeout:  timeout,
		now:      time.Now,
	}
}

// GenerateCode returns a fresh code suitable for a new shared trip
func (l *LiveSync) GenerateCode() string {
	return utils.GenerateTripCode()
}

// Code returns the trip code of the current session, or ""
func (l *LiveSync) Code() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.code
}

// LastStatus returns the outcome of the most recent live operation
func (l *LiveSync) LastStatus() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastStatus
}

// Join subscribes to the shared trip of raw. An existing remote document
// replaces the local one; otherwise the local document seeds the trip. A
// failed join keeps the current session.
func (l *LiveSync) Join(ctx context.Context, raw string) Status {
	status := l.join(ctx, raw)
	if l.metrics != nil {
		l.metrics.SyncOperations.WithLabelValues("live_join", string(status.Kind)).Inc()
	}
	l.setStatus(status)
	return status
}

func (l *LiveSync) join(ctx context.Context, raw string) Status {
	if l.remote == nil {
		return Status{Kind: StatusSyncUnavailable, Message: "Sync is not configured"}
	}
	code, ok := NormalizeTripCode(raw, LiveMinTripCodeLength)
	if !ok {
		return Status{
			Kind:    StatusInvalidCode,
			Message: fmt.Sprintf("Live trip codes need at least %d letters or digits", LiveMinTripCodeLength),
			Code:    code,
		}
	}

	path := TripPath(code)
	jctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	unsubscribe, err := l.remote.Subscribe(jctx, path, func(doc []byte) {
		l.onRemote(code, doc)
	})
	if err != nil {
		return classifyRemoteError(code, err, l.timeout)
	}

	data, err := l.remote.Read(jctx, path)
	switch {
	case err == nil:
		if status, applied := l.apply(ctx, code, data); !applied {
			unsubscribe()
			return status
		}
	case isNotFound(err):
		if err := l.push(jctx, code, l.store.Document()); err != nil {
			unsubscribe()
			return classifyRemoteError(code, err, l.timeout)
		}
	default:
		unsubscribe()
		return classifyRemoteError(code, err, l.timeout)
	}

	unsubscribeStore := l.store.Subscribe(func(change Change) {
		l.onLocal(code, change)
	})

	// the previous session ends only once the new one is established
	l.mu.Lock()
	prevCode := l.code
	prevUnsubscribe, prevUnsubscribeStore := l.unsubscribe, l.unsubscribeStore
	l.code = code
	l.unsubscribe = unsubscribe
	l.unsubscribeStore = unsubscribeStore
	l.mu.Unlock()

	if prevUnsubscribeStore != nil {
		prevUnsubscribeStore()
	}
	if prevUnsubscribe != nil {
		prevUnsubscribe()
	}
	if prevCode != "" {
		l.logger.Info("Left live trip", "code", prevCode)
	}

	l.logger.Info("Joined live trip", "code", code)
	return Status{Kind: StatusOK, Message: fmt.Sprintf("Live sync on for %s", code), Code: code}
}

// Leave ends the current session, if any
func (l *LiveSync) Leave() {
	l.mu.Lock()
	code := l.code
	unsubscribe, unsubscribeStore := l.unsubscribe, l.unsubscribeStore
	l.code = ""
	l.unsubscribe, l.unsubscribeStore = nil, nil
	l.mu.Unlock()

	if unsubscribeStore != nil {
		unsubscribeStore()
	}
	if unsubscribe != nil {
		unsubscribe()
	}
	if code != "" {
		l.logger.Info("Left live trip", "code", code)
	}
}

// onRemote handles a document delivered by the change feed
func (l *LiveSync) onRemote(code string, data []byte) {
	v, err := normalize.Decode(data)
	if err != nil {
		l.logger.Warn("Ignored undecodable live update", "code", code, "error", err)
		return
	}
	if meta := normalize.RemoteMeta(v); meta.UpdatedBy == l.clientID {
		return
	}
	if status, applied := l.apply(context.Background(), code, data); !applied {
		l.setStatus(status)
	}
}

// apply normalizes a remote document and installs it locally
func (l *LiveSync) apply(ctx context.Context, code string, data []byte) (Status, bool) {
	v, err := normalize.Decode(data)
	if err != nil {
		return Status{Kind: StatusInvalidRemoteData, Message: "Remote trip is not valid JSON", Code: code}, false
	}
	report := &normalize.Report{}
	doc, err := normalize.Payload(v, l.store.Settings(), report)
	if err != nil {
		l.logger.Warn("Rejected live update", "code", code, "error", err)
		return Status{Kind: StatusInvalidRemoteData, Message: fmt.Sprintf("Remote trip is invalid: %v", err), Code: code}, false
	}
	l.store.recordDrops("remote", report)
	if _, err := l.store.ReplaceDocument(ctx, doc, OriginRemote); err != nil {
		return Status{Kind: StatusTransportFailure, Message: fmt.Sprintf("Failed to save live update: %v", err), Code: code}, false
	}
	l.logger.Debug("Applied live update", "code", code, "destinations", len(doc.Destinations))
	return Status{Kind: StatusOK, Code: code}, true
}

// onLocal pushes committed local changes. Changes that came from the change
// feed are not sent back.
func (l *LiveSync) onLocal(code string, change Change) {
	if change.Origin == OriginRemote {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	if err := l.push(ctx, code, change.Document); err != nil {
		l.logger.Error("Failed to push live change", "code", code, "operation", change.Operation, "error", err)
		l.setStatus(classifyRemoteError(code, err, l.timeout))
	}
}

func (l *LiveSync) push(ctx context.Context, code string, doc entity.RootDocument) error {
	data, err := json.Marshal(entity.RemoteDocument{
		Destinations: doc.Destinations,
		Settings:     doc.Settings,
		Meta:         entity.RemoteMeta{UpdatedAt: l.now().UnixMilli(), UpdatedBy: l.clientID},
	})
	if err != nil {
		return fmt.Errorf("failed to encode trip: %w", err)
	}
	if l.metrics != nil {
		l.metrics.SyncOperations.WithLabelValues("live_push", "attempt").Inc()
	}
	return l.remote.Write(ctx, TripPath(code), data)
}

func (l *LiveSync) setStatus(status Status) {
	l.mu.Lock()
	l.lastStatus = status
	l.mu.Unlock()
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
