package repository

import (
	"context"
	"errors"

	"trip-planner-service/internal/domain/entity"
)

// ErrNotFound is returned when a key or remote document does not exist
var ErrNotFound = errors.New("not found")

// KeyValueRepository persists JSON values under string keys on this machine
type KeyValueRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// TripRepository reads and replaces shared trip documents by path
type TripRepository interface {
	Read(ctx context.Context, path string) ([]byte, error)
	// ReadMeta reads only the document's meta block
	ReadMeta(ctx context.Context, path string) (entity.RemoteMeta, error)
	Write(ctx context.Context, path string, doc []byte) error
}

// TripSubscriber delivers the full document every time a path is written.
// The returned function ends the subscription.
type TripSubscriber interface {
	Subscribe(ctx context.Context, path string, onChange func(doc []byte)) (func(), error)
}

// LiveTripRepository is a trip store that also provides a change feed
type LiveTripRepository interface {
	TripRepository
	TripSubscriber
}
