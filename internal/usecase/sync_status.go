package usecase

// StatusKind classifies the outcome of a sync operation
type StatusKind string

const (
	StatusOK                  StatusKind = "ok"
	StatusNotFound            StatusKind = "not_found"
	StatusInvalidCode         StatusKind = "invalid_code"
	StatusSyncUnavailable     StatusKind = "sync_unavailable"
	StatusInvalidRemoteData   StatusKind = "invalid_remote_data"
	StatusStaleRemoteConflict StatusKind = "stale_remote_conflict"
	StatusConnectTimeout      StatusKind = "connect_timeout"
	StatusTransportFailure    StatusKind = "transport_failure"
	StatusBusy                StatusKind = "busy"
)

// Status is the result of every sync operation
type Status struct {
	Kind            StatusKind `json:"kind"`
	Message         string     `json:"message"`
	Code            string     `json:"code,omitempty"`
	RemoteUpdatedAt int64      `json:"remoteUpdatedAt,omitempty"`
}

// OK reports whether the operation succeeded
func (s Status) OK() bool {
	return s.Kind == StatusOK
}

// Conflict describes a remote document that changed since this client last
// saw it
type Conflict struct {
	Code            string `json:"code"`
	LastKnown       int64  `json:"lastKnown"`
	RemoteUpdatedAt int64  `json:"remoteUpdatedAt"`
	RemoteUpdatedBy string `json:"remoteUpdatedBy"`
}

// RemoteState is the latest staleness observation for a trip code
type RemoteState struct {
	Code            string `json:"code"`
	Exists          bool   `json:"exists"`
	RemoteUpdatedAt int64  `json:"remoteUpdatedAt"`
	LastKnown       int64  `json:"lastKnown"`
	Changed         bool   `json:"changed"`
	CheckedAt       int64  `json:"checkedAt"`
	Status          Status `json:"status"`
}
