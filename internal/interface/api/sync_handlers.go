package api

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/spf13/cast"

	"trip-planner-service/internal/usecase"
	"trip-planner-service/pkg/utils"
)

// statusCode maps a sync outcome to an HTTP status
func statusCode(kind usecase.StatusKind) int {
	switch kind {
	case usecase.StatusOK:
		return http.StatusOK
	case usecase.StatusNotFound:
		return http.StatusNotFound
	case usecase.StatusInvalidCode:
		return http.StatusBadRequest
	case usecase.StatusSyncUnavailable:
		return http.StatusServiceUnavailable
	case usecase.StatusInvalidRemoteData:
		return http.StatusUnprocessableEntity
	case usecase.StatusStaleRemoteConflict, usecase.StatusBusy:
		return http.StatusConflict
	case usecase.StatusConnectTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

var unavailable = usecase.Status{Kind: usecase.StatusSyncUnavailable, Message: "Sync is not configured"}

// syncInfo describes this client's sync bookkeeping
type syncInfo struct {
	ClientID        string              `json:"clientId"`
	Available       bool                `json:"available"`
	Busy            bool                `json:"busy"`
	TripCode        string              `json:"tripCode"`
	LastKnownRemote int64               `json:"lastKnownRemote"`
	LastLocalPush   int64               `json:"lastLocalPush"`
	Remote          usecase.RemoteState `json:"remote"`
}

// GET /api/sync
func (h *Handler) SyncInfo(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h.coordinator == nil {
		utils.RespondWithJSON(w, http.StatusOK, syncInfo{})
		return
	}
	ctx := r.Context()
	code := h.coordinator.TripCode(ctx)
	info := syncInfo{
		ClientID:  h.coordinator.ClientID(),
		Available: h.coordinator.Available(),
		Busy:      h.coordinator.Busy(),
		TripCode:  code,
	}
	if code != "" {
		info.LastKnownRemote = h.coordinator.LastKnownRemote(ctx, code)
		info.LastLocalPush = h.coordinator.LastLocalPush(ctx, code)
	}
	if h.monitor != nil {
		info.Remote = h.monitor.State()
	}
	utils.RespondWithJSON(w, http.StatusOK, info)
}

// tripCode returns the code of the request body, falling back to the last
// code used
func (h *Handler) tripCode(w http.ResponseWriter, r *http.Request) (string, map[string]any, error) {
	obj, err := readObject(w, r)
	if err != nil {
		return "", nil, err
	}
	code, err := stringField(obj, "code")
	if err != nil {
		return "", nil, err
	}
	if code == "" {
		code = h.coordinator.TripCode(r.Context())
	}
	return code, obj, nil
}

// POST /api/sync/pull
func (h *Handler) Pull(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h.coordinator == nil {
		utils.RespondWithJSON(w, statusCode(unavailable.Kind), unavailable)
		return
	}
	code, _, err := h.tripCode(w, r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	status := h.coordinator.Pull(r.Context(), code)
	if status.OK() && h.monitor != nil {
		h.monitor.Nudge()
	}
	utils.RespondWithJSON(w, statusCode(status.Kind), status)
}

// pushResponse carries the conflict the caller has to confirm, if any
type pushResponse struct {
	usecase.Status
	Conflict *usecase.Conflict `json:"conflict,omitempty"`
}

// POST /api/sync/push
func (h *Handler) Push(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h.coordinator == nil {
		utils.RespondWithJSON(w, statusCode(unavailable.Kind), unavailable)
		return
	}
	code, obj, err := h.tripCode(w, r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	// A confirmation only covers the remote version the caller was shown
	confirmAt, confirmed, err := confirmedVersion(obj)
	if err != nil {
		h.respondError(w, err)
		return
	}

	var conflict *usecase.Conflict
	status := h.coordinator.Push(r.Context(), code, func(c usecase.Conflict) bool {
		conflict = &c
		return confirmed && c.RemoteUpdatedAt == confirmAt
	})
	resp := pushResponse{Status: status}
	if status.Kind == usecase.StatusStaleRemoteConflict {
		resp.Conflict = conflict
	}
	utils.RespondWithJSON(w, statusCode(status.Kind), resp)
}

// confirmedVersion reads confirmRemoteUpdatedAt from a push body
func confirmedVersion(obj map[string]any) (int64, bool, error) {
	v, ok := obj["confirmRemoteUpdatedAt"]
	if !ok || v == nil {
		return 0, false, nil
	}
	at, err := cast.ToInt64E(v)
	if err != nil || at <= 0 {
		return 0, false, fmt.Errorf("%w: confirmRemoteUpdatedAt must be a positive timestamp", usecase.ErrInvalidInput)
	}
	return at, true, nil
}

// GET /api/sync/status
func (h *Handler) SyncStatus(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	if h.monitor == nil {
		utils.RespondWithJSON(w, http.StatusOK, usecase.RemoteState{Status: unavailable})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, h.monitor.State())
}

// POST /api/sync/nudge
func (h *Handler) Nudge(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	if h.monitor == nil {
		utils.RespondWithJSON(w, statusCode(unavailable.Kind), unavailable)
		return
	}
	if !h.monitor.Nudge() {
		utils.RespondWithError(w, http.StatusTooManyRequests, "Checked recently, try again shortly")
		return
	}
	utils.RespondWithJSON(w, http.StatusAccepted, utils.M{"queued": true})
}

// liveInfo describes the current live session
type liveInfo struct {
	Code       string         `json:"code"`
	LastStatus usecase.Status `json:"lastStatus"`
}

// GET /api/live
func (h *Handler) LiveInfo(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	if h.live == nil {
		utils.RespondWithJSON(w, http.StatusOK, liveInfo{LastStatus: unavailable})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, liveInfo{Code: h.live.Code(), LastStatus: h.live.LastStatus()})
}

// POST /api/live/join
func (h *Handler) JoinLive(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h.live == nil {
		utils.RespondWithJSON(w, statusCode(unavailable.Kind), unavailable)
		return
	}
	obj, err := readObject(w, r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	code, err := stringField(obj, "code")
	if err != nil {
		h.respondError(w, err)
		return
	}
	if code == "" {
		code = h.live.GenerateCode()
	}
	status := h.live.Join(r.Context(), code)
	utils.RespondWithJSON(w, statusCode(status.Kind), status)
}

// POST /api/live/leave
func (h *Handler) LeaveLive(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	if h.live != nil {
		h.live.Leave()
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/live/code
func (h *Handler) GenerateLiveCode(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	if h.live == nil {
		utils.RespondWithJSON(w, statusCode(unavailable.Kind), unavailable)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"code": h.live.GenerateCode()})
}
