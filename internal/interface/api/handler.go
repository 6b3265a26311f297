// Package api exposes the planner over HTTP.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/spf13/cast"

	"trip-planner-service/internal/domain/normalize"
	"trip-planner-service/internal/infrastructure/router"
	"trip-planner-service/internal/usecase"
	"trip-planner-service/pkg/logger"
	"trip-planner-service/pkg/utils"
)

// maxBodyBytes caps request bodies, imports included
const maxBodyBytes = 4 << 20

// Handler serves the planner document and the sync operations
type Handler struct {
	store       *usecase.PlannerStore
	coordinator *usecase.SyncCoordinator
	monitor     *usecase.StalenessMonitor
	live        *usecase.LiveSync
	logger      logger.Logger
}

// NewHandler creates a handler. The sync components may be nil when the
// process runs without them; their routes then answer 503.
func NewHandler(
	store *usecase.PlannerStore,
	coordinator *usecase.SyncCoordinator,
	monitor *usecase.StalenessMonitor,
	live *usecase.LiveSync,
	logger logger.Logger,
) *Handler {
	return &Handler{
		store:       store,
		coordinator: coordinator,
		monitor:     monitor,
		live:        live,
		logger:      logger,
	}
}

// Register adds every planner route to r
func (h *Handler) Register(r *httprouter.Router, limiter *router.RateLimiter) {
	r.GET("/api/document", h.GetDocument)
	r.PUT("/api/document", h.ImportDocument)
	r.GET("/api/export", h.ExportDocument)
	r.GET("/api/settings", h.GetSettings)
	r.PUT("/api/settings", h.UpdateSettings)

	r.GET("/api/destinations", h.ListDestinations)
	r.POST("/api/destinations", h.AddDestination)
	r.GET("/api/destinations/:id", h.GetDestination)
	r.PATCH("/api/destinations/:id", h.UpdateDestination)
	r.DELETE("/api/destinations/:id", h.RemoveDestination)
	r.GET("/api/destinations/:id/budget", h.GetBudget)

	r.PUT("/api/destinations/:id/flights", h.ReplaceFlights)
	r.POST("/api/destinations/:id/flights", h.AddFlight)
	r.PUT("/api/destinations/:id/flights/:itemId", h.UpdateFlight)
	r.DELETE("/api/destinations/:id/flights/:itemId", h.RemoveFlight)
	r.POST("/api/destinations/:id/flights/:itemId/duplicate", h.DuplicateFlight)

	r.PUT("/api/destinations/:id/accommodations", h.ReplaceAccommodations)
	r.POST("/api/destinations/:id/accommodations", h.AddAccommodation)
	r.PUT("/api/destinations/:id/accommodations/:itemId", h.UpdateAccommodation)
	r.DELETE("/api/destinations/:id/accommodations/:itemId", h.RemoveAccommodation)
	r.POST("/api/destinations/:id/accommodations/:itemId/duplicate", h.DuplicateAccommodation)

	r.PUT("/api/destinations/:id/extra-costs", h.SetExtraCosts)
	r.PUT("/api/destinations/:id/assignments/:itemId", h.SetAssignment)
	r.PUT("/api/destinations/:id/selection", h.SelectAccommodation)
	r.PUT("/api/destinations/:id/drafts/flight", h.SetFlightDraft)
	r.PUT("/api/destinations/:id/drafts/accommodation", h.SetAccommodationDraft)

	r.POST("/api/destinations/:id/attempt", h.SaveAttempt)
	r.PUT("/api/destinations/:id/attempt", h.OverrideAttempt)
	r.DELETE("/api/destinations/:id/attempt", h.ClearAttempt)
	r.POST("/api/destinations/:id/attempt/apply", h.ApplyAttempt)

	r.GET("/api/sync", h.SyncInfo)
	r.POST("/api/sync/pull", limiter.Limit(h.Pull))
	r.POST("/api/sync/push", limiter.Limit(h.Push))
	r.GET("/api/sync/status", h.SyncStatus)
	r.POST("/api/sync/nudge", h.Nudge)

	r.GET("/api/live", h.LiveInfo)
	r.POST("/api/live/join", limiter.Limit(h.JoinLive))
	r.POST("/api/live/leave", h.LeaveLive)
	r.POST("/api/live/code", h.GenerateLiveCode)
}

// respondError maps usecase errors to HTTP status codes
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrDestinationNotFound),
		errors.Is(err, usecase.ErrFlightNotFound),
		errors.Is(err, usecase.ErrAccommodationNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, usecase.ErrNoAttempt):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, usecase.ErrInvalidInput), errors.Is(err, normalize.ErrInvalidPayload):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("Request failed", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// readBody reads the raw request body
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %v", usecase.ErrInvalidInput, err)
	}
	return data, nil
}

// readValue decodes the request body as arbitrary JSON
func readValue(w http.ResponseWriter, r *http.Request) (any, error) {
	data, err := readBody(w, r)
	if err != nil {
		return nil, err
	}
	v, err := normalize.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}
	return v, nil
}

// readObject decodes the request body as a JSON object. An empty body is an
// empty object.
func readObject(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	data, err := readBody(w, r)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return map[string]any{}, nil
	}
	v, err := normalize.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: body must be a JSON object", usecase.ErrInvalidInput)
	}
	return obj, nil
}

func stringField(obj map[string]any, key string) (string, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", usecase.ErrInvalidInput, key)
	}
	return s, nil
}

func floatField(obj map[string]any, key string) (float64, bool, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s must be a number", usecase.ErrInvalidInput, key)
	}
	return f, true, nil
}
