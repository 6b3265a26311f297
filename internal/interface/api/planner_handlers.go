package api

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"trip-planner-service/internal/domain/budget"
	"trip-planner-service/internal/domain/entity"
	"trip-planner-service/internal/domain/normalize"
	"trip-planner-service/internal/usecase"
	"trip-planner-service/pkg/utils"
)

// GET /api/document
func (h *Handler) GetDocument(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusOK, h.store.Document())
}

// PUT /api/document
func (h *Handler) ImportDocument(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	data, err := readBody(w, r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	doc, report, err := h.store.Import(r.Context(), data)
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"document": doc,
		"dropped":  report.Messages(),
	})
}

// GET /api/export
func (h *Handler) ExportDocument(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	data, err := h.store.Export()
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="trip-planner.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GET /api/settings
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusOK, h.store.Settings())
}

// PUT /api/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	obj, err := readObject(w, r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	settings := h.store.Settings()
	budgetValue, ok, err := floatField(obj, "totalBudget")
	if err != nil {
		h.respondError(w, err)
		return
	}
	if ok {
		settings.TotalBudget = budgetValue
	}
	people, ok, err := floatField(obj, "peopleCount")
	if err != nil {
		h.respondError(w, err)
		return
	}
	if ok {
		if people != math.Floor(people) {
			h.respondError(w, fmt.Errorf("%w: peopleCount must be a whole number", usecase.ErrInvalidInput))
			return
		}
		settings.PeopleCount = int(people)
	}

	updated, err := h.store.UpdateSettings(r.Context(), settings)
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, updated)
}

// GET /api/destinations
func (h *Handler) ListDestinations(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusOK, h.store.Document().Destinations)
}

// POST /api/destinations
func (h *Handler) AddDestination(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	obj, err := readObject(w, r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	name, err := stringField(obj, "name")
	if err != nil {
		h.respondError(w, err)
		return
	}
	lat, latOK, err := floatField(obj, "latitude")
	if err != nil {
		h.respondError(w, err)
		return
	}
	lon, lonOK, err := floatField(obj, "longitude")
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !latOK || !lonOK {
		h.respondError(w, fmt.Errorf("%w: latitude and longitude are required", usecase.ErrInvalidInput))
		return
	}

	dest, err := h.store.AddDestination(r.Context(), name, lat, lon)
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dest)
}

// GET /api/destinations/:id
func (h *Handler) GetDestination(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	dest, ok := h.store.Destination(ps.ByName("id"))
	if !ok {
		h.respondError(w, usecase.ErrDestinationNotFound)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dest)
}

// PATCH /api/destinations/:id
func (h *Handler) UpdateDestination(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	obj, err := readObject(w, r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	var patch usecase.DestinationPatch
	for _, key := range []string{"name", "notes"} {
		if _, present := obj[key]; !present {
			continue
		}
		s, err := stringField(obj, key)
		if err != nil {
			h.respondError(w, err)
			return
		}
		if key == "name" {
			patch.Name = &s
		} else {
			patch.Notes = &s
		}
	}
	if lat, ok, err := floatField(obj, "latitude"); err != nil {
		h.respondError(w, err)
		return
	} else if ok {
		patch.Latitude = &lat
	}
	if lon, ok, err := floatField(obj, "longitude"); err != nil {
		h.respondError(w, err)
		return
	} else if ok {
		patch.Longitude = &lon
	}

	dest, err := h.store.UpdateDestination(r.Context(), ps.ByName("id"), patch)
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dest)
}

// DELETE /api/destinations/:id
func (h *Handler) RemoveDestination(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.store.RemoveDestination(r.Context(), ps.ByName("id")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// budgetResponse pairs the live snapshot with the saved attempt, if any.
// AttemptNow recomputes the attempt's selection against current prices.
type budgetResponse struct {
	Live       budget.Snapshot       `json:"live"`
	Attempt    *entity.BudgetAttempt `json:"attempt"`
	AttemptNow *budget.Snapshot      `json:"attemptNow,omitempty"`
}

// GET /api/destinations/:id/budget
func (h *Handler) GetBudget(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	live, err := h.store.Budget(id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp := budgetResponse{Live: live}
	if dest, ok := h.store.Destination(id); ok && dest.BudgetEstimator.Attempt != nil {
		resp.Attempt = dest.BudgetEstimator.Attempt
		now := budget.ForAttempt(*resp.Attempt, dest, h.store.Settings())
		resp.AttemptNow = &now
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// PUT /api/destinations/:id/flights
func (h *Handler) ReplaceFlights(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	v, err := readValue(w, r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if _, ok := v.([]any); !ok {
		h.respondError(w, fmt.Errorf("%w: body must be a list of flights", usecase.ErrInvalidInput))
		return
	}
	report := &normalize.Report{}
	flights := normalize.Flights(v, report)
	dest, err := h.store.ReplaceFlights(r.Context(), ps.ByName("id"), flights)
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"destination": dest, "dropped": report.Messages()})
}

// POST /api/destinations/:id/flights
func (h *Handler) AddFlight(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	flight, err := h.readFlight(w, r, "")
	if err != nil {
		h.respondError(w, err)
		return
	}
	added, err := h.store.AddFlight(r.Context(), ps.ByName("id"), flight)
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, added)
}

// PUT /api/destinations/:id/flights/:itemId
func (h *Handler) UpdateFlight(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	flight, err := h.readFlight(w, r, ps.ByName("itemId"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	dest, err := h.store.UpdateFlight(r.Context(), ps.ByName("id"), flight)
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dest)
}

// DELETE /api/destinations/:id/flights/:itemId
func (h *Handler) RemoveFlight(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	dest, err := h.store.RemoveFlight(r.Context(), ps.ByName("id"), ps.ByName("itemId"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dest)
}

// POST /api/destinations/:id/flights/:itemId/duplicate
func (h *Handler) DuplicateFlight(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	dest, err := h.store.DuplicateFlight(r.Context(), ps.ByName("id"), ps.ByName("itemId"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dest)
}

// readFlight validates a flight body. The path id wins over the body id;
// a new flight without an id gets a fresh one.
func (h *Handler) readFlight(w http.ResponseWriter, r *http.Request, id string) (entity.Flight, error) {
	obj, err := readObject(w, r)
	if err != nil {
		return entity.Flight{}, err
	}
	assignID(obj, id)
	flight, err := normalize.Flight(obj)
	if err != nil {
		return entity.Flight{}, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}
	return flight, nil
}

// PUT /api/destinations/:id/accommodations
func (h *Handler) ReplaceAccommodations(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	v, err := readValue(w, r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if _, ok := v.([]any); !ok {
		h.respondError(w, fmt.Errorf("%w: body must be a list of accommodations", usecase.ErrInvalidInput))
		return
	}
	report := &normalize.Report{}
	accommodations := normalize.Accommodations(v, report)
	dest, err := h.store.ReplaceAccommodations(r.Context(), ps.ByName("id"), accommodations)
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"destination": dest, "dropped": report.Messages()})
}

// POST /api/destinations/:id/accommodations
func (h *Handler) AddAccommodation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	acc, err := h.readAccommodation(w, r, "")
	if err != nil {
		h.respondError(w, err)
		return
	}
	added, err := h.store.AddAccommodation(r.Context(), ps.ByName("id"), acc)
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, added)
}

// PUT /api/destinations/:id/accommodations/:itemId
func (h *Handler) UpdateAccommodation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	acc, err := h.readAccommodation(w, r, ps.ByName("itemId"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	dest, err := h.store.UpdateAccommodation(r.Context(), ps.ByName("id"), acc)
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dest)
}

// DELETE /api/destinations/:id/accommodations/:itemId
func (h *Handler) RemoveAccommodation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	dest, err := h.store.RemoveAccommodation(r.Context(), ps.ByName("id"), ps.ByName("itemId"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dest)
}

// POST /api/destinations/:id/accommodations/:itemId/duplicate
func (h *Handler) DuplicateAccommodation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	dest, err := h.store.DuplicateAccommodation(r.Context(), ps.ByName("id"), ps.ByName("itemId"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dest)
}

func (h *Handler) readAccommodation(w http.ResponseWriter, r *http.Request, id string) (entity.Accommodation, error) {
	obj, err := readObject(w, r)
	if err != nil {
		return entity.Accommodation{}, err
	}
	assignID(obj, id)
	acc, err := normalize.Accommodation(obj)
	if err != nil {
		return entity.Accommodation{}, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}
	return acc, nil
}

func assignID(obj map[string]any, id string) {
	if id != "" {
		obj["id"] = id
		return
	}
	if s, _ := obj["id"].(string); strings.TrimSpace(s) == "" {
		obj["id"] = utils.NewID()
	}
}

// PUT /api/destinations/:id/extra-costs
func (h *Handler) SetExtraCosts(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	v, err := readValue(w, r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	report := &normalize.Report{}
	costs := normalize.ExtraCosts(v, report)
	dest, err := h.store.SetExtraCosts(r.Context(), ps.ByName("id"), costs)
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"destination": dest, "dropped": report.Messages()})
}

// PUT /api/destinations/:id/assignments/:itemId
func (h *Handler) SetAssignment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	obj, err := readObject(w, r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	count, ok, err := floatField(obj, "count")
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !ok || count < 0 || count > normalize.MaxAssignmentCount {
		h.respondError(w, fmt.Errorf("%w: count must be a number between 0 and %d", usecase.ErrInvalidInput, normalize.MaxAssignmentCount))
		return
	}
	dest, err := h.store.SetAssignment(r.Context(), ps.ByName("id"), ps.ByName("itemId"), int(math.Floor(count)))
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dest)
}

// PUT /api/destinations/:id/selection
func (h *Handler) SelectAccommodation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	obj, err := readObject(w, r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	accID, err := stringField(obj, "accommodationId")
	if err != nil {
		h.respondError(w, err)
		return
	}
	dest, err := h.store.SelectAccommodation(r.Context(), ps.ByName("id"), accID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dest)
}

// PUT /api/destinations/:id/drafts/flight
func (h *Handler) SetFlightDraft(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	obj, err := readObject(w, r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	dest, err := h.store.SetFlightDraft(r.Context(), ps.ByName("id"), normalize.FlightDraft(obj))
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dest)
}

// PUT /api/destinations/:id/drafts/accommodation
func (h *Handler) SetAccommodationDraft(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	obj, err := readObject(w, r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	dest, err := h.store.SetAccommodationDraft(r.Context(), ps.ByName("id"), normalize.AccommodationDraft(obj))
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dest)
}

// POST /api/destinations/:id/attempt
func (h *Handler) SaveAttempt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.attemptWithName(w, r, ps, h.store.SaveAttempt)
}

// PUT /api/destinations/:id/attempt
func (h *Handler) OverrideAttempt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.attemptWithName(w, r, ps, h.store.OverrideAttempt)
}

func (h *Handler) attemptWithName(w http.ResponseWriter, r *http.Request, ps httprouter.Params,
	fn func(ctx context.Context, destID, name string) (entity.Destination, error)) {
	obj, err := readObject(w, r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	name, err := stringField(obj, "name")
	if err != nil {
		h.respondError(w, err)
		return
	}
	dest, err := fn(r.Context(), ps.ByName("id"), name)
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dest)
}

// DELETE /api/destinations/:id/attempt
func (h *Handler) ClearAttempt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	dest, err := h.store.ClearAttempt(r.Context(), ps.ByName("id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dest)
}

// POST /api/destinations/:id/attempt/apply
func (h *Handler) ApplyAttempt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	dest, err := h.store.ApplyAttempt(r.Context(), ps.ByName("id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dest)
}
