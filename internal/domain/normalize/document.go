package normalize

import (
	"fmt"
	"math"

	"trip-planner-service/internal/domain/entity"
	"trip-planner-service/internal/domain/reconcile"
)

// Settings validates candidate settings field by field, falling back to the
// previous known-good value for anything missing or invalid.
func Settings(v any, fallback entity.PlannerSettings) entity.PlannerSettings {
	out := fallback
	obj, ok := object(v)
	if !ok {
		return out
	}
	if budget, ok := numeric(obj["totalBudget"]); ok && budget >= 0 {
		out.TotalBudget = budget
	}
	if people, ok := numeric(obj["peopleCount"]); ok {
		if n := math.Floor(people); n >= 1 && n <= math.MaxInt32 {
			out.PeopleCount = int(n)
		}
	}
	return out
}

// Destination decodes one destination and restores referential integrity
// between its collections.
func Destination(v any, settings entity.PlannerSettings, r *Report) (entity.Destination, error) {
	obj, ok := object(v)
	if !ok {
		return entity.Destination{}, drop("destination", "not an object")
	}
	id := stringOr(obj, "id")
	if id == "" {
		return entity.Destination{}, drop("destination", "missing id")
	}
	lat, latOK := coercible(obj["latitude"])
	lon, lonOK := coercible(obj["longitude"])
	if !latOK || !lonOK || math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return entity.Destination{}, &DropError{Entity: "destination", Index: -1, ID: id, Reason: "invalid coordinates"}
	}

	d := entity.Destination{
		ID:                 id,
		Name:               stringOr(obj, "name"),
		Latitude:           lat,
		Longitude:          lon,
		Notes:              stringOr(obj, "notes"),
		ExtraCosts:         ExtraCosts(obj["extraCosts"], r),
		BudgetEstimator:    BudgetEstimator(obj["budgetEstimator"], r),
		FlightDraft:        FlightDraft(obj["flightDraft"]),
		AccommodationDraft: AccommodationDraft(obj["accommodationDraft"]),
		Flights:            Flights(obj["flights"], r),
		Accommodations:     Accommodations(obj["accommodations"], r),
	}
	return reconcile.Prune(d, settings), nil
}

// Destinations keeps the valid destinations of a list. ok is false when v is
// not a list at all.
func Destinations(v any, settings entity.PlannerSettings, r *Report) (out []entity.Destination, ok bool) {
	out = []entity.Destination{}
	arr, ok := array(v)
	if !ok {
		return out, false
	}
	seen := make(map[string]struct{}, len(arr))
	for i, item := range arr {
		d, err := Destination(item, settings, r)
		if err == nil {
			if _, dup := seen[d.ID]; dup {
				err = &DropError{Entity: "destination", Index: i, ID: d.ID, Reason: "duplicate id"}
			}
		}
		if err != nil {
			r.add(err, i)
			continue
		}
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}
	return out, true
}

// Payload validates a full document from a remote store or an import file.
// Settings fall back to the given known-good settings. A non-empty
// destinations list in which every element is rejected fails closed.
func Payload(v any, fallback entity.PlannerSettings, r *Report) (entity.RootDocument, error) {
	obj, ok := object(v)
	if !ok {
		return entity.RootDocument{}, fmt.Errorf("%w: not an object", ErrInvalidPayload)
	}
	raw, ok := array(obj["destinations"])
	if !ok {
		return entity.RootDocument{}, fmt.Errorf("%w: destinations must be an array", ErrInvalidPayload)
	}
	settings := Settings(obj["settings"], fallback)
	destinations, _ := Destinations(raw, settings, r)
	if len(raw) > 0 && len(destinations) == 0 {
		return entity.RootDocument{}, fmt.Errorf("%w: none of the %d destinations is valid", ErrInvalidPayload, len(raw))
	}
	return entity.RootDocument{Destinations: destinations, Settings: settings}, nil
}

// Meta decodes the remote bookkeeping block. Invalid fields are zero.
func Meta(v any) entity.RemoteMeta {
	var m entity.RemoteMeta
	obj, ok := object(v)
	if !ok {
		return m
	}
	if at, ok := numeric(obj["updatedAt"]); ok && at >= 0 {
		m.UpdatedAt = int64(math.Floor(at))
	}
	m.UpdatedBy = stringOr(obj, "updatedBy")
	return m
}

// RemoteMeta extracts the meta block of a full remote document
func RemoteMeta(v any) entity.RemoteMeta {
	obj, ok := object(v)
	if !ok {
		return entity.RemoteMeta{}
	}
	return Meta(obj["meta"])
}
