package normalize

import (
	"math"

	"trip-planner-service/internal/domain/entity"
)

// BudgetAttempt decodes one saved attempt. Cached totals that are not finite
// numbers default to 0; they are recomputed by the reconciler when needed.
func BudgetAttempt(v any) (entity.BudgetAttempt, error) {
	obj, ok := object(v)
	if !ok {
		return entity.BudgetAttempt{}, drop("attempt", "not an object")
	}
	id := stringOr(obj, "id")
	if id == "" {
		return entity.BudgetAttempt{}, drop("attempt", "missing id")
	}
	a := entity.BudgetAttempt{
		ID:                      id,
		Name:                    stringOr(obj, "name"),
		FlightAssignments:       FlightAssignments(obj["flightAssignments"], nil),
		SelectedAccommodationID: stringOr(obj, "selectedAccommodationId"),
	}
	if created, ok := numeric(obj["createdAt"]); ok && created >= 0 {
		a.CreatedAt = int64(math.Floor(created))
	}
	a.TotalCost, _ = coercible(obj["totalCost"])
	a.Remaining, _ = coercible(obj["remaining"])
	a.PerPersonTotal, _ = coercible(obj["perPersonTotal"])
	return a, nil
}

// BudgetEstimator decodes the estimator state and collapses any legacy
// attempt history to a single slot: the attempt matching fixedAttemptId, else
// the first valid attempt, else none.
func BudgetEstimator(v any, r *Report) entity.BudgetEstimator {
	est := entity.BudgetEstimator{FlightAssignments: entity.FlightAssignments{}}
	obj, ok := object(v)
	if !ok {
		return est
	}
	est.FlightAssignments = FlightAssignments(obj["flightAssignments"], r)
	est.SelectedAccommodationID = stringOr(obj, "selectedAccommodationId")

	fixedID := stringOr(obj, "fixedAttemptId")
	raw, _ := array(obj["attempts"])
	var first, fixed *entity.BudgetAttempt
	for i, item := range raw {
		a, err := BudgetAttempt(item)
		if err != nil {
			r.add(err, i)
			continue
		}
		if first == nil {
			first = &a
		}
		if fixed == nil && fixedID != "" && a.ID == fixedID {
			fixed = &a
		}
	}
	switch {
	case fixed != nil:
		est.Attempt = fixed
	case first != nil:
		est.Attempt = first
	}
	return est
}
