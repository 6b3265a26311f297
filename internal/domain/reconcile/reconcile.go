// Package reconcile keeps a destination's nested collections consistent when
// one of them changes. All functions are pure: they return a new destination
// and never modify their argument.
package reconcile

import (
	"trip-planner-service/internal/domain/budget"
	"trip-planner-service/internal/domain/entity"
)

// ReplaceFlights installs a new flight list, prunes assignments that point at
// removed flights and re-snapshots the saved attempt against the new list.
func ReplaceFlights(dest entity.Destination, flights []entity.Flight, settings entity.PlannerSettings) entity.Destination {
	out := dest.Clone()
	out.Flights = append([]entity.Flight{}, flights...)

	ids := entity.FlightIDs(out.Flights)
	out.BudgetEstimator.FlightAssignments = filterAssignments(out.BudgetEstimator.FlightAssignments, ids)
	if attempt := out.BudgetEstimator.Attempt; attempt != nil {
		attempt.FlightAssignments = filterAssignments(attempt.FlightAssignments, ids)
		snapshotAttempt(attempt, out, settings)
	}
	return out
}

// ReplaceAccommodations installs a new accommodation list, clears selections
// of removed accommodations and re-snapshots the saved attempt.
func ReplaceAccommodations(dest entity.Destination, accommodations []entity.Accommodation, settings entity.PlannerSettings) entity.Destination {
	out := dest.Clone()
	out.Accommodations = append([]entity.Accommodation{}, accommodations...)

	if _, ok := entity.FindAccommodation(out.Accommodations, out.BudgetEstimator.SelectedAccommodationID); !ok {
		out.BudgetEstimator.SelectedAccommodationID = ""
	}
	if attempt := out.BudgetEstimator.Attempt; attempt != nil {
		if _, ok := entity.FindAccommodation(out.Accommodations, attempt.SelectedAccommodationID); !ok {
			attempt.SelectedAccommodationID = ""
		}
		snapshotAttempt(attempt, out, settings)
	}
	return out
}

// Prune removes dangling references from a destination. Unlike the Replace
// functions, the saved attempt is re-snapshotted only when something it
// referenced was actually removed, so a consistent destination is returned
// unchanged.
func Prune(dest entity.Destination, settings entity.PlannerSettings) entity.Destination {
	out := dest.Clone()
	ids := entity.FlightIDs(out.Flights)

	out.BudgetEstimator.FlightAssignments = filterAssignments(out.BudgetEstimator.FlightAssignments, ids)
	if _, ok := entity.FindAccommodation(out.Accommodations, out.BudgetEstimator.SelectedAccommodationID); !ok {
		out.BudgetEstimator.SelectedAccommodationID = ""
	}

	attempt := out.BudgetEstimator.Attempt
	if attempt == nil {
		return out
	}
	changed := false
	filtered := filterAssignments(attempt.FlightAssignments, ids)
	if len(filtered) != len(attempt.FlightAssignments) {
		attempt.FlightAssignments = filtered
		changed = true
	}
	if _, ok := entity.FindAccommodation(out.Accommodations, attempt.SelectedAccommodationID); !ok && attempt.SelectedAccommodationID != "" {
		attempt.SelectedAccommodationID = ""
		changed = true
	}
	if changed {
		snapshotAttempt(attempt, out, settings)
	}
	return out
}

// filterAssignments keeps positive counts whose flight id is in ids
func filterAssignments(assignments entity.FlightAssignments, ids map[string]struct{}) entity.FlightAssignments {
	out := make(entity.FlightAssignments, len(assignments))
	for id, count := range assignments {
		if count <= 0 {
			continue
		}
		if _, ok := ids[id]; ok {
			out[id] = count
		}
	}
	return out
}

func snapshotAttempt(attempt *entity.BudgetAttempt, dest entity.Destination, settings entity.PlannerSettings) {
	s := budget.ForAttempt(*attempt, dest, settings)
	attempt.TotalCost = s.TotalCost
	attempt.Remaining = s.Remaining
	attempt.PerPersonTotal = s.PerPersonTotal
}
