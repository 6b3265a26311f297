package reconcile

import (
	"strings"
	"time"

	"trip-planner-service/internal/domain/entity"
)

// DefaultAttemptName is used when an attempt is saved without a name
const DefaultAttemptName = "Saved budget"

// SaveAttempt stores the live selection as the destination's attempt. Saving
// when an attempt already exists is a no-op.
func SaveAttempt(dest entity.Destination, id, name string, now time.Time, settings entity.PlannerSettings) entity.Destination {
	out := dest.Clone()
	if out.BudgetEstimator.Attempt != nil {
		return out
	}
	attempt := &entity.BudgetAttempt{
		ID:        id,
		Name:      attemptName(name, ""),
		CreatedAt: now.UnixMilli(),
	}
	captureLive(attempt, out)
	snapshotAttempt(attempt, out, settings)
	out.BudgetEstimator.Attempt = attempt
	return out
}

// ClearAttempt empties the attempt slot
func ClearAttempt(dest entity.Destination) entity.Destination {
	out := dest.Clone()
	out.BudgetEstimator.Attempt = nil
	return out
}

// OverrideAttempt replaces the saved attempt's content with the live
// selection and refreshes its creation time. The id is kept. It reports false
// when no attempt is saved.
func OverrideAttempt(dest entity.Destination, name string, now time.Time, settings entity.PlannerSettings) (entity.Destination, bool) {
	out := dest.Clone()
	attempt := out.BudgetEstimator.Attempt
	if attempt == nil {
		return out, false
	}
	attempt.Name = attemptName(name, attempt.Name)
	attempt.CreatedAt = now.UnixMilli()
	captureLive(attempt, out)
	snapshotAttempt(attempt, out, settings)
	return out, true
}

// ApplyAttempt copies the saved selection back into the live estimator. The
// attempt itself is not modified. It reports false when no attempt is saved.
func ApplyAttempt(dest entity.Destination) (entity.Destination, bool) {
	out := dest.Clone()
	attempt := out.BudgetEstimator.Attempt
	if attempt == nil {
		return out, false
	}
	ids := entity.FlightIDs(out.Flights)
	out.BudgetEstimator.FlightAssignments = filterAssignments(attempt.FlightAssignments, ids)
	out.BudgetEstimator.SelectedAccommodationID = ""
	if _, ok := entity.FindAccommodation(out.Accommodations, attempt.SelectedAccommodationID); ok {
		out.BudgetEstimator.SelectedAccommodationID = attempt.SelectedAccommodationID
	}
	return out, true
}

func captureLive(attempt *entity.BudgetAttempt, dest entity.Destination) {
	attempt.FlightAssignments = dest.BudgetEstimator.FlightAssignments.Clone()
	attempt.SelectedAccommodationID = dest.BudgetEstimator.SelectedAccommodationID
}

func attemptName(name, current string) string {
	name = strings.TrimSpace(name)
	switch {
	case name != "":
		return name
	case current != "":
		return current
	default:
		return DefaultAttemptName
	}
}
