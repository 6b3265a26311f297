package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-planner-service/internal/domain/entity"
)

var settings = entity.PlannerSettings{TotalBudget: 1000, PeopleCount: 4}

func destinationWithAttempt() entity.Destination {
	d := entity.NewDestination("d1", "Oslo", 59.9, 10.7)
	d.Flights = []entity.Flight{{ID: "f1", PricePerPerson: 100}, {ID: "f2", PricePerPerson: 50}}
	d.Accommodations = []entity.Accommodation{{ID: "a1", TotalPrice: 400}, {ID: "a2", TotalPrice: 200}}
	d.BudgetEstimator.FlightAssignments = entity.FlightAssignments{"f1": 2, "f2": 1}
	d.BudgetEstimator.SelectedAccommodationID = "a1"
	d.BudgetEstimator.Attempt = &entity.BudgetAttempt{
		ID:                      "b1",
		Name:                    "first try",
		CreatedAt:               10,
		FlightAssignments:       entity.FlightAssignments{"f1": 1, "f2": 2},
		SelectedAccommodationID: "a2",
		TotalCost:               400,
		Remaining:               600,
		PerPersonTotal:          100,
	}
	return d
}

func TestReplaceFlightsPrunesDanglingAssignments(t *testing.T) {
	d := destinationWithAttempt()

	got := ReplaceFlights(d, []entity.Flight{{ID: "f1", PricePerPerson: 100}}, settings)

	assert.Equal(t, entity.FlightAssignments{"f1": 2}, got.BudgetEstimator.FlightAssignments)
	require.NotNil(t, got.BudgetEstimator.Attempt)
	assert.Equal(t, entity.FlightAssignments{"f1": 1}, got.BudgetEstimator.Attempt.FlightAssignments)
	// f1 x1 + a2
	assert.Equal(t, 300.0, got.BudgetEstimator.Attempt.TotalCost)
	assert.Equal(t, 700.0, got.BudgetEstimator.Attempt.Remaining)
	assert.Equal(t, 75.0, got.BudgetEstimator.Attempt.PerPersonTotal)
	assert.Equal(t, "b1", got.BudgetEstimator.FixedAttemptID())

	// the input is untouched
	assert.Equal(t, entity.FlightAssignments{"f1": 2, "f2": 1}, d.BudgetEstimator.FlightAssignments)
	assert.Len(t, d.Flights, 2)
}

func TestReplaceFlightsRepricesAttempt(t *testing.T) {
	d := destinationWithAttempt()

	got := ReplaceFlights(d, []entity.Flight{{ID: "f1", PricePerPerson: 150}, {ID: "f2", PricePerPerson: 50}}, settings)

	assert.Equal(t, entity.FlightAssignments{"f1": 2, "f2": 1}, got.BudgetEstimator.FlightAssignments)
	assert.Equal(t, 450.0, got.BudgetEstimator.Attempt.TotalCost)
}

func TestReplaceAccommodationsResetsSelections(t *testing.T) {
	d := destinationWithAttempt()

	got := ReplaceAccommodations(d, []entity.Accommodation{{ID: "a1", TotalPrice: 400}}, settings)

	assert.Equal(t, "a1", got.BudgetEstimator.SelectedAccommodationID)
	assert.Equal(t, "", got.BudgetEstimator.Attempt.SelectedAccommodationID)
	assert.Equal(t, 200.0, got.BudgetEstimator.Attempt.TotalCost)

	got = ReplaceAccommodations(got, nil, settings)

	assert.Equal(t, "", got.BudgetEstimator.SelectedAccommodationID)
	assert.Equal(t, []entity.Accommodation{}, got.Accommodations)
}

func TestPruneLeavesConsistentDestinationAlone(t *testing.T) {
	d := destinationWithAttempt()

	got := Prune(d, settings)

	assert.Equal(t, d, got)
}

func TestCollectionUpdaters(t *testing.T) {
	d := destinationWithAttempt()

	d = RemoveFlight(d, "f2", settings)
	assert.Equal(t, entity.FlightAssignments{"f1": 2}, d.BudgetEstimator.FlightAssignments)

	d = UpsertFlight(d, entity.Flight{ID: "f1", PricePerPerson: 10}, settings)
	d = UpsertFlight(d, entity.Flight{ID: "f3", PricePerPerson: 70}, settings)
	require.Len(t, d.Flights, 2)
	assert.Equal(t, 10.0, d.Flights[0].PricePerPerson)
	assert.Equal(t, 10.0, d.BudgetEstimator.Attempt.TotalCost-200)

	d, ok := DuplicateFlight(d, "f1", "f1-copy", settings)
	require.True(t, ok)
	assert.Equal(t, []string{"f1", "f1-copy", "f3"}, []string{d.Flights[0].ID, d.Flights[1].ID, d.Flights[2].ID})

	_, ok = DuplicateFlight(d, "nope", "x", settings)
	assert.False(t, ok)

	d = RemoveAccommodation(d, "a2", settings)
	assert.Equal(t, "", d.BudgetEstimator.Attempt.SelectedAccommodationID)
	d = UpsertAccommodation(d, entity.Accommodation{ID: "a3", TotalPrice: 90}, settings)
	d, ok = DuplicateAccommodation(d, "a3", "a4", settings)
	require.True(t, ok)
	assert.Len(t, d.Accommodations, 3)
}

func TestSetAssignmentAndSelection(t *testing.T) {
	d := destinationWithAttempt()

	d = SetAssignment(d, "f2", 0)
	assert.Equal(t, entity.FlightAssignments{"f1": 2}, d.BudgetEstimator.FlightAssignments)

	d = SetAssignment(d, "f1", 3)
	d = SetAssignment(d, "ghost", 5)
	assert.Equal(t, entity.FlightAssignments{"f1": 3}, d.BudgetEstimator.FlightAssignments)

	d = SelectAccommodation(d, "a2")
	assert.Equal(t, "a2", d.BudgetEstimator.SelectedAccommodationID)
	d = SelectAccommodation(d, "ghost")
	assert.Equal(t, "", d.BudgetEstimator.SelectedAccommodationID)
}

func TestAttemptLifecycle(t *testing.T) {
	d := ClearAttempt(destinationWithAttempt())
	require.Nil(t, d.BudgetEstimator.Attempt)
	now := time.UnixMilli(1700000000000)

	d = SaveAttempt(d, "b2", "  ", now, settings)
	require.NotNil(t, d.BudgetEstimator.Attempt)
	assert.Equal(t, "b2", d.BudgetEstimator.FixedAttemptID())
	assert.Equal(t, DefaultAttemptName, d.BudgetEstimator.Attempt.Name)
	assert.Equal(t, int64(1700000000000), d.BudgetEstimator.Attempt.CreatedAt)
	// f1 x2 + f2 x1 + a1
	assert.Equal(t, 650.0, d.BudgetEstimator.Attempt.TotalCost)

	// saving again is a no-op
	again := SaveAttempt(d, "b3", "other", now.Add(time.Hour), settings)
	assert.Equal(t, d, again)

	// live edits do not touch the frozen attempt
	d = SetAssignment(d, "f1", 0)
	d = SelectAccommodation(d, "a2")
	assert.Equal(t, 650.0, d.BudgetEstimator.Attempt.TotalCost)

	applied, ok := ApplyAttempt(d)
	require.True(t, ok)
	assert.Equal(t, entity.FlightAssignments{"f1": 2, "f2": 1}, applied.BudgetEstimator.FlightAssignments)
	assert.Equal(t, "a1", applied.BudgetEstimator.SelectedAccommodationID)
	assert.Equal(t, d.BudgetEstimator.Attempt, applied.BudgetEstimator.Attempt)

	later := now.Add(time.Minute)
	overridden, ok := OverrideAttempt(d, "", later, settings)
	require.True(t, ok)
	assert.Equal(t, "b2", overridden.BudgetEstimator.Attempt.ID)
	assert.Equal(t, DefaultAttemptName, overridden.BudgetEstimator.Attempt.Name)
	assert.Equal(t, later.UnixMilli(), overridden.BudgetEstimator.Attempt.CreatedAt)
	assert.Equal(t, entity.FlightAssignments{"f2": 1}, overridden.BudgetEstimator.Attempt.FlightAssignments)
	assert.Equal(t, 250.0, overridden.BudgetEstimator.Attempt.TotalCost)

	cleared := ClearAttempt(overridden)
	_, ok = OverrideAttempt(cleared, "x", later, settings)
	assert.False(t, ok)
	_, ok = ApplyAttempt(cleared)
	assert.False(t, ok)
}
