// Package budget derives cost figures from a destination's selections.
package budget

import (
	"sort"

	"trip-planner-service/internal/domain/entity"
)

// Input is everything a snapshot depends on
type Input struct {
	Flights                 []entity.Flight
	Accommodations          []entity.Accommodation
	FlightAssignments       entity.FlightAssignments
	SelectedAccommodationID string
	ExtraCosts              []entity.ExtraCost
	Settings                entity.PlannerSettings
}

// Snapshot is the derived cost breakdown for one Input
type Snapshot struct {
	AssignedPeopleCount int     `json:"assignedPeopleCount"`
	FlightCost          float64 `json:"flightCost"`
	AccommodationCost   float64 `json:"accommodationCost"`
	ExtraCostsCost      float64 `json:"extraCostsCost"`
	TotalCost           float64 `json:"totalCost"`
	Remaining           float64 `json:"remaining"`
	PerPersonTotal      float64 `json:"perPersonTotal"`
	PerPersonRemaining  float64 `json:"perPersonRemaining"`
	IsOverAssigned      bool    `json:"isOverAssigned"`
}

// Calculate computes the snapshot for in. Assignments pointing at flights
// that no longer exist contribute nothing.
func Calculate(in Input) Snapshot {
	var s Snapshot

	prices := make(map[string]float64, len(in.Flights))
	for _, f := range in.Flights {
		prices[f.ID] = f.PricePerPerson
	}

	// Sum in key order so the float result does not depend on map iteration.
	ids := make([]string, 0, len(in.FlightAssignments))
	for id := range in.FlightAssignments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		price, ok := prices[id]
		if !ok {
			continue
		}
		count := in.FlightAssignments[id]
		s.FlightCost += price * float64(count)
		s.AssignedPeopleCount += count
	}

	if acc, ok := entity.FindAccommodation(in.Accommodations, in.SelectedAccommodationID); ok {
		s.AccommodationCost = acc.TotalPrice
	}

	for _, c := range in.ExtraCosts {
		s.ExtraCostsCost += c.Value
	}

	s.TotalCost = s.FlightCost + s.AccommodationCost + s.ExtraCostsCost
	s.Remaining = in.Settings.TotalBudget - s.TotalCost

	people := float64(in.Settings.PeopleCount)
	if people < 1 {
		people = 1
	}
	s.PerPersonTotal = s.TotalCost / people
	s.PerPersonRemaining = s.Remaining / people
	s.IsOverAssigned = s.AssignedPeopleCount > in.Settings.PeopleCount

	return s
}

// ForDestination computes the snapshot of a destination's live selection
func ForDestination(dest entity.Destination, settings entity.PlannerSettings) Snapshot {
	return Calculate(Input{
		Flights:                 dest.Flights,
		Accommodations:          dest.Accommodations,
		FlightAssignments:       dest.BudgetEstimator.FlightAssignments,
		SelectedAccommodationID: dest.BudgetEstimator.SelectedAccommodationID,
		ExtraCosts:              dest.ExtraCosts,
		Settings:                settings,
	})
}

// ForAttempt computes the snapshot of a saved attempt's selection against the
// destination's current flights, accommodations and extra costs
func ForAttempt(attempt entity.BudgetAttempt, dest entity.Destination, settings entity.PlannerSettings) Snapshot {
	return Calculate(Input{
		Flights:                 dest.Flights,
		Accommodations:          dest.Accommodations,
		FlightAssignments:       attempt.FlightAssignments,
		SelectedAccommodationID: attempt.SelectedAccommodationID,
		ExtraCosts:              dest.ExtraCosts,
		Settings:                settings,
	})
}
