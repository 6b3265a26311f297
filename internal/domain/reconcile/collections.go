package reconcile

import "trip-planner-service/internal/domain/entity"

// UpsertFlight replaces the flight with the same id, or appends it
func UpsertFlight(dest entity.Destination, flight entity.Flight, settings entity.PlannerSettings) entity.Destination {
	flights := append([]entity.Flight{}, dest.Flights...)
	for i := range flights {
		if flights[i].ID == flight.ID {
			flights[i] = flight
			return ReplaceFlights(dest, flights, settings)
		}
	}
	return ReplaceFlights(dest, append(flights, flight), settings)
}

// RemoveFlight drops a flight and every reference to it
func RemoveFlight(dest entity.Destination, id string, settings entity.PlannerSettings) entity.Destination {
	flights := make([]entity.Flight, 0, len(dest.Flights))
	for _, f := range dest.Flights {
		if f.ID != id {
			flights = append(flights, f)
		}
	}
	return ReplaceFlights(dest, flights, settings)
}

// DuplicateFlight inserts a copy of flight id right after it, under newID.
// It reports false when the flight does not exist.
func DuplicateFlight(dest entity.Destination, id, newID string, settings entity.PlannerSettings) (entity.Destination, bool) {
	flights := make([]entity.Flight, 0, len(dest.Flights)+1)
	found := false
	for _, f := range dest.Flights {
		flights = append(flights, f)
		if f.ID == id && !found {
			cp := f
			cp.ID = newID
			flights = append(flights, cp)
			found = true
		}
	}
	if !found {
		return dest, false
	}
	return ReplaceFlights(dest, flights, settings), true
}

// UpsertAccommodation replaces the accommodation with the same id, or appends it
func UpsertAccommodation(dest entity.Destination, acc entity.Accommodation, settings entity.PlannerSettings) entity.Destination {
	accs := append([]entity.Accommodation{}, dest.Accommodations...)
	for i := range accs {
		if accs[i].ID == acc.ID {
			accs[i] = acc
			return ReplaceAccommodations(dest, accs, settings)
		}
	}
	return ReplaceAccommodations(dest, append(accs, acc), settings)
}

// RemoveAccommodation drops an accommodation and clears selections of it
func RemoveAccommodation(dest entity.Destination, id string, settings entity.PlannerSettings) entity.Destination {
	accs := make([]entity.Accommodation, 0, len(dest.Accommodations))
	for _, a := range dest.Accommodations {
		if a.ID != id {
			accs = append(accs, a)
		}
	}
	return ReplaceAccommodations(dest, accs, settings)
}

// DuplicateAccommodation inserts a copy of accommodation id right after it
func DuplicateAccommodation(dest entity.Destination, id, newID string, settings entity.PlannerSettings) (entity.Destination, bool) {
	accs := make([]entity.Accommodation, 0, len(dest.Accommodations)+1)
	found := false
	for _, a := range dest.Accommodations {
		accs = append(accs, a)
		if a.ID == id && !found {
			cp := a
			cp.ID = newID
			accs = append(accs, cp)
			found = true
		}
	}
	if !found {
		return dest, false
	}
	return ReplaceAccommodations(dest, accs, settings), true
}

// SetAssignment sets the traveler count of one flight in the live selection.
// Counts of zero or less remove the key; unknown flights are ignored.
func SetAssignment(dest entity.Destination, flightID string, count int) entity.Destination {
	out := dest.Clone()
	if _, ok := entity.FindFlight(out.Flights, flightID); !ok {
		return out
	}
	if count <= 0 {
		delete(out.BudgetEstimator.FlightAssignments, flightID)
		return out
	}
	out.BudgetEstimator.FlightAssignments[flightID] = count
	return out
}

// SelectAccommodation sets the live accommodation selection. An id that is not
// in the destination clears the selection.
func SelectAccommodation(dest entity.Destination, id string) entity.Destination {
	out := dest.Clone()
	if _, ok := entity.FindAccommodation(out.Accommodations, id); !ok {
		id = ""
	}
	out.BudgetEstimator.SelectedAccommodationID = id
	return out
}
