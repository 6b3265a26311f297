package entity

// Flight represents a candidate flight option for a destination
type Flight struct {
	ID             string  `json:"id" bson:"id"`
	Link           string  `json:"link" bson:"link"`
	Description    string  `json:"description" bson:"description"`
	StartDate      string  `json:"startDate" bson:"startDate"`
	EndDate        string  `json:"endDate" bson:"endDate"`
	PricePerPerson float64 `json:"pricePerPerson" bson:"pricePerPerson"`
}

// FlightDraft backs the quick-add flight form. Every field is optional.
type FlightDraft struct {
	Link           *string  `json:"link,omitempty" bson:"link,omitempty"`
	Description    *string  `json:"description,omitempty" bson:"description,omitempty"`
	StartDate      *string  `json:"startDate,omitempty" bson:"startDate,omitempty"`
	EndDate        *string  `json:"endDate,omitempty" bson:"endDate,omitempty"`
	PricePerPerson *float64 `json:"pricePerPerson,omitempty" bson:"pricePerPerson,omitempty"`
}

// FlightAssignments maps a flight id to the number of travelers on it.
// A missing key means zero travelers.
type FlightAssignments map[string]int

// Clone returns a copy of the assignments, never nil
func (a FlightAssignments) Clone() FlightAssignments {
	out := make(FlightAssignments, len(a))
	for id, count := range a {
		out[id] = count
	}
	return out
}

// FlightIDs returns the set of ids in a flight list
func FlightIDs(flights []Flight) map[string]struct{} {
	ids := make(map[string]struct{}, len(flights))
	for _, f := range flights {
		ids[f.ID] = struct{}{}
	}
	return ids
}

// FindFlight returns the flight with the given id
func FindFlight(flights []Flight, id string) (Flight, bool) {
	for _, f := range flights {
		if f.ID == id {
			return f, true
		}
	}
	return Flight{}, false
}
