package entity

// Destination is a candidate trip destination and everything planned for it
type Destination struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Latitude           float64            `json:"latitude"`
	Longitude          float64            `json:"longitude"`
	Notes              string             `json:"notes"`
	ExtraCosts         []ExtraCost        `json:"extraCosts"`
	BudgetEstimator    BudgetEstimator    `json:"budgetEstimator"`
	FlightDraft        FlightDraft        `json:"flightDraft"`
	AccommodationDraft AccommodationDraft `json:"accommodationDraft"`
	Flights            []Flight           `json:"flights"`
	Accommodations     []Accommodation    `json:"accommodations"`
}

// NewDestination builds an empty destination at the given coordinates
func NewDestination(id, name string, latitude, longitude float64) Destination {
	return Destination{
		ID:              id,
		Name:            name,
		Latitude:        latitude,
		Longitude:       longitude,
		ExtraCosts:      []ExtraCost{},
		BudgetEstimator: BudgetEstimator{FlightAssignments: FlightAssignments{}},
		Flights:         []Flight{},
		Accommodations:  []Accommodation{},
	}
}

// Clone returns a deep copy of the destination
func (d Destination) Clone() Destination {
	cp := d
	cp.ExtraCosts = append([]ExtraCost{}, d.ExtraCosts...)
	cp.Flights = append([]Flight{}, d.Flights...)
	cp.Accommodations = append([]Accommodation{}, d.Accommodations...)
	cp.BudgetEstimator = d.BudgetEstimator.Clone()
	cp.FlightDraft = FlightDraft{
		Link:           cloneString(d.FlightDraft.Link),
		Description:    cloneString(d.FlightDraft.Description),
		StartDate:      cloneString(d.FlightDraft.StartDate),
		EndDate:        cloneString(d.FlightDraft.EndDate),
		PricePerPerson: cloneFloat(d.FlightDraft.PricePerPerson),
	}
	cp.AccommodationDraft = AccommodationDraft{
		Link:        cloneString(d.AccommodationDraft.Link),
		Description: cloneString(d.AccommodationDraft.Description),
		TotalPrice:  cloneFloat(d.AccommodationDraft.TotalPrice),
		StartDate:   cloneString(d.AccommodationDraft.StartDate),
		EndDate:     cloneString(d.AccommodationDraft.EndDate),
	}
	return cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
