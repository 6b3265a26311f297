package entity

// Accommodation represents a lodging option. TotalPrice covers the whole stay.
type Accommodation struct {
	ID          string  `json:"id" bson:"id"`
	Link        string  `json:"link" bson:"link"`
	Description string  `json:"description" bson:"description"`
	TotalPrice  float64 `json:"totalPrice" bson:"totalPrice"`
	StartDate   string  `json:"startDate" bson:"startDate"`
	EndDate     string  `json:"endDate" bson:"endDate"`
}

// AccommodationDraft backs the quick-add accommodation form
type AccommodationDraft struct {
	Link        *string  `json:"link,omitempty" bson:"link,omitempty"`
	Description *string  `json:"description,omitempty" bson:"description,omitempty"`
	TotalPrice  *float64 `json:"totalPrice,omitempty" bson:"totalPrice,omitempty"`
	StartDate   *string  `json:"startDate,omitempty" bson:"startDate,omitempty"`
	EndDate     *string  `json:"endDate,omitempty" bson:"endDate,omitempty"`
}

// ExtraCost is a free-form cost line such as a visa or insurance
type ExtraCost struct {
	Description string  `json:"description" bson:"description"`
	Value       float64 `json:"value" bson:"value"`
}

// FindAccommodation returns the accommodation with the given id
func FindAccommodation(accommodations []Accommodation, id string) (Accommodation, bool) {
	if id == "" {
		return Accommodation{}, false
	}
	for _, a := range accommodations {
		if a.ID == id {
			return a, true
		}
	}
	return Accommodation{}, false
}
