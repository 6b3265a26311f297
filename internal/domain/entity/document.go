package entity

// PlannerSettings are the process-wide budget settings
type PlannerSettings struct {
	TotalBudget float64 `json:"totalBudget"`
	PeopleCount int     `json:"peopleCount"`
}

// DefaultSettings are used when nothing valid has been stored yet
func DefaultSettings() PlannerSettings {
	return PlannerSettings{TotalBudget: 0, PeopleCount: 1}
}

// RootDocument is the unit of persistence and of remote sync
type RootDocument struct {
	Destinations []Destination   `json:"destinations"`
	Settings     PlannerSettings `json:"settings"`
}

// NewRootDocument returns an empty document with default settings
func NewRootDocument() RootDocument {
	return RootDocument{
		Destinations: []Destination{},
		Settings:     DefaultSettings(),
	}
}

// Clone returns a deep copy of the document
func (d RootDocument) Clone() RootDocument {
	out := RootDocument{
		Destinations: make([]Destination, 0, len(d.Destinations)),
		Settings:     d.Settings,
	}
	for _, dest := range d.Destinations {
		out.Destinations = append(out.Destinations, dest.Clone())
	}
	return out
}

// FindDestination returns the index of the destination with the given id, or -1
func (d RootDocument) FindDestination(id string) int {
	for i, dest := range d.Destinations {
		if dest.ID == id {
			return i
		}
	}
	return -1
}

// RemoteMeta records who last wrote a remote document and when (unix ms)
type RemoteMeta struct {
	UpdatedAt int64  `json:"updatedAt"`
	UpdatedBy string `json:"updatedBy"`
}

// RemoteDocument is the shape written to the shared remote store
type RemoteDocument struct {
	Destinations []Destination   `json:"destinations"`
	Settings     PlannerSettings `json:"settings"`
	Meta         RemoteMeta      `json:"meta"`
}
