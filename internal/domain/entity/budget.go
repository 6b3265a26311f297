package entity

import "encoding/json"

// BudgetAttempt is a saved baseline: a frozen selection and its computed cost
type BudgetAttempt struct {
	ID                      string            `json:"id"`
	Name                    string            `json:"name"`
	CreatedAt               int64             `json:"createdAt"`
	FlightAssignments       FlightAssignments `json:"flightAssignments"`
	SelectedAccommodationID string            `json:"selectedAccommodationId"`
	TotalCost               float64           `json:"totalCost"`
	Remaining               float64           `json:"remaining"`
	PerPersonTotal          float64           `json:"perPersonTotal"`
}

// Clone returns a deep copy of the attempt
func (a *BudgetAttempt) Clone() *BudgetAttempt {
	if a == nil {
		return nil
	}
	cp := *a
	cp.FlightAssignments = a.FlightAssignments.Clone()
	return &cp
}

// BudgetEstimator holds the live selection of a destination plus at most one
// saved attempt. Attempt is nil when the slot is empty.
type BudgetEstimator struct {
	FlightAssignments       FlightAssignments
	SelectedAccommodationID string
	Attempt                 *BudgetAttempt
}

// FixedAttemptID is the id of the saved attempt or "" when none is saved
func (b BudgetEstimator) FixedAttemptID() string {
	if b.Attempt == nil {
		return ""
	}
	return b.Attempt.ID
}

// Clone returns a deep copy of the estimator
func (b BudgetEstimator) Clone() BudgetEstimator {
	return BudgetEstimator{
		FlightAssignments:       b.FlightAssignments.Clone(),
		SelectedAccommodationID: b.SelectedAccommodationID,
		Attempt:                 b.Attempt.Clone(),
	}
}

// budgetEstimatorWire is the stored shape, kept compatible with documents
// written when several attempts were allowed
type budgetEstimatorWire struct {
	FlightAssignments       FlightAssignments `json:"flightAssignments"`
	SelectedAccommodationID string            `json:"selectedAccommodationId"`
	FixedAttemptID          string            `json:"fixedAttemptId"`
	Attempts                []BudgetAttempt   `json:"attempts"`
}

// MarshalJSON writes the single slot as a zero or one element attempts list
func (b BudgetEstimator) MarshalJSON() ([]byte, error) {
	wire := budgetEstimatorWire{
		FlightAssignments:       b.FlightAssignments,
		SelectedAccommodationID: b.SelectedAccommodationID,
		FixedAttemptID:          b.FixedAttemptID(),
		Attempts:                []BudgetAttempt{},
	}
	if wire.FlightAssignments == nil {
		wire.FlightAssignments = FlightAssignments{}
	}
	if b.Attempt != nil {
		attempt := *b.Attempt
		if attempt.FlightAssignments == nil {
			attempt.FlightAssignments = FlightAssignments{}
		}
		wire.Attempts = append(wire.Attempts, attempt)
	}
	return json.Marshal(wire)
}

// UnmarshalJSON reads the stored shape and keeps the attempt matching
// fixedAttemptId, or the first one.
func (b *BudgetEstimator) UnmarshalJSON(data []byte) error {
	var wire budgetEstimatorWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	b.FlightAssignments = wire.FlightAssignments
	if b.FlightAssignments == nil {
		b.FlightAssignments = FlightAssignments{}
	}
	b.SelectedAccommodationID = wire.SelectedAccommodationID
	b.Attempt = nil
	for i := range wire.Attempts {
		if wire.Attempts[i].ID == wire.FixedAttemptID {
			b.Attempt = &wire.Attempts[i]
			return nil
		}
	}
	if len(wire.Attempts) > 0 {
		b.Attempt = &wire.Attempts[0]
	}
	return nil
}
