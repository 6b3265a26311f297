package normalize

import (
	"math"
	"strings"

	"trip-planner-service/internal/domain/entity"
)

// LegacyExtraCostDescription labels the single line produced from a legacy
// aggregate extra cost number
const LegacyExtraCostDescription = "Extra costs"

// Flight decodes one flight record
func Flight(v any) (entity.Flight, error) {
	obj, ok := object(v)
	if !ok {
		return entity.Flight{}, drop("flight", "not an object")
	}
	id := stringOr(obj, "id")
	if id == "" {
		return entity.Flight{}, drop("flight", "missing id")
	}
	p, ok := price(obj["pricePerPerson"])
	if !ok {
		return entity.Flight{}, &DropError{Entity: "flight", Index: -1, ID: id, Reason: "invalid pricePerPerson"}
	}
	return entity.Flight{
		ID:             id,
		Link:           stringOr(obj, "link"),
		Description:    stringOr(obj, "description"),
		StartDate:      stringOr(obj, "startDate"),
		EndDate:        stringOr(obj, "endDate"),
		PricePerPerson: p,
	}, nil
}

// Accommodation decodes one accommodation record
func Accommodation(v any) (entity.Accommodation, error) {
	obj, ok := object(v)
	if !ok {
		return entity.Accommodation{}, drop("accommodation", "not an object")
	}
	id := stringOr(obj, "id")
	if id == "" {
		return entity.Accommodation{}, drop("accommodation", "missing id")
	}
	p, ok := price(obj["totalPrice"])
	if !ok {
		return entity.Accommodation{}, &DropError{Entity: "accommodation", Index: -1, ID: id, Reason: "invalid totalPrice"}
	}
	return entity.Accommodation{
		ID:          id,
		Link:        stringOr(obj, "link"),
		Description: stringOr(obj, "description"),
		TotalPrice:  p,
		StartDate:   stringOr(obj, "startDate"),
		EndDate:     stringOr(obj, "endDate"),
	}, nil
}

// Flights keeps the valid flights of a list. Records are never repaired: an
// invalid element is dropped whole, as is any later duplicate of an id.
func Flights(v any, r *Report) []entity.Flight {
	out := []entity.Flight{}
	arr, _ := array(v)
	seen := make(map[string]struct{}, len(arr))
	for i, item := range arr {
		f, err := Flight(item)
		if err == nil {
			if _, dup := seen[f.ID]; dup {
				err = &DropError{Entity: "flight", Index: i, ID: f.ID, Reason: "duplicate id"}
			}
		}
		if err != nil {
			r.add(err, i)
			continue
		}
		seen[f.ID] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Accommodations keeps the valid accommodations of a list
func Accommodations(v any, r *Report) []entity.Accommodation {
	out := []entity.Accommodation{}
	arr, _ := array(v)
	seen := make(map[string]struct{}, len(arr))
	for i, item := range arr {
		a, err := Accommodation(item)
		if err == nil {
			if _, dup := seen[a.ID]; dup {
				err = &DropError{Entity: "accommodation", Index: i, ID: a.ID, Reason: "duplicate id"}
			}
		}
		if err != nil {
			r.add(err, i)
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out
}

// ExtraCosts accepts either a list of cost lines or the legacy single
// aggregate number. Malformed values default to 0; lines that end up with a
// blank description and a zero value are dropped.
func ExtraCosts(v any, r *Report) []entity.ExtraCost {
	out := []entity.ExtraCost{}
	if total, ok := coercible(v); ok {
		if total > 0 {
			out = append(out, entity.ExtraCost{Description: LegacyExtraCostDescription, Value: total})
		}
		return out
	}
	arr, _ := array(v)
	for i, item := range arr {
		obj, ok := object(item)
		if !ok {
			r.add(drop("extraCost", "not an object"), i)
			continue
		}
		c := entity.ExtraCost{Description: stringOr(obj, "description")}
		if value, ok := price(obj["value"]); ok {
			c.Value = value
		}
		if strings.TrimSpace(c.Description) == "" && c.Value == 0 {
			r.add(drop("extraCost", "empty"), i)
			continue
		}
		out = append(out, c)
	}
	return out
}

// MaxAssignmentCount bounds the travelers assigned to a single flight
const MaxAssignmentCount = math.MaxInt32

// FlightAssignments accepts a plain id -> count mapping. Counts are floored;
// non-numeric, non-finite, negative, zero and oversized counts are removed.
func FlightAssignments(v any, r *Report) entity.FlightAssignments {
	out := entity.FlightAssignments{}
	obj, ok := object(v)
	if !ok {
		return out
	}
	for id, raw := range obj {
		count, ok := numeric(raw)
		if !ok || count < 0 || count > MaxAssignmentCount {
			r.add(&DropError{Entity: "flightAssignment", Index: -1, ID: id, Reason: "invalid count"}, -1)
			continue
		}
		n := int(math.Floor(count))
		if n == 0 {
			continue
		}
		out[id] = n
	}
	return out
}

// FlightDraft copies the individually well-typed fields of a draft
func FlightDraft(v any) entity.FlightDraft {
	var d entity.FlightDraft
	obj, ok := object(v)
	if !ok {
		return d
	}
	d.Link = optionalString(obj, "link")
	d.Description = optionalString(obj, "description")
	d.StartDate = optionalString(obj, "startDate")
	d.EndDate = optionalString(obj, "endDate")
	d.PricePerPerson = optionalPrice(obj, "pricePerPerson")
	return d
}

// AccommodationDraft copies the individually well-typed fields of a draft
func AccommodationDraft(v any) entity.AccommodationDraft {
	var d entity.AccommodationDraft
	obj, ok := object(v)
	if !ok {
		return d
	}
	d.Link = optionalString(obj, "link")
	d.Description = optionalString(obj, "description")
	d.TotalPrice = optionalPrice(obj, "totalPrice")
	d.StartDate = optionalString(obj, "startDate")
	d.EndDate = optionalString(obj, "endDate")
	return d
}

func optionalString(obj map[string]any, key string) *string {
	s, ok := stringValue(obj[key])
	if !ok {
		return nil
	}
	return &s
}

func optionalPrice(obj map[string]any, key string) *float64 {
	f, ok := numeric(obj[key])
	if !ok || f < 0 {
		return nil
	}
	return &f
}
