// Package normalize turns untrusted JSON values (local storage, remote
// documents, imported files) into well-typed, invariant-respecting records.
//
// Every decoder takes the generic value produced by encoding/json and either
// returns a valid record or rejects it with a *DropError. List normalizers keep
// the valid elements and record rejections in an optional *Report. Nothing in
// this package panics, logs or performs I/O.
package normalize

import (
	"errors"
	"fmt"
)

// ErrInvalidPayload is returned when a whole document must be rejected
var ErrInvalidPayload = errors.New("invalid payload")

// DropError describes a record rejected during normalization
type DropError struct {
	Entity string
	Index  int
	ID     string
	Reason string
}

func (e *DropError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %q dropped: %s", e.Entity, e.ID, e.Reason)
	}
	return fmt.Sprintf("%s #%d dropped: %s", e.Entity, e.Index, e.Reason)
}

func drop(entity, reason string) *DropError {
	return &DropError{Entity: entity, Index: -1, Reason: reason}
}

// Report collects the records dropped while normalizing a value.
// A nil *Report is valid and discards everything.
type Report struct {
	Dropped []DropError
}

func (r *Report) add(err error, index int) {
	if r == nil || err == nil {
		return
	}
	var de *DropError
	if !errors.As(err, &de) {
		de = drop("value", err.Error())
	}
	entry := *de
	if entry.Index < 0 {
		entry.Index = index
	}
	r.Dropped = append(r.Dropped, entry)
}

// Count returns the number of dropped records
func (r *Report) Count() int {
	if r == nil {
		return 0
	}
	return len(r.Dropped)
}

// Messages renders the dropped records for logs and status messages
func (r *Report) Messages() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Dropped))
	for i := range r.Dropped {
		out = append(out, r.Dropped[i].Error())
	}
	return out
}
