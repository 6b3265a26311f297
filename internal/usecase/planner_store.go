package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"trip-planner-service/internal/domain/budget"
	"trip-planner-service/internal/domain/entity"
	"trip-planner-service/internal/domain/normalize"
	"trip-planner-service/internal/domain/reconcile"
	"trip-planner-service/internal/domain/repository"
	"trip-planner-service/pkg/logger"
	"trip-planner-service/pkg/metrics"
	"trip-planner-service/pkg/utils"

	"github.com/tidwall/pretty"
)

// Keys of the planner document in the local key-value store
const (
	KeyDestinations = "destinations"
	KeySettings     = "settings"
)

// Origin tells subscribers where a document change came from
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginImport Origin = "import"
	OriginPull   Origin = "pull"
	OriginRemote Origin = "remote"
)

// Change is delivered to store subscribers after every committed update
type Change struct {
	Operation string
	Origin    Origin
	Document  entity.RootDocument
}

// PlannerStore owns the root document. Every mutation is a functional update
// applied under one lock, persisted, and then broadcast to subscribers.
type PlannerStore struct {
	mu          sync.Mutex
	repo        repository.KeyValueRepository
	logger      logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
	newID       func() string
	doc         entity.RootDocument
	subMu       sync.Mutex
	subscribers map[int]func(Change)
	nextSub     int
}

// StoreOption customises a PlannerStore
type StoreOption func(*PlannerStore)

// WithClock overrides the clock used for attempt timestamps
func WithClock(now func() time.Time) StoreOption {
	return func(s *PlannerStore) {
		s.now = now
	}
}

// WithIDGenerator overrides the generator used for new record ids
func WithIDGenerator(newID func() string) StoreOption {
	return func(s *PlannerStore) {
		s.newID = newID
	}
}

// NewPlannerStore creates the store and loads the persisted document.
// Unreadable or invalid persisted values fall back to an empty document.
func NewPlannerStore(ctx context.Context, repo repository.KeyValueRepository, logger logger.Logger, m *metrics.Metrics, opts ...StoreOption) (*PlannerStore, error) {
	s := &PlannerStore{
		repo:        repo,
		logger:      logger,
		metrics:     m,
		now:         time.Now,
		newID:       utils.NewID,
		doc:         entity.NewRootDocument(),
		subscribers: make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PlannerStore) load(ctx context.Context) error {
	settings := entity.DefaultSettings()
	raw, err := s.read(ctx, KeySettings)
	if err != nil {
		return err
	}
	if raw != nil {
		settings = normalize.Settings(raw, settings)
	}

	destinations := []entity.Destination{}
	raw, err = s.read(ctx, KeyDestinations)
	if err != nil {
		return err
	}
	if raw != nil {
		report := &normalize.Report{}
		list, ok := normalize.Destinations(raw, settings, report)
		if !ok {
			s.logger.Warn("Stored destinations are not a list, starting empty")
		}
		destinations = list
		s.recordDrops("local", report)
	}

	s.doc = entity.RootDocument{Destinations: destinations, Settings: settings}
	s.logger.Info("Planner document loaded", "destinations", len(destinations))
	return nil
}

// read returns the decoded value under key, or nil when absent or unparseable
func (s *PlannerStore) read(ctx context.Context, key string) (any, error) {
	data, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	v, err := normalize.Decode(data)
	if err != nil {
		s.logger.Warn("Stored value is not valid JSON, using defaults", "key", key, "error", err)
		return nil, nil
	}
	return v, nil
}

func (s *PlannerStore) recordDrops(source string, report *normalize.Report) {
	if report.Count() == 0 {
		return
	}
	s.logger.Warn("Dropped invalid records", "source", source, "count", report.Count(), "details", report.Messages())
	if s.metrics != nil {
		s.metrics.NormalizationDrops.WithLabelValues(source).Add(float64(report.Count()))
	}
}

// Document returns a copy of the current document
func (s *PlannerStore) Document() entity.RootDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Settings returns the current settings
func (s *PlannerStore) Settings() entity.PlannerSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Settings
}

// Destination returns a copy of one destination
func (s *PlannerStore) Destination(id string) (entity.Destination, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.doc.FindDestination(id)
	if i < 0 {
		return entity.Destination{}, false
	}
	return s.doc.Destinations[i].Clone(), true
}

// Budget computes the live budget snapshot of one destination
func (s *PlannerStore) Budget(id string) (budget.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.doc.FindDestination(id)
	if i < 0 {
		return budget.Snapshot{}, ErrDestinationNotFound
	}
	return budget.ForDestination(s.doc.Destinations[i], s.doc.Settings), nil
}

// Subscribe registers fn for every committed change. The returned function
// removes the subscription.
func (s *PlannerStore) Subscribe(fn func(Change)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

// Update applies fn to a copy of the document and commits the result. The
// document is left unchanged when fn or persistence fails.
func (s *PlannerStore) Update(ctx context.Context, op string, origin Origin, fn func(entity.RootDocument) (entity.RootDocument, error)) (entity.RootDocument, error) {
	s.mu.Lock()
	next, err := fn(s.doc.Clone())
	if err != nil {
		s.mu.Unlock()
		return entity.RootDocument{}, err
	}
	if err := s.persist(ctx, next); err != nil {
		s.mu.Unlock()
		s.logger.Error("Failed to persist planner document", "operation", op, "error", err)
		return entity.RootDocument{}, err
	}
	s.doc = next
	committed := next.Clone()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.DocumentMutations.WithLabelValues(op).Inc()
	}
	s.logger.Debug("Planner document updated", "operation", op, "origin", origin)
	s.broadcast(Change{Operation: op, Origin: origin, Document: committed})
	return committed, nil
}

func (s *PlannerStore) persist(ctx context.Context, doc entity.RootDocument) error {
	destinations, err := json.Marshal(doc.Destinations)
	if err != nil {
		return fmt.Errorf("failed to encode destinations: %w", err)
	}
	settings, err := json.Marshal(doc.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := s.repo.Set(ctx, KeyDestinations, destinations); err != nil {
		return fmt.Errorf("failed to save destinations: %w", err)
	}
	if err := s.repo.Set(ctx, KeySettings, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (s *PlannerStore) broadcast(change Change) {
	s.subMu.Lock()
	subscribers := make([]func(Change), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subscribers {
		fn(change)
	}
}

// updateDestination applies fn to one destination
func (s *PlannerStore) updateDestination(ctx context.Context, op, id string, fn func(entity.Destination, entity.PlannerSettings) (entity.Destination, error)) (entity.Destination, error) {
	var out entity.Destination
	_, err := s.Update(ctx, op, OriginLocal, func(doc entity.RootDocument) (entity.RootDocument, error) {
		i := doc.FindDestination(id)
		if i < 0 {
			return doc, ErrDestinationNotFound
		}
		next, err := fn(doc.Destinations[i], doc.Settings)
		if err != nil {
			return doc, err
		}
		doc.Destinations[i] = next
		out = next
		return doc, nil
	})
	if err != nil {
		return entity.Destination{}, err
	}
	return out.Clone(), nil
}

// AddDestination appends a new empty destination
func (s *PlannerStore) AddDestination(ctx context.Context, name string, latitude, longitude float64) (entity.Destination, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return entity.Destination{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !validCoordinates(latitude, longitude) {
		return entity.Destination{}, fmt.Errorf("%w: coordinates out of range", ErrInvalidInput)
	}

	dest := entity.NewDestination(s.newID(), name, latitude, longitude)
	_, err := s.Update(ctx, "add_destination", OriginLocal, func(doc entity.RootDocument) (entity.RootDocument, error) {
		doc.Destinations = append(doc.Destinations, dest)
		return doc, nil
	})
	if err != nil {
		return entity.Destination{}, err
	}
	return dest, nil
}

// DestinationPatch holds the editable scalar fields of a destination
type DestinationPatch struct {
	Name      *string
	Notes     *string
	Latitude  *float64
	Longitude *float64
}

// UpdateDestination edits a destination's scalar fields
func (s *PlannerStore) UpdateDestination(ctx context.Context, id string, patch DestinationPatch) (entity.Destination, error) {
	return s.updateDestination(ctx, "update_destination", id, func(d entity.Destination, _ entity.PlannerSettings) (entity.Destination, error) {
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return d, fmt.Errorf("%w: name is required", ErrInvalidInput)
			}
			d.Name = name
		}
		if patch.Notes != nil {
			d.Notes = *patch.Notes
		}
		lat, lon := d.Latitude, d.Longitude
		if patch.Latitude != nil {
			lat = *patch.Latitude
		}
		if patch.Longitude != nil {
			lon = *patch.Longitude
		}
		if !validCoordinates(lat, lon) {
			return d, fmt.Errorf("%w: coordinates out of range", ErrInvalidInput)
		}
		d.Latitude, d.Longitude = lat, lon
		return d, nil
	})
}

// RemoveDestination deletes a destination and everything planned for it
func (s *PlannerStore) RemoveDestination(ctx context.Context, id string) error {
	_, err := s.Update(ctx, "remove_destination", OriginLocal, func(doc entity.RootDocument) (entity.RootDocument, error) {
		i := doc.FindDestination(id)
		if i < 0 {
			return doc, ErrDestinationNotFound
		}
		doc.Destinations = append(doc.Destinations[:i], doc.Destinations[i+1:]...)
		return doc, nil
	})
	return err
}

// ReplaceFlights installs a whole new flight list
func (s *PlannerStore) ReplaceFlights(ctx context.Context, destID string, flights []entity.Flight) (entity.Destination, error) {
	return s.updateDestination(ctx, "replace_flights", destID, func(d entity.Destination, settings entity.PlannerSettings) (entity.Destination, error) {
		return reconcile.ReplaceFlights(d, flights, settings), nil
	})
}

// AddFlight appends a flight, assigning an id when it has none
func (s *PlannerStore) AddFlight(ctx context.Context, destID string, flight entity.Flight) (entity.Flight, error) {
	if flight.ID == "" {
		flight.ID = s.newID()
	}
	_, err := s.updateDestination(ctx, "add_flight", destID, func(d entity.Destination, settings entity.PlannerSettings) (entity.Destination, error) {
		if _, exists := entity.FindFlight(d.Flights, flight.ID); exists {
			return d, fmt.Errorf("%w: flight %s already exists", ErrInvalidInput, flight.ID)
		}
		return reconcile.UpsertFlight(d, flight, settings), nil
	})
	if err != nil {
		return entity.Flight{}, err
	}
	return flight, nil
}

// UpdateFlight replaces an existing flight
func (s *PlannerStore) UpdateFlight(ctx context.Context, destID string, flight entity.Flight) (entity.Destination, error) {
	return s.updateDestination(ctx, "update_flight", destID, func(d entity.Destination, settings entity.PlannerSettings) (entity.Destination, error) {
		if _, exists := entity.FindFlight(d.Flights, flight.ID); !exists {
			return d, ErrFlightNotFound
		}
		return reconcile.UpsertFlight(d, flight, settings), nil
	})
}

// RemoveFlight deletes a flight and every reference to it
func (s *PlannerStore) RemoveFlight(ctx context.Context, destID, flightID string) (entity.Destination, error) {
	return s.updateDestination(ctx, "remove_flight", destID, func(d entity.Destination, settings entity.PlannerSettings) (entity.Destination, error) {
		if _, exists := entity.FindFlight(d.Flights, flightID); !exists {
			return d, ErrFlightNotFound
		}
		return reconcile.RemoveFlight(d, flightID, settings), nil
	})
}

// DuplicateFlight copies a flight under a fresh id
func (s *PlannerStore) DuplicateFlight(ctx context.Context, destID, flightID string) (entity.Destination, error) {
	newID := s.newID()
	return s.updateDestination(ctx, "duplicate_flight", destID, func(d entity.Destination, settings entity.PlannerSettings) (entity.Destination, error) {
		out, ok := reconcile.DuplicateFlight(d, flightID, newID, settings)
		if !ok {
			return d, ErrFlightNotFound
		}
		return out, nil
	})
}

// ReplaceAccommodations installs a whole new accommodation list
func (s *PlannerStore) ReplaceAccommodations(ctx context.Context, destID string, accommodations []entity.Accommodation) (entity.Destination, error) {
	return s.updateDestination(ctx, "replace_accommodations", destID, func(d entity.Destination, settings entity.PlannerSettings) (entity.Destination, error) {
		return reconcile.ReplaceAccommodations(d, accommodations, settings), nil
	})
}

// AddAccommodation appends an accommodation, assigning an id when it has none
func (s *PlannerStore) AddAccommodation(ctx context.Context, destID string, acc entity.Accommodation) (entity.Accommodation, error) {
	if acc.ID == "" {
		acc.ID = s.newID()
	}
	_, err := s.updateDestination(ctx, "add_accommodation", destID, func(d entity.Destination, settings entity.PlannerSettings) (entity.Destination, error) {
		if _, exists := entity.FindAccommodation(d.Accommodations, acc.ID); exists {
			return d, fmt.Errorf("%w: accommodation %s already exists", ErrInvalidInput, acc.ID)
		}
		return reconcile.UpsertAccommodation(d, acc, settings), nil
	})
	if err != nil {
		return entity.Accommodation{}, err
	}
	return acc, nil
}

// UpdateAccommodation replaces an existing accommodation
func (s *PlannerStore) UpdateAccommodation(ctx context.Context, destID string, acc entity.Accommodation) (entity.Destination, error) {
	return s.updateDestination(ctx, "update_accommodation", destID, func(d entity.Destination, settings entity.PlannerSettings) (entity.Destination, error) {
		if _, exists := entity.FindAccommodation(d.Accommodations, acc.ID); !exists {
			return d, ErrAccommodationNotFound
		}
		return reconcile.UpsertAccommodation(d, acc, settings), nil
	})
}

// RemoveAccommodation deletes an accommodation and clears selections of it
func (s *PlannerStore) RemoveAccommodation(ctx context.Context, destID, accID string) (entity.Destination, error) {
	return s.updateDestination(ctx, "remove_accommodation", destID, func(d entity.Destination, settings entity.PlannerSettings) (entity.Destination, error) {
		if _, exists := entity.FindAccommodation(d.Accommodations, accID); !exists {
			return d, ErrAccommodationNotFound
		}
		return reconcile.RemoveAccommodation(d, accID, settings), nil
	})
}

// DuplicateAccommodation copies an accommodation under a fresh id
func (s *PlannerStore) DuplicateAccommodation(ctx context.Context, destID, accID string) (entity.Destination, error) {
	newID := s.newID()
	return s.updateDestination(ctx, "duplicate_accommodation", destID, func(d entity.Destination, settings entity.PlannerSettings) (entity.Destination, error) {
		out, ok := reconcile.DuplicateAccommodation(d, accID, newID, settings)
		if !ok {
			return d, ErrAccommodationNotFound
		}
		return out, nil
	})
}

// SetExtraCosts replaces a destination's extra costs
func (s *PlannerStore) SetExtraCosts(ctx context.Context, destID string, costs []entity.ExtraCost) (entity.Destination, error) {
	return s.updateDestination(ctx, "set_extra_costs", destID, func(d entity.Destination, _ entity.PlannerSettings) (entity.Destination, error) {
		d.ExtraCosts = append([]entity.ExtraCost{}, costs...)
		return d, nil
	})
}

// SetAssignment sets how many travelers take a flight
func (s *PlannerStore) SetAssignment(ctx context.Context, destID, flightID string, count int) (entity.Destination, error) {
	if count > normalize.MaxAssignmentCount {
		return entity.Destination{}, fmt.Errorf("%w: at most %d travelers per flight", ErrInvalidInput, normalize.MaxAssignmentCount)
	}
	return s.updateDestination(ctx, "set_assignment", destID, func(d entity.Destination, _ entity.PlannerSettings) (entity.Destination, error) {
		if _, exists := entity.FindFlight(d.Flights, flightID); !exists {
			return d, ErrFlightNotFound
		}
		return reconcile.SetAssignment(d, flightID, count), nil
	})
}

// SelectAccommodation sets the live accommodation selection. An empty id
// clears it.
func (s *PlannerStore) SelectAccommodation(ctx context.Context, destID, accID string) (entity.Destination, error) {
	return s.updateDestination(ctx, "select_accommodation", destID, func(d entity.Destination, _ entity.PlannerSettings) (entity.Destination, error) {
		if accID != "" {
			if _, exists := entity.FindAccommodation(d.Accommodations, accID); !exists {
				return d, ErrAccommodationNotFound
			}
		}
		return reconcile.SelectAccommodation(d, accID), nil
	})
}

// SaveAttempt saves the live selection as the destination's attempt. It is a
// no-op when an attempt is already saved.
func (s *PlannerStore) SaveAttempt(ctx context.Context, destID, name string) (entity.Destination, error) {
	id := s.newID()
	now := s.now()
	return s.updateDestination(ctx, "save_attempt", destID, func(d entity.Destination, settings entity.PlannerSettings) (entity.Destination, error) {
		return reconcile.SaveAttempt(d, id, name, now, settings), nil
	})
}

// ClearAttempt removes the saved attempt
func (s *PlannerStore) ClearAttempt(ctx context.Context, destID string) (entity.Destination, error) {
	return s.updateDestination(ctx, "clear_attempt", destID, func(d entity.Destination, _ entity.PlannerSettings) (entity.Destination, error) {
		return reconcile.ClearAttempt(d), nil
	})
}

// OverrideAttempt replaces the saved attempt with the live selection
func (s *PlannerStore) OverrideAttempt(ctx context.Context, destID, name string) (entity.Destination, error) {
	now := s.now()
	return s.updateDestination(ctx, "override_attempt", destID, func(d entity.Destination, settings entity.PlannerSettings) (entity.Destination, error) {
		out, ok := reconcile.OverrideAttempt(d, name, now, settings)
		if !ok {
			return d, ErrNoAttempt
		}
		return out, nil
	})
}

// ApplyAttempt copies the saved selection back into the live estimator
func (s *PlannerStore) ApplyAttempt(ctx context.Context, destID string) (entity.Destination, error) {
	return s.updateDestination(ctx, "apply_attempt", destID, func(d entity.Destination, _ entity.PlannerSettings) (entity.Destination, error) {
		out, ok := reconcile.ApplyAttempt(d)
		if !ok {
			return d, ErrNoAttempt
		}
		return out, nil
	})
}

// SetFlightDraft stores the in-progress flight form
func (s *PlannerStore) SetFlightDraft(ctx context.Context, destID string, draft entity.FlightDraft) (entity.Destination, error) {
	return s.updateDestination(ctx, "set_flight_draft", destID, func(d entity.Destination, _ entity.PlannerSettings) (entity.Destination, error) {
		d.FlightDraft = draft
		return d, nil
	})
}

// SetAccommodationDraft stores the in-progress accommodation form
func (s *PlannerStore) SetAccommodationDraft(ctx context.Context, destID string, draft entity.AccommodationDraft) (entity.Destination, error) {
	return s.updateDestination(ctx, "set_accommodation_draft", destID, func(d entity.Destination, _ entity.PlannerSettings) (entity.Destination, error) {
		d.AccommodationDraft = draft
		return d, nil
	})
}

// UpdateSettings replaces the settings. Saved attempts keep their frozen totals.
func (s *PlannerStore) UpdateSettings(ctx context.Context, settings entity.PlannerSettings) (entity.PlannerSettings, error) {
	if settings.TotalBudget < 0 || math.IsNaN(settings.TotalBudget) || math.IsInf(settings.TotalBudget, 0) {
		return entity.PlannerSettings{}, fmt.Errorf("%w: total budget must be a finite number >= 0", ErrInvalidInput)
	}
	if settings.PeopleCount < 1 {
		return entity.PlannerSettings{}, fmt.Errorf("%w: people count must be at least 1", ErrInvalidInput)
	}
	doc, err := s.Update(ctx, "update_settings", OriginLocal, func(doc entity.RootDocument) (entity.RootDocument, error) {
		doc.Settings = settings
		return doc, nil
	})
	if err != nil {
		return entity.PlannerSettings{}, err
	}
	return doc.Settings, nil
}

// ReplaceDocument swaps in a whole document that was already normalized
func (s *PlannerStore) ReplaceDocument(ctx context.Context, next entity.RootDocument, origin Origin) (entity.RootDocument, error) {
	next = next.Clone()
	return s.Update(ctx, "replace_document", origin, func(entity.RootDocument) (entity.RootDocument, error) {
		return next, nil
	})
}

// Import validates a raw JSON document and replaces the current one with it
func (s *PlannerStore) Import(ctx context.Context, data []byte) (entity.RootDocument, *normalize.Report, error) {
	v, err := normalize.Decode(data)
	if err != nil {
		return entity.RootDocument{}, nil, fmt.Errorf("%w: %v", normalize.ErrInvalidPayload, err)
	}
	report := &normalize.Report{}
	doc, err := normalize.Payload(v, s.Settings(), report)
	if err != nil {
		return entity.RootDocument{}, report, err
	}
	s.recordDrops("import", report)

	doc, err = s.ReplaceDocument(ctx, doc, OriginImport)
	if err != nil {
		return entity.RootDocument{}, report, err
	}
	return doc, report, nil
}

// Export renders the current document as indented JSON
func (s *PlannerStore) Export() ([]byte, error) {
	data, err := json.Marshal(s.Document())
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return pretty.Pretty(data), nil
}

func validCoordinates(latitude, longitude float64) bool {
	if math.IsNaN(latitude) || math.IsNaN(longitude) {
		return false
	}
	return math.Abs(latitude) <= 90 && math.Abs(longitude) <= 180
}
