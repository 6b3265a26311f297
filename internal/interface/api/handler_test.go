package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-planner-service/internal/domain/entity"
	"trip-planner-service/internal/infrastructure/router"
	repo "trip-planner-service/internal/interface/repository"
	"trip-planner-service/internal/usecase"
	"trip-planner-service/pkg/logger"
	"trip-planner-service/pkg/metrics"
)

type testServer struct {
	handler http.Handler
	store   *usecase.PlannerStore
	remote  *repo.MemoryRemoteRepository
}

func newTestServer(t *testing.T, withSync bool) *testServer {
	t.Helper()
	ctx := context.Background()
	log := logger.NewNopLogger()
	m := metrics.NewNopMetrics()
	kv := repo.NewMemoryKeyValueRepository()

	store, err := usecase.NewPlannerStore(ctx, kv, log, m)
	require.NoError(t, err)

	ts := &testServer{store: store}
	var (
		coordinator *usecase.SyncCoordinator
		monitor     *usecase.StalenessMonitor
		live        *usecase.LiveSync
	)
	if withSync {
		ts.remote = repo.NewMemoryRemoteRepository()
		coordinator, err = usecase.NewSyncCoordinator(ctx, store, kv, ts.remote, log, m, time.Second)
		require.NoError(t, err)
		monitor = usecase.NewStalenessMonitor(coordinator, log, m, time.Minute, 60)
		live = usecase.NewLiveSync(store, ts.remote, coordinator.ClientID(), log, m, time.Second)
	}

	h := NewHandler(store, coordinator, monitor, live, log)
	ts.handler = router.New(h, router.Options{Metrics: http.NotFoundHandler()}, log)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestPlannerFlow(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPut, "/api/settings", `{"totalBudget":1000,"peopleCount":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/destinations", `{"name":"Lisbon","latitude":38.7,"longitude":-9.1}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	destID := decodeBody(t, rec)["id"].(string)
	base := "/api/destinations/" + destID

	rec = ts.do(t, http.MethodPost, base+"/flights", `{"description":"TAP","pricePerPerson":100}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	flightID := decodeBody(t, rec)["id"].(string)
	assert.NotEmpty(t, flightID)

	rec = ts.do(t, http.MethodPut, base+"/assignments/"+flightID, `{"count":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, base+"/accommodations", `{"id":"hotel","totalPrice":"300"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPut, base+"/selection", `{"accommodationId":"hotel"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, base+"/budget", "")
	require.Equal(t, http.StatusOK, rec.Code)
	live := decodeBody(t, rec)["live"].(map[string]any)
	assert.Equal(t, 500.0, live["totalCost"])
	assert.Equal(t, 500.0, live["remaining"])
	assert.Equal(t, 250.0, live["perPersonTotal"])

	rec = ts.do(t, http.MethodPost, base+"/attempt", `{"name":"Plan A"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodDelete, base+"/flights/"+flightID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, base+"/budget", "")
	body := decodeBody(t, rec)
	attempt := body["attempt"].(map[string]any)
	assert.Equal(t, "Plan A", attempt["name"])
	assert.Equal(t, 300.0, attempt["totalCost"])
	assert.Equal(t, 300.0, body["live"].(map[string]any)["totalCost"])

	rec = ts.do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, ts.store.Document().Destinations)
}

func TestPlannerErrors(t *testing.T) {
	ts := newTestServer(t, false)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/destinations/missing", "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/destinations", `{"name":"Nowhere"}`).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/destinations", `[1,2]`).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/destinations", `{"name":"Pole","latitude":91,"longitude":0}`).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPut, "/api/settings", `{"peopleCount":0}`).Code)

	dest, err := ts.store.AddDestination(context.Background(), "Lisbon", 38.7, -9.1)
	require.NoError(t, err)
	base := "/api/destinations/" + dest.ID

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, base+"/flights", `{"pricePerPerson":-1}`).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPut, base+"/flights/nope", `{"pricePerPerson":1}`).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPut, base+"/selection", `{"accommodationId":"nope"}`).Code)
	assert.Equal(t, http.StatusConflict, ts.do(t, http.MethodPost, base+"/attempt/apply", "").Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPut, base+"/flights", `{"id":"f1"}`).Code)
}

func TestReplaceFlightsReportsDrops(t *testing.T) {
	ts := newTestServer(t, false)
	dest, err := ts.store.AddDestination(context.Background(), "Lisbon", 38.7, -9.1)
	require.NoError(t, err)

	rec := ts.do(t, http.MethodPut, "/api/destinations/"+dest.ID+"/flights",
		`[{"id":"f1","pricePerPerson":10},{"pricePerPerson":20},{"id":"f1","pricePerPerson":30}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Len(t, body["dropped"], 2)
	got, _ := ts.store.Destination(dest.ID)
	require.Len(t, got.Flights, 1)
	assert.Equal(t, 10.0, got.Flights[0].PricePerPerson)
}

func TestImportAndExport(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPut, "/api/document", `{
		"destinations": [
			{"id":"d1","name":"Lisbon","latitude":"38.7","longitude":-9.1,"extraCosts":120},
			{"name":"no id"}
		],
		"settings": {"totalBudget":900,"peopleCount":3}
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decodeBody(t, rec)["dropped"], 1)

	doc := ts.store.Document()
	require.Len(t, doc.Destinations, 1)
	assert.Equal(t, 3, doc.Settings.PeopleCount)
	assert.Equal(t, 120.0, doc.Destinations[0].ExtraCosts[0].Value)

	rec = ts.do(t, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Body.String(), `"Lisbon"`)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPut, "/api/document", `{"destinations":[{"bogus":1}]}`).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPut, "/api/document", `not json`).Code)
	assert.Len(t, ts.store.Document().Destinations, 1)
}

func TestSyncRoutesWithoutRemote(t *testing.T) {
	ts := newTestServer(t, false)

	for _, path := range []string{"/api/sync/pull", "/api/sync/push", "/api/sync/nudge", "/api/live/join", "/api/live/code"} {
		rec := ts.do(t, http.MethodPost, path, `{"code":"ABCDEF"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodPost, "/api/live/leave", "").Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/sync", "").Code)
}

func TestPushAndPull(t *testing.T) {
	ts := newTestServer(t, true)
	ctx := context.Background()
	_, err := ts.store.AddDestination(ctx, "Lisbon", 38.7, -9.1)
	require.NoError(t, err)

	rec := ts.do(t, http.MethodPost, "/api/sync/push", `{"code":"trip-01"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "TRIP01", decodeBody(t, rec)["code"])

	rec = ts.do(t, http.MethodGet, "/api/sync", "")
	info := decodeBody(t, rec)
	assert.Equal(t, "TRIP01", info["tripCode"])
	assert.True(t, info["available"].(bool))

	// another client overwrites the trip
	later := time.Now().Add(time.Hour).UnixMilli()
	data, err := json.Marshal(map[string]any{
		"destinations": []any{},
		"settings":     map[string]any{"totalBudget": 0, "peopleCount": 1},
		"meta":         map[string]any{"updatedAt": later, "updatedBy": "client-other"},
	})
	require.NoError(t, err)
	require.NoError(t, ts.remote.Write(ctx, usecase.TripPath("TRIP01"), data))

	rec = ts.do(t, http.MethodPost, "/api/sync/push", `{}`)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, string(usecase.StatusStaleRemoteConflict), body["kind"])
	assert.Equal(t, "client-other", body["conflict"].(map[string]any)["remoteUpdatedBy"])

	rec = ts.do(t, http.MethodPost, "/api/sync/pull", `{"code":"TRIP01"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, ts.store.Document().Destinations)

	rec = ts.do(t, http.MethodPost, "/api/sync/pull", `{"code":"NOPE"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/sync/pull", `{"code":"ab"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmedPushOverwrites(t *testing.T) {
	ts := newTestServer(t, true)
	ctx := context.Background()
	data := []byte(`{"destinations":[],"meta":{"updatedAt":99999999999999,"updatedBy":"client-other"}}`)
	require.NoError(t, ts.remote.Write(ctx, usecase.TripPath("SHARED"), data))

	// a bare confirmation is not enough
	rec := ts.do(t, http.MethodPost, "/api/sync/push", `{"code":"SHARED","confirm":true}`)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/sync/push", `{"code":"SHARED","confirmRemoteUpdatedAt":99999999999999}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 99999999999999.0+1, decodeBody(t, rec)["remoteUpdatedAt"])
}

func TestConfirmedPushRejectsNewerRemote(t *testing.T) {
	ts := newTestServer(t, true)
	ctx := context.Background()
	path := usecase.TripPath("SHARED")
	require.NoError(t, ts.remote.Write(ctx, path, []byte(`{"destinations":[],"meta":{"updatedAt":5000,"updatedBy":"client-b"}}`)))

	rec := ts.do(t, http.MethodPost, "/api/sync/push", `{"code":"SHARED"}`)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	conflict := decodeBody(t, rec)["conflict"].(map[string]any)
	assert.Equal(t, 5000.0, conflict["remoteUpdatedAt"])

	// a peer writes again before the user confirms
	peer := []byte(`{"destinations":[],"meta":{"updatedAt":9000,"updatedBy":"client-c"}}`)
	require.NoError(t, ts.remote.Write(ctx, path, peer))

	rec = ts.do(t, http.MethodPost, "/api/sync/push", `{"code":"SHARED","confirmRemoteUpdatedAt":5000}`)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, 9000.0, decodeBody(t, rec)["conflict"].(map[string]any)["remoteUpdatedAt"])

	got, err := ts.remote.Read(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, string(peer), string(got))

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/sync/push", `{"code":"SHARED","confirmRemoteUpdatedAt":"soon"}`).Code)
}

func TestAssignmentCountBounds(t *testing.T) {
	ts := newTestServer(t, false)
	ctx := context.Background()
	dest, err := ts.store.AddDestination(ctx, "Lisbon", 38.7, -9.1)
	require.NoError(t, err)
	flight, err := ts.store.AddFlight(ctx, dest.ID, entity.Flight{PricePerPerson: 10})
	require.NoError(t, err)
	path := "/api/destinations/" + dest.ID + "/assignments/" + flight.ID

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPut, path, `{"count":1e19}`).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodPut, path, `{"count":3}`).Code)

	got, _ := ts.store.Destination(dest.ID)
	assert.Equal(t, 3, got.BudgetEstimator.FlightAssignments[flight.ID])
}

func TestLiveRoutes(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, http.MethodPost, "/api/live/join", `{}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	code := decodeBody(t, rec)["code"].(string)
	assert.NotEmpty(t, code)

	rec = ts.do(t, http.MethodGet, "/api/live", "")
	assert.Equal(t, code, decodeBody(t, rec)["code"])

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/live/join", `{"code":"abc"}`).Code)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodPost, "/api/live/leave", "").Code)
	assert.Equal(t, 0, ts.remote.Subscribers(usecase.TripPath(code)))
}
