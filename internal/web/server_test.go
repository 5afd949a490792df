package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agrifleet/agrifleet/internal/auth"
	"github.com/agrifleet/agrifleet/internal/config"
	"github.com/agrifleet/agrifleet/internal/export"
	"github.com/agrifleet/agrifleet/internal/fleet"
	"github.com/agrifleet/agrifleet/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store for handler tests. It also satisfies
// export.DataSource, so the export service can run against it directly.
type fakeStore struct {
	mu       sync.Mutex
	assets   []fleet.Asset
	records  []fleet.FuelRecord
	sessions []fleet.OperatingSession
	tasks    []fleet.MaintenanceTask
	items    []fleet.InventoryItem
	users    map[string]fleet.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]fleet.User)}
}

func (f *fakeStore) Assets(ctx context.Context) ([]fleet.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fleet.Asset(nil), f.assets...), nil
}

func (f *fakeStore) Asset(ctx context.Context, id string) (fleet.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assets {
		if a.ID == id {
			return a, nil
		}
	}
	return fleet.Asset{}, store.ErrNotFound
}

func (f *fakeStore) CreateAsset(ctx context.Context, a fleet.Asset) (fleet.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = uuid.NewString()
	if a.Status == "" {
		a.Status = fleet.StatusActive
	}
	f.assets = append(f.assets, a)
	return a, nil
}

func (f *fakeStore) UpdateAsset(ctx context.Context, a fleet.Asset) (fleet.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.assets {
		if f.assets[i].ID == a.ID {
			f.assets[i] = a
			return a, nil
		}
	}
	return fleet.Asset{}, store.ErrNotFound
}

func (f *fakeStore) DeleteAsset(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.assets {
		if f.assets[i].ID == id {
			f.assets = append(f.assets[:i], f.assets[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) FuelRecords(ctx context.Context) ([]fleet.FuelRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fleet.FuelRecord(nil), f.records...), nil
}

func (f *fakeStore) CreateFuelRecord(ctx context.Context, r fleet.FuelRecord) (fleet.FuelRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = uuid.NewString()
	f.records = append(f.records, r)
	return r, nil
}

func (f *fakeStore) DeleteFuelRecord(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.records {
		if f.records[i].ID == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) Sessions(ctx context.Context) ([]fleet.OperatingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fleet.OperatingSession(nil), f.sessions...), nil
}

func (f *fakeStore) CreateSession(ctx context.Context, s fleet.OperatingSession) (fleet.OperatingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = uuid.NewString()
	f.sessions = append(f.sessions, s)
	return s, nil
}

func (f *fakeStore) CloseSession(ctx context.Context, id string, end time.Time, fuelConsumed float64) (fleet.OperatingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sessions {
		if f.sessions[i].ID == id && f.sessions[i].SessionEnd == nil {
			f.sessions[i].SessionEnd = &end
			f.sessions[i].FuelConsumed = fuelConsumed
			f.sessions[i].OperatingHours = end.Sub(f.sessions[i].SessionStart).Hours()
			return f.sessions[i], nil
		}
	}
	return fleet.OperatingSession{}, store.ErrNotFound
}

func (f *fakeStore) DeleteSession(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sessions {
		if f.sessions[i].ID == id {
			f.sessions = append(f.sessions[:i], f.sessions[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) MaintenanceTasks(ctx context.Context) ([]fleet.MaintenanceTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fleet.MaintenanceTask(nil), f.tasks...), nil
}

func (f *fakeStore) CreateMaintenanceTask(ctx context.Context, t fleet.MaintenanceTask) (fleet.MaintenanceTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = uuid.NewString()
	if t.Status == "" {
		t.Status = fleet.TaskBacklog
	}
	f.tasks = append(f.tasks, t)
	return t, nil
}

func (f *fakeStore) UpdateMaintenanceTask(ctx context.Context, t fleet.MaintenanceTask) (fleet.MaintenanceTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == t.ID {
			f.tasks[i] = t
			return t, nil
		}
	}
	return fleet.MaintenanceTask{}, store.ErrNotFound
}

func (f *fakeStore) MoveMaintenanceTask(ctx context.Context, id string, status fleet.TaskStatus) (fleet.MaintenanceTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i].Status = status
			return f.tasks[i], nil
		}
	}
	return fleet.MaintenanceTask{}, store.ErrNotFound
}

func (f *fakeStore) DeleteMaintenanceTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) InventoryItems(ctx context.Context) ([]fleet.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fleet.InventoryItem(nil), f.items...), nil
}

func (f *fakeStore) CreateInventoryItem(ctx context.Context, it fleet.InventoryItem) (fleet.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it.ID = uuid.NewString()
	f.items = append(f.items, it)
	return it, nil
}

func (f *fakeStore) UpdateInventoryItem(ctx context.Context, it fleet.InventoryItem) (fleet.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == it.ID {
			f.items[i] = it
			return it, nil
		}
	}
	return fleet.InventoryItem{}, store.ErrNotFound
}

func (f *fakeStore) DeleteInventoryItem(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) UserByUsername(ctx context.Context, username string) (fleet.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return fleet.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) CreateUser(ctx context.Context, u fleet.User) (fleet.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = uuid.NewString()
	if u.Role == "" {
		u.Role = fleet.RoleOperator
	}
	u.CreatedAt = time.Now()
	f.users[u.Username] = u
	return u, nil
}

// ---
// Test harness
// ---

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.RequestTimeout = 10 * time.Second
	cfg.Rate.Enabled = false
	cfg.KPI.DefaultOperatingCosts = 1_000_000
	return cfg
}

func newTestServer(t *testing.T) (*Server, *fakeStore) {
	t.Helper()
	fs := newFakeStore()
	authSvc, err := auth.NewService("test-secret-value", time.Hour)
	require.NoError(t, err)
	exports := export.NewService(fs, 1_000_000)
	return NewServer(fs, exports, authSvc, testConfig()), fs
}

// doJSON performs a request against the router and returns the recorder.
func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func registerUser(t *testing.T, s *Server) string {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "testoperator",
		"password": "longenoughpw",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp authResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

// ---
// Auth
// ---

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestRegisterAndLogin(t *testing.T) {
	s, _ := newTestServer(t)
	registerUser(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "testoperator",
		"password": "longenoughpw",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp authResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "testoperator", resp.User.Username)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestRegisterDuplicateUsername(t *testing.T) {
	s, _ := newTestServer(t)
	registerUser(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "testoperator",
		"password": "longenoughpw",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	s, _ := newTestServer(t)
	registerUser(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "testoperator",
		"password": "wrongpassword",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateStoresClaims(t *testing.T) {
	s, _ := newTestServer(t)
	token := registerUser(t, s)

	var got *auth.Claims
	handler := s.authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = claimsFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "testoperator", got.Username)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/assets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/assets", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ---
// Assets
// ---

func TestAssetCRUD(t *testing.T) {
	s, _ := newTestServer(t)
	token := registerUser(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/assets", token, map[string]any{
		"name": "Tractor 1", "type": "Tractor", "fuel_type": "diesel",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created fleet.Asset
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, fleet.StatusActive, created.Status)

	rec = doJSON(t, s, http.MethodGet, "/api/assets/"+created.ID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	created.Status = fleet.StatusMaintenance
	rec = doJSON(t, s, http.MethodPut, "/api/assets/"+created.ID, token, created)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodDelete, "/api/assets/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/assets/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateAssetValidation(t *testing.T) {
	s, _ := newTestServer(t)
	token := registerUser(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/assets", token, map[string]any{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/assets", token, map[string]any{
		"name": "Loader", "status": "exploded",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---
// Fuel records
// ---

func TestCreateFuelRecordValidation(t *testing.T) {
	s, _ := newTestServer(t)
	token := registerUser(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/fuel-records", token, map[string]any{
		"asset_id": "", "quantity": 10,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/fuel-records", token, map[string]any{
		"asset_id": "a1", "quantity": 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamFuelRecordsCSV(t *testing.T) {
	s, fs := newTestServer(t)
	token := registerUser(t, s)

	fs.assets = []fleet.Asset{{ID: "a1", Name: "Tractor 1"}}
	fs.records = []fleet.FuelRecord{{
		ID:            "r1",
		AssetID:       "a1",
		Date:          time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC),
		Quantity:      40,
		PricePerLiter: 1.5,
		Cost:          60,
	}}

	rec := doJSON(t, s, http.MethodGet, "/api/fuel-records/export.csv", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "fuel-records-")

	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Asset")
	assert.Contains(t, lines[1], "Tractor 1")
	assert.Contains(t, lines[1], "2025-05-10")
	assert.Contains(t, lines[1], "60.00")
}

// ---
// Sessions
// ---

func TestSessionLifecycle(t *testing.T) {
	s, _ := newTestServer(t)
	token := registerUser(t, s)

	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	rec := doJSON(t, s, http.MethodPost, "/api/sessions", token, map[string]any{
		"asset_id": "a1", "session_start": start,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var session fleet.OperatingSession
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&session))

	end := start.Add(5 * time.Hour)
	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/sessions/%s/close", session.ID), token, map[string]any{
		"session_end": end, "fuel_consumed": 10.0,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var closed fleet.OperatingSession
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&closed))
	require.NotNil(t, closed.SessionEnd)
	assert.InDelta(t, 5.0, closed.OperatingHours, 1e-9)
	assert.Equal(t, 10.0, closed.FuelConsumed)
}

func TestCreateSessionRejectsBackwardsEnd(t *testing.T) {
	s, _ := newTestServer(t)
	token := registerUser(t, s)

	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	rec := doJSON(t, s, http.MethodPost, "/api/sessions", token, map[string]any{
		"asset_id": "a1", "session_start": start, "session_end": end,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---
// Maintenance
// ---

func TestMaintenanceKanbanMove(t *testing.T) {
	s, _ := newTestServer(t)
	token := registerUser(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/maintenance", token, map[string]any{
		"title": "Oil change", "asset_id": "a1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var task fleet.MaintenanceTask
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&task))
	assert.Equal(t, fleet.TaskBacklog, task.Status)

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/maintenance/%s/status", task.ID), token, map[string]any{
		"status": "in_progress",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var moved fleet.MaintenanceTask
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&moved))
	assert.Equal(t, fleet.TaskInProgress, moved.Status)

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/maintenance/%s/status", task.ID), token, map[string]any{
		"status": "sideways",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---
// KPI
// ---

func TestFuelKPIEndpoint(t *testing.T) {
	s, fs := newTestServer(t)
	token := registerUser(t, s)

	fs.assets = []fleet.Asset{{ID: "a1", Name: "Tractor 1", Type: "Tractor"}}
	fs.records = []fleet.FuelRecord{{ID: "r1", AssetID: "a1", Date: time.Now(), Quantity: 40, Cost: 60}}
	end := time.Now()
	fs.sessions = []fleet.OperatingSession{{
		ID: "s1", AssetID: "a1",
		SessionStart: end.Add(-5 * time.Hour), SessionEnd: &end,
		FuelConsumed: 10, OperatingHours: 5,
	}}

	rec := doJSON(t, s, http.MethodGet, "/api/kpi/fuel", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report struct {
		Consumption struct {
			AverageFleetConsumption float64 `json:"average_fleet_consumption"`
		} `json:"consumption"`
		TotalFuelCost float64 `json:"total_fuel_cost"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.InDelta(t, 2.0, report.Consumption.AverageFleetConsumption, 1e-9)
	assert.InDelta(t, 60.0, report.TotalFuelCost, 1e-9)
}

func TestFuelKPIRejectsBadOperatingCosts(t *testing.T) {
	s, _ := newTestServer(t)
	token := registerUser(t, s)

	rec := doJSON(t, s, http.MethodGet, "/api/kpi/fuel?operating_costs=-5", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/kpi/fuel?operating_costs=abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---
// Export
// ---

func TestExportLifecycleOverHTTP(t *testing.T) {
	s, fs := newTestServer(t)
	token := registerUser(t, s)

	fs.assets = []fleet.Asset{{ID: "a1", Name: "Tractor 1"}}
	fs.records = []fleet.FuelRecord{{
		ID: "r1", AssetID: "a1",
		Date: time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC),
		Quantity: 40, Cost: 60,
	}}

	rec := doJSON(t, s, http.MethodPost, "/api/export/fuel-records", token, map[string]any{
		"format": "csv",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var started startExportResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&started))
	require.NotEmpty(t, started.ID)

	deadline := time.Now().Add(5 * time.Second)
	var progress export.Progress
	for {
		rec = doJSON(t, s, http.MethodGet, "/api/export/"+started.ID+"/progress", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&progress))
		if progress.Stage == export.StageComplete || progress.Stage == export.StageFailed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("export did not finish, last stage %q", progress.Stage)
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, export.StageComplete, progress.Stage)

	rec = doJSON(t, s, http.MethodGet, "/api/export/"+started.ID+"/download", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Tractor 1")
}

func TestExportRejectsBadRequests(t *testing.T) {
	s, _ := newTestServer(t)
	token := registerUser(t, s)

	rec := doJSON(t, s, http.MethodPost, "/api/export/unknown-dataset", token, map[string]any{"format": "csv"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/export/fuel-records", token, map[string]any{"format": "docx"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/export/"+uuid.NewString()+"/progress", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/export/"+uuid.NewString()+"/download", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
