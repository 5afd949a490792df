package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agrifleet/agrifleet/internal/fleet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource is an in-memory DataSource for tests.
type fakeSource struct {
	assets   []fleet.Asset
	records  []fleet.FuelRecord
	sessions []fleet.OperatingSession
	tasks    []fleet.MaintenanceTask
	items    []fleet.InventoryItem
	err      error
}

func (f *fakeSource) Assets(context.Context) ([]fleet.Asset, error) {
	return f.assets, f.err
}
func (f *fakeSource) FuelRecords(context.Context) ([]fleet.FuelRecord, error) {
	return f.records, f.err
}
func (f *fakeSource) Sessions(context.Context) ([]fleet.OperatingSession, error) {
	return f.sessions, f.err
}
func (f *fakeSource) MaintenanceTasks(context.Context) ([]fleet.MaintenanceTask, error) {
	return f.tasks, f.err
}
func (f *fakeSource) InventoryItems(context.Context) ([]fleet.InventoryItem, error) {
	return f.items, f.err
}

func waitForDone(t *testing.T, s *Service, id string) Progress {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		p, ok := s.Progress(id)
		require.True(t, ok, "job disappeared")
		if p.Stage == StageComplete || p.Stage == StageFailed {
			return p
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("export did not finish in time")
	return Progress{}
}

func testSource() *fakeSource {
	return &fakeSource{
		assets: []fleet.Asset{
			{ID: "a1", Name: "Tractor 1", Type: "tractor", Status: fleet.StatusActive},
			{ID: "a2", Name: "Forklift 1", Type: "forklift", Status: fleet.StatusActive},
		},
		records: []fleet.FuelRecord{
			{ID: "f1", AssetID: "a1", Date: time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC), Quantity: 40, PricePerLiter: 1.5, Cost: 60, FuelType: "diesel"},
			{ID: "f2", AssetID: "a2", Date: time.Date(2025, 5, 9, 0, 0, 0, 0, time.UTC), Quantity: 20, PricePerLiter: 1.5, Cost: 30, FuelType: "diesel"},
		},
		sessions: []fleet.OperatingSession{
			{ID: "s1", AssetID: "a1", SessionStart: time.Date(2025, 5, 3, 8, 0, 0, 0, time.UTC), FuelConsumed: 10, OperatingHours: 5},
		},
	}
}

func TestExportLifecycle(t *testing.T) {
	s := NewService(testSource(), 0)

	id, err := s.Start(context.Background(), KindFuelRecords, Options{Format: FormatCSV})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	p := waitForDone(t, s, id)
	assert.Equal(t, StageComplete, p.Stage)
	assert.Equal(t, 100, p.Percent)
	assert.Empty(t, p.Error)

	artifact, ok := s.Artifact(id)
	require.True(t, ok)
	assert.Contains(t, artifact.Filename, "fuel-records-")
	assert.Equal(t, "text/csv", artifact.ContentType)
	assert.Contains(t, string(artifact.Content), "Tractor 1")
}

func TestExportRejectsBadRequests(t *testing.T) {
	s := NewService(testSource(), 0)

	_, err := s.Start(context.Background(), Kind("bogus"), Options{Format: FormatCSV})
	assert.ErrorIs(t, err, ErrUnknownDataset)

	_, err = s.Start(context.Background(), KindAssets, Options{Format: Format("docx")})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = s.Start(context.Background(), KindAssets, Options{Format: FormatCSV, GroupBy: GroupBy("weather")})
	assert.ErrorIs(t, err, ErrUnknownGrouping)
}

func TestExportFailureSurfacesInProgress(t *testing.T) {
	src := testSource()
	src.err = errors.New("connection refused")
	s := NewService(src, 0)

	id, err := s.Start(context.Background(), KindAssets, Options{Format: FormatCSV})
	require.NoError(t, err)

	p := waitForDone(t, s, id)
	assert.Equal(t, StageFailed, p.Stage)
	assert.Contains(t, p.Error, "connection refused")

	_, ok := s.Artifact(id)
	assert.False(t, ok, "failed job should have no artifact")
}

func TestExportUnknownJob(t *testing.T) {
	s := NewService(testSource(), 0)
	_, ok := s.Progress("nope")
	assert.False(t, ok)
	_, ok = s.Artifact("nope")
	assert.False(t, ok)
}

func TestComprehensiveExport(t *testing.T) {
	s := NewService(testSource(), 500_000)

	id, err := s.Start(context.Background(), KindComprehensive, Options{Format: FormatCSV})
	require.NoError(t, err)
	p := waitForDone(t, s, id)
	require.Equal(t, StageComplete, p.Stage)

	artifact, ok := s.Artifact(id)
	require.True(t, ok)
	content := string(artifact.Content)
	assert.Contains(t, content, "Metric,Value")
	assert.Contains(t, content, "Total Fuel Cost,90.00")
	assert.Contains(t, content, "2025-05 consumption rate (L/H),2")
}

// ----------------------------------------------------------------------------
// Dataset mappers
// ----------------------------------------------------------------------------

func TestFuelRecordsDatasetFilters(t *testing.T) {
	src := testSource()

	opts := Options{
		Format:   FormatCSV,
		AssetIDs: []string{"a1"},
		Range: &DateRange{
			Start: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC),
		},
	}
	ds := FuelRecordsDataset(src.records, src.assets, opts)

	require.Equal(t, 1, ds.RowCount())
	row := ds.Groups[0].Rows[0]
	assert.Equal(t, "Tractor 1", row[0])
	assert.Equal(t, "2025-05-02", row[1])
	assert.Equal(t, "60.00", row[5])
	// Missing optional hours reading renders blank, not "null".
	assert.Equal(t, "", row[7])
}

func TestFuelRecordsDatasetGroupByAsset(t *testing.T) {
	src := testSource()
	ds := FuelRecordsDataset(src.records, src.assets, Options{Format: FormatCSV, GroupBy: GroupAsset})

	require.Len(t, ds.Groups, 2)
	assert.Equal(t, "Forklift 1", ds.Groups[0].Label)
	assert.Equal(t, "Tractor 1", ds.Groups[1].Label)
}

func TestMaintenanceDatasetKanbanLanes(t *testing.T) {
	due := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	tasks := []fleet.MaintenanceTask{
		{ID: "m1", AssetID: "a1", Title: "Oil change", Status: fleet.TaskDone, Priority: "low", Cost: 45, CreatedAt: due.AddDate(0, 0, -10)},
		{ID: "m2", AssetID: "a2", Title: "Brake check", Status: fleet.TaskBacklog, Priority: "high", DueDate: &due, Cost: 120, CreatedAt: due.AddDate(0, 0, -5)},
	}
	src := testSource()

	ds := MaintenanceDataset(tasks, src.assets, Options{Format: FormatCSV, GroupBy: GroupType})
	require.Len(t, ds.Groups, 2)
	assert.Equal(t, "backlog", ds.Groups[0].Label)
	assert.Equal(t, "done", ds.Groups[1].Label)
	assert.Equal(t, "2025-06-15", ds.Groups[0].Rows[0][4])
}

func TestInventoryDatasetTotals(t *testing.T) {
	items := []fleet.InventoryItem{
		{ID: "i1", Name: "Oil filter", Category: "filters", Quantity: 4, Unit: "pcs", UnitCost: 12.5, ReorderLevel: 2},
	}
	ds := InventoryDataset(items, Options{Format: FormatCSV})
	require.Equal(t, 1, ds.RowCount())
	assert.Equal(t, "50.00", ds.Groups[0].Rows[0][5])
}

func TestAssetsDatasetUnknownAssetFallsBackToID(t *testing.T) {
	records := []fleet.FuelRecord{{ID: "f1", AssetID: "ghost", Date: time.Now()}}
	ds := FuelRecordsDataset(records, nil, Options{Format: FormatCSV})
	require.Equal(t, 1, ds.RowCount())
	assert.Equal(t, "ghost", ds.Groups[0].Rows[0][0])
}
