package export

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/agrifleet/agrifleet/internal/fleet"
	"github.com/agrifleet/agrifleet/internal/kpi"
	"github.com/agrifleet/agrifleet/internal/logging"
	"github.com/google/uuid"
)

// JobTimeout is the maximum duration for a single export run.
var JobTimeout = 2 * time.Minute

// JobRetention is how long finished jobs stay available for download before
// being swept.
var JobRetention = time.Hour

// DataSource supplies the collections the exporters consume. The store
// satisfies it in production; tests supply an in-memory fake.
type DataSource interface {
	Assets(ctx context.Context) ([]fleet.Asset, error)
	FuelRecords(ctx context.Context) ([]fleet.FuelRecord, error)
	Sessions(ctx context.Context) ([]fleet.OperatingSession, error)
	MaintenanceTasks(ctx context.Context) ([]fleet.MaintenanceTask, error)
	InventoryItems(ctx context.Context) ([]fleet.InventoryItem, error)
}

// Stage labels one step of an export run. The UI polls these rather than
// subscribing to events.
type Stage string

const (
	StagePreparing  Stage = "preparing"
	StageFetching   Stage = "fetching"
	StageProcessing Stage = "processing"
	StageGenerating Stage = "generating"
	StageComplete   Stage = "complete"
	StageFailed     Stage = "failed"
)

// Progress is a point-in-time snapshot of an export job.
type Progress struct {
	Stage   Stage  `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type job struct {
	id       string
	kind     Kind
	progress Progress
	artifact *Artifact
	updated  time.Time
}

// Service runs exports asynchronously and keeps their progress and finished
// artifacts available for polling.
type Service struct {
	source         DataSource
	operatingCosts float64

	mu   sync.RWMutex
	jobs map[string]*job
}

// NewService creates an export service. operatingCosts is the configured
// denominator for the comprehensive report's fuel-cost percentage.
func NewService(source DataSource, operatingCosts float64) *Service {
	if operatingCosts == 0 {
		operatingCosts = kpi.DefaultOperatingCosts
	}
	return &Service{
		source:         source,
		operatingCosts: operatingCosts,
		jobs:           make(map[string]*job),
	}
}

// Start validates the request and launches the export in the background,
// returning the job ID to poll.
func (s *Service) Start(ctx context.Context, kind Kind, opts Options) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDataset, kind)
	}
	if !opts.Format.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, opts.Format)
	}
	if !opts.GroupBy.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownGrouping, opts.GroupBy)
	}

	j := &job{
		id:       uuid.NewString(),
		kind:     kind,
		progress: Progress{Stage: StagePreparing, Percent: 5, Message: "Preparing export"},
		updated:  time.Now(),
	}

	s.mu.Lock()
	s.sweepLocked()
	s.jobs[j.id] = j
	s.mu.Unlock()

	logger := logging.FromContext(ctx).With("export_id", j.id, "dataset", kind, "format", opts.Format)
	logger.Info("export started")

	go s.run(j, opts, logger)

	return j.id, nil
}

// Progress returns the current snapshot for a job.
func (s *Service) Progress(id string) (Progress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return Progress{}, false
	}
	return j.progress, true
}

// Artifact returns the finished artifact for a job, or false while the job
// is still running, failed, or unknown.
func (s *Service) Artifact(id string) (*Artifact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok || j.artifact == nil {
		return nil, false
	}
	return j.artifact, true
}

// run executes the export on its own context; the HTTP request that started
// it has usually completed by the time the data is fetched.
func (s *Service) run(j *job, opts Options, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), JobTimeout)
	defer cancel()

	fail := func(err error) {
		logger.Error("export failed", "error", err)
		s.update(j, Progress{Stage: StageFailed, Percent: 100, Message: "Export failed", Error: err.Error()})
	}

	s.update(j, Progress{Stage: StageFetching, Percent: 25, Message: fmt.Sprintf("Fetching %s data", j.kind)})
	snap, err := s.fetch(ctx, j.kind)
	if err != nil {
		fail(err)
		return
	}

	s.update(j, Progress{Stage: StageProcessing, Percent: 55, Message: "Processing records"})
	ds := s.shape(j.kind, snap, opts)

	s.update(j, Progress{Stage: StageGenerating, Percent: 80, Message: fmt.Sprintf("Generating %s file", opts.Format)})
	artifact, err := Build(ds, opts.Format)
	if err != nil {
		fail(err)
		return
	}

	s.mu.Lock()
	j.artifact = artifact
	s.mu.Unlock()
	s.update(j, Progress{Stage: StageComplete, Percent: 100, Message: fmt.Sprintf("Export complete: %d records", ds.RowCount())})
	logger.Info("export complete", "rows", ds.RowCount(), "bytes", len(artifact.Content), "filename", artifact.Filename)
}

// snapshot holds the collections one dataset kind needs, fetched up front so
// shaping is pure.
type snapshot struct {
	assets   []fleet.Asset
	records  []fleet.FuelRecord
	sessions []fleet.OperatingSession
	tasks    []fleet.MaintenanceTask
	items    []fleet.InventoryItem
}

// fetch loads the collections the dataset kind needs.
func (s *Service) fetch(ctx context.Context, kind Kind) (snapshot, error) {
	var snap snapshot
	var err error

	// Assets are needed everywhere for name resolution.
	if snap.assets, err = s.source.Assets(ctx); err != nil {
		return snap, fmt.Errorf("fetch assets: %w", err)
	}

	switch kind {
	case KindFuelRecords:
		if snap.records, err = s.source.FuelRecords(ctx); err != nil {
			return snap, fmt.Errorf("fetch fuel records: %w", err)
		}
	case KindMaintenance:
		if snap.tasks, err = s.source.MaintenanceTasks(ctx); err != nil {
			return snap, fmt.Errorf("fetch maintenance tasks: %w", err)
		}
	case KindInventory:
		if snap.items, err = s.source.InventoryItems(ctx); err != nil {
			return snap, fmt.Errorf("fetch inventory: %w", err)
		}
	case KindComprehensive:
		if snap.records, err = s.source.FuelRecords(ctx); err != nil {
			return snap, fmt.Errorf("fetch fuel records: %w", err)
		}
		if snap.sessions, err = s.source.Sessions(ctx); err != nil {
			return snap, fmt.Errorf("fetch sessions: %w", err)
		}
	}
	return snap, nil
}

// shape turns a snapshot into the dataset for the kind.
func (s *Service) shape(kind Kind, snap snapshot, opts Options) Dataset {
	switch kind {
	case KindFuelRecords:
		return FuelRecordsDataset(snap.records, snap.assets, opts)
	case KindMaintenance:
		return MaintenanceDataset(snap.tasks, snap.assets, opts)
	case KindInventory:
		return InventoryDataset(snap.items, opts)
	case KindComprehensive:
		calc := kpi.NewCalculator(snap.assets, snap.records, snap.sessions)
		return ComprehensiveDataset(calc.AllKPIs(s.operatingCosts))
	default:
		return AssetsDataset(snap.assets, opts)
	}
}

// update stores a new progress snapshot for the job.
func (s *Service) update(j *job, p Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j.progress = p
	j.updated = time.Now()
}

// sweepLocked drops finished jobs past retention. Caller holds mu.
func (s *Service) sweepLocked() {
	cutoff := time.Now().Add(-JobRetention)
	for id, j := range s.jobs {
		done := j.progress.Stage == StageComplete || j.progress.Stage == StageFailed
		if done && j.updated.Before(cutoff) {
			delete(s.jobs, id)
		}
	}
}

// sortedKeys returns the map's keys in ascending order for deterministic
// report sections.
func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
