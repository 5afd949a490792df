// Package fleet defines the domain model for the farm fleet:
// assets, fuel records, operating sessions, maintenance tasks, and
// inventory. This package has no UI or transport dependencies and can
// be used by any frontend.
package fleet

import "time"

// AssetStatus is the lifecycle state of a tracked asset.
type AssetStatus string

const (
	StatusActive       AssetStatus = "active"
	StatusMaintenance  AssetStatus = "maintenance"
	StatusRetired      AssetStatus = "retired"
	StatusOutOfService AssetStatus = "out_of_service"
)

// ValidAssetStatus reports whether s is one of the known asset statuses.
func ValidAssetStatus(s AssetStatus) bool {
	switch s {
	case StatusActive, StatusMaintenance, StatusRetired, StatusOutOfService:
		return true
	}
	return false
}

// Asset is a tracked piece of equipment (tractor, forklift, generator, ...).
// CurrentHours is the cumulative meter reading; it is rolled forward when a
// fuel record or operating session carries a newer reading.
type Asset struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Type         string      `json:"type"`
	Status       AssetStatus `json:"status"`
	CurrentHours float64     `json:"current_hours"`
	FuelCapacity float64     `json:"fuel_capacity"`
	FuelType     string      `json:"fuel_type"`
	Location     string      `json:"location"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// FuelRecord is a point-in-time fuel purchase/fill event tied to an asset.
// Cost is expected to be roughly Quantity * PricePerLiter; the invariant is
// displayed, not enforced.
type FuelRecord struct {
	ID              string    `json:"id"`
	AssetID         string    `json:"asset_id"`
	Date            time.Time `json:"date"`
	Quantity        float64   `json:"quantity"`
	PricePerLiter   float64   `json:"price_per_liter"`
	Cost            float64   `json:"cost"`
	FuelType        string    `json:"fuel_type"`
	Location        string    `json:"location"`
	CurrentHours    *float64  `json:"current_hours,omitempty"`
	PreviousHours   *float64  `json:"previous_hours,omitempty"`
	ConsumptionRate *float64  `json:"consumption_rate,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// OperatingSession is a bounded interval during which an asset was in use.
// SessionEnd is nil while the session is ongoing. OperatingHours is derived
// from (SessionEnd - SessionStart) when both are present.
type OperatingSession struct {
	ID               string     `json:"id"`
	AssetID          string     `json:"asset_id"`
	SessionStart     time.Time  `json:"session_start"`
	SessionEnd       *time.Time `json:"session_end,omitempty"`
	FuelConsumed     float64    `json:"fuel_consumed"`
	OperatingHours   float64    `json:"operating_hours"`
	EfficiencyRating float64    `json:"efficiency_rating"`
	TaskType         string     `json:"task_type"`
	Operator         string     `json:"operator"`
	CreatedAt        time.Time  `json:"created_at"`
}

// DerivedHours returns the operating hours implied by the session interval,
// or 0 when the session is still open.
func (s OperatingSession) DerivedHours() float64 {
	if s.SessionEnd == nil {
		return 0
	}
	h := s.SessionEnd.Sub(s.SessionStart).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// TaskStatus is a column on the job/repair kanban board.
type TaskStatus string

const (
	TaskBacklog    TaskStatus = "backlog"
	TaskScheduled  TaskStatus = "scheduled"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// ValidTaskStatus reports whether s is one of the kanban columns.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskBacklog, TaskScheduled, TaskInProgress, TaskDone:
		return true
	}
	return false
}

// MaintenanceTask is a job/repair card on the kanban board.
type MaintenanceTask struct {
	ID          string     `json:"id"`
	AssetID     string     `json:"asset_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Cost        float64    `json:"cost"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// InventoryItem is a stocked part or consumable.
type InventoryItem struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Quantity     float64   `json:"quantity"`
	Unit         string    `json:"unit"`
	UnitCost     float64   `json:"unit_cost"`
	Location     string    `json:"location"`
	ReorderLevel float64   `json:"reorder_level"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Role is an access level for API users.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleOperator Role = "operator"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleManager, RoleOperator:
		return true
	}
	return false
}

// User is an API account. PasswordHash is a bcrypt hash and is never
// serialized.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
