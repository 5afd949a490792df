// Package kpi computes fuel key-performance indicators over in-memory fleet
// collections: consumption rates, cost ratios, task/operator breakdowns, and
// monthly trend series.
//
// The calculator is pure. It holds read-only snapshots of the assets, fuel
// records, and operating sessions handed to it at construction, performs no
// I/O, and never errors: every rate computation guards its denominator and
// yields 0 rather than dividing by zero. Calling any operation twice on the
// same snapshot yields identical results.
package kpi

import (
	"sort"

	"github.com/agrifleet/agrifleet/internal/fleet"
)

// DefaultOperatingCosts is the fallback denominator for the fuel-cost
// percentage when the caller supplies none. It is a placeholder figure;
// deployments configure the real one (KPI_DEFAULT_OPERATING_COSTS).
const DefaultOperatingCosts = 1_000_000

// Calculator derives fuel KPIs from fleet data snapshots.
type Calculator struct {
	assets   []fleet.Asset
	records  []fleet.FuelRecord
	sessions []fleet.OperatingSession
}

// NewCalculator creates a Calculator over the given snapshots.
// The slices are not copied; callers must not mutate them while the
// calculator is in use.
func NewCalculator(assets []fleet.Asset, records []fleet.FuelRecord, sessions []fleet.OperatingSession) *Calculator {
	return &Calculator{assets: assets, records: records, sessions: sessions}
}

// MonthlyTrend is one bucket of the monthly consumption series.
// Month is "YYYY-MM", so lexicographic order is chronological order.
type MonthlyTrend struct {
	Month           string  `json:"month"`
	FuelConsumed    float64 `json:"fuel_consumed"`
	OperatingHours  float64 `json:"operating_hours"`
	ConsumptionRate float64 `json:"consumption_rate"`
	FuelCost        float64 `json:"fuel_cost"`
}

// ConsumptionKPI groups the consumption-side indicators.
type ConsumptionKPI struct {
	FuelConsumptionRate     float64            `json:"fuel_consumption_rate"`
	AverageFleetConsumption float64            `json:"average_fleet_consumption"`
	EquipmentTypeAverages   map[string]float64 `json:"equipment_type_averages"`
}

// CostKPI groups the cost-side indicators.
type CostKPI struct {
	FuelCostPerHour        float64 `json:"fuel_cost_per_hour"`
	TotalEquipmentFuelCost float64 `json:"total_equipment_fuel_cost"`
	FuelCostPercentage     float64 `json:"fuel_cost_percentage"`
}

// PerformanceKPI groups the breakdown indicators.
type PerformanceKPI struct {
	TaskSpecificConsumption map[string]float64 `json:"task_specific_consumption"`
	OperatorEfficiency      map[string]float64 `json:"operator_efficiency"`
	MonthlyTrends           []MonthlyTrend     `json:"monthly_trends"`
}

// Comprehensive is the full KPI report, recomputed from scratch on every
// request. It is never persisted.
type Comprehensive struct {
	Consumption         ConsumptionKPI `json:"consumption"`
	Cost                CostKPI        `json:"cost"`
	Performance         PerformanceKPI `json:"performance"`
	TotalOperatingHours float64        `json:"total_operating_hours"`
	TotalFuelConsumed   float64        `json:"total_fuel_consumed"`
	TotalFuelCost       float64        `json:"total_fuel_cost"`
}

// rate divides fuel by hours, guarding the zero denominator.
func rate(fuel, hours float64) float64 {
	if hours == 0 {
		return 0
	}
	return fuel / hours
}

// ConsumptionRate returns liters per hour across the sessions of one asset,
// or across the whole fleet when assetID is empty.
func (c *Calculator) ConsumptionRate(assetID string) float64 {
	var fuel, hours float64
	for _, s := range c.sessions {
		if assetID != "" && s.AssetID != assetID {
			continue
		}
		fuel += s.FuelConsumed
		hours += s.OperatingHours
	}
	return rate(fuel, hours)
}

// AverageFleetConsumption is the fleet-wide consumption rate. It equals
// ConsumptionRate("") and exists as its own operation so the KPI report
// names it explicitly.
func (c *Calculator) AverageFleetConsumption() float64 {
	return c.ConsumptionRate("")
}

// EquipmentTypeAverages returns the consumption rate per asset type.
// Sessions are joined to assets on Asset.ID = Session.AssetID; the type
// string is used as-is, case-sensitive. Assets with no sessions report 0.
func (c *Calculator) EquipmentTypeAverages() map[string]float64 {
	assetType := make(map[string]string, len(c.assets))
	for _, a := range c.assets {
		assetType[a.ID] = a.Type
	}

	type bucket struct{ fuel, hours float64 }
	buckets := make(map[string]*bucket)
	for _, a := range c.assets {
		if _, ok := buckets[a.Type]; !ok {
			buckets[a.Type] = &bucket{}
		}
	}
	for _, s := range c.sessions {
		typ, ok := assetType[s.AssetID]
		if !ok {
			continue
		}
		b := buckets[typ]
		b.fuel += s.FuelConsumed
		b.hours += s.OperatingHours
	}

	averages := make(map[string]float64, len(buckets))
	for typ, b := range buckets {
		averages[typ] = rate(b.fuel, b.hours)
	}
	return averages
}

// averageFuelPrice is total fuel spend divided by total liters purchased,
// 0 when nothing was purchased.
func (c *Calculator) averageFuelPrice() float64 {
	var cost, quantity float64
	for _, r := range c.records {
		cost += r.Cost
		quantity += r.Quantity
	}
	return rate(cost, quantity)
}

// FuelCostPerHour is the consumption rate multiplied by the average fuel
// price, for one asset or the whole fleet when assetID is empty.
func (c *Calculator) FuelCostPerHour(assetID string) float64 {
	return c.ConsumptionRate(assetID) * c.averageFuelPrice()
}

// TotalFuelCost sums fuel record costs, filtered by asset when assetID is
// non-empty.
func (c *Calculator) TotalFuelCost(assetID string) float64 {
	var total float64
	for _, r := range c.records {
		if assetID != "" && r.AssetID != assetID {
			continue
		}
		total += r.Cost
	}
	return total
}

// FuelCostPercentage is the fleet fuel spend as a percentage of the supplied
// total operating costs. The operating-cost figure is an external input; the
// calculator never derives it.
func (c *Calculator) FuelCostPercentage(totalOperatingCosts float64) float64 {
	if totalOperatingCosts == 0 {
		return 0
	}
	return c.TotalFuelCost("") / totalOperatingCosts * 100
}

// groupedRates computes the per-group consumption rate for sessions bucketed
// by the given discriminator. Sessions whose discriminator is empty are
// excluded rather than pooled into an unnamed group.
func (c *Calculator) groupedRates(key func(fleet.OperatingSession) string) map[string]float64 {
	type bucket struct{ fuel, hours float64 }
	buckets := make(map[string]*bucket)
	for _, s := range c.sessions {
		k := key(s)
		if k == "" {
			continue
		}
		b, ok := buckets[k]
		if !ok {
			b = &bucket{}
			buckets[k] = b
		}
		b.fuel += s.FuelConsumed
		b.hours += s.OperatingHours
	}

	rates := make(map[string]float64, len(buckets))
	for k, b := range buckets {
		rates[k] = rate(b.fuel, b.hours)
	}
	return rates
}

// TaskSpecificConsumption returns the consumption rate per task type.
func (c *Calculator) TaskSpecificConsumption() map[string]float64 {
	return c.groupedRates(func(s fleet.OperatingSession) string { return s.TaskType })
}

// OperatorEfficiency returns the consumption rate per operator.
func (c *Calculator) OperatorEfficiency() map[string]float64 {
	return c.groupedRates(func(s fleet.OperatingSession) string { return s.Operator })
}

// MonthlyTrends buckets sessions by calendar month of their start time and
// accumulates fuel, hours, and the matching fuel-record costs per bucket.
// The result is sorted ascending by month key.
func (c *Calculator) MonthlyTrends() []MonthlyTrend {
	byMonth := make(map[string]*MonthlyTrend)

	for _, s := range c.sessions {
		month := s.SessionStart.Format("2006-01")
		t, ok := byMonth[month]
		if !ok {
			t = &MonthlyTrend{Month: month}
			byMonth[month] = t
		}
		t.FuelConsumed += s.FuelConsumed
		t.OperatingHours += s.OperatingHours
	}

	for _, r := range c.records {
		month := r.Date.Format("2006-01")
		t, ok := byMonth[month]
		if !ok {
			t = &MonthlyTrend{Month: month}
			byMonth[month] = t
		}
		t.FuelCost += r.Cost
	}

	trends := make([]MonthlyTrend, 0, len(byMonth))
	for _, t := range byMonth {
		t.ConsumptionRate = rate(t.FuelConsumed, t.OperatingHours)
		trends = append(trends, *t)
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Month < trends[j].Month })
	return trends
}

// TotalOperatingHours sums the operating hours across all sessions.
func (c *Calculator) TotalOperatingHours() float64 {
	var hours float64
	for _, s := range c.sessions {
		hours += s.OperatingHours
	}
	return hours
}

// TotalFuelConsumed sums the fuel consumed across all sessions.
func (c *Calculator) TotalFuelConsumed() float64 {
	var fuel float64
	for _, s := range c.sessions {
		fuel += s.FuelConsumed
	}
	return fuel
}

// AllKPIs assembles the comprehensive KPI report. totalOperatingCosts is the
// external denominator for the fuel-cost percentage; pass
// DefaultOperatingCosts (or the configured value) when no figure is known.
func (c *Calculator) AllKPIs(totalOperatingCosts float64) Comprehensive {
	return Comprehensive{
		Consumption: ConsumptionKPI{
			FuelConsumptionRate:     c.ConsumptionRate(""),
			AverageFleetConsumption: c.AverageFleetConsumption(),
			EquipmentTypeAverages:   c.EquipmentTypeAverages(),
		},
		Cost: CostKPI{
			FuelCostPerHour:        c.FuelCostPerHour(""),
			TotalEquipmentFuelCost: c.TotalFuelCost(""),
			FuelCostPercentage:     c.FuelCostPercentage(totalOperatingCosts),
		},
		Performance: PerformanceKPI{
			TaskSpecificConsumption: c.TaskSpecificConsumption(),
			OperatorEfficiency:      c.OperatorEfficiency(),
			MonthlyTrends:           c.MonthlyTrends(),
		},
		TotalOperatingHours: c.TotalOperatingHours(),
		TotalFuelConsumed:   c.TotalFuelConsumed(),
		TotalFuelCost:       c.TotalFuelCost(""),
	}
}
