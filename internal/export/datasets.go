package export

// datasets.go maps domain collections into flat Datasets with human-readable
// column headers. Every exporter has the same shape: filter rows, render
// cells as strings (blank for missing values), then apply the grouping the
// options ask for.

import (
	"fmt"
	"strconv"

	"github.com/agrifleet/agrifleet/internal/fleet"
	"github.com/agrifleet/agrifleet/internal/kpi"
)

// Kind names one of the exportable datasets.
type Kind string

const (
	KindFuelRecords   Kind = "fuel-records"
	KindMaintenance   Kind = "maintenance"
	KindInventory     Kind = "inventory"
	KindAssets        Kind = "assets"
	KindComprehensive Kind = "comprehensive"
)

// Valid reports whether k names a known dataset.
func (k Kind) Valid() bool {
	switch k {
	case KindFuelRecords, KindMaintenance, KindInventory, KindAssets, KindComprehensive:
		return true
	}
	return false
}

// formatNumber renders a float without artificial precision.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatMoney renders an amount with two decimals.
func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// formatOptional renders an optional numeric, blank when absent.
func formatOptional(p *float64) string {
	if p == nil {
		return ""
	}
	return formatNumber(*p)
}

// assetNames indexes assets by ID for row labeling. Unknown IDs fall back to
// the raw ID so the row is still traceable.
func assetNames(assets []fleet.Asset) map[string]string {
	names := make(map[string]string, len(assets))
	for _, a := range assets {
		names[a.ID] = a.Name
	}
	return names
}

func assetLabel(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}

// FuelRecordsDataset renders fuel records with asset names resolved.
func FuelRecordsDataset(records []fleet.FuelRecord, assets []fleet.Asset, opts Options) Dataset {
	headers := []string{
		"Asset", "Date", "Fuel Type", "Quantity (L)", "Price per Liter",
		"Total Cost", "Location", "Hours Reading", "Consumption Rate (L/H)",
	}
	names := assetNames(assets)

	var rows [][]string
	for _, r := range records {
		if !opts.wantsAsset(r.AssetID) || !opts.Range.Contains(r.Date) {
			continue
		}
		rows = append(rows, []string{
			assetLabel(names, r.AssetID),
			r.Date.Format("2006-01-02"),
			r.FuelType,
			formatNumber(r.Quantity),
			formatMoney(r.PricePerLiter),
			formatMoney(r.Cost),
			r.Location,
			formatOptional(r.CurrentHours),
			formatOptional(r.ConsumptionRate),
		})
	}

	ds := NewDataset(string(KindFuelRecords), "Fuel Records", headers, rows)
	ds.Groups = groupRows(rows, fuelRecordGroupColumn(opts.GroupBy))
	return ds
}

func fuelRecordGroupColumn(g GroupBy) int {
	switch g {
	case GroupAsset:
		return 0
	case GroupDate:
		return 1
	case GroupType:
		return 2
	}
	return -1
}

// MaintenanceDataset renders the kanban tasks.
func MaintenanceDataset(tasks []fleet.MaintenanceTask, assets []fleet.Asset, opts Options) Dataset {
	headers := []string{
		"Asset", "Title", "Status", "Priority", "Due Date", "Cost", "Created",
	}
	names := assetNames(assets)

	var rows [][]string
	for _, t := range tasks {
		if !opts.wantsAsset(t.AssetID) || !opts.Range.Contains(t.CreatedAt) {
			continue
		}
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.Format("2006-01-02")
		}
		rows = append(rows, []string{
			assetLabel(names, t.AssetID),
			t.Title,
			string(t.Status),
			t.Priority,
			due,
			formatMoney(t.Cost),
			t.CreatedAt.Format("2006-01-02"),
		})
	}

	ds := NewDataset(string(KindMaintenance), "Maintenance Tasks", headers, rows)
	ds.Groups = groupRows(rows, maintenanceGroupColumn(opts.GroupBy))
	return ds
}

func maintenanceGroupColumn(g GroupBy) int {
	switch g {
	case GroupAsset:
		return 0
	case GroupType:
		return 2 // status column doubles as the kanban lane
	case GroupDate:
		return 6
	}
	return -1
}

// InventoryDataset renders stocked items. Inventory has no event date, so
// date-range and asset filters do not apply.
func InventoryDataset(items []fleet.InventoryItem, opts Options) Dataset {
	headers := []string{
		"Name", "Category", "Quantity", "Unit", "Unit Cost", "Total Value",
		"Location", "Reorder Level",
	}

	var rows [][]string
	for _, it := range items {
		rows = append(rows, []string{
			it.Name,
			it.Category,
			formatNumber(it.Quantity),
			it.Unit,
			formatMoney(it.UnitCost),
			formatMoney(it.Quantity * it.UnitCost),
			it.Location,
			formatNumber(it.ReorderLevel),
		})
	}

	ds := NewDataset(string(KindInventory), "Inventory", headers, rows)
	if opts.GroupBy == GroupType {
		ds.Groups = groupRows(rows, 1)
	}
	return ds
}

// AssetsDataset renders the asset register.
func AssetsDataset(assets []fleet.Asset, opts Options) Dataset {
	headers := []string{
		"Name", "Type", "Status", "Current Hours", "Fuel Capacity (L)",
		"Fuel Type", "Location",
	}

	var rows [][]string
	for _, a := range assets {
		if !opts.wantsAsset(a.ID) {
			continue
		}
		rows = append(rows, []string{
			a.Name,
			a.Type,
			string(a.Status),
			formatNumber(a.CurrentHours),
			formatNumber(a.FuelCapacity),
			a.FuelType,
			a.Location,
		})
	}

	ds := NewDataset(string(KindAssets), "Assets", headers, rows)
	switch opts.GroupBy {
	case GroupAsset:
		ds.Groups = groupRows(rows, 0)
	case GroupType:
		ds.Groups = groupRows(rows, 1)
	}
	return ds
}

// ComprehensiveDataset renders the full KPI report as metric/value pairs in
// labeled sections.
func ComprehensiveDataset(report kpi.Comprehensive) Dataset {
	headers := []string{"Metric", "Value"}

	summary := RowGroup{Label: "Summary", Rows: [][]string{
		{"Total Operating Hours", formatNumber(report.TotalOperatingHours)},
		{"Total Fuel Consumed (L)", formatNumber(report.TotalFuelConsumed)},
		{"Total Fuel Cost", formatMoney(report.TotalFuelCost)},
	}}

	consumption := RowGroup{Label: "Consumption", Rows: [][]string{
		{"Fleet Consumption Rate (L/H)", formatNumber(report.Consumption.FuelConsumptionRate)},
		{"Average Fleet Consumption (L/H)", formatNumber(report.Consumption.AverageFleetConsumption)},
	}}
	for _, typ := range sortedKeys(report.Consumption.EquipmentTypeAverages) {
		consumption.Rows = append(consumption.Rows, []string{
			fmt.Sprintf("%s (L/H)", typ),
			formatNumber(report.Consumption.EquipmentTypeAverages[typ]),
		})
	}

	cost := RowGroup{Label: "Cost", Rows: [][]string{
		{"Fuel Cost per Hour", formatMoney(report.Cost.FuelCostPerHour)},
		{"Total Equipment Fuel Cost", formatMoney(report.Cost.TotalEquipmentFuelCost)},
		{"Fuel Cost Percentage", formatNumber(report.Cost.FuelCostPercentage)},
	}}

	tasks := RowGroup{Label: "Consumption by Task"}
	for _, task := range sortedKeys(report.Performance.TaskSpecificConsumption) {
		tasks.Rows = append(tasks.Rows, []string{
			fmt.Sprintf("%s (L/H)", task),
			formatNumber(report.Performance.TaskSpecificConsumption[task]),
		})
	}

	operators := RowGroup{Label: "Consumption by Operator"}
	for _, op := range sortedKeys(report.Performance.OperatorEfficiency) {
		operators.Rows = append(operators.Rows, []string{
			fmt.Sprintf("%s (L/H)", op),
			formatNumber(report.Performance.OperatorEfficiency[op]),
		})
	}

	trends := RowGroup{Label: "Monthly Trends"}
	for _, t := range report.Performance.MonthlyTrends {
		trends.Rows = append(trends.Rows, []string{
			fmt.Sprintf("%s consumption rate (L/H)", t.Month),
			formatNumber(t.ConsumptionRate),
		}, []string{
			fmt.Sprintf("%s fuel cost", t.Month),
			formatMoney(t.FuelCost),
		})
	}

	return Dataset{
		Name:    string(KindComprehensive),
		Title:   "Fuel KPI Report",
		Headers: headers,
		Groups:  []RowGroup{summary, consumption, cost, tasks, operators, trends},
	}
}
