package export

import (
	"sort"
	"time"
)

// GroupBy selects how export rows are grouped.
type GroupBy string

const (
	GroupNone  GroupBy = "none"
	GroupAsset GroupBy = "asset"
	GroupDate  GroupBy = "date"
	GroupType  GroupBy = "type"
)

// Valid reports whether g is a known grouping. The empty string is accepted
// and treated as GroupNone.
func (g GroupBy) Valid() bool {
	switch g {
	case "", GroupNone, GroupAsset, GroupDate, GroupType:
		return true
	}
	return false
}

// DateRange filters rows to [Start, End]. A zero Start or End leaves that
// side open.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the range.
func (r *DateRange) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// Options configures a single export run.
type Options struct {
	Format   Format     `json:"format"`
	Range    *DateRange `json:"range,omitempty"`
	AssetIDs []string   `json:"asset_ids,omitempty"`
	GroupBy  GroupBy    `json:"group_by,omitempty"`
}

// wantsAsset reports whether rows for the given asset pass the AssetIDs
// filter. An empty filter admits everything.
func (o Options) wantsAsset(id string) bool {
	if len(o.AssetIDs) == 0 {
		return true
	}
	for _, want := range o.AssetIDs {
		if want == id {
			return true
		}
	}
	return false
}

// groupRows partitions rows by the value of the key column, groups ordered
// ascending by key and rows keeping their relative order within each group.
// A negative keyIdx yields a single unlabeled group.
func groupRows(rows [][]string, keyIdx int) []RowGroup {
	if keyIdx < 0 {
		return []RowGroup{{Rows: rows}}
	}

	byKey := make(map[string][][]string)
	keys := make([]string, 0)
	for _, row := range rows {
		key := ""
		if keyIdx < len(row) {
			key = row[keyIdx]
		}
		if _, ok := byKey[key]; !ok {
			keys = append(keys, key)
		}
		byKey[key] = append(byKey[key], row)
	}
	sort.Strings(keys)

	groups := make([]RowGroup, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, RowGroup{Label: key, Rows: byKey[key]})
	}
	return groups
}
