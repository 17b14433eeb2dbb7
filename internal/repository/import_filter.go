package repository

import "time"

// Range is an optional numeric interval. A nil bound does not constrain.
type Range struct {
	Min *float64
	Max *float64
}

func (r Range) IsZero() bool {
	return r.Min == nil && r.Max == nil
}

// TimeRange is an optional instant interval, both ends inclusive.
type TimeRange struct {
	From *time.Time
	To   *time.Time
}

func (r TimeRange) IsZero() bool {
	return r.From == nil && r.To == nil
}

// ImportFilter is the normalized predicate input for drive_imports.
// Empty strings and empty slices impose no constraint.
type ImportFilter struct {
	Scheme     string
	Instrument string
	ISIN       string

	// Ratings are matched by case-insensitive prefix and OR-ed together,
	// so "AAA" also selects "AAA (CE)".
	Ratings []string

	Quantity    Range
	PctToNAV    Range
	YTM         Range
	MarketValue Range

	ReportDate TimeRange
	Modified   TimeRange
}
