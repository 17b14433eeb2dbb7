package imports

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"holdings-imports-backend/internal/repository"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200

	// keeps (page-1)*limit far away from int overflow
	maxPage = 10_000_000
)

// Query is a fully normalized retrieval request.
type Query struct {
	Page   int
	Limit  int
	Filter repository.ImportFilter
}

func (q Query) Offset() int {
	return (q.Page - 1) * q.Limit
}

// ValidationError describes a filter value that was dropped or coerced.
// Filters are best effort, so these are reported for logging and never
// fail a request.
type ValidationError struct {
	Param  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Param, e.Value, e.Reason)
}

// ParseQuery normalizes wire parameters into a Query. It never fails;
// anything it had to drop or coerce is returned alongside.
func ParseQuery(values url.Values) (Query, []*ValidationError) {
	p := parser{values: values}

	q := Query{
		Page:  p.page(),
		Limit: p.limit(),
		Filter: repository.ImportFilter{
			Scheme:     p.text("scheme"),
			Instrument: p.text("instrument"),
			ISIN:       p.text("isin"),
			Ratings:    p.ratings(),

			Quantity:    p.numRange("quantityMin", "quantityMax"),
			PctToNAV:    p.numRange("pctToNavMin", "pctToNavMax"),
			YTM:         p.numRange("ytmMin", "ytmMax"),
			MarketValue: p.numRange("mvMin", "mvMax"),

			ReportDate: p.dateRange("from", "to"),
			Modified:   p.dateRange("modifiedFrom", "modifiedTo"),
		},
	}
	return q, p.errs
}

type parser struct {
	values url.Values
	errs   []*ValidationError
}

func (p *parser) reject(param, value, reason string) {
	p.errs = append(p.errs, &ValidationError{Param: param, Value: value, Reason: reason})
}

func (p *parser) text(key string) string {
	return strings.TrimSpace(p.values.Get(key))
}

// integer accepts "3" and "3.9" (floored); ok is false when absent or junk.
func (p *parser) integer(key string) (int, bool) {
	raw := p.text(key)
	if raw == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		p.reject(key, raw, "not a number")
		return 0, false
	}
	f = math.Floor(f)
	if f > math.MaxInt32 {
		return math.MaxInt32, true
	}
	if f < math.MinInt32 {
		return math.MinInt32, true
	}
	return int(f), true
}

func (p *parser) page() int {
	n, ok := p.integer("page")
	switch {
	case !ok:
		return 1
	case n < 1:
		p.reject("page", p.text("page"), "below 1")
		return 1
	case n > maxPage:
		return maxPage
	}
	return n
}

func (p *parser) limit() int {
	n, ok := p.integer("limit")
	switch {
	case !ok || n == 0:
		return DefaultLimit
	case n < 1:
		p.reject("limit", p.text("limit"), "below 1")
		return 1
	case n > MaxLimit:
		return MaxLimit
	}
	return n
}

// ratings unions the legacy single value with the repeated forms into
// one de-duplicated set, preserving first-seen order.
func (p *parser) ratings() []string {
	var raw []string
	raw = append(raw, p.values["ratings"]...)
	raw = append(raw, p.values["ratings[]"]...)
	raw = append(raw, p.values["rating"]...)

	seen := make(map[string]bool, len(raw))
	var out []string
	for _, r := range raw {
		r = strings.TrimSpace(r)
		key := strings.ToLower(r)
		if r == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func (p *parser) number(key string) *float64 {
	raw := p.text(key)
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		p.reject(key, raw, "not a finite number")
		return nil
	}
	return &f
}

func (p *parser) numRange(minKey, maxKey string) repository.Range {
	return repository.Range{Min: p.number(minKey), Max: p.number(maxKey)}
}

func (p *parser) date(key string) (time.Time, bool) {
	raw := p.text(key)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := ParseDate(raw)
	if err != nil {
		p.reject(key, raw, err.Error())
		return time.Time{}, false
	}
	return t, true
}

// dateRange reads an inclusive day range; the upper bound covers the
// whole of its day.
func (p *parser) dateRange(fromKey, toKey string) repository.TimeRange {
	var r repository.TimeRange
	if t, ok := p.date(fromKey); ok {
		r.From = &t
	}
	if t, ok := p.date(toKey); ok {
		end := EndOfDay(t)
		r.To = &end
	}
	return r
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02-01-2006",
	"02/01/2006",
	"Jan 2,2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
}

// ParseDate tries the date shapes seen in filter inputs and source
// sheets. Results are in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date")
}

// EndOfDay returns the last millisecond of t's calendar day in UTC.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), time.UTC)
}

// TotalPages is max(1, ceil(total/limit)).
func TotalPages(total int64, limit int) int {
	if limit < 1 || total <= 0 {
		return 1
	}
	pages := (total + int64(limit) - 1) / int64(limit)
	if pages < 1 {
		return 1
	}
	return int(pages)
}
