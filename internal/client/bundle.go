package client

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// FilterBundle is a settled snapshot of every filter criterion. Strings
// are "" and pointers nil when a criterion is unset.
type FilterBundle struct {
	Page  int
	Limit int

	Scheme     string
	Instrument string
	ISIN       string

	// Rating is the legacy single-value form; it is only sent when
	// Ratings is empty.
	Rating  string
	Ratings []string

	From string // report date, yyyy-mm-dd
	To   string

	QuantityMin *float64
	QuantityMax *float64
	PctToNavMin *float64
	PctToNavMax *float64
	YTMMin      *float64
	YTMMax      *float64
	MVMin       *float64
	MVMax       *float64

	ModifiedFrom string
	ModifiedTo   string
}

// Clone returns a copy sharing no slices or pointers with b.
func (b FilterBundle) Clone() FilterBundle {
	out := b
	out.Ratings = cloneStrings(b.Ratings)
	out.QuantityMin = cloneFloat(b.QuantityMin)
	out.QuantityMax = cloneFloat(b.QuantityMax)
	out.PctToNavMin = cloneFloat(b.PctToNavMin)
	out.PctToNavMax = cloneFloat(b.PctToNavMax)
	out.YTMMin = cloneFloat(b.YTMMin)
	out.YTMMax = cloneFloat(b.YTMMax)
	out.MVMin = cloneFloat(b.MVMin)
	out.MVMax = cloneFloat(b.MVMax)
	return out
}

// PageLimit returns the page and limit that will actually be sent.
func (b FilterBundle) PageLimit() (int, int) {
	page, limit := b.Page, b.Limit
	if page < 1 {
		page = 1
	}
	switch {
	case limit < 1:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	return page, limit
}

// Values encodes the bundle as query parameters. Only present values are
// written; 0 is a present value.
func (b FilterBundle) Values() url.Values {
	v := url.Values{}
	page, limit := b.PageLimit()
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))

	setText(v, "scheme", b.Scheme)
	setText(v, "instrument", b.Instrument)
	setText(v, "isin", b.ISIN)

	var ratings []string
	for _, r := range b.Ratings {
		if r = strings.TrimSpace(r); r != "" {
			ratings = append(ratings, r)
		}
	}
	if len(ratings) > 0 {
		v["ratings"] = ratings
	} else {
		setText(v, "rating", b.Rating)
	}

	setText(v, "from", b.From)
	setText(v, "to", b.To)

	setNumber(v, "quantityMin", b.QuantityMin)
	setNumber(v, "quantityMax", b.QuantityMax)
	setNumber(v, "pctToNavMin", b.PctToNavMin)
	setNumber(v, "pctToNavMax", b.PctToNavMax)
	setNumber(v, "ytmMin", b.YTMMin)
	setNumber(v, "ytmMax", b.YTMMax)
	setNumber(v, "mvMin", b.MVMin)
	setNumber(v, "mvMax", b.MVMax)

	setText(v, "modifiedFrom", b.ModifiedFrom)
	setText(v, "modifiedTo", b.ModifiedTo)
	return v
}

func setText(v url.Values, key, val string) {
	if val = strings.TrimSpace(val); val != "" {
		v.Set(key, val)
	}
}

func setNumber(v url.Values, key string, val *float64) {
	if val != nil {
		v.Set(key, strconv.FormatFloat(*val, 'f', -1, 64))
	}
}

func cloneStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return slices.Clone(s)
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Record is one item of a result page. Nil pointers are absent values.
type Record struct {
	ID              string     `json:"_id"`
	SchemeName      string     `json:"scheme_name,omitempty"`
	InstrumentName  string     `json:"instrument_name,omitempty"`
	ISIN            string     `json:"isin,omitempty"`
	ReportDate      string     `json:"report_date,omitempty"`
	ReportDateISO   *time.Time `json:"report_date_iso,omitempty"`
	Quantity        *float64   `json:"quantity,omitempty"`
	PctToNAV        *float64   `json:"pct_to_nav,omitempty"`
	MarketValueLacs *float64   `json:"market_value_lacs,omitempty"`
	MarketValue     *float64   `json:"market_value,omitempty"`
	Rating          string     `json:"rating,omitempty"`
	YTM             *float64   `json:"ytm,omitempty"`
	ModifiedTime    *time.Time `json:"_modifiedTime,omitempty"`
}

// Page is the normalized result of a retrieval.
type Page struct {
	Items      []Record
	Total      int64
	TotalPages int
}

// TotalPages is max(1, ceil(total/limit)).
func TotalPages(total int64, limit int) int {
	if limit < 1 || total <= 0 {
		return 1
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
