// Package filterstate turns raw, rapidly changing filter inputs into
// settled FilterBundles and loads them so that only the latest request
// decides what is shown.
package filterstate

import (
	"reflect"
	"strings"
	"sync"
	"time"

	"holdings-imports-backend/internal/client"
)

const DefaultDebounce = 500 * time.Millisecond

// Field names one debounced criterion.
type Field string

const (
	Scheme       Field = "scheme"
	Instrument   Field = "instrument"
	ISIN         Field = "isin"
	Rating       Field = "rating"
	Ratings      Field = "ratings"
	From         Field = "from"
	To           Field = "to"
	QuantityMin  Field = "quantityMin"
	QuantityMax  Field = "quantityMax"
	PctToNavMin  Field = "pctToNavMin"
	PctToNavMax  Field = "pctToNavMax"
	YTMMin       Field = "ytmMin"
	YTMMax       Field = "ytmMax"
	MVMin        Field = "mvMin"
	MVMax        Field = "mvMax"
	ModifiedFrom Field = "modifiedFrom"
	ModifiedTo   Field = "modifiedTo"
)

// allFields keys the single timer started by Reset.
const allFields Field = "*"

type fieldKind int

const (
	textField fieldKind = iota
	numberField
	setField
)

type accessor struct {
	kind fieldKind
	text func(*client.FilterBundle) *string
	num  func(*client.FilterBundle) **float64
}

var fields = map[Field]accessor{
	Scheme:       {kind: textField, text: func(b *client.FilterBundle) *string { return &b.Scheme }},
	Instrument:   {kind: textField, text: func(b *client.FilterBundle) *string { return &b.Instrument }},
	ISIN:         {kind: textField, text: func(b *client.FilterBundle) *string { return &b.ISIN }},
	Rating:       {kind: textField, text: func(b *client.FilterBundle) *string { return &b.Rating }},
	From:         {kind: textField, text: func(b *client.FilterBundle) *string { return &b.From }},
	To:           {kind: textField, text: func(b *client.FilterBundle) *string { return &b.To }},
	ModifiedFrom: {kind: textField, text: func(b *client.FilterBundle) *string { return &b.ModifiedFrom }},
	ModifiedTo:   {kind: textField, text: func(b *client.FilterBundle) *string { return &b.ModifiedTo }},
	QuantityMin:  {kind: numberField, num: func(b *client.FilterBundle) **float64 { return &b.QuantityMin }},
	QuantityMax:  {kind: numberField, num: func(b *client.FilterBundle) **float64 { return &b.QuantityMax }},
	PctToNavMin:  {kind: numberField, num: func(b *client.FilterBundle) **float64 { return &b.PctToNavMin }},
	PctToNavMax:  {kind: numberField, num: func(b *client.FilterBundle) **float64 { return &b.PctToNavMax }},
	YTMMin:       {kind: numberField, num: func(b *client.FilterBundle) **float64 { return &b.YTMMin }},
	YTMMax:       {kind: numberField, num: func(b *client.FilterBundle) **float64 { return &b.YTMMax }},
	MVMin:        {kind: numberField, num: func(b *client.FilterBundle) **float64 { return &b.MVMin }},
	MVMax:        {kind: numberField, num: func(b *client.FilterBundle) **float64 { return &b.MVMax }},
	Ratings:      {kind: setField},
}

// IsText reports whether f takes a string value.
func (f Field) IsText() bool {
	acc, ok := fields[f]
	return ok && acc.kind == textField
}

// IsNumber reports whether f takes a numeric bound.
func (f Field) IsNumber() bool {
	acc, ok := fields[f]
	return ok && acc.kind == numberField
}

// ParseField resolves a field name case-insensitively.
func ParseField(name string) (Field, bool) {
	for f := range fields {
		if strings.EqualFold(string(f), name) {
			return f, true
		}
	}
	return "", false
}

// Aggregator debounces each field independently with the same delay and
// emits the settled bundle whenever it changes. A debounced change or a
// limit change resets the page to 1; a page change is emitted at once.
//
// onChange runs on timer goroutines, one call at a time. It must not
// call back into SetPage, SetLimit or Close.
type Aggregator struct {
	delay    time.Duration
	onChange func(client.FilterBundle)

	emitMu sync.Mutex // serializes settle+emit so emissions stay in order

	mu      sync.Mutex
	raw     client.FilterBundle
	settled client.FilterBundle
	timers  map[Field]*time.Timer
	seq     map[Field]uint64
	closed  bool
}

func NewAggregator(delay time.Duration, onChange func(client.FilterBundle)) *Aggregator {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Aggregator{
		delay:    delay,
		onChange: onChange,
		settled:  client.FilterBundle{Page: 1, Limit: client.DefaultLimit},
		timers:   map[Field]*time.Timer{},
		seq:      map[Field]uint64{},
	}
}

// SetText records a raw string value; "" unsets the field.
func (a *Aggregator) SetText(f Field, v string) {
	acc, ok := fields[f]
	if !ok || acc.kind != textField {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	*acc.text(&a.raw) = v
	a.schedule(f)
}

// SetNumber records a raw numeric bound; nil unsets it.
func (a *Aggregator) SetNumber(f Field, v *float64) {
	acc, ok := fields[f]
	if !ok || acc.kind != numberField {
		return
	}
	if v != nil {
		c := *v
		v = &c
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	*acc.num(&a.raw) = v
	a.schedule(f)
}

// SetRatings replaces the whole rating selection. The set is debounced as
// one value.
func (a *Aggregator) SetRatings(ratings []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.raw.Ratings = client.FilterBundle{Ratings: ratings}.Clone().Ratings
	a.schedule(Ratings)
}

// SetPage moves to page n (min 1) without debouncing.
func (a *Aggregator) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	a.apply(func(b *client.FilterBundle) { b.Page = n })
}

// SetLimit changes the page size without debouncing and returns to page 1.
func (a *Aggregator) SetLimit(n int) {
	a.apply(func(b *client.FilterBundle) {
		if n != b.Limit {
			b.Limit = n
			b.Page = 1
		}
	})
}

// Reset clears every raw criterion. Pending per-field timers are dropped
// and the cleared bundle settles in one debounce cycle, so exactly one
// emission follows.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.raw = client.FilterBundle{}
	for f, t := range a.timers {
		t.Stop()
		delete(a.timers, f)
		a.seq[f]++
	}
	a.schedule(allFields)
}

// Bundle returns the current settled bundle.
func (a *Aggregator) Bundle() client.FilterBundle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settled.Clone()
}

// Emit re-sends the current settled bundle, for the initial load.
func (a *Aggregator) Emit() {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()
	if a.onChange != nil {
		a.onChange(a.Bundle())
	}
}

// Close stops pending timers; later changes are ignored.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	for f, t := range a.timers {
		t.Stop()
		delete(a.timers, f)
	}
}

// schedule restarts f's timer. Callers hold a.mu.
func (a *Aggregator) schedule(f Field) {
	if a.closed {
		return
	}
	a.seq[f]++
	seq := a.seq[f]
	if t := a.timers[f]; t != nil {
		t.Stop()
	}
	a.timers[f] = time.AfterFunc(a.delay, func() { a.settle(f, seq) })
}

// settle copies f's raw value, or every raw value for allFields, into the
// settled bundle. A timer that was superseded after it fired is ignored
// through seq.
func (a *Aggregator) settle(f Field, seq uint64) {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()

	a.mu.Lock()
	if a.closed || a.seq[f] != seq {
		a.mu.Unlock()
		return
	}
	delete(a.timers, f)
	before := a.settled.Clone()
	if f == allFields {
		for field := range fields {
			copyField(field, &a.settled, &a.raw)
		}
	} else {
		copyField(f, &a.settled, &a.raw)
	}
	changed := !reflect.DeepEqual(before, a.settled)
	if changed {
		a.settled.Page = 1
	}
	out := a.settled.Clone()
	a.mu.Unlock()

	if changed && a.onChange != nil {
		a.onChange(out)
	}
}

func (a *Aggregator) apply(mutate func(*client.FilterBundle)) {
	a.emitMu.Lock()
	defer a.emitMu.Unlock()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	before := a.settled.Clone()
	mutate(&a.settled)
	changed := !reflect.DeepEqual(before, a.settled)
	out := a.settled.Clone()
	a.mu.Unlock()

	if changed && a.onChange != nil {
		a.onChange(out)
	}
}

func copyField(f Field, dst, src *client.FilterBundle) {
	acc := fields[f]
	switch acc.kind {
	case textField:
		*acc.text(dst) = strings.TrimSpace(*acc.text(src))
	case numberField:
		v := *acc.num(src)
		if v != nil {
			c := *v
			v = &c
		}
		*acc.num(dst) = v
	case setField:
		dst.Ratings = client.FilterBundle{Ratings: src.Ratings}.Clone().Ratings
	}
}
