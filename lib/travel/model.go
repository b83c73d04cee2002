package travel

import "slices"

// --------------------------------------------------------------------------
// Record Types
// --------------------------------------------------------------------------

// Record is a single travel experience.
type Record struct {
	ID               uint64   `json:"id" yaml:"id"`
	Destination      string   `json:"destination" yaml:"destination"`
	Date             uint64   `json:"date" yaml:"date"`
	Notes            string   `json:"notes" yaml:"notes"`
	HistoricalEvents []string `json:"historical_events" yaml:"historical_events"`
}

// Payload holds every Record field except the id.
// It is what callers submit on create and replace.
type Payload struct {
	Destination      string   `json:"destination" yaml:"destination"`
	Date             uint64   `json:"date" yaml:"date"`
	Notes            string   `json:"notes" yaml:"notes"`
	HistoricalEvents []string `json:"historical_events" yaml:"historical_events"`
}

// WithID builds the record stored for this payload under the given id.
// The event list is copied.
func (p Payload) WithID(id uint64) Record {
	return Record{
		ID:               id,
		Destination:      p.Destination,
		Date:             p.Date,
		Notes:            p.Notes,
		HistoricalEvents: slices.Clone(p.HistoricalEvents),
	}
}

// Payload returns the record without its id.
func (r Record) Payload() Payload {
	return Payload{
		Destination:      r.Destination,
		Date:             r.Date,
		Notes:            r.Notes,
		HistoricalEvents: slices.Clone(r.HistoricalEvents),
	}
}

// Clone returns a deep copy of the record
func (r Record) Clone() Record {
	r.HistoricalEvents = slices.Clone(r.HistoricalEvents)
	return r
}

// Equal reports whether two records hold the same data.
// A nil and an empty event list are considered equal.
func (r Record) Equal(other Record) bool {
	return r.ID == other.ID &&
		r.Destination == other.Destination &&
		r.Date == other.Date &&
		r.Notes == other.Notes &&
		slices.Equal(r.HistoricalEvents, other.HistoricalEvents)
}
