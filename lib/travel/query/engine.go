package query

import (
	"github.com/ValentinKolb/dTravel/lib/region"
	"github.com/ValentinKolb/dTravel/lib/travel"
	"github.com/ValentinKolb/dTravel/lib/travel/records"
)

// Engine evaluates queries against snapshots of a record map
type Engine struct {
	mgr   *region.Manager
	store *records.Store
}

// NewEngine creates a query engine over store.
// Each call opens its own snapshot on mgr.
func NewEngine(mgr *region.Manager, store *records.Store) *Engine {
	return &Engine{mgr: mgr, store: store}
}

// view runs fn with the record sequence of a fresh snapshot
func (e *Engine) view(fn func(seq Seq) error) error {
	return e.mgr.View(func(v region.IView) error {
		return fn(e.store.Scan(v))
	})
}

func (e *Engine) collect(transform func(Seq) Seq) ([]travel.Record, error) {
	var out []travel.Record
	err := e.view(func(seq Seq) (err error) {
		out, err = Collect(transform(seq))
		return err
	})
	return out, err
}

func (e *Engine) sorted(sort func(Seq) ([]travel.Record, error)) ([]travel.Record, error) {
	var out []travel.Record
	err := e.view(func(seq Seq) (err error) {
		out, err = sort(seq)
		return err
	})
	return out, err
}

// All returns every record in ascending id order
func (e *Engine) All() ([]travel.Record, error) {
	return e.collect(func(seq Seq) Seq { return seq })
}

// Count returns the number of stored records
func (e *Engine) Count() (uint64, error) {
	var n uint64
	err := e.mgr.View(func(v region.IView) (err error) {
		n, err = e.store.Count(v)
		return err
	})
	return n, err
}

func (e *Engine) ByDateUpperBound(date uint64) ([]travel.Record, error) {
	return e.collect(func(seq Seq) Seq { return ByDateUpperBound(seq, date) })
}

func (e *Engine) CountByDateUpperBound(date uint64) (uint64, error) {
	var n uint64
	err := e.view(func(seq Seq) (err error) {
		n, err = CountByDateUpperBound(seq, date)
		return err
	})
	return n, err
}

func (e *Engine) ByDestination(destination string) ([]travel.Record, error) {
	return e.collect(func(seq Seq) Seq { return ByDestination(seq, destination) })
}

func (e *Engine) SortedByDateAscending() ([]travel.Record, error) {
	return e.sorted(SortedByDateAscending)
}

func (e *Engine) Latest(n uint64) ([]travel.Record, error) {
	return e.sorted(func(seq Seq) ([]travel.Record, error) { return Latest(seq, n) })
}
