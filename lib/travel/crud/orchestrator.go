// Package crud implements the create/read/update/delete contract for travel
// records on top of the identifier allocator and the record map.
//
// Every mutating operation runs as one region transaction while holding the
// orchestrator's write lock. For Create this makes allocating the id and
// storing the record a single step: a reader either sees both the advanced
// counter and the new record or neither. A fatal fault (oversized record,
// exhausted id space, storage error) discards the transaction, leaving the
// persisted state as it was before the call.
//
// Reads run on snapshots and never take the write lock.
package crud

import (
	"sync"

	"github.com/ValentinKolb/dTravel/lib/region"
	"github.com/ValentinKolb/dTravel/lib/travel"
	"github.com/ValentinKolb/dTravel/lib/travel/alloc"
	"github.com/ValentinKolb/dTravel/lib/travel/records"
	"github.com/ValentinKolb/dTravel/lib/util"
)

// Orchestrator owns the counter and record regions of one manager
type Orchestrator struct {
	mu      sync.Mutex
	mgr     *region.Manager
	alloc   *alloc.Allocator
	records *records.Store
}

// New creates an orchestrator on mgr, claiming region.IDCounter for the
// allocator and region.IDRecords for the record map.
func New(mgr *region.Manager) *Orchestrator {
	return &Orchestrator{
		mgr:     mgr,
		alloc:   alloc.New(mgr.Region(region.IDCounter)),
		records: records.New(mgr.Region(region.IDRecords)),
	}
}

// Records returns the record map, for building read-only queries on it
func (o *Orchestrator) Records() *records.Store {
	return o.records
}

// update runs fn as one serialized transaction
func (o *Orchestrator) update(fn func(tx region.ITxn) error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mgr.Update(fn)
}

// --------------------------------------------------------------------------
// Mutating Operations
// --------------------------------------------------------------------------

// Create stores p under a freshly allocated id and returns the new record
func (o *Orchestrator) Create(p travel.Payload) (travel.Record, error) {
	var rec travel.Record
	err := o.update(func(tx region.ITxn) error {
		id, err := o.alloc.Allocate(tx)
		if err != nil {
			return err
		}
		rec = p.WithID(id)
		return o.records.Upsert(tx, rec)
	})
	if err != nil {
		return travel.Record{}, err
	}
	return rec, nil
}

// Replace overwrites every field of the record id with p
func (o *Orchestrator) Replace(id uint64, p travel.Payload) (travel.Record, error) {
	var rec travel.Record
	err := o.update(func(tx region.ITxn) error {
		_, ok, err := o.records.Get(tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return travel.ErrReplaceNotFound(id)
		}
		rec = p.WithID(id)
		return o.records.Upsert(tx, rec)
	})
	if err != nil {
		return travel.Record{}, err
	}
	return rec, nil
}

// UpdateDate sets the date of the record id, all other fields are kept
func (o *Orchestrator) UpdateDate(id uint64, date uint64) (travel.Record, error) {
	var rec travel.Record
	err := o.update(func(tx region.ITxn) error {
		existing, ok, err := o.records.Get(tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return travel.ErrUpdateDateNotFound(id)
		}
		existing.Date = date
		rec = existing
		return o.records.Upsert(tx, rec)
	})
	if err != nil {
		return travel.Record{}, err
	}
	return rec, nil
}

// Delete removes the record id and returns it. Its id is never handed out again.
func (o *Orchestrator) Delete(id uint64) (travel.Record, error) {
	var rec travel.Record
	err := o.update(func(tx region.ITxn) error {
		removed, ok, err := o.records.Remove(tx, id)
		if err != nil {
			return err
		}
		if !ok {
			return travel.ErrDeleteNotFound(id)
		}
		rec = removed
		return nil
	})
	if err != nil {
		return travel.Record{}, err
	}
	return rec, nil
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Lookup returns the record id and whether it exists
func (o *Orchestrator) Lookup(id uint64) (travel.Record, bool, error) {
	var (
		rec travel.Record
		ok  bool
	)
	err := o.mgr.View(func(v region.IView) (err error) {
		rec, ok, err = o.records.Get(v, id)
		return err
	})
	return rec, ok, err
}

// Read returns the record id or a NotFound error
func (o *Orchestrator) Read(id uint64) (travel.Record, error) {
	rec, ok, err := o.Lookup(id)
	if err != nil {
		return travel.Record{}, err
	}
	if !ok {
		return travel.Record{}, travel.ErrReadNotFound(id)
	}
	return rec, nil
}

// LastID returns the most recently allocated id, 0 if nothing was created yet
func (o *Orchestrator) LastID() (uint64, error) {
	var id uint64
	err := o.mgr.View(func(v region.IView) (err error) {
		id, err = o.alloc.Current(v)
		return err
	})
	return id, err
}

// Stats is a summary of the stored data taken from one snapshot
type Stats struct {
	Records uint64
	LastID  uint64
	Sizes   *util.SizeHistogram
}

// Stats returns the record count, the last allocated id and the encoded size distribution
func (o *Orchestrator) Stats() (Stats, error) {
	var stats Stats
	err := o.mgr.View(func(v region.IView) (err error) {
		if stats.Records, err = o.records.Count(v); err != nil {
			return err
		}
		if stats.LastID, err = o.alloc.Current(v); err != nil {
			return err
		}
		stats.Sizes, err = o.records.Sizes(v)
		return err
	})
	return stats, err
}
