// Package records implements the record map: an ordered id -> record
// mapping persisted in one region.
//
// Records are stored with the bounded travel codec, a record whose encoding
// exceeds travel.MaxRecordSize is rejected with RetCEncodingFault before
// anything is written. Scans yield records in ascending id order from the view
// they were started on, concurrent commits never show up in a running scan.
package records

import (
	"fmt"
	"iter"

	"github.com/ValentinKolb/dTravel/lib/region"
	"github.com/ValentinKolb/dTravel/lib/travel"
	"github.com/ValentinKolb/dTravel/lib/util"
)

// Store is the record map
type Store struct {
	region *region.Handle
}

// New creates a record map on the given region
func New(h *region.Handle) *Store {
	return &Store{region: h}
}

func decode(id uint64, raw []byte) (travel.Record, error) {
	rec, err := travel.Decode(raw)
	if err != nil {
		return travel.Record{}, travel.NewError(travel.RetCEncodingFault, fmt.Sprintf("stored record %d: %v", id, err))
	}
	if rec.ID != id {
		return travel.Record{}, travel.NewError(travel.RetCEncodingFault, fmt.Sprintf("record stored under id %d claims id %d", id, rec.ID))
	}
	return rec, nil
}

// Get returns the record stored under id
func (s *Store) Get(v region.IView, id uint64) (travel.Record, bool, error) {
	raw, ok, err := s.region.Reader(v).Get(id)
	if err != nil || !ok {
		return travel.Record{}, false, err
	}
	rec, err := decode(id, raw)
	if err != nil {
		return travel.Record{}, false, err
	}
	return rec, true, nil
}

// Upsert stores rec under rec.ID, replacing any previous record
func (s *Store) Upsert(tx region.ITxn, rec travel.Record) error {
	raw, err := travel.Encode(rec)
	if err != nil {
		return err
	}
	return s.region.Writer(tx).Set(rec.ID, raw)
}

// Remove deletes the record stored under id and returns it
func (s *Store) Remove(tx region.ITxn, id uint64) (travel.Record, bool, error) {
	rec, ok, err := s.Get(tx, id)
	if err != nil || !ok {
		return travel.Record{}, false, err
	}
	if err := s.region.Writer(tx).Delete(id); err != nil {
		return travel.Record{}, false, err
	}
	return rec, true, nil
}

// Count returns the number of stored records
func (s *Store) Count(v region.IView) (uint64, error) {
	return s.region.Reader(v).Len()
}

// Scan returns the records of v in ascending id order.
// The sequence can be ranged over repeatedly as long as v is valid.
// A storage or decoding error is yielded once as the last element.
func (s *Store) Scan(v region.IView) iter.Seq2[travel.Record, error] {
	return func(yield func(travel.Record, error) bool) {
		var (
			stopped   bool
			decodeErr error
		)

		err := s.region.Reader(v).Ascend(func(id uint64, raw []byte) bool {
			rec, err := decode(id, raw)
			if err != nil {
				decodeErr = err
				return false
			}
			if !yield(rec, nil) {
				stopped = true
				return false
			}
			return true
		})

		switch {
		case stopped:
		case decodeErr != nil:
			yield(travel.Record{}, decodeErr)
		case err != nil:
			yield(travel.Record{}, err)
		}
	}
}

// Sizes returns the distribution of encoded record sizes
func (s *Store) Sizes(v region.IView) (*util.SizeHistogram, error) {
	h := util.NewSizeHistogram()
	err := s.region.Reader(v).Ascend(func(_ uint64, raw []byte) bool {
		h.AddSample(len(raw))
		return true
	})
	return h, err
}
