// Package query implements the read-only travel queries: range filter,
// destination search, date sort and top-N.
//
// The package has two layers. The functions in this file are pure
// transformations over a record sequence as produced by records.Store.Scan,
// they hold no state and never touch storage. Engine binds them to a
// region.Manager and evaluates every call against one snapshot, so a single
// result never mixes two committed states.
//
// All filters keep the ascending id order of the input. The sorts are stable,
// records with equal dates stay in id order. Latest sorts ascending, reverses
// the whole result and then truncates, so equal dates come out in descending
// id order.
package query

import (
	"cmp"
	"iter"
	"slices"

	"github.com/ValentinKolb/dTravel/lib/travel"
)

// Seq is a record sequence that may fail while it is consumed.
type Seq = iter.Seq2[travel.Record, error]

// --------------------------------------------------------------------------
// Sequence Helpers
// --------------------------------------------------------------------------

// Collect drains seq into a slice. It stops at the first error.
// The result is never nil so it encodes as an empty list.
func Collect(seq Seq) ([]travel.Record, error) {
	out := []travel.Record{}
	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Filter yields the records of seq for which keep returns true.
// Errors are always passed through.
func Filter(seq Seq, keep func(travel.Record) bool) Seq {
	return func(yield func(travel.Record, error) bool) {
		for rec, err := range seq {
			if err != nil {
				yield(travel.Record{}, err)
				return
			}
			if keep(rec) && !yield(rec, nil) {
				return
			}
		}
	}
}

// Count returns the length of seq
func Count(seq Seq) (uint64, error) {
	var n uint64
	for _, err := range seq {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// --------------------------------------------------------------------------
// Queries
// --------------------------------------------------------------------------

// ByDateUpperBound yields all records dated at or before date
func ByDateUpperBound(seq Seq, date uint64) Seq {
	return Filter(seq, func(r travel.Record) bool { return r.Date <= date })
}

// CountByDateUpperBound counts the records dated at or before date
// without collecting them.
func CountByDateUpperBound(seq Seq, date uint64) (uint64, error) {
	return Count(ByDateUpperBound(seq, date))
}

// ByDestination yields all records whose destination equals destination.
// The comparison is exact and case sensitive.
func ByDestination(seq Seq, destination string) Seq {
	return Filter(seq, func(r travel.Record) bool { return r.Destination == destination })
}

// SortedByDateAscending returns all records ordered by date, ties in id order.
func SortedByDateAscending(seq Seq) ([]travel.Record, error) {
	recs, err := Collect(seq)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(recs, func(a, b travel.Record) int {
		return cmp.Compare(a.Date, b.Date)
	})
	return recs, nil
}

// Latest returns the n most recent records, newest first.
// It is the reverse of SortedByDateAscending truncated to n.
func Latest(seq Seq, n uint64) ([]travel.Record, error) {
	if n == 0 {
		return []travel.Record{}, nil
	}
	recs, err := SortedByDateAscending(seq)
	if err != nil {
		return nil, err
	}
	slices.Reverse(recs)
	if n < uint64(len(recs)) {
		recs = recs[:n]
	}
	return recs, nil
}
