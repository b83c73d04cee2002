// Package alloc implements the identifier allocator: one persisted counter
// from which record ids are drawn.
//
// The counter lives under key 0 of the region the allocator owns and is stored
// as 8 byte big endian integer. An absent counter reads as 0, so the first id
// ever handed out is 1. Ids are never reused, even after deletes, and the
// counter never wraps: once it reaches the largest uint64 every further
// allocation fails with RetCAllocatorOverflow.
//
// Allocation only happens inside a region transaction supplied by the caller.
// This makes the increment part of the same atomic commit as whatever the
// caller stores under the new id; if the transaction is discarded the counter
// keeps its old value.
package alloc

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ValentinKolb/dTravel/lib/region"
	"github.com/ValentinKolb/dTravel/lib/travel"
)

const counterKey uint64 = 0

// Allocator hands out record ids
type Allocator struct {
	region *region.Handle
}

// New creates an allocator on the given region
func New(h *region.Handle) *Allocator {
	return &Allocator{region: h}
}

// Allocate advances the counter and returns the new value.
func (a *Allocator) Allocate(tx region.ITxn) (uint64, error) {
	w := a.region.Writer(tx)

	current, err := read(w)
	if err != nil {
		return 0, err
	}
	if current == math.MaxUint64 {
		return 0, travel.NewError(travel.RetCAllocatorOverflow, "identifier space exhausted")
	}

	next := current + 1
	if err := w.Set(counterKey, encode(next)); err != nil {
		return 0, err
	}
	return next, nil
}

// Current returns the last allocated id, 0 if none was allocated yet.
func (a *Allocator) Current(v region.IView) (uint64, error) {
	return read(a.region.Reader(v))
}

func read(r region.IReader) (uint64, error) {
	raw, ok, err := r.Get(counterKey)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	if len(raw) != 8 {
		return 0, travel.NewError(travel.RetCEncodingFault, fmt.Sprintf("corrupt counter of %d bytes", len(raw)))
	}
	return binary.BigEndian.Uint64(raw), nil
}

func encode(c uint64) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, 8), c)
}
