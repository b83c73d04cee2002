package service

import (
	"github.com/ValentinKolb/dTravel/lib/region"
	"github.com/ValentinKolb/dTravel/lib/travel"
	"github.com/ValentinKolb/dTravel/lib/util"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IService is the operation surface of the travel record store.
// Mutating operations are Create, Replace, UpdateDate and Delete, everything else is read-only.
// Missing records are reported as a *travel.Error with code travel.RetCNotFound.
type IService interface {
	// Create stores the payload under a new id and returns the stored record.
	Create(p travel.Payload) (travel.Record, error)
	// Read returns the record with the given id.
	Read(id uint64) (travel.Record, error)
	// Replace overwrites all fields of an existing record, keeping its id.
	Replace(id uint64, p travel.Payload) (travel.Record, error)
	// UpdateDate changes only the date of an existing record.
	UpdateDate(id uint64, date uint64) (travel.Record, error)
	// Delete removes a record and returns it. The id is never reused.
	Delete(id uint64) (travel.Record, error)

	// All returns every record in ascending id order.
	All() ([]travel.Record, error)
	// Count returns the number of stored records.
	Count() (uint64, error)
	// ByDateUpperBound returns the records with date <= the given date, ascending id order.
	ByDateUpperBound(date uint64) ([]travel.Record, error)
	// CountByDateUpperBound returns len(ByDateUpperBound(date)).
	CountByDateUpperBound(date uint64) (uint64, error)
	// ByDestination returns the records whose destination matches exactly, ascending id order.
	ByDestination(destination string) ([]travel.Record, error)
	// SortedByDate returns all records by ascending date, ties in id order.
	SortedByDate() ([]travel.Record, error)
	// Latest returns the n newest records. It is SortedByDate reversed and truncated to n.
	Latest(n uint64) ([]travel.Record, error)

	// GetInfo returns statistics about the stored data and the medium.
	// It is not guaranteed that the information is up-to-date!
	GetInfo() (Info, error)
	// Close releases the resources of the service.
	Close() error
}

// Info describes the state of a service
type Info struct {
	Records uint64                `json:"records" yaml:"records"`
	LastID  uint64                `json:"last_id" yaml:"last_id"`
	Sizes   util.HistogramSummary `json:"sizes" yaml:"sizes"`
	Medium  region.Info           `json:"medium" yaml:"medium"`
}
