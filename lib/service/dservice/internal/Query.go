package internal

import "github.com/ValentinKolb/dTravel/lib/travel"

// QueryType defines the possible queries for the state machine.
type QueryType uint8

const (
	QueryTRead                  QueryType = iota // Retrieve a record by id.
	QueryTAll                                    // Retrieve all records.
	QueryTCount                                  // Count all records.
	QueryTByDateUpperBound                       // Retrieve the records dated at or before Date.
	QueryTCountByDateUpperBound                  // Count the records dated at or before Date.
	QueryTByDestination                          // Retrieve the records for Destination.
	QueryTSortedByDate                           // Retrieve all records sorted by date.
	QueryTLatest                                 // Retrieve the N newest records.
	QueryTGetInfo                                // Retrieve statistics about the machine.
)

func (q QueryType) String() string {
	switch q {
	case QueryTRead:
		return "Read"
	case QueryTAll:
		return "All"
	case QueryTCount:
		return "Count"
	case QueryTByDateUpperBound:
		return "ByDateUpperBound"
	case QueryTCountByDateUpperBound:
		return "CountByDateUpperBound"
	case QueryTByDestination:
		return "ByDestination"
	case QueryTSortedByDate:
		return "SortedByDate"
	case QueryTLatest:
		return "Latest"
	case QueryTGetInfo:
		return "GetInfo"
	default:
		return "Unknown"
	}
}

// Query defines the structure for lookup requests (read-only) sent via SyncRead or StaleRead
type Query struct {
	Type        QueryType // The type of Query to perform.
	ID          uint64    // Used by Read.
	Date        uint64    // Used by the date range queries.
	N           uint64    // Used by Latest.
	Destination string    // Used by ByDestination.
}

// QueryResult is the result of a QueryTRead operation.
// List queries return []travel.Record, counts uint64 and GetInfo service.Info.
type QueryResult struct {
	Ok     bool
	Record travel.Record
}
