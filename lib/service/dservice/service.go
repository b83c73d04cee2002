package dservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/dTravel/lib/service"
	"github.com/ValentinKolb/dTravel/lib/service/dservice/internal"
	"github.com/ValentinKolb/dTravel/lib/travel"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/client"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	retries = 5
	log     = logger.GetLogger("service")
)

// serviceImpl is the concrete implementation of the replicated service.
// It encapsulates a Dragonboat NodeHost which is used to communicate with the state machine.
type serviceImpl struct {
	nh      *dragonboat.NodeHost
	shardID uint64
	cs      *client.Session
	timeout time.Duration
}

// NewDistributedService creates a new distributed service instance which uses raft consensus to ensure strict linearizability
// across multiple nodes.
func NewDistributedService(nh *dragonboat.NodeHost, shardID uint64, timeout time.Duration) service.IService {
	cs := nh.GetNoOPSession(shardID)
	return &serviceImpl{
		nh:      nh,
		shardID: shardID,
		cs:      cs,
		timeout: timeout,
	}
}

// --------------------------------------------------------------------------
// Internal write and read operations (used by interface methods)
// --------------------------------------------------------------------------

// write proposes a Command via SyncPropose and decodes the affected record from the result.
// The travel.RetCode of a failed command is restored from the result value.
func (s *serviceImpl) write(cmd internal.Command) (travel.Record, error) {
	for i := 0; i < retries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)

		res, err := s.nh.SyncPropose(ctx, s.cs, cmd.Serialize())
		cancel()

		// Check for system busy errors
		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncPropose: System busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(s.timeout / 10)
			continue
		}

		if err != nil {
			return travel.Record{}, travel.NewError(travel.RetCInternalError, err.Error())
		}
		if res.Value != uint64(travel.RetCSuccess) {
			return travel.Record{}, travel.NewError(travel.RetCode(res.Value), string(res.Data))
		}
		return travel.Decode(res.Data)
	}
	return travel.Record{}, travel.NewError(travel.RetCInternalError, "timeout")
}

// read is a generic helper function that queries the state machine
// and attempts to convert the response into the expected type R.
//
// This function uses the SyncRead function (dragonboat) by default to Query the state machine.
// If linearizability is not required, the stale parameter can be set to true to use the faster StaleRead function.
//
// If the read operation fails due to a system busy error, the function retries up to 5 times.
func read[R any](s *serviceImpl, q internal.Query, stale bool) (R, error) {
	var zero R
	for i := 0; i < retries; i++ {

		var res interface{}
		var err error

		// Query the state machine, use StaleRead if stale is set otherwise use SyncRead (default)
		if stale {
			res, err = s.nh.StaleRead(s.shardID, q)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			res, err = s.nh.SyncRead(ctx, s.shardID, q)
			cancel()
		}

		// Check for system busy errors
		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncRead: System busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(s.timeout / 10)
			continue
		}

		if err != nil {
			var te *travel.Error
			if errors.As(err, &te) {
				return zero, te
			}
			return zero, travel.NewError(travel.RetCInternalError, err.Error())
		}

		// The state machine is expected to return the response in the expected type R.
		casted, ok := res.(R)
		if !ok {
			return zero, travel.NewError(travel.RetCInternalError,
				fmt.Sprintf("unexpected type: received %T, expected %T", res, zero))
		}
		return casted, nil
	}
	return zero, travel.NewError(travel.RetCInternalError, "timeout")
}

// --------------------------------------------------------------------------
// Interface Methods (docs see service/interface.go)
// --------------------------------------------------------------------------

func (s *serviceImpl) Create(p travel.Payload) (travel.Record, error) {
	return s.write(internal.Command{
		Type:    internal.CommandTCreate,
		Payload: p,
	})
}

func (s *serviceImpl) Replace(id uint64, p travel.Payload) (travel.Record, error) {
	return s.write(internal.Command{
		Type:    internal.CommandTReplace,
		ID:      id,
		Payload: p,
	})
}

func (s *serviceImpl) UpdateDate(id uint64, date uint64) (travel.Record, error) {
	return s.write(internal.Command{
		Type: internal.CommandTUpdateDate,
		ID:   id,
		Date: date,
	})
}

func (s *serviceImpl) Delete(id uint64) (travel.Record, error) {
	return s.write(internal.Command{
		Type: internal.CommandTDelete,
		ID:   id,
	})
}

func (s *serviceImpl) Read(id uint64) (travel.Record, error) {
	res, err := read[internal.QueryResult](s, internal.Query{
		Type: internal.QueryTRead,
		ID:   id,
	}, false)
	if err != nil {
		return travel.Record{}, err
	}
	if !res.Ok {
		return travel.Record{}, travel.ErrReadNotFound(id)
	}
	return res.Record, nil
}

func (s *serviceImpl) All() ([]travel.Record, error) {
	return read[[]travel.Record](s, internal.Query{Type: internal.QueryTAll}, false)
}

func (s *serviceImpl) Count() (uint64, error) {
	return read[uint64](s, internal.Query{Type: internal.QueryTCount}, false)
}

func (s *serviceImpl) ByDateUpperBound(date uint64) ([]travel.Record, error) {
	return read[[]travel.Record](s, internal.Query{
		Type: internal.QueryTByDateUpperBound,
		Date: date,
	}, false)
}

func (s *serviceImpl) CountByDateUpperBound(date uint64) (uint64, error) {
	return read[uint64](s, internal.Query{
		Type: internal.QueryTCountByDateUpperBound,
		Date: date,
	}, false)
}

func (s *serviceImpl) ByDestination(destination string) ([]travel.Record, error) {
	return read[[]travel.Record](s, internal.Query{
		Type:        internal.QueryTByDestination,
		Destination: destination,
	}, false)
}

func (s *serviceImpl) SortedByDate() ([]travel.Record, error) {
	return read[[]travel.Record](s, internal.Query{Type: internal.QueryTSortedByDate}, false)
}

func (s *serviceImpl) Latest(n uint64) ([]travel.Record, error) {
	return read[[]travel.Record](s, internal.Query{
		Type: internal.QueryTLatest,
		N:    n,
	}, false)
}

func (s *serviceImpl) GetInfo() (service.Info, error) {
	return read[service.Info](
		s,
		internal.Query{Type: internal.QueryTGetInfo},
		true, // Note: allow for stale reads
	)
}

// Close is a no-op, the node host is owned by the caller
func (s *serviceImpl) Close() error {
	return nil
}
