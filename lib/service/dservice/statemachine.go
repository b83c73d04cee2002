package dservice

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/dTravel/lib/region"
	"github.com/ValentinKolb/dTravel/lib/service"
	"github.com/ValentinKolb/dTravel/lib/service/dservice/internal"
	"github.com/ValentinKolb/dTravel/lib/travel"
	"github.com/ValentinKolb/dTravel/lib/travel/crud"
	"github.com/ValentinKolb/dTravel/lib/travel/query"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

// --------------------------------------------------------------------------
// State Machine Implementation
// --------------------------------------------------------------------------

// TravelStateMachine is a state machine implementation for Dragonboat RAFT
type TravelStateMachine struct {
	replicaID uint64
	shardID   uint64
	mgr       *region.Manager
	crud      *crud.Orchestrator
	query     *query.Engine
}

// CreateStateMachineFactory returns a function that can be used by dragonboat to create a new state machine for a node host.
// The factory pattern is used to enable the caller to pass an interchangeable medium factory.
//
// The medium must start empty every time: dragonboat rebuilds the state from the latest
// snapshot and the log, a medium that kept data across restarts would apply entries twice.
func CreateStateMachineFactory(mediumFactory region.Factory) func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
	return func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
		mgr, err := region.Open(mediumFactory)
		if err != nil {
			log.Panicf("shard %d: %v", shardID, err)
		}
		orchestrator := crud.New(mgr)
		return &TravelStateMachine{
			replicaID: replicaID,
			shardID:   shardID,
			mgr:       mgr,
			crud:      orchestrator,
			query:     query.NewEngine(mgr, orchestrator.Records()),
		}
	}
}

// Lookup handles read-only queries by mapping each Query operation to the orchestrator or query engine.
func (fsm *TravelStateMachine) Lookup(itf interface{}) (interface{}, error) {

	// try to parse Query into Query struct
	q, ok := itf.(internal.Query)
	if !ok {
		return nil, travel.NewError(travel.RetCInternalError, fmt.Sprintf("invalid Query type: %T", itf))
	}

	switch q.Type {
	case internal.QueryTRead:
		rec, ok, err := fsm.crud.Lookup(q.ID)
		if err != nil {
			return nil, err
		}
		return internal.QueryResult{Ok: ok, Record: rec}, nil
	case internal.QueryTAll:
		return fsm.query.All()
	case internal.QueryTCount:
		return fsm.query.Count()
	case internal.QueryTByDateUpperBound:
		return fsm.query.ByDateUpperBound(q.Date)
	case internal.QueryTCountByDateUpperBound:
		return fsm.query.CountByDateUpperBound(q.Date)
	case internal.QueryTByDestination:
		return fsm.query.ByDestination(q.Destination)
	case internal.QueryTSortedByDate:
		return fsm.query.SortedByDateAscending()
	case internal.QueryTLatest:
		return fsm.query.Latest(q.N)
	case internal.QueryTGetInfo:
		return service.CollectInfo(fsm.mgr, fsm.crud)
	default:
		return nil, travel.NewError(travel.RetCInvalidOperation, fmt.Sprintf("unknown Query operation: %d", q.Type))
	}
}

// apply runs one command through the orchestrator
func (fsm *TravelStateMachine) apply(cmd internal.Command) (travel.Record, error) {
	switch cmd.Type {
	case internal.CommandTCreate:
		return fsm.crud.Create(cmd.Payload)
	case internal.CommandTReplace:
		return fsm.crud.Replace(cmd.ID, cmd.Payload)
	case internal.CommandTUpdateDate:
		return fsm.crud.UpdateDate(cmd.ID, cmd.Date)
	case internal.CommandTDelete:
		return fsm.crud.Delete(cmd.ID)
	default:
		return travel.Record{}, travel.NewError(travel.RetCInvalidOperation, fmt.Sprintf("unknown Command operation: %s", cmd.Type))
	}
}

// Update handles write commands on the orchestrator.
// All write operations are serialized into []byte and are accessible via the entries struct.
// A failed command only fails its own entry, the result carries the travel.RetCode.
func (fsm *TravelStateMachine) Update(entries []sm.Entry) ([]sm.Entry, error) {

	// Nothing to do
	if len(entries) == 0 {
		return entries, nil
	}

	// Stats
	start := time.Now()

	for idx, e := range entries {
		if len(e.Cmd) == 0 {
			entries[idx].Result = sm.Result{Value: uint64(travel.RetCInvalidOperation), Data: []byte("empty command ignored")}
			continue
		}

		cmd := internal.Command{}
		if err := cmd.Deserialize(e.Cmd); err != nil {
			entries[idx].Result = sm.Result{
				Value: uint64(travel.RetCInternalError),
				Data:  []byte(fmt.Sprintf("failed to deserialize command: %v", err)),
			}
			continue
		}

		rec, err := fsm.apply(cmd)
		if err != nil {
			code := travel.CodeOf(err)
			if code != travel.RetCNotFound {
				log.Warningf("shard %d: %s at index %d failed: %v", fsm.shardID, cmd.Type, e.Index, err)
			}
			entries[idx].Result = sm.Result{Value: uint64(code), Data: []byte(errorMessage(err))}
			continue
		}
		entries[idx].Result = sm.Result{
			Value: uint64(travel.RetCSuccess),
			Data:  rec.AppendBinary(make([]byte, 0, rec.SizeBytes())),
		}
	}

	// Log if the update took long
	if elapsed := time.Since(start); elapsed > time.Millisecond {
		log.Infof("State machine took long to update. Batch updated %d entries, took %.2fms:", len(entries), float64(elapsed)/float64(time.Millisecond))
	}
	return entries, nil
}

// errorMessage strips the travel.Error prefix so the client can rebuild the error unchanged
func errorMessage(err error) string {
	var te *travel.Error
	if errors.As(err, &te) {
		return te.Msg
	}
	return err.Error()
}

// PrepareSnapshot captures a checkpoint of the medium. Updates may continue while it is saved.
func (fsm *TravelStateMachine) PrepareSnapshot() (interface{}, error) {
	return fsm.mgr.Checkpoint()
}

// SaveSnapshot writes the checkpoint taken by PrepareSnapshot in the region snapshot format
func (fsm *TravelStateMachine) SaveSnapshot(ctx interface{}, writer io.Writer, _ sm.ISnapshotFileCollection, _ <-chan struct{}) error {
	checkpoint, ok := ctx.(region.ISnapshot)
	if !ok {
		return fmt.Errorf("invalid snapshot context type: %T", ctx)
	}
	defer checkpoint.Release()
	return region.WriteSnapshot(writer, checkpoint)
}

// RecoverFromSnapshot replaces the whole state with the content of the snapshot
func (fsm *TravelStateMachine) RecoverFromSnapshot(r io.Reader, _ []sm.SnapshotFile, _ <-chan struct{}) error {
	return fsm.mgr.Load(r)
}

// Close performs any necessary cleanup.
func (fsm *TravelStateMachine) Close() error {
	return fsm.mgr.Close()
}
