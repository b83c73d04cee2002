package dservice

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dTravel/lib/region/engines/maple"
	"github.com/ValentinKolb/dTravel/lib/service"
	servicetesting "github.com/ValentinKolb/dTravel/lib/service/testing"
	"github.com/ValentinKolb/dTravel/lib/travel"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/config"
)

const testTimeout = 5 * time.Second

func freeAddress(t testing.TB) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("cannot find a free port: %v", err)
	}
	defer l.Close()
	return l.Addr().String()
}

func newNodeHost(t testing.TB, dir, address string) *dragonboat.NodeHost {
	nh, err := dragonboat.NewNodeHost(config.NodeHostConfig{
		WALDir:         dir,
		NodeHostDir:    dir,
		RTTMillisecond: 5,
		RaftAddress:    address,
	})
	if err != nil {
		t.Fatalf("cannot create node host: %v", err)
	}
	return nh
}

// startShard starts a single replica shard and waits until it has elected itself
func startShard(t testing.TB, nh *dragonboat.NodeHost, address string, shardID uint64) service.IService {
	err := nh.StartConcurrentReplica(
		map[uint64]string{1: address},
		false,
		CreateStateMachineFactory(maple.Factory(nil)),
		config.Config{
			ReplicaID:          1,
			ShardID:            shardID,
			ElectionRTT:        10,
			HeartbeatRTT:       1,
			CheckQuorum:        true,
			SnapshotEntries:    10,
			CompactionOverhead: 5,
		},
	)
	if err != nil {
		t.Fatalf("cannot start shard %d: %v", shardID, err)
	}

	deadline := time.Now().Add(testTimeout)
	for {
		if _, _, ok, err := nh.GetLeaderID(shardID); err == nil && ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("shard %d elected no leader", shardID)
		}
		time.Sleep(10 * time.Millisecond)
	}
	return NewDistributedService(nh, shardID, testTimeout)
}

func TestDistributedService(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a raft node host")
	}

	address := freeAddress(t)
	nh := newNodeHost(t, t.TempDir(), address)
	defer nh.Close()

	// every test gets its own shard on the shared node host
	var nextShard atomic.Uint64
	nextShard.Store(100)

	servicetesting.RunServiceTests(t, "Raft", func(tb testing.TB) service.IService {
		shardID := nextShard.Add(1)
		tb.Cleanup(func() { _ = nh.StopShard(shardID) })
		return startShard(tb, nh, address, shardID)
	})
}

// TestRestart tests that a replica rebuilds its state from snapshots and the log
func TestRestart(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a raft node host")
	}

	dir := t.TempDir()
	address := freeAddress(t)
	const shardID = 7

	nh := newNodeHost(t, dir, address)
	svc := startShard(t, nh, address, shardID)

	// more entries than SnapshotEntries, so the restart uses a snapshot plus the log tail
	for i := 0; i < 25; i++ {
		if _, err := svc.Create(travel.Payload{Destination: "x", Date: uint64(i)}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if _, err := svc.Delete(25); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	nh.Close()

	nh = newNodeHost(t, dir, address)
	defer nh.Close()
	svc = startShard(t, nh, address, shardID)

	n, err := svc.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 24 {
		t.Errorf("Count after restart = %d, want 24", n)
	}

	rec, err := svc.Create(travel.Payload{Destination: "y"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if rec.ID != 26 {
		t.Errorf("id after restart = %d, want 26", rec.ID)
	}
}
