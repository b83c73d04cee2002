package common

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestParseServerShardType(t *testing.T) {
	for _, s := range []string{"local", "raft"} {
		if _, err := ParseServerShardType(s); err != nil {
			t.Errorf("ParseServerShardType(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseServerShardType("lstore"); err == nil {
		t.Errorf("Expected an error for an unknown shard type")
	}
}

func TestServerConfig(t *testing.T) {
	config := ServerConfig{
		Shards:         []ServerShard{{ShardID: 100, Type: ShardTypeLocal}},
		Medium:         "pebble",
		DataDir:        "data",
		ReplicaID:      1,
		ClusterMembers: map[uint64]string{1: "localhost:63001"},
		Endpoint:       "localhost:8080",
	}

	if config.HasRemoteShard() {
		t.Errorf("Local only config reports a remote shard")
	}
	if strings.Contains(config.String(), "RAFT Parameters") {
		t.Errorf("Local only config prints raft parameters")
	}

	config.Shards = append(config.Shards, ServerShard{ShardID: 200, Type: ShardTypeRaft})
	if !config.HasRemoteShard() {
		t.Errorf("Config with a raft shard reports no remote shard")
	}
	if !strings.Contains(config.String(), "localhost:63001") {
		t.Errorf("Cluster members are missing in:\n%s", config.String())
	}

	if got := config.ShardDir(100); got != filepath.Join("data", "shard-100") {
		t.Errorf("ShardDir(100) = %s", got)
	}
	if nh := config.ToNodeHostConfig(); nh.NodeHostDir != filepath.Join("data", "raft") || nh.RaftAddress != "localhost:63001" {
		t.Errorf("Unexpected node host config: %+v", nh)
	}
	if rc := config.ToDragonboatConfig(200); rc.ShardID != 200 || rc.ReplicaID != 1 || !rc.CheckQuorum {
		t.Errorf("Unexpected raft config: %+v", rc)
	}
}
