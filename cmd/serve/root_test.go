package serve

import (
	"testing"

	"github.com/ValentinKolb/dTravel/lib/util"
	"github.com/ValentinKolb/dTravel/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShards(t *testing.T) {
	t.Run("mixed", func(t *testing.T) {
		shards, err := parseShards("100=local, 200 = raft")
		require.NoError(t, err)
		assert.Equal(t, []common.ServerShard{
			{ShardID: 100, Type: common.ShardTypeLocal},
			{ShardID: 200, Type: common.ShardTypeRaft},
		}, shards)
	})

	for _, invalid := range []string{"", "100", "abc=local", "100=lstore", "100=local,100=raft", "1=local=x"} {
		t.Run("invalid "+invalid, func(t *testing.T) {
			_, err := parseShards(invalid)
			assert.Error(t, err)
		})
	}
}

func TestParseClusterMembers(t *testing.T) {
	members, err := parseClusterMembers("node-1=localhost:63001,node-2=localhost:63002")
	require.NoError(t, err)
	assert.Len(t, members, 2)
	assert.Equal(t, "localhost:63001", members[util.HashString("node-1", 0)])
	assert.Equal(t, "localhost:63002", members[util.HashString("node-2", 0)])

	_, err = parseClusterMembers("node-1")
	assert.Error(t, err)
}
