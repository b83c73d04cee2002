package pebbledb

import (
	"testing"

	"github.com/ValentinKolb/dTravel/lib/region"
	regiontesting "github.com/ValentinKolb/dTravel/lib/region/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func factory(t testing.TB) region.IMedium {
	medium, err := NewPebbleMedium(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("cannot open pebble medium: %v", err)
	}
	return medium
}

func Test(t *testing.T) {
	regiontesting.RunMediumTests(t, "Pebble", factory)
}

func Benchmark(b *testing.B) {
	regiontesting.RunMediumBenchmarks(b, "Pebble", factory)
}

// TestReopen tests that committed transactions survive closing the medium
func TestReopen(t *testing.T) {
	dir := t.TempDir()

	medium, err := NewPebbleMedium(dir, &Options{CacheSize: 1 << 20})
	require.NoError(t, err)

	require.NoError(t, medium.Update(func(tx region.ITxn) error {
		if err := tx.Writer(region.IDCounter).Set(0, []byte{1}); err != nil {
			return err
		}
		return tx.Writer(region.IDRecords).Set(1, []byte("persisted"))
	}))
	require.NoError(t, medium.Close())

	_, err = medium.Snapshot()
	assert.ErrorIs(t, err, ErrClosed)

	reopened, err := NewPebbleMedium(dir, nil)
	require.NoError(t, err)
	defer reopened.Close()

	snap, err := reopened.Snapshot()
	require.NoError(t, err)
	defer snap.Release()

	value, ok, err := snap.Reader(region.IDRecords).Get(1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", string(value))

	ids, err := snap.Regions()
	require.NoError(t, err)
	assert.Equal(t, []region.ID{region.IDCounter, region.IDRecords}, ids)

	info := reopened.GetInfo()
	assert.Equal(t, region.ImplPebble, info.Impl)
	assert.Equal(t, dir, info.Path)
	assert.True(t, reopened.SupportsFeature(region.FeatureDurable|region.FeatureAtomicBatch))
}

func TestKeyEncoding(t *testing.T) {
	raw := encodeKey(region.IDRecords, 1<<40)
	id, key, err := decodeKey(raw)
	require.NoError(t, err)
	assert.Equal(t, region.IDRecords, id)
	assert.Equal(t, uint64(1<<40), key)

	_, _, err = decodeKey(raw[:4])
	assert.Error(t, err)

	assert.Nil(t, bounds(255).UpperBound)
	assert.Equal(t, []byte{2}, bounds(region.IDRecords).UpperBound)
}
