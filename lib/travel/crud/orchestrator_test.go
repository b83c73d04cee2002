package crud

import (
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ValentinKolb/dTravel/lib/region"
	"github.com/ValentinKolb/dTravel/lib/region/engines/maple"
	"github.com/ValentinKolb/dTravel/lib/region/engines/pebbledb"
	"github.com/ValentinKolb/dTravel/lib/region/engines/sqlitedb"
	"github.com/ValentinKolb/dTravel/lib/travel"
	"github.com/ValentinKolb/dTravel/lib/travel/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrchestrator(t *testing.T) (*region.Manager, *Orchestrator) {
	m := region.NewManager(maple.NewMapleMedium(nil))
	t.Cleanup(func() { _ = m.Close() })
	return m, New(m)
}

func payload(dest string, date uint64) travel.Payload {
	return travel.Payload{
		Destination:      dest,
		Date:             date,
		Notes:            "notes for " + dest,
		HistoricalEvents: []string{"founded", "rebuilt"},
	}
}

func ids(recs []travel.Record) []uint64 {
	out := make([]uint64, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func count(t *testing.T, m *region.Manager, o *Orchestrator) uint64 {
	n, err := query.NewEngine(m, o.Records()).Count()
	require.NoError(t, err)
	return n
}

func TestCreateRead(t *testing.T) {
	_, o := newOrchestrator(t)

	created, err := o.Create(payload("Paris", 10))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), created.ID)

	read, err := o.Read(created.ID)
	require.NoError(t, err)
	assert.True(t, created.Equal(read))

	// mutating the returned copy does not touch the stored record
	read.HistoricalEvents[0] = "changed"
	again, err := o.Read(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "founded", again.HistoricalEvents[0])
}

func TestCreateDoesNotAliasPayload(t *testing.T) {
	_, o := newOrchestrator(t)

	p := payload("Paris", 10)
	created, err := o.Create(p)
	require.NoError(t, err)

	p.HistoricalEvents[0] = "changed"
	assert.Equal(t, "founded", created.HistoricalEvents[0])
}

func TestIDsStrictlyIncreaseAcrossDeletes(t *testing.T) {
	_, o := newOrchestrator(t)

	var last uint64
	for i := 0; i < 20; i++ {
		rec, err := o.Create(payload("x", uint64(i)))
		require.NoError(t, err)
		assert.Equal(t, last+1, rec.ID)
		last = rec.ID

		if i%3 == 0 {
			_, err := o.Delete(rec.ID)
			require.NoError(t, err)
		}
	}

	lastID, err := o.LastID()
	require.NoError(t, err)
	assert.Equal(t, last, lastID)
}

func TestDeleteThenRead(t *testing.T) {
	_, o := newOrchestrator(t)

	rec, err := o.Create(payload("Rome", 1))
	require.NoError(t, err)

	deleted, err := o.Delete(rec.ID)
	require.NoError(t, err)
	assert.True(t, rec.Equal(deleted))

	_, err = o.Read(rec.ID)
	require.Error(t, err)
	assert.True(t, travel.IsNotFound(err))
	assert.Contains(t, err.Error(), "id=1")

	_, err = o.Delete(rec.ID)
	assert.True(t, travel.IsNotFound(err))
}

func TestReplace(t *testing.T) {
	_, o := newOrchestrator(t)

	rec, err := o.Create(payload("Rome", 1))
	require.NoError(t, err)

	replaced, err := o.Replace(rec.ID, travel.Payload{Destination: "Oslo", Date: 7})
	require.NoError(t, err)
	assert.Equal(t, travel.Record{ID: rec.ID, Destination: "Oslo", Date: 7}, replaced)

	read, err := o.Read(rec.ID)
	require.NoError(t, err)
	assert.True(t, replaced.Equal(read))
}

func TestUpdateDateChangesOnlyDate(t *testing.T) {
	_, o := newOrchestrator(t)

	rec, err := o.Create(payload("Rome", 1))
	require.NoError(t, err)

	updated, err := o.UpdateDate(rec.ID, 99)
	require.NoError(t, err)

	want := rec.Clone()
	want.Date = 99
	assert.True(t, want.Equal(updated))

	read, err := o.Read(rec.ID)
	require.NoError(t, err)
	assert.True(t, want.Equal(read))
}

func TestNotFoundMessages(t *testing.T) {
	m, o := newOrchestrator(t)

	_, err := o.Read(5)
	assert.EqualError(t, err, travel.ErrReadNotFound(5).Error())
	_, err = o.Replace(5, payload("x", 1))
	assert.EqualError(t, err, travel.ErrReplaceNotFound(5).Error())
	_, err = o.UpdateDate(5, 1)
	assert.EqualError(t, err, travel.ErrUpdateDateNotFound(5).Error())
	_, err = o.Delete(5)
	assert.EqualError(t, err, travel.ErrDeleteNotFound(5).Error())

	_, ok, err := o.Lookup(5)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Zero(t, count(t, m, o))
	lastID, err := o.LastID()
	require.NoError(t, err)
	assert.Zero(t, lastID, "failed mutations never allocate")
}

func TestEncodingFaultRollsBack(t *testing.T) {
	m, o := newOrchestrator(t)

	rec, err := o.Create(payload("Rome", 1))
	require.NoError(t, err)

	huge := travel.Payload{Destination: "x", Notes: strings.Repeat("n", travel.MaxRecordSize)}

	_, err = o.Create(huge)
	require.Error(t, err)
	assert.Equal(t, travel.RetCEncodingFault, travel.CodeOf(err))

	lastID, err := o.LastID()
	require.NoError(t, err)
	assert.Equal(t, rec.ID, lastID, "the allocation of the failed create is discarded")
	assert.Equal(t, uint64(1), count(t, m, o))

	_, err = o.Replace(rec.ID, huge)
	assert.Equal(t, travel.RetCEncodingFault, travel.CodeOf(err))

	read, err := o.Read(rec.ID)
	require.NoError(t, err)
	assert.True(t, rec.Equal(read))

	next, err := o.Create(payload("Oslo", 2))
	require.NoError(t, err)
	assert.Equal(t, rec.ID+1, next.ID)
}

func TestAllocatorOverflow(t *testing.T) {
	m, o := newOrchestrator(t)

	require.NoError(t, m.Update(func(tx region.ITxn) error {
		return tx.Writer(region.IDCounter).Set(0, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	}))

	_, err := o.Create(payload("x", 1))
	require.Error(t, err)
	assert.Equal(t, travel.RetCAllocatorOverflow, travel.CodeOf(err))
	assert.Zero(t, count(t, m, o))

	lastID, err := o.LastID()
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), lastID)
}

func TestConcurrentCreates(t *testing.T) {
	m, o := newOrchestrator(t)

	const workers, perWorker = 8, 50

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[uint64]bool)
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				rec, err := o.Create(payload("x", uint64(i)))
				if err != nil {
					t.Errorf("create failed: %v", err)
					return
				}
				mu.Lock()
				seen[rec.ID] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	for id := uint64(1); id <= workers*perWorker; id++ {
		assert.True(t, seen[id], "id %d missing", id)
	}
	assert.Equal(t, uint64(workers*perWorker), count(t, m, o))
}

// TestCounterAndRecordsStayConsistent checks that readers never see an
// allocated id without its record while creates run concurrently.
func TestCounterAndRecordsStayConsistent(t *testing.T) {
	m, o := newOrchestrator(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if _, err := o.Create(payload("x", uint64(i))); err != nil {
				t.Errorf("create failed: %v", err)
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		require.NoError(t, m.View(func(v region.IView) error {
			last, err := o.alloc.Current(v)
			if err != nil {
				return err
			}
			n, err := o.Records().Count(v)
			if err != nil {
				return err
			}
			assert.Equal(t, last, n)
			return nil
		}))
	}
}

func TestScenarioA(t *testing.T) {
	m, o := newOrchestrator(t)
	for _, date := range []uint64{50, 10, 30} {
		_, err := o.Create(payload("x", date))
		require.NoError(t, err)
	}
	e := query.NewEngine(m, o.Records())

	sorted, err := e.SortedByDateAscending()
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3, 1}, ids(sorted))

	latest, err := e.Latest(2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, ids(latest))
}

func TestScenarioB(t *testing.T) {
	m, o := newOrchestrator(t)

	first, err := o.Create(payload("x", 1))
	require.NoError(t, err)
	_, err = o.Delete(first.ID)
	require.NoError(t, err)

	second, err := o.Create(payload("x", 1))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.ID)
	assert.Equal(t, uint64(1), count(t, m, o))
}

func TestScenarioC(t *testing.T) {
	m, o := newOrchestrator(t)

	_, err := o.Replace(99, payload("x", 1))
	require.Error(t, err)
	assert.True(t, travel.IsNotFound(err))
	assert.Contains(t, err.Error(), "id=99")
	assert.Zero(t, count(t, m, o))
}

func TestScenarioD(t *testing.T) {
	m, o := newOrchestrator(t)
	for _, dest := range []string{"Paris", "Rome", "Paris"} {
		_, err := o.Create(payload(dest, 1))
		require.NoError(t, err)
	}

	found, err := query.NewEngine(m, o.Records()).ByDestination("Paris")
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, ids(found))
}

// --------------------------------------------------------------------------
// Durability
// --------------------------------------------------------------------------

func testRestart(t *testing.T, factory region.Factory) {
	m, err := region.Open(factory)
	require.NoError(t, err)
	o := New(m)

	for _, dest := range []string{"Paris", "Rome", "Oslo"} {
		_, err := o.Create(payload(dest, 1))
		require.NoError(t, err)
	}
	_, err = o.Delete(3)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	m, err = region.Open(factory)
	require.NoError(t, err)
	defer m.Close()
	o = New(m)

	read, err := o.Read(2)
	require.NoError(t, err)
	assert.Equal(t, "Rome", read.Destination)
	assert.Equal(t, uint64(2), count(t, m, o))

	next, err := o.Create(payload("Lima", 1))
	require.NoError(t, err)
	assert.Equal(t, uint64(4), next.ID, "deleted ids are not reused after a restart")
}

func TestRestartPebble(t *testing.T) {
	testRestart(t, pebbledb.Factory(filepath.Join(t.TempDir(), "pebble"), nil))
}

func TestRestartSQLite(t *testing.T) {
	testRestart(t, sqlitedb.Factory(filepath.Join(t.TempDir(), "travel.sqlite")))
}

func TestStats(t *testing.T) {
	_, o := newOrchestrator(t)

	for _, dest := range []string{"Paris", "Rome", "Oslo"} {
		_, err := o.Create(payload(dest, 1))
		require.NoError(t, err)
	}
	_, err := o.Delete(1)
	require.NoError(t, err)

	stats, err := o.Stats()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.Records)
	assert.Equal(t, uint64(3), stats.LastID)
	assert.Equal(t, int64(2), stats.Sizes.GetCount())
}
