package testing

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/ValentinKolb/dTravel/lib/service"
	"github.com/ValentinKolb/dTravel/lib/travel"
)

// ServiceFactory creates a fresh, empty service for one test.
// The suite closes the service when the test ends.
type ServiceFactory func(t testing.TB) service.IService

// RunServiceTests runs the conformance suite for an IService implementation.
func RunServiceTests(t *testing.T, name string, factory ServiceFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Create&Read", func(t *testing.T) {
			testCreateRead(t, open(t, factory))
		})

		t.Run("MonotonicIDs", func(t *testing.T) {
			testMonotonicIDs(t, open(t, factory))
		})

		t.Run("NotFound", func(t *testing.T) {
			testNotFound(t, open(t, factory))
		})

		t.Run("Replace", func(t *testing.T) {
			testReplace(t, open(t, factory))
		})

		t.Run("UpdateDate", func(t *testing.T) {
			testUpdateDate(t, open(t, factory))
		})

		t.Run("Queries", func(t *testing.T) {
			testQueries(t, open(t, factory))
		})

		t.Run("Latest", func(t *testing.T) {
			testLatest(t, open(t, factory))
		})

		t.Run("EncodingFault", func(t *testing.T) {
			testEncodingFault(t, open(t, factory))
		})

		t.Run("ConcurrentCreates", func(t *testing.T) {
			testConcurrentCreates(t, open(t, factory))
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, open(t, factory))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func open(t *testing.T, factory ServiceFactory) service.IService {
	svc := factory(t)
	t.Cleanup(func() {
		if err := svc.Close(); err != nil {
			t.Logf("closing service failed: %v", err)
		}
	})
	return svc
}

func payload(dest string, date uint64) travel.Payload {
	return travel.Payload{
		Destination:      dest,
		Date:             date,
		Notes:            fmt.Sprintf("visited %s", dest),
		HistoricalEvents: []string{"founded", "expanded"},
	}
}

func mustCreate(t *testing.T, svc service.IService, p travel.Payload) travel.Record {
	t.Helper()
	rec, err := svc.Create(p)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return rec
}

func mustCount(t *testing.T, svc service.IService) uint64 {
	t.Helper()
	n, err := svc.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	return n
}

func ids(recs []travel.Record) []uint64 {
	out := make([]uint64, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func expectIDs(t *testing.T, op string, recs []travel.Record, err error, want ...uint64) {
	t.Helper()
	if err != nil {
		t.Errorf("%s failed: %v", op, err)
		return
	}
	if want == nil {
		want = []uint64{}
	}
	if got := ids(recs); !slices.Equal(got, want) {
		t.Errorf("%s returned ids %v, want %v", op, got, want)
	}
}

func expectCode(t *testing.T, op string, err error, want travel.RetCode) {
	t.Helper()
	if got := travel.CodeOf(err); got != want {
		t.Errorf("%s returned code %s (%v), want %s", op, got, err, want)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testCreateRead(t *testing.T, svc service.IService) {
	p := payload("Kyoto", 42)
	created := mustCreate(t, svc, p)

	if created.ID != 1 {
		t.Errorf("first record got id %d, want 1", created.ID)
	}
	if !created.Equal(p.WithID(created.ID)) {
		t.Errorf("Create returned %+v, want the payload under id %d", created, created.ID)
	}

	read, err := svc.Read(created.ID)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !read.Equal(created) {
		t.Errorf("Read returned %+v, want %+v", read, created)
	}

	// empty event lists are allowed
	empty := mustCreate(t, svc, travel.Payload{Destination: "Nowhere"})
	read, err = svc.Read(empty.ID)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(read.HistoricalEvents) != 0 {
		t.Errorf("expected no events, got %v", read.HistoricalEvents)
	}
}

func testMonotonicIDs(t *testing.T, svc service.IService) {
	var last uint64
	for i := 0; i < 10; i++ {
		rec := mustCreate(t, svc, payload("x", uint64(i)))
		if rec.ID != last+1 {
			t.Errorf("create %d got id %d, want %d", i, rec.ID, last+1)
		}
		last = rec.ID

		if i%2 == 0 {
			if _, err := svc.Delete(rec.ID); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, err := svc.Read(rec.ID); !travel.IsNotFound(err) {
				t.Errorf("Read after Delete returned %v, want NotFound", err)
			}
		}
	}

	if n := mustCount(t, svc); n != 5 {
		t.Errorf("Count = %d, want 5", n)
	}
}

func testNotFound(t *testing.T, svc service.IService) {
	_, err := svc.Read(99)
	expectCode(t, "Read", err, travel.RetCNotFound)
	_, err = svc.Replace(99, payload("x", 1))
	expectCode(t, "Replace", err, travel.RetCNotFound)
	if err != nil && !strings.Contains(err.Error(), "id=99") {
		t.Errorf("Replace error %q does not reference the id", err)
	}
	_, err = svc.UpdateDate(99, 1)
	expectCode(t, "UpdateDate", err, travel.RetCNotFound)
	_, err = svc.Delete(99)
	expectCode(t, "Delete", err, travel.RetCNotFound)

	if n := mustCount(t, svc); n != 0 {
		t.Errorf("Count = %d after failed mutations, want 0", n)
	}

	// failed mutations do not consume ids
	if rec := mustCreate(t, svc, payload("x", 1)); rec.ID != 1 {
		t.Errorf("first record got id %d, want 1", rec.ID)
	}
}

func testReplace(t *testing.T, svc service.IService) {
	rec := mustCreate(t, svc, payload("Rome", 1))

	replacement := travel.Payload{Destination: "Oslo", Date: 5, Notes: "cold", HistoricalEvents: []string{"a", "b", "c"}}
	replaced, err := svc.Replace(rec.ID, replacement)
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if want := replacement.WithID(rec.ID); !replaced.Equal(want) {
		t.Errorf("Replace returned %+v, want %+v", replaced, want)
	}

	read, err := svc.Read(rec.ID)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !read.Equal(replaced) {
		t.Errorf("Read returned %+v, want %+v", read, replaced)
	}
}

func testUpdateDate(t *testing.T, svc service.IService) {
	rec := mustCreate(t, svc, payload("Rome", 1))

	updated, err := svc.UpdateDate(rec.ID, 1234)
	if err != nil {
		t.Fatalf("UpdateDate failed: %v", err)
	}

	want := rec.Clone()
	want.Date = 1234
	if !updated.Equal(want) {
		t.Errorf("UpdateDate returned %+v, want %+v", updated, want)
	}
	read, err := svc.Read(rec.ID)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !read.Equal(want) {
		t.Errorf("Read returned %+v, want %+v", read, want)
	}
}

func testQueries(t *testing.T, svc service.IService) {
	// ids 1..5
	mustCreate(t, svc, payload("Paris", 50))
	mustCreate(t, svc, payload("Rome", 10))
	mustCreate(t, svc, payload("Paris", 30))
	mustCreate(t, svc, payload("paris", 10))
	mustCreate(t, svc, payload("Lima", 30))

	all, err := svc.All()
	expectIDs(t, "All", all, err, 1, 2, 3, 4, 5)

	recs, err := svc.ByDateUpperBound(30)
	expectIDs(t, "ByDateUpperBound(30)", recs, err, 2, 3, 4, 5)
	recs, err = svc.ByDateUpperBound(9)
	expectIDs(t, "ByDateUpperBound(9)", recs, err)

	for _, date := range []uint64{0, 10, 30, 50} {
		recs, err := svc.ByDateUpperBound(date)
		if err != nil {
			t.Fatalf("ByDateUpperBound failed: %v", err)
		}
		n, err := svc.CountByDateUpperBound(date)
		if err != nil {
			t.Fatalf("CountByDateUpperBound failed: %v", err)
		}
		if n != uint64(len(recs)) {
			t.Errorf("CountByDateUpperBound(%d) = %d, want %d", date, n, len(recs))
		}
	}

	recs, err = svc.ByDestination("Paris")
	expectIDs(t, "ByDestination(Paris)", recs, err, 1, 3)
	recs, err = svc.ByDestination("Pari")
	expectIDs(t, "ByDestination(Pari)", recs, err)

	recs, err = svc.SortedByDate()
	expectIDs(t, "SortedByDate", recs, err, 2, 4, 3, 5, 1)
}

func testLatest(t *testing.T, svc service.IService) {
	recs, err := svc.Latest(3)
	expectIDs(t, "Latest on empty service", recs, err)

	for _, date := range []uint64{50, 10, 30} {
		mustCreate(t, svc, payload("x", date))
	}

	recs, err = svc.Latest(0)
	expectIDs(t, "Latest(0)", recs, err)
	recs, err = svc.Latest(2)
	expectIDs(t, "Latest(2)", recs, err, 1, 3)
	recs, err = svc.Latest(1 << 40)
	expectIDs(t, "Latest(huge)", recs, err, 1, 3, 2)
}

func testEncodingFault(t *testing.T, svc service.IService) {
	rec := mustCreate(t, svc, payload("Rome", 1))

	huge := payload("Rome", 1)
	huge.HistoricalEvents = []string{strings.Repeat("e", travel.MaxRecordSize)}

	_, err := svc.Create(huge)
	expectCode(t, "Create", err, travel.RetCEncodingFault)
	_, err = svc.Replace(rec.ID, huge)
	expectCode(t, "Replace", err, travel.RetCEncodingFault)

	if n := mustCount(t, svc); n != 1 {
		t.Errorf("Count = %d after faults, want 1", n)
	}
	read, err := svc.Read(rec.ID)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !read.Equal(rec) {
		t.Errorf("record changed by a failed replace: %+v", read)
	}
	if next := mustCreate(t, svc, payload("x", 1)); next.ID != rec.ID+1 {
		t.Errorf("create after fault got id %d, want %d", next.ID, rec.ID+1)
	}
}

func testConcurrentCreates(t *testing.T, svc service.IService) {
	const workers, perWorker = 4, 25

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
				rec, err := svc.Create(payload("x", uint64(i)))
				if err != nil {
					t.Errorf("Create failed: %v", err)
					return
				}
				mu.Lock()
				if seen[rec.ID] {
					t.Errorf("id %d handed out twice", rec.ID)
				}
				seen[rec.ID] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for id := uint64(1); id <= workers*perWorker; id++ {
		if !seen[id] {
			t.Errorf("id %d was never handed out", id)
		}
	}
	if n := mustCount(t, svc); n != workers*perWorker {
		t.Errorf("Count = %d, want %d", n, workers*perWorker)
	}
}

func testInfo(t *testing.T, svc service.IService) {
	for _, dest := range []string{"a", "b", "c"} {
		mustCreate(t, svc, payload(dest, 1))
	}
	if _, err := svc.Delete(2); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	info, err := svc.GetInfo()
	if err != nil {
		t.Fatalf("GetInfo failed: %v", err)
	}
	if info.Records != 2 {
		t.Errorf("info.Records = %d, want 2", info.Records)
	}
	if info.LastID != 3 {
		t.Errorf("info.LastID = %d, want 3", info.LastID)
	}
	if info.Sizes.Count != 2 {
		t.Errorf("info.Sizes.Count = %d, want 2", info.Sizes.Count)
	}
	if info.Medium.Impl == "" {
		t.Errorf("info.Medium.Impl is empty")
	}
}
