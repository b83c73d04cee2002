package testing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/dTravel/lib/region"
)

// MediumFactory creates a fresh, empty medium for one test.
// Durable mediums should place their files below t.TempDir().
type MediumFactory func(t testing.TB) region.IMedium

// RunMediumTests runs the conformance suite for an IMedium implementation.
func RunMediumTests(t *testing.T, name string, factory MediumFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory(t))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})

		t.Run("Ordering", func(t *testing.T) {
			testOrdering(t, factory(t))
		})

		t.Run("AscendStop", func(t *testing.T) {
			testAscendStop(t, factory(t))
		})

		t.Run("DisjointRegions", func(t *testing.T) {
			testDisjointRegions(t, factory(t))
		})

		t.Run("ReadYourWrites", func(t *testing.T) {
			testReadYourWrites(t, factory(t))
		})

		t.Run("Rollback", func(t *testing.T) {
			testRollback(t, factory(t))
		})

		t.Run("SnapshotIsolation", func(t *testing.T) {
			testSnapshotIsolation(t, factory(t))
		})

		t.Run("Clear", func(t *testing.T) {
			testClear(t, factory(t))
		})

		t.Run("ConcurrentUpdates", func(t *testing.T) {
			testConcurrentUpdates(t, factory(t))
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("CorruptLoad", func(t *testing.T) {
			testCorruptLoad(t, factory(t))
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the medium supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, medium region.IMedium, feature region.Feature) {
	if !medium.SupportsFeature(feature) {
		t.Skip()
	}
}

func mustUpdate(t testing.TB, medium region.IMedium, fn func(tx region.ITxn) error) {
	t.Helper()
	if err := medium.Update(fn); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
}

func mustSnapshot(t testing.TB, medium region.IMedium) region.ISnapshot {
	t.Helper()
	snap, err := medium.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	return snap
}

func set(t testing.TB, medium region.IMedium, id region.ID, key uint64, value []byte) {
	t.Helper()
	mustUpdate(t, medium, func(tx region.ITxn) error {
		return tx.Writer(id).Set(key, value)
	})
}

func get(t testing.TB, medium region.IMedium, id region.ID, key uint64) ([]byte, bool) {
	t.Helper()
	snap, err := medium.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	defer snap.Release()

	value, ok, err := snap.Reader(id).Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return value, ok
}

func keys(t testing.TB, r region.IReader) []uint64 {
	t.Helper()
	var out []uint64
	if err := r.Ascend(func(key uint64, _ []byte) bool {
		out = append(out, key)
		return true
	}); err != nil {
		t.Fatalf("Ascend failed: %v", err)
	}
	return out
}

func length(t testing.TB, r region.IReader) uint64 {
	t.Helper()
	n, err := r.Len()
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	return n
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, medium region.IMedium) {
	defer medium.Close()

	value1 := []byte("value-1")
	value2 := []byte("value-2")

	set(t, medium, region.IDRecords, 1, value1)

	result, ok := get(t, medium, region.IDRecords, 1)
	if !ok {
		t.Fatalf("Expected key 1 to exist after Set")
	}
	if !bytes.Equal(result, value1) {
		t.Errorf("Expected value %s, got %s", value1, result)
	}

	set(t, medium, region.IDRecords, 1, value2)
	result, _ = get(t, medium, region.IDRecords, 1)
	if !bytes.Equal(result, value2) {
		t.Errorf("Expected value %s after overwrite, got %s", value2, result)
	}

	if _, ok := get(t, medium, region.IDRecords, 2); ok {
		t.Errorf("Expected missing key to return ok=false")
	}

	// returned values are copies
	result[0] = 'X'
	again, _ := get(t, medium, region.IDRecords, 1)
	if !bytes.Equal(again, value2) {
		t.Errorf("Modifying a returned value changed the stored value: %s", again)
	}

	// the caller's buffer is copied on Set
	buf := []byte("buffer")
	set(t, medium, region.IDRecords, 3, buf)
	buf[0] = 'X'
	stored, _ := get(t, medium, region.IDRecords, 3)
	if !bytes.Equal(stored, []byte("buffer")) {
		t.Errorf("Modifying the input buffer changed the stored value: %s", stored)
	}

	// empty values are values
	set(t, medium, region.IDRecords, 4, []byte{})
	if _, ok := get(t, medium, region.IDRecords, 4); !ok {
		t.Errorf("Expected key with empty value to exist")
	}
}

func testDelete(t *testing.T, medium region.IMedium) {
	defer medium.Close()

	set(t, medium, region.IDRecords, 7, []byte("seven"))
	mustUpdate(t, medium, func(tx region.ITxn) error {
		return tx.Writer(region.IDRecords).Delete(7)
	})

	if _, ok := get(t, medium, region.IDRecords, 7); ok {
		t.Errorf("Expected key 7 to be deleted")
	}

	// deleting a missing key is fine
	mustUpdate(t, medium, func(tx region.ITxn) error {
		return tx.Writer(region.IDRecords).Delete(12345)
	})

	snap := mustSnapshot(t, medium)
	defer snap.Release()
	if n := length(t, snap.Reader(region.IDRecords)); n != 0 {
		t.Errorf("Expected empty region, got %d entries", n)
	}
}

func testOrdering(t *testing.T, medium region.IMedium) {
	defer medium.Close()

	// includes keys above math.MaxInt64 to catch signed encodings
	input := []uint64{42, 1, ^uint64(0), 1 << 63, 7, 0, 256, 255, (1 << 63) - 1}
	mustUpdate(t, medium, func(tx region.ITxn) error {
		w := tx.Writer(region.IDRecords)
		for _, key := range input {
			if err := w.Set(key, []byte(fmt.Sprint(key))); err != nil {
				return err
			}
		}
		return nil
	})

	snap := mustSnapshot(t, medium)
	defer snap.Release()
	got := keys(t, snap.Reader(region.IDRecords))
	want := []uint64{0, 1, 7, 42, 255, 256, (1 << 63) - 1, 1 << 63, ^uint64(0)}

	if len(got) != len(want) {
		t.Fatalf("Expected %d keys, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Key %d: expected %d, got %d", i, want[i], got[i])
		}
	}

	if n := length(t, snap.Reader(region.IDRecords)); n != uint64(len(want)) {
		t.Errorf("Len: expected %d, got %d", len(want), n)
	}

	// values stay attached to their keys
	err := snap.Reader(region.IDRecords).Ascend(func(key uint64, value []byte) bool {
		if string(value) != fmt.Sprint(key) {
			t.Errorf("Key %d carries value %s", key, value)
		}
		return true
	})
	if err != nil {
		t.Fatalf("Ascend failed: %v", err)
	}
}

func testAscendStop(t *testing.T, medium region.IMedium) {
	defer medium.Close()

	mustUpdate(t, medium, func(tx region.ITxn) error {
		w := tx.Writer(region.IDRecords)
		for i := uint64(1); i <= 10; i++ {
			if err := w.Set(i, []byte{byte(i)}); err != nil {
				return err
			}
		}
		return nil
	})

	snap := mustSnapshot(t, medium)
	defer snap.Release()
	visited := 0
	err := snap.Reader(region.IDRecords).Ascend(func(key uint64, _ []byte) bool {
		visited++
		return key < 3
	})
	if err != nil {
		t.Fatalf("Ascend failed: %v", err)
	}
	if visited != 3 {
		t.Errorf("Expected Ascend to stop after 3 entries, visited %d", visited)
	}
}

func testDisjointRegions(t *testing.T, medium region.IMedium) {
	defer medium.Close()

	set(t, medium, region.IDCounter, 0, []byte("counter"))
	set(t, medium, region.IDRecords, 0, []byte("record"))
	set(t, medium, region.ID(255), 0, []byte("last"))

	for id, want := range map[region.ID]string{
		region.IDCounter: "counter",
		region.IDRecords: "record",
		region.ID(255):   "last",
	} {
		got, ok := get(t, medium, id, 0)
		if !ok || string(got) != want {
			t.Errorf("Region %d: expected %q, got %q (ok=%v)", id, want, got, ok)
		}
	}

	mustUpdate(t, medium, func(tx region.ITxn) error {
		return tx.Writer(region.IDRecords).Delete(0)
	})
	if _, ok := get(t, medium, region.IDCounter, 0); !ok {
		t.Errorf("Deleting in one region removed a key of another region")
	}

	snap := mustSnapshot(t, medium)
	defer snap.Release()
	ids, err := snap.Regions()
	if err != nil {
		t.Fatalf("Regions failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != region.IDCounter || ids[1] != region.ID(255) {
		t.Errorf("Expected non-empty regions [0 255], got %v", ids)
	}
}

func testReadYourWrites(t *testing.T, medium region.IMedium) {
	defer medium.Close()

	set(t, medium, region.IDRecords, 1, []byte("old"))

	mustUpdate(t, medium, func(tx region.ITxn) error {
		w := tx.Writer(region.IDRecords)
		if err := w.Set(1, []byte("new")); err != nil {
			return err
		}
		if err := w.Set(2, []byte("two")); err != nil {
			return err
		}

		value, ok, err := w.Get(1)
		if err != nil {
			return err
		}
		if !ok || string(value) != "new" {
			t.Errorf("Expected own write 'new' inside the transaction, got %q", value)
		}

		// the read-only accessor of the same transaction sees it too
		value, ok, err = tx.Reader(region.IDRecords).Get(2)
		if err != nil {
			return err
		}
		if !ok || string(value) != "two" {
			t.Errorf("Expected own write 'two' through Reader, got %q", value)
		}

		if n := length(t, w); n != 2 {
			t.Errorf("Expected Len 2 inside the transaction, got %d", n)
		}

		if err := w.Delete(1); err != nil {
			return err
		}
		if _, ok, _ := w.Get(1); ok {
			t.Errorf("Expected own delete to be visible inside the transaction")
		}
		if got := keys(t, w); len(got) != 1 || got[0] != 2 {
			t.Errorf("Expected keys [2] inside the transaction, got %v", got)
		}
		return nil
	})
}

func testRollback(t *testing.T, medium region.IMedium) {
	defer medium.Close()

	requireFeature(t, medium, region.FeatureAtomicBatch)

	set(t, medium, region.IDCounter, 0, []byte("c1"))
	set(t, medium, region.IDRecords, 1, []byte("r1"))

	failure := errors.New("abort")
	err := medium.Update(func(tx region.ITxn) error {
		if err := tx.Writer(region.IDCounter).Set(0, []byte("c2")); err != nil {
			return err
		}
		if err := tx.Writer(region.IDRecords).Set(2, []byte("r2")); err != nil {
			return err
		}
		if err := tx.Writer(region.IDRecords).Delete(1); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("Expected the function error to be returned, got %v", err)
	}

	if value, _ := get(t, medium, region.IDCounter, 0); string(value) != "c1" {
		t.Errorf("Counter region changed by a failed transaction: %q", value)
	}
	if _, ok := get(t, medium, region.IDRecords, 2); ok {
		t.Errorf("Insert of a failed transaction is visible")
	}
	if _, ok := get(t, medium, region.IDRecords, 1); !ok {
		t.Errorf("Delete of a failed transaction is visible")
	}

	// medium is still usable
	set(t, medium, region.IDRecords, 3, []byte("r3"))
	if _, ok := get(t, medium, region.IDRecords, 3); !ok {
		t.Errorf("Medium unusable after a rollback")
	}
}

func testSnapshotIsolation(t *testing.T, medium region.IMedium) {
	defer medium.Close()

	requireFeature(t, medium, region.FeatureSnapshotRead)

	set(t, medium, region.IDRecords, 1, []byte("v1"))

	snap, err := medium.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	mustUpdate(t, medium, func(tx region.ITxn) error {
		w := tx.Writer(region.IDRecords)
		if err := w.Set(1, []byte("v2")); err != nil {
			return err
		}
		return w.Set(2, []byte("new"))
	})

	value, ok, err := snap.Reader(region.IDRecords).Get(1)
	if err != nil || !ok || string(value) != "v1" {
		t.Errorf("Snapshot should still see v1, got %q (ok=%v, err=%v)", value, ok, err)
	}
	if _, ok, _ := snap.Reader(region.IDRecords).Get(2); ok {
		t.Errorf("Snapshot sees a key written after it was taken")
	}
	if n := length(t, snap.Reader(region.IDRecords)); n != 1 {
		t.Errorf("Snapshot Len should be 1, got %d", n)
	}

	if err := snap.Release(); err != nil {
		t.Errorf("Release failed: %v", err)
	}

	if value, _ := get(t, medium, region.IDRecords, 1); string(value) != "v2" {
		t.Errorf("A new snapshot should see v2, got %q", value)
	}
}

func testClear(t *testing.T, medium region.IMedium) {
	defer medium.Close()

	mustUpdate(t, medium, func(tx region.ITxn) error {
		for i := uint64(0); i < 20; i++ {
			if err := tx.Writer(region.IDRecords).Set(i, []byte("x")); err != nil {
				return err
			}
		}
		return tx.Writer(region.IDCounter).Set(0, []byte("keep"))
	})

	mustUpdate(t, medium, func(tx region.ITxn) error {
		w := tx.Writer(region.IDRecords)
		if err := w.Clear(); err != nil {
			return err
		}
		if n := length(t, w); n != 0 {
			t.Errorf("Expected empty region after Clear inside the transaction, got %d", n)
		}
		return w.Set(100, []byte("after"))
	})

	snap := mustSnapshot(t, medium)
	defer snap.Release()
	if got := keys(t, snap.Reader(region.IDRecords)); len(got) != 1 || got[0] != 100 {
		t.Errorf("Expected only key 100 after Clear, got %v", got)
	}
	if _, ok, _ := snap.Reader(region.IDCounter).Get(0); !ok {
		t.Errorf("Clear removed entries of another region")
	}
}

func testConcurrentUpdates(t *testing.T, medium region.IMedium) {
	defer medium.Close()

	const (
		workers    = 8
		increments = 25
	)

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for n := 0; n < workers; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < increments; i++ {
				err := medium.Update(func(tx region.ITxn) error {
					w := tx.Writer(region.IDCounter)
					var c uint64
					if raw, ok, err := w.Get(0); err != nil {
						return err
					} else if ok {
						c = binary.BigEndian.Uint64(raw)
					}
					return w.Set(0, binary.BigEndian.AppendUint64(nil, c+1))
				})
				if err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("Concurrent Update failed: %v", err)
	}

	raw, ok := get(t, medium, region.IDCounter, 0)
	if !ok {
		t.Fatalf("Counter missing")
	}
	if c := binary.BigEndian.Uint64(raw); c != workers*increments {
		t.Errorf("Lost updates: expected %d, got %d", workers*increments, c)
	}
}

func testSaveLoad(t *testing.T, factory MediumFactory) {
	source := region.NewManager(factory(t))
	defer source.Close()

	if err := source.Update(func(tx region.ITxn) error {
		if err := tx.Writer(region.IDCounter).Set(0, []byte{0, 0, 0, 0, 0, 0, 0, 3}); err != nil {
			return err
		}
		for i := uint64(1); i <= 3; i++ {
			if err := tx.Writer(region.IDRecords).Set(i, []byte(fmt.Sprintf("record-%d", i))); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	var buf bytes.Buffer
	if err := source.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	target := region.NewManager(factory(t))
	defer target.Close()

	// stale data in the target must disappear
	if err := target.Update(func(tx region.ITxn) error {
		if err := tx.Writer(region.IDRecords).Set(99, []byte("stale")); err != nil {
			return err
		}
		return tx.Writer(region.ID(9)).Set(1, []byte("stale"))
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if err := target.Load(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	err := target.View(func(v region.IView) error {
		ids, err := v.Regions()
		if err != nil {
			return err
		}
		if len(ids) != 2 {
			t.Errorf("Expected 2 regions after Load, got %v", ids)
		}
		if got := keys(t, v.Reader(region.IDRecords)); len(got) != 3 || got[0] != 1 || got[2] != 3 {
			t.Errorf("Unexpected record keys after Load: %v", got)
		}
		value, ok, err := v.Reader(region.IDRecords).Get(2)
		if err != nil {
			return err
		}
		if !ok || string(value) != "record-2" {
			t.Errorf("Expected record-2, got %q", value)
		}
		counter, _, err := v.Reader(region.IDCounter).Get(0)
		if err != nil {
			return err
		}
		if binary.BigEndian.Uint64(counter) != 3 {
			t.Errorf("Counter not restored: %v", counter)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}

	// round trip is byte stable
	var again bytes.Buffer
	if err := target.Save(&again); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), again.Bytes()) {
		t.Errorf("Save after Load produced a different snapshot")
	}
}

func testCorruptLoad(t *testing.T, medium region.IMedium) {
	manager := region.NewManager(medium)
	defer manager.Close()

	set(t, medium, region.IDRecords, 1, []byte("original"))

	var buf bytes.Buffer
	if err := manager.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	valid := buf.Bytes()

	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"BadMagic", append([]byte("NOTMAGIC"), valid[8:]...)},
		{"Truncated", valid[:len(valid)-1]},
		{"FlippedByte", func() []byte {
			c := bytes.Clone(valid)
			c[len(c)-40] ^= 0xff // inside the last value
			return c
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := manager.Load(bytes.NewReader(tt.data)); err == nil {
				t.Fatalf("Expected Load to fail")
			}
			value, ok := get(t, medium, region.IDRecords, 1)
			if !ok || string(value) != "original" {
				t.Errorf("A failed Load modified the medium: %q (ok=%v)", value, ok)
			}
		})
	}
}

func testInfo(t *testing.T, medium region.IMedium) {
	defer medium.Close()

	info := medium.GetInfo()
	if info.Impl == "" {
		t.Errorf("Expected an implementation name")
	}

	for _, f := range region.AllFeatures {
		supported := medium.SupportsFeature(f)
		listed := false
		for _, name := range info.SupportedFeatures {
			if name == f.String() {
				listed = true
			}
		}
		if supported != listed {
			t.Errorf("Feature %s: SupportsFeature=%v but listed=%v", f, supported, listed)
		}
	}
}
