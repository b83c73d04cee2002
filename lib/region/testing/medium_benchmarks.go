package testing

import (
	"bytes"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/dTravel/lib/region"
)

// RunMediumBenchmarks runs all benchmarks for a region medium implementation
func RunMediumBenchmarks(b *testing.B, name string, factory MediumFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, factory(b))
		})

		b.Run("SetBatch", func(b *testing.B) {
			benchmarkSetBatch(b, factory(b))
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory(b))
		})

		b.Run("Ascend", func(b *testing.B) {
			benchmarkAscend(b, factory(b))
		})

		b.Run("SaveLoad", func(b *testing.B) {
			benchmarkSaveLoad(b, factory)
		})
	})
}

// value of roughly the size of a typical encoded record
var benchValue = bytes.Repeat([]byte("x"), 512)

func fill(b *testing.B, medium region.IMedium, n int) {
	b.Helper()
	err := medium.Update(func(tx region.ITxn) error {
		w := tx.Writer(region.IDRecords)
		for i := 0; i < n; i++ {
			if err := w.Set(uint64(i), benchValue); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		b.Fatalf("fill failed: %v", err)
	}
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for single key transactions
func benchmarkSet(b *testing.B, medium region.IMedium) {
	b.Cleanup(func() {
		medium.Close()
	})

	var counter atomic.Uint64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			key := counter.Add(1)
			err := medium.Update(func(tx region.ITxn) error {
				return tx.Writer(region.IDRecords).Set(key, benchValue)
			})
			if err != nil {
				b.Errorf("Update failed: %v", err)
				return
			}
		}
	})
}

// Benchmark for transactions writing 100 keys at once
func benchmarkSetBatch(b *testing.B, medium region.IMedium) {
	b.Cleanup(func() {
		medium.Close()
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := medium.Update(func(tx region.ITxn) error {
			w := tx.Writer(region.IDRecords)
			for j := 0; j < 100; j++ {
				if err := w.Set(uint64(i*100+j), benchValue); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			b.Fatalf("Update failed: %v", err)
		}
	}
}

// Benchmark for point reads on a snapshot
func benchmarkGet(b *testing.B, medium region.IMedium) {
	b.Cleanup(func() {
		medium.Close()
	})

	const keyCount = 10_000
	fill(b, medium, keyCount)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(rand.Int63()))
		snap, err := medium.Snapshot()
		if err != nil {
			b.Errorf("Snapshot failed: %v", err)
			return
		}
		defer snap.Release()

		reader := snap.Reader(region.IDRecords)
		for pb.Next() {
			if _, ok, err := reader.Get(uint64(rnd.Intn(keyCount))); err != nil || !ok {
				b.Errorf("Get failed: ok=%v err=%v", ok, err)
				return
			}
		}
	})
}

// Benchmark for full ordered scans
func benchmarkAscend(b *testing.B, medium region.IMedium) {
	b.Cleanup(func() {
		medium.Close()
	})

	fill(b, medium, 1_000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		snap, err := medium.Snapshot()
		if err != nil {
			b.Fatalf("Snapshot failed: %v", err)
		}
		n := 0
		if err := snap.Reader(region.IDRecords).Ascend(func(uint64, []byte) bool {
			n++
			return true
		}); err != nil {
			b.Fatalf("Ascend failed: %v", err)
		}
		_ = snap.Release()
		if n != 1_000 {
			b.Fatalf("expected 1000 entries, got %d", n)
		}
	}
}

// Benchmark for snapshot save and load
func benchmarkSaveLoad(b *testing.B, factory MediumFactory) {
	source := region.NewManager(factory(b))
	b.Cleanup(func() {
		source.Close()
	})
	fill(b, source.Medium(), 5_000)

	var buf bytes.Buffer
	if err := source.Save(&buf); err != nil {
		b.Fatalf("Save failed: %v", err)
	}

	b.Run("Save", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var out bytes.Buffer
			if err := source.Save(&out); err != nil {
				b.Fatalf("Save failed: %v", err)
			}
		}
	})

	b.Run("Load", func(b *testing.B) {
		target := region.NewManager(factory(b))
		b.Cleanup(func() {
			target.Close()
		})

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if err := target.Load(bytes.NewReader(buf.Bytes())); err != nil {
				b.Fatalf("Load failed: %v", err)
			}
		}
	})
}
