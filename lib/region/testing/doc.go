// Package testing provides standardised tests and benchmarks for
// region mediums that satisfy the region.IMedium interface.
//
// The package contains:
//   - medium_testing: a conformance suite for the IMedium contract (ordering,
//     copies, disjoint regions, rollback, snapshot isolation, snapshot format)
//   - medium_benchmarks: throughput of common region operations
//
// Example usage:
//
//	factory := func(t testing.TB) region.IMedium {
//		m, err := pebbledb.NewPebbleMedium(t.TempDir(), nil)
//		if err != nil {
//			t.Fatal(err)
//		}
//		return m
//	}
//
//	regiontesting.RunMediumTests(t, "Pebble", factory)
//	regiontesting.RunMediumBenchmarks(b, "Pebble", factory)
package testing
