// Package testing provides standardised tests and benchmarks for
// storage engines that satisfy the db.Engine interface.
//
// The package contains:
//   - testing: A conformance suite for the Engine, Environment and Container contracts
//     (handle sharing, persistence across reopen, temporary containers, path locking)
//   - benchmark: Performance tests for measuring throughput of common container operations
//
// Every test opens its environments below t.TempDir(), so the suites can run in parallel
// for different engines.
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func() db.Engine {
//		return NewMyEngine()
//	}
//
//	// Running the standard test suite
//	dbtesting.RunEngineTests(t, "MyEngine", factory)
//
//	// Running performance benchmarks
//	dbtesting.RunEngineBenchmarks(b, "MyEngine", factory)
package testing
