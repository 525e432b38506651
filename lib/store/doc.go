// Package store defines the typed key-value store abstraction of dStore and the
// error model shared by all implementations.
//
// Key Components:
//
//   - Store Interface: A named, typed map backed by one container of a storage
//     environment. Besides point operations (Get, Put, Remove, ContainsKey) it offers
//     bulk operations (PutAll, Clear), collection views (Keys, Values, Entries, Range)
//     and a lifecycle (Shutdown, IsClosed). A store that was shut down rejects every
//     further operation.
//
//   - Factory Interface: Owns exactly one storage environment, which is created
//     lazily on the first request, and hands out stores by name. Requesting the same
//     name twice yields stores that share their data. Closing a factory closes every
//     store it handed out.
//
//   - Error System: Every failure is reported as an *Error carrying a Kind
//     (invalid argument, open failure, operation failure, shutdown failure), the
//     operation and the store name. Use errors.Is with the sentinels
//     (ErrInvalidArgument, ErrOpenFailure, ...) or KindOf to branch on the kind, the
//     cause stays reachable through errors.Unwrap.
//
// Implementations:
//
//	The estore package ("github.com/ValentinKolb/dStore/lib/store/estore") implements
//	both interfaces on top of any db.Engine. It provides a persistent policy (durable
//	containers, cache sized from the free heap) and a temporary policy (discardable
//	containers, optional deletion of the directory on shutdown).
package store
