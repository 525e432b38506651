// Package estore implements store.Factory and store.Store on top of the embedded
// storage engines of lib/db. It manages the lifecycle of one environment per factory:
// lazy creation, the registry of open container handles, the encoding catalog and
// the orderly teardown when the process exits.
//
// The package focuses on:
//   - Creating exactly one environment per factory, even under concurrent first use
//   - Closing every store exactly once, whether through Store.Shutdown, Factory.Close
//     or the Coordinator
//   - Converting all engine and codec failures into store.Error values
//
// Key Components:
//
//   - Factory: Owns the environment. It opens stores with the container configuration
//     of its Policy and registers every handle. NewPersistentFactory and
//     NewTemporaryFactory select the PersistentPolicy (transactional, cache sized from
//     the free heap) and the TemporaryPolicy (scratch containers, optional deletion
//     of the directory).
//
//   - EnvironmentInfo: The immutable bundle of environment, catalog and handle
//     remover shared by all stores of a factory.
//
//   - Catalog: Records key type, value type and codec of every store in the reserved
//     container db.CatalogContainerName. Opening a store with a different binding fails
//     with ErrIncompatibleTypes.
//
//   - Coordinator: The teardown registry. Run closes stores, catalog and environment
//     of every registered factory and deletes the directories that are marked for
//     deletion. Failures are collected and returned after all environments were processed.
//
// Shutdown order (per environment):
//
//	stores -> catalog -> environment -> directory deletion
//
// Usage Example:
//
//	factory := estore.NewPersistentFactory[string, int]("/var/lib/app", nil)
//	defer factory.Close()
//
//	users, err := factory.GetInstance("users")
//	if err != nil {
//	    // Handle error
//	}
//	_, _, err = users.Put("alice", 42)
package estore
