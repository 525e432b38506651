// Package cmd implements the command-line interface of dStore. Every command opens
// the configured environment, runs, and tears it down through the environment's
// shutdown coordinator, which also runs on SIGINT and SIGTERM.
//
// The package is organized into several subpackages:
//
//   - kv: Store commands (get, set, delete, has, list, size, clear, exists, stores,
//     info, metrics)
//   - util: Shared utilities for flags, configuration, factory setup and output (internal use)
//
// See dstore -help for a list of all commands.
package cmd
