// Package common contains the configuration and logging setup shared by the dstore
// commands.
//
// StoreConfig is filled from flags, environment variables (DSTORE_ prefix) and .env
// files by the cmd package. InitLoggers installs a dragonboat logger factory that
// writes every line as
//
//	2025/01/02 15:04:05 INFO  | estore          | created maple environment at /data
//
// and sets the level of the dStore loggers (cmd, estore, maple, sqlite).
package common
