package db

import "errors"

var (
	// ErrClosed is returned by operations on a closed container handle or environment.
	ErrClosed = errors.New("db: handle is closed")

	// ErrEnvironmentLocked is returned when the environment is already open in this process.
	ErrEnvironmentLocked = errors.New("db: environment is locked by another owner")

	// ErrEnvironmentNotFound is returned when the environment does not exist and may not be created.
	ErrEnvironmentNotFound = errors.New("db: environment not found")

	// ErrContainerNotFound is returned when the container does not exist and may not be created.
	ErrContainerNotFound = errors.New("db: container not found")

	// ErrInvalidName is returned for empty or otherwise unusable container names.
	ErrInvalidName = errors.New("db: invalid container name")
)
