package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrServiceUnavailable indicates a collaborator is not configured
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrSourceUnavailable indicates a data source could not produce a table.
	// Recovered by falling back to the next source.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSchemaMismatch indicates a required field is missing or unparseable.
	// Recovered by synthesis or defaulting.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrIndexUnavailable indicates the vector index could not be built.
	// Recovered by keyword search.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrUpstreamService indicates the generative or statistical service failed
	ErrUpstreamService = errors.New("upstream service error")

	// ErrConfigurationFatal indicates no source, not even the built-in table,
	// produced a dataset. The only error allowed to halt startup.
	ErrConfigurationFatal = errors.New("configuration fatal: no data source available")
)
