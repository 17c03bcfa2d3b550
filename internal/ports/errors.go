package ports

import "errors"

// Standard application-level errors.
// Adapters wrap infrastructure errors with these so callers can branch with errors.Is.
var (
	// General Errors
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Ingestion
	// ErrSourceUnavailable: transport failure, non-success status or empty body from one feed.
	ErrSourceUnavailable = errors.New("deal source unavailable")
	// ErrSchemaUnresolvable: a required column could not be located in a fetched batch.
	ErrSchemaUnresolvable = errors.New("source schema could not be resolved")
	// ErrNoNewData: the high-water-mark removed every incoming row. Informational.
	ErrNoNewData = errors.New("no new trade dates to merge")

	// Store
	ErrStoreNotFound      = errors.New("deal store has no snapshot yet")
	ErrPersistenceFailure = errors.New("failed to persist deal store")
	ErrCorruptStore       = errors.New("deal store contents are invalid")
)
