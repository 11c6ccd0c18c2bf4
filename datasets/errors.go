package datasets

import "errors"

var (
	// ErrDatabaseIsNotReadyYet is returned on lookups after a dataset
	// was closed.
	ErrDatabaseIsNotReadyYet = errors.New("database is not initialized yet")

	// ErrAuthTokenIsRequired is returned if a downloader requires a
	// license key but it was not given.
	ErrAuthTokenIsRequired = errors.New("auth token is required")

	// ErrNoFile is returned if a downloaded archive has no database
	// file.
	ErrNoFile = errors.New("cannot find a database file in downloaded archive")

	// ErrUnknownKind is returned by Open for unsupported dataset kinds.
	ErrUnknownKind = errors.New("unknown dataset kind")
)
