package database

import "errors"

// ErrNoDatabase is returned by Open when the database file is missing and
// creation is disabled.
var ErrNoDatabase = errors.New("history database does not exist")
