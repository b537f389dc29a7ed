// Package store contains the MySQL repositories. Dynamic queries are
// assembled with squirrel; everything takes a context and returns
// wrapped errors with ErrNotFound as the common miss sentinel.
package store

import (
	"errors"

	sq "github.com/Masterminds/squirrel"
)

// ErrNotFound is returned when a row does not exist or is not visible
// to the requesting user.
var ErrNotFound = errors.New("not found")

// builder is the shared squirrel builder. MySQL uses ? placeholders,
// squirrel's default.
var builder = sq.StatementBuilder
