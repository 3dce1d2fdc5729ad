package database

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

// isNoRows reports whether err is pgx's no-rows sentinel, used to
// distinguish "insert absorbed by ON CONFLICT DO NOTHING" from a real
// failure when scanning a RETURNING clause.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
