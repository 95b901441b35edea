package postgres

import (
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/milavdabgar/gpp-ingest/internal/store"
)

// SQLSTATE codes the store reacts to.
const (
	codeUniqueViolation = "23505"
	codeAdminShutdown   = "57P01"
	codeCannotConnect   = "57P03"
)

// classify maps a pgx error onto the store sentinels. Errors it does not
// recognize are returned unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeUniqueViolation:
			return store.Duplicate(err)
		case pgErr.Code == codeAdminShutdown, pgErr.Code == codeCannotConnect,
			strings.HasPrefix(pgErr.Code, "08"): // connection exception class
			return store.Unavailable(err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return store.Unavailable(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return store.Unavailable(err)
	}
	if strings.Contains(err.Error(), "closed pool") || strings.Contains(err.Error(), "conn closed") {
		return store.Unavailable(err)
	}
	return err
}
