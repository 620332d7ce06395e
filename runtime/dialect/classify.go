package dialect

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// isPostgresError accepts the errors of both PostgreSQL drivers.
func isPostgresError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}

func isSQLiteError(err error) bool {
	var liteErr sqlite3.Error
	return errors.As(err, &liteErr)
}

func isMySQLError(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return true
	}
	return errors.Is(err, mysql.ErrInvalidConn)
}
