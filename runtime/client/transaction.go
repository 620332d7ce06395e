package client

import (
	"context"
	"database/sql"
)

type txKey struct{}

// WithTransaction returns a context carrying tx. Operations run with that
// context execute on tx instead of opening a connection, and never commit,
// roll back or close it.
func WithTransaction(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TransactionFrom returns the ambient transaction carried by ctx, or nil.
func TransactionFrom(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}
