package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/satishbabariya/coconutdal/runtime/binder"
	"github.com/satishbabariya/coconutdal/runtime/dalerr"
	"github.com/satishbabariya/coconutdal/runtime/dialect"
	"github.com/satishbabariya/coconutdal/runtime/guard"
	"github.com/satishbabariya/coconutdal/runtime/sigcache"
)

// Operation names reported in QueryEvent.Operation and error ops.
const (
	OpExecuteNonQuery = "execute_non_query"
	OpGetSingleValue  = "get_single_value"
	OpGetRow          = "get_row"
	OpGetTable        = "get_table"
	OpGetColumn       = "get_column"
)

// ErrNoConnection is returned when the Dal has no connection descriptor.
var ErrNoConnection = errors.New("connection string not specified")

// errCaptured replaces a classified error that CatchDbExceptions suppressed.
// Operations turn it into their neutral result.
var errCaptured = errors.New("database error captured")

type execFunc func(ctx context.Context, q dialect.Queryer, cmd *dialect.Command) error

// mode resolves the command mode from the two text flags.
func (d *Dal) mode() dialect.Mode {
	if d.IsAlwaysTextQuery || d.IsTextQuery {
		return dialect.Text
	}
	return dialect.StoredProcedure
}

// run is the pipeline shared by every operation:
// validate connection, guard, open, build command, bind, execute, release.
func (d *Dal) run(ctx context.Context, op, text string, inputs []any, exec execFunc) error {
	d.lastErr = nil
	defer func() { d.IsTextQuery = false }()

	if d.connection == "" {
		return dalerr.New(dalerr.Validation, op, ErrNoConnection)
	}
	if err := guard.Check(text); err != nil {
		return err
	}

	cmd, err := d.adapter.Command(text, d.mode())
	if err != nil {
		return err
	}

	q, release, err := d.acquire(ctx)
	if err != nil {
		return d.capture(op, err)
	}
	defer release()

	if err := binder.Bind(ctx, cmd, inputs, d.deriver(q)); err != nil {
		return d.capture(op, err)
	}

	event := &QueryEvent{
		ID:        uuid.NewString(),
		Operation: op,
		Query:     cmd.Text,
		Mode:      cmd.Mode,
		Variant:   d.adapter.Variant,
		Args:      argValues(cmd),
	}
	if err := d.chain(ctx, event, func() error { return exec(ctx, q, cmd) }); err != nil {
		return d.capture(op, err)
	}
	return nil
}

// acquire returns the ambient transaction, or a dedicated connection and the
// function that releases it.
func (d *Dal) acquire(ctx context.Context) (dialect.Queryer, func(), error) {
	if tx := TransactionFrom(ctx); tx != nil {
		return tx, func() {}, nil
	}

	db, err := d.adapter.Open(d.connection)
	if err != nil {
		return nil, nil, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to connect: %w", err)
	}
	return conn, func() {
		if err := conn.Close(); err != nil {
			d.log().Debug("failed to close connection", "error", err)
		}
		db.Close()
	}, nil
}

// deriver reads procedure signatures on q, through the signature cache when
// one is configured.
func (d *Dal) deriver(q dialect.Queryer) binder.DeriveFunc {
	return func(ctx context.Context, procedure string) (*dialect.Signature, error) {
		load := func(ctx context.Context) (*dialect.Signature, error) {
			return d.adapter.DeriveParameters(ctx, q, procedure)
		}
		if d.signatures == nil {
			return load(ctx)
		}
		key := sigcache.Key(d.adapter.Variant, d.connection, procedure)
		return d.signatures.Derive(ctx, key, load)
	}
}

// capture records classified driver errors in LastError. Errors the runtime
// tagged itself, and errors from other sources, are returned unchanged.
func (d *Dal) capture(op string, err error) error {
	if dalerr.KindOf(err) != dalerr.Unclassified || !d.adapter.IsClassifiedError(err) {
		return err
	}
	wrapped := dalerr.New(dalerr.Database, op, err)
	d.lastErr = wrapped
	d.log().Debug("captured database error",
		"operation", op, "variant", d.adapter.Variant, "suppressed", d.CatchDbExceptions, "error", err)
	if d.CatchDbExceptions {
		return errCaptured
	}
	return wrapped
}

func argValues(cmd *dialect.Command) []any {
	if len(cmd.Parameters) == 0 {
		return nil
	}
	args := make([]any, len(cmd.Parameters))
	for i, p := range cmd.Parameters {
		args[i] = p.Value
	}
	return args
}
