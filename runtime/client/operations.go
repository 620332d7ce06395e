package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/satishbabariya/coconutdal/runtime/dalerr"
	"github.com/satishbabariya/coconutdal/runtime/dialect"
	"github.com/satishbabariya/coconutdal/runtime/identity"
)

// ErrColumnShape is returned by GetColumn when the result cannot be indexed.
var ErrColumnShape = errors.New("data and/or query are not compatible with GetColumn")

// ExecuteNonQuery runs text without reading rows. It returns false only when
// a database error was captured; every other failure is returned.
func (d *Dal) ExecuteNonQuery(ctx context.Context, text string, params ...any) (bool, error) {
	err := d.run(ctx, OpExecuteNonQuery, text, params, func(ctx context.Context, q dialect.Queryer, cmd *dialect.Command) error {
		_, err := cmd.Exec(ctx, q)
		return err
	})
	switch {
	case errors.Is(err, errCaptured):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// GetSingleValue returns the first column of the first row. Both a database
// NULL and an empty result yield nil.
func (d *Dal) GetSingleValue(ctx context.Context, text string, params ...any) (any, error) {
	return d.GetSingleValueIdentity(ctx, text, false, params...)
}

// GetSingleValueIdentity is GetSingleValue that, when wantIdentity is set,
// returns the identity generated by text instead. Text that already calls the
// backend's identity function is run as is.
func (d *Dal) GetSingleValueIdentity(ctx context.Context, text string, wantIdentity bool, params ...any) (any, error) {
	var value any
	err := d.run(ctx, OpGetSingleValue, text, params, func(ctx context.Context, q dialect.Queryer, cmd *dialect.Command) error {
		var err error
		if identity.Needed(cmd.Adapter(), text, wantIdentity) {
			value, err = identity.Resolve(ctx, q, cmd)
		} else {
			value, err = cmd.Scalar(ctx, q)
		}
		return err
	})
	if errors.Is(err, errCaptured) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// GetSingleValueAs is GetSingleValueIdentity converted to T. A NULL, an
// overflow or an incompatible value yields T's zero value, not an error.
func GetSingleValueAs[T any](ctx context.Context, d *Dal, text string, wantIdentity bool, params ...any) (T, error) {
	var zero T
	v, err := d.GetSingleValueIdentity(ctx, text, wantIdentity, params...)
	if err != nil {
		return zero, err
	}
	n, ok := identity.Narrow(v, identity.ResultTypeOf[T]())
	if !ok {
		return zero, nil
	}
	t, ok := n.(T)
	if !ok {
		return zero, nil
	}
	return t, nil
}

// GetRow returns the first row. The row is empty when there are no rows.
func (d *Dal) GetRow(ctx context.Context, text string, params ...any) (*Row, error) {
	row := &Row{}
	err := d.run(ctx, OpGetRow, text, params, func(ctx context.Context, q dialect.Queryer, cmd *dialect.Command) error {
		rows, err := cmd.Query(ctx, q)
		if err != nil {
			return err
		}
		defer rows.Close()

		if !rows.Next() {
			return rows.Err()
		}
		cols, err := rows.Columns()
		if err != nil {
			return err
		}
		values, err := sqlx.SliceScan(rows)
		if err != nil {
			return err
		}
		row.Columns, row.Values = cols, values
		return nil
	})
	if errors.Is(err, errCaptured) {
		return &Row{}, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// GetTable returns the whole result set.
func (d *Dal) GetTable(ctx context.Context, text string, params ...any) (*Table, error) {
	table := &Table{}
	err := d.run(ctx, OpGetTable, text, params, func(ctx context.Context, q dialect.Queryer, cmd *dialect.Command) error {
		rows, err := cmd.Query(ctx, q)
		if err != nil {
			return err
		}
		defer rows.Close()

		types, err := rows.ColumnTypes()
		if err != nil {
			return err
		}
		for _, ct := range types {
			col := Column{Name: ct.Name(), DatabaseType: ct.DatabaseTypeName()}
			col.Nullable, _ = ct.Nullable()
			table.Columns = append(table.Columns, col)
		}
		for rows.Next() {
			values, err := sqlx.SliceScan(rows)
			if err != nil {
				return err
			}
			table.Rows = append(table.Rows, values)
		}
		return rows.Err()
	})
	if errors.Is(err, errCaptured) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, err
	}
	return table, nil
}

// GetColumn returns one column of data. With two or more selected columns the
// first is the integer index and the second the value; with one column rows
// are numbered from 1.
func (d *Dal) GetColumn(ctx context.Context, text string, params ...any) (map[int]any, error) {
	return d.GetColumnByIdentity(ctx, text, "", nil, params...)
}

// GetColumnByIdentity is GetColumn restricted to identityValues: the query is
// extended with "WHERE identityColumn IN (...)", or "AND ..." when it already
// has a WHERE clause. Without a column name or values it behaves as GetColumn.
func (d *Dal) GetColumnByIdentity(ctx context.Context, text, identityColumn string, identityValues []int, params ...any) (map[int]any, error) {
	text = restrictToIdentities(text, identityColumn, identityValues)

	column := make(map[int]any)
	err := d.run(ctx, OpGetColumn, text, params, func(ctx context.Context, q dialect.Queryer, cmd *dialect.Command) error {
		rows, err := cmd.Query(ctx, q)
		if err != nil {
			return err
		}
		defer rows.Close()

		count := 1
		for rows.Next() {
			values, err := sqlx.SliceScan(rows)
			if err != nil {
				return err
			}
			switch {
			case len(values) > 1:
				key, ok := identity.Narrow(values[0], identity.Int)
				if !ok {
					return dalerr.New(dalerr.Validation, OpGetColumn,
						fmt.Errorf("%w: index %v (%T) is not an integer", ErrColumnShape, values[0], values[0]))
				}
				if _, dup := column[key.(int)]; dup {
					return dalerr.New(dalerr.Validation, OpGetColumn,
						fmt.Errorf("%w: duplicate index %d", ErrColumnShape, key))
				}
				column[key.(int)] = values[1]
			case len(values) == 1:
				column[count] = values[0]
				count++
			default:
				return dalerr.New(dalerr.Validation, OpGetColumn, fmt.Errorf("%w: no columns selected", ErrColumnShape))
			}
		}
		return rows.Err()
	})
	if errors.Is(err, errCaptured) {
		return map[int]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	return column, nil
}

// restrictToIdentities appends " WHERE col IN ( 1,2 )" to text.
func restrictToIdentities(text, column string, ids []int) string {
	if column == "" || ids == nil {
		return text
	}
	var b strings.Builder
	b.WriteString(text)
	if strings.Contains(strings.ToUpper(text), " WHERE ") {
		b.WriteString(" AND ")
	} else {
		b.WriteString(" WHERE ")
	}
	b.WriteString(column)
	b.WriteString(" IN ( ")
	for _, id := range ids {
		b.WriteString(strconv.Itoa(id))
		b.WriteByte(',')
	}
	b.WriteString(" )")
	return strings.ReplaceAll(b.String(), ", )", " )")
}
