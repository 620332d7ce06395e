package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/jmoiron/sqlx/reflectx"
	"github.com/satishbabariya/coconutdal/runtime/dialect"
)

// fieldMapper matches columns to struct fields by `db` tag, or by field name,
// ignoring case.
var fieldMapper = reflectx.NewMapperTagFunc("db", strings.ToLower, strings.ToLower)

// GetTableAs is GetTable with every row mapped onto a T, which must be a
// struct. Columns without a matching field are skipped. Use pointer or
// sql.Null* fields for nullable columns.
func GetTableAs[T any](ctx context.Context, d *Dal, text string, params ...any) ([]T, error) {
	var results []T
	err := d.run(ctx, OpGetTable, text, params, func(ctx context.Context, q dialect.Queryer, cmd *dialect.Command) error {
		rows, err := cmd.Query(ctx, q)
		if err != nil {
			return err
		}
		defer rows.Close()

		results, err = scanRows[T](rows)
		return err
	})
	if errors.Is(err, errCaptured) {
		return []T{}, nil
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

// scanRows scans SQL rows into a slice of structs
func scanRows[T any](rows *sql.Rows) ([]T, error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot map rows onto %s: not a struct", typ)
	}

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = strings.ToLower(c)
	}
	traversals := fieldMapper.TraversalsByName(typ, names)

	results := []T{}
	for rows.Next() {
		var result T
		val := reflect.ValueOf(&result).Elem()

		dest := make([]any, len(columns))
		for i, index := range traversals {
			if len(index) == 0 {
				// Unmapped column
				dest[i] = new(any)
				continue
			}
			dest[i] = reflectx.FieldByIndexes(val, index).Addr().Interface()
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
