package dialect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/satishbabariya/coconutdal/runtime/param"
)

// NativeParameter is a parameter in the form an adapter sends to its driver.
type NativeParameter struct {
	Name      string
	Direction param.Direction
	Type      param.DbType
	Size      int
	DataType  string
	Value     any
}

// Command is a backend command: text, mode and bound parameters.
type Command struct {
	Text       string
	Mode       Mode
	Kind       RoutineKind
	Parameters []*NativeParameter
	// Suffix is appended to the generated SQL.
	Suffix string

	adapter *Adapter
}

// Adapter returns the adapter that built the command.
func (c *Command) Adapter() *Adapter {
	return c.adapter
}

// Attach converts p and appends it to the parameter list.
func (c *Command) Attach(p *param.Parameter) {
	c.Parameters = append(c.Parameters, c.adapter.ConvertParameter(p))
}

// SQL returns the statement and arguments sent to the driver.
func (c *Command) SQL() (string, []any, error) {
	if c.Mode == Text {
		args := make([]any, 0, len(c.Parameters))
		for _, p := range c.Parameters {
			if p.Direction == param.ReturnValue {
				continue
			}
			args = append(args, c.adapter.arg(p))
		}
		return c.Text + c.Suffix, args, nil
	}
	if c.adapter.call == nil {
		return "", nil, ErrNoCommandType
	}
	name, err := ParseProcedureName(c.Text)
	if err != nil {
		return "", nil, err
	}
	query, args := c.adapter.call(c.adapter, name, c.Kind, c.Parameters)
	return query + c.Suffix, args, nil
}

// Exec runs the command without reading rows.
func (c *Command) Exec(ctx context.Context, q Queryer) (sql.Result, error) {
	query, args, err := c.SQL()
	if err != nil {
		return nil, err
	}
	return q.ExecContext(ctx, query, args...)
}

// Query runs the command and returns a forward-only cursor.
func (c *Command) Query(ctx context.Context, q Queryer) (*sql.Rows, error) {
	query, args, err := c.SQL()
	if err != nil {
		return nil, err
	}
	return q.QueryContext(ctx, query, args...)
}

// Scalar returns the first column of the first row. A database NULL and an
// empty result both yield nil.
func (c *Command) Scalar(ctx context.Context, q Queryer) (any, error) {
	rows, err := c.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	dest := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	if len(dest) == 0 {
		return nil, errors.New("query returned no columns")
	}
	return dest[0], nil
}

// coerce normalizes values whose Go type does not match the requested hint.
func coerce(t param.DbType, v any) any {
	switch t {
	case param.Guid:
		switch g := v.(type) {
		case uuid.UUID:
			return g.String()
		case [16]byte:
			return uuid.UUID(g).String()
		}
	case param.String:
		if s, ok := v.(fmt.Stringer); ok {
			return s.String()
		}
	case param.DateTime:
		if ts, ok := v.(time.Time); ok {
			return ts.UTC()
		}
	}
	return v
}
