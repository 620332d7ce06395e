package dialect

import (
	"context"
	"strings"

	"github.com/satishbabariya/coconutdal/runtime/param"
)

// postgresSignatureQuery lists the parameters of every overload of a routine.
// Unquoted PostgreSQL identifiers are folded to lower case.
const postgresSignatureQuery = `
	SELECT
		r.routine_type,
		r.specific_name,
		p.parameter_name,
		p.parameter_mode,
		p.data_type,
		p.ordinal_position
	FROM information_schema.routines r
	LEFT JOIN information_schema.parameters p
		ON p.specific_schema = r.specific_schema
		AND p.specific_name = r.specific_name
	WHERE r.routine_schema = COALESCE(lower($1), current_schema())
	  AND r.routine_name = lower($2)
	ORDER BY r.specific_name, p.ordinal_position
`

func newPostgresAdapter(driver string) *Adapter {
	return &Adapter{
		Variant:                  FullServer,
		DriverName:               driver,
		IdentityFunction:         "LASTVAL()",
		IdentityClause:           " RETURNING lastval()",
		IdentityQuery:            "SELECT lastval()",
		IdentityStrategy:         AppendClause,
		SupportsStoredProcedures: true,
		classify:                 isPostgresError,
		arg:                      positionalArg,
		derive:                   derivePostgres,
		call:                     callPostgres,
	}
}

func derivePostgres(ctx context.Context, q Queryer, name ProcedureName) (*Signature, error) {
	rows, err := q.QueryContext(ctx, postgresSignatureQuery, schemaArg(name), name.Name)
	if err != nil {
		return nil, err
	}
	return scanSignature(rows, name)
}

// callPostgres builds "SELECT * FROM fn(...)" for functions, whose OUT
// parameters come back as columns, and "CALL proc(...)" for procedures, whose
// OUT parameters must be passed as NULL.
func callPostgres(a *Adapter, name ProcedureName, kind RoutineKind, params []*NativeParameter) (string, []any) {
	var b strings.Builder
	if kind == Procedure {
		b.WriteString("CALL ")
	} else {
		b.WriteString("SELECT * FROM ")
	}
	b.WriteString(name.String())
	b.WriteByte('(')

	var args []any
	n := 0
	for _, p := range params {
		var token string
		switch {
		case p.Direction.AcceptsInput():
			token = "?"
			args = append(args, a.arg(p))
		case p.Direction == param.Output && kind == Procedure:
			token = "NULL"
		default:
			continue
		}
		if n > 0 {
			b.WriteString(", ")
		}
		b.WriteString(token)
		n++
	}
	b.WriteByte(')')
	return a.rebind(b.String()), args
}

func positionalArg(p *NativeParameter) any {
	return p.Value
}
