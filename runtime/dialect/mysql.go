package dialect

import (
	"context"
	"fmt"
	"strings"

	"github.com/satishbabariya/coconutdal/runtime/param"
)

// mysqlSignatureQuery lists routine parameters. A function's return value is
// the row at ordinal position 0 with a NULL parameter mode.
const mysqlSignatureQuery = `
	SELECT
		r.ROUTINE_TYPE,
		r.SPECIFIC_NAME,
		p.PARAMETER_NAME,
		p.PARAMETER_MODE,
		p.DATA_TYPE,
		p.ORDINAL_POSITION
	FROM information_schema.ROUTINES r
	LEFT JOIN information_schema.PARAMETERS p
		ON p.SPECIFIC_SCHEMA = r.ROUTINE_SCHEMA
		AND p.SPECIFIC_NAME = r.SPECIFIC_NAME
		AND p.ROUTINE_TYPE = r.ROUTINE_TYPE
	WHERE r.ROUTINE_SCHEMA = COALESCE(?, DATABASE())
	  AND r.ROUTINE_NAME = ?
	ORDER BY r.SPECIFIC_NAME, p.ORDINAL_POSITION
`

// MySQL is the enterprise alternative. It supports stored procedures but the
// runtime does not implement identity retrieval for it.
func newMySQLAdapter(driver string) *Adapter {
	return &Adapter{
		Variant:                  EnterpriseAlt,
		DriverName:               driver,
		IdentityFunction:         "LAST_INSERT_ID()",
		IdentityStrategy:         Unsupported,
		SupportsStoredProcedures: true,
		classify:                 isMySQLError,
		arg:                      positionalArg,
		derive:                   deriveMySQL,
		call:                     callMySQL,
	}
}

func deriveMySQL(ctx context.Context, q Queryer, name ProcedureName) (*Signature, error) {
	rows, err := q.QueryContext(ctx, mysqlSignatureQuery, schemaArg(name), name.Name)
	if err != nil {
		return nil, err
	}
	return scanSignature(rows, name)
}

// callMySQL builds "SELECT fn(...)" for functions and "CALL proc(...)" for
// procedures. OUT parameters are bound to session variables named after them.
func callMySQL(a *Adapter, name ProcedureName, kind RoutineKind, params []*NativeParameter) (string, []any) {
	var b strings.Builder
	if kind == Procedure {
		b.WriteString("CALL ")
	} else {
		b.WriteString("SELECT ")
	}
	b.WriteString(name.String())
	b.WriteByte('(')

	var args []any
	n := 0
	for i, p := range params {
		var token string
		switch {
		case p.Direction.AcceptsInput():
			token = "?"
			args = append(args, a.arg(p))
		case p.Direction == param.Output && kind == Procedure:
			token = sessionVariable(p.Name, i)
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

func sessionVariable(name string, position int) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return -1
	}, name)
	if clean == "" {
		clean = fmt.Sprintf("p%d", position)
	}
	return "@" + clean
}
