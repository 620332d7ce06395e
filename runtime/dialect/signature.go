package dialect

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/satishbabariya/coconutdal/runtime/dalerr"
	"github.com/satishbabariya/coconutdal/runtime/param"
)

// RoutineKind distinguishes functions from procedures.
type RoutineKind int

const (
	Function RoutineKind = iota
	Procedure
)

// Signature is the declared parameter list of a stored routine.
type Signature struct {
	Procedure  string               `json:"procedure"`
	Kind       RoutineKind          `json:"kind"`
	Parameters []SignatureParameter `json:"parameters"`
}

// SignatureParameter is a declared routine parameter.
type SignatureParameter struct {
	Name      string          `json:"name"`
	Direction param.Direction `json:"direction"`
	DataType  string          `json:"data_type"`
	Position  int             `json:"position"`
}

// InputSlots returns the number of parameters that accept a caller value.
func (s *Signature) InputSlots() int {
	n := 0
	for _, p := range s.Parameters {
		if p.Direction.AcceptsInput() {
			n++
		}
	}
	return n
}

// scanSignature reads rows of (routine_type, specific_name, parameter_name,
// parameter_mode, data_type, ordinal_position). Only the first overload is kept.
func scanSignature(rows *sql.Rows, name ProcedureName) (*Signature, error) {
	defer rows.Close()

	var sig *Signature
	var specific string
	for rows.Next() {
		var (
			specificName                                string
			routineType, paramName, paramMode, dataType sql.NullString
			position                                    sql.NullInt64
		)
		if err := rows.Scan(&routineType, &specificName, &paramName, &paramMode, &dataType, &position); err != nil {
			return nil, fmt.Errorf("failed to scan routine parameter: %w", err)
		}
		if sig == nil {
			specific = specificName
			sig = &Signature{Procedure: name.String(), Kind: Function}
			if strings.EqualFold(routineType.String, "PROCEDURE") {
				sig.Kind = Procedure
			}
		}
		if specificName != specific || !position.Valid {
			continue
		}
		sig.Parameters = append(sig.Parameters, SignatureParameter{
			Name:      paramName.String,
			Direction: param.ParseDirection(paramMode.String),
			DataType:  dataType.String,
			Position:  int(position.Int64),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if sig == nil {
		return nil, dalerr.New(dalerr.Validation, "derive parameters",
			fmt.Errorf("%w: %s", ErrProcedureNotFound, name))
	}
	return sig, nil
}

// schemaArg returns the schema filter, NULL meaning the current schema.
func schemaArg(name ProcedureName) any {
	if name.Schema == "" {
		return nil
	}
	return name.Schema
}
