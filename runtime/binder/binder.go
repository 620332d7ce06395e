// Package binder attaches caller inputs to a command.
//
// Three shapes of input are recognized:
//   - every input is a *param.Parameter: each is converted and attached in
//     order, whatever the command mode;
//   - every input is a raw value and the command is a stored procedure: the
//     procedure's signature is derived and the values fill its input slots in
//     declaration order;
//   - anything else is rejected.
//
// Stored procedure commands also learn whether they name a function or a
// procedure, since the two are called differently.
package binder

import (
	"context"
	"errors"
	"fmt"

	"github.com/satishbabariya/coconutdal/runtime/dalerr"
	"github.com/satishbabariya/coconutdal/runtime/dialect"
	"github.com/satishbabariya/coconutdal/runtime/param"
)

// ErrUntypedTextParameters is returned for raw values in a text query and for
// mixed lists.
var ErrUntypedTextParameters = errors.New("could not add query parameters: parameters for text queries must be typed *param.Parameter values")

// DeriveFunc reads a stored procedure's declared signature.
type DeriveFunc func(ctx context.Context, procedure string) (*dialect.Signature, error)

// Strategy is the binding strategy chosen for a list of inputs.
type Strategy int

const (
	// None means there was nothing to bind.
	None Strategy = iota
	// Carriers binds typed parameters in order.
	Carriers
	// Positional fills derived procedure slots with raw values.
	Positional
	// Rejected is an invalid combination.
	Rejected
)

// Choose returns the strategy for inputs against a command in mode.
func Choose(mode dialect.Mode, inputs []any) Strategy {
	if len(inputs) == 0 {
		return None
	}
	carriers := 0
	for _, in := range inputs {
		if p, ok := in.(*param.Parameter); ok && p != nil {
			carriers++
		}
	}
	switch {
	case carriers == len(inputs):
		return Carriers
	case carriers == 0 && mode == dialect.StoredProcedure:
		return Positional
	default:
		return Rejected
	}
}

// Bind attaches inputs to cmd. derive is only called for stored procedures.
// Values beyond the procedure's input slots are ignored and missing values
// leave their slots nil.
func Bind(ctx context.Context, cmd *dialect.Command, inputs []any, derive DeriveFunc) error {
	switch Choose(cmd.Mode, inputs) {
	case None:
		return resolveKind(ctx, cmd, derive)
	case Carriers:
		for _, in := range inputs {
			cmd.Attach(in.(*param.Parameter))
		}
		return resolveKind(ctx, cmd, derive)
	case Positional:
		sig, err := derive(ctx, cmd.Text)
		if err != nil {
			return fmt.Errorf("failed to derive parameters for %s: %w", cmd.Text, err)
		}
		cmd.Kind = sig.Kind
		index := 0
		for _, sp := range sig.Parameters {
			np := &dialect.NativeParameter{
				Name:      sp.Name,
				Direction: sp.Direction,
				DataType:  sp.DataType,
			}
			if sp.Direction.AcceptsInput() && index < len(inputs) {
				np.Value = inputs[index]
				index++
			}
			cmd.Parameters = append(cmd.Parameters, np)
		}
		return nil
	default:
		return dalerr.New(dalerr.Validation, "bind", ErrUntypedTextParameters)
	}
}

// resolveKind sets the routine kind of a stored procedure command. A routine
// the catalog does not know keeps the function form and fails at execution,
// where the database error can be captured.
func resolveKind(ctx context.Context, cmd *dialect.Command, derive DeriveFunc) error {
	if cmd.Mode != dialect.StoredProcedure || derive == nil {
		return nil
	}
	sig, err := derive(ctx, cmd.Text)
	if errors.Is(err, dialect.ErrProcedureNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to resolve routine kind of %s: %w", cmd.Text, err)
	}
	cmd.Kind = sig.Kind
	return nil
}
