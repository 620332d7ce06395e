// Package identity retrieves the identity value generated by an insert.
//
// How the value is read depends on the backend: some append a clause to the
// insert itself, some run a second query on the same connection and some do
// not support it at all.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/satishbabariya/coconutdal/internal/debug"
	"github.com/satishbabariya/coconutdal/runtime/dalerr"
	"github.com/satishbabariya/coconutdal/runtime/dialect"
)

// ErrUnsupported is returned by backends that cannot return identities.
var ErrUnsupported = errors.New("select identity is not implemented for this backend")

// Needed reports whether the resolver must run for text. It is false when the
// caller did not ask for the identity or when text already calls the backend's
// identity function. Unsupported backends always need it so the request fails.
func Needed(a *dialect.Adapter, text string, want bool) bool {
	if !want {
		return false
	}
	if a.IdentityStrategy == dialect.Unsupported {
		return true
	}
	return !strings.Contains(strings.ToUpper(text), strings.ToUpper(a.IdentityFunction))
}

// StrategyFor returns the strategy used for cmd. A stored procedure call
// cannot carry a RETURNING clause, so AppendClause backends read the identity
// with a second query instead.
func StrategyFor(cmd *dialect.Command) dialect.IdentityStrategy {
	a := cmd.Adapter()
	if a.IdentityStrategy == dialect.AppendClause && cmd.Mode == dialect.StoredProcedure && a.IdentityQuery != "" {
		return dialect.SecondRoundTrip
	}
	return a.IdentityStrategy
}

// Resolve executes cmd and returns the identity it generated.
func Resolve(ctx context.Context, q dialect.Queryer, cmd *dialect.Command) (any, error) {
	a := cmd.Adapter()
	switch StrategyFor(cmd) {
	case dialect.AppendClause:
		debug.Debug("identity: appending clause", "variant", a.Variant, "clause", a.IdentityClause)
		cmd.Suffix = a.IdentityClause
		return cmd.Scalar(ctx, q)

	case dialect.SecondRoundTrip:
		debug.Debug("identity: second round trip", "variant", a.Variant, "query", a.IdentityQuery)
		if _, err := cmd.Exec(ctx, q); err != nil {
			return nil, err
		}
		follow, err := a.Command(a.IdentityQuery, dialect.Text)
		if err != nil {
			return nil, err
		}
		return follow.Scalar(ctx, q)

	default:
		return nil, dalerr.New(dalerr.Capability, "identity", fmt.Errorf("%w: %s", ErrUnsupported, a.Variant))
	}
}
