// Package dialect provides the per-backend adapters used by the execution
// engine.
//
// The supported backends are a closed set of variants. Each variant maps to an
// Adapter, a table of functions that open connections, build commands, convert
// parameters, classify driver errors and derive stored-procedure signatures.
package dialect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/satishbabariya/coconutdal/runtime/dalerr"
	"github.com/satishbabariya/coconutdal/runtime/param"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver (pgx)
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
)

// Variant identifies a backend.
type Variant int

const (
	// FullServer is PostgreSQL.
	FullServer Variant = iota
	// Embedded is SQLite.
	Embedded
	// EnterpriseAlt is MySQL or MariaDB.
	EnterpriseAlt
)

// String returns the variant name.
func (v Variant) String() string {
	switch v {
	case FullServer:
		return "fullserver"
	case Embedded:
		return "embedded"
	case EnterpriseAlt:
		return "enterprise"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// ParseVariant maps a variant or provider name to a Variant.
func ParseVariant(name string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fullserver", "server", "postgresql", "postgres", "pgx":
		return FullServer, nil
	case "embedded", "sqlite", "sqlite3":
		return Embedded, nil
	case "enterprise", "enterprisealt", "mysql", "mariadb":
		return EnterpriseAlt, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedVariant, name)
	}
}

// Mode is the command mode.
type Mode int

const (
	// StoredProcedure interprets the command text as a procedure name.
	StoredProcedure Mode = iota
	// Text interprets the command text as literal SQL.
	Text
)

// String returns the mode name.
func (m Mode) String() string {
	if m == Text {
		return "text"
	}
	return "stored-procedure"
}

// IdentityStrategy is how a backend returns a freshly generated identity.
type IdentityStrategy int

const (
	// AppendClause adds a clause to the same statement (one round trip).
	AppendClause IdentityStrategy = iota
	// SecondRoundTrip runs the statement, then a separate identity query on
	// the same connection.
	SecondRoundTrip
	// Unsupported means the backend cannot return identities.
	Unsupported
)

// String returns the strategy name.
func (s IdentityStrategy) String() string {
	switch s {
	case AppendClause:
		return "append-clause"
	case SecondRoundTrip:
		return "second-round-trip"
	default:
		return "unsupported"
	}
}

// Variants returns every supported variant.
func Variants() []Variant {
	return []Variant{FullServer, Embedded, EnterpriseAlt}
}

var (
	// ErrUnsupportedVariant is returned for an unknown variant or driver.
	ErrUnsupportedVariant = errors.New("unsupported database variant")
	// ErrNoCommandType is returned when the embedded backend is asked to run a
	// stored procedure.
	ErrNoCommandType = errors.New("no command type resolvable: the embedded backend only supports text queries")
	// ErrProcedureNotFound is returned when no routine matches the procedure name.
	ErrProcedureNotFound = errors.New("stored procedure not found")
)

// Queryer is satisfied by *sql.Conn and *sql.Tx.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Queryer = (*sql.Conn)(nil)
	_ Queryer = (*sql.Tx)(nil)
)

// Adapter is the capability table of a single backend.
type Adapter struct {
	Variant    Variant
	DriverName string

	// IdentityFunction is the scalar identity function whose presence in a
	// query means the query already selects the new identity.
	IdentityFunction string
	// IdentityClause is appended by the AppendClause strategy.
	IdentityClause string
	// IdentityQuery is run by the SecondRoundTrip strategy, and by
	// AppendClause backends for routine calls, which cannot take a clause.
	IdentityQuery    string
	IdentityStrategy IdentityStrategy

	SupportsStoredProcedures bool

	classify func(err error) bool
	arg      func(p *NativeParameter) any
	derive   func(ctx context.Context, q Queryer, name ProcedureName) (*Signature, error)
	call     func(a *Adapter, name ProcedureName, kind RoutineKind, params []*NativeParameter) (string, []any)
}

// factories holds one constructor per variant; the first driver is the default.
var factories = map[Variant]struct {
	drivers []string
	build   func(driver string) *Adapter
}{
	FullServer:    {drivers: []string{"postgres", "pgx"}, build: newPostgresAdapter},
	Embedded:      {drivers: []string{"sqlite3"}, build: newSQLiteAdapter},
	EnterpriseAlt: {drivers: []string{"mysql"}, build: newMySQLAdapter},
}

// Lookup returns the adapter for variant using driver, or the variant's
// default driver when driver is empty.
func Lookup(variant Variant, driver string) (*Adapter, error) {
	f, ok := factories[variant]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVariant, variant)
	}
	if driver == "" {
		return f.build(f.drivers[0]), nil
	}
	for _, d := range f.drivers {
		if d == driver {
			return f.build(d), nil
		}
	}
	return nil, fmt.Errorf("%w: driver %q for %s", ErrUnsupportedVariant, driver, variant)
}

// Drivers returns the driver names usable with variant.
func Drivers(variant Variant) []string {
	return append([]string(nil), factories[variant].drivers...)
}

// Open returns a handle bound to descriptor. It does not dial the database.
func (a *Adapter) Open(descriptor string) (*sql.DB, error) {
	db, err := sql.Open(a.DriverName, descriptor)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s handle: %w", a.DriverName, err)
	}
	return db, nil
}

// Command wraps text in a command of the given mode.
func (a *Adapter) Command(text string, mode Mode) (*Command, error) {
	if mode == StoredProcedure && !a.SupportsStoredProcedures {
		return nil, dalerr.New(dalerr.Capability, "command", ErrNoCommandType)
	}
	return &Command{Text: text, Mode: mode, adapter: a}, nil
}

// ConvertParameter clones p into the native form.
func (a *Adapter) ConvertParameter(p *param.Parameter) *NativeParameter {
	return &NativeParameter{
		Name:      p.BareName(),
		Direction: p.Direction,
		Type:      p.Type,
		Size:      p.Size,
		Value:     coerce(p.Type, p.Value),
	}
}

// IsClassifiedError reports whether err originates from this backend's driver.
func (a *Adapter) IsClassifiedError(err error) bool {
	if err == nil {
		return false
	}
	return a.classify(err)
}

// DeriveParameters reads the declared parameter list of a stored procedure.
func (a *Adapter) DeriveParameters(ctx context.Context, q Queryer, procedure string) (*Signature, error) {
	if a.derive == nil {
		return nil, dalerr.New(dalerr.Capability, "derive parameters", ErrNoCommandType)
	}
	name, err := ParseProcedureName(procedure)
	if err != nil {
		return nil, err
	}
	return a.derive(ctx, q, name)
}

// rebind converts "?" placeholders to the driver's bind style.
func (a *Adapter) rebind(query string) string {
	return sqlx.Rebind(sqlx.BindType(a.DriverName), query)
}
