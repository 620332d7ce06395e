// Package param provides the backend-neutral parameter passed to queries and
// stored procedures.
//
// A Parameter carries a name, a value and optional metadata (type, size,
// direction, nullability and source column). It is created by the caller and
// treated as read-only by the runtime; adapters copy it into their own native
// form before execution.
package param

import "strings"

// Direction describes how a parameter flows between the caller and the database.
type Direction int

const (
	// Input parameters are sent to the database.
	Input Direction = iota
	// Output parameters are filled by the database.
	Output
	// InputOutput parameters are sent and may be overwritten.
	InputOutput
	// ReturnValue receives a routine's return value.
	ReturnValue
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Input:
		return "IN"
	case Output:
		return "OUT"
	case InputOutput:
		return "INOUT"
	case ReturnValue:
		return "RETURN"
	default:
		return "UNKNOWN"
	}
}

// AcceptsInput reports whether a value supplied by the caller can be bound to
// a parameter with this direction.
func (d Direction) AcceptsInput() bool {
	return d == Input || d == InputOutput
}

// ParseDirection maps an information_schema parameter mode to a Direction.
// An empty mode denotes a function return value.
func ParseDirection(mode string) Direction {
	switch strings.ToUpper(strings.TrimSpace(mode)) {
	case "IN":
		return Input
	case "OUT":
		return Output
	case "INOUT":
		return InputOutput
	default:
		return ReturnValue
	}
}

// DbType is an optional, backend-neutral type hint.
type DbType int

const (
	Unspecified DbType = iota
	Int16
	Int32
	Int64
	Decimal
	Float
	Bool
	String
	Binary
	DateTime
	Guid
)

var dbTypeNames = map[DbType]string{
	Unspecified: "unspecified",
	Int16:       "int16",
	Int32:       "int32",
	Int64:       "int64",
	Decimal:     "decimal",
	Float:       "float",
	Bool:        "bool",
	String:      "string",
	Binary:      "binary",
	DateTime:    "datetime",
	Guid:        "guid",
}

// String returns the type name.
func (t DbType) String() string {
	if name, ok := dbTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseDbType returns the DbType with the given name.
func ParseDbType(name string) (DbType, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range dbTypeNames {
		if n == name {
			return t, true
		}
	}
	return Unspecified, false
}

// Parameter is a named, optionally typed value for a query or procedure.
type Parameter struct {
	Name                    string
	Value                   any
	Type                    DbType
	Size                    int
	Precision               uint8
	Scale                   uint8
	Direction               Direction
	IsNullable              bool
	SourceColumn            string
	SourceColumnNullMapping bool
}

// Option configures a Parameter.
type Option func(*Parameter)

// New creates an input parameter with the given name and value.
func New(name string, value any, opts ...Option) *Parameter {
	p := &Parameter{
		Name:      name,
		Value:     value,
		Direction: Input,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithType sets the type hint.
func WithType(t DbType) Option {
	return func(p *Parameter) { p.Type = t }
}

// WithSize sets the maximum size in bytes or characters.
func WithSize(size int) Option {
	return func(p *Parameter) { p.Size = size }
}

// WithPrecision sets the numeric precision.
func WithPrecision(precision uint8) Option {
	return func(p *Parameter) { p.Precision = precision }
}

// WithScale sets the numeric scale.
func WithScale(scale uint8) Option {
	return func(p *Parameter) { p.Scale = scale }
}

// WithDirection sets the direction.
func WithDirection(d Direction) Option {
	return func(p *Parameter) { p.Direction = d }
}

// WithNullable marks the parameter as accepting NULL.
func WithNullable(nullable bool) Option {
	return func(p *Parameter) { p.IsNullable = nullable }
}

// WithSourceColumn records the column the value was read from.
func WithSourceColumn(column string, nullMapping bool) Option {
	return func(p *Parameter) {
		p.SourceColumn = column
		p.SourceColumnNullMapping = nullMapping
	}
}

// Clone returns a shallow copy of the parameter.
func (p *Parameter) Clone() *Parameter {
	cp := *p
	return &cp
}

// BareName returns the name without a leading placeholder sigil
// ("@", ":", "$" or "?").
func (p *Parameter) BareName() string {
	return strings.TrimLeft(p.Name, "@:$?")
}
