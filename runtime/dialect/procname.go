package dialect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/satishbabariya/coconutdal/runtime/dalerr"
)

// ErrInvalidProcedureName is returned when stored-procedure text is not a
// plain, optionally schema-qualified identifier.
var ErrInvalidProcedureName = errors.New("invalid stored procedure name")

// ProcedureName is a parsed, optionally schema-qualified routine name.
type ProcedureName struct {
	Schema string
	Name   string
}

// String returns the dotted name.
func (n ProcedureName) String() string {
	if n.Schema == "" {
		return n.Name
	}
	return n.Schema + "." + n.Name
}

type procedureAST struct {
	Parts []string `parser:"@Ident ( '.' @Ident )*"`
}

var (
	procedureLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_$]*`},
		{Name: "Dot", Pattern: `\.`},
		{Name: "Whitespace", Pattern: `[ \t]+`},
	})

	procedureParser = participle.MustBuild[procedureAST](
		participle.Lexer(procedureLexer),
		participle.Elide("Whitespace"),
	)
)

// ParseProcedureName parses text as "name" or "schema.name".
func ParseProcedureName(text string) (ProcedureName, error) {
	ast, err := procedureParser.ParseString("", strings.TrimSpace(text))
	if err != nil {
		return ProcedureName{}, dalerr.New(dalerr.Validation, "procedure name",
			fmt.Errorf("%w %q: %v", ErrInvalidProcedureName, text, err))
	}
	switch len(ast.Parts) {
	case 1:
		return ProcedureName{Name: ast.Parts[0]}, nil
	case 2:
		return ProcedureName{Schema: ast.Parts[0], Name: ast.Parts[1]}, nil
	default:
		return ProcedureName{}, dalerr.New(dalerr.Validation, "procedure name",
			fmt.Errorf("%w %q: too many qualifiers", ErrInvalidProcedureName, text))
	}
}
