package param

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	p := New("@Id", 42)

	assert.Equal(t, "@Id", p.Name)
	assert.Equal(t, 42, p.Value)
	assert.Equal(t, Input, p.Direction)
	assert.Equal(t, Unspecified, p.Type)
	assert.False(t, p.IsNullable)
}

func TestOptions(t *testing.T) {
	p := New("amount", 10.5,
		WithType(Decimal),
		WithSize(16),
		WithPrecision(10),
		WithScale(2),
		WithDirection(InputOutput),
		WithNullable(true),
		WithSourceColumn("Amount", true),
	)

	assert.Equal(t, Decimal, p.Type)
	assert.Equal(t, 16, p.Size)
	assert.Equal(t, uint8(10), p.Precision)
	assert.Equal(t, uint8(2), p.Scale)
	assert.Equal(t, InputOutput, p.Direction)
	assert.True(t, p.IsNullable)
	assert.Equal(t, "Amount", p.SourceColumn)
	assert.True(t, p.SourceColumnNullMapping)
}

func TestCloneIsIndependent(t *testing.T) {
	p := New("@Name", "Holmes")
	cp := p.Clone()
	cp.Value = "Watson"

	assert.Equal(t, "Holmes", p.Value)
	assert.Equal(t, "Watson", cp.Value)
}

func TestBareName(t *testing.T) {
	tests := map[string]string{
		"@Case": "Case",
		":name": "name",
		"$1":    "1",
		"plain": "plain",
		"":      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, New(in, nil).BareName(), in)
	}
}

func TestDirection(t *testing.T) {
	assert.True(t, Input.AcceptsInput())
	assert.True(t, InputOutput.AcceptsInput())
	assert.False(t, Output.AcceptsInput())
	assert.False(t, ReturnValue.AcceptsInput())

	assert.Equal(t, Input, ParseDirection("in"))
	assert.Equal(t, Output, ParseDirection("OUT"))
	assert.Equal(t, InputOutput, ParseDirection(" INOUT "))
	assert.Equal(t, ReturnValue, ParseDirection(""))
	assert.Equal(t, "INOUT", InputOutput.String())
}

func TestParseDbType(t *testing.T) {
	for typ, name := range dbTypeNames {
		got, ok := ParseDbType(name)
		require.True(t, ok, name)
		assert.Equal(t, typ, got)
		assert.Equal(t, name, typ.String())
	}

	got, ok := ParseDbType(" GUID ")
	assert.True(t, ok)
	assert.Equal(t, Guid, got)

	_, ok = ParseDbType("money")
	assert.False(t, ok)
}
