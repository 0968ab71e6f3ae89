package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeID(t *testing.T) {
	t.Run("normalises case and whitespace", func(t *testing.T) {
		id := NewTypeID(" Field ", "String")
		assert.Equal(t, TypeID{Type: "field", SubType: "string"}, id)
		assert.Equal(t, "field.string", id.QualifiedName())
		assert.Equal(t, "field.string", id.String())
	})

	t.Run("equality by both fields", func(t *testing.T) {
		assert.Equal(t, NewTypeID("field", "string"), NewTypeID("FIELD", "string"))
		assert.NotEqual(t, NewTypeID("field", "string"), NewTypeID("field", "int"))
	})

	t.Run("zero and base", func(t *testing.T) {
		assert.True(t, TypeID{}.IsZero())
		assert.False(t, NewTypeID("field", "base").IsZero())
		assert.True(t, NewTypeID("field", "base").IsBase())
		assert.False(t, NewTypeID("field", "string").IsBase())
	})
}

func TestParseTypeID(t *testing.T) {
	tests := []struct {
		input   string
		want    TypeID
		wantErr bool
	}{
		{input: "field.string", want: NewTypeID("field", "string")},
		{input: "Object.Pojo", want: NewTypeID("object", "pojo")},
		{input: "attr.string.extra", want: NewTypeID("attr", "string.extra")},
		{input: "field", wantErr: true},
		{input: ".string", wantErr: true},
		{input: "field.", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTypeID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Panics(t, func() { MustParseTypeID("nodot") })
}
