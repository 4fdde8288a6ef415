package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/retrace/internal/domain"
)

func TestValue_Equal(t *testing.T) {
	tests := []struct {
		name  string
		left  domain.Value
		right domain.Value
		want  bool
	}{
		{"null equals null", domain.Null(), domain.Null(), true},
		{"null differs from false", domain.Null(), domain.Bool(false), false},
		{"null differs from empty string", domain.Null(), domain.String(""), false},
		{"numbers by value", domain.Number(1.5), domain.Number(1.5), true},
		{"different numbers", domain.Number(1), domain.Number(2), false},
		{"number differs from numeric string", domain.Number(1), domain.String("1"), false},
		{"arrays by position", domain.MustValue([]interface{}{1.0, 2.0}), domain.MustValue([]interface{}{1.0, 2.0}), true},
		{"array order matters", domain.MustValue([]interface{}{1.0, 2.0}), domain.MustValue([]interface{}{2.0, 1.0}), false},
		{"array length matters", domain.MustValue([]interface{}{1.0}), domain.MustValue([]interface{}{1.0, 1.0}), false},
		{
			"objects by key set",
			domain.MustValue(map[string]interface{}{"a": 1.0, "b": "x"}),
			domain.MustValue(map[string]interface{}{"b": "x", "a": 1.0}),
			true,
		},
		{
			"object with extra key",
			domain.MustValue(map[string]interface{}{"a": 1.0}),
			domain.MustValue(map[string]interface{}{"a": 1.0, "b": nil}),
			false,
		},
		{
			"array never equals object",
			domain.MustValue([]interface{}{1.0}),
			domain.MustValue(map[string]interface{}{"0": 1.0}),
			false,
		},
		{
			"nested structures",
			domain.MustValue(map[string]interface{}{"xs": []interface{}{map[string]interface{}{"k": true}}}),
			domain.MustValue(map[string]interface{}{"xs": []interface{}{map[string]interface{}{"k": true}}}),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.left.Equal(tt.right))
			assert.Equal(t, tt.want, tt.right.Equal(tt.left))
		})
	}
}

func TestValue_ZeroIsNull(t *testing.T) {
	var v domain.Value
	assert.True(t, v.IsNull())
	assert.Equal(t, "null", v.String())
}

func TestValue_JSONRoundTrip(t *testing.T) {
	raw := `{"b":[1,"two",null,true],"a":{"nested":3.5}}`

	var v domain.Value
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	assert.Equal(t, domain.KindObject, v.Kind())

	encoded, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(encoded))
	assert.Equal(t, `{"a":{"nested":3.5},"b":[1,"two",null,true]}`, string(encoded))
}

func TestFromInterface_Unsupported(t *testing.T) {
	_, err := domain.FromInterface(struct{}{})
	assert.Error(t, err)
}
