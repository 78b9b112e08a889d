package maint

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paramsOf(t *testing.T, text string) Params {
	t.Helper()
	var p Params
	require.NoError(t, json.Unmarshal([]byte(text), &p))
	return p
}

func TestParamsBool(t *testing.T) {
	p := paramsOf(t, `{"t":true,"f":false,"one":1,"zero":0,"s":"on","s0":"0","sf":"False","empty":"","null":null}`)
	tests := []struct {
		name    string
		want    bool
		present bool
	}{
		{"t", true, true},
		{"f", false, true},
		{"one", true, true},
		{"zero", false, true},
		{"s", true, true},
		{"s0", false, true},
		{"sf", false, true},
		{"empty", false, true},
		{"null", false, false},
		{"missing", false, false},
	}
	for _, tt := range tests {
		got, ok := p.Bool(tt.name)
		assert.Equal(t, tt.present, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestParamsInt(t *testing.T) {
	p := paramsOf(t, `{"n":3,"f":2.9,"s":" 2 ","bad":"two","b":true,"o":{}}`)
	n, ok := p.Int("n")
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	n, ok = p.Int("f")
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	n, ok = p.Int("s")
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	n, ok = p.Int("b")
	assert.True(t, ok)
	assert.Equal(t, 1, n)
	_, ok = p.Int("bad")
	assert.False(t, ok)
	_, ok = p.Int("o")
	assert.False(t, ok)
}

func TestParamsString(t *testing.T) {
	p := paramsOf(t, `{"s":"x","n":12,"b":false,"null":null}`)
	s, ok := p.String("s")
	assert.True(t, ok)
	assert.Equal(t, "x", s)
	s, ok = p.String("n")
	assert.True(t, ok)
	assert.Equal(t, "12", s)
	s, ok = p.String("b")
	assert.True(t, ok)
	assert.Equal(t, "false", s)
	_, ok = p.String("null")
	assert.False(t, ok)

	raw, ok := p.Raw("null")
	assert.True(t, ok)
	assert.Equal(t, "null", string(raw))
	assert.False(t, p.Has("null"))
}
