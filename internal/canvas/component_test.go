package canvas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropsJSONKeepsUnknownKeys(t *testing.T) {
	in := `{"name":"nav","text":"Home","position":{"x":1,"y":2},"style":{"color":"red"},"technology":"React","config":{"sticky":true}}`
	var p Props
	require.NoError(t, json.Unmarshal([]byte(in), &p))

	assert.Equal(t, "nav", p.Name)
	assert.Equal(t, Position{X: 1, Y: 2}, p.Position)
	assert.Equal(t, "React", p.Extra["technology"])
	assert.Equal(t, map[string]any{"sticky": true}, p.Extra["config"])

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestPropsJSONDefaults(t *testing.T) {
	out, err := json.Marshal(Props{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"position":{"x":0,"y":0},"style":{}}`, string(out))

	var p Props
	require.NoError(t, json.Unmarshal([]byte(`{"style":null,"position":null,"text":42}`), &p))
	assert.Equal(t, Style{}, p.Style)
	assert.Equal(t, "42", p.Text)
}

func TestPropsPatchIgnoresReservedExtraKeys(t *testing.T) {
	p := Props{Text: "a"}
	PropsPatch{Extra: map[string]any{"text": "b", "variant": "ghost"}}.apply(&p)
	assert.Equal(t, "a", p.Text)
	assert.Equal(t, "ghost", p.Extra["variant"])
}

func TestPropsCloneIsDeep(t *testing.T) {
	p := Props{Style: Style{"a": "1"}, Extra: map[string]any{"list": []any{"x"}, "m": map[string]any{"k": "v"}}}
	cp := p.Clone()
	cp.Style["a"] = "2"
	cp.Extra["list"].([]any)[0] = "y"
	cp.Extra["m"].(map[string]any)["k"] = "w"

	assert.Equal(t, "1", p.Style["a"])
	assert.Equal(t, "x", p.Extra["list"].([]any)[0])
	assert.Equal(t, "v", p.Extra["m"].(map[string]any)["k"])
}
