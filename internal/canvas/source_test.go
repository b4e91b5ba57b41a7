package canvas

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestRenderSourceGolden(t *testing.T) {
	p := NewProject("proj_1", "Landing")
	_, err := p.Graph.Add("Button", nil)
	require.NoError(t, err)
	_, err = p.Graph.Add("Text", &PropsPatch{Text: strPtr("Hello <world>")})
	require.NoError(t, err)
	_, err = p.Graph.Add("Chart", nil)
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "basic_page", []byte(ToSourceText(p)))
}

func TestRenderSourceEmptyProject(t *testing.T) {
	g := goldie.New(t)
	g.Assert(t, "empty_page", []byte(ToSourceText(NewProject("proj_2", "Empty"))))
}

func TestToSourceTextIsDeterministic(t *testing.T) {
	p := NewProject("proj_1", "Landing")
	for i := 0; i < 20; i++ {
		_, err := p.Graph.Add("Card", &PropsPatch{Style: Style{"z": "1", "a": "2", "m": "3", "color": "red"}})
		require.NoError(t, err)
	}
	first := ToSourceText(p)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, ToSourceText(p))
	}
}

func TestRenderSourceUsesRegisteredTemplate(t *testing.T) {
	reg := DefaultRegistry()
	require.NoError(t, reg.Register(TypeSpec{Name: "Badge", DefaultText: "New", Template: `<span key="[[.Index]]">[[.Text]]</span>`}))
	out := RenderSource([]Component{{ID: "a", Type: "Badge", Props: Props{Text: "Hot"}}}, reg)
	require.Contains(t, out, "      <span key=\"0\">Hot</span>\n")
}
