package canvas

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProject(t *testing.T) *Project {
	t.Helper()
	p := NewProject("proj_1a2b3c4d", "Shop", WithStrictChecks())
	p.Description = "storefront"
	p.Status = "created"
	p.Schema = json.RawMessage(`{"tables":[]}`)
	g := p.Graph
	btn := mustAdd(t, g, "Button")
	card, err := g.Add("Card", &PropsPatch{
		Name:     strPtr("hero"),
		Position: &Position{X: 40, Y: 80},
		Extra:    map[string]any{"technology": "React", "dependencies": []any{"react-dom"}},
	})
	require.NoError(t, err)
	mustConnect(t, g, btn.ID, card.ID, ConnectionAction)
	return p
}

func TestDocumentRoundTrip(t *testing.T) {
	p := sampleProject(t)
	doc := ToDocument(p)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	var decoded Document
	require.NoError(t, json.Unmarshal(raw, &decoded))

	back, err := FromDocument(decoded)
	require.NoError(t, err)
	assert.Equal(t, p.ProjectID, back.ProjectID)
	assert.Equal(t, p.Name, back.Name)
	assert.Equal(t, p.Description, back.Description)
	assert.Equal(t, p.Status, back.Status)
	assert.JSONEq(t, string(p.Schema), string(back.Schema))
	assert.Equal(t, p.Graph.Components(), back.Graph.Components())
	assert.Equal(t, p.Graph.Connections(), back.Graph.Connections())
}

func TestDocumentJSONShape(t *testing.T) {
	doc := ToDocument(sampleProject(t))
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Equal(t, "proj_1a2b3c4d", generic["projectId"])
	assert.Equal(t, "Shop", generic["projectName"])

	comps := generic["components"].([]any)
	card := comps[1].(map[string]any)
	props := card["props"].(map[string]any)
	assert.Equal(t, "hero", props["name"])
	assert.Equal(t, "React", props["technology"])
	assert.Equal(t, map[string]any{"x": 40.0, "y": 80.0}, props["position"])

	conns := generic["connections"].([]any)
	edge := conns[0].(map[string]any)
	assert.Equal(t, "action", edge["type"])
	assert.Contains(t, edge, "from")
	assert.Contains(t, edge, "to")
}

func TestFromDocumentRejectsDanglingConnection(t *testing.T) {
	doc := Document{
		ProjectID:   "proj_x",
		Components:  []Component{{ID: "a", Type: "Button"}},
		Connections: []Connection{{ID: "c1", From: "a", To: "ghost", Type: ConnectionData}},
	}
	p, err := FromDocument(doc)
	assert.Nil(t, p)
	require.ErrorIs(t, err, ErrCorruptDocument)

	var ce *Error
	require.True(t, errors.As(err, &ce))
	require.Len(t, ce.Violations, 1)
	assert.Equal(t, ViolationDanglingTo, ce.Violations[0].Kind)
	assert.Equal(t, "c1", ce.Violations[0].ID)
}

func TestFromDocumentReportsEveryViolation(t *testing.T) {
	doc := Document{
		Components: []Component{{ID: "a", Type: "Button"}, {ID: "a", Type: "Card"}, {ID: "b"}},
		Connections: []Connection{
			{ID: "c1", From: "a", To: "a", Type: ConnectionData},
			{ID: "c1", From: "a", To: "b", Type: "wire"},
		},
	}
	_, err := FromDocument(doc)
	var ce *Error
	require.True(t, errors.As(err, &ce))

	kinds := make([]ViolationKind, 0, len(ce.Violations))
	for _, v := range ce.Violations {
		kinds = append(kinds, v.Kind)
	}
	assert.Equal(t, []ViolationKind{
		ViolationDuplicateComponentID,
		ViolationEmptyComponentType,
		ViolationSelfLoop,
		ViolationDuplicateConnectionID,
		ViolationInvalidConnectionType,
	}, kinds)
}

func TestFromDocumentAssignsLegacyIDs(t *testing.T) {
	raw := `{
		"projectId": "proj_old",
		"projectName": "Legacy",
		"components": [
			{"type": "Button", "props": {"text": "Go", "style": {"color": "red", "fontSize": 14}}},
			{"id": "keep", "type": "Text", "props": {"text": "hi"}}
		]
	}`
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	p, err := FromDocument(doc)
	require.NoError(t, err)
	comps := p.Graph.Components()
	require.Len(t, comps, 2)
	assert.NotEmpty(t, comps[0].ID)
	assert.Equal(t, "keep", comps[1].ID)
	assert.Equal(t, Style{"color": "red", "fontSize": "14"}, comps[0].Props.Style)
	assert.Empty(t, p.Graph.Connections())
}

func TestLoadedGraphKeepsAllocatingFreshIDs(t *testing.T) {
	doc := ToDocument(sampleProject(t))
	p, err := FromDocument(doc, WithStrictChecks())
	require.NoError(t, err)

	c, err := p.Graph.Add("Text", nil)
	require.NoError(t, err)
	for _, existing := range doc.Components {
		assert.NotEqual(t, existing.ID, c.ID)
	}
}
