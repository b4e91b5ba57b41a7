package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rolesOf(points []ConnectionPoint) []PointRole {
	out := make([]PointRole, 0, len(points))
	for _, p := range points {
		out = append(out, p.Role)
	}
	return out
}

func TestPointsFollowTypeCapabilities(t *testing.T) {
	reg := DefaultRegistry()
	assert.Equal(t, []PointRole{PointParent, PointInput, PointOutput}, rolesOf(Points(Component{ID: "b", Type: "Button"}, nil, reg)))
	assert.Equal(t, []PointRole{PointParent, PointInput, PointOutput, PointChild}, rolesOf(Points(Component{ID: "c", Type: "Card"}, nil, reg)))
	assert.Equal(t, []PointRole{PointParent, PointInput}, rolesOf(Points(Component{ID: "t", Type: "Text"}, nil, reg)))
	assert.Equal(t, []PointRole{PointParent, PointInput, PointOutput}, rolesOf(Points(Component{ID: "u", Type: "Unknown"}, nil, reg)))
}

func TestPointsListAttachedConnections(t *testing.T) {
	reg := DefaultRegistry()
	conns := []Connection{
		{ID: "e1", From: "card", To: "txt", Type: ConnectionParentChild},
		{ID: "e2", From: "btn", To: "card", Type: ConnectionData},
		{ID: "e3", From: "card", To: "btn", Type: ConnectionAction},
	}
	points := Points(Component{ID: "card", Type: "Card"}, conns, reg)
	byRole := map[PointRole]ConnectionPoint{}
	for _, p := range points {
		byRole[p.Role] = p
	}
	assert.Equal(t, []string{"e2"}, byRole[PointInput].Connections)
	assert.Equal(t, []string{"e3"}, byRole[PointOutput].Connections)
	assert.Equal(t, []string{"e1"}, byRole[PointChild].Connections)
	assert.Empty(t, byRole[PointParent].Connections)
	assert.Equal(t, SideBottom, byRole[PointChild].Side)
	assert.Equal(t, "card:input", byRole[PointInput].ID)
}

func TestConnectionTypeFor(t *testing.T) {
	typ, ok := ConnectionTypeFor(PointOutput, PointInput)
	assert.True(t, ok)
	assert.Equal(t, ConnectionData, typ)

	typ, ok = ConnectionTypeFor(PointChild, PointParent)
	assert.True(t, ok)
	assert.Equal(t, ConnectionParentChild, typ)

	_, ok = ConnectionTypeFor(PointInput, PointOutput)
	assert.False(t, ok)
}
