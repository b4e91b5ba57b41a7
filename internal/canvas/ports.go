package canvas

type PointRole string

const (
	PointInput  PointRole = "input"
	PointOutput PointRole = "output"
	PointParent PointRole = "parent"
	PointChild  PointRole = "child"
)

type Side string

const (
	SideTop    Side = "top"
	SideRight  Side = "right"
	SideBottom Side = "bottom"
	SideLeft   Side = "left"
)

// ConnectionPoint is a drawable anchor on a component. Points are computed from
// the component type and never stored.
type ConnectionPoint struct {
	ID          string    `json:"id"`
	ComponentID string    `json:"componentId"`
	Role        PointRole `json:"role"`
	Side        Side      `json:"side"`
	Connections []string  `json:"connections"`
}

// Accepts reports whether an edge of type t may start (outgoing) or end at p.
func (p ConnectionPoint) Accepts(t ConnectionType, outgoing bool) bool {
	switch t {
	case ConnectionParentChild:
		if outgoing {
			return p.Role == PointChild
		}
		return p.Role == PointParent
	case ConnectionData, ConnectionAction:
		if outgoing {
			return p.Role == PointOutput
		}
		return p.Role == PointInput
	}
	return false
}

// Points derives the anchors of c. Inputs sit on the left and outputs on the
// right. Container types also get a child anchor at the bottom, and every
// type that accepts input can be a child, shown at the top.
func Points(c Component, connections []Connection, registry *Registry) []ConnectionPoint {
	caps := registry.Ports(c.Type)
	var out []ConnectionPoint
	add := func(role PointRole, side Side, match func(Connection) bool) {
		p := ConnectionPoint{ID: c.ID + ":" + string(role), ComponentID: c.ID, Role: role, Side: side, Connections: []string{}}
		for _, conn := range connections {
			if match(conn) {
				p.Connections = append(p.Connections, conn.ID)
			}
		}
		out = append(out, p)
	}
	flow := func(t ConnectionType) bool { return t == ConnectionData || t == ConnectionAction }
	if caps.Input {
		add(PointParent, SideTop, func(e Connection) bool { return e.To == c.ID && e.Type == ConnectionParentChild })
		add(PointInput, SideLeft, func(e Connection) bool { return e.To == c.ID && flow(e.Type) })
	}
	if caps.Output {
		add(PointOutput, SideRight, func(e Connection) bool { return e.From == c.ID && flow(e.Type) })
	}
	if caps.Container {
		add(PointChild, SideBottom, func(e Connection) bool { return e.From == c.ID && e.Type == ConnectionParentChild })
	}
	return out
}

// ConnectionTypeFor picks the edge type for a drag from role to role, or false
// if the pair cannot be joined.
func ConnectionTypeFor(from, to PointRole) (ConnectionType, bool) {
	switch {
	case from == PointOutput && to == PointInput:
		return ConnectionData, true
	case from == PointChild && to == PointParent:
		return ConnectionParentChild, true
	}
	return "", false
}
