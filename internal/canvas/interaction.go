package canvas

type State int

const (
	StateIdle State = iota
	StateSelected
	StateConnecting
)

func (s State) String() string {
	switch s {
	case StateSelected:
		return "selected"
	case StateConnecting:
		return "connecting"
	default:
		return "idle"
	}
}

// Controller is the selection and gesture state machine of one editing
// session. Every method is a total transition: events that make no sense in the
// current state are ignored. A Controller is not safe for concurrent use.
type Controller struct {
	graph       *Graph
	state       State
	selected    string
	sourceRole  PointRole
	unsubscribe func()
}

func NewController(g *Graph) *Controller {
	c := &Controller{graph: g}
	c.unsubscribe = g.Subscribe(c.onEvent)
	return c
}

// Close detaches the controller from its graph.
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func (c *Controller) State() State { return c.state }

// Selected returns the selected component, which in Connecting is the drag source.
func (c *Controller) Selected() (string, bool) {
	if c.state == StateIdle {
		return "", false
	}
	return c.selected, true
}

func (c *Controller) SourceRole() PointRole { return c.sourceRole }

func (c *Controller) onEvent(ev Event) {
	if ev.Kind != EventComponentRemoved {
		return
	}
	if c.state != StateIdle && c.selected == ev.ComponentID {
		c.toIdle()
	}
}

func (c *Controller) toIdle() {
	c.state = StateIdle
	c.selected = ""
	c.sourceRole = ""
}

func (c *Controller) ClickComponent(id string) {
	if c.state == StateConnecting || !c.graph.Has(id) {
		return
	}
	c.state = StateSelected
	c.selected = id
}

func (c *Controller) ClickBackground() {
	if c.state == StateSelected {
		c.toIdle()
	}
}

// StartDrag begins a connection from an outgoing point (output or child) of the
// selected component. It reports whether the controller entered Connecting.
func (c *Controller) StartDrag(componentID string, role PointRole) bool {
	if c.state != StateSelected || componentID != c.selected {
		return false
	}
	comp, ok := c.graph.Get(componentID)
	if !ok {
		return false
	}
	caps := c.graph.Registry().Ports(comp.Type)
	switch {
	case role == PointOutput && caps.Output, role == PointChild && caps.Container:
	default:
		return false
	}
	c.state = StateConnecting
	c.sourceRole = role
	return true
}

// Drop ends a drag over role on targetID. An empty typ is derived from the
// point roles. A drop on an incompatible point acts like CancelDrag. Either way
// the controller returns to Selected on the source.
func (c *Controller) Drop(targetID string, role PointRole, typ ConnectionType) (Connection, bool, error) {
	if c.state != StateConnecting {
		return Connection{}, false, nil
	}
	source, sourceRole := c.selected, c.sourceRole
	c.state = StateSelected
	c.sourceRole = ""

	if targetID == source {
		return Connection{}, false, nil
	}
	target, ok := c.graph.Get(targetID)
	if !ok {
		return Connection{}, false, nil
	}
	caps := c.graph.Registry().Ports(target.Type)
	if (role == PointInput || role == PointParent) && !caps.Input {
		return Connection{}, false, nil
	}
	derived, ok := ConnectionTypeFor(sourceRole, role)
	if !ok {
		return Connection{}, false, nil
	}
	if typ == "" {
		typ = derived
	}
	from := ConnectionPoint{Role: sourceRole}
	to := ConnectionPoint{Role: role}
	if !from.Accepts(typ, true) || !to.Accepts(typ, false) {
		return Connection{}, false, nil
	}
	conn, err := c.graph.Connect(ConnectRequest{From: source, To: targetID, Type: typ})
	if err != nil {
		return Connection{}, false, err
	}
	return conn, true, nil
}

func (c *Controller) CancelDrag() {
	if c.state == StateConnecting {
		c.state = StateSelected
		c.sourceRole = ""
	}
}

// PaletteDrop places a new component of typ at pos and selects it. Ignored
// while a connection drag is in progress.
func (c *Controller) PaletteDrop(typ string, pos Position) (Component, bool, error) {
	if c.state == StateConnecting {
		return Component{}, false, nil
	}
	comp, err := c.graph.Add(typ, &PropsPatch{Position: &pos})
	if err != nil {
		return Component{}, false, err
	}
	c.state = StateSelected
	c.selected = comp.ID
	return comp, true, nil
}

// Delete removes the selected component. The removal event moves the
// controller back to Idle.
func (c *Controller) Delete() bool {
	if c.state != StateSelected {
		return false
	}
	removed, _ := c.graph.Remove(c.selected)
	return removed
}
