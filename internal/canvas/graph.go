package canvas

import (
	"fmt"
	"strings"
	"sync"
)

type EventKind string

const (
	EventComponentAdded    EventKind = "component.added"
	EventComponentUpdated  EventKind = "component.updated"
	EventComponentRemoved  EventKind = "component.removed"
	EventConnectionAdded   EventKind = "connection.added"
	EventConnectionRemoved EventKind = "connection.removed"
)

// Event describes one committed mutation. Subscribers run synchronously on the
// mutating goroutine after the graph lock is released.
type Event struct {
	Kind         EventKind
	ComponentID  string
	ConnectionID string
}

type Option func(*Graph)

func WithRegistry(r *Registry) Option {
	return func(g *Graph) {
		if r != nil {
			g.registry = r
		}
	}
}

func WithIDAllocator(a IDAllocator) Option {
	return func(g *Graph) {
		if a != nil {
			g.ids = a
		}
	}
}

func WithPolicy(p Policy) Option {
	return func(g *Graph) { g.policy = p }
}

// WithStrictChecks re-validates the whole graph after every mutation and panics
// on a violation. Meant for tests and debug builds.
func WithStrictChecks() Option {
	return func(g *Graph) { g.strict = true }
}

// Graph owns the components and connections of one project and keeps them
// referentially consistent: every connection endpoint names a live component.
// All methods are safe for concurrent use.
type Graph struct {
	mu          sync.RWMutex
	registry    *Registry
	ids         IDAllocator
	policy      Policy
	strict      bool
	components  *componentStore
	connections *connectionStore

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

func NewGraph(opts ...Option) *Graph {
	g := &Graph{
		registry: DefaultRegistry(),
		ids:      UUIDAllocator{},
		subs:     map[int]func(Event){},
	}
	for _, opt := range opts {
		opt(g)
	}
	g.components = newComponentStore(g.ids, g.registry)
	g.connections = newConnectionStore(g.ids)
	return g
}

func (g *Graph) Registry() *Registry { return g.registry }

func (g *Graph) Policy() Policy { return g.policy }

// Subscribe registers fn for every committed mutation. The returned func removes it.
func (g *Graph) Subscribe(fn func(Event)) func() {
	g.subMu.Lock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = fn
	g.subMu.Unlock()
	return func() {
		g.subMu.Lock()
		delete(g.subs, id)
		g.subMu.Unlock()
	}
}

func (g *Graph) emit(events ...Event) {
	if len(events) == 0 {
		return
	}
	g.subMu.Lock()
	fns := make([]func(Event), 0, len(g.subs))
	for _, fn := range g.subs {
		fns = append(fns, fn)
	}
	g.subMu.Unlock()
	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}

// checkLocked must be called with g.mu held.
func (g *Graph) checkLocked(op string) {
	if !g.strict {
		return
	}
	if v := Validate(g.components.list(), g.connections.list(), g.policy); len(v) > 0 {
		panic(fmt.Sprintf("canvas: invariant broken after %s: %s", op, v[0]))
	}
}

// Add places a new component of typ with the registry defaults for that type,
// then applies patch if given. The component is appended to the z-order.
func (g *Graph) Add(typ string, patch *PropsPatch) (Component, error) {
	g.mu.Lock()
	c, err := g.components.add(typ, patch)
	if err == nil {
		g.checkLocked("add")
	}
	g.mu.Unlock()
	if err != nil {
		return Component{}, err
	}
	g.emit(Event{Kind: EventComponentAdded, ComponentID: c.ID})
	return c, nil
}

func (g *Graph) Update(id string, patch PropsPatch) (Component, error) {
	g.mu.Lock()
	c, err := g.components.update(id, patch)
	g.mu.Unlock()
	if err != nil {
		return Component{}, err
	}
	g.emit(Event{Kind: EventComponentUpdated, ComponentID: id})
	return c, nil
}

// Move shifts a component by (dx, dy).
func (g *Graph) Move(id string, dx, dy float64) (Component, error) {
	g.mu.Lock()
	c, err := g.components.move(id, dx, dy)
	g.mu.Unlock()
	if err != nil {
		return Component{}, err
	}
	g.emit(Event{Kind: EventComponentUpdated, ComponentID: id})
	return c, nil
}

// Duplicate copies type, props and code of id under a fresh id. Connections are not copied.
func (g *Graph) Duplicate(id string) (Component, error) {
	g.mu.Lock()
	c, err := g.components.duplicate(id)
	if err == nil {
		g.checkLocked("duplicate")
	}
	g.mu.Unlock()
	if err != nil {
		return Component{}, err
	}
	g.emit(Event{Kind: EventComponentAdded, ComponentID: c.ID})
	return c, nil
}

// Remove deletes a component and every connection touching it in one step.
// Removing an unknown id is a no-op and reports false.
func (g *Graph) Remove(id string) (bool, []Connection) {
	g.mu.Lock()
	if !g.components.has(id) {
		g.mu.Unlock()
		return false, nil
	}
	cascaded := g.connections.removeTouching(id)
	g.components.remove(id)
	g.checkLocked("remove")
	g.mu.Unlock()

	events := make([]Event, 0, len(cascaded)+1)
	for _, c := range cascaded {
		events = append(events, Event{Kind: EventConnectionRemoved, ConnectionID: c.ID, ComponentID: id})
	}
	events = append(events, Event{Kind: EventComponentRemoved, ComponentID: id})
	g.emit(events...)
	return true, cascaded
}

func (g *Graph) Get(id string) (Component, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.components.get(id)
}

func (g *Graph) Has(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.components.has(id)
}

// Components returns a copy of all components in z-order.
func (g *Graph) Components() []Component {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.components.list()
}

func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.components.order)
}

func (g *Graph) Connect(req ConnectRequest) (Connection, error) {
	g.mu.Lock()
	c, err := g.connections.connect(req, g.components.has, g.policy)
	if err == nil {
		g.checkLocked("connect")
	}
	g.mu.Unlock()
	if err != nil {
		return Connection{}, err
	}
	g.emit(Event{Kind: EventConnectionAdded, ConnectionID: c.ID})
	return c, nil
}

// Disconnect removes one connection. Unknown ids are a no-op.
func (g *Graph) Disconnect(id string) bool {
	g.mu.Lock()
	ok := g.connections.disconnect(id)
	g.mu.Unlock()
	if ok {
		g.emit(Event{Kind: EventConnectionRemoved, ConnectionID: id})
	}
	return ok
}

func (g *Graph) Connection(id string) (Connection, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.connections.get(id)
}

func (g *Graph) Connections() []Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.connections.list()
}

// ConnectionsFor lists connections with componentID at either end.
func (g *Graph) ConnectionsFor(componentID string) []Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.connections.touching(componentID)
}

// Import adds a batch of components, typically from the AI generator. Incoming
// ids are ignored and fresh ones are assigned. Empty text and style fall back to
// the registry defaults of the type. Either the whole batch is added
// or, on error, nothing is.
func (g *Graph) Import(batch []Component) ([]Component, error) {
	for i, c := range batch {
		if strings.TrimSpace(c.Type) == "" {
			return nil, &Error{Kind: KindInvalidComponent, Op: "import", Err: fmt.Errorf("component %d has no type", i)}
		}
	}

	g.mu.Lock()
	taken := make(map[string]struct{}, len(batch))
	staged := make([]*Component, 0, len(batch))
	for _, c := range batch {
		id, err := g.components.allocate(taken)
		if err != nil {
			g.mu.Unlock()
			return nil, err
		}
		taken[id] = struct{}{}
		cp := c.Clone()
		cp.ID = id
		cp.Type = strings.TrimSpace(c.Type)
		text, style := g.registry.defaultsFor(cp.Type)
		if cp.Props.Text == "" {
			cp.Props.Text = text
		}
		if len(cp.Props.Style) == 0 {
			cp.Props.Style = style
		}
		staged = append(staged, &cp)
	}
	out := make([]Component, 0, len(staged))
	for _, c := range staged {
		g.components.insert(c)
		out = append(out, c.Clone())
	}
	g.checkLocked("import")
	g.mu.Unlock()

	events := make([]Event, 0, len(out))
	for _, c := range out {
		events = append(events, Event{Kind: EventComponentAdded, ComponentID: c.ID})
	}
	g.emit(events...)
	return out, nil
}

// Validate reports invariant violations of the current state. A graph mutated
// only through its methods always reports none.
func (g *Graph) Validate() []Violation {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return Validate(g.components.list(), g.connections.list(), g.policy)
}

// restore replaces the contents with already-validated state. Used by document loading.
func (g *Graph) restore(components []Component, connections []Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.components = newComponentStore(g.ids, g.registry)
	g.connections = newConnectionStore(g.ids)
	for _, c := range components {
		cp := c.Clone()
		g.components.insert(&cp)
	}
	for _, c := range connections {
		cp := c
		g.connections.insert(&cp)
	}
}
