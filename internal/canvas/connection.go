package canvas

import "fmt"

type ConnectionType string

const (
	ConnectionData        ConnectionType = "data"
	ConnectionAction      ConnectionType = "action"
	ConnectionParentChild ConnectionType = "parent-child"
)

func (t ConnectionType) Valid() bool {
	switch t {
	case ConnectionData, ConnectionAction, ConnectionParentChild:
		return true
	}
	return false
}

// Connection is a directed, typed edge between two components. Two connections
// may share the same endpoints and type; each has its own id.
type Connection struct {
	ID    string         `json:"id"`
	From  string         `json:"from"`
	To    string         `json:"to"`
	Type  ConnectionType `json:"type"`
	Label string         `json:"label,omitempty"`
}

// ConnectRequest describes an edge to create.
type ConnectRequest struct {
	From  string         `json:"from"`
	To    string         `json:"to"`
	Type  ConnectionType `json:"type"`
	Label string         `json:"label,omitempty"`
}

type connectionStore struct {
	ids   IDAllocator
	order []string
	byID  map[string]*Connection
}

func newConnectionStore(ids IDAllocator) *connectionStore {
	return &connectionStore{ids: ids, byID: map[string]*Connection{}}
}

// connect checks, in order: endpoint existence, self loop, type.
func (s *connectionStore) connect(req ConnectRequest, exists func(string) bool, policy Policy) (Connection, error) {
	if !exists(req.From) {
		return Connection{}, newError(KindInvalidEndpoint, "connect", req.From)
	}
	if !exists(req.To) {
		return Connection{}, newError(KindInvalidEndpoint, "connect", req.To)
	}
	if req.From == req.To && !policy.AllowSelfLoops {
		return Connection{}, newError(KindSelfLoop, "connect", req.From)
	}
	if !req.Type.Valid() {
		return Connection{}, &Error{Kind: KindInvalidType, Op: "connect", Err: fmt.Errorf("unknown type %q", req.Type)}
	}
	var id string
	for attempt := 0; attempt < 3 && id == ""; attempt++ {
		cand := s.ids.NewID(IDConnection)
		if _, taken := s.byID[cand]; cand != "" && !taken {
			id = cand
		}
	}
	if id == "" {
		return Connection{}, &Error{Kind: KindInvalidComponent, Op: "connect", Err: fmt.Errorf("id allocator keeps returning taken ids")}
	}
	c := &Connection{ID: id, From: req.From, To: req.To, Type: req.Type, Label: req.Label}
	s.insert(c)
	return *c, nil
}

func (s *connectionStore) insert(c *Connection) {
	s.order = append(s.order, c.ID)
	s.byID[c.ID] = c
}

func (s *connectionStore) disconnect(id string) bool {
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, cur := range s.order {
		if cur == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// removeTouching drops every connection with componentID as either endpoint and
// returns them in store order.
func (s *connectionStore) removeTouching(componentID string) []Connection {
	var removed []Connection
	kept := s.order[:0]
	for _, id := range s.order {
		c := s.byID[id]
		if c.From == componentID || c.To == componentID {
			removed = append(removed, *c)
			delete(s.byID, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed
}

func (s *connectionStore) get(id string) (Connection, bool) {
	c, ok := s.byID[id]
	if !ok {
		return Connection{}, false
	}
	return *c, true
}

func (s *connectionStore) list() []Connection {
	out := make([]Connection, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

func (s *connectionStore) touching(componentID string) []Connection {
	var out []Connection
	for _, id := range s.order {
		c := s.byID[id]
		if c.From == componentID || c.To == componentID {
			out = append(out, *c)
		}
	}
	return out
}
