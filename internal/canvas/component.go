package canvas

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Style is an open bag of CSS-like declarations. The key set is unbounded and
// depends on the component type.
type Style map[string]string

// Clone always returns a non-nil map.
func (s Style) Clone() Style {
	out := make(Style, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Props is the property bag of a placed component. Keys other than name, text,
// position and style are kept in Extra so documents written by the AI generator
// (description, technology, dependencies, ...) survive a load/save cycle.
type Props struct {
	Name     string
	Text     string
	Position Position
	Style    Style
	Extra    map[string]any
}

var knownPropKeys = map[string]struct{}{"name": {}, "text": {}, "position": {}, "style": {}}

func (p Props) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p.Extra)+4)
	for k, v := range p.Extra {
		if _, known := knownPropKeys[k]; known {
			continue
		}
		m[k] = v
	}
	if p.Name != "" {
		m["name"] = p.Name
	}
	if p.Text != "" {
		m["text"] = p.Text
	}
	m["position"] = p.Position
	style := p.Style
	if style == nil {
		style = Style{}
	}
	m["style"] = style
	return json.Marshal(m)
}

func (p *Props) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Props{Style: Style{}}
	for key, val := range raw {
		switch key {
		case "name":
			if err := decodeStringish(val, &out.Name); err != nil {
				return fmt.Errorf("props.name: %w", err)
			}
		case "text":
			if err := decodeStringish(val, &out.Text); err != nil {
				return fmt.Errorf("props.text: %w", err)
			}
		case "position":
			if isNull(val) {
				continue
			}
			if err := json.Unmarshal(val, &out.Position); err != nil {
				return fmt.Errorf("props.position: %w", err)
			}
		case "style":
			style, err := decodeStyle(val)
			if err != nil {
				return fmt.Errorf("props.style: %w", err)
			}
			out.Style = style
		default:
			var v any
			if err := json.Unmarshal(val, &v); err != nil {
				return fmt.Errorf("props.%s: %w", key, err)
			}
			if out.Extra == nil {
				out.Extra = map[string]any{}
			}
			out.Extra[key] = v
		}
	}
	*p = out
	return nil
}

// Clone returns a deep copy.
func (p Props) Clone() Props {
	out := p
	out.Style = p.Style.Clone()
	if p.Extra != nil {
		out.Extra = make(map[string]any, len(p.Extra))
		for k, v := range p.Extra {
			out.Extra[k] = cloneValue(v)
		}
	}
	return out
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

// decodeStringish accepts strings and scalars; generated documents are not always typed strictly.
func decodeStringish(raw json.RawMessage, dst *string) error {
	if isNull(raw) {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*dst = t
	case float64, bool:
		*dst = fmt.Sprint(t)
	default:
		return fmt.Errorf("expected string, got %T", v)
	}
	return nil
}

func decodeStyle(raw json.RawMessage) (Style, error) {
	if isNull(raw) {
		return Style{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	out := make(Style, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case string:
			out[k] = t
		case nil:
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out, nil
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = cloneValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = cloneValue(vv)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// Component is a placed visual element. ID and Type never change after creation.
type Component struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Props Props  `json:"props"`
	Code  string `json:"code,omitempty"`
}

func (c Component) Clone() Component {
	out := c
	out.Props = c.Props.Clone()
	return out
}

// PropsPatch is a shallow merge into Props. Nil fields are left alone; a non-nil
// Style replaces the whole style map, so callers merge styles themselves.
type PropsPatch struct {
	Name     *string        `json:"name,omitempty"`
	Text     *string        `json:"text,omitempty"`
	Position *Position      `json:"position,omitempty"`
	Style    Style          `json:"style,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

func (pp PropsPatch) apply(p *Props) {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Text != nil {
		p.Text = *pp.Text
	}
	if pp.Position != nil {
		p.Position = *pp.Position
	}
	if pp.Style != nil {
		p.Style = pp.Style.Clone()
	}
	for k, v := range pp.Extra {
		if _, known := knownPropKeys[k]; known {
			continue
		}
		if p.Extra == nil {
			p.Extra = map[string]any{}
		}
		p.Extra[k] = cloneValue(v)
	}
}

// componentStore keeps components in insertion order. Insertion order is the
// z-order on the canvas and carries no other meaning.
type componentStore struct {
	ids      IDAllocator
	registry *Registry
	order    []string
	byID     map[string]*Component
}

func newComponentStore(ids IDAllocator, registry *Registry) *componentStore {
	return &componentStore{ids: ids, registry: registry, byID: map[string]*Component{}}
}

func (s *componentStore) has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

func (s *componentStore) allocate(taken map[string]struct{}) (string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		id := s.ids.NewID(IDComponent)
		if id == "" || s.has(id) {
			continue
		}
		if _, dup := taken[id]; dup {
			continue
		}
		return id, nil
	}
	return "", &Error{Kind: KindInvalidComponent, Op: "allocate", Err: fmt.Errorf("id allocator keeps returning taken ids")}
}

func (s *componentStore) add(typ string, patch *PropsPatch) (Component, error) {
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return Component{}, &Error{Kind: KindInvalidComponent, Op: "add", Err: fmt.Errorf("component type required")}
	}
	id, err := s.allocate(nil)
	if err != nil {
		return Component{}, err
	}
	text, style := s.registry.defaultsFor(typ)
	c := &Component{ID: id, Type: typ, Props: Props{Text: text, Style: style}}
	if patch != nil {
		patch.apply(&c.Props)
	}
	s.insert(c)
	return c.Clone(), nil
}

func (s *componentStore) insert(c *Component) {
	if c.Props.Style == nil {
		c.Props.Style = Style{}
	}
	s.order = append(s.order, c.ID)
	s.byID[c.ID] = c
}

func (s *componentStore) update(id string, patch PropsPatch) (Component, error) {
	c, ok := s.byID[id]
	if !ok {
		return Component{}, newError(KindNotFound, "update", id)
	}
	patch.apply(&c.Props)
	return c.Clone(), nil
}

func (s *componentStore) move(id string, dx, dy float64) (Component, error) {
	c, ok := s.byID[id]
	if !ok {
		return Component{}, newError(KindNotFound, "move", id)
	}
	pos := Position{X: c.Props.Position.X + dx, Y: c.Props.Position.Y + dy}
	return s.update(id, PropsPatch{Position: &pos})
}

func (s *componentStore) duplicate(id string) (Component, error) {
	src, ok := s.byID[id]
	if !ok {
		return Component{}, newError(KindNotFound, "duplicate", id)
	}
	newID, err := s.allocate(nil)
	if err != nil {
		return Component{}, err
	}
	dup := src.Clone()
	dup.ID = newID
	s.insert(&dup)
	return dup.Clone(), nil
}

func (s *componentStore) remove(id string) bool {
	if !s.has(id) {
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

func (s *componentStore) get(id string) (Component, bool) {
	c, ok := s.byID[id]
	if !ok {
		return Component{}, false
	}
	return c.Clone(), true
}

func (s *componentStore) list() []Component {
	out := make([]Component, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].Clone())
	}
	return out
}
