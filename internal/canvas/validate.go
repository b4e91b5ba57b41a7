package canvas

import "fmt"

// Policy holds the graph rules that vary between deployments.
type Policy struct {
	AllowSelfLoops bool `json:"allowSelfLoops"`
}

type ViolationKind string

const (
	ViolationDuplicateComponentID  ViolationKind = "duplicate_component_id"
	ViolationDuplicateConnectionID ViolationKind = "duplicate_connection_id"
	ViolationEmptyComponentID      ViolationKind = "empty_component_id"
	ViolationEmptyComponentType    ViolationKind = "empty_component_type"
	ViolationEmptyConnectionID     ViolationKind = "empty_connection_id"
	ViolationDanglingFrom          ViolationKind = "dangling_from"
	ViolationDanglingTo            ViolationKind = "dangling_to"
	ViolationSelfLoop              ViolationKind = "self_loop"
	ViolationInvalidConnectionType ViolationKind = "invalid_connection_type"
)

// Violation is one broken rule. Index is the position in the input slice.
type Violation struct {
	Kind   ViolationKind `json:"kind"`
	ID     string        `json:"id,omitempty"`
	Index  int           `json:"index"`
	Detail string        `json:"detail,omitempty"`
}

func (v Violation) String() string {
	if v.Detail == "" {
		return fmt.Sprintf("%s at %d (id=%q)", v.Kind, v.Index, v.ID)
	}
	return fmt.Sprintf("%s at %d (id=%q): %s", v.Kind, v.Index, v.ID, v.Detail)
}

// Validate checks a component/connection pair against the graph invariants and
// reports every violation, components first, in input order. A nil result
// means the pair is consistent.
func Validate(components []Component, connections []Connection, policy Policy) []Violation {
	var out []Violation
	seen := make(map[string]int, len(components))
	for i, c := range components {
		if c.ID == "" {
			out = append(out, Violation{Kind: ViolationEmptyComponentID, Index: i})
		} else if first, dup := seen[c.ID]; dup {
			out = append(out, Violation{Kind: ViolationDuplicateComponentID, ID: c.ID, Index: i, Detail: fmt.Sprintf("first seen at %d", first)})
		} else {
			seen[c.ID] = i
		}
		if c.Type == "" {
			out = append(out, Violation{Kind: ViolationEmptyComponentType, ID: c.ID, Index: i})
		}
	}

	seenConn := make(map[string]int, len(connections))
	for i, c := range connections {
		if c.ID == "" {
			out = append(out, Violation{Kind: ViolationEmptyConnectionID, Index: i})
		} else if first, dup := seenConn[c.ID]; dup {
			out = append(out, Violation{Kind: ViolationDuplicateConnectionID, ID: c.ID, Index: i, Detail: fmt.Sprintf("first seen at %d", first)})
		} else {
			seenConn[c.ID] = i
		}
		if _, ok := seen[c.From]; !ok {
			out = append(out, Violation{Kind: ViolationDanglingFrom, ID: c.ID, Index: i, Detail: c.From})
		}
		if _, ok := seen[c.To]; !ok {
			out = append(out, Violation{Kind: ViolationDanglingTo, ID: c.ID, Index: i, Detail: c.To})
		}
		if c.From == c.To && !policy.AllowSelfLoops {
			out = append(out, Violation{Kind: ViolationSelfLoop, ID: c.ID, Index: i, Detail: c.From})
		}
		if !c.Type.Valid() {
			out = append(out, Violation{Kind: ViolationInvalidConnectionType, ID: c.ID, Index: i, Detail: string(c.Type)})
		}
	}
	return out
}
