package canvas

import "encoding/json"

// Document is the persisted shape of a project.
type Document struct {
	ProjectID   string          `json:"projectId"`
	ProjectName string          `json:"projectName"`
	Description string          `json:"description,omitempty"`
	Status      string          `json:"status,omitempty"`
	Components  []Component     `json:"components"`
	Connections []Connection    `json:"connections"`
	Schema      json.RawMessage `json:"schema,omitempty"`
}

// Project is the in-memory aggregate: metadata plus the live graph.
type Project struct {
	ProjectID   string
	Name        string
	Description string
	Status      string
	Graph       *Graph
	Schema      json.RawMessage
}

func NewProject(projectID, name string, opts ...Option) *Project {
	return &Project{ProjectID: projectID, Name: name, Graph: NewGraph(opts...)}
}

// ToDocument snapshots p. The result shares no memory with the graph.
func ToDocument(p *Project) Document {
	doc := Document{
		ProjectID:   p.ProjectID,
		ProjectName: p.Name,
		Description: p.Description,
		Status:      p.Status,
		Components:  []Component{},
		Connections: []Connection{},
	}
	if p.Graph != nil {
		doc.Components = p.Graph.Components()
		doc.Connections = p.Graph.Connections()
	}
	if len(p.Schema) > 0 {
		doc.Schema = append(json.RawMessage(nil), p.Schema...)
	}
	return doc
}

// FromDocument rebuilds a project. Components and connections stored without an
// id (documents saved before ids existed) get one. Any remaining violation
// fails the whole load with a CorruptDocument error listing every violation.
func FromDocument(doc Document, opts ...Option) (*Project, error) {
	g := NewGraph(opts...)

	components := make([]Component, len(doc.Components))
	assigned := map[string]struct{}{}
	for _, c := range doc.Components {
		if c.ID != "" {
			assigned[c.ID] = struct{}{}
		}
	}
	for i, c := range doc.Components {
		cp := c.Clone()
		if cp.ID == "" {
			id, err := g.components.allocate(assigned)
			if err != nil {
				return nil, err
			}
			assigned[id] = struct{}{}
			cp.ID = id
		}
		components[i] = cp
	}

	connections := make([]Connection, len(doc.Connections))
	seenConn := map[string]struct{}{}
	for _, c := range doc.Connections {
		if c.ID != "" {
			seenConn[c.ID] = struct{}{}
		}
	}
	for i, c := range doc.Connections {
		if c.ID == "" {
			for attempt := 0; attempt < 3 && c.ID == ""; attempt++ {
				cand := g.ids.NewID(IDConnection)
				if _, taken := seenConn[cand]; cand != "" && !taken {
					c.ID = cand
				}
			}
			seenConn[c.ID] = struct{}{}
		}
		connections[i] = c
	}

	if v := Validate(components, connections, g.policy); len(v) > 0 {
		return nil, &Error{Kind: KindCorruptDocument, Op: "load", ID: doc.ProjectID, Violations: v}
	}
	g.restore(components, connections)

	p := &Project{
		ProjectID:   doc.ProjectID,
		Name:        doc.ProjectName,
		Description: doc.Description,
		Status:      doc.Status,
		Graph:       g,
	}
	if len(doc.Schema) > 0 {
		p.Schema = append(json.RawMessage(nil), doc.Schema...)
	}
	return p, nil
}
