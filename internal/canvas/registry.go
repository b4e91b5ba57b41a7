package canvas

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

// PortCapabilities says which connection points a component type exposes.
type PortCapabilities struct {
	Input     bool `yaml:"input" json:"input"`
	Output    bool `yaml:"output" json:"output"`
	Container bool `yaml:"container" json:"container"`
}

// TypeSpec is everything the graph needs to know about one palette type.
// Template is a text/template using [[ ]] delimiters with fields .Index, .Text, .Style.
type TypeSpec struct {
	Name         string
	DefaultText  string
	DefaultStyle Style
	Template     string
	Ports        PortCapabilities

	tmpl *template.Template
}

// Registry maps type names to specs. It is safe for concurrent use and shared
// between graphs.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*TypeSpec
}

func NewRegistry() *Registry {
	return &Registry{specs: map[string]*TypeSpec{}}
}

// Register adds or replaces a type.
func (r *Registry) Register(spec TypeSpec) error {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return fmt.Errorf("register type: name required")
	}
	spec.Name = name
	spec.DefaultStyle = spec.DefaultStyle.Clone()
	if spec.Template != "" {
		t, err := template.New(name).Delims("[[", "]]").Option("missingkey=error").Parse(spec.Template)
		if err != nil {
			return fmt.Errorf("register type %q: parse template: %w", name, err)
		}
		spec.tmpl = t
	}
	r.mu.Lock()
	r.specs[name] = &spec
	r.mu.Unlock()
	return nil
}

// Lookup returns the registered type for name. The bool is false for unregistered types.
func (r *Registry) Lookup(name string) (TypeSpec, bool) {
	if r == nil {
		return TypeSpec{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[name]
	if !ok {
		return TypeSpec{}, false
	}
	out := *s
	out.DefaultStyle = s.DefaultStyle.Clone()
	return out, true
}

// Ports returns the capabilities of name, defaulting to input+output for unknown types.
func (r *Registry) Ports(name string) PortCapabilities {
	if spec, ok := r.Lookup(name); ok {
		return spec.Ports
	}
	return PortCapabilities{Input: true, Output: true}
}

// Names lists registered types in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	out := make([]string, 0, len(r.specs))
	for name := range r.specs {
		out = append(out, name)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

func (r *Registry) defaultsFor(name string) (string, Style) {
	spec, ok := r.Lookup(name)
	if !ok {
		return "", Style{}
	}
	return spec.DefaultText, spec.DefaultStyle
}

func (r *Registry) template(name string) *template.Template {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.specs[name]; ok {
		return s.tmpl
	}
	return nil
}

// DefaultRegistry returns a registry preloaded with the builder palette.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, spec := range builtinTypes() {
		if err := r.Register(spec); err != nil {
			panic(err)
		}
	}
	return r
}

func builtinTypes() []TypeSpec {
	return []TypeSpec{
		{
			Name:        "Button",
			DefaultText: "Click me",
			DefaultStyle: Style{
				"backgroundColor": "#3B82F6",
				"color":           "white",
				"padding":         "8px 16px",
				"borderRadius":    "4px",
				"border":          "none",
				"cursor":          "pointer",
			},
			Template: `<button key="[[.Index]]" style={[[.Style]]}>[[.Text]]</button>`,
			Ports:    PortCapabilities{Input: true, Output: true},
		},
		{
			Name:        "Card",
			DefaultText: "Card content",
			DefaultStyle: Style{
				"backgroundColor": "white",
				"border":          "1px solid #E5E7EB",
				"borderRadius":    "8px",
				"padding":         "16px",
				"boxShadow":       "0 1px 3px rgba(0, 0, 0, 0.1)",
			},
			Template: `<div key="[[.Index]]" style={[[.Style]]}>[[.Text]]</div>`,
			Ports:    PortCapabilities{Input: true, Output: true, Container: true},
		},
		{
			Name:        "Text",
			DefaultText: "Sample text",
			DefaultStyle: Style{
				"color":      "#374151",
				"fontSize":   "16px",
				"fontFamily": "inherit",
			},
			Template: `<p key="[[.Index]]" style={[[.Style]]}>[[.Text]]</p>`,
			Ports:    PortCapabilities{Input: true},
		},
		{
			Name:        "Input",
			DefaultText: "Enter text...",
			DefaultStyle: Style{
				"border":       "1px solid #D1D5DB",
				"borderRadius": "4px",
				"padding":      "8px 12px",
				"fontSize":     "14px",
			},
			Template: `<input key="[[.Index]]" style={[[.Style]]} placeholder="[[.Text]]" />`,
			Ports:    PortCapabilities{Input: true, Output: true},
		},
		{
			Name:     "Image",
			Template: `<img key="[[.Index]]" style={[[.Style]]} alt="[[.Text]]" />`,
			Ports:    PortCapabilities{Input: true},
		},
		{
			Name:     "List",
			Template: `<ul key="[[.Index]]" style={[[.Style]]}></ul>`,
			Ports:    PortCapabilities{Input: true, Output: true, Container: true},
		},
	}
}

type yamlTypeFile struct {
	Types []yamlType `yaml:"types"`
}

type yamlType struct {
	Name         string            `yaml:"name"`
	DefaultText  string            `yaml:"defaultText"`
	DefaultStyle map[string]string `yaml:"defaultStyle"`
	Template     string            `yaml:"template"`
	Ports        *PortCapabilities `yaml:"ports"`
}

// LoadRegistryYAML registers every type declared in r:
//
//	types:
//	  - name: Badge
//	    defaultText: New
//	    defaultStyle: {color: "#DC2626"}
//	    template: '<span style={[[.Style]]}>[[.Text]]</span>'
//	    ports: {input: true, output: false}
func LoadRegistryYAML(reg *Registry, r io.Reader) (int, error) {
	var file yamlTypeFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, fmt.Errorf("decode component types: %w", err)
	}
	for i, t := range file.Types {
		ports := PortCapabilities{Input: true, Output: true}
		if t.Ports != nil {
			ports = *t.Ports
		}
		if err := reg.Register(TypeSpec{
			Name:         t.Name,
			DefaultText:  t.DefaultText,
			DefaultStyle: Style(t.DefaultStyle),
			Template:     t.Template,
			Ports:        ports,
		}); err != nil {
			return i, err
		}
	}
	return len(file.Types), nil
}
