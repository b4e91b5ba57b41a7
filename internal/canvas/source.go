package canvas

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

const (
	sourceHeader = "import React from 'react';\n\nconst GeneratedComponent = () => {\n  return (\n    <div>\n"
	sourceFooter = "    </div>\n  );\n};\n\nexport default GeneratedComponent;\n"
	sourceIndent = "      "
)

type templateData struct {
	Index int
	Text  string
	Style string
}

// ToSourceText renders the project as a React component module.
func ToSourceText(p *Project) string {
	if p == nil || p.Graph == nil {
		return RenderSource(nil, nil)
	}
	return RenderSource(p.Graph.Components(), p.Graph.Registry())
}

// RenderSource renders one JSX line per component in z-order. The output is a
// pure function of its inputs: styles are written with sorted keys.
func RenderSource(components []Component, registry *Registry) string {
	var b strings.Builder
	b.WriteString(sourceHeader)
	for i, c := range components {
		b.WriteString(sourceIndent)
		b.WriteString(renderLine(i, c, registry))
		b.WriteString("\n")
	}
	b.WriteString(sourceFooter)
	return b.String()
}

func renderLine(index int, c Component, registry *Registry) string {
	placeholder := "{/* " + c.Type + " component */}"
	tmpl := registry.template(c.Type)
	if tmpl == nil {
		return placeholder
	}
	var out bytes.Buffer
	err := tmpl.Execute(&out, templateData{Index: index, Text: c.Props.Text, Style: styleLiteral(c.Props.Style)})
	if err != nil {
		return placeholder
	}
	return out.String()
}

func styleLiteral(s Style) string {
	if len(s) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]string(s)); err != nil {
		return strconv.Quote(err.Error())
	}
	return strings.TrimRight(buf.String(), "\n")
}
