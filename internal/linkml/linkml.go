// Package linkml serializes a schema specification into a LinkML schema
// document. Serialization is pure: the same input always yields the same
// bytes.
package linkml

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/ariel-frischer/outcomegen/internal/outcome"
	"github.com/ariel-frischer/outcomegen/internal/schema"
)

// CoreImport is the import name of the shared core fragment.
const CoreImport = "core"

// BaseIRI prefixes every schema identifier.
const BaseIRI = "https://w3id.org/"

//go:embed core.yaml
var coreSchema []byte

// CoreSchema returns the shared core fragment defining the provenance mixin.
func CoreSchema() []byte {
	out := make([]byte, len(coreSchema))
	copy(out, coreSchema)
	return out
}

// Diagnostic is a non-fatal note about something the serializer changed or
// left out.
type Diagnostic struct {
	Association string
	Class       string
	Message     string
}

func (d Diagnostic) String() string {
	if d.Association == "" {
		return d.Message
	}
	return fmt.Sprintf("association %q: %s", d.Association, d.Message)
}

// Serialize renders spec as a LinkML document.
func Serialize(spec *schema.Specification) ([]byte, []Diagnostic) {
	return SerializeWithHints(spec, nil)
}

// SerializeWithHints renders spec and declares each ontology hint as an
// additional prefix.
func SerializeWithHints(spec *schema.Specification, hints []outcome.OntologyHint) ([]byte, []Diagnostic) {
	var diags []Diagnostic

	doc := mapping()
	put(doc, "id", scalar(BaseIRI+spec.SchemaName))
	put(doc, "name", scalar(spec.SchemaName))
	if spec.Description != "" {
		put(doc, "description", scalar(spec.Description))
	}

	prefixes := mapping()
	put(prefixes, "linkml", scalar("https://w3id.org/linkml/"))
	put(prefixes, spec.SchemaName, scalar(BaseIRI+spec.SchemaName+"/"))
	for _, h := range hints {
		if h.Prefix == "linkml" || h.Prefix == spec.SchemaName {
			diags = append(diags, Diagnostic{Message: fmt.Sprintf("ontology prefix %q collides with a reserved prefix and was not declared", h.Prefix)})
			continue
		}
		put(prefixes, h.Prefix, scalar(h.BaseURI))
	}
	put(doc, "prefixes", prefixes)
	put(doc, "default_prefix", scalar(spec.SchemaName))
	put(doc, "default_range", scalar("string"))
	put(doc, "imports", sequence("linkml:types", CoreImport))

	classes := mapping()
	attrsByClass := make(map[string]*yaml.Node, len(spec.Classes))
	for _, c := range spec.Classes {
		cls := mapping()
		if c.Description != "" {
			put(cls, "description", scalar(c.Description))
		}
		if len(c.Mixins) > 0 {
			put(cls, "mixins", sequence(c.Mixins...))
		}
		attrs := mapping()
		for _, f := range c.Fields {
			attr := mapping()
			put(attr, "range", scalar("string"))
			put(attrs, f, attr)
		}
		put(cls, "attributes", attrs)
		put(classes, c.Name, cls)
		attrsByClass[c.Name] = attrs
	}

	for _, a := range spec.Associations {
		attrs, ok := attrsByClass[a.Subject]
		if !ok {
			diags = append(diags, Diagnostic{
				Association: a.Name,
				Class:       a.Subject,
				Message:     fmt.Sprintf("subject class %q is not defined; association dropped", a.Subject),
			})
			continue
		}
		name := SnakeCase(a.Name)
		attr := mapping()
		put(attr, "range", scalar(a.Object))
		put(attr, "inlined", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "false"})
		if a.URI != "" {
			put(attr, "slot_uri", scalar(a.URI))
		}
		if a.Description != "" {
			put(attr, "description", scalar(a.Description))
		}
		if replaced := put(attrs, name, attr); replaced {
			diags = append(diags, Diagnostic{
				Association: a.Name,
				Class:       a.Subject,
				Message:     fmt.Sprintf("attribute %q on %s already existed and now ranges over %s", name, a.Subject, a.Object),
			})
		}
	}
	put(doc, "classes", classes)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	// Encoding a tree built only from scalar, mapping and sequence nodes
	// cannot fail.
	_ = enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{doc}})
	_ = enc.Close()
	return buf.Bytes(), diags
}

// SnakeCase normalizes an association name: camelCase and PascalCase
// boundaries, spaces and hyphens become underscores; the result is lower
// case.
func SnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(strings.TrimSpace(s))
	for i, r := range runes {
		switch {
		case r == ' ' || r == '-' || r == '.':
			b.WriteByte('_')
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	return strings.Trim(out, "_")
}

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func sequence(values ...string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, v := range values {
		n.Content = append(n.Content, scalar(v))
	}
	return n
}

// put sets key on a mapping node, replacing an existing value in place. It
// reports whether a value was replaced.
func put(m *yaml.Node, key string, value *yaml.Node) bool {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return true
		}
	}
	m.Content = append(m.Content, scalar(key), value)
	return false
}
