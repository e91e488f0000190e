package synth

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/ariel-frischer/outcomegen/internal/outcome"
	"github.com/ariel-frischer/outcomegen/internal/refdocs"
	"github.com/ariel-frischer/outcomegen/internal/schema"
)

// ExcerptLength bounds the reference text included per ontology prefix.
const ExcerptLength = 500

// SystemPrompt frames every synthesis request.
const SystemPrompt = `You are a data architect. You design minimal, well-named schemas that
answer a fixed set of business questions. You respond with JSON only.`

var promptTemplate = template.Must(template.New("synthesis").Funcs(template.FuncMap{
	"inc":  func(i int) int { return i + 1 },
	"join": strings.Join,
}).Parse(`Design a schema for the outcome "{{.Outcome}}".
{{- if .Context}}

Context:
{{.Context}}
{{- end}}

Questions the schema must answer:
{{- range $i, $q := .Questions}}
{{inc $i}}. {{$q}}
{{- end}}
{{- if .Evidence}}

Required evidence:
{{- range .Evidence}}
- {{.Name}}{{if .Description}}: {{.Description}}{{end}}{{if .RequiredFields}} (fields: {{join .RequiredFields ", "}}){{end}}
{{- end}}
{{- end}}
{{- if .Entities}}

Target entities:
{{- range .Entities}}
- {{.Name}}{{if .Description}}: {{.Description}}{{end}}{{if .RequiredFields}} (fields: {{join .RequiredFields ", "}}){{end}}
{{- end}}
{{- end}}
{{- if .Relations}}

Relations:
{{- range .Relations}}
- {{.Name}}: {{.Subject}} -> {{.Object}}{{if .Description}} ({{.Description}}){{end}}
{{- end}}
{{- end}}
{{- if .Ontologies}}

Align with these ontologies where they fit:
{{- range .Ontologies}}
- {{.Prefix}} -> {{.URL}}{{if .Include}} (prefer: {{join .Include ", "}}){{end}}
{{- if .Excerpt}}
  Reference excerpt: {{.Excerpt}}
{{- end}}
{{- end}}
{{- end}}

Constraints:
- Use the fewest classes and associations that answer every question.
- schema_name must be snake_case (^[a-z][a-z0-9_]*$), no spaces.
- Class names must be PascalCase (^[A-Z][A-Za-z0-9]*$).
- Every class lists at least one field; field names are snake_case.
- At most {{.MaxClasses}} classes and at most {{.MaxAssociations}} associations.
- Association subject and object must name classes you define.
{{- range .Notes}}
- {{.}}
{{- end}}
`))

type ontologyLine struct {
	Prefix  string
	URL     string
	Include []string
	Excerpt string
}

type promptData struct {
	Outcome         string
	Context         string
	Questions       []string
	Evidence        []outcome.Descriptor
	Entities        []outcome.Descriptor
	Relations       []outcome.Relation
	Ontologies      []ontologyLine
	MaxClasses      int
	MaxAssociations int
	Notes           []string
}

// BuildPrompt renders the synthesis prompt. refs may be nil; ontology hints
// then point at their base URIs.
func BuildPrompt(spec *outcome.Specification, refs refdocs.Results) (string, error) {
	limits := schema.LimitsFor(spec.Constraints)
	data := promptData{
		Outcome:         spec.Outcome,
		Context:         strings.TrimSpace(spec.Context),
		Questions:       spec.Questions,
		Evidence:        spec.RequiredEvidence,
		Entities:        spec.TargetEntities,
		Relations:       spec.Relations,
		MaxClasses:      limits.MaxClasses,
		MaxAssociations: limits.MaxAssociations,
		Notes:           spec.Constraints.Notes,
	}

	for _, hint := range spec.OntologyHints {
		line := ontologyLine{Prefix: hint.Prefix, URL: hint.BaseURI, Include: hint.Include}
		if url := refs.ReferenceURL(hint.Prefix); url != "" {
			line.URL = url
		}
		line.Excerpt = oneLine(refs.Excerpt(hint.Prefix, ExcerptLength))
		data.Ontologies = append(data.Ontologies, line)
	}

	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering synthesis prompt: %w", err)
	}
	return buf.String(), nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
