// Package planner maps each outcome question onto the schema elements
// needed to answer it.
package planner

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
	"github.com/ariel-frischer/outcomegen/internal/schema"
)

// Plan is the evidence query plan for one question.
type Plan struct {
	Question string            `json:"question"`
	Entities []string          `json:"entities"`
	Edges    []string          `json:"edges"`
	Filters  map[string]string `json:"filters"`
}

// normalize replaces nil collections with empty ones so the JSON artifact
// never carries nulls.
func (p *Plan) normalize() {
	if p.Entities == nil {
		p.Entities = []string{}
	}
	if p.Edges == nil {
		p.Edges = []string{}
	}
	if p.Filters == nil {
		p.Filters = map[string]string{}
	}
}

// ValidateAgainst checks that every entity is a class and every edge an
// association of s.
func (p *Plan) ValidateAgainst(s *schema.Specification) error {
	classes := toSet(s.ClassNames())
	edges := toSet(s.AssociationNames())

	var problems []string
	for _, e := range p.Entities {
		if !classes[e] {
			problems = append(problems, fmt.Sprintf("entities: unknown class %q (known: %s)", e, strings.Join(s.ClassNames(), ", ")))
		}
	}
	for _, e := range p.Edges {
		if !edges[e] {
			problems = append(problems, fmt.Sprintf("edges: unknown association %q (known: %s)", e, strings.Join(s.AssociationNames(), ", ")))
		}
	}
	for k := range p.Filters {
		if strings.TrimSpace(k) == "" {
			problems = append(problems, "filters: empty key")
		}
	}
	if len(problems) > 0 {
		return &apperrors.ValidationError{Subject: "evidence query plan", Problems: problems}
	}
	return nil
}

// WriteJSON writes plans as an indented JSON array.
func WriteJSON(w io.Writer, plans []Plan) error {
	if plans == nil {
		plans = []Plan{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(plans); err != nil {
		return fmt.Errorf("encoding plans: %w", err)
	}
	return nil
}

// JSONSchema describes Plan for generative backends.
func JSONSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"question", "entities", "edges", "filters"},
		"properties": map[string]any{
			"question": map[string]any{"type": "string"},
			"entities": map[string]any{
				"type":        "array",
				"description": "class names needed to answer the question",
				"items":       map[string]any{"type": "string"},
			},
			"edges": map[string]any{
				"type":        "array",
				"description": "association names needed to answer the question",
				"items":       map[string]any{"type": "string"},
			},
			"filters": map[string]any{
				"type":        "object",
				"description": "metadata filter key to value",
			},
		},
	}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
