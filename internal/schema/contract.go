package schema

// JSONSchema describes Specification for generative backends. The naming and
// size rules are repeated here so backends with schema enforcement can honor
// them; Validate remains the authority.
func JSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"required": []any{
			"schema_name",
			"description",
			"classes",
			"associations",
		},
		"properties": map[string]any{
			"schema_name": map[string]any{
				"type":        "string",
				"description": "snake_case schema identifier, no spaces",
				"pattern":     "^[a-z][a-z0-9_]*$",
			},
			"description": map[string]any{
				"type": "string",
			},
			"classes": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": 12,
				"items": map[string]any{
					"type":     "object",
					"required": []any{"name", "description", "fields"},
					"properties": map[string]any{
						"name": map[string]any{
							"type":        "string",
							"description": "PascalCase class name",
							"pattern":     "^[A-Z][A-Za-z0-9]*$",
						},
						"description": map[string]any{"type": "string"},
						"mixins": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
						"fields": map[string]any{
							"type":     "array",
							"minItems": 1,
							"items":    map[string]any{"type": "string"},
						},
					},
				},
			},
			"associations": map[string]any{
				"type":     "array",
				"maxItems": 10,
				"items": map[string]any{
					"type":     "object",
					"required": []any{"name", "description", "subject", "object"},
					"properties": map[string]any{
						"name":        map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
						"subject": map[string]any{
							"type":        "string",
							"description": "name of the subject class",
						},
						"object": map[string]any{
							"type":        "string",
							"description": "name of the object class",
						},
						"uri": map[string]any{
							"type":        "string",
							"description": "optional canonical URI of the relation",
						},
					},
				},
			},
		},
	}
}
