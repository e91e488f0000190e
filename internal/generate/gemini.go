package generate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/genai"

	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiBackend calls the Gemini API with JSON response mode and the
// request's schema as the response schema.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend creates a Gemini backend. An empty key is a configuration
// error, reported before any network traffic.
func NewGeminiBackend(ctx context.Context, apiKey, model string) (*GeminiBackend, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &apperrors.ConfigurationError{
			Key:     "gemini_api_key",
			Message: "a Gemini API key is required (set GEMINI_API_KEY or OUTCOMEGEN_GEMINI_API_KEY)",
		}
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiBackend{client: client, model: model}, nil
}

// Name implements Backend.
func (g *GeminiBackend) Name() string { return "gemini" }

// Model returns the configured model name.
func (g *GeminiBackend) Model() string { return g.model }

// Generate implements Backend.
func (g *GeminiBackend) Generate(ctx context.Context, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if req.Schema != nil {
		cfg.ResponseSchema = ToGenaiSchema(req.Schema)
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(req.Prompt, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("model %s returned no text", g.model)
	}
	return text, nil
}

// ToGenaiSchema converts a JSON-schema style map into a genai.Schema.
// Keys genai does not model (pattern, minItems, maxItems) are folded into
// the description so the model still sees them.
func ToGenaiSchema(m map[string]any) *genai.Schema {
	if m == nil {
		return nil
	}
	s := &genai.Schema{}

	if t, ok := m["type"].(string); ok {
		s.Type = genaiType(t)
	}

	var notes []string
	if d, ok := m["description"].(string); ok && d != "" {
		notes = append(notes, d)
	}
	if p, ok := m["pattern"].(string); ok {
		notes = append(notes, "must match "+p)
	}
	if n, ok := m["minItems"]; ok {
		notes = append(notes, fmt.Sprintf("at least %v items", n))
	}
	if n, ok := m["maxItems"]; ok {
		notes = append(notes, fmt.Sprintf("at most %v items", n))
	}
	s.Description = strings.Join(notes, "; ")

	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		keys := make([]string, 0, len(props))
		for k, v := range props {
			// Free-form maps cannot be expressed; the model is told about
			// them in the prompt instead.
			if sub, ok := v.(map[string]any); ok && !freeForm(sub) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			s.Properties[k] = ToGenaiSchema(props[k].(map[string]any))
		}
		s.PropertyOrdering = keys
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = ToGenaiSchema(items)
	}
	for _, r := range stringList(m["required"]) {
		if s.Properties == nil || s.Properties[r] != nil {
			s.Required = append(s.Required, r)
		}
	}
	s.Enum = stringList(m["enum"])
	return s
}

func freeForm(m map[string]any) bool {
	_, hasProps := m["properties"]
	return m["type"] == "object" && !hasProps
}

func genaiType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeUnspecified
	}
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
