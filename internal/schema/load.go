package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
)

// Load reads and validates a schema specification previously written as
// JSON (schema.json).
func Load(path string) (*Specification, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &apperrors.NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("reading schema document: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes and validates a JSON schema specification. Classes that list
// no mixins get the provenance mixin, as they do after synthesis.
func Parse(data []byte, name string) (*Specification, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &apperrors.ParseError{Path: name, Message: "document is empty"}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var s Specification
	if err := dec.Decode(&s); err != nil {
		return nil, &apperrors.ParseError{Path: name, Message: err.Error(), Err: err}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.ApplyDefaults()
	return &s, nil
}

// WriteJSON writes the specification as indented JSON.
func (s *Specification) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
