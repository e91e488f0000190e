package outcome

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Format identifies the encoding of an outcome document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the decoder by extension; anything other than .json
// is treated as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads, parses and validates the outcome document at path.
func Load(path string) (*Specification, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &apperrors.NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("reading outcome document: %w", err)
	}
	return Parse(data, path, FormatFromPath(path))
}

// Parse decodes and validates an outcome document. name is used in error
// messages only.
func Parse(data []byte, name string, format Format) (*Specification, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &apperrors.ParseError{Path: name, Message: "document is empty"}
	}

	var spec Specification
	var err error
	switch format {
	case FormatJSON:
		err = decodeJSON(data, name, &spec)
	default:
		err = decodeYAML(data, name, &spec)
	}
	if err != nil {
		return nil, err
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

func decodeYAML(data []byte, name string, spec *Specification) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(spec); err != nil {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			return classifyTypeErrors(name, typeErr, err)
		}
		line, column := extractLineColumn(err.Error())
		return &apperrors.ParseError{Path: name, Line: line, Column: column, Message: cleanYAMLError(err.Error()), Err: err}
	}
	return nil
}

func decodeJSON(data []byte, name string, spec *Specification) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(spec); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &apperrors.ValidationError{
				Subject:  "outcome specification",
				Problems: []string{fmt.Sprintf("%s: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)},
			}
		}
		return &apperrors.ParseError{Path: name, Message: err.Error(), Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return &apperrors.ParseError{Path: name, Message: "unexpected data after top-level object"}
	}
	return nil
}

// classifyTypeErrors splits yaml.v3 decode errors: unknown keys make the
// document a ParseError, values of the wrong shape in known fields are
// ValidationError problems.
func classifyTypeErrors(name string, typeErr *yaml.TypeError, err error) error {
	for _, msg := range typeErr.Errors {
		if strings.Contains(msg, "not found in type") {
			return &apperrors.ParseError{Path: name, Message: strings.Join(typeErr.Errors, "; "), Err: err}
		}
	}
	problems := make([]string, len(typeErr.Errors))
	for i, msg := range typeErr.Errors {
		problems[i] = cleanYAMLError(msg)
	}
	return &apperrors.ValidationError{Subject: "outcome specification", Problems: problems}
}

// Validate checks the structural rules of the specification and reports every
// violation in one ValidationError.
func (s *Specification) Validate() error {
	var problems []string

	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, describeFieldError(fe))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	for i, q := range s.Questions {
		if q != "" && strings.TrimSpace(q) == "" {
			problems = append(problems, fmt.Sprintf("questions[%d] is blank", i))
		}
	}

	seen := make(map[string]bool, len(s.OntologyHints))
	for _, hint := range s.OntologyHints {
		if hint.Prefix == "" {
			continue
		}
		if seen[hint.Prefix] {
			problems = append(problems, fmt.Sprintf("ontology_hints: duplicate prefix %q", hint.Prefix))
		}
		seen[hint.Prefix] = true
	}

	if len(problems) > 0 {
		return &apperrors.ValidationError{Subject: "outcome specification", Problems: problems}
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Specification.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates", field)
	case "uri":
		return fmt.Sprintf("%s must be a URI", field)
	default:
		return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
	}
}

// extractLineColumn pulls position information out of yaml.v3 error text,
// e.g. "yaml: line 5: could not find expected ':'".
func extractLineColumn(errMsg string) (line, column int) {
	var l, c int
	if n, _ := fmt.Sscanf(errMsg, "yaml: line %d: column %d:", &l, &c); n == 2 {
		return l, c
	}
	if n, _ := fmt.Sscanf(errMsg, "yaml: line %d:", &l); n == 1 {
		return l, 1
	}
	return 0, 0
}

// cleanYAMLError removes the "yaml: line X:" prefix from error messages.
func cleanYAMLError(errMsg string) string {
	if idx := strings.LastIndex(errMsg, ": "); idx > 0 && strings.HasPrefix(errMsg, "yaml:") {
		return errMsg[idx+2:]
	}
	return errMsg
}
