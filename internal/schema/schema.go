// Package schema defines the SchemaSpecification produced by synthesis and
// the structural rules every synthesized schema must satisfy before any
// downstream component may use it.
package schema

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
	"github.com/ariel-frischer/outcomegen/internal/outcome"
)

// ProvenanceMixin is the shared mixin every synthesized class inherits.
const ProvenanceMixin = "ProvenanceFields"

var (
	pascalCase = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
	snakeCase  = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// Class is one synthesized entity class.
type Class struct {
	Name        string   `json:"name" validate:"required,pascalcase"`
	Description string   `json:"description"`
	Mixins      []string `json:"mixins,omitempty"`
	Fields      []string `json:"fields" validate:"required,min=1,dive,required"`
}

// Association is one synthesized relation between two classes.
type Association struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Subject     string `json:"subject" validate:"required"`
	Object      string `json:"object" validate:"required"`
	URI         string `json:"uri,omitempty" validate:"omitempty,uri"`
}

// Specification is the complete synthesized schema.
type Specification struct {
	SchemaName   string        `json:"schema_name" validate:"required,snakecase"`
	Description  string        `json:"description"`
	Classes      []Class       `json:"classes" validate:"required,min=1,max=12,dive"`
	Associations []Association `json:"associations" validate:"max=10,dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("pascalcase", func(fl validator.FieldLevel) bool {
		return IsPascalCase(fl.Field().String())
	})
	_ = v.RegisterValidation("snakecase", func(fl validator.FieldLevel) bool {
		return IsSnakeCase(fl.Field().String())
	})
	return v
}

// IsPascalCase reports whether s matches ^[A-Z][A-Za-z0-9]*$.
func IsPascalCase(s string) bool {
	return pascalCase.MatchString(s)
}

// IsSnakeCase reports whether s matches ^[a-z][a-z0-9_]*$.
func IsSnakeCase(s string) bool {
	return snakeCase.MatchString(s)
}

// Limits bounds the size of a schema. The zero value means the hard caps.
type Limits struct {
	MaxClasses      int
	MaxAssociations int
}

// LimitsFor derives limits from an outcome's constraints.
func LimitsFor(c outcome.Constraints) Limits {
	return Limits{MaxClasses: c.ClassLimit(), MaxAssociations: c.AssociationLimit()}
}

// Validate checks the schema against the hard caps and naming rules.
func (s *Specification) Validate() error {
	return s.ValidateWithin(Limits{})
}

// ValidateWithin checks the schema against the hard caps, naming rules and
// the (possibly stricter) limits. Every violation is reported.
func (s *Specification) ValidateWithin(limits Limits) error {
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

	if limits.MaxClasses > 0 && limits.MaxClasses < outcome.MaxClasses && len(s.Classes) > limits.MaxClasses {
		problems = append(problems, fmt.Sprintf("classes: %d exceeds the limit of %d", len(s.Classes), limits.MaxClasses))
	}
	if limits.MaxAssociations > 0 && limits.MaxAssociations < outcome.MaxAssociations && len(s.Associations) > limits.MaxAssociations {
		problems = append(problems, fmt.Sprintf("associations: %d exceeds the limit of %d", len(s.Associations), limits.MaxAssociations))
	}

	seen := make(map[string]bool, len(s.Classes))
	for _, c := range s.Classes {
		if c.Name == "" {
			continue
		}
		if seen[c.Name] {
			problems = append(problems, fmt.Sprintf("classes: duplicate class %q", c.Name))
		}
		seen[c.Name] = true
	}

	if len(problems) > 0 {
		return &apperrors.ValidationError{Subject: "schema specification", Problems: problems}
	}
	return nil
}

// ApplyDefaults fills in the provenance mixin on classes that list none.
func (s *Specification) ApplyDefaults() {
	for i := range s.Classes {
		if len(s.Classes[i].Mixins) == 0 {
			s.Classes[i].Mixins = []string{ProvenanceMixin}
		}
	}
}

// ClassNames returns class names in declaration order.
func (s *Specification) ClassNames() []string {
	names := make([]string, len(s.Classes))
	for i, c := range s.Classes {
		names[i] = c.Name
	}
	return names
}

// AssociationNames returns association names in declaration order.
func (s *Specification) AssociationNames() []string {
	names := make([]string, len(s.Associations))
	for i, a := range s.Associations {
		names[i] = a.Name
	}
	return names
}

// HasClass reports whether a class with the given name exists.
func (s *Specification) HasClass(name string) bool {
	for _, c := range s.Classes {
		if c.Name == name {
			return true
		}
	}
	return false
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Specification.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "pascalcase":
		return fmt.Sprintf("%s %q must be PascalCase (^[A-Z][A-Za-z0-9]*$)", field, fe.Value())
	case "snakecase":
		return fmt.Sprintf("%s %q must be snake_case (^[a-z][a-z0-9_]*$)", field, fe.Value())
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s has %d entries, at most %s allowed", field, reflect.ValueOf(fe.Value()).Len(), fe.Param())
	case "uri":
		return fmt.Sprintf("%s must be a URI", field)
	default:
		return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
	}
}
