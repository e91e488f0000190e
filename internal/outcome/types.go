// Package outcome defines the OutcomeSpecification that drives schema
// synthesis, and loads and validates it from YAML or JSON documents.
package outcome

// Hard caps on synthesized schema size. Constraints may tighten but never
// loosen them.
const (
	MaxClasses      = 12
	MaxAssociations = 10
)

// Specification describes a desired business outcome: the questions it must
// answer, the evidence it needs, and hints for aligning the synthesized
// schema with external vocabularies. It is read-only after Load.
type Specification struct {
	Outcome          string         `yaml:"outcome" json:"outcome" validate:"required"`
	Context          string         `yaml:"context" json:"context"`
	Questions        []string       `yaml:"questions" json:"questions" validate:"required,min=1,dive,required"`
	RequiredEvidence []Descriptor   `yaml:"required_evidence" json:"required_evidence" validate:"dive"`
	TargetEntities   []Descriptor   `yaml:"target_entities" json:"target_entities" validate:"dive"`
	Relations        []Relation     `yaml:"relations" json:"relations" validate:"dive"`
	OntologyHints    []OntologyHint `yaml:"ontology_hints" json:"ontology_hints" validate:"dive"`
	Constraints      Constraints    `yaml:"constraints" json:"constraints"`
}

// Descriptor names a piece of evidence or a target entity along with the
// fields it must carry.
type Descriptor struct {
	Name           string   `yaml:"name" json:"name" validate:"required"`
	Description    string   `yaml:"description" json:"description"`
	RequiredFields []string `yaml:"required_fields" json:"required_fields" validate:"unique,dive,required"`
}

// Relation is a named directed relation between two entity names. Subject and
// Object are not checked against TargetEntities.
type Relation struct {
	Name        string `yaml:"name" json:"name" validate:"required"`
	Subject     string `yaml:"subject" json:"subject" validate:"required"`
	Object      string `yaml:"object" json:"object" validate:"required"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// OntologyHint points at an external vocabulary the schema should align with.
type OntologyHint struct {
	Prefix  string   `yaml:"prefix" json:"prefix" validate:"required"`
	BaseURI string   `yaml:"base_uri" json:"base_uri" validate:"required,uri"`
	Include []string `yaml:"include,omitempty" json:"include,omitempty"`
}

// Constraints tighten the synthesis limits and carry free-form guidance.
// Zero values mean "use the hard cap".
type Constraints struct {
	MaxClasses      int      `yaml:"max_classes" json:"max_classes" validate:"min=0,max=12"`
	MaxAssociations int      `yaml:"max_associations" json:"max_associations" validate:"min=0,max=10"`
	Notes           []string `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// ClassLimit returns the effective class cap.
func (c Constraints) ClassLimit() int {
	if c.MaxClasses <= 0 || c.MaxClasses > MaxClasses {
		return MaxClasses
	}
	return c.MaxClasses
}

// AssociationLimit returns the effective association cap.
func (c Constraints) AssociationLimit() int {
	if c.MaxAssociations <= 0 || c.MaxAssociations > MaxAssociations {
		return MaxAssociations
	}
	return c.MaxAssociations
}
