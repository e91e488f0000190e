package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// SupplierOutcomeYAML is a small valid outcome document.
const SupplierOutcomeYAML = `outcome: Supplier risk visibility
context: Procurement wants to see concentration risk.
questions:
  - Which suppliers deliver the most parts?
  - Which critical parts have a single supplier?
required_evidence:
  - name: purchase_orders
    description: Purchase order lines
    required_fields: [po_number, supplier_id, part_number]
target_entities:
  - name: Supplier
  - name: Part
relations:
  - name: supplies
    subject: Supplier
    object: Part
ontology_hints:
  - prefix: schema
    base_uri: https://schema.org/
`

// SupplierSchemaJSON is a schema specification matching SupplierOutcomeYAML.
const SupplierSchemaJSON = `{
  "schema_name": "supplier_risk",
  "description": "Supplier risk schema",
  "classes": [
    {"name": "Supplier", "description": "A supplier", "fields": ["supplier_id", "name"]},
    {"name": "Part", "description": "A part", "fields": ["part_number", "critical"]}
  ],
  "associations": [
    {"name": "supplies", "description": "Supplier supplies part", "subject": "Supplier", "object": "Part"}
  ]
}`

// WriteFile writes content to dir/name, creating parent directories, and
// returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// CreateTempOutcome writes SupplierOutcomeYAML into a temp dir and returns
// its path.
func CreateTempOutcome(t *testing.T) string {
	t.Helper()
	return WriteFile(t, t.TempDir(), "outcome.yaml", SupplierOutcomeYAML)
}

// FakeTool writes an executable shell script named name into dir. The
// script body runs under /bin/sh. Tests using it are skipped on Windows.
func FakeTool(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script tools are not supported on windows")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("failed to write fake tool %s: %v", name, err)
	}
	return path
}
