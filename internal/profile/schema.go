package profile

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// Validate checks a YAML profile document against the embedded schema. It
// reports every violation, not just the first.
func Validate(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing profile YAML: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("profile document is empty")
	}

	// The schema loader works on JSON, so round-trip the decoded document.
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("converting profile to JSON: %w", err)
	}

	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compiling profile schema: %w", err)
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(docJSON))
	if err != nil {
		return fmt.Errorf("validating profile: %w", err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return fmt.Errorf("invalid profile:\n- %s", strings.Join(errs, "\n- "))
}
