package config

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationError collects every schema violation found in a document,
// rather than surfacing only the first one: config mistakes are easiest to
// fix in one pass (spec.md §4.7(d): "report every violation, not just the
// first").
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed with %d error(s):\n  %s", len(e.Errors), strings.Join(e.Errors, "\n  "))
}

func compile(schemaJSON []byte, resourceName string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource(resourceName, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("load schema %s: %w", resourceName, err)
	}
	schema, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", resourceName, err)
	}
	return schema, nil
}

// Validate checks raw (the document yaml.Unmarshal produced) against the
// ambient Config schema. It does not validate per-job sections; those are
// validated independently against each job's own declared schema via
// ValidateJobConfig, since jobs are registered at runtime and the ambient
// schema allows additional properties through untouched.
func Validate(raw map[string]any) error {
	schemaJSON, err := SchemaJSON()
	if err != nil {
		return err
	}
	schema, err := compile(schemaJSON, "pcswitcher-config.json")
	if err != nil {
		return err
	}

	if err := schema.Validate(raw); err != nil {
		return &ValidationError{Errors: flatten(err)}
	}
	return nil
}

// ValidateJobConfig checks a single job's config section against the
// JSON Schema document that job declares, mirroring
// original_source/jobs/base.py's Job.CONFIG_SCHEMA contract.
func ValidateJobConfig(jobName string, schemaJSON []byte, section map[string]any) error {
	schema, err := compile(schemaJSON, jobName+".json")
	if err != nil {
		return fmt.Errorf("job %s: %w", jobName, err)
	}
	if err := schema.Validate(section); err != nil {
		errs := flatten(err)
		for i, e := range errs {
			errs[i] = fmt.Sprintf("job %s: %s", jobName, e)
		}
		return &ValidationError{Errors: errs}
	}
	return nil
}

// flatten walks a jsonschema.ValidationError's Causes tree (one node per
// keyword that failed) into a flat list of human-readable messages.
func flatten(err error) []string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{err.Error()}
	}

	var out []string
	var walk func(*jsonschema.ValidationError)
	walk = func(v *jsonschema.ValidationError) {
		if len(v.Causes) == 0 {
			out = append(out, fmt.Sprintf("%s: %s", v.InstanceLocation, v.Message))
			return
		}
		for _, c := range v.Causes {
			walk(c)
		}
	}
	walk(ve)
	return out
}
