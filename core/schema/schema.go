// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package schema

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/xeipuuv/gojsonschema"
)

// Validator is a utility to validate JSON documents against a given schema
type Validator struct {
	schemaValidators map[string]*gojsonschema.Schema
}

// FieldErrors are validation messages by field
type FieldErrors map[string][]string

// Add adds a message for field
func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

// Error implements error
func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	var b strings.Builder
	b.WriteString("the document is not valid:")
	for _, f := range fields {
		fmt.Fprintf(&b, " %s: %s;", f, strings.Join(fe[f], ", "))
	}
	return b.String()
}

// NewValidatorFromFS creates a new Validator using schemas from schemaFS. Json files
// from / will be used as toplevel schemas, while json files in /refs/ will be used
// as references. The refs directory is optional.
func NewValidatorFromFS(schemaFS fs.FS) (*Validator, error) {

	readDir := func(dir string) ([]string, error) {
		var strs []string
		files, err := fs.ReadDir(schemaFS, dir)
		if err != nil {
			return nil, fmt.Errorf("cannot read dir %w", err)
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
				continue
			}
			str, err := fs.ReadFile(schemaFS, path.Join(dir, f.Name()))
			if err != nil {
				return nil, fmt.Errorf("cannot read file '%s' %w", f.Name(), err)
			}
			strs = append(strs, string(str))
		}
		return strs, nil
	}

	schemasString, err := readDir(".")
	if err != nil {
		return nil, err
	}

	refsString, err := readDir("refs")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return NewValidator(schemasString, refsString)
}

// NewValidator creates a new Validator using schemas for the top level JSON schemas and refs
// for refs that may be referenced in the top level schemas. Top level schemas cannot reference each
// others. If a reference is mentioned, it can only be in the list of refs
func NewValidator(schemas []string, refs []string) (*Validator, error) {
	type schema struct {
		ID string `json:"$id"`
	}
	validator := Validator{schemaValidators: make(map[string]*gojsonschema.Schema)}
	for _, str := range schemas {
		s := schema{}
		err := json.Unmarshal([]byte(str), &s)
		if err != nil {
			return nil, fmt.Errorf("parse error '%v' in schema: '%s'", err, str)
		}
		if s.ID == "" {
			return nil, fmt.Errorf("schema does not contain $id: '%s'", str)
		}
		sl := gojsonschema.NewSchemaLoader()

		for _, ref := range refs {
			if err := sl.AddSchemas(gojsonschema.NewStringLoader(ref)); err != nil {
				return nil, fmt.Errorf("cannot add ref to %s: %w", s.ID, err)
			}
		}
		compiled, err := sl.Compile(gojsonschema.NewStringLoader(str))
		if err != nil {
			return nil, fmt.Errorf("cannot compile schema %s: %w", s.ID, err)
		}
		validator.schemaValidators[s.ID] = compiled
	}

	return &validator, nil
}

// HasSchema returns true if schemaID is known
func (v *Validator) HasSchema(schemaID string) bool {
	_, ok := v.schemaValidators[schemaID]
	return ok
}

// ValidateString validates the given json against schemaID. If no error is returned, then the
// passed json is valid. An invalid document returns FieldErrors.
func (v *Validator) ValidateString(json, schemaID string) error {
	fe, err := v.validate(gojsonschema.NewStringLoader(json), schemaID)
	if err != nil {
		return err
	}
	if fe != nil {
		return fe
	}
	return nil
}

// ValidateFields validates document against schemaID and returns the messages by
// field, or nil if the document is valid. The error is only set if validation
// could not run at all.
func (v *Validator) ValidateFields(document interface{}, schemaID string) (FieldErrors, error) {
	return v.validate(gojsonschema.NewGoLoader(document), schemaID)
}

func (v *Validator) validate(loader gojsonschema.JSONLoader, schemaID string) (FieldErrors, error) {

	schema, ok := v.schemaValidators[schemaID]
	if !ok {
		return nil, fmt.Errorf("there is no schema %s", schemaID)
	}

	result, err := schema.Validate(loader)
	if err != nil {
		return nil, fmt.Errorf("cannot validate with schema %s: %w", schemaID, err)
	}
	if result.Valid() {
		return nil, nil
	}

	fe := FieldErrors{}
	for _, e := range result.Errors() {
		field := e.Field()
		if property, ok := e.Details()["property"].(string); ok && e.Type() == "required" {
			if field == gojsonschema.STRING_ROOT_SCHEMA_PROPERTY {
				field = property
			} else {
				field = field + "." + property
			}
		}
		if field == gojsonschema.STRING_ROOT_SCHEMA_PROPERTY {
			field = "record"
		}
		fe.Add(field, message(field, e))
	}
	return fe, nil
}

func message(field string, e gojsonschema.ResultError) string {
	name := strings.ReplaceAll(field, "_", " ")
	details := e.Details()
	switch e.Type() {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "string_gte":
		return fmt.Sprintf("The %s must be at least %v characters.", name, details["min"])
	case "string_lte":
		return fmt.Sprintf("The %s may not be greater than %v characters.", name, details["max"])
	case "format":
		if details["format"] == "email" {
			return fmt.Sprintf("The %s must be a valid email address.", name)
		}
		return fmt.Sprintf("The %s format is invalid.", name)
	case "invalid_type":
		return fmt.Sprintf("The %s must be of type %v.", name, details["expected"])
	}
	return e.Description()
}
