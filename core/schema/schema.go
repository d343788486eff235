// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

// Package schema validates JSON documents against JSON schemas.
package schema

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
)

// Validator validates JSON documents against a set of schemas identified by their $id.
type Validator struct {
	schemaValidators map[string]*gojsonschema.Schema
}

// ValidationError lists everything that is wrong with a document.
type ValidationError struct {
	SchemaID string
	Details  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document does not match %s: %s", e.SchemaID, strings.Join(e.Details, "; "))
}

// NewValidatorFromFS creates a new Validator using schemas from schemaFS. Json files
// from the root are top level schemas, json files in refs/ are references. The refs
// directory is optional.
func NewValidatorFromFS(schemaFS fs.FS) (*Validator, error) {
	readDir := func(dir string) ([]string, error) {
		files, err := fs.ReadDir(schemaFS, dir)
		if err != nil {
			return nil, err
		}
		var strs []string
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
				continue
			}
			data, err := fs.ReadFile(schemaFS, path.Join(dir, f.Name()))
			if err != nil {
				return nil, fmt.Errorf("cannot read file '%s': %w", f.Name(), err)
			}
			strs = append(strs, string(data))
		}
		return strs, nil
	}

	schemas, err := readDir(".")
	if err != nil {
		return nil, fmt.Errorf("cannot read schemas: %w", err)
	}
	refs, err := readDir("refs")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("cannot read refs: %w", err)
	}
	return NewValidator(schemas, refs)
}

// NewValidator creates a new Validator. Top level schemas cannot reference each
// other; references must be in refs.
func NewValidator(schemas []string, refs []string) (*Validator, error) {
	type schema struct {
		ID string `json:"$id"`
	}
	validator := Validator{schemaValidators: make(map[string]*gojsonschema.Schema)}
	for _, str := range schemas {
		s := schema{}
		if err := json.Unmarshal([]byte(str), &s); err != nil {
			return nil, fmt.Errorf("parse error '%v' in schema: '%s'", err, str)
		}
		if s.ID == "" {
			return nil, fmt.Errorf("schema does not contain $id: '%s'", str)
		}
		sl := gojsonschema.NewSchemaLoader()
		for _, ref := range refs {
			if err := sl.AddSchemas(gojsonschema.NewStringLoader(ref)); err != nil {
				return nil, fmt.Errorf("cannot add ref: %w", err)
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

// ValidateBytes validates a JSON document against schemaID. Invalid documents
// return a *ValidationError.
func (v *Validator) ValidateBytes(document []byte, schemaID string) error {
	return v.validate(gojsonschema.NewBytesLoader(document), schemaID)
}

func (v *Validator) validate(loader gojsonschema.JSONLoader, schemaID string) error {
	schema, ok := v.schemaValidators[schemaID]
	if !ok {
		return fmt.Errorf("there is no schema %s", schemaID)
	}
	result, err := schema.Validate(loader)
	if err != nil {
		return &ValidationError{SchemaID: schemaID, Details: []string{err.Error()}}
	}
	if !result.Valid() {
		verr := &ValidationError{SchemaID: schemaID}
		for _, e := range result.Errors() {
			verr.Details = append(verr.Details, e.String())
		}
		return verr
	}
	return nil
}
