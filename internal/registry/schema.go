package registry

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/xdm-project/xdm-updater/internal/remote"
)

//go:embed schema/repository.schema.json
var schemaBytes []byte

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

// getSchema compiles the embedded listing schema once and returns it.
func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("repository.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("repository.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compiling schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// parseListing validates body against the listing schema and decodes it.
// Shape problems are reported as *remote.FormatError.
func parseListing(url string, body []byte) (*listing, error) {
	schema, err := getSchema()
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return nil, &remote.FormatError{URL: url, Err: err}
	}
	if err := schema.Validate(inst); err != nil {
		return nil, &remote.FormatError{URL: url, Err: err}
	}

	var l listing
	if err := json.Unmarshal(body, &l); err != nil {
		return nil, &remote.FormatError{URL: url, Err: err}
	}
	return &l, nil
}
