package question

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed dataset.schema.json
var datasetSchemaJSON string

const datasetSchemaURL = "https://rageval.dev/schemas/dataset.schema.json"

var (
	datasetSchemaOnce sync.Once
	datasetSchema     *jsonschema.Schema
	datasetSchemaErr  error
)

// compiledSchema compiles the embedded dataset schema once.
func compiledSchema() (*jsonschema.Schema, error) {
	datasetSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(datasetSchemaURL, strings.NewReader(datasetSchemaJSON)); err != nil {
			datasetSchemaErr = fmt.Errorf("add dataset schema: %w", err)
			return
		}
		datasetSchema, datasetSchemaErr = compiler.Compile(datasetSchemaURL)
		if datasetSchemaErr != nil {
			datasetSchemaErr = fmt.Errorf("compile dataset schema: %w", datasetSchemaErr)
		}
	})
	return datasetSchema, datasetSchemaErr
}

// validateSchema checks a decoded JSON document against the dataset schema.
func validateSchema(doc any, source string) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		return &ValidationError{Source: source, Issues: []Issue{{Field: "schema", Message: err.Error()}}}
	}
	return nil
}
