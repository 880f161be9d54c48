// Package pipeline loads the engine pipeline template and injects the
// per-job source reference into it.
package pipeline

import (
	"bytes"
	"encoding/json"
	"os"

	"mediabridge/internal/pkg/errors"
)

// Document is a pipeline graph: node id -> node definition.
type Document map[string]any

// Load reads and parses the template at path. Numbers are kept as
// json.Number so seeds larger than 2^53 reach the engine unchanged.
func Load(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeValidation, "pipeline.load", "failed to read pipeline template")
	}
	return Parse(raw)
}

// Parse decodes a pipeline template from raw JSON.
func Parse(raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeValidation, "pipeline.parse", "invalid pipeline template")
	}
	if doc == nil {
		return nil, errors.New(errors.CodeValidation, "pipeline template is empty")
	}
	return doc, nil
}

// Inject sets nodes[nodeID].inputs[field] = value, overwriting whatever is
// there. The field itself need not exist; the node and its inputs object must.
func Inject(doc Document, nodeID, field, value string) error {
	node, ok := doc[nodeID].(map[string]any)
	if !ok {
		return errors.Validationf("pipeline has no node %q", nodeID).WithField("node", nodeID)
	}
	inputs, ok := node["inputs"].(map[string]any)
	if !ok {
		return errors.Validationf("pipeline node %q has no inputs", nodeID).WithField("node", nodeID)
	}
	inputs[field] = value
	return nil
}

// SourceOf returns the value currently held at nodes[nodeID].inputs[field].
func SourceOf(doc Document, nodeID, field string) (string, bool) {
	node, ok := doc[nodeID].(map[string]any)
	if !ok {
		return "", false
	}
	inputs, ok := node["inputs"].(map[string]any)
	if !ok {
		return "", false
	}
	v, ok := inputs[field].(string)
	return v, ok
}
