package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrMalformedGraph is returned when a graph document is not valid JSON or does not
// match the document schema.
var ErrMalformedGraph = errors.New("malformed graph document")

const documentSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["nodes", "edges"],
	"properties": {
		"nodes": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "data"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"data": {"type": "object"}
				}
			}
		},
		"edges": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "source", "target"],
				"properties": {
					"id": {"type": "string"},
					"source": {"type": "string", "minLength": 1},
					"target": {"type": "string", "minLength": 1}
				}
			}
		}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// Parse validates raw against the document schema and decodes it.
func Parse(raw []byte) (*Document, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedGraph, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrMalformedGraph, strings.Join(details, "; "))
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedGraph, err)
	}

	return &doc, nil
}

// ParseOptional parses raw, mapping an absent document (empty or JSON null) to nil.
func ParseOptional(raw []byte) (*Document, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	return Parse(raw)
}

// Serialize encodes d. A nil document serializes to nil.
func Serialize(d *Document) ([]byte, error) {
	if d == nil {
		return nil, nil
	}

	if d.Nodes == nil || d.Edges == nil {
		normalized := *d
		if normalized.Nodes == nil {
			normalized.Nodes = []Node{}
		}

		if normalized.Edges == nil {
			normalized.Edges = []Edge{}
		}

		d = &normalized
	}

	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize graph document: %w", err)
	}

	return raw, nil
}

// Validate checks the invariants a stored document must hold beyond its schema:
// node ids are unique and every edge id equals EdgeID(source, target).
func (d *Document) Validate() error {
	seen := make(map[string]struct{}, len(d.Nodes))

	for _, n := range d.Nodes {
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %q", ErrMalformedGraph, n.ID)
		}

		seen[n.ID] = struct{}{}
	}

	for _, e := range d.Edges {
		if want := EdgeID(e.Source, e.Target); e.ID != want {
			return fmt.Errorf("%w: edge id %q must be %q", ErrMalformedGraph, e.ID, want)
		}
	}

	return nil
}
