// Package graph models the node/edge document embedded in a workflow that describes
// how its actions are wired.
package graph

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Document is the typed form of a workflow's graph. Top-level fields other than nodes
// and edges (viewport...) are kept in Extra.
type Document struct {
	Nodes []Node
	Edges []Edge
	Extra map[string]json.RawMessage
}

// Node is one action placed on the canvas. Fields other than id and data
// (position, type, dimensions...) are kept in Extra so they survive a round trip.
type Node struct {
	ID    string
	Data  map[string]any
	Extra map[string]json.RawMessage
}

// Edge wires the output of Source into Target. ID must be EdgeID(Source, Target).
type Edge struct {
	ID     string
	Source string
	Target string
	Extra  map[string]json.RawMessage
}

// EdgeID returns the canonical id of the edge from source to target.
func EdgeID(source, target string) string {
	return source + "-" + target
}

func (d Document) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(d.Extra)+2)
	for k, v := range d.Extra {
		fields[k] = v
	}

	fields["nodes"] = d.Nodes
	fields["edges"] = d.Edges

	return json.Marshal(fields)
}

func (d *Document) UnmarshalJSON(raw []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}

	if err := unmarshalField(fields, "nodes", &d.Nodes); err != nil {
		return err
	}

	if err := unmarshalField(fields, "edges", &d.Edges); err != nil {
		return err
	}

	d.Extra = extra(fields, "nodes", "edges")

	return nil
}

func (n Node) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(n.Extra)+2)
	for k, v := range n.Extra {
		fields[k] = v
	}

	data := n.Data
	if data == nil {
		data = map[string]any{}
	}

	fields["id"] = n.ID
	fields["data"] = data

	return json.Marshal(fields)
}

func (n *Node) UnmarshalJSON(raw []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}

	if err := unmarshalField(fields, "id", &n.ID); err != nil {
		return err
	}

	if err := unmarshalField(fields, "data", &n.Data); err != nil {
		return err
	}

	n.Extra = extra(fields, "id", "data")

	return nil
}

func (e Edge) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(e.Extra)+3)
	for k, v := range e.Extra {
		fields[k] = v
	}

	fields["id"] = e.ID
	fields["source"] = e.Source
	fields["target"] = e.Target

	return json.Marshal(fields)
}

func (e *Edge) UnmarshalJSON(raw []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}

	for key, dest := range map[string]*string{"id": &e.ID, "source": &e.Source, "target": &e.Target} {
		if err := unmarshalField(fields, key, dest); err != nil {
			return err
		}
	}

	e.Extra = extra(fields, "id", "source", "target")

	return nil
}

func unmarshalField(fields map[string]json.RawMessage, key string, dest any) error {
	raw, ok := fields[key]
	if !ok {
		return nil
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}

	return nil
}

func extra(fields map[string]json.RawMessage, known ...string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage)

	for k, v := range fields {
		if slices.Contains(known, k) {
			continue
		}

		out[k] = slices.Clone(v)
	}

	if len(out) == 0 {
		return nil
	}

	return out
}

// NodeIDs returns the ids of all nodes in document order.
func (d *Document) NodeIDs() []string {
	ids := make([]string, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		ids = append(ids, n.ID)
	}

	return ids
}

// Unresolved returns, in order of first appearance, every node id or edge endpoint
// that is not in known. A document with no unresolved references is closed.
func (d *Document) Unresolved(known map[string]struct{}) []string {
	var missing []string

	seen := make(map[string]struct{})

	check := func(id string) {
		if _, ok := known[id]; ok {
			return
		}

		if _, ok := seen[id]; ok {
			return
		}

		seen[id] = struct{}{}
		missing = append(missing, id)
	}

	for _, n := range d.Nodes {
		check(n.ID)
	}

	for _, e := range d.Edges {
		check(e.Source)
		check(e.Target)
	}

	return missing
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}

	out := &Document{
		Nodes: make([]Node, len(d.Nodes)),
		Edges: make([]Edge, len(d.Edges)),
		Extra: cloneRaw(d.Extra),
	}

	for i, n := range d.Nodes {
		out.Nodes[i] = Node{ID: n.ID, Data: CloneMap(n.Data), Extra: cloneRaw(n.Extra)}
	}

	for i, e := range d.Edges {
		out.Edges[i] = Edge{ID: e.ID, Source: e.Source, Target: e.Target, Extra: cloneRaw(e.Extra)}
	}

	return out
}

// CloneMap deep copies a decoded JSON object.
func CloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}

	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}

	return out
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return CloneMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}

		return out
	default:
		return typed
	}
}

func cloneRaw(in map[string]json.RawMessage) map[string]json.RawMessage {
	if in == nil {
		return nil
	}

	out := maps.Clone(in)
	for k, v := range out {
		out[k] = slices.Clone(v)
	}

	return out
}
