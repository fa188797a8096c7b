package graph

// Remap returns a copy of d in which every node id, every edge source and target, and
// every string inside node data "id" and "inputs" that is a key of mapping is replaced
// by its mapped value. Edge ids are recomputed from the new endpoints.
//
// Node ids and edge endpoints absent from mapping are kept verbatim and returned in
// unmapped, in order of first appearance. d is not modified.
func Remap(d *Document, mapping map[string]string) (out *Document, unmapped []string) {
	if d == nil {
		return nil, nil
	}

	out = d.Clone()
	seen := make(map[string]struct{})

	lookup := func(id string) string {
		if mapped, ok := mapping[id]; ok {
			return mapped
		}

		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unmapped = append(unmapped, id)
		}

		return id
	}

	for i := range out.Nodes {
		node := &out.Nodes[i]
		node.ID = lookup(node.ID)

		if node.Data == nil {
			continue
		}

		if id, ok := node.Data["id"].(string); ok {
			if mapped, found := mapping[id]; found {
				node.Data["id"] = mapped
			}
		}

		if inputs, ok := node.Data["inputs"]; ok {
			node.Data["inputs"] = remapValue(inputs, mapping)
		}
	}

	for i := range out.Edges {
		edge := &out.Edges[i]
		edge.Source = lookup(edge.Source)
		edge.Target = lookup(edge.Target)
		edge.ID = EdgeID(edge.Source, edge.Target)
	}

	return out, unmapped
}

// remapValue rewrites string leaves equal to a mapped id. Containers are already deep
// copies, so they are rewritten in place.
func remapValue(v any, mapping map[string]string) any {
	switch typed := v.(type) {
	case string:
		if mapped, ok := mapping[typed]; ok {
			return mapped
		}

		return typed
	case map[string]any:
		for k, item := range typed {
			typed[k] = remapValue(item, mapping)
		}

		return typed
	case []any:
		for i, item := range typed {
			typed[i] = remapValue(item, mapping)
		}

		return typed
	default:
		return typed
	}
}
