package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `{
	"nodes": [
		{"id": "a1", "type": "action", "position": {"x": 10, "y": 20}, "data": {"id": "a1", "type": "webhook", "title": "Receive", "inputs": {"path": "w1", "secret": "s1"}, "selected": true}},
		{"id": "a2", "type": "action", "position": {"x": 10, "y": 120}, "data": {"id": "a2", "type": "http_request", "title": "Enrich", "inputs": {"url": "https://example.com"}}}
	],
	"edges": [
		{"id": "a1-a2", "source": "a1", "target": "a2", "animated": true}
	],
	"viewport": {"x": 10, "y": 20, "zoom": 1.5}
}`

func TestParse(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(sampleDocument))
	require.NoError(t, err)

	require.Len(t, doc.Nodes, 2)
	require.Len(t, doc.Edges, 1)

	assert.Equal(t, "a1", doc.Nodes[0].ID)
	assert.Equal(t, "Receive", doc.Nodes[0].Data["title"])
	assert.JSONEq(t, `{"x": 10, "y": 20}`, string(doc.Nodes[0].Extra["position"]))
	assert.Equal(t, Edge{ID: "a1-a2", Source: "a1", Target: "a2", Extra: map[string]json.RawMessage{"animated": json.RawMessage("true")}}, doc.Edges[0])
	assert.Equal(t, []string{"a1", "a2"}, doc.NodeIDs())
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `{"nodes": [`},
		{name: "not an object", raw: `[1, 2]`},
		{name: "missing edges", raw: `{"nodes": []}`},
		{name: "missing nodes", raw: `{"edges": []}`},
		{name: "node without id", raw: `{"nodes": [{"data": {}}], "edges": []}`},
		{name: "node without data", raw: `{"nodes": [{"id": "a"}], "edges": []}`},
		{name: "node data not object", raw: `{"nodes": [{"id": "a", "data": 3}], "edges": []}`},
		{name: "edge without target", raw: `{"nodes": [], "edges": [{"id": "a-", "source": "a"}]}`},
		{name: "edge source not string", raw: `{"nodes": [], "edges": [{"id": "x", "source": 1, "target": "b"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := Parse([]byte(tt.raw))
			require.ErrorIs(t, err, ErrMalformedGraph)
			assert.Nil(t, doc)
		})
	}
}

func TestParseOptional(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "  ", "null"} {
		doc, err := ParseOptional([]byte(raw))
		require.NoError(t, err)
		assert.Nil(t, doc)
	}

	doc, err := ParseOptional([]byte(sampleDocument))
	require.NoError(t, err)
	assert.Len(t, doc.Nodes, 2)
}

func TestSerialize_RoundTrip(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(sampleDocument))
	require.NoError(t, err)

	raw, err := Serialize(doc)
	require.NoError(t, err)
	assert.JSONEq(t, sampleDocument, string(raw))
	assert.JSONEq(t, `{"x": 10, "y": 20, "zoom": 1.5}`, string(doc.Extra["viewport"]))

	raw, err = Serialize(nil)
	require.NoError(t, err)
	assert.Nil(t, raw)

	raw, err = Serialize(&Document{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes": [], "edges": []}`, string(raw))
}

func TestDocument_Validate(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(sampleDocument))
	require.NoError(t, err)
	require.NoError(t, doc.Validate())

	badEdge := doc.Clone()
	badEdge.Edges[0].ID = "edge-1"
	require.ErrorIs(t, badEdge.Validate(), ErrMalformedGraph)

	dupNode := doc.Clone()
	dupNode.Nodes[1].ID = "a1"
	require.ErrorIs(t, dupNode.Validate(), ErrMalformedGraph)
}

func TestDocument_Unresolved(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(sampleDocument))
	require.NoError(t, err)

	assert.Empty(t, doc.Unresolved(map[string]struct{}{"a1": {}, "a2": {}}))
	assert.Equal(t, []string{"a2"}, doc.Unresolved(map[string]struct{}{"a1": {}}))
	assert.Equal(t, []string{"a1", "a2"}, doc.Unresolved(nil))
}

func TestDocument_Clone(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(sampleDocument))
	require.NoError(t, err)

	clone := doc.Clone()
	clone.Nodes[0].Data["inputs"].(map[string]any)["path"] = "changed"
	clone.Nodes[0].Extra["position"][1] = 'X'
	clone.Edges[0].Source = "changed"
	clone.Extra["viewport"][1] = 'X'

	assert.Equal(t, "w1", doc.Nodes[0].Data["inputs"].(map[string]any)["path"])
	assert.JSONEq(t, `{"x": 10, "y": 20}`, string(doc.Nodes[0].Extra["position"]))
	assert.Equal(t, "a1", doc.Edges[0].Source)
	assert.JSONEq(t, `{"x": 10, "y": 20, "zoom": 1.5}`, string(doc.Extra["viewport"]))

	assert.Nil(t, (*Document)(nil).Clone())
}
