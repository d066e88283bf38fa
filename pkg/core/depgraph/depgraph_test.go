// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package depgraph_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/depgraph"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixture accumulates records and edges, so a test can describe its
// graph shape declaratively.
type fixture struct {
	records []*model.SchemaRecord
	edges   []*model.DependencyEdge
	ids     map[string]uuid.UUID
}

func newFixture() *fixture {
	return &fixture{ids: map[string]uuid.UUID{}}
}

func (f *fixture) record(modelID string) uuid.UUID {
	id := uuid.New()
	f.ids[modelID] = id
	f.records = append(f.records, &model.SchemaRecord{
		ID:      id,
		ModelID: modelID,
		Version: "1.0.0",
		Status:  model.StatusActive,
	})
	return id
}

func (f *fixture) edge(from, to string) {
	toID := f.ids[to]
	f.edges = append(f.edges, &model.DependencyEdge{
		ID:           uuid.New(),
		FromSchemaID: f.ids[from],
		ToSchemaID:   &toID,
		ToModelID:    to,
		Type:         model.DependencyForeignKey,
	})
}

func (f *fixture) unboundEdge(from, toModel string) {
	f.edges = append(f.edges, &model.DependencyEdge{
		ID:           uuid.New(),
		FromSchemaID: f.ids[from],
		ToModelID:    toModel,
		Type:         model.DependencyReference,
	})
}

func (f *fixture) graph() *depgraph.Graph {
	return depgraph.New(f.records, f.edges)
}

func (f *fixture) allIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(f.records))
	for _, r := range f.records {
		ids = append(ids, r.ID)
	}
	return ids
}

// blogFixture builds the User <- Post <- Comment shape, with Comment
// also depending on User directly.
func blogFixture() *fixture {
	f := newFixture()
	f.record("User")
	f.record("Post")
	f.record("Comment")
	f.edge("Post", "User")
	f.edge("Comment", "Post")
	f.edge("Comment", "User")
	return f
}

func modelIDs(g *depgraph.Graph, ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		n, _ := g.Node(id)
		out = append(out, n.ModelID)
	}
	return out
}

func TestExecutionOrderBlogShape(t *testing.T) {
	f := blogFixture()
	g := f.graph()

	order, err := g.ExecutionOrder(f.allIDs())
	require.NoError(t, err)
	assert.Equal(
		t, []string{"User", "Post", "Comment"}, modelIDs(g, order),
		"dependencies must precede dependents",
	)
}

func TestExecutionOrderIndependentSchemasSortByModelID(t *testing.T) {
	f := newFixture()
	f.record("Zebra")
	f.record("Alpha")
	f.record("Mango")

	g := f.graph()
	order, err := g.ExecutionOrder(f.allIDs())
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Mango", "Zebra"}, modelIDs(g, order))
}

func TestExecutionOrderSubset(t *testing.T) {
	f := blogFixture()
	g := f.graph()

	// Restricting to Post and Comment leaves the User edges out of the
	// induced subgraph, but the Comment->Post edge still constrains it.
	order, err := g.ExecutionOrder(
		[]uuid.UUID{f.ids["Comment"], f.ids["Post"]},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"Post", "Comment"}, modelIDs(g, order))
}

func TestExecutionOrderCycle(t *testing.T) {
	f := newFixture()
	f.record("A")
	f.record("B")
	f.record("C")
	f.record("Solo")
	f.edge("A", "B")
	f.edge("B", "C")
	f.edge("C", "A")

	g := f.graph()
	_, err := g.ExecutionOrder(f.allIDs())
	require.Error(t, err)

	var cyc *cerr.CircularDependencyError
	require.ErrorAs(t, err, &cyc)
	assert.Equal(
		t, []string{"A", "B", "C"}, cyc.Residual,
		"only the unconsumable models are named, sorted",
	)
}

func TestExecutionOrderUnknownSchema(t *testing.T) {
	g := blogFixture().graph()
	_, err := g.ExecutionOrder([]uuid.UUID{uuid.New()})
	var nf *cerr.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestExecutionOrderIgnoresUnboundEdges(t *testing.T) {
	f := newFixture()
	f.record("Order")
	f.unboundEdge("Order", "Customer")

	g := f.graph()
	order, err := g.ExecutionOrder(f.allIDs())
	require.NoError(t, err)
	assert.Len(t, order, 1)
}

func TestWouldCycle(t *testing.T) {
	f := blogFixture()
	g := f.graph()

	a := assert.New(t)
	a.True(
		g.WouldCycle(f.ids["User"], f.ids["Comment"]),
		"User->Comment closes the Comment->User loop",
	)
	a.True(g.WouldCycle(f.ids["User"], f.ids["Post"]))
	a.True(g.WouldCycle(f.ids["Post"], f.ids["Post"]), "self loop")
	a.False(g.WouldCycle(f.ids["Comment"], f.ids["User"]))
	a.False(g.WouldCycle(f.ids["Post"], f.ids["User"]))
}

func TestChain(t *testing.T) {
	f := blogFixture()
	g := f.graph()

	t.Run("full walk", func(t *testing.T) {
		chain, err := g.Chain(f.ids["Comment"], 0, false)
		require.NoError(t, err)
		assert.Equal(t, depgraph.DefaultMaxDepth, chain.MaxDepth)
		assert.False(t, chain.Truncated)

		require.Len(t, chain.Nodes, 3)
		assert.Equal(t, "Comment", chain.Nodes[0].ModelID)
		assert.Equal(t, 0, chain.Nodes[0].Depth)
		assert.Equal(t, "Post", chain.Nodes[1].ModelID)
		assert.Equal(t, 1, chain.Nodes[1].Depth)
		assert.Equal(t, "User", chain.Nodes[2].ModelID)
		assert.Equal(
			t, 1, chain.Nodes[2].Depth,
			"the direct Comment->User edge wins over the path via Post",
		)
		assert.Nil(t, chain.Nodes[0].Edges)
	})

	t.Run("with details", func(t *testing.T) {
		chain, err := g.Chain(f.ids["Comment"], 0, true)
		require.NoError(t, err)
		assert.Len(t, chain.Nodes[0].Edges, 2)
	})

	t.Run("truncated", func(t *testing.T) {
		lf := newFixture()
		lf.record("A")
		lf.record("B")
		lf.record("C")
		lf.edge("A", "B")
		lf.edge("B", "C")

		chain, err := lf.graph().Chain(lf.ids["A"], 1, false)
		require.NoError(t, err)
		assert.True(t, chain.Truncated, "C sits beyond the depth cap")
		require.Len(t, chain.Nodes, 2)
		for _, n := range chain.Nodes {
			assert.LessOrEqual(t, n.Depth, 1)
		}
	})

	t.Run("unknown root", func(t *testing.T) {
		_, err := g.Chain(uuid.New(), 0, false)
		var nf *cerr.NotFoundError
		require.ErrorAs(t, err, &nf)
	})
}

func TestDependents(t *testing.T) {
	f := blogFixture()
	g := f.graph()

	t.Run("direct", func(t *testing.T) {
		deps, err := g.Dependents(f.ids["User"], false, 0)
		require.NoError(t, err)
		assert.Equal(
			t, []string{"Comment", "Post"},
			modelIDsOf(deps),
			"direct dependents only, model_id ascending",
		)
	})

	t.Run("recursive", func(t *testing.T) {
		deps, err := g.Dependents(f.ids["Post"], true, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"Comment"}, modelIDsOf(deps))
	})

	t.Run("leaf", func(t *testing.T) {
		deps, err := g.Dependents(f.ids["Comment"], true, 0)
		require.NoError(t, err)
		assert.Empty(t, deps)
	})
}

func modelIDsOf(nodes []depgraph.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ModelID)
	}
	return out
}

func TestCanDelete(t *testing.T) {
	f := blogFixture()
	g := f.graph()

	t.Run("blocked", func(t *testing.T) {
		d, err := g.CanDelete(f.ids["User"])
		require.NoError(t, err)
		assert.False(t, d.CanDelete)
		assert.Contains(t, d.Reason, "2 dependent schema(s)")
		assert.Len(t, d.Blockers, 2)
	})

	t.Run("free", func(t *testing.T) {
		d, err := g.CanDelete(f.ids["Comment"])
		require.NoError(t, err)
		assert.True(t, d.CanDelete)
		assert.Empty(t, d.Blockers)
	})
}

func TestValidate(t *testing.T) {
	t.Run("healthy graph", func(t *testing.T) {
		f := blogFixture()
		report := f.graph().Validate()
		assert.True(t, report.Valid)
		assert.Len(t, report.ExecutionOrder, 3)
		assert.Empty(t, report.Cycle)
	})

	t.Run("cycle", func(t *testing.T) {
		f := newFixture()
		f.record("A")
		f.record("B")
		f.edge("A", "B")
		f.edge("B", "A")
		report := f.graph().Validate()
		assert.False(t, report.Valid)
		assert.Equal(t, []string{"A", "B"}, report.Cycle)
		assert.Empty(t, report.ExecutionOrder)
	})

	t.Run("unresolved edge", func(t *testing.T) {
		f := newFixture()
		f.record("Order")
		f.unboundEdge("Order", "Customer")
		report := f.graph().Validate()
		assert.False(t, report.Valid)
		require.Len(t, report.Unresolved, 1)
		assert.Equal(t, "Customer", report.Unresolved[0].ToModelID)
	})

	t.Run("edge into inactive record", func(t *testing.T) {
		f := newFixture()
		f.record("User")
		f.record("Post")
		f.edge("Post", "User")
		f.records[0].Status = model.StatusDeprecated
		report := f.graph().Validate()
		assert.False(t, report.Valid)
		assert.Len(t, report.Inactive, 1)
	})
}

func TestStats(t *testing.T) {
	t.Run("blog shape", func(t *testing.T) {
		s := blogFixture().graph().Stats()
		assert.Equal(t, 3, s.TotalSchemas)
		assert.Equal(t, 3, s.TotalEdges)
		assert.InDelta(t, 1.0, s.AvgDependencies, 1e-9)
		require.NotNil(t, s.MostDependent)
		assert.Equal(t, "Comment", s.MostDependent.ModelID)
		assert.Equal(t, 2, s.MostDependent.Degree)
		require.NotNil(t, s.MostDependedOn)
		assert.Equal(t, "User", s.MostDependedOn.ModelID)
		assert.Equal(t, 2, s.MostDependedOn.Degree)
	})

	t.Run("degree ties break by model_id", func(t *testing.T) {
		f := newFixture()
		f.record("Beta")
		f.record("Alpha")
		f.record("Target")
		f.edge("Beta", "Target")
		f.edge("Alpha", "Target")
		s := f.graph().Stats()
		assert.Equal(t, "Alpha", s.MostDependent.ModelID)
	})

	t.Run("empty graph", func(t *testing.T) {
		s := newFixture().graph().Stats()
		assert.Zero(t, s.TotalSchemas)
		assert.Zero(t, s.AvgDependencies)
		assert.Nil(t, s.MostDependent)
		assert.Nil(t, s.MostDependedOn)
	})
}

func TestNewDropsEdgesOfUnknownRecords(t *testing.T) {
	f := newFixture()
	f.record("User")
	ghost := uuid.New()
	f.edges = append(f.edges, &model.DependencyEdge{
		ID:           uuid.New(),
		FromSchemaID: ghost,
		ToModelID:    "User",
		Type:         model.DependencyReference,
	})

	g := f.graph()
	assert.Zero(t, g.Stats().TotalEdges)
	_, ok := g.Node(ghost)
	assert.False(t, ok)
}
