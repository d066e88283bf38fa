// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package depgraph answers ordering, reachability, and impact
// questions over the directed dependency graph of stored schemas.
// The graph is materialized on demand from the repository records and
// edges; all algorithms are pure, so they can be tested without a
// database and never suspend. Edges point from the dependent schema
// to its dependency; an edge whose target model has no active schema
// stays unbound and is treated as unsatisfied.
package depgraph

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/model"
)

// Node is the graph projection of one schema record.
type Node struct {
	ID      uuid.UUID          `json:"id"`
	ModelID string             `json:"model_id"`
	Version string             `json:"version"`
	Status  model.SchemaStatus `json:"status"`
}

// Edge is the graph projection of one dependency edge.
type Edge struct {
	FromSchemaID uuid.UUID            `json:"from_schema_id"`
	ToSchemaID   *uuid.UUID           `json:"to_schema_id,omitempty"`
	ToModelID    string               `json:"to_model_id"`
	Type         model.DependencyType `json:"type"`
	FieldName    string               `json:"field_name,omitempty"`
}

// Graph is a materialized dependency graph. It is immutable after New
// and safe for concurrent reads.
type Graph struct {
	nodes map[uuid.UUID]Node

	// deps maps a schema to its outgoing (dependency) edges and rdeps
	// to its incoming (dependent) edges. Unbound edges appear in the
	// owning node's deps list but in no rdeps list.
	deps  map[uuid.UUID][]Edge
	rdeps map[uuid.UUID][]Edge
}

// New materializes a graph from the given records and edges. Edges
// referring to unknown records (in either direction) are dropped, so
// a partially loaded record set yields a consistent subgraph.
func New(records []*model.SchemaRecord, edges []*model.DependencyEdge) *Graph {
	g := &Graph{
		nodes: make(map[uuid.UUID]Node, len(records)),
		deps:  make(map[uuid.UUID][]Edge),
		rdeps: make(map[uuid.UUID][]Edge),
	}
	for _, r := range records {
		g.nodes[r.ID] = Node{
			ID:      r.ID,
			ModelID: r.ModelID,
			Version: r.Version,
			Status:  r.Status,
		}
	}
	for _, e := range edges {
		if _, ok := g.nodes[e.FromSchemaID]; !ok {
			continue
		}
		ge := Edge{
			FromSchemaID: e.FromSchemaID,
			ToModelID:    e.ToModelID,
			Type:         e.Type,
			FieldName:    e.FieldName,
		}
		if e.ToSchemaID != nil {
			if _, ok := g.nodes[*e.ToSchemaID]; ok {
				to := *e.ToSchemaID
				ge.ToSchemaID = &to
				g.rdeps[to] = append(g.rdeps[to], ge)
			}
		}
		g.deps[e.FromSchemaID] = append(g.deps[e.FromSchemaID], ge)
	}
	return g
}

// Node returns the graph node of the given schema and whether it is
// part of this graph.
func (g *Graph) Node(id uuid.UUID) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all graph nodes, ordered by model_id ascending (and
// version ascending among records of one model) for repeatable output.
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sortNodes(nodes)
	return nodes
}

// ExecutionOrder returns a permutation of the given schemas such that
// every dependency precedes its dependents, using Kahn's algorithm
// over the induced subgraph. Only bound edges with both endpoints in
// the requested set constrain the order. Independent schemas are
// emitted by model_id ascending, keeping the output repeatable. If a
// cycle prevents consuming all nodes, a *cerr.CircularDependencyError
// names the residual models.
func (g *Graph) ExecutionOrder(
	ids []uuid.UUID,
) ([]uuid.UUID, error) {
	in := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if _, ok := g.nodes[id]; !ok {
			return nil, &cerr.NotFoundError{
				Kind: "schema", Key: id.String(),
			}
		}
		in[id] = true
	}
	// indegree counts the dependencies of each node which are still
	// unemitted members of the subgraph.
	indegree := make(map[uuid.UUID]int, len(ids))
	for id := range in {
		n := 0
		for _, e := range g.deps[id] {
			if e.ToSchemaID != nil && *e.ToSchemaID != id && in[*e.ToSchemaID] {
				n++
			}
		}
		indegree[id] = n
	}
	var ready []Node
	for id, n := range indegree {
		if n == 0 {
			ready = append(ready, g.nodes[id])
		}
	}
	sortNodes(ready)
	order := make([]uuid.UUID, 0, len(ids))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next.ID)
		delete(indegree, next.ID)
		for _, e := range g.rdeps[next.ID] {
			if _, pending := indegree[e.FromSchemaID]; !pending {
				continue
			}
			indegree[e.FromSchemaID]--
			if indegree[e.FromSchemaID] == 0 {
				ready = insertNode(ready, g.nodes[e.FromSchemaID])
			}
		}
	}
	if len(order) != len(in) {
		residual := make([]string, 0, len(indegree))
		for id := range indegree {
			residual = append(residual, g.nodes[id].ModelID)
		}
		sort.Strings(residual)
		return nil, &cerr.CircularDependencyError{Residual: residual}
	}
	return order, nil
}

// WouldCycle reports whether adding a dependency edge from the first
// schema to the second would close a cycle. It runs a DFS from the
// candidate target along the existing dependency edges; a cycle
// exists iff the candidate source is reachable.
func (g *Graph) WouldCycle(from, to uuid.UUID) bool {
	if from == to {
		return true
	}
	visited := map[uuid.UUID]bool{}
	stack := []uuid.UUID{to}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == from {
			return true
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true
		for _, e := range g.deps[cur] {
			if e.ToSchemaID != nil {
				stack = append(stack, *e.ToSchemaID)
			}
		}
	}
	return false
}

// sortNodes orders nodes by model_id ascending, breaking ties by
// version and then by id for full determinism.
func sortNodes(nodes []Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].ModelID != nodes[j].ModelID {
			return nodes[i].ModelID < nodes[j].ModelID
		}
		if nodes[i].Version != nodes[j].Version {
			return nodes[i].Version < nodes[j].Version
		}
		return nodes[i].ID.String() < nodes[j].ID.String()
	})
}

// insertNode places n into the sorted ready list, keeping the
// model_id ascending selection order of the Kahn loop.
func insertNode(nodes []Node, n Node) []Node {
	i := sort.Search(len(nodes), func(i int) bool {
		if nodes[i].ModelID != n.ModelID {
			return nodes[i].ModelID > n.ModelID
		}
		if nodes[i].Version != n.Version {
			return nodes[i].Version > n.Version
		}
		return nodes[i].ID.String() > n.ID.String()
	})
	nodes = append(nodes, Node{})
	copy(nodes[i+1:], nodes[i:])
	nodes[i] = n
	return nodes
}

// notFound builds the uniform schema lookup failure.
func notFound(id uuid.UUID) error {
	return &cerr.NotFoundError{Kind: "schema", Key: id.String()}
}

// requireNode returns the node of the given schema or a not-found
// error naming it.
func (g *Graph) requireNode(id uuid.UUID) (Node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, fmt.Errorf("resolving %s: %w", id, notFound(id))
	}
	return n, nil
}
