// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package depgraph

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/model"
)

// DefaultMaxDepth bounds graph traversals when callers pass a
// non-positive depth, preventing runaway walks on pathological graphs.
const DefaultMaxDepth = 10

// ChainNode is one visited schema of a dependency chain traversal,
// recording its distance from the traversal root and, when details
// were requested, the outgoing edges which led onwards.
type ChainNode struct {
	Node
	Depth int `json:"depth"`

	// Edges lists the dependencies of this node, present only when the
	// traversal was asked for details.
	Edges []Edge `json:"edges,omitempty"`
}

// Chain is the outcome of a dependency chain traversal.
type Chain struct {
	Root     uuid.UUID   `json:"root"`
	MaxDepth int         `json:"max_depth"`
	Nodes    []ChainNode `json:"nodes"`

	// Truncated reports that the depth cap cut the traversal before
	// all reachable dependencies were visited.
	Truncated bool `json:"truncated,omitempty"`
}

// Chain walks outwards from the given schema along its dependency
// edges in breadth-first order, visiting each reachable schema once
// at its minimal depth. The walk stops at maxDepth levels (the
// DefaultMaxDepth when non-positive).
func (g *Graph) Chain(
	id uuid.UUID, maxDepth int, includeDetails bool,
) (*Chain, error) {
	root, err := g.requireNode(id)
	if err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	chain := &Chain{Root: id, MaxDepth: maxDepth}
	visited := map[uuid.UUID]bool{id: true}
	frontier := []Node{root}
	for depth := 0; len(frontier) > 0; depth++ {
		if depth > maxDepth {
			chain.Truncated = true
			break
		}
		var next []Node
		for _, n := range frontier {
			cn := ChainNode{Node: n, Depth: depth}
			if includeDetails {
				cn.Edges = append([]Edge{}, g.deps[n.ID]...)
			}
			chain.Nodes = append(chain.Nodes, cn)
			for _, e := range g.deps[n.ID] {
				if e.ToSchemaID == nil || visited[*e.ToSchemaID] {
					continue
				}
				visited[*e.ToSchemaID] = true
				next = append(next, g.nodes[*e.ToSchemaID])
			}
		}
		sortNodes(next)
		frontier = next
	}
	return chain, nil
}

// Dependents returns the schemas which depend on the given one. The
// non-recursive form stops at the direct dependents; the recursive
// form follows the reverse edges in breadth-first order up to
// maxDepth levels. Results are ordered by model_id ascending.
func (g *Graph) Dependents(
	id uuid.UUID, recursive bool, maxDepth int,
) ([]Node, error) {
	if _, err := g.requireNode(id); err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if !recursive {
		maxDepth = 1
	}
	visited := map[uuid.UUID]bool{id: true}
	var out []Node
	frontier := []uuid.UUID{id}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []uuid.UUID
		for _, cur := range frontier {
			for _, e := range g.rdeps[cur] {
				if visited[e.FromSchemaID] {
					continue
				}
				visited[e.FromSchemaID] = true
				out = append(out, g.nodes[e.FromSchemaID])
				next = append(next, e.FromSchemaID)
			}
		}
		frontier = next
	}
	sortNodes(out)
	return out, nil
}

// Deletability is the answer of a safe-deletion query.
type Deletability struct {
	CanDelete bool   `json:"can_delete"`
	Reason    string `json:"reason,omitempty"`

	// Blockers lists the direct dependents which prevent the deletion.
	Blockers []Node `json:"blockers,omitempty"`
}

// CanDelete reports whether the given schema may be deleted safely,
// that is, no other schema holds a dependency edge into it.
func (g *Graph) CanDelete(id uuid.UUID) (*Deletability, error) {
	blockers, err := g.Dependents(id, false, 0)
	if err != nil {
		return nil, err
	}
	if len(blockers) == 0 {
		return &Deletability{CanDelete: true}, nil
	}
	return &Deletability{
		CanDelete: false,
		Reason: fmt.Sprintf(
			"%d dependent schema(s) reference this schema", len(blockers),
		),
		Blockers: blockers,
	}, nil
}

// Report is the outcome of a whole-graph validation pass.
type Report struct {
	Valid bool `json:"valid"`

	// ExecutionOrder is the topological order of all active schemas,
	// present only when no cycle was found.
	ExecutionOrder []uuid.UUID `json:"execution_order,omitempty"`

	// Cycle names the models taking part in a dependency cycle.
	Cycle []string `json:"cycle,omitempty"`

	// Unresolved lists edges whose target model has no active schema
	// and Inactive lists edges bound to a non-active record.
	Unresolved []Edge `json:"unresolved,omitempty"`
	Inactive   []Edge `json:"inactive,omitempty"`
}

// Validate runs a topological ordering pass over all active schemas
// and verifies that every edge owned by an active schema is bound to
// an active record, reporting cycles and missing or inactive
// references.
func (g *Graph) Validate() *Report {
	report := &Report{Valid: true}
	var activeIDs []uuid.UUID
	for id, n := range g.nodes {
		if n.Status == model.StatusActive {
			activeIDs = append(activeIDs, id)
		}
	}
	order, err := g.ExecutionOrder(activeIDs)
	if err != nil {
		var cycErr *cerr.CircularDependencyError
		if errors.As(err, &cycErr) {
			report.Valid = false
			report.Cycle = cycErr.Residual
		}
	} else {
		report.ExecutionOrder = order
	}
	for _, id := range activeIDs {
		for _, e := range g.deps[id] {
			switch {
			case e.ToSchemaID == nil:
				report.Valid = false
				report.Unresolved = append(report.Unresolved, e)
			case g.nodes[*e.ToSchemaID].Status != model.StatusActive:
				report.Valid = false
				report.Inactive = append(report.Inactive, e)
			}
		}
	}
	return report
}

// Stats summarizes the graph shape.
type Stats struct {
	TotalSchemas int `json:"total_schemas"`
	TotalEdges   int `json:"total_edges"`

	// AvgDependencies is the mean outgoing edge count per schema.
	AvgDependencies float64 `json:"avg_dependencies"`

	// MostDependent is the schema with the most outgoing edges and
	// MostDependedOn the one with the most incoming edges; ties break
	// by model_id ascending. Either is nil on an empty graph.
	MostDependent  *NodeDegree `json:"most_dependent,omitempty"`
	MostDependedOn *NodeDegree `json:"most_depended_on,omitempty"`
}

// NodeDegree pairs a node with one of its degree counts.
type NodeDegree struct {
	Node
	Degree int `json:"degree"`
}

// Stats computes the graph statistics.
func (g *Graph) Stats() *Stats {
	s := &Stats{TotalSchemas: len(g.nodes)}
	for _, edges := range g.deps {
		s.TotalEdges += len(edges)
	}
	if s.TotalSchemas > 0 {
		s.AvgDependencies =
			float64(s.TotalEdges) / float64(s.TotalSchemas)
	}
	nodes := g.Nodes()
	for i := range nodes {
		n := nodes[i]
		if d := len(g.deps[n.ID]); s.MostDependent == nil ||
			d > s.MostDependent.Degree {
			s.MostDependent = &NodeDegree{Node: n, Degree: d}
		}
		if d := len(g.rdeps[n.ID]); s.MostDependedOn == nil ||
			d > s.MostDependedOn.Degree {
			s.MostDependedOn = &NodeDegree{Node: n, Degree: d}
		}
	}
	return s
}
