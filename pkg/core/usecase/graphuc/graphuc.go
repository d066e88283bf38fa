// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package graphuc contains the dependency graph UseCase which answers
// ordering, traversal, and health questions over the stored schema
// records and their dependency edges. Every operation materializes the
// graph from the repository in one round-trip pair and then runs the
// pure algorithms of pkg/core/depgraph on it.
package graphuc

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/depgraph"
	"github.com/momeni/schema-forge/pkg/core/repo"
)

// UseCase represents the dependency graph use case. It holds a
// database connection pool and the schemas repository instance (to be
// guided with the DB pool), plus the traversal depth bound.
type UseCase struct {
	pool    repo.Pool
	schemas repo.Schemas

	maxDepth int
}

// Option is a functional option for the dependency graph use case.
type Option func(uc *UseCase) error

// WithMaxDepth option configures the upper bound of chain and
// dependents traversal depths. This option may be passed to the New()
// function.
func WithMaxDepth(depth int) Option {
	return func(uc *UseCase) error {
		if depth <= 0 {
			return fmt.Errorf("max depth (%d) is not positive", depth)
		}
		if uc.maxDepth != 0 {
			return errors.New("max depth is already configured")
		}
		uc.maxDepth = depth
		return nil
	}
}

// New instantiates a dependency graph use case.
func New(p repo.Pool, s repo.Schemas, opts ...Option) (*UseCase, error) {
	uc := &UseCase{pool: p, schemas: s}
	for _, opt := range opts {
		if err := opt(uc); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	// now, deal with defaults
	if uc.maxDepth == 0 {
		uc.maxDepth = depgraph.DefaultMaxDepth
	}
	return uc, nil
}

// ExecutionOrder returns the given schemas in an order where every
// dependency precedes its dependents. An empty identifier list asks
// for the order of all stored schemas.
func (uc *UseCase) ExecutionOrder(
	ctx context.Context, ids []uuid.UUID,
) (order []uuid.UUID, err error) {
	g, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		for _, n := range g.Nodes() {
			ids = append(ids, n.ID)
		}
	}
	order, err = g.ExecutionOrder(ids)
	if err != nil {
		return nil, wrapGraphErr(err)
	}
	return order, nil
}

// Chain returns the dependency chain of the given schema in
// breadth-first order, optionally recording the traversed edges. The
// depth is clamped to the configured bound; a non-positive depth asks
// for the bound itself.
func (uc *UseCase) Chain(
	ctx context.Context, id uuid.UUID, depth int, details bool,
) (*depgraph.Chain, error) {
	g, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}
	chain, err := g.Chain(id, uc.clamp(depth), details)
	if err != nil {
		return nil, wrapGraphErr(err)
	}
	return chain, nil
}

// Dependents returns the schemas depending on the given one, directly
// or (with recursive) transitively up to the clamped depth.
func (uc *UseCase) Dependents(
	ctx context.Context, id uuid.UUID, recursive bool, depth int,
) ([]depgraph.Node, error) {
	g, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}
	nodes, err := g.Dependents(id, recursive, uc.clamp(depth))
	if err != nil {
		return nil, wrapGraphErr(err)
	}
	return nodes, nil
}

// CanDelete reports whether the given schema may be deleted safely,
// naming the blocking dependents otherwise.
func (uc *UseCase) CanDelete(
	ctx context.Context, id uuid.UUID,
) (*depgraph.Deletability, error) {
	g, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}
	d, err := g.CanDelete(id)
	if err != nil {
		return nil, wrapGraphErr(err)
	}
	return d, nil
}

// ValidateGraph checks the whole graph health: all active schemas must
// order topologically and every active schema's edge must be bound to
// an active record.
func (uc *UseCase) ValidateGraph(
	ctx context.Context,
) (*depgraph.Report, error) {
	g, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}
	return g.Validate(), nil
}

// Stats summarizes the graph shape.
func (uc *UseCase) Stats(ctx context.Context) (*depgraph.Stats, error) {
	g, err := uc.load(ctx)
	if err != nil {
		return nil, err
	}
	return g.Stats(), nil
}

// load materializes the dependency graph from the repository.
func (uc *UseCase) load(ctx context.Context) (g *depgraph.Graph, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		q := uc.schemas.Conn(c)
		records, err := q.List(ctx, repo.SchemaFilter{})
		if err != nil {
			return fmt.Errorf("loading records: %w", err)
		}
		edges, err := q.ListAllEdges(ctx)
		if err != nil {
			return fmt.Errorf("loading edges: %w", err)
		}
		g = depgraph.New(records, edges)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// clamp bounds a requested traversal depth by the configured maximum,
// mapping non-positive requests to the maximum itself.
func (uc *UseCase) clamp(depth int) int {
	if depth <= 0 || depth > uc.maxDepth {
		return uc.maxDepth
	}
	return depth
}

// wrapGraphErr decorates the typed graph errors with their HTTP
// status, passing other errors through unchanged.
func wrapGraphErr(err error) error {
	var nf *cerr.NotFoundError
	if errors.As(err, &nf) {
		return cerr.NotFound(err)
	}
	var cyc *cerr.CircularDependencyError
	if errors.As(err, &cyc) {
		return cerr.UnprocessableEntity(err)
	}
	return err
}
