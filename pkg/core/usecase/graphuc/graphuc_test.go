// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package graphuc_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/momeni/schema-forge/internal/test/fakerepo"
	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/usecase/graphuc"
	"github.com/stretchr/testify/require"
)

// blogStore seeds the users/posts/comments shape: Post depends on
// User, Comment depends on both Post and User. All records active.
func blogStore(t *testing.T) (
	*fakerepo.Store, map[string]uuid.UUID,
) {
	t.Helper()
	s := fakerepo.NewStore()
	ids := map[string]uuid.UUID{
		"User":    uuid.New(),
		"Post":    uuid.New(),
		"Comment": uuid.New(),
	}
	var records []*model.SchemaRecord
	for modelID, id := range ids {
		records = append(records, &model.SchemaRecord{
			ID:      id,
			ModelID: modelID,
			Version: "1.0.0",
			Status:  model.StatusActive,
		})
	}
	edge := func(from, to string) *model.DependencyEdge {
		toID := ids[to]
		return &model.DependencyEdge{
			ID:           uuid.New(),
			FromSchemaID: ids[from],
			ToSchemaID:   &toID,
			ToModelID:    to,
			Type:         model.DependencyForeignKey,
		}
	}
	s.Seed(records, []*model.DependencyEdge{
		edge("Post", "User"),
		edge("Comment", "Post"),
		edge("Comment", "User"),
	})
	return s, ids
}

func newUseCase(
	t *testing.T, s *fakerepo.Store, opts ...graphuc.Option,
) *graphuc.UseCase {
	t.Helper()
	uc, err := graphuc.New(s.Pool(), s.Schemas(), opts...)
	require.NoError(t, err, "creating use case")
	return uc
}

func requireStatusCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	var ce *cerr.Error
	require.ErrorAs(t, err, &ce)
	require.Equal(t, code, ce.HTTPStatusCode)
}

func TestExecutionOrderAllSchemas(t *testing.T) {
	s, ids := blogStore(t)
	uc := newUseCase(t, s)

	order, err := uc.ExecutionOrder(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{
		ids["User"], ids["Post"], ids["Comment"],
	}, order, "dependencies must precede their dependents")
}

func TestExecutionOrderSubset(t *testing.T) {
	s, ids := blogStore(t)
	uc := newUseCase(t, s)

	order, err := uc.ExecutionOrder(
		context.Background(), []uuid.UUID{ids["Comment"], ids["User"]},
	)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{ids["User"], ids["Comment"]}, order)
}

func TestExecutionOrderCycle(t *testing.T) {
	s := fakerepo.NewStore()
	a, b := uuid.New(), uuid.New()
	s.Seed(
		[]*model.SchemaRecord{
			{ID: a, ModelID: "A", Version: "1.0.0", Status: model.StatusActive},
			{ID: b, ModelID: "B", Version: "1.0.0", Status: model.StatusActive},
		},
		[]*model.DependencyEdge{
			{
				ID: uuid.New(), FromSchemaID: a, ToSchemaID: &b,
				ToModelID: "B", Type: model.DependencyForeignKey,
			},
			{
				ID: uuid.New(), FromSchemaID: b, ToSchemaID: &a,
				ToModelID: "A", Type: model.DependencyForeignKey,
			},
		},
	)
	uc := newUseCase(t, s)

	_, err := uc.ExecutionOrder(context.Background(), nil)
	requireStatusCode(t, err, http.StatusUnprocessableEntity)
	var cyc *cerr.CircularDependencyError
	require.ErrorAs(t, err, &cyc)
	require.Equal(t, []string{"A", "B"}, cyc.Residual)
}

func TestChain(t *testing.T) {
	s, ids := blogStore(t)
	uc := newUseCase(t, s)

	chain, err := uc.Chain(context.Background(), ids["Comment"], 0, true)
	require.NoError(t, err)
	require.Equal(t, ids["Comment"], chain.Root)
	require.Len(t, chain.Nodes, 3)
	require.Equal(t, 0, chain.Nodes[0].Depth)
	require.Len(t, chain.Nodes[0].Edges, 2,
		"details must record the traversed edges")
	require.False(t, chain.Truncated)
}

func TestChainDepthIsClamped(t *testing.T) {
	s := fakerepo.NewStore()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	s.Seed(
		[]*model.SchemaRecord{
			{ID: a, ModelID: "A", Version: "1.0.0", Status: model.StatusActive},
			{ID: b, ModelID: "B", Version: "1.0.0", Status: model.StatusActive},
			{ID: c, ModelID: "C", Version: "1.0.0", Status: model.StatusActive},
		},
		[]*model.DependencyEdge{
			{
				ID: uuid.New(), FromSchemaID: a, ToSchemaID: &b,
				ToModelID: "B", Type: model.DependencyForeignKey,
			},
			{
				ID: uuid.New(), FromSchemaID: b, ToSchemaID: &c,
				ToModelID: "C", Type: model.DependencyForeignKey,
			},
		},
	)
	uc := newUseCase(t, s, graphuc.WithMaxDepth(1))

	// asking for a deeper walk than the configured bound is clamped
	chain, err := uc.Chain(context.Background(), a, 5, false)
	require.NoError(t, err)
	require.Len(t, chain.Nodes, 2)
	require.True(t, chain.Truncated)
}

func TestDependents(t *testing.T) {
	s, ids := blogStore(t)
	uc := newUseCase(t, s)
	ctx := context.Background()

	direct, err := uc.Dependents(ctx, ids["User"], false, 0)
	require.NoError(t, err)
	var models []string
	for _, n := range direct {
		models = append(models, n.ModelID)
	}
	require.Equal(t, []string{"Comment", "Post"}, models)

	leaf, err := uc.Dependents(ctx, ids["Comment"], true, 0)
	require.NoError(t, err)
	require.Empty(t, leaf)
}

func TestCanDelete(t *testing.T) {
	s, ids := blogStore(t)
	uc := newUseCase(t, s)
	ctx := context.Background()

	blocked, err := uc.CanDelete(ctx, ids["User"])
	require.NoError(t, err)
	require.False(t, blocked.CanDelete)
	require.Len(t, blocked.Blockers, 2)
	require.Contains(t, blocked.Reason, "2 dependent schema(s)")

	free, err := uc.CanDelete(ctx, ids["Comment"])
	require.NoError(t, err)
	require.True(t, free.CanDelete)
}

func TestValidateGraph(t *testing.T) {
	s, ids := blogStore(t)
	uc := newUseCase(t, s)

	report, err := uc.ValidateGraph(context.Background())
	require.NoError(t, err)
	require.True(t, report.Valid)
	require.Len(t, report.ExecutionOrder, 3)

	// unbinding one edge breaks the graph health
	s.Seed(nil, []*model.DependencyEdge{{
		ID: uuid.New(), FromSchemaID: ids["Post"],
		ToModelID: "Tag", Type: model.DependencyReference,
	}})
	report, err = uc.ValidateGraph(context.Background())
	require.NoError(t, err)
	require.False(t, report.Valid)
	require.Len(t, report.Unresolved, 1)
}

func TestStats(t *testing.T) {
	s, _ := blogStore(t)
	uc := newUseCase(t, s)

	stats, err := uc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalSchemas)
	require.Equal(t, 3, stats.TotalEdges)
	require.InDelta(t, 1.0, stats.AvgDependencies, 1e-9)
	require.Equal(t, "Comment", stats.MostDependent.ModelID)
	require.Equal(t, "User", stats.MostDependedOn.ModelID)
}

func TestUnknownSchema(t *testing.T) {
	s, _ := blogStore(t)
	uc := newUseCase(t, s)
	ctx := context.Background()

	_, err := uc.Chain(ctx, uuid.New(), 0, false)
	requireStatusCode(t, err, http.StatusNotFound)
	_, err = uc.Dependents(ctx, uuid.New(), false, 0)
	requireStatusCode(t, err, http.StatusNotFound)
	_, err = uc.CanDelete(ctx, uuid.New())
	requireStatusCode(t, err, http.StatusNotFound)
}
