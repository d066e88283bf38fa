// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package fakerepo

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/repo"
)

type schemas struct {
}

func (schemas) Conn(c repo.Conn) repo.SchemasConnQueryer {
	return schemasQueryer{unwrap(c)}
}

func (schemas) Tx(t repo.Tx) repo.SchemasTxQueryer {
	return schemasQueryer{unwrap(t)}
}

type schemasQueryer struct {
	s *Store
}

func (q schemasQueryer) Create(
	ctx context.Context,
	record *model.SchemaRecord,
	edges []*model.DependencyEdge,
) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	for _, r := range q.s.records {
		if r.ModelID == record.ModelID && r.Version == record.Version {
			return &cerr.DuplicateVersionError{
				ModelID: record.ModelID, Version: record.Version,
			}
		}
	}
	q.s.records = append(q.s.records, record)
	q.s.edges = append(q.s.edges, edges...)
	return nil
}

func (q schemasQueryer) Update(
	ctx context.Context,
	record *model.SchemaRecord,
	edges []*model.DependencyEdge,
) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	for _, r := range q.s.records {
		if r.ID != record.ID &&
			r.ModelID == record.ModelID && r.Version == record.Version {
			return &cerr.DuplicateVersionError{
				ModelID: record.ModelID, Version: record.Version,
			}
		}
	}
	for i, r := range q.s.records {
		if r.ID == record.ID {
			q.s.records[i] = record
			q.s.dropOutgoingEdges(record.ID)
			q.s.edges = append(q.s.edges, edges...)
			return nil
		}
	}
	return &cerr.NotFoundError{Kind: "schema", Key: record.ID.String()}
}

func (q schemasQueryer) SetStatus(
	ctx context.Context, id uuid.UUID, status model.SchemaStatus,
) (*model.SchemaRecord, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	for _, r := range q.s.records {
		if r.ID == id {
			r.Status = status
			return r, nil
		}
	}
	return nil, &cerr.NotFoundError{Kind: "schema", Key: id.String()}
}

func (q schemasQueryer) Delete(ctx context.Context, id uuid.UUID) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	found := false
	records := q.s.records[:0]
	for _, r := range q.s.records {
		if r.ID == id {
			found = true
			continue
		}
		records = append(records, r)
	}
	if !found {
		return &cerr.NotFoundError{Kind: "schema", Key: id.String()}
	}
	q.s.records = records
	q.s.dropOutgoingEdges(id)
	for _, e := range q.s.edges {
		if e.ToSchemaID != nil && *e.ToSchemaID == id {
			e.ToSchemaID = nil
		}
	}
	return nil
}

func (q schemasQueryer) RebindEdges(
	ctx context.Context, modelID string, to uuid.UUID,
) (int64, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	var n int64
	for _, e := range q.s.edges {
		if e.ToSchemaID == nil && e.ToModelID == modelID {
			id := to
			e.ToSchemaID = &id
			n++
		}
	}
	return n, nil
}

func (q schemasQueryer) GetByID(
	ctx context.Context, id uuid.UUID,
) (*model.SchemaRecord, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	for _, r := range q.s.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, &cerr.NotFoundError{Kind: "schema", Key: id.String()}
}

func (q schemasQueryer) GetByModelAndVersion(
	ctx context.Context, modelID, version string,
) (*model.SchemaRecord, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	for _, r := range q.s.records {
		if r.ModelID == modelID && r.Version == version {
			return r, nil
		}
	}
	return nil, &cerr.NotFoundError{
		Kind: "schema", Key: modelID + "@" + version,
	}
}

func (q schemasQueryer) List(
	ctx context.Context, filter repo.SchemaFilter,
) ([]*model.SchemaRecord, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	var out []*model.SchemaRecord
	for _, r := range q.s.records {
		if filter.ModelID != "" && r.ModelID != filter.ModelID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ModelID != out[j].ModelID {
			return out[i].ModelID < out[j].ModelID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (q schemasQueryer) LatestActiveByModel(
	ctx context.Context, modelID string,
) (*model.SchemaRecord, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	for _, r := range q.s.records {
		if r.ModelID == modelID && r.Status == model.StatusActive {
			return r, nil
		}
	}
	return nil, &cerr.NotFoundError{Kind: "active schema", Key: modelID}
}

func (q schemasQueryer) LatestActiveByTable(
	ctx context.Context, table string,
) (*model.SchemaRecord, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	for _, r := range q.s.records {
		if r.TableName == table && r.Status == model.StatusActive {
			return r, nil
		}
	}
	return nil, &cerr.NotFoundError{Kind: "active schema", Key: table}
}

func (q schemasQueryer) ListEdges(
	ctx context.Context, from uuid.UUID,
) ([]*model.DependencyEdge, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	var out []*model.DependencyEdge
	for _, e := range q.s.edges {
		if e.FromSchemaID == from {
			out = append(out, e)
		}
	}
	return out, nil
}

func (q schemasQueryer) ListDependentEdges(
	ctx context.Context, to uuid.UUID,
) ([]*model.DependencyEdge, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	var out []*model.DependencyEdge
	for _, e := range q.s.edges {
		if e.ToSchemaID != nil && *e.ToSchemaID == to {
			out = append(out, e)
		}
	}
	return out, nil
}

func (q schemasQueryer) ListAllEdges(
	ctx context.Context,
) ([]*model.DependencyEdge, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	out := make([]*model.DependencyEdge, len(q.s.edges))
	copy(out, q.s.edges)
	return out, nil
}

// dropOutgoingEdges removes the edges originating at the given record.
// Callers must hold the store mutex.
func (s *Store) dropOutgoingEdges(from uuid.UUID) {
	edges := s.edges[:0]
	for _, e := range s.edges {
		if e.FromSchemaID != from {
			edges = append(edges, e)
		}
	}
	s.edges = edges
}
