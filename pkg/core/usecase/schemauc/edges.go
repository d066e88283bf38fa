// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package schemauc

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/repo"
)

// deriveEdges computes the outgoing dependency edges of a definition,
// following the document field order. A field with a foreign key hint
// contributes one foreign_key edge (even when it also carries
// relationship metadata); a field with relationship metadata alone
// contributes one reference edge. Targets resolve to the active record
// of the referenced model when one exists and stay unbound otherwise,
// to be rebound on that model's activation.
func (uc *UseCase) deriveEdges(
	ctx context.Context, q repo.SchemasQueryer,
	def *model.SchemaDefinition, from uuid.UUID,
) ([]*model.DependencyEdge, error) {
	var edges []*model.DependencyEdge
	for _, name := range def.OrderedFields() {
		f := def.Properties[name]
		if f == nil {
			continue
		}
		switch {
		case f.HasHints() && f.Database.ForeignKey != nil:
			e, err := uc.foreignKeyEdge(ctx, q, f, from, name)
			if err != nil {
				return nil, err
			}
			edges = append(edges, e)
		case f.Relationship != nil:
			e, err := uc.referenceEdge(ctx, q, f.Relationship, from, name)
			if err != nil {
				return nil, err
			}
			edges = append(edges, e)
		}
	}
	return edges, nil
}

// foreignKeyEdge builds the edge of one foreign key hint. The hint
// names a table, not a model, so the target model is taken from the
// sibling relationship metadata when present and is otherwise resolved
// through the active record owning that table. When neither works, the
// table name itself is recorded as the referenced model, leaving an
// unbound edge which the real model may claim later.
func (uc *UseCase) foreignKeyEdge(
	ctx context.Context, q repo.SchemasQueryer,
	f *model.FieldDefinition, from uuid.UUID, field string,
) (*model.DependencyEdge, error) {
	fk := f.Database.ForeignKey
	toModel := ""
	if f.Relationship != nil {
		toModel = f.Relationship.Model
	}
	if toModel == "" {
		owner, err := q.LatestActiveByTable(ctx, fk.Table)
		switch {
		case err == nil:
			toModel = owner.ModelID
		case errors.As(err, new(*cerr.NotFoundError)):
			toModel = fk.Table
		default:
			return nil, fmt.Errorf(
				"resolving table %q owner: %w", fk.Table, err,
			)
		}
	}
	config, err := json.Marshal(fk)
	if err != nil {
		return nil, fmt.Errorf("encoding foreign key config: %w", err)
	}
	e := &model.DependencyEdge{
		ID:           uuid.New(),
		FromSchemaID: from,
		ToModelID:    toModel,
		Type:         model.DependencyForeignKey,
		FieldName:    field,
		Config:       config,
	}
	if err := uc.bindEdge(ctx, q, e); err != nil {
		return nil, err
	}
	return e, nil
}

// referenceEdge builds the informational edge of relationship metadata
// without foreign key semantics.
func (uc *UseCase) referenceEdge(
	ctx context.Context, q repo.SchemasQueryer,
	rel *model.Relationship, from uuid.UUID, field string,
) (*model.DependencyEdge, error) {
	config, err := json.Marshal(rel)
	if err != nil {
		return nil, fmt.Errorf("encoding relationship config: %w", err)
	}
	e := &model.DependencyEdge{
		ID:           uuid.New(),
		FromSchemaID: from,
		ToModelID:    rel.Model,
		Type:         model.DependencyReference,
		FieldName:    field,
		Config:       config,
	}
	if err := uc.bindEdge(ctx, q, e); err != nil {
		return nil, err
	}
	return e, nil
}

// bindEdge points the edge at the active record of its referenced
// model, leaving it unbound when no such record exists.
func (uc *UseCase) bindEdge(
	ctx context.Context, q repo.SchemasQueryer, e *model.DependencyEdge,
) error {
	target, err := q.LatestActiveByModel(ctx, e.ToModelID)
	switch {
	case err == nil:
		id := target.ID
		e.ToSchemaID = &id
	case errors.As(err, new(*cerr.NotFoundError)):
		// stays unbound until the model gets an active record
	default:
		return fmt.Errorf(
			"resolving model %q active record: %w", e.ToModelID, err,
		)
	}
	return nil
}
