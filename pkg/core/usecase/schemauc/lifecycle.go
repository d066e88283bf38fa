// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package schemauc

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/depgraph"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/repo"
)

// Create validates the given definition document and persists it as a
// new draft schema record, deriving its dependency edges and logging
// the creation on behalf of the given actor. The raw document is
// stored byte-for-byte.
func (uc *UseCase) Create(
	ctx context.Context, raw []byte, actor string,
) (record *model.SchemaRecord, err error) {
	def, err := uc.parseAndValidate(raw)
	if err != nil {
		return nil, err
	}
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			q := uc.schemas.Tx(tx)
			now := uc.now()
			record = &model.SchemaRecord{
				ID:         uuid.New(),
				ModelID:    def.ModelID,
				Version:    def.Version,
				Name:       def.Name,
				TableName:  def.Table,
				Definition: append(json.RawMessage{}, raw...),
				Status:     model.StatusDraft,
				CreatedBy:  actor,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			edges, err := uc.deriveEdges(ctx, q, def, record.ID)
			if err != nil {
				return err
			}
			if err := q.Create(ctx, record, edges); err != nil {
				return wrapDuplicate(err)
			}
			return uc.logChange(ctx, tx, model.SchemaChange{
				Type:     model.ChangeCreated,
				SchemaID: record.ID,
				ModelID:  record.ModelID,
				NewState: snapshot(record),
			}, actor)
		})
	})
	if err != nil {
		record = nil
	}
	return
}

// Update replaces the definition document of a draft schema record,
// re-validating it and re-deriving the dependency edges. Records which
// left the draft status are immutable and system records are never
// updatable.
func (uc *UseCase) Update(
	ctx context.Context, id uuid.UUID, raw []byte, actor string,
) (record *model.SchemaRecord, err error) {
	def, err := uc.parseAndValidate(raw)
	if err != nil {
		return nil, err
	}
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			q := uc.schemas.Tx(tx)
			record, err = q.GetByID(ctx, id)
			if err != nil {
				return wrapNotFound(err)
			}
			if record.IsSystem {
				return cerr.Conflict(&cerr.ImmutableSystemError{
					ModelID: record.ModelID,
				})
			}
			if record.Status != model.StatusDraft {
				return cerr.Conflict(&cerr.ImmutableActiveError{
					ModelID: record.ModelID,
					Version: record.Version,
					Status:  string(record.Status),
				})
			}
			if def.ModelID != record.ModelID {
				return cerr.BadRequest(fmt.Errorf(
					"definition model_id %q does not match record %q",
					def.ModelID, record.ModelID,
				))
			}
			prev := snapshot(record)
			record.Version = def.Version
			record.Name = def.Name
			record.TableName = def.Table
			record.Definition = append(json.RawMessage{}, raw...)
			record.UpdatedAt = uc.now()
			edges, err := uc.deriveEdges(ctx, q, def, record.ID)
			if err != nil {
				return err
			}
			if err := q.Update(ctx, record, edges); err != nil {
				return wrapDuplicate(err)
			}
			return uc.logChange(ctx, tx, model.SchemaChange{
				Type:          model.ChangeUpdated,
				SchemaID:      record.ID,
				ModelID:       record.ModelID,
				PreviousState: prev,
				NewState:      snapshot(record),
			}, actor)
		})
	})
	if err != nil {
		record = nil
	}
	return
}

// Activate promotes the given schema record to the single active
// version of its model: the previously active record (if any) is
// demoted to deprecated, unresolved dependency edges naming this model
// are rebound to the promoted record, and both transitions are logged.
// Activating an already active record is a no-op. A rebinding which
// would close a dependency cycle rejects the whole operation.
func (uc *UseCase) Activate(
	ctx context.Context, id uuid.UUID, actor string,
) (record *model.SchemaRecord, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			q := uc.schemas.Tx(tx)
			record, err = q.GetByID(ctx, id)
			if err != nil {
				return wrapNotFound(err)
			}
			switch record.Status {
			case model.StatusActive:
				return nil // already the active version
			case model.StatusDeprecated:
				return cerr.Conflict(&cerr.ImmutableActiveError{
					ModelID: record.ModelID,
					Version: record.Version,
					Status:  string(record.Status),
				})
			}
			if err := uc.checkRebindCycles(ctx, q, record); err != nil {
				return err
			}
			prev, err := q.LatestActiveByModel(ctx, record.ModelID)
			switch {
			case err == nil && prev.ID != id:
				prevState := snapshot(prev)
				demoted, err := q.SetStatus(
					ctx, prev.ID, model.StatusDeprecated,
				)
				if err != nil {
					return fmt.Errorf("demoting %s: %w", prev.ID, err)
				}
				err = uc.logChange(ctx, tx, model.SchemaChange{
					Type:          model.ChangeDeprecated,
					SchemaID:      demoted.ID,
					ModelID:       demoted.ModelID,
					PreviousState: prevState,
					NewState:      snapshot(demoted),
				}, actor)
				if err != nil {
					return err
				}
			case err != nil && !errors.As(err, new(*cerr.NotFoundError)):
				return fmt.Errorf("resolving active version: %w", err)
			}
			prevState := snapshot(record)
			record, err = q.SetStatus(ctx, id, model.StatusActive)
			if err != nil {
				return fmt.Errorf("promoting %s: %w", id, err)
			}
			if _, err := q.RebindEdges(
				ctx, record.ModelID, record.ID,
			); err != nil {
				return fmt.Errorf("rebinding edges: %w", err)
			}
			return uc.logChange(ctx, tx, model.SchemaChange{
				Type:          model.ChangeActivated,
				SchemaID:      record.ID,
				ModelID:       record.ModelID,
				PreviousState: prevState,
				NewState:      snapshot(record),
			}, actor)
		})
	})
	if err != nil {
		record = nil
	}
	return
}

// Deprecate retires the given schema record. Deprecating an already
// deprecated record is a no-op.
func (uc *UseCase) Deprecate(
	ctx context.Context, id uuid.UUID, actor string,
) (record *model.SchemaRecord, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			q := uc.schemas.Tx(tx)
			record, err = q.GetByID(ctx, id)
			if err != nil {
				return wrapNotFound(err)
			}
			if record.Status == model.StatusDeprecated {
				return nil
			}
			prevState := snapshot(record)
			record, err = q.SetStatus(ctx, id, model.StatusDeprecated)
			if err != nil {
				return err
			}
			return uc.logChange(ctx, tx, model.SchemaChange{
				Type:          model.ChangeDeprecated,
				SchemaID:      record.ID,
				ModelID:       record.ModelID,
				PreviousState: prevState,
				NewState:      snapshot(record),
			}, actor)
		})
	})
	if err != nil {
		record = nil
	}
	return
}

// Delete removes the given schema record. Active versions, system
// records, and records with dependents are refused; the deletion is
// logged with a full previous-state snapshot, so the audit trail
// outlives the record.
func (uc *UseCase) Delete(
	ctx context.Context, id uuid.UUID, actor string,
) error {
	return uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			q := uc.schemas.Tx(tx)
			record, err := q.GetByID(ctx, id)
			if err != nil {
				return wrapNotFound(err)
			}
			if record.IsSystem {
				return cerr.Conflict(&cerr.ImmutableSystemError{
					ModelID: record.ModelID,
				})
			}
			if record.Status == model.StatusActive {
				return cerr.Conflict(&cerr.ActiveNotDeletableError{
					ModelID: record.ModelID,
					Version: record.Version,
				})
			}
			dependents, err := uc.dependentModels(ctx, q, id)
			if err != nil {
				return err
			}
			if len(dependents) > 0 {
				return cerr.Conflict(&cerr.HasDependentsError{
					ModelID:    record.ModelID,
					Dependents: dependents,
				})
			}
			if err := q.Delete(ctx, id); err != nil {
				return err
			}
			return uc.logChange(ctx, tx, model.SchemaChange{
				Type:          model.ChangeDeleted,
				SchemaID:      record.ID,
				ModelID:       record.ModelID,
				PreviousState: snapshot(record),
			}, actor)
		})
	})
}

// checkRebindCycles verifies that rebinding the unresolved edges which
// name the record's model at the record itself would not close a
// dependency cycle.
func (uc *UseCase) checkRebindCycles(
	ctx context.Context, q repo.SchemasTxQueryer,
	record *model.SchemaRecord,
) error {
	records, err := q.List(ctx, repo.SchemaFilter{})
	if err != nil {
		return fmt.Errorf("loading records: %w", err)
	}
	edges, err := q.ListAllEdges(ctx)
	if err != nil {
		return fmt.Errorf("loading edges: %w", err)
	}
	g := depgraph.New(records, edges)
	for _, e := range edges {
		if e.ToSchemaID != nil || e.ToModelID != record.ModelID {
			continue
		}
		if e.FromSchemaID == record.ID {
			continue // a model may not depend on itself anyways
		}
		if g.WouldCycle(e.FromSchemaID, record.ID) {
			residual := []string{record.ModelID}
			if n, ok := g.Node(e.FromSchemaID); ok {
				residual = append(residual, n.ModelID)
			}
			sort.Strings(residual)
			return cerr.UnprocessableEntity(
				&cerr.CircularDependencyError{Residual: residual},
			)
		}
	}
	return nil
}

// dependentModels returns the sorted distinct model identifiers of the
// schemas holding a dependency edge into the given record.
func (uc *UseCase) dependentModels(
	ctx context.Context, q repo.SchemasTxQueryer, id uuid.UUID,
) ([]string, error) {
	edges, err := q.ListDependentEdges(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading dependent edges: %w", err)
	}
	seen := map[uuid.UUID]bool{}
	var models []string
	for _, e := range edges {
		if seen[e.FromSchemaID] {
			continue
		}
		seen[e.FromSchemaID] = true
		dep, err := q.GetByID(ctx, e.FromSchemaID)
		if err != nil {
			return nil, fmt.Errorf(
				"resolving dependent %s: %w", e.FromSchemaID, err,
			)
		}
		models = append(models, dep.ModelID)
	}
	sort.Strings(models)
	return slicesCompact(models), nil
}

// slicesCompact removes adjacent duplicates of a sorted slice.
func slicesCompact(s []string) []string {
	out := s[:0]
	for i, v := range s {
		if i == 0 || s[i-1] != v {
			out = append(out, v)
		}
	}
	return out
}

// logChange appends one change log entry in the ongoing transaction
// and fires the configured change hook.
func (uc *UseCase) logChange(
	ctx context.Context, tx repo.Tx,
	change model.SchemaChange, actor string,
) error {
	err := uc.changelog.Tx(tx).Append(ctx, &model.ChangeLogEntry{
		ID:            uuid.New(),
		SchemaID:      change.SchemaID,
		Type:          change.Type,
		PreviousState: change.PreviousState,
		NewState:      change.NewState,
		Actor:         actor,
		OccurredAt:    uc.now(),
	})
	if err != nil {
		return fmt.Errorf("appending change log: %w", err)
	}
	if uc.hook != nil {
		uc.hook(ctx, change)
	}
	return nil
}

// snapshot serializes the audit-relevant projection of a record for a
// change log state column. The raw definition blob is embedded
// verbatim, so historical definitions stay readable without joining
// the (possibly deleted) record.
func snapshot(r *model.SchemaRecord) json.RawMessage {
	b, err := json.Marshal(struct {
		ID         uuid.UUID          `json:"id"`
		ModelID    string             `json:"model_id"`
		Version    string             `json:"version"`
		Status     model.SchemaStatus `json:"status"`
		Definition json.RawMessage    `json:"definition"`
	}{r.ID, r.ModelID, r.Version, r.Status, r.Definition})
	if err != nil {
		// Marshaling a plain struct with raw JSON fields cannot fail
		// unless the definition blob is corrupt; keep the log entry.
		return json.RawMessage(`{}`)
	}
	return b
}

// wrapDuplicate decorates version collision failures with their HTTP
// status, passing other errors through unchanged.
func wrapDuplicate(err error) error {
	var dup *cerr.DuplicateVersionError
	if errors.As(err, &dup) {
		return cerr.Conflict(err)
	}
	return err
}
