// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package schemasrp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres"
	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/repo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gSchemaRecord struct {
	ID         uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	ModelID    string    `gorm:"column:model_id"`
	Version    string
	Name       string
	Table      string `gorm:"column:table_name"`
	Definition []byte `gorm:"type:jsonb"`
	Status     string
	IsSystem   bool
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (gr *gSchemaRecord) TableName() string {
	return "schema_records"
}

func (gr *gSchemaRecord) Model() *model.SchemaRecord {
	return &model.SchemaRecord{
		ID:         gr.ID,
		ModelID:    gr.ModelID,
		Version:    gr.Version,
		Name:       gr.Name,
		TableName:  gr.Table,
		Definition: json.RawMessage(gr.Definition),
		Status:     model.SchemaStatus(gr.Status),
		IsSystem:   gr.IsSystem,
		CreatedBy:  gr.CreatedBy,
		CreatedAt:  gr.CreatedAt,
		UpdatedAt:  gr.UpdatedAt,
	}
}

func fromRecord(r *model.SchemaRecord) *gSchemaRecord {
	return &gSchemaRecord{
		ID:         r.ID,
		ModelID:    r.ModelID,
		Version:    r.Version,
		Name:       r.Name,
		Table:      r.TableName,
		Definition: []byte(r.Definition),
		Status:     string(r.Status),
		IsSystem:   r.IsSystem,
		CreatedBy:  r.CreatedBy,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type gDependencyEdge struct {
	ID           uuid.UUID  `gorm:"primaryKey;type:uuid;column:id"`
	FromSchemaID uuid.UUID  `gorm:"type:uuid;column:from_schema_id"`
	ToSchemaID   *uuid.UUID `gorm:"type:uuid;column:to_schema_id"`
	ToModelID    string     `gorm:"column:to_model_id"`
	Type         string     `gorm:"column:dependency_type"`
	FieldName    string
	Config       []byte `gorm:"type:jsonb"`
}

func (ge *gDependencyEdge) TableName() string {
	return "schema_dependency_edges"
}

func (ge *gDependencyEdge) Model() *model.DependencyEdge {
	return &model.DependencyEdge{
		ID:           ge.ID,
		FromSchemaID: ge.FromSchemaID,
		ToSchemaID:   ge.ToSchemaID,
		ToModelID:    ge.ToModelID,
		Type:         model.DependencyType(ge.Type),
		FieldName:    ge.FieldName,
		Config:       json.RawMessage(ge.Config),
	}
}

func fromEdge(e *model.DependencyEdge) gDependencyEdge {
	return gDependencyEdge{
		ID:           e.ID,
		FromSchemaID: e.FromSchemaID,
		ToSchemaID:   e.ToSchemaID,
		ToModelID:    e.ToModelID,
		Type:         string(e.Type),
		FieldName:    e.FieldName,
		Config:       []byte(e.Config),
	}
}

// isUniqueViolation reports whether err is caused by a violation of
// the given unique constraint.
func isUniqueViolation(err error, constraint string) bool {
	var perr *pgconn.PgError
	return errors.As(err, &perr) &&
		perr.Code == "23505" &&
		perr.ConstraintName == constraint
}

// Create inserts the given schema record together with its derived
// dependency edges. A collision on the (model_id, version) pair is
// reported as a *cerr.DuplicateVersionError.
func Create[Q postgres.Queryer](
	ctx context.Context,
	q Q,
	record *model.SchemaRecord,
	edges []*model.DependencyEdge,
) error {
	gdb := q.GORM(ctx)
	if err := gdb.Create(fromRecord(record)).Error; err != nil {
		if isUniqueViolation(err, "uq_schema_records_model_version") {
			return &cerr.DuplicateVersionError{
				ModelID: record.ModelID,
				Version: record.Version,
			}
		}
		return fmt.Errorf("inserting schema record: %w", err)
	}
	return insertEdges(ctx, q, edges)
}

func insertEdges[Q postgres.Queryer](
	ctx context.Context, q Q, edges []*model.DependencyEdge,
) error {
	if len(edges) == 0 {
		return nil
	}
	ges := make([]gDependencyEdge, len(edges))
	for i, e := range edges {
		ges[i] = fromEdge(e)
	}
	gdb := q.GORM(ctx)
	if err := gdb.Create(&ges).Error; err != nil {
		return fmt.Errorf("inserting dependency edges: %w", err)
	}
	return nil
}

// Update overwrites the definition blob, name, and table name of the
// given record and replaces all of its outgoing dependency edges with
// the given ones. A missing record is reported as a
// *cerr.NotFoundError.
func Update[Q postgres.Queryer](
	ctx context.Context,
	q Q,
	record *model.SchemaRecord,
	edges []*model.DependencyEdge,
) error {
	gdb := q.GORM(ctx)
	u := gdb.Model(&gSchemaRecord{}).Where(
		"id=?", record.ID,
	).Updates(map[string]any{
		"name":       record.Name,
		"table_name": record.TableName,
		"definition": []byte(record.Definition),
		"updated_at": record.UpdatedAt,
	})
	if err := u.Error; err != nil {
		return fmt.Errorf("updating schema record: %w", err)
	}
	if u.RowsAffected == 0 {
		return &cerr.NotFoundError{
			Kind: "schema", Key: record.ID.String(),
		}
	}
	d := gdb.Where(
		"from_schema_id=?", record.ID,
	).Delete(&gDependencyEdge{})
	if err := d.Error; err != nil {
		return fmt.Errorf("removing outgoing edges: %w", err)
	}
	return insertEdges(ctx, q, edges)
}

// SetStatus moves the identified record to the given lifecycle status
// and returns the updated record, relying on the RETURNING clause in
// order to fetch the updated row without a second round-trip.
func SetStatus[Q postgres.Queryer](
	ctx context.Context,
	q Q,
	id uuid.UUID,
	status model.SchemaStatus,
) (*model.SchemaRecord, error) {
	gdb := q.GORM(ctx)
	var grs []gSchemaRecord
	gdb.Model(&grs).Clauses(clause.Returning{}).Where(
		"id=?", id,
	).Updates(map[string]any{
		"status":     string(status),
		"updated_at": gorm.Expr("now()"),
	})
	if err := gdb.Error; err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if n := len(grs); n != 1 {
		return nil, &cerr.NotFoundError{
			Kind: "schema", Key: id.String(),
		}
	}
	return grs[0].Model(), nil
}

// Delete removes the identified record and its outgoing edges, while
// incoming edges are unbound by setting their to_schema_id to null,
// so the dependents keep their unresolved references.
func Delete[Q postgres.Queryer](
	ctx context.Context, q Q, id uuid.UUID,
) error {
	gdb := q.GORM(ctx)
	d := gdb.Where("from_schema_id=?", id).Delete(&gDependencyEdge{})
	if err := d.Error; err != nil {
		return fmt.Errorf("removing outgoing edges: %w", err)
	}
	u := gdb.Model(&gDependencyEdge{}).Where(
		"to_schema_id=?", id,
	).Update("to_schema_id", nil)
	if err := u.Error; err != nil {
		return fmt.Errorf("unbinding incoming edges: %w", err)
	}
	d = gdb.Where("id=?", id).Delete(&gSchemaRecord{})
	if err := d.Error; err != nil {
		return fmt.Errorf("deleting schema record: %w", err)
	}
	if d.RowsAffected == 0 {
		return &cerr.NotFoundError{Kind: "schema", Key: id.String()}
	}
	return nil
}

// RebindEdges points all unbound edges naming the given model at the
// given record, returning the number of rebound edges.
func RebindEdges[Q postgres.Queryer](
	ctx context.Context, q Q, modelID string, to uuid.UUID,
) (int64, error) {
	gdb := q.GORM(ctx)
	u := gdb.Model(&gDependencyEdge{}).Where(
		"to_model_id=? AND to_schema_id IS NULL", modelID,
	).Update("to_schema_id", to)
	if err := u.Error; err != nil {
		return 0, fmt.Errorf("rebinding edges: %w", err)
	}
	return u.RowsAffected, nil
}

// GetByID returns the record with the given ID or a
// *cerr.NotFoundError.
func GetByID[Q postgres.Queryer](
	ctx context.Context, q Q, id uuid.UUID,
) (*model.SchemaRecord, error) {
	return getOne(
		ctx, q,
		&cerr.NotFoundError{Kind: "schema", Key: id.String()},
		"id=?", id,
	)
}

// GetByModelAndVersion returns the record of the given model and
// version pair or a *cerr.NotFoundError.
func GetByModelAndVersion[Q postgres.Queryer](
	ctx context.Context, q Q, modelID, version string,
) (*model.SchemaRecord, error) {
	return getOne(
		ctx, q,
		&cerr.NotFoundError{
			Kind: "schema", Key: modelID + "@" + version,
		},
		"model_id=? AND version=?", modelID, version,
	)
}

// LatestActiveByModel returns the active record of the given model or
// a *cerr.NotFoundError. The partial unique index on active records
// guarantees at most one match.
func LatestActiveByModel[Q postgres.Queryer](
	ctx context.Context, q Q, modelID string,
) (*model.SchemaRecord, error) {
	return getOne(
		ctx, q,
		&cerr.NotFoundError{Kind: "active schema", Key: modelID},
		"model_id=? AND status=?", modelID, string(model.StatusActive),
	)
}

// LatestActiveByTable returns the active record owning the given
// table name or a *cerr.NotFoundError.
func LatestActiveByTable[Q postgres.Queryer](
	ctx context.Context, q Q, table string,
) (*model.SchemaRecord, error) {
	return getOne(
		ctx, q,
		&cerr.NotFoundError{Kind: "active schema", Key: table},
		"table_name=? AND status=?", table, string(model.StatusActive),
	)
}

func getOne[Q postgres.Queryer](
	ctx context.Context,
	q Q,
	notFound *cerr.NotFoundError,
	cond string,
	args ...any,
) (*model.SchemaRecord, error) {
	gdb := q.GORM(ctx)
	var grs []gSchemaRecord
	gdb.Where(cond, args...).Limit(1).Find(&grs)
	if err := gdb.Error; err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if len(grs) == 0 {
		return nil, notFound
	}
	return grs[0].Model(), nil
}

// List returns the records matching the given filter, ordered by
// model_id ascending and then by creation time descending.
func List[Q postgres.Queryer](
	ctx context.Context, q Q, filter repo.SchemaFilter,
) ([]*model.SchemaRecord, error) {
	gdb := q.GORM(ctx)
	if filter.ModelID != "" {
		gdb = gdb.Where("model_id=?", filter.ModelID)
	}
	if filter.Status != "" {
		gdb = gdb.Where("status=?", string(filter.Status))
	}
	var grs []gSchemaRecord
	gdb = gdb.Order("model_id ASC, created_at DESC").Find(&grs)
	if err := gdb.Error; err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	records := make([]*model.SchemaRecord, len(grs))
	for i := range grs {
		records[i] = grs[i].Model()
	}
	return records, nil
}

// ListEdges returns the outgoing dependency edges of the given record.
func ListEdges[Q postgres.Queryer](
	ctx context.Context, q Q, from uuid.UUID,
) ([]*model.DependencyEdge, error) {
	return listEdges(ctx, q, "from_schema_id=?", from)
}

// ListDependentEdges returns the edges pointing at the given record,
// that is, the edges of its direct dependents.
func ListDependentEdges[Q postgres.Queryer](
	ctx context.Context, q Q, to uuid.UUID,
) ([]*model.DependencyEdge, error) {
	return listEdges(ctx, q, "to_schema_id=?", to)
}

// ListAllEdges returns every dependency edge of the store.
func ListAllEdges[Q postgres.Queryer](
	ctx context.Context, q Q,
) ([]*model.DependencyEdge, error) {
	return listEdges(ctx, q, "")
}

func listEdges[Q postgres.Queryer](
	ctx context.Context, q Q, cond string, args ...any,
) ([]*model.DependencyEdge, error) {
	gdb := q.GORM(ctx)
	if cond != "" {
		gdb = gdb.Where(cond, args...)
	}
	var ges []gDependencyEdge
	gdb = gdb.Order("to_model_id ASC, field_name ASC").Find(&ges)
	if err := gdb.Error; err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	edges := make([]*model.DependencyEdge, len(ges))
	for i := range ges {
		edges[i] = ges[i].Model()
	}
	return edges, nil
}
