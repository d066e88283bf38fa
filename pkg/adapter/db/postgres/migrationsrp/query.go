// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package migrationsrp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres"
	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/model"
)

type gMigrationRecord struct {
	ID           uuid.UUID  `gorm:"primaryKey;type:uuid;column:id"`
	Name         string     `gorm:"column:name"`
	FromSchemaID *uuid.UUID `gorm:"type:uuid;column:from_schema_id"`
	ToSchemaID   uuid.UUID  `gorm:"type:uuid;column:to_schema_id"`
	FromVersion  string
	ToVersion    string
	ForwardSQL   string `gorm:"column:forward_sql"`
	RollbackSQL  string `gorm:"column:rollback_sql"`
	IsBreaking   bool
	Status       string
	AppliedAt    *time.Time
	Checksum     string
	CreatedAt    time.Time
}

func (gm *gMigrationRecord) TableName() string {
	return "schema_migrations"
}

func (gm *gMigrationRecord) Model() *model.MigrationRecord {
	return &model.MigrationRecord{
		ID:           gm.ID,
		Name:         gm.Name,
		FromSchemaID: gm.FromSchemaID,
		ToSchemaID:   gm.ToSchemaID,
		FromVersion:  gm.FromVersion,
		ToVersion:    gm.ToVersion,
		ForwardSQL:   gm.ForwardSQL,
		RollbackSQL:  gm.RollbackSQL,
		IsBreaking:   gm.IsBreaking,
		Status:       model.MigrationStatus(gm.Status),
		AppliedAt:    gm.AppliedAt,
		Checksum:     gm.Checksum,
		CreatedAt:    gm.CreatedAt,
	}
}

func fromRecord(m *model.MigrationRecord) *gMigrationRecord {
	return &gMigrationRecord{
		ID:           m.ID,
		Name:         m.Name,
		FromSchemaID: m.FromSchemaID,
		ToSchemaID:   m.ToSchemaID,
		FromVersion:  m.FromVersion,
		ToVersion:    m.ToVersion,
		ForwardSQL:   m.ForwardSQL,
		RollbackSQL:  m.RollbackSQL,
		IsBreaking:   m.IsBreaking,
		Status:       string(m.Status),
		AppliedAt:    m.AppliedAt,
		Checksum:     m.Checksum,
		CreatedAt:    m.CreatedAt,
	}
}

// Create inserts the given migration record. A collision on the
// unique deterministic name is reported as a
// *cerr.MigrationNameConflictError.
func Create[Q postgres.Queryer](
	ctx context.Context, q Q, m *model.MigrationRecord,
) error {
	gdb := q.GORM(ctx)
	if err := gdb.Create(fromRecord(m)).Error; err != nil {
		var perr *pgconn.PgError
		if errors.As(err, &perr) && perr.Code == "23505" &&
			perr.ConstraintName == "uq_schema_migrations_name" {
			return &cerr.MigrationNameConflictError{Name: m.Name}
		}
		return fmt.Errorf("inserting migration record: %w", err)
	}
	return nil
}

// DeleteByID removes the identified migration record, so a
// regeneration request can replace a pending migration atomically.
func DeleteByID[Q postgres.Queryer](
	ctx context.Context, q Q, id uuid.UUID,
) error {
	gdb := q.GORM(ctx)
	d := gdb.Where("id=?", id).Delete(&gMigrationRecord{})
	if err := d.Error; err != nil {
		return fmt.Errorf("deleting migration record: %w", err)
	}
	if d.RowsAffected == 0 {
		return &cerr.NotFoundError{Kind: "migration", Key: id.String()}
	}
	return nil
}

// GetByID returns the record with the given ID or a
// *cerr.NotFoundError.
func GetByID[Q postgres.Queryer](
	ctx context.Context, q Q, id uuid.UUID,
) (*model.MigrationRecord, error) {
	return getOne(
		ctx, q,
		&cerr.NotFoundError{Kind: "migration", Key: id.String()},
		"id=?", id,
	)
}

// GetByName returns the record with the given unique name or a
// *cerr.NotFoundError.
func GetByName[Q postgres.Queryer](
	ctx context.Context, q Q, name string,
) (*model.MigrationRecord, error) {
	return getOne(
		ctx, q,
		&cerr.NotFoundError{Kind: "migration", Key: name},
		"name=?", name,
	)
}

func getOne[Q postgres.Queryer](
	ctx context.Context,
	q Q,
	notFound *cerr.NotFoundError,
	cond string,
	args ...any,
) (*model.MigrationRecord, error) {
	gdb := q.GORM(ctx)
	var gms []gMigrationRecord
	gdb.Where(cond, args...).Limit(1).Find(&gms)
	if err := gdb.Error; err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if len(gms) == 0 {
		return nil, notFound
	}
	return gms[0].Model(), nil
}

// List returns the migration records, newest first. A non-empty
// modelID restricts the listing to migrations whose target schema
// record belongs to that model.
func List[Q postgres.Queryer](
	ctx context.Context, q Q, modelID string,
) ([]*model.MigrationRecord, error) {
	gdb := q.GORM(ctx)
	if modelID != "" {
		gdb = gdb.Joins(
			`JOIN schema_records
ON schema_records.id = schema_migrations.to_schema_id`,
		).Where("schema_records.model_id=?", modelID)
	}
	var gms []gMigrationRecord
	gdb = gdb.Order("schema_migrations.created_at DESC").Find(&gms)
	if err := gdb.Error; err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	records := make([]*model.MigrationRecord, len(gms))
	for i := range gms {
		records[i] = gms[i].Model()
	}
	return records, nil
}

// FindByVersionPair returns the migration transitioning the given
// model between the given version pair, or a *cerr.NotFoundError.
// The fromVersion is empty for initial creation migrations.
func FindByVersionPair[Q postgres.Queryer](
	ctx context.Context, q Q, modelID, fromVersion, toVersion string,
) (*model.MigrationRecord, error) {
	gdb := q.GORM(ctx)
	var gms []gMigrationRecord
	gdb.Joins(
		`JOIN schema_records
ON schema_records.id = schema_migrations.to_schema_id`,
	).Where(
		`schema_records.model_id=?
AND schema_migrations.from_version=?
AND schema_migrations.to_version=?`,
		modelID, fromVersion, toVersion,
	).Limit(1).Find(&gms)
	if err := gdb.Error; err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if len(gms) == 0 {
		return nil, &cerr.NotFoundError{
			Kind: "migration",
			Key:  modelID + ":" + fromVersion + "->" + toVersion,
		}
	}
	return gms[0].Model(), nil
}
