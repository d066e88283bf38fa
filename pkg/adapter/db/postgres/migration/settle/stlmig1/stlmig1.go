// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package stlmig1 provides Settler type for store schema major
// version 1 with two main usages. First, it can be used to initialize
// a store with major version 1 schema, having development or
// production suitable sample data. Second, it can be used to settle
// a store schema upgrade operation by reading views from the mig1
// intermediate schema and filling tables in the target schema
// without converting their format (e.g., column names) in order to
// persist the upgrade results.
package stlmig1

import (
	"context"
	"fmt"

	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/repo"
	"github.com/momeni/schema-forge/pkg/core/usecase/storeuc"
)

// These constants indicate the major, minor, and patch components of
// the store schema migration settler implementation. Each major
// version has a separate stlmigN package and the Minor is the latest
// supported minor version within the Major major version series.
const (
	Major = 1
	Minor = 1
	Patch = 0
)

// Settler struct provides the store schema migration settlement
// logic for the major version 1. Settlement is the last phase of
// a store upgrade which persists the prepared views contents into
// their corresponding tables. See the SettleStore method for this
// use case. It can also be used for creation and filling of tables
// with the development and production suitable initial data. Check
// the InitDevStore and InitProdStore methods for this purpose.
//
// Each instance of Settler wraps and uses a single transaction of the
// engine database, but the caller is responsible to commit that
// transaction in order to finalize the settlement or initialization
// operation results.
type Settler struct {
	tx repo.Tx // engine database transaction
}

// New creates a new Settler instance, wrapping the given `tx` database
// transaction. The settler object expects the target store schema,
// such as forge1_1_0, to exist and only tries to create relevant
// tables in that schema.
func New(tx repo.Tx) *Settler {
	return &Settler{
		tx: tx,
	}
}

// SettleStore creates major version 1 tables in the forge1_1_0 schema
// (representing the v1.1 store) and fills them with the contents of
// those views which are prepared in the mig1 schema.
// The mig1 schema and forge1_1_0 schema have views and tables with the
// same format, so no conversion will happen. Ideally, this is the
// only operation which copies the store rows, after they were
// converted logically by passing through the src and mig schemata
// views, and then persists them in tables of the forge1_1_0 schema.
func (sm1 *Settler) SettleStore(ctx context.Context) error {
	if err := sm1.createTables(ctx); err != nil {
		return err
	}
	tsn := schemaName()
	msn := storeuc.MigrationSchemaName(Major)
	for _, stmt := range []string{
		fmt.Sprintf(`INSERT INTO %q.schema_records
(id, model_id, version, name, table_name, definition,
 status, is_system, created_by, created_at, updated_at)
SELECT id, model_id, version, name, table_name, definition,
 status, is_system, created_by, created_at, updated_at
FROM %q.schema_records`, tsn, msn),
		fmt.Sprintf(`INSERT INTO %q.schema_dependency_edges
(id, from_schema_id, to_schema_id, to_model_id,
 dependency_type, field_name, config)
SELECT id, from_schema_id, to_schema_id, to_model_id,
 dependency_type, field_name, config
FROM %q.schema_dependency_edges`, tsn, msn),
		fmt.Sprintf(`INSERT INTO %q.schema_migrations
(id, name, from_schema_id, to_schema_id, from_version, to_version,
 forward_sql, rollback_sql, is_breaking, status, applied_at,
 checksum, created_at)
SELECT id, name, from_schema_id, to_schema_id, from_version,
 to_version, forward_sql, rollback_sql, is_breaking, status,
 applied_at, checksum, created_at
FROM %q.schema_migrations`, tsn, msn),
		fmt.Sprintf(`INSERT INTO %q.schema_change_log
(id, schema_id, change_type, previous_state, new_state,
 actor, occurred_at)
SELECT id, schema_id, change_type, previous_state, new_state,
 actor, occurred_at
FROM %q.schema_change_log`, tsn, msn),
		fmt.Sprintf(`INSERT INTO %q.forge_settings
(component, config)
SELECT component, config FROM %q.forge_settings`, tsn, msn),
	} {
		if _, err := sm1.tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("filling v1 tables: %w", err)
		}
	}
	return nil
}

// InitDevStore creates major version 1 tables in the forge1_1_0
// schema and fills them with the development suitable initial data,
// that is, the sample users, posts, and comments model family together
// with their derived dependency edges.
func (sm1 *Settler) InitDevStore(ctx context.Context) error {
	if err := sm1.createTables(ctx); err != nil {
		return err
	}
	tsn := schemaName()
	if _, err := sm1.tx.Exec(
		ctx,
		fmt.Sprintf(`INSERT INTO %q.schema_records
(id, model_id, version, name, table_name, definition,
 status, is_system, created_by)
VALUES
('%s', 'User', '1.0.0', 'Users', 'users', '%s',
 'active', false, 'init'),
('%s', 'Post', '1.0.0', 'Posts', 'posts', '%s',
 'active', false, 'init'),
('%s', 'Comment', '1.0.0', 'Comments', 'comments', '%s',
 'draft', false, 'init')`,
			tsn,
			usersID, usersDef,
			postsID, postsDef,
			commentsID, commentsDef,
		),
	); err != nil {
		return fmt.Errorf("inserting sample schema records: %w", err)
	}
	if _, err := sm1.tx.Exec(
		ctx,
		fmt.Sprintf(`INSERT INTO %[1]q.schema_dependency_edges
(id, from_schema_id, to_schema_id, to_model_id,
 dependency_type, field_name, config)
VALUES
('%[2]s', '%[3]s', '%[4]s', 'User', 'foreign_key', 'author_id',
 '{"table":"users","column":"id","onDelete":"CASCADE"}'),
('%[5]s', '%[6]s', '%[3]s', 'Post', 'foreign_key', 'post_id',
 '{"table":"posts","column":"id","onDelete":"CASCADE"}'),
('%[7]s', '%[6]s', '%[4]s', 'User', 'foreign_key', 'author_id',
 '{"table":"users","column":"id"}')`,
			tsn,
			postsAuthorEdgeID, postsID, usersID,
			commentsPostEdgeID, commentsID,
			commentsAuthorEdgeID,
		),
	); err != nil {
		return fmt.Errorf("inserting sample dependency edges: %w", err)
	}
	return nil
}

// InitProdStore creates major version 1 tables in the forge1_1_0
// schema without any initial data rows, as suitable for a production
// deployment which registers its own models.
func (sm1 *Settler) InitProdStore(ctx context.Context) error {
	return sm1.createTables(ctx)
}

// PersistSettings writes the given serialized mutable settings into
// the forge_settings table, overwriting the previously persisted
// settings (if any). The `ms` must be a valid json string since the
// config column has the jsonb type.
func (sm1 *Settler) PersistSettings(
	ctx context.Context, ms []byte,
) error {
	if _, err := sm1.tx.Exec(
		ctx,
		fmt.Sprintf(`INSERT INTO %q.forge_settings
(component, config) VALUES ('forge', $1)
ON CONFLICT (component) DO UPDATE SET config=EXCLUDED.config`,
			schemaName(),
		),
		ms,
	); err != nil {
		return fmt.Errorf("upserting forge settings row: %w", err)
	}
	return nil
}

// MajorVersion returns the major semantic version of this Settler
// instance. This value matches with the Major constant which is defined
// in this package. Indeed, this method can be called with a nil
// instance too because it only depends on the Settler type (not its
// instance).
func (sm1 *Settler) MajorVersion() uint {
	return Major
}

// schemaName returns the target store schema name for the latest
// supported version in the major version 1 series, like forge1_1_0.
func schemaName() string {
	return storeuc.SchemaName(model.SemVer{Major, Minor, Patch})
}

// createTables creates the five v1.1 store tables in the target store
// schema. The schema itself must exist beforehand.
func (sm1 *Settler) createTables(ctx context.Context) error {
	tsn := schemaName()
	for _, stmt := range []string{
		fmt.Sprintf(`CREATE TABLE %q.schema_records (
	id uuid PRIMARY KEY,
	model_id text NOT NULL,
	version text NOT NULL,
	name text NOT NULL,
	table_name text NOT NULL,
	definition jsonb NOT NULL,
	status text NOT NULL,
	is_system boolean NOT NULL DEFAULT false,
	created_by text NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now(),
	CONSTRAINT uq_schema_records_model_version
		UNIQUE (model_id, version)
)`, tsn),
		fmt.Sprintf(`CREATE UNIQUE INDEX
uq_schema_records_active_model
ON %q.schema_records (model_id) WHERE status='active'`, tsn),
		fmt.Sprintf(`CREATE TABLE %[1]q.schema_dependency_edges (
	id uuid PRIMARY KEY,
	from_schema_id uuid NOT NULL
		REFERENCES %[1]q.schema_records (id),
	to_schema_id uuid REFERENCES %[1]q.schema_records (id),
	to_model_id text NOT NULL,
	dependency_type text NOT NULL,
	field_name text NOT NULL DEFAULT '',
	config jsonb
)`, tsn),
		fmt.Sprintf(`CREATE INDEX idx_schema_dependency_edges_from
ON %q.schema_dependency_edges (from_schema_id)`, tsn),
		fmt.Sprintf(`CREATE INDEX idx_schema_dependency_edges_to
ON %q.schema_dependency_edges (to_schema_id)`, tsn),
		fmt.Sprintf(`CREATE INDEX idx_schema_dependency_edges_to_model
ON %q.schema_dependency_edges (to_model_id)`, tsn),
		fmt.Sprintf(`CREATE TABLE %[1]q.schema_migrations (
	id uuid PRIMARY KEY,
	name text NOT NULL
		CONSTRAINT uq_schema_migrations_name UNIQUE,
	from_schema_id uuid REFERENCES %[1]q.schema_records (id),
	to_schema_id uuid NOT NULL REFERENCES %[1]q.schema_records (id),
	from_version text NOT NULL DEFAULT '',
	to_version text NOT NULL,
	forward_sql text NOT NULL,
	rollback_sql text NOT NULL,
	is_breaking boolean NOT NULL DEFAULT false,
	status text NOT NULL,
	applied_at timestamptz,
	checksum text NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now()
)`, tsn),
		fmt.Sprintf(`CREATE TABLE %q.schema_change_log (
	id uuid PRIMARY KEY,
	schema_id uuid NOT NULL,
	change_type text NOT NULL,
	previous_state jsonb,
	new_state jsonb,
	actor text NOT NULL,
	occurred_at timestamptz NOT NULL DEFAULT now()
)`, tsn),
		fmt.Sprintf(`CREATE INDEX idx_schema_change_log_schema
ON %q.schema_change_log (schema_id, occurred_at)`, tsn),
		fmt.Sprintf(`CREATE TABLE %q.forge_settings (
	component text PRIMARY KEY,
	config jsonb NOT NULL
)`, tsn),
	} {
		if _, err := sm1.tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("creating v1 tables: %w", err)
		}
	}
	return nil
}

// Fixed identifiers of the development suitable sample rows, so a
// repeated development initialization stays deterministic.
const (
	usersID    = "0d2645fd-0c98-418a-a801-00000000a001"
	postsID    = "0d2645fd-0c98-418a-a801-00000000a002"
	commentsID = "0d2645fd-0c98-418a-a801-00000000a003"

	postsAuthorEdgeID    = "0d2645fd-0c98-418a-a801-00000000e001"
	commentsPostEdgeID   = "0d2645fd-0c98-418a-a801-00000000e002"
	commentsAuthorEdgeID = "0d2645fd-0c98-418a-a801-00000000e003"
)

// Development suitable sample definitions, namely the users, posts,
// and comments model family. They contain no single quote, so they can
// be embedded in the insertion statements directly.
const (
	usersDef = `{` +
		`"$schema":"` + model.MetaSchemaID + `",` +
		`"model_id":"User","version":"1.0.0",` +
		`"name":"Users","description":"Registered user accounts",` +
		`"table":"users","properties":{` +
		`"id":{"type":"integer","database":{"primaryKey":true}},` +
		`"email":{"type":"string","format":"email",` +
		`"database":{"notNull":true,"unique":true}},` +
		`"created_at":{"type":"string","format":"date-time",` +
		`"database":{"default":"NOW()"}}},` +
		`"required":["id","email"]}`

	postsDef = `{` +
		`"$schema":"` + model.MetaSchemaID + `",` +
		`"model_id":"Post","version":"1.0.0",` +
		`"name":"Posts","table":"posts","properties":{` +
		`"id":{"type":"integer","database":{"primaryKey":true}},` +
		`"author_id":{"type":"integer",` +
		`"database":{"notNull":true,"index":true,` +
		`"foreignKey":{"table":"users","column":"id",` +
		`"onDelete":"CASCADE"}},` +
		`"relationship":{"model":"User","type":"belongsTo"}},` +
		`"title":{"type":"string",` +
		`"database":{"length":200,"notNull":true}},` +
		`"body":{"type":"string"}},` +
		`"required":["id","author_id","title"]}`

	commentsDef = `{` +
		`"$schema":"` + model.MetaSchemaID + `",` +
		`"model_id":"Comment","version":"1.0.0",` +
		`"name":"Comments","table":"comments","properties":{` +
		`"id":{"type":"integer","database":{"primaryKey":true}},` +
		`"post_id":{"type":"integer",` +
		`"database":{"notNull":true,"index":true,` +
		`"foreignKey":{"table":"posts","column":"id",` +
		`"onDelete":"CASCADE"}},` +
		`"relationship":{"model":"Post","type":"belongsTo"}},` +
		`"author_id":{"type":"integer",` +
		`"database":{"notNull":true,` +
		`"foreignKey":{"table":"users","column":"id"}},` +
		`"relationship":{"model":"User","type":"belongsTo"}},` +
		`"body":{"type":"string"}},` +
		`"required":["id","post_id","author_id"]}`
)
