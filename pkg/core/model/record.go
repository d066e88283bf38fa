// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// SchemaRecord is one persisted, versioned schema artifact. The
// Definition blob holds the accepted document byte-for-byte and is
// immutable once the record leaves the draft status; a changed model
// requires a new record with a new version. At most one record per
// ModelID is active at any time.
type SchemaRecord struct {
	ID      uuid.UUID
	ModelID string

	// Version is the strict semantic version string of the definition.
	// The (ModelID, Version) pair is unique among all records.
	Version string

	Name      string
	TableName string

	// Definition is the raw accepted JSON document. Keys the engine
	// does not interpret survive here verbatim.
	Definition json.RawMessage

	Status SchemaStatus

	// IsSystem marks engine-owned records which are immutable and
	// undeletable regardless of their lifecycle status.
	IsSystem bool

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ParsedDefinition decodes the record's raw definition blob into its
// interpreted SchemaDefinition view.
func (r *SchemaRecord) ParsedDefinition() (*SchemaDefinition, error) {
	return ParseDefinition(r.Definition)
}

// DependencyEdge is one directed dependency relation, pointing from
// the dependent schema record to the model (and, when resolved, the
// concrete record) it references. ToSchemaID stays nil while the
// referenced model has no active schema; resolvers treat such an edge
// as unsatisfied.
type DependencyEdge struct {
	ID           uuid.UUID
	FromSchemaID uuid.UUID
	ToSchemaID   *uuid.UUID
	ToModelID    string
	Type         DependencyType

	// FieldName records the property which contributed the edge, when
	// the edge is derived from a field-level hint.
	FieldName string

	// Config preserves auxiliary edge data, like the referential
	// actions of a foreign key, as an uninterpreted JSON object.
	Config json.RawMessage
}

// MigrationRecord is one generated pair of forward and rollback SQL
// scripts transitioning a model between two schema versions. Records
// are immutable after creation except for their execution status,
// which a database driver collaborator reports back.
type MigrationRecord struct {
	ID uuid.UUID

	// Name is the unique, deterministic migration name, derived from
	// the generation timestamp, model identifier, and version pair.
	Name string

	// FromSchemaID is nil for an initial table creation migration.
	FromSchemaID *uuid.UUID
	ToSchemaID   uuid.UUID

	FromVersion string
	ToVersion   string

	ForwardSQL  string
	RollbackSQL string

	// IsBreaking reports whether any contained change can fail when
	// applied to a populated table.
	IsBreaking bool

	Status    MigrationStatus
	AppliedAt *time.Time

	// Checksum is the hex MD5 digest of ForwardSQL, letting executors
	// detect a script which was edited after generation.
	Checksum string

	CreatedAt time.Time
}

// ChangeLogEntry is one append-only audit record of a schema mutation.
// State snapshots are raw JSON objects, so the log can be rendered
// without re-interpreting historical definitions.
type ChangeLogEntry struct {
	ID       uuid.UUID
	SchemaID uuid.UUID
	Type     ChangeType

	// PreviousState and NewState snapshot the record before and after
	// the mutation. Either may be nil, like the previous state of a
	// creation or the new state of a deletion.
	PreviousState json.RawMessage
	NewState      json.RawMessage

	// Actor identifies who requested the mutation.
	Actor string

	OccurredAt time.Time
}

// SchemaChange is the payload handed to a change hook on every change
// log write, letting a host broadcast lifecycle events without
// polling the log.
type SchemaChange struct {
	Type          ChangeType
	SchemaID      uuid.UUID
	ModelID       string
	PreviousState json.RawMessage
	NewState      json.RawMessage
}
