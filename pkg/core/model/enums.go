// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package model

import (
	"errors"
	"fmt"
)

// SchemaStatus enumerates the lifecycle states of a stored schema
// record. The enum is kept as a string because it is persisted and
// transmitted in its textual form and has no ordering semantics.
type SchemaStatus string

// Valid values for the SchemaStatus enum. A record is born as a draft,
// becomes the single active version of its model on activation, and
// ends as deprecated when a newer version takes over. Deprecated is
// terminal; a deprecated definition can only be studied or deleted.
const (
	StatusDraft      SchemaStatus = "draft"
	StatusActive     SchemaStatus = "active"
	StatusDeprecated SchemaStatus = "deprecated"
)

// ErrUnknownSchemaStatus indicates that a given string may not be
// parsed as a valid schema lifecycle status. Callers of
// ParseSchemaStatus already know the offending string, so this
// sentinel does not repeat it; wrapping adds the context.
var ErrUnknownSchemaStatus = errors.New("unknown schema status")

// SchemaStatusError indicates an invalid schema status, carrying the
// rejected value for functions which discover the value during their
// execution rather than receiving it as an argument.
type SchemaStatusError string

// Error implements the error interface, returning a string
// representation of the SchemaStatusError.
func (e SchemaStatusError) Error() string {
	return fmt.Sprintf("invalid schema status: %q", string(e))
}

// Unwrap returns ErrUnknownSchemaStatus, so errors.Is can match all
// invalid status errors without inspecting the carried value.
func (e SchemaStatusError) Unwrap() error {
	return ErrUnknownSchemaStatus
}

// Validate returns nil if the SchemaStatus value is valid. For invalid
// values, an instance of SchemaStatusError will be returned.
func (s SchemaStatus) Validate() error {
	switch s {
	case StatusDraft, StatusActive, StatusDeprecated:
		return nil
	default:
		return SchemaStatusError(s)
	}
}

// ParseSchemaStatus parses the given string as a SchemaStatus, helping
// to deserialize it when reading a REST API request.
func ParseSchemaStatus(s string) (SchemaStatus, error) {
	st := SchemaStatus(s)
	if err := st.Validate(); err != nil {
		return "", err
	}
	return st, nil
}

// MigrationStatus enumerates the lifecycle states of a generated
// migration record. The engine itself only creates pending records;
// the applied, rolled_back, and failed states are recorded on behalf
// of the collaborator which executes the scripts.
type MigrationStatus string

// Valid values for the MigrationStatus enum.
const (
	MigrationPending    MigrationStatus = "pending"
	MigrationApplied    MigrationStatus = "applied"
	MigrationRolledBack MigrationStatus = "rolled_back"
	MigrationFailed     MigrationStatus = "failed"
)

// ErrUnknownMigrationStatus indicates that a given string may not be
// parsed as a valid migration status.
var ErrUnknownMigrationStatus = errors.New("unknown migration status")

// Validate returns nil if the MigrationStatus value is valid.
func (s MigrationStatus) Validate() error {
	switch s {
	case MigrationPending, MigrationApplied,
		MigrationRolledBack, MigrationFailed:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMigrationStatus, string(s))
	}
}

// ChangeType enumerates the audit event kinds which are recorded in
// the append-only change log, one per mutating repository operation.
type ChangeType string

// Valid values for the ChangeType enum.
const (
	ChangeCreated    ChangeType = "created"
	ChangeUpdated    ChangeType = "updated"
	ChangeActivated  ChangeType = "activated"
	ChangeDeprecated ChangeType = "deprecated"
	ChangeDeleted    ChangeType = "deleted"
)

// ErrUnknownChangeType indicates that a given string may not be parsed
// as a valid change log entry type.
var ErrUnknownChangeType = errors.New("unknown change type")

// Validate returns nil if the ChangeType value is valid.
func (c ChangeType) Validate() error {
	switch c {
	case ChangeCreated, ChangeUpdated, ChangeActivated,
		ChangeDeprecated, ChangeDeleted:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChangeType, string(c))
	}
}

// DependencyType enumerates the kinds of inter-schema dependency
// edges. A foreign_key edge is derived from a database.foreignKey
// hint and constrains the physical table order, while a reference
// edge is derived from relationship metadata and only documents the
// logical coupling.
type DependencyType string

// Valid values for the DependencyType enum.
const (
	DependencyForeignKey DependencyType = "foreign_key"
	DependencyReference  DependencyType = "reference"
)

// ErrUnknownDependencyType indicates that a given string may not be
// parsed as a valid dependency edge type.
var ErrUnknownDependencyType = errors.New("unknown dependency type")

// Validate returns nil if the DependencyType value is valid.
func (d DependencyType) Validate() error {
	switch d {
	case DependencyForeignKey, DependencyReference:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDependencyType, string(d))
	}
}
