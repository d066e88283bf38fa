// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cerr

import (
	"fmt"
	"strings"
)

// InvalidDefinitionError indicates that a schema definition document
// was rejected by the validator. The Issues slice keeps one message
// per violation, in the order of detection, so all problems can be
// reported to the end-user at once.
type InvalidDefinitionError struct {
	Issues []string
}

// Error returns a string representation of `e` error instance,
// joining all recorded validation issues. This method causes
// *InvalidDefinitionError to implement error interface.
func (e *InvalidDefinitionError) Error() string {
	return fmt.Sprintf(
		"invalid definition: %s", strings.Join(e.Issues, "; "),
	)
}

// DuplicateVersionError indicates that a schema record with the same
// model identifier and semantic version pair is already persisted.
type DuplicateVersionError struct {
	ModelID string
	Version string
}

// Error implements the error interface.
func (e *DuplicateVersionError) Error() string {
	return fmt.Sprintf(
		"schema %s version %s already exists", e.ModelID, e.Version,
	)
}

// NotFoundError indicates that no entity of the Kind kind could be
// found using the Key lookup key.
type NotFoundError struct {
	Kind string
	Key  string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// ImmutableSystemError indicates an attempt to mutate or delete an
// engine-owned system schema record.
type ImmutableSystemError struct {
	ModelID string
}

// Error implements the error interface.
func (e *ImmutableSystemError) Error() string {
	return fmt.Sprintf(
		"schema %s is a system schema and cannot be modified", e.ModelID,
	)
}

// ImmutableActiveError indicates an attempt to update the definition
// of a schema record which has left the draft status.
type ImmutableActiveError struct {
	ModelID string
	Version string
	Status  string
}

// Error implements the error interface.
func (e *ImmutableActiveError) Error() string {
	return fmt.Sprintf(
		"schema %s version %s is %s and cannot be updated; "+
			"create a new version instead",
		e.ModelID, e.Version, e.Status,
	)
}

// ActiveNotDeletableError indicates an attempt to delete a schema
// record while it is the active version of its model.
type ActiveNotDeletableError struct {
	ModelID string
	Version string
}

// Error implements the error interface.
func (e *ActiveNotDeletableError) Error() string {
	return fmt.Sprintf(
		"schema %s version %s is active; deprecate it before deletion",
		e.ModelID, e.Version,
	)
}

// HasDependentsError indicates an attempt to delete a schema record
// while other schemas still depend on it. Dependents enumerates the
// model identifiers of the blocking schemas.
type HasDependentsError struct {
	ModelID    string
	Dependents []string
}

// Error implements the error interface.
func (e *HasDependentsError) Error() string {
	return fmt.Sprintf(
		"schema %s has dependents: %s",
		e.ModelID, strings.Join(e.Dependents, ", "),
	)
}

// CircularDependencyError indicates that a topological ordering pass
// could not consume the entire dependency graph. Residual enumerates
// the model identifiers taking part in at least one cycle.
type CircularDependencyError struct {
	Residual []string
}

// Error implements the error interface.
func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf(
		"circular dependency among: %s", strings.Join(e.Residual, ", "),
	)
}

// InvalidIdentifierError indicates that a name could not be used as a
// SQL identifier, such as an empty or oversized table name.
type InvalidIdentifierError struct {
	Identifier string
}

// Error implements the error interface.
func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid SQL identifier: %q", e.Identifier)
}

// IncompatibleTypeChangeError indicates that a column type change has
// no safe cast expression, hence, a generated migration would fail on
// populated tables.
type IncompatibleTypeChangeError struct {
	From string
	To   string
}

// Error implements the error interface.
func (e *IncompatibleTypeChangeError) Error() string {
	return fmt.Sprintf(
		"cannot cast column type %s to %s", e.From, e.To,
	)
}

// MigrationNameConflictError indicates that a migration record with
// the same deterministic name exists already and regeneration was not
// requested explicitly.
type MigrationNameConflictError struct {
	Name string
}

// Error implements the error interface.
func (e *MigrationNameConflictError) Error() string {
	return fmt.Sprintf("migration %s already exists", e.Name)
}

// UnresolvedDependencyError indicates a dependency edge pointing to a
// model identifier which has no active schema record.
type UnresolvedDependencyError struct {
	ToModelID string
}

// Error implements the error interface.
func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf(
		"dependency on model %s cannot be resolved to an active schema",
		e.ToModelID,
	)
}
