// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package sch1 provides database schema major version 1 verification
// logic. This implementation may be instantiated indirectly using
// the github.com/momeni/schema-forge/internal/test/schema package.
package sch1

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/momeni/schema-forge/pkg/adapter/db/postgres/migration/settle/stlmig1"
	"github.com/momeni/schema-forge/pkg/core/repo"
)

// These constants present the relevant major, minor, and patch semantic
// versions of this schema verifier package. They are initialized based
// on the stlmig1 package because whenever a new minor version is
// released, the stlmig1 has to be updated based on it and this verifier
// needs to verify its updated changes too.
// Also, the stlmig1 constants are not used directly, so users of this
// package do not need to import it just for checking the provided
// semantic version components.
const (
	Major = stlmig1.Major
	Minor = stlmig1.Minor
	Patch = stlmig1.Patch
)

// Verifier implements the schema major version 1 verification logic. It
// implements github.com/momeni/schema-forge/internal/test/schema.Verifier
// interface and wraps a database connection as noted in New function.
type Verifier struct {
	c repo.Conn // database connection which is used for testing
}

// New instantiates a Verifier struct, wrapping the `c` database
// connection. Since Verifier fields are not exported, the New function
// is required for its initialization.
func New(c repo.Conn) *Verifier {
	return &Verifier{c}
}

// errRollback aborts the verification transaction, so the scratch rows
// which were inserted for columns verification cannot be committed.
var errRollback = errors.New("sch1: rolling back scratch rows")

// Fixed identifiers of the scratch rows; they only exist within the
// uncommitted verification transaction.
const (
	scratchRecordID = "0d2645fd-0c98-418a-a801-00000000c001"
	scratchEdgeID   = "0d2645fd-0c98-418a-a801-00000000c002"
	scratchMigID    = "0d2645fd-0c98-418a-a801-00000000c003"
	scratchLogID    = "0d2645fd-0c98-418a-a801-00000000c004"
)

// VerifySchema uses the corresponding database connection of `v` in
// order to create and query temporary records in the database (e.g., in
// an uncommitted transaction), ensuring that the expected database
// schema with Major major version and Minor minor version is in place.
// If a more recent minor version was settled, this verification will
// pass too, so it is important to update this implementation whenever
// a new minor version is released.
// This process failures are reported using the `t` testing argument.
func (v *Verifier) VerifySchema(ctx context.Context, t *testing.T) {
	err := v.c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
		// Unqualified table names rely on the search_path of the
		// connected role, like the engine queries themselves.
		for _, stmt := range []string{
			`INSERT INTO schema_records
(id, model_id, version, name, table_name, definition,
 status, is_system, created_by, created_at, updated_at)
VALUES ('` + scratchRecordID + `', 'Sch1Scratch', '0.0.1',
 'Scratch', 'sch1_scratch', '{}', 'draft', false, 'sch1',
 now(), now())`,
			`INSERT INTO schema_dependency_edges
(id, from_schema_id, to_schema_id, to_model_id,
 dependency_type, field_name, config)
VALUES ('` + scratchEdgeID + `', '` + scratchRecordID + `',
 NULL, 'Sch1Scratch', 'reference', 'scratch_id', '{}')`,
			`INSERT INTO schema_migrations
(id, name, from_schema_id, to_schema_id, from_version, to_version,
 forward_sql, rollback_sql, is_breaking, status, applied_at,
 checksum, created_at)
VALUES ('` + scratchMigID + `', '00000000000000_sch1_scratch',
 NULL, '` + scratchRecordID + `', '', '0.0.1', '--', '--', false,
 'pending', NULL, 'd41d8cd98f00b204e9800998ecf8427e', now())`,
			`INSERT INTO schema_change_log
(id, schema_id, change_type, previous_state, new_state,
 actor, occurred_at)
VALUES ('` + scratchLogID + `', '` + scratchRecordID + `',
 'created', NULL, '{}', 'sch1', now())`,
			`INSERT INTO forge_settings (component, config)
VALUES ('sch1-scratch', '{}')`,
		} {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("inserting scratch rows: %w", err)
			}
		}
		for _, relation := range []string{
			"uq_schema_records_active_model",
			"idx_schema_dependency_edges_from",
			"idx_schema_dependency_edges_to",
			"idx_schema_dependency_edges_to_model",
			"idx_schema_change_log_schema",
		} {
			missing, err := isMissing(ctx, tx, relation)
			if err != nil {
				return fmt.Errorf("resolving %q: %w", relation, err)
			}
			if missing {
				return fmt.Errorf("missing %q index", relation)
			}
		}
		return errRollback
	})
	if !errors.Is(err, errRollback) {
		t.Errorf("verifying v1 schema: %v", err)
	}
}

// isMissing reports if the `relation` cannot be resolved using the
// search_path of the connected role.
func isMissing(
	ctx context.Context, tx repo.Tx, relation string,
) (bool, error) {
	rows, err := tx.Query(
		ctx, "SELECT to_regclass($1) IS NULL", relation,
	)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return false, fmt.Errorf("no resolution row: %w", rows.Err())
	}
	var missing bool
	if err := rows.Scan(&missing); err != nil {
		return false, err
	}
	return missing, rows.Err()
}

// VerifyDevData checks for presence of the development suitable initial
// data and marks possible issues using the `t` testing argument.
// Presence of extra rows is acceptable.
func (v *Verifier) VerifyDevData(ctx context.Context, t *testing.T) {
	for q, expected := range map[string]int64{
		`SELECT count(*) FROM schema_records
WHERE model_id IN ('User', 'Post', 'Comment')
 AND version='1.0.0'`: 3,
		`SELECT count(*) FROM schema_records
WHERE model_id IN ('User', 'Post') AND status='active'`: 2,
		`SELECT count(*) FROM schema_dependency_edges
WHERE dependency_type='foreign_key'
 AND to_model_id IN ('User', 'Post')`: 3,
		`SELECT count(*) FROM forge_settings
WHERE component='forge'`: 1,
	} {
		n, err := v.count(ctx, q)
		if err != nil {
			t.Errorf("counting dev data rows: %v", err)
			continue
		}
		if n != expected {
			t.Errorf(
				"expected %d rows, got %d, for query %q",
				expected, n, q,
			)
		}
	}
}

// VerifyProdData checks for presence of the production suitable initial
// data and marks possible issues using the `t` testing argument.
// Presence of extra rows is acceptable.
func (v *Verifier) VerifyProdData(ctx context.Context, t *testing.T) {
	// A production store starts with no schema records and only the
	// persisted default settings row.
	n, err := v.count(
		ctx,
		`SELECT count(*) FROM forge_settings WHERE component='forge'`,
	)
	switch {
	case err != nil:
		t.Errorf("counting settings rows: %v", err)
	case n != 1:
		t.Errorf("expected one forge settings row, got %d", n)
	}
}

// count runs the given single-row counting query and returns its value.
func (v *Verifier) count(
	ctx context.Context, query string,
) (int64, error) {
	rows, err := v.c.Query(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if !rows.Next() {
		return 0, fmt.Errorf("no counting row: %w", rows.Err())
	}
	var n int64
	if err := rows.Scan(&n); err != nil {
		return 0, err
	}
	return n, rows.Err()
}
