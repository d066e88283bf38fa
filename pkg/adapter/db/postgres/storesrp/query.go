// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package storesrp

import (
	"context"
	"fmt"
	"strings"

	"github.com/momeni/schema-forge/pkg/adapter/db/postgres"
	"github.com/momeni/schema-forge/pkg/core/repo"
	"github.com/momeni/schema-forge/pkg/core/scram"
)

// SchemaExists reports whether the `schema` schema exists, consulting
// the information_schema.schemata view.
//
// Caller is responsible to pass a trusted schema name string.
func SchemaExists[Q postgres.Queryer](
	ctx context.Context, q Q, schema string,
) (bool, error) {
	rs, err := q.Query(
		ctx,
		`SELECT 1 FROM information_schema.schemata
WHERE schema_name=$1`,
		schema,
	)
	if err != nil {
		return false, fmt.Errorf("querying schemata view: %w", err)
	}
	defer rs.Close()
	exists := rs.Next()
	if err := rs.Err(); err != nil {
		return false, fmt.Errorf("closing result set: %w", err)
	}
	return exists, nil
}

// DropIfExists drops the `schema` schema without cascading if it
// exists. That is, if `schema` does not exist, a nil error will be
// returned without any change. And if `schema` exists and is empty,
// it will be dropped. But if `schema` exists and is not empty, an
// error will be returned.
//
// Caller is responsible to pass a trusted schema name string.
func DropIfExists[Q postgres.Queryer](
	ctx context.Context, q Q, schema string,
) error {
	// DDL statements may not use parameterized queries, but `schema`
	// is a trusted string.
	_, err := q.Exec(
		ctx, fmt.Sprintf(`DROP SCHEMA IF EXISTS %q`, schema),
	)
	if err != nil {
		return fmt.Errorf("dropping %q schema: %w", schema, err)
	}
	return nil
}

// DropCascade drops `schema` schema with cascading, dropping all
// dependent objects recursively. The `schema` must exist,
// otherwise, an error will be returned.
// This method is useful for dropping the intermediate schemata
// which are created during a store upgrade.
//
// Caller is responsible to pass a trusted schema name string.
func DropCascade[Q postgres.Queryer](
	ctx context.Context, q Q, schema string,
) error {
	_, err := q.Exec(
		ctx, fmt.Sprintf(`DROP SCHEMA %q CASCADE`, schema),
	)
	if err != nil {
		return fmt.Errorf("dropping %q schema: %w", schema, err)
	}
	return nil
}

// CreateSchema tries to create the `schema` schema.
// There must be no other schema with the `schema` name, otherwise,
// this operation will fail.
//
// Caller is responsible to pass a trusted schema name string.
func CreateSchema[Q postgres.Queryer](
	ctx context.Context, q Q, schema string,
) error {
	_, err := q.Exec(ctx, fmt.Sprintf(`CREATE SCHEMA %q`, schema))
	if err != nil {
		return fmt.Errorf("creating %q schema: %w", schema, err)
	}
	return nil
}

// CreateRoleIfNotExists creates the `role` role if it does not
// exist right now. Although the login option is enabled for the
// created role, but no specific password will be set for it.
// The ChangePasswords method may be used for setting a password if
// desired. Otherwise, that user may not login effectively (but
// using the trust or local identity methods).
//
// The `role` role name may be suffixed by `roleSuffix` if it is not
// empty. This is useful to have distinct role names if repo.Role
// predefined constants are not desirable.
func CreateRoleIfNotExists[Q postgres.Queryer](
	ctx context.Context, q Q, roleSuffix repo.Role, role repo.Role,
) error {
	r := string(role + roleSuffix)
	rs, err := q.Query(
		ctx, `SELECT 1 FROM pg_roles WHERE rolname=$1`, r,
	)
	if err != nil {
		return fmt.Errorf("querying pg_roles: %w", err)
	}
	defer rs.Close()
	exists := rs.Next()
	if err := rs.Err(); err != nil {
		return fmt.Errorf("closing result set: %w", err)
	}
	if exists {
		return nil
	}
	_, err = q.Exec(ctx, fmt.Sprintf(`CREATE ROLE %q WITH LOGIN`, r))
	if err != nil {
		return fmt.Errorf("creating %q role: %w", r, err)
	}
	return nil
}

// GrantPrivileges grants ALL privileges on the `schema` schema
// to the `role` role, so it may create or access tables in that schema
// and run relevant queries.
//
// The `role` role name may be suffixed by `roleSuffix` if it is not
// empty. This is useful to have distinct role names if repo.Role
// predefined constants are not desirable.
func GrantPrivileges[Q postgres.Queryer](
	ctx context.Context,
	q Q,
	roleSuffix repo.Role,
	schema string,
	role repo.Role,
) error {
	r := string(role + roleSuffix)
	_, err := q.Exec(
		ctx,
		fmt.Sprintf(
			`GRANT ALL PRIVILEGES ON SCHEMA %q TO %q`, schema, r,
		),
	)
	if err != nil {
		return fmt.Errorf(
			"granting %q schema privileges to %q role: %w",
			schema, r, err,
		)
	}
	return nil
}

// SetSearchPath alters the given database role and sets its default
// search_path to the given schema name alone.
//
// The `role` role name may be suffixed by `roleSuffix` if it is not
// empty. This is useful to have distinct role names if repo.Role
// predefined constants are not desirable.
func SetSearchPath[Q postgres.Queryer](
	ctx context.Context,
	q Q,
	roleSuffix repo.Role,
	schema string,
	role repo.Role,
) error {
	r := string(role + roleSuffix)
	_, err := q.Exec(
		ctx,
		fmt.Sprintf(
			`ALTER ROLE %q SET search_path TO %q`, r, schema,
		),
	)
	if err != nil {
		return fmt.Errorf(
			"setting search_path of %q role to %q: %w", r, schema, err,
		)
	}
	return nil
}

// ChangePasswords updates the passwords of the given roles in the
// current transaction. The roles and passwords slices must have the
// same number of entries, so they can be used in pair.
// These fields are not combined as a struct with two role and
// password fields because passing items separately ensures that
// all items are initialized explicitly in constrast to a struct
// which its fields can be zero-initialized and are more suitable
// to pass a set of optional fields.
//
// The `roles` role names may be suffixed by `roleSuffix` if it is not
// empty. This is useful to have distinct role names if repo.Role
// predefined constants are not desirable.
// The `hasher` will be used for hashing of the `passwords` before
// sending them to the DBMS (so they may not leak in plaintext).
// This SCRAM hasher format must conform with the DBMS expected format.
func ChangePasswords(
	ctx context.Context,
	tx *postgres.Tx,
	roleSuffix repo.Role,
	hasher scram.Hasher,
	roles []repo.Role,
	passwords []string,
) error {
	if len(roles) != len(passwords) {
		return fmt.Errorf(
			"got %d roles, but %d passwords",
			len(roles), len(passwords),
		)
	}
	for i, role := range roles {
		r := string(role + roleSuffix)
		h, err := hasher.Hash(passwords[i], "", 15000)
		if err != nil {
			return fmt.Errorf(
				"computing scram hash for %q role: %w", r, err,
			)
		}
		// The hash string consists of ASCII printable characters and
		// contains no single quote, nevertheless, its quotes (if any)
		// are doubled before being used in the DDL statement.
		if _, err := tx.Exec(
			ctx,
			fmt.Sprintf(
				`ALTER ROLE %q WITH PASSWORD '%s'`,
				r, strings.ReplaceAll(h, "'", "''"),
			),
		); err != nil {
			return fmt.Errorf("altering %q role password: %w", r, err)
		}
	}
	return nil
}
