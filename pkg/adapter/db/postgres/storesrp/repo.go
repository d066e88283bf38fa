// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package storesrp provides a reification of the repo.Store interface
// making it possible to create or drop store schemata or manage
// database user roles.
package storesrp

import (
	"context"

	"github.com/momeni/schema-forge/pkg/adapter/db/postgres"
	scramhash "github.com/momeni/schema-forge/pkg/adapter/hash/scram"
	"github.com/momeni/schema-forge/pkg/core/repo"
	"github.com/momeni/schema-forge/pkg/core/scram"
)

// Repo represents a store schema management repository.
// It holds the role name suffix (which may be empty) in order to
// suffix all managed role names uniformly and a SCRAM hasher in order
// to hash passwords before sending them to the DBMS.
type Repo struct {
	roleSuffix repo.Role
	hasher     scram.Hasher
}

// New instantiates a store schema management Repo struct. All role
// names which are passed to the queryer methods of this repository
// will be suffixed by the given `roleSuffix` (which may be empty).
// Passwords are hashed using the given `hasher` before being used in
// any DDL statement, so they can match with the authentication method
// which is expected by the target DBMS. A nil `hasher` falls back to
// the SCRAM-SHA-256 mechanism.
func New(roleSuffix repo.Role, hasher scram.Hasher) *Repo {
	if hasher == nil {
		hasher = scramhash.SHA256()
	}
	return &Repo{
		roleSuffix: roleSuffix,
		hasher:     hasher,
	}
}

type connQueryer struct {
	*postgres.Conn
	roleSuffix repo.Role
}

// Conn unwraps the given repo.Conn instance, expecting to find an
// instance of *postgres.Conn as created by this adapter layer.
// Otherwise, it will panic. Unwrapped connection will be wrapped and
// returned as an instance of repo.StoreConnQueryer interface, so
// it can be used in the use cases layer without requiring to type
// assert again and again.
func (store *Repo) Conn(c repo.Conn) repo.StoreConnQueryer {
	cc := c.(*postgres.Conn)
	return connQueryer{Conn: cc, roleSuffix: store.roleSuffix}
}

// SchemaExists reports whether the `schema` schema exists.
//
// Caller is responsible to pass a trusted schema name string.
func (cq connQueryer) SchemaExists(
	ctx context.Context, schema string,
) (bool, error) {
	return SchemaExists(ctx, cq.Conn, schema)
}

// DropIfExists drops the `schema` schema without cascading if it
// exists. That is, if `schema` does not exist, a nil error will be
// returned without any change. And if `schema` exists and is empty,
// it will be dropped. But if `schema` exists and is not empty, an
// error will be returned.
//
// Caller is responsible to pass a trusted schema name string.
func (cq connQueryer) DropIfExists(
	ctx context.Context, schema string,
) error {
	return DropIfExists(ctx, cq.Conn, schema)
}

// DropCascade drops `schema` schema with cascading, dropping all
// dependent objects recursively. The `schema` must exist,
// otherwise, an error will be returned.
// This method is useful for dropping the intermediate schemata
// which are created during a store upgrade.
//
// Caller is responsible to pass a trusted schema name string.
func (cq connQueryer) DropCascade(
	ctx context.Context, schema string,
) error {
	return DropCascade(ctx, cq.Conn, schema)
}

// CreateSchema tries to create the `schema` schema.
// There must be no other schema with the `schema` name, otherwise,
// this operation will fail.
//
// Caller is responsible to pass a trusted schema name string.
func (cq connQueryer) CreateSchema(
	ctx context.Context, schema string,
) error {
	return CreateSchema(ctx, cq.Conn, schema)
}

// CreateRoleIfNotExists creates the `role` role if it does not
// exist right now. Although the login option is enabled for the
// created role, but no specific password will be set for it.
// The ChangePasswords method may be used for setting a password if
// desired. Otherwise, that user may not login effectively (but
// using the trust or local identity methods).
func (cq connQueryer) CreateRoleIfNotExists(
	ctx context.Context, role repo.Role,
) error {
	return CreateRoleIfNotExists(ctx, cq.Conn, cq.roleSuffix, role)
}

// GrantPrivileges grants ALL privileges on the `schema` schema
// to the `role` role, so it may create or access tables in that schema
// and run relevant queries.
func (cq connQueryer) GrantPrivileges(
	ctx context.Context, schema string, role repo.Role,
) error {
	return GrantPrivileges(ctx, cq.Conn, cq.roleSuffix, schema, role)
}

// SetSearchPath alters the given database role and sets its default
// search_path to the given schema name alone.
func (cq connQueryer) SetSearchPath(
	ctx context.Context, schema string, role repo.Role,
) error {
	return SetSearchPath(ctx, cq.Conn, cq.roleSuffix, schema, role)
}

type txQueryer struct {
	*postgres.Tx
	roleSuffix repo.Role
	hasher     scram.Hasher
}

// Tx unwraps the given repo.Tx instance, expecting to find an instance
// of *postgres.Tx as created by this adapter layer. Otherwise, it will
// panic. Unwrapped transaction will be wrapped and returned as an
// instance of repo.StoreTxQueryer interface, so it can be used in
// the use cases layer without requiring to type assert again and again.
// Returned querier instance can be used to run the transaction-specific
// queries in addition to queries which support connections and
// transactions.
//
// Currently, one operation mandates a transaction.
// ChangePasswords updates passwords of some roles. When creating roles
// for the first time, it is desired to change/set their passwords
// before making them visible by committing the transaction. Also, it
// may be desired to call this method multiple times if all roles and
// passwords may not be identified at the same time. So, a transaction
// is required since there are scenarios that other operation must be
// performed in the same transaction and caller must specify the proper
// point of commitment.
func (store *Repo) Tx(tx repo.Tx) repo.StoreTxQueryer {
	tt := tx.(*postgres.Tx)
	return txQueryer{
		Tx:         tt,
		roleSuffix: store.roleSuffix,
		hasher:     store.hasher,
	}
}

// SchemaExists reports whether the `schema` schema exists.
func (tq txQueryer) SchemaExists(
	ctx context.Context, schema string,
) (bool, error) {
	return SchemaExists(ctx, tq.Tx, schema)
}

// DropIfExists drops the `schema` schema without cascading if it
// exists. That is, if `schema` does not exist, a nil error will be
// returned without any change. And if `schema` exists and is empty,
// it will be dropped. But if `schema` exists and is not empty, an
// error will be returned.
func (tq txQueryer) DropIfExists(
	ctx context.Context, schema string,
) error {
	return DropIfExists(ctx, tq.Tx, schema)
}

// DropCascade drops `schema` schema with cascading, dropping all
// dependent objects recursively. The `schema` must exist,
// otherwise, an error will be returned.
//
// Caller is responsible to pass a trusted schema name string.
func (tq txQueryer) DropCascade(
	ctx context.Context, schema string,
) error {
	return DropCascade(ctx, tq.Tx, schema)
}

// CreateSchema tries to create the `schema` schema.
// There must be no other schema with the `schema` name, otherwise,
// this operation will fail.
func (tq txQueryer) CreateSchema(
	ctx context.Context, schema string,
) error {
	return CreateSchema(ctx, tq.Tx, schema)
}

// CreateRoleIfNotExists creates the `role` role if it does not
// exist right now. Although the login option is enabled for the
// created role, but no specific password will be set for it.
// The ChangePasswords method may be used for setting a password if
// desired. Otherwise, that user may not login effectively (but
// using the trust or local identity methods).
func (tq txQueryer) CreateRoleIfNotExists(
	ctx context.Context, role repo.Role,
) error {
	return CreateRoleIfNotExists(ctx, tq.Tx, tq.roleSuffix, role)
}

// GrantPrivileges grants ALL privileges on the `schema` schema
// to the `role` role, so it may create or access tables in that schema
// and run relevant queries.
func (tq txQueryer) GrantPrivileges(
	ctx context.Context, schema string, role repo.Role,
) error {
	return GrantPrivileges(ctx, tq.Tx, tq.roleSuffix, schema, role)
}

// SetSearchPath alters the given database role and sets its default
// search_path to the given schema name alone.
func (tq txQueryer) SetSearchPath(
	ctx context.Context, schema string, role repo.Role,
) error {
	return SetSearchPath(ctx, tq.Tx, tq.roleSuffix, schema, role)
}

// ChangePasswords updates the passwords of the given roles in the
// current transaction. The roles and passwords slices must have the
// same number of entries, so they can be used in pair.
// These fields are not combined as a struct with two role and
// password fields because passing items separately ensures that
// all items are initialized explicitly in constrast to a struct
// which its fields can be zero-initialized and are more suitable
// to pass a set of optional fields.
func (tq txQueryer) ChangePasswords(
	ctx context.Context, roles []repo.Role, passwords []string,
) error {
	return ChangePasswords(
		ctx, tq.Tx, tq.roleSuffix, tq.hasher, roles, passwords,
	)
}
