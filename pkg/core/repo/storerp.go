// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import "context"

// StoreSettler interface specifies the expectations from the settler
// objects for a store schema upgrade operation.
//
// An efficient implementation of a store upgrade may use views in
// order to convert data format without copying data items themselves
// as far as possible. The engine owns exactly one store in one
// database, so an upgrade begins by exposing the source store schema
// tables as views in an intermediate schema, all within a transaction
// of the same database. For migrating to the latest minor version
// from the same major version, new views may be created in another
// schema by queries over those source views, changing column names
// and/or computing them based on other views, one version step at a
// time. If some conversions are more complex, they may need to create
// intermediate tables or even need to load data and process them in
// the Golang process. Finally, views (or tables) in an ultimate local
// schema must be materialized into a series of persistent tables in
// the expected store schema. And this is the point that StoreSettler
// interface becomes relevant. The SettleStore method is supposed to
// perform this final store settlement operation.
type StoreSettler interface {
	// SettingsPersister interface indicates that each StoreSettler,
	// in addition to the store schema settlement, can persist the
	// independently migrated engine settings in the database.
	SettingsPersister

	// SettleStore settles the store upgrade operation.
	//
	// If the upgrade operation was implemented by creating a set of
	// views, the settlement can be performed by creating the expected
	// store tables and filling them by querying their corresponding
	// views.
	// In absence of errors, settlement persists the upgrade operation
	// results logically. However, if the entire upgrade was performed
	// in a transaction, caller is responsible to commit that
	// transaction (not the StoreSettler interface).
	SettleStore(ctx context.Context) error

	// MajorVersion returns the major semantic version of this store
	// settler instance. Each store settler supports exactly one major
	// version which is also included in its corresponding schema name.
	// For example, the forge1_1_0 schema name may be filled by the
	// major version 1 store settler.
	MajorVersion() uint
}

// SettingsPersister interface specifies that how the engine mutable
// settings may be persisted in a database, after being serialized as
// a byte slice. Each instance of this interface shall embed the
// relevant database transaction instance, so its lifetime is
// entangled with a single upgrade process (just like the StoreSettler
// and other upgrade objects), allowing them to store upgrade process
// states (if any).
//
// The SettingsPersister interface is embedded by StoreSettler, so the
// migrated settings row lands in the same transaction which settles
// the store tables. When only the configuration file format is being
// changed, the storeuc.Settings.SettingsPersister method may be used
// in order to obtain a SettingsPersister for storing the settings in
// the store directly.
type SettingsPersister interface {
	// PersistSettings persists the given mutableSettings byte slice as
	// the serialized form of the engine mutable settings, using the
	// transaction which is hold by this interface and may be used for
	// persistence of other tables contents too. The persistence
	// applies whenever the caller commits its transaction.
	PersistSettings(ctx context.Context, mutableSettings []byte) error
}

// StoreInitializer interface is exposed by each store version
// implementation. It provides two methods of InitDevStore and
// InitProdStore in order to create the store tables and fill an
// existing schema with them, using the development and production
// suitable initial data rows respectively.
// Each implementation (for settlement of the latest minor version of
// a specific major version) should contain the relevant information
// for finding the destination database (such as a database
// transaction) so the StoreInitializer does not need to take any
// argument.
type StoreInitializer interface {
	// InitDevStore creates the store tables in an existing database
	// schema and fills them with the development suitable initial
	// data, including the sample schema definitions family.
	InitDevStore(ctx context.Context) error

	// InitProdStore creates the store tables in an existing database
	// schema, leaving them empty but for the default engine settings.
	InitProdStore(ctx context.Context) error
}

// Store interface presents expectations from a repository which allows
// store schema and roles management. This repository creates the store
// schema and grants relevant privileges on it, so it may be filled by
// tables during a bootstrap or upgrade and queried during other use
// cases.
type Store interface {
	// Conn takes a Conn interface instance, unwraps it as required,
	// and returns a StoreConnQueryer interface which (with access to
	// the implementation-dependent connection object) can create or
	// drop store schemata or manage database roles.
	Conn(Conn) StoreConnQueryer

	// Tx takes a Tx interface instance, unwraps it as required,
	// and returns a StoreTxQueryer interface which (with access to the
	// implementation-dependent transaction object) can manage database
	// roles, change their passwords, or perform schema-level
	// management operations.
	Tx(Tx) StoreTxQueryer
}

// StoreConnQueryer interface lists all operations which may be taken
// with regards to the store schema having an open connection with the
// auto-committed transactions.
// Those operations which must be executed in a connection (and may not
// be executed in an ongoing transaction which may keep running other
// statements after this one) must be listed here, while other
// operations which do not strictly require an open connection (and may
// use an open transaction too) must be defined in the embedded
// StoreQueryer interface. This design allows a unified implementation,
// while forcing developers to think about the consequences of having
// one or multiple transactions.
// There is no connection-specific operation in this version.
type StoreConnQueryer interface {
	StoreQueryer
}

// StoreTxQueryer interface lists all operations which may be taken
// with regards to the store schema having an ongoing transaction.
// Those operations which must be executed in a transaction (and may
// not be executed with a connection) must be listed here, while other
// operations which do not strictly require an open transaction (and
// can use their own auto-committed transaction too) must be defined
// in the embedded StoreQueryer interface.
type StoreTxQueryer interface {
	StoreQueryer

	// ChangePasswords updates the passwords of the given roles
	// in the current transaction. The roles and passwords slices must
	// have the same number of entries, so they can be used in pair.
	// These fields are not combined as a struct with two role and
	// password fields because passing items separately ensures that
	// all items are initialized explicitly in constrast to a struct
	// which its fields can be zero-initialized and are more suitable
	// to pass a set of optional fields.
	// The given roles may be suffixed automatically too, based on
	// this transaction queryer settings.
	ChangePasswords(
		ctx context.Context, roles []Role, passwords []string,
	) error
}

// StoreQueryer interface lists common operations which may be taken
// with regards to the store schema having either a connection or open
// transaction at hand. This interface is embedded by both of the
// StoreConnQueryer and the StoreTxQueryer in order to avoid redundant
// implementation.
type StoreQueryer interface {
	// SchemaExists reports whether the `schema` schema exists.
	//
	// Caller is responsible to pass a trusted schema name string.
	SchemaExists(ctx context.Context, schema string) (bool, error)

	// DropIfExists drops the `schema` schema without cascading if it
	// exists. That is, if `schema` does not exist, a nil error will be
	// returned without any change. And if `schema` exists and is empty,
	// it will be dropped. But if `schema` exists and is not empty, an
	// error will be returned.
	//
	// Caller is responsible to pass a trusted schema name string.
	DropIfExists(ctx context.Context, schema string) error

	// DropCascade drops `schema` schema with cascading, dropping all
	// dependent objects recursively. The `schema` must exist,
	// otherwise, an error will be returned.
	// This method is useful for dropping the intermediate schemata
	// which are created during a store upgrade and for dropping the
	// old store schema after a settled upgrade.
	//
	// Caller is responsible to pass a trusted schema name string.
	DropCascade(ctx context.Context, schema string) error

	// CreateSchema tries to create the `schema` schema.
	// There must be no other schema with the `schema` name, otherwise,
	// this operation will fail.
	//
	// Caller is responsible to pass a trusted schema name string.
	CreateSchema(ctx context.Context, schema string) error

	// CreateRoleIfNotExists creates the `role` role if it does not
	// exist right now. Although the login option is enabled for the
	// created role, but no specific password will be set for it.
	// The ChangePasswords method may be used for setting a password if
	// desired. Otherwise, that user may not login effectively (but
	// using the trust or local identity methods).
	//
	// The `role` role name may be suffixed automatically based on
	// this store queryer settings.
	CreateRoleIfNotExists(ctx context.Context, role Role) error

	// GrantPrivileges grants ALL privileges on the `schema` schema
	// to the `role` role, so it may create or access tables in that
	// schema and run relevant queries.
	//
	// The `role` role name may be suffixed automatically based on
	// this store queryer settings.
	GrantPrivileges(ctx context.Context, schema string, role Role) error

	// SetSearchPath alters the given database role and sets its default
	// search_path to the given schema name alone.
	//
	// Updated search_path will be used by default in all future
	// transactions by that role, but it may be changed using the SET
	// statement as needed.
	SetSearchPath(ctx context.Context, schema string, role Role) error
}
