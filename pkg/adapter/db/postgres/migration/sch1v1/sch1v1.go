// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package sch1v1 provides the top-level Migrator type for store
// schema version 1.1.x which can be used for starting a store upgrade
// operation. This package contains the main logic for querying of the
// v1.1 store layout and converting it to the latest supported minor
// version within the major version 1 series.
//
// Since schXvY packages only depend on their highest minor version
// implementation for creation of their corresponding upwards/downwards
// migrators and settlers, they can be adapted to a version-independent
// interface using a common Adapter interface which is provided by the
// schi.Adapter generic type (in contrast to the upwards/downwards
// migrator types in upmigN/dnmigN packages which have to ship their
// distinct Adapter types).
package sch1v1

import (
	"context"
	"fmt"

	"github.com/momeni/schema-forge/pkg/adapter/db/postgres/migration/down/dnmig1"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres/migration/schi"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres/migration/settle/stlmig1"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres/migration/up/upmig1"
	"github.com/momeni/schema-forge/pkg/core/repo"
	"github.com/momeni/schema-forge/pkg/core/usecase/storeuc"
)

// These constants define the major, minor, and patch version of the
// store schema which is managed by Migrator struct in this package.
const (
	Major = 1
	Minor = 1
	Patch = 0
)

// Following type aliases represent the version-dependent migrator
// related types. The U and D types represent the upwards and downwards
// migrator types. As Migrator.UpMigrator and Migrator.DownMigrator
// methods migrate a store schema from Minor minor version to the
// latest supported minor version (having the Major major version),
// they create an instance of U and D respectively which can be used
// for migrating to next/previous major versions. The S type represents
// the store schema settler type. If a migration reaches to the Major
// major version, an instance of S may be used for persisting the
// migration result. The Type combines these type aliases using the
// schi.Migrator generic interface. Ensuring that Migrator implements
// the Type interface helps to receive a compilation error in case of a
// missing method or having the wrong method type (as enforced by a
// test file).
type (
	// S is the store schema settler type.
	S = *stlmig1.Settler
	// U is an upwards migrator type.
	U = *upmig1.Migrator
	// D is downwards migrator type.
	D = *dnmig1.Migrator
	// Type is provided by Migrator type.
	Type = schi.Migrator[S, U, D]
)

// New creates a Migrator struct wrapping the given `tx` transaction
// of the engine database and the `srcSchema` name of the source store
// schema, like forge1_1_0 for a v1.1.0 store. The created Migrator
// instance is then wrapped by a schi.Adapter in order to adapt its
// version dependent interface (see Type type alias) to a version
// independent repo.Migrator[repo.StoreSettler] interface.
func New(
	tx repo.Tx, srcSchema string,
) repo.Migrator[repo.StoreSettler] {
	m := &Migrator{tx, srcSchema}
	return schi.Adapter[S, U, D]{M: m}
}

// Migrator implements Type generic interface in order to provide
// high-level store schema upgrade logic for the v1.1 layout.
// It may be created with an open transaction of the engine database
// and the name of the source store schema.
// The migration logic starts by calling the Load method which exposes
// the source store tables (having the v1.1 layout) as views in the
// src1_1 schema. Then UpMigrator or DownMigrator method should
// be called in order to convert them (by creating relevant views and
// without actual transfer of data items) into the latest available
// minor version within the v1 major version. Obtained
// upwards/downwards migrator object (having the U/D type) may be used
// for changing the major version (keeping the minor version at its
// latest supported version in each major version).
// Finally, the settler object is used to persist the migration. If
// the ultimate major version is v1 too, the Settler method may be used
// as a shortcut for migrating from the current minor version to the
// latest supported minor version and returning an instance of the
// settler object (having the S type) for persisting it.
type Migrator struct {
	tx        repo.Tx // an open transaction of the engine database
	srcSchema string  // name of the source store schema
}

// Settler returns a settler object for the store schema v1 major
// version. Beforehand, it migrates the store schema from its
// current minor version (represented by Minor const) to the latest
// available minor version. This upwards migration is also applicable
// to the latest supported minor version itself, because the Load
// method (which must be called before calling Settler method) will
// put the source views in a schema such as src1_1 while the settler
// object expects a schema such as mig1 for its data persistence
// queries.
func (s1v1 *Migrator) Settler(
	ctx context.Context,
) (*stlmig1.Settler, error) {
	if err := s1v1.migrateToLastMinorVersion(ctx); err != nil {
		return nil, err
	}
	return stlmig1.New(s1v1.tx), nil
}

// Load exposes the v1.1 source store tables as pass-through views in
// the src1_1 schema, so the subsequent migration steps can query them
// uniformly without copying any data item.
// This method must be called (and returned without error) before it is
// possible to call any other method of the Migrator struct.
func (s1v1 *Migrator) Load(ctx context.Context) error {
	return schi.LoadSourceViews(
		ctx, s1v1.tx, Major, Minor, s1v1.srcSchema,
		[]string{
			"schema_records",
			"schema_dependency_edges",
			"schema_migrations",
			"schema_change_log",
			"forge_settings",
		},
	)
}

// UpMigrator expects the src1_1 schema to contain the source store
// views (created by the Load method) and it fills the mig1 local
// schema using a series of views, keeping the v1.1 layout unchanged.
// Finally, it returns an instance of the upwards migrator object
// (having the U type) which can be used to migrate schema to the next
// major versions (if any) or obtain the settler object.
func (s1v1 *Migrator) UpMigrator(
	ctx context.Context,
) (*upmig1.Migrator, error) {
	if err := s1v1.migrateToLastMinorVersion(ctx); err != nil {
		return nil, err
	}
	return &upmig1.Migrator{Tx: s1v1.tx}, nil
}

// DownMigrator expects the src1_1 schema to contain the source store
// views (created by the Load method) and it fills the mig1 local
// schema using a series of views, keeping the v1.1 layout unchanged.
// Finally, it returns an instance of the downwards migrator object
// (having the D type) which can be used to migrate schema to the
// previous major versions (if any) or obtain the settler object.
func (s1v1 *Migrator) DownMigrator(
	ctx context.Context,
) (*dnmig1.Migrator, error) {
	if err := s1v1.migrateToLastMinorVersion(ctx); err != nil {
		return nil, err
	}
	return &dnmig1.Migrator{Tx: s1v1.tx}, nil
}

// migrateToLastMinorVersion expects the src1_1 schema to contain the
// source store views and it fills the mig1 local schema using a
// series of pass-through views, keeping the v1.1 layout unchanged
// (v1.1 is the latest supported minor version in the v1 series).
func (s1v1 *Migrator) migrateToLastMinorVersion(
	ctx context.Context,
) error {
	src := storeuc.SourceViewsSchemaName(Major, Minor)
	mig := storeuc.MigrationSchemaName(Major)
	for _, t := range []string{
		"schema_records",
		"schema_dependency_edges",
		"schema_migrations",
		"schema_change_log",
		"forge_settings",
	} {
		if _, err := s1v1.tx.Exec(
			ctx,
			fmt.Sprintf(
				`CREATE VIEW %q.%q AS SELECT * FROM %q.%q`,
				mig, t, src, t,
			),
		); err != nil {
			return fmt.Errorf(
				"creating %q view in %q schema: %w", t, mig, err,
			)
		}
	}
	return nil
}
