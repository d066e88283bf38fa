// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package upmig1 provides an upwards store schema Migrator type for
// major version 1 and its corresponding Adapter type which can adapt
// it to the version independent repo.UpMigrator[repo.StoreSettler]
// interface.
package upmig1

import (
	"context"
	"errors"

	"github.com/momeni/schema-forge/pkg/adapter/db/postgres/migration/settle/stlmig1"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres/migration/up"
	"github.com/momeni/schema-forge/pkg/core/repo"
)

// These type aliases specify the settler type (with major version 1)
// as S and the parameterized up.Migrator interface which is supposed
// to be implemented by the Migrator struct as Type.
// The Type uses the *Migrator from the same package/version because
// there is no newer/upper version.
type (
	// S is the store schema settler type.
	S = *stlmig1.Settler
	// Type is provided by Migrator type.
	Type = up.Migrator[S, *Migrator]
)

// Migrator provides a store schema upwards migrator which wraps
// a transaction of the engine database, assumes that it contains
// a filled schema, namely mig1, which contains the major version 1
// store schema views (or tables), and allows upwards major version
// migrations by implementing the Type generic interface. It also
// implements the pkg/adapter/db/postgres/migration/schi.UpMigAdapter
// interface, so it may be adapted to a version-independent interface.
// This adaptation may not be implemented by a generic adapter struct
// because each upwards migrator Type may depend on a long sequence of
// migrator types belonging to the newer major versions, while Golang
// does not support variadic type parameters.
type Migrator struct {
	Tx repo.Tx // a transaction of the engine database
}

// Adapt creates an instance of the Adapter struct and wraps `upmig1`
// object in order to adapt it to the version-independent
// repo.UpMigrator[repo.StoreSettler] interface.
//
// This method makes the Migrator to implement the
// pkg/adapter/db/postgres/migration/schi.UpMigAdapter interface. It is
// not required to explicitly test that Migrator implements the
// UpMigAdapter interface (in a test file) because upwards migrator
// types are only used by high-level migrator types (in schXvY packages)
// which implement the pkg/adapter/db/postgres/migration/schi.Migrator
// generic interface themselves and so guarantee that upwards
// migrators actually implement the schi.UpMigAdapter interface.
func (upmig1 *Migrator) Adapt() repo.UpMigrator[repo.StoreSettler] {
	return Adapter{upmig1}
}

// Adapter wraps a Type interface instance and adapts it to the
// version-independent repo.UpMigrator[repo.StoreSettler] interface.
type Adapter struct {
	T Type
}

// Settler adapts the Settler method of the wrapped `a.T` instance, so
// its return value can be provided as a version-independent
// repo.StoreSettler interface instead of the version-dependent S type.
func (a Adapter) Settler() repo.StoreSettler {
	return a.T.Settler()
}

// MigrateUp adapts the MigrateUp method of the wrapped `a.T`
// instance, so its return value can be provided as a
// version-independent repo.UpMigrator[repo.StoreSettler] interface
// instead of the version-dependent *Migrator type. Any returned error
// is produced by the underlying MigrateUp method.
func (a Adapter) MigrateUp(ctx context.Context) (
	repo.UpMigrator[repo.StoreSettler], error,
) {
	m, err := a.T.MigrateUp(ctx)
	if err != nil {
		return nil, err
	}
	return m.Adapt(), nil
}

// Settler returns a settler object (with S type) without performing
// any migration action (so, no error condition may arise). Returned
// settler object may be employed to persist the migration results.
// See the stlmig1.Settler type for more details.
func (upmig1 *Migrator) Settler() *stlmig1.Settler {
	return stlmig1.New(upmig1.Tx)
}

// MigrateUp migrates from the major version 1 to the next major
// version by creating relevant views in a schema such as mig2
// based on the views in a schema such as mig1 considering their
// latest supported minor versions. However, major version 1 is
// currently the newest store schema major version. Therefore, this
// method always returns an error (and a nil migrator as the first
// return value).
func (upmig1 *Migrator) MigrateUp(
	ctx context.Context,
) (*Migrator, error) {
	return nil, errors.New("v1 is the newest schema major version")
}
