// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package dnmig1 provides configuration file settings downwards
// Migrator for settings major version 1 and its Adapter type for the
// version independent repo.DownMigrator[storeuc.Settings] interface.
//
// Since major version 1 is the foremost supported configuration
// settings version, its migrator acts as a terminal migrator and only
// exposes the contained Config instance by its Settler method.
//
// The settings.DownMigrator generic interface is employed in order to
// ensure that this version-specific implementation uses consistent
// types as its method return types.
package dnmig1

import (
	"context"
	"errors"

	"github.com/momeni/schema-forge/pkg/adapter/config/cfg1"
	"github.com/momeni/schema-forge/pkg/adapter/config/settings"
	"github.com/momeni/schema-forge/pkg/core/repo"
	"github.com/momeni/schema-forge/pkg/core/usecase/storeuc"
)

// These type aliases specify the underlying Config struct (with major
// version 1) as C, its serializable mutable settings type as S, and the
// parameterized settings.DownMigrator interface which is supposed to
// be implemented by the Migrator struct as Type.
// The Type uses the *Migrator from the same package/version because
// there is no older/downer version.
type (
	// C is the underlying Config type
	C = *cfg1.Config
	// S is the serializable mutable settings type
	S = cfg1.Serializable
	// Type is implemented by the Migrator type
	Type = settings.DownMigrator[C, S, *Migrator]
)

// Adapter wraps and adapts an instance of Type in order to provide
// the repo.DownMigrator[storeuc.Settings] interface.
type Adapter struct {
	T Type
}

// NewDnMig creates a Migrator struct wrapping the given Config instance
// and then uses the Adapt function in order to adapt it to the version
// independent repo.DownMigrator[storeuc.Settings] interface.
//
// The Migrator struct is exported and users which need a concrete type
// can create it directly and wrap the `c` instance. This helper New
// function is provided in order to combine these two steps (of creation
// and adaptation) together.
func NewDnMig(c *cfg1.Config) repo.DownMigrator[storeuc.Settings] {
	m := &Migrator{c}
	return Adapt(m)
}

// Adapt creates an instance of Adapter struct wraping the `m` argument.
// Because Adapter expects to wrap a Type instance, it asserts that
// Migrator struct implements the Type interface, its implementation is
// correct (considering the expected return types), and provides the
// repo.DownMigrator[storeuc.Settings] interface.
func Adapt(m *Migrator) repo.DownMigrator[storeuc.Settings] {
	return Adapter{m}
}

// Settler calls the wrapped Type Settler method, obtains a C instance,
// and wraps it by settings.Adapter[C, S] in order to expose an instance
// of storeuc.Settings interface.
func (a Adapter) Settler() storeuc.Settings {
	c := a.T.Settler()
	return settings.Adapter[C, S]{Config: c}
}

// MigrateDown calls the wrapped Type MigrateDown method. Since there
// is no older major version, the underlying method always returns an
// error which will be reported to the caller (alongside a nil
// migrator).
func (a Adapter) MigrateDown(ctx context.Context) (
	repo.DownMigrator[storeuc.Settings], error,
) {
	m, err := a.T.MigrateDown(ctx)
	if err != nil {
		return nil, err
	}
	return Adapt(m), nil
}

// Migrator is a downwards Config migrator for *cfg1.Config instances.
// It wraps a Config struct (with major version 1) and implements
// the repo.Settler and pkg/adapter/config/settings.DownMigrator
// generic interfaces.
type Migrator struct {
	*cfg1.Config
}

// MigrateDown always returns an error (and a nil migrator as the first
// return value) because major version 1 is the foremost supported
// configuration settings version and there is no older major version
// to migrate to.
func (m *Migrator) MigrateDown(
	_ context.Context,
) (*Migrator, error) {
	return nil, errors.New("v1 is the foremost settings major version")
}

// Settler returns the wrapped Config object. After migrating from a
// source Config version downwards and reaching to an ultimate version,
// this method reveals the final migrated Config object.
// This object may have some uninitialized settings too. The MergeConfig
// method may be used in order to fill them from another Config instance
// containing the default settings for major version 1.
func (m *Migrator) Settler() *cfg1.Config {
	return m.Config
}
