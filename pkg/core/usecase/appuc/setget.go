// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package appuc

import (
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/usecase/graphuc"
	"github.com/momeni/schema-forge/pkg/core/usecase/migrationuc"
	"github.com/momeni/schema-forge/pkg/core/usecase/schemauc"
)

// Settings returns a copy of visible settings which are currently in
// effect. The effective settings and use case objects which are built
// based on them (and other invisible settings) may be updated
// atomically, while they are exposed by a series of getter methods. At
// least one of Reload or UpdateSettings methods must be called before
// this (and other use case objects getter methods) may be called.
func (app *UseCase) Settings() model.VisibleSettings {
	app.rwlock.RLock()
	defer app.rwlock.RUnlock()
	return *app.settings
}

// Boundaries returns the minimum and maximum acceptable values of the
// mutable settings, as published by the last Reload or UpdateSettings
// call. The returned pointers refer to shared structs and must be
// deeply cloned before any modification.
func (app *UseCase) Boundaries() (minb, maxb *model.Settings) {
	app.rwlock.RLock()
	defer app.rwlock.RUnlock()
	return app.minb, app.maxb
}

// updateAll atomically updates the visible settings, the settings
// boundary values, and all use case objects which are built based on
// those (visible and invisible) settings. This method minimizes the
// scope which needs to take a writing lock (after instantiating all
// relevant use case objects).
func (app *UseCase) updateAll(
	vs *model.VisibleSettings,
	minb, maxb *model.Settings,
	managed managedUseCases,
) {
	app.rwlock.Lock()
	defer app.rwlock.Unlock()
	app.settings = vs
	app.minb = minb
	app.maxb = maxb
	app.managed = managed
}

// SchemasUseCase returns the currently effective schema records use
// case object. At least one of Reload or UpdateSettings methods must
// be called before this (and other use case objects getter methods)
// may be called.
func (app *UseCase) SchemasUseCase() *schemauc.UseCase {
	app.rwlock.RLock()
	defer app.rwlock.RUnlock()
	return app.managed.schemas
}

// MigrationsUseCase returns the currently effective migration
// generation use case object. At least one of Reload or UpdateSettings
// methods must be called before this method may be called.
func (app *UseCase) MigrationsUseCase() *migrationuc.UseCase {
	app.rwlock.RLock()
	defer app.rwlock.RUnlock()
	return app.managed.migrations
}

// GraphUseCase returns the currently effective dependency graph use
// case object. At least one of Reload or UpdateSettings methods must
// be called before this method may be called.
func (app *UseCase) GraphUseCase() *graphuc.UseCase {
	app.rwlock.RLock()
	defer app.rwlock.RUnlock()
	return app.managed.graph
}
