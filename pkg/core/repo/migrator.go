// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package repo

import "context"

// Migrator of S is the core upgrade interface which defines how a
// semantically versioned resource may be migrated from a S1.S2.S3
// source version to a D1.D2.D3 destination version.
// The S type parameter represents the migration settler type of the
// versioned resource.
// For example, pkg/core/usecase/storeuc.Settings interface can be used
// as S parameter for configuration settings migration and the
// StoreSettler interface can be used as S for store schema upgrades.
//
// Migration of a given resource consists of three main phases.
//  1. The source version of the given resource should be loaded. For
//     simple resources which can be held completely in memory, such as
//     config settings, the Load method can hold the source resource as
//     a struct instance. For a store schema, it may expose the source
//     schema tables as views in an intermediate schema of the same
//     database, within an open transaction, without transferring data
//     items. Extra information, such as that open transaction or the
//     config file data, must be captured when instantiating the
//     Migrator[S]. Calling Load multiple times causes undefined
//     behavior; an implementation is free to ignore extra calls, load
//     data again, or return an error.
//  2. Comparing the source and destination semantic versions indicates
//     that an upwards or downwards migration is required (either
//     direction works for equal versions). The UpMigrator and
//     DownMigrator methods create the directional migrator objects.
//     For config files, where all minor versions of one major version
//     load uniformly, they just wrap the loaded resource. For a store
//     schema, where each minor version has a distinct tables layout,
//     they must also migrate the source to its latest supported minor
//     version within the source major version, usually by stacking
//     another layer of views. The obtained UpMigrator[S] or
//     DownMigrator[S] then moves over one major version at a time.
//  3. After reaching the destination major version, the Settler[S]
//     interface (embedded by both directional migrators) yields the
//     settler instance of type S which persists the results: a config
//     settler marshals and saves the ultimate settings, while a store
//     settler materializes the final views into persistent tables.
//     For more details, check the StoreSettler interface.
//
// By the way, Migrator[S] provides a Settler method, so the special
// scenario which has the same source and destination major version
// may be simplified and the settler instance can be fetched directly.
// This Settler method, despite the generic Settler[S] interface, may
// return an error too because it may need to migrate from the current
// minor version to the latest supported minor version first (as
// expected by the store schema settlers) and so may fail.
type Migrator[S any] interface {
	// Settler creates and returns a settler object (with S type) which
	// can be used to settle the migration results when the source and
	// destination major versions are the same. It may migrate from the
	// current minor version to the latest supported minor version
	// before creating the settler object, hence, it may return an
	// error despite the Settler[S] interface.
	Settler(ctx context.Context) (S, error)

	// Load tries to load the source version of the migrating resource
	// and returns an error if it failed to load it completely. See
	// phase 1 above for the in-memory and views-based loading flavors.
	Load(ctx context.Context) error

	// MajorVersion returns the major semantic version of this Migrator
	// instance, reflecting the major version of a configuration file
	// or a store schema. It identifies the migration versions path,
	// passing through the major versions one by one.
	MajorVersion() uint

	// UpMigrator creates a new upwards migrator object, adapting a
	// version-specific struct to the version-independent UpMigrator
	// interface, so it can be used uniformly in the use cases layer.
	//
	// Load must have been called before. After calling UpMigrator, the
	// resource is migrated to the latest supported minor version
	// within the source major version; the obtained instance may then
	// keep migrating to the next major versions one at a time.
	UpMigrator(ctx context.Context) (UpMigrator[S], error)

	// DownMigrator creates a new downwards migrator object, the
	// downwards counterpart of UpMigrator with the same Load
	// precondition and minor-version normalization behavior.
	DownMigrator(ctx context.Context) (DownMigrator[S], error)
}

// UpMigrator of S interface specifies the upwards migrator objects
// requirements for a resource with S settler type. The MigrateUp
// method migrates one major version upwards and returns the next
// UpMigrator[S] instance, while the Settler method from the embedded
// Settler[S] interface obtains an S instance in order to settle the
// migration operation at its ultimate major version.
type UpMigrator[S any] interface {
	Settler[S]

	// MigrateUp creates the next/upper version of the migrating
	// resource either physically (e.g., by creating a new settings
	// struct instance) or logically (e.g., by creating views in the
	// upper version format based on queries over the current version
	// views or tables). If there is no more upper major version, an
	// error will be returned.
	MigrateUp(ctx context.Context) (UpMigrator[S], error)
}

// DownMigrator of S interface specifies the downwards migrator objects
// requirements for a resource with S settler type, mirroring the
// UpMigrator[S] interface in the downwards direction.
type DownMigrator[S any] interface {
	Settler[S]

	// MigrateDown creates the previous/downer version of the migrating
	// resource, physically or logically as described by the MigrateUp
	// counterpart. If there is no more downer major version, an error
	// will be returned.
	MigrateDown(ctx context.Context) (DownMigrator[S], error)
}

// Settler of S interface yields the migration settler instance. It
// should be used when the migrating resource has reached its
// destination major version and needs to persist its migration
// results. For simple resources like configuration settings, the
// settler marshals and saves the ultimate resource (or merges it with
// the target settings version default values as seen in the
// MergeSettings method of pkg/core/usecase/storeuc.Settings). For a
// store schema upgrade which had proceeded by stacking views, the
// settler materializes them into persistent tables; for more details,
// check the StoreSettler interface.
type Settler[S any] interface {
	// Settler method returns an instance of S type which represents
	// the migration settler instance.
	Settler() S
}
