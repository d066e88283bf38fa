// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package settingsrp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/momeni/schema-forge/pkg/adapter/config/cfg1"
	"github.com/momeni/schema-forge/pkg/adapter/config/settings"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres/migration/sch1v1"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres/migration/settle/stlmig1"
	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/log"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/usecase/appuc"
)

// Fetch queries the mutable settings from the settings repository,
// deserializes them, merges them into a clone of the baseConfs
// representing the configuration file and environment variables state,
// and returns the fresh configuration instance as an appuc.Builder
// interface in addition to its visible settings (as an instance of the
// version-independent model.VisibleSettings struct) and the settings
// boundary values. Database settings which fall out of the acceptable
// boundary values are adjusted to the nearest valid value and that
// adjustment is logged as a warning (the database contents are kept
// unchanged since they may belong to a newer configuration which is
// going to update the boundary values subsequently).
func Fetch(
	ctx context.Context, c *postgres.Conn, baseConfs *cfg1.Config,
) (
	appuc.Builder, *model.VisibleSettings,
	*model.Settings, *model.Settings, error,
) {
	b, err := sch1v1.LoadSettings(ctx, c)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf(
			"sch1v1.LoadSettings: %w", err,
		)
	}
	var ser cfg1.Serializable
	err = json.Unmarshal(b, &ser)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf(
			"deserializing json: %w", err,
		)
	}
	confs := baseConfs.Clone()
	err = confs.Mutate(ser)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf(
			"confs.Mutate(%#v): %w", ser, err,
		)
	}
	if err := settings.VerifyRange(
		&confs.Usecases.Graph.MaxDepth,
		confs.Usecases.Graph.MinMaxDepth,
		confs.Usecases.Graph.MaxMaxDepth,
	); err != nil {
		log.Warn(
			ctx,
			"stored graph max depth is adjusted by boundary values",
			slog.Any("value", err.Value),
			slog.Any("minb", confs.Usecases.Graph.MinMaxDepth),
			slog.Any("maxb", confs.Usecases.Graph.MaxMaxDepth),
			log.Err("violation", err),
		)
	}
	vs := visibleSettings(confs)
	minb, maxb := boundarySettings(confs)
	return confs, vs, minb, maxb, nil
}

// Update converts the version-independent mutable model.Settings
// instance into a version-dependent serializable settings instance
// for the last supported version, serializes them as JSON, and
// then stores them in the settings repository. Given mutable settings
// are also used in order to update a clone of the baseConfs instance.
// Updated configuration settings will be returned as an instance of
// the appuc.Builder interface in addition to its visible settings
// (which are provided as an instance of the version-independent
// model.VisibleSettings struct) and the settings boundary values.
// If the given settings fall out of the acceptable boundary values,
// an error will be returned and the database will be kept unchanged.
func Update(
	ctx context.Context,
	tx *postgres.Tx,
	baseConfs *cfg1.Config,
	s *model.Settings,
) (
	appuc.Builder, *model.VisibleSettings,
	*model.Settings, *model.Settings, error,
) {
	ser := cfg1.Serializable{
		Version: cfg1.Version,
	}
	settings.OverwriteUnconditionally(
		&ser.Settings.Visible.Graph.MaxDepth,
		s.VisibleSettings.Graph.MaxDepth,
	)
	settings.OverwriteUnconditionally(
		&ser.Settings.Visible.Validation.Lenient,
		s.VisibleSettings.Validation.Lenient,
	)
	settings.OverwriteUnconditionally(
		&ser.Settings.Visible.DDL.AutoTimestamps,
		s.VisibleSettings.DDL.AutoTimestamps,
	)
	confs := baseConfs.Clone()
	if err := confs.Mutate(ser); err != nil {
		return nil, nil, nil, nil, fmt.Errorf(
			"confs.Mutate(%#v): %w", ser, err,
		)
	}
	if err := settings.VerifyRange(
		&confs.Usecases.Graph.MaxDepth,
		confs.Usecases.Graph.MinMaxDepth,
		confs.Usecases.Graph.MaxMaxDepth,
	); err != nil {
		return nil, nil, nil, nil, cerr.BadRequest(fmt.Errorf(
			"graph max depth is out of the acceptable range: %w", err,
		))
	}
	b, err := json.Marshal(ser)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf(
			"serializing json: %w", err,
		)
	}
	sm1 := stlmig1.New(tx)
	err = sm1.PersistSettings(ctx, b)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf(
			"persisting settings: %w", err,
		)
	}
	vs := visibleSettings(confs)
	minb, maxb := boundarySettings(confs)
	return confs, vs, minb, maxb, nil
}

// visibleSettings converts the visible settings of the given confs
// instance into their version-independent model layer counterpart.
func visibleSettings(confs *cfg1.Config) *model.VisibleSettings {
	v := confs.Visible()
	vs := &model.VisibleSettings{
		ImmutableSettings: &model.ImmutableSettings{
			ChangelogRecentLimit: v.Immutable.ChangelogRecentLimit,
		},
	}
	settings.OverwriteUnconditionally(
		&vs.Graph.MaxDepth, v.Graph.MaxDepth,
	)
	settings.OverwriteUnconditionally(
		&vs.Validation.Lenient, v.Validation.Lenient,
	)
	settings.OverwriteUnconditionally(
		&vs.DDL.AutoTimestamps, v.DDL.AutoTimestamps,
	)
	return vs
}

// boundarySettings reports the minimum and maximum acceptable settings
// values, as configured by the given confs instance, using the
// version-independent model layer structs. Settings which are not
// restricted by a boundary value are left uninitialized in the
// corresponding instance.
func boundarySettings(confs *cfg1.Config) (minb, maxb *model.Settings) {
	minb = &model.Settings{}
	maxb = &model.Settings{}
	settings.OverwriteUnconditionally(
		&minb.VisibleSettings.Graph.MaxDepth,
		confs.Usecases.Graph.MinMaxDepth,
	)
	settings.OverwriteUnconditionally(
		&maxb.VisibleSettings.Graph.MaxDepth,
		confs.Usecases.Graph.MaxMaxDepth,
	)
	return minb, maxb
}
