// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package config is an adapter which accepts yaml formatted config
// files from its users and allows the engine to instantiate different
// components, from the adapter or use cases layers, using those loaded
// configuration settings.
// These settings may be versioned and maintained by sub-packages.
// However, the parsed and validated configurations should be passed
// to their ultimate components as a series of individual params (for
// the mandatory items) and a series of functional options (for
// the optional items), so they may be accumulated and validated
// in another (possibly non-exported) config struct (or directly in the
// relevant end-component such as a UseCase instance). This design
// decision causes a bit of redundancy in favor of a defensive solution.
package config

import (
	"context"
	"fmt"
	"os"

	"github.com/momeni/schema-forge/pkg/adapter/config/cfg1"
	"github.com/momeni/schema-forge/pkg/adapter/config/vers"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres"
)

// Load function loads, validates, and normalizes the configuration
// file and returns its settings as an instance of the Config struct.
// Given path must belong to a configuration file which conforms with
// the latest known configuration settings format.
// The corresponding store schema version must also match with the
// latest known store schema version.
func Load(path string) (*cfg1.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	v, err := vers.Load(data)
	if err != nil {
		return nil, fmt.Errorf("loading versions: %w", err)
	}
	vc := v.Versions
	switch {
	case vc.Config != cfg1.Version:
		return nil, fmt.Errorf(
			"unexpected config version: %s", vc.Config.String(),
		)
	case vc.Database != postgres.Version:
		return nil, fmt.Errorf(
			"unexpected store schema version: %s",
			vc.Database.String(),
		)
	}
	c, err := cfg1.Load(data)
	if err != nil {
		return nil, fmt.Errorf("loading cfg1.Config: %w", err)
	}
	return c, nil
}

// LoadFromDB function loads, validates, and normalizes the
// configuration file, overriding its mutable settings with their
// values from the engine database (if they could be queried), and
// returns the resulting settings as an instance of the Config struct.
// Given path must belong to a configuration file which conforms with
// the latest known configuration settings format.
// The corresponding store schema version must also match with the
// latest known store schema version.
//
// If the configuration file contents were valid, but the database
// contents could not be fetched, the loaded Config instance will be
// returned alongside the database querying error, so the caller may
// decide to continue with the static settings alone. The second return
// value reports if the first return value is usable (like an ok flag).
func LoadFromDB(ctx context.Context, path string) (
	*cfg1.Config, bool, error,
) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("reading config file: %w", err)
	}
	v, err := vers.Load(data)
	if err != nil {
		return nil, false, fmt.Errorf("loading versions: %w", err)
	}
	vc := v.Versions
	switch {
	case vc.Config != cfg1.Version:
		return nil, false, fmt.Errorf(
			"unexpected config version: %s", vc.Config.String(),
		)
	case vc.Database != postgres.Version:
		return nil, false, fmt.Errorf(
			"unexpected store schema version: %s",
			vc.Database.String(),
		)
	}
	return cfg1.LoadFromDB(ctx, data)
}
