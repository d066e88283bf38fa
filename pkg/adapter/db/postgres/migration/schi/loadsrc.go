// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package schi

import (
	"context"
	"fmt"

	"github.com/momeni/schema-forge/pkg/core/repo"
	"github.com/momeni/schema-forge/pkg/core/usecase/storeuc"
)

// LoadSourceViews exposes the given tables of the `srcSchema` source
// store schema as pass-through views in the srcN_M local schema, where
// N and M are the given major and minor semantic schema version
// numbers. The source schema, such as forge1_0_2, belongs to the same
// database which the `tx` transaction is connected to, hence, no data
// item is copied and the views only record the source tables metadata.
// The srcN_M schema itself must exist already (it is created upfront
// together with the intermediate migN schemata, so a half-done upgrade
// can be detected and resumed by looking at the existing schemata),
// while the views must be non-existing and they must be created by
// this call of LoadSourceViews in the `tx` transaction. Otherwise, an
// error will be returned.
func LoadSourceViews(
	ctx context.Context,
	tx repo.Tx,
	major, minor uint,
	srcSchema string,
	tables []string,
) error {
	localSchema := storeuc.SourceViewsSchemaName(major, minor)
	// Although it is not possible to use parameterized queries in
	// these DDL statements, but the local and source schema names and
	// the table names are all trusted strings.
	for _, t := range tables {
		if _, err := tx.Exec(
			ctx,
			fmt.Sprintf(
				`CREATE VIEW %q.%q AS SELECT * FROM %q.%q`,
				localSchema, t, srcSchema, t,
			),
		); err != nil {
			return fmt.Errorf(
				"creating %q view in %q schema from %q schema: %w",
				t, localSchema, srcSchema, err,
			)
		}
	}
	return nil
}
