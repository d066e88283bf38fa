// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package typemap_test

import (
	"testing"

	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/typemap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	for _, tc := range []struct {
		name  string
		field model.FieldDefinition
		want  string
	}{
		{
			"string", model.FieldDefinition{Type: "string"}, "VARCHAR",
		},
		{
			"string with length",
			model.FieldDefinition{
				Type:     "string",
				Database: &model.DatabaseHints{Length: 50},
			},
			"VARCHAR(50)",
		},
		{
			"integer", model.FieldDefinition{Type: "integer"}, "INTEGER",
		},
		{
			"number",
			model.FieldDefinition{Type: "number"},
			"DOUBLE PRECISION",
		},
		{
			"boolean", model.FieldDefinition{Type: "boolean"}, "BOOLEAN",
		},
		{"array", model.FieldDefinition{Type: "array"}, "JSONB"},
		{"object", model.FieldDefinition{Type: "object"}, "JSONB"},
		{"null", model.FieldDefinition{Type: "null"}, "VARCHAR"},
		{
			"date format",
			model.FieldDefinition{Type: "string", Format: "date"},
			"DATE",
		},
		{
			"date-time format",
			model.FieldDefinition{Type: "string", Format: "date-time"},
			"TIMESTAMPTZ",
		},
		{
			"uuid format",
			model.FieldDefinition{Type: "string", Format: "uuid"},
			"UUID",
		},
		{
			"uri format",
			model.FieldDefinition{Type: "string", Format: "uri"},
			"TEXT",
		},
		{
			"ipv6 format",
			model.FieldDefinition{Type: "string", Format: "ipv6"},
			"INET",
		},
		{
			"email format",
			model.FieldDefinition{Type: "string", Format: "email"},
			"VARCHAR",
		},
		{
			"email with length",
			model.FieldDefinition{
				Type:     "string",
				Format:   "email",
				Database: &model.DatabaseHints{Length: 320},
			},
			"VARCHAR(320)",
		},
		{
			"explicit type wins over format",
			model.FieldDefinition{
				Type:     "string",
				Format:   "date-time",
				Database: &model.DatabaseHints{Type: "timestamp"},
			},
			"TIMESTAMP",
		},
		{
			"decimal with precision and scale",
			model.FieldDefinition{
				Type: "number",
				Database: &model.DatabaseHints{
					Type:      "DECIMAL",
					Precision: 12,
					Scale:     2,
				},
			},
			"DECIMAL(12,2)",
		},
		{
			"numeric with precision only",
			model.FieldDefinition{
				Type: "number",
				Database: &model.DatabaseHints{
					Type:      "NUMERIC",
					Precision: 8,
				},
			},
			"NUMERIC(8)",
		},
		{
			"enum typed column",
			model.FieldDefinition{
				Type: "string",
				Enum: []any{"draft", "active"},
				Database: &model.DatabaseHints{
					EnumType: "status_type",
				},
			},
			`"status_type"`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := typemap.Map(&tc.field)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMapUnknownFormatFallsBack(t *testing.T) {
	got, err := typemap.Map(&model.FieldDefinition{
		Type:   "string",
		Format: "phone",
	})
	require.NoError(t, err)
	assert.Equal(t, "VARCHAR", got)
}

func TestCompatible(t *testing.T) {
	a := assert.New(t)
	a.True(typemap.Compatible("VARCHAR", "TEXT"))
	a.True(typemap.Compatible("VARCHAR(50)", "TEXT"))
	a.True(typemap.Compatible("INTEGER", "BIGINT"))
	a.True(typemap.Compatible("DATE", "TIMESTAMPTZ"))
	a.True(typemap.Compatible("TIME", "TIMETZ"))
	a.True(typemap.Compatible("INTEGER", "INTEGER"))

	a.False(typemap.Compatible("TEXT", "VARCHAR"))
	a.False(typemap.Compatible("BIGINT", "INTEGER"))
	a.False(typemap.Compatible("VARCHAR", "INTEGER"))
	a.False(typemap.Compatible("TIMESTAMPTZ", "DATE"))
}

func TestCastExpression(t *testing.T) {
	for _, tc := range []struct {
		name     string
		from, to string
		want     string
	}{
		{"varchar to integer", "VARCHAR", "INTEGER", `"age"::INTEGER`},
		{"text to integer", "TEXT", "INTEGER", `"age"::INTEGER`},
		{
			"timestamptz to date",
			"TIMESTAMPTZ", "DATE", `"age"::DATE`,
		},
		{
			"integer to varchar",
			"INTEGER", "VARCHAR(50)", `"age"::VARCHAR`,
		},
		{"varchar to jsonb", "VARCHAR", "JSONB", `"age"::JSONB`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := typemap.CastExpression(`"age"`, tc.from, tc.to)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCastExpressionIncompatible(t *testing.T) {
	for _, tc := range [][2]string{
		{"BOOLEAN", "TIMESTAMPTZ"},
		{"BOOLEAN", "UUID"},
		{"UUID", "BOOLEAN"},
		{"JSONB", "DATE"},
		{"JSONB", "TIMESTAMPTZ"},
	} {
		t.Run(tc[0]+" to "+tc[1], func(t *testing.T) {
			_, err := typemap.CastExpression(`"c"`, tc[0], tc[1])
			require.Error(t, err)
			var itc *cerr.IncompatibleTypeChangeError
			require.ErrorAs(t, err, &itc)
			assert.Equal(t, tc[0], itc.From)
			assert.Equal(t, tc[1], itc.To)
		})
	}
}
