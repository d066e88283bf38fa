// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package typemap maps the abstract field types of a schema definition
// onto concrete PostgreSQL column types and computes the cast
// expressions which may carry a column from one type to another.
// The mapping is pure and total over valid definitions; only a cast
// request between types which PostgreSQL cannot convert is rejected.
package typemap

import (
	"fmt"
	"strings"

	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/sqlenc"
)

// formatTypes maps a field format onto its column type, winning over
// the abstract type mapping, but losing to an explicit database.type.
var formatTypes = map[string]string{
	"date":      "DATE",
	"date-time": "TIMESTAMPTZ",
	"time":      "TIME",
	"uuid":      "UUID",
	"uri":       "TEXT",
	"ipv4":      "INET",
	"ipv6":      "INET",
	"email":     "VARCHAR",
	"hostname":  "VARCHAR",
}

// baseTypes maps an abstract field type onto its default column type.
// A null-typed field keeps a VARCHAR column, so a later version can
// assign it a real type without rewriting rows.
var baseTypes = map[string]string{
	"string":  "VARCHAR",
	"integer": "INTEGER",
	"number":  "DOUBLE PRECISION",
	"boolean": "BOOLEAN",
	"array":   "JSONB",
	"object":  "JSONB",
	"null":    "VARCHAR",
}

// Map resolves the PostgreSQL column type of the given field.
// An explicit database.type hint wins, then a known format, and at
// last the abstract type. An enum field with a database.enumType hint
// is typed by its named enum type instead (which the DDL generator
// must declare with a CREATE TYPE statement beforehand). VARCHAR and
// CHAR types are decorated with the length hint and DECIMAL/NUMERIC
// types with the precision and scale hints.
func Map(f *model.FieldDefinition) (string, error) {
	if f == nil {
		return "", fmt.Errorf("nil field definition")
	}
	if len(f.Enum) > 0 && f.HasHints() && f.Database.EnumType != "" {
		t, err := sqlenc.QuoteIdent(f.Database.EnumType)
		if err != nil {
			return "", fmt.Errorf("enum type name: %w", err)
		}
		return t, nil
	}
	var t string
	switch {
	case f.HasHints() && f.Database.Type != "":
		t = strings.ToUpper(strings.TrimSpace(f.Database.Type))
	case f.Format != "":
		var ok bool
		if t, ok = formatTypes[f.Format]; !ok {
			t = baseTypes[f.Type]
		}
	default:
		t = baseTypes[f.Type]
	}
	if t == "" {
		return "", fmt.Errorf("unmappable field type %q", f.Type)
	}
	return decorate(t, f.Database), nil
}

// decorate appends the length or precision/scale suffix to types which
// accept one, keeping every other type untouched.
func decorate(t string, h *model.DatabaseHints) string {
	if h == nil {
		return t
	}
	switch baseName(t) {
	case "VARCHAR", "CHAR", "CHARACTER VARYING", "CHARACTER":
		if h.Length > 0 && !strings.Contains(t, "(") {
			return fmt.Sprintf("%s(%d)", t, h.Length)
		}
	case "DECIMAL", "NUMERIC":
		if h.Precision > 0 && !strings.Contains(t, "(") {
			if h.Scale > 0 {
				return fmt.Sprintf("%s(%d,%d)", t, h.Precision, h.Scale)
			}
			return fmt.Sprintf("%s(%d)", t, h.Precision)
		}
	}
	return t
}

// baseName strips a parenthesized suffix, like the (50) of VARCHAR(50),
// returning the bare type name for comparison purposes.
func baseName(t string) string {
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	return strings.ToUpper(strings.TrimSpace(t))
}

// compatible enumerates the widening type transitions which cannot
// lose data nor fail on populated tables.
var compatible = map[[2]string]bool{
	{"VARCHAR", "TEXT"}:     true,
	{"INTEGER", "BIGINT"}:   true,
	{"DATE", "TIMESTAMPTZ"}: true,
	{"TIME", "TIMETZ"}:      true,
}

// Compatible reports whether changing a column from one type to the
// other is a widening change which succeeds on any populated table.
// Identical types are trivially compatible.
func Compatible(from, to string) bool {
	f, t := baseName(from), baseName(to)
	return f == t || compatible[[2]string{f, t}]
}

// incompatible enumerates cast pairs which PostgreSQL has no cast
// path for, so a generated USING clause would fail at execution time.
// Temporal, network, and UUID types cannot be produced from booleans,
// and JSONB values cannot collapse into scalar temporal types.
var incompatible = map[[2]string]bool{
	{"BOOLEAN", "TIMESTAMPTZ"}: true,
	{"BOOLEAN", "TIMESTAMP"}:   true,
	{"BOOLEAN", "DATE"}:        true,
	{"BOOLEAN", "TIME"}:        true,
	{"BOOLEAN", "TIMETZ"}:      true,
	{"BOOLEAN", "INET"}:        true,
	{"BOOLEAN", "UUID"}:        true,
	{"TIMESTAMPTZ", "BOOLEAN"}: true,
	{"TIMESTAMP", "BOOLEAN"}:   true,
	{"DATE", "BOOLEAN"}:        true,
	{"TIME", "BOOLEAN"}:        true,
	{"TIMETZ", "BOOLEAN"}:      true,
	{"INET", "BOOLEAN"}:        true,
	{"UUID", "BOOLEAN"}:        true,
	{"JSONB", "DATE"}:          true,
	{"JSONB", "TIME"}:          true,
	{"JSONB", "TIMETZ"}:        true,
	{"JSONB", "TIMESTAMP"}:     true,
	{"JSONB", "TIMESTAMPTZ"}:   true,
}

// CastExpression builds the USING clause expression which converts the
// (already quoted) column from one type to another. Stock casts are
// used when known, such as going through INTEGER for numeric-looking
// strings or DATE for timestamp truncation; otherwise, the target type
// is used directly. Cast pairs without a PostgreSQL conversion path
// are rejected with a *cerr.IncompatibleTypeChangeError.
func CastExpression(column, from, to string) (string, error) {
	f, t := baseName(from), baseName(to)
	if incompatible[[2]string{f, t}] {
		return "", &cerr.IncompatibleTypeChangeError{From: from, To: to}
	}
	switch {
	case (f == "VARCHAR" || f == "TEXT" || f == "CHAR") && t == "INTEGER":
		return column + "::INTEGER", nil
	case strings.HasPrefix(f, "TIMESTAMP") && t == "DATE":
		return column + "::DATE", nil
	}
	return column + "::" + baseName(to), nil
}
