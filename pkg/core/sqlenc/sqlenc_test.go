// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package sqlenc_test

import (
	"fmt"
	"testing"

	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/sqlenc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdent(t *testing.T) {
	for _, tc := range []struct {
		name  string
		ident string
		want  string
	}{
		{"simple", "users", `"users"`},
		{"leading underscore", "_hidden", `"_hidden"`},
		{"mixed case", "UserAccounts", `"UserAccounts"`},
		{"digits and dollar", "tbl_2024$v1", `"tbl_2024$v1"`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			q, err := sqlenc.QuoteIdent(tc.ident)
			require.NoError(t, err, "quoting %q", tc.ident)
			assert.Equal(t, tc.want, q)
		})
	}
}

func TestQuoteIdentRejection(t *testing.T) {
	for _, tc := range []struct {
		name  string
		ident string
	}{
		{"empty", ""},
		{"leading digit", "1users"},
		{"embedded space", "user accounts"},
		{"embedded quote", `users"; DROP TABLE x; --`},
		{"hyphen", "user-accounts"},
		{"unicode", "usuários"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := sqlenc.QuoteIdent(tc.ident)
			require.Error(t, err, "expected %q to be rejected", tc.ident)
			var iie *cerr.InvalidIdentifierError
			require.ErrorAs(t, err, &iie)
			assert.Equal(t, tc.ident, iie.Identifier)
		})
	}
}

func TestEscapeString(t *testing.T) {
	a := assert.New(t)
	a.Equal("''", sqlenc.EscapeString(""))
	a.Equal("'plain'", sqlenc.EscapeString("plain"))
	a.Equal("'it''s'", sqlenc.EscapeString("it's"))
	a.Equal("'''; --'", sqlenc.EscapeString("'; --"))
}

func TestFormatDefault(t *testing.T) {
	for _, tc := range []struct {
		name    string
		value   any
		sqlType string
		want    string
	}{
		{"null", nil, "TEXT", "NULL"},
		{"true", true, "BOOLEAN", "TRUE"},
		{"false", false, "BOOLEAN", "FALSE"},
		{"int", 42, "INTEGER", "42"},
		{"int64", int64(-7), "BIGINT", "-7"},
		{"float", 2.5, "DOUBLE PRECISION", "2.5"},
		{"integral float", float64(1000), "BIGINT", "1000"},
		{"string", "active", "VARCHAR(50)", "'active'"},
		{"quoted string", "it's", "TEXT", "'it''s'"},
		{"function call", "uuid_generate_v4()", "UUID", "uuid_generate_v4()"},
		{"now constant", "NOW", "TIMESTAMPTZ", "NOW"},
		{"now lowercase", "now", "TIMESTAMPTZ", "now"},
		{"current timestamp", "CURRENT_TIMESTAMP", "TIMESTAMPTZ", "CURRENT_TIMESTAMP"},
		{"gen random uuid", "gen_random_uuid", "UUID", "gen_random_uuid"},
		{"empty array", []any{}, "JSONB", "'[]'"},
		{"object", map[string]any{"a": 1}, "JSONB", `'{"a":1}'`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := sqlenc.FormatDefault(tc.value, tc.sqlType)
			require.NoError(t, err, "formatting %#v", tc.value)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFormatDefaultUnsupported(t *testing.T) {
	_, err := sqlenc.FormatDefault(struct{}{}, "TEXT")
	require.Error(t, err)
}

func ExampleQuoteIdent() {
	q, err := sqlenc.QuoteIdent("customer_orders")
	fmt.Println(err)
	fmt.Println(q)
	// Output:
	// <nil>
	// "customer_orders"
}

func ExampleFormatDefault() {
	d, err := sqlenc.FormatDefault("NOW()", "TIMESTAMPTZ")
	fmt.Println(err)
	fmt.Println(d)
	// Output:
	// <nil>
	// NOW()
}
