// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package sqlenc encodes identifiers and literal values for inclusion
// in generated PostgreSQL statements. All SQL emission in this project
// routes through these primitives, so user-chosen identifiers and
// default values can never break out of their quoted positions.
package sqlenc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/momeni/schema-forge/pkg/core/cerr"
)

// identPattern accepts the unquoted PostgreSQL identifier alphabet.
// Quoting relaxes none of it, so generated statements stay readable
// and copy-paste safe.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// functionDefaults enumerates the bare function-like constants which
// may be used as a column default without quoting, compared
// case-insensitively.
var functionDefaults = []string{
	"NOW",
	"CURRENT_TIMESTAMP",
	"CURRENT_DATE",
	"uuid_generate_v4",
	"gen_random_uuid",
}

// QuoteIdent validates s against the accepted identifier pattern and
// returns its double-quoted form, doubling any inner double-quote.
// Non-matching names, including the empty string, are rejected with a
// *cerr.InvalidIdentifierError instance.
func QuoteIdent(s string) (string, error) {
	if !identPattern.MatchString(s) {
		return "", &cerr.InvalidIdentifierError{Identifier: s}
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`, nil
}

// EscapeString returns the single-quoted literal form of s, doubling
// any inner single-quote.
func EscapeString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// FormatDefault renders value as a DEFAULT clause expression for a
// column of the sqlType type. Nil renders as NULL, booleans as
// TRUE/FALSE, and numbers as plain literals. Strings which look like a
// function call, having a () suffix or matching a known function-like
// constant, pass through verbatim; other strings are quoted. Objects
// and arrays are serialized as JSON and quoted, relying on the
// assignment cast of the string literal to the target column type.
func FormatDefault(value any, sqlType string) (string, error) {
	switch v := value.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if v {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case json.Number:
		return v.String(), nil
	case string:
		if isFunctionShape(v) {
			return v, nil
		}
		return EscapeString(v), nil
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("serializing default value: %w", err)
		}
		return EscapeString(string(b)), nil
	default:
		return "", fmt.Errorf(
			"unsupported default value of type %T for column type %s",
			value, sqlType,
		)
	}
}

// isFunctionShape detects string defaults which name a PostgreSQL
// function or one of the function-like constants, so they can be
// emitted without quoting.
func isFunctionShape(s string) bool {
	if strings.HasSuffix(s, "()") {
		return true
	}
	for _, f := range functionDefaults {
		if strings.EqualFold(s, f) {
			return true
		}
	}
	return false
}
