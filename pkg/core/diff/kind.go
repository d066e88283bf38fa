// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package diff

import "fmt"

// ChangeKind specifies the structural change kind enum. Although this
// enum is numeric, it is (de)serialized as a string for readability in
// the adapter layer.
type ChangeKind int

// Valid values for the ChangeKind enum.
const (
	KindInvalid ChangeKind = iota // zero value is invalid

	KindAddColumn
	KindDropColumn
	KindAlterColumnType
	KindAlterColumnNull
	KindAlterColumnDefault
	KindAlterColumnUnique
	KindAddIndex
	KindDropIndex
	KindAddForeignKey
	KindDropForeignKey
)

// ChangeKindError indicates an invalid change kind. This error
// contains the invalid kind as an integer since its consumers find
// out about the value during a switch over computed changes and not
// by their own arguments.
type ChangeKindError int

// Error implements the error interface, returning a string
// representation of the ChangeKindError.
func (e ChangeKindError) Error() string {
	return fmt.Sprintf("invalid change kind: %d", int(e))
}

// Validate returns nil if the ChangeKind value is valid. For invalid
// values, an instance of the ChangeKindError will be returned.
func (k ChangeKind) Validate() error {
	switch k {
	case KindAddColumn, KindDropColumn, KindAlterColumnType,
		KindAlterColumnNull, KindAlterColumnDefault,
		KindAlterColumnUnique, KindAddIndex, KindDropIndex,
		KindAddForeignKey, KindDropForeignKey:
		return nil
	default:
		return ChangeKindError(k)
	}
}

// String converts the ChangeKind enum to a string, helping to
// serialize it for transmission to web clients (for improved
// readability). Invalid change kind causes a panic.
func (k ChangeKind) String() string {
	switch k {
	case KindAddColumn:
		return "add_column"
	case KindDropColumn:
		return "drop_column"
	case KindAlterColumnType:
		return "alter_column_type"
	case KindAlterColumnNull:
		return "alter_column_null"
	case KindAlterColumnDefault:
		return "alter_column_default"
	case KindAlterColumnUnique:
		return "alter_column_unique"
	case KindAddIndex:
		return "add_index"
	case KindDropIndex:
		return "drop_index"
	case KindAddForeignKey:
		return "add_foreign_key"
	case KindDropForeignKey:
		return "drop_foreign_key"
	default:
		panic(ChangeKindError(k))
	}
}
