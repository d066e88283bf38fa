// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package diff_test

import (
	"testing"

	"github.com/momeni/schema-forge/internal/test/defs"
	"github.com/momeni/schema-forge/pkg/core/diff"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDiff(t *testing.T, from, to *model.SchemaDefinition) *diff.Changeset {
	t.Helper()
	cs, err := diff.Diff(from, to)
	require.NoError(t, err)
	return cs
}

func kinds(cs *diff.Changeset) []diff.ChangeKind {
	out := make([]diff.ChangeKind, 0, len(cs.Changes))
	for _, ch := range cs.Changes {
		out = append(out, ch.Kind)
	}
	return out
}

func TestDiffIdenticalDefinitions(t *testing.T) {
	cs := mustDiff(t, defs.Users(), defs.Users())
	assert.True(t, cs.Empty())
	assert.False(t, cs.Breaking())
	assert.Equal(t, "users", cs.Table)
}

func TestDiffAddNullableColumn(t *testing.T) {
	cs := mustDiff(t, defs.Users(), defs.UsersV110())
	require.Len(t, cs.Changes, 1)

	ch := cs.Changes[0]
	assert.Equal(t, diff.KindAddColumn, ch.Kind)
	assert.Equal(t, "name", ch.Column)
	assert.False(t, ch.Breaking, "nullable add is safe on populated tables")
	assert.False(t, cs.Breaking())
}

func TestDiffAddNotNullColumn(t *testing.T) {
	t.Run("without default is breaking", func(t *testing.T) {
		to := defs.Users()
		to.Properties["tenant"] = &model.FieldDefinition{
			Type:     "string",
			Database: &model.DatabaseHints{NotNull: true},
		}
		to.FieldOrder = append(to.FieldOrder, "tenant")

		cs := mustDiff(t, defs.Users(), to)
		require.Len(t, cs.Changes, 1)
		assert.True(t, cs.Changes[0].Breaking)
	})

	t.Run("with default is safe", func(t *testing.T) {
		to := defs.Users()
		to.Properties["tenant"] = &model.FieldDefinition{
			Type: "string",
			Database: &model.DatabaseHints{
				NotNull: true,
				Default: "main",
			},
		}
		to.FieldOrder = append(to.FieldOrder, "tenant")

		cs := mustDiff(t, defs.Users(), to)
		require.Len(t, cs.Changes, 1)
		assert.False(t, cs.Changes[0].Breaking)
	})
}

func TestDiffDropColumnIsBreaking(t *testing.T) {
	cs := mustDiff(t, defs.UsersV110(), defs.Users())
	require.Len(t, cs.Changes, 1)

	ch := cs.Changes[0]
	assert.Equal(t, diff.KindDropColumn, ch.Kind)
	assert.Equal(t, "name", ch.Column)
	assert.True(t, ch.Breaking)
	require.NotNil(t, ch.OldField, "rollback needs the dropped definition")
	assert.Equal(t, "string", ch.OldField.Type)
}

func TestDiffTypeChanges(t *testing.T) {
	t.Run("widening is safe", func(t *testing.T) {
		from := defs.Users()
		to := defs.Users()
		to.Properties["email"].Format = ""
		to.Properties["email"].Database.Type = "TEXT"

		cs := mustDiff(t, from, to)
		require.Len(t, cs.Changes, 1)
		ch := cs.Changes[0]
		assert.Equal(t, diff.KindAlterColumnType, ch.Kind)
		assert.Equal(t, "VARCHAR", ch.FromType)
		assert.Equal(t, "TEXT", ch.ToType)
		assert.False(t, ch.Breaking)
	})

	t.Run("narrowing is breaking", func(t *testing.T) {
		from := defs.Users()
		from.Properties["email"].Database.Type = "TEXT"
		to := defs.Users()

		cs := mustDiff(t, from, to)
		require.Len(t, cs.Changes, 1)
		ch := cs.Changes[0]
		assert.Equal(t, "TEXT", ch.FromType)
		assert.Equal(t, "VARCHAR", ch.ToType)
		assert.True(t, ch.Breaking)
	})

	t.Run("cross family is breaking", func(t *testing.T) {
		to := defs.Users()
		to.Properties["email"].Format = ""
		to.Properties["email"].Type = "integer"

		cs := mustDiff(t, defs.Users(), to)
		require.Len(t, cs.Changes, 1)
		assert.True(t, cs.Changes[0].Breaking)
	})
}

func TestDiffNullFlips(t *testing.T) {
	t.Run("tightening is breaking", func(t *testing.T) {
		to := defs.UsersV110()
		to.Properties["name"].Database = &model.DatabaseHints{NotNull: true}

		cs := mustDiff(t, defs.UsersV110(), to)
		require.Len(t, cs.Changes, 1)
		ch := cs.Changes[0]
		assert.Equal(t, diff.KindAlterColumnNull, ch.Kind)
		assert.True(t, ch.NotNull)
		assert.True(t, ch.Breaking)
	})

	t.Run("relaxing is safe", func(t *testing.T) {
		to := defs.Users()
		to.Properties["email"].Database.NotNull = false

		cs := mustDiff(t, defs.Users(), to)
		require.Len(t, cs.Changes, 1)
		ch := cs.Changes[0]
		assert.Equal(t, diff.KindAlterColumnNull, ch.Kind)
		assert.False(t, ch.NotNull)
		assert.False(t, ch.Breaking)
	})
}

func TestDiffDefaultChangeIsNeverBreaking(t *testing.T) {
	to := defs.Users()
	to.Properties["created_at"].Database.Default = "CURRENT_TIMESTAMP"

	cs := mustDiff(t, defs.Users(), to)
	require.Len(t, cs.Changes, 1)
	ch := cs.Changes[0]
	assert.Equal(t, diff.KindAlterColumnDefault, ch.Kind)
	assert.False(t, ch.Breaking)
	assert.Equal(t, "CURRENT_TIMESTAMP", ch.Default)
	assert.True(t, ch.HasDefault)
	assert.Equal(t, "NOW()", ch.OldDefault)
	assert.True(t, ch.HasOldDefault)

	t.Run("removed default", func(t *testing.T) {
		to := defs.Users()
		to.Properties["created_at"].Database.Default = nil

		cs := mustDiff(t, defs.Users(), to)
		require.Len(t, cs.Changes, 1)
		ch := cs.Changes[0]
		assert.Equal(t, diff.KindAlterColumnDefault, ch.Kind)
		assert.False(t, ch.HasDefault)
		assert.True(t, ch.HasOldDefault)
		assert.False(t, ch.Breaking)
	})
}

func TestDiffUniqueFlips(t *testing.T) {
	t.Run("dropping unique is breaking", func(t *testing.T) {
		to := defs.Users()
		to.Properties["email"].Database.Unique = false

		cs := mustDiff(t, defs.Users(), to)
		require.Len(t, cs.Changes, 1)
		ch := cs.Changes[0]
		assert.Equal(t, diff.KindAlterColumnUnique, ch.Kind)
		assert.False(t, ch.Unique)
		assert.True(t, ch.Breaking)
	})

	t.Run("adding unique is safe", func(t *testing.T) {
		to := defs.UsersV110()
		to.Properties["name"].Database = &model.DatabaseHints{Unique: true}

		cs := mustDiff(t, defs.UsersV110(), to)
		require.Len(t, cs.Changes, 1)
		ch := cs.Changes[0]
		assert.True(t, ch.Unique)
		assert.False(t, ch.Breaking)
	})
}

func TestDiffIndexes(t *testing.T) {
	withIdx := func(unique bool) *model.SchemaDefinition {
		def := defs.Users()
		def.Indexes = []model.IndexDefinition{{
			Name:    "idx_users_created_at",
			Columns: []string{"created_at"},
			Unique:  unique,
		}}
		return def
	}

	t.Run("added", func(t *testing.T) {
		cs := mustDiff(t, defs.Users(), withIdx(false))
		require.Len(t, cs.Changes, 1)
		ch := cs.Changes[0]
		assert.Equal(t, diff.KindAddIndex, ch.Kind)
		require.NotNil(t, ch.Index)
		assert.Equal(t, "idx_users_created_at", ch.Index.Name)
		assert.False(t, ch.Breaking)
	})

	t.Run("dropped plain index is safe", func(t *testing.T) {
		cs := mustDiff(t, withIdx(false), defs.Users())
		require.Len(t, cs.Changes, 1)
		assert.Equal(t, diff.KindDropIndex, cs.Changes[0].Kind)
		assert.False(t, cs.Changes[0].Breaking)
	})

	t.Run("dropped unique index is breaking", func(t *testing.T) {
		cs := mustDiff(t, withIdx(true), defs.Users())
		require.Len(t, cs.Changes, 1)
		assert.True(t, cs.Changes[0].Breaking)
	})

	t.Run("reshaped index pairs drop and add", func(t *testing.T) {
		cs := mustDiff(t, withIdx(false), withIdx(true))
		assert.Equal(t, []diff.ChangeKind{
			diff.KindDropIndex, diff.KindAddIndex,
		}, kinds(cs))
	})
}

func TestDiffForeignKeys(t *testing.T) {
	t.Run("retargeted action pairs drop and add", func(t *testing.T) {
		to := defs.Posts()
		to.Properties["author_id"].Database.ForeignKey.OnDelete = "RESTRICT"

		cs := mustDiff(t, defs.Posts(), to)
		require.Len(t, cs.Changes, 2)
		assert.Equal(t, diff.KindDropForeignKey, cs.Changes[0].Kind)
		assert.Equal(t, "author_id", cs.Changes[0].Column)
		assert.Equal(t, "CASCADE", cs.Changes[0].OldForeignKey.OnDelete)
		assert.Equal(t, diff.KindAddForeignKey, cs.Changes[1].Kind)
		assert.Equal(t, "RESTRICT", cs.Changes[1].ForeignKey.OnDelete)
		assert.False(t, cs.Breaking(), "foreign key changes are safe")
	})

	t.Run("dropped column carries its constraint", func(t *testing.T) {
		to := defs.Posts()
		delete(to.Properties, "author_id")
		to.FieldOrder = []string{"id", "title", "body"}
		to.Required = []string{"id", "title"}

		cs := mustDiff(t, defs.Posts(), to)
		assert.Equal(t, []diff.ChangeKind{diff.KindDropColumn}, kinds(cs),
			"no separate fk drop when the column itself goes away")
	})

	t.Run("new fk column adds both", func(t *testing.T) {
		cs := mustDiff(t, func() *model.SchemaDefinition {
			def := defs.Posts()
			delete(def.Properties, "author_id")
			def.FieldOrder = []string{"id", "title", "body"}
			def.Required = []string{"id", "title"}
			return def
		}(), defs.Posts())
		assert.Equal(t, []diff.ChangeKind{
			diff.KindAddColumn, diff.KindAddForeignKey,
		}, kinds(cs))
	})
}

func TestDiffOrderingAcrossObjectClasses(t *testing.T) {
	from := defs.Posts()
	from.Indexes = []model.IndexDefinition{{
		Name:    "idx_posts_title",
		Columns: []string{"title"},
	}}

	to := defs.Posts()
	// Retarget the fk, drop the declared index, drop body, add a new
	// column, and tighten the title length in one go.
	to.Properties["author_id"].Database.ForeignKey.OnDelete = "RESTRICT"
	delete(to.Properties, "body")
	to.FieldOrder = []string{"id", "author_id", "title", "summary"}
	to.Properties["summary"] = &model.FieldDefinition{Type: "string"}
	to.Properties["title"].Database.Length = 120
	to.Indexes = []model.IndexDefinition{{
		Name:    "idx_posts_summary",
		Columns: []string{"summary"},
	}}

	cs := mustDiff(t, from, to)
	assert.Equal(t, []diff.ChangeKind{
		diff.KindDropForeignKey,
		diff.KindDropIndex,
		diff.KindDropColumn,
		diff.KindAddColumn,
		diff.KindAlterColumnType,
		diff.KindAddIndex,
		diff.KindAddForeignKey,
	}, kinds(cs))
	assert.True(t, cs.Breaking(), "the column drop taints the changeset")
}

func TestDiffNilDefinitions(t *testing.T) {
	_, err := diff.Diff(nil, defs.Users())
	require.Error(t, err)
	_, err = diff.Diff(defs.Users(), nil)
	require.Error(t, err)
}

func TestChangeKindStrings(t *testing.T) {
	assert.Equal(t, "add_column", diff.KindAddColumn.String())
	assert.Equal(t, "drop_foreign_key", diff.KindDropForeignKey.String())
	require.Error(t, diff.ChangeKind(0).Validate())
	require.NoError(t, diff.KindAlterColumnUnique.Validate())
}
