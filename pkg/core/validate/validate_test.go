// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package validate_test

import (
	"testing"

	"github.com/momeni/schema-forge/internal/test/defs"
	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T, opts ...validate.Option) *validate.Validator {
	t.Helper()
	v, err := validate.New(opts...)
	require.NoError(t, err)
	return v
}

func TestValidDefinitions(t *testing.T) {
	v := newValidator(t)
	for _, def := range []*model.SchemaDefinition{
		defs.Users(), defs.UsersV110(), defs.Posts(), defs.Comments(),
	} {
		assert.NoError(t, v.Validate(def), "model %s", def.ModelID)
	}
}

func issues(t *testing.T, err error) []string {
	t.Helper()
	require.Error(t, err)
	var ide *cerr.InvalidDefinitionError
	require.ErrorAs(t, err, &ide)
	return ide.Issues
}

func TestHeaderChecks(t *testing.T) {
	v := newValidator(t)

	t.Run("wrong dialect", func(t *testing.T) {
		def := defs.Users()
		def.MetaSchemaID = "https://example.com/other/v9"
		assert.Contains(t, issues(t, v.Validate(def))[0], "$schema")
	})

	t.Run("injection in table name", func(t *testing.T) {
		def := defs.Users()
		def.Table = "users; DROP TABLE"
		assert.Contains(
			t, issues(t, v.Validate(def)),
			`table "users; DROP TABLE" is not a valid identifier`,
		)
	})

	t.Run("loose version", func(t *testing.T) {
		def := defs.Users()
		def.Version = "1.2"
		assert.Contains(
			t, issues(t, v.Validate(def))[0], "major.minor.patch",
		)
	})

	t.Run("bad dependency name", func(t *testing.T) {
		def := defs.Users()
		def.Dependencies = []string{"Ok_Model", "bad-model"}
		assert.Contains(
			t, issues(t, v.Validate(def))[0], `"bad-model"`,
		)
	})
}

func TestPrimaryKeyInvariant(t *testing.T) {
	v := newValidator(t)

	t.Run("missing", func(t *testing.T) {
		def := defs.Users()
		def.Properties["id"].Database.PrimaryKey = false
		msgs := issues(t, v.Validate(def))
		assert.Contains(t, msgs[len(msgs)-1], "exactly one field")
	})

	t.Run("duplicated", func(t *testing.T) {
		def := defs.Users()
		def.Properties["email"].Database.PrimaryKey = true
		msgs := issues(t, v.Validate(def))
		assert.Contains(t, msgs[len(msgs)-1], "only one field")
	})

	t.Run("pk may join composite unique", func(t *testing.T) {
		def := defs.Users()
		def.UniqueConstraints = []model.UniqueConstraint{
			{Columns: []string{"id", "email"}},
		}
		assert.NoError(t, v.Validate(def))
	})
}

func TestNameReferenceChecks(t *testing.T) {
	v := newValidator(t)

	t.Run("required names missing field", func(t *testing.T) {
		def := defs.Users()
		def.Required = append(def.Required, "nickname")
		assert.Contains(
			t, issues(t, v.Validate(def))[0], `required field "nickname"`,
		)
	})

	t.Run("index names missing column", func(t *testing.T) {
		def := defs.Users()
		def.Indexes = []model.IndexDefinition{
			{Name: "idx_users_nick", Columns: []string{"nickname"}},
		}
		assert.Contains(
			t, issues(t, v.Validate(def))[0], `column "nickname"`,
		)
	})

	t.Run("unique constraint names missing column", func(t *testing.T) {
		def := defs.Users()
		def.UniqueConstraints = []model.UniqueConstraint{
			{Columns: []string{"email", "nickname"}},
		}
		assert.Contains(
			t, issues(t, v.Validate(def))[0], `column "nickname"`,
		)
	})
}

func TestEnumChecks(t *testing.T) {
	v := newValidator(t)

	t.Run("field type", func(t *testing.T) {
		def := defs.Users()
		def.Properties["email"].Type = "text"
		assert.Contains(
			t, issues(t, v.Validate(def))[0], `unknown type "text"`,
		)
	})

	t.Run("index method", func(t *testing.T) {
		def := defs.Users()
		def.Indexes = []model.IndexDefinition{
			{
				Name:    "idx_users_email",
				Columns: []string{"email"},
				Method:  "quadtree",
			},
		}
		assert.Contains(
			t, issues(t, v.Validate(def))[0], `unknown method "quadtree"`,
		)
	})

	t.Run("relationship type", func(t *testing.T) {
		def := defs.Posts()
		def.Properties["author_id"].Relationship.Type = "ownedBy"
		assert.Contains(
			t, issues(t, v.Validate(def))[0],
			`unknown relationship type "ownedBy"`,
		)
	})

	t.Run("referential actions", func(t *testing.T) {
		def := defs.Posts()
		def.Properties["author_id"].Database.ForeignKey.OnDelete = "IGNORE"
		assert.Contains(
			t, issues(t, v.Validate(def))[0],
			`unknown onDelete action "IGNORE"`,
		)
	})
}

func TestStrictAggregatesAllIssues(t *testing.T) {
	def := defs.Users()
	def.Version = "1"
	def.Table = "users table"
	def.Properties["id"].Database.PrimaryKey = false

	msgs := issues(t, newValidator(t).Validate(def))
	assert.GreaterOrEqual(t, len(msgs), 3)
}

func TestLenientStopsAtFirstIssue(t *testing.T) {
	def := defs.Users()
	def.Version = "1"
	def.Table = "users table"
	def.Properties["id"].Database.PrimaryKey = false

	v := newValidator(t, validate.WithLenient())
	msgs := issues(t, v.Validate(def))
	assert.Len(t, msgs, 1)
}

func TestEmptyProperties(t *testing.T) {
	def := defs.Users()
	def.Properties = nil
	def.FieldOrder = nil
	def.Required = nil
	assert.Contains(
		t, issues(t, newValidator(t).Validate(def))[0],
		"at least one field",
	)
}
