// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ddl_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/momeni/schema-forge/internal/test/defs"
	"github.com/momeni/schema-forge/pkg/core/ddl"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireInOrder asserts that every needle appears in the haystack and
// that their first occurrences keep the given order.
func requireInOrder(t *testing.T, haystack string, needles ...string) {
	t.Helper()
	last := -1
	for _, n := range needles {
		i := strings.Index(haystack, n)
		require.GreaterOrEqual(t, i, 0, "missing %q", n)
		require.Greater(t, i, last, "%q out of order", n)
		last = i
	}
}

func TestCreateTableUsers(t *testing.T) {
	g := ddl.New()
	stmts, err := g.CreateTable(defs.Users())
	require.NoError(t, err)

	script := strings.Join(stmts, "\n")
	requireInOrder(t, script,
		`CREATE TABLE "users"`,
		`"id" INTEGER PRIMARY KEY`,
		`"email" VARCHAR NOT NULL UNIQUE`,
		`"created_at" TIMESTAMPTZ DEFAULT NOW()`,
	)
	assert.Equal(
		t, 1, strings.Count(script, "CREATE TABLE"),
		"exactly one CREATE TABLE statement",
	)
	assert.Contains(t, script, `COMMENT ON TABLE "users"`)
}

// unquoted matches identifier-looking SQL words. Everything outside
// this closed keyword list must be double-quoted in emitted scripts.
var sqlKeywords = map[string]bool{
	"CREATE": true, "TABLE": true, "TYPE": true, "AS": true,
	"ENUM": true, "PRIMARY": true, "KEY": true, "NOT": true,
	"NULL": true, "UNIQUE": true, "DEFAULT": true, "CHECK": true,
	"CONSTRAINT": true, "INDEX": true, "ON": true, "USING": true,
	"ALTER": true, "ADD": true, "FOREIGN": true, "REFERENCES": true,
	"DELETE": true, "UPDATE": true, "CASCADE": true, "SET": true,
	"RESTRICT": true, "NO": true, "ACTION": true, "COMMENT": true,
	"COLUMN": true, "IS": true, "VARCHAR": true, "INTEGER": true,
	"TIMESTAMPTZ": true, "NOW": true, "WHERE": true, "WITH": true,
	"INCLUDE": true, "CONCURRENTLY": true, "DROP": true, "IF": true,
	"EXISTS": true, "TEXT": true, "BOOLEAN": true, "JSONB": true,
	"btree": true, "gin": true, "fillfactor": true,
}

func TestAllIdentifiersAreQuoted(t *testing.T) {
	g := ddl.New()
	for _, def := range []*model.SchemaDefinition{
		defs.Users(), defs.Posts(), defs.Comments(),
	} {
		stmts, err := g.CreateTable(def)
		require.NoError(t, err)
		script := strings.Join(stmts, "\n")
		// Strip quoted identifiers and string literals, then verify no
		// bare identifier-like word other than keywords survives.
		stripped := regexp.MustCompile(`"[^"]*"|'[^']*'`).
			ReplaceAllString(script, "")
		for _, w := range regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_$]*`).
			FindAllString(stripped, -1) {
			assert.True(
				t, sqlKeywords[w],
				"unquoted identifier %q leaked into %s", w, def.Table,
			)
		}
	}
}

func TestCreateTableEnumType(t *testing.T) {
	def := defs.Users()
	def.Properties["status"] = &model.FieldDefinition{
		Type: "string",
		Enum: []any{"pending", "active", "blocked"},
		Database: &model.DatabaseHints{
			EnumType: "user_status",
			Default:  "pending",
		},
	}
	def.FieldOrder = append(def.FieldOrder, "status")

	stmts, err := ddl.New().CreateTable(def)
	require.NoError(t, err)

	script := strings.Join(stmts, "\n")
	assert.Equal(
		t, 1, strings.Count(script, "CREATE TYPE"),
		"exactly one enum type declaration",
	)
	requireInOrder(t, script,
		`CREATE TYPE "user_status" AS ENUM ('pending', 'active', 'blocked');`,
		`CREATE TABLE "users"`,
		`"status" "user_status" DEFAULT 'pending'`,
	)
}

func TestCreateTableForeignKeysComeAfterTable(t *testing.T) {
	stmts, err := ddl.New().CreateTable(defs.Posts())
	require.NoError(t, err)

	script := strings.Join(stmts, "\n")
	requireInOrder(t, script,
		`CREATE TABLE "posts"`,
		`CREATE INDEX "idx_posts_author_id" ON "posts" ("author_id");`,
		`ALTER TABLE "posts" ADD CONSTRAINT "fk_posts_author_id" `+
			`FOREIGN KEY ("author_id") REFERENCES "users" ("id") ON DELETE CASCADE;`,
	)
	assert.NotContains(
		t, script[:strings.Index(script, "ALTER TABLE")], "REFERENCES",
		"foreign keys must not be inlined into CREATE TABLE",
	)
}

func TestImplicitIndexSkippedForPrimaryKey(t *testing.T) {
	def := defs.Users()
	def.Properties["id"].Database.Index = true

	stmts, err := ddl.New().CreateTable(def)
	require.NoError(t, err)
	assert.NotContains(
		t, strings.Join(stmts, "\n"), "idx_users_id",
	)
}

func TestCreateTableCompositeUnique(t *testing.T) {
	def := defs.Posts()
	def.UniqueConstraints = []model.UniqueConstraint{
		{Columns: []string{"author_id", "title"}},
	}
	stmts, err := ddl.New().CreateTable(def)
	require.NoError(t, err)
	assert.Contains(
		t, strings.Join(stmts, "\n"),
		`CONSTRAINT "uq_posts_author_id_title" UNIQUE ("author_id", "title")`,
	)
}

func TestIndexStatementKnobs(t *testing.T) {
	s, err := ddl.New().IndexStatement("events", model.IndexDefinition{
		Name:       "idx_events_payload",
		Columns:    []string{"kind", "occurred_at"},
		Unique:     true,
		Method:     "btree",
		Partial:    `"kind" <> 'noise'`,
		Include:    []string{"payload"},
		FillFactor: 80,
		Concurrent: true,
	})
	require.NoError(t, err)
	assert.Equal(
		t,
		`CREATE UNIQUE INDEX CONCURRENTLY "idx_events_payload" `+
			`ON "events" USING btree ("kind", "occurred_at") `+
			`INCLUDE ("payload") WITH (fillfactor = 80) `+
			`WHERE "kind" <> 'noise';`,
		s,
	)
}

func TestCreateTableWithTimestamps(t *testing.T) {
	g := ddl.New()

	t.Run("injects missing columns", func(t *testing.T) {
		def := defs.Posts()
		stmts, err := g.CreateTableWithTimestamps(def)
		require.NoError(t, err)
		script := strings.Join(stmts, "\n")
		assert.Contains(
			t, script,
			`"created_at" TIMESTAMPTZ NOT NULL DEFAULT NOW()`,
		)
		assert.Contains(
			t, script,
			`"updated_at" TIMESTAMPTZ NOT NULL DEFAULT NOW()`,
		)
		// The input definition must stay untouched.
		assert.NotContains(t, def.OrderedFields(), "updated_at")
	})

	t.Run("keeps declared columns", func(t *testing.T) {
		stmts, err := g.CreateTableWithTimestamps(defs.Users())
		require.NoError(t, err)
		script := strings.Join(stmts, "\n")
		assert.Contains(t, script, `"created_at" TIMESTAMPTZ DEFAULT NOW()`)
		assert.Equal(t, 1, strings.Count(script, `"created_at"`))
	})
}

func TestDropTable(t *testing.T) {
	g := ddl.New()
	stmts, err := g.DropTable("users", true)
	require.NoError(t, err)
	assert.Equal(t, []string{`DROP TABLE IF EXISTS "users" CASCADE;`}, stmts)

	stmts, err = g.DropTable("users", false)
	require.NoError(t, err)
	assert.Equal(t, []string{`DROP TABLE IF EXISTS "users";`}, stmts)
}

func TestAlterTable(t *testing.T) {
	g := ddl.New()
	stmts, err := g.AlterTable("users", []ddl.Alteration{
		ddl.AddColumn{
			Name:  "name",
			Field: &model.FieldDefinition{Type: "string"},
		},
		ddl.AlterColumnType{
			Name: "age", OldType: "VARCHAR", NewType: "INTEGER",
		},
		ddl.AlterColumnNull{Name: "email", NotNull: true},
		ddl.AlterColumnDefault{Name: "state", Default: "new"},
		ddl.AlterColumnDefault{Name: "state", Drop: true},
		ddl.RenameColumn{Old: "state", New: "status"},
		ddl.AddConstraint{
			Name:       "uq_users_email",
			Definition: `UNIQUE ("email")`,
		},
		ddl.DropConstraint{Name: "uq_users_email"},
		ddl.DropColumn{Name: "name", Cascade: true},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		`ALTER TABLE "users" ADD COLUMN "name" VARCHAR;`,
		`ALTER TABLE "users" ALTER COLUMN "age" TYPE INTEGER USING "age"::INTEGER;`,
		`ALTER TABLE "users" ALTER COLUMN "email" SET NOT NULL;`,
		`ALTER TABLE "users" ALTER COLUMN "state" SET DEFAULT 'new';`,
		`ALTER TABLE "users" ALTER COLUMN "state" DROP DEFAULT;`,
		`ALTER TABLE "users" RENAME COLUMN "state" TO "status";`,
		`ALTER TABLE "users" ADD CONSTRAINT "uq_users_email" UNIQUE ("email");`,
		`ALTER TABLE "users" DROP CONSTRAINT "uq_users_email";`,
		`ALTER TABLE "users" DROP COLUMN "name" CASCADE;`,
	}, stmts)
}

func TestAlterTableRejectsInvalidIdentifiers(t *testing.T) {
	g := ddl.New()
	_, err := g.AlterTable("users", []ddl.Alteration{
		ddl.DropColumn{Name: "nick name"},
	})
	require.Error(t, err)

	_, err = g.AlterTable("users; --", nil)
	require.Error(t, err)
}
