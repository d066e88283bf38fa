// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package migrationuc_test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/momeni/schema-forge/internal/test/defs"
	"github.com/momeni/schema-forge/internal/test/fakerepo"
	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/usecase/migrationuc"
	"github.com/stretchr/testify/require"
)

var testClock = time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)

func newUseCase(
	t *testing.T,
) (*migrationuc.UseCase, *fakerepo.Store) {
	t.Helper()
	s := fakerepo.NewStore()
	uc, err := migrationuc.New(
		s.Pool(), s.Migrations(), s.Schemas(),
		migrationuc.WithClock(func() time.Time {
			return testClock
		}),
	)
	require.NoError(t, err, "creating use case")
	return uc, s
}

func seedRecord(
	t *testing.T, s *fakerepo.Store, def *model.SchemaDefinition,
) *model.SchemaRecord {
	t.Helper()
	raw, err := def.Serialize()
	require.NoError(t, err, "serializing %s", def.ModelID)
	record := &model.SchemaRecord{
		ID:         uuid.New(),
		ModelID:    def.ModelID,
		Version:    def.Version,
		Name:       def.Name,
		TableName:  def.Table,
		Definition: raw,
		Status:     model.StatusDraft,
	}
	s.Seed([]*model.SchemaRecord{record}, nil)
	return record
}

func requireStatusCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	var ce *cerr.Error
	require.ErrorAs(t, err, &ce)
	require.Equal(t, code, ce.HTTPStatusCode)
}

func TestGenerateInitialCreation(t *testing.T) {
	uc, s := newUseCase(t)
	user := seedRecord(t, s, defs.Users())

	m, err := uc.Generate(context.Background(), nil, user.ID, false)
	require.NoError(t, err)
	require.Equal(t, "20240517103000_create_user_1_0_0", m.Name)
	require.Nil(t, m.FromSchemaID)
	require.Equal(t, user.ID, m.ToSchemaID)
	require.Empty(t, m.FromVersion)
	require.Equal(t, "1.0.0", m.ToVersion)
	require.False(t, m.IsBreaking)
	require.Equal(t, model.MigrationPending, m.Status)
	require.Contains(t, m.ForwardSQL, `CREATE TABLE "users"`)
	require.Contains(t, m.RollbackSQL, `DROP TABLE IF EXISTS "users" CASCADE;`)

	sum := md5.Sum([]byte(m.ForwardSQL))
	require.Equal(t, hex.EncodeToString(sum[:]), m.Checksum)
}

func TestGenerateDiffMigration(t *testing.T) {
	uc, s := newUseCase(t)
	v1 := seedRecord(t, s, defs.Users())
	v2 := seedRecord(t, s, defs.UsersV110())

	m, err := uc.Generate(context.Background(), &v1.ID, v2.ID, false)
	require.NoError(t, err)
	require.Equal(t, "20240517103000_migrate_user_1_0_0_to_1_1_0", m.Name)
	require.NotNil(t, m.FromSchemaID)
	require.Equal(t, v1.ID, *m.FromSchemaID)
	require.Equal(t, "1.0.0", m.FromVersion)
	require.Equal(t, "1.1.0", m.ToVersion)
	require.False(t, m.IsBreaking, "adding a nullable column is safe")
	require.Equal(
		t, `ALTER TABLE "users" ADD COLUMN "name" VARCHAR;`, m.ForwardSQL,
	)
	require.Equal(
		t,
		`ALTER TABLE "users" DROP COLUMN "name" CASCADE;`,
		m.RollbackSQL,
	)
}

func TestGenerateEmptyDiff(t *testing.T) {
	uc, s := newUseCase(t)
	v1 := seedRecord(t, s, defs.Users())
	patched := defs.Users()
	patched.Version = "1.0.1"
	v2 := seedRecord(t, s, patched)

	m, err := uc.Generate(context.Background(), &v1.ID, v2.ID, false)
	require.NoError(t, err)
	require.Equal(t, "-- No changes detected", m.ForwardSQL)
	require.Equal(t, "-- No changes detected", m.RollbackSQL)
	require.False(t, m.IsBreaking)
}

func TestGenerateBreakingChange(t *testing.T) {
	uc, s := newUseCase(t)
	v1 := seedRecord(t, s, defs.Users())
	narrowed := defs.Users()
	narrowed.Version = "2.0.0"
	delete(narrowed.Properties, "email")
	narrowed.FieldOrder = []string{"id", "created_at"}
	narrowed.Required = []string{"id"}
	v2 := seedRecord(t, s, narrowed)

	m, err := uc.Generate(context.Background(), &v1.ID, v2.ID, false)
	require.NoError(t, err)
	require.True(t, m.IsBreaking, "a column drop taints the migration")
	require.Contains(t, m.ForwardSQL, `DROP COLUMN "email"`)
	require.Contains(t, m.RollbackSQL, `ADD COLUMN "email" VARCHAR NOT NULL UNIQUE`)
}

func TestGenerateRollbackReversesOrder(t *testing.T) {
	uc, s := newUseCase(t)
	v1 := seedRecord(t, s, defs.Users())
	v2def := defs.UsersV110()
	v2def.Indexes = []model.IndexDefinition{
		{Name: "idx_users_name", Columns: []string{"name"}},
	}
	v2 := seedRecord(t, s, v2def)

	m, err := uc.Generate(context.Background(), &v1.ID, v2.ID, false)
	require.NoError(t, err)

	forward := strings.Split(m.ForwardSQL, "\n")
	rollback := strings.Split(m.RollbackSQL, "\n")
	require.Len(t, forward, 2)
	require.Contains(t, forward[0], `ADD COLUMN "name"`)
	require.Contains(t, forward[1], `CREATE INDEX "idx_users_name"`)
	require.Len(t, rollback, 2)
	require.Contains(t, rollback[0], `DROP INDEX IF EXISTS "idx_users_name"`)
	require.Contains(t, rollback[1], `DROP COLUMN "name"`)
}

func TestGenerateIsIdempotentPerVersionPair(t *testing.T) {
	uc, s := newUseCase(t)
	ctx := context.Background()
	v1 := seedRecord(t, s, defs.Users())
	v2 := seedRecord(t, s, defs.UsersV110())

	first, err := uc.Generate(ctx, &v1.ID, v2.ID, false)
	require.NoError(t, err)
	second, err := uc.Generate(ctx, &v1.ID, v2.ID, false)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID,
		"repeated generation must return the existing record")

	replaced, err := uc.Generate(ctx, &v1.ID, v2.ID, true)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, replaced.ID,
		"regeneration must replace a pending migration")
	_, err = uc.GetByName(ctx, replaced.Name)
	require.NoError(t, err)
}

func TestGenerateNeverReplacesExecutedMigrations(t *testing.T) {
	uc, s := newUseCase(t)
	ctx := context.Background()
	v1 := seedRecord(t, s, defs.Users())
	v2 := seedRecord(t, s, defs.UsersV110())

	first, err := uc.Generate(ctx, &v1.ID, v2.ID, false)
	require.NoError(t, err)
	first.Status = model.MigrationApplied

	kept, err := uc.Generate(ctx, &v1.ID, v2.ID, true)
	require.NoError(t, err)
	require.Equal(t, first.ID, kept.ID,
		"an applied migration is immutable even under regenerate")
}

func TestGenerateRejectsCrossModelPairs(t *testing.T) {
	uc, s := newUseCase(t)
	user := seedRecord(t, s, defs.Users())
	post := seedRecord(t, s, defs.Posts())

	_, err := uc.Generate(context.Background(), &user.ID, post.ID, false)
	requireStatusCode(t, err, http.StatusBadRequest)
}

func TestGenerateUnknownSchema(t *testing.T) {
	uc, _ := newUseCase(t)
	_, err := uc.Generate(context.Background(), nil, uuid.New(), false)
	requireStatusCode(t, err, http.StatusNotFound)
}

func TestListNewestFirstAndByModel(t *testing.T) {
	uc, s := newUseCase(t)
	ctx := context.Background()
	user := seedRecord(t, s, defs.Users())
	post := seedRecord(t, s, defs.Posts())

	_, err := uc.Generate(ctx, nil, user.ID, false)
	require.NoError(t, err)
	_, err = uc.Generate(ctx, nil, post.ID, false)
	require.NoError(t, err)

	all, err := uc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	posts, err := uc.List(ctx, "Post")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, post.ID, posts[0].ToSchemaID)
}

func TestGetByIDAndName(t *testing.T) {
	uc, s := newUseCase(t)
	ctx := context.Background()
	user := seedRecord(t, s, defs.Users())
	m, err := uc.Generate(ctx, nil, user.ID, false)
	require.NoError(t, err)

	byID, err := uc.Get(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, m.Name, byID.Name)

	byName, err := uc.GetByName(ctx, m.Name)
	require.NoError(t, err)
	require.Equal(t, m.ID, byName.ID)

	_, err = uc.Get(ctx, uuid.New())
	requireStatusCode(t, err, http.StatusNotFound)
	_, err = uc.GetByName(ctx, "nope")
	requireStatusCode(t, err, http.StatusNotFound)
}
