// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package schemauc_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/momeni/schema-forge/internal/test/defs"
	"github.com/momeni/schema-forge/internal/test/fakerepo"
	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/repo"
	"github.com/momeni/schema-forge/pkg/core/usecase/schemauc"
	"github.com/stretchr/testify/require"
)

var testClock = time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC)

func newUseCase(
	t *testing.T, opts ...schemauc.Option,
) (*schemauc.UseCase, *fakerepo.Store) {
	t.Helper()
	s := fakerepo.NewStore()
	opts = append(opts, schemauc.WithClock(func() time.Time {
		return testClock
	}))
	uc, err := schemauc.New(
		s.Pool(), s.Schemas(), s.ChangeLog(), opts...,
	)
	require.NoError(t, err, "creating use case")
	return uc, s
}

func mustCreate(
	t *testing.T, uc *schemauc.UseCase, def *model.SchemaDefinition,
) *model.SchemaRecord {
	t.Helper()
	raw, err := def.Serialize()
	require.NoError(t, err, "serializing %s", def.ModelID)
	record, err := uc.Create(context.Background(), raw, "tester")
	require.NoError(t, err, "creating %s", def.ModelID)
	return record
}

func requireStatusCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	var ce *cerr.Error
	require.ErrorAs(t, err, &ce)
	require.Equal(t, code, ce.HTTPStatusCode)
}

func TestCreateDraft(t *testing.T) {
	uc, store := newUseCase(t)
	def := defs.Users()
	raw, err := def.Serialize()
	require.NoError(t, err)

	record, err := uc.Create(context.Background(), raw, "alice")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, record.ID)
	require.Equal(t, "User", record.ModelID)
	require.Equal(t, "1.0.0", record.Version)
	require.Equal(t, "users", record.TableName)
	require.Equal(t, model.StatusDraft, record.Status)
	require.Equal(t, "alice", record.CreatedBy)
	require.Equal(t, testClock, record.CreatedAt)
	require.Equal(t, raw, []byte(record.Definition),
		"the submitted document must be stored byte-for-byte")

	changes := store.Changes()
	require.Len(t, changes, 1)
	require.Equal(t, model.ChangeCreated, changes[0].Type)
	require.Equal(t, record.ID, changes[0].SchemaID)
	require.Equal(t, "alice", changes[0].Actor)
	require.Nil(t, changes[0].PreviousState)
	require.NotNil(t, changes[0].NewState)
}

func TestCreateDuplicateVersionConflicts(t *testing.T) {
	uc, _ := newUseCase(t)
	mustCreate(t, uc, defs.Users())

	raw, err := defs.Users().Serialize()
	require.NoError(t, err)
	_, err = uc.Create(context.Background(), raw, "tester")
	requireStatusCode(t, err, http.StatusConflict)
	var dup *cerr.DuplicateVersionError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "User", dup.ModelID)
	require.Equal(t, "1.0.0", dup.Version)
}

func TestCreateInvalidDefinition(t *testing.T) {
	uc, store := newUseCase(t)
	def := defs.Users()
	def.MetaSchemaID = "https://example.com/other-dialect/v9"
	raw, err := def.Serialize()
	require.NoError(t, err)

	_, err = uc.Create(context.Background(), raw, "tester")
	requireStatusCode(t, err, http.StatusBadRequest)
	var invalid *cerr.InvalidDefinitionError
	require.ErrorAs(t, err, &invalid)
	require.Empty(t, store.Changes(), "a rejected document must not be logged")
}

func TestCreateDerivesForeignKeyEdges(t *testing.T) {
	uc, store := newUseCase(t)
	user := mustCreate(t, uc, defs.Users())
	_, err := uc.Activate(context.Background(), user.ID, "tester")
	require.NoError(t, err)

	post := mustCreate(t, uc, defs.Posts())
	edges := store.Edges()
	require.Len(t, edges, 1)
	e := edges[0]
	require.Equal(t, post.ID, e.FromSchemaID)
	require.Equal(t, "User", e.ToModelID)
	require.Equal(t, model.DependencyForeignKey, e.Type)
	require.Equal(t, "author_id", e.FieldName)
	require.NotNil(t, e.ToSchemaID, "active dependency must bind eagerly")
	require.Equal(t, user.ID, *e.ToSchemaID)
	require.JSONEq(
		t,
		`{"table":"users","column":"id","onDelete":"CASCADE"}`,
		string(e.Config),
	)
}

func TestCreateLeavesUnknownDependencyUnbound(t *testing.T) {
	uc, store := newUseCase(t)
	mustCreate(t, uc, defs.Posts())

	edges := store.Edges()
	require.Len(t, edges, 1)
	require.Nil(t, edges[0].ToSchemaID)
	require.Equal(t, "User", edges[0].ToModelID)
}

func TestUpdateDraft(t *testing.T) {
	uc, store := newUseCase(t)
	record := mustCreate(t, uc, defs.Users())

	raw, err := defs.UsersV110().Serialize()
	require.NoError(t, err)
	updated, err := uc.Update(context.Background(), record.ID, raw, "bob")
	require.NoError(t, err)
	require.Equal(t, record.ID, updated.ID)
	require.Equal(t, "1.1.0", updated.Version)
	require.Equal(t, model.StatusDraft, updated.Status)

	changes := store.Changes()
	require.Len(t, changes, 2)
	require.Equal(t, model.ChangeUpdated, changes[1].Type)
	require.NotNil(t, changes[1].PreviousState)
	require.NotNil(t, changes[1].NewState)
}

func TestUpdateRejectsModelIdentityChange(t *testing.T) {
	uc, _ := newUseCase(t)
	record := mustCreate(t, uc, defs.Users())

	raw, err := defs.Posts().Serialize()
	require.NoError(t, err)
	_, err = uc.Update(context.Background(), record.ID, raw, "tester")
	requireStatusCode(t, err, http.StatusBadRequest)
}

func TestUpdateNonDraftIsImmutable(t *testing.T) {
	uc, _ := newUseCase(t)
	record := mustCreate(t, uc, defs.Users())
	_, err := uc.Activate(context.Background(), record.ID, "tester")
	require.NoError(t, err)

	raw, err := defs.UsersV110().Serialize()
	require.NoError(t, err)
	_, err = uc.Update(context.Background(), record.ID, raw, "tester")
	requireStatusCode(t, err, http.StatusConflict)
	var immutable *cerr.ImmutableActiveError
	require.ErrorAs(t, err, &immutable)
	require.Equal(t, "active", immutable.Status)
}

func TestSystemRecordsAreProtected(t *testing.T) {
	uc, store := newUseCase(t)
	def := defs.Users()
	raw, err := def.Serialize()
	require.NoError(t, err)
	system := &model.SchemaRecord{
		ID:         uuid.New(),
		ModelID:    "User",
		Version:    "1.0.0",
		TableName:  "users",
		Definition: raw,
		Status:     model.StatusDraft,
		IsSystem:   true,
	}
	store.Seed([]*model.SchemaRecord{system}, nil)

	_, err = uc.Update(context.Background(), system.ID, raw, "tester")
	requireStatusCode(t, err, http.StatusConflict)
	var immutable *cerr.ImmutableSystemError
	require.ErrorAs(t, err, &immutable)

	err = uc.Delete(context.Background(), system.ID, "tester")
	requireStatusCode(t, err, http.StatusConflict)
	require.ErrorAs(t, err, &immutable)
}

func TestActivatePromotesAndRebinds(t *testing.T) {
	uc, store := newUseCase(t)
	post := mustCreate(t, uc, defs.Posts())
	user := mustCreate(t, uc, defs.Users())

	activated, err := uc.Activate(context.Background(), user.ID, "ops")
	require.NoError(t, err)
	require.Equal(t, model.StatusActive, activated.Status)

	edges := store.Edges()
	require.Len(t, edges, 1)
	require.Equal(t, post.ID, edges[0].FromSchemaID)
	require.NotNil(t, edges[0].ToSchemaID,
		"activation must rebind edges naming the model")
	require.Equal(t, user.ID, *edges[0].ToSchemaID)

	changes := store.Changes()
	last := changes[len(changes)-1]
	require.Equal(t, model.ChangeActivated, last.Type)
	require.Equal(t, "ops", last.Actor)
}

func TestActivateDemotesPreviousActive(t *testing.T) {
	uc, store := newUseCase(t)
	ctx := context.Background()
	v1 := mustCreate(t, uc, defs.Users())
	_, err := uc.Activate(ctx, v1.ID, "tester")
	require.NoError(t, err)

	v2 := mustCreate(t, uc, defs.UsersV110())
	activated, err := uc.Activate(ctx, v2.ID, "tester")
	require.NoError(t, err)
	require.Equal(t, model.StatusActive, activated.Status)

	demoted, err := uc.Get(ctx, v1.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusDeprecated, demoted.Status)

	var types []model.ChangeType
	for _, c := range store.Changes() {
		types = append(types, c.Type)
	}
	require.Equal(t, []model.ChangeType{
		model.ChangeCreated,   // v1
		model.ChangeActivated, // v1
		model.ChangeCreated,   // v2
		model.ChangeDeprecated, // v1, demoted by v2 activation
		model.ChangeActivated,  // v2
	}, types)
}

func TestActivateIsIdempotent(t *testing.T) {
	uc, store := newUseCase(t)
	ctx := context.Background()
	record := mustCreate(t, uc, defs.Users())
	_, err := uc.Activate(ctx, record.ID, "tester")
	require.NoError(t, err)
	n := len(store.Changes())

	again, err := uc.Activate(ctx, record.ID, "tester")
	require.NoError(t, err)
	require.Equal(t, model.StatusActive, again.Status)
	require.Len(t, store.Changes(), n, "a no-op must not be logged")
}

func TestActivateDeprecatedIsTerminal(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()
	record := mustCreate(t, uc, defs.Users())
	_, err := uc.Deprecate(ctx, record.ID, "tester")
	require.NoError(t, err)

	_, err = uc.Activate(ctx, record.ID, "tester")
	requireStatusCode(t, err, http.StatusConflict)
}

func TestActivateRejectsCycleClosingRebind(t *testing.T) {
	uc, store := newUseCase(t)
	a := &model.SchemaRecord{
		ID: uuid.New(), ModelID: "A", Version: "1.0.0",
		TableName: "a", Status: model.StatusDraft,
	}
	b := &model.SchemaRecord{
		ID: uuid.New(), ModelID: "B", Version: "1.0.0",
		TableName: "b", Status: model.StatusActive,
	}
	store.Seed(
		[]*model.SchemaRecord{a, b},
		[]*model.DependencyEdge{
			{
				ID: uuid.New(), FromSchemaID: a.ID,
				ToSchemaID: &b.ID, ToModelID: "B",
				Type: model.DependencyForeignKey,
			},
			{
				ID: uuid.New(), FromSchemaID: b.ID,
				ToModelID: "A", // unbound until A activates
				Type:      model.DependencyForeignKey,
			},
		},
	)

	_, err := uc.Activate(context.Background(), a.ID, "tester")
	requireStatusCode(t, err, http.StatusUnprocessableEntity)
	var cycle *cerr.CircularDependencyError
	require.ErrorAs(t, err, &cycle)
	require.Equal(t, []string{"A", "B"}, cycle.Residual)
}

func TestDeprecate(t *testing.T) {
	uc, store := newUseCase(t)
	ctx := context.Background()
	record := mustCreate(t, uc, defs.Users())
	_, err := uc.Activate(ctx, record.ID, "tester")
	require.NoError(t, err)

	retired, err := uc.Deprecate(ctx, record.ID, "ops")
	require.NoError(t, err)
	require.Equal(t, model.StatusDeprecated, retired.Status)

	changes := store.Changes()
	last := changes[len(changes)-1]
	require.Equal(t, model.ChangeDeprecated, last.Type)

	// deprecating again is a silent no-op
	_, err = uc.Deprecate(ctx, record.ID, "ops")
	require.NoError(t, err)
	require.Len(t, store.Changes(), len(changes))
}

func TestDeleteActiveIsRejected(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()
	record := mustCreate(t, uc, defs.Users())
	_, err := uc.Activate(ctx, record.ID, "tester")
	require.NoError(t, err)

	err = uc.Delete(ctx, record.ID, "tester")
	requireStatusCode(t, err, http.StatusConflict)
	var active *cerr.ActiveNotDeletableError
	require.ErrorAs(t, err, &active)
}

func TestDeleteWithDependentsIsRejected(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()
	user := mustCreate(t, uc, defs.Users())
	_, err := uc.Activate(ctx, user.ID, "tester")
	require.NoError(t, err)
	mustCreate(t, uc, defs.Posts())

	_, err = uc.Deprecate(ctx, user.ID, "tester")
	require.NoError(t, err)
	err = uc.Delete(ctx, user.ID, "tester")
	requireStatusCode(t, err, http.StatusConflict)
	var deps *cerr.HasDependentsError
	require.ErrorAs(t, err, &deps)
	require.Equal(t, []string{"Post"}, deps.Dependents)
}

func TestDeleteDraftKeepsHistory(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()
	record := mustCreate(t, uc, defs.Users())

	err := uc.Delete(ctx, record.ID, "cleaner")
	require.NoError(t, err)

	_, err = uc.Get(ctx, record.ID)
	requireStatusCode(t, err, http.StatusNotFound)

	history, err := uc.History(ctx, record.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, model.ChangeDeleted, history[1].Type)
	require.NotNil(t, history[1].PreviousState,
		"a deletion must snapshot the removed record")
	require.Nil(t, history[1].NewState)
}

func TestDeleteUnbindsDependentEdges(t *testing.T) {
	uc, store := newUseCase(t)
	ctx := context.Background()
	user := mustCreate(t, uc, defs.Users())
	_, err := uc.Activate(ctx, user.ID, "tester")
	require.NoError(t, err)
	mustCreate(t, uc, defs.Posts())
	_, err = uc.Deprecate(ctx, user.ID, "tester")
	require.NoError(t, err)

	// removing the dependent first clears the edge, then the user
	// record becomes deletable
	posts, err := uc.List(ctx, repo.SchemaFilter{ModelID: "Post"})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	err = uc.Delete(ctx, posts[0].ID, "tester")
	require.NoError(t, err)
	require.Empty(t, store.Edges())

	err = uc.Delete(ctx, user.ID, "tester")
	require.NoError(t, err)
}

func TestChangeHook(t *testing.T) {
	var seen []model.ChangeType
	s := fakerepo.NewStore()
	uc, err := schemauc.New(
		s.Pool(), s.Schemas(), s.ChangeLog(),
		schemauc.WithChangeHook(
			func(ctx context.Context, change model.SchemaChange) {
				seen = append(seen, change.Type)
			},
		),
	)
	require.NoError(t, err)

	ctx := context.Background()
	raw, err := defs.Users().Serialize()
	require.NoError(t, err)
	record, err := uc.Create(ctx, raw, "tester")
	require.NoError(t, err)
	_, err = uc.Activate(ctx, record.ID, "tester")
	require.NoError(t, err)

	require.Equal(t, []model.ChangeType{
		model.ChangeCreated, model.ChangeActivated,
	}, seen)
}

func TestValidateDraftDoesNotPersist(t *testing.T) {
	uc, store := newUseCase(t)
	raw, err := defs.Users().Serialize()
	require.NoError(t, err)
	require.NoError(t, uc.ValidateDraft(context.Background(), raw))

	records, err := uc.List(context.Background(), repo.SchemaFilter{})
	require.NoError(t, err)
	require.Empty(t, records)
	require.Empty(t, store.Changes())
}

func TestEmitDDL(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()
	record := mustCreate(t, uc, defs.Posts())

	stmts, err := uc.EmitDDL(ctx, record.ID, false)
	require.NoError(t, err)
	require.NotEmpty(t, stmts)
	require.Contains(t, stmts[0], `CREATE TABLE "posts"`)

	withTS, err := uc.EmitDDL(ctx, record.ID, true)
	require.NoError(t, err)
	require.Contains(t, withTS[0], `"created_at" TIMESTAMPTZ`)
	require.Contains(t, withTS[0], `"updated_at" TIMESTAMPTZ`)
}

func TestRecentChangesClamping(t *testing.T) {
	uc, _ := newUseCase(t, schemauc.WithRecentChangesLimit(2))
	ctx := context.Background()
	record := mustCreate(t, uc, defs.Users())
	_, err := uc.Activate(ctx, record.ID, "tester")
	require.NoError(t, err)
	_, err = uc.Deprecate(ctx, record.ID, "tester")
	require.NoError(t, err)

	entries, err := uc.RecentChanges(ctx, 100)
	require.NoError(t, err)
	require.Len(t, entries, 2, "the configured bound must clamp the limit")
	require.Equal(t, model.ChangeDeprecated, entries[0].Type,
		"recent changes are listed newest first")

	one, err := uc.RecentChanges(ctx, 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
}

func TestGetDefinitionRoundTrip(t *testing.T) {
	uc, _ := newUseCase(t)
	raw, err := defs.Users().Serialize()
	require.NoError(t, err)
	record, err := uc.Create(context.Background(), raw, "tester")
	require.NoError(t, err)

	got, err := uc.GetDefinition(context.Background(), record.ID)
	require.NoError(t, err)
	require.Equal(t, raw, []byte(got))
}
