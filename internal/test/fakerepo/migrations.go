// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package fakerepo

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/repo"
)

type migrations struct {
}

func (migrations) Conn(c repo.Conn) repo.MigrationsConnQueryer {
	return migrationsQueryer{unwrap(c)}
}

func (migrations) Tx(t repo.Tx) repo.MigrationsTxQueryer {
	return migrationsQueryer{unwrap(t)}
}

type migrationsQueryer struct {
	s *Store
}

func (q migrationsQueryer) Create(
	ctx context.Context, m *model.MigrationRecord,
) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	for _, r := range q.s.migrations {
		if r.Name == m.Name {
			return &cerr.MigrationNameConflictError{Name: m.Name}
		}
	}
	q.s.migrations = append(q.s.migrations, m)
	return nil
}

func (q migrationsQueryer) DeleteByID(
	ctx context.Context, id uuid.UUID,
) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	out := q.s.migrations[:0]
	found := false
	for _, r := range q.s.migrations {
		if r.ID == id {
			found = true
			continue
		}
		out = append(out, r)
	}
	if !found {
		return &cerr.NotFoundError{Kind: "migration", Key: id.String()}
	}
	q.s.migrations = out
	return nil
}

func (q migrationsQueryer) GetByID(
	ctx context.Context, id uuid.UUID,
) (*model.MigrationRecord, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	for _, r := range q.s.migrations {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, &cerr.NotFoundError{Kind: "migration", Key: id.String()}
}

func (q migrationsQueryer) GetByName(
	ctx context.Context, name string,
) (*model.MigrationRecord, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	for _, r := range q.s.migrations {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, &cerr.NotFoundError{Kind: "migration", Key: name}
}

func (q migrationsQueryer) List(
	ctx context.Context, modelID string,
) ([]*model.MigrationRecord, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	var out []*model.MigrationRecord
	for _, r := range q.s.migrations {
		if modelID != "" && q.s.modelOf(r.ToSchemaID) != modelID {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (q migrationsQueryer) FindByVersionPair(
	ctx context.Context, modelID, fromVersion, toVersion string,
) (*model.MigrationRecord, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	for _, r := range q.s.migrations {
		if q.s.modelOf(r.ToSchemaID) == modelID &&
			r.FromVersion == fromVersion && r.ToVersion == toVersion {
			return r, nil
		}
	}
	return nil, &cerr.NotFoundError{
		Kind: "migration",
		Key:  modelID + ":" + fromVersion + "->" + toVersion,
	}
}

// modelOf resolves a schema record ID to its model identifier.
// Callers must hold the store mutex.
func (s *Store) modelOf(id uuid.UUID) string {
	for _, r := range s.records {
		if r.ID == id {
			return r.ModelID
		}
	}
	return ""
}
