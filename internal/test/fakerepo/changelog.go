// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package fakerepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/repo"
)

type changelog struct {
}

func (changelog) Conn(c repo.Conn) repo.ChangeLogConnQueryer {
	return changelogQueryer{unwrap(c)}
}

func (changelog) Tx(t repo.Tx) repo.ChangeLogTxQueryer {
	return changelogQueryer{unwrap(t)}
}

type changelogQueryer struct {
	s *Store
}

func (q changelogQueryer) Append(
	ctx context.Context, e *model.ChangeLogEntry,
) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	q.s.changes = append(q.s.changes, e)
	return nil
}

func (q changelogQueryer) ListBySchema(
	ctx context.Context, schemaID uuid.UUID,
) ([]*model.ChangeLogEntry, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	var out []*model.ChangeLogEntry
	for _, e := range q.s.changes {
		if e.SchemaID == schemaID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (q changelogQueryer) Recent(
	ctx context.Context, limit int,
) ([]*model.ChangeLogEntry, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	var out []*model.ChangeLogEntry
	for i := len(q.s.changes) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, q.s.changes[i])
	}
	return out, nil
}
