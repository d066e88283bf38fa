// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package fakerepo provides in-memory implementations of the core
// repository interfaces, so use case tests can run complete lifecycle
// flows without a DBMS container. The fake preserves the repository
// contracts which the use cases rely on: typed not-found and conflict
// errors, listing orders, and edge unbinding/rebinding semantics.
// It is not a transactional store; each mutation applies immediately
// and a rolled back transaction is not undone.
package fakerepo

import (
	"context"
	"errors"
	"sync"

	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/repo"
)

// Store is the shared in-memory state behind all fake repositories.
// The zero value is not usable; create instances with NewStore.
type Store struct {
	mu sync.Mutex

	records    []*model.SchemaRecord
	edges      []*model.DependencyEdge
	migrations []*model.MigrationRecord
	changes    []*model.ChangeLogEntry
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{}
}

// Pool implements the repo.Pool interface over this store.
func (s *Store) Pool() repo.Pool {
	return pool{s}
}

// Schemas implements the repo.Schemas interface over this store.
func (s *Store) Schemas() repo.Schemas {
	return schemas{}
}

// Migrations implements the repo.Migrations interface over this store.
func (s *Store) Migrations() repo.Migrations {
	return migrations{}
}

// ChangeLog implements the repo.ChangeLog interface over this store.
func (s *Store) ChangeLog() repo.ChangeLog {
	return changelog{}
}

// Seed inserts the given records and edges directly, bypassing the
// lifecycle invariants, so tests can arrange arbitrary prior states.
func (s *Store) Seed(
	records []*model.SchemaRecord, edges []*model.DependencyEdge,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	s.edges = append(s.edges, edges...)
}

// Changes returns a snapshot of all change log entries in their append
// order.
func (s *Store) Changes() []*model.ChangeLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.ChangeLogEntry, len(s.changes))
	copy(out, s.changes)
	return out
}

// Edges returns a snapshot of all dependency edges.
func (s *Store) Edges() []*model.DependencyEdge {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.DependencyEdge, len(s.edges))
	copy(out, s.edges)
	return out
}

// ErrNotSupported is returned by the raw SQL execution methods; fake
// repositories only support the typed repository operations.
var ErrNotSupported = errors.New("fakerepo: raw SQL is not supported")

type pool struct {
	s *Store
}

func (p pool) Conn(ctx context.Context, handler repo.ConnHandler) error {
	return handler(ctx, conn{p.s})
}

// Close releases nothing; the in-memory store has no connections.
func (p pool) Close() error {
	return nil
}

type conn struct {
	s *Store
}

func (c conn) IsConn() {}

func (c conn) Exec(
	ctx context.Context, sql string, args ...any,
) (int64, error) {
	return 0, ErrNotSupported
}

func (c conn) Query(
	ctx context.Context, sql string, args ...any,
) (repo.Rows, error) {
	return nil, ErrNotSupported
}

func (c conn) Tx(ctx context.Context, handler repo.TxHandler) error {
	return handler(ctx, tx{c.s})
}

type tx struct {
	s *Store
}

func (t tx) IsTx() {}

func (t tx) Exec(
	ctx context.Context, sql string, args ...any,
) (int64, error) {
	return 0, ErrNotSupported
}

func (t tx) Query(
	ctx context.Context, sql string, args ...any,
) (repo.Rows, error) {
	return nil, ErrNotSupported
}

// unwrap extracts the shared store out of a fake conn or tx instance.
// Passing a queryer from another implementation panics, like the
// postgres adapters panic on foreign queryer types.
func unwrap(q any) *Store {
	switch q := q.(type) {
	case conn:
		return q.s
	case tx:
		return q.s
	default:
		panic("fakerepo: unknown queryer type")
	}
}
