// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package migrationuc contains the migration generation UseCase which
// turns a pair of stored schema versions into a named, checksummed
// pair of forward and rollback SQL scripts. The engine only generates
// and records the scripts; executing them against user tables is the
// job of an external collaborator which reports the execution status
// back through the migrations repository.
package migrationuc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/repo"
)

// UseCase represents the migration generation use case. It holds a
// database connection pool and the migrations and schemas repository
// instances (to be guided with the DB pool).
type UseCase struct {
	pool       repo.Pool
	migrations repo.Migrations
	schemas    repo.Schemas

	now func() time.Time
}

// Option is a functional option for the migration generation use case.
type Option func(uc *UseCase) error

// WithClock option configures a migrationuc UseCase instance to read
// the current time from the given function instead of time.Now, making
// the generated migration names reproducible in tests. This option may
// be passed to the New() function.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) error {
		if now == nil {
			return errors.New("clock function must not be nil")
		}
		if uc.now != nil {
			return errors.New("clock is already configured")
		}
		uc.now = now
		return nil
	}
}

// New instantiates a migration generation use case.
func New(
	p repo.Pool, m repo.Migrations, s repo.Schemas, opts ...Option,
) (*UseCase, error) {
	uc := &UseCase{pool: p, migrations: m, schemas: s}
	for _, opt := range opts {
		if err := opt(uc); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	// now, deal with defaults
	if uc.now == nil {
		uc.now = time.Now
	}
	return uc, nil
}

// List returns the generated migration records, newest first. A
// non-empty modelID restricts the listing to one model.
func (uc *UseCase) List(
	ctx context.Context, modelID string,
) (records []*model.MigrationRecord, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		records, err = uc.migrations.Conn(c).List(ctx, modelID)
		return err
	})
	if err != nil {
		records = nil
	}
	return
}

// Get returns the migration record with the given ID.
func (uc *UseCase) Get(
	ctx context.Context, id uuid.UUID,
) (record *model.MigrationRecord, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		record, err = uc.migrations.Conn(c).GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return
}

// GetByName returns the migration record with the given unique name.
func (uc *UseCase) GetByName(
	ctx context.Context, name string,
) (record *model.MigrationRecord, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		record, err = uc.migrations.Conn(c).GetByName(ctx, name)
		return err
	})
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return
}

// wrapNotFound decorates repository lookup failures with their HTTP
// status, passing other errors through unchanged.
func wrapNotFound(err error) error {
	var nf *cerr.NotFoundError
	if errors.As(err, &nf) {
		return cerr.NotFound(err)
	}
	return err
}
