// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package schemauc contains the schema records UseCase which supports
// the definition lifecycle use cases: submitting and validating
// definition documents, promoting them through the draft, active, and
// deprecated statuses, emitting their DDL, and reading their audit
// history. Every mutating operation runs in one transaction which
// covers the record write, the derived dependency edges, and the
// change log entry, so concurrent lifecycle requests serialize on the
// store.
package schemauc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/ddl"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/repo"
	"github.com/momeni/schema-forge/pkg/core/validate"
)

// ChangeHook is called synchronously, within the mutating transaction
// and right after the change log entry is appended, for every schema
// lifecycle change. A host may use it for real-time fan-out; the hook
// must not block, and a failure inside the hook rolls the whole
// operation back.
type ChangeHook func(ctx context.Context, change model.SchemaChange)

// UseCase represents the schema records use case. It holds a database
// connection pool, the schemas and change log repository instances
// (to be guided with the DB pool), and the validation settings.
type UseCase struct {
	pool      repo.Pool
	schemas   repo.Schemas
	changelog repo.ChangeLog

	validator *validate.Validator
	lenient   bool
	hook      ChangeHook
	now       func() time.Time

	recentLimit int
}

// New instantiates a schema records use case.
// Required parameters are passed individually, so caller has to
// provision them and whenever they change, caller will notice and fix
// them due to a compilation error.
// Optional parameters are passed as a series of functional options
// in order to facilitate their validation and flexibility.
func New(
	p repo.Pool, s repo.Schemas, c repo.ChangeLog, opts ...Option,
) (*UseCase, error) {
	uc := &UseCase{pool: p, schemas: s, changelog: c}
	for _, opt := range opts {
		if err := opt(uc); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	// now, deal with defaults
	if uc.now == nil {
		uc.now = time.Now
	}
	if uc.recentLimit == 0 {
		uc.recentLimit = DefaultRecentLimit
	}
	var vopts []validate.Option
	if uc.lenient {
		vopts = append(vopts, validate.WithLenient())
	}
	v, err := validate.New(vopts...)
	if err != nil {
		return nil, fmt.Errorf("creating validator: %w", err)
	}
	uc.validator = v
	return uc, nil
}

// DefaultRecentLimit bounds the RecentChanges listing when no limit
// was configured.
const DefaultRecentLimit = 50

// List returns the schema records matching the given filter.
func (uc *UseCase) List(
	ctx context.Context, filter repo.SchemaFilter,
) (records []*model.SchemaRecord, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		records, err = uc.schemas.Conn(c).List(ctx, filter)
		return err
	})
	if err != nil {
		records = nil
	}
	return
}

// Get returns the schema record with the given ID.
func (uc *UseCase) Get(
	ctx context.Context, id uuid.UUID,
) (record *model.SchemaRecord, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		record, err = uc.schemas.Conn(c).GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return
}

// GetDefinition returns the raw accepted definition document of the
// given schema record, byte-for-byte as it was submitted.
func (uc *UseCase) GetDefinition(
	ctx context.Context, id uuid.UUID,
) (json.RawMessage, error) {
	record, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return record.Definition, nil
}

// ValidateDraft parses and validates the given definition document
// without touching the store. A nil error means the document would be
// accepted by Create.
func (uc *UseCase) ValidateDraft(ctx context.Context, raw []byte) error {
	_, err := uc.parseAndValidate(raw)
	return err
}

// EmitDDL returns the ordered CREATE script of the given schema
// record. With withTimestamps, the created_at and updated_at audit
// columns are injected when the definition does not declare them.
func (uc *UseCase) EmitDDL(
	ctx context.Context, id uuid.UUID, withTimestamps bool,
) ([]string, error) {
	record, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	def, err := record.ParsedDefinition()
	if err != nil {
		return nil, fmt.Errorf("parsing stored definition: %w", err)
	}
	g := ddl.New()
	if withTimestamps {
		return g.CreateTableWithTimestamps(def)
	}
	return g.CreateTable(def)
}

// History returns the change log entries of the given schema, oldest
// first. Entries outlive their schema record, so the history of a
// deleted schema stays readable.
func (uc *UseCase) History(
	ctx context.Context, id uuid.UUID,
) (entries []*model.ChangeLogEntry, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		entries, err = uc.changelog.Conn(c).ListBySchema(ctx, id)
		return err
	})
	if err != nil {
		entries = nil
	}
	return
}

// RecentChanges returns the newest change log entries over all
// schemas. The limit is clamped to the configured upper bound; a
// non-positive limit asks for the bound itself.
func (uc *UseCase) RecentChanges(
	ctx context.Context, limit int,
) (entries []*model.ChangeLogEntry, err error) {
	if limit <= 0 || limit > uc.recentLimit {
		limit = uc.recentLimit
	}
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		entries, err = uc.changelog.Conn(c).Recent(ctx, limit)
		return err
	})
	if err != nil {
		entries = nil
	}
	return
}

// parseAndValidate decodes the raw document and runs the structural
// validator, wrapping a rejection as a bad request error.
func (uc *UseCase) parseAndValidate(
	raw []byte,
) (*model.SchemaDefinition, error) {
	def, err := model.ParseDefinition(raw)
	if err != nil {
		return nil, cerr.BadRequest(err)
	}
	if err := uc.validator.Validate(def); err != nil {
		return nil, cerr.BadRequest(err)
	}
	return def, nil
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
