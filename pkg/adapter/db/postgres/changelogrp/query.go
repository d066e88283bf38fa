// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package changelogrp

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres"
	"github.com/momeni/schema-forge/pkg/core/model"
)

type gChangeLogEntry struct {
	ID            uuid.UUID `gorm:"primaryKey;type:uuid;column:id"`
	SchemaID      uuid.UUID `gorm:"type:uuid;column:schema_id"`
	Type          string    `gorm:"column:change_type"`
	PreviousState []byte    `gorm:"type:jsonb"`
	NewState      []byte    `gorm:"type:jsonb"`
	Actor         string
	OccurredAt    time.Time
}

func (ge *gChangeLogEntry) TableName() string {
	return "schema_change_log"
}

func (ge *gChangeLogEntry) Model() *model.ChangeLogEntry {
	return &model.ChangeLogEntry{
		ID:            ge.ID,
		SchemaID:      ge.SchemaID,
		Type:          model.ChangeType(ge.Type),
		PreviousState: json.RawMessage(ge.PreviousState),
		NewState:      json.RawMessage(ge.NewState),
		Actor:         ge.Actor,
		OccurredAt:    ge.OccurredAt,
	}
}

// Append inserts one audit entry, so it commits or rolls back
// together with the mutation it records.
func Append[Q postgres.Queryer](
	ctx context.Context, q Q, e *model.ChangeLogEntry,
) error {
	gdb := q.GORM(ctx)
	ge := &gChangeLogEntry{
		ID:            e.ID,
		SchemaID:      e.SchemaID,
		Type:          string(e.Type),
		PreviousState: []byte(e.PreviousState),
		NewState:      []byte(e.NewState),
		Actor:         e.Actor,
		OccurredAt:    e.OccurredAt,
	}
	if err := gdb.Create(ge).Error; err != nil {
		return fmt.Errorf("inserting change log entry: %w", err)
	}
	return nil
}

// ListBySchema returns the entries of the given schema, oldest first,
// so they read as a history.
func ListBySchema[Q postgres.Queryer](
	ctx context.Context, q Q, schemaID uuid.UUID,
) ([]*model.ChangeLogEntry, error) {
	gdb := q.GORM(ctx)
	var ges []gChangeLogEntry
	gdb = gdb.Where(
		"schema_id=?", schemaID,
	).Order("occurred_at ASC").Find(&ges)
	if err := gdb.Error; err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return entries(ges), nil
}

// Recent returns at most limit entries over all schemas, newest first.
func Recent[Q postgres.Queryer](
	ctx context.Context, q Q, limit int,
) ([]*model.ChangeLogEntry, error) {
	gdb := q.GORM(ctx)
	var ges []gChangeLogEntry
	gdb = gdb.Order("occurred_at DESC").Limit(limit).Find(&ges)
	if err := gdb.Error; err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return entries(ges), nil
}

func entries(ges []gChangeLogEntry) []*model.ChangeLogEntry {
	es := make([]*model.ChangeLogEntry, len(ges))
	for i := range ges {
		es[i] = ges[i].Model()
	}
	return es
}
