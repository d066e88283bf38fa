// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package migrationuc

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/ddl"
	"github.com/momeni/schema-forge/pkg/core/diff"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/repo"
)

// noChanges is the script body of a migration between structurally
// equivalent definitions; the pair stays valid and idempotent.
const noChanges = "-- No changes detected"

// Generate builds and persists the migration record transitioning the
// target model between the given pair of stored schema versions. A nil
// from identifier asks for an initial table creation migration. The
// operation is idempotent per version pair: an existing migration of
// the same pair is returned as-is, unless regenerate is set and the
// existing migration is still pending, in which case it is replaced.
// An already executed migration is never replaced.
func (uc *UseCase) Generate(
	ctx context.Context, from *uuid.UUID, to uuid.UUID, regenerate bool,
) (record *model.MigrationRecord, err error) {
	err = uc.pool.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		return c.Tx(ctx, func(ctx context.Context, tx repo.Tx) error {
			sq := uc.schemas.Tx(tx)
			mq := uc.migrations.Tx(tx)

			toRec, err := sq.GetByID(ctx, to)
			if err != nil {
				return wrapNotFound(err)
			}
			var fromRec *model.SchemaRecord
			if from != nil {
				fromRec, err = sq.GetByID(ctx, *from)
				if err != nil {
					return wrapNotFound(err)
				}
				if fromRec.ModelID != toRec.ModelID {
					return cerr.BadRequest(fmt.Errorf(
						"cannot migrate between models %q and %q",
						fromRec.ModelID, toRec.ModelID,
					))
				}
			}

			fromVersion := ""
			if fromRec != nil {
				fromVersion = fromRec.Version
			}
			existing, err := mq.FindByVersionPair(
				ctx, toRec.ModelID, fromVersion, toRec.Version,
			)
			switch {
			case err == nil:
				if !regenerate ||
					existing.Status != model.MigrationPending {
					record = existing
					return nil
				}
				if err := mq.DeleteByID(ctx, existing.ID); err != nil {
					return fmt.Errorf(
						"replacing migration %s: %w", existing.Name, err,
					)
				}
			case !errors.As(err, new(*cerr.NotFoundError)):
				return fmt.Errorf("checking for prior migration: %w", err)
			}

			record, err = uc.build(fromRec, toRec)
			if err != nil {
				return err
			}
			if err := mq.Create(ctx, record); err != nil {
				var conflict *cerr.MigrationNameConflictError
				if errors.As(err, &conflict) {
					return cerr.Conflict(err)
				}
				return err
			}
			return nil
		})
	})
	if err != nil {
		record = nil
	}
	return
}

// build renders the forward and rollback scripts of one migration and
// assembles its unsaved record. A nil fromRec produces an initial
// creation migration.
func (uc *UseCase) build(
	fromRec, toRec *model.SchemaRecord,
) (*model.MigrationRecord, error) {
	toDef, err := toRec.ParsedDefinition()
	if err != nil {
		return nil, fmt.Errorf("parsing target definition: %w", err)
	}
	g := ddl.New()
	now := uc.now().UTC()

	record := &model.MigrationRecord{
		ID:         uuid.New(),
		ToSchemaID: toRec.ID,
		ToVersion:  toRec.Version,
		Status:     model.MigrationPending,
		CreatedAt:  now,
	}
	var forward, rollback []string
	switch {
	case fromRec == nil:
		forward, err = g.CreateTable(toDef)
		if err != nil {
			return nil, fmt.Errorf("rendering creation script: %w", err)
		}
		rollback, err = g.DropTable(toDef.Table, true)
		if err != nil {
			return nil, fmt.Errorf("rendering drop script: %w", err)
		}
		record.Name = fmt.Sprintf(
			"%s_create_%s_%s",
			now.Format("20060102150405"),
			strings.ToLower(toRec.ModelID),
			underscored(toRec.Version),
		)
	default:
		fromDef, err := fromRec.ParsedDefinition()
		if err != nil {
			return nil, fmt.Errorf("parsing source definition: %w", err)
		}
		cs, err := diff.Diff(fromDef, toDef)
		if err != nil {
			return nil, err
		}
		forward, rollback, err = uc.scripts(g, cs)
		if err != nil {
			return nil, err
		}
		record.IsBreaking = cs.Breaking()
		fromID := fromRec.ID
		record.FromSchemaID = &fromID
		record.FromVersion = fromRec.Version
		record.Name = fmt.Sprintf(
			"%s_migrate_%s_%s_to_%s",
			now.Format("20060102150405"),
			strings.ToLower(toRec.ModelID),
			underscored(fromRec.Version),
			underscored(toRec.Version),
		)
	}
	record.ForwardSQL = strings.Join(forward, "\n")
	record.RollbackSQL = strings.Join(rollback, "\n")
	sum := md5.Sum([]byte(record.ForwardSQL))
	record.Checksum = hex.EncodeToString(sum[:])
	return record, nil
}

// scripts maps each change of the changeset to its forward and
// rollback statement pair. Forward statements keep the changeset
// order; rollback statements are reversed, so each rollback undoes
// its forward counterpart against the state that counterpart created.
func (uc *UseCase) scripts(
	g *ddl.Generator, cs *diff.Changeset,
) (forward, rollback []string, err error) {
	if cs.Empty() {
		return []string{noChanges}, []string{noChanges}, nil
	}
	rollback = make([]string, len(cs.Changes))
	for i, ch := range cs.Changes {
		fwd, rb, err := uc.statements(g, cs.Table, ch)
		if err != nil {
			return nil, nil, fmt.Errorf("change #%d: %w", i, err)
		}
		forward = append(forward, fwd)
		rollback[len(cs.Changes)-1-i] = rb
	}
	return forward, rollback, nil
}

// statements renders the forward and rollback statements of a single
// structural change.
func (uc *UseCase) statements(
	g *ddl.Generator, table string, ch diff.Change,
) (forward, rollback string, err error) {
	switch ch.Kind {
	case diff.KindAddColumn:
		// Rolling back an added column must also drop the dependent
		// objects (e.g., its indexes) which the forward run created.
		return alterPair(
			g, table,
			ddl.AddColumn{Name: ch.Column, Field: ch.Field},
			ddl.DropColumn{Name: ch.Column, Cascade: true},
		)
	case diff.KindDropColumn:
		return alterPair(
			g, table,
			ddl.DropColumn{Name: ch.Column},
			ddl.AddColumn{Name: ch.Column, Field: ch.OldField},
		)
	case diff.KindAlterColumnType:
		return alterPair(
			g, table,
			ddl.AlterColumnType{
				Name:    ch.Column,
				OldType: ch.FromType,
				NewType: ch.ToType,
			},
			ddl.AlterColumnType{
				Name:    ch.Column,
				OldType: ch.ToType,
				NewType: ch.FromType,
			},
		)
	case diff.KindAlterColumnNull:
		return alterPair(
			g, table,
			ddl.AlterColumnNull{Name: ch.Column, NotNull: ch.NotNull},
			ddl.AlterColumnNull{Name: ch.Column, NotNull: !ch.NotNull},
		)
	case diff.KindAlterColumnDefault:
		return alterPair(
			g, table,
			ddl.AlterColumnDefault{
				Name:    ch.Column,
				Default: ch.Default,
				Drop:    !ch.HasDefault,
			},
			ddl.AlterColumnDefault{
				Name:    ch.Column,
				Default: ch.OldDefault,
				Drop:    !ch.HasOldDefault,
			},
		)
	case diff.KindAlterColumnUnique:
		name := "uq_" + table + "_" + ch.Column
		clause, err := ddl.UniqueConstraintClause(ch.Column)
		if err != nil {
			return "", "", err
		}
		add := ddl.AddConstraint{Name: name, Definition: clause}
		drop := ddl.DropConstraint{Name: name}
		if ch.Unique {
			return alterPair(g, table, add, drop)
		}
		return alterPair(g, table, drop, add)
	case diff.KindAddIndex:
		forward, err = g.IndexStatement(table, *ch.Index)
		if err != nil {
			return "", "", err
		}
		rollback, err = ddl.DropIndexStatement(ch.Index.Name)
		return forward, rollback, err
	case diff.KindDropIndex:
		forward, err = ddl.DropIndexStatement(ch.OldIndex.Name)
		if err != nil {
			return "", "", err
		}
		rollback, err = g.IndexStatement(table, *ch.OldIndex)
		return forward, rollback, err
	case diff.KindAddForeignKey:
		forward, err = ddl.ForeignKeyConstraint(
			table, ch.Column, ch.ForeignKey,
		)
		if err != nil {
			return "", "", err
		}
		rollback, err = alterOne(g, table, ddl.DropConstraint{
			Name: "fk_" + table + "_" + ch.Column,
		})
		return forward, rollback, err
	case diff.KindDropForeignKey:
		forward, err = alterOne(g, table, ddl.DropConstraint{
			Name: "fk_" + table + "_" + ch.Column,
		})
		if err != nil {
			return "", "", err
		}
		rollback, err = ddl.ForeignKeyConstraint(
			table, ch.Column, ch.OldForeignKey,
		)
		return forward, rollback, err
	default:
		return "", "", ch.Kind.Validate()
	}
}

// alterPair renders one forward and one rollback ALTER TABLE statement
// out of the given alteration pair.
func alterPair(
	g *ddl.Generator, table string, fwd, rb ddl.Alteration,
) (string, string, error) {
	f, err := alterOne(g, table, fwd)
	if err != nil {
		return "", "", err
	}
	r, err := alterOne(g, table, rb)
	if err != nil {
		return "", "", err
	}
	return f, r, nil
}

// alterOne renders a single-alteration ALTER TABLE script.
func alterOne(
	g *ddl.Generator, table string, a ddl.Alteration,
) (string, error) {
	stmts, err := g.AlterTable(table, []ddl.Alteration{a})
	if err != nil {
		return "", err
	}
	return stmts[0], nil
}

// underscored converts a semantic version string to its migration
// name fragment, replacing dots with underscores.
func underscored(version string) string {
	return strings.ReplaceAll(version, ".", "_")
}
