// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package ddl

import (
	"fmt"

	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/sqlenc"
	"github.com/momeni/schema-forge/pkg/core/typemap"
)

// Alteration is one element of the uniform table alteration
// vocabulary. Each implementation renders exactly one SQL statement.
// The interface is sealed by its unexported method, so the statement
// generation switch cannot miss a case at runtime.
type Alteration interface {
	// render produces the alteration statement for the table which is
	// already quoted as qtable.
	render(g *Generator, qtable string) (string, error)
}

// AlterTable emits exactly one statement per given alteration, in the
// given order. Callers are responsible for an order which applies
// cleanly, like dropping an old constraint before adding its
// replacement; the diff engine produces such an order already.
func (g *Generator) AlterTable(
	table string, alts []Alteration,
) ([]string, error) {
	qtable, err := sqlenc.QuoteIdent(table)
	if err != nil {
		return nil, fmt.Errorf("table name: %w", err)
	}
	stmts := make([]string, 0, len(alts))
	for i, alt := range alts {
		s, err := alt.render(g, qtable)
		if err != nil {
			return nil, fmt.Errorf("alteration #%d: %w", i, err)
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

// AddColumn appends a new column, rendered with the full column
// definition grammar of a CREATE TABLE body.
type AddColumn struct {
	Name  string
	Field *model.FieldDefinition
}

func (a AddColumn) render(g *Generator, qtable string) (string, error) {
	col, err := g.columnDef(a.Name, a.Field)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"ALTER TABLE %s ADD COLUMN %s;", qtable, col,
	), nil
}

// DropColumn removes a column, with CASCADE dropping the dependent
// objects like indexes and constraints covering it.
type DropColumn struct {
	Name    string
	Cascade bool
}

func (a DropColumn) render(g *Generator, qtable string) (string, error) {
	qname, err := sqlenc.QuoteIdent(a.Name)
	if err != nil {
		return "", err
	}
	stmt := fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", qtable, qname)
	if a.Cascade {
		stmt += " CASCADE"
	}
	return stmt + ";", nil
}

// AlterColumnType changes the column type. The USING clause is taken
// verbatim from the Using field when set; otherwise it is computed
// from the OldType and NewType pair through the type mapper, which
// rejects pairs PostgreSQL cannot cast.
type AlterColumnType struct {
	Name    string
	OldType string
	NewType string
	Using   string
}

func (a AlterColumnType) render(
	g *Generator, qtable string,
) (string, error) {
	qname, err := sqlenc.QuoteIdent(a.Name)
	if err != nil {
		return "", err
	}
	using := a.Using
	if using == "" {
		using, err = typemap.CastExpression(qname, a.OldType, a.NewType)
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf(
		"ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s;",
		qtable, qname, a.NewType, using,
	), nil
}

// AlterColumnNull flips the NOT NULL constraint of a column.
type AlterColumnNull struct {
	Name    string
	NotNull bool
}

func (a AlterColumnNull) render(
	g *Generator, qtable string,
) (string, error) {
	qname, err := sqlenc.QuoteIdent(a.Name)
	if err != nil {
		return "", err
	}
	verb := "DROP"
	if a.NotNull {
		verb = "SET"
	}
	return fmt.Sprintf(
		"ALTER TABLE %s ALTER COLUMN %s %s NOT NULL;",
		qtable, qname, verb,
	), nil
}

// AlterColumnDefault changes or drops the column default. The Drop
// flag distinguishes removing the default from setting it to a
// literal NULL.
type AlterColumnDefault struct {
	Name    string
	Default any
	Drop    bool
}

func (a AlterColumnDefault) render(
	g *Generator, qtable string,
) (string, error) {
	qname, err := sqlenc.QuoteIdent(a.Name)
	if err != nil {
		return "", err
	}
	if a.Drop {
		return fmt.Sprintf(
			"ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT;", qtable, qname,
		), nil
	}
	expr, err := sqlenc.FormatDefault(a.Default, "")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s;",
		qtable, qname, expr,
	), nil
}

// RenameColumn renames a column.
type RenameColumn struct {
	Old string
	New string
}

func (a RenameColumn) render(
	g *Generator, qtable string,
) (string, error) {
	qold, err := sqlenc.QuoteIdent(a.Old)
	if err != nil {
		return "", err
	}
	qnew, err := sqlenc.QuoteIdent(a.New)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"ALTER TABLE %s RENAME COLUMN %s TO %s;", qtable, qold, qnew,
	), nil
}

// AddConstraint adds a table constraint with a raw definition body,
// like `UNIQUE ("a", "b")` or a full foreign key clause.
type AddConstraint struct {
	Name       string
	Definition string
}

func (a AddConstraint) render(
	g *Generator, qtable string,
) (string, error) {
	qname, err := sqlenc.QuoteIdent(a.Name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"ALTER TABLE %s ADD CONSTRAINT %s %s;",
		qtable, qname, a.Definition,
	), nil
}

// DropConstraint removes a named table constraint.
type DropConstraint struct {
	Name    string
	Cascade bool
}

func (a DropConstraint) render(
	g *Generator, qtable string,
) (string, error) {
	qname, err := sqlenc.QuoteIdent(a.Name)
	if err != nil {
		return "", err
	}
	stmt := fmt.Sprintf(
		"ALTER TABLE %s DROP CONSTRAINT %s", qtable, qname,
	)
	if a.Cascade {
		stmt += " CASCADE"
	}
	return stmt + ";", nil
}

// DropIndexStatement renders the statement which removes one secondary
// index. Indexes live in the table's schema namespace, so only the
// index name is needed.
func DropIndexStatement(name string) (string, error) {
	qname, err := sqlenc.QuoteIdent(name)
	if err != nil {
		return "", fmt.Errorf("index name: %w", err)
	}
	return "DROP INDEX IF EXISTS " + qname + ";", nil
}

// UniqueConstraintClause renders the definition body of a
// single-column UNIQUE constraint, to be paired with AddConstraint.
func UniqueConstraintClause(column string) (string, error) {
	qcol, err := sqlenc.QuoteIdent(column)
	if err != nil {
		return "", fmt.Errorf("column name: %w", err)
	}
	return "UNIQUE (" + qcol + ")", nil
}
