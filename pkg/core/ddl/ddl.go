// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package ddl translates validated schema definitions into ordered
// PostgreSQL statement sequences. Emission is deterministic: fields
// follow the document declaration order, every identifier is quoted
// through the sqlenc package, and each request yields the same
// statements for the same definition.
package ddl

import (
	"fmt"
	"strings"

	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/sqlenc"
	"github.com/momeni/schema-forge/pkg/core/typemap"
)

// Generator emits DDL statements for schema definitions. It is
// stateless and safe for concurrent use; the struct exists so the
// emission entry points stay greppable under one receiver and further
// dialect options can be added without breaking callers.
type Generator struct {
}

// New instantiates a DDL generator.
func New() *Generator {
	return &Generator{}
}

// CreateTable emits the ordered statement sequence which creates the
// table of the given definition: enum type declarations first, then
// one CREATE TABLE with all columns and composite unique constraints,
// then secondary indexes, then foreign key constraints as separate
// ALTER TABLE statements (so referenced tables may be created in any
// order), and finally the table and column comments.
func (g *Generator) CreateTable(
	def *model.SchemaDefinition,
) ([]string, error) {
	qtable, err := sqlenc.QuoteIdent(def.Table)
	if err != nil {
		return nil, fmt.Errorf("table name: %w", err)
	}
	var stmts []string
	enums, err := g.enumTypes(def)
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, enums...)

	var body []string
	for _, name := range def.OrderedFields() {
		col, err := g.columnDef(name, def.Properties[name])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		body = append(body, col)
	}
	for _, uc := range def.UniqueConstraints {
		c, err := g.uniqueConstraint(def.Table, uc)
		if err != nil {
			return nil, err
		}
		body = append(body, c)
	}
	stmts = append(stmts, fmt.Sprintf(
		"CREATE TABLE %s (\n  %s\n);",
		qtable, strings.Join(body, ",\n  "),
	))

	idxs, err := g.indexes(def)
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, idxs...)

	fks, err := g.foreignKeys(def)
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, fks...)

	stmts = append(stmts, g.comments(def, qtable)...)
	return stmts, nil
}

// CreateTableWithTimestamps injects the created_at and updated_at
// audit columns, when the definition does not declare them already,
// and delegates to CreateTable. The given definition is not modified;
// the injection happens on a shallow working copy.
func (g *Generator) CreateTableWithTimestamps(
	def *model.SchemaDefinition,
) ([]string, error) {
	d := *def
	d.Properties = make(
		map[string]*model.FieldDefinition, len(def.Properties)+2,
	)
	for name, f := range def.Properties {
		d.Properties[name] = f
	}
	d.FieldOrder = append([]string{}, def.OrderedFields()...)
	for _, name := range []string{"created_at", "updated_at"} {
		if _, ok := d.Properties[name]; ok {
			continue
		}
		d.Properties[name] = &model.FieldDefinition{
			Type:   "string",
			Format: "date-time",
			Database: &model.DatabaseHints{
				NotNull: true,
				Default: "NOW()",
			},
		}
		d.FieldOrder = append(d.FieldOrder, name)
	}
	return g.CreateTable(&d)
}

// DropTable emits the statement which drops the given table, with
// CASCADE dropping all dependent objects recursively.
func (g *Generator) DropTable(
	table string, cascade bool,
) ([]string, error) {
	qtable, err := sqlenc.QuoteIdent(table)
	if err != nil {
		return nil, fmt.Errorf("table name: %w", err)
	}
	stmt := "DROP TABLE IF EXISTS " + qtable
	if cascade {
		stmt += " CASCADE"
	}
	return []string{stmt + ";"}, nil
}

// columnDef renders one column definition of the CREATE TABLE body,
// following the grammar: name type [PRIMARY KEY] [NOT NULL] [UNIQUE]
// [DEFAULT expr] [CHECK (expr)]. The PRIMARY KEY marker implies both
// NOT NULL and UNIQUE, so they are suppressed to avoid redundancy.
func (g *Generator) columnDef(
	name string, f *model.FieldDefinition,
) (string, error) {
	qname, err := sqlenc.QuoteIdent(name)
	if err != nil {
		return "", err
	}
	sqlType, err := typemap.Map(f)
	if err != nil {
		return "", err
	}
	parts := []string{qname, sqlType}
	if f.HasHints() {
		h := f.Database
		if h.PrimaryKey {
			parts = append(parts, "PRIMARY KEY")
		} else {
			if h.NotNull {
				parts = append(parts, "NOT NULL")
			}
			if h.Unique {
				parts = append(parts, "UNIQUE")
			}
		}
		if v, ok := f.DefaultValue(); ok {
			expr, err := sqlenc.FormatDefault(v, sqlType)
			if err != nil {
				return "", err
			}
			parts = append(parts, "DEFAULT "+expr)
		}
		if h.Check != "" {
			parts = append(parts, "CHECK ("+h.Check+")")
		}
	}
	return strings.Join(parts, " "), nil
}

// enumTypes emits one CREATE TYPE ... AS ENUM statement per distinct
// database.enumType hint, in the field declaration order. Two fields
// naming the same enum type share one declaration.
func (g *Generator) enumTypes(
	def *model.SchemaDefinition,
) ([]string, error) {
	var stmts []string
	seen := map[string]bool{}
	for _, name := range def.OrderedFields() {
		f := def.Properties[name]
		if !f.HasHints() || f.Database.EnumType == "" || len(f.Enum) == 0 {
			continue
		}
		if seen[f.Database.EnumType] {
			continue
		}
		seen[f.Database.EnumType] = true
		qname, err := sqlenc.QuoteIdent(f.Database.EnumType)
		if err != nil {
			return nil, fmt.Errorf("enum type of field %s: %w", name, err)
		}
		vals := make([]string, 0, len(f.Enum))
		for _, v := range f.Enum {
			vals = append(vals, sqlenc.EscapeString(fmt.Sprint(v)))
		}
		stmts = append(stmts, fmt.Sprintf(
			"CREATE TYPE %s AS ENUM (%s);",
			qname, strings.Join(vals, ", "),
		))
	}
	return stmts, nil
}

// uniqueConstraint renders one table-level composite unique constraint
// for the CREATE TABLE body, generating a uq_<table>_<columns> name
// when the definition does not pick one.
func (g *Generator) uniqueConstraint(
	table string, uc model.UniqueConstraint,
) (string, error) {
	name := uc.Name
	if name == "" {
		name = "uq_" + table + "_" + strings.Join(uc.Columns, "_")
	}
	qname, err := sqlenc.QuoteIdent(name)
	if err != nil {
		return "", fmt.Errorf("unique constraint name: %w", err)
	}
	cols, err := quoteAll(uc.Columns)
	if err != nil {
		return "", fmt.Errorf("unique constraint %s: %w", name, err)
	}
	return fmt.Sprintf(
		"CONSTRAINT %s UNIQUE (%s)", qname, strings.Join(cols, ", "),
	), nil
}

// indexes emits the secondary index statements: one per declared
// indexes[] entry plus one implicit index per field with the
// database.index hint. The implicit index is skipped for the primary
// key field which is indexed by its PRIMARY KEY constraint already.
func (g *Generator) indexes(
	def *model.SchemaDefinition,
) ([]string, error) {
	var stmts []string
	for _, idx := range def.Indexes {
		s, err := g.IndexStatement(def.Table, idx)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	for _, name := range def.OrderedFields() {
		f := def.Properties[name]
		if !f.HasHints() || !f.Database.Index || f.Database.PrimaryKey {
			continue
		}
		s, err := g.IndexStatement(def.Table, model.IndexDefinition{
			Name:    "idx_" + def.Table + "_" + name,
			Columns: []string{name},
		})
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

// IndexStatement renders one CREATE INDEX statement, honoring the
// unique, method, partial, include, fillFactor, and concurrent knobs.
// It is exported since the migration generation re-renders indexes of
// the previous definition when rolling an index drop back.
func (g *Generator) IndexStatement(
	table string, idx model.IndexDefinition,
) (string, error) {
	qname, err := sqlenc.QuoteIdent(idx.Name)
	if err != nil {
		return "", fmt.Errorf("index name: %w", err)
	}
	qtable, err := sqlenc.QuoteIdent(table)
	if err != nil {
		return "", fmt.Errorf("table name: %w", err)
	}
	cols, err := quoteAll(idx.Columns)
	if err != nil {
		return "", fmt.Errorf("index %s: %w", idx.Name, err)
	}
	var b strings.Builder
	b.WriteString("CREATE ")
	if idx.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX ")
	if idx.Concurrent {
		b.WriteString("CONCURRENTLY ")
	}
	b.WriteString(qname)
	b.WriteString(" ON ")
	b.WriteString(qtable)
	if idx.Method != "" {
		b.WriteString(" USING ")
		b.WriteString(idx.Method)
	}
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(")")
	if len(idx.Include) > 0 {
		inc, err := quoteAll(idx.Include)
		if err != nil {
			return "", fmt.Errorf("index %s include: %w", idx.Name, err)
		}
		b.WriteString(" INCLUDE (")
		b.WriteString(strings.Join(inc, ", "))
		b.WriteString(")")
	}
	if idx.FillFactor > 0 {
		fmt.Fprintf(&b, " WITH (fillfactor = %d)", idx.FillFactor)
	}
	if idx.Partial != "" {
		b.WriteString(" WHERE ")
		b.WriteString(idx.Partial)
	}
	b.WriteString(";")
	return b.String(), nil
}

// foreignKeys emits one ALTER TABLE ... ADD CONSTRAINT statement per
// field with a database.foreignKey hint, named fk_<table>_<field>.
// They come after the CREATE TABLE statement, so mutually referencing
// tables can be created independently and constrained afterwards.
func (g *Generator) foreignKeys(
	def *model.SchemaDefinition,
) ([]string, error) {
	var stmts []string
	for _, name := range def.OrderedFields() {
		f := def.Properties[name]
		if !f.HasHints() || f.Database.ForeignKey == nil {
			continue
		}
		s, err := ForeignKeyConstraint(def.Table, name, f.Database.ForeignKey)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

// ForeignKeyConstraint renders the ALTER TABLE statement which adds
// the fk_<table>_<field> constraint for one foreign key hint. It is
// exported since the migration generation needs to rebuild a dropped
// constraint from the previous definition during a rollback.
func ForeignKeyConstraint(
	table, field string, fk *model.ForeignKey,
) (string, error) {
	qtable, err := sqlenc.QuoteIdent(table)
	if err != nil {
		return "", fmt.Errorf("table name: %w", err)
	}
	qfield, err := sqlenc.QuoteIdent(field)
	if err != nil {
		return "", fmt.Errorf("field name: %w", err)
	}
	qcname, err := sqlenc.QuoteIdent("fk_" + table + "_" + field)
	if err != nil {
		return "", fmt.Errorf("constraint name: %w", err)
	}
	qreftable, err := sqlenc.QuoteIdent(fk.Table)
	if err != nil {
		return "", fmt.Errorf("referenced table: %w", err)
	}
	qrefcol, err := sqlenc.QuoteIdent(fk.Column)
	if err != nil {
		return "", fmt.Errorf("referenced column: %w", err)
	}
	var b strings.Builder
	fmt.Fprintf(
		&b, "ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		qtable, qcname, qfield, qreftable, qrefcol,
	)
	if fk.OnDelete != "" {
		b.WriteString(" ON DELETE ")
		b.WriteString(fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		b.WriteString(" ON UPDATE ")
		b.WriteString(fk.OnUpdate)
	}
	b.WriteString(";")
	return b.String(), nil
}

// comments emits the COMMENT ON TABLE and COMMENT ON COLUMN statements
// for the descriptions carried by the definition.
func (g *Generator) comments(
	def *model.SchemaDefinition, qtable string,
) []string {
	var stmts []string
	if def.Description != "" {
		stmts = append(stmts, fmt.Sprintf(
			"COMMENT ON TABLE %s IS %s;",
			qtable, sqlenc.EscapeString(def.Description),
		))
	}
	for _, name := range def.OrderedFields() {
		f := def.Properties[name]
		if f == nil || f.Description == "" {
			continue
		}
		// The field name passed validation already; quoting cannot fail
		// after the columnDef pass, so the error is ignored here.
		qname, err := sqlenc.QuoteIdent(name)
		if err != nil {
			continue
		}
		stmts = append(stmts, fmt.Sprintf(
			"COMMENT ON COLUMN %s.%s IS %s;",
			qtable, qname, sqlenc.EscapeString(f.Description),
		))
	}
	return stmts
}

// quoteAll quotes a list of identifiers, failing on the first invalid
// name.
func quoteAll(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, n := range names {
		q, err := sqlenc.QuoteIdent(n)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}
