// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package validate checks schema definition documents against the
// meta-schema structural rules and the cross-cutting invariants, like
// the single primary key rule, before a definition may be persisted
// or translated into SQL. Validation is pure; it never touches the
// repository and a valid definition passes through unchanged.
package validate

import (
	"fmt"
	"regexp"

	"github.com/momeni/schema-forge/pkg/core/cerr"
	"github.com/momeni/schema-forge/pkg/core/model"
)

// namePattern accepts model, table, and field identifiers. It is
// stricter than the SQL identifier pattern of the sqlenc package since
// a leading underscore or an inner dollar sign is reserved for the
// engine-generated names.
var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// identPattern accepts SQL identifiers named by a definition, like a
// foreign key target table, matching the sqlenc acceptance rule.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// Closed value sets of the meta-schema enums.
var (
	fieldTypes = map[string]bool{
		"string": true, "number": true, "integer": true,
		"boolean": true, "array": true, "object": true, "null": true,
	}
	indexMethods = map[string]bool{
		"btree": true, "hash": true, "gist": true,
		"gin": true, "brin": true,
	}
	relationshipTypes = map[string]bool{
		"belongsTo": true, "hasMany": true,
		"hasOne": true, "belongsToMany": true,
	}
	referentialActions = map[string]bool{
		"CASCADE": true, "SET NULL": true,
		"RESTRICT": true, "NO ACTION": true,
	}
)

// Validator checks definitions, aggregating all violations by default
// or stopping at the first one in the lenient mode.
type Validator struct {
	lenient bool
}

// Option is a functional option for the definition validator.
type Option func(v *Validator) error

// WithLenient option configures a Validator instance to return as soon
// as the first violation is detected instead of aggregating all of
// them. This mode suits hot paths which only need a yes/no answer,
// while interactive callers prefer the complete report.
func WithLenient() Option {
	return func(v *Validator) error {
		v.lenient = true
		return nil
	}
}

// New instantiates a definition validator.
func New(opts ...Option) (*Validator, error) {
	v := &Validator{}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return v, nil
}

// Validate checks the given definition and returns nil if it conforms
// to the meta-schema and all cross-cutting invariants. Violations are
// reported as a *cerr.InvalidDefinitionError carrying one message per
// detected problem (or the first problem alone in the lenient mode).
func (v *Validator) Validate(def *model.SchemaDefinition) error {
	if def == nil {
		return &cerr.InvalidDefinitionError{
			Issues: []string{"definition document is missing"},
		}
	}
	c := &collector{lenient: v.lenient}
	v.checkHeader(c, def)
	v.checkProperties(c, def)
	v.checkNameReferences(c, def)
	v.checkIndexes(c, def)
	v.checkUniqueConstraints(c, def)
	if len(c.issues) > 0 {
		return &cerr.InvalidDefinitionError{Issues: c.issues}
	}
	return nil
}

// collector accumulates violation messages. In the lenient mode, the
// done flag is raised after the first message and all further checks
// turn into no-ops.
type collector struct {
	lenient bool
	done    bool
	issues  []string
}

func (c *collector) addf(format string, args ...any) {
	if c.done {
		return
	}
	c.issues = append(c.issues, fmt.Sprintf(format, args...))
	if c.lenient {
		c.done = true
	}
}

func (v *Validator) checkHeader(
	c *collector, def *model.SchemaDefinition,
) {
	if def.MetaSchemaID != model.MetaSchemaID {
		c.addf(
			"$schema must be %q, got %q",
			model.MetaSchemaID, def.MetaSchemaID,
		)
	}
	if !namePattern.MatchString(def.ModelID) {
		c.addf("model_id %q is not a valid identifier", def.ModelID)
	}
	if !namePattern.MatchString(def.Table) {
		c.addf("table %q is not a valid identifier", def.Table)
	}
	if _, err := model.ParseSemVer(def.Version); err != nil {
		c.addf(
			"version %q is not a strict major.minor.patch version",
			def.Version,
		)
	}
	for _, dep := range def.Dependencies {
		if !namePattern.MatchString(dep) {
			c.addf("dependency %q is not a valid identifier", dep)
		}
	}
}

func (v *Validator) checkProperties(
	c *collector, def *model.SchemaDefinition,
) {
	if len(def.Properties) == 0 {
		c.addf("properties must declare at least one field")
		return
	}
	pkCount := 0
	for _, name := range def.OrderedFields() {
		f := def.Properties[name]
		if !namePattern.MatchString(name) {
			c.addf("field name %q is not a valid identifier", name)
		}
		if f == nil {
			c.addf("field %q has no definition", name)
			continue
		}
		if !fieldTypes[f.Type] {
			c.addf("field %q has unknown type %q", name, f.Type)
		}
		if r := f.Relationship; r != nil {
			if !relationshipTypes[r.Type] {
				c.addf(
					"field %q has unknown relationship type %q",
					name, r.Type,
				)
			}
			if !namePattern.MatchString(r.Model) {
				c.addf(
					"field %q relationship model %q is not a valid identifier",
					name, r.Model,
				)
			}
		}
		if !f.HasHints() {
			continue
		}
		h := f.Database
		if h.PrimaryKey {
			pkCount++
		}
		if h.EnumType != "" && !identPattern.MatchString(h.EnumType) {
			c.addf(
				"field %q enum type %q is not a valid identifier",
				name, h.EnumType,
			)
		}
		if fk := h.ForeignKey; fk != nil {
			if !identPattern.MatchString(fk.Table) {
				c.addf(
					"field %q foreign key table %q is not a valid identifier",
					name, fk.Table,
				)
			}
			if !identPattern.MatchString(fk.Column) {
				c.addf(
					"field %q foreign key column %q is not a valid identifier",
					name, fk.Column,
				)
			}
			if fk.OnDelete != "" && !referentialActions[fk.OnDelete] {
				c.addf(
					"field %q has unknown onDelete action %q",
					name, fk.OnDelete,
				)
			}
			if fk.OnUpdate != "" && !referentialActions[fk.OnUpdate] {
				c.addf(
					"field %q has unknown onUpdate action %q",
					name, fk.OnUpdate,
				)
			}
		}
	}
	switch {
	case pkCount == 0:
		c.addf("exactly one field must carry database.primaryKey")
	case pkCount > 1:
		c.addf(
			"only one field may carry database.primaryKey, got %d",
			pkCount,
		)
	}
}

func (v *Validator) checkNameReferences(
	c *collector, def *model.SchemaDefinition,
) {
	for _, name := range def.Required {
		if _, ok := def.Properties[name]; !ok {
			c.addf("required field %q is not declared in properties", name)
		}
	}
}

func (v *Validator) checkIndexes(
	c *collector, def *model.SchemaDefinition,
) {
	for i, idx := range def.Indexes {
		if !identPattern.MatchString(idx.Name) {
			c.addf(
				"index #%d name %q is not a valid identifier", i, idx.Name,
			)
		}
		if len(idx.Columns) == 0 {
			c.addf("index %q must cover at least one column", idx.Name)
		}
		if idx.Method != "" && !indexMethods[idx.Method] {
			c.addf(
				"index %q has unknown method %q", idx.Name, idx.Method,
			)
		}
		for _, col := range idx.Columns {
			if _, ok := def.Properties[col]; !ok {
				c.addf(
					"index %q column %q is not declared in properties",
					idx.Name, col,
				)
			}
		}
		for _, col := range idx.Include {
			if _, ok := def.Properties[col]; !ok {
				c.addf(
					"index %q include column %q is not declared in properties",
					idx.Name, col,
				)
			}
		}
	}
}

func (v *Validator) checkUniqueConstraints(
	c *collector, def *model.SchemaDefinition,
) {
	for i, uc := range def.UniqueConstraints {
		if uc.Name != "" && !identPattern.MatchString(uc.Name) {
			c.addf(
				"unique constraint #%d name %q is not a valid identifier",
				i, uc.Name,
			)
		}
		if len(uc.Columns) == 0 {
			c.addf(
				"unique constraint #%d must cover at least one column", i,
			)
		}
		for _, col := range uc.Columns {
			if _, ok := def.Properties[col]; !ok {
				c.addf(
					"unique constraint #%d column %q is not declared in properties",
					i, col,
				)
			}
		}
	}
}
