// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package model contains the core models for the schema lifecycle
// engine, namely the schema definition document and its nested field,
// index, and constraint values, the persistent record entities which
// wrap accepted definitions, and the semantic version and engine
// settings value types.
// These models may be used freely in the use cases and adapters layers.
package model

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
)

// MetaSchemaID is the identifier of the definition dialect which is
// accepted by this engine. Every submitted definition must carry this
// exact value in its $schema field, so documents written for other
// dialects (or other major versions of this dialect) are rejected
// before any further interpretation.
const MetaSchemaID = "https://momeni.github.io/schema-forge/forge-model/v1"

// SchemaDefinition is the parsed view of one declarative model
// definition document. Instances are values: once a definition is
// accepted and stored, it is never mutated, and a change requires a
// new version. The persistent layer stores the raw submitted JSON
// blob verbatim, so keys which the engine does not interpret (the ui,
// workflows, permissions, and seed_data subtrees and unknown top-level
// keys) survive a round-trip byte-for-byte. This struct only carries
// the interpreted projection of that blob.
type SchemaDefinition struct {
	// MetaSchemaID marks the definition dialect, see MetaSchemaID.
	MetaSchemaID string `json:"$schema"`

	// ModelID is the symbolic logical identity of the model which is
	// versioned by this definition.
	ModelID string `json:"model_id"`

	// Version is the claimed semantic version of this definition with
	// the strict major.minor.patch format. It is kept as the raw
	// document string, so a malformed version can be reported by the
	// validator instead of failing the document decoding.
	Version string `json:"version"`

	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`

	// Table is the target SQL table identifier.
	Table string `json:"table"`

	// Properties maps each field name to its definition. It must not
	// be empty. Go maps do not preserve the document order, so the
	// decoder records it in FieldOrder separately.
	Properties map[string]*FieldDefinition `json:"properties"`

	// FieldOrder lists the property names in their document declaration
	// order, as captured by ParseDefinition. All deterministic
	// emissions iterate fields in this order. For definitions which
	// are constructed in code (like test fixtures), it may be left nil
	// and the OrderedFields method falls back to the sorted names.
	FieldOrder []string `json:"-"`

	// Required lists field names which must be present in payloads.
	// It is interpreted by the validator only for existence checks.
	Required []string `json:"required,omitempty"`

	// Indexes is the ordered sequence of secondary index definitions.
	Indexes []IndexDefinition `json:"indexes,omitempty"`

	// UniqueConstraints lists table-level composite unique constraints.
	UniqueConstraints []UniqueConstraint `json:"unique_constraints,omitempty"`

	// Workflows, Permissions, SeedData, and UI are opaque to the
	// engine and are preserved as raw JSON.
	Workflows   json.RawMessage `json:"workflows,omitempty"`
	Permissions json.RawMessage `json:"permissions,omitempty"`
	SeedData    json.RawMessage `json:"seed_data,omitempty"`
	UI          json.RawMessage `json:"ui,omitempty"`

	// Dependencies optionally lists model identifiers this definition
	// claims to reference. The list is preserved and checked for
	// identifier safety, but only per-field foreign keys and
	// relationships contribute dependency graph edges.
	Dependencies []string `json:"dependencies,omitempty"`
}

// FieldDefinition describes a single property of a model definition,
// combining the abstract JSON type information with the relational
// storage hints and informational relationship metadata.
type FieldDefinition struct {
	// Type is the abstract field type, one of string, number, integer,
	// boolean, array, object, or null.
	Type string `json:"type"`

	// Format optionally refines Type, like date-time or uuid, and may
	// select a more specific column type.
	Format string `json:"format,omitempty"`

	// Enum optionally closes the value set of this field. Together
	// with a database.enumType hint it produces a CREATE TYPE ... AS
	// ENUM statement and an enum-typed column.
	Enum []any `json:"enum,omitempty"`

	// Description is emitted as a COMMENT ON COLUMN statement.
	Description string `json:"description,omitempty"`

	// Database carries the relational storage hints. A nil value
	// leaves every decision to the type mapper defaults.
	Database *DatabaseHints `json:"database,omitempty"`

	// Validation carries payload-level constraints (minLength,
	// maximum, pattern, and alike). They never affect the DDL unless
	// mirrored in database.check, so they stay uninterpreted here.
	Validation json.RawMessage `json:"validation,omitempty"`

	// Relationship is informational relationship metadata. The
	// foreign key semantics live under Database.ForeignKey; a
	// relationship alone contributes a reference dependency edge.
	Relationship *Relationship `json:"relationship,omitempty"`

	// UI is opaque to the engine and preserved verbatim.
	UI json.RawMessage `json:"ui,omitempty"`
}

// DatabaseHints is the relational storage description of one field.
type DatabaseHints struct {
	// Type optionally forces the SQL column type, winning over any
	// format or abstract type based mapping.
	Type string `json:"type,omitempty"`

	// Length decorates VARCHAR and CHAR column types.
	Length int `json:"length,omitempty"`

	// Precision and Scale decorate DECIMAL and NUMERIC column types.
	Precision int `json:"precision,omitempty"`
	Scale     int `json:"scale,omitempty"`

	PrimaryKey bool `json:"primaryKey,omitempty"`
	NotNull    bool `json:"notNull,omitempty"`
	Unique     bool `json:"unique,omitempty"`

	// Index requests an implicit single-column index on this field,
	// named idx_<table>_<field> by the DDL generator.
	Index bool `json:"index,omitempty"`

	// Default is the column default value. A JSON null (or an absent
	// key) means no default.
	Default any `json:"default,omitempty"`

	// Check is a raw SQL predicate emitted as a CHECK constraint.
	Check string `json:"check,omitempty"`

	// ForeignKey declares a reference to another table, emitted as a
	// separate ALTER TABLE ... ADD CONSTRAINT statement.
	ForeignKey *ForeignKey `json:"foreignKey,omitempty"`

	// EnumType names the CREATE TYPE ... AS ENUM type backing this
	// column when Enum values are present on the field.
	EnumType string `json:"enumType,omitempty"`
}

// ForeignKey declares the target and referential actions of a foreign
// key constraint.
type ForeignKey struct {
	Table    string `json:"table"`
	Column   string `json:"column"`
	OnDelete string `json:"onDelete,omitempty"`
	OnUpdate string `json:"onUpdate,omitempty"`
}

// Relationship is the informational relationship metadata of a field.
type Relationship struct {
	// Model is the model_id of the related model.
	Model string `json:"model"`

	// Type is one of belongsTo, hasMany, hasOne, or belongsToMany.
	Type string `json:"type"`

	// Through optionally names the junction model for belongsToMany.
	Through string `json:"through,omitempty"`
}

// IndexDefinition describes one secondary index of the target table.
type IndexDefinition struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique,omitempty"`

	// Method selects the index access method, one of btree, hash,
	// gist, gin, or brin. An empty value leaves the DBMS default.
	Method string `json:"method,omitempty"`

	// Partial is a raw SQL predicate for a partial index.
	Partial string `json:"partial,omitempty"`

	// Include lists covering (non-key) columns.
	Include []string `json:"include,omitempty"`

	FillFactor int  `json:"fillFactor,omitempty"`
	Concurrent bool `json:"concurrent,omitempty"`
}

// UniqueConstraint describes a table-level composite unique constraint.
type UniqueConstraint struct {
	// Name optionally overrides the generated uq_<table>_<columns>
	// constraint name.
	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns"`
}

// ParseDefinition decodes the given raw JSON document into a
// SchemaDefinition view, capturing the properties declaration order.
// Only well-formedness of the JSON document and field types of the
// known keys are enforced here; the semantic checks (dialect constant,
// identifier patterns, closed enums, primary key count, and alike)
// belong to the validator, so they can be aggregated and reported
// together.
func ParseDefinition(raw []byte) (*SchemaDefinition, error) {
	var def SchemaDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("decoding definition document: %w", err)
	}
	order, err := propertiesOrder(raw)
	if err != nil {
		return nil, fmt.Errorf("extracting properties order: %w", err)
	}
	def.FieldOrder = order
	return &def, nil
}

// Serialize encodes the def view as a JSON document. This is only
// useful for definitions which are constructed in code. For accepted
// definitions, the persistent raw blob is the authoritative document
// (see SchemaDefinition docs) and must be used instead, so unknown
// keys are not silently dropped.
func (def *SchemaDefinition) Serialize() ([]byte, error) {
	b, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("encoding definition document: %w", err)
	}
	return b, nil
}

// OrderedFields returns the property names in their document
// declaration order. When FieldOrder was not captured (for
// definitions constructed in code), the lexicographically sorted
// names are returned, keeping every emission deterministic.
func (def *SchemaDefinition) OrderedFields() []string {
	if len(def.FieldOrder) == len(def.Properties) {
		return def.FieldOrder
	}
	names := make([]string, 0, len(def.Properties))
	for name := range def.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PrimaryKeyField returns the name and definition of the field which
// carries the column-level primary key hint, following the document
// declaration order. The third return value reports whether such a
// field exists at all.
func (def *SchemaDefinition) PrimaryKeyField() (
	string, *FieldDefinition, bool,
) {
	for _, name := range def.OrderedFields() {
		if f := def.Properties[name]; f.HasHints() && f.Database.PrimaryKey {
			return name, f, true
		}
	}
	return "", nil, false
}

// HasHints reports whether this field carries database storage hints.
// It tolerates a nil field definition, so callers can chain it on
// map lookups without a presence check.
func (f *FieldDefinition) HasHints() bool {
	return f != nil && f.Database != nil
}

// DefaultValue returns the database default value of this field and
// whether one is declared. A JSON null default counts as undeclared,
// matching the PostgreSQL semantics where DEFAULT NULL and no default
// are equivalent.
func (f *FieldDefinition) DefaultValue() (any, bool) {
	if !f.HasHints() || f.Database.Default == nil {
		return nil, false
	}
	return f.Database.Default, true
}

// propertiesOrder scans the raw document tokens and collects the
// top-level properties object keys in their appearance order.
func propertiesOrder(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	t, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := t.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("definition document is not an object")
	}
	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := t.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", t)
		}
		if key != "properties" {
			if err := skipValue(dec); err != nil {
				return nil, err
			}
			continue
		}
		t, err = dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := t.(json.Delim); !ok || d != '{' {
			// A malformed properties value is reported by the main
			// decoding pass with a more precise error.
			return nil, nil
		}
		var order []string
		for dec.More() {
			t, err := dec.Token()
			if err != nil {
				return nil, err
			}
			name, ok := t.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected token %v", t)
			}
			order = append(order, name)
			if err := skipValue(dec); err != nil {
				return nil, err
			}
		}
		return order, nil
	}
	return nil, nil
}

// skipValue consumes exactly one JSON value from the decoder,
// balancing nested objects and arrays.
func skipValue(dec *json.Decoder) error {
	t, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := t.(json.Delim)
	if !ok || (d != '{' && d != '[') {
		return nil
	}
	depth := 1
	for depth > 0 {
		t, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := t.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
