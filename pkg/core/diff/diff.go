// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package diff compares two versions of a schema definition and
// produces the ordered list of typed structural changes which carry a
// table from the first version to the second. Each change is
// classified as breaking when applying it to a populated table can
// fail, like a column drop or a narrowing type change. The comparison
// is pure and deterministic: columns follow the definition declaration
// orders and drops precede adds within each object class, so the
// resulting migration applies without collisions.
package diff

import (
	"fmt"
	"reflect"

	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/typemap"
)

// Change is one typed structural difference between two definitions.
// Only the fields which are relevant for its Kind are populated; the
// Old* counterparts carry the from-definition state, so a rollback
// statement can restore it.
type Change struct {
	Kind     ChangeKind
	Breaking bool

	// Column is the affected field name for column-level changes and
	// the contributing field name for foreign key changes.
	Column string

	// Field and OldField are the to-side and from-side definitions of
	// the affected field.
	Field    *model.FieldDefinition
	OldField *model.FieldDefinition

	// FromType and ToType are the mapped SQL column types of a type
	// change.
	FromType string
	ToType   string

	// NotNull is the target nullability of a null flip and Unique the
	// target uniqueness of a unique flip.
	NotNull bool
	Unique  bool

	// Default and OldDefault carry the new and previous default values
	// of a default change; the Has* flags distinguish a missing default
	// from a null one.
	Default       any
	HasDefault    bool
	OldDefault    any
	HasOldDefault bool

	// Index and OldIndex are the to-side and from-side definitions of
	// the affected secondary index.
	Index    *model.IndexDefinition
	OldIndex *model.IndexDefinition

	// ForeignKey and OldForeignKey are the to-side and from-side
	// foreign key hints of the affected field.
	ForeignKey    *model.ForeignKey
	OldForeignKey *model.ForeignKey
}

// Changeset is the ordered outcome of one definition comparison.
type Changeset struct {
	// Table is the target table name, taken from the to-definition.
	Table string

	Changes []Change
}

// Breaking reports whether any contained change is breaking.
func (cs *Changeset) Breaking() bool {
	for _, ch := range cs.Changes {
		if ch.Breaking {
			return true
		}
	}
	return false
}

// Empty reports whether the two compared definitions are structurally
// equivalent.
func (cs *Changeset) Empty() bool {
	return len(cs.Changes) == 0
}

// Diff compares two definitions of the same model and returns the
// ordered change list transitioning from the first to the second.
// The emission order is: foreign key drops, index drops, column drops,
// column adds, per-column modifications, index adds, and foreign key
// adds. A modified index or foreign key contributes a paired drop and
// add. Reversing the list (and inverting each change) yields a valid
// rollback order.
func Diff(from, to *model.SchemaDefinition) (*Changeset, error) {
	if from == nil || to == nil {
		return nil, fmt.Errorf("both definitions are required")
	}
	cs := &Changeset{Table: to.Table}

	fkDrops, fkAdds := compareForeignKeys(from, to)
	idxDrops, idxAdds := compareIndexes(from, to)
	colDrops, colAdds, colMods, err := compareColumns(from, to)
	if err != nil {
		return nil, err
	}

	cs.Changes = append(cs.Changes, fkDrops...)
	cs.Changes = append(cs.Changes, idxDrops...)
	cs.Changes = append(cs.Changes, colDrops...)
	cs.Changes = append(cs.Changes, colAdds...)
	cs.Changes = append(cs.Changes, colMods...)
	cs.Changes = append(cs.Changes, idxAdds...)
	cs.Changes = append(cs.Changes, fkAdds...)
	return cs, nil
}

// compareColumns walks the from-definition fields for drops and shared
// field modifications and the to-definition fields for adds, keeping
// the respective declaration orders.
func compareColumns(from, to *model.SchemaDefinition) (
	drops, adds, mods []Change, err error,
) {
	for _, name := range from.OrderedFields() {
		if _, ok := to.Properties[name]; ok {
			continue
		}
		drops = append(drops, Change{
			Kind:     KindDropColumn,
			Breaking: true, // stored values are lost
			Column:   name,
			OldField: from.Properties[name],
		})
	}
	for _, name := range to.OrderedFields() {
		if _, ok := from.Properties[name]; ok {
			continue
		}
		f := to.Properties[name]
		_, hasDefault := f.DefaultValue()
		adds = append(adds, Change{
			Kind:     KindAddColumn,
			Breaking: f.HasHints() && f.Database.NotNull && !hasDefault,
			Column:   name,
			Field:    f,
		})
	}
	for _, name := range from.OrderedFields() {
		nf, ok := to.Properties[name]
		if !ok {
			continue
		}
		of := from.Properties[name]
		m, err := compareField(name, of, nf)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("field %s: %w", name, err)
		}
		mods = append(mods, m...)
	}
	return drops, adds, mods, nil
}

// compareField detects the modifications of one shared field, in the
// deterministic order: type change, null flip, default change, and
// unique flip.
func compareField(
	name string, of, nf *model.FieldDefinition,
) ([]Change, error) {
	var mods []Change
	oldType, err := typemap.Map(of)
	if err != nil {
		return nil, fmt.Errorf("mapping old type: %w", err)
	}
	newType, err := typemap.Map(nf)
	if err != nil {
		return nil, fmt.Errorf("mapping new type: %w", err)
	}
	if oldType != newType {
		mods = append(mods, Change{
			Kind:     KindAlterColumnType,
			Breaking: !typemap.Compatible(oldType, newType),
			Column:   name,
			Field:    nf,
			OldField: of,
			FromType: oldType,
			ToType:   newType,
		})
	}
	oldNotNull := of.HasHints() && of.Database.NotNull
	newNotNull := nf.HasHints() && nf.Database.NotNull
	if oldNotNull != newNotNull {
		mods = append(mods, Change{
			Kind:     KindAlterColumnNull,
			Breaking: newNotNull, // existing NULL rows would reject it
			Column:   name,
			NotNull:  newNotNull,
		})
	}
	oldDefault, hasOld := of.DefaultValue()
	newDefault, hasNew := nf.DefaultValue()
	if hasOld != hasNew || !reflect.DeepEqual(oldDefault, newDefault) {
		mods = append(mods, Change{
			Kind:          KindAlterColumnDefault,
			Column:        name,
			Default:       newDefault,
			HasDefault:    hasNew,
			OldDefault:    oldDefault,
			HasOldDefault: hasOld,
		})
	}
	oldUnique := of.HasHints() && of.Database.Unique
	newUnique := nf.HasHints() && nf.Database.Unique
	if oldUnique != newUnique {
		mods = append(mods, Change{
			Kind:     KindAlterColumnUnique,
			Breaking: !newUnique, // dropping unique loses the guarantee
			Column:   name,
			Unique:   newUnique,
		})
	}
	return mods, nil
}

// compareIndexes matches secondary indexes by name. A changed index
// contributes a drop of its old shape and an add of the new one.
func compareIndexes(from, to *model.SchemaDefinition) (
	drops, adds []Change,
) {
	oldIdx := make(map[string]*model.IndexDefinition, len(from.Indexes))
	for i := range from.Indexes {
		oldIdx[from.Indexes[i].Name] = &from.Indexes[i]
	}
	newIdx := make(map[string]*model.IndexDefinition, len(to.Indexes))
	for i := range to.Indexes {
		newIdx[to.Indexes[i].Name] = &to.Indexes[i]
	}
	for i := range from.Indexes {
		o := &from.Indexes[i]
		n, ok := newIdx[o.Name]
		if ok && reflect.DeepEqual(o, n) {
			continue
		}
		drops = append(drops, Change{
			Kind:     KindDropIndex,
			Breaking: o.Unique, // dropping unique loses the guarantee
			OldIndex: o,
		})
	}
	for i := range to.Indexes {
		n := &to.Indexes[i]
		o, ok := oldIdx[n.Name]
		if ok && reflect.DeepEqual(o, n) {
			continue
		}
		adds = append(adds, Change{Kind: KindAddIndex, Index: n})
	}
	return drops, adds
}

// compareForeignKeys matches foreign key hints by their contributing
// field (the constraint name is fk_<table>_<field>, so the field is
// the stable key). A changed hint contributes a paired drop and add.
// A dropped column takes its constraint along, so only fields shared
// by both definitions contribute drops here.
func compareForeignKeys(from, to *model.SchemaDefinition) (
	drops, adds []Change,
) {
	for _, name := range from.OrderedFields() {
		of := from.Properties[name]
		if !of.HasHints() || of.Database.ForeignKey == nil {
			continue
		}
		nf, shared := to.Properties[name]
		if !shared {
			continue
		}
		var nfk *model.ForeignKey
		if nf.HasHints() {
			nfk = nf.Database.ForeignKey
		}
		if reflect.DeepEqual(of.Database.ForeignKey, nfk) {
			continue
		}
		drops = append(drops, Change{
			Kind:          KindDropForeignKey,
			Column:        name,
			OldForeignKey: of.Database.ForeignKey,
		})
	}
	for _, name := range to.OrderedFields() {
		nf := to.Properties[name]
		if !nf.HasHints() || nf.Database.ForeignKey == nil {
			continue
		}
		var ofk *model.ForeignKey
		if of, shared := from.Properties[name]; shared && of.HasHints() {
			ofk = of.Database.ForeignKey
		}
		if reflect.DeepEqual(ofk, nf.Database.ForeignKey) {
			continue
		}
		adds = append(adds, Change{
			Kind:       KindAddForeignKey,
			Column:     name,
			ForeignKey: nf.Database.ForeignKey,
		})
	}
	return drops, adds
}
