// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package defs provides the shared sample schema definitions, namely
// a users/posts/comments model family, which are used by the unit and
// integration test suites. Builders return fresh instances, so a test
// may mutate its copy freely.
package defs

import "github.com/momeni/schema-forge/pkg/core/model"

// Users returns the v1.0.0 definition of the users model: an integer
// primary key, a mandatory unique email, and a creation timestamp.
func Users() *model.SchemaDefinition {
	return &model.SchemaDefinition{
		MetaSchemaID: model.MetaSchemaID,
		ModelID:      "User",
		Version:      "1.0.0",
		Name:         "Users",
		Description:  "Registered user accounts",
		Table:        "users",
		Properties: map[string]*model.FieldDefinition{
			"id": {
				Type: "integer",
				Database: &model.DatabaseHints{
					PrimaryKey: true,
				},
			},
			"email": {
				Type:   "string",
				Format: "email",
				Database: &model.DatabaseHints{
					NotNull: true,
					Unique:  true,
				},
			},
			"created_at": {
				Type:   "string",
				Format: "date-time",
				Database: &model.DatabaseHints{
					Default: "NOW()",
				},
			},
		},
		FieldOrder: []string{"id", "email", "created_at"},
		Required:   []string{"id", "email"},
	}
}

// UsersV110 returns the v1.1.0 definition of the users model, adding
// a nullable name column to the v1.0.0 definition.
func UsersV110() *model.SchemaDefinition {
	def := Users()
	def.Version = "1.1.0"
	def.Properties["name"] = &model.FieldDefinition{Type: "string"}
	def.FieldOrder = append(def.FieldOrder, "name")
	return def
}

// Posts returns the v1.0.0 definition of the posts model which
// references users through an author foreign key.
func Posts() *model.SchemaDefinition {
	return &model.SchemaDefinition{
		MetaSchemaID: model.MetaSchemaID,
		ModelID:      "Post",
		Version:      "1.0.0",
		Name:         "Posts",
		Table:        "posts",
		Properties: map[string]*model.FieldDefinition{
			"id": {
				Type: "integer",
				Database: &model.DatabaseHints{
					PrimaryKey: true,
				},
			},
			"author_id": {
				Type: "integer",
				Database: &model.DatabaseHints{
					NotNull: true,
					Index:   true,
					ForeignKey: &model.ForeignKey{
						Table:    "users",
						Column:   "id",
						OnDelete: "CASCADE",
					},
				},
				Relationship: &model.Relationship{
					Model: "User",
					Type:  "belongsTo",
				},
			},
			"title": {
				Type: "string",
				Database: &model.DatabaseHints{
					Length:  200,
					NotNull: true,
				},
			},
			"body": {Type: "string"},
		},
		FieldOrder: []string{"id", "author_id", "title", "body"},
		Required:   []string{"id", "author_id", "title"},
	}
}

// Comments returns the v1.0.0 definition of the comments model which
// references both posts and users.
func Comments() *model.SchemaDefinition {
	return &model.SchemaDefinition{
		MetaSchemaID: model.MetaSchemaID,
		ModelID:      "Comment",
		Version:      "1.0.0",
		Name:         "Comments",
		Table:        "comments",
		Properties: map[string]*model.FieldDefinition{
			"id": {
				Type: "integer",
				Database: &model.DatabaseHints{
					PrimaryKey: true,
				},
			},
			"post_id": {
				Type: "integer",
				Database: &model.DatabaseHints{
					NotNull: true,
					ForeignKey: &model.ForeignKey{
						Table:    "posts",
						Column:   "id",
						OnDelete: "CASCADE",
					},
				},
				Relationship: &model.Relationship{
					Model: "Post",
					Type:  "belongsTo",
				},
			},
			"author_id": {
				Type: "integer",
				Database: &model.DatabaseHints{
					NotNull: true,
					ForeignKey: &model.ForeignKey{
						Table:    "users",
						Column:   "id",
						OnDelete: "SET NULL",
					},
				},
				Relationship: &model.Relationship{
					Model: "User",
					Type:  "belongsTo",
				},
			},
			"body": {
				Type: "string",
				Database: &model.DatabaseHints{
					NotNull: true,
				},
			},
		},
		FieldOrder: []string{"id", "post_id", "author_id", "body"},
		Required:   []string{"id", "post_id", "author_id", "body"},
	}
}
