// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package schemasrs realizes the schemas resource, allowing the schema
// records lifecycle and reporting REST APIs to be accepted and
// delegated to the schema records use case respectively.
package schemasrs

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/momeni/schema-forge/pkg/adapter/restful/gin/serdser"
	"github.com/momeni/schema-forge/pkg/core/usecase/appuc"
)

type resource struct {
	app *appuc.UseCase
}

// Register instantiates a resource adapting the schema records use
// case instance with the relevant REST APIs including:
//  1. GET request to /api/forge/v1/schemas
//     in order to list schema records, optionally filtered by their
//     model identifier and lifecycle status,
//  2. POST request to /api/forge/v1/schemas
//     in order to submit a definition document as a new draft record,
//  3. POST request to /api/forge/v1/schemas/validate
//     in order to validate a definition document without storing it,
//  4. GET request to /api/forge/v1/schemas/:sid
//     in order to fetch one schema record,
//  5. PATCH request to /api/forge/v1/schemas/:sid
//     in order to replace the definition document of a draft record,
//  6. POST request to /api/forge/v1/schemas/:sid/activate
//     in order to promote a record to the active status,
//  7. POST request to /api/forge/v1/schemas/:sid/deprecate
//     in order to demote a record to the deprecated status,
//  8. DELETE request to /api/forge/v1/schemas/:sid
//     in order to delete a record,
//  9. GET request to /api/forge/v1/schemas/:sid/ddl
//     in order to emit the CREATE script of a record,
//  10. GET request to /api/forge/v1/schemas/:sid/changes
//     in order to read the change history of one schema, and
//  11. GET request to /api/forge/v1/changes
//     in order to read the recent change log over all schemas.
//
// The schema records use case object is fetched from the application
// use case instance before each request, so settings updates can
// replace the effective use case instances atomically.
func Register(r *gin.RouterGroup, app *appuc.UseCase) {
	rs := &resource{app: app}
	r.GET("schemas", rs.ListSchemas)
	r.POST("schemas", rs.CreateSchema)
	r.POST("schemas/validate", rs.ValidateDefinition)
	r.GET("schemas/:sid", rs.GetSchema)
	r.PATCH("schemas/:sid", rs.UpdateSchema)
	r.POST("schemas/:sid/activate", rs.ActivateSchema)
	r.POST("schemas/:sid/deprecate", rs.DeprecateSchema)
	r.DELETE("schemas/:sid", rs.DeleteSchema)
	r.GET("schemas/:sid/ddl", rs.EmitDDL)
	r.GET("schemas/:sid/changes", rs.SchemaChanges)
	r.GET("changes", rs.RecentChanges)
}

func (rs *resource) ListSchemas(c *gin.Context) {
	filter, ok := rs.DserListSchemasReq(c)
	if !ok {
		return
	}
	records, err := rs.app.SchemasUseCase().List(c, filter)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (rs *resource) CreateSchema(c *gin.Context) {
	raw, ok := rs.DserDefinitionReq(c)
	if !ok {
		return
	}
	record, err := rs.app.SchemasUseCase().Create(c, raw, Actor(c))
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (rs *resource) ValidateDefinition(c *gin.Context) {
	raw, ok := rs.DserDefinitionReq(c)
	if !ok {
		return
	}
	if err := rs.app.SchemasUseCase().ValidateDraft(c, raw); err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (rs *resource) GetSchema(c *gin.Context) {
	sid, ok := SchemaID(c)
	if !ok {
		return
	}
	record, err := rs.app.SchemasUseCase().Get(c, sid)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (rs *resource) UpdateSchema(c *gin.Context) {
	sid, ok := SchemaID(c)
	if !ok {
		return
	}
	raw, ok := rs.DserDefinitionReq(c)
	if !ok {
		return
	}
	record, err := rs.app.SchemasUseCase().Update(c, sid, raw, Actor(c))
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (rs *resource) ActivateSchema(c *gin.Context) {
	sid, ok := SchemaID(c)
	if !ok {
		return
	}
	record, err := rs.app.SchemasUseCase().Activate(c, sid, Actor(c))
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (rs *resource) DeprecateSchema(c *gin.Context) {
	sid, ok := SchemaID(c)
	if !ok {
		return
	}
	record, err := rs.app.SchemasUseCase().Deprecate(c, sid, Actor(c))
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (rs *resource) DeleteSchema(c *gin.Context) {
	sid, ok := SchemaID(c)
	if !ok {
		return
	}
	if err := rs.app.SchemasUseCase().Delete(c, sid, Actor(c)); err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (rs *resource) EmitDDL(c *gin.Context) {
	sid, ok := SchemaID(c)
	if !ok {
		return
	}
	withTimestamps, ok := rs.DserEmitDDLReq(c)
	if !ok {
		return
	}
	stmts, err := rs.app.SchemasUseCase().EmitDDL(c, sid, withTimestamps)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"statements": stmts})
}

func (rs *resource) SchemaChanges(c *gin.Context) {
	sid, ok := SchemaID(c)
	if !ok {
		return
	}
	entries, err := rs.app.SchemasUseCase().History(c, sid)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (rs *resource) RecentChanges(c *gin.Context) {
	limit, ok := rs.DserRecentChangesReq(c)
	if !ok {
		return
	}
	entries, err := rs.app.SchemasUseCase().RecentChanges(c, limit)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
