// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package migrationsrs realizes the migrations resource, allowing the
// migration scripts generation and retrieval REST APIs to be accepted
// and delegated to the migrations use case respectively.
package migrationsrs

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/momeni/schema-forge/pkg/adapter/restful/gin/serdser"
	"github.com/momeni/schema-forge/pkg/core/usecase/appuc"
)

type resource struct {
	app *appuc.UseCase
}

// Register instantiates a resource adapting the migrations use case
// instance with the relevant REST APIs including:
//  1. POST request to /api/forge/v1/migrations
//     in order to generate (or regenerate) a migration between two
//     schema records of one model,
//  2. GET request to /api/forge/v1/migrations
//     in order to list migration records, optionally filtered by
//     their model identifier, and
//  3. GET request to /api/forge/v1/migrations/:mid
//     in order to fetch one migration record.
func Register(r *gin.RouterGroup, app *appuc.UseCase) {
	rs := &resource{app: app}
	r.POST("migrations", rs.GenerateMigration)
	r.GET("migrations", rs.ListMigrations)
	r.GET("migrations/:mid", rs.GetMigration)
}

func (rs *resource) GenerateMigration(c *gin.Context) {
	req, ok := rs.DserGenerateMigrationReq(c)
	if !ok {
		return
	}
	record, err := rs.app.MigrationsUseCase().Generate(
		c, req.From, req.To, req.Regenerate,
	)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (rs *resource) ListMigrations(c *gin.Context) {
	modelID, ok := rs.DserListMigrationsReq(c)
	if !ok {
		return
	}
	records, err := rs.app.MigrationsUseCase().List(c, modelID)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (rs *resource) GetMigration(c *gin.Context) {
	mid, ok := MigrationID(c)
	if !ok {
		return
	}
	record, err := rs.app.MigrationsUseCase().Get(c, mid)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}
