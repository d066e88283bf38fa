// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package graphrs realizes the dependency graph resource, allowing the
// graph traversal and reporting REST APIs to be accepted and delegated
// to the graph use case respectively.
package graphrs

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/momeni/schema-forge/pkg/adapter/restful/gin/serdser"
	"github.com/momeni/schema-forge/pkg/core/usecase/appuc"
)

type resource struct {
	app *appuc.UseCase
}

// Register instantiates a resource adapting the graph use case
// instance with the relevant REST APIs including:
//  1. GET request to /api/forge/v1/schemas/:sid/dependencies
//     in order to walk the dependency chain of one schema,
//  2. GET request to /api/forge/v1/schemas/:sid/dependents
//     in order to report schemas which depend on one schema,
//  3. GET request to /api/forge/v1/schemas/:sid/can-delete
//     in order to check if a schema can be deleted safely,
//  4. GET request to /api/forge/v1/graph/execution-order
//     in order to sort a set of schemas topologically,
//  5. GET request to /api/forge/v1/graph/validate
//     in order to validate the entire active graph, and
//  6. GET request to /api/forge/v1/graph/stats
//     in order to report aggregate graph statistics.
func Register(r *gin.RouterGroup, app *appuc.UseCase) {
	rs := &resource{app: app}
	r.GET("schemas/:sid/dependencies", rs.Dependencies)
	r.GET("schemas/:sid/dependents", rs.Dependents)
	r.GET("schemas/:sid/can-delete", rs.CanDelete)
	r.GET("graph/execution-order", rs.ExecutionOrder)
	r.GET("graph/validate", rs.ValidateGraph)
	r.GET("graph/stats", rs.GraphStats)
}

func (rs *resource) Dependencies(c *gin.Context) {
	sid, ok := SchemaID(c)
	if !ok {
		return
	}
	req, ok := rs.DserDependenciesReq(c)
	if !ok {
		return
	}
	chain, err := rs.app.GraphUseCase().Chain(
		c, sid, req.Depth, req.Details,
	)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, chain)
}

func (rs *resource) Dependents(c *gin.Context) {
	sid, ok := SchemaID(c)
	if !ok {
		return
	}
	req, ok := rs.DserDependentsReq(c)
	if !ok {
		return
	}
	nodes, err := rs.app.GraphUseCase().Dependents(
		c, sid, req.Recursive, req.Depth,
	)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, nodes)
}

func (rs *resource) CanDelete(c *gin.Context) {
	sid, ok := SchemaID(c)
	if !ok {
		return
	}
	d, err := rs.app.GraphUseCase().CanDelete(c, sid)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (rs *resource) ExecutionOrder(c *gin.Context) {
	ids, ok := rs.DserExecutionOrderReq(c)
	if !ok {
		return
	}
	order, err := rs.app.GraphUseCase().ExecutionOrder(c, ids)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (rs *resource) ValidateGraph(c *gin.Context) {
	report, err := rs.app.GraphUseCase().ValidateGraph(c)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (rs *resource) GraphStats(c *gin.Context) {
	stats, err := rs.app.GraphUseCase().Stats(c)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
