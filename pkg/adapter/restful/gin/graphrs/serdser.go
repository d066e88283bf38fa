// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package graphrs

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/momeni/schema-forge/pkg/adapter/restful/gin/serdser"
)

// SchemaID parses the sid path parameter as a UUID. Requests with a
// malformed identifier are rejected with a 400 status code and false
// will be returned as the second return value.
func SchemaID(c *gin.Context) (uuid.UUID, bool) {
	sid, err := uuid.Parse(c.Param("sid"))
	if err != nil {
		var errs map[string][]string
		serdser.AddErr(&errs, "sid", "Path param sid is not UUID.")
		c.JSON(http.StatusBadRequest, errs)
		return uuid.UUID{}, false
	}
	return sid, true
}

type rawDependenciesReq struct {
	Depth   int  `form:"depth" binding:"omitempty,min=0"`
	Details bool `form:"details" binding:"omitempty"`
}

type dependenciesReq struct {
	Depth   int
	Details bool
}

// DserDependenciesReq deserializes the optional depth and details
// query parameters. A missing or zero depth asks for the configured
// maximum traversal depth.
func (rs *resource) DserDependenciesReq(
	c *gin.Context,
) (*dependenciesReq, bool) {
	req := &rawDependenciesReq{}
	if ok := serdser.Bind(c, req, binding.Query); !ok {
		return nil, false
	}
	return &dependenciesReq{
		Depth:   req.Depth,
		Details: req.Details,
	}, true
}

type rawDependentsReq struct {
	Recursive bool `form:"recursive" binding:"omitempty"`
	Depth     int  `form:"depth" binding:"omitempty,min=0"`
}

type dependentsReq struct {
	Recursive bool
	Depth     int
}

func (rs *resource) DserDependentsReq(
	c *gin.Context,
) (*dependentsReq, bool) {
	req := &rawDependentsReq{}
	if ok := serdser.Bind(c, req, binding.Query); !ok {
		return nil, false
	}
	return &dependentsReq{
		Recursive: req.Recursive,
		Depth:     req.Depth,
	}, true
}

type executionOrderReq struct {
	IDs string `form:"ids" binding:"omitempty"`
}

// DserExecutionOrderReq deserializes the ids query parameter as a
// comma separated list of schema record UUIDs. An absent parameter
// asks for the ordering of all stored schemas.
func (rs *resource) DserExecutionOrderReq(
	c *gin.Context,
) ([]uuid.UUID, bool) {
	req := &executionOrderReq{}
	if ok := serdser.Bind(c, req, binding.Query); !ok {
		return nil, false
	}
	if req.IDs == "" {
		return nil, true
	}
	parts := strings.Split(req.IDs, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	var errs map[string][]string
	for _, part := range parts {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			serdser.AddErr(
				&errs, "ids", "Item "+part+" is not UUID.",
			)
			continue
		}
		ids = append(ids, id)
	}
	if errs != nil {
		c.JSON(http.StatusBadRequest, errs)
		return nil, false
	}
	return ids, true
}
