// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package schemasrs

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/momeni/schema-forge/pkg/adapter/restful/gin/serdser"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/repo"
)

// ActorHeader is the request header which identifies the acting user
// for the change log entries. Requests without this header are logged
// on behalf of the DefaultActor.
const ActorHeader = "X-Forge-Actor"

// DefaultActor is recorded in the change log entries when a request
// does not carry the ActorHeader header.
const DefaultActor = "anonymous"

// Actor extracts the acting user name from the request headers,
// falling back to the DefaultActor for unattributed requests.
func Actor(c *gin.Context) string {
	if actor := c.GetHeader(ActorHeader); actor != "" {
		return actor
	}
	return DefaultActor
}

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

type listSchemasReq struct {
	ModelID string `form:"model_id" binding:"omitempty"`
	Status  string `form:"status" binding:"omitempty,oneof=draft active deprecated"`
}

func (rs *resource) DserListSchemasReq(
	c *gin.Context,
) (repo.SchemaFilter, bool) {
	req := &listSchemasReq{}
	if ok := serdser.Bind(c, req, binding.Query); !ok {
		return repo.SchemaFilter{}, false
	}
	filter := repo.SchemaFilter{
		ModelID: req.ModelID,
	}
	if req.Status != "" {
		status, err := model.ParseSchemaStatus(req.Status)
		if err != nil {
			var errs map[string][]string
			serdser.AddErr(&errs, "status", err.Error())
			c.JSON(http.StatusBadRequest, errs)
			return repo.SchemaFilter{}, false
		}
		filter.Status = status
	}
	return filter, true
}

// DserDefinitionReq reads the request body as a raw definition
// document. The document bytes are passed to the use cases layer
// unparsed, so the validation logic can report all errors in one pass
// and the accepted document can be stored byte-for-byte.
func (rs *resource) DserDefinitionReq(c *gin.Context) ([]byte, bool) {
	var raw []byte
	var err error
	if c.Request.Body != nil {
		raw, err = io.ReadAll(c.Request.Body)
	}
	if err != nil {
		var errs map[string][]string
		serdser.AddErr(&errs, "body", err.Error())
		c.JSON(http.StatusBadRequest, errs)
		return nil, false
	}
	if len(raw) == 0 {
		var errs map[string][]string
		serdser.AddErr(
			&errs, "body", "A definition document is required.",
		)
		c.JSON(http.StatusBadRequest, errs)
		return nil, false
	}
	return raw, true
}

type emitDDLReq struct {
	Timestamps string `form:"timestamps" binding:"omitempty,oneof=true false"`
}

// DserEmitDDLReq deserializes the timestamps query parameter which
// controls emission of the created_at and updated_at columns. In its
// absence, the auto timestamps setting decides.
func (rs *resource) DserEmitDDLReq(c *gin.Context) (bool, bool) {
	req := &emitDDLReq{}
	if ok := serdser.Bind(c, req, binding.Query); !ok {
		return false, false
	}
	if req.Timestamps != "" {
		return req.Timestamps == "true", true
	}
	withTimestamps := false
	if at := rs.app.Settings().DDL.AutoTimestamps; at != nil {
		withTimestamps = *at
	}
	return withTimestamps, true
}

type recentChangesReq struct {
	Limit string `form:"limit" binding:"omitempty,number"`
}

// DserRecentChangesReq deserializes the optional limit query
// parameter, taking zero (so the configured recent changes limit) as
// the default value.
func (rs *resource) DserRecentChangesReq(c *gin.Context) (int, bool) {
	req := &recentChangesReq{}
	if ok := serdser.Bind(c, req, binding.Query); !ok {
		return 0, false
	}
	if req.Limit == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(req.Limit)
	if err != nil || limit <= 0 {
		var errs map[string][]string
		serdser.AddErr(
			&errs, "limit", "The limit must be a positive integer.",
		)
		c.JSON(http.StatusBadRequest, errs)
		return 0, false
	}
	return limit, true
}
