// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package migrationsrs

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/momeni/schema-forge/pkg/adapter/restful/gin/serdser"
)

// MigrationID parses the mid path parameter as a UUID. Requests with a
// malformed identifier are rejected with a 400 status code and false
// will be returned as the second return value.
func MigrationID(c *gin.Context) (uuid.UUID, bool) {
	mid, err := uuid.Parse(c.Param("mid"))
	if err != nil {
		var errs map[string][]string
		serdser.AddErr(&errs, "mid", "Path param mid is not UUID.")
		c.JSON(http.StatusBadRequest, errs)
		return uuid.UUID{}, false
	}
	return mid, true
}

type rawGenerateMigrationReq struct {
	FromSchemaID *string `json:"from_schema_id" binding:"omitempty,uuid4"`
	ToSchemaID   string  `json:"to_schema_id" binding:"required,uuid4"`
	Regenerate   bool    `json:"regenerate" binding:"omitempty"`
}

type generateMigrationReq struct {
	From       *uuid.UUID
	To         uuid.UUID
	Regenerate bool
}

// DserGenerateMigrationReq deserializes a migration generation request
// from the JSON request body. The from_schema_id field may be omitted
// in order to ask for a baseline migration, creating the destination
// schema tables from scratch.
func (rs *resource) DserGenerateMigrationReq(
	c *gin.Context,
) (*generateMigrationReq, bool) {
	req := &rawGenerateMigrationReq{}
	if ok := serdser.Bind(c, req, binding.JSON); !ok {
		return nil, false
	}
	val := &generateMigrationReq{
		Regenerate: req.Regenerate,
	}
	var errs map[string][]string
	var err error
	val.To, err = uuid.Parse(req.ToSchemaID)
	if err != nil {
		serdser.AddErr(
			&errs, "to_schema_id", "Field to_schema_id is not UUID.",
		)
	}
	if req.FromSchemaID != nil {
		from, err := uuid.Parse(*req.FromSchemaID)
		if err != nil {
			serdser.AddErr(
				&errs,
				"from_schema_id",
				"Field from_schema_id is not UUID.",
			)
		} else {
			val.From = &from
		}
	}
	if errs != nil {
		c.JSON(http.StatusBadRequest, errs)
		return nil, false
	}
	return val, true
}

type listMigrationsReq struct {
	ModelID string `form:"model_id" binding:"omitempty"`
}

func (rs *resource) DserListMigrationsReq(
	c *gin.Context,
) (string, bool) {
	req := &listMigrationsReq{}
	if ok := serdser.Bind(c, req, binding.Query); !ok {
		return "", false
	}
	return req.ModelID, true
}
