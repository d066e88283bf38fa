// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package gin_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bitcomplete/sqltestutil"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/momeni/schema-forge/internal/test/dbcontainer"
	"github.com/momeni/schema-forge/pkg/adapter/config/cfg1"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres"
	"github.com/momeni/schema-forge/pkg/adapter/restful/gin"
	"github.com/momeni/schema-forge/pkg/adapter/restful/gin/routes"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/repo"
	"github.com/stretchr/testify/suite"
)

type IntegrationGinTestSuite struct {
	suite.Suite

	Ctx  context.Context
	Pg   *sqltestutil.PostgresContainer
	Pool *postgres.Pool
	Gin  *gin.Engine
}

func TestIntegrationGinTestSuite(t *testing.T) {
	ctx := context.Background()
	pg, pool, dfrs, ok := dbcontainer.New(ctx, 60*time.Second, t)
	for _, f := range dfrs {
		defer f()
	}
	if !ok {
		return // errors are already logged
	}
	suite.Run(t, &IntegrationGinTestSuite{
		Ctx:  ctx,
		Pg:   pg,
		Pool: pool,
	})
}

func (igts *IntegrationGinTestSuite) SetupSuite() {
	sql, err := os.ReadFile("testdata/schema.sql")
	igts.Require().NoError(err, "failed to read schema.sql file")
	err = igts.Pool.Conn(
		igts.Ctx, func(ctx context.Context, c repo.Conn) error {
			_, err := c.Exec(ctx, string(sql))
			return err
		},
	)
	igts.Require().NoError(err, "failed to create schema contents")

	igts.Gin = gin.New(gin.Logger(), gin.Recovery())
	igts.Require().NotNil(igts.Gin, "cannot instantiate Gin engine")
	c := &cfg1.Config{}
	c.Vers.Versions.Config = cfg1.Version
	err = c.ValidateAndNormalize()
	igts.Require().NoError(err, "failed to normalize test configs")
	err = routes.Register(igts.Ctx, igts.Gin, igts.Pool, c)
	igts.Require().NoError(err, "failed to register Gin routes")
}

func stringAddr(s string) *string {
	return &s
}

func jsonBody(doc string) io.Reader {
	return strings.NewReader(doc)
}

// definitionDoc renders a minimal valid definition document for the
// given model identifier and version, so each test case can register
// its own isolated model family.
func definitionDoc(modelID, version, table string) string {
	return `{` +
		`"$schema":"` + model.MetaSchemaID + `",` +
		`"model_id":"` + modelID + `",` +
		`"version":"` + version + `",` +
		`"name":"` + modelID + ` records",` +
		`"table":"` + table + `",` +
		`"properties":{` +
		`"id":{"type":"integer","database":{"primaryKey":true}},` +
		`"title":{"type":"string",` +
		`"database":{"length":120,"notNull":true}}},` +
		`"required":["id","title"]}`
}

func (igts *IntegrationGinTestSuite) sendReqRecvResp(
	w *httptest.ResponseRecorder, req *http.Request, res any,
) {
	req.Header.Add("Content-Type", "application/json")
	igts.Gin.ServeHTTP(w, req)
	b := w.Body.Bytes()
	igts.NoError(json.Unmarshal(b, res), "body is not json")
}

func (igts *IntegrationGinTestSuite) assertOptContains(
	expectedPart *string, seen []string, msgAndArgs ...any,
) bool {
	if expectedPart == nil {
		return true
	}
	if !igts.Equal(1, len(seen), msgAndArgs...) {
		return false
	}
	return igts.Contains(seen[0], *expectedPart, msgAndArgs...)
}

func (igts *IntegrationGinTestSuite) TestBadRequest() {
	for _, tc := range []struct {
		name   string
		method string
		path   string
		body   io.Reader
		sid    *string
		status *string
		docb   *string
		to     *string
		ids    *string
	}{
		{
			name:   "malformed sid",
			method: http.MethodGet,
			path:   "/api/forge/v1/schemas/not-a-uuid",
			sid:    stringAddr("Path param sid is not UUID."),
		},
		{
			name:   "invalid status filter",
			method: http.MethodGet,
			path:   "/api/forge/v1/schemas?status=bogus",
			status: stringAddr("failed on the 'oneof' tag"),
		},
		{
			name:   "create without body",
			method: http.MethodPost,
			path:   "/api/forge/v1/schemas",
			docb:   stringAddr("A definition document is required."),
		},
		{
			name:   "generate without target",
			method: http.MethodPost,
			path:   "/api/forge/v1/migrations",
			body:   jsonBody(`{}`),
			to:     stringAddr("failed on the 'required' tag"),
		},
		{
			name:   "execution order with malformed ids",
			method: http.MethodGet,
			path:   "/api/forge/v1/graph/execution-order?ids=junk",
			ids:    stringAddr("Item junk is not UUID."),
		},
	} {
		igts.Run(tc.name, func() {
			w := httptest.NewRecorder()
			req, err := http.NewRequest(tc.method, tc.path, tc.body)
			igts.Require().NoError(err, "cannot create request")

			res := &struct {
				Sid    []string `json:"sid"`
				Status []string
				Body   []string `json:"body"`
				To     []string `json:"ToSchemaID"`
				IDs    []string
			}{}
			igts.sendReqRecvResp(w, req, res)

			igts.Equal(400, w.Code)
			igts.assertOptContains(tc.sid, res.Sid, "wrong sid")
			igts.assertOptContains(tc.status, res.Status, "wrong status")
			igts.assertOptContains(tc.docb, res.Body, "wrong body")
			igts.assertOptContains(tc.to, res.To, "wrong to_schema_id")
			igts.assertOptContains(tc.ids, res.IDs, "wrong ids")
		})
	}
}

func (igts *IntegrationGinTestSuite) TestNotFound() {
	missingID := uuid.New()
	for _, tc := range []struct {
		name   string
		method string
		path   string
	}{
		{
			name:   "schema record",
			method: http.MethodGet,
			path:   "/api/forge/v1/schemas/" + missingID.String(),
		},
		{
			name:   "migration record",
			method: http.MethodGet,
			path:   "/api/forge/v1/migrations/" + missingID.String(),
		},
	} {
		igts.Run(tc.name, func() {
			w := httptest.NewRecorder()
			req, err := http.NewRequest(tc.method, tc.path, nil)
			igts.Require().NoError(err, "cannot create request")

			res := &struct {
				Error string `json:"error"`
			}{}
			igts.sendReqRecvResp(w, req, res)

			igts.Equal(404, w.Code)
			igts.NotEmpty(res.Error, "missing error detail")
		})
	}
}

func (igts *IntegrationGinTestSuite) createSchema(
	doc string,
) *model.SchemaRecord {
	w := httptest.NewRecorder()
	req, err := http.NewRequest(
		http.MethodPost, "/api/forge/v1/schemas", jsonBody(doc),
	)
	igts.Require().NoError(err, "cannot create POST request")
	req.Header.Add("X-Forge-Actor", "tester")

	res := &model.SchemaRecord{}
	igts.sendReqRecvResp(w, req, res)

	igts.Require().Equal(201, w.Code, "schema creation failed")
	igts.Require().NotEqual(uuid.UUID{}, res.ID, "missing record ID")
	return res
}

func (igts *IntegrationGinTestSuite) TestSchemaLifecycle() {
	rec := igts.createSchema(
		definitionDoc("Invoice", "1.0.0", "invoices"),
	)
	igts.Equal("Invoice", rec.ModelID)
	igts.Equal(model.StatusDraft, rec.Status)
	igts.Equal("tester", rec.CreatedBy)

	sid := rec.ID.String()
	w := httptest.NewRecorder()
	req, err := http.NewRequest(
		http.MethodPost,
		"/api/forge/v1/schemas/"+sid+"/activate",
		nil,
	)
	igts.Require().NoError(err, "cannot create activation request")
	res := &model.SchemaRecord{}
	igts.sendReqRecvResp(w, req, res)
	igts.Equal(200, w.Code)
	igts.Equal(model.StatusActive, res.Status, "record is not active")

	w = httptest.NewRecorder()
	req, err = http.NewRequest(
		http.MethodGet,
		"/api/forge/v1/schemas/"+sid+"/ddl",
		nil,
	)
	igts.Require().NoError(err, "cannot create DDL request")
	ddlRes := &struct {
		Statements []string `json:"statements"`
	}{}
	igts.sendReqRecvResp(w, req, ddlRes)
	igts.Equal(200, w.Code)
	igts.Require().NotEmpty(ddlRes.Statements, "missing DDL statements")
	igts.Contains(
		ddlRes.Statements[0], "CREATE TABLE",
		"first statement must create the table",
	)

	w = httptest.NewRecorder()
	req, err = http.NewRequest(
		http.MethodGet,
		"/api/forge/v1/schemas/"+sid+"/changes",
		nil,
	)
	igts.Require().NoError(err, "cannot create history request")
	entries := []*model.ChangeLogEntry{}
	igts.sendReqRecvResp(w, req, &entries)
	igts.Equal(200, w.Code)
	igts.Require().Len(entries, 2, "expecting creation and activation")
	igts.Equal(model.ChangeCreated, entries[0].Type)
	igts.Equal(model.ChangeActivated, entries[1].Type)
	igts.Equal("tester", entries[0].Actor)
	igts.Equal("anonymous", entries[1].Actor, "missing default actor")

	w = httptest.NewRecorder()
	req, err = http.NewRequest(
		http.MethodPatch,
		"/api/forge/v1/schemas/"+sid,
		jsonBody(definitionDoc("Invoice", "1.0.1", "invoices")),
	)
	igts.Require().NoError(err, "cannot create update request")
	errRes := &struct {
		Error string `json:"error"`
	}{}
	igts.sendReqRecvResp(w, req, errRes)
	igts.Equal(409, w.Code, "active records must be immutable")
}

func (igts *IntegrationGinTestSuite) TestDeleteDraft() {
	rec := igts.createSchema(
		definitionDoc("Receipt", "1.0.0", "receipts"),
	)
	sid := rec.ID.String()

	w := httptest.NewRecorder()
	req, err := http.NewRequest(
		http.MethodDelete, "/api/forge/v1/schemas/"+sid, nil,
	)
	igts.Require().NoError(err, "cannot create DELETE request")
	igts.Gin.ServeHTTP(w, req)
	igts.Equal(204, w.Code)

	w = httptest.NewRecorder()
	req, err = http.NewRequest(
		http.MethodGet, "/api/forge/v1/schemas/"+sid, nil,
	)
	igts.Require().NoError(err, "cannot create GET request")
	res := &struct {
		Error string `json:"error"`
	}{}
	igts.sendReqRecvResp(w, req, res)
	igts.Equal(404, w.Code, "deleted record must be gone")
}

func (igts *IntegrationGinTestSuite) TestMigrationGeneration() {
	rec := igts.createSchema(
		definitionDoc("Ledger", "1.0.0", "ledgers"),
	)
	w := httptest.NewRecorder()
	req, err := http.NewRequest(
		http.MethodPost,
		"/api/forge/v1/migrations",
		jsonBody(`{"to_schema_id":"`+rec.ID.String()+`"}`),
	)
	igts.Require().NoError(err, "cannot create generation request")
	res := &model.MigrationRecord{}
	igts.sendReqRecvResp(w, req, res)
	igts.Equal(201, w.Code)
	igts.Nil(res.FromSchemaID, "baseline has no source schema")
	igts.Equal(rec.ID, res.ToSchemaID)
	igts.Equal(model.MigrationPending, res.Status)
	igts.Contains(res.ForwardSQL, "CREATE TABLE")
	igts.Contains(res.RollbackSQL, "DROP TABLE")
	igts.NotEmpty(res.Checksum, "missing forward script checksum")

	w = httptest.NewRecorder()
	req, err = http.NewRequest(
		http.MethodGet,
		"/api/forge/v1/migrations?model_id=Ledger",
		nil,
	)
	igts.Require().NoError(err, "cannot create listing request")
	records := []*model.MigrationRecord{}
	igts.sendReqRecvResp(w, req, &records)
	igts.Equal(200, w.Code)
	igts.Require().Len(records, 1, "expecting the baseline migration")
	igts.Equal(res.ID, records[0].ID)
}

func (igts *IntegrationGinTestSuite) TestGraphQueries() {
	rec := igts.createSchema(
		definitionDoc("Warehouse", "1.0.0", "warehouses"),
	)
	sid := rec.ID.String()

	w := httptest.NewRecorder()
	req, err := http.NewRequest(
		http.MethodGet,
		"/api/forge/v1/schemas/"+sid+"/can-delete",
		nil,
	)
	igts.Require().NoError(err, "cannot create can-delete request")
	dres := &struct {
		CanDelete bool `json:"can_delete"`
	}{}
	igts.sendReqRecvResp(w, req, dres)
	igts.Equal(200, w.Code)
	igts.True(dres.CanDelete, "independent record must be deletable")

	w = httptest.NewRecorder()
	req, err = http.NewRequest(
		http.MethodGet,
		"/api/forge/v1/graph/execution-order?ids="+sid,
		nil,
	)
	igts.Require().NoError(err, "cannot create ordering request")
	ores := &struct {
		Order []uuid.UUID `json:"order"`
	}{}
	igts.sendReqRecvResp(w, req, ores)
	igts.Equal(200, w.Code)
	igts.Equal([]uuid.UUID{rec.ID}, ores.Order)

	w = httptest.NewRecorder()
	req, err = http.NewRequest(
		http.MethodGet, "/api/forge/v1/graph/execution-order", nil,
	)
	igts.Require().NoError(err, "cannot create full ordering request")
	ores = &struct {
		Order []uuid.UUID `json:"order"`
	}{}
	igts.sendReqRecvResp(w, req, ores)
	igts.Equal(200, w.Code)
	igts.Contains(
		ores.Order, rec.ID, "full ordering must contain all records",
	)

	w = httptest.NewRecorder()
	req, err = http.NewRequest(
		http.MethodGet, "/api/forge/v1/graph/stats", nil,
	)
	igts.Require().NoError(err, "cannot create stats request")
	sres := &struct {
		TotalSchemas int `json:"total_schemas"`
	}{}
	igts.sendReqRecvResp(w, req, sres)
	igts.Equal(200, w.Code)
	igts.GreaterOrEqual(sres.TotalSchemas, 1, "missing created records")
}

type settingsResp struct {
	Settings  *model.VisibleSettings `json:"settings"`
	MinBounds *model.Settings        `json:"min_bounds"`
	MaxBounds *model.Settings        `json:"max_bounds"`
}

func (igts *IntegrationGinTestSuite) TestSettings() {
	w := httptest.NewRecorder()
	req, err := http.NewRequest(
		http.MethodGet, "/api/forge/v1/settings", nil,
	)
	igts.Require().NoError(err, "cannot create GET request")
	res := &settingsResp{}
	igts.sendReqRecvResp(w, req, res)
	igts.Equal(200, w.Code)
	igts.Require().NotNil(res.Settings, "missing visible settings")
	igts.Require().NotNil(
		res.Settings.Graph.MaxDepth, "missing graph max depth",
	)
	igts.Equal(10, *res.Settings.Graph.MaxDepth, "seeded max depth")

	w = httptest.NewRecorder()
	req, err = http.NewRequest(
		http.MethodPatch,
		"/api/forge/v1/settings",
		jsonBody(`{"graph":{"max_depth":12}}`),
	)
	igts.Require().NoError(err, "cannot create PATCH request")
	res = &settingsResp{}
	igts.sendReqRecvResp(w, req, res)
	igts.Equal(200, w.Code)
	igts.Require().NotNil(res.Settings, "missing visible settings")
	igts.Require().NotNil(
		res.Settings.Graph.MaxDepth, "missing graph max depth",
	)
	igts.Equal(12, *res.Settings.Graph.MaxDepth, "updated max depth")

	w = httptest.NewRecorder()
	req, err = http.NewRequest(
		http.MethodPatch,
		"/api/forge/v1/settings",
		jsonBody(`{"graph":{"max_depth":1000}}`),
	)
	igts.Require().NoError(err, "cannot create PATCH request")
	errRes := &struct {
		Error string `json:"error"`
	}{}
	igts.sendReqRecvResp(w, req, errRes)
	igts.Equal(400, w.Code, "out of range values must be rejected")
}
