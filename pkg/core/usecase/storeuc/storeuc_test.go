// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package storeuc_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/bitcomplete/sqltestutil"
	"github.com/momeni/schema-forge/internal/test/dbcontainer"
	"github.com/momeni/schema-forge/internal/test/schema"
	"github.com/momeni/schema-forge/pkg/adapter/config"
	"github.com/momeni/schema-forge/pkg/adapter/config/cfg1"
	"github.com/momeni/schema-forge/pkg/adapter/config/settings"
	"github.com/momeni/schema-forge/pkg/adapter/config/vers"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres/migration/sch1v0"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres/migration/sch1v1"
	"github.com/momeni/schema-forge/pkg/adapter/hash/scram"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/repo"
	"github.com/momeni/schema-forge/pkg/core/usecase/storeuc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type StoreUseCasesTestSuite struct {
	Ctx  context.Context
	Pg   *sqltestutil.PostgresContainer
	Pool *postgres.Pool
	Port int

	dbDir, cfgDir string
	hasher        *scram.Mechanism
}

func TestStoreUseCasesTestSuite(t *testing.T) {
	ctx := context.Background()
	pg, pool, dfrs, ok := dbcontainer.New(ctx, 60*time.Second, t)
	for _, f := range dfrs {
		defer f()
	}
	if !ok {
		return // errors are already logged
	}
	u, err := url.Parse(pg.ConnectionString())
	if ok := assert.NoError(t, err, "parsing DB container URL"); !ok {
		return
	}
	p, err := strconv.Atoi(u.Port())
	if ok := assert.NoError(t, err, "parsing DB container port"); !ok {
		return
	}
	dbDir, err := os.MkdirTemp("", "storeuc-db")
	if ok := assert.NoError(t, err, "creating temp db dir"); !ok {
		return
	}
	defer func() {
		err := os.RemoveAll(dbDir)
		assert.NoError(t, err, "removing temp db dir")
	}()
	cfgDir, err := os.MkdirTemp("", "storeuc-cfg")
	if ok := assert.NoError(t, err, "creating temp configs dir"); !ok {
		return
	}
	defer func() {
		err = os.RemoveAll(cfgDir)
		assert.NoError(t, err, "removing temp configs dir")
	}()
	sucts := &StoreUseCasesTestSuite{
		Ctx:  ctx,
		Pg:   pg,
		Pool: pool,
		Port: p,

		dbDir:  dbDir,
		cfgDir: cfgDir,
		hasher: scram.SHA256(),
	}
	t.Run("initialization and migration", sucts.TestMigrations)
}

func (sucts *StoreUseCasesTestSuite) TestMigrations(t *testing.T) {
	for _, mode := range []string{"dev", "prod"} {
		sucts.visitCfgDBVers(t, mode, sucts.TestInitDB)
	}
}

func (sucts *StoreUseCasesTestSuite) TestInitDB(
	t *testing.T,
	s storeuc.Settings,
	cfgVer, dbVer model.SemVer,
	name string,
) {
	t.Parallel()
	r := require.New(t)
	dev := strings.HasSuffix(name, "dev")
	sucts.initDBAndVerifySchema(t, r, s, dev, dbVer)

	b, err := yaml.Marshal(s)
	require.NoError(t, err, "marshaling source settings; v=%v", cfgVer)
	srcCfgPath := filepath.Join(sucts.cfgDir, name)
	err = os.WriteFile(srcCfgPath, b, 0o644)
	require.NoError(t, err, "writing source settings; name=%q", name)

	sucts.visitCfgDBVers(t, name, func(
		t *testing.T,
		dstSettings storeuc.Settings,
		dstCfgVer, dstDBVer model.SemVer,
		dstName string,
	) {
		t.Parallel()
		r := require.New(t)
		mig, err := config.LoadSrcMigrator(srcCfgPath)
		r.NoError(err, "config.LoadSrcMigrator(%q)", srcCfgPath)
		targetCfgPath := filepath.Join(sucts.cfgDir, dstName)
		mduc := storeuc.NewMigrateDB(
			mig, dstSettings, targetCfgPath, loader,
		)
		err = mduc.Migrate(sucts.Ctx)
		r.NoError(err, "migrate from schema %v to %v", dbVer, dstDBVer)
		targetSettings, err := loader(sucts.Ctx, targetCfgPath)
		r.NoError(err, "loading target settings from %q", targetCfgPath)
		same, err := storeuc.HasTheSameConnectionInfo(
			targetSettings, dstSettings,
		)
		r.NoError(
			err,
			"target/dst schema (version %v/%v) do not match",
			targetSettings.StoreVersion(), dstDBVer,
		)
		tin, tih, tip := targetSettings.ConnectionInfo()
		din, dih, dip := dstSettings.ConnectionInfo()
		r.True(
			same,
			"target (%s:%d/%s) and dst (%s:%d/%s) DBs are different",
			tih, tip, tin,
			dih, dip, din,
		)
		verifySchema(
			sucts.Ctx, t, r, targetSettings, dstDBVer,
			func(ctx context.Context, v schema.Verifier, t *testing.T) {
				v.VerifySchema(ctx, t)
			},
		)
	})
}

func loader(
	ctx context.Context, path string,
) (storeuc.Settings, error) {
	mig, err := config.LoadMigrator(path)
	if err != nil {
		return nil, fmt.Errorf("config.LoadMigrator: %w", err)
	}
	err = mig.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("mig.Load(): %w", err)
	}
	settings, err := mig.Settler(ctx)
	if err != nil {
		return nil, fmt.Errorf("mig.Settler(): %w", err)
	}
	return settings, nil
}

func (sucts *StoreUseCasesTestSuite) initDBAndVerifySchema(
	t *testing.T,
	r *require.Assertions,
	s storeuc.Settings,
	dev bool,
	dbVer model.SemVer,
) {
	iduc := storeuc.NewInitDB(s)
	if dev {
		err := iduc.InitDev(sucts.Ctx)
		r.NoError(err, "initializing database with dev suitable data")
	} else {
		err := iduc.InitProd(sucts.Ctx)
		r.NoError(err, "initializing database with prod suitable data")
	}
	verifySchema(
		sucts.Ctx, t, r, s, dbVer,
		func(ctx context.Context, v schema.Verifier, t *testing.T) {
			v.VerifySchema(ctx, t)
			if dev {
				v.VerifyDevData(ctx, t)
			} else {
				v.VerifyProdData(ctx, t)
			}
		},
	)
}

func verifySchema(
	ctx context.Context,
	t *testing.T,
	r *require.Assertions,
	s storeuc.Settings,
	dbVer model.SemVer,
	verify func(ctx context.Context, v schema.Verifier, t *testing.T),
) {
	p, err := s.ConnectionPool(ctx, repo.NormalRole)
	r.NoError(err, "creating connection pool")
	defer p.Close()
	err = p.Conn(ctx, func(ctx context.Context, c repo.Conn) error {
		v, err := schema.NewVerifier(c, dbVer)
		if err != nil {
			return fmt.Errorf("NewVerifier(%v): %w", dbVer, err)
		}
		verify(ctx, v, t)
		return nil
	})
	r.NoError(err, "verifying database schema")
}

func (sucts *StoreUseCasesTestSuite) visitCfgDBVers(
	t *testing.T,
	suffix string,
	visit func(
		t *testing.T,
		s storeuc.Settings,
		cfgVer, dbVer model.SemVer,
		name string,
	),
) {
	a := assert.New(t)
	for _, dbVer := range []model.SemVer{
		{sch1v0.Major, sch1v0.Minor, sch1v0.Patch},
		{sch1v1.Major, sch1v1.Minor, sch1v1.Patch},
	} {
		cfgVer := model.SemVer{cfg1.Major, cfg1.Minor, cfg1.Patch}
		d, name, rs := sucts.createEmptyDB(a, cfgVer, dbVer, suffix)
		c1 := &cfg1.Config{
			Database: cfg1.Database{
				Host:       "127.0.0.1",
				Port:       sucts.Port,
				Name:       name,
				PassDir:    d,
				RoleSuffix: rs,
			},
			Vers: vers.Config{
				Versions: vers.Versions{
					Database: dbVer,
					Config:   cfg1.Version,
				},
			},
		}
		err := c1.ValidateAndNormalize()
		a.NoError(err, "validating *cfg1.Config instance")
		s := settings.Adapter[*cfg1.Config, cfg1.Serializable]{Config: c1}
		t.Run(name, func(t *testing.T) {
			visit(t, s, cfgVer, dbVer, name)
		})
	}
}

func (sucts *StoreUseCasesTestSuite) createEmptyDB(
	a *assert.Assertions,
	cfgVer, dbVer model.SemVer, suffix string,
) (dbDir, dbName string, roleSuffix repo.Role) {
	name := fmt.Sprintf(
		"cfg%d_%d_%d_sch%d_%d_%d_%s",
		cfgVer[0], cfgVer[1], cfgVer[2],
		dbVer[0], dbVer[1], dbVer[2],
		suffix,
	)
	roleSuffix = repo.Role("_" + name)
	u := repo.AdminRole + roleSuffix
	p := sucts.randPass(a)
	err := sucts.Pool.Conn(
		sucts.Ctx, func(ctx context.Context, c repo.Conn) error {
			// The database and role creation DDL statements do not
			// support parameterized queries, nevertheless, the `name`
			// and `u` variables are trusted.
			if _, err := c.Exec(
				ctx, "CREATE DATABASE "+name,
			); err != nil {
				return fmt.Errorf("creating %q database: %w", name, err)
			}
			// The `p` password is hashed before being sent to DBMS, so
			// it may not leak even if it is recorded in some log file.
			hp, err := sucts.hasher.Hash(p, "", 15000)
			if err != nil {
				return fmt.Errorf(
					"computing scram hash of password: %w", err,
				)
			}
			// SUPERUSER is required for CREATE EXTENSION
			if _, err := c.Exec(
				ctx,
				fmt.Sprintf(
					`CREATE ROLE %s
WITH SUPERUSER LOGIN PASSWORD '%s';
GRANT ALL PRIVILEGES ON DATABASE %s TO %[1]s`,
					u, hp, name,
				),
			); err != nil {
				return fmt.Errorf("creating %q role: %w", u, err)
			}
			return nil
		},
	)
	if !a.NoError(err, "main connection error") {
		a.FailNow("failed to get a connection with superuser role")
	}
	d := filepath.Join(sucts.dbDir, name)
	err = os.Mkdir(d, 0o700)
	if !a.NoError(err, "creating %q dir", d) {
		a.FailNow("cannot create top database dir")
	}
	line := fmt.Sprintf(
		"127.0.0.1:%d:%s:%s:%s\n", sucts.Port, name, u, p,
	)
	pgpass := filepath.Join(d, ".pgpass")
	err = os.WriteFile(pgpass, []byte(line), 0o600)
	if !a.NoError(err, "writing %q file", pgpass) {
		a.FailNow("cannot write .pgpass file")
	}
	return d, name, roleSuffix
}

func (sucts *StoreUseCasesTestSuite) randPass(
	a *assert.Assertions,
) string {
	b := make([]byte, 8)
	_, err := rand.Read(b)
	if !a.NoError(err, "generating a random password") {
		a.FailNow("cannot read random bytes")
	}
	return fmt.Sprintf("%x", b)
}
