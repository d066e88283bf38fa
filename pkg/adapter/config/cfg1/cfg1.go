// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package cfg1 makes it possible to load configuration settings with
// version 1.x.y since all minor and patch versions (which are known)
// with the same major version, can be loaded with one implementation.
// When trying to serialize and write out settings, the latest known
// minor and patch version will be used since older versions (with the
// same major version) can ignore the extra fields too.
package cfg1

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/momeni/schema-forge/pkg/adapter/config/comment"
	"github.com/momeni/schema-forge/pkg/adapter/config/settings"
	"github.com/momeni/schema-forge/pkg/adapter/config/vers"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres/migration"
	"github.com/momeni/schema-forge/pkg/adapter/db/postgres/storesrp"
	"github.com/momeni/schema-forge/pkg/adapter/hash/scram"
	"github.com/momeni/schema-forge/pkg/adapter/restful/gin"
	"github.com/momeni/schema-forge/pkg/core/log"
	"github.com/momeni/schema-forge/pkg/core/model"
	"github.com/momeni/schema-forge/pkg/core/repo"
	scrami "github.com/momeni/schema-forge/pkg/core/scram"
	"github.com/momeni/schema-forge/pkg/core/usecase/appuc"
	"github.com/momeni/schema-forge/pkg/core/usecase/graphuc"
	"github.com/momeni/schema-forge/pkg/core/usecase/migrationuc"
	"github.com/momeni/schema-forge/pkg/core/usecase/schemauc"
	"gopkg.in/yaml.v3"
)

// These constants define the major, minor, and patch version of the
// configuration settings which are supported by the Config struct.
const (
	Major = 1
	Minor = 0
	Patch = 0
)

// Version is the semantic version of Config struct.
var Version = model.SemVer{Major, Minor, Patch}

// Default boundary values for the dependency graph traversal depth.
// They are used for the max-depth-minimum and max-depth-maximum
// settings when a configuration file leaves them uninitialized.
const (
	defaultMinMaxDepth = 1
	defaultMaxMaxDepth = 100
)

// Config contains all settings which are required by different parts
// of the project following the v1.x.y format, such as adapters or
// use cases. It is preferred to implement Config with primitive fields
// or other structs which are defined locally, not models or structs
// which are defined in lower layers, so the configuration can be
// versioned and kept intact while other layers can change freely.
// This version (when freezed and no further minor or patch release
// of it was supposed acceptable) may be embedded by the future config
// versions (if they need to copy some parts of this config version).
type Config struct {
	Database Database // PostgreSQL database connection settings
	Gin      Gin      // Gin-Gonic instantiation settings
	Usecases Usecases // Configuration settings for supported use cases

	// Vers contains the configuration file and store schema version
	// strings corresponding to this Config instance and its Database
	// target.
	Vers vers.Config `yaml:",inline"`

	// Comments contains the YAML comment lines which are written right
	// before the actual settings lines, aka head-comments.
	// These comments are preserved for top-level settings and their
	// children sequence and mapping YAML nodes. The Comments may be nil
	// which will be ignored, or may be poppulated with some comments
	// which will be preserved during a marshaling operation by the
	// store upgrade operation. Indeed, Comments field is only useful
	// when the destination configuration file is loaded during an
	// upgrade operation because the MergeConfig method preserves the
	// destination Comments field, so the new comments may be seen in
	// the target config file.
	Comments *comment.Comment `yaml:"-"`
}

// Database contains the database related configuration settings.
type Database struct {
	Host    string // domain name or IP address of the DBMS server
	Port    int    // port number of the DBMS server
	Name    string // database name of the engine database
	PassDir string `yaml:"pass-dir"` // path of the passwords dir

	// RoleSuffix specifies a possibly empty suffix for the database
	// role names. Normally, repo.AdminRole and repo.NormalRole roles
	// are used. In the parallel test cases, it is required to create
	// multiple non-colliding roles in the same database cluster and
	// so having a unique (per test) role suffix helps with parallelism.
	RoleSuffix repo.Role `yaml:"role-suffix,omitempty"`

	// AuthMethod specifies the database authentication method name.
	// This method indicates how passwords should be hashed and stored
	// in the database, so they may be used by an authentication
	// operation successfully.
	// Currently, only scram-sha-1 and scram-sha-256 methods are
	// supported. The scram-sha-256 is the default value.
	AuthMethod string `yaml:"auth-method,omitempty"`

	// hasher is instantiated based on the AuthMethod and is used by
	// the NewStoreRepo method, so Store repo instances may hash
	// passwords properly (as expected by the DBMS).
	hasher scrami.Hasher `yaml:"-"`
}

// ConnectionPool creates a database connection pool using the
// connection information which are kept in the `c` settings.
func (c *Config) ConnectionPool(
	ctx context.Context, r repo.Role,
) (repo.Pool, error) {
	p, err := c.Database.ConnectionPool(ctx, r)
	if err != nil {
		return nil, fmt.Errorf(
			"%#v.ConnectionPool: %w", c.Database, err,
		)
	}
	return p, nil
}

// ConnectionInfo returns the host, port, and database name of the
// connection information which are kept in this Config instance.
func (c *Config) ConnectionInfo() (dbName, host string, port int) {
	return c.Database.ConnectionInfo()
}

// NewStoreRepo instantiates a fresh Store repository.
// Role names may be optionally suffixed based on the settings and
// in that case, repo.Role role names which are passed to the
// ConnectionPool method or RenewPasswords will be suffixed
// automatically. Since the Store repository has methods for
// creation of roles or asking to grant specific privileges to
// them, it needs to obtain the same role name suffix (as stored
// in the current StoreSettings instance).
func (c *Config) NewStoreRepo() repo.Store {
	return c.Database.NewStoreRepo()
}

// StoreMigrator creates a repo.Migrator[repo.StoreSettler] instance
// which wraps the given `tx` transaction argument and can be used for
//  1. loading the source store schema information by exposing its
//     tables as views in an intermediate schema of the same engine
//     database, within the given transaction, without copying the
//     data items themselves,
//  2. creating upwards or downwards migrator objects in order to
//     transform the loaded data into their upper/lower schema versions,
//     again with minimal data transfer and using views instead of
//     tables as far as possible, while creating tables or even loading
//     data into this Golang process if it is necessary, and at last
//  3. obtaining a repo.StoreSettler instance for the target schema
//     major version, so it can persist the target schema version by
//     creating tables and filling them with contents of the
//     corresponding views.
func (c *Config) StoreMigrator(tx repo.Tx) (
	repo.Migrator[repo.StoreSettler], error,
) {
	return migration.New(tx, c.StoreVersion())
}

// SettingsPersister instantiates a repo.SettingsPersister for the
// store schema version of the `c` Config instance, wrapping the
// given `tx` transaction argument.
// Obtained settings persister depends on the schema major version alone
// because the upgrade process only needs to create and fill tables
// for the latest minor version of some target major version.
// Caller needs to serialize the mutable settings independently (based
// on the settings format version) and then employ this persister object
// for its storage in the database (see the settings.Adapter.Serialize
// and Config.Serializable methods).
// A transaction (not a connection) is required because other upgrade
// operations must be performed usually in the same transaction.
func (c *Config) SettingsPersister(tx repo.Tx) (
	repo.SettingsPersister, error,
) {
	return migration.NewSettingsPersister(tx, c.StoreVersion())
}

// StoreInitializer creates a repo.StoreInitializer instance which
// wraps the given transaction argument and can be used to initialize
// the store with development or production suitable data. The format
// of the created tables and their initial data rows are chosen based
// on the store schema version, as indicated by StoreVersion method.
// All table creation and data insertion operations will be performed
// in the given transaction and will be persisted only if that
// transaction could commit successfully.
func (c *Config) StoreInitializer(tx repo.Tx) (
	repo.StoreInitializer, error,
) {
	return migration.NewInitializer(tx, c.StoreVersion())
}

// RenewPasswords generates new secure passwords for the given roles
// and after recording them in a temporary file, will use the change
// function in order to update the passwords of those roles in the
// database too. The change function argument should perform the
// update operation in a transaction which may or may not be committed
// when RenewPasswords returns. In case of a successful commitment,
// the temporary passwords file should be moved over the main passwords
// file. The temporary passwords file is named as .pgpass.new and the
// main passwords file is named as .pgpass in this version. Keeping
// the .pgpass file (in the `c.Database.PassDir`) up-to-date, makes it
// possible to use ConnectionPool method again (both if the passwords
// are or are not updated successfully). This final file movement can
// be performed using the returned finalizer function.
func (c *Config) RenewPasswords(
	ctx context.Context,
	change func(
		ctx context.Context, roles []repo.Role, passwords []string,
	) error,
	roles ...repo.Role,
) (finalizer func() error, err error) {
	return c.Database.RenewPasswords(ctx, change, roles...)
}

// StoreVersion returns the semantic version of the store schema
// which its connection information are kept by this Config struct.
// There is no direct dependency between the configuration file and
// store schema versions.
func (c *Config) StoreVersion() model.SemVer {
	return c.Vers.Versions.Database
}

// SetStoreVersion updates the semantic version of the store
// schema as recorded in this Config instance and reported by the
// StoreVersion method.
func (c *Config) SetStoreVersion(sv model.SemVer) {
	c.Vers.Versions.Database = sv
}

// ConnectionPool creates a database connection pool using the
// connection information which are kept in the `d` settings.
// Initially, the .pgpass file in the d.PassDir folder is checked
// which should conform with the pgpass format with lines like this:
//
//	host:port:dbname:role:password
//
// If a database connection could be established, created pool and nil
// error will be returned. Otherwise, passwords might have been updated
// during a previous incomplete upgrade operation. So the .pgpass.new
// file in the same d.PassDir folder is checked too. If a connection
// could be established successfully, the .pgpass.new will be moved to
// the .pgpass file, so the .pgpass.new file may be overwritten safely
// by the subsequent upgrade operations.
//
// The `d.RoleSuffix` will be appended to the given `r` role name too.
func (d Database) ConnectionPool(
	ctx context.Context, r repo.Role,
) (repo.Pool, error) {
	path := filepath.Join(d.PassDir, ".pgpass")
	u, err := d.ConnectionURL(r, path)
	if err != nil {
		return nil, fmt.Errorf("using %q pass-file: %w", path, err)
	}
	p, err := postgres.NewPool(ctx, u)
	if err == nil {
		return p, nil
	}
	fmt.Printf("failed to connect with %q: %v\n", path, err)
	newPath := filepath.Join(d.PassDir, ".pgpass.new")
	fmt.Printf("now, trying to connect with %q\n", newPath)
	u, err = d.ConnectionURL(r, newPath)
	if err != nil {
		return nil, fmt.Errorf("using %q pass-file: %w", newPath, err)
	}
	p, err = postgres.NewPool(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("can use neither pass-file: %w", err)
	}
	if err = os.Rename(newPath, path); err != nil {
		p.Close()
		return nil, fmt.Errorf("os.Rename: %w", err)
	}
	return p, nil
}

// ConnectionURL returns the database connection URL embedding the host,
// port, role name, database name, and password value. These items are
// directly taken from the `d` settings, but the role name which is
// specified by the `r` argument and the password value which is read
// from the given `path` file. Returned URL has the postgresql scheme.
// The `path` file may contain empty or `#`-commented lines in addition
// to the password specifying lines which should conform with the pgpass
// files format with lines like this:
//
//	host:port:dbname:role:password
//
// If the `path` file could be read and a password for the asked `r`
// role could be identified, a URL and a nil error will be returned.
// Otherwise, returned string will be empty and error will describe the
// wrapped error condition.
func (d Database) ConnectionURL(
	r repo.Role, path string,
) (string, error) {
	passLines, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading pass-file: %w", err)
	}
	r = r + d.RoleSuffix
	prfx := fmt.Sprintf("%s:%d:%s:%s:", d.Host, d.Port, d.Name, r)
	var pass string
	for _, line := range strings.Split(string(passLines), "\n") {
		if line == "" || line[0] == '#' {
			continue
		}
		if strings.HasPrefix(line, prfx) {
			pass = line[len(prfx):]
			break
		}
	}
	if pass == "" {
		return "", fmt.Errorf("no matching password line")
	}
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(string(r), pass),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	return u.String(), nil
}

// ConnectionInfo returns the host, port, and database name of the
// connection information which are kept in this Database instance.
func (d Database) ConnectionInfo() (dbName, host string, port int) {
	return d.Name, d.Host, d.Port
}

// NewStoreRepo instantiates a fresh Store repository.
// Role names may be optionally suffixed based on the settings and
// in that case, repo.Role role names which are passed to the
// ConnectionPool method or RenewPasswords will be suffixed
// automatically. Since the Store repository has methods for
// creation of roles or asking to grant specific privileges to
// them, it needs to obtain the same role name suffix (as stored
// in the current Database instance).
//
// The expected passwords hashing format of the target database must be
// configured in the `d.AuthMethod` field. Also, ValidateAndNormalize
// method is expected to be called beforehand, so it can create a hasher
// instance based on it. That hasher will be included in the returned
// Store repo, so it may hash database role passwords properly.
func (d Database) NewStoreRepo() repo.Store {
	return storesrp.New(d.RoleSuffix, d.hasher)
}

// RenewPasswords generates new secure passwords for the given roles
// and after recording them in a temporary file (i.e., .pgpass.new file
// in the `d.PassDir` directory), will use the `change` function in
// order to update the passwords of those `roles` in the database too.
// The `change` function argument should perform the update operation
// in a transaction which may or may not be committed when the
// RenewPasswords function returns. In case of a successful commitment,
// the temporary passwords file should be moved over the main passwords
// file (i.e., .pgpass file in the `d.PassDir` directory). Keeping the
// .pgpass file up-to-date, makes it possible to use ConnectionPool
// method again (both if the passwords are or are not updated
// successfully). This final file movement can be performed using the
// returned finalizer function.
//
// The `d.RoleSuffix` will be appended to the given role names too.
// The `change` function must add the same suffix to `roles` roles names
// in order to remain consistent with the in-file recorded information.
func (d Database) RenewPasswords(
	ctx context.Context,
	change func(
		ctx context.Context, roles []repo.Role, passwords []string,
	) error,
	roles ...repo.Role,
) (finalizer func() error, err error) {
	passwords := make([]string, len(roles))
	b := make([]byte, 16) // 128 bits
	enc := base64.RawStdEncoding
	p := make([]byte, enc.EncodedLen(len(b))) // for each password
	prfx := fmt.Sprintf("%s:%d:%s", d.Host, d.Port, d.Name)
	lines := make([]string, len(passwords))
	for i, r := range roles {
		if _, err = rand.Read(b); err != nil {
			return nil, fmt.Errorf("rand.Read for i=%d: %w", i, err)
		}
		enc.Encode(p, b)
		passwords[i] = string(p)
		r = r + d.RoleSuffix
		lines[i] = fmt.Sprintf("%s:%s:%s\n", prfx, r, passwords[i])
	}
	orgPath := filepath.Join(d.PassDir, ".pgpass")
	newPath := filepath.Join(d.PassDir, ".pgpass.new")
	finalizer = func() error {
		return os.Rename(newPath, orgPath)
	}
	err = os.WriteFile(newPath, []byte(strings.Join(lines, "")), 0o600)
	if err != nil {
		return nil, fmt.Errorf("writing %q file: %w", newPath, err)
	}
	if err = change(ctx, roles, passwords); err != nil {
		return nil, fmt.Errorf("passwords change callback: %w", err)
	}
	return finalizer, nil
}

// ValidateAndNormalize validates the database settings and returns an
// error if they were not acceptable. It can also modify settings in
// order to normalize them or replace some zero values with their
// expected default values (if any). So, it takes a pointer receiver
// instead of a non-reference receiver (in contrast to other methods).
func (d *Database) ValidateAndNormalize() error {
	switch am := d.AuthMethod; am {
	case "scram-sha-1":
		d.hasher = scram.SHA1()
	case "":
		d.AuthMethod = "scram-sha-256"
		fallthrough
	case "scram-sha-256":
		d.hasher = scram.SHA256()
	default:
		return fmt.Errorf(
			"unsupported database authentication method: %q", am,
		)
	}
	return nil
}

// Gin contains the gin-gonic related configuration settings.
// Fields are defined as pointers, so it is possible to detect if they
// are or are not initialized. After migrating from some configuration
// settings version, some settings may be left uninitialized because
// they may have no corresponding items in the source settings version.
// Those items can be detected as nil pointers and filled by their
// default values using the MergeConfig method.
type Gin struct {
	Logger   *bool // Whether to register the gin.Logger() middleware
	Recovery *bool // Whether to register the gin.Recovery() middleware

	// ShutdownGrace indicates how long a serving engine may continue
	// processing its in-flight requests after receiving a termination
	// signal, before its connections are closed forcefully.
	// A nil value asks for the default 5s grace period.
	ShutdownGrace *settings.Duration `yaml:"shutdown-grace,omitempty"`
}

// NewEngine instantiates a new gin-gonic engine instance based on
// the `g` settings.
func (g Gin) NewEngine() *gin.Engine {
	middlewares := make([]gin.HandlerFunc, 0, 2)
	if *g.Logger {
		middlewares = append(middlewares, gin.Logger())
	}
	if *g.Recovery {
		middlewares = append(middlewares, gin.Recovery())
	}
	return gin.New(middlewares...)
}

// NewAppUseCase instantiates a new application management use case.
// Instantiated use case needs a settings repository (and access to the
// connection pool) in order to query and update the mutable settings.
// It also needs to know about the configuration file contents which
// should be overridden by the database contents. However, the
// repository instance can manage this relationship with the
// configuration file contents (in the adapters layer), allowing the
// application use case to solely deal with the model layer settings.
// The settings repository must take the `c` Config instance during its
// instantiation.
func (c *Config) NewAppUseCase(
	p repo.Pool, s appuc.SettingsRepo,
	schemas repo.Schemas,
	migrations repo.Migrations,
	changeLog repo.ChangeLog,
) (*appuc.UseCase, error) {
	return appuc.New(p, s, schemas, migrations, changeLog)
}

// NewSchemasUseCase instantiates a new schema records use case based
// on the settings in the `c` struct.
func (c *Config) NewSchemasUseCase(
	p repo.Pool, s repo.Schemas, cl repo.ChangeLog,
) (*schemauc.UseCase, error) {
	return c.Usecases.NewSchemasUseCase(p, s, cl)
}

// NewMigrationsUseCase instantiates a new migration generation use
// case based on the settings in the `c` struct.
func (c *Config) NewMigrationsUseCase(
	p repo.Pool, m repo.Migrations, s repo.Schemas,
) (*migrationuc.UseCase, error) {
	return migrationuc.New(p, m, s)
}

// NewGraphUseCase instantiates a new dependency graph use case based
// on the settings in the `c` struct.
func (c *Config) NewGraphUseCase(
	p repo.Pool, s repo.Schemas,
) (*graphuc.UseCase, error) {
	return c.Usecases.Graph.NewUseCase(p, s)
}

// Usecases contains the configuration settings for all use cases.
type Usecases struct {
	Graph      Graph      // dependency graph traversal settings
	Validation Validation // definition validation settings
	DDL        DDL        `yaml:"ddl"` // SQL generation settings
	Changelog  Changelog  // change log reporting settings
}

// Graph contains the configuration settings for the dependency graph
// use cases. Fields are defined as pointers, so it is possible to
// detect if they are or are not initialized. After migrating from some
// configuration settings version, some settings may be left
// uninitialized because they may have no corresponding items in the
// source settings version. Those items can be detected as nil pointers
// and filled by their default values using the MergeConfig method.
type Graph struct {
	// MaxDepth bounds the dependency chain and impact analysis
	// traversal depth.
	// A nil value indicates that the depth bound is uninitialized, so
	// the use cases layer may select a default value.
	MaxDepth *int `yaml:"max-depth"`
	// MinMaxDepth is the inclusive minimum acceptable value for the
	// MaxDepth setting.
	// A missing value takes the default lower bound of 1.
	MinMaxDepth *int `yaml:"max-depth-minimum"`
	// MaxMaxDepth is the inclusive maximum acceptable value for the
	// MaxDepth setting.
	// A missing value takes the default upper bound of 100.
	MaxMaxDepth *int `yaml:"max-depth-maximum"`
}

// NewUseCase instantiates a new dependency graph use case based on the
// settings in the `g` struct.
func (g Graph) NewUseCase(
	p repo.Pool, s repo.Schemas,
) (*graphuc.UseCase, error) {
	opts := make([]graphuc.Option, 0, 1)
	if g.MaxDepth != nil {
		opts = append(opts, graphuc.WithMaxDepth(*g.MaxDepth))
	}
	return graphuc.New(p, s, opts...)
}

// Validation contains the configuration settings for the definition
// validation logic of the schema records use cases.
type Validation struct {
	// Lenient reports if definition validation should stop at the
	// first detected issue instead of aggregating all of them.
	// A nil value indicates that the strict mode is left uninitialized,
	// so the use cases layer may select a default value.
	Lenient *bool `yaml:"lenient"`
}

// DDL contains the configuration settings for the SQL generation
// logic of the schema records use cases.
type DDL struct {
	// AutoTimestamps reports if created_at and updated_at columns
	// should be appended to generated tables when the definition does
	// not declare them explicitly. It only affects the default
	// behavior of the DDL reporting endpoints and a nil value leaves
	// that decision to the resources layer.
	AutoTimestamps *bool `yaml:"auto-timestamps"`
}

// Changelog contains the configuration settings for the change log
// reporting queries of the schema records use cases.
type Changelog struct {
	// RecentLimit is the maximum number of change log entries which
	// may be reported by a single recent changes query.
	// A nil or non-positive value takes the default limit.
	RecentLimit *int `yaml:"recent-limit"`
}

// NewSchemasUseCase instantiates a new schema records use case based
// on the settings in the `u` struct.
func (u Usecases) NewSchemasUseCase(
	p repo.Pool, s repo.Schemas, cl repo.ChangeLog,
) (*schemauc.UseCase, error) {
	opts := make([]schemauc.Option, 0, 3)
	if l := u.Validation.Lenient; l != nil && *l {
		opts = append(opts, schemauc.WithLenientValidation())
	}
	if rl := u.Changelog.RecentLimit; rl != nil && *rl > 0 {
		opts = append(opts, schemauc.WithRecentChangesLimit(*rl))
	}
	opts = append(opts, schemauc.WithChangeHook(logChanges))
	return schemauc.New(p, s, cl, opts...)
}

// logChanges reports a schema lifecycle change as a structured log
// record, so host systems may consume the changes feed from the log
// stream without requiring a dedicated broadcast transport.
func logChanges(ctx context.Context, change model.SchemaChange) {
	log.Info(
		ctx,
		"schema lifecycle change",
		slog.String("type", string(change.Type)),
		slog.String("schema_id", change.SchemaID.String()),
		slog.String("model_id", change.ModelID),
	)
}

// Load unmarshals the data byte slice and loads a Config instance
// assuming that it contains the Config settings. Extra items in the
// data will be ignored and missing items will take their default
// values. Thereafter, loaded Config will be validated and normalized
// in order to ensure that provided settings are acceptable (for example
// the major version which is reported by data settings must match
// with number 1 which is the major version of this config package).
//
// If some settings should be overridden by environment variables,
// this method is the proper place for that replacement. However, if
// settings should be overridden by some information from the database,
// they must not be replaced here because the Load method provides
// those settings which are fixed by each execution (while the database
// contents may change continually and their loading must be performed
// by a separate method, such as LoadFromDB).
func Load(data []byte) (*Config, error) {
	n := &yaml.Node{}
	if err := yaml.Unmarshal(data, n); err != nil {
		return nil, fmt.Errorf("unmarshalling yaml: %w", err)
	}
	if l := len(n.Content); l != 1 {
		return nil, fmt.Errorf(
			"found %d children nodes, instead of 1 mapping child", l,
		)
	}
	c := &Config{}
	if err := n.Decode(c); err != nil {
		return nil, fmt.Errorf("decoding yaml node: %w", err)
	}
	if err := c.ValidateAndNormalize(); err != nil {
		return nil, fmt.Errorf("validating configs: %w", err)
	}
	cmnts, err := comment.LoadFrom(n.Content[0])
	if err != nil {
		return nil, fmt.Errorf("parsing comments: %w", err)
	}
	c.Comments = cmnts
	return c, nil
}

// LoadFromDB parses the given data byte slice and loads a Config
// instance (the first return value). It also tries to establish a
// connection to the corresponding database which its connection
// information are described in the loaded Config instance.
// It is expected to find a serialized version of mutable settings
// following the same format which is used by Config (i.e., Serializable
// struct) in the database. The mutable settings from the database will
// override the settings which are read from the data byte slice.
// Thereafter, loaded and mutated Config will be validated and
// normalized in order to ensure that provided settings are acceptable.
//
// If some settings should be overridden by environment variables, they
// should be updated after parsing the data byte slice and before
// checking the database contents (so configuration file may be updated
// by environment variables and both may be updated by database contents
// respectively). If an error prevents the configuration settings to be
// updated using the database contents, but the loaded static settings
// were valid themselves, LoadFromDB still returns the Config instance.
// The second return value which is a boolean reports if the Config
// instance is or is not being returned (like an ok flag for the first
// return value). Any errors will be returned as the last return value.
func LoadFromDB(ctx context.Context, data []byte) (
	*Config, bool, error,
) {
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, false, fmt.Errorf("unmarshalling yaml: %w", err)
	}
	if err := c.Vers.Validate(Major, Minor); err != nil {
		return nil, false, fmt.Errorf(
			"expecting version v%d.%d: %w", Major, Minor, err,
		)
	}
	if err := c.Database.ValidateAndNormalize(); err != nil {
		return nil, false, fmt.Errorf("validating DB settings: %w", err)
	}
	dbErr := settings.LoadFromDB(ctx, c)
	if dbErr != nil {
		dbErr = fmt.Errorf("settings.LoadFromDB: %w", dbErr)
	}
	err := c.ValidateAndNormalize()
	switch {
	case err != nil && dbErr != nil:
		return nil, false, fmt.Errorf(
			"invalid config file (%w) could not be updated from DB: %w",
			err, dbErr,
		)
	case err == nil && dbErr != nil:
		return c, true, dbErr
	case err != nil && dbErr == nil:
		return nil, false, fmt.Errorf("validating configs: %w", err)
	}
	return c, true, nil
}

// ValidateAndNormalize validates the configuration settings and
// returns an error if they were not acceptable. It can also modify
// settings in order to normalize them or replace some zero values with
// their expected default values (if any).
func (c *Config) ValidateAndNormalize() error {
	if err := c.Vers.Validate(Major, Minor); err != nil {
		return fmt.Errorf(
			"expecting version v%d.%d: %w", Major, Minor, err,
		)
	}
	settings.Nil2Zero(&c.Gin.Logger)
	settings.Nil2Zero(&c.Gin.Recovery)
	// No need to check for nil Lenient or AutoTimestamps settings
	// because they have no default in adapters layer.
	if err := c.Database.ValidateAndNormalize(); err != nil {
		return fmt.Errorf("validating database settings: %w", err)
	}
	minb := defaultMinMaxDepth
	maxb := defaultMaxMaxDepth
	settings.OverwriteNil(&c.Usecases.Graph.MinMaxDepth, &minb)
	settings.OverwriteNil(&c.Usecases.Graph.MaxMaxDepth, &maxb)
	if err := settings.VerifyRange(
		&c.Usecases.Graph.MaxDepth,
		c.Usecases.Graph.MinMaxDepth,
		c.Usecases.Graph.MaxMaxDepth,
	); err != nil {
		return fmt.Errorf(
			"VerifyRange(graph max depth=%v, minb=%v, maxb=%v): %w",
			err.Value,
			c.Usecases.Graph.MinMaxDepth,
			c.Usecases.Graph.MaxMaxDepth,
			err,
		)
	}
	rl := schemauc.DefaultRecentLimit
	settings.OverwriteNil(&c.Usecases.Changelog.RecentLimit, &rl)
	if l := *c.Usecases.Changelog.RecentLimit; l <= 0 {
		return fmt.Errorf(
			"change log recent-limit (%d) is not positive", l,
		)
	}
	return nil
}

// Marshalled struct contains a field for each one of the Config struct
// fields. The field names may be different for simplicity, but the
// yaml tag of fields are chosen to have consistent names after the
// serialization operation. The types of those fields are the same if
// their default serialization format is acceptable, otherwise, they
// will be serialized manually using the Marshal method and their
// target primitive types will be used in the Marshalled struct.
type Marshalled struct {
	Database Database
	Gin      struct {
		Logger        *bool
		Recovery      *bool
		ShutdownGrace *string `yaml:"shutdown-grace,omitempty"`
	}
	Usecases Usecases
	Vers     *vers.Marshalled `yaml:",inline"`
}

// MarshalYAML computes an instance of the Marshalled struct, as created
// by the Marshal method, so it may be marshalled instead of the `c`
// Config instance. This replacement makes it possible to substitute
// specific settings such as a slices of numbers in a vers.Config with
// their alternative primitive data types and have control on the final
// serialization result. Thereafter, it encodes *Marshalled as a yaml
// node instance and saves the preserved head `c.Comments` (if any) into
// the resulting *yaml.Node instance (and returns it as an interface{}).
//
// See the Marshal function for the reification details and how
// marshaling logic can be distributed among nested Config structs.
func (c *Config) MarshalYAML() (interface{}, error) {
	m := c.Marshal()
	n := &yaml.Node{}
	if err := n.Encode(m); err != nil {
		return nil, fmt.Errorf("encoding *Marshalled as YAML: %w", err)
	}
	if err := c.Comments.SaveInto(n); err != nil {
		return nil, fmt.Errorf("saving YAML nodes comments: %w", err)
	}
	return n, nil
}

// Marshal creates an instance of the Marshalled struct and fills it
// with the `c` Config instance contents. The Marshalled and Config
// fields do correspond with each other with one difference. Any field
// which requires a specific MarshalYAML logic (and its default encoding
// logic into YAML format is not suitable) is replaced by a primitive
// data type, so it can contain the properly serialized version of that
// field.
//
// This Marshal method encodes and replaces fields which are defined in
// this package and recursively calls Marshal method on those fields
// which are defined in other packages. Therefore, the marshaling logic
// can be distributed among packages, near to the relevant data types
// (while MarshalYAML from the yaml.Marshaler interface is only called
// for the top-most object and is ignored for nested types).
func (c *Config) Marshal() *Marshalled {
	m := &Marshalled{}
	m.Database = c.Database
	m.Gin.Logger = c.Gin.Logger
	m.Gin.Recovery = c.Gin.Recovery
	m.Gin.ShutdownGrace = c.Gin.ShutdownGrace.Marshal()
	m.Usecases = c.Usecases
	m.Vers = c.Vers.Marshal()
	return m
}

// Dereference returns the `c` Config instance itself.
//
// Methods of the Config struct refer to other types based on this
// package Major version for complete type-safety. For example, the
// MergeConfig only accepts an instance of Config from this package
// and passing another config version will be rejected at compile time.
// However, the use cases layer which does not know about the config
// version at compile time has to receive Config as an abstract
// interface which is common among all config versions. That abstract
// interface is defined as pkg/core/usecase/storeuc.Settings which
// provides MergeSettings method instead of MergeConfig and accepts
// an instance of Settings interface instead of the Config instance.
// The pkg/adapter/config/settings.Adapter[Config, Serializable] is
// defined in order to wrap a Config instance and implement the
// storeuc.Settings interface.
//
// Presence of the Dereference method allows users of the Config struct
// and the Adapter[Config, Serializable] struct to use them uniformly.
// Indeed, both of the raw Config and its wrapper Adapter instances can
// be represented by pkg/adapter/config/settings.Dereferencer[Config]
// interface and so the wrapped Config instance may be obtained from
// them using the Dereference method. Note that a type assertion from
// the Settings interface to the Adapter instance requires pre-knowledge
// about the Adapter (and a Settings interface which is provided by some
// other adapter implementation may not be supported), while the
// Dereferencer[Config] interface can be provided by any adapter
// implementation simply by embedding the Config instance.
func (c *Config) Dereference() *Config {
	return c
}

// Clone creates a new instance of Config and initializes its fields
// based on the `c` fields. Pointers are renewed too, so changes in
// the returned Config instance and `c` stay independent.
func (c *Config) Clone() *Config {
	cc := &Config{
		Database: c.Database,
		Vers:     c.Vers,
	}
	settings.OverwriteUnconditionally(&cc.Gin.Logger, c.Gin.Logger)
	settings.OverwriteUnconditionally(&cc.Gin.Recovery, c.Gin.Recovery)
	settings.OverwriteUnconditionally(
		&cc.Gin.ShutdownGrace, c.Gin.ShutdownGrace,
	)
	settings.OverwriteUnconditionally(
		&cc.Usecases.Graph.MaxDepth, c.Usecases.Graph.MaxDepth,
	)
	settings.OverwriteUnconditionally(
		&cc.Usecases.Graph.MinMaxDepth, c.Usecases.Graph.MinMaxDepth,
	)
	settings.OverwriteUnconditionally(
		&cc.Usecases.Graph.MaxMaxDepth, c.Usecases.Graph.MaxMaxDepth,
	)
	settings.OverwriteUnconditionally(
		&cc.Usecases.Validation.Lenient, c.Usecases.Validation.Lenient,
	)
	settings.OverwriteUnconditionally(
		&cc.Usecases.DDL.AutoTimestamps, c.Usecases.DDL.AutoTimestamps,
	)
	settings.OverwriteUnconditionally(
		&cc.Usecases.Changelog.RecentLimit,
		c.Usecases.Changelog.RecentLimit,
	)
	return cc
}

// MergeConfig overwrites all fields of `c` which are not initialized
// (and have nil value) with their corresponding values from `c2` arg.
// The `c` config version will be set to the latest known version values
// as specified by Major, Minor, and Patch constants in this package.
// All database settings in `c` are overwritten by the `c2` values
// unconditionally. The store schema version number will be set to its
// latest supported version too, having the same major version as
// specified in `c2` instance.
// The Comments field takes its value from the `c2` instance, ignoring
// comments of the `c` instance (if any).
// Similarly, the boundary values are copied from the `c2` because the
// target boundary values should be respected after migration. By the
// way, settings may fail to fit in the expected range of boundary
// values. In this case, they will take the nearest (minimum/maximum)
// value and the violated boundaries will be logged as warning.
func (c *Config) MergeConfig(ctx context.Context, c2 *Config) error {
	c.Database = c2.Database

	settings.OverwriteNil(&c.Gin.Logger, c2.Gin.Logger)
	settings.OverwriteNil(&c.Gin.Recovery, c2.Gin.Recovery)
	settings.OverwriteNil(&c.Gin.ShutdownGrace, c2.Gin.ShutdownGrace)
	settings.OverwriteNil(
		&c.Usecases.Graph.MaxDepth, c2.Usecases.Graph.MaxDepth,
	)
	settings.OverwriteNil(
		&c.Usecases.Validation.Lenient, c2.Usecases.Validation.Lenient,
	)
	settings.OverwriteNil(
		&c.Usecases.DDL.AutoTimestamps, c2.Usecases.DDL.AutoTimestamps,
	)
	settings.OverwriteNil(
		&c.Usecases.Changelog.RecentLimit,
		c2.Usecases.Changelog.RecentLimit,
	)
	settings.OverwriteUnconditionally(
		&c.Usecases.Graph.MinMaxDepth, c2.Usecases.Graph.MinMaxDepth,
	)
	settings.OverwriteUnconditionally(
		&c.Usecases.Graph.MaxMaxDepth, c2.Usecases.Graph.MaxMaxDepth,
	)
	if err := settings.VerifyRange(
		&c.Usecases.Graph.MaxDepth,
		c.Usecases.Graph.MinMaxDepth,
		c.Usecases.Graph.MaxMaxDepth,
	); err != nil {
		log.Warn(
			ctx,
			"graph max depth is adjusted by boundary values",
			slog.Any("value", err.Value),
			slog.Any("minb", c.Usecases.Graph.MinMaxDepth),
			slog.Any("maxb", c.Usecases.Graph.MaxMaxDepth),
			log.Err("violation", err),
		)
	}
	c.Vers.Versions.Config = model.SemVer{Major, Minor, Patch}
	sv, err := migration.LatestVersion(c2.StoreVersion())
	if err != nil {
		return err
	}
	c.Vers.Versions.Database = sv
	c.Comments = c2.Comments
	return nil
}

// Version returns the semantic version of this Config struct contents
// which its major version is equal to 1, while its minor and patch
// versions may correspond to the Minor and Patch constants or may
// describe an older version (if the minor version of the returned
// semantic version was more recent than Minor constant, it could not
// be loaded by the Load function). By the way, no constraint exists on
// the patch version because it has no visible effect.
func (c *Config) Version() model.SemVer {
	return c.Vers.Versions.Config
}

// MajorVersion returns the major semantic version of this Config
// instance. This value matches with the first component of the version
// which is returned by the Version method. However, the Version method
// returns the complete semantic version as written in a configuration
// file, hence, it cannot be called without creating an instance of
// Config first. In contrast, this method only depends on the Config
// type and so can be called with a nil instance too.
func (c *Config) MajorVersion() uint {
	return Major
}
