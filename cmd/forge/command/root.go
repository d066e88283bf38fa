// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package command provides the root and sub-commands for the schema
// lifecycle engine. Commands are organized using the cobra library.
// The root command starts the REST API server itself while the "db"
// sub-command can be used for the engine database migration actions.
// Three migration actions are supported. The init-dev and init-prod
// actions for initialization of the engine database with the
// development or production suitable data records and the migrate
// action for converting from one config and database version to
// another version.
//
//	./forge [-c /path/of/main/config.yaml]           # start the server
//	./forge db init-dev [-c /path/of/main/config.yaml]
//	./forge db init-prod [-c /path/of/main/config.yaml]
//	./forge db migrate
//	    /path/of/src/config.yaml
//	    /path/of/dst/config.yaml
//	    [-c /path/of/main/config.yaml]
package command

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/momeni/schema-forge/pkg/adapter/config"
	"github.com/momeni/schema-forge/pkg/adapter/config/cfg1"
	"github.com/momeni/schema-forge/pkg/adapter/restful/gin/routes"
	"github.com/momeni/schema-forge/pkg/core/repo"
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "A schema lifecycle engine for JSON-described data models",
	Long: `A schema lifecycle engine for JSON-described data models
which accepts model definition documents (written in a JSON dialect),
validates them structurally, versions them as draft, active, and
deprecated schema records, derives the inter-model dependency graph,
and generates PostgreSQL DDL scripts together with forward/rollback
migration script pairs between schema versions.
The engine state itself is persisted in a PostgreSQL database and is
exposed through a REST API (the root command) and this CLI. The db
sub-commands manage the engine database initialization and its
versioned schema and config files migration.`,
	RunE: startServer,
}

func startServer(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	c, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config.Load(%q): %w", cfgPath, err)
	}
	p, err := c.ConnectionPool(ctx, repo.NormalRole)
	if err != nil {
		return fmt.Errorf("creating DB pool: %w", err)
	}
	defer p.Close()
	e := c.Gin.NewEngine()
	if err = routes.Register(ctx, e, p, c); err != nil {
		return fmt.Errorf("registering routes: %w", err)
	}
	return serve(ctx, c, e.Handler())
}

// serve runs an HTTP server with the given handler until a SIGINT or
// SIGTERM signal arrives, then drains the in-flight requests for the
// configured shutdown grace period (taking 5s in absence of an
// explicit configuration) before closing the remaining connections.
func serve(ctx context.Context, c *cfg1.Config, h http.Handler) error {
	srv := &http.Server{
		Addr:    ":8080",
		Handler: h,
	}
	ctx, stop := signal.NotifyContext(
		ctx, os.Interrupt, syscall.SIGTERM,
	)
	defer stop()
	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()
	select {
	case err := <-errs:
		return fmt.Errorf("running HTTP server: %w", err)
	case <-ctx.Done():
	}
	grace := 5 * time.Second
	if g := c.Gin.ShutdownGrace; g != nil {
		grace = time.Duration(*g)
	}
	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("closing HTTP server: %w", err)
	}
	return nil
}

// Execute runs the rootCmd which in turn parses CLI arguments and
// flags and runs the most specific cobra command. The exit code may
// be a boolean (zero for success and non-zero for failure) or may be
// chosen based on the error condition (if it is desired to report
// several error conditions in the CLI of this program).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(fixConfigPath)
	rootCmd.PersistentFlags().StringVarP(
		&cfgPath, "config", "c", "", "config file path",
	)
}

// fixConfigPath ensures that cfgPath is set respectively by either the
// CLI args, the CONFIG_FILE environment variable, or its default value.
// By the way, default value is not necessarily a single path and may
// check several paths sequentially and take the highest priority one
// among the existing paths. For example, a user-specific path may take
// precedence over a file in /etc which is selected over a file in /usr.
func fixConfigPath() {
	if cfgPath != "" {
		return
	}
	var found bool
	if cfgPath, found = os.LookupEnv("CONFIG_FILE"); !found {
		// the default path should usually be in the /etc directory
		cfgPath = "configs/sample-config.yaml"
	}
}
