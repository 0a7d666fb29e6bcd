/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/suparena/docmodel"
	"github.com/suparena/docmodel/config"
	"github.com/suparena/docmodel/schemafile"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	vFlag       = flag.Bool("v", false, "Show version information (short)")
	configFlag  = flag.String("config", "", "Connection config file (YAML); the environment is used when empty")
	schemaFlag  = flag.String("schema", "", "Model schema file (YAML)")
	verboseFlag = flag.Bool("verbose", false, "Log driver activity")
	timeoutFlag = flag.Duration("timeout", 30*time.Second, "Overall timeout")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: docmodel [flags] <command> [args]

Commands:
  ping                       connect every configured alias and ping it
  count <alias> <collection> count the documents in a collection
  models                     list the models declared in -schema
  indexes                    create the indexes declared in -schema

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *versionFlag || *vFlag {
		info := docmodel.GetVersionInfo()
		fmt.Printf("docmodel version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		os.Exit(0)
	}
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	logger, err := newLogger(*verboseFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck
	docmodel.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeoutFlag)
	defer cancel()

	if err := run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		logger.Error("command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopmentConfig().Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func run(ctx context.Context, cmd string, args []string) error {
	if cmd == "models" {
		set, err := loadSchema(docmodel.NewConnections())
		if err != nil {
			return err
		}
		for _, name := range set.Names() {
			m, _ := set.Model(name)
			fmt.Printf("%-20s %s\n", name, m.CollectionName())
		}
		return nil
	}

	conns, err := connect(ctx)
	if err != nil {
		return err
	}
	defer conns.Close(context.Background()) //nolint:errcheck

	switch cmd {
	case "ping":
		for _, alias := range conns.Aliases() {
			db, err := conns.Database(ctx, alias)
			if err != nil {
				return err
			}
			start := time.Now()
			if err := db.Ping(ctx); err != nil {
				return fmt.Errorf("ping %s: %w", alias, err)
			}
			fmt.Printf("%-12s %-20s ok (%s)\n", alias, db.Name(), time.Since(start).Round(time.Millisecond))
		}
		return nil

	case "count":
		if len(args) != 2 {
			return fmt.Errorf("count takes <alias> <collection>")
		}
		db, err := conns.Database(ctx, args[0])
		if err != nil {
			return err
		}
		n, err := db.Collection(args[1]).CountDocuments(ctx, bson.M{})
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil

	case "indexes":
		set, err := loadSchema(conns)
		if err != nil {
			return err
		}
		// variants share their base's collection; one pass per collection is enough
		done := make(map[string]bool)
		for _, name := range set.Names() {
			m, _ := set.Model(name)
			if done[m.CollectionName()] {
				continue
			}
			done[m.CollectionName()] = true
			if err := m.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			fmt.Printf("%-20s indexes ensured\n", m.CollectionName())
		}
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func connect(ctx context.Context) (*docmodel.Connections, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}
	cfg := config.FromEnv()
	if *configFlag != "" {
		var err error
		if cfg, err = config.Load(*configFlag); err != nil {
			return nil, err
		}
		cfg.ApplyEnv(os.Getenv)
	}
	if len(cfg.Connections) == 0 {
		return nil, fmt.Errorf("no connections configured; use -config or %s", config.EnvURI)
	}

	conns := docmodel.NewConnections()
	if err := conns.ConnectConfig(ctx, cfg); err != nil {
		_ = conns.Close(context.Background())
		return nil, err
	}
	return conns, nil
}

func loadSchema(conns *docmodel.Connections) (*schemafile.Set, error) {
	if *schemaFlag == "" {
		return nil, fmt.Errorf("-schema is required")
	}
	f, err := schemafile.Load(*schemaFlag)
	if err != nil {
		return nil, err
	}
	return f.Build(docmodel.NewCatalog(), docmodel.WithConnections(conns))
}
