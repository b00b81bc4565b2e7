package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rdelrosario/sari-pos/pkg/config"
	"github.com/rdelrosario/sari-pos/pkg/db"
	"github.com/rdelrosario/sari-pos/pkg/logger"
	"github.com/rdelrosario/sari-pos/pkg/migrate"
)

func main() {
	ctx := context.Background()
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	target := flag.String("target", "local", "migration target: local (sqlite store) | remote (postgres store)")
	dir := flag.String("dir", "", "goose migrations directory (defaults per target)")

	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")

	flag.Parse()

	var dialect migrate.Dialect
	switch *target {
	case "local":
		dialect = migrate.DialectSQLite
		if *dir == "" {
			*dir = migrate.DefaultDir
		}
	case "remote":
		dialect = migrate.DialectPostgres
		if *dir == "" {
			*dir = migrate.DefaultRemoteDir
		}
	default:
		fmt.Fprintln(os.Stderr, "unknown -target value:", *target)
		os.Exit(1)
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx = logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"cmd":    *cmd,
		"target": *target,
		"dir":    *dir,
	})

	// Commands that do NOT require a store
	switch *cmd {
	case "create":
		if *name == "" {
			fmt.Fprintln(os.Stderr, "missing -name for create")
			os.Exit(1)
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create migration: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("created migration:", path)
		return

	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			fmt.Fprintf(os.Stderr, "migration validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("migration validation passed")
		return
	}

	// Everything else needs the targeted store
	var client *db.Client
	switch *target {
	case "local":
		client, err = db.NewLocal(context.Background(), cfg.LocalStore, logg)
		requireResource(ctx, logg, "local store", err)
	case "remote":
		client, err = db.NewRemote(context.Background(), cfg.RemoteDB, logg)
		requireResource(ctx, logg, "remote store", err)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	logg.Info(ctx, "migrate ready")

	switch *cmd {
	case "up", "down", "status":
		if err := migrate.Run(ctx, sqlDB, dialect, *dir, *cmd); err != nil {
			fmt.Fprintf(os.Stderr, "goose %s failed: %v\n", *cmd, err)
			os.Exit(1)
		}

	case "version":
		if *version == "" {
			fmt.Fprintln(os.Stderr, "missing -version for version command")
			os.Exit(1)
		}
		if err := migrate.MigrateToVersion(ctx, sqlDB, dialect, *dir, *version); err != nil {
			fmt.Fprintf(os.Stderr, "goose version migrate failed: %v\n", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown -cmd value:", *cmd)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
