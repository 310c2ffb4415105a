package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/fleetops-backend/pkg/config"
	"github.com/angelmondragon/fleetops-backend/pkg/db"
	"github.com/angelmondragon/fleetops-backend/pkg/logger"
	"github.com/angelmondragon/fleetops-backend/pkg/migrate"
)

type flags struct {
	dir      string
	embedded bool
	name     string
	version  string
}

// command is one goose action. Offline commands never open the database.
type command struct {
	offline bool
	run     func(ctx context.Context, sqlDB *sql.DB, f flags) (string, error)
}

var commands = map[string]command{
	"create": {offline: true, run: func(_ context.Context, _ *sql.DB, f flags) (string, error) {
		if f.name == "" {
			return "", errors.New("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(f.dir, f.name)
		if err != nil {
			return "", err
		}
		return "created migration: " + path, nil
	}},
	"validate": {offline: true, run: func(_ context.Context, _ *sql.DB, f flags) (string, error) {
		validate := func() error { return migrate.ValidateDir(f.dir) }
		if f.embedded {
			validate = migrate.ValidateEmbedded
		}
		return "migration validation passed", validate()
	}},
	"up": {run: func(ctx context.Context, sqlDB *sql.DB, f flags) (string, error) {
		if f.embedded {
			return "", migrate.UpEmbedded(ctx, sqlDB)
		}
		return "", migrate.Run(ctx, sqlDB, f.dir, "up")
	}},
	"down": {run: func(ctx context.Context, sqlDB *sql.DB, f flags) (string, error) {
		return "", migrate.Run(ctx, sqlDB, f.dir, "down")
	}},
	"status": {run: func(ctx context.Context, sqlDB *sql.DB, f flags) (string, error) {
		return "", migrate.Run(ctx, sqlDB, f.dir, "status")
	}},
	"version": {run: func(ctx context.Context, sqlDB *sql.DB, f flags) (string, error) {
		if f.version == "" {
			return "", errors.New("missing -version for version command")
		}
		return "", migrate.MigrateToVersion(ctx, sqlDB, f.dir, f.version)
	}},
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cmdName := flag.String("cmd", "up", fmt.Sprintf("migration command: %v", commandNames()))
	var f flags
	flag.StringVar(&f.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.BoolVar(&f.embedded, "embedded", false, "use the migrations compiled into the binary (up, validate)")
	flag.StringVar(&f.name, "name", "", "migration name (for create)")
	flag.StringVar(&f.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	cmd, ok := commands[*cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown -cmd value %q, expected one of %v\n", *cmdName, commandNames())
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"cmd":      *cmdName,
		"dir":      f.dir,
		"embedded": f.embedded,
	})

	var sqlDB *sql.DB
	if !cmd.offline {
		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap database", err)
			os.Exit(1)
		}
		defer dbClient.Close()
		if sqlDB, err = dbClient.DB().DB(); err != nil {
			logg.Error(ctx, "failed to get sql handle", err)
			os.Exit(1)
		}
	}

	msg, err := cmd.run(ctx, sqlDB, f)
	if err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}
	if msg != "" {
		fmt.Println(msg)
	}
	logg.Info(ctx, "migration command finished")
}
