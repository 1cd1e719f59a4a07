package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/partsdesk/pricing-backend/pkg/config"
	"github.com/partsdesk/pricing-backend/pkg/db"
	"github.com/partsdesk/pricing-backend/pkg/logger"
	"github.com/partsdesk/pricing-backend/pkg/migrate"
)

const usage = `usage: migrate [flags] <command>

commands:
  up             apply all pending migrations
  down           roll back the latest migration
  to             migrate up or down to -version
  status         list migrations and whether they are applied
  version        print the current schema version
  create         write a new migration named -name into -dir
  validate       check migration files in -dir (embedded set when -dir is empty)
  sync-models    create or alter sqlite tables from the GORM models

flags:
`

func main() {
	dir := flag.String("dir", "", "migrations directory; empty uses the set embedded in this binary")
	name := flag.String("name", "", "migration name for create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for to")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	if err := run(command, *dir, *name, *version); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", command, err)
		os.Exit(1)
	}
}

func run(command, dir, name, version string) error {
	_ = godotenv.Load()

	// Offline commands need neither config nor a database.
	switch command {
	case "create":
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(dir, name, time.Now())
		if err != nil {
			return err
		}
		fmt.Println("created", path)
		return nil
	case "validate":
		if err := migrate.ValidateFS(source(dir)); err != nil {
			return err
		}
		fmt.Println("migrations valid")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"command": command,
		"driver":  cfg.DB.Driver,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if command == "sync-models" {
		if err := migrate.SyncModels(ctx, dbClient); err != nil {
			return err
		}
		logg.Info(ctx, "models synced")
		return nil
	}

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("unwrap sql.DB: %w", err)
	}
	migrator, err := migrate.NewMigrator(sqlDB, sourceOrNil(dir))
	if err != nil {
		return err
	}

	switch command {
	case "up":
		applied, err := migrator.Up(ctx)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "applied", applied), "migrations applied")
	case "down":
		if err := migrator.Down(ctx); err != nil {
			return err
		}
		logg.Info(ctx, "latest migration rolled back")
	case "to":
		target, err := migrate.ParseVersion(version)
		if err != nil {
			return err
		}
		if err := migrator.To(ctx, target); err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "version", target), "schema at target version")
	case "version":
		v, err := migrator.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Println(v)
	case "status":
		statuses, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		printStatus(statuses)
	default:
		flag.Usage()
		return errors.New("unknown command")
	}
	return nil
}

func source(dir string) fs.FS {
	if dir == "" {
		return migrate.Embedded()
	}
	return os.DirFS(dir)
}

func sourceOrNil(dir string) fs.FS {
	if dir == "" {
		return nil
	}
	return os.DirFS(dir)
}

func printStatus(statuses []migrate.Status) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "VERSION\tAPPLIED AT\tFILE")
	for _, s := range statuses {
		applied := "pending"
		if s.Applied {
			applied = s.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Version, applied, s.File)
	}
}
