package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/angelmondragon/swiftcart-backend/pkg/config"
	"github.com/angelmondragon/swiftcart-backend/pkg/db"
	"github.com/angelmondragon/swiftcart-backend/pkg/logger"
	"github.com/angelmondragon/swiftcart-backend/pkg/migrate"
	"github.com/joho/godotenv"
)

const usage = "up|up-by-one|down|redo|status|version|create|validate"

func main() {
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: "+usage)
	dir := flag.String("dir", "", "migrations directory; empty uses the set built into the binary ("+migrate.DefaultDir+" for create/validate)")
	name := flag.String("name", "", "migration name, for -cmd=create")
	version := flag.String("version", "", "target version YYYYMMDDHHMMSS, for -cmd=version")
	flag.Parse()

	switch *cmd {
	case "create":
		if *name == "" {
			fail("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(sourceDir(*dir), *name)
		if err != nil {
			fail("create migration: %v", err)
		}
		fmt.Println("created", path)
		return
	case "validate":
		if err := migrate.ValidateDir(sourceDir(*dir)); err != nil {
			fail("validate migrations: %v", err)
		}
		fmt.Println("migrations ok")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fail("load config: %v", err)
	}
	logg := logger.ForService("migrate", cfg.App)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	source, err := migrate.Source(*dir)
	requireResource(ctx, logg, "migration source", err)

	runner, err := migrate.NewRunner(sqlDB, migrate.Dialect(cfg.DB), source)
	requireResource(ctx, logg, "migration runner", err)

	if *cmd == "version" {
		if *version == "" {
			fail("missing -version for version")
		}
		if err := runner.To(ctx, *version); err != nil {
			logg.Error(ctx, "migrate.version_failed", err)
			os.Exit(1)
		}
		logg.Info(logg.WithField(ctx, "version", *version), "migrate.version_reached")
		return
	}

	lines, err := runner.Apply(ctx, *cmd)
	if err != nil {
		logg.Error(ctx, "migrate.failed", err)
		os.Exit(1)
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	logg.Info(logg.WithField(ctx, "migrations", len(lines)), "migrate.completed")
}

func sourceDir(dir string) string {
	if dir == "" {
		return migrate.DefaultDir
	}
	return dir
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
