package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/hrthis/hrthis-backend/pkg/config"
	"github.com/hrthis/hrthis-backend/pkg/db"
	"github.com/hrthis/hrthis-backend/pkg/logger"
	"github.com/hrthis/hrthis-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate|seed")
	dir := flag.String("dir", "", "migrations directory (default: bundled set, or "+migrate.DefaultDir+" for create/validate)")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate only touch the filesystem
	fileDir := *dir
	if fileDir == "" {
		fileDir = migrate.DefaultDir
	}
	switch *cmd {
	case "create":
		if *name == "" {
			exitf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(fileDir, *name)
		if err != nil {
			exitf("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(fileDir); err != nil {
			exitf("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	src, err := migrate.Source(*dir)
	requireResource(ctx, logg, "migrations source", err)
	runner, err := migrate.NewRunner(sqlDB, src)
	requireResource(ctx, logg, "migration runner", err)

	logg.Info(ctx, "migrate ready")

	switch *cmd {
	case "up", "seed":
		steps, err := runner.Up(ctx)
		if err != nil {
			exitf("%v", err)
		}
		report(steps)
		if *cmd == "up" {
			return
		}
		catalogs, err := newSeedCatalogs(dbClient, logg)
		requireResource(ctx, logg, "seed services", err)
		if err := seedDev(ctx, cfg, logg, catalogs); err != nil {
			logg.Error(ctx, "seed failed", err)
			os.Exit(1)
		}
	case "down":
		steps, err := runner.Down(ctx)
		if err != nil {
			exitf("%v", err)
		}
		report(steps)
	case "version":
		if *version == "" {
			exitf("missing -version for version command")
		}
		steps, err := runner.To(ctx, *version)
		if err != nil {
			exitf("%v", err)
		}
		report(steps)
	case "status":
		current, err := runner.Version(ctx)
		if err != nil {
			exitf("%v", err)
		}
		pending, err := runner.Pending(ctx)
		if err != nil {
			exitf("%v", err)
		}
		fmt.Printf("current version: %d\n", current)
		for _, v := range pending {
			fmt.Printf("pending: %d\n", v)
		}
	default:
		exitf("unknown -cmd value: %s", *cmd)
	}
}

func report(steps []migrate.Applied) {
	if len(steps) == 0 {
		fmt.Println("nothing to do")
		return
	}
	for _, st := range steps {
		fmt.Printf("%-4s %d %s\n", st.Direction, st.Version, st.Path)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
