package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/angelmondragon/elibrary-backend/internal/bootstrap"
	"github.com/angelmondragon/elibrary-backend/pkg/db"
	"github.com/angelmondragon/elibrary-backend/pkg/migrate"
)

// gooseCommands pass straight through to goose.
var gooseCommands = map[string]bool{
	"up":     true,
	"down":   true,
	"redo":   true,
	"reset":  true,
	"status": true,
}

func main() {
	cmd := flag.String("cmd", "up", "migration command: up|down|redo|reset|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate only touch the filesystem
	switch *cmd {
	case "create":
		if *name == "" {
			fail("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fail("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			fail("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	proc := bootstrap.Start("migrate")
	logg := proc.Logger
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":    proc.Config.App.Env,
		"cmd":    *cmd,
		"dir":    *dir,
		"driver": proc.Config.DB.Driver,
	})

	// no dev auto-migrate here, goose runs the requested command itself
	dbClient, err := db.New(ctx, proc.Config.DB, logg)
	proc.Must(ctx, "connect database", err)
	proc.OnClose("database", dbClient.Close)
	defer proc.Close()

	sqlDB, err := dbClient.DB().DB()
	proc.Must(ctx, "sql database", err)
	logg.Info(ctx, "migrate ready")

	switch {
	case gooseCommands[*cmd]:
		err = migrate.Run(ctx, sqlDB, *dir, *cmd)
	case *cmd == "version":
		if *version == "" {
			fail("missing -version for version command")
		}
		err = migrate.MigrateToVersion(ctx, sqlDB, *dir, *version)
	default:
		fail("unknown -cmd value: %s", *cmd)
	}
	proc.Must(ctx, "migration command", err)
	logg.Info(ctx, "migration command complete")
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
