// Command migrate applies the embedded goose migrations. Supported
// subcommands are up, down, and status.
package main

import (
	"fmt"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/ludocat/gamesync/internal/config"
	"github.com/ludocat/gamesync/migrations"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Migration failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	subcmd := "up"
	if len(os.Args) > 1 {
		subcmd = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	db, err := goose.OpenDBWithDriver("pgx", cfg.GetDBConnString())
	if err != nil {
		return err
	}
	defer db.Close()

	switch subcmd {
	case "up":
		return goose.Up(db, ".")
	case "down":
		return goose.Down(db, ".")
	case "status":
		return goose.Status(db, ".")
	default:
		return fmt.Errorf("unknown subcommand %q: want up, down, or status", subcmd)
	}
}
