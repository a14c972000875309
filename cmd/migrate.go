package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/zalepa/aduscore/internal/database"
	"github.com/zalepa/aduscore/internal/logger"
)

// Migrate implements the "migrate" subcommand: apply, roll back or report
// the PostgreSQL schema migrations embedded in the binary.
func Migrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	steps := fs.Int("steps", 1, "migrations to roll back (down only)")
	cf := addCommonFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: aduscore migrate <up | down [-steps n] | version>\n\n")
		fs.PrintDefaults()
	}
	fs.Parse(reorderArgs(args))

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := loadConfig(cf)
	if err != nil {
		fatalf("error: %v", err)
	}
	log, err := logger.New(cfg.Logging)
	if err != nil {
		fatalf("error: %v", err)
	}
	defer log.Sync()

	db, err := database.Open(context.Background(), cfg.Database)
	if err != nil {
		fatalf("error: %v", err)
	}
	defer db.Close()

	switch fs.Arg(0) {
	case "up":
		err = database.MigrateUp(db.DB, log)
	case "down":
		err = database.MigrateDown(db.DB, *steps, log)
	case "version":
		version, dirty, ok, verr := database.MigrationVersion(db.DB)
		if verr != nil {
			fatalf("error: %v", verr)
		}
		switch {
		case !ok:
			fmt.Println("no migrations applied")
		case dirty:
			fmt.Printf("%d (dirty)\n", version)
		default:
			fmt.Println(version)
		}
	default:
		fs.Usage()
		os.Exit(1)
	}
	if err != nil {
		fatalf("error: %v", err)
	}
}
