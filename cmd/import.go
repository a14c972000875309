package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/zalepa/aduscore/internal/database"
	"github.com/zalepa/aduscore/internal/dataset"
	"github.com/zalepa/aduscore/internal/logger"
	"github.com/zalepa/aduscore/internal/scores"
	"github.com/zalepa/aduscore/townstats"
)

// townWriter is the write side of database.Repository.
type townWriter interface {
	UpsertTown(ctx context.Context, t townstats.TownRecord) error
	ReplacePermits(ctx context.Context, slug string, permits []townstats.PermitRecord) error
	ReplaceCompliance(ctx context.Context, c townstats.TownCompliance) error
}

// importSummary counts what importTowns wrote.
type importSummary struct {
	Towns      int
	Permits    int
	Compliance int
}

// Import implements the "import" subcommand: load a data directory into
// PostgreSQL, applying pending migrations first.
func Import(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cf := addCommonFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: aduscore import [data-dir]\n\nCopy towns.json, compliance.json and permits/*.json into PostgreSQL.\n\n")
		fs.PrintDefaults()
	}
	fs.Parse(reorderArgs(args))

	if fs.NArg() > 1 {
		fs.Usage()
		os.Exit(1)
	}
	if fs.NArg() == 1 {
		*cf.data = fs.Arg(0)
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

	src, err := dataset.Open(cfg.Data.Dir, log)
	if err != nil {
		fatalf("error: %v", err)
	}

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		fatalf("error: %v", err)
	}
	defer db.Close()
	if err := database.MigrateUp(db.DB, log); err != nil {
		fatalf("error: %v", err)
	}

	sum, err := importTowns(ctx, src, database.NewRepository(db), log)
	if err != nil {
		fatalf("error: %v", err)
	}
	fmt.Fprintf(os.Stderr, "imported %d towns, %d permits, %d compliance reviews\n", sum.Towns, sum.Permits, sum.Compliance)
}

// importTowns copies every town in src to dst. A town's permits are only
// replaced when src has a permit log for it, so an import never wipes logs
// loaded earlier from another snapshot.
func importTowns(ctx context.Context, src scores.Source, dst townWriter, log logger.Logger) (importSummary, error) {
	var sum importSummary
	towns, err := src.Towns(ctx)
	if err != nil {
		return sum, err
	}
	for _, t := range towns {
		if err := dst.UpsertTown(ctx, t); err != nil {
			return sum, err
		}
		sum.Towns++

		permits, err := src.Permits(ctx, t.Slug)
		if err != nil {
			return sum, err
		}
		if permits != nil {
			if err := dst.ReplacePermits(ctx, t.Slug, permits); err != nil {
				return sum, err
			}
			sum.Permits += len(permits)
		}

		c, ok, err := src.Compliance(ctx, t.Slug)
		if err != nil {
			return sum, err
		}
		if ok {
			c.Slug = t.Slug
			if err := dst.ReplaceCompliance(ctx, c); err != nil {
				return sum, err
			}
			sum.Compliance++
		}
		log.Debug("Imported town", logger.String("town", t.Slug), logger.Int("permits", len(permits)))
	}
	log.Info("Import complete",
		logger.Int("towns", sum.Towns),
		logger.Int("permits", sum.Permits),
		logger.Int("compliance", sum.Compliance))
	return sum, nil
}
