package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/zalepa/aduscore/internal/config"
	"github.com/zalepa/aduscore/internal/database"
	"github.com/zalepa/aduscore/internal/dataset"
	"github.com/zalepa/aduscore/internal/logger"
	"github.com/zalepa/aduscore/internal/metrics"
	"github.com/zalepa/aduscore/internal/scores"
)

// commonFlags are accepted by every subcommand that reads town data.
type commonFlags struct {
	config *string
	data   *string
	source *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		config: fs.String("config", config.Path(), "YAML config file (missing file means defaults)"),
		data:   fs.String("data", "", "data directory, overrides data.dir"),
		source: fs.String("source", "", "data source: files or postgres, overrides data.source"),
	}
}

// app holds what a subcommand needs once flags are parsed.
type app struct {
	cfg     *config.Config
	log     logger.Logger
	source  scores.Source
	db      *sqlx.DB
	builder *scores.Builder
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(f commonFlags) (*config.Config, error) {
	cfg, err := config.Load(*f.config)
	if err != nil {
		return nil, err
	}
	if *f.data != "" {
		cfg.Data.Dir = *f.data
	}
	if *f.source != "" {
		cfg.Data.Source = *f.source
	}
	return cfg, cfg.Validate()
}

// newApp loads config, builds the logger and opens the configured data
// source. m may be nil.
func newApp(ctx context.Context, f commonFlags, m *metrics.Metrics) (*app, error) {
	cfg, err := loadConfig(f)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}

	switch cfg.Data.Source {
	case config.SourcePostgres:
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.source = database.NewRepository(db)
	default:
		dir, err := dataset.Open(cfg.Data.Dir, log)
		if err != nil {
			return nil, err
		}
		a.source = dir
	}
	a.builder = scores.NewBuilder(a.source, log, m)
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	_ = a.log.Sync()
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// reorderArgs moves positional arguments after the flags so the flag
// package, which stops at the first non-flag, sees every flag. Boolean flags
// must use the -flag=value form when followed by a positional argument.
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(a, "-") {
			positional = append(positional, a)
			continue
		}
		flags = append(flags, a)
		if !strings.Contains(a, "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			flags = append(flags, args[i+1])
			i++
		}
	}
	return append(flags, positional...)
}
