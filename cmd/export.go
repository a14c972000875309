package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/zalepa/aduscore/export"
	"github.com/zalepa/aduscore/internal/scores"
)

// Export implements the "export" subcommand:
//
//	aduscore export towns [-format csv|xlsx] [-o file]
//	aduscore export permits -town name [-o file]
func Export(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	format := fs.String("format", "csv", "towns output format: csv or xlsx")
	out := fs.String("o", "", "output file (default stdout)")
	town := fs.String("town", "", "town whose permits to export")
	cf := addCommonFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: aduscore export towns [-format csv|xlsx] [-o file]\n")
		fmt.Fprintf(os.Stderr, "       aduscore export permits -town name [-o file]\n\n")
		fs.PrintDefaults()
	}
	fs.Parse(reorderArgs(args))

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}
	what := fs.Arg(0)

	ctx := context.Background()
	a, err := newApp(ctx, cf, nil)
	if err != nil {
		fatalf("error: %v", err)
	}
	defer a.Close()

	var write func(io.Writer) error
	switch what {
	case "towns":
		write, err = townsExporter(ctx, a.builder, *format)
	case "permits":
		if *town == "" {
			fatalf("export permits requires -town")
		}
		write, err = permitsExporter(ctx, a.builder, *town)
	default:
		fs.Usage()
		os.Exit(1)
	}
	if err != nil {
		fatalf("error: %v", err)
	}

	if *out == "" {
		if err := write(os.Stdout); err != nil {
			fatalf("error: %v", err)
		}
		return
	}
	if err := writeFileWith(*out, func(f *os.File) error { return write(f) }); err != nil {
		fatalf("error writing %s: %v", *out, err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", *out)
}

func townsExporter(ctx context.Context, b *scores.Builder, format string) (func(io.Writer) error, error) {
	towns, err := b.Towns(ctx)
	if err != nil {
		return nil, err
	}
	switch format {
	case "csv":
		return func(w io.Writer) error { return export.WriteTownsCSV(w, towns) }, nil
	case "xlsx":
		return func(w io.Writer) error { return export.WriteTownsXLSX(w, towns) }, nil
	}
	return nil, fmt.Errorf("invalid format %q; valid options: csv, xlsx", format)
}

func permitsExporter(ctx context.Context, b *scores.Builder, query string) (func(io.Writer) error, error) {
	towns, err := b.Towns(ctx)
	if err != nil {
		return nil, err
	}
	t, err := lookupTown(towns, query)
	if err != nil {
		return nil, err
	}
	permits, err := b.Permits(ctx, t.Slug)
	if err != nil {
		return nil, err
	}
	return func(w io.Writer) error { return export.WritePermitsCSV(w, permits) }, nil
}
