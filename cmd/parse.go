package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalepa/aduscore/export"
	"github.com/zalepa/aduscore/internal/dataset"
	"github.com/zalepa/aduscore/internal/logger"
	"github.com/zalepa/aduscore/parser"
	"github.com/zalepa/aduscore/townstats"
)

// Parse implements the "parse" subcommand: read a permit log PDF (or a
// directory of them), extract the permit table and write JSON + CSV output
// files. With -town the permits are stored in the data directory instead.
func Parse(args []string) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	jsonOut := fs.String("json", "", "output JSON file path (single file mode only)")
	csvOut := fs.String("csv", "", "output CSV file path (single file mode only)")
	town := fs.String("town", "", "store permits as this town's log in the data directory (single file mode only)")
	cf := addCommonFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: aduscore parse <input.pdf | directory> [-json out.json] [-csv out.csv] [-town name]\n\n")
		fmt.Fprintf(os.Stderr, "If a directory is given, all *.pdf files in it are parsed and output\nfiles are written alongside each PDF.\n\n")
		fs.PrintDefaults()
	}
	fs.Parse(reorderArgs(args))

	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}
	inputPath := fs.Arg(0)

	cfg, err := loadConfig(cf)
	if err != nil {
		fatalf("error: %v", err)
	}
	log, err := logger.New(cfg.Logging)
	if err != nil {
		fatalf("error: %v", err)
	}
	defer log.Sync()

	info, err := os.Stat(inputPath)
	if err != nil {
		fatalf("error: %v", err)
	}

	if info.IsDir() {
		if *town != "" {
			fatalf("-town cannot be used with a directory")
		}
		pdfs, err := filepath.Glob(filepath.Join(inputPath, "*.pdf"))
		if err != nil {
			fatalf("error globbing directory: %v", err)
		}
		if len(pdfs) == 0 {
			fatalf("no PDF files found in %s", inputPath)
		}
		for _, pdf := range pdfs {
			permits, ok := parseSinglePDF(pdf, log)
			if ok {
				writeParseOutputs(pdf, "", "", permits)
			}
		}
		return
	}

	permits, ok := parseSinglePDF(inputPath, log)
	if !ok {
		os.Exit(1)
	}
	if *town == "" {
		writeParseOutputs(inputPath, *jsonOut, *csvOut, permits)
		return
	}

	d, err := dataset.Open(cfg.Data.Dir, log)
	if err != nil {
		fatalf("error: %v", err)
	}
	towns, _ := d.Towns(context.Background())
	t, err := lookupTown(towns, *town)
	if err != nil {
		fatalf("error: %v", err)
	}
	if err := d.WritePermits(t.Slug, permits); err != nil {
		fatalf("error: %v", err)
	}
	fmt.Fprintf(os.Stderr, "%s: stored %d permits for %s\n", filepath.Base(inputPath), len(permits), t.Name)
}

// parseSinglePDF parses one file and prints a summary line plus each skipped
// row to stderr.
func parseSinglePDF(path string, log logger.Logger) ([]townstats.PermitRecord, bool) {
	name := filepath.Base(path)
	permits, skipped, err := parser.ParseFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		return nil, false
	}

	fmt.Fprintf(os.Stderr, "%s: %d permits, %d rows skipped\n", name, len(permits), len(skipped))
	for _, e := range skipped {
		fmt.Fprintf(os.Stderr, "  %s\n", e.Error())
	}
	log.Info("Parsed permit log",
		logger.String("file", path),
		logger.Int("permits", len(permits)),
		logger.Int("skipped", len(skipped)))
	return permits, true
}

// writeParseOutputs writes permits as JSON and CSV. Empty paths default to
// the input's directory and base name.
func writeParseOutputs(inputPath, jsonOut, csvOut string, permits []townstats.PermitRecord) {
	dir := filepath.Dir(inputPath)
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	if jsonOut == "" {
		jsonOut = filepath.Join(dir, base+".json")
	}
	if csvOut == "" {
		csvOut = filepath.Join(dir, base+".csv")
	}

	if permits == nil {
		permits = []townstats.PermitRecord{}
	}
	jsonData, err := json.MarshalIndent(permits, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: error marshaling JSON: %v\n", filepath.Base(inputPath), err)
		return
	}
	if err := os.WriteFile(jsonOut, append(jsonData, '\n'), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "%s: error writing JSON: %v\n", filepath.Base(inputPath), err)
		return
	}

	if err := writeFileWith(csvOut, func(f *os.File) error { return export.WritePermitsCSV(f, permits) }); err != nil {
		fmt.Fprintf(os.Stderr, "%s: error writing CSV: %v\n", filepath.Base(inputPath), err)
		return
	}
	fmt.Fprintf(os.Stderr, "  -> %s, %s\n", filepath.Base(jsonOut), filepath.Base(csvOut))
}

// writeFileWith creates path and hands it to write, removing the file when
// write fails.
func writeFileWith(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
