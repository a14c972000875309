package main

import (
	"fmt"
	"os"

	"github.com/zalepa/aduscore/cmd"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "parse":
		cmd.Parse(os.Args[2:])
	case "download":
		cmd.Download(os.Args[2:])
	case "score":
		cmd.Score(os.Args[2:])
	case "export":
		cmd.Export(os.Args[2:])
	case "viz":
		cmd.Viz(os.Args[2:])
	case "web":
		cmd.Web(os.Args[2:])
	case "migrate":
		cmd.Migrate(os.Args[2:])
	case "import":
		cmd.Import(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: aduscore <command> [flags]

Commands:
  download   Download town permit log PDFs listed in a manifest
  parse      Parse permit log PDFs into JSON and CSV
  score      Print town scorecards
  export     Export town or permit data as CSV/XLSX
  viz        Chart score rankings and review durations
  web        Serve the scorecard dashboard and JSON API
  migrate    Apply or roll back PostgreSQL migrations
  import     Load a data directory into PostgreSQL
`)
}
