package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// manifestEntry names where one town publishes its permit log.
type manifestEntry struct {
	Slug string `json:"slug"`
	URL  string `json:"url"`
}

// Download implements the "download" subcommand: fetch the permit log PDFs
// listed in a manifest so they can be fed to "parse".
func Download(args []string) {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	dir := fs.String("dir", ".", "output directory for downloaded PDFs")
	timeout := fs.Duration("timeout", time.Minute, "per-file download timeout")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: aduscore download <manifest.json> [-dir path]\n\n")
		fmt.Fprintf(os.Stderr, "The manifest is a JSON array of {\"slug\": ..., \"url\": ...} objects.\nEach log is saved as <slug>.pdf; existing files are skipped.\n\n")
		fs.PrintDefaults()
	}
	fs.Parse(reorderArgs(args))

	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}

	entries, err := readManifest(fs.Arg(0))
	if err != nil {
		fatalf("error: %v", err)
	}
	if err := os.MkdirAll(*dir, 0o755); err != nil {
		fatalf("error creating output directory: %v", err)
	}

	client := &http.Client{Timeout: *timeout}
	downloaded, skipped, failed := downloadAll(context.Background(), client, entries, *dir, os.Stderr)
	fmt.Fprintf(os.Stderr, "Done: %d downloaded, %d skipped, %d failed\n", downloaded, skipped, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func readManifest(path string) ([]manifestEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []manifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, e := range entries {
		if e.Slug == "" || strings.ContainsAny(e.Slug, `/\.`) {
			return nil, fmt.Errorf("%s: entry %d: invalid slug %q", path, i, e.Slug)
		}
		if !strings.HasPrefix(e.URL, "http://") && !strings.HasPrefix(e.URL, "https://") {
			return nil, fmt.Errorf("%s: entry %d: invalid url %q", path, i, e.URL)
		}
	}
	return entries, nil
}

// downloadAll fetches each entry into dir, reporting progress to w. A failed
// download is reported and does not stop the rest.
func downloadAll(ctx context.Context, client *http.Client, entries []manifestEntry, dir string, w io.Writer) (downloaded, skipped, failed int) {
	for _, e := range entries {
		outName := e.Slug + ".pdf"
		outPath := filepath.Join(dir, outName)

		if _, err := os.Stat(outPath); err == nil {
			fmt.Fprintf(w, "skip %s (already exists)\n", outName)
			skipped++
			continue
		}

		fmt.Fprintf(w, "downloading %s -> %s\n", e.URL, outName)
		if err := downloadFile(ctx, client, e.URL, outPath); err != nil {
			fmt.Fprintf(w, "error downloading %s: %v\n", e.URL, err)
			failed++
			continue
		}
		downloaded++
	}
	return downloaded, skipped, failed
}

// downloadFile writes the body at url to dest. Partial files are removed.
func downloadFile(ctx context.Context, client *http.Client, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	return writeFileWith(dest, func(f *os.File) error {
		_, err := io.Copy(f, resp.Body)
		return err
	})
}
