// Package dataset reads a static snapshot of town, permit and compliance
// data from a directory:
//
//	towns.json            []townstats.TownRecord
//	compliance.json       []townstats.TownCompliance
//	permits/<slug>.json   []townstats.PermitRecord
//
// Only towns.json is required. A missing compliance or permit file means the
// town has no such data.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalepa/aduscore/internal/logger"
	"github.com/zalepa/aduscore/townstats"
)

const (
	townsFile      = "towns.json"
	complianceFile = "compliance.json"
	permitsDir     = "permits"
)

// Dir is a snapshot directory. Towns and compliance are read once by Open;
// permit files are read on demand.
type Dir struct {
	root       string
	towns      []townstats.TownRecord
	compliance map[string]townstats.TownCompliance
}

// Open loads towns.json and compliance.json from root. Towns whose counts
// are inconsistent are kept and logged at warn level.
func Open(root string, log logger.Logger) (*Dir, error) {
	d := &Dir{root: root, compliance: make(map[string]townstats.TownCompliance)}

	if err := readJSON(filepath.Join(root, townsFile), &d.towns); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(d.towns))
	for _, t := range d.towns {
		if t.Slug == "" {
			return nil, fmt.Errorf("%s: town %q has no slug", townsFile, t.Name)
		}
		if seen[t.Slug] {
			return nil, fmt.Errorf("%s: duplicate slug %q", townsFile, t.Slug)
		}
		seen[t.Slug] = true
		if problems := t.Inconsistencies(); len(problems) > 0 {
			log.Warn("Inconsistent town counts",
				logger.String("town", t.Slug),
				logger.Strings("problems", problems))
		}
	}

	var compliance []townstats.TownCompliance
	err := readJSON(filepath.Join(root, complianceFile), &compliance)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	for _, c := range compliance {
		if !seen[c.Slug] {
			log.Warn("Compliance entry for unknown town", logger.String("town", c.Slug))
		}
		d.compliance[c.Slug] = c
	}

	log.Info("Loaded dataset",
		logger.String("dir", root),
		logger.Int("towns", len(d.towns)),
		logger.Int("compliance", len(d.compliance)))
	return d, nil
}

func (d *Dir) Towns(_ context.Context) ([]townstats.TownRecord, error) {
	out := make([]townstats.TownRecord, len(d.towns))
	copy(out, d.towns)
	return out, nil
}

// Permits returns the town's permit log, or nil when none was published.
func (d *Dir) Permits(_ context.Context, slug string) ([]townstats.PermitRecord, error) {
	path, err := d.permitPath(slug)
	if err != nil {
		return nil, err
	}
	var permits []townstats.PermitRecord
	err = readJSON(path, &permits)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return permits, err
}

func (d *Dir) Compliance(_ context.Context, slug string) (townstats.TownCompliance, bool, error) {
	c, ok := d.compliance[slug]
	return c, ok, nil
}

// WritePermits stores permits as the town's permit log, replacing any
// existing file.
func (d *Dir) WritePermits(slug string, permits []townstats.PermitRecord) error {
	path, err := d.permitPath(slug)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create permits dir: %w", err)
	}
	data, err := json.MarshalIndent(permits, "", "  ")
	if err != nil {
		return fmt.Errorf("encode permits: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (d *Dir) permitPath(slug string) (string, error) {
	if slug == "" || strings.ContainsAny(slug, `/\.`) {
		return "", fmt.Errorf("invalid town slug %q", slug)
	}
	return filepath.Join(d.root, permitsDir, slug+".json"), nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
