package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/rpgo/wealth-simulator/internal/tax"
	"gopkg.in/yaml.v3"
)

// LoadRules reads one tax rules snapshot from a YAML file.
func LoadRules(filename string) (*domain.TaxYearRules, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules %s: %w", filename, err)
	}
	var r domain.TaxYearRules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse rules %s: %w", filename, err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("rules %s: %w", filename, err)
	}
	return &r, nil
}

// LoadRulesDir reads every *.yaml and *.yml snapshot in dir, in file name
// order.
func LoadRulesDir(dir string) ([]*domain.TaxYearRules, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		m, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, m...)
	}
	sort.Strings(files)
	out := make([]*domain.TaxYearRules, 0, len(files))
	for _, f := range files {
		r, err := LoadRules(f)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// PublishDir loads the snapshots in dir into book. Snapshots are published
// in ascending revision order so a directory may carry several revisions of
// the same year.
func PublishDir(book *tax.RulesBook, dir string) (int, error) {
	snapshots, err := LoadRulesDir(dir)
	if err != nil {
		return 0, err
	}
	sort.SliceStable(snapshots, func(i, j int) bool { return snapshots[i].Revision < snapshots[j].Revision })
	for _, r := range snapshots {
		if err := book.Publish(r); err != nil {
			return 0, fmt.Errorf("publish %s: %w", r.Version(), err)
		}
	}
	return len(snapshots), nil
}

// SaveRules writes a snapshot as YAML, the format LoadRules reads.
func SaveRules(filename string, r *domain.TaxYearRules) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}
	return os.WriteFile(filename, data, 0o644)
}
