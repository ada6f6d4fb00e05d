package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/rpgo/wealth-simulator/internal/tax"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRulesRoundTrip(t *testing.T) {
	for _, r := range tax.BuiltinRules() {
		t.Run(r.Version(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rules.yaml")
			require.NoError(t, SaveRules(path, r))
			loaded, err := LoadRules(path)
			require.NoError(t, err)
			assert.Equal(t, r.Version(), loaded.Version())
			require.Len(t, loaded.IncomeBrackets, len(r.IncomeBrackets))
			for i := range r.IncomeBrackets {
				assert.True(t, r.IncomeBrackets[i].From.Equal(loaded.IncomeBrackets[i].From))
				assert.True(t, r.IncomeBrackets[i].Rate.Equal(loaded.IncomeBrackets[i].Rate))
			}
		})
	}
}

func TestLoadRulesRejectsInvalidSnapshot(t *testing.T) {
	path := writeFile(t, "broken.yaml", "jurisdiction: AU\nyear: 2024\nrevision: 1\ncurrency: AUD\n")
	_, err := LoadRules(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput), "got %v", err)
}

func TestPublishDir(t *testing.T) {
	dir := t.TempDir()
	r2 := tax.AU2024()
	r2.Revision = 2
	r2.AU.MedicareLevyRate = decimal.RequireFromString("0.025")
	r3 := tax.AU2024()
	r3.Revision = 3
	require.NoError(t, SaveRules(filepath.Join(dir, "a-au-2024-r3.yaml"), r3))
	require.NoError(t, SaveRules(filepath.Join(dir, "b-au-2024-r2.yml"), r2))

	book := tax.DefaultRulesBook()
	n, err := PublishDir(book, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	current, err := book.Lookup(domain.Australia, 2024)
	require.NoError(t, err)
	assert.Equal(t, "AU-2024-r3", current.Version())
}

func TestPublishDirEmpty(t *testing.T) {
	n, err := PublishDir(tax.DefaultRulesBook(), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, n)
}
