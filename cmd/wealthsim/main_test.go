package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cleanEnv(t *testing.T) {
	t.Helper()
	t.Setenv("WEALTHSIM_REDIS_ADDR", "")
	t.Setenv("WEALTHSIM_RULES_DIR", "")
	t.Setenv("WEALTHSIM_OTEL_ENDPOINT", "")
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cleanEnv(t)
	var stdout, stderr bytes.Buffer
	err := execute(context.Background(), &app{}, args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func exampleFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	out, _, err := run(t, "example", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)
	return path
}

func TestExamplePrintsYAML(t *testing.T) {
	out, _, err := run(t, "example")
	require.NoError(t, err)
	assert.Contains(t, out, "scenarios:")
	assert.Contains(t, out, "au-rent-and-invest")
}

func TestProjectJSON(t *testing.T) {
	path := exampleFile(t)
	out, _, err := run(t, "project", path, "--format", "json", "--scenario", "au-rent-and-invest")
	require.NoError(t, err)

	var got struct {
		Scenarios []domain.ScenarioResult `json:"scenarios"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Scenarios, 1)
	assert.Equal(t, "au-rent-and-invest", got.Scenarios[0].ScenarioID)
	assert.Equal(t, "AU-2024-r1", got.Scenarios[0].RulesVersion)
	assert.False(t, got.Scenarios[0].Provisional)
}

func TestProjectConsoleCoversEveryScenario(t *testing.T) {
	path := exampleFile(t)
	out, _, err := run(t, "project", path)
	require.NoError(t, err)
	for _, id := range []string{"au-rent-and-invest", "au-investment-property", "us-retirement-accounts", "uk-isa-and-pension"} {
		assert.Contains(t, out, id)
	}
}

func TestProjectWritesReportFile(t *testing.T) {
	path := exampleFile(t)
	dir := t.TempDir()
	out, _, err := run(t, "project", path, "--format", "csv", "--output", dir)
	require.NoError(t, err)

	written := strings.TrimSpace(out)
	assert.Equal(t, dir, filepath.Dir(written))
	assert.Equal(t, ".csv", filepath.Ext(written))
	_, err = os.Stat(written)
	assert.NoError(t, err)
}

func TestProjectRejectsUnknownScenario(t *testing.T) {
	path := exampleFile(t)
	_, _, err := run(t, "project", path, "--scenario", "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProjectRejectsUnknownFormat(t *testing.T) {
	path := exampleFile(t)
	_, _, err := run(t, "project", path, "--format", "pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Try one of:")
}

func TestMonteCarloSeededIsReproducible(t *testing.T) {
	path := exampleFile(t)
	args := []string{"montecarlo", path, "-n", "40", "--seed", "9", "--scenario", "au-rent-and-invest", "--format", "montecarlo-csv"}

	first, stderr, err := run(t, args...)
	require.NoError(t, err)
	assert.Contains(t, stderr, "deterministic estimate")
	assert.Contains(t, stderr, "100% (40/40)")

	second, _, err := run(t, append(args, "--quiet")...)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	rows, err := csv.NewReader(strings.NewReader(first)).ReadAll()
	require.NoError(t, err)
	last := rows[len(rows)-1]
	assert.Equal(t, "final", last[1])
	assert.Equal(t, "40", last[12])
	assert.Equal(t, "9", last[14])
}

func TestRulesList(t *testing.T) {
	out, _, err := run(t, "rules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "VERSION")
	assert.Contains(t, out, "AU-2024-r1")
	assert.Contains(t, out, "US-")
	assert.Contains(t, out, "UK-")
}

func TestRulesShow(t *testing.T) {
	out, _, err := run(t, "rules", "show", "au", "2024", "--format", "json")
	require.NoError(t, err)
	var r domain.TaxYearRules
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, domain.Australia, r.Jurisdiction)
	assert.Equal(t, 2024, r.Year)

	_, _, err = run(t, "rules", "show", "au", "1999")
	assert.ErrorIs(t, err, domain.ErrRulesNotFound)

	_, _, err = run(t, "rules", "show", "fr", "2024")
	assert.Error(t, err)
}

func TestRulesDirOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	out, _, err := run(t, "rules", "show", "au", "2024")
	require.NoError(t, err)
	corrected := strings.Replace(out, "revision: 1", "revision: 2", 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "au-2024-r2.yaml"), []byte(corrected), 0o644))

	out, _, err = run(t, "--rules-dir", dir, "rules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "AU-2024-r2")
	assert.NotContains(t, out, "AU-2024-r1")
}

func TestMonteCarloWithReturnHistory(t *testing.T) {
	path := exampleFile(t)
	history := filepath.Join(t.TempDir(), "returns.csv")
	require.NoError(t, os.WriteFile(history, []byte("year,equity\n2019,0.28\n2020,0.16\n2021,0.27\n2022,-0.18\n"), 0o644))

	out, stderr, err := run(t, "montecarlo", path, "-n", "20", "--seed", "1", "-q", "--scenario", "au-rent-and-invest", "--history", history)
	require.NoError(t, err)
	assert.Contains(t, out, "Return means and volatilities taken from "+history)
	assert.Contains(t, stderr, "equity: only 4 years of returns")
}

func TestCleanupRunsWhenCommandFails(t *testing.T) {
	badRules := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(badRules, "broken.yaml"), []byte("revision: ["), 0o644))

	tests := []struct {
		name string
		args []string
	}{
		{"command fails", []string{"project", filepath.Join(t.TempDir(), "missing.yaml")}},
		{"setup fails", []string{"--rules-dir", badRules, "rules", "list"}},
		{"unknown command", []string{"frobnicate"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanEnv(t)
			closed := 0
			a := &app{cleanup: []func(context.Context) error{
				func(context.Context) error { closed++; return nil },
			}}
			err := execute(context.Background(), a, tt.args, io.Discard, io.Discard)
			require.Error(t, err)
			assert.Equal(t, 1, closed)
			assert.Nil(t, a.cleanup)
		})
	}
}

func TestCleanupErrorIsReported(t *testing.T) {
	cleanEnv(t)
	a := &app{cleanup: []func(context.Context) error{
		func(context.Context) error { return errors.New("flush failed") },
	}}
	err := execute(context.Background(), a, []string{"example"}, io.Discard, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush failed")
}
