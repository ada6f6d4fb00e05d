package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rpgo/wealth-simulator/internal/domain"
)

// ErrUnsupportedFormat is returned for unknown format names.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// Report is what formatters render: deterministic projections, Monte Carlo
// runs, or both. Scenarios and MonteCarlo are matched by scenario ID.
type Report struct {
	Scenarios  []*domain.ScenarioResult   `json:"scenarios,omitempty"`
	MonteCarlo []*domain.MonteCarloResult `json:"monte_carlo,omitempty"`
	// Assumptions are rendered by the detailed formatters.
	Assumptions []string `json:"assumptions,omitempty"`
}

// SimulationFor returns the Monte Carlo result for a scenario, if any.
func (r *Report) SimulationFor(scenarioID string) *domain.MonteCarloResult {
	for _, mc := range r.MonteCarlo {
		if mc.ScenarioID == scenarioID {
			return mc
		}
	}
	return nil
}

// extensions maps formatter names to file extensions.
var extensions = map[string]string{
	"console":        "txt",
	"console-lite":   "txt",
	"csv":            "csv",
	"detailed-csv":   "csv",
	"montecarlo-csv": "csv",
	"html":           "html",
	"json":           "json",
}

// GenerateReport renders report in the named format and writes it to a
// timestamped file in dir. It returns the file written.
func GenerateReport(report *Report, format, dir string) (string, error) {
	f, err := FormatterFor(format)
	if err != nil {
		return "", err
	}
	return WriteFormatted(f, report, dir, extensions[f.Name()])
}

// FormatterFor is GetFormatterByName with an error listing the known
// formats when name is not one of them.
func FormatterFor(name string) (Formatter, error) {
	if f := GetFormatterByName(name); f != nil {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %q. Try one of: %s (aliases: %s)", ErrUnsupportedFormat, name,
		strings.Join(AvailableFormatterNames(), ", "), strings.Join(AvailableFormatAliases(), ", "))
}

// WriteFormatted runs a formatter and writes output to a timestamped file
// with extension ext in dir.
func WriteFormatted(f Formatter, report *Report, dir, ext string) (string, error) {
	data, err := f.Format(report)
	if err != nil {
		return "", err
	}
	if ext == "" {
		ext = "txt"
	}
	filename := filepath.Join(dir, fmt.Sprintf("wealthsim_report_%s.%s", time.Now().Format("20060102_150405"), ext))
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return "", err
	}
	return filename, nil
}
