package calculation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rpgo/wealth-simulator/internal/domain"
	"github.com/shopspring/decimal"
)

// HistoricalReturn is one calendar year's return for an asset class.
type HistoricalReturn struct {
	Year   int             `json:"year"`
	Return decimal.Decimal `json:"return"`
}

// HistoricalStatistics summarizes a return series.
type HistoricalStatistics struct {
	Mean         decimal.Decimal `json:"mean"`
	Median       decimal.Decimal `json:"median"`
	StdDev       decimal.Decimal `json:"std_dev"`
	Min          decimal.Decimal `json:"min"`
	Max          decimal.Decimal `json:"max"`
	Count        int             `json:"count"`
	MissingYears []int           `json:"missing_years,omitempty"`
}

// ReturnSeries is the annual return history of one asset class.
type ReturnSeries struct {
	Class      domain.AssetClass    `json:"class"`
	Returns    []HistoricalReturn   `json:"returns"`
	MinYear    int                  `json:"min_year"`
	MaxYear    int                  `json:"max_year"`
	Statistics HistoricalStatistics `json:"statistics"`
}

// ReturnHistory holds annual return series per asset class, used to
// parameterize Monte Carlo return models.
type ReturnHistory struct {
	Source string                              `json:"source"`
	Series map[domain.AssetClass]*ReturnSeries `json:"series"`
}

// LoadReturnHistory reads a CSV file of annual returns.
func LoadReturnHistory(path string) (*ReturnHistory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open return history: %w", err)
	}
	defer f.Close()
	return ReadReturnHistory(f, path)
}

// ReadReturnHistory parses annual returns in CSV form. The header is "year"
// followed by one column per asset class, e.g.
//
//	year,equity,bonds
//	2019,0.284,0.087
//	2020,0.184,
//
// Returns are fractions. An empty cell marks a year missing for that class.
func ReadReturnHistory(r io.Reader, source string) (*ReturnHistory, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", source, err)
	}
	if len(header) < 2 || !strings.EqualFold(strings.TrimSpace(header[0]), "year") {
		return nil, fmt.Errorf("%s: header must be \"year\" followed by asset classes", source)
	}
	classes := make([]domain.AssetClass, len(header)-1)
	seen := make(map[domain.AssetClass]bool)
	for i, name := range header[1:] {
		c := domain.AssetClass(strings.ToLower(strings.TrimSpace(name)))
		if !c.Valid() {
			return nil, fmt.Errorf("%s: unknown asset class %q", source, name)
		}
		if seen[c] {
			return nil, fmt.Errorf("%s: asset class %q repeated", source, c)
		}
		seen[c] = true
		classes[i] = c
	}

	h := &ReturnHistory{Source: source, Series: make(map[domain.AssetClass]*ReturnSeries, len(classes))}
	for _, c := range classes {
		h.Series[c] = &ReturnSeries{Class: c}
	}
	years := make(map[int]bool)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		year, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid year %q", source, line, record[0])
		}
		if years[year] {
			return nil, fmt.Errorf("%s:%d: year %d repeated", source, line, year)
		}
		years[year] = true
		for i, cell := range record[1:] {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			v, err := decimal.NewFromString(cell)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: invalid %s return %q", source, line, classes[i], cell)
			}
			if v.LessThanOrEqual(totalLoss) {
				return nil, fmt.Errorf("%s:%d: %s return %s loses more than everything", source, line, classes[i], v)
			}
			s := h.Series[classes[i]]
			s.Returns = append(s.Returns, HistoricalReturn{Year: year, Return: v})
		}
	}

	for _, s := range h.Series {
		if len(s.Returns) == 0 {
			return nil, fmt.Errorf("%s: no returns for %s", source, s.Class)
		}
		sort.Slice(s.Returns, func(i, j int) bool { return s.Returns[i].Year < s.Returns[j].Year })
		s.MinYear = s.Returns[0].Year
		s.MaxYear = s.Returns[len(s.Returns)-1].Year
		s.Statistics = calculateStatistics(s.Returns)
	}
	return h, nil
}

var totalLoss = decimal.NewFromInt(-1)

// calculateStatistics summarizes returns sorted by year. StdDev is the
// sample standard deviation.
func calculateStatistics(returns []HistoricalReturn) HistoricalStatistics {
	n := len(returns)
	values := make([]decimal.Decimal, n)
	sum := decimal.Zero
	for i, r := range returns {
		values[i] = r.Return
		sum = sum.Add(r.Return)
	}
	count := decimal.NewFromInt(int64(n))
	mean := sum.DivRound(count, rateScale)

	sort.Slice(values, func(i, j int) bool { return values[i].LessThan(values[j]) })
	median := values[n/2]
	if n%2 == 0 {
		median = values[n/2-1].Add(values[n/2]).DivRound(decimal.NewFromInt(2), rateScale)
	}

	stdDev := decimal.Zero
	if n > 1 {
		squares := decimal.Zero
		for _, v := range values {
			diff := v.Sub(mean)
			squares = squares.Add(diff.Mul(diff))
		}
		variance, _ := squares.Div(decimal.NewFromInt(int64(n - 1))).Float64()
		stdDev = decimal.NewFromFloat(math.Sqrt(variance)).Round(rateScale)
	}

	var missing []int
	for y, i := returns[0].Year, 0; y <= returns[n-1].Year; y++ {
		if returns[i].Year == y {
			i++
			continue
		}
		missing = append(missing, y)
	}

	return HistoricalStatistics{
		Mean:         mean,
		Median:       median,
		StdDev:       stdDev,
		Min:          values[0],
		Max:          values[n-1],
		Count:        n,
		MissingYears: missing,
	}
}

// Models turns each series with at least two years into a return model
// whose mean and volatility are the historical mean and sample standard
// deviation. The mean replaces component expected returns for that class.
func (h *ReturnHistory) Models() map[domain.AssetClass]domain.ReturnModel {
	models := make(map[domain.AssetClass]domain.ReturnModel, len(h.Series))
	for c, s := range h.Series {
		if s.Statistics.Count < 2 {
			continue
		}
		mean := s.Statistics.Mean
		models[c] = domain.ReturnModel{Mean: &mean, Volatility: s.Statistics.StdDev}
	}
	return models
}

// Warnings lists data quality problems worth showing before a run.
func (h *ReturnHistory) Warnings() []string {
	classes := make([]string, 0, len(h.Series))
	for c := range h.Series {
		classes = append(classes, string(c))
	}
	sort.Strings(classes)

	var out []string
	for _, c := range classes {
		s := h.Series[domain.AssetClass(c)]
		if s.Statistics.Count < 2 {
			out = append(out, fmt.Sprintf("%s: only %d year of returns, class left at default volatility", c, s.Statistics.Count))
		} else if s.Statistics.Count < 10 {
			out = append(out, fmt.Sprintf("%s: only %d years of returns", c, s.Statistics.Count))
		}
		if len(s.Statistics.MissingYears) > 0 {
			out = append(out, fmt.Sprintf("%s: missing years %v", c, s.Statistics.MissingYears))
		}
	}
	return out
}
