package output

import (
	"bytes"
	"html/template"

	json "github.com/goccy/go-json"
	"github.com/rpgo/wealth-simulator/internal/domain"
)

// HTMLFormatter produces a self-contained HTML report.
type HTMLFormatter struct{}

func (h HTMLFormatter) Name() string { return "html" }

const htmlTemplateSource = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Wealth Scenario Report</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 1.5em; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: right; }
th:first-child, td:first-child { text-align: left; }
</style>
</head>
<body>
<h1>Wealth Scenario Report</h1>
<h2>Key Assumptions</h2>
<ul>{{range .Assumptions}}<li>{{.}}</li>{{end}}</ul>
<h2>Scenario Summary</h2>
<table>
<tr><th>Scenario</th><th>Rules</th><th>Final Net Worth</th><th>Peak Net Worth</th><th>Total Tax</th><th>Effective Rate</th><th>Goal</th><th>Success Rate</th></tr>
{{range .Rows}}<tr><td>{{.Name}}</td><td>{{.Result.RulesVersion}}</td><td>{{curr .Result.Summary.FinalNetWorth}}</td><td>{{curr .Result.Summary.PeakNetWorth}}</td><td>{{curr .Result.Summary.TotalTax}}</td><td>{{pct .Result.Summary.EffectiveTaxRate}}</td><td>{{goal .Result.Summary}}</td><td>{{if .Simulation}}{{pct .Simulation.SuccessProbability}}{{else}}n/a{{end}}</td></tr>
{{end}}</table>
{{range .Recommendations}}<p><strong>Recommended ({{.Currency}}):</strong> {{.Name}}, lead {{curr .Lead}}</p>
{{end}}
{{range .Rows}}{{if .Simulation}}<h2>{{.Name}}: Monte Carlo bands</h2>
<table>
<tr><th>Year</th><th>P10</th><th>P25</th><th>P50</th><th>P75</th><th>P90</th></tr>
{{range .Simulation.Years}}<tr><td>{{.Year}}</td><td>{{curr .P10}}</td><td>{{curr .P25}}</td><td>{{curr .P50}}</td><td>{{curr .P75}}</td><td>{{curr .P90}}</td></tr>
{{end}}</table>
{{end}}{{end}}
<script>const report = {{json .Report}};</script>
</body>
</html>
`

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"curr": FormatCurrency,
	"pct":  FormatPercentage,
	"goal": goalText,
	"json": func(v any) (template.JS, error) {
		b, err := json.Marshal(v)
		return template.JS(b), err
	},
}).Parse(htmlTemplateSource))

type htmlRow struct {
	Name       string
	Result     *domain.ScenarioResult
	Simulation *domain.MonteCarloResult
}

func (h HTMLFormatter) Format(report *Report) ([]byte, error) {
	assumptions := report.Assumptions
	if len(assumptions) == 0 {
		assumptions = DefaultAssumptions
	}
	var rows []htmlRow
	for _, sc := range sortedScenarios(report) {
		rows = append(rows, htmlRow{Name: displayName(sc), Result: sc, Simulation: report.SimulationFor(sc.ScenarioID)})
	}
	data := struct {
		Report          *Report
		Rows            []htmlRow
		Assumptions     []string
		Recommendations []Recommendation
	}{report, rows, assumptions, AnalyzeScenarios(report)}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
