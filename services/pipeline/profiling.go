// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"fmt"
	"html/template"
	"math"
	"os"
	"time"

	"github.com/AleutianAI/driftgate/services/gate"
)

// ColumnSummary is the per-column block of a profile report.
type ColumnSummary struct {
	Name     string
	Numeric  bool
	Missing  int
	Distinct int

	// Populated for numeric columns only.
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// ProfileReport summarizes one batch for the HTML report written next to
// a pipeline run.
type ProfileReport struct {
	Title     string
	Generated time.Time
	Rows      int
	Columns   []ColumnSummary
}

// Summarize builds the profile of a batch.
func Summarize(batch gate.Batch, title string) ProfileReport {
	report := ProfileReport{
		Title:     title,
		Generated: time.Now(),
		Rows:      len(batch.Records),
	}
	for _, col := range batch.Columns {
		report.Columns = append(report.Columns, summarizeColumn(batch, col))
	}
	return report
}

func summarizeColumn(batch gate.Batch, col string) ColumnSummary {
	summary := ColumnSummary{Name: col}

	var nums []float64
	distinct := make(map[string]struct{})
	for _, rec := range batch.Records {
		v := rec[col]
		if v.IsNull() {
			summary.Missing++
			continue
		}
		switch v.Kind {
		case gate.KindNumber:
			nums = append(nums, v.Number)
			distinct[fmt.Sprintf("%g", v.Number)] = struct{}{}
		case gate.KindText:
			distinct[v.Text] = struct{}{}
		}
	}
	summary.Distinct = len(distinct)

	present := len(batch.Records) - summary.Missing
	if present > 0 && len(nums) == present {
		summary.Numeric = true
		summary.Mean, summary.StdDev = meanStdDev(nums)
		summary.Min, summary.Max = nums[0], nums[0]
		for _, f := range nums {
			summary.Min = math.Min(summary.Min, f)
			summary.Max = math.Max(summary.Max, f)
		}
	}
	return summary
}

func meanStdDev(values []float64) (mean, stddev float64) {
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(values)))
}

var profileTemplate = template.Must(template.New("profile").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: right; }
th { background: #eee; }
td:first-child { text-align: left; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>Generated {{.Generated.Format "2006-01-02 15:04:05 MST"}}</p>
<p>{{.Rows}} rows, {{len .Columns}} columns</p>
<table>
<tr><th>Column</th><th>Missing</th><th>Distinct</th><th>Mean</th><th>Std</th><th>Min</th><th>Max</th></tr>
{{range .Columns}}<tr>
<td>{{.Name}}</td><td>{{.Missing}}</td><td>{{.Distinct}}</td>
{{if .Numeric}}<td>{{printf "%.4f" .Mean}}</td><td>{{printf "%.4f" .StdDev}}</td><td>{{printf "%.4f" .Min}}</td><td>{{printf "%.4f" .Max}}</td>
{{else}}<td>-</td><td>-</td><td>-</td><td>-</td>
{{end}}</tr>
{{end}}</table>
</body>
</html>
`))

// WriteProfile renders the batch summary as an HTML file.
func WriteProfile(batch gate.Batch, title, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pipeline: create profile report: %w", err)
	}
	defer f.Close()

	if err := profileTemplate.Execute(f, Summarize(batch, title)); err != nil {
		return fmt.Errorf("pipeline: render profile report: %w", err)
	}
	return nil
}
