// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pipeline implements the batch path from raw extraction to a
// registered Staging model: ingest, quality-gate, transform, profile,
// store and train.
package pipeline

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/driftgate/services/gate"
)

// InsuranceColumns is the raw production schema, in file order.
var InsuranceColumns = []string{
	"id", "Gender", "Age", "HasDrivingLicense", "RegionID", "Switch",
	"VehicleAge", "PastAccident", "AnnualPremium", "SalesChannelID",
	"DaysSinceCreated", "Result",
}

// GeneratorConfig tunes the synthetic extractor.
type GeneratorConfig struct {
	Rows int

	// MissingRatio is the probability that a nullable cell is emitted as
	// a null, mimicking the gaps the production feed shows.
	MissingRatio float64

	Seed int64
}

func (c GeneratorConfig) withDefaults() GeneratorConfig {
	if c.Rows <= 0 {
		c.Rows = 500
	}
	if c.MissingRatio < 0 || c.MissingRatio >= 1 {
		c.MissingRatio = 0.005
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}

// Generator produces synthetic insurance batches shaped like the
// production feed, including the currency-formatted premium column and
// the occasional missing cell.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// NewGenerator returns a generator; zero-value config fields take the
// defaults.
func NewGenerator(cfg GeneratorConfig) *Generator {
	cfg = cfg.withDefaults()
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// Batch emits one synthetic extraction batch stamped with the current
// time.
func (g *Generator) Batch() gate.Batch {
	records := make([]gate.Record, 0, g.cfg.Rows)
	for i := 0; i < g.cfg.Rows; i++ {
		records = append(records, g.record(i+1))
	}
	return gate.Batch{
		Columns: append([]string(nil), InsuranceColumns...),
		Records: records,
		Newest:  time.Now(),
	}
}

func (g *Generator) record(id int) gate.Record {
	rec := gate.Record{
		"id":                gate.Number(float64(id)),
		"Gender":            g.maybeNull(gate.Text(pick(g.rng, "Male", "Female"))),
		"Age":               g.maybeNull(gate.Number(float64(18 + g.rng.Intn(68)))),
		"HasDrivingLicense": g.maybeNull(gate.Number(1)),
		"RegionID":          g.maybeNull(gate.Number(float64(1 + g.rng.Intn(52)))),
		"Switch":            g.maybeNull(gate.Number(float64(g.rng.Intn(2)))),
		"VehicleAge":        gate.Text(pick(g.rng, "< 1 Year", "1-2 Year", "> 2 Years")),
		"PastAccident":      g.maybeNull(gate.Text(pick(g.rng, "Yes", "No"))),
		"AnnualPremium":     gate.Text(formatPremium(500 + g.rng.Float64()*4000)),
		"SalesChannelID":    gate.Number(float64(1 + g.rng.Intn(160))),
		"DaysSinceCreated":  gate.Number(float64(g.rng.Intn(300))),
		"Result":            gate.Number(float64(g.rng.Intn(2))),
	}
	return rec
}

func (g *Generator) maybeNull(v gate.Value) gate.Value {
	if g.rng.Float64() < g.cfg.MissingRatio {
		return gate.Null()
	}
	return v
}

func pick(rng *rand.Rand, options ...string) string {
	return options[rng.Intn(len(options))]
}

// formatPremium renders the premium exactly as the upstream feed does:
// pound sign, thousands separators, two decimals, trailing space.
func formatPremium(v float64) string {
	whole := int(v)
	frac := int((v-float64(whole))*100 + 0.5)
	if frac == 100 {
		whole++
		frac = 0
	}
	return fmt.Sprintf("£%s.%02d ", thousands(whole), frac)
}

func thousands(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// LoadCSV reads an extraction file into a batch. Empty cells become
// nulls; cells that parse as numbers become numeric values. When
// sampleN is positive and smaller than the row count, a seeded uniform
// sample of that size is returned instead of the full file.
func LoadCSV(path string, sampleN int, seed int64) (gate.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return gate.Batch{}, fmt.Errorf("pipeline: open extraction file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return gate.Batch{}, fmt.Errorf("pipeline: parse %q: %w", path, err)
	}
	if len(rows) == 0 {
		return gate.Batch{}, fmt.Errorf("pipeline: %q has no header row", path)
	}

	columns := rows[0]
	records := make([]gate.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(gate.Record, len(columns))
		for i, col := range columns {
			if i >= len(row) {
				rec[col] = gate.Null()
				continue
			}
			rec[col] = parseCell(row[i])
		}
		records = append(records, rec)
	}

	if sampleN > 0 && sampleN < len(records) {
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(len(records), func(i, j int) {
			records[i], records[j] = records[j], records[i]
		})
		records = records[:sampleN]
	}

	return gate.Batch{Columns: columns, Records: records, Newest: time.Now()}, nil
}

func parseCell(s string) gate.Value {
	if strings.TrimSpace(s) == "" {
		return gate.Null()
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return gate.Number(n)
	}
	return gate.Text(s)
}

// MarshalCSV serializes a batch back to CSV, the format the processed
// object store expects. Nulls are written as empty cells.
func MarshalCSV(batch gate.Batch) ([]byte, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)

	if err := w.Write(batch.Columns); err != nil {
		return nil, fmt.Errorf("pipeline: write csv header: %w", err)
	}
	row := make([]string, len(batch.Columns))
	for _, rec := range batch.Records {
		for i, col := range batch.Columns {
			row[i] = renderCell(rec[col])
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("pipeline: write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("pipeline: flush csv: %w", err)
	}
	return []byte(b.String()), nil
}

func renderCell(v gate.Value) string {
	switch v.Kind {
	case gate.KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case gate.KindText:
		return v.Text
	default:
		return ""
	}
}
