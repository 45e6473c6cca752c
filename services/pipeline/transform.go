// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"sort"
	"strings"

	"github.com/AleutianAI/driftgate/services/gate"
)

// droppedColumns are identifiers and leakage-prone fields removed before
// training.
var droppedColumns = map[string]struct{}{
	"id":               {},
	"SalesChannelID":   {},
	"VehicleAge":       {},
	"DaysSinceCreated": {},
}

// Transform applies the cleaning the training stage expects:
//
//   - drop identifier and leakage columns
//   - strip currency formatting from AnnualPremium
//   - impute Gender and RegionID with the most frequent value, Age with
//     the median
//   - default HasDrivingLicense to 1, Switch to -1, PastAccident to
//     "Unknown" where missing
//   - drop rows whose AnnualPremium exceeds the IQR upper bound
//     (Q3 + 1.5·IQR)
//
// The input batch is not modified.
func Transform(batch gate.Batch) gate.Batch {
	out := gate.Batch{
		Columns: keptColumns(batch.Columns),
		Newest:  batch.Newest,
	}

	genderMode := mostFrequentText(batch, "Gender")
	regionMode := mostFrequentNumber(batch, "RegionID")
	ageMedian := columnMedian(batch, "Age")
	premiumCap := iqrUpperBound(premiums(batch))

	out.Records = make([]gate.Record, 0, len(batch.Records))
	for _, rec := range batch.Records {
		premium, ok := premiumValue(rec["AnnualPremium"])
		if ok && premiumCap > 0 && premium > premiumCap {
			continue
		}

		clean := make(gate.Record, len(out.Columns))
		for _, col := range out.Columns {
			clean[col] = cleanCell(col, rec[col], genderMode, regionMode, ageMedian)
		}
		if ok {
			clean["AnnualPremium"] = gate.Number(premium)
		}
		out.Records = append(out.Records, clean)
	}
	return out
}

func keptColumns(columns []string) []string {
	kept := make([]string, 0, len(columns))
	for _, c := range columns {
		if _, dropped := droppedColumns[c]; !dropped {
			kept = append(kept, c)
		}
	}
	return kept
}

func cleanCell(col string, v gate.Value, genderMode string, regionMode, ageMedian float64) gate.Value {
	if !v.IsNull() {
		return v
	}
	switch col {
	case "Gender":
		return gate.Text(genderMode)
	case "RegionID":
		return gate.Number(regionMode)
	case "Age":
		return gate.Number(ageMedian)
	case "HasDrivingLicense":
		return gate.Number(1)
	case "Switch":
		return gate.Number(-1)
	case "PastAccident":
		return gate.Text("Unknown")
	default:
		return v
	}
}

// premiumValue parses a premium cell whether it is already numeric or
// still carries the feed's "£1,234.56 " formatting.
func premiumValue(v gate.Value) (float64, bool) {
	if v.Kind == gate.KindText {
		s := strings.TrimSpace(v.Text)
		s = strings.TrimPrefix(s, "£")
		s = strings.ReplaceAll(s, ",", "")
		return gate.Text(s).Float()
	}
	return v.Float()
}

func premiums(batch gate.Batch) []float64 {
	vals := make([]float64, 0, len(batch.Records))
	for _, rec := range batch.Records {
		if f, ok := premiumValue(rec["AnnualPremium"]); ok {
			vals = append(vals, f)
		}
	}
	return vals
}

// iqrUpperBound returns Q3 + 1.5·IQR, or 0 when there are no values.
func iqrUpperBound(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	return q3 + 1.5*(q3-q1)
}

// quantile interpolates linearly over a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func mostFrequentText(batch gate.Batch, col string) string {
	counts := make(map[string]int)
	for _, rec := range batch.Records {
		v := rec[col]
		if v.Kind == gate.KindText && !v.IsNull() {
			counts[v.Text]++
		}
	}
	best, bestN := "", -1
	for s, n := range counts {
		if n > bestN || (n == bestN && s < best) {
			best, bestN = s, n
		}
	}
	return best
}

func mostFrequentNumber(batch gate.Batch, col string) float64 {
	counts := make(map[float64]int)
	for _, rec := range batch.Records {
		if f, ok := rec[col].Float(); ok && !rec[col].IsNull() {
			counts[f]++
		}
	}
	best, bestN := 0.0, -1
	for f, n := range counts {
		if n > bestN || (n == bestN && f < best) {
			best, bestN = f, n
		}
	}
	return best
}

func columnMedian(batch gate.Batch, col string) float64 {
	vals := make([]float64, 0, len(batch.Records))
	for _, rec := range batch.Records {
		if rec[col].IsNull() {
			continue
		}
		if f, ok := rec[col].Float(); ok {
			vals = append(vals, f)
		}
	}
	if len(vals) == 0 {
		return 0
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2
}
