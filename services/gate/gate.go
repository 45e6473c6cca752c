// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gate

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Check category names as they appear in CheckFailure.Check.
const (
	CheckSchema    = "schema"
	CheckNullRatio = "null_ratio"
	CheckVolume    = "volume"
	CheckNumeric   = "numeric"
	CheckFreshness = "freshness"
)

// Evaluate runs every check category against the batch and aggregates the
// outcome into one Verdict.
//
// Check order: schema, null-ratio, volume, numeric coercibility, freshness.
// A failure inside one category stops further work in that category (a
// second missing column does not produce a second schema failure), but all
// independent categories still run so the caller sees every problem at
// once. Freshness never fails the gate; it only warns.
//
// Evaluate is pure over its inputs and safe for concurrent use.
func Evaluate(batch Batch, profile Profile) Verdict {
	profile = profile.withDefaults()
	var v Verdict

	if f := checkSchema(batch, profile); f != nil {
		v.Failures = append(v.Failures, *f)
	}
	if f := checkNullRatio(batch, profile); f != nil {
		v.Failures = append(v.Failures, *f)
	}
	if f := checkVolume(batch, profile); f != nil {
		v.Failures = append(v.Failures, *f)
	}
	if f := checkNumeric(batch, profile); f != nil {
		v.Failures = append(v.Failures, *f)
	}
	if w := checkFreshness(batch, profile); w != "" {
		v.Warnings = append(v.Warnings, w)
	}

	v.Passed = len(v.Failures) == 0
	if v.Passed {
		slog.Info("quality gate passed",
			"profile", profile.Name,
			"rows", len(batch.Records),
			"warnings", len(v.Warnings))
	} else {
		slog.Error("quality gate failed",
			"profile", profile.Name,
			"rows", len(batch.Records),
			"failures", len(v.Failures))
	}
	return v
}

func checkSchema(batch Batch, profile Profile) *CheckFailure {
	var missing []string
	for _, col := range profile.RequiredColumns {
		if !batch.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &CheckFailure{
		Check:  CheckSchema,
		Detail: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")),
	}
}

func checkNullRatio(batch Batch, profile Profile) *CheckFailure {
	if len(batch.Records) == 0 {
		return nil // the volume check owns the empty-batch case
	}
	for _, col := range profile.CriticalColumns {
		if !batch.HasColumn(col) {
			continue // the schema check owns missing columns
		}
		nulls := 0
		for _, rec := range batch.Records {
			if v, ok := rec[col]; !ok || v.IsNull() {
				nulls++
			}
		}
		ratio := float64(nulls) / float64(len(batch.Records))
		// Strict >: a column exactly at the threshold passes.
		if ratio > profile.NullRatioThreshold {
			return &CheckFailure{
				Check: CheckNullRatio,
				Detail: fmt.Sprintf("%s has %.2f%% null values (threshold: %.2f%%)",
					col, ratio*100, profile.NullRatioThreshold*100),
			}
		}
	}
	return nil
}

func checkVolume(batch Batch, profile Profile) *CheckFailure {
	if len(batch.Records) >= profile.MinRows {
		return nil
	}
	return &CheckFailure{
		Check: CheckVolume,
		Detail: fmt.Sprintf("insufficient data rows: %d (minimum: %d)",
			len(batch.Records), profile.MinRows),
	}
}

func checkNumeric(batch Batch, profile Profile) *CheckFailure {
	col := profile.NumericColumn
	if col == "" || !batch.HasColumn(col) {
		return nil
	}
	bad := 0
	for _, rec := range batch.Records {
		v, ok := rec[col]
		if !ok || v.IsNull() {
			continue
		}
		if _, ok := v.Float(); !ok {
			bad++
		}
	}
	if bad == 0 {
		return nil
	}
	// Non-coercible entries are failures, never silently dropped.
	return &CheckFailure{
		Check: CheckNumeric,
		Detail: fmt.Sprintf("%s has %d non-numeric entries out of %d rows",
			col, bad, len(batch.Records)),
	}
}

func checkFreshness(batch Batch, profile Profile) string {
	if batch.Newest.IsZero() {
		return "" // no time index, freshness does not apply
	}
	age := time.Since(batch.Newest)
	if age <= profile.MaxStaleness {
		return ""
	}
	w := fmt.Sprintf("newest record is %s old (staleness window: %s)",
		age.Truncate(time.Hour), profile.MaxStaleness)
	slog.Warn("stale batch", "profile", profile.Name, "age", age.Truncate(time.Hour))
	return w
}
