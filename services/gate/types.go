// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gate implements the data quality gate that every incoming batch
// must pass before it may reach training.
//
// The gate is a hard gate: callers halt the pipeline on any failure. All
// independent check categories run and their failures aggregate into a
// single Verdict, so a caller sees every problem at once rather than
// fixing them one re-run at a time.
package gate

import (
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// Values and Records
// =============================================================================

// Kind discriminates the typed cell values a record may hold.
type Kind int

const (
	// KindNull is the typed missing-value marker.
	KindNull Kind = iota

	// KindText is a string cell.
	KindText

	// KindNumber is a float64 cell.
	KindNumber
)

// Value is one typed cell of a record.
type Value struct {
	Kind   Kind
	Text   string
	Number float64
}

// Null returns the missing-value marker.
func Null() Value { return Value{Kind: KindNull} }

// Text returns a string cell.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// Number returns a numeric cell.
func Number(f float64) Value { return Value{Kind: KindNumber, Number: f} }

// IsNull reports whether the cell counts as missing. The typed null marker
// is always missing; an empty string is missing too, because upstream CSV
// sources encode absent text fields as "".
func (v Value) IsNull() bool {
	return v.Kind == KindNull || (v.Kind == KindText && v.Text == "")
}

// Float coerces the cell to a number. Numeric cells convert directly; text
// cells are parsed after trimming whitespace. The second return is false
// when the cell is null or not coercible.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Number, true
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Record is one row, mapping column name to its typed value.
type Record map[string]Value

// Batch is an ordered sequence of records sharing one column set.
//
// Parsing and format detection are the ingestion collaborator's job; the
// gate only sees typed records.
type Batch struct {
	// Columns is the declared column set, in source order.
	Columns []string

	// Records are the rows of the batch.
	Records []Record

	// Newest is the timestamp of the most recent record, when the source
	// carries a time index. Zero means no timestamp exists and the
	// freshness check does not apply.
	Newest time.Time
}

// HasColumn reports whether the batch declares the given column.
func (b Batch) HasColumn(name string) bool {
	for _, c := range b.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// =============================================================================
// Verdict
// =============================================================================

// CheckFailure names one failed check with a human-readable detail.
type CheckFailure struct {
	Check  string `json:"check"`
	Detail string `json:"detail"`
}

// Verdict is the gate's decision for one batch. Produced fresh per batch
// and never mutated after construction.
type Verdict struct {
	Passed   bool           `json:"passed"`
	Failures []CheckFailure `json:"failures,omitempty"`

	// Warnings carry advisory findings (stale data) that do not fail the
	// gate.
	Warnings []string `json:"warnings,omitempty"`
}

// Err converts a failed verdict into a *QualityError carrying every failing
// check. Returns nil when the gate passed.
func (v Verdict) Err() error {
	if v.Passed {
		return nil
	}
	return &QualityError{Failures: v.Failures}
}
