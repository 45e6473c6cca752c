// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gate

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default thresholds applied when a profile leaves a field zero. These are
// explicit configuration, not silently-read environment variables: new
// domains declare their own profile rather than inheriting hardcoded
// constants.
const (
	// DefaultNullRatioThreshold is the maximum tolerated null ratio in a
	// critical column (1%). Compared with strict >, so exactly-at-threshold
	// passes.
	DefaultNullRatioThreshold = 0.01

	// DefaultMinRows is the minimum batch volume.
	DefaultMinRows = 50

	// DefaultMaxStaleness is the freshness window for time-indexed data.
	DefaultMaxStaleness = 7 * 24 * time.Hour
)

// Profile declares, per dataset type, what the quality gate enforces.
type Profile struct {
	// Name identifies the dataset type ("insurance", "stock", ...).
	Name string `yaml:"name"`

	// RequiredColumns must all be present in the batch.
	RequiredColumns []string `yaml:"required_columns"`

	// CriticalColumns are the (possibly smaller) subset subject to
	// null-ratio enforcement.
	CriticalColumns []string `yaml:"critical_columns"`

	// NumericColumn is the representative column that must coerce to a
	// number for every non-null entry.
	NumericColumn string `yaml:"numeric_column"`

	// NullRatioThreshold overrides DefaultNullRatioThreshold when > 0.
	NullRatioThreshold float64 `yaml:"null_ratio_threshold"`

	// MinRows overrides DefaultMinRows when > 0.
	MinRows int `yaml:"min_rows"`

	// MaxStaleness overrides DefaultMaxStaleness when > 0.
	MaxStaleness time.Duration `yaml:"max_staleness"`
}

func (p Profile) withDefaults() Profile {
	if p.NullRatioThreshold <= 0 {
		p.NullRatioThreshold = DefaultNullRatioThreshold
	}
	if p.MinRows <= 0 {
		p.MinRows = DefaultMinRows
	}
	if p.MaxStaleness <= 0 {
		p.MaxStaleness = DefaultMaxStaleness
	}
	return p
}

// InsuranceProfile is the built-in profile for insurance policy batches.
// Only AnnualPremium is strictly critical; Age, Gender and RegionID may
// carry missing values which the transformation stage imputes. RegionID is
// the numeric representative because AnnualPremium arrives
// currency-formatted.
func InsuranceProfile() Profile {
	return Profile{
		Name: "insurance",
		RequiredColumns: []string{
			"AnnualPremium", "Age", "RegionID", "Gender",
			"PastAccident", "HasDrivingLicense",
		},
		CriticalColumns: []string{"AnnualPremium"},
		NumericColumn:   "RegionID",
	}
}

// StockProfile is the built-in profile for OHLCV market batches. Every
// price column is critical; close is the numeric representative.
func StockProfile() Profile {
	return Profile{
		Name:            "stock",
		RequiredColumns: []string{"open", "high", "low", "close", "volume"},
		CriticalColumns: []string{"open", "high", "low", "close", "volume"},
		NumericColumn:   "close",
	}
}

// DetectProfile picks the profile matching a batch's column set.
//
// Stock batches are recognized by the full OHLCV column set, insurance
// batches by AnnualPremium/Age/RegionID. Anything else gets a generic
// profile whose required and critical columns are the batch's numerically
// coercible columns (capped at four), mirroring how unknown sources were
// historically handled.
func DetectProfile(batch Batch) Profile {
	stock := StockProfile()
	if hasAll(batch, stock.RequiredColumns) {
		return stock
	}
	if hasAll(batch, []string{"AnnualPremium", "Age", "RegionID"}) {
		return InsuranceProfile()
	}
	return genericProfile(batch)
}

func hasAll(batch Batch, columns []string) bool {
	for _, c := range columns {
		if !batch.HasColumn(c) {
			return false
		}
	}
	return true
}

func genericProfile(batch Batch) Profile {
	var numeric []string
	for _, col := range batch.Columns {
		if columnIsNumeric(batch, col) {
			numeric = append(numeric, col)
		}
		if len(numeric) == 4 {
			break
		}
	}
	p := Profile{
		Name:            "generic",
		RequiredColumns: numeric,
		CriticalColumns: numeric,
	}
	if len(numeric) > 0 {
		p.NumericColumn = numeric[0]
	}
	return p
}

// columnIsNumeric reports whether every non-null value in the column
// coerces to a number. Vacuously false for a column with no non-null
// values.
func columnIsNumeric(batch Batch, col string) bool {
	seen := false
	for _, rec := range batch.Records {
		v, ok := rec[col]
		if !ok || v.IsNull() {
			continue
		}
		if _, ok := v.Float(); !ok {
			return false
		}
		seen = true
	}
	return seen
}

// LoadProfiles reads additional dataset profiles from a YAML file, so new
// domains tune their own thresholds instead of reusing the insurance
// defaults.
//
// The file is a list of Profile objects. Durations use Go syntax
// ("168h" for a week).
func LoadProfiles(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	var profiles []Profile
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parse profiles %s: %w", path, err)
	}
	return profiles, nil
}
