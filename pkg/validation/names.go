// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that are used in
// database queries, file paths, or subprocess calls. Using these validators
// prevents injection attacks (SQL injection, command injection, path traversal).
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// modelNamePattern matches valid registry model names.
// Allows: lowercase letters, digits, underscores, hyphens
// Max length: 64 characters
var modelNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_\-]{0,63}$`)

// featureNamePattern matches valid feature/column names.
// Allows: letters, digits, underscores; must start with a letter
// Max length: 64 characters
var featureNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,63}$`)

// ValidateModelName validates a registry model name before it reaches a
// SQL query or a file path.
//
// Valid names:
//   - 1-64 characters
//   - Lowercase letters a-z, starting with a letter
//   - Digits 0-9
//   - Underscores and hyphens
//
// Returns an error if the name is invalid.
//
// Example:
//
//	if err := validation.ValidateModelName(name); err != nil {
//	    return nil, fmt.Errorf("invalid model name: %w", err)
//	}
//	// Safe to use in registry queries and artifact paths
func ValidateModelName(name string) error {
	if name == "" {
		return fmt.Errorf("model name cannot be empty")
	}

	if !modelNamePattern.MatchString(name) {
		return fmt.Errorf("invalid model name: %q (must be 1-64 lowercase alphanumeric chars, underscores, or hyphens, starting with a letter)", name)
	}

	return nil
}

// ValidateFeatureName validates a feature/column name before it is used
// as a metric label or a statistics key.
func ValidateFeatureName(name string) error {
	if name == "" {
		return fmt.Errorf("feature name cannot be empty")
	}

	if !featureNamePattern.MatchString(name) {
		return fmt.Errorf("invalid feature name: %q (must be 1-64 alphanumeric chars or underscores, starting with a letter)", name)
	}

	return nil
}

// ValidateFeatureNames validates multiple feature names.
// Returns an error listing all invalid names if any fail validation.
func ValidateFeatureNames(names []string) error {
	var invalid []string
	for _, n := range names {
		if err := ValidateFeatureName(n); err != nil {
			invalid = append(invalid, n)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid feature names: %v", invalid)
	}
	return nil
}

// SanitizeModelName normalizes and validates a model name.
// Returns the lowercase name if valid, or an error if invalid.
//
// Use this when accepting names from CLI flags or request bodies:
//
//	safeName, err := validation.SanitizeModelName(userInput)
//	if err != nil {
//	    return err
//	}
//	// safeName is lowercase and validated
func SanitizeModelName(name string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if err := ValidateModelName(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
