// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/driftgate/cmd/driftgate/config"
	"github.com/AleutianAI/driftgate/services/promotion"
	"github.com/AleutianAI/driftgate/services/registry"
)

// openRegistry resolves the configured registry path and opens it.
func openRegistry() (*registry.SQLiteRegistry, error) {
	path := config.ExpandPath(config.Global.Registry.Path)
	reg, err := registry.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("opening model registry at %s: %w", path, err)
	}
	return reg, nil
}

func runModelsList(cmd *cobra.Command, args []string) error {
	name, err := resolveModelName(config.Global)
	if err != nil {
		return err
	}

	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	ctx := cmdContext(cmd)
	versions, err := reg.ListVersions(ctx, name)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Printf("No versions registered for %s\n", name)
		return nil
	}

	fmt.Printf("%-8s %-12s %-10s %-36s %s\n", "VERSION", "STAGE", "ACCURACY", "RUN", "CREATED")
	for _, mv := range versions {
		accuracy := "-"
		if metrics, err := reg.GetMetrics(ctx, name, mv.Version); err == nil {
			if v, ok := metrics["accuracy"]; ok {
				accuracy = fmt.Sprintf("%.4f", v)
			}
		}
		fmt.Printf("%-8d %-12s %-10s %-36s %s\n",
			mv.Version, mv.Stage, accuracy, mv.RunID,
			mv.Created.Format(time.RFC3339))
	}
	return nil
}

func runModelsCompare(cmd *cobra.Command, args []string) error {
	name, err := resolveModelName(config.Global)
	if err != nil {
		return err
	}

	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	engine := promotion.NewEngine(promotion.Config{})
	result, err := engine.CompareLatest(cmdContext(cmd), reg, name)
	if err != nil {
		return err
	}

	report := promotion.RenderMarkdown(result)
	path := outputPath
	if path == "" {
		dir := config.ExpandPath(config.Global.Pipeline.WorkDir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
		path = filepath.Join(dir, fmt.Sprintf("comparison_%s.md", time.Now().UTC().Format("20060102T150405")))
	}
	if err := os.WriteFile(path, []byte(report), 0644); err != nil {
		return fmt.Errorf("writing comparison report: %w", err)
	}

	logger.Info("comparison complete",
		"model", name,
		"baseline_version", result.Baseline.Version,
		"candidate_version", result.Candidate.Version,
		"verdict", result.Overall,
		"report", path)

	fmt.Printf("Compared %s v%d (candidate) against v%d (baseline): %s\n",
		name, result.Candidate.Version, result.Baseline.Version, result.Overall)
	fmt.Printf("Report written to %s\n", path)

	if result.Overall == promotion.OverallReject {
		return errors.New("candidate rejected: at least one metric degraded")
	}
	return nil
}

func runModelsPromote(cmd *cobra.Command, args []string) error {
	name, err := resolveModelName(config.Global)
	if err != nil {
		return err
	}

	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	stage, err := registry.ParseStage(stageName)
	if err != nil {
		return err
	}

	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	if err := reg.Promote(cmdContext(cmd), name, version, stage); err != nil {
		return err
	}

	logger.Info("model promoted", "model", name, "version", version, "stage", stage)
	fmt.Printf("Promoted %s v%d to %s\n", name, version, stage)
	return nil
}

func runModelsBest(cmd *cobra.Command, args []string) error {
	name, err := resolveModelName(config.Global)
	if err != nil {
		return err
	}

	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	ctx := cmdContext(cmd)
	mv, err := reg.LatestVersion(ctx, name, registry.StageProduction)
	if errors.Is(err, registry.ErrNotFound) {
		mv, err = reg.LatestVersion(ctx, name, registry.StageStaging)
		if errors.Is(err, registry.ErrNotFound) {
			return fmt.Errorf("no Production or Staging version exists for %s", name)
		}
		if err == nil {
			fmt.Println("Warning: no Production model exists; showing the newest Staging candidate")
		}
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s v%d (%s)\n", name, mv.Version, mv.Stage)
	fmt.Printf("  run:      %s\n", mv.RunID)
	fmt.Printf("  created:  %s\n", mv.Created.Format(time.RFC3339))
	if mv.Artifact != "" {
		fmt.Printf("  artifact: %s\n", mv.Artifact)
	}
	if metrics, err := reg.GetMetrics(ctx, name, mv.Version); err == nil {
		for _, metric := range promotion.DefaultMetricNames() {
			if v, ok := metrics[metric]; ok {
				fmt.Printf("  %-9s %.4f\n", metric+":", v)
			}
		}
	}
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
