// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/driftgate/cmd/driftgate/config"
	"github.com/AleutianAI/driftgate/pkg/logging"
)

// --- Global Command Variables ---
var (
	modelName  string // CLI override for model.name
	inputPath  string // CSV file to run the pipeline on
	rowCount   int    // synthetic rows when no input file given
	workDir    string // CLI override for pipeline.work_dir
	bucketName string // CLI override for storage.bucket
	outputPath string // comparison report destination
	stageName  string // target stage for promote

	logger *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "driftgate",
		Short: "A cli to manage the driftgate model monitoring pipeline",
		Long: `Driftgate runs batch quality gates, trains and registers model
				versions, and renders promote/reject decisions against the
				current Production baseline.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(); err != nil {
				return err
			}
			logger = logging.New(logging.Config{
				Level:   parseLevel(config.Global.Logging.Level),
				LogDir:  config.Global.Logging.LogDir,
				Service: "cli",
				JSON:    config.Global.Logging.JSON,
			})
			slog.SetDefault(logger.Slog())
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				logger.Close()
			}
		},
	}

	// --- Pipeline ---
	pipelineCmd = &cobra.Command{
		Use:   "pipeline",
		Short: "Run and inspect batch processing pipelines",
	}
	pipelineRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the full batch pipeline: gate, transform, train, register",
		RunE:  runPipeline, // Defined in cmd_pipeline.go
	}

	// --- Models ---
	modelsCmd = &cobra.Command{
		Use:   "models",
		Short: "Inspect, compare and promote registered model versions",
	}
	modelsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List all versions of a model with stages and metrics",
		RunE:  runModelsList, // Defined in cmd_models.go
	}
	modelsCompareCmd = &cobra.Command{
		Use:   "compare",
		Short: "Compare the latest Staging candidate against the baseline",
		Long: `Compares the newest Staging version against the current Production
				model (or the oldest Staging version when no Production model
				exists) and writes a markdown report. Exits non-zero when the
				candidate is rejected.`,
		RunE: runModelsCompare, // Defined in cmd_models.go
	}
	modelsPromoteCmd = &cobra.Command{
		Use:   "promote [version]",
		Short: "Transition a model version to a new stage",
		Args:  cobra.ExactArgs(1),
		RunE:  runModelsPromote, // Defined in cmd_models.go
	}
	modelsBestCmd = &cobra.Command{
		Use:   "best",
		Short: "Show the model version currently serving (or next in line)",
		RunE:  runModelsBest, // Defined in cmd_models.go
	}
)

func init() {
	pipelineRunCmd.Flags().StringVar(&inputPath, "input", "", "CSV file to process (default: generate a synthetic batch)")
	pipelineRunCmd.Flags().IntVar(&rowCount, "rows", 0, "synthetic row count (default from config)")
	pipelineRunCmd.Flags().StringVar(&workDir, "workdir", "", "directory for reports and artifacts (default from config)")
	pipelineRunCmd.Flags().StringVar(&bucketName, "bucket", "", "GCS bucket for processed batches (default from config)")
	pipelineCmd.AddCommand(pipelineRunCmd)
	rootCmd.AddCommand(pipelineCmd)

	modelsCmd.PersistentFlags().StringVar(&modelName, "model", "", "model name (default from config)")
	modelsCompareCmd.Flags().StringVar(&outputPath, "output", "", "path for the markdown comparison report")
	modelsPromoteCmd.Flags().StringVar(&stageName, "stage", "Production", "target stage (Staging, Production, Archived)")
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsCompareCmd)
	modelsCmd.AddCommand(modelsPromoteCmd)
	modelsCmd.AddCommand(modelsBestCmd)
	rootCmd.AddCommand(modelsCmd)
}

// parseLevel maps config log level names to logging levels. Unknown
// names fall back to Info.
func parseLevel(s string) logging.Level {
	switch strings.ToLower(s) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}
