// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package promotion

import (
	"fmt"
	"strings"
)

// RenderMarkdown turns a ComparisonResult into the report document consumed
// by human reviewers and by downstream automation deciding whether to
// invoke Promote.
//
// The report always carries the full per-metric table and the overall
// recommendation in unambiguous terms, so an operator never has to
// re-derive the verdict from raw numbers.
func RenderMarkdown(result ComparisonResult) string {
	var b strings.Builder

	b.WriteString("# Model Performance Comparison\n\n")

	b.WriteString("## Model Versions\n")
	fmt.Fprintf(&b, "- **Baseline**: v%d (run: %s, stage: %s)\n",
		result.Baseline.Version, shortRun(result.Baseline.RunID), result.Baseline.Stage)
	fmt.Fprintf(&b, "- **Candidate**: v%d (run: %s, stage: %s)\n",
		result.Candidate.Version, shortRun(result.Candidate.RunID), result.Candidate.Stage)

	if result.BaselineIsStaging {
		b.WriteString("\n> **Warning**: no Production model exists; the oldest " +
			"Staging version served as the baseline.\n")
	}

	b.WriteString("\n## Metrics Comparison\n\n")
	b.WriteString("| Metric | Baseline | Candidate | Change | Status |\n")
	b.WriteString("|--------|----------|-----------|--------|--------|\n")

	for _, row := range result.Rows {
		changePct := 0.0
		if row.Baseline > 0 {
			changePct = row.Delta / row.Baseline * 100
		}
		sign := ""
		if row.Delta >= 0 {
			sign = "+"
		}
		status := string(row.Verdict)
		if row.BaselineMissing || row.CandidateMissing {
			status += " (metric missing, defaulted to 0)"
		}
		fmt.Fprintf(&b, "| %s | %.4f | %.4f | %s%.4f (%s%.2f%%) | %s |\n",
			row.Metric, row.Baseline, row.Candidate,
			sign, row.Delta, sign, changePct, status)
	}

	b.WriteString("\n## Recommendation\n\n")
	b.WriteString(recommendation(result.Overall))
	b.WriteString("\n")

	return b.String()
}

func recommendation(verdict OverallVerdict) string {
	switch verdict {
	case OverallSameModel:
		return "**SAME MODEL**: baseline and candidate are identical. No promotion needed."
	case OverallApprove:
		return "**APPROVE**: candidate model shows improvement. Ready for production."
	case OverallReject:
		return "**REJECT**: candidate model performance degraded. Do not promote to production."
	case OverallEquivalent:
		return "**NO CHANGE**: candidate model performance is equivalent to the baseline."
	default:
		return fmt.Sprintf("**UNKNOWN VERDICT**: %s", verdict)
	}
}

func shortRun(runID string) string {
	if len(runID) > 8 {
		return runID[:8]
	}
	if runID == "" {
		return "unknown"
	}
	return runID
}
