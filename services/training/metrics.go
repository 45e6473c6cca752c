// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package training

import (
	"fmt"
	"sort"

	"github.com/AleutianAI/driftgate/services/registry"
)

// Evaluate scores a predictor on labeled examples and returns the metric
// set the registry and the promotion engine consume: accuracy, weighted
// precision, weighted recall, weighted F1 and ROC-AUC.
//
// Precision, recall and F1 are support-weighted averages over both
// classes, so a degenerate predictor that always answers the majority
// class does not score a free 1.0.
func Evaluate(p Predictor, examples []Example) (registry.MetricSet, error) {
	if len(examples) == 0 {
		return nil, ErrNoExamples
	}

	labels := make([]int, len(examples))
	preds := make([]int, len(examples))
	probs := make([]float64, len(examples))
	for i, ex := range examples {
		labels[i] = ex.Label

		class, err := p.Predict(ex.Features)
		if err != nil {
			return nil, fmt.Errorf("training: predict example %d: %w", i, err)
		}
		preds[i] = class

		prob, err := p.PredictProba(ex.Features)
		if err != nil {
			return nil, fmt.Errorf("training: score example %d: %w", i, err)
		}
		probs[i] = prob
	}

	correct := 0
	for i := range labels {
		if labels[i] == preds[i] {
			correct++
		}
	}
	accuracy := float64(correct) / float64(len(labels))

	precision, recall, f1 := weightedPRF(labels, preds)

	return registry.MetricSet{
		"accuracy":  accuracy,
		"precision": precision,
		"recall":    recall,
		"f1_score":  f1,
		"roc_auc":   rocAUC(labels, probs),
	}, nil
}

// weightedPRF computes support-weighted precision, recall and F1 over the
// two classes.
func weightedPRF(labels, preds []int) (precision, recall, f1 float64) {
	total := float64(len(labels))
	for _, class := range []int{0, 1} {
		var tp, fp, fn, support float64
		for i := range labels {
			switch {
			case labels[i] == class && preds[i] == class:
				tp++
				support++
			case labels[i] == class:
				fn++
				support++
			case preds[i] == class:
				fp++
			}
		}
		if support == 0 {
			continue
		}
		var p, r float64
		if tp+fp > 0 {
			p = tp / (tp + fp)
		}
		if tp+fn > 0 {
			r = tp / (tp + fn)
		}
		var f float64
		if p+r > 0 {
			f = 2 * p * r / (p + r)
		}
		w := support / total
		precision += w * p
		recall += w * r
		f1 += w * f
	}
	return precision, recall, f1
}

// rocAUC computes the area under the ROC curve with the rank-sum method,
// averaging ranks across probability ties. When only one class is present
// the curve is undefined and 0.5 is returned.
func rocAUC(labels []int, probs []float64) float64 {
	type scored struct {
		prob  float64
		label int
	}
	items := make([]scored, len(labels))
	for i := range labels {
		items[i] = scored{prob: probs[i], label: labels[i]}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].prob < items[j].prob })

	ranks := make([]float64, len(items))
	for i := 0; i < len(items); {
		j := i
		for j < len(items) && items[j].prob == items[i].prob {
			j++
		}
		// 1-based average rank for the tie group [i, j).
		avg := float64(i+j+1) / 2.0
		for k := i; k < j; k++ {
			ranks[k] = avg
		}
		i = j
	}

	var nPos, nNeg, posRankSum float64
	for i, it := range items {
		if it.label == 1 {
			nPos++
			posRankSum += ranks[i]
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0.5
	}
	return (posRankSum - nPos*(nPos+1)/2) / (nPos * nNeg)
}
