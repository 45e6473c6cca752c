// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gate

import (
	"fmt"
	"strings"
)

// QualityError reports a rejected batch.
//
// It is non-retryable without fixing the data and carries the full list of
// failing checks, never just the first. Pipeline callers must halt on it;
// it is never downgraded to a warning. Use errors.As to distinguish it from
// infrastructure errors:
//
//	var qerr *gate.QualityError
//	if errors.As(err, &qerr) {
//	    for _, f := range qerr.Failures { ... }
//	}
type QualityError struct {
	Failures []CheckFailure
}

// Error lists every failing check verbatim.
func (e *QualityError) Error() string {
	details := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		details[i] = fmt.Sprintf("%s: %s", f.Check, f.Detail)
	}
	return fmt.Sprintf("data quality gate failed (%d checks): %s",
		len(e.Failures), strings.Join(details, "; "))
}
