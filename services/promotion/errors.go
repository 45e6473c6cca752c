// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package promotion

import "errors"

// ErrNoBaselineModel reports that neither a Production nor a Staging model
// exists to compare against. It is fatal for the comparison and distinct
// from a Reject verdict: it signals a missing prerequisite, not a
// performance judgment. A promotion decision can never be rendered against
// a nonexistent baseline.
var ErrNoBaselineModel = errors.New("no baseline model found in Production or Staging")
