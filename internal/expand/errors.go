// Copyright 2025 The Cardbind Authors
// SPDX-License-Identifier: Apache-2.0

package expand

import (
	"errors"

	"github.com/cardbind/expand/internal/datacontext"
)

// ErrInvalidArgument is the fatal error signaled on an argument-contract
// violation — an empty template, per spec.md §7 ("null CST node, null
// visitor input"). Besides ErrMalformedData and a failure to construct the
// expression evaluator, it is the only non-nil error Expand returns.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrMalformedData is signaled when data_text is non-empty but not valid
// JSON (spec.md §7 "Malformed root data_text"). Re-exported from
// datacontext so callers of this package never need to import it.
var ErrMalformedData = datacontext.ErrMalformedData
