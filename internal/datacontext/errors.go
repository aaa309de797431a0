// Copyright 2025 The Cardbind Authors
// SPDX-License-Identifier: Apache-2.0

package datacontext

import "errors"

// ErrMalformedData is the fatal error signaled when a root data_text (or a
// $data value's JSON literal, at the call site that chooses not to
// swallow it) is not valid JSON (spec.md §7 "Malformed root data_text").
var ErrMalformedData = errors.New("malformed data")
