// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Petrel packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so
// that tests waiting on a channel do not hand-roll it. The timeout is
// a hang guard, not an assertion; negative assertions (nothing must
// arrive within a window) still select on time.After directly.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation. Use it instead of time.Now() when tests need unique
// channel IDs, message bodies, or call IDs distinguishable in shared
// fixtures.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no Petrel-internal dependencies.
package testutil
