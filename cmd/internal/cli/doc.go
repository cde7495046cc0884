// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli carries the plumbing shared by the Petrel command-line
// tools: configuration flags, logger construction, session dialing,
// and terminal event formatting. Each binary stays a thin wrapper
// around [ConfigFlags], [NewLogger], and [Dial].
package cli
