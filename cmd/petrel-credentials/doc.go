// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

// Petrel-credentials manages the access token files the other Petrel
// tools read. Tokens are sealed with age under a passphrase-derived
// scrypt key, so a token at rest is a ciphertext rather than a
// grep-able string. A sealed file is recognized by its age header;
// the tools accept plaintext token files too and never require
// sealing.
// Subcommands: seal, show, check.
package main
