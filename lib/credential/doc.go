// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential provides sealed storage for chat access tokens.
//
// A Petrel token is a bearer credential: anyone holding it can speak
// as the bot. Tools therefore avoid keeping tokens in plain files.
// [Seal] encrypts a token with a passphrase-derived key (age scrypt
// recipient), and [Open] reverses it. [WriteFile] and [ReadFile] are
// the file-shaped versions used by petrel-credentials.
//
// [LoadToken] is the entry point for tools: it reads a token file,
// detects whether it is sealed (age ciphertext carries a fixed ASCII
// header) or plaintext, and prompts for the passphrase only when
// needed. The plaintext fallback keeps local development and CI
// simple; sealing is for tokens that live on shared or long-lived
// machines.
//
// Tokens and passphrases travel as *secret.Buffer (mmap-backed, locked
// against swap, zeroed on close) and never as plain strings.
package credential
