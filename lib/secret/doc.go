// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret provides a memory-safe buffer for sensitive data:
// chat access tokens and the passphrases that seal them.
//
// [Buffer] allocates memory outside the Go heap via mmap(MAP_ANONYMOUS),
// locks it into physical RAM via mlock (preventing swap), and marks it
// excluded from core dumps via madvise(MADV_DONTDUMP). On Close, the
// memory is zeroed, unlocked, and unmapped. Because the memory lives
// outside the Go heap, the garbage collector cannot copy or relocate
// it, so the token does not linger in freed heap chunks after release.
//
// Constructors:
//
//   - [New] allocates a zero-filled buffer of a given size
//   - [NewFromBytes] copies into protected memory and zeros the source
//
// Access via [Buffer.Bytes] (slice into the mmap region) or
// [Buffer.String] (heap copy for API boundaries that demand a string,
// such as an Authorization header). After Close, any access panics.
// Close is idempotent.
//
// [ReadFromPath] loads a secret from a file or stdin, and [Prompt]
// reads one interactively with terminal echo disabled. [Zero] wipes a
// byte slice in place for the transient copies that cannot avoid the
// heap.
//
// Depends on golang.org/x/sys/unix and golang.org/x/term. No
// Petrel-internal dependencies. Imported by lib/credential for sealed
// token files.
package secret
