// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package wire

// Code is the status of a result frame. Codes are wire constants;
// servers must use these exact strings.
type Code string

const (
	// CodeOK marks a successful result.
	CodeOK Code = "ok"

	// CodeUnauthenticated means the call's token was missing,
	// malformed, expired, or revoked. Clients treat this as fatal for
	// the credential, not the connection.
	CodeUnauthenticated Code = "unauthenticated"

	// CodeUnavailable means the server could not serve the call right
	// now (shutting down, overloaded, upstream chat network down).
	// Safe to retry after a delay.
	CodeUnavailable Code = "unavailable"

	// CodeDeadlineExceeded means the server gave up on the call
	// before completing it.
	CodeDeadlineExceeded Code = "deadline_exceeded"

	// CodeNotFound means the referenced channel, user, or message
	// does not exist.
	CodeNotFound Code = "not_found"

	// CodePermissionDenied means the token is valid but not allowed
	// to perform this call.
	CodePermissionDenied Code = "permission_denied"

	// CodeInvalidArgument means the call payload was rejected by the
	// server's validation.
	CodeInvalidArgument Code = "invalid_argument"

	// CodeFailedPrecondition means the call cannot proceed in the
	// current state (posting to an archived channel, for example).
	CodeFailedPrecondition Code = "failed_precondition"

	// CodeInternal means the server failed in a way it cannot
	// attribute to the caller.
	CodeInternal Code = "internal"
)

// OK reports whether the code marks a successful result.
func (c Code) OK() bool { return c == CodeOK }
