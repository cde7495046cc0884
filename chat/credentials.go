// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"net/http"

	"github.com/petrel-chat/petrel/wire"
)

// The credential rides in two places. Opening a stream is an HTTP
// upgrade, so the token travels as a standard bearer Authorization
// header. Calls are frames on an established stream, so the token
// travels in the frame envelope's token field. Both attachers are
// pure: they augment a request and leave everything else alone.

// bearerHeader returns the headers for a stream-open request.
func bearerHeader(token string) http.Header {
	header := make(http.Header)
	header.Set("Authorization", "Bearer "+token)
	return header
}

// withToken returns the call frame with the credential attached.
func withToken(frame wire.Frame, token string) wire.Frame {
	frame.Token = token
	return frame
}
