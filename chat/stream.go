// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/petrel-chat/petrel/lib/codec"
	"github.com/petrel-chat/petrel/wire"
)

// streamConn is one physical connection: a websocket carrying CBOR
// frames. The session replaces it wholesale on failure; a streamConn
// never reconnects itself.
type streamConn struct {
	ws    *websocket.Conn
	hello wire.HelloBody

	// pongTimeout is the read deadline extension granted by each
	// pong and each received message. Read deadlines are wall time
	// even when the session runs on a fake clock.
	pongTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// dialStream opens and authenticates one connection: websocket
// upgrade with the bearer header, then the server's hello frame.
// A 401 on the upgrade is an AuthError; any other failure is a
// ConnectionError.
func dialStream(ctx context.Context, dialURL, token string, config *ClientConfig) (*streamConn, error) {
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: config.HandshakeTimeout,
		TLSClientConfig:  config.TLS,
	}
	ws, resp, err := dialer.DialContext(ctx, dialURL, bearerHeader(token))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, &AuthError{Message: "stream open rejected with 401"}
		}
		return nil, &ConnectionError{URL: dialURL, Err: err}
	}

	conn := &streamConn{ws: ws, pongTimeout: config.PongTimeout}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(conn.pongTimeout))
	})

	// The server speaks first. Nothing else is valid until its hello
	// arrives. DialContext stops watching ctx once the upgrade
	// completes, so a watcher severs the socket if the caller gives
	// up during the wait.
	helloDone := make(chan struct{})
	defer close(helloDone)
	go func() {
		select {
		case <-ctx.Done():
			ws.Close()
		case <-helloDone:
		}
	}()
	if err := ws.SetReadDeadline(time.Now().Add(config.HandshakeTimeout)); err != nil {
		ws.Close()
		return nil, &ConnectionError{URL: dialURL, Err: err}
	}
handshake:
	for {
		data, err := conn.readMessage()
		if err != nil {
			ws.Close()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, &ConnectionError{URL: dialURL, Err: ctxErr}
			}
			return nil, &ConnectionError{URL: dialURL, Err: fmt.Errorf("waiting for hello: %w", err)}
		}
		var frame wire.Frame
		if err := codec.Unmarshal(data, &frame); err != nil {
			ws.Close()
			return nil, &ConnectionError{URL: dialURL, Err: fmt.Errorf("decoding hello: %w", err)}
		}
		switch frame.Type {
		case wire.FrameHello:
			if len(frame.Body) > 0 {
				if err := codec.Unmarshal(frame.Body, &conn.hello); err != nil {
					ws.Close()
					return nil, &ConnectionError{URL: dialURL, Err: fmt.Errorf("decoding hello body: %w", err)}
				}
			}
			break handshake
		case wire.FrameCall, wire.FrameResult, wire.FrameEvent:
			ws.Close()
			return nil, &ConnectionError{URL: dialURL, Err: fmt.Errorf("server sent %s frame before hello", frame.Type)}
		default:
			// Unknown frame types are skippable, even here.
		}
	}
	if err := ctx.Err(); err != nil {
		// The hello won a race against cancellation. The caller asked
		// to stop either way.
		ws.Close()
		return nil, &ConnectionError{URL: dialURL, Err: err}
	}
	return conn, nil
}

// readMessage returns the next binary message. Each successful read
// extends the deadline: inbound traffic of any kind proves the
// connection alive. Transport failures only; decoding is the
// caller's business.
func (c *streamConn) readMessage() ([]byte, error) {
	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if err := c.ws.SetReadDeadline(time.Now().Add(c.pongTimeout)); err != nil {
			return nil, err
		}
		if messageType != websocket.BinaryMessage {
			// Petrel frames ride binary messages. Anything else is
			// noise.
			continue
		}
		return data, nil
	}
}

// writeFrame marshals and sends one frame. Safe for concurrent use;
// writes are serialized. Reads belong to the owning read loop alone.
func (c *streamConn) writeFrame(frame *wire.Frame) error {
	data, err := codec.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encoding %s frame: %w", frame.Type, err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

// writePing sends a keepalive ping. Control writes hold their own
// lock inside the websocket library.
func (c *streamConn) writePing() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// close tears the connection down, unblocking any blocked read.
// Idempotent. A best-effort close frame goes first so a healthy
// server sees a clean shutdown.
func (c *streamConn) close() {
	c.closeOnce.Do(func() {
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.ws.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
		c.ws.Close()
	})
}
