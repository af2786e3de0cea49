package httpapi

import (
	"strings"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
)

// closeUnauthenticated is the WebSocket close code for a
// connection that completed the handshake without a valid bearer
// token.
const closeUnauthenticated websocket.StatusCode = 4401

// bearerSubprotocolPrefix is how the client carries its token: a
// negotiated subprotocol of the form "bearer.{token}", since browsers
// can't set arbitrary headers on a WebSocket upgrade.
const bearerSubprotocolPrefix = "bearer."

// handleWebSocket upgrades the connection and hands it to the shared
// ConnectionManager, closing immediately with 4401 if no bearer
// subprotocol was negotiated. Token verification itself (matching
// against a real session/identity backend) is left to a future
// wiring point — this HTTP surface is intentionally thin, per
// SPEC_FULL.md §2's "HTTP surface (thin, for wiring only)".
func (s *Server) handleWebSocket(c *gin.Context) {
	if s.ConnManager == nil {
		c.Status(503)
		return
	}

	protocols := requestedSubprotocols(c.Request.Header.Get("Sec-WebSocket-Protocol"))
	token, ok := bearerToken(protocols)

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		Subprotocols: protocols,
	})
	if err != nil {
		return
	}

	if !ok || token == "" {
		_ = conn.Close(closeUnauthenticated, "missing bearer token")
		return
	}

	s.ConnManager.HandleConnection(c.Request.Context(), conn)
}

func requestedSubprotocols(header string) []string {
	if header == "" {
		return nil
	}
	parts := strings.Split(header, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func bearerToken(protocols []string) (string, bool) {
	for _, p := range protocols {
		if token, ok := strings.CutPrefix(p, bearerSubprotocolPrefix); ok {
			return token, true
		}
	}
	return "", false
}
