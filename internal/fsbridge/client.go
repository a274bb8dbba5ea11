package fsbridge

import (
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// requestTimeout bounds both the dial and the read of the reply: the
// embedded MCP server (C8) is a short-lived child process and a bridge
// that never answers should not be allowed to hang it forever.
const requestTimeout = 5 * time.Second

// Client is the bridge's wire protocol from the embedded MCP server's
// side: one TCP connection per request, ids drawn from a process-wide
// monotonic counter.
type Client struct {
	addr      string
	sessionID string
	nextID    atomic.Int64
}

// NewClient returns a Client that talks to the bridge at addr on behalf of
// sessionID (the fs_session_id passed to the MCP server via
// ACP_FS_SESSION_ID).
func NewClient(addr, sessionID string) *Client {
	return &Client{addr: addr, sessionID: sessionID}
}

// Read asks the bridge to read path, optionally starting at line (1-based)
// and capped to limit lines.
func (c *Client) Read(path string, line, limit *int) (string, error) {
	return c.call(Request{Op: opRead, Path: path, Line: line, Limit: limit})
}

// Write asks the bridge to write content to path.
func (c *Client) Write(path, content string) error {
	_, err := c.call(Request{Op: opWrite, Path: path, Content: content})
	return err
}

func (c *Client) call(req Request) (string, error) {
	req.ID = c.nextID.Add(1)
	req.SessionID = c.sessionID

	conn, err := net.DialTimeout("tcp", c.addr, requestTimeout)
	if err != nil {
		return "", fmt.Errorf("fsbridge: dial %s: %w", c.addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(requestTimeout))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return "", fmt.Errorf("fsbridge: encode request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return "", fmt.Errorf("fsbridge: decode response: %w", err)
	}
	if !resp.OK {
		return "", fmt.Errorf("fsbridge: %s", resp.Error)
	}
	return resp.Content, nil
}
