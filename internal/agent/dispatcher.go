// Package agent wires components C1-C9 into the three ACP-facing
// components spec.md §4.10-§4.12 describe: session lifecycle (C10), the
// per-prompt event loop (C11), and the top-level dispatcher (C12) that
// owns the update channel and the client-op channel.
//
// The three cooperating loops spec.md §2/§5 describes (inbound ACP,
// outbound update, client-op) map onto this package as: the inbound loop
// lives inside the acp-go-sdk transport, which calls straight into this
// package's Agent methods (Initialize, NewSession, Prompt, ...); the
// outbound update loop and the client-op loop are both run by Dispatcher's
// single goroutine, selecting over two channels exactly as spec.md §4.12
// specifies.
package agent

import (
	"context"

	acpsdk "github.com/coder/acp-go-sdk"

	"github.com/codex-acp/codex-acp/internal/acperr"
	"github.com/codex-acp/codex-acp/internal/logging"
	"github.com/codex-acp/codex-acp/internal/sessionstore"
)

// Conn is the reverse-call surface the dispatcher pushes notifications
// through and issues client ops against: session updates, permission
// requests, and the two FS ops. Satisfied by *acp.AgentSideConnection in
// production; fsbridge.Bridge is handed the Dispatcher itself as its
// AcpFileClient (see NewDispatcher), so every outbound read/write, no
// matter the caller, passes through the same read-only gate.
type Conn interface {
	SessionUpdate(ctx context.Context, n acpsdk.SessionNotification) error
	RequestPermission(ctx context.Context, req acpsdk.RequestPermissionRequest) (acpsdk.RequestPermissionResponse, error)
	ReadTextFile(ctx context.Context, req acpsdk.ReadTextFileRequest) (acpsdk.ReadTextFileResponse, error)
	WriteTextFile(ctx context.Context, req acpsdk.WriteTextFileRequest) (acpsdk.WriteTextFileResponse, error)
}

type updateItem struct {
	notification acpsdk.SessionNotification
	ack          chan error
}

type opKind int

const (
	opPermission opKind = iota
	opRead
	opWrite
)

type clientOpItem struct {
	kind     opKind
	permReq  acpsdk.RequestPermissionRequest
	readReq  acpsdk.ReadTextFileRequest
	writeReq acpsdk.WriteTextFileRequest
	reply    chan clientOpResult
}

type clientOpResult struct {
	perm  acpsdk.RequestPermissionResponse
	read  acpsdk.ReadTextFileResponse
	write acpsdk.WriteTextFileResponse
	err   error
}

// Dispatcher is the top-level dispatcher (C12): it owns the update channel
// (notification + per-item ack) and the client-op channel, and runs the
// single select loop that drains both in the order items were sent, giving
// P9's ordering/ack guarantee for free from Go channel semantics. Both
// channels are buffered with a fixed capacity of 64 and are not unbounded:
// a send blocks while its channel is full.
type Dispatcher struct {
	conn       Conn
	lookup     sessionstore.SessionModeLookup
	updateCh   chan updateItem
	clientOpCh chan clientOpItem
}

// NewDispatcher builds a Dispatcher. lookup is consulted for every
// ReadTextFile/WriteTextFile client op so the bridge's fs_session_id
// traffic resolves to a canonical ACP session id and, for writes, is
// rejected outright when that session is in read-only mode -- this is the
// single authoritative enforcement point spec.md §4.12/§9 describes; the
// backend's own tool set disables the write tools at session-build time
// (C6) as a secondary measure, not the primary one.
func NewDispatcher(conn Conn, lookup sessionstore.SessionModeLookup) *Dispatcher {
	return &Dispatcher{
		conn:       conn,
		lookup:     lookup,
		updateCh:   make(chan updateItem, 64),
		clientOpCh: make(chan clientOpItem, 64),
	}
}

// Run drains both channels until ctx is cancelled. Intended to be started
// once, in its own goroutine, for the lifetime of the process.
func (d *Dispatcher) Run(ctx context.Context) {
	log := logging.ACP()
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-d.updateCh:
			err := d.conn.SessionUpdate(ctx, item.notification)
			if err != nil {
				log.Warn("session update failed", "error", err)
			}
			item.ack <- err
		case op := <-d.clientOpCh:
			d.handleClientOp(ctx, op)
		}
	}
}

// PushUpdate enqueues notification for sessionID and blocks until the
// dispatcher has written it to stdio (or ctx is cancelled), giving C11 the
// per-item ack spec.md §4.12 calls for as a back-pressure mechanism.
func (d *Dispatcher) PushUpdate(ctx context.Context, sessionID string, update acpsdk.SessionUpdate) error {
	ack := make(chan error, 1)
	item := updateItem{
		notification: acpsdk.SessionNotification{
			SessionId: acpsdk.SessionId(sessionID),
			Update:    update,
		},
		ack: ack,
	}
	select {
	case d.updateCh <- item:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-ack:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestPermission forwards req to the client as-is and waits for its
// reply, per spec.md §4.12.
func (d *Dispatcher) RequestPermission(ctx context.Context, req acpsdk.RequestPermissionRequest) (acpsdk.RequestPermissionResponse, error) {
	reply := make(chan clientOpResult, 1)
	op := clientOpItem{kind: opPermission, permReq: req, reply: reply}
	select {
	case d.clientOpCh <- op:
	case <-ctx.Done():
		return acpsdk.RequestPermissionResponse{}, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.perm, r.err
	case <-ctx.Done():
		return acpsdk.RequestPermissionResponse{}, ctx.Err()
	}
}

// ReadTextFile implements fsbridge.AcpFileClient: resolve req.SessionId
// (which may be either an ACP session id or a bridge-tagged fs_session_id)
// and forward to the real connection.
func (d *Dispatcher) ReadTextFile(ctx context.Context, req acpsdk.ReadTextFileRequest) (acpsdk.ReadTextFileResponse, error) {
	reply := make(chan clientOpResult, 1)
	op := clientOpItem{kind: opRead, readReq: req, reply: reply}
	select {
	case d.clientOpCh <- op:
	case <-ctx.Done():
		return acpsdk.ReadTextFileResponse{}, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.read, r.err
	case <-ctx.Done():
		return acpsdk.ReadTextFileResponse{}, ctx.Err()
	}
}

// WriteTextFile implements fsbridge.AcpFileClient, additionally enforcing
// the read-only write gate (P4/S3) before the request ever reaches the
// real connection.
func (d *Dispatcher) WriteTextFile(ctx context.Context, req acpsdk.WriteTextFileRequest) (acpsdk.WriteTextFileResponse, error) {
	reply := make(chan clientOpResult, 1)
	op := clientOpItem{kind: opWrite, writeReq: req, reply: reply}
	select {
	case d.clientOpCh <- op:
	case <-ctx.Done():
		return acpsdk.WriteTextFileResponse{}, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.write, r.err
	case <-ctx.Done():
		return acpsdk.WriteTextFileResponse{}, ctx.Err()
	}
}

const readOnlyWriteMessage = "write_text_file is disabled while session mode is read-only"

func (d *Dispatcher) handleClientOp(ctx context.Context, op clientOpItem) {
	switch op.kind {
	case opPermission:
		resp, err := d.conn.RequestPermission(ctx, op.permReq)
		op.reply <- clientOpResult{perm: resp, err: err}

	case opRead:
		acpID, ok := d.lookup.ResolveAcpSessionID(string(op.readReq.SessionId))
		if !ok {
			op.reply <- clientOpResult{err: acperr.InvalidParams("unknown session")}
			return
		}
		req := op.readReq
		req.SessionId = acpsdk.SessionId(acpID)
		resp, err := d.conn.ReadTextFile(ctx, req)
		op.reply <- clientOpResult{read: resp, err: err}

	case opWrite:
		acpID, ok := d.lookup.ResolveAcpSessionID(string(op.writeReq.SessionId))
		if !ok {
			op.reply <- clientOpResult{err: acperr.InvalidParams("unknown session")}
			return
		}
		if d.lookup.IsReadOnly(acpID) {
			op.reply <- clientOpResult{err: acperr.InvalidParamsWithData("write rejected", readOnlyWriteMessage)}
			return
		}
		req := op.writeReq
		req.SessionId = acpsdk.SessionId(acpID)
		resp, err := d.conn.WriteTextFile(ctx, req)
		op.reply <- clientOpResult{write: resp, err: err}
	}
}
