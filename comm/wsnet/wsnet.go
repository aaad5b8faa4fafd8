// Package wsnet connects the ranks of a run over websockets in a star: the
// hub rank listens, every other rank dials it. Frames are JSON messages on a
// single connection per peer, so per-peer ordering is preserved.
//
// Handshake: the dialing rank sends hello{rank, size}; the hub validates it
// (size agrees, rank in range, not already joined) and answers with its own
// hello. A rank that fails the handshake is refused with a close frame.
//
// Only hub<->peer routes exist. A send between two non-hub ranks fails with
// comm.ErrBadRank.
package wsnet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/katalvlaran/msmcount/comm"
)

// JoinPath is the HTTP path peers dial on the hub.
const JoinPath = "/join"

type hello struct {
	Rank int `json:"rank"`
	Size int `json:"size"`
}

type peer struct {
	rank int
	conn *websocket.Conn
	wmu  sync.Mutex // gorilla allows one concurrent writer
}

func (p *peer) write(f comm.Frame) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()

	return p.conn.WriteJSON(f)
}

func (p *peer) close() {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = p.conn.Close()
}

// Endpoint is one rank's websocket communicator.
type Endpoint struct {
	rank int
	size int
	hub  int
	opts options
	log  *slog.Logger
	box  *comm.Mailbox

	mu     sync.Mutex
	peers  map[int]*peer
	joined chan struct{} // closed once every route exists
	done   chan struct{} // closed by Close

	ln        net.Listener
	srv       *http.Server
	upgrader  websocket.Upgrader
	closeOnce sync.Once
}

var _ comm.Communicator = (*Endpoint)(nil)

func newEndpoint(rank, size int, o options) *Endpoint {
	return &Endpoint{
		rank:   rank,
		size:   size,
		opts:   o,
		log:    o.logger.With("rank", rank),
		box:    comm.NewMailbox(),
		peers:  make(map[int]*peer),
		joined: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Listen starts the hub endpoint for rank on addr (e.g. ":7077" or
// "127.0.0.1:0"). It returns once the listener is bound; peers join in the
// background and WaitPeers blocks until all size-1 of them are connected.
func Listen(addr string, rank, size int, opts ...Option) (*Endpoint, error) {
	if err := comm.CheckRank(rank, size); err != nil {
		return nil, fmt.Errorf("wsnet.Listen: %w", err)
	}
	o := gatherOptions(opts...)
	e := newEndpoint(rank, size, o)
	e.hub = rank
	e.upgrader = websocket.Upgrader{
		HandshakeTimeout: o.handshakeTimeout,
		ReadBufferSize:   DefaultBufferSize,
		WriteBufferSize:  DefaultBufferSize,
		CheckOrigin:      func(*http.Request) bool { return true },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("wsnet.Listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.HandleFunc(JoinPath, e.handleJoin)
	e.ln = ln
	e.srv = &http.Server{Handler: mux, ReadHeaderTimeout: o.handshakeTimeout}
	if size == 1 {
		close(e.joined)
	}

	go func() {
		if err := e.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Error("hub server stopped", "error", err)
		}
	}()
	e.log.Info("hub listening", "addr", ln.Addr().String(), "size", size)

	return e, nil
}

// Dial connects rank to the hub at url (ws://host:port/join) and completes
// the hello handshake.
func Dial(ctx context.Context, url string, rank, size int, opts ...Option) (*Endpoint, error) {
	if err := comm.CheckRank(rank, size); err != nil {
		return nil, fmt.Errorf("wsnet.Dial: %w", err)
	}
	o := gatherOptions(opts...)
	e := newEndpoint(rank, size, o)

	dialer := websocket.Dialer{
		HandshakeTimeout: o.handshakeTimeout,
		ReadBufferSize:   DefaultBufferSize,
		WriteBufferSize:  DefaultBufferSize,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("wsnet.Dial %s: %w", url, err)
	}
	conn.SetReadLimit(o.readLimit)

	if err = conn.WriteJSON(hello{Rank: rank, Size: size}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("wsnet.Dial: send hello: %w", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(o.handshakeTimeout))
	var reply hello
	if err = conn.ReadJSON(&reply); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("wsnet.Dial: hub refused rank %d: %w", rank, err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	if reply.Size != size || comm.CheckRank(reply.Rank, size) != nil || reply.Rank == rank {
		_ = conn.Close()
		return nil, fmt.Errorf("wsnet.Dial: bad hub hello %+v: %w", reply, comm.ErrProtocolViolation)
	}

	e.hub = reply.Rank
	p := &peer{rank: reply.Rank, conn: conn}
	e.peers[p.rank] = p
	close(e.joined)
	go e.readLoop(p)
	e.log.Info("joined hub", "url", url, "hub", reply.Rank)

	return e, nil
}

// Addr returns the bound listen address of a hub, or "" for a dialing rank.
func (e *Endpoint) Addr() string {
	if e.ln == nil {
		return ""
	}

	return e.ln.Addr().String()
}

// URL returns the websocket URL peers should dial to join this hub.
func (e *Endpoint) URL() string {
	return "ws://" + e.Addr() + JoinPath
}

// Rank returns this endpoint's rank.
func (e *Endpoint) Rank() int { return e.rank }

// Size returns the number of ranks.
func (e *Endpoint) Size() int { return e.size }

func (e *Endpoint) handleJoin(w http.ResponseWriter, r *http.Request) {
	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		e.log.Warn("join upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	conn.SetReadLimit(e.opts.readLimit)

	_ = conn.SetReadDeadline(time.Now().Add(e.opts.handshakeTimeout))
	var h hello
	if err = conn.ReadJSON(&h); err != nil {
		e.log.Warn("join hello failed", "remote", r.RemoteAddr, "error", err)
		_ = conn.Close()
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	p := &peer{rank: h.Rank, conn: conn}
	if reason := e.register(p, h); reason != "" {
		e.log.Warn("join refused", "remote", r.RemoteAddr, "peer", h.Rank, "reason", reason)
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	e.log.Info("peer joined", "peer", h.Rank, "remote", r.RemoteAddr)
	e.readLoop(p)
}

// register validates a hello and records the peer. It returns a refusal
// reason, or "" on success. The hello reply is written under the peer lock
// before the peer becomes visible to senders.
func (e *Endpoint) register(p *peer, h hello) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case h.Size != e.size:
		return fmt.Sprintf("size %d, hub has %d", h.Size, e.size)
	case comm.CheckRank(h.Rank, e.size) != nil || h.Rank == e.rank:
		return fmt.Sprintf("rank %d not joinable", h.Rank)
	}
	if _, dup := e.peers[h.Rank]; dup {
		return fmt.Sprintf("rank %d already joined", h.Rank)
	}
	select {
	case <-e.done:
		return "hub closed"
	default:
	}

	p.wmu.Lock()
	err := p.conn.WriteJSON(hello{Rank: e.rank, Size: e.size})
	p.wmu.Unlock()
	if err != nil {
		return "hello reply failed: " + err.Error()
	}
	e.peers[h.Rank] = p
	if len(e.peers) == e.size-1 {
		close(e.joined)
	}

	return ""
}

// readLoop feeds frames from p into the mailbox until the connection ends.
func (e *Endpoint) readLoop(p *peer) {
	for {
		var f comm.Frame
		if err := p.conn.ReadJSON(&f); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				e.log.Debug("peer closed", "peer", p.rank)
			} else {
				e.log.Debug("peer read ended", "peer", p.rank, "error", err)
			}
			e.box.CloseSource(p.rank, fmt.Errorf("peer %d: %w", p.rank, comm.ErrClosed))
			return
		}
		if f.Source != p.rank || f.Dest != e.rank {
			e.log.Error("misrouted frame", "peer", p.rank, "src", f.Source, "dst", f.Dest)
			e.box.CloseSource(p.rank, fmt.Errorf("frame %d->%d on peer %d link: %w",
				f.Source, f.Dest, p.rank, comm.ErrProtocolViolation))
			return
		}
		if err := e.box.Deliver(f); err != nil {
			return
		}
	}
}

// WaitPeers blocks until every route of this endpoint is established.
func (e *Endpoint) WaitPeers(ctx context.Context) error {
	select {
	case <-e.joined:
		return nil
	case <-e.done:
		return comm.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Endpoint) send(ctx context.Context, dest int, f comm.Frame) error {
	if err := comm.CheckRank(dest, e.size); err != nil {
		return err
	}
	f.Source, f.Dest = e.rank, dest
	if dest == e.rank {
		return e.box.Deliver(f)
	}
	if err := e.WaitPeers(ctx); err != nil {
		return err
	}
	e.mu.Lock()
	p, ok := e.peers[dest]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("no route %d->%d: %w", e.rank, dest, comm.ErrBadRank)
	}
	if err := p.write(f); err != nil {
		return fmt.Errorf("send %s to %d: %w", f.Tag, dest, err)
	}

	return nil
}

// Gather sends report to root; on root it waits for every peer and collects
// all reports.
func (e *Endpoint) Gather(ctx context.Context, root int, report comm.SizeReport) ([]comm.SizeReport, error) {
	if err := comm.CheckRank(root, e.size); err != nil {
		return nil, err
	}
	if e.rank != root {
		r := report
		return nil, e.send(ctx, root, comm.Frame{Tag: comm.TagSize, Report: &r})
	}
	if err := e.WaitPeers(ctx); err != nil {
		return nil, err
	}

	return e.box.CollectReports(ctx, root, e.size, report)
}

// SendInts serializes data onto the link to dest. The buffer may be reused
// as soon as SendInts returns.
func (e *Endpoint) SendInts(ctx context.Context, dest int, tag comm.Tag, data []int) error {
	return e.send(ctx, dest, comm.Frame{Tag: tag, Ints: append([]int(nil), data...)})
}

// SendFloats serializes data onto the link to dest. The buffer may be reused
// as soon as SendFloats returns.
func (e *Endpoint) SendFloats(ctx context.Context, dest int, tag comm.Tag, data []float64) error {
	return e.send(ctx, dest, comm.Frame{Tag: tag, Floats: append([]float64(nil), data...)})
}

// RecvInts receives exactly len(dst) ints from src under tag.
func (e *Endpoint) RecvInts(ctx context.Context, src int, tag comm.Tag, dst []int) error {
	if err := comm.CheckRank(src, e.size); err != nil {
		return err
	}

	return e.box.TakeInts(ctx, src, tag, dst)
}

// RecvFloats receives exactly len(dst) floats from src under tag.
func (e *Endpoint) RecvFloats(ctx context.Context, src int, tag comm.Tag, dst []float64) error {
	if err := comm.CheckRank(src, e.size); err != nil {
		return err
	}

	return e.box.TakeFloats(ctx, src, tag, dst)
}

// Close sends a normal close to every peer, stops the hub server and fails
// pending receives with comm.ErrClosed.
func (e *Endpoint) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.mu.Lock()
		close(e.done)
		peers := make([]*peer, 0, len(e.peers))
		for _, p := range e.peers {
			peers = append(peers, p)
		}
		e.mu.Unlock()

		for _, p := range peers {
			p.close()
		}
		if e.srv != nil {
			err = e.srv.Close()
		}
		e.box.Close(comm.ErrClosed)
		e.log.Debug("endpoint closed")
	})

	return err
}
