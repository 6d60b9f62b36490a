package lspclient

import (
	"context"
	"sync"

	"github.com/standardbeagle/lci-lsp/internal/lang"
)

// Pool hands out Clients for one language exclusively, per spec §5: "The
// LSP client pool is guarded by a coarse lock; acquisition hands a
// client out exclusively, release returns it." Bounded size amortizes
// process-spawn cost across a worker pool without requiring one client
// per goroutine, the alternative §4.8 explicitly allows ("a small pool
// with bounded size").
type Pool struct {
	mu        sync.Mutex
	adapter   *lang.Adapter
	rootURI   string
	predictor *TimeoutPredictor
	maxSize   int

	idle []*Client
	live int
}

// NewPool creates a pool that lazily spawns clients for adapter's
// language. maxSize is a soft cap: Acquire spawns past it rather than
// block (see Acquire).
func NewPool(adapter *lang.Adapter, rootURI string, predictor *TimeoutPredictor, maxSize int) *Pool {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Pool{adapter: adapter, rootURI: rootURI, predictor: predictor, maxSize: maxSize}
}

// Acquire returns an idle client or spawns a new one. The pool does not
// queue: when no client is idle and maxSize clients are already live, it
// still spawns an extra client rather than blocking or failing. Every
// spawned client counts as live until Release discards it.
func (p *Pool) Acquire(ctx context.Context) (*Client, error) {
	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		c := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return c, nil
	}
	if p.live >= p.maxSize {
		// Spawn anyway rather than blocking indefinitely; the engine
		// favors a transient extra process over a deadlock when the
		// worker pool's width briefly exceeds the client cap.
	}
	p.live++
	p.mu.Unlock()

	client, err := Start(ctx, p.adapter, p.rootURI, p.predictor)
	if err != nil {
		p.mu.Lock()
		p.live--
		p.mu.Unlock()
		return nil, err
	}
	return client, nil
}

// Release returns a healthy client to the idle set, or discards it (and
// shrinks the live count) if discard is true — used when the caller
// observed a transport error and the client must not be reused.
func (p *Pool) Release(c *Client, discard bool) {
	if discard {
		c.Close()
		p.mu.Lock()
		p.live--
		p.mu.Unlock()
		return
	}
	p.mu.Lock()
	p.idle = append(p.idle, c)
	p.mu.Unlock()
}

// CloseAll shuts down every idle client gracefully. In-flight (checked
// out) clients are the caller's responsibility to Release first.
func (p *Pool) CloseAll(ctx context.Context) {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.live -= len(idle)
	p.mu.Unlock()

	for _, c := range idle {
		_ = c.Shutdown(ctx)
	}
}
