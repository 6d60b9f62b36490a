// Package lspclient drives one child-process LSP server over stdio:
// Content-Length-framed JSON-RPC 2.0, the initialize/initialized/
// shutdown/exit lifecycle, and the handful of typed requests the engine
// needs (documentSymbol, workspace/symbol, references, definition,
// hover). Protocol semantics are grounded on original_source's lsp
// crate (lsp_indexer.rs, lsp_helpers.rs); the wire framing itself
// follows the LSP base protocol, which original_source gets for free
// from the lsp-types/lsp-server crates and this port must implement by
// hand over net/rpc-free raw stdio.
package lspclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/standardbeagle/lci-lsp/internal/ierrors"
	"github.com/standardbeagle/lci-lsp/internal/lang"
	"github.com/standardbeagle/lci-lsp/internal/telemetry"
)

var log = telemetry.Component("lspclient")

// defaultFallbackTimeout bounds the requests that don't go through the
// predictor (workspace/symbol, references, definition, hover; see
// defaultRequestTimeout in operations.go).
const defaultFallbackTimeout = 10 * time.Second

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id,omitempty"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Client owns one spawned LSP server process and its request/response
// correlation table. Requests may be issued from several goroutines at
// once: ids are allocated atomically, the correlation table is
// mutex-guarded, and each frame goes out in a single write.
// internal/indexer shares one Client across all worker-pool units of a
// language group; a worker does not get a client of its own.
type Client struct {
	language string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	nextID    int64
	pending   map[int64]chan rpcResponse
	pendingMu sync.Mutex

	predictor    *TimeoutPredictor
	capabilities Capabilities

	closeOnce sync.Once
	closed    chan struct{}
	readErr   atomic.Value // error
}

// Capabilities records the subset of InitializeResult.capabilities the
// extraction strategy chain (internal/extract) needs to pick between
// Workspace and Document strategy, per spec §4.6.4.
type Capabilities struct {
	WorkspaceSymbolProvider bool
	DocumentSymbolProvider  bool
}

// Capabilities returns the server's advertised capabilities, populated
// during Start's handshake.
func (c *Client) Capabilities() Capabilities { return c.capabilities }

// Language reports the adapter language id this client was started for.
func (c *Client) Language() string { return c.language }

// Start spawns the language server described by adapter and performs
// the initialize/initialized handshake against rootURI.
func Start(ctx context.Context, adapter *lang.Adapter, rootURI string, predictor *TimeoutPredictor) (*Client, error) {
	cmd := adapter.SpawnLSPCommand()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, ierrors.NewTransportError(adapter.LanguageID(), fmt.Errorf("stdin pipe: %w", err))
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, ierrors.NewTransportError(adapter.LanguageID(), fmt.Errorf("stdout pipe: %w", err))
	}

	if err := cmd.Start(); err != nil {
		return nil, ierrors.NewTransportError(adapter.LanguageID(), fmt.Errorf("spawn: %w", err))
	}

	c := &Client{
		language:  adapter.LanguageID(),
		cmd:       cmd,
		stdin:     stdin,
		stdout:    bufio.NewReader(stdout),
		pending:   make(map[int64]chan rpcResponse),
		predictor: predictor,
		closed:    make(chan struct{}),
	}
	go c.readLoop()

	if err := c.handshake(ctx, rootURI); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) handshake(ctx context.Context, rootURI string) error {
	params := map[string]interface{}{
		"processId": nil,
		"rootUri":   rootURI,
		"capabilities": map[string]interface{}{
			"textDocument": map[string]interface{}{
				"documentSymbol": map[string]interface{}{"hierarchicalDocumentSymbolSupport": true},
			},
			"workspace": map[string]interface{}{
				"symbol": map[string]interface{}{},
			},
		},
	}
	raw, err := c.call(ctx, "initialize", params, 10*time.Second)
	if err != nil {
		return ierrors.NewTransportError(c.language, fmt.Errorf("initialize: %w", err))
	}
	c.capabilities = parseCapabilities(raw)

	if err := c.notify("initialized", map[string]interface{}{}); err != nil {
		return ierrors.NewTransportError(c.language, fmt.Errorf("initialized: %w", err))
	}
	return nil
}

// parseCapabilities extracts the two capability flags the engine acts
// on. Both workspaceSymbolProvider and documentSymbolProvider may be
// either a bare bool or an options object per the LSP spec; either shape
// present (and not `false`) counts as supported.
func parseCapabilities(initializeResult json.RawMessage) Capabilities {
	var wrapper struct {
		Capabilities struct {
			WorkspaceSymbolProvider json.RawMessage `json:"workspaceSymbolProvider"`
			DocumentSymbolProvider  json.RawMessage `json:"documentSymbolProvider"`
		} `json:"capabilities"`
	}
	if err := json.Unmarshal(initializeResult, &wrapper); err != nil {
		return Capabilities{}
	}
	return Capabilities{
		WorkspaceSymbolProvider: capabilityEnabled(wrapper.Capabilities.WorkspaceSymbolProvider),
		DocumentSymbolProvider:  capabilityEnabled(wrapper.Capabilities.DocumentSymbolProvider),
	}
}

func capabilityEnabled(raw json.RawMessage) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return false
	}
	if string(raw) == "false" {
		return false
	}
	return true
}

// Shutdown performs the graceful shutdown/exit sequence, waits up to two
// seconds for the process to exit on its own, then kills it if it is
// still running and releases the pipes.
func (c *Client) Shutdown(ctx context.Context) error {
	_, callErr := c.call(ctx, "shutdown", nil, 5*time.Second)
	notifyErr := c.notify("exit", nil)
	if c.cmd != nil && c.cmd.Process != nil {
		exited := make(chan struct{})
		go func() {
			_, _ = c.cmd.Process.Wait()
			close(exited)
		}()
		select {
		case <-exited:
		case <-time.After(2 * time.Second):
		}
	}
	c.Close()
	if callErr != nil {
		return callErr
	}
	return notifyErr
}

// Close terminates the child process without the graceful handshake,
// used on a transport error where shutdown/exit cannot be trusted.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.stdin.Close()
		if c.cmd != nil && c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
			_, _ = c.cmd.Process.Wait()
		}
	})
}

func (c *Client) nextRequestID() int64 {
	return atomic.AddInt64(&c.nextID, 1)
}

// OpenDocument sends textDocument/didOpen, required by most servers
// before any document-scoped request (documentSymbol, references,
// definition, hover) resolves correctly.
func (c *Client) OpenDocument(uri, languageID, text string) error {
	return c.notify("textDocument/didOpen", map[string]interface{}{
		"textDocument": map[string]interface{}{
			"uri":        uri,
			"languageId": languageID,
			"version":    1,
			"text":       text,
		},
	})
}

// CloseDocument sends textDocument/didClose, releasing server-side state
// for a file once the engine is done extracting its symbols.
func (c *Client) CloseDocument(uri string) error {
	return c.notify("textDocument/didClose", map[string]interface{}{
		"textDocument": map[string]string{"uri": uri},
	})
}

func (c *Client) call(ctx context.Context, method string, params interface{}, fallbackTimeout time.Duration) (json.RawMessage, error) {
	id := c.nextRequestID()
	ch := make(chan rpcResponse, 1)

	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	if err := c.write(req); err != nil {
		return nil, ierrors.NewTransportError(c.language, err)
	}

	timeout := fallbackTimeout
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		return nil, ierrors.NewTransportError(c.language, fmt.Errorf("client closed while awaiting %s", method))
	case <-deadline.C:
		return nil, ierrors.NewTimeoutError(method, "", timeout)
	case resp := <-ch:
		if resp.Error != nil {
			return nil, ierrors.NewProtocolError(method, resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	}
}

// callTimed is call with a predictor-derived timeout for a specific
// file, recording the observed wall time back into the predictor on
// success so future estimates improve, and the elapsed budget on a
// timeout so the miss lengthens future estimates.
func (c *Client) callTimed(ctx context.Context, method string, params interface{}, fileSize int64, lineCount int) (json.RawMessage, error) {
	timeout := c.predictor.Predict(fileSize, lineCount)
	start := time.Now()
	result, err := c.call(ctx, method, params, timeout)
	if _, timedOut := err.(*ierrors.TimeoutError); err == nil || timedOut {
		c.predictor.RecordProcessing(fileSize, lineCount, time.Since(start))
	}
	return result, err
}

func (c *Client) notify(method string, params interface{}) error {
	n := rpcNotification{JSONRPC: "2.0", Method: method, Params: params}
	return c.write(n)
}

func (c *Client) write(msg interface{}) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body))
	_, err = c.stdin.Write(append([]byte(header), body...))
	return err
}

// readLoop owns the stdout reader for the lifetime of the client,
// dispatching each framed response to its waiting caller by id.
// Notifications and requests the server sends unsolicited (e.g.
// window/logMessage) are logged and discarded — the engine never
// registers server-to-client handlers.
func (c *Client) readLoop() {
	for {
		length, err := readContentLength(c.stdout)
		if err != nil {
			c.readErr.Store(err)
			c.failAllPending(err)
			return
		}
		body := make([]byte, length)
		if _, err := io.ReadFull(c.stdout, body); err != nil {
			c.readErr.Store(err)
			c.failAllPending(err)
			return
		}

		var resp rpcResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			log.Warn("malformed lsp message, discarding", "language", c.language, "error", err)
			continue
		}
		var inbound struct {
			Method string `json:"method"`
		}
		_ = json.Unmarshal(body, &inbound)
		if resp.ID == 0 || inbound.Method != "" {
			// notification or request from the server; not handled
			log.Debug("discarding server-initiated message", "language", c.language, "method", inbound.Method)
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[resp.ID]
		c.pendingMu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (c *Client) failAllPending(err error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		ch <- rpcResponse{ID: id, Error: &rpcError{Code: -32000, Message: err.Error()}}
	}
}

// readContentLength reads header lines up to the blank line separator
// and returns the declared Content-Length, per the LSP base protocol.
func readContentLength(r *bufio.Reader) (int, error) {
	length := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return 0, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if strings.HasPrefix(strings.ToLower(line), "content-length:") {
			v := strings.TrimSpace(line[len("content-length:"):])
			n, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("bad content-length %q: %w", v, err)
			}
			length = n
		}
	}
	if length < 0 {
		return 0, fmt.Errorf("missing content-length header")
	}
	return length, nil
}
