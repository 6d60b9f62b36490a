package lspclient

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipePair(t *testing.T) (*io.PipeReader, *io.PipeWriter) {
	t.Helper()
	r, w := io.Pipe()
	return r, w
}

func writeFrame(t *testing.T, w *strings.Builder, msg interface{}) {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(body))
	w.Write(body)
}

func TestReadContentLength(t *testing.T) {
	var buf strings.Builder
	buf.WriteString("Content-Length: 13\r\n\r\n")
	r := bufio.NewReader(strings.NewReader(buf.String()))
	n, err := readContentLength(r)
	require.NoError(t, err)
	assert.Equal(t, 13, n)
}

func TestReadContentLength_MissingHeader(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("\r\n"))
	_, err := readContentLength(r)
	assert.Error(t, err)
}

func TestReadContentLength_CaseInsensitive(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("content-length: 5\r\n\r\n"))
	n, err := readContentLength(r)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestWriteFramesContentLengthHeader(t *testing.T) {
	pr, pw := pipePair(t)
	defer pr.Close()
	defer pw.Close()

	c := &Client{stdin: pw}
	done := make(chan struct{})
	var got string
	go func() {
		buf := make([]byte, 256)
		n, _ := pr.Read(buf)
		got = string(buf[:n])
		close(done)
	}()

	require.NoError(t, c.write(rpcNotification{JSONRPC: "2.0", Method: "initialized"}))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for write")
	}
	assert.Contains(t, got, "Content-Length:")
	assert.Contains(t, got, `"method":"initialized"`)
}

func TestDecodeDocumentSymbolResult_Hierarchical(t *testing.T) {
	raw := mustMarshal(t, []DocumentSymbol{{Name: "main", Kind: SymbolKindFunction}})
	hier, flat, err := decodeDocumentSymbolResult(raw)
	require.NoError(t, err)
	assert.Nil(t, flat)
	require.Len(t, hier, 1)
	assert.Equal(t, "main", hier[0].Name)
}

func TestDecodeDocumentSymbolResult_Flat(t *testing.T) {
	raw := mustMarshal(t, []SymbolInformation{{Name: "main", Kind: SymbolKindFunction}})
	hier, flat, err := decodeDocumentSymbolResult(raw)
	require.NoError(t, err)
	assert.Nil(t, hier)
	require.Len(t, flat, 1)
	assert.Equal(t, "main", flat[0].Name)
}

func TestParseCapabilities(t *testing.T) {
	raw := json.RawMessage(`{"capabilities":{"workspaceSymbolProvider":true,"documentSymbolProvider":{"label":"x"}}}`)
	caps := parseCapabilities(raw)
	assert.True(t, caps.WorkspaceSymbolProvider)
	assert.True(t, caps.DocumentSymbolProvider)
}

func TestParseCapabilities_Absent(t *testing.T) {
	raw := json.RawMessage(`{"capabilities":{}}`)
	caps := parseCapabilities(raw)
	assert.False(t, caps.WorkspaceSymbolProvider)
	assert.False(t, caps.DocumentSymbolProvider)
}

func TestParseCapabilities_ExplicitFalse(t *testing.T) {
	raw := json.RawMessage(`{"capabilities":{"workspaceSymbolProvider":false}}`)
	caps := parseCapabilities(raw)
	assert.False(t, caps.WorkspaceSymbolProvider)
}

func TestDecodeDocumentSymbolResult_Null(t *testing.T) {
	hier, flat, err := decodeDocumentSymbolResult(json.RawMessage("null"))
	require.NoError(t, err)
	assert.Nil(t, hier)
	assert.Nil(t, flat)
}

func mustMarshal(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// TestCall_RoundTripOverInMemoryPipe wires a Client directly to an
// in-memory fake server (no child process) to exercise call()+readLoop
// together: request goes out framed, a framed response comes back and
// is routed to the right pending channel by id.
func TestCall_RoundTripOverInMemoryPipe(t *testing.T) {
	serverIn, clientOut := io.Pipe()  // client writes to clientOut, fake server reads from serverIn
	clientIn, serverOut := io.Pipe() // fake server writes to serverOut, client reads from clientIn

	c := &Client{
		language:  "go",
		stdin:     clientOut,
		stdout:    bufio.NewReader(clientIn),
		pending:   make(map[int64]chan rpcResponse),
		predictor: NewTimeoutPredictor(time.Second, time.Minute),
		closed:    make(chan struct{}),
	}
	go c.readLoop()
	defer c.Close()

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		serverReader := bufio.NewReader(serverIn)
		n, err := readContentLength(serverReader)
		if err != nil {
			return
		}
		body := make([]byte, n)
		if _, err := io.ReadFull(serverReader, body); err != nil {
			return
		}
		var req rpcRequest
		_ = json.Unmarshal(body, &req)

		var sb strings.Builder
		writeFrame(t, &sb, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: mustMarshal(t, map[string]string{"ok": "true"})})
		serverOut.Write([]byte(sb.String()))
	}()

	result, err := c.call(t.Context(), "initialize", map[string]interface{}{}, 2*time.Second)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":"true"}`, string(result))

	<-serverDone
	serverIn.Close()
	serverOut.Close()
}
