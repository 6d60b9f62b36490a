// Package ierrors defines the error taxonomy the indexing engine uses to
// decide, per failure, whether to retry, degrade a single file, or abort
// the whole update cycle.
package ierrors

import (
	"fmt"
	"time"
)

// Kind distinguishes the error categories the engine must route differently.
type Kind string

const (
	KindConfiguration    Kind = "configuration"
	KindTransport        Kind = "transport"
	KindProtocol         Kind = "protocol"
	KindTimeout          Kind = "timeout"
	KindStorage          Kind = "storage"
	KindGraphInvariant   Kind = "graph_invariant"
)

// ConfigError covers a missing binary, unreadable root, or permission
// denied — fatal to the current operation.
type ConfigError struct {
	Operation  string
	Underlying error
	Timestamp  time.Time
}

func NewConfigError(op string, err error) *ConfigError {
	return &ConfigError{Operation: op, Underlying: err, Timestamp: time.Now()}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", KindConfiguration, e.Operation, e.Underlying)
}

func (e *ConfigError) Unwrap() error { return e.Underlying }

// TransportError covers LSP framing errors, stdout EOF, and handshake
// failure. The owning client is discarded; the indexer may retry once
// with a fresh client before giving up on the affected file batch.
type TransportError struct {
	Language   string
	Underlying error
	Timestamp  time.Time
}

func NewTransportError(language string, err error) *TransportError {
	return &TransportError{Language: language, Underlying: err, Timestamp: time.Now()}
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s lsp transport failed for %s: %v", KindTransport, e.Language, e.Underlying)
}

func (e *TransportError) Unwrap() error { return e.Underlying }

// ProtocolError wraps a JSON-RPC error response, carrying the LSP error
// code and the originating request method. The affected file contributes
// no symbols this cycle; its previous symbols remain in the graph.
type ProtocolError struct {
	Method     string
	Code       int
	Message    string
	Timestamp  time.Time
}

func NewProtocolError(method string, code int, message string) *ProtocolError {
	return &ProtocolError{Method: method, Code: code, Message: message, Timestamp: time.Now()}
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s %s failed: lsp error %d: %s", KindProtocol, e.Method, e.Code, e.Message)
}

// TimeoutError marks a request that exceeded the predictor's budget. Same
// propagation policy as ProtocolError; the predictor records the miss as
// a hint to lengthen future estimates.
type TimeoutError struct {
	Method   string
	Budget   time.Duration
	FilePath string
}

func NewTimeoutError(method, filePath string, budget time.Duration) *TimeoutError {
	return &TimeoutError{Method: method, Budget: budget, FilePath: filePath}
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s timed out after %s for %s", KindTimeout, e.Method, e.Budget, e.FilePath)
}

// StorageError covers serialization failure or a KV commit error. Fatal:
// the in-memory graph may be ahead of disk, so the caller must not report
// success.
type StorageError struct {
	Operation  string
	Underlying error
}

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Operation: op, Underlying: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", KindStorage, e.Operation, e.Underlying)
}

func (e *StorageError) Unwrap() error { return e.Underlying }

// GraphInvariantError marks a programmer error — an edge to an unknown
// id, a corrupt index — that must surface with context rather than be
// silently dropped.
type GraphInvariantError struct {
	Operation string
	Detail    string
}

func NewGraphInvariantError(op, detail string) *GraphInvariantError {
	return &GraphInvariantError{Operation: op, Detail: detail}
}

func (e *GraphInvariantError) Error() string {
	return fmt.Sprintf("%s %s: %s", KindGraphInvariant, e.Operation, e.Detail)
}

// Recoverable reports whether an error is one of the three kinds the
// indexer may retry or degrade at per-file grain rather than abort on.
func Recoverable(err error) bool {
	switch err.(type) {
	case *TransportError, *ProtocolError, *TimeoutError:
		return true
	default:
		return false
	}
}
