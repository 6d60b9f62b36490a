package lspclient

import (
	"context"
	"encoding/json"
	"fmt"
)

// DocumentSymbols issues textDocument/documentSymbol for uri (file size
// and line count feed the timeout predictor, not the request itself).
// Servers may reply with the hierarchical DocumentSymbol[] shape or the
// flat SymbolInformation[] shape; the engine's extraction layer
// (internal/extract) normalizes whichever comes back, so both are
// decoded here and returned separately.
func (c *Client) DocumentSymbols(ctx context.Context, uri string, fileSize int64, lineCount int) ([]DocumentSymbol, []SymbolInformation, error) {
	params := map[string]interface{}{
		"textDocument": map[string]string{"uri": uri},
	}
	raw, err := c.callTimed(ctx, "textDocument/documentSymbol", params, fileSize, lineCount)
	if err != nil {
		return nil, nil, err
	}
	return decodeDocumentSymbolResult(raw)
}

// decodeDocumentSymbolResult normalizes a textDocument/documentSymbol
// response, which servers may shape as either hierarchical
// DocumentSymbol[] or flat SymbolInformation[].
func decodeDocumentSymbolResult(raw json.RawMessage) ([]DocumentSymbol, []SymbolInformation, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil, nil
	}

	// SymbolInformation always carries a location; DocumentSymbol never does.
	var shapes []struct {
		Location json.RawMessage `json:"location"`
	}
	if err := json.Unmarshal(raw, &shapes); err == nil && len(shapes) > 0 && shapes[0].Location == nil {
		var hierarchical []DocumentSymbol
		if err := json.Unmarshal(raw, &hierarchical); err == nil {
			return hierarchical, nil, nil
		}
	}

	var flat []SymbolInformation
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, nil, fmt.Errorf("decode documentSymbol response: %w", err)
	}
	return nil, flat, nil
}

// WorkspaceSymbol issues workspace/symbol for a query string, used by
// the extraction layer's workspace-wide symbol discovery pass.
func (c *Client) WorkspaceSymbol(ctx context.Context, query string) ([]SymbolInformation, error) {
	params := map[string]interface{}{"query": query}
	raw, err := c.call(ctx, "workspace/symbol", params, defaultRequestTimeout)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var result []SymbolInformation
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode workspace/symbol response: %w", err)
	}
	return result, nil
}

// References issues textDocument/references at pos in uri.
func (c *Client) References(ctx context.Context, uri string, pos Position, includeDeclaration bool) ([]Location, error) {
	params := map[string]interface{}{
		"textDocument": map[string]string{"uri": uri},
		"position":     pos,
		"context":      map[string]bool{"includeDeclaration": includeDeclaration},
	}
	raw, err := c.call(ctx, "textDocument/references", params, defaultRequestTimeout)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var result []Location
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode references response: %w", err)
	}
	return result, nil
}

// Definition issues textDocument/definition at pos in uri. Servers may
// reply with a single Location or an array; both are normalized to a
// slice.
func (c *Client) Definition(ctx context.Context, uri string, pos Position) ([]Location, error) {
	params := map[string]interface{}{
		"textDocument": map[string]string{"uri": uri},
		"position":     pos,
	}
	raw, err := c.call(ctx, "textDocument/definition", params, defaultRequestTimeout)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var single Location
	if err := json.Unmarshal(raw, &single); err == nil && single.URI != "" {
		return []Location{single}, nil
	}
	var multi []Location
	if err := json.Unmarshal(raw, &multi); err != nil {
		return nil, fmt.Errorf("decode definition response: %w", err)
	}
	return multi, nil
}

// Hover issues textDocument/hover at pos in uri.
func (c *Client) Hover(ctx context.Context, uri string, pos Position) (*Hover, error) {
	params := map[string]interface{}{
		"textDocument": map[string]string{"uri": uri},
		"position":     pos,
	}
	raw, err := c.call(ctx, "textDocument/hover", params, defaultRequestTimeout)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var h Hover
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("decode hover response: %w", err)
	}
	return &h, nil
}

const defaultRequestTimeout = defaultFallbackTimeout
