package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/standardbeagle/lci-lsp/internal/graph"
	"github.com/standardbeagle/lci-lsp/internal/ierrors"
)

// Every persisted blob starts with a magic byte identifying the kind of
// payload and a version byte. Loading a magic/version pair the running
// binary doesn't recognize is an error, not a silent reset — per spec
// §4.2, a format we can't read must not masquerade as an empty index.
const (
	magicGraph byte = 0xC7
	magicMeta  byte = 0x4D

	versionGraph byte = 1
	versionMeta  byte = 1
)

const (
	graphNamespace = "graph"
	metaNamespace  = "meta"
	graphKey       = "current"
	metaKey        = "current"
)

// IndexMetadata is persisted alongside the graph: schema version,
// creation time, project root, file/symbol counts, content hashes used
// for change detection (§4.3), and an optional VCS commit id for the
// fast path. IdentityTag disambiguates two indexes built from the same
// path on different machines — a domain-stack addition grounded on
// google/uuid, since the VCS commit id alone can't serve that purpose
// for projects with no VCS.
type IndexMetadata struct {
	SchemaVersion int
	CreatedAt     time.Time
	ProjectRoot   string
	FileCount     int
	SymbolCount   int
	FileHashes    map[string]string
	VCSCommit     string
	IdentityTag   string
}

// NewIndexMetadata returns empty defaults for a first run, per spec
// §4.7 step 1.
func NewIndexMetadata(projectRoot string) IndexMetadata {
	return IndexMetadata{
		SchemaVersion: 1,
		CreatedAt:     time.Now(),
		ProjectRoot:   projectRoot,
		FileHashes:    make(map[string]string),
		IdentityTag:   uuid.NewString(),
	}
}

type graphWire struct {
	Symbols []graph.Symbol
	Edges   []graph.Edge
}

// SaveGraph serializes g with the magic/version header and writes it to
// the "graph" namespace.
func (s *Store) SaveGraph(ctx context.Context, g *graph.CodeGraph) error {
	wire := graphWire{Symbols: g.GetAllSymbols()}
	wire.Edges = collectEdges(g, wire.Symbols)

	body, err := json.Marshal(wire)
	if err != nil {
		return ierrors.NewStorageError("marshal graph", err)
	}

	return s.Save(ctx, graphNamespace, graphKey, frame(magicGraph, versionGraph, body))
}

// collectEdges dumps every outgoing edge for every live symbol, via
// CodeGraph.OutgoingEdges, so containment/implements/extends edges
// persist alongside definition/reference/calls-into ones.
func collectEdges(g *graph.CodeGraph, symbols []graph.Symbol) []graph.Edge {
	var edges []graph.Edge
	for _, sym := range symbols {
		edges = append(edges, g.OutgoingEdges(sym.ID)...)
	}
	return edges
}

// LoadGraph reads and deserializes the persisted graph, returning an
// empty graph on first run (no persisted value yet).
func (s *Store) LoadGraph(ctx context.Context) (*graph.CodeGraph, error) {
	raw, ok, err := s.Load(ctx, graphNamespace, graphKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return graph.NewCodeGraph(), nil
	}

	body, err := unframe(magicGraph, versionGraph, raw)
	if err != nil {
		return nil, err
	}

	var wire graphWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, ierrors.NewStorageError("unmarshal graph", err)
	}

	g := graph.NewCodeGraph()
	for _, sym := range wire.Symbols {
		g.AddSymbol(sym)
	}
	for _, e := range wire.Edges {
		g.AddEdge(e)
	}
	return g, nil
}

// SaveMetadata serializes meta with the magic/version header.
func (s *Store) SaveMetadata(ctx context.Context, meta IndexMetadata) error {
	body, err := json.Marshal(meta)
	if err != nil {
		return ierrors.NewStorageError("marshal metadata", err)
	}
	return s.Save(ctx, metaNamespace, metaKey, frame(magicMeta, versionMeta, body))
}

// LoadMetadata returns empty defaults for projectRoot on first run.
func (s *Store) LoadMetadata(ctx context.Context, projectRoot string) (IndexMetadata, error) {
	raw, ok, err := s.Load(ctx, metaNamespace, metaKey)
	if err != nil {
		return IndexMetadata{}, err
	}
	if !ok {
		return NewIndexMetadata(projectRoot), nil
	}

	body, err := unframe(magicMeta, versionMeta, raw)
	if err != nil {
		return IndexMetadata{}, err
	}

	var meta IndexMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return IndexMetadata{}, ierrors.NewStorageError("unmarshal metadata", err)
	}
	return meta, nil
}

func frame(magic, version byte, body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(magic)
	buf.WriteByte(version)
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(body)))
	buf.Write(length[:])
	buf.Write(body)
	return buf.Bytes()
}

func unframe(wantMagic, wantVersion byte, raw []byte) ([]byte, error) {
	if len(raw) < 6 {
		return nil, ierrors.NewStorageError("unframe", fmt.Errorf("payload too short: %d bytes", len(raw)))
	}
	magic, version := raw[0], raw[1]
	if magic != wantMagic {
		return nil, ierrors.NewStorageError("unframe", fmt.Errorf("unexpected magic byte 0x%02x", magic))
	}
	if version != wantVersion {
		return nil, ierrors.NewStorageError("unframe", fmt.Errorf("unsupported format version %d", version))
	}
	length := binary.BigEndian.Uint32(raw[2:6])
	body := raw[6:]
	if uint32(len(body)) != length {
		return nil, ierrors.NewStorageError("unframe", fmt.Errorf("length mismatch: header says %d, got %d", length, len(body)))
	}
	return body, nil
}
