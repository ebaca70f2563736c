package knowledge

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/google/uuid"
)

// ErrNoEmbedder is returned when a store without an embedder is asked to index or search.
var ErrNoEmbedder = errors.New("knowledge: no embedder configured")

// Document is a source text before chunking.
type Document struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// Chunk is an indexed piece of a document.
type Chunk struct {
	ID     string    `json:"id"`
	Source string    `json:"source"`
	Text   string    `json:"text"`
	Vector []float64 `json:"vector"`
}

// Store is an in-memory vector index.
type Store struct {
	mu       sync.RWMutex
	chunks   []Chunk
	embedder Embedder

	chunkSize    int
	chunkOverlap int
}

var _ ports.Retriever = (*Store)(nil)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithChunking overrides the chunk size and overlap (in runes).
func WithChunking(size, overlap int) StoreOption {
	return func(s *Store) {
		s.chunkSize = size
		s.chunkOverlap = overlap
	}
}

// NewStore creates an empty store.
func NewStore(embedder Embedder, opts ...StoreOption) *Store {
	s := &Store{
		embedder:     embedder,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add chunks, embeds and indexes docs. It returns the number of chunks added.
func (s *Store) Add(ctx context.Context, docs ...Document) (int, error) {
	if s.embedder == nil {
		return 0, ErrNoEmbedder
	}

	var pending []Chunk
	var texts []string
	for _, doc := range docs {
		for _, piece := range Split(doc.Text, s.chunkSize, s.chunkOverlap) {
			pending = append(pending, Chunk{ID: uuid.NewString(), Source: doc.Source, Text: piece})
			texts = append(texts, piece)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("knowledge: failed to embed chunks: %w", err)
	}
	if len(vectors) != len(pending) {
		return 0, fmt.Errorf("knowledge: embedder returned %d vectors for %d chunks", len(vectors), len(pending))
	}
	for i := range pending {
		pending[i].Vector = vectors[i]
	}

	s.mu.Lock()
	s.chunks = append(s.chunks, pending...)
	s.mu.Unlock()
	return len(pending), nil
}

// Search returns the k chunks closest to query, best first.
func (s *Store) Search(ctx context.Context, query string, k int) ([]domain.Snippet, error) {
	if k <= 0 {
		return []domain.Snippet{}, nil
	}
	if s.embedder == nil {
		return nil, ErrNoEmbedder
	}

	if s.Len() == 0 {
		return []domain.Snippet{}, nil
	}

	// The embedder may be remote; the lock is only held for scoring.
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("knowledge: failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("knowledge: embedder returned %d vectors for the query", len(vectors))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		chunk *Chunk
		score float64
	}
	results := make([]scored, 0, len(s.chunks))
	for i := range s.chunks {
		results = append(results, scored{chunk: &s.chunks[i], score: cosineSimilarity(vectors[0], s.chunks[i].Vector)})
	}
	slices.SortStableFunc(results, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	out := make([]domain.Snippet, 0, min(k, len(results)))
	for _, r := range results[:min(k, len(results))] {
		out = append(out, domain.Snippet{Source: r.chunk.Source, Text: r.chunk.Text})
	}
	return out, nil
}

// Len returns the number of indexed chunks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

type indexFile struct {
	Version int     `json:"version"`
	Chunks  []Chunk `json:"chunks"`
}

// Save writes the index as JSON.
func (s *Store) Save(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	enc := json.NewEncoder(w)
	if err := enc.Encode(indexFile{Version: 1, Chunks: s.chunks}); err != nil {
		return fmt.Errorf("knowledge: failed to write index: %w", err)
	}
	return nil
}

// Load replaces the indexed chunks with the ones read from r.
func (s *Store) Load(r io.Reader) error {
	var idx indexFile
	if err := json.NewDecoder(r).Decode(&idx); err != nil {
		return fmt.Errorf("knowledge: failed to read index: %w", err)
	}

	s.mu.Lock()
	s.chunks = idx.Chunks
	s.mu.Unlock()
	return nil
}

// SaveFile writes the index to path.
func (s *Store) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("knowledge: %w", err)
	}
	if err := s.Save(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads the index from path.
func (s *Store) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("knowledge: %w", err)
	}
	defer f.Close()
	return s.Load(f)
}
