package rag

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/aoba-labs/mocabot/internal/corpus"
)

// Common errors for index operations
var (
	ErrCacheUnavailable = errors.New("embedding cache not available")
	ErrAlignmentBroken  = errors.New("entries and embedding matrix are misaligned")
)

// vectorsMagic identifies the on-disk vector artifact format: the magic,
// a row count and a dimension (both uint32, little-endian), then the matrix
// as row-major float32 values.
const vectorsMagic = "MOCAVEC1"

// Match is one retrieval hit: the matched entry plus its cosine similarity.
type Match struct {
	Entry corpus.Entry
	Score float32
}

// Index holds the embedding matrix and its positionally aligned entry list.
// Entry i always corresponds to row i of the matrix; every mutation swaps
// both together under the write lock, so concurrent queries never observe a
// partial state.
type Index struct {
	mu      sync.RWMutex
	entries []corpus.Entry
	vectors [][]float32
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Build encodes every entry's sentence with the embedder and swaps the new
// matrix in atomically. A backend failure fails the whole build; partial
// embeddings are never accepted since alignment must be total.
func (ix *Index) Build(ctx context.Context, embedder Embedder, entries []corpus.Entry) error {
	if len(entries) == 0 {
		ix.swap(nil, nil)
		return nil
	}

	sentences := make([]string, len(entries))
	for i, entry := range entries {
		sentences[i] = entry.Sentence
	}

	vectors, err := embedder.Embed(ctx, sentences)
	if err != nil {
		return fmt.Errorf("failed to embed corpus: %w", err)
	}
	if len(vectors) != len(entries) {
		return fmt.Errorf("%w: %d entries, %d vectors", ErrAlignmentBroken, len(entries), len(vectors))
	}

	ix.swap(entries, vectors)
	return nil
}

// Query computes the cosine similarity of the query vector against every
// stored row and returns the topK best matches, strictly descending by
// score with ties broken by insertion order. topK beyond the corpus size
// returns everything; an empty index returns nothing.
func (ix *Index) Query(query []float32, topK int) []Match {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if topK <= 0 || len(ix.entries) == 0 {
		return nil
	}

	scores := make([]float32, len(ix.vectors))
	order := make([]int, len(ix.vectors))
	for i, row := range ix.vectors {
		scores[i] = cosineSimilarity(query, row)
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if topK > len(order) {
		topK = len(order)
	}

	matches := make([]Match, topK)
	for i := 0; i < topK; i++ {
		idx := order[i]
		matches[i] = Match{Entry: ix.entries[idx], Score: scores[idx]}
	}
	return matches
}

// Save persists the matrix and the entry metadata as companion artifacts.
// Both are written together; loading one without the other is meaningless.
func (ix *Index) Save(vectorsPath, metaPath string) error {
	ix.mu.RLock()
	entries := ix.entries
	vectors := ix.vectors
	ix.mu.RUnlock()

	if err := writeVectors(vectorsPath, vectors); err != nil {
		return fmt.Errorf("failed to write vector cache: %w", err)
	}

	meta, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode metadata cache: %w", err)
	}
	if err := os.WriteFile(metaPath, meta, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata cache: %w", err)
	}

	return nil
}

// Load reads both companion artifacts and swaps the pair in atomically.
// Any missing, unreadable, or mutually inconsistent artifact yields
// ErrCacheUnavailable so the caller rebuilds; there is no partial load.
func (ix *Index) Load(vectorsPath, metaPath string) error {
	vectors, err := readVectors(vectorsPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	meta, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	var entries []corpus.Entry
	if err := json.Unmarshal(meta, &entries); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	if len(entries) != len(vectors) {
		return fmt.Errorf("%w: %d metadata entries for %d vector rows",
			ErrCacheUnavailable, len(entries), len(vectors))
	}

	ix.swap(entries, vectors)
	return nil
}

// swap replaces the entries+vectors pair under the write lock.
func (ix *Index) swap(entries []corpus.Entry, vectors [][]float32) {
	ix.mu.Lock()
	ix.entries = entries
	ix.vectors = vectors
	ix.mu.Unlock()
}

// cosineSimilarity accumulates in float64 for stability and returns 0 for
// zero-norm inputs or mismatched dimensions.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func writeVectors(path string, vectors [][]float32) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}

	if _, err := file.WriteString(vectorsMagic); err != nil {
		return err
	}
	header := []uint32{uint32(len(vectors)), uint32(dim)}
	if err := binary.Write(file, binary.LittleEndian, header); err != nil {
		return err
	}

	for i, row := range vectors {
		if len(row) != dim {
			return fmt.Errorf("row %d has dimension %d, expected %d", i, len(row), dim)
		}
		if err := binary.Write(file, binary.LittleEndian, row); err != nil {
			return err
		}
	}

	return file.Close()
}

func readVectors(path string) ([][]float32, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	magic := make([]byte, len(vectorsMagic))
	if _, err := io.ReadFull(file, magic); err != nil {
		return nil, err
	}
	if string(magic) != vectorsMagic {
		return nil, fmt.Errorf("unrecognized vector cache format")
	}

	var header [2]uint32
	if err := binary.Read(file, binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	rows, dim := int(header[0]), int(header[1])

	vectors := make([][]float32, rows)
	for i := range vectors {
		row := make([]float32, dim)
		if err := binary.Read(file, binary.LittleEndian, row); err != nil {
			return nil, err
		}
		vectors[i] = row
	}

	return vectors, nil
}
