package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/aoba-labs/mocabot/internal/corpus"
)

// Config holds retrieval configuration
type Config struct {
	// StoryDir is the directory holding the story corpus
	StoryDir string

	// PersonaName is the short name used by the corpus relevance filter
	PersonaName string

	// VectorCachePath and MetaCachePath are the companion index artifacts.
	// They version together: loading one without the other counts as no
	// cache at all.
	VectorCachePath string
	MetaCachePath   string

	// EmbedderModel is the embedding model identifier
	EmbedderModel string

	// EmbedderDimension is the embedding vector dimension
	EmbedderDimension int
}

// DefaultConfig returns configuration from environment variables with
// sensible defaults.
func DefaultConfig() Config {
	dimension := 1536
	if raw := os.Getenv("EMBEDDING_DIMENSION"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			dimension = parsed
		}
	}

	return Config{
		StoryDir:          envOr("STORY_DIR", "story"),
		PersonaName:       envOr("CHARACTER_NAME", "Moka"),
		VectorCachePath:   envOr("EMBEDDING_CACHE_PATH", "story_embedding_cache.bin"),
		MetaCachePath:     envOr("META_CACHE_PATH", "story_meta_cache.json"),
		EmbedderModel:     envOr("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbedderDimension: dimension,
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// Result is a retrieval hit augmented with the full dialogue re-read from
// the source record at query time. Results are transient, never persisted.
type Result struct {
	Score       float32
	Entry       corpus.Entry
	FullContent string
}

// Retriever answers top-k story queries. The embedding backend and the
// index are both loaded lazily on first use and reused for the process
// lifetime; Reset drops them for tests and explicit rebuilds.
//
// Concurrent queries are safe. A rebuild swaps the index contents
// atomically, so readers never observe a half-built matrix.
type Retriever struct {
	config      Config
	newEmbedder func() (Embedder, error)

	mu       sync.Mutex
	embedder Embedder
	index    *Index
	ready    bool
}

// NewRetriever creates a retriever backed by the OpenAI embedder.
func NewRetriever(config Config) *Retriever {
	return &Retriever{
		config: config,
		newEmbedder: func() (Embedder, error) {
			return NewOpenAIEmbedder(config.EmbedderModel, config.EmbedderDimension)
		},
		index: NewIndex(),
	}
}

// NewRetrieverWithEmbedder creates a retriever with an injected embedder,
// so tests can substitute a deterministic fake.
func NewRetrieverWithEmbedder(config Config, embedder Embedder) *Retriever {
	return &Retriever{
		config:      config,
		newEmbedder: func() (Embedder, error) { return embedder, nil },
		index:       NewIndex(),
	}
}

// IsReady reports whether the index has been loaded or built.
func (r *Retriever) IsReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// Reset drops the loaded index and embedding backend. The next query
// loads or rebuilds from scratch.
func (r *Retriever) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embedder = nil
	r.index = NewIndex()
	r.ready = false
}

// Rebuild re-scans the corpus, re-encodes every entry and persists the
// companion artifacts. The previous index stays queryable until the new
// pair is swapped in.
func (r *Retriever) Rebuild(ctx context.Context) error {
	embedder, err := r.ensureEmbedder()
	if err != nil {
		return err
	}

	entries, err := corpus.LoadEntries(r.config.StoryDir, r.config.PersonaName)
	if err != nil {
		return err
	}

	log.Printf("[RAG] Building index for %d corpus entries", len(entries))
	if err := r.index.Build(ctx, embedder, entries); err != nil {
		return err
	}

	r.mu.Lock()
	r.ready = true
	r.mu.Unlock()

	if r.index.Len() == 0 {
		log.Printf("[RAG] Corpus produced no embeddable entries, nothing cached")
		return nil
	}

	if err := r.index.Save(r.config.VectorCachePath, r.config.MetaCachePath); err != nil {
		return err
	}
	log.Printf("[RAG] Cached %d entries", r.index.Len())
	return nil
}

// FindRelevant returns the topN most similar corpus entries for the query
// text, each augmented with its full dialogue content. An empty or absent
// corpus yields an empty result, not an error; the index is lazily loaded
// or rebuilt once on first use.
func (r *Retriever) FindRelevant(ctx context.Context, query string, topN int) ([]Result, error) {
	if err := r.ensureIndex(ctx); err != nil {
		return nil, err
	}

	if r.index.Len() == 0 {
		return nil, nil
	}

	embedder, err := r.ensureEmbedder()
	if err != nil {
		return nil, err
	}

	vectors, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches := r.index.Query(vectors[0], topN)

	results := make([]Result, len(matches))
	for i, match := range matches {
		content, err := corpus.ReadDialogue(r.config.StoryDir, match.Entry.FileName)
		if err != nil {
			// The match itself still stands; only the context goes missing.
			log.Printf("[RAG] Failed to re-read %s: %v", match.Entry.FileName, err)
			content = ""
		}
		results[i] = Result{
			Score:       match.Score,
			Entry:       match.Entry,
			FullContent: content,
		}
	}

	return results, nil
}

// ensureEmbedder loads the embedding backend at most once.
func (r *Retriever) ensureEmbedder() (Embedder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.embedder != nil {
		return r.embedder, nil
	}

	log.Printf("[RAG] Loading embedding model %s", r.config.EmbedderModel)
	embedder, err := r.newEmbedder()
	if err != nil {
		return nil, err
	}
	r.embedder = embedder
	return embedder, nil
}

// ensureIndex loads the cached artifacts, or rebuilds from the corpus when
// the cache is unavailable. Runs at most once; an absent corpus leaves an
// empty index in place so later queries return empty results cheaply.
func (r *Retriever) ensureIndex(ctx context.Context) error {
	r.mu.Lock()
	if r.ready {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	err := r.index.Load(r.config.VectorCachePath, r.config.MetaCachePath)
	if err == nil {
		log.Printf("[RAG] Loaded %d entries from cache", r.index.Len())
		r.mu.Lock()
		r.ready = true
		r.mu.Unlock()
		return nil
	}
	if !errors.Is(err, ErrCacheUnavailable) {
		return err
	}

	log.Printf("[RAG] No usable cache, rebuilding from corpus: %v", err)
	if rebuildErr := r.Rebuild(ctx); rebuildErr != nil {
		if errors.Is(rebuildErr, corpus.ErrCorpusMissing) {
			// Degrade to an empty index; retrieval returns no context.
			log.Printf("[RAG] %v", rebuildErr)
			r.mu.Lock()
			r.ready = true
			r.mu.Unlock()
			return nil
		}
		return rebuildErr
	}
	return nil
}
