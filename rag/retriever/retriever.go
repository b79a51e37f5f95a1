package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	ragerrors "github.com/sweetpotato0/ragguard/errors"
	"github.com/sweetpotato0/ragguard/pkg/logging"
	"github.com/sweetpotato0/ragguard/rag/chunking"
	"github.com/sweetpotato0/ragguard/rag/document"
	"github.com/sweetpotato0/ragguard/rag/embedder"
	"github.com/sweetpotato0/ragguard/rag/reranker"
	"github.com/sweetpotato0/ragguard/rag/workflow"
	"github.com/sweetpotato0/ragguard/vector"
)

// Config controls retrieval behaviour.
type Config struct {
	SearchTopK int
	RerankTopK int
}

// Option customizes retriever config.
type Option func(*Config)

// WithSearchTopK sets the number of neighbors fetched from the vector store.
func WithSearchTopK(k int) Option {
	return func(cfg *Config) {
		if k > 0 {
			cfg.SearchTopK = k
		}
	}
}

// WithRerankTopK sets how many passages survive reranking.
func WithRerankTopK(k int) Option {
	return func(cfg *Config) {
		if k > 0 {
			cfg.RerankTopK = k
		}
	}
}

// Retriever coordinates chunking, embedding, similarity search, and
// reranking. It implements workflow.Retriever.
type Retriever struct {
	store    vector.VectorStore
	embedder embedder.Embedder
	chunker  chunking.Chunker
	reranker reranker.Reranker
	cfg      Config
	logger   *slog.Logger

	mu        sync.RWMutex
	documents map[string]document.Document
	chunks    map[string]document.Chunk
}

// New creates a retriever.
func New(store vector.VectorStore, emb embedder.Embedder, chunker chunking.Chunker, rer reranker.Reranker, opts ...Option) (*Retriever, error) {
	if store == nil || emb == nil || chunker == nil {
		return nil, fmt.Errorf("%w: retriever requires store, embedder, and chunker", ragerrors.ErrConfiguration)
	}

	cfg := Config{
		SearchTopK: 8,
		RerankTopK: 5,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Retriever{
		store:     store,
		embedder:  emb,
		chunker:   chunker,
		reranker:  rer,
		cfg:       cfg,
		logger:    logging.WithComponent("retriever"),
		documents: make(map[string]document.Document),
		chunks:    make(map[string]document.Chunk),
	}, nil
}

// IndexDocuments ingests documents: chunk, embed, store.
func (r *Retriever) IndexDocuments(ctx context.Context, docs ...document.Document) error {
	for _, doc := range docs {
		document.EnsureDocumentID(&doc)
		chunks, err := r.chunker.Chunk(ctx, doc)
		if err != nil {
			return fmt.Errorf("chunk document %s: %w", doc.ID, err)
		}

		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Content
		}
		vectors, err := r.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed document %s: %w", doc.ID, err)
		}
		if len(vectors) != len(chunks) {
			return fmt.Errorf("embed document %s: got %d vectors for %d chunks", doc.ID, len(vectors), len(chunks))
		}

		for i, chunk := range chunks {
			embedding := &vector.Embedding{
				ID:     chunk.ID,
				Vector: vectors[i],
				Text:   chunk.Content,
			}
			if err := r.store.AddEmbedding(ctx, embedding); err != nil {
				return fmt.Errorf("store chunk %s: %w", chunk.ID, err)
			}

			r.mu.Lock()
			r.chunks[chunk.ID] = chunk.Clone()
			r.documents[doc.ID] = doc.Clone()
			r.mu.Unlock()
		}

		r.logger.Info("indexed document", "document", doc.ID, "chunks", len(chunks))
	}
	return nil
}

// Retrieve runs semantic search for the query and returns the top passages
// with their provenance labels.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]workflow.Passage, error) {
	if topK <= 0 {
		topK = r.cfg.RerankTopK
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", ragerrors.ErrRetrieval, err)
	}

	searchK := r.cfg.SearchTopK
	if searchK < topK {
		searchK = topK
	}
	hits, err := r.store.Search(ctx, queryVec, searchK)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", ragerrors.ErrRetrieval, err)
	}

	candidates := make([]reranker.Candidate, 0, len(hits))
	for _, hit := range hits {
		chunk, ok := r.lookupChunk(hit.ID)
		if !ok {
			continue
		}
		candidates = append(candidates, reranker.Candidate{
			Chunk:  chunk,
			Vector: hit.Vector,
			Score:  vector.CosineSimilarity(queryVec, hit.Vector),
		})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	if r.reranker != nil {
		ranked, err := r.reranker.Rank(ctx, queryVec, candidates)
		if err != nil {
			return nil, fmt.Errorf("%w: rerank: %v", ragerrors.ErrRetrieval, err)
		}
		if len(ranked) > topK {
			ranked = ranked[:topK]
		}
		passages := make([]workflow.Passage, 0, len(ranked))
		for _, res := range ranked {
			passages = append(passages, r.passage(res.Chunk, res.Score))
		}
		return passages, nil
	}

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	passages := make([]workflow.Passage, 0, len(candidates))
	for _, cand := range candidates {
		passages = append(passages, r.passage(cand.Chunk, cand.Score))
	}
	return passages, nil
}

// Stats reports the size of the indexed corpus.
func (r *Retriever) Stats(ctx context.Context) (workflow.CollectionStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return workflow.CollectionStats{DocumentCount: len(r.documents)}, nil
}

// passage turns a chunk into a workflow passage with its provenance label.
func (r *Retriever) passage(chunk document.Chunk, score float32) workflow.Passage {
	source := ""
	if chunk.Metadata != nil {
		if s, ok := chunk.Metadata["source"].(string); ok {
			source = s
		}
	}
	if source == "" {
		r.mu.RLock()
		if doc, ok := r.documents[chunk.DocumentID]; ok {
			source = doc.Source()
		}
		r.mu.RUnlock()
	}
	if source == "" {
		source = "Unknown"
	}
	return workflow.Passage{
		Content:  chunk.Content,
		SourceID: source,
		Score:    score,
	}
}

func (r *Retriever) lookupChunk(id string) (document.Chunk, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chunk, ok := r.chunks[id]
	if !ok {
		return document.Chunk{}, false
	}
	return chunk.Clone(), true
}

// Document fetches an indexed document by ID.
func (r *Retriever) Document(id string) (document.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.documents[id]
	if !ok {
		return document.Document{}, false
	}
	return doc.Clone(), true
}

// Clear drops all indexed state.
func (r *Retriever) Clear(ctx context.Context) error {
	if err := r.store.Clear(ctx); err != nil {
		return fmt.Errorf("%w: clear store: %v", ragerrors.ErrRetrieval, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = make(map[string]document.Chunk)
	r.documents = make(map[string]document.Document)
	return nil
}

// Count returns the number of chunks indexed.
func (r *Retriever) Count(ctx context.Context) (int, error) {
	return r.store.Count(ctx)
}
