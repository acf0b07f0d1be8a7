package search

import (
	"context"
	"fmt"

	"github.com/ProducerMatt/stampy-chat/db/searchdb"
	"github.com/ProducerMatt/stampy-chat/db/vectordb"
	"github.com/ProducerMatt/stampy-chat/embeddings"
	"github.com/ProducerMatt/stampy-chat/logger"
)

// Searcher represents the lexical index operations needed for search.
type Searcher interface {
	Search(queryString string, limit int, offset int) (*searchdb.Response, error)
}

// BlockStore represents the block store operations needed for search.
type BlockStore interface {
	GetBlock(id string) (vectordb.Block, error)
	TopK(queryVector []float32, k int) ([]vectordb.Match, error)
}

type Service struct {
	logger   logger.Logger
	index    Searcher
	blocks   BlockStore
	embedder embeddings.Client
}

func New(logger logger.Logger, index Searcher, blocks BlockStore, embedder embeddings.Client) *Service {
	return &Service{
		logger:   logger,
		index:    index,
		blocks:   blocks,
		embedder: embedder,
	}
}

// Semantic returns the k corpus blocks closest to the query in embedding
// space, best match first.
func (s *Service) Semantic(ctx context.Context, query string, k int) ([]vectordb.Block, error) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected one query vector, got %d", len(vectors))
	}

	matches, err := s.blocks.TopK(vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}

	blocks := make([]vectordb.Block, 0, len(matches))
	for _, match := range matches {
		blocks = append(blocks, match.Block)
	}

	return blocks, nil
}

// Result is one lexical hit hydrated with its stored block.
type Result struct {
	Block vectordb.Block
	Score float64
}

type LexicalResponse struct {
	Results []Result
	Total   uint64
}

// Lexical runs a full-text query over the index and hydrates each hit from
// the block store. Hits whose block has been removed since indexing are
// dropped from the page.
func (s *Service) Lexical(query string, limit, offset int) (*LexicalResponse, error) {
	response, err := s.index.Search(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	results := make([]Result, 0, len(response.Results))
	for _, hit := range response.Results {
		block, err := s.blocks.GetBlock(hit.ID)
		if err != nil {
			s.logger.Warn("indexed block missing from block store", "id", hit.ID, "err", err.Error())
			continue
		}
		results = append(results, Result{Block: block, Score: hit.Score})
	}

	return &LexicalResponse{Results: results, Total: response.Total}, nil
}
