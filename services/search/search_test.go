package search

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ProducerMatt/stampy-chat/db/searchdb"
	"github.com/ProducerMatt/stampy-chat/db/vectordb"
	"github.com/ProducerMatt/stampy-chat/logger"
)

func newTestLogger() logger.Logger {
	return logger.NewWithWriter(io.Discard)
}

type fakeEmbedder struct {
	vector []float32
	err    error
	texts  []string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.texts = append(f.texts, texts...)
	if f.err != nil {
		return nil, f.err
	}

	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = f.vector
	}
	return vectors, nil
}

type fakeBlockStore struct {
	blocks  map[string]vectordb.Block
	matches []vectordb.Match
	gotK    int
	gotVec  []float32
}

func (f *fakeBlockStore) GetBlock(id string) (vectordb.Block, error) {
	block, ok := f.blocks[id]
	if !ok {
		return vectordb.Block{}, vectordb.ErrNotFound
	}
	return block, nil
}

func (f *fakeBlockStore) TopK(queryVector []float32, k int) ([]vectordb.Match, error) {
	f.gotVec = queryVector
	f.gotK = k
	return f.matches, nil
}

type fakeSearcher struct {
	response *searchdb.Response
	err      error
	gotQuery string
	gotLimit int
	gotOff   int
}

func (f *fakeSearcher) Search(queryString string, limit int, offset int) (*searchdb.Response, error) {
	f.gotQuery = queryString
	f.gotLimit = limit
	f.gotOff = offset
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func TestSemanticReturnsBlocksInMatchOrder(t *testing.T) {
	assert := require.New(t)

	first := vectordb.Block{ID: "b1", Title: "Best Match", Text: "closest block"}
	second := vectordb.Block{ID: "b2", Title: "Runner Up", Text: "second block"}
	blocks := &fakeBlockStore{
		matches: []vectordb.Match{
			{Block: first, Score: 0.97},
			{Block: second, Score: 0.82},
		},
	}
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}}

	service := New(newTestLogger(), &fakeSearcher{}, blocks, embedder)

	got, err := service.Semantic(context.Background(), "what is inner alignment", 2)
	assert.NoError(err)
	assert.Equal([]vectordb.Block{first, second}, got)

	assert.Equal([]string{"what is inner alignment"}, embedder.texts)
	assert.Equal([]float32{0.1, 0.2, 0.3}, blocks.gotVec)
	assert.Equal(2, blocks.gotK)
}

func TestSemanticEmbedErrorPropagates(t *testing.T) {
	assert := require.New(t)

	embedder := &fakeEmbedder{err: errors.New("backend down")}
	service := New(newTestLogger(), &fakeSearcher{}, &fakeBlockStore{}, embedder)

	_, err := service.Semantic(context.Background(), "query", 5)
	assert.Error(err)
	assert.Contains(err.Error(), "failed to embed query")
}

func TestLexicalHydratesBlocks(t *testing.T) {
	assert := require.New(t)

	index := &fakeSearcher{
		response: &searchdb.Response{
			Results: []searchdb.Result{
				{ID: "b1", Score: 2.5},
				{ID: "b2", Score: 1.1},
			},
			Total: 42,
		},
	}
	blocks := &fakeBlockStore{
		blocks: map[string]vectordb.Block{
			"b1": {ID: "b1", Title: "First"},
			"b2": {ID: "b2", Title: "Second"},
		},
	}

	service := New(newTestLogger(), index, blocks, &fakeEmbedder{})

	got, err := service.Lexical("alignment", 20, 40)
	assert.NoError(err)

	assert.Equal("alignment", index.gotQuery)
	assert.Equal(20, index.gotLimit)
	assert.Equal(40, index.gotOff)

	assert.Equal(uint64(42), got.Total)
	assert.Len(got.Results, 2)
	assert.Equal("First", got.Results[0].Block.Title)
	assert.Equal(2.5, got.Results[0].Score)
	assert.Equal("Second", got.Results[1].Block.Title)
}

func TestLexicalSkipsMissingBlocks(t *testing.T) {
	assert := require.New(t)

	index := &fakeSearcher{
		response: &searchdb.Response{
			Results: []searchdb.Result{
				{ID: "b1", Score: 2.0},
				{ID: "orphan", Score: 1.5},
			},
			Total: 2,
		},
	}
	blocks := &fakeBlockStore{
		blocks: map[string]vectordb.Block{
			"b1": {ID: "b1", Title: "Present"},
		},
	}

	service := New(newTestLogger(), index, blocks, &fakeEmbedder{})

	got, err := service.Lexical("query", 10, 0)
	assert.NoError(err)
	assert.Len(got.Results, 1)
	assert.Equal("b1", got.Results[0].Block.ID)
	assert.Equal(uint64(2), got.Total)
}

func TestLexicalIndexErrorPropagates(t *testing.T) {
	assert := require.New(t)

	index := &fakeSearcher{err: errors.New("index unavailable")}
	service := New(newTestLogger(), index, &fakeBlockStore{}, &fakeEmbedder{})

	_, err := service.Lexical("query", 10, 0)
	assert.Error(err)
	assert.Contains(err.Error(), "failed to search index")
}
