package vectordb

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ProducerMatt/stampy-chat/config"
	"github.com/ProducerMatt/stampy-chat/logger"
)

var ErrNotFound = errors.New("block not found")

const (
	blocksBucket  = "blocks"
	vectorsBucket = "vectors"
)

// BoltDB persists blocks and their embedding vectors in bbolt and keeps the
// normalized vectors in memory. Scoring is a full dot-product scan over that
// matrix, which is how the corpus has always been searched; at a few hundred
// thousand blocks this is still well under interactive latency.
type BoltDB struct {
	store  *bolt.DB
	logger logger.Logger

	mu      sync.RWMutex
	ids     []string
	vectors [][]float32
	byID    map[string]int
}

func New(logger logger.Logger, cfg *config.Config) (*BoltDB, error) {
	vectorDBPath := cfg.GetVectorDBPath()
	if err := os.MkdirAll(filepath.Dir(vectorDBPath), 0755); err != nil {
		logger.Error("failed to create vector database directory", "err", err.Error(), "path", vectorDBPath)
		return nil, fmt.Errorf("failed to create vector database directory: %w", err)
	}

	store, err := bolt.Open(vectorDBPath, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		logger.Error("failed to open vector database", "err", err.Error(), "path", vectorDBPath)
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}

	boltDB := &BoltDB{
		store:  store,
		logger: logger,
		byID:   map[string]int{},
	}

	if err := boltDB.initBuckets(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	if err := boltDB.loadVectors(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}

	return boltDB, nil
}

func (b *BoltDB) initBuckets() error {
	return b.store.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{blocksBucket, vectorsBucket} {
			_, err := tx.CreateBucketIfNotExists([]byte(bucket))
			if err != nil {
				b.logger.Error("failed to create bucket", "bucket", bucket, "err", err.Error())
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
}

func (b *BoltDB) loadVectors() error {
	return b.store.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(vectorsBucket))
		return bucket.ForEach(func(k, v []byte) error {
			vector, err := decodeVector(v)
			if err != nil {
				return fmt.Errorf("failed to decode vector for block %s: %w", string(k), err)
			}
			b.upsertVector(string(k), vector)
			return nil
		})
	})
}

func (b *BoltDB) PutBlocks(blocks []Block, vectors [][]float32) error {
	if len(blocks) != len(vectors) {
		return fmt.Errorf("got %d blocks but %d vectors", len(blocks), len(vectors))
	}

	normalized := make([][]float32, len(vectors))
	for i, vector := range vectors {
		normalized[i] = normalize(vector)
	}

	err := b.store.Update(func(tx *bolt.Tx) error {
		blocksBkt := tx.Bucket([]byte(blocksBucket))
		vectorsBkt := tx.Bucket([]byte(vectorsBucket))

		for i, block := range blocks {
			if block.ID == "" {
				return fmt.Errorf("block %d has no ID", i)
			}

			payload, err := json.Marshal(block)
			if err != nil {
				return fmt.Errorf("failed to encode block %s: %w", block.ID, err)
			}
			if err := blocksBkt.Put([]byte(block.ID), payload); err != nil {
				return fmt.Errorf("failed to store block %s: %w", block.ID, err)
			}
			if err := vectorsBkt.Put([]byte(block.ID), encodeVector(normalized[i])); err != nil {
				return fmt.Errorf("failed to store vector for block %s: %w", block.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		b.logger.Error("failed to store blocks", "err", err.Error())
		return err
	}

	b.mu.Lock()
	for i, block := range blocks {
		b.upsertVector(block.ID, normalized[i])
	}
	b.mu.Unlock()

	return nil
}

func (b *BoltDB) GetBlock(id string) (Block, error) {
	var payload []byte
	err := b.store.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(blocksBucket)).Get([]byte(id))
		if v == nil {
			return fmt.Errorf("block %s: %w", id, ErrNotFound)
		}
		payload = make([]byte, len(v))
		copy(payload, v)
		return nil
	})
	if err != nil {
		return Block{}, err
	}

	var block Block
	if err := json.Unmarshal(payload, &block); err != nil {
		return Block{}, fmt.Errorf("failed to decode block %s: %w", id, err)
	}
	return block, nil
}

// ArticleBlockIDs lists the stored block IDs of one article, ordered by
// ordinal. Used when an article's blocks are replaced on re-ingestion.
func (b *BoltDB) ArticleBlockIDs(articleKey string) ([]string, error) {
	type ordered struct {
		id      string
		ordinal int
	}
	var found []ordered

	err := b.store.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(blocksBucket)).ForEach(func(k, v []byte) error {
			var block Block
			if err := json.Unmarshal(v, &block); err != nil {
				return fmt.Errorf("failed to decode block %s: %w", string(k), err)
			}
			if block.ArticleKey == articleKey {
				found = append(found, ordered{id: block.ID, ordinal: block.Ordinal})
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool { return found[i].ordinal < found[j].ordinal })

	ids := make([]string, len(found))
	for i, f := range found {
		ids[i] = f.id
	}
	return ids, nil
}

func (b *BoltDB) DeleteBlocks(ids []string) error {
	err := b.store.Update(func(tx *bolt.Tx) error {
		blocksBkt := tx.Bucket([]byte(blocksBucket))
		vectorsBkt := tx.Bucket([]byte(vectorsBucket))

		for _, id := range ids {
			if err := blocksBkt.Delete([]byte(id)); err != nil {
				return fmt.Errorf("failed to delete block %s: %w", id, err)
			}
			if err := vectorsBkt.Delete([]byte(id)); err != nil {
				return fmt.Errorf("failed to delete vector for block %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		b.logger.Error("failed to delete blocks", "err", err.Error())
		return err
	}

	b.mu.Lock()
	b.removeVectors(ids)
	b.mu.Unlock()

	return nil
}

func (b *BoltDB) TopK(queryVector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return []Match{}, nil
	}
	query := normalize(queryVector)

	type scored struct {
		id    string
		score float32
	}

	b.mu.RLock()
	scores := make([]scored, len(b.ids))
	for i, id := range b.ids {
		scores[i] = scored{id: id, score: dot(query, b.vectors[i])}
	}
	b.mu.RUnlock()

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if len(scores) > k {
		scores = scores[:k]
	}

	matches := make([]Match, 0, len(scores))
	for _, s := range scores {
		block, err := b.GetBlock(s.id)
		if err != nil {
			return nil, err
		}
		matches = append(matches, Match{Block: block, Score: s.score})
	}

	return matches, nil
}

func (b *BoltDB) Count() (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ids), nil
}

func (b *BoltDB) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}

// upsertVector assumes b.mu is held (or that no readers exist yet).
func (b *BoltDB) upsertVector(id string, vector []float32) {
	if index, ok := b.byID[id]; ok {
		b.vectors[index] = vector
		return
	}
	b.byID[id] = len(b.ids)
	b.ids = append(b.ids, id)
	b.vectors = append(b.vectors, vector)
}

// removeVectors assumes b.mu is held.
func (b *BoltDB) removeVectors(ids []string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	keptIDs := b.ids[:0]
	keptVectors := b.vectors[:0]
	byID := make(map[string]int, len(b.ids))
	for i, id := range b.ids {
		if drop[id] {
			continue
		}
		byID[id] = len(keptIDs)
		keptIDs = append(keptIDs, id)
		keptVectors = append(keptVectors, b.vectors[i])
	}
	b.ids = keptIDs
	b.vectors = keptVectors
	b.byID = byID
}

func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, f := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("vector data length %d is not a multiple of 4", len(data))
	}
	vector := make([]float32, len(data)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vector, nil
}

func normalize(vector []float32) []float32 {
	var sum float64
	for _, f := range vector {
		sum += float64(f) * float64(f)
	}

	out := make([]float32, len(vector))
	if sum == 0 {
		copy(out, vector)
		return out
	}

	norm := math.Sqrt(sum)
	for i, f := range vector {
		out[i] = float32(float64(f) / norm)
	}
	return out
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
