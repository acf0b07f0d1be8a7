package ingest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ProducerMatt/stampy-chat/db/kvdb"
)

// MetadataStore represents the key-value operations needed to track ingest
// requests, article fingerprints and corpus stats.
type MetadataStore interface {
	Set(bucket, key, value string) error
	Get(bucket, key string) (string, error)
	Delete(bucket, key string) error
	GetAllKeys(bucket string) ([]string, error)
}

// ArticleMetadata records what a previous run stored for an article.
type ArticleMetadata struct {
	Fingerprint string    `json:"fingerprint"`
	Blocks      int       `json:"blocks"`
	IngestedAt  time.Time `json:"ingested_at"`
}

func (s *Service) setArticleMetadata(articleKey string, metadata ArticleMetadata) error {
	if articleKey == "" {
		s.logger.Error("article key cannot be empty")
		return fmt.Errorf("article key cannot be empty")
	}

	data, err := json.Marshal(metadata)
	if err != nil {
		s.logger.Error("failed to marshal metadata", "article_key", articleKey, "err", err.Error())
		return fmt.Errorf("failed to marshal metadata for %s: %w", articleKey, err)
	}

	if err := s.meta.Set(kvdb.ArticlesBucket, articleKey, string(data)); err != nil {
		s.logger.Error("failed to set article metadata", "article_key", articleKey, "err", err.Error())
		return err
	}

	return nil
}

func (s *Service) getArticleMetadata(articleKey string) (*ArticleMetadata, error) {
	value, err := s.meta.Get(kvdb.ArticlesBucket, articleKey)
	if err != nil {
		return nil, err
	}

	var metadata ArticleMetadata
	if err := json.Unmarshal([]byte(value), &metadata); err != nil {
		s.logger.Error("failed to unmarshal metadata", "article_key", articleKey, "err", err.Error())
		return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", articleKey, err)
	}

	return &metadata, nil
}
