package ingest

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/ProducerMatt/stampy-chat/db/kvdb"
)

const statsKey = "corpus"

// Stats summarizes the last completed ingestion run: what was read, what was
// skipped, and what the stores hold afterwards.
type Stats struct {
	ArticlesBySource map[string]int `json:"articles_by_source"`
	SkippedByReason  map[string]int `json:"skipped_by_reason"`
	Articles         int            `json:"articles"`
	Blocks           int            `json:"blocks"`
	Chars            int            `json:"chars"`
	Words            int            `json:"words"`
	Sentences        int            `json:"sentences"`
	StoredBlocks     int            `json:"stored_blocks"`
	LexicalDocs      uint64         `json:"lexical_docs"`
}

func newStats() *Stats {
	return &Stats{
		ArticlesBySource: make(map[string]int),
		SkippedByReason:  make(map[string]int),
	}
}

func (st *Stats) addSkip(reason string) {
	st.SkippedByReason[reason]++
}

func (st *Stats) addArticle(article Article) {
	st.ArticlesBySource[article.Source]++
	st.Articles++
	st.Chars += utf8.RuneCountInString(article.Text)
	st.Words += len(strings.Fields(article.Text))
	st.Sentences += len(splitSentences(article.Text))
}

// GetStats returns the counters persisted by the last completed ingestion.
// Before any run has completed, all counters are zero.
func (s *Service) GetStats() (*Stats, error) {
	value, err := s.meta.Get(kvdb.StatsBucket, statsKey)
	if err != nil {
		var notFoundErr *kvdb.NotFoundError
		if errors.As(err, &notFoundErr) {
			return newStats(), nil
		}
		return nil, err
	}

	var stats Stats
	if err := json.Unmarshal([]byte(value), &stats); err != nil {
		s.logger.Error("failed to unmarshal corpus stats", "err", err.Error())
		return nil, err
	}
	if stats.ArticlesBySource == nil {
		stats.ArticlesBySource = make(map[string]int)
	}
	if stats.SkippedByReason == nil {
		stats.SkippedByReason = make(map[string]int)
	}

	return &stats, nil
}

func (s *Service) persistStats(stats *Stats) {
	storedBlocks, err := s.vectors.Count()
	if err != nil {
		s.logger.Error("failed to count stored blocks", "err", err.Error())
	} else {
		stats.StoredBlocks = storedBlocks
	}

	lexicalDocs, err := s.indexer.GetDocCount()
	if err != nil {
		s.logger.Error("failed to count indexed documents", "err", err.Error())
	} else {
		stats.LexicalDocs = lexicalDocs
	}

	data, err := json.Marshal(stats)
	if err != nil {
		s.logger.Error("failed to marshal corpus stats", "err", err.Error())
		return
	}

	if err := s.meta.Set(kvdb.StatsBucket, statsKey, string(data)); err != nil {
		s.logger.Error("failed to persist corpus stats", "err", err.Error())
	}
}
