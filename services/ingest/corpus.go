package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Corpus lines can run to megabytes for book-length entries.
const maxLineBytes = 64 << 20

// readCorpus streams the JSONL corpus and returns the articles selected for
// this run. Skips and per-source counts are recorded in stats as it goes.
// When sources is non-empty only those sources are kept; fraction samples
// articles uniformly.
func (s *Service) readCorpus(path string, sources []string, fraction float64, stats *Stats) ([]Article, error) {
	sourceFilter := make(map[string]bool, len(sources))
	for _, source := range sources {
		sourceFilter[source] = true
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer file.Close()

	articles := make([]Article, 0)
	seenKeys := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1<<20), maxLineBytes)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var entry map[string]any
		if err := json.Unmarshal(line, &entry); err != nil {
			stats.addSkip(skipInvalidJSON)
			continue
		}

		source, err := extractSource(entry)
		if err != nil {
			stats.addSkip(skipReason(err))
			continue
		}
		if source == sourcePrintouts {
			stats.addSkip(skipPrintouts)
			continue
		}

		if s.sampleFn() > fraction {
			continue
		}
		if len(sourceFilter) > 0 && !sourceFilter[source] {
			continue
		}

		article, err := extractArticle(entry, source)
		if err != nil {
			stats.addSkip(skipReason(err))
			continue
		}

		if seenKeys[article.Key] {
			stats.addSkip(skipDuplicate)
			continue
		}
		seenKeys[article.Key] = true

		stats.addArticle(article)
		articles = append(articles, article)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	return articles, nil
}
