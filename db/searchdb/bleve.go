package searchdb

import (
	"fmt"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/ProducerMatt/stampy-chat/config"
	"github.com/ProducerMatt/stampy-chat/logger"
)

const indexingBatchSize = 100

const (
	indexFieldArticleKey = "article_key"
	indexFieldTitle      = "title"
	indexFieldAuthor     = "author"
	indexFieldDate       = "date"
	indexFieldURL        = "url"
	indexFieldTags       = "tags"
	indexFieldText       = "text"
)

type BleveDB struct {
	indexPath string
	logger    logger.Logger
	index     bleve.Index
}

func New(logger logger.Logger, cfg *config.Config) (*BleveDB, error) {
	mapping := createIndexMapping()
	indexPath := cfg.GetIndexPath()
	index, err := bleve.New(indexPath, mapping)
	if err != nil {
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Error("could not open index", "err", err.Error())
			return nil, err
		}
	}
	return &BleveDB{indexPath: indexPath, logger: logger, index: index}, nil
}

func (b *BleveDB) BuildIndex(documents []Document) error {

	batch := b.index.NewBatch()

	for i, doc := range documents {

		err := batch.Index(doc.ID, doc)
		if err != nil {
			b.logger.Error("could not index document", "err", err.Error())
			return err
		}

		// Execute batch when it reaches the batch size
		if (i+1)%indexingBatchSize == 0 {
			err = b.index.Batch(batch)
			if err != nil {
				return err
			}
			batch = b.index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			b.logger.Error("could not index document", "err", err.Error())
			return err
		}
	}

	return nil
}

func createIndexMapping() mapping.IndexMapping {

	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	// Article key and URL - not analyzed (exact match)
	articleKeyFieldMapping := bleve.NewTextFieldMapping()
	articleKeyFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt(indexFieldArticleKey, articleKeyFieldMapping)

	urlFieldMapping := bleve.NewTextFieldMapping()
	urlFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt(indexFieldURL, urlFieldMapping)

	dateFieldMapping := bleve.NewTextFieldMapping()
	dateFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt(indexFieldDate, dateFieldMapping)

	// Title, author and tags - analyzed for partial matching
	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(indexFieldTitle, titleFieldMapping)

	authorFieldMapping := bleve.NewTextFieldMapping()
	authorFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(indexFieldAuthor, authorFieldMapping)

	tagsFieldMapping := bleve.NewTextFieldMapping()
	tagsFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(indexFieldTags, tagsFieldMapping)

	// Text field - analyzed for full-text search
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	textFieldMapping.Store = false // Don't store block text in index
	textFieldMapping.Index = true  // But do index it for searching
	docMapping.AddFieldMappingsAt(indexFieldText, textFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

func (b *BleveDB) Search(queryString string, limit int, offset int) (*Response, error) {
	start := time.Now()

	searchQuery := b.buildSearchQuery(queryString)

	searchRequest := bleve.NewSearchRequestOptions(searchQuery, limit, offset, false)

	searchResult, err := b.index.Search(searchRequest)
	if err != nil {
		b.logger.Error("search failed", "err", err.Error())
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, len(searchResult.Hits))
	for i, hit := range searchResult.Hits {
		results[i] = Result{
			ID:    hit.ID,
			Score: hit.Score,
		}
	}

	searchTime := time.Since(start)

	response := &Response{
		Results:    results,
		Total:      searchResult.Total,
		MaxScore:   searchResult.MaxScore,
		SearchTime: searchTime.String(),
	}

	return response, nil
}

func (b *BleveDB) buildSearchQuery(queryString string) query.Query {

	const (
		boostForText         = 3.0
		boostForTitle        = 2.0
		boostForTags         = 1.5
		boostForAuthor       = 1.0
		boostForPhraseMatch  = 5.0
		boostForPartialMatch = 1.5
	)

	queryString = strings.ToLower(strings.TrimSpace(queryString))

	if queryString == "" {
		return bleve.NewMatchAllQuery()
	}

	disjunctQuery := bleve.NewDisjunctionQuery()

	textQuery := bleve.NewMatchQuery(queryString)
	textQuery.SetField(indexFieldText)
	textQuery.SetBoost(boostForText)
	disjunctQuery.AddQuery(textQuery)

	titleQuery := bleve.NewMatchQuery(queryString)
	titleQuery.SetField(indexFieldTitle)
	titleQuery.SetBoost(boostForTitle)
	disjunctQuery.AddQuery(titleQuery)

	tagsQuery := bleve.NewMatchQuery(queryString)
	tagsQuery.SetField(indexFieldTags)
	tagsQuery.SetBoost(boostForTags)
	disjunctQuery.AddQuery(tagsQuery)

	authorQuery := bleve.NewMatchQuery(queryString)
	authorQuery.SetField(indexFieldAuthor)
	authorQuery.SetBoost(boostForAuthor)
	disjunctQuery.AddQuery(authorQuery)

	phraseQuery := bleve.NewMatchPhraseQuery(queryString)
	phraseQuery.SetField(indexFieldText)
	phraseQuery.SetBoost(boostForPhraseMatch)
	disjunctQuery.AddQuery(phraseQuery)

	if len(queryString) > 2 {
		titlePrefixQuery := bleve.NewPrefixQuery(queryString)
		titlePrefixQuery.SetField(indexFieldTitle)
		titlePrefixQuery.SetBoost(boostForPartialMatch)
		disjunctQuery.AddQuery(titlePrefixQuery)

		textPrefixQuery := bleve.NewPrefixQuery(queryString)
		textPrefixQuery.SetField(indexFieldText)
		textPrefixQuery.SetBoost(boostForPartialMatch)
		disjunctQuery.AddQuery(textPrefixQuery)
	}

	return disjunctQuery
}

func (b *BleveDB) DeleteDocuments(documentIDs []string) error {
	batch := b.index.NewBatch()

	for i, docID := range documentIDs {
		batch.Delete(docID)

		// Execute batch when it reaches the batch size
		if (i+1)%indexingBatchSize == 0 {
			err := b.index.Batch(batch)
			if err != nil {
				return err
			}
			batch = b.index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			b.logger.Error("could not delete documents", "err", err.Error())
			return err
		}
	}

	return nil
}

func (b *BleveDB) GetDocCount() (uint64, error) {
	return b.index.DocCount()
}

func (b *BleveDB) Close() error {

	if b.index != nil {
		if err := b.index.Close(); err != nil {
			b.logger.Error("could not close search index", "err", err.Error())
			return err
		}
	}
	return nil
}
