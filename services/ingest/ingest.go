package ingest

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ProducerMatt/stampy-chat/config"
	"github.com/ProducerMatt/stampy-chat/db/kvdb"
	"github.com/ProducerMatt/stampy-chat/db/searchdb"
	"github.com/ProducerMatt/stampy-chat/db/vectordb"
	"github.com/ProducerMatt/stampy-chat/embeddings"
	"github.com/ProducerMatt/stampy-chat/logger"
)

// Indexer represents the lexical index operations needed during ingestion.
type Indexer interface {
	BuildIndex(documents []searchdb.Document) error
	DeleteDocuments(documentIDs []string) error
	GetDocCount() (uint64, error)
}

// VectorStore represents the block store operations needed during ingestion.
type VectorStore interface {
	PutBlocks(blocks []vectordb.Block, vectors [][]float32) error
	ArticleBlockIDs(articleKey string) ([]string, error)
	DeleteBlocks(ids []string) error
	Count() (int, error)
}

const (
	ProgressStatusStep1    = 10
	ProgressStatusStep2    = 20
	ProgressStatusComplete = 100
	ProgressStatusFailed   = -1

	maxIngestTime = 2 * time.Hour
)

// ErrAlreadyRunning is returned when an ingestion is requested while another
// one is still running.
var ErrAlreadyRunning = errors.New("ingestion already in progress")

type Service struct {
	logger   logger.Logger
	indexer  Indexer
	vectors  VectorStore
	meta     MetadataStore
	embedder embeddings.Client
	splitter *Splitter

	workers   int
	batchSize int
	limiter   *rate.Limiter
	sampleFn  func() float64

	ingestC chan ingestRequest
}

type ingestRequest struct {
	path      string
	sources   []string
	fraction  float64
	requestID string
}

func New(ctx context.Context, logger logger.Logger, cfg *config.Config, indexer Indexer, vectors VectorStore, meta MetadataStore, embedder embeddings.Client, counter TokenCounter) *Service {
	requestsPerMinute := cfg.GetEmbedRequestsPerMinute()
	burst := max(1, requestsPerMinute/60)

	ingestService := &Service{
		logger:    logger,
		indexer:   indexer,
		vectors:   vectors,
		meta:      meta,
		embedder:  embedder,
		splitter:  NewSplitter(counter, cfg.GetMinBlockTokens(), cfg.GetMaxBlockTokens()),
		workers:   cfg.GetEmbedWorkers(),
		batchSize: cfg.GetEmbedBatchSize(),
		limiter:   rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst),
		sampleFn:  rand.Float64,
		ingestC:   make(chan ingestRequest),
	}

	go ingestService.run(ctx)
	return ingestService
}

// Ingest starts a corpus ingestion in the background and reports progress
// under the given request ID. Only one run is allowed at a time.
func (s *Service) Ingest(path string, sources []string, sampleFraction float64, requestID string) error {
	if sampleFraction <= 0 {
		sampleFraction = 1
	}

	s.setRequestStatus(requestID, 0)

	select {
	// This leads to s.ingest being called
	case s.ingestC <- ingestRequest{path: path, sources: sources, fraction: sampleFraction, requestID: requestID}:
		return nil
	default:
		s.logger.Warn("request to ingest while ingestion is already in progress")
		return ErrAlreadyRunning
	}
}

// GetStatus retrieves the progress status for an ingestion request.
func (s *Service) GetStatus(requestID string) (int, error) {
	value, err := s.meta.Get(kvdb.RequestsBucket, requestID)
	if err != nil {
		return 0, fmt.Errorf("request not found: %w", err)
	}

	status, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid status value: %w", err)
	}

	return status, nil
}

func (s *Service) run(ctx context.Context) {
	for {
		select {
		case req := <-s.ingestC:
			runCtx, cancel := context.WithTimeout(ctx, maxIngestTime)
			s.ingest(runCtx, req)
			cancel()
		case <-ctx.Done():
			s.logger.Info("ingest service stopped", "reason", ctx.Err())
			return
		}
	}
}

func (s *Service) ingest(ctx context.Context, req ingestRequest) {
	stats := newStats()

	articles, err := s.readCorpus(req.path, req.sources, req.fraction, stats)
	if err != nil {
		s.logger.Error("failed to ingest corpus", "request_id", req.requestID, "err", err.Error())
		s.setRequestStatus(req.requestID, ProgressStatusFailed)
		return
	}

	// Update progress to ProgressStatusStep1% after readCorpus completes
	s.setRequestStatus(req.requestID, ProgressStatusStep1)

	if err := s.removeMissingArticles(articles, req); err != nil {
		s.logger.Error("failed to ingest corpus", "request_id", req.requestID, "err", err.Error())
		s.setRequestStatus(req.requestID, ProgressStatusFailed)
		return
	}

	plans := s.planArticles(articles, stats)

	// Update progress to ProgressStatusStep2% after fingerprint checks and
	// splitting complete
	s.setRequestStatus(req.requestID, ProgressStatusStep2)

	if err := s.embedAndStore(ctx, plans, req.requestID); err != nil {
		s.logger.Error("failed to ingest corpus", "request_id", req.requestID, "err", err.Error())
		s.setRequestStatus(req.requestID, ProgressStatusFailed)
		return
	}

	s.persistStats(stats)
	s.setRequestStatus(req.requestID, ProgressStatusComplete)

	s.logger.Info("finished ingesting corpus", "request_id", req.requestID,
		"articles", stats.Articles, "blocks", stats.Blocks)
}

// articlePlan is one article's work: blocks to store and the matching texts
// to embed, signature-prefixed.
type articlePlan struct {
	article     Article
	fingerprint string
	blocks      []vectordb.Block
	texts       []string
}

// planArticles decides what each article needs: unchanged articles are
// counted and skipped, new or changed ones are split into blocks.
func (s *Service) planArticles(articles []Article, stats *Stats) []articlePlan {
	plans := make([]articlePlan, 0, len(articles))
	unchanged := 0

	for _, article := range articles {
		fp := fingerprint(article)

		existing, err := s.getArticleMetadata(article.Key)
		if err == nil && existing.Fingerprint == fp {
			stats.Blocks += existing.Blocks
			unchanged++
			continue
		}
		if err != nil && !isNotFound(err) {
			s.logger.Error("failed to read article metadata, re-ingesting", "article_key", article.Key, "err", err.Error())
		}

		plan := articlePlan{article: article, fingerprint: fp}
		sig := signature(article)

		for i, text := range s.splitter.Split(article.Text) {
			plan.blocks = append(plan.blocks, vectordb.Block{
				ID:         uuid.New().String(),
				ArticleKey: article.Key,
				Ordinal:    i,
				Title:      article.Title,
				Author:     article.Author,
				Date:       article.Date,
				URL:        article.URL,
				Tags:       article.Tags,
				Text:       text,
			})

			embedText := text
			if sig != "" {
				embedText = sig + "\n" + text
			}
			plan.texts = append(plan.texts, embedText)
		}

		stats.Blocks += len(plan.blocks)
		plans = append(plans, plan)
	}

	s.logger.Info("planned ingestion", "articles", len(articles), "unchanged", unchanged, "to_embed", len(plans))
	return plans
}

func (s *Service) embedAndStore(ctx context.Context, plans []articlePlan, requestID string) error {
	if len(plans) == 0 {
		return nil
	}

	totalBatches := 0
	for _, plan := range plans {
		totalBatches += (len(plan.texts) + s.batchSize - 1) / s.batchSize
	}

	var doneBatches atomic.Int64

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.workers)

	for _, plan := range plans {
		group.Go(func() error {
			if err := s.ingestArticle(groupCtx, plan, requestID, totalBatches, &doneBatches); err != nil {
				return fmt.Errorf("failed to ingest article %q: %w", plan.article.Key, err)
			}
			return nil
		})
	}

	return group.Wait()
}

func (s *Service) ingestArticle(ctx context.Context, plan articlePlan, requestID string, totalBatches int, doneBatches *atomic.Int64) error {
	if err := s.removeArticleBlocks(plan.article.Key); err != nil {
		return err
	}

	for start := 0; start < len(plan.texts); start += s.batchSize {
		end := min(start+s.batchSize, len(plan.texts))

		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		vectors, err := s.embedder.Embed(ctx, plan.texts[start:end])
		if err != nil {
			return fmt.Errorf("failed to embed blocks: %w", err)
		}

		if err := s.vectors.PutBlocks(plan.blocks[start:end], vectors); err != nil {
			return fmt.Errorf("failed to store blocks: %w", err)
		}

		if err := s.indexer.BuildIndex(lexicalDocuments(plan.blocks[start:end])); err != nil {
			return fmt.Errorf("failed to index blocks: %w", err)
		}

		done := int(doneBatches.Add(1))
		s.setRequestStatus(requestID, getProgressPercentage(done, totalBatches, ProgressStatusStep2, ProgressStatusComplete))
	}

	return s.setArticleMetadata(plan.article.Key, ArticleMetadata{
		Fingerprint: plan.fingerprint,
		Blocks:      len(plan.blocks),
		IngestedAt:  time.Now().UTC(),
	})
}

func (s *Service) removeArticleBlocks(articleKey string) error {
	ids, err := s.vectors.ArticleBlockIDs(articleKey)
	if err != nil {
		return fmt.Errorf("failed to list stored blocks: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	if err := s.indexer.DeleteDocuments(ids); err != nil {
		return fmt.Errorf("failed to delete documents from search index: %w", err)
	}
	if err := s.vectors.DeleteBlocks(ids); err != nil {
		return fmt.Errorf("failed to delete stored blocks: %w", err)
	}

	return nil
}

// removeMissingArticles prunes stored articles that are no longer in the
// corpus. Partial runs (source filter or sampling) skip pruning: absence from
// such a run says nothing about the corpus.
func (s *Service) removeMissingArticles(articles []Article, req ingestRequest) error {
	if len(req.sources) > 0 || req.fraction < 1 {
		return nil
	}

	keys, err := s.meta.GetAllKeys(kvdb.ArticlesBucket)
	if err != nil {
		s.logger.Error("failed to get all keys from database", "err", err.Error())
		return fmt.Errorf("failed to get all keys from database: %w", err)
	}

	seen := make(map[string]bool, len(articles))
	for _, article := range articles {
		seen[article.Key] = true
	}

	missing := make([]string, 0)
	for _, key := range keys {
		if !seen[key] {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	s.logger.Info("removing articles no longer in the corpus", "articles", len(missing))
	for _, key := range missing {
		if err := s.removeArticleBlocks(key); err != nil {
			return err
		}
		if err := s.meta.Delete(kvdb.ArticlesBucket, key); err != nil {
			s.logger.Error("failed to delete article metadata", "article_key", key, "err", err.Error())
		}
	}

	return nil
}

func lexicalDocuments(blocks []vectordb.Block) []searchdb.Document {
	documents := make([]searchdb.Document, 0, len(blocks))
	for _, block := range blocks {
		documents = append(documents, searchdb.Document{
			ID:         block.ID,
			ArticleKey: block.ArticleKey,
			Title:      block.Title,
			Author:     block.Author,
			Date:       block.Date,
			URL:        block.URL,
			Tags:       block.Tags,
			Text:       block.Text,
		})
	}

	return documents
}

func (s *Service) setRequestStatus(requestID string, status int) {
	if err := s.meta.Set(kvdb.RequestsBucket, requestID, strconv.Itoa(status)); err != nil {
		s.logger.Error("failed to update request status", "request_id", requestID, "status", status, "err", err.Error())
	}
}

func isNotFound(err error) bool {
	var notFoundErr *kvdb.NotFoundError
	return errors.As(err, &notFoundErr)
}

func getProgressPercentage(done int, total int, initial int, final int) int {
	if done == 0 || total == 0 {
		return initial
	}

	if done >= total {
		return final
	}

	// Calculate the percentage between initial and final
	progress := float64(done) / float64(total)
	result := float64(initial) + progress*float64(final-initial)

	return int(result)
}
