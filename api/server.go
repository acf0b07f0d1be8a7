package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ProducerMatt/stampy-chat/config"
	"github.com/ProducerMatt/stampy-chat/db/kvdb"
	"github.com/ProducerMatt/stampy-chat/db/searchdb"
	"github.com/ProducerMatt/stampy-chat/db/vectordb"
	"github.com/ProducerMatt/stampy-chat/embeddings"
	"github.com/ProducerMatt/stampy-chat/logger"
	"github.com/ProducerMatt/stampy-chat/services/ingest"
	"github.com/ProducerMatt/stampy-chat/services/search"
	"github.com/ProducerMatt/stampy-chat/validation"
)

type server struct {
	router     *gin.Engine
	httpServer *http.Server
	cfg        *config.Config
	kvdb       kvdb.DB
	searchdb   searchdb.DB
	vectordb   vectordb.DB
	embedder   embeddings.Client
	ingest     *ingest.Service
	search     *search.Service
	validator  *validation.Validator
	logger     logger.Logger
}

func Run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)

	defer cancel()

	s := &server{
		logger: logger.New(),
		cfg:    cfg,
	}
	if err := s.setupDependencies(ctx); err != nil {
		return err
	}
	s.setupRouter()
	s.setupHTTPServer()
	s.setupGracefulShutdown(ctx)

	return nil
}

func (s *server) setupDependencies(ctx context.Context) error {
	var err error
	s.kvdb, err = kvdb.New(s.logger, s.cfg)
	if err != nil {
		s.logger.Error("error creating kvDB", "err", err.Error())
		return err
	}
	s.searchdb, err = searchdb.New(s.logger, s.cfg)
	if err != nil {
		s.logger.Error("error creating searchDB", "err", err.Error())
		return err
	}
	s.vectordb, err = vectordb.New(s.logger, s.cfg)
	if err != nil {
		s.logger.Error("error creating vectorDB", "err", err.Error())
		return err
	}
	s.embedder, err = embeddings.NewOpenAI(s.logger, s.cfg)
	if err != nil {
		s.logger.Error("error creating embeddings client", "err", err.Error())
		return err
	}

	counter, err := ingest.NewTokenCounter(s.cfg.GetEmbeddingModel())
	if err != nil {
		s.logger.Error("error creating token counter", "err", err.Error())
		return err
	}
	s.ingest = ingest.New(ctx, s.logger, s.cfg, s.searchdb, s.vectordb, s.kvdb, s.embedder, counter)
	s.search = search.New(s.logger, s.searchdb, s.vectordb, s.embedder)

	s.validator, err = validation.New(s.logger)
	if err != nil {
		s.logger.Error("error creating validator", "err", err.Error())
		return err
	}

	return nil

}

func (s *server) setupRouter() {
	router := newRouter()

	router.Use(loggingMiddleware(s.logger))

	setupRoutes(router, s.logger, s.cfg, s.ingest, s.search, s.validator)

	s.router = router
}

func (s *server) setupHTTPServer() {

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", s.cfg.GetPort()),
		Handler: s.router.Handler(),
	}
	s.httpServer = httpServer
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()
}

func (s *server) setupGracefulShutdown(ctx context.Context) {

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		s.logger.Info("starting to shut down http server")
		shutdownCtx := context.Background()
		shutdownCtx, cancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		defer cancel()
		s.kvdb.Close()
		s.searchdb.Close()
		s.vectordb.Close()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error shutting down http server", "err", err)
			return
		}
		s.logger.Info("shut down http server successfully")
	}()

	wg.Wait()
}
