// Common test helpers
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/ProducerMatt/stampy-chat/config"
	"github.com/ProducerMatt/stampy-chat/db/kvdb"
	"github.com/ProducerMatt/stampy-chat/db/searchdb"
	"github.com/ProducerMatt/stampy-chat/db/vectordb"
	"github.com/ProducerMatt/stampy-chat/logger"
	"github.com/ProducerMatt/stampy-chat/services/ingest"
	"github.com/ProducerMatt/stampy-chat/services/search"
	"github.com/ProducerMatt/stampy-chat/validation"
)

var defaultTestRequestHeaders = map[string]string{"Content-Type": "application/json"}

// testCorpus holds two articles about clearly separable topics so the fake
// embedder can rank them without ambiguity.
var testCorpus = []map[string]any{
	{
		"source":         "alignment forum",
		"title":          "Entangled States",
		"url":            "https://example.com/entangled",
		"authors":        []string{"Ada"},
		"date_published": "2021-06-01T00:00:00Z",
		"text":           "quantum quantum quantum quantum. quantum quantum quantum quantum.",
	},
	{
		"source":         "lesswrong",
		"title":          "On Flowers",
		"url":            "https://example.com/flowers",
		"authors":        []string{"Bea"},
		"date_published": "2022-01-15T00:00:00Z",
		"text":           "garden garden garden garden. garden garden garden garden.",
	},
}

// embeddingAxes are the topic words the fake embedder projects text onto.
var embeddingAxes = []string{"quantum", "garden", "violin"}

type axisEmbedder struct{}

func (axisEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vector := make([]float32, len(embeddingAxes))
		lowered := strings.ToLower(text)
		for j, axis := range embeddingAxes {
			vector[j] = float32(strings.Count(lowered, axis))
		}
		vectors[i] = vector
	}
	return vectors, nil
}

type wordCounter struct{}

func (wordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

type testCase struct {
	name           string
	requestHeaders map[string]string
	requestBody    map[string]any
	queryParams    map[string]string
	expectedStatus int
}

func newTestLogger() logger.Logger {

	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

func setupTestServer(t *testing.T, assert *require.Assertions) *gin.Engine {

	tempDir := t.TempDir()
	t.Setenv("INDEX_PATH", filepath.Join(tempDir, "lexical.bleve"))
	t.Setenv("VECTORDB_PATH", filepath.Join(tempDir, "vectors.db"))
	t.Setenv("KVDB_PATH", filepath.Join(tempDir, "kv.db"))
	t.Setenv("MIN_BLOCK_TOKENS", "4")
	t.Setenv("MAX_BLOCK_TOKENS", "8")
	t.Setenv("EMBED_BATCH_SIZE", "4")
	t.Setenv("EMBED_WORKERS", "2")
	t.Setenv("TOP_K", "3")

	cfg, err := config.Load()
	assert.NoError(err, "could not load config")

	testLogger := newTestLogger()

	searchDB, err := searchdb.New(testLogger, cfg)
	assert.NoError(err, "could not create search database")

	vectorDB, err := vectordb.New(testLogger, cfg)
	assert.NoError(err, "could not create vector database")

	kvDB, err := kvdb.New(testLogger, cfg)
	assert.NoError(err, "could not create kv database")

	validator, err := validation.New(testLogger)
	assert.NoError(err, "could not create validator")

	ctx, cancel := context.WithCancel(context.Background())
	ingestService := ingest.New(ctx, testLogger, cfg, searchDB, vectorDB, kvDB, axisEmbedder{}, wordCounter{})
	searchService := search.New(testLogger, searchDB, vectorDB, axisEmbedder{})

	gin.SetMode(gin.TestMode)
	router := gin.New()

	SetupSemantic(router, testLogger, cfg, searchService)
	SetupSearch(router, testLogger, searchService, validator)
	SetupIngest(router, testLogger, ingestService, validator)
	SetupStats(router, testLogger, ingestService)

	t.Cleanup(func() {
		cancel()
		assert.NoError(searchDB.Close(), "could not close search database")
		assert.NoError(vectorDB.Close(), "could not close vector database")
		assert.NoError(kvDB.Close(), "could not close kv database")
	})

	return router
}

func writeTestCorpus(t *testing.T, assert *require.Assertions) string {
	var lines []string
	for _, entry := range testCorpus {
		line, err := json.Marshal(entry)
		assert.NoError(err, "could not marshal corpus entry")
		lines = append(lines, string(line))
	}

	path := filepath.Join(t.TempDir(), "corpus.jsonl")
	err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644)
	assert.NoError(err, "could not write corpus file")

	return path
}

// ingestTestCorpus runs a full ingestion through the HTTP surface and waits
// for it to report completion.
func ingestTestCorpus(t *testing.T, assert *require.Assertions, router *gin.Engine) {
	path := writeTestCorpus(t, assert)

	w := makeTestHTTPRequest(router, assert, http.MethodPost, "/ingest", defaultTestRequestHeaders, map[string]any{"path": path}, nil)
	assert.Equal(http.StatusAccepted, w.Code, "ingestion should be accepted before running tests against the corpus")

	var accepted struct {
		Data IngestResponse `json:"data"`
	}
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &accepted))
	waitForIngestCompletion(assert, router, accepted.Data.RequestID)
}

func waitForIngestCompletion(assert *require.Assertions, router *gin.Engine, requestID string) {
	maxWait := 10 * time.Second

	for startTime := time.Now().UTC(); time.Since(startTime) < maxWait; time.Sleep(10 * time.Millisecond) {
		w := makeTestHTTPRequest(router, assert, http.MethodGet, "/ingest/progress", nil, nil, map[string]string{"request_id": requestID})
		if w.Code != http.StatusOK {
			continue
		}

		var progress struct {
			Data IngestProgressResponse `json:"data"`
		}
		assert.NoError(json.Unmarshal(w.Body.Bytes(), &progress))
		assert.NotEqual(ingest.ProgressStatusFailed, progress.Data.Progress, "ingestion failed while waiting for completion")
		if progress.Data.Progress == ingest.ProgressStatusComplete {
			return
		}
	}
	assert.Fail("timed out waiting for ingestion to complete: " + requestID)
}

func makeTestHTTPRequest(router *gin.Engine, assert *require.Assertions, method string, endpoint string, headers map[string]string, requestBodyMap map[string]interface{}, queryParams map[string]string) *httptest.ResponseRecorder {

	var err error
	w := httptest.NewRecorder()

	if len(queryParams) > 0 {
		endpoint = endpoint + "?"
		for key, value := range queryParams {
			if endpoint[len(endpoint)-1] != '?' {
				endpoint = endpoint + "&"
			}
			endpoint = endpoint + key + "=" + value
		}
	}
	var jsonBody []byte
	var req *http.Request
	if requestBodyMap != nil {
		jsonBody, err = json.Marshal(requestBodyMap)
		assert.NoError(err)
	}

	if len(jsonBody) > 0 {
		req, err = http.NewRequest(method, endpoint, bytes.NewBuffer(jsonBody))
	} else {
		req, err = http.NewRequest(method, endpoint, nil)
	}
	assert.NoError(err)

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	router.ServeHTTP(w, req)

	return w
}
