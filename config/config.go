package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const keyEnv = "ENV"
const envLocal = "local"

const (
	defaultPort            = "3000"
	defaultIndexPath       = "data/lexical.bleve"
	defaultVectorDBPath    = "data/vectors.db"
	defaultKVDBPath        = "data/kv.db"
	defaultEmbeddingModel  = "text-embedding-3-small"
	defaultEmbeddingDims   = 1536
	defaultEmbedWorkers    = 8
	defaultEmbedBatchSize  = 64
	defaultEmbedRequestsPM = 3500
	defaultMinBlockTokens  = 400
	defaultMaxBlockTokens  = 600
	defaultTopK            = 10
)

type Config struct {
	config *viper.Viper
}

func Load() (*Config, error) {

	env := os.Getenv(keyEnv)
	if len(env) == 0 {
		env = envLocal
	}

	configPath, err := getConfigPath(env)

	viperConfig := viper.New()
	if err == nil {
		viperConfig.SetConfigFile(configPath)
		if err := viperConfig.ReadInConfig(); err != nil {
			slog.Warn(fmt.Sprintf("error reading config file, %s", err))
		}
	}
	viperConfig.AutomaticEnv()

	cfg := &Config{
		config: viperConfig,
	}

	return cfg, nil
}

func (c *Config) GetPort() string {
	port := c.config.GetString("PORT")
	if len(port) == 0 {
		port = c.config.GetString("server.port")
	}
	if len(port) == 0 {
		port = defaultPort
	}

	return port
}

// GetAPIBase returns the search API base URL clients should talk to. Empty
// means unset; the client falls back to its loopback default.
func (c *Config) GetAPIBase() string {
	apiBase := c.config.GetString("API_BASE")
	if len(apiBase) == 0 {
		apiBase = c.config.GetString("client.api_base")
	}

	return apiBase
}

func (c *Config) GetIndexPath() string {
	indexPath := c.config.GetString("INDEX_PATH")
	if len(indexPath) == 0 {
		indexPath = c.config.GetString("database.index_path")
	}
	if len(indexPath) == 0 {
		indexPath = defaultIndexPath
	}

	return indexPath
}

func (c *Config) GetVectorDBPath() string {
	vectorDBPath := c.config.GetString("VECTORDB_PATH")
	if len(vectorDBPath) == 0 {
		vectorDBPath = c.config.GetString("database.vectordb_path")
	}
	if len(vectorDBPath) == 0 {
		vectorDBPath = defaultVectorDBPath
	}

	return vectorDBPath
}

func (c *Config) GetKVDBPath() string {
	kvdbPath := c.config.GetString("KVDB_PATH")
	if len(kvdbPath) == 0 {
		kvdbPath = c.config.GetString("database.kvdb_path")
	}
	if len(kvdbPath) == 0 {
		kvdbPath = defaultKVDBPath
	}

	return kvdbPath
}

func (c *Config) GetOpenAIAPIKey() string {
	apiKey := c.config.GetString("OPENAI_API_KEY")
	if len(apiKey) == 0 {
		apiKey = c.config.GetString("openai.api_key")
	}

	return apiKey
}

// GetOpenAIBaseURL is empty unless an OpenAI-compatible endpoint override is
// configured.
func (c *Config) GetOpenAIBaseURL() string {
	baseURL := c.config.GetString("OPENAI_BASE_URL")
	if len(baseURL) == 0 {
		baseURL = c.config.GetString("openai.base_url")
	}

	return baseURL
}

func (c *Config) GetEmbeddingModel() string {
	model := c.config.GetString("EMBEDDING_MODEL")
	if len(model) == 0 {
		model = c.config.GetString("openai.embedding_model")
	}
	if len(model) == 0 {
		model = defaultEmbeddingModel
	}

	return model
}

func (c *Config) GetEmbeddingDimensions() int {
	dims := c.config.GetInt("EMBEDDING_DIMENSIONS")
	if dims == 0 {
		dims = c.config.GetInt("openai.embedding_dimensions")
	}
	if dims == 0 {
		dims = defaultEmbeddingDims
	}

	return dims
}

func (c *Config) GetEmbedWorkers() int {
	workers := c.config.GetInt("EMBED_WORKERS")
	if workers == 0 {
		workers = c.config.GetInt("embeddings.workers")
	}
	if workers == 0 {
		workers = defaultEmbedWorkers
	}

	return workers
}

func (c *Config) GetEmbedBatchSize() int {
	batchSize := c.config.GetInt("EMBED_BATCH_SIZE")
	if batchSize == 0 {
		batchSize = c.config.GetInt("embeddings.batch_size")
	}
	if batchSize == 0 {
		batchSize = defaultEmbedBatchSize
	}

	return batchSize
}

func (c *Config) GetEmbedRequestsPerMinute() int {
	requestsPerMinute := c.config.GetInt("EMBED_REQUESTS_PER_MINUTE")
	if requestsPerMinute == 0 {
		requestsPerMinute = c.config.GetInt("embeddings.requests_per_minute")
	}
	if requestsPerMinute == 0 {
		requestsPerMinute = defaultEmbedRequestsPM
	}

	return requestsPerMinute
}

func (c *Config) GetMinBlockTokens() int {
	minTokens := c.config.GetInt("MIN_BLOCK_TOKENS")
	if minTokens == 0 {
		minTokens = c.config.GetInt("ingest.min_block_tokens")
	}
	if minTokens == 0 {
		minTokens = defaultMinBlockTokens
	}

	return minTokens
}

func (c *Config) GetMaxBlockTokens() int {
	maxTokens := c.config.GetInt("MAX_BLOCK_TOKENS")
	if maxTokens == 0 {
		maxTokens = c.config.GetInt("ingest.max_block_tokens")
	}
	if maxTokens == 0 {
		maxTokens = defaultMaxBlockTokens
	}

	return maxTokens
}

func (c *Config) GetTopK() int {
	topK := c.config.GetInt("TOP_K")
	if topK == 0 {
		topK = c.config.GetInt("search.top_k")
	}
	if topK == 0 {
		topK = defaultTopK
	}

	return topK
}

func getProjectRoot() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	for {
		configDir := filepath.Join(currentDir, "config")
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			return currentDir, nil
		}

		parent := filepath.Dir(currentDir)

		if parent == currentDir {
			break
		}

		currentDir = parent
	}

	return "", fmt.Errorf("could not find project root (directory containing 'config' folder)")
}

func getConfigPath(env string) (string, error) {
	configFile := fmt.Sprintf("config.%s.yaml", env)

	projectRoot, err := getProjectRoot()
	if err != nil {
		slog.Warn("failed to find project root with config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("failed to find project root: %w", err)
	}
	configPath := filepath.Join(projectRoot, "config", configFile)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Warn("failed to find config file within config directory, will use environment variables instead", "err", err.Error())
		return "", fmt.Errorf("config file does not exist: %s", configPath)
	}

	return configPath, nil
}
