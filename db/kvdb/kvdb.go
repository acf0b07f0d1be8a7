package kvdb

// Bucket names used by the service. All buckets are created when the store
// opens.
const (
	// RequestsBucket tracks ingestion progress keyed by request ID.
	RequestsBucket = "requests"
	// ArticlesBucket holds per-article content fingerprints for incremental
	// re-ingestion.
	ArticlesBucket = "articles"
	// StatsBucket holds corpus counters from the last completed ingestion.
	StatsBucket = "stats"
)

type DB interface {
	Set(bucket, key, value string) error
	Get(bucket, key string) (string, error)
	Delete(bucket, key string) error
	GetAllKeys(bucket string) ([]string, error)
	Close() error
}
