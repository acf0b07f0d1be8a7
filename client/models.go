package client

// ResultEntry is one semantic search hit as served by POST /semantic. All
// fields are always present on the wire; empty strings are legal values.
type ResultEntry struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Date   string `json:"date"`
	URL    string `json:"url"`
	Tags   string `json:"tags"`
	Text   string `json:"text"`
}

// LexicalResult is one full-text search hit from GET /search.
type LexicalResult struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Author string  `json:"author"`
	Date   string  `json:"date"`
	URL    string  `json:"url"`
	Tags   string  `json:"tags"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}

type Pagination struct {
	CurrentPage  int  `json:"current_page"`
	PageSize     int  `json:"page_size"`
	TotalPages   int  `json:"total_pages"`
	HasNextPage  bool `json:"has_next_page"`
	HasPrevPage  bool `json:"has_prev_page"`
	TotalResults int  `json:"total_results"`
}

// IngestRequest starts a corpus ingestion run through POST /ingest.
type IngestRequest struct {
	Path           string   `json:"path"`
	Sources        []string `json:"sources,omitempty"`
	SampleFraction float64  `json:"sample_fraction,omitempty"`
}

// CorpusStats mirrors the GET /stats payload: counters from the last
// completed ingestion run plus live store sizes.
type CorpusStats struct {
	ArticlesBySource map[string]int `json:"articles_by_source"`
	SkippedByReason  map[string]int `json:"skipped_by_reason"`
	Articles         int            `json:"articles"`
	Blocks           int            `json:"blocks"`
	Chars            int            `json:"chars"`
	Words            int            `json:"words"`
	Sentences        int            `json:"sentences"`
	StoredBlocks     int            `json:"stored_blocks"`
	LexicalDocs      int            `json:"lexical_docs"`
}
