package searchdb

// Document is one corpus block as indexed for full-text search. Text is
// indexed but not stored; hits are hydrated from the block store.
type Document struct {
	ID         string `json:"id"`
	ArticleKey string `json:"article_key"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Date       string `json:"date"`
	URL        string `json:"url"`
	Tags       string `json:"tags"`
	Text       string `json:"text"`
}

type Result struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

type Response struct {
	Results    []Result `json:"results"`
	Total      uint64   `json:"total"`
	MaxScore   float64  `json:"max_score"`
	SearchTime string   `json:"search_time"`
}
