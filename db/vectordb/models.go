package vectordb

// Block is the stored unit of the corpus: one chunk of an article's text
// together with the article metadata it is served with.
type Block struct {
	ID         string `json:"id"`
	ArticleKey string `json:"article_key"`
	Ordinal    int    `json:"ordinal"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Date       string `json:"date"`
	URL        string `json:"url"`
	Tags       string `json:"tags"`
	Text       string `json:"text"`
}

// Match is one nearest-neighbor hit. Score is the cosine similarity of the
// normalized vectors.
type Match struct {
	Block Block
	Score float32
}
