package vectordb

type DB interface {
	PutBlocks(blocks []Block, vectors [][]float32) error
	GetBlock(id string) (Block, error)
	ArticleBlockIDs(articleKey string) ([]string, error)
	DeleteBlocks(ids []string) error
	TopK(queryVector []float32, k int) ([]Match, error)
	Count() (int, error)
	Close() error
}
