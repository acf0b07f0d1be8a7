package embeddings

import "context"

// Client turns texts into embedding vectors. Implementations must return one
// vector per input, in input order.
type Client interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
