package ingest

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

// TokenCounter measures text length in model tokens.
type TokenCounter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter returns a counter for the given embedding model, falling
// back to the cl100k_base encoding for models tiktoken does not know about.
func NewTokenCounter(model string) (TokenCounter, error) {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("failed to load token encoding: %w", err)
		}
	}

	return &tiktokenCounter{encoding: encoding}, nil
}

func (c *tiktokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// Splitter packs article text into blocks of minTokens..maxTokens tokens,
// breaking at sentence boundaries.
type Splitter struct {
	counter   TokenCounter
	minTokens int
	maxTokens int
}

func NewSplitter(counter TokenCounter, minTokens, maxTokens int) *Splitter {
	return &Splitter{
		counter:   counter,
		minTokens: minTokens,
		maxTokens: maxTokens,
	}
}

// Split returns the text in block-sized chunks, in order. A block closes once
// adding the next sentence would push it past maxTokens, except that a block
// still below minTokens keeps growing. A single sentence larger than
// maxTokens is broken on word boundaries.
func (sp *Splitter) Split(text string) []string {
	blocks := make([]string, 0)
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, strings.Join(current, " "))
			current = current[:0]
			currentTokens = 0
		}
	}

	for _, sentence := range splitSentences(text) {
		tokens := sp.counter.Count(sentence)

		if tokens > sp.maxTokens {
			flush()
			blocks = append(blocks, sp.splitOversized(sentence)...)
			continue
		}

		if currentTokens+tokens > sp.maxTokens && currentTokens >= sp.minTokens {
			flush()
		}

		current = append(current, sentence)
		currentTokens += tokens
	}
	flush()

	return blocks
}

func (sp *Splitter) splitOversized(sentence string) []string {
	chunks := make([]string, 0)
	var current []string
	currentTokens := 0

	for _, word := range strings.Fields(sentence) {
		tokens := sp.counter.Count(word)
		if currentTokens+tokens > sp.maxTokens && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0]
			currentTokens = 0
		}

		current = append(current, word)
		currentTokens += tokens
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}

// splitSentences breaks text at sentence-ending punctuation followed by
// whitespace, and at paragraph breaks.
func splitSentences(text string) []string {
	sentences := make([]string, 0)
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)

		switch r {
		case '.', '!', '?':
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				flush()
			}
		case '\n':
			if i+1 < len(runes) && runes[i+1] == '\n' {
				flush()
			}
		}
	}
	flush()

	return sentences
}
