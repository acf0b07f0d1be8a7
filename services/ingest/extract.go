package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// Article is one corpus entry after metadata extraction. Text is the only
// required field; missing metadata degrades to empty strings so stored blocks
// are always well-formed.
type Article struct {
	Key    string
	Source string
	Title  string
	Author string
	Date   string
	URL    string
	Tags   string
	Text   string
}

const sourcePrintouts = "printouts"

// Skip reasons counted during a corpus read.
const (
	skipInvalidJSON = "invalid json"
	skipNoText      = "entry has no text"
	skipNoSource    = "entry has no source"
	skipPrintouts   = "printouts"
	skipDuplicate   = "duplicate article"
)

// SkipError marks a corpus entry the pipeline leaves out. The reason becomes
// a counter key in the run's stats.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return e.Reason
}

func skipReason(err error) string {
	var skipErr *SkipError
	if errors.As(err, &skipErr) {
		return skipErr.Reason
	}

	return err.Error()
}

// extractSource resolves the entry's source label. A few known feeds carry no
// source field and are recognized by their URLs instead.
func extractSource(entry map[string]any) (string, error) {
	if source, ok := stringField(entry, "source"); ok {
		return source, nil
	}

	url, _ := stringField(entry, "url")
	articleURL, _ := stringField(entry, "article_url")
	_, hasQuestion := entry["question"]
	_, hasAnswer := entry["answer"]

	switch {
	case url == "https://www.cold-takes.com/":
		return "Cold Takes", nil
	case hasQuestion && hasAnswer:
		return sourcePrintouts, nil
	case articleURL == "https://www.gwern.net":
		return "gwern.net", nil
	case url == "https://generative.ink/posts/":
		return "generative.ink", nil
	case strings.HasPrefix(url, "https://greaterwrong.com"):
		return "greaterwrong.com", nil
	}

	return "", &SkipError{Reason: skipNoSource}
}

func extractArticle(entry map[string]any, source string) (Article, error) {
	text, _ := stringField(entry, "text")
	if text == "" {
		return Article{}, &SkipError{Reason: skipNoText}
	}

	article := Article{
		Source: source,
		Title:  extractTitle(entry),
		Author: extractAuthor(entry),
		Date:   extractDate(entry),
		URL:    extractURL(entry),
		Tags:   extractTags(entry),
		Text:   text,
	}
	article.Key = articleKey(article)

	return article, nil
}

func extractTitle(entry map[string]any) string {
	if title, _ := stringField(entry, "title"); title != "" {
		return strings.TrimSuffix(title, "\n")
	}
	if bookTitle, _ := stringField(entry, "book_title"); bookTitle != "" {
		return strings.TrimSuffix(bookTitle, "\n")
	}

	return ""
}

func extractAuthor(entry map[string]any) string {
	if author, _ := stringField(entry, "author"); author != "" {
		return author
	}

	switch authors := entry["authors"].(type) {
	case string:
		return authors
	case []any:
		parts := make([]string, 0, len(authors))
		for _, author := range authors {
			if s, ok := author.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}

	return ""
}

// extractDate keeps dates in their corpus form: date_published truncated to
// the day, published truncated to the minute.
func extractDate(entry map[string]any) string {
	if date, _ := stringField(entry, "date_published"); len(date) >= 10 {
		return date[:10]
	}
	if published, _ := stringField(entry, "published"); len(published) >= 16 {
		return published[:16]
	}

	return ""
}

func extractURL(entry map[string]any) string {
	for _, key := range []string{"link", "url", "doi"} {
		if u, _ := stringField(entry, key); u != "" {
			return u
		}
	}

	return ""
}

func extractTags(entry map[string]any) string {
	switch tags := entry["tags"].(type) {
	case string:
		return tags
	case []any:
		terms := make([]string, 0, len(tags))
		for _, tag := range tags {
			obj, ok := tag.(map[string]any)
			if !ok {
				continue
			}
			if term, ok := obj["term"].(string); ok && term != "" {
				terms = append(terms, term)
			}
		}
		return strings.Join(terms, ", ")
	}

	return ""
}

// signature builds the metadata preamble prefixed to block text before
// embedding. Tags are left out on purpose.
func signature(article Article) string {
	parts := make([]string, 0, 4)
	if article.Title != "" {
		parts = append(parts, "Title: "+article.Title)
	}
	if article.Author != "" {
		parts = append(parts, "Author: "+article.Author)
	}
	if article.Date != "" {
		parts = append(parts, "Date published: "+article.Date)
	}
	if article.URL != "" {
		parts = append(parts, "URL: "+article.URL)
	}

	return strings.Join(parts, ", ")
}

// articleKey derives the stable identity used for incremental re-ingestion.
// The URL is the natural key; URL-less entries fall back to source and title,
// then to a content digest.
func articleKey(article Article) string {
	if article.URL != "" {
		return article.URL
	}
	if article.Title != "" {
		return article.Source + "|" + article.Title
	}

	sum := sha256.Sum256([]byte(article.Text))
	return hex.EncodeToString(sum[:])
}

// fingerprint digests every field that affects stored blocks, so any change
// to an article re-ingests it.
func fingerprint(article Article) string {
	h := sha256.New()
	for _, part := range []string{article.Source, article.Title, article.Author, article.Date, article.URL, article.Tags, article.Text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))
}

func stringField(entry map[string]any, key string) (string, bool) {
	v, ok := entry[key]
	if !ok {
		return "", false
	}

	s, _ := v.(string)
	return s, true
}
