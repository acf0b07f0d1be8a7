package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var extractSourceTestCases = []struct {
	name       string
	entry      map[string]any
	wantSource string
	wantSkip   string
}{
	{
		name:       "ExplicitSourceWins",
		entry:      map[string]any{"source": "alignment forum", "url": "https://www.cold-takes.com/"},
		wantSource: "alignment forum",
	},
	{
		name:       "ColdTakesByURL",
		entry:      map[string]any{"url": "https://www.cold-takes.com/"},
		wantSource: "Cold Takes",
	},
	{
		name:       "QuestionAnswerIsPrintouts",
		entry:      map[string]any{"question": "What is AI?", "answer": "Software."},
		wantSource: "printouts",
	},
	{
		name:       "GwernByArticleURL",
		entry:      map[string]any{"article_url": "https://www.gwern.net"},
		wantSource: "gwern.net",
	},
	{
		name:       "GenerativeInkByURL",
		entry:      map[string]any{"url": "https://generative.ink/posts/"},
		wantSource: "generative.ink",
	},
	{
		name:       "GreaterwrongByURLPrefix",
		entry:      map[string]any{"url": "https://greaterwrong.com/posts/abc/some-post"},
		wantSource: "greaterwrong.com",
	},
	{
		name:     "UnknownURLHasNoSource",
		entry:    map[string]any{"url": "https://example.com/post"},
		wantSkip: "entry has no source",
	},
	{
		name:     "EmptyEntryHasNoSource",
		entry:    map[string]any{},
		wantSkip: "entry has no source",
	},
}

func TestExtractSource(t *testing.T) {
	for _, tc := range extractSourceTestCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := require.New(t)

			source, err := extractSource(tc.entry)
			if tc.wantSkip != "" {
				assert.Error(err)
				assert.Equal(tc.wantSkip, skipReason(err))
				return
			}

			assert.NoError(err)
			assert.Equal(tc.wantSource, source)
		})
	}
}

var extractArticleTestCases = []struct {
	name  string
	entry map[string]any
	want  Article
}{
	{
		name: "AllFieldsPresent",
		entry: map[string]any{
			"title":          "Risks from Learned Optimization",
			"author":         "Evan Hubinger",
			"date_published": "2019-06-05T12:00:00Z",
			"link":           "https://example.com/risks",
			"tags":           []any{map[string]any{"term": "mesa-optimization"}, map[string]any{"term": "inner alignment"}},
			"text":           "Optimization is everywhere.",
		},
		want: Article{
			Key:    "https://example.com/risks",
			Source: "alignment forum",
			Title:  "Risks from Learned Optimization",
			Author: "Evan Hubinger",
			Date:   "2019-06-05",
			URL:    "https://example.com/risks",
			Tags:   "mesa-optimization, inner alignment",
			Text:   "Optimization is everywhere.",
		},
	},
	{
		name:  "TitleStripsTrailingNewline",
		entry: map[string]any{"title": "Superintelligence\n", "url": "https://example.com/si", "text": "Machines."},
		want: Article{
			Key:    "https://example.com/si",
			Source: "alignment forum",
			Title:  "Superintelligence",
			URL:    "https://example.com/si",
			Text:   "Machines.",
		},
	},
	{
		name:  "BookTitleFallback",
		entry: map[string]any{"book_title": "The Alignment Problem\n", "url": "https://example.com/ap", "text": "Norbert Wiener warned us."},
		want: Article{
			Key:    "https://example.com/ap",
			Source: "alignment forum",
			Title:  "The Alignment Problem",
			URL:    "https://example.com/ap",
			Text:   "Norbert Wiener warned us.",
		},
	},
	{
		name:  "AuthorsListJoined",
		entry: map[string]any{"authors": []any{"Ann", "Ben", "Cal"}, "url": "https://example.com/j", "text": "Joint work."},
		want: Article{
			Key:    "https://example.com/j",
			Source: "alignment forum",
			Author: "Ann, Ben, Cal",
			URL:    "https://example.com/j",
			Text:   "Joint work.",
		},
	},
	{
		name:  "AuthorPreferredOverAuthors",
		entry: map[string]any{"author": "Ann", "authors": []any{"Ben"}, "url": "https://example.com/p", "text": "Solo credit."},
		want: Article{
			Key:    "https://example.com/p",
			Source: "alignment forum",
			Author: "Ann",
			URL:    "https://example.com/p",
			Text:   "Solo credit.",
		},
	},
	{
		name:  "AuthorsStringPassedThrough",
		entry: map[string]any{"authors": "Ann and Ben", "url": "https://example.com/s", "text": "Both of them."},
		want: Article{
			Key:    "https://example.com/s",
			Source: "alignment forum",
			Author: "Ann and Ben",
			URL:    "https://example.com/s",
			Text:   "Both of them.",
		},
	},
	{
		name:  "PublishedFallbackKeepsMinutes",
		entry: map[string]any{"published": "2021-03-04T05:06:07Z", "url": "https://example.com/m", "text": "Timestamped."},
		want: Article{
			Key:    "https://example.com/m",
			Source: "alignment forum",
			Date:   "2021-03-04T05:06",
			URL:    "https://example.com/m",
			Text:   "Timestamped.",
		},
	},
	{
		name:  "ShortDatesIgnored",
		entry: map[string]any{"date_published": "2021", "published": "2021-03", "url": "https://example.com/sd", "text": "Undated."},
		want: Article{
			Key:    "https://example.com/sd",
			Source: "alignment forum",
			URL:    "https://example.com/sd",
			Text:   "Undated.",
		},
	},
	{
		name:  "LinkPreferredOverURLAndDOI",
		entry: map[string]any{"link": "https://example.com/l", "url": "https://example.com/u", "doi": "10.1234/x", "text": "Linked."},
		want: Article{
			Key:    "https://example.com/l",
			Source: "alignment forum",
			URL:    "https://example.com/l",
			Text:   "Linked.",
		},
	},
	{
		name:  "DOIFallback",
		entry: map[string]any{"doi": "10.1234/x", "text": "Published."},
		want: Article{
			Key:    "10.1234/x",
			Source: "alignment forum",
			URL:    "10.1234/x",
			Text:   "Published.",
		},
	},
	{
		name:  "TagsRawString",
		entry: map[string]any{"tags": "ai, safety", "url": "https://example.com/t", "text": "Tagged."},
		want: Article{
			Key:    "https://example.com/t",
			Source: "alignment forum",
			Tags:   "ai, safety",
			URL:    "https://example.com/t",
			Text:   "Tagged.",
		},
	},
	{
		name:  "TitleOnlyKeysBySourceAndTitle",
		entry: map[string]any{"title": "No URL Here", "text": "Body."},
		want: Article{
			Key:    "alignment forum|No URL Here",
			Source: "alignment forum",
			Title:  "No URL Here",
			Text:   "Body.",
		},
	},
}

func TestExtractArticle(t *testing.T) {
	for _, tc := range extractArticleTestCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := require.New(t)

			article, err := extractArticle(tc.entry, "alignment forum")
			assert.NoError(err)
			assert.Equal(tc.want, article)
		})
	}
}

func TestExtractArticleRequiresText(t *testing.T) {
	assert := require.New(t)

	for _, entry := range []map[string]any{
		{"title": "No Body"},
		{"title": "Empty Body", "text": ""},
	} {
		_, err := extractArticle(entry, "alignment forum")
		assert.Error(err)
		assert.Equal("entry has no text", skipReason(err))
	}
}

func TestArticleKeyFallsBackToContentDigest(t *testing.T) {
	assert := require.New(t)

	first := articleKey(Article{Source: "x", Text: "some article body"})
	assert.Len(first, 64)

	same := articleKey(Article{Source: "y", Text: "some article body"})
	assert.Equal(first, same)

	other := articleKey(Article{Source: "x", Text: "a different body"})
	assert.NotEqual(first, other)
}

func TestFingerprintTracksEveryField(t *testing.T) {
	assert := require.New(t)

	base := Article{Source: "s", Title: "t", Author: "a", Date: "d", URL: "u", Tags: "g", Text: "x"}
	assert.Equal(fingerprint(base), fingerprint(base))

	changed := base
	changed.Tags = "g2"
	assert.NotEqual(fingerprint(base), fingerprint(changed))

	changed = base
	changed.Text = "x2"
	assert.NotEqual(fingerprint(base), fingerprint(changed))
}

var signatureTestCases = []struct {
	name    string
	article Article
	want    string
}{
	{
		name:    "AllParts",
		article: Article{Title: "T", Author: "A", Date: "2020-01-01", URL: "https://u"},
		want:    "Title: T, Author: A, Date published: 2020-01-01, URL: https://u",
	},
	{
		name:    "MissingPartsOmitted",
		article: Article{Title: "T", URL: "https://u"},
		want:    "Title: T, URL: https://u",
	},
	{
		name:    "TagsNeverIncluded",
		article: Article{Title: "T", Tags: "x, y"},
		want:    "Title: T",
	},
	{
		name:    "AllEmpty",
		article: Article{},
		want:    "",
	},
}

func TestSignature(t *testing.T) {
	for _, tc := range signatureTestCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, signature(tc.article))
		})
	}
}
