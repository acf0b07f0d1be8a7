package searchdb

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ProducerMatt/stampy-chat/config"
	"github.com/ProducerMatt/stampy-chat/logger"
)

var testDocuments = []Document{
	{
		ID:         "block-1",
		ArticleKey: "the-easy-goal-inference-problem-is-still-hard",
		Title:      "The easy goal inference problem is still hard",
		Author:     "Paul Christiano",
		Date:       "2018-11-05",
		URL:        "https://www.alignmentforum.org/posts/h9DesGT3WT9u2k7Hr",
		Tags:       "Value Learning",
		Text:       "Ambitious value learning tries to infer preferences from observed behavior.",
	},
	{
		ID:         "block-2",
		ArticleKey: "what-failure-looks-like",
		Title:      "What failure looks like",
		Author:     "Paul Christiano",
		Date:       "2019-03-17",
		URL:        "https://www.alignmentforum.org/posts/HBxe6wdjxK239zajf",
		Tags:       "AI Risk",
		Text:       "Machine learning systems pursue easily measured proxies instead of what we care about.",
	},
	{
		ID:         "block-3",
		ArticleKey: "the-scaling-hypothesis",
		Title:      "The Scaling Hypothesis",
		Author:     "Gwern Branwen",
		Date:       "2020-05-28",
		URL:        "https://gwern.net/scaling-hypothesis",
		Tags:       "Scaling",
		Text:       "Neural networks get predictably more capable with more compute and data.",
	},
}

func newTestLogger() logger.Logger {
	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

func newTestDB(t *testing.T, assert *require.Assertions) *BleveDB {
	t.Setenv("INDEX_PATH", filepath.Join(t.TempDir(), "blocks.bleve"))

	cfg, err := config.Load()
	assert.NoError(err, "could not load config")

	db, err := New(newTestLogger(), cfg)
	assert.NoError(err, "could not create search database")
	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func searchIDs(assert *require.Assertions, db *BleveDB, query string) []string {
	response, err := db.Search(query, 10, 0)
	assert.NoError(err)

	ids := make([]string, len(response.Results))
	for i, result := range response.Results {
		ids[i] = result.ID
	}
	return ids
}

func TestBuildIndexAndSearch(t *testing.T) {
	assert := require.New(t)
	db := newTestDB(t, assert)

	assert.NoError(db.BuildIndex(testDocuments))

	count, err := db.GetDocCount()
	assert.NoError(err)
	assert.Equal(uint64(3), count)

	assert.Contains(searchIDs(assert, db, "value learning"), "block-1")
	assert.Contains(searchIDs(assert, db, "proxies"), "block-2")
	assert.Contains(searchIDs(assert, db, "scaling"), "block-3")
	assert.Contains(searchIDs(assert, db, "gwern"), "block-3", "author terms are searchable")
	assert.Empty(searchIDs(assert, db, "zzyzx"), "unknown terms match nothing")
}

func TestSearchEmptyQueryMatchesAll(t *testing.T) {
	assert := require.New(t)
	db := newTestDB(t, assert)

	assert.NoError(db.BuildIndex(testDocuments))

	response, err := db.Search("", 10, 0)
	assert.NoError(err)
	assert.Equal(uint64(3), response.Total)
}

func TestSearchPagination(t *testing.T) {
	assert := require.New(t)
	db := newTestDB(t, assert)

	assert.NoError(db.BuildIndex(testDocuments))

	firstPage, err := db.Search("", 2, 0)
	assert.NoError(err)
	assert.Len(firstPage.Results, 2)
	assert.Equal(uint64(3), firstPage.Total)

	secondPage, err := db.Search("", 2, 2)
	assert.NoError(err)
	assert.Len(secondPage.Results, 1)
}

func TestDeleteDocuments(t *testing.T) {
	assert := require.New(t)
	db := newTestDB(t, assert)

	assert.NoError(db.BuildIndex(testDocuments))
	assert.NoError(db.DeleteDocuments([]string{"block-1"}))

	count, err := db.GetDocCount()
	assert.NoError(err)
	assert.Equal(uint64(2), count)

	assert.NotContains(searchIDs(assert, db, "value learning"), "block-1")
}
