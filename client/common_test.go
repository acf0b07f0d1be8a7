// Common test helpers
package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"

	"github.com/ProducerMatt/stampy-chat/logger"
)

var sampleEntries = []ResultEntry{
	{
		Title:  "The easy goal inference problem is still hard",
		Author: "Paul Christiano",
		Date:   "2018-11-05",
		URL:    "https://www.alignmentforum.org/posts/h9DesGT3WT9u2k7Hr",
		Tags:   "Value Learning, Goal Inference",
		Text:   "One approach to AI alignment is goal inference.\n.....\nThe problem remains open.",
	},
	{
		Title:  "What failure looks like",
		Author: "Paul Christiano",
		Date:   "2019-03-17",
		URL:    "https://www.alignmentforum.org/posts/HBxe6wdjxK239zajf",
		Tags:   "AI Risk",
		Text:   "Part one.\n\nPart two.",
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

// pageState records the setter calls a submission makes, in call order, so
// tests can assert the exact mutation sequence.
type pageState struct {
	mu      sync.Mutex
	events  []string
	results []ResultEntry
	gotSet  bool
}

func (p *pageState) record(event string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *pageState) ui() UIState {
	return UIState{
		SetQueryText: func(q string) {
			p.record("query:" + q)
		},
		SetLoading: func(on bool) {
			p.record(fmt.Sprintf("loading:%t", on))
		},
		SetResults: func(entries []ResultEntry) {
			p.mu.Lock()
			p.results = entries
			p.gotSet = true
			p.mu.Unlock()
			p.record(fmt.Sprintf("results:%d", len(entries)))
		},
	}
}

func (p *pageState) snapshot() ([]string, []ResultEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	events := make([]string, len(p.events))
	copy(events, p.events)
	return events, p.results, p.gotSet
}

func newSemanticTestServer(status int, body any) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		switch v := body.(type) {
		case string:
			fmt.Fprint(w, v)
		default:
			_ = json.NewEncoder(w).Encode(v)
		}
	}))
}
