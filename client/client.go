package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ProducerMatt/stampy-chat/logger"
)

// DefaultBaseURL is used when no API base is configured.
const DefaultBaseURL = "http://127.0.0.1:3000"

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

func New(baseURL string, logger logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger,
	}
}

type searchRequest struct {
	Query string `json:"query"`
}

// Search posts the query to /semantic and returns the decoded results. The
// query is sent exactly as given, the empty string included. A non-success
// status is logged but the body is still decoded: the server's error pages
// are not distinguishable from results until decoding fails. Requests are
// made once, with no retries and no timeout beyond ctx.
func (c *Client) Search(ctx context.Context, query string) ([]ResultEntry, error) {
	body, err := json.Marshal(searchRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/semantic", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to reach search API: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Warn("search API returned non-success status", "status", resp.StatusCode)
	}

	var entries []ResultEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	if entries == nil {
		entries = []ResultEntry{}
	}

	return entries, nil
}

// Lexical queries GET /search, the full-text endpoint.
func (c *Client) Lexical(ctx context.Context, query string, perPage, page int) ([]LexicalResult, Pagination, error) {
	params := url.Values{}
	params.Set("query", query)
	if perPage > 0 {
		params.Set("per_page", strconv.Itoa(perPage))
	}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}

	var data struct {
		Results     []LexicalResult `json:"results"`
		PageDetails Pagination      `json:"page_details"`
	}
	if err := c.getJSON(ctx, "/search?"+params.Encode(), &data); err != nil {
		return nil, Pagination{}, err
	}

	return data.Results, data.PageDetails, nil
}

// StartIngest kicks off a corpus ingestion run and returns its request ID.
func (c *Client) StartIngest(ctx context.Context, req IngestRequest) (string, error) {
	var data struct {
		RequestID string `json:"request_id"`
	}
	if err := c.postJSON(ctx, "/ingest", req, &data); err != nil {
		return "", err
	}

	return data.RequestID, nil
}

// IngestProgress reports an ingestion run's progress: 0..100, or -1 when the
// run failed.
func (c *Client) IngestProgress(ctx context.Context, requestID string) (int, error) {
	var data struct {
		RequestID string `json:"request_id"`
		Progress  int    `json:"progress"`
	}
	if err := c.getJSON(ctx, "/ingest/progress?request_id="+url.QueryEscape(requestID), &data); err != nil {
		return 0, err
	}

	return data.Progress, nil
}

func (c *Client) Stats(ctx context.Context) (CorpusStats, error) {
	var data CorpusStats
	if err := c.getJSON(ctx, "/stats", &data); err != nil {
		return CorpusStats{}, err
	}

	return data, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("failed to reach search API: %w", err)
	}
	defer resp.Body.Close()

	return c.decodeEnvelope(resp, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("failed to reach search API: %w", err)
	}
	defer resp.Body.Close()

	return c.decodeEnvelope(resp, out)
}

// decodeEnvelope unpacks the {data, errors} shape the non-semantic endpoints
// respond with.
func (c *Client) decodeEnvelope(resp *http.Response, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env struct {
		Data   json.RawMessage `json:"data"`
		Errors []string        `json:"errors"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if len(env.Errors) > 0 {
			return fmt.Errorf("search API returned status %d: %s", resp.StatusCode, strings.Join(env.Errors, "; "))
		}
		return fmt.Errorf("search API returned status %d", resp.StatusCode)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}

	return nil
}
