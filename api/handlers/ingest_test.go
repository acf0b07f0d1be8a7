package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestHandleIngestValidation(t *testing.T) {
	assert := require.New(t)
	router := setupTestServer(t, assert)
	corpusPath := writeTestCorpus(t, assert)

	testCases := []testCase{
		{
			name:           "NoRequestBody",
			requestHeaders: defaultTestRequestHeaders,
			requestBody:    nil,
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "MissingPath",
			requestHeaders: defaultTestRequestHeaders,
			requestBody:    map[string]any{"sample_fraction": 0.5},
			expectedStatus: http.StatusNotAcceptable,
		},
		{
			name:           "RelativePath",
			requestHeaders: defaultTestRequestHeaders,
			requestBody:    map[string]any{"path": "./corpus.jsonl"},
			expectedStatus: http.StatusNotAcceptable,
		},
		{
			name:           "NonexistentPath",
			requestHeaders: defaultTestRequestHeaders,
			requestBody:    map[string]any{"path": "/no-such-corpus.jsonl"},
			expectedStatus: http.StatusNotAcceptable,
		},
		{
			name:           "FractionTooLarge",
			requestHeaders: defaultTestRequestHeaders,
			requestBody:    map[string]any{"path": corpusPath, "sample_fraction": 1.5},
			expectedStatus: http.StatusNotAcceptable,
		},
		{
			name:           "NegativeFraction",
			requestHeaders: defaultTestRequestHeaders,
			requestBody:    map[string]any{"path": corpusPath, "sample_fraction": -0.5},
			expectedStatus: http.StatusNotAcceptable,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			w := makeTestHTTPRequest(router, assert, http.MethodPost, "/ingest", testCase.requestHeaders, testCase.requestBody, testCase.queryParams)
			responseBytes := w.Body.Bytes()
			assert.Equal(testCase.expectedStatus, w.Code, fmt.Sprintf("response gotten was %s", string(responseBytes)))
		})
	}
}

func TestHandleIngest(t *testing.T) {
	assert := require.New(t)
	router := setupTestServer(t, assert)
	corpusPath := writeTestCorpus(t, assert)

	w := makeTestHTTPRequest(router, assert, http.MethodPost, "/ingest", defaultTestRequestHeaders, map[string]any{"path": corpusPath}, nil)
	responseBytes := w.Body.Bytes()
	assert.Equal(http.StatusAccepted, w.Code, fmt.Sprintf("response gotten was %s", string(responseBytes)))

	var accepted struct {
		Data   IngestResponse `json:"data"`
		Errors []string       `json:"errors"`
	}
	assert.NoError(json.Unmarshal(responseBytes, &accepted))
	requestID, err := uuid.Parse(accepted.Data.RequestID)
	assert.NoError(err, "got an error parsing gotten request_id into UUID")

	waitForIngestCompletion(assert, router, requestID.String())

	// A finished run frees the pipeline for the next one.
	w = makeTestHTTPRequest(router, assert, http.MethodPost, "/ingest", defaultTestRequestHeaders, map[string]any{"path": corpusPath}, nil)
	assert.Equal(http.StatusAccepted, w.Code)

	var second struct {
		Data IngestResponse `json:"data"`
	}
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &second))
	assert.NotEqual(requestID.String(), second.Data.RequestID)
	waitForIngestCompletion(assert, router, second.Data.RequestID)
}

func TestHandleIngestProgressUnknownRequest(t *testing.T) {
	assert := require.New(t)
	router := setupTestServer(t, assert)

	w := makeTestHTTPRequest(router, assert, http.MethodGet, "/ingest/progress", nil, nil, map[string]string{"request_id": uuid.New().String()})
	assert.Equal(http.StatusNotFound, w.Code)

	var response struct {
		Errors []string `json:"errors"`
	}
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &response))
	assert.NotEmpty(response.Errors)
}

func TestHandleIngestProgressMissingRequestID(t *testing.T) {
	assert := require.New(t)
	router := setupTestServer(t, assert)

	w := makeTestHTTPRequest(router, assert, http.MethodGet, "/ingest/progress", nil, nil, nil)
	assert.Equal(http.StatusUnprocessableEntity, w.Code)
}
