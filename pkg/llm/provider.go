package llm

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"time"
)

// Provider is a completion-oriented language model client. Implementations
// return the full response text in one call; the pipeline consumes whole
// structured responses, never partial output.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request describes a single completion request.
type Request struct {
	System    string
	Prompt    string
	Images    []Image
	MaxTokens int
}

// Image is an image input attached to a request, referenced by URL.
type Image struct {
	URL       string
	MediaType string
}

const maxRetries = 3

// doWithRetry executes an HTTP request, retrying on 429 and 5xx responses
// with exponential backoff. The request is rebuilt for each attempt because
// request bodies are single-use.
func doWithRetry(ctx context.Context, client *http.Client, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
			backoff += time.Duration(rand.Int63n(int64(backoff) / 2))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			lastErr = &httpStatusError{status: resp.Status, code: resp.StatusCode}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

type httpStatusError struct {
	status string
	code   int
}

func (e *httpStatusError) Error() string {
	return "retryable http status: " + e.status
}
