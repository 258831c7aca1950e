// Package document retrieves resume text. The user service hands back a
// URL; the actual extraction service behind it returns plain text.
package document

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/InterviewAndHealth/Conversation-Service/internal/apperr"
)

// Fetcher resolves a document URL to its text content.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// HTTPFetcher downloads documents with a size cap.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewHTTPFetcher(maxBytes int64) *HTTPFetcher {
	if maxBytes == 0 {
		maxBytes = 5 * 1024 * 1024
	}
	return &HTTPFetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		maxBytes: maxBytes,
	}
}

// FetchText downloads the document body as text.
func (f *HTTPFetcher) FetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", apperr.Internal("build document request: %v", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", apperr.Internal("fetch document: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", apperr.Internal("fetch document: status %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, f.maxBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return "", apperr.Internal("read document: %v", err)
	}
	if int64(len(body)) > f.maxBytes {
		return "", apperr.Internal("document too large (>%d bytes)", f.maxBytes)
	}
	if len(body) == 0 {
		return "", fmt.Errorf("%w: document is empty", apperr.ErrNotFound)
	}

	return string(body), nil
}
