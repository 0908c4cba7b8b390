// Package search implements the scheme search side of the upload form:
// a guarded search call, a debouncer scoped to its owner, and request tokens
// that let late responses for superseded queries be discarded.
package search

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/epeers/mftracker/internal/models"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultMinLength is the shortest query sent to the backend.
	DefaultMinLength = 2
	// DefaultDebounce is the quiet period before a query is issued.
	DefaultDebounce = 300 * time.Millisecond
)

// Backend is the scheme search endpoint.
type Backend interface {
	SearchSchemes(ctx context.Context, query string) ([]models.SchemeCandidate, error)
}

// Client runs scheme searches against the backend.
type Client struct {
	backend   Backend
	minLength int
}

// NewClient creates a search client. minLength <= 0 selects DefaultMinLength.
func NewClient(backend Backend, minLength int) *Client {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return &Client{backend: backend, minLength: minLength}
}

// Eligible reports whether query is long enough to be sent to the backend.
func (c *Client) Eligible(query string) bool {
	return utf8.RuneCountInString(query) >= c.minLength
}

// Search returns matching schemes. Queries shorter than the minimum length
// return an empty result without a network call.
func (c *Client) Search(ctx context.Context, query string) ([]models.SchemeCandidate, error) {
	if !c.Eligible(query) {
		return nil, nil
	}

	start := time.Now()
	schemes, err := c.backend.SearchSchemes(ctx, query)
	log.Debugf("scheme search %q took %d ms", query, time.Since(start).Milliseconds())
	if err != nil {
		return nil, err
	}
	return schemes, nil
}
