package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/epeers/mftracker/internal/models"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Client is an HTTP client for the fund tracker backend.
// The backend owns spreadsheet parsing and scheme matching; this client only
// moves requests and responses across the wire.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new backend client.
// rps > 0 enables a proactive token-bucket throttle shared by all copies made with WithToken.
func NewClient(baseURL string, timeout time.Duration, rps float64) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return c
}

// WithToken returns a copy of the client that authenticates as the given bearer token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// SearchSchemes queries GET /schemes/search
func (c *Client) SearchSchemes(ctx context.Context, query string) ([]models.SchemeCandidate, error) {
	params := url.Values{}
	params.Set("q", query)

	body, err := c.doRequest(ctx, http.MethodGet, "/schemes/search?"+params.Encode(), nil, "")
	if err != nil {
		return nil, err
	}

	var resp models.SchemeSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return resp.Schemes, nil
}

// UploadHoldings posts an encoded multipart upload to POST /upload-holdings/
func (c *Client) UploadHoldings(ctx context.Context, form io.Reader, contentType string) (*models.UploadResponse, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/upload-holdings/", form, contentType)
	if err != nil {
		return nil, err
	}

	var resp models.UploadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &resp, nil
}

// ConfirmScheme binds a pending upload record to the chosen scheme via PATCH /funds/{id}/scheme
func (c *Client) ConfirmScheme(ctx context.Context, pendingRecordID, schemeCode string) error {
	payload, err := json.Marshal(models.ConfirmSchemeRequest{SchemeCode: schemeCode})
	if err != nil {
		return &RequestError{Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	path := "/funds/" + url.PathEscape(pendingRecordID) + "/scheme"
	_, err = c.doRequest(ctx, http.MethodPatch, path, bytes.NewReader(payload), "application/json")
	return err
}

// RefreshHoldings replaces a fund's holdings via PATCH /funds/{id}/holdings
func (c *Client) RefreshHoldings(ctx context.Context, fundID string, form io.Reader, contentType string) (*models.HoldingsRefreshResponse, error) {
	path := "/funds/" + url.PathEscape(fundID) + "/holdings"
	body, err := c.doRequest(ctx, http.MethodPatch, path, form, contentType)
	if err != nil {
		return nil, err
	}

	var resp models.HoldingsRefreshResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &resp, nil
}

// ListFunds fetches the caller's tracked funds from GET /funds/.
// The backend has answered both with a bare array and with {"funds": [...]}.
func (c *Client) ListFunds(ctx context.Context) ([]models.Fund, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/funds/", nil, "")
	if err != nil {
		return nil, err
	}

	var funds []models.Fund
	if err := json.Unmarshal(body, &funds); err == nil {
		return funds, nil
	}
	var wrapped struct {
		Funds []models.Fund `json:"funds"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return wrapped.Funds, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &RequestError{Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &RequestError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, &RequestError{Err: err}
		}
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to read response: %w", err)}
	}
	log.Debugf("%s %s -> %d in %d ms", method, path, resp.StatusCode, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServerError{StatusCode: resp.StatusCode, Detail: errorDetail(respBody)}
	}
	return respBody, nil
}
