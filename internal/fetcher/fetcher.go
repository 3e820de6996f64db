package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"technewsag/internal/config"
)

// ErrorKind classifies a fetch failure.
type ErrorKind int

const (
	KindTimeout ErrorKind = iota
	KindNetwork
	KindHTTP
	KindBlocked
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindBlocked:
		return "blocked"
	}
	return "unknown"
}

// FetchError is the failure type for all outbound requests. Cancellation by
// timeout resolves to KindTimeout; it never propagates as a bare context error.
type FetchError struct {
	Kind   ErrorKind
	Status int
	URL    string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Kind == KindHTTP || e.Kind == KindBlocked {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.Status)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client retrieves raw feed payloads through the feed gateway and raw page
// HTML through the proxy gateway. One source's failure never affects another:
// every request carries its own timeout.
type Client struct {
	httpClient *http.Client
	gatewayURL string
	proxyURL   string
	timeout    time.Duration
	count      int
}

func New(cfg *config.Config) *Client {
	return &Client{
		httpClient: &http.Client{},
		gatewayURL: cfg.GatewayURL,
		proxyURL:   cfg.ProxyURL,
		timeout:    cfg.FetchTimeout,
		count:      cfg.FetchCount,
	}
}

// FetchFeed retrieves the gateway payload for one feed source. The returned
// bytes are the gateway's JSON envelope; parsing is the parser's concern.
func (c *Client) FetchFeed(ctx context.Context, src config.FeedSource) ([]byte, error) {
	u, err := url.Parse(c.gatewayURL)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: c.gatewayURL, Err: err}
	}
	q := u.Query()
	q.Set("rss_url", src.FeedURL)
	q.Set("count", strconv.Itoa(c.count))
	u.RawQuery = q.Encode()

	return c.get(ctx, u.String())
}

// FetchPage retrieves one page of raw HTML through the proxy gateway. The
// proxy wraps the page in a JSON envelope with a "contents" field; the
// unwrapped HTML is returned.
func (c *Client) FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	u, err := url.Parse(c.proxyURL)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: c.proxyURL, Err: err}
	}
	q := u.Query()
	q.Set("url", pageURL)
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, u.String())
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Contents string `json:"contents"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Contents == "" {
		return nil, &FetchError{Kind: KindNetwork, URL: pageURL, Err: fmt.Errorf("proxy envelope missing contents")}
	}
	return []byte(envelope.Contents), nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", "technewsag/1.0")
	req.Header.Set("Accept", "application/json, application/xml, text/html;q=0.9, */*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() == context.DeadlineExceeded {
			return nil, &FetchError{Kind: KindTimeout, URL: rawURL, Err: err}
		}
		return nil, &FetchError{Kind: KindNetwork, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return nil, &FetchError{Kind: KindBlocked, Status: resp.StatusCode, URL: rawURL}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &FetchError{Kind: KindHTTP, Status: resp.StatusCode, URL: rawURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &FetchError{Kind: KindTimeout, URL: rawURL, Err: err}
		}
		return nil, &FetchError{Kind: KindNetwork, URL: rawURL, Err: err}
	}
	return body, nil
}
