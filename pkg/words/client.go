package words

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL           = "https://dragapi.xploited.xyz/v1/"
	DefaultRequestsPerSecond = 6
	DefaultTimeout           = 10 * time.Second
)

type Word struct {
	ID   int    `json:"id"`
	Word string `json:"word"`
}

type NewClientOptions struct {
	BaseURL           string
	RequestsPerSecond float64
	Timeout           time.Duration
	// Transport defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// Client fetches words from the word API. Requests are throttled before
// they leave the process.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

func NewClient(opts NewClientOptions) (*Client, error) {
	raw := opts.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	baseURL, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid word api url %q: %v", raw, err)
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &rateLimitedTransport{
				limiter: rate.NewLimiter(rate.Limit(rps), 1),
				next:    transport,
			},
		},
	}, nil
}

// RandomWord returns a random word in lang.
func (c *Client) RandomWord(ctx context.Context, lang Language) (Word, error) {
	return c.get(ctx, "word", lang)
}

// WordByID returns the word with id in lang.
func (c *Client) WordByID(ctx context.Context, id int, lang Language) (Word, error) {
	return c.get(ctx, "word/"+strconv.Itoa(id), lang)
}

func (c *Client) get(ctx context.Context, path string, lang Language) (Word, error) {
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path})
	query := endpoint.Query()
	query.Set("lang", string(lang))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return Word{}, fmt.Errorf("failed to build word request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Word{}, fmt.Errorf("failed to reach word api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Word{}, fmt.Errorf("failed to read word response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Word{}, fmt.Errorf("word request failed (%d)", resp.StatusCode)
	}

	var word Word
	if err := json.Unmarshal(body, &word); err != nil {
		return Word{}, fmt.Errorf("failed to parse word response: %v", err)
	}
	if word.Word == "" {
		return Word{}, fmt.Errorf("word response has no word")
	}
	return word, nil
}

type rateLimitedTransport struct {
	limiter *rate.Limiter
	next    http.RoundTripper
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}
