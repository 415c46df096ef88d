package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// DefaultTimeout is the budget applied to every call when none is configured.
const DefaultTimeout = 10 * time.Second

var (
	// ErrTimeout is returned when no response arrived within the timeout budget
	ErrTimeout = errors.New("request timed out")

	// ErrTransport is returned on connection level failures
	ErrTransport = errors.New("transport failure")
)

// HTTPError is returned when a response was received with a status of 300 or more.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status code: %d: %s", e.StatusCode, e.Body)
}

type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client issues bearer authenticated requests with a bounded timeout.
type Client struct {
	token      string
	timeout    time.Duration
	httpClient HTTPClient
}

func NewClient(token string, timeout time.Duration, httpClient HTTPClient) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		token:      token,
		timeout:    timeout,
		httpClient: httpClient,
	}
}

// Do sends the request exactly once. A non-nil error is always one of
// ErrTimeout, ErrTransport (both wrapped) or *HTTPError.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrTransport, err)
	}

	for key, values := range r.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = res.Body.Close() }()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, classify(err)
	}

	if res.StatusCode >= http.StatusMultipleChoices {
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: resBody}
	}

	return &Response{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       resBody,
	}, nil
}

func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: url})
}

// PostJSON posts an already encoded JSON body.
func (c *Client) PostJSON(ctx context.Context, url string, body []byte) (*Response, error) {
	return c.Do(ctx, Request{
		Method: http.MethodPost,
		URL:    url,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   body,
	})
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrTransport, err)
}
