package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is where a local Ollama listens out of the box.
const DefaultBaseURL = "http://localhost:11434"

const (
	chatPath    = "/api/chat"
	versionPath = "/api/version"
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL string
	// Timeout bounds a whole call. Zero leaves it to the transport and the caller's context.
	Timeout        time.Duration
	ConnectTimeout time.Duration
	// HTTPClient overrides the constructed client (tests).
	HTTPClient *http.Client
}

// Client talks to an Ollama server over HTTP. It is safe for concurrent use;
// build one at startup and share it.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// New constructs a Client.
func New(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	cli := opts.HTTPClient
	if cli == nil {
		connect := opts.ConnectTimeout
		if connect <= 0 {
			connect = 30 * time.Second
		}
		tr := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   connect,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
		// Deadlines travel on the request context, see do().
		cli = &http.Client{Transport: tr}
	}
	return &Client{baseURL: base, timeout: opts.Timeout, httpClient: cli}
}

// BaseURL returns the normalized upstream address.
func (c *Client) BaseURL() string { return c.baseURL }

// PostChat sends a non-streaming chat request to /api/chat.
func (c *Client) PostChat(ctx context.Context, payload ChatPayload) (ChatResult, error) {
	var out ChatResult
	body, err := json.Marshal(payload)
	if err != nil {
		return out, err
	}
	err = c.do(ctx, http.MethodPost, chatPath, body, &out)
	return out, err
}

// Version queries /api/version.
func (c *Client) Version(ctx context.Context) (VersionResult, error) {
	var out VersionResult
	err := c.do(ctx, http.MethodGet, versionPath, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) (err error) {
	start := time.Now()
	defer func() { observeUpstream(path, err, time.Since(start)) }()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return UnavailableError{URL: endpoint, Err: ctx.Err()}
		}
		return UnavailableError{URL: endpoint, Err: unwrapURLError(err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	// An empty 2xx body (204 included) leaves out at its zero value.
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return ProtocolError{Endpoint: path, Err: err}
	}
	return nil
}

// unwrapURLError drops the *url.Error envelope, whose message repeats method and URL.
func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err
	}
	return err
}
