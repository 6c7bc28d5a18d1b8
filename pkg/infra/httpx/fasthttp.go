package httpx

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
)

const (
	DefaultTimeout         = 15 * time.Second
	DefaultMaxConnsPerHost = 64
)

// Options configures the fasthttp-backed client.
type Options struct {
	// Timeout bounds the full request/response exchange.
	Timeout time.Duration

	// MaxConnsPerHost limits concurrent connections to one host.
	MaxConnsPerHost int

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// UserAgent is sent when the request carries no User-Agent of its own.
	UserAgent string
}

type Option func(*Options)

func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) { o.Timeout = timeout }
}

func WithMaxConnsPerHost(max int) Option {
	return func(o *Options) { o.MaxConnsPerHost = max }
}

func WithInsecureSkipVerify(skip bool) Option {
	return func(o *Options) { o.InsecureSkipVerify = skip }
}

func WithUserAgent(userAgent string) Option {
	return func(o *Options) { o.UserAgent = userAgent }
}

type fastHTTPClient struct {
	client    *fasthttp.Client
	userAgent string
}

// NewFastHTTPClient builds a Client on top of fasthttp with sensible
// defaults for a small outbound API surface.
func NewFastHTTPClient(opts ...Option) Client {
	options := &Options{
		Timeout:         DefaultTimeout,
		MaxConnsPerHost: DefaultMaxConnsPerHost,
	}
	for _, opt := range opts {
		opt(options)
	}

	client := &fasthttp.Client{
		MaxConnsPerHost: options.MaxConnsPerHost,
		ReadTimeout:     options.Timeout,
		WriteTimeout:    options.Timeout,
	}
	if options.InsecureSkipVerify {
		client.TLSConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // intentionally configurable
		}
	}

	return &fastHTTPClient{
		client:    client,
		userAgent: options.UserAgent,
	}
}

// Do translates a net/http request into a fasthttp round trip and back. The
// response body is fully buffered; fasthttp buffers are released before
// returning.
func (c *fastHTTPClient) Do(req *http.Request) (*http.Response, error) {
	fastReq := fasthttp.AcquireRequest()
	fastResp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(fastReq)
	defer fasthttp.ReleaseResponse(fastResp)

	if req.URL != nil {
		fastReq.SetRequestURI(req.URL.String())
	}
	fastReq.Header.SetMethod(req.Method)

	// Host must be set before the header copy so an explicit req.Host wins
	// over the URL host.
	if req.Host != "" {
		fastReq.Header.SetHost(req.Host)
	} else if req.URL != nil && req.URL.Host != "" {
		fastReq.Header.SetHost(req.URL.Host)
	}

	for key, values := range req.Header {
		for _, value := range values {
			fastReq.Header.Add(key, value)
		}
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		fastReq.Header.Set("User-Agent", c.userAgent)
	}

	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		_ = req.Body.Close()
		fastReq.SetBodyRaw(body)
	}

	if err := c.client.Do(fastReq, fastResp); err != nil {
		return nil, err
	}

	// fastResp's buffers are reused after release, so copy everything out.
	body := append([]byte(nil), fastResp.Body()...)
	headers := make(http.Header)
	fastResp.Header.VisitAll(func(key, value []byte) {
		headers.Add(string(key), string(value))
	})

	statusCode := fastResp.StatusCode()
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode)),
		StatusCode:    statusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        headers,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}, nil
}
