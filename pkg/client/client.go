package client

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/keyauth-community/keyauth-go/internal/logger"
	"github.com/keyauth-community/keyauth-go/pkg/config"
	"github.com/keyauth-community/keyauth-go/pkg/events"
	"github.com/keyauth-community/keyauth-go/pkg/infra/httpx"
	"github.com/keyauth-community/keyauth-go/pkg/metrics"
	"github.com/keyauth-community/keyauth-go/pkg/ratelimit"
	"github.com/keyauth-community/keyauth-go/pkg/types"
	"github.com/keyauth-community/keyauth-go/pkg/version"
)

// Client is a typed wrapper around the KeyAuth licensing API. All outbound
// traffic flows through a single dispatch choke point that applies rate-limit
// admission, response normalization, error classification and event emission.
//
// A Client is safe for concurrent use. Business failures are reported through
// the returned Response (Success == false) and through `error` events, never
// as Go errors; method errors are reserved for precondition violations such
// as calling a session-scoped operation before Init/Login.
type Client struct {
	cfg       *config.Config
	log       *logrus.Entry
	transport httpx.Client
	breaker   httpx.CircuitBreaker
	limiter   ratelimit.Admitter
	bus       *events.Bus
	collector *metrics.Collector

	instanceID string
	host       string
	now        func() time.Time

	mu          sync.Mutex
	initialized bool
	loggedIn    bool
	sessionID   string
	appInfo     types.AppInfo
	user        types.UserInfo

	checkGroup singleflight.Group
}

// Option overrides one collaborator of the client, mainly for tests and for
// callers embedding the client into larger systems.
type Option func(*Client)

// WithTransport replaces the fasthttp-backed transport.
func WithTransport(transport httpx.Client) Option {
	return func(c *Client) { c.transport = transport }
}

// WithLimiter replaces the in-memory token bucket, e.g. with a RedisBucket
// shared between processes.
func WithLimiter(limiter ratelimit.Admitter) Option {
	return func(c *Client) { c.limiter = limiter }
}

// WithBreaker replaces the circuit breaker.
func WithBreaker(breaker httpx.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = breaker }
}

// WithMetrics attaches a prometheus collector fed by the dispatcher.
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Client) { c.collector = collector }
}

// WithBus replaces the notification bus. Handlers subscribed on the bus
// before construction observe construction-time events such as `instance`.
func WithBus(bus *events.Bus) Option {
	return func(c *Client) {
		if bus != nil {
			c.bus = bus
		}
	}
}

// WithLogger replaces the logger built from configuration.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Client) { c.log = log }
}

// New builds a client from cfg. A nil cfg is rejected because the application
// identity (name, ownerid) cannot be defaulted.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("client: config is required")
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("client: invalid base url %q: %w", cfg.BaseURL, err)
	}

	limiter, err := ratelimit.New(cfg.RateLimit.MaxTokens, cfg.RateLimit.RefillRate, nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:        cfg,
		log:        logger.WithName(logger.New(cfg.Logger), cfg.Logger.Name),
		limiter:    limiter,
		bus:        events.NewBus(),
		instanceID: uuid.NewString(),
		host:       baseURL.Host,
		now:        time.Now,
	}

	c.transport = httpx.NewFastHTTPClient(
		httpx.WithTimeout(cfg.Transport.Timeout),
		httpx.WithInsecureSkipVerify(cfg.Transport.InsecureSkipVerify),
		httpx.WithUserAgent(version.UserAgent()),
	)
	if cfg.Transport.BreakerEnabled {
		c.breaker = httpx.NewCircuitBreaker("keyauth", cfg.Transport.BreakerTimeout, cfg.Transport.BreakerMaxFailures)
	} else {
		c.breaker = httpx.NopBreaker{}
	}

	for _, opt := range opts {
		opt(c)
	}

	c.log.WithField("instance_id", c.instanceID).Debug("client instance created")
	c.bus.Emit(events.InstanceEvent{InstanceID: c.instanceID})

	return c, nil
}

// Events exposes the notification bus of this instance.
func (c *Client) Events() *events.Bus {
	return c.bus
}

// On subscribes fn to every emission of name.
func (c *Client) On(name events.EventName, fn events.Handler) {
	c.bus.Subscribe(name, fn)
}

// Once subscribes fn to the next emission of name only.
func (c *Client) Once(name events.EventName, fn events.Handler) {
	c.bus.SubscribeOnce(name, fn)
}

// InstanceID returns the identifier emitted with the `instance` event.
func (c *Client) InstanceID() string {
	return c.instanceID
}

// Initialized reports whether Init completed successfully.
func (c *Client) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// LoggedIn reports whether a login-class operation validated a session.
func (c *Client) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedIn
}

// SessionID returns the session identifier handed out by Init.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// AppInfo returns the application metadata captured during Init.
func (c *Client) AppInfo() types.AppInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appInfo
}

// User returns the user info captured by the last successful login-class
// operation.
func (c *Client) User() types.UserInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}
