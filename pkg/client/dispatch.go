package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"

	"github.com/keyauth-community/keyauth-go/pkg/domain"
	"github.com/keyauth-community/keyauth-go/pkg/events"
	"github.com/keyauth-community/keyauth-go/pkg/types"
)

const (
	// invalidClientSentinel is the raw body the service returns when the
	// calling application is misconfigured. It is not valid JSON.
	invalidClientSentinel = "KeyAuth_Invalid"

	invalidClientMessage = "Keyauth API client not set up correctly!"
	logSentMessage       = "Log successfully sent."
)

// dispatch is the single choke point every operation goes through: rate-limit
// admission, HTTP execution, normalization, classification and event
// emission. It never returns a transport error to the caller; failures
// surface as Success == false plus an `error` event.
func (c *Client) dispatch(ctx context.Context, env types.Envelope) *types.Response {
	for !c.limiter.TryAdmit() {
		wait := c.limiter.TimeUntilNextToken()
		evt := events.RateLimitEvent{
			Operation: env.Operation,
			Wait:      wait,
			Message:   fmt.Sprintf("rate limit reached for %s, retrying in %s", env.Operation, wait),
		}
		c.log.WithFields(logrus.Fields{
			"operation": env.Operation,
			"wait":      wait.String(),
		}).Warn("rate limit reached, waiting for admission")
		c.bus.Emit(evt)
		c.collector.IncRateLimited(env.Operation.String())

		if err := c.limiter.AwaitAdmission(ctx); err != nil {
			resp := &types.Response{
				Success: false,
				Message: fmt.Sprintf("request aborted while waiting for rate limiter: %v", err),
			}
			return c.finish(env, resp, 0)
		}
	}

	start := c.now()
	resp, err := c.execute(ctx, env)
	duration := c.now().Sub(start)

	if err != nil {
		c.log.WithFields(logrus.Fields{
			"operation": env.Operation,
			"duration":  duration.String(),
		}).WithError(err).Error("request failed")
		resp = &types.Response{
			Success: false,
			Message: fmt.Sprintf("request failed: %v", err),
		}
	}

	return c.finish(env, resp, duration)
}

// execute performs the outbound call and normalizes the payload. The returned
// error covers transport failures and unparsable payloads only; a business
// failure is a successful execution with Success == false.
func (c *Client) execute(ctx context.Context, env types.Envelope) (*types.Response, error) {
	form := url.Values{}
	form.Set("type", string(env.Operation))
	for key, value := range env.Params {
		form.Set(key, value)
	}
	form.Set("name", c.cfg.App.Name)
	form.Set("ownerid", c.cfg.App.OwnerID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Host = c.host

	var httpResp *http.Response
	err = c.breaker.Execute(func() error {
		resp, doErr := c.transport.Do(req)
		if doErr != nil {
			return doErr
		}
		httpResp = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return c.normalize(env.Operation, httpResp.StatusCode, body)
}

// normalize applies the response reshaping rules:
//
//   - the KeyAuth_Invalid sentinel becomes a misconfiguration failure
//   - `log` always succeeds on HTTP 200 regardless of payload content
//   - `webhook` payloads remap their `response` field to Data
//   - everything else: success/message/nonce/time are lifted out and the
//     remaining fields become Data
func (c *Client) normalize(op types.Operation, statusCode int, body []byte) (*types.Response, error) {
	if string(bytes.TrimSpace(body)) == invalidClientSentinel {
		return &types.Response{
			Success: false,
			Message: invalidClientMessage,
			Time:    c.now().Unix(),
		}, nil
	}

	if op == types.OpLog && statusCode == http.StatusOK {
		return &types.Response{
			Success: true,
			Message: logSentMessage,
		}, nil
	}

	var parser fastjson.Parser
	value, err := parser.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("unexpected response (status %d): %w", statusCode, err)
	}

	resp := &types.Response{
		Success: value.GetBool("success"),
		Message: string(value.GetStringBytes("message")),
		Nonce:   string(value.GetStringBytes("nonce")),
		Time:    value.GetInt64("time"),
	}

	if op == types.OpWebhook {
		// The raw webhook payload does not match the declared response
		// contract: its `response` field carries the forwarded data.
		resp.Data = jsonToAny(value.Get("response"))
		return resp, nil
	}

	obj := value.GetObject()
	if obj != nil {
		data := make(map[string]any)
		obj.Visit(func(key []byte, v *fastjson.Value) {
			switch string(key) {
			case "success", "message", "nonce", "time":
			default:
				data[string(key)] = jsonToAny(v)
			}
		})
		if len(data) > 0 {
			resp.Data = data
		}
	}

	if c.cfg.ConvertTimes {
		convertTimesIn(resp.Data)
	}
	return resp, nil
}

// finish runs the notification and classification tail shared by every
// dispatch outcome, then hands the normalized result back to the adapter.
func (c *Client) finish(env types.Envelope, resp *types.Response, duration time.Duration) *types.Response {
	if !env.SkipResponseEvent {
		c.bus.Emit(events.ResponseEvent{
			Operation: env.Operation,
			Response:  resp,
			Duration:  duration,
		})
	}
	c.bus.Emit(events.RequestEvent{
		Operation: env.Operation,
		TraceID:   uuid.NewString(),
		Params:    env.Params,
		Response:  resp,
	})

	if !resp.Success && !env.SkipErrorEvent {
		apiErr := domain.Classify(env.Operation, resp.Message, env.SessionID)
		c.log.WithFields(logrus.Fields{
			"operation": env.Operation,
			"kind":      apiErr.Kind,
		}).Warn(apiErr.Message)
		c.bus.Emit(events.ErrorEvent{Err: apiErr})
	}

	c.collector.ObserveRequest(env.Operation.String(), resp.Success, duration)
	return resp
}

// jsonToAny converts a parsed fastjson value into plain Go values so event
// subscribers and mapstructure decoding never see fastjson internals.
func jsonToAny(v *fastjson.Value) any {
	if v == nil {
		return nil
	}
	switch v.Type() {
	case fastjson.TypeObject:
		obj, _ := v.Object()
		m := make(map[string]any)
		obj.Visit(func(key []byte, item *fastjson.Value) {
			m[string(key)] = jsonToAny(item)
		})
		return m
	case fastjson.TypeArray:
		items := v.GetArray()
		out := make([]any, 0, len(items))
		for _, item := range items {
			out = append(out, jsonToAny(item))
		}
		return out
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		return v.GetFloat64()
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	default:
		return nil
	}
}
