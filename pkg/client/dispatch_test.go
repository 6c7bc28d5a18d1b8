package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyauth-community/keyauth-go/pkg/domain"
	"github.com/keyauth-community/keyauth-go/pkg/events"
	"github.com/keyauth-community/keyauth-go/pkg/ratelimit"
	"github.com/keyauth-community/keyauth-go/pkg/types"
)

func TestDispatch_MergesIdentityFields(t *testing.T) {
	c, rt := newTestClient(t, func(url.Values) (*http.Response, error) {
		return httpResponse(http.StatusOK, `{"success":true,"message":"ok"}`), nil
	})

	c.dispatch(context.Background(), types.Envelope{
		Operation: types.OpCheck,
		Params:    map[string]string{"sessionid": "s1"},
	})

	require.Len(t, rt.forms, 1)
	form := rt.forms[0]
	assert.Equal(t, "check", form.Get("type"))
	assert.Equal(t, "demo-app", form.Get("name"))
	assert.Equal(t, "owner123", form.Get("ownerid"))
	assert.Equal(t, "s1", form.Get("sessionid"))
}

func TestDispatch_WebhookReshaping(t *testing.T) {
	c, _ := newTestClient(t, func(url.Values) (*http.Response, error) {
		return httpResponse(http.StatusOK,
			`{"success":true,"message":"ok","nonce":"n1","response":{"x":1}}`), nil
	})

	resp := c.dispatch(context.Background(), types.Envelope{Operation: types.OpWebhook})

	assert.True(t, resp.Success)
	assert.Equal(t, "ok", resp.Message)
	assert.Equal(t, "n1", resp.Nonce)
	assert.Equal(t, map[string]any{"x": float64(1)}, resp.Data)
}

func TestDispatch_LogSynthesis(t *testing.T) {
	// Whatever the service answers with, an HTTP 200 on a log operation is a
	// fixed success.
	bodies := []string{`{"success":false,"message":"weird"}`, `plain text`, ``}
	for _, body := range bodies {
		c, _ := newTestClient(t, func(url.Values) (*http.Response, error) {
			return httpResponse(http.StatusOK, body), nil
		})

		resp := c.dispatch(context.Background(), types.Envelope{Operation: types.OpLog})

		assert.True(t, resp.Success)
		assert.Equal(t, "Log successfully sent.", resp.Message)
		assert.Nil(t, resp.Data)
	}
}

func TestDispatch_InvalidClientSentinel(t *testing.T) {
	c, _ := newTestClient(t, func(url.Values) (*http.Response, error) {
		return httpResponse(http.StatusOK, "KeyAuth_Invalid"), nil
	})

	var captured *domain.APIError
	c.On(events.EventError, func(evt events.Event) {
		captured = evt.(events.ErrorEvent).Err
	})

	resp := c.dispatch(context.Background(), types.Envelope{Operation: types.OpInit})

	assert.False(t, resp.Success)
	assert.Equal(t, "Keyauth API client not set up correctly!", resp.Message)
	assert.NotZero(t, resp.Time)
	require.NotNil(t, captured)
	assert.Equal(t, domain.KindInvalidClientAPI, captured.Kind)
}

func TestDispatch_TransportFailureNeverPropagates(t *testing.T) {
	c, _ := newTestClient(t, func(url.Values) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	})

	var captured *domain.APIError
	c.On(events.EventError, func(evt events.Event) {
		captured = evt.(events.ErrorEvent).Err
	})

	resp := c.dispatch(context.Background(), types.Envelope{Operation: types.OpLogin})

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "request failed")
	require.NotNil(t, captured)
	assert.Equal(t, domain.KindUnknown, captured.Kind)
}

func TestDispatch_MalformedPayloadIsAFailure(t *testing.T) {
	c, _ := newTestClient(t, func(url.Values) (*http.Response, error) {
		return httpResponse(http.StatusBadGateway, "<html>bad gateway</html>"), nil
	})

	resp := c.dispatch(context.Background(), types.Envelope{Operation: types.OpLogin})

	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "status 502")
}

func TestDispatch_EmitsResponseThenRequest(t *testing.T) {
	c, _ := newTestClient(t, func(url.Values) (*http.Response, error) {
		return httpResponse(http.StatusOK, `{"success":true,"message":"ok"}`), nil
	})

	var order []events.EventName
	var reqEvt events.RequestEvent
	var respEvt events.ResponseEvent
	c.On(events.EventResponse, func(evt events.Event) {
		order = append(order, evt.Name())
		respEvt = evt.(events.ResponseEvent)
	})
	c.On(events.EventRequest, func(evt events.Event) {
		order = append(order, evt.Name())
		reqEvt = evt.(events.RequestEvent)
	})

	c.dispatch(context.Background(), types.Envelope{
		Operation: types.OpCheck,
		Params:    map[string]string{"sessionid": "s1"},
	})

	assert.Equal(t, []events.EventName{events.EventResponse, events.EventRequest}, order)
	assert.Equal(t, types.OpCheck, respEvt.Operation)
	assert.True(t, respEvt.Response.Success)
	assert.NotEmpty(t, reqEvt.TraceID)
	assert.Equal(t, "s1", reqEvt.Params["sessionid"])
	assert.Same(t, respEvt.Response, reqEvt.Response)
}

func TestDispatch_SuppressionFlags(t *testing.T) {
	c, _ := newTestClient(t, func(url.Values) (*http.Response, error) {
		return httpResponse(http.StatusOK, `{"success":false,"message":"Session not found."}`), nil
	})

	responses, requests, errs := 0, 0, 0
	c.On(events.EventResponse, func(events.Event) { responses++ })
	c.On(events.EventRequest, func(events.Event) { requests++ })
	c.On(events.EventError, func(events.Event) { errs++ })

	c.dispatch(context.Background(), types.Envelope{
		Operation:         types.OpCheck,
		SkipResponseEvent: true,
		SkipErrorEvent:    true,
	})

	assert.Equal(t, 0, responses, "response event must be suppressed")
	assert.Equal(t, 0, errs, "error event must be suppressed")
	assert.Equal(t, 1, requests, "request event is always emitted")
}

func TestDispatch_ErrorClassificationUsesSessionID(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		want      domain.ErrorKind
	}{
		{name: "empty session id", sessionID: "", want: domain.KindNoSessionID},
		{name: "non-empty session id", sessionID: "s1", want: domain.KindSessionKilled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(url.Values) (*http.Response, error) {
				return httpResponse(http.StatusOK, `{"success":false,"message":"Session not found."}`), nil
			})

			var captured *domain.APIError
			c.On(events.EventError, func(evt events.Event) {
				captured = evt.(events.ErrorEvent).Err
			})

			c.dispatch(context.Background(), types.Envelope{
				Operation: types.OpCheck,
				SessionID: tt.sessionID,
			})

			require.NotNil(t, captured)
			assert.Equal(t, tt.want, captured.Kind)
		})
	}
}

func TestDispatch_RateLimitRetry(t *testing.T) {
	c, rt := newTestClient(t, func(url.Values) (*http.Response, error) {
		return httpResponse(http.StatusOK, `{"success":true,"message":"ok"}`), nil
	})

	// One token, practically no natural refill: the second dispatch must be
	// rejected once, wait, and then succeed against the refilled bucket.
	limiter, err := ratelimit.New(1, time.Hour, &ratelimit.Opts{
		Sleep: func(ctx context.Context, d time.Duration) error { return nil },
	})
	require.NoError(t, err)
	c.limiter = limiter

	var rateLimited []events.RateLimitEvent
	c.On(events.EventRateLimit, func(evt events.Event) {
		rateLimited = append(rateLimited, evt.(events.RateLimitEvent))
	})

	first := c.dispatch(context.Background(), types.Envelope{Operation: types.OpCheck})
	second := c.dispatch(context.Background(), types.Envelope{Operation: types.OpCheck})

	assert.True(t, first.Success)
	assert.True(t, second.Success)
	assert.Len(t, rt.forms, 2, "rejection waits and retries, it does not fail")
	require.Len(t, rateLimited, 1)
	assert.Equal(t, types.OpCheck, rateLimited[0].Operation)
	assert.Contains(t, rateLimited[0].Message, "rate limit reached")
}

func TestDispatch_ConvertTimes(t *testing.T) {
	c, _ := newTestClient(t, func(url.Values) (*http.Response, error) {
		return httpResponse(http.StatusOK,
			`{"success":true,"message":"ok","info":{"createdate":"1700000000","subscriptions":[{"expiry":1893456000}]}}`), nil
	})
	c.cfg.ConvertTimes = true

	resp := c.dispatch(context.Background(), types.Envelope{Operation: types.OpLogin})

	info, ok := resp.DataMap()["info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, time.Unix(1700000000, 0).Local().Format("2006-01-02 15:04:05"), info["createdate"])

	subs, ok := info["subscriptions"].([]any)
	require.True(t, ok)
	sub := subs[0].(map[string]any)
	assert.Equal(t, time.Unix(1893456000, 0).Local().Format("2006-01-02 15:04:05"), sub["expiry"])
}
