package client

import (
	"context"
	"fmt"

	"github.com/keyauth-community/keyauth-go/pkg/domain"
	"github.com/keyauth-community/keyauth-go/pkg/events"
	"github.com/keyauth-community/keyauth-go/pkg/types"
)

// Every public operation is a thin adapter over dispatch: precondition check,
// envelope construction, dispatch, operation-named event, result. Business
// failures come back as Success == false, not as a Go error.

// Init registers this client instance with the remote application. It must
// complete successfully before any other operation.
func (c *Client) Init(ctx context.Context) (*types.Response, error) {
	params := map[string]string{
		"ver": c.cfg.App.Version,
	}

	resp := c.dispatch(ctx, types.Envelope{
		Operation: types.OpInit,
		Params:    params,
	})

	if resp.Success {
		c.mu.Lock()
		c.initialized = true
		c.sessionID = stringField(resp, "sessionid")
		c.mu.Unlock()

		if info, err := AppInfoFrom(resp); err == nil {
			c.mu.Lock()
			c.appInfo = info
			c.mu.Unlock()
			c.bus.Emit(events.MetadataEvent{AppInfo: info})
		}
	}

	c.bus.Emit(events.OperationEvent{Operation: types.OpInit, Response: resp})
	return resp, nil
}

// Login validates a username/password pair against the remote application.
func (c *Client) Login(ctx context.Context, username, password, hwid string) (*types.Response, error) {
	if err := c.requireInit(types.OpLogin); err != nil {
		return nil, err
	}

	resp := c.dispatch(ctx, types.Envelope{
		Operation: types.OpLogin,
		Params: map[string]string{
			"username":  username,
			"pass":      password,
			"hwid":      hwid,
			"sessionid": c.SessionID(),
		},
		SessionID: c.SessionID(),
	})

	c.recordLogin(resp)
	c.bus.Emit(events.OperationEvent{Operation: types.OpLogin, Response: resp})
	return resp, nil
}

// Register creates an account bound to a license key and logs it in.
func (c *Client) Register(ctx context.Context, username, password, license, hwid string) (*types.Response, error) {
	if err := c.requireInit(types.OpRegister); err != nil {
		return nil, err
	}

	resp := c.dispatch(ctx, types.Envelope{
		Operation: types.OpRegister,
		Params: map[string]string{
			"username":  username,
			"pass":      password,
			"key":       license,
			"hwid":      hwid,
			"sessionid": c.SessionID(),
		},
		SessionID: c.SessionID(),
	})

	c.recordLogin(resp)
	c.bus.Emit(events.OperationEvent{Operation: types.OpRegister, Response: resp})
	return resp, nil
}

// License authenticates with a standalone license key.
func (c *Client) License(ctx context.Context, key, hwid string) (*types.Response, error) {
	if err := c.requireInit(types.OpLicense); err != nil {
		return nil, err
	}

	resp := c.dispatch(ctx, types.Envelope{
		Operation: types.OpLicense,
		Params: map[string]string{
			"key":       key,
			"hwid":      hwid,
			"sessionid": c.SessionID(),
		},
		SessionID: c.SessionID(),
	})

	c.recordLogin(resp)
	c.bus.Emit(events.OperationEvent{Operation: types.OpLicense, Response: resp})
	return resp, nil
}

// Logout invalidates the current session on the remote service.
func (c *Client) Logout(ctx context.Context) (*types.Response, error) {
	if err := c.ensureSession(ctx, types.OpLogout); err != nil {
		return nil, err
	}

	resp := c.sessionDispatch(ctx, types.OpLogout, nil)
	if resp.Success {
		c.mu.Lock()
		c.loggedIn = false
		c.user = types.UserInfo{}
		c.mu.Unlock()
	}

	c.bus.Emit(events.OperationEvent{Operation: types.OpLogout, Response: resp})
	return resp, nil
}

// Ban bans the logged-in user and blacklists their hardware id.
func (c *Client) Ban(ctx context.Context, reason string) (*types.Response, error) {
	if err := c.ensureSession(ctx, types.OpBan); err != nil {
		return nil, err
	}

	resp := c.sessionDispatch(ctx, types.OpBan, map[string]string{"reason": reason})
	c.bus.Emit(events.OperationEvent{Operation: types.OpBan, Response: resp})
	return resp, nil
}

// Check asks the service whether the current session is still valid.
func (c *Client) Check(ctx context.Context) (*types.Response, error) {
	if err := c.requireInit(types.OpCheck); err != nil {
		return nil, err
	}

	resp := c.sessionDispatch(ctx, types.OpCheck, nil)
	c.bus.Emit(events.OperationEvent{Operation: types.OpCheck, Response: resp})
	return resp, nil
}

// CheckBlacklist reports whether the given hardware id or the caller's IP is
// blacklisted.
func (c *Client) CheckBlacklist(ctx context.Context, hwid string) (*types.Response, error) {
	if err := c.requireInit(types.OpCheckBlacklist); err != nil {
		return nil, err
	}

	resp := c.sessionDispatch(ctx, types.OpCheckBlacklist, map[string]string{"hwid": hwid})
	c.bus.Emit(events.OperationEvent{Operation: types.OpCheckBlacklist, Response: resp})
	return resp, nil
}

// ChangeUsername renames the logged-in account.
func (c *Client) ChangeUsername(ctx context.Context, newUsername string) (*types.Response, error) {
	if err := c.ensureSession(ctx, types.OpChangeUsername); err != nil {
		return nil, err
	}

	resp := c.sessionDispatch(ctx, types.OpChangeUsername, map[string]string{"newUsername": newUsername})
	c.bus.Emit(events.OperationEvent{Operation: types.OpChangeUsername, Response: resp})
	return resp, nil
}

// Forgot triggers the account recovery flow for username.
func (c *Client) Forgot(ctx context.Context, username, email string) (*types.Response, error) {
	if err := c.requireInit(types.OpForgot); err != nil {
		return nil, err
	}

	resp := c.sessionDispatch(ctx, types.OpForgot, map[string]string{
		"username": username,
		"email":    email,
	})
	c.bus.Emit(events.OperationEvent{Operation: types.OpForgot, Response: resp})
	return resp, nil
}

// FetchOnline lists users currently online in the application.
func (c *Client) FetchOnline(ctx context.Context) (*types.Response, error) {
	if err := c.ensureSession(ctx, types.OpFetchOnline); err != nil {
		return nil, err
	}

	resp := c.sessionDispatch(ctx, types.OpFetchOnline, nil)
	c.bus.Emit(events.OperationEvent{Operation: types.OpFetchOnline, Response: resp})
	return resp, nil
}

// FetchStats returns current application statistics.
func (c *Client) FetchStats(ctx context.Context) (*types.Response, error) {
	if err := c.ensureSession(ctx, types.OpFetchStats); err != nil {
		return nil, err
	}

	resp := c.sessionDispatch(ctx, types.OpFetchStats, nil)
	c.bus.Emit(events.OperationEvent{Operation: types.OpFetchStats, Response: resp})
	return resp, nil
}

// Log sends a log line to the application's panel (and its Discord webhook
// when one is configured server-side).
func (c *Client) Log(ctx context.Context, message, pcUser string) (*types.Response, error) {
	if err := c.ensureSession(ctx, types.OpLog); err != nil {
		return nil, err
	}

	resp := c.sessionDispatch(ctx, types.OpLog, map[string]string{
		"message": message,
		"pcuser":  pcUser,
	})
	c.bus.Emit(events.OperationEvent{Operation: types.OpLog, Response: resp})
	return resp, nil
}

// Webhook proxies a request through a webhook configured on the remote
// application, keeping its target and credentials off the client machine.
func (c *Client) Webhook(ctx context.Context, webhookID, params, body, contentType string) (*types.Response, error) {
	if err := c.ensureSession(ctx, types.OpWebhook); err != nil {
		return nil, err
	}

	resp := c.sessionDispatch(ctx, types.OpWebhook, map[string]string{
		"webid":    webhookID,
		"params":   params,
		"body":     body,
		"conttype": contentType,
	})
	c.bus.Emit(events.OperationEvent{Operation: types.OpWebhook, Response: resp})
	return resp, nil
}

// File downloads a file stored on the application. The contents field of the
// payload is hex-encoded by the service.
func (c *Client) File(ctx context.Context, fileID string) (*types.Response, error) {
	if err := c.ensureSession(ctx, types.OpFile); err != nil {
		return nil, err
	}

	resp := c.sessionDispatch(ctx, types.OpFile, map[string]string{"fileid": fileID})
	c.bus.Emit(events.OperationEvent{Operation: types.OpFile, Response: resp})
	return resp, nil
}

// ChatGet fetches the messages of a chat channel.
func (c *Client) ChatGet(ctx context.Context, channel string) (*types.Response, error) {
	if err := c.ensureSession(ctx, types.OpChatGet); err != nil {
		return nil, err
	}

	resp := c.sessionDispatch(ctx, types.OpChatGet, map[string]string{"channel": channel})
	c.bus.Emit(events.OperationEvent{Operation: types.OpChatGet, Response: resp})
	return resp, nil
}

// ChatSend posts a message to a chat channel as the logged-in user.
func (c *Client) ChatSend(ctx context.Context, channel, message string) (*types.Response, error) {
	if err := c.ensureSession(ctx, types.OpChatSend); err != nil {
		return nil, err
	}

	resp := c.sessionDispatch(ctx, types.OpChatSend, map[string]string{
		"channel": channel,
		"message": message,
	})
	c.bus.Emit(events.OperationEvent{Operation: types.OpChatSend, Response: resp})
	return resp, nil
}

// GetVar reads a per-user variable. The service stores variables as strings;
// anything else in the payload is rejected as an unsupported variable type.
func (c *Client) GetVar(ctx context.Context, varName string) (*types.Response, error) {
	if err := c.ensureSession(ctx, types.OpGetVar); err != nil {
		return nil, err
	}

	resp := c.sessionDispatch(ctx, types.OpGetVar, map[string]string{"var": varName})
	c.bus.Emit(events.OperationEvent{Operation: types.OpGetVar, Response: resp})

	if resp.Success {
		if raw, ok := resp.DataMap()["response"]; ok {
			if _, isString := raw.(string); !isString {
				return resp, c.emitPreconditionError(types.OpGetVar, domain.KindUnsupportedVarType,
					fmt.Sprintf("variable %q is not a string", varName))
			}
		}
	}
	return resp, nil
}

// SetVar writes a per-user variable.
func (c *Client) SetVar(ctx context.Context, varName, data string) (*types.Response, error) {
	if err := c.ensureSession(ctx, types.OpSetVar); err != nil {
		return nil, err
	}

	resp := c.sessionDispatch(ctx, types.OpSetVar, map[string]string{
		"var":  varName,
		"data": data,
	})
	c.bus.Emit(events.OperationEvent{Operation: types.OpSetVar, Response: resp})
	return resp, nil
}

// Var reads an application-wide (global) variable.
func (c *Client) Var(ctx context.Context, varID string) (*types.Response, error) {
	if err := c.ensureSession(ctx, types.OpVar); err != nil {
		return nil, err
	}

	resp := c.sessionDispatch(ctx, types.OpVar, map[string]string{"varid": varID})
	c.bus.Emit(events.OperationEvent{Operation: types.OpVar, Response: resp})
	return resp, nil
}

// sessionDispatch merges the session id into params and dispatches.
func (c *Client) sessionDispatch(ctx context.Context, op types.Operation, params map[string]string) *types.Response {
	sid := c.SessionID()
	merged := make(map[string]string, len(params)+1)
	for key, value := range params {
		merged[key] = value
	}
	merged["sessionid"] = sid

	return c.dispatch(ctx, types.Envelope{
		Operation: op,
		Params:    merged,
		SessionID: sid,
	})
}

// recordLogin captures session state from a successful login-class response.
func (c *Client) recordLogin(resp *types.Response) {
	if !resp.Success {
		return
	}
	c.mu.Lock()
	c.loggedIn = true
	c.mu.Unlock()

	if info, err := UserInfoFrom(resp); err == nil {
		c.mu.Lock()
		c.user = info
		c.mu.Unlock()
	}
}

// requireInit guards operations that only need a completed Init.
func (c *Client) requireInit(op types.Operation) error {
	if c.Initialized() {
		return nil
	}
	return c.emitPreconditionError(op, domain.KindNotInitialized, "client is not initialized, call Init first")
}

// ensureSession guards session-scoped operations: the caller must have logged
// in, and the session is revalidated with a silent check call. Concurrent
// revalidations collapse into one request.
func (c *Client) ensureSession(ctx context.Context, op types.Operation) error {
	if err := c.requireInit(op); err != nil {
		return err
	}
	if !c.LoggedIn() {
		return c.emitPreconditionError(op, domain.KindNotLoggedIn, "no validated login session, call Login first")
	}

	result, err, _ := c.checkGroup.Do("check", func() (any, error) {
		sid := c.SessionID()
		return c.dispatch(ctx, types.Envelope{
			Operation:         types.OpCheck,
			Params:            map[string]string{"sessionid": sid},
			SessionID:         sid,
			SkipResponseEvent: true,
			SkipErrorEvent:    true,
		}), nil
	})
	if err != nil {
		return err
	}

	resp, ok := result.(*types.Response)
	if !ok || resp == nil {
		return c.emitPreconditionError(op, domain.KindUnknown, "session check returned no result")
	}
	if !resp.Success {
		apiErr := domain.Classify(op, resp.Message, c.SessionID())
		c.mu.Lock()
		c.loggedIn = false
		c.mu.Unlock()
		c.bus.Emit(events.ErrorEvent{Err: apiErr})
		return apiErr
	}
	return nil
}

// emitPreconditionError surfaces an adapter-level violation on both channels:
// the returned error and the `error` event.
func (c *Client) emitPreconditionError(op types.Operation, kind domain.ErrorKind, message string) error {
	apiErr := domain.NewAPIError(op, kind, message)
	c.log.WithField("operation", op).Warn(apiErr.Message)
	c.bus.Emit(events.ErrorEvent{Err: apiErr})
	return apiErr
}
