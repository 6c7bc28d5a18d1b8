package events

import (
	"time"

	"github.com/keyauth-community/keyauth-go/pkg/domain"
	"github.com/keyauth-community/keyauth-go/pkg/types"
)

// EventName identifies a notification on the bus. Every operation emits an
// event named after its type tag; the cross-cutting names below cover the
// dispatch pipeline itself.
type EventName string

const (
	EventRequest   EventName = "request"
	EventResponse  EventName = "response"
	EventError     EventName = "error"
	EventMetadata  EventName = "metadata"
	EventRateLimit EventName = "ratelimit"
	EventInstance  EventName = "instance"
)

// OperationEventName returns the bus name for an operation-scoped event,
// e.g. "login" or "chatget".
func OperationEventName(op types.Operation) EventName {
	return EventName(op)
}

type Event interface {
	Name() EventName
}

// RequestEvent is emitted for every dispatched call, whether it succeeded
// or not.
type RequestEvent struct {
	Operation types.Operation
	TraceID   string
	Params    map[string]string
	Response  *types.Response
}

func (e RequestEvent) Name() EventName { return EventRequest }

// ResponseEvent carries the normalized result and the wall-clock duration of
// the outbound call.
type ResponseEvent struct {
	Operation types.Operation
	Response  *types.Response
	Duration  time.Duration
}

func (e ResponseEvent) Name() EventName { return EventResponse }

// ErrorEvent carries a classified failure.
type ErrorEvent struct {
	Err *domain.APIError
}

func (e ErrorEvent) Name() EventName { return EventError }

// RateLimitEvent is emitted when admission is rejected, before the dispatcher
// waits and retries.
type RateLimitEvent struct {
	Operation types.Operation
	Wait      time.Duration
	Message   string
}

func (e RateLimitEvent) Name() EventName { return EventRateLimit }

// MetadataEvent carries application info after a successful init.
type MetadataEvent struct {
	AppInfo types.AppInfo
}

func (e MetadataEvent) Name() EventName { return EventMetadata }

// InstanceEvent is emitted once when a client instance is constructed.
type InstanceEvent struct {
	InstanceID string
}

func (e InstanceEvent) Name() EventName { return EventInstance }

// OperationEvent is the operation-named notification emitted by adapter
// methods after dispatch.
type OperationEvent struct {
	Operation types.Operation
	Response  *types.Response
}

func (e OperationEvent) Name() EventName { return OperationEventName(e.Operation) }
