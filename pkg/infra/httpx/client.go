package httpx

import "net/http"

// Client abstracts the HTTP transport so the dispatcher can be tested
// against stubs and callers can substitute their own implementation.
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}
