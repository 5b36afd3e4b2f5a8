package handler

import (
	"encoding/json"
	"net/http"

	"github.com/a-h/templ"
)

// StreamContext is a Context with an open SSE connection.
type StreamContext interface {
	Context
	SendComponent(component templ.Component, opts ...TemplOption) error
	SendSignals(signals map[string]any) error
	SendScript(script string) error
}

// SSEHandler runs for the lifetime of a streaming request.
type SSEHandler func(ctx StreamContext) error

type sseResponse struct {
	handler SSEHandler
}

func (s sseResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if !IsDataStar(r) {
		return NewHTTPError(http.StatusBadRequest, "sse_requires_datastar")
	}
	base := NewContext(w, r)
	if base.SSE() == nil {
		return ErrSSENotInitialized
	}
	return s.handler(&streamContext{Context: base})
}

// SSE keeps the connection open and hands a StreamContext to h. The stream
// ends when h returns or the client disconnects.
func SSE(h SSEHandler) Response {
	return sseResponse{handler: h}
}

type streamContext struct {
	Context
}

func (c *streamContext) SendComponent(component templ.Component, opts ...TemplOption) error {
	return c.SSE().PatchElementTempl(component, opts...)
}

func (c *streamContext) SendSignals(signals map[string]any) error {
	data, err := json.Marshal(signals)
	if err != nil {
		return err
	}
	return c.SSE().PatchSignals(data)
}

func (c *streamContext) SendScript(script string) error {
	return c.SSE().ExecuteScript(script)
}
