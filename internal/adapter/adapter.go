// Package adapter runs an http.Handler inside AWS Lambda behind API Gateway.
//
// It accepts both REST API (payload 1.0) and HTTP API (payload 2.0) proxy
// events, turns each into one *http.Request, and converts the recorded
// response back into the matching response event.
package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

// ErrMalformedEvent marks invocation events that cannot be turned into a request.
var ErrMalformedEvent = errors.New("malformed invocation event")

type Adapter struct {
	handler  http.Handler
	basePath string
	log      *zap.Logger
}

type Option func(*Adapter)

func WithLogger(log *zap.Logger) Option {
	return func(a *Adapter) { a.log = log }
}

// New wraps h. Requests under basePath reach h with that prefix removed.
func New(h http.Handler, basePath string, opts ...Option) *Adapter {
	a := &Adapter{
		handler:  h,
		basePath: basePath,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Invoke handles one raw invocation payload. It is shaped for lambda.Start.
// Translation failures produce a 500 response event rather than an error so
// the platform does not retry them.
func (a *Adapter) Invoke(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	var probe struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return a.fail(false, fmt.Errorf("%w: %v", ErrMalformedEvent, err))
	}
	if probe.Version == "2.0" {
		return a.invokeHTTP(ctx, payload)
	}
	return a.invokeREST(ctx, payload)
}

func (a *Adapter) invokeREST(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	var ev events.APIGatewayProxyRequest
	if err := json.Unmarshal(payload, &ev); err != nil {
		return a.fail(false, fmt.Errorf("%w: %v", ErrMalformedEvent, err))
	}
	req, err := a.restRequest(ctx, ev)
	if err != nil {
		return a.fail(false, err)
	}
	return json.Marshal(a.serve(req).restResponse())
}

func (a *Adapter) invokeHTTP(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	var ev events.APIGatewayV2HTTPRequest
	if err := json.Unmarshal(payload, &ev); err != nil {
		return a.fail(true, fmt.Errorf("%w: %v", ErrMalformedEvent, err))
	}
	req, err := a.httpRequest(ctx, ev)
	if err != nil {
		return a.fail(true, err)
	}
	return json.Marshal(a.serve(req).httpResponse())
}

func (a *Adapter) serve(req *http.Request) *recorder {
	rec := newRecorder()
	a.handler.ServeHTTP(rec, req)
	if req.Method == http.MethodHead {
		rec.body.Reset()
	}
	return rec
}

func (a *Adapter) fail(v2 bool, err error) (json.RawMessage, error) {
	a.log.Warn("rejecting invocation", zap.Error(err))
	body, _ := json.Marshal(map[string]string{"error": ErrMalformedEvent.Error()})
	headers := map[string]string{"Content-Type": "application/json"}
	if v2 {
		return json.Marshal(events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    headers,
			Body:       string(body),
		})
	}
	return json.Marshal(events.APIGatewayProxyResponse{
		StatusCode: http.StatusInternalServerError,
		Headers:    headers,
		Body:       string(body),
	})
}
