package adapter

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

const requestIDHeader = "X-Request-Id"

// StripBasePath removes base from the front of p when p equals base or lies
// beneath it. Other paths are returned unchanged.
func StripBasePath(p, base string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	base = strings.TrimRight(base, "/")
	switch {
	case base == "":
		return p
	case p == base:
		return "/"
	case strings.HasPrefix(p, base+"/"):
		return p[len(base):]
	}
	return p
}

func (a *Adapter) restRequest(ctx context.Context, ev events.APIGatewayProxyRequest) (*http.Request, error) {
	query := url.Values{}
	if len(ev.MultiValueQueryStringParameters) > 0 {
		for k, vs := range ev.MultiValueQueryStringParameters {
			query[k] = append(query[k], vs...)
		}
	} else {
		for k, v := range ev.QueryStringParameters {
			query.Set(k, v)
		}
	}

	header := http.Header{}
	if len(ev.MultiValueHeaders) > 0 {
		for k, vs := range ev.MultiValueHeaders {
			for _, v := range vs {
				header.Add(k, v)
			}
		}
	} else {
		for k, v := range ev.Headers {
			header.Set(k, v)
		}
	}

	req, err := a.newRequest(ctx, ev.HTTPMethod, ev.Path, query.Encode(), header, ev.Body, ev.IsBase64Encoded)
	if err != nil {
		return nil, err
	}
	req.RemoteAddr = ev.RequestContext.Identity.SourceIP
	if req.Header.Get(requestIDHeader) == "" && ev.RequestContext.RequestID != "" {
		req.Header.Set(requestIDHeader, ev.RequestContext.RequestID)
	}
	return req, nil
}

func (a *Adapter) httpRequest(ctx context.Context, ev events.APIGatewayV2HTTPRequest) (*http.Request, error) {
	header := http.Header{}
	for k, v := range ev.Headers {
		header.Set(k, v)
	}
	if len(ev.Cookies) > 0 {
		header.Set("Cookie", strings.Join(ev.Cookies, "; "))
	}

	p := ev.RawPath
	if stage := ev.RequestContext.Stage; stage != "" && stage != "$default" {
		p = StripBasePath(p, "/"+stage)
	}

	req, err := a.newRequest(ctx, ev.RequestContext.HTTP.Method, p, ev.RawQueryString, header, ev.Body, ev.IsBase64Encoded)
	if err != nil {
		return nil, err
	}
	req.RemoteAddr = ev.RequestContext.HTTP.SourceIP
	if req.Header.Get(requestIDHeader) == "" && ev.RequestContext.RequestID != "" {
		req.Header.Set(requestIDHeader, ev.RequestContext.RequestID)
	}
	return req, nil
}

func (a *Adapter) newRequest(ctx context.Context, method, p, rawQuery string, header http.Header, body string, encoded bool) (*http.Request, error) {
	if method == "" {
		return nil, fmt.Errorf("%w: missing http method", ErrMalformedEvent)
	}
	raw := []byte(body)
	if encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, fmt.Errorf("%w: body: %v", ErrMalformedEvent, err)
		}
		raw = decoded
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), "/", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	req.URL = &url.URL{
		Path:     StripBasePath(p, a.basePath),
		RawQuery: rawQuery,
	}
	req.RequestURI = req.URL.RequestURI()
	req.Header = header
	req.Host = header.Get("Host")
	req.ContentLength = int64(len(raw))
	return req, nil
}
