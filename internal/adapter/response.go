package adapter

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
)

// recorder is the http.ResponseWriter handed to the wrapped handler.
type recorder struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newRecorder() *recorder {
	return &recorder{header: http.Header{}}
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
}

func (r *recorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(p)
}

func (r *recorder) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *recorder) encodedBody() (string, bool) {
	b := r.body.Bytes()
	if utf8.Valid(b) {
		return string(b), false
	}
	return base64.StdEncoding.EncodeToString(b), true
}

func (r *recorder) restResponse() events.APIGatewayProxyResponse {
	body, encoded := r.encodedBody()
	single := make(map[string]string, len(r.header))
	for k, vs := range r.header {
		if len(vs) > 0 {
			single[k] = vs[0]
		}
	}
	return events.APIGatewayProxyResponse{
		StatusCode:        r.statusCode(),
		Headers:           single,
		MultiValueHeaders: r.header,
		Body:              body,
		IsBase64Encoded:   encoded,
	}
}

func (r *recorder) httpResponse() events.APIGatewayV2HTTPResponse {
	body, encoded := r.encodedBody()
	headers := make(map[string]string, len(r.header))
	var cookies []string
	for k, vs := range r.header {
		if k == "Set-Cookie" {
			cookies = append(cookies, vs...)
			continue
		}
		headers[k] = strings.Join(vs, ",")
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode:      r.statusCode(),
		Headers:         headers,
		Body:            body,
		IsBase64Encoded: encoded,
		Cookies:         cookies,
	}
}
