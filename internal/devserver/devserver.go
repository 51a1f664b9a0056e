// Package devserver serves the Lambda handler over plain HTTP for local runs.
package devserver

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
)

// ProxyHandler matches handler.Handler.Handle.
type ProxyHandler func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// NewEngine returns a gin engine that forwards every request to h.
func NewEngine(h ProxyHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.NoRoute(Bridge(h))
	return r
}

// Bridge converts the gin request into an API Gateway proxy event, calls h,
// and writes the proxy response back.
func Bridge(h ProxyHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		resp, err := h(c.Request.Context(), toProxyRequest(c.Request, body))
		if err != nil {
			slog.Error("lambda handler failed", "err", err)
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Internal server error"})
			return
		}

		for k, v := range resp.Headers {
			c.Header(k, v)
		}
		for k, vs := range resp.MultiValueHeaders {
			for _, v := range vs {
				c.Writer.Header().Add(k, v)
			}
		}

		out := []byte(resp.Body)
		if resp.IsBase64Encoded {
			if out, err = base64.StdEncoding.DecodeString(resp.Body); err != nil {
				slog.Error("decode lambda response body", "err", err)
				c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Internal server error"})
				return
			}
		}
		c.Status(resp.StatusCode)
		c.Writer.WriteHeaderNow()
		if len(out) > 0 {
			_, _ = c.Writer.Write(out)
		}
	}
}

func toProxyRequest(r *http.Request, body []byte) events.APIGatewayProxyRequest {
	req := events.APIGatewayProxyRequest{
		HTTPMethod:                      r.Method,
		Path:                            r.URL.Path,
		Headers:                         map[string]string{},
		MultiValueHeaders:               map[string][]string{},
		QueryStringParameters:           map[string]string{},
		MultiValueQueryStringParameters: map[string][]string{},
		RequestContext: events.APIGatewayProxyRequestContext{
			HTTPMethod: r.Method,
			Path:       r.URL.Path,
			Identity:   events.APIGatewayRequestIdentity{SourceIP: r.RemoteAddr},
		},
	}
	for k, vs := range r.Header {
		if len(vs) > 0 {
			req.Headers[k] = vs[0]
		}
		req.MultiValueHeaders[k] = vs
	}
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			req.QueryStringParameters[k] = vs[0]
		}
		req.MultiValueQueryStringParameters[k] = vs
	}

	if utf8.Valid(body) {
		req.Body = string(body)
	} else {
		req.Body = base64.StdEncoding.EncodeToString(body)
		req.IsBase64Encoded = true
	}
	return req
}
