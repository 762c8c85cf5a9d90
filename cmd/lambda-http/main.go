package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"docflow-backend/internal/bootstrap"
	"docflow-backend/internal/shared/config"
	"docflow-backend/internal/shared/telemetry"
)

// proxy builds the router on the first invocation and reuses it while the
// execution environment stays warm.
type proxy struct {
	once    sync.Once
	build   func(ctx context.Context) (*gin.Engine, error)
	adapter *ginadapter.GinLambdaV2
	err     error
}

func (p *proxy) handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	p.once.Do(func() {
		engine, err := p.build(ctx)
		if err != nil {
			p.err = err
			return
		}
		p.adapter = ginadapter.NewV2(engine)
	})
	if p.err != nil {
		telemetry.Error("lambda_http.bootstrap_failed", map[string]any{"error": p.err.Error()})
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusInternalServerError,
			Body:       `{"error":{"code":"internal_error","message":"bootstrap failed"}}`,
			Headers:    map[string]string{"Content-Type": "application/json"},
		}, nil
	}
	// gin.Context.ClientIP parses RemoteAddr as host:port; the adapter copies
	// SourceIP verbatim. Signatures record the client IP, so give it a port.
	if ip := req.RequestContext.HTTP.SourceIP; ip != "" {
		if _, _, err := net.SplitHostPort(ip); err != nil {
			req.RequestContext.HTTP.SourceIP = net.JoinHostPort(ip, "0")
		}
	}
	return p.adapter.ProxyWithContext(ctx, req)
}

func buildRouter(ctx context.Context) (*gin.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	_ = telemetry.SetLevel(cfg.LogLevel)
	app, err := bootstrap.Build(context.WithoutCancel(ctx), cfg)
	if err != nil {
		return nil, err
	}
	return app.Router, nil
}

func main() {
	p := &proxy{build: buildRouter}
	lambda.Start(p.handle)
}
