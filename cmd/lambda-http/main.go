package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"linkedin-optimizer/internal/bootstrap"
	"linkedin-optimizer/internal/shared/config"
	"linkedin-optimizer/internal/shared/telemetry"
)

// The adapter and any bootstrap failure are kept for the life of the
// execution environment; a broken config is not retried per request.
var (
	initOnce sync.Once
	initErr  error
	proxy    *ginadapter.GinLambdaV2
)

func initApp() {
	cfg, err := config.Load()
	if err != nil {
		initErr = err
		return
	}
	telemetry.SetLevel(cfg.LogLevel)
	app, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	proxy = ginadapter.NewV2(app.Router)
	telemetry.Info("lambda.http.ready", map[string]any{
		"env":      cfg.Env,
		"provider": cfg.LLMProvider,
		"progress": cfg.ProgressStore,
	})
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	initOnce.Do(initApp)
	defer telemetry.Sync()
	if initErr != nil {
		telemetry.Error("lambda.http.bootstrap_failed", map[string]any{
			"error": initErr.Error(),
			"path":  req.RawPath,
		})
		return unavailable("bootstrap_failed", "Service is not configured correctly."), nil
	}
	return proxy.ProxyWithContext(ctx, req)
}

// unavailable renders the API error envelope without going through gin.
func unavailable(code, message string) events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(map[string]any{
		"error": map[string]any{"code": code, "message": message},
	})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func main() {
	lambda.Start(handler)
}
