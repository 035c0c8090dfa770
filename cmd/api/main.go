package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/maisoncleo/atelier-tracker/internal/app"
	"github.com/maisoncleo/atelier-tracker/internal/config"
	"github.com/maisoncleo/atelier-tracker/internal/handlers"
	"github.com/maisoncleo/atelier-tracker/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info").Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.LogLevel)

	a, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatalf("failed to init services: %v", err)
	}
	defer a.Close()

	if !cfg.RunLocal {
		gin.SetMode(gin.ReleaseMode)
	}
	r := handlers.NewRouter(handlers.HandlerConfig{App: a})

	// RUN_LOCAL=true runs a plain HTTP server for development.
	if cfg.RunLocal {
		addr := ":" + cfg.Port
		logger.Infof("running local server on %s", addr)
		if err := r.Run(addr); err != nil {
			logger.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
