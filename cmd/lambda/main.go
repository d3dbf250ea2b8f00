package main

import (
	"log"
	"os"

	"CommuteTrends/internal/di"
	"CommuteTrends/pkg/config"

	"github.com/aws/aws-lambda-go/lambda"
)

func main() {
	path := os.Getenv("COMMUTE_CONFIG")
	if path == "" {
		path = "config/config.yaml"
	}
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	h, err := di.InitializeLambdaHandler(cfg, os.Getenv("COMMUTE_PROFILE"))
	if err != nil {
		log.Fatalf("handler initialization failed: %v", err)
	}

	lambda.Start(h.Handle)
}
