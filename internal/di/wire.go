//go:build wireinject
// +build wireinject

package di

import (
	lambdahandler "CommuteTrends/internal/handler/lambda"
	"CommuteTrends/pkg/config"
	"CommuteTrends/pkg/server"

	"github.com/google/wire"
)

var coreSet = wire.NewSet(
	// Logging
	ProvideKafkaProducer,
	ProvideLogger,

	// Configuration provider and runtime snapshot
	ProvideParamStore,
	ProvideConfigProvider,
	ProvideRuntimeContext,

	// Infrastructure clients
	ProvideDatabaseClient,

	// Repositories
	ProvideTrafficRepository,

	// Services
	ProvideCORSPolicy,
	ProvideMetrics,

	// Use cases
	ProvideCharts,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		coreSet,

		// Transport
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeLambdaHandler wires the API Gateway adapter for one profile.
func InitializeLambdaHandler(cfg *config.Config, profile string) (*lambdahandler.ProxyHandler, error) {
	wire.Build(
		coreSet,
		ProvideProxyHandler,
	)
	return &lambdahandler.ProxyHandler{}, nil
}
