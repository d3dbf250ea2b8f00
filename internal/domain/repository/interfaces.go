package repository

import (
	"context"
	"time"

	"CommuteTrends/internal/domain/models"
)

// TrafficQuerier reads samples for one resolved descriptor.
type TrafficQuerier interface {
	Execute(ctx context.Context, d models.QueryDescriptor) ([]models.RawSample, error)
	Health(ctx context.Context) error
}

// ConfigProvider supplies the process-wide configuration snapshot. It is read
// once at startup; any failure there is fatal.
type ConfigProvider interface {
	GetDatabaseParams(ctx context.Context) (models.DatabaseParams, error)
	GetHeaderPolicy(ctx context.Context) (models.HeaderPolicy, error)
	GetRouteTable(ctx context.Context) (models.RouteTable, error)
}

type Metrics interface {
	RecordRequest(profile, outcome string)
	RecordError(kind string)
	RecordLatency(op string, d time.Duration)
	RecordRows(profile string, n int)
}

// LoadRuntimeContext builds the immutable snapshot from a provider.
func LoadRuntimeContext(ctx context.Context, p ConfigProvider) (*models.RuntimeContext, error) {
	db, err := p.GetDatabaseParams(ctx)
	if err != nil {
		return nil, models.NewError(models.KindConfigurationFailure, "database parameters", err)
	}
	headers, err := p.GetHeaderPolicy(ctx)
	if err != nil {
		return nil, models.NewError(models.KindConfigurationFailure, "header policy", err)
	}
	routes, err := p.GetRouteTable(ctx)
	if err != nil {
		return nil, models.NewError(models.KindConfigurationFailure, "route table", err)
	}
	if routes == nil {
		routes = models.RouteTable{}
	}
	return &models.RuntimeContext{Database: db, Headers: headers, Routes: routes}, nil
}
