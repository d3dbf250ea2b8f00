package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"CommuteTrends/internal/domain/models"
	domrepo "CommuteTrends/internal/domain/repository"
	"CommuteTrends/pkg/config"
	applogger "CommuteTrends/pkg/logger"
	"CommuteTrends/pkg/paramstore"
	"CommuteTrends/pkg/validation"
)

// FileConfigProvider serves the snapshot from the application config file.
type FileConfigProvider struct {
	cfg *config.Config
}

var _ domrepo.ConfigProvider = (*FileConfigProvider)(nil)

func NewFileConfigProvider(cfg *config.Config) *FileConfigProvider {
	return &FileConfigProvider{cfg: cfg}
}

func (p *FileConfigProvider) GetDatabaseParams(ctx context.Context) (models.DatabaseParams, error) {
	db := p.cfg.Database
	params := models.DatabaseParams{
		Host:   db.Host,
		User:   db.User,
		Pass:   db.Password,
		Name:   db.Name,
		Table:  db.Table,
		Driver: db.Driver,
		Port:   db.Port,
	}
	if err := validation.Struct(ctx, &params); err != nil {
		return models.DatabaseParams{}, fmt.Errorf("database params: %w", err)
	}
	return params, nil
}

func (p *FileConfigProvider) GetHeaderPolicy(context.Context) (models.HeaderPolicy, error) {
	h := make(models.HeaderPolicy, len(p.cfg.Headers))
	for k, v := range p.cfg.Headers {
		h[k] = v
	}
	return h, nil
}

func (p *FileConfigProvider) GetRouteTable(context.Context) (models.RouteTable, error) {
	routes := make(models.RouteTable, len(p.cfg.Routes))
	for id, r := range p.cfg.Routes {
		routes[id] = models.RouteEntry{Origin: r.Origin, Destination: r.Destination, DefaultFields: r.Fields}
	}
	return routes, nil
}

// ParameterSource is a hierarchical key/value parameter store.
type ParameterSource interface {
	GetParameter(ctx context.Context, name string) (string, error)
	GetParametersByPath(ctx context.Context, path string) (map[string]string, error)
}

// RedisConfigProvider reads the parameter tree:
//
//	<prefix>/database/{host,user,pass,name,table[,port,driver]}
//	<prefix>/headers/<Header-Name>
//	<prefix>/config/routes  (JSON object of id -> {origin, destination, fields})
type RedisConfigProvider struct {
	src           ParameterSource
	prefix        string
	defaultDriver string
	l             *applogger.Logger
}

var _ domrepo.ConfigProvider = (*RedisConfigProvider)(nil)

// NewRedisConfigProvider creates the provider. defaultDriver is used when the
// tree has no database/driver parameter.
func NewRedisConfigProvider(src ParameterSource, prefix, defaultDriver string, l *applogger.Logger) *RedisConfigProvider {
	if l == nil {
		l = applogger.NewNop()
	}
	return &RedisConfigProvider{src: src, prefix: strings.TrimRight(prefix, "/"), defaultDriver: defaultDriver, l: l}
}

func (p *RedisConfigProvider) category(ctx context.Context, name string) (map[string]string, error) {
	path := p.prefix + "/" + name
	raw, err := p.src.GetParametersByPath(ctx, path)
	if err != nil {
		p.l.Error("param store read error", applogger.String("path", path), applogger.Error(err))
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[strings.TrimPrefix(k, path+"/")] = v
	}
	return out, nil
}

func (p *RedisConfigProvider) GetDatabaseParams(ctx context.Context) (models.DatabaseParams, error) {
	kv, err := p.category(ctx, "database")
	if err != nil {
		return models.DatabaseParams{}, err
	}
	params := models.DatabaseParams{
		Host:   kv["host"],
		User:   kv["user"],
		Pass:   kv["pass"],
		Name:   kv["name"],
		Table:  kv["table"],
		Driver: kv["driver"],
	}
	if params.Driver == "" {
		params.Driver = p.defaultDriver
	}
	if v := kv["port"]; v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return models.DatabaseParams{}, fmt.Errorf("database port %q: %w", v, err)
		}
		params.Port = port
	}
	if err := validation.Struct(ctx, &params); err != nil {
		return models.DatabaseParams{}, fmt.Errorf("database params: %w", err)
	}
	p.l.Debug("param store database ok",
		applogger.String("host", params.Host),
		applogger.String("name", params.Name),
		applogger.String("table", params.Table),
	)
	return params, nil
}

func (p *RedisConfigProvider) GetHeaderPolicy(ctx context.Context) (models.HeaderPolicy, error) {
	kv, err := p.category(ctx, "headers")
	if err != nil {
		return nil, err
	}
	if _, ok := kv["Access-Control-Allow-Origin"]; !ok {
		p.l.Warn("param store headers without Access-Control-Allow-Origin; every origin will be rejected")
	}
	p.l.Info("param store headers ok", applogger.Int("count", len(kv)))
	return models.HeaderPolicy(kv), nil
}

// GetRouteTable returns an empty table when no routes are configured.
func (p *RedisConfigProvider) GetRouteTable(ctx context.Context) (models.RouteTable, error) {
	name := p.prefix + "/config/routes"
	raw, err := p.src.GetParameter(ctx, name)
	if err != nil {
		if errors.Is(err, paramstore.ErrParameterNotFound) {
			return models.RouteTable{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	routes, err := ParseRouteTable([]byte(raw))
	if err != nil {
		p.l.Error("param store routes error", applogger.String("name", name), applogger.Error(err))
		return nil, err
	}
	p.l.Info("param store routes ok", applogger.Int("count", len(routes)))
	return routes, nil
}

// ParseRouteTable decodes a JSON route table.
func ParseRouteTable(b []byte) (models.RouteTable, error) {
	var routes models.RouteTable
	if err := json.Unmarshal(b, &routes); err != nil {
		return nil, fmt.Errorf("routes json: %w", err)
	}
	if routes == nil {
		routes = models.RouteTable{}
	}
	return routes, nil
}
