package models

// DatabaseParams are the store connection parameters from the configuration provider.
type DatabaseParams struct {
	Host  string `json:"host" validate:"required_unless=Driver sqlite"`
	User  string `json:"user"`
	Pass  string `json:"-"`
	Name  string `json:"name" validate:"required"`
	Table string `json:"table" validate:"required"`
	// Driver is not part of the legacy parameter tree; it defaults from application config.
	Driver string `json:"driver"`
	Port   int    `json:"port"`
}

// HeaderPolicy holds response headers from the configuration provider.
// Its Access-Control-Allow-Origin entry lists the allowed origins.
type HeaderPolicy map[string]string

// RuntimeContext is the immutable per-process snapshot every request reads from.
// It is built once at startup and injected; nothing mutates it afterwards.
type RuntimeContext struct {
	Database DatabaseParams
	Headers  HeaderPolicy
	Routes   RouteTable
}
