package models

// RouteEntry is a named origin/destination pair from the configuration provider.
type RouteEntry struct {
	Origin        string   `json:"origin" yaml:"origin"`
	Destination   string   `json:"destination" yaml:"destination"`
	DefaultFields []string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// RouteTable maps opaque route ids to entries. Read-only once loaded.
type RouteTable map[string]RouteEntry

// RouteKind tags how a request names its route.
type RouteKind int

const (
	RouteByID RouteKind = iota + 1
	RouteExplicit
)

func (k RouteKind) String() string {
	switch k {
	case RouteByID:
		return "id"
	case RouteExplicit:
		return "explicit"
	default:
		return "unknown"
	}
}

// RouteInput is the tagged route part of a request: either an id or an explicit pair.
type RouteInput struct {
	Kind        RouteKind
	ID          string
	Origin      string
	Destination string
}
