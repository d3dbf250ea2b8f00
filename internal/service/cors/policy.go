package cors

import (
	"strings"

	"CommuteTrends/internal/domain/models"
)

const (
	HeaderAllowOrigin = "Access-Control-Allow-Origin"
	anyOrigin         = "*"
)

// Policy decides which request origins may read chart data and assembles the
// response headers for them. It is immutable after construction.
type Policy struct {
	headers  models.HeaderPolicy
	allowed  map[string]struct{}
	allowAny bool
}

// NewPolicy builds a policy from the configured header set. The
// Access-Control-Allow-Origin entry is read as a comma or space separated
// allow-list. allowAny answers unknown origins with "*" instead of rejecting them.
func NewPolicy(headers models.HeaderPolicy, allowAny bool) *Policy {
	p := &Policy{
		headers:  make(models.HeaderPolicy, len(headers)),
		allowed:  make(map[string]struct{}),
		allowAny: allowAny,
	}
	for k, v := range headers {
		if strings.EqualFold(k, HeaderAllowOrigin) {
			for _, o := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
				if o == anyOrigin {
					p.allowAny = true
					continue
				}
				p.allowed[strings.TrimRight(o, "/")] = struct{}{}
			}
			continue
		}
		p.headers[k] = v
	}
	return p
}

// IsOriginAllowed reports whether origin is on the allow-list. Matching is exact.
func (p *Policy) IsOriginAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	_, ok := p.allowed[origin]
	return ok
}

// AllowOrigin returns the Access-Control-Allow-Origin value for origin and
// whether the request may proceed.
func (p *Policy) AllowOrigin(origin string) (string, bool) {
	if p.IsOriginAllowed(origin) {
		return origin, true
	}
	if p.allowAny {
		return anyOrigin, true
	}
	return "", false
}

// ResponseHeaders returns a fresh copy of the configured headers with the
// allow-origin value set.
func (p *Policy) ResponseHeaders(allowOrigin string) map[string]string {
	out := make(map[string]string, len(p.headers)+2)
	for k, v := range p.headers {
		out[k] = v
	}
	if allowOrigin != "" {
		out[HeaderAllowOrigin] = allowOrigin
	}
	return out
}

// AllowsAny reports whether unknown origins are answered with "*".
func (p *Policy) AllowsAny() bool {
	return p.allowAny
}
