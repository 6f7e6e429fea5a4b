package apiclient

import (
	"strings"
)

// Scope selects how a request is addressed and authenticated
type Scope int

const (
	// ScopeService is a server-initiated call: absolute origin plus internal API key
	ScopeService Scope = iota
	// ScopeUser is a call made on behalf of an end user: proxy base plus bearer token
	ScopeUser
)

// String returns the string representation of a Scope
func (s Scope) String() string {
	switch s {
	case ScopeService:
		return "service"
	case ScopeUser:
		return "user"
	default:
		return "unknown"
	}
}

// DefaultOrigin is used for service calls when neither an origin nor a deployment host is configured
const DefaultOrigin = "https://api.figureshelf.local"

// DefaultProxyURL is the front end's own reverse proxy, used for user calls
const DefaultProxyURL = "http://localhost:8080"

// Endpoints holds the base URL candidates for both scopes
type Endpoints struct {
	// Origin is the absolute backend origin for service calls
	Origin string
	// DeploymentHost is a bare host name the front end is deployed under, used when Origin is empty
	DeploymentHost string
	// ProxyURL is the base for user calls, normally the front end's /api reverse proxy
	ProxyURL string
}

// ResolveBaseURL picks the base URL for a scope. The result never has a trailing slash.
func ResolveBaseURL(scope Scope, e Endpoints) string {
	if scope == ScopeUser {
		if e.ProxyURL != "" {
			return strings.TrimRight(e.ProxyURL, "/")
		}
		return DefaultProxyURL
	}

	if e.Origin != "" {
		return strings.TrimRight(e.Origin, "/")
	}
	if host := strings.TrimSpace(e.DeploymentHost); host != "" {
		host = strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://")
		return "https://" + strings.TrimRight(host, "/")
	}
	return DefaultOrigin
}
