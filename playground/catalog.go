// Package playground runs the API playground on the home page: a catalog of
// demo endpoints that are either answered from canned responses or forwarded
// to the live demo service.
package playground

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownEndpoint is returned for an index outside the catalog.
var ErrUnknownEndpoint = errors.New("unknown playground endpoint")

// Response is a canned reply.
type Response struct {
	Status int `yaml:"status" json:"status"`
	Body   any `yaml:"body" json:"body"`
}

// Endpoint is one entry of the playground menu.
type Endpoint struct {
	Method       string   `yaml:"method" json:"method"`
	Path         string   `yaml:"path" json:"path"`
	Description  string   `yaml:"description" json:"description"`
	RequiresAuth bool     `yaml:"requires_auth" json:"requiresAuth"`
	RequestBody  any      `yaml:"request_body" json:"requestBody,omitempty"`
	Encoding     string   `yaml:"encoding" json:"-"`
	MockResponse Response `yaml:"mock_response" json:"-"`
}

// Credentials log the playground into the live demo service.
type Credentials struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// Catalog is the playground's endpoint table.
type Catalog struct {
	Service         string      `yaml:"service"`
	DemoCredentials Credentials `yaml:"demo_credentials"`
	Endpoints       []Endpoint  `yaml:"endpoints"`
}

//go:embed endpoints.yaml
var defaultCatalog []byte

var methods = map[string]bool{
	http.MethodGet: true, http.MethodPost: true, http.MethodPut: true,
	http.MethodPatch: true, http.MethodDelete: true,
}

// LoadCatalog decodes and validates a YAML catalog.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode playground catalog: %w", err)
	}
	if len(c.Endpoints) == 0 {
		return nil, errors.New("playground catalog has no endpoints")
	}
	for i := range c.Endpoints {
		ep := &c.Endpoints[i]
		ep.Method = strings.ToUpper(ep.Method)
		if !methods[ep.Method] {
			return nil, fmt.Errorf("endpoint %d: unsupported method %q", i, ep.Method)
		}
		if !strings.HasPrefix(ep.Path, "/") {
			return nil, fmt.Errorf("endpoint %d: path %q must start with /", i, ep.Path)
		}
		if ep.MockResponse.Status < 100 || ep.MockResponse.Status > 599 {
			return nil, fmt.Errorf("endpoint %d: invalid mock status %d", i, ep.MockResponse.Status)
		}
	}
	return &c, nil
}

// DefaultCatalog returns the embedded habit-tracker catalog.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic("playground: embedded catalog: " + err.Error())
	}
	return c
}

// Endpoint returns the i-th endpoint.
func (c *Catalog) Endpoint(i int) (Endpoint, error) {
	if i < 0 || i >= len(c.Endpoints) {
		return Endpoint{}, fmt.Errorf("%w: %d", ErrUnknownEndpoint, i)
	}
	return c.Endpoints[i], nil
}
