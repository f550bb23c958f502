/*
mlflow implements a client for the MLflow tracking REST API.
https://mlflow.org/docs/latest/rest-api.html
*/
package mlflow

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	// Packages
	databricks "github.com/databricks/databricks-sdk-go"
	sdkconfig "github.com/databricks/databricks-sdk-go/config"
	log "github.com/sirupsen/logrus"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Client issues one HTTP request per operation against a tracking server.
// It holds no mutable state and is safe for concurrent use.
type Client struct {
	endpoint string
	client   *http.Client
	headers  http.Header
	auth     func(*http.Request) error
	log      log.FieldLogger
}

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	apiPath        = "/api/2.0/mlflow"
	DefaultTimeout = 30 * time.Second
)

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates a client for the tracking server at trackingURI, for example
// "http://localhost:5000". The REST prefix /api/2.0/mlflow is appended.
func New(trackingURI string, opts ...Opt) (*Client, error) {
	endpoint, err := endpointFor(trackingURI)
	if err != nil {
		return nil, err
	}

	c := &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
		headers:  make(http.Header),
		log:      log.StandardLogger(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// NewDatabricks creates a client for a Databricks-hosted tracking server.
// The SDK config is resolved (profile, environment, host) and then used to
// authenticate every request.
func NewDatabricks(cfg *databricks.Config, opts ...Opt) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("databricks config is required")
	}
	sdk := (*sdkconfig.Config)(cfg)
	if err := sdk.EnsureResolved(); err != nil {
		return nil, fmt.Errorf("failed to resolve Databricks config: %w", err)
	}
	if sdk.Host == "" {
		return nil, fmt.Errorf("databricks host could not be resolved")
	}
	opts = append([]Opt{OptAuth(sdk.Authenticate)}, opts...)
	return New(sdk.Host, opts...)
}

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Endpoint returns the REST base URL used by the client
func (c *Client) Endpoint() string {
	return c.endpoint
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func endpointFor(trackingURI string) (string, error) {
	if trackingURI == "" {
		return "", fmt.Errorf("tracking URI is required")
	}
	u, err := url.Parse(trackingURI)
	if err != nil {
		return "", fmt.Errorf("invalid tracking URI %q: %w", trackingURI, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid tracking URI %q: scheme must be http or https", trackingURI)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid tracking URI %q: missing host", trackingURI)
	}

	base := strings.TrimSuffix(u.String(), "/")
	// Accept URIs that already carry the /api prefix
	base = strings.TrimSuffix(base, "/api")
	return base + apiPath, nil
}
