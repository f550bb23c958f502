package mlflow

import (
	"fmt"
	"net/http"
	"time"

	// Packages
	log "github.com/sirupsen/logrus"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// Opt configures a Client
type Opt func(*Client) error

///////////////////////////////////////////////////////////////////////////////
// CLIENT OPTIONS

// OptHTTPClient replaces the HTTP client, for custom transports or TLS
func OptHTTPClient(client *http.Client) Opt {
	return func(c *Client) error {
		if client == nil {
			return fmt.Errorf("http client is nil")
		}
		c.client = client
		return nil
	}
}

// OptTimeout sets the per-request timeout. Zero disables it.
func OptTimeout(d time.Duration) Opt {
	return func(c *Client) error {
		if d < 0 {
			return fmt.Errorf("invalid timeout: %v", d)
		}
		// Copy so a shared http.Client passed with OptHTTPClient is not mutated
		client := *c.client
		client.Timeout = d
		c.client = &client
		return nil
	}
}

// OptHeader adds a static header to every request
func OptHeader(key, value string) Opt {
	return func(c *Client) error {
		if key == "" {
			return fmt.Errorf("header key is empty")
		}
		c.headers.Add(key, value)
		return nil
	}
}

// OptToken authenticates with a bearer token (MLFLOW_TRACKING_TOKEN)
func OptToken(token string) Opt {
	return func(c *Client) error {
		if token == "" {
			return nil
		}
		c.headers.Set("Authorization", "Bearer "+token)
		return nil
	}
}

// OptBasicAuth authenticates with MLflow basic auth
// (MLFLOW_TRACKING_USERNAME, MLFLOW_TRACKING_PASSWORD)
func OptBasicAuth(username, password string) Opt {
	return func(c *Client) error {
		if username == "" {
			return nil
		}
		c.auth = func(r *http.Request) error {
			r.SetBasicAuth(username, password)
			return nil
		}
		return nil
	}
}

// OptAuth sets a function which authenticates each outgoing request
func OptAuth(fn func(*http.Request) error) Opt {
	return func(c *Client) error {
		c.auth = fn
		return nil
	}
}

// OptLogger sets the logger used for request tracing at debug level
func OptLogger(logger log.FieldLogger) Opt {
	return func(c *Client) error {
		if logger == nil {
			return fmt.Errorf("logger is nil")
		}
		c.log = logger
		return nil
	}
}
