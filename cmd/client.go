package cmd

import (
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/databricks/databricks-sdk-go"

	"github.com/imishinist/mlflow-client/internal/config"
	"github.com/imishinist/mlflow-client/pkg/mlflow"
)

// client builds an MLflow client from the resolved configuration
func (c *cli) client() (*mlflow.Client, error) {
	client, err := newClient(c.cfg, mlflow.OptLogger(c.log))
	if err != nil {
		return nil, fmt.Errorf("failed to create MLflow client: %w", err)
	}
	return client, nil
}

func newClient(cfg *config.Config, opts ...mlflow.Opt) (*mlflow.Client, error) {
	if cfg.Insecure {
		opts = append(opts, mlflow.OptHTTPClient(&http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}))
	}
	opts = append(opts, mlflow.OptTimeout(cfg.Timeout))

	if cfg.IsDatabricks() {
		databricksConfig, err := databricksConfigFor(cfg)
		if err != nil {
			return nil, err
		}
		return mlflow.NewDatabricks(databricksConfig, opts...)
	}

	// Regular MLflow server configuration
	if cfg.Token != "" {
		opts = append(opts, mlflow.OptToken(cfg.Token))
	} else if cfg.Username != "" {
		opts = append(opts, mlflow.OptBasicAuth(cfg.Username, cfg.Password))
	}
	return mlflow.New(cfg.TrackingURI, opts...)
}

// databricksConfigFor maps the supported tracking URI forms onto an SDK config
func databricksConfigFor(cfg *config.Config) (*databricks.Config, error) {
	databricksConfig := &databricks.Config{}

	// Handle different Databricks URI formats
	if cfg.TrackingURI == "databricks" {
		// Use DATABRICKS_HOST if available
		if cfg.DatabricksHost != "" {
			databricksConfig.Host = cfg.DatabricksHost
		}
	} else if profile := cfg.GetDatabricksProfile(); profile != "" {
		databricksConfig.Profile = profile
	} else {
		// Use the tracking URI as Databricks host (direct URL)
		databricksConfig.Host = cfg.TrackingURI
	}

	// Set authentication token if available (overrides profile)
	if cfg.DatabricksToken != "" {
		databricksConfig.Token = cfg.DatabricksToken
	}

	if databricksConfig.Host == "" && databricksConfig.Profile == "" {
		return nil, fmt.Errorf("Databricks host or profile is required when using Databricks MLflow. Set DATABRICKS_HOST environment variable, use a full Databricks URL as tracking URI, or specify a profile with databricks://{profile}")
	}
	return databricksConfig, nil
}
