package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Databricks domain suffixes for URL detection
var databricksDomains = []string{
	".cloud.databricks.com",
	".azuredatabricks.net",
	".gcp.databricks.com",
}

// Valid configuration values
var (
	validTimeResolutions = map[string]bool{
		"1m": true, "5m": true, "1h": true,
	}
	validTimeAlignments = map[string]bool{
		"floor": true, "ceil": true, "round": true,
	}
	validStepModes = map[string]bool{
		"auto": true, "timestamp": true, "sequence": true,
	}
	validOutputs = map[string]bool{
		"text": true, "json": true, "yaml": true,
	}
)

type Config struct {
	TrackingURI     string
	ExperimentID    string
	TimeResolution  string
	TimeAlignment   string
	StepMode        string
	DatabricksHost  string
	DatabricksToken string

	// Client settings
	Timeout  time.Duration
	Retries  uint
	Token    string
	Username string
	Password string
	Insecure bool

	// Output settings
	Output  string
	Verbose bool
}

// New reads the configuration bound by the root command
func New() *Config {
	return NewFrom(viper.GetViper())
}

// NewFrom reads the configuration from a viper instance
func NewFrom(v *viper.Viper) *Config {
	return &Config{
		TrackingURI:     v.GetString("tracking_uri"),
		ExperimentID:    v.GetString("experiment_id"),
		TimeResolution:  v.GetString("time_resolution"),
		TimeAlignment:   v.GetString("time_alignment"),
		StepMode:        v.GetString("step_mode"),
		DatabricksHost:  v.GetString("databricks_host"),
		DatabricksToken: v.GetString("databricks_token"),
		Timeout:         v.GetDuration("timeout"),
		Retries:         v.GetUint("retries"),
		Token:           v.GetString("tracking_token"),
		Username:        v.GetString("tracking_username"),
		Password:        v.GetString("tracking_password"),
		Insecure:        v.GetBool("tracking_insecure_tls"),
		Output:          v.GetString("output"),
		Verbose:         v.GetBool("verbose"),
	}
}

// SetDefaults registers the default values on a viper instance
func SetDefaults(v *viper.Viper) {
	v.SetDefault("tracking_uri", "http://localhost:5000")
	v.SetDefault("time_resolution", "1m")
	v.SetDefault("time_alignment", "floor")
	v.SetDefault("step_mode", "auto")
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("retries", 0)
	v.SetDefault("output", "text")
}

func (c *Config) Validate() error {
	if c.TrackingURI == "" {
		return fmt.Errorf("tracking URI is required")
	}

	// Validate time resolution
	if !validTimeResolutions[c.TimeResolution] {
		return fmt.Errorf("invalid time resolution: %s (valid: 1m, 5m, 1h)", c.TimeResolution)
	}

	// Validate time alignment
	if !validTimeAlignments[c.TimeAlignment] {
		return fmt.Errorf("invalid time alignment: %s (valid: floor, ceil, round)", c.TimeAlignment)
	}

	// Validate step mode
	if !validStepModes[c.StepMode] {
		return fmt.Errorf("invalid step mode: %s (valid: auto, timestamp, sequence)", c.StepMode)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout: %s", c.Timeout)
	}

	if !validOutputs[c.Output] {
		return fmt.Errorf("invalid output: %s (valid: text, json, yaml)", c.Output)
	}

	if !c.IsDatabricks() && !strings.HasPrefix(c.TrackingURI, "http://") && !strings.HasPrefix(c.TrackingURI, "https://") {
		return fmt.Errorf("unsupported tracking URI: %s (expected http(s)://, databricks or databricks://{profile})", c.TrackingURI)
	}

	return nil
}

// IsDatabricks checks if the tracking URI points to Databricks
func (c *Config) IsDatabricks() bool {
	if c.TrackingURI == "databricks" {
		return true
	}

	// Check for databricks:// protocol
	if strings.HasPrefix(c.TrackingURI, "databricks://") {
		return true
	}

	// Check for Databricks URLs
	if strings.HasPrefix(c.TrackingURI, "https://") {
		host := c.extractHostFromURL(c.TrackingURI)
		return c.isDatabricksHost(host)
	}

	return false
}

// extractHostFromURL extracts the hostname from a URL
func (c *Config) extractHostFromURL(url string) string {
	host := strings.TrimPrefix(url, "https://")
	// Remove any path components
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	return host
}

// isDatabricksHost checks if a hostname belongs to Databricks
func (c *Config) isDatabricksHost(host string) bool {
	for _, domain := range databricksDomains {
		if strings.HasSuffix(host, domain) {
			return true
		}
	}
	return false
}

// GetDatabricksProfile extracts the profile name from databricks://{profile} URI
func (c *Config) GetDatabricksProfile() string {
	if !strings.HasPrefix(c.TrackingURI, "databricks://") {
		return ""
	}

	profile := strings.TrimPrefix(c.TrackingURI, "databricks://")
	// Remove any trailing slashes or paths
	if idx := strings.Index(profile, "/"); idx != -1 {
		profile = profile[:idx]
	}
	return profile
}
