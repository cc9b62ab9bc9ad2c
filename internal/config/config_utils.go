package config

import (
	"fmt"
	"os"
	"strings"
)

// userConfigDir is swapped in tests.
var userConfigDir = os.UserConfigDir

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyAPIBaseURLFallback()
	c.applyServerAPIKeyFallbacks()
	c.applyObservabilityDefaults()
}

// applyAPIBaseURLFallback resolves the backend base URL: explicit config first,
// then API_URL, then origin + "/api", then the local default.
func (c *Config) applyAPIBaseURLFallback() {
	c.API.BaseURL = ResolveBaseURL(c.API.BaseURL, os.Getenv("API_URL"), c.API.Origin)
}

// ResolveBaseURL picks the first usable base URL and strips a trailing slash.
func ResolveBaseURL(configured, env, origin string) string {
	var url string
	switch {
	case strings.TrimSpace(configured) != "":
		url = configured
	case strings.TrimSpace(env) != "":
		url = env
	case strings.TrimSpace(origin) != "":
		url = strings.TrimRight(strings.TrimSpace(origin), "/") + "/api"
	default:
		url = DefaultAPIBaseURL
	}
	return strings.TrimRight(strings.TrimSpace(url), "/")
}

// applyServerAPIKeyFallbacks accepts a comma-separated JOBPREP_SERVER_APIKEYS. Keys are
// trimmed whether viper split the value or not.
func (c *Config) applyServerAPIKeyFallbacks() {
	var keys []string
	for _, k := range c.Server.APIKeys {
		keys = append(keys, splitAndTrim(k)...)
	}
	c.Server.APIKeys = keys
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("JOBPREP_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitAndTrim(apiKeysEnv)
		}
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// Summary lists the configuration sources and key values, secrets masked.
// The caller decides how to log it.
func (c *Config) Summary() []any {
	source := c.Source
	if source == "" {
		source = "none (defaults and environment)"
	}
	tokenState := "not set"
	if c.API.Token != "" {
		tokenState = "configured"
	}
	return []any{
		"config_file", source,
		"api_base_url", c.API.BaseURL,
		"api_token", tokenState,
		"storage_backend", c.Storage.Backend,
		"storage_key", c.Storage.Key,
		"page_size", c.Assessment.PageSize,
		"vault_enabled", c.Vault.Enabled,
		"observability_enabled", c.Observability.Enabled,
	}
}
