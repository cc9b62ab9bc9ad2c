package config

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// DefaultAPIBaseURL is used when neither config, API_URL nor api.origin is set.
const DefaultAPIBaseURL = "http://localhost:8000/api"

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.logFile", "")
	v.SetDefault("app.logMaxSizeMB", 10)
	v.SetDefault("app.logMaxBackups", 3)
	v.SetDefault("app.logMaxAgeDays", 28)
	v.SetDefault("app.logCompress", true)
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "yaml", "text", "markdown", "xlsx"})

	// Backend API
	v.SetDefault("api.baseURL", "")
	v.SetDefault("api.origin", "")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.rateLimit.enabled", true)
	v.SetDefault("api.rateLimit.requestsPerSecond", 5.0)
	v.SetDefault("api.rateLimit.burst", 5)
	v.SetDefault("api.circuitBreaker.enabled", true)
	v.SetDefault("api.circuitBreaker.maxRequests", 3)
	v.SetDefault("api.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("api.circuitBreaker.timeout", 30*time.Second)
	v.SetDefault("api.circuitBreaker.minRequests", 3)
	v.SetDefault("api.circuitBreaker.failureThreshold", 0.6)

	// Assessment
	v.SetDefault("assessment.pageSize", 4)
	v.SetDefault("assessment.progressBands.low", 50)
	v.SetDefault("assessment.progressBands.mid", 80)

	// Résumé
	v.SetDefault("resume.maxPhotoBytes", 5*1024*1024)
	v.SetDefault("resume.maxTextLength", 500)
	v.SetDefault("resume.previewMaxSide", 600)

	// Storage
	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.key", "resumeData")
	v.SetDefault("storage.file.path", defaultDataPath("store.json"))
	v.SetDefault("storage.file.quotaBytes", 5*1024*1024)
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.keyPrefix", "jobprep:")
	v.SetDefault("storage.sqlite.path", defaultDataPath("store.db"))
	v.SetDefault("storage.memory.quotaBytes", 5*1024*1024)
	v.SetDefault("storage.watch.debounce", 300*time.Millisecond)

	// Local server
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "8090")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 60*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.maxRequestSize", 8*1024*1024)
	v.SetDefault("server.sessionTTL", 2*time.Hour)
	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.rateLimit.enabled", true)
	v.SetDefault("server.rateLimit.requestsPerMin", 120)
	v.SetDefault("server.rateLimit.burstCapacity", 20)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)

	// Vault
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiToken", "")
	v.SetDefault("vault.secrets.serverKeys", "")

	// Observability
	v.SetDefault("observability.enabled", false)
	v.SetDefault("observability.serviceName", "jobprep")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.prettyPrint", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.prometheus.enabled", false)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
}

// defaultDataPath places local data under the user config directory.
func defaultDataPath(name string) string {
	dir, err := userConfigDir()
	if err != nil {
		return filepath.Join(".jobprep", name)
	}
	return filepath.Join(dir, "jobprep", name)
}
