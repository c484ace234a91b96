package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gemini-proxy/config"
	"gemini-proxy/logger"
	"gemini-proxy/proxy"
)

func main() {
	fmt.Println(GetBuildInfo())
	fmt.Println()

	// Load configuration with .env support
	cfg, err := config.LoadConfigWithEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize the structured event log (JSONL). Optional: the proxy runs
	// without it when the log directory is not writable.
	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}
	obsLogger, err := logger.NewObservabilityLogger(logDir)
	if err != nil {
		log.Printf("⚠️ Event logging disabled: %v", err)
		obsLogger = nil
	} else {
		defer obsLogger.Close()
		obsLogger.Info(logger.ComponentConfig, logger.CategoryRequest, "", "Gemini proxy configuration loaded", map[string]interface{}{
			"port":                   cfg.Port,
			"default_model":          cfg.DefaultModel,
			"gemini_endpoints":       len(cfg.GeminiEndpoints),
			"inner_thoughts_in_args": cfg.InnerThoughtsInArgs,
			"filler_padding_enabled": cfg.FillerPaddingEnabled,
			"version":                GetVersionInfo(),
		})
	}

	// Create proxy handler
	proxyHandler := proxy.NewHandler(cfg, obsLogger)

	// Setup HTTP routes
	http.HandleFunc("/", handleRoot)
	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/v1/chat/completions", proxyHandler.HandleChatCompletions)
	http.Handle("/metrics", promhttp.Handler())

	// Setup HTTP server with reasonable timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Gemini calls with large contexts can be slow
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("🚀 Gemini proxy listening on http://localhost:%s (endpoint: /v1/chat/completions)", cfg.Port)

	if err := server.ListenAndServe(); err != nil {
		if obsLogger != nil {
			obsLogger.Error(logger.ComponentProxy, logger.CategoryError, "", "Server failed to start", map[string]interface{}{"error": err.Error()})
		}
		log.Fatalf("Server failed to start: %v", err)
	}
}

// handleRoot provides basic information about the proxy
func handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{
	"service": "Gemini Proxy",
	"version": %q,
	"status": "running",
	"endpoints": [
		"GET /health - Health check",
		"POST /v1/chat/completions - OpenAI-compatible chat completions",
		"GET /metrics - Prometheus metrics"
	]
}`, Version)
}

// handleHealth provides a simple health check endpoint
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{
	"status": "ok",
	"timestamp": "%s"
}`, time.Now().UTC().Format(time.RFC3339))
}
