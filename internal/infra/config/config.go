// Package config provides application-wide configuration.
// Values come from three layers: safe built-in defaults, an optional YAML
// file (ORRERY_CONFIG), and environment variables. Later layers win, so
// the binary runs locally without any setup and deployments can pin a
// file while still overriding single values per process.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for orrery.
type Config struct {
	// NASA
	NASAAPIKey  string `yaml:"nasa_api_key"`  // NASA_API_KEY, default "DEMO_KEY"
	NASABaseURL string `yaml:"nasa_base_url"` // NASA_BASE_URL, default "https://api.nasa.gov"

	// National Weather Service. NWS rejects requests without a User-Agent.
	WeatherBaseURL   string `yaml:"weather_base_url"`   // WEATHER_BASE_URL, default "https://api.weather.gov"
	WeatherUserAgent string `yaml:"weather_user_agent"` // WEATHER_USER_AGENT

	// LLM
	LLMProvider     string `yaml:"llm_provider"`      // LLM_PROVIDER, default "ollama"
	OllamaBaseURL   string `yaml:"ollama_base_url"`   // OLLAMA_BASE_URL, default "http://localhost:11434"
	OllamaChatModel string `yaml:"ollama_chat_model"` // OLLAMA_CHAT_MODEL, default "llama3.2:3b"

	// Storage
	DBPath string `yaml:"db_path"` // ORRERY_DB, default "orrery.db"
}

const (
	envKeyConfigFile       = "ORRERY_CONFIG"
	envKeyNASAAPIKey       = "NASA_API_KEY"
	envKeyNASABaseURL      = "NASA_BASE_URL"
	envKeyWeatherBaseURL   = "WEATHER_BASE_URL"
	envKeyWeatherUserAgent = "WEATHER_USER_AGENT"
	envKeyLLMProvider      = "LLM_PROVIDER"
	envKeyOllamaBaseURL    = "OLLAMA_BASE_URL"
	envKeyOllamaChatModel  = "OLLAMA_CHAT_MODEL"
	envKeyDBPath           = "ORRERY_DB"
)

// defaults returns the built-in configuration.
// DEMO_KEY is NASA's public rate-limited key, enough for local use.
func defaults() Config {
	return Config{
		NASAAPIKey:       "DEMO_KEY",
		NASABaseURL:      "https://api.nasa.gov",
		WeatherBaseURL:   "https://api.weather.gov",
		WeatherUserAgent: "orrery/1.0 (github.com/orrery-labs/orrery)",
		LLMProvider:      "ollama",
		OllamaBaseURL:    "http://localhost:11434",
		OllamaChatModel:  "llama3.2:3b",
		DBPath:           "orrery.db",
	}
}

// Load builds the effective configuration: defaults, then the YAML file
// named by ORRERY_CONFIG (if any), then environment variables.
// A missing or malformed config file is an error: a path was given, so
// silently ignoring it would hide a deployment mistake.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv(envKeyConfigFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overrides individual fields from environment variables.
func applyEnv(cfg *Config) {
	cfg.NASAAPIKey = envOr(envKeyNASAAPIKey, cfg.NASAAPIKey)
	cfg.NASABaseURL = envOr(envKeyNASABaseURL, cfg.NASABaseURL)
	cfg.WeatherBaseURL = envOr(envKeyWeatherBaseURL, cfg.WeatherBaseURL)
	cfg.WeatherUserAgent = envOr(envKeyWeatherUserAgent, cfg.WeatherUserAgent)
	cfg.LLMProvider = envOr(envKeyLLMProvider, cfg.LLMProvider)
	cfg.OllamaBaseURL = envOr(envKeyOllamaBaseURL, cfg.OllamaBaseURL)
	cfg.OllamaChatModel = envOr(envKeyOllamaChatModel, cfg.OllamaChatModel)
	cfg.DBPath = envOr(envKeyDBPath, cfg.DBPath)
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
