// Package config reads process configuration from the environment and an
// optional .env file, and holds the static chain environments.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvLogLevel    = "DELEGRAPH_LOG_LEVEL"
	EnvLogFormat   = "DELEGRAPH_LOG_FORMAT"
	EnvChainID     = "DELEGRAPH_CHAIN_ID"
	EnvDwell       = "DELEGRAPH_DWELL"
	EnvHTTPAddr    = "DELEGRAPH_HTTP_ADDR"
	EnvScenario    = "DELEGRAPH_SCENARIO"
	EnvCORSOrigins = "DELEGRAPH_CORS_ORIGINS"
)

// Defaults.
const (
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "console"
	DefaultDwell      = 1200 * time.Millisecond
	DefaultHTTPAddr   = ":8080"
	DefaultCORSOrigin = "http://localhost:3000"
)

// Config is the resolved process configuration.
type Config struct {
	LogLevel    string
	LogFormat   string
	ChainID     int64
	Dwell       time.Duration
	HTTPAddr    string
	Scenario    string
	CORSOrigins []string
}

// Chain returns the chain environment for c.ChainID.
func (c Config) Chain() Chain { return ForChain(c.ChainID) }

// Load reads .env from the working directory when present, then the
// environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not read .env file: %v", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults for unset values.
func FromEnv(getenv func(string) string) (Config, error) {
	c := Config{
		LogLevel:    orDefault(getenv(EnvLogLevel), DefaultLogLevel),
		LogFormat:   orDefault(getenv(EnvLogFormat), DefaultLogFormat),
		ChainID:     BaseSepoliaChainID,
		Dwell:       DefaultDwell,
		HTTPAddr:    orDefault(getenv(EnvHTTPAddr), DefaultHTTPAddr),
		Scenario:    strings.TrimSpace(getenv(EnvScenario)),
		CORSOrigins: splitList(orDefault(getenv(EnvCORSOrigins), DefaultCORSOrigin)),
	}

	if v := strings.TrimSpace(getenv(EnvChainID)); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", EnvChainID, v, err)
		}
		c.ChainID = id
	}
	if v := strings.TrimSpace(getenv(EnvDwell)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s %q: %w", EnvDwell, v, err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("invalid %s %q: must be positive", EnvDwell, v)
		}
		c.Dwell = d
	}
	return c, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
