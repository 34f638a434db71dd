package shared

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// Config is the process configuration. Every field comes from the
// environment; only OTLPEndpoint is optional.
type Config struct {
	DBPath string
	Host   string
	Port   int
	Debug  bool
	// OTLPEndpoint is OTEL_EXPORTER_OTLP_ENDPOINT; empty disables OTLP export.
	OTLPEndpoint string
}

var requiredEnv = []string{"DB_PATH", "HOST", "PORT", "DEBUG"}

func LoadConfig() (*Config, error) {
	var missing []string
	for _, key := range requiredEnv {
		if _, ok := os.LookupEnv(key); !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	c := Config{
		DBPath: strings.TrimSpace(os.Getenv("DB_PATH")),
		Host:   strings.TrimSpace(os.Getenv("HOST")),
	}
	if c.DBPath == "" {
		return nil, errors.New("DB_PATH must not be empty")
	}

	port, err := strconv.Atoi(strings.TrimSpace(os.Getenv("PORT")))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d out of range", port)
	}
	c.Port = port

	debug, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(os.Getenv("DEBUG"))))
	if err != nil {
		return nil, fmt.Errorf("invalid DEBUG: %w", err)
	}
	c.Debug = debug
	c.OTLPEndpoint = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))

	return &c, nil
}

// Addr is the listen address for http.Server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
