package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/zde37/ringlookup/pkg/ring"
)

// Environment variables that override file values.
const (
	EnvM            = "RINGLOOKUP_M"
	EnvInputDir     = "RINGLOOKUP_INPUT_DIR"
	EnvInputPattern = "RINGLOOKUP_INPUT_PATTERN"
	EnvParticipants = "RINGLOOKUP_PARTICIPANTS"
	EnvTransport    = "RINGLOOKUP_TRANSPORT"
	EnvHost         = "RINGLOOKUP_HOST"
	EnvBasePort     = "RINGLOOKUP_BASE_PORT"
	EnvAuthToken    = "RINGLOOKUP_AUTH_TOKEN"
	EnvTraceAddr    = "RINGLOOKUP_TRACE_ADDR"
	EnvLogLevel     = "RINGLOOKUP_LOG_LEVEL"
	EnvLogFormat    = "RINGLOOKUP_LOG_FORMAT"
	EnvLogFile      = "RINGLOOKUP_LOG_FILE"
)

// Config holds all configuration for a simulation run
type Config struct {
	// Ring parameters
	M int `yaml:"m"` // Identifier space size in bits

	// Input files, one per participant: fmt.Sprintf(InputPattern, rank)
	InputDir     string `yaml:"inputDir"`
	InputPattern string `yaml:"inputPattern"`
	Participants int    `yaml:"participants"` // 0 discovers consecutive files from rank 0

	// Transport
	Transport string `yaml:"transport"` // local, grpc
	Host      string `yaml:"host"`
	BasePort  int    `yaml:"basePort"`  // rank r listens on BasePort+r, 0 picks free ports
	AuthToken string `yaml:"authToken"` // shared run token checked by every participant

	// Live trace websocket, empty disables it
	TraceAddr string `yaml:"traceAddr"`

	// Logging
	LogLevel  string `yaml:"logLevel"`  // trace, debug, info, warn, error
	LogFormat string `yaml:"logFormat"` // json, console
	LogFile   string `yaml:"logFile"`   // rotated log file, empty for stderr only
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		M:            4, // 16 slot ring
		InputDir:     ".",
		InputPattern: "in%d.txt",
		Participants: 0,
		Transport:    "local",
		Host:         "127.0.0.1",
		BasePort:     0,
		LogLevel:     "warn",
		LogFormat:    "console",
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// A malformed integer variable is an error.
func (c *Config) ApplyEnvOverrides() error {
	for _, o := range []struct {
		field *int
		env   string
	}{
		{&c.M, EnvM},
		{&c.Participants, EnvParticipants},
		{&c.BasePort, EnvBasePort},
	} {
		if err := overrideInt(o.field, o.env); err != nil {
			return err
		}
	}

	overrideString(&c.InputDir, EnvInputDir)
	overrideString(&c.InputPattern, EnvInputPattern)
	overrideString(&c.Transport, EnvTransport)
	overrideString(&c.Host, EnvHost)
	overrideString(&c.AuthToken, EnvAuthToken)
	overrideString(&c.TraceAddr, EnvTraceAddr)
	overrideString(&c.LogLevel, EnvLogLevel)
	overrideString(&c.LogFormat, EnvLogFormat)
	overrideString(&c.LogFile, EnvLogFile)
	return nil
}

func overrideString(field *string, env string) {
	if val := os.Getenv(env); val != "" {
		*field = val
	}
}

func overrideInt(field *int, env string) error {
	val := os.Getenv(env)
	if val == "" {
		return nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", env, val, err)
	}
	*field = i
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.M <= 0 || c.M > ring.MaxBits {
		return fmt.Errorf("M must be between 1 and %d, got %d", ring.MaxBits, c.M)
	}
	if c.InputPattern == "" {
		return fmt.Errorf("input pattern cannot be empty")
	}
	if c.Participants < 0 {
		return fmt.Errorf("participants cannot be negative, got %d", c.Participants)
	}
	switch c.Transport {
	case "local", "grpc":
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if c.BasePort < 0 || c.BasePort > 65535 {
		return fmt.Errorf("invalid base port: %d", c.BasePort)
	}
	if c.BasePort > 0 && c.Participants > 0 && c.BasePort+c.Participants-1 > 65535 {
		return fmt.Errorf("base port %d leaves no room for %d participants", c.BasePort, c.Participants)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
