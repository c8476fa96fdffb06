// Package config handles TOML configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	toml "github.com/pelletier/go-toml/v2"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/demo-relay/config.toml",
	"configs/config.toml",
}

// ReservedPaths are served outside the demo prefix and must not be shadowed by it.
var ReservedPaths = []string{"/healthz", "/relay/status"}

// AddressingMode selects how the outbound call reaches the upstream.
type AddressingMode string

const (
	// ModeDirect dials the upstream host and sends an origin-form request.
	ModeDirect AddressingMode = "direct"
	// ModeForwardProxy dials the proxy and sends an absolute-form request.
	ModeForwardProxy AddressingMode = "forward-proxy"
)

// Determinism controls whether outbound failures are visible to the caller.
type Determinism string

const (
	// DeterminismRaw reports timeouts and errors with a distinct status and body.
	DeterminismRaw Determinism = "raw"
	// DeterminismFixed collapses every terminal outcome into the fixed success response.
	DeterminismFixed Determinism = "deterministic"
)

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config         string           `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host           string           `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port           int              `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	ProxyHost      string           `kong:"help='Forward proxy host (overrides config).',env='OUTBOUND_PROXY_HOST'"`
	ProxyPort      int              `kong:"help='Forward proxy port (overrides config).',env='OUTBOUND_PROXY_PORT'"`
	AddressingMode string           `kong:"help='Outbound addressing: direct|forward-proxy (overrides config).',env='ADDRESSING_MODE'"`
	Determinism    string           `kong:"help='Response determinism: raw|deterministic (overrides config).',env='DETERMINISM'"`
	TimeoutMillis  int              `kong:"help='Outbound timeout in milliseconds (overrides config).',env='TIMEOUT_MILLIS'"`
	LogLevel       string           `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
	Version        kong.VersionFlag `kong:"help='Print version and exit.'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Relay    RelayConfig    `toml:"relay"`
	Upstream UpstreamConfig `toml:"upstream"`
	Proxy    ProxyConfig    `toml:"proxy"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host      string          `toml:"host"`
	Port      int             `toml:"port"` // 0 means "use default" (8082); TOML cannot distinguish 0 from unset
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// RelayConfig holds the behavior of the demo route.
type RelayConfig struct {
	PathPrefix     string         `toml:"path_prefix"`
	AddressingMode AddressingMode `toml:"addressing_mode"`
	Determinism    Determinism    `toml:"determinism"`
	SuccessBody    string         `toml:"success_body"`
	TimeoutMillis  int            `toml:"timeout_millis"`
}

// UpstreamConfig identifies the real upstream the relay calls.
type UpstreamConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	Path string `toml:"path"`
}

// ProxyConfig identifies the forward proxy used in forward-proxy mode.
type ProxyConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the TOML config file, applies CLI overrides, validates and fills defaults.
// An explicit path (via --config or CONFIG_PATH) must exist. Otherwise
// /etc/demo-relay/config.toml then configs/config.toml are tried, and when
// neither exists the built-in defaults are used.
func Load(cli *CLI) (*Config, error) {
	var cfg Config

	path := cli.Config
	if path == "" {
		path = findConfig()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.filePath = path
	}

	cfg.applyCLI(cli)
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.ProxyHost != "" {
		c.Proxy.Host = cli.ProxyHost
	}
	if cli.ProxyPort != 0 {
		c.Proxy.Port = cli.ProxyPort
	}
	if cli.AddressingMode != "" {
		c.Relay.AddressingMode = AddressingMode(cli.AddressingMode)
	}
	if cli.Determinism != "" {
		c.Relay.Determinism = Determinism(cli.Determinism)
	}
	if cli.TimeoutMillis != 0 {
		c.Relay.TimeoutMillis = cli.TimeoutMillis
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

// setDefaults fills zero-valued fields with sensible defaults.
// Integer fields treat zero as "unset", so port = 0 in the file yields the default.
// Negative values are left alone for validate to reject.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8082
	}
	if c.Relay.PathPrefix == "" {
		c.Relay.PathPrefix = "/api/demo"
	}
	if c.Relay.AddressingMode == "" {
		c.Relay.AddressingMode = ModeDirect
	}
	if c.Relay.Determinism == "" {
		c.Relay.Determinism = DeterminismRaw
	}
	if c.Relay.SuccessBody == "" {
		c.Relay.SuccessBody = "deterministic-node: ok\n"
	}
	if c.Relay.TimeoutMillis == 0 {
		c.Relay.TimeoutMillis = 2000
	}
	if c.Upstream.Host == "" {
		c.Upstream.Host = "worldtimeapi.org"
	}
	if c.Upstream.Port == 0 {
		c.Upstream.Port = 80
	}
	if c.Upstream.Path == "" {
		c.Upstream.Path = "/api/timezone/Etc/UTC"
	}
	if c.Proxy.Host == "" {
		c.Proxy.Host = "localhost"
	}
	if c.Proxy.Port == 0 {
		c.Proxy.Port = 9000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}

	switch c.Relay.AddressingMode {
	case ModeDirect, ModeForwardProxy:
	default:
		return fmt.Errorf("relay.addressing_mode must be one of: direct, forward-proxy; got %q", c.Relay.AddressingMode)
	}
	switch c.Relay.Determinism {
	case DeterminismRaw, DeterminismFixed:
	default:
		return fmt.Errorf("relay.determinism must be one of: raw, deterministic; got %q", c.Relay.Determinism)
	}
	if c.Relay.TimeoutMillis < 1 || c.Relay.TimeoutMillis > 60000 {
		return fmt.Errorf("relay.timeout_millis must be 1–60000; got %d", c.Relay.TimeoutMillis)
	}
	if err := validateRoute("relay.path_prefix", c.Relay.PathPrefix); err != nil {
		return err
	}
	if c.Relay.PathPrefix == "/" {
		return errors.New("relay.path_prefix must not be \"/\"; it would shadow every other route")
	}
	for _, reserved := range ReservedPaths {
		if overlaps(c.Relay.PathPrefix, reserved) {
			return fmt.Errorf("relay.path_prefix %q conflicts with reserved route %q", c.Relay.PathPrefix, reserved)
		}
	}

	if c.Upstream.Host == "" || strings.ContainsAny(c.Upstream.Host, "/ ") {
		return fmt.Errorf("upstream.host must be a bare host name; got %q", c.Upstream.Host)
	}
	if c.Upstream.Port < 1 || c.Upstream.Port > 65535 {
		return fmt.Errorf("upstream.port must be 1–65535; got %d", c.Upstream.Port)
	}
	if err := validateRoute("upstream.path", c.Upstream.Path); err != nil {
		return err
	}
	if c.Relay.AddressingMode == ModeForwardProxy {
		if c.Proxy.Host == "" || strings.ContainsAny(c.Proxy.Host, "/ ") {
			return fmt.Errorf("proxy.host must be a bare host name; got %q", c.Proxy.Host)
		}
		if c.Proxy.Port < 1 || c.Proxy.Port > 65535 {
			return fmt.Errorf("proxy.port must be 1–65535; got %d", c.Proxy.Port)
		}
	}

	// Log fields.
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled {
		p := c.Metrics.Path
		if err := validateRoute("metrics.path", p); err != nil {
			return err
		}
		for _, reserved := range append([]string{c.Relay.PathPrefix}, ReservedPaths...) {
			if overlaps(p, reserved) {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

func validateRoute(field, p string) error {
	if p == "" || p[0] != '/' {
		return fmt.Errorf("%s must start with '/'; got %q", field, p)
	}
	if strings.ContainsAny(p, "*:? ") {
		return fmt.Errorf("%s must be a literal path; got %q", field, p)
	}
	return nil
}

// overlaps reports whether one path is a string prefix of the other. The demo
// route matches by plain prefix, so "/health" would capture "/healthz".
func overlaps(a, b string) bool {
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Timeout returns the outbound call deadline.
func (c *RelayConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

// Addr returns the proxy address as host:port.
func (c *ProxyConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// WarnPermissions logs a warning if the config file is writable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o022 != 0 {
		logger.Warn("config file is writable by group/others; consider chmod 644",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
