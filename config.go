package subflow

import (
	"fmt"
	"os"
	"time"

	"github.com/arloliu/subflow/internal/flow"
	"gopkg.in/yaml.v3"
)

// Default limits, matching the defaults of the NATS client libraries.
const (
	// DefaultMaxPendingMsgs is the default per-subscription pending message limit.
	DefaultMaxPendingMsgs = 65536

	// DefaultMaxPendingBytes is the default per-subscription pending byte limit.
	DefaultMaxPendingBytes = 65536 * 1024

	// DefaultSubChannelLength is the default pending capacity of a subscription.
	DefaultSubChannelLength = 65536

	// DefaultInboundChannelLength is the default capacity of the channel between
	// the NATS client and the inbound reader.
	DefaultInboundChannelLength = 65536

	// DefaultFlushTimeout is the default deadline of Flush.
	DefaultFlushTimeout = 10 * time.Second

	// DefaultErrorQueueLength is the default capacity of the async error queue.
	DefaultErrorQueueLength = 1024
)

// Config is the configuration for a Registry and the Conn that owns it.
//
// Pending limits of zero are replaced by defaults; negative limits mean
// unlimited. Duration fields accept standard Go duration strings like "5s".
type Config struct {
	// Name is the connection name reported to the server.
	// Default: "subflow-<uuid>"
	Name string `yaml:"name"`

	// MaxPendingMsgs is the initial message limit of every new subscription.
	// Subscriptions can override it with SetPendingLimits.
	MaxPendingMsgs int `yaml:"maxPendingMsgs"`

	// MaxPendingBytes is the initial byte limit of every new subscription.
	MaxPendingBytes int `yaml:"maxPendingBytes"`

	// SubChannelLength is the message capacity of every subscription's pending
	// buffer. It applies on top of the pending limits, whatever they are set
	// to, and is not reported by PendingLimits.
	// Default: 65536
	SubChannelLength int `yaml:"subChannelLength"`

	// InboundChannelLength is the capacity of the channel the NATS client fills
	// for the inbound reader. When it overflows the NATS client itself drops
	// messages and reports a slow consumer through the error handler.
	InboundChannelLength int `yaml:"inboundChannelLength"`

	// FlushTimeout bounds Flush, including the inbound barrier.
	FlushTimeout time.Duration `yaml:"flushTimeout"`

	// ErrorQueueLength is the capacity of the queue feeding the async error
	// handler. Errors raised while it is full are logged and discarded.
	ErrorQueueLength int `yaml:"errorQueueLength"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		MaxPendingMsgs:       DefaultMaxPendingMsgs,
		MaxPendingBytes:      DefaultMaxPendingBytes,
		SubChannelLength:     DefaultSubChannelLength,
		InboundChannelLength: DefaultInboundChannelLength,
		FlushTimeout:         DefaultFlushTimeout,
		ErrorQueueLength:     DefaultErrorQueueLength,
	}
}

// SetDefaults fills in missing configuration values with defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.MaxPendingMsgs == 0 {
		cfg.MaxPendingMsgs = defaults.MaxPendingMsgs
	}
	if cfg.MaxPendingBytes == 0 {
		cfg.MaxPendingBytes = defaults.MaxPendingBytes
	}
	if cfg.SubChannelLength == 0 {
		cfg.SubChannelLength = defaults.SubChannelLength
	}
	if cfg.InboundChannelLength == 0 {
		cfg.InboundChannelLength = defaults.InboundChannelLength
	}
	if cfg.FlushTimeout == 0 {
		cfg.FlushTimeout = defaults.FlushTimeout
	}
	if cfg.ErrorQueueLength == 0 {
		cfg.ErrorQueueLength = defaults.ErrorQueueLength
	}
	// Name is filled by Connect/NewConn so each connection gets its own.
}

// Validate checks configuration constraints.
//
// Rules:
//   - InboundChannelLength > 0
//   - FlushTimeout > 0
//   - ErrorQueueLength > 0
//   - SubChannelLength >= 0
//
// Returns:
//   - error: Validation error wrapping ErrInvalidConfig, nil if valid
func (cfg *Config) Validate() error {
	if cfg.InboundChannelLength <= 0 {
		return fmt.Errorf("%w: InboundChannelLength must be > 0, got %d", ErrInvalidConfig, cfg.InboundChannelLength)
	}
	if cfg.FlushTimeout <= 0 {
		return fmt.Errorf("%w: FlushTimeout must be > 0, got %v", ErrInvalidConfig, cfg.FlushTimeout)
	}
	if cfg.ErrorQueueLength <= 0 {
		return fmt.Errorf("%w: ErrorQueueLength must be > 0, got %d", ErrInvalidConfig, cfg.ErrorQueueLength)
	}
	if cfg.SubChannelLength < 0 {
		return fmt.Errorf("%w: SubChannelLength must be >= 0, got %d", ErrInvalidConfig, cfg.SubChannelLength)
	}

	return nil
}

// newFlowController returns the admission controller of a new subscription:
// the configured pending limits, capped by SubChannelLength.
func (cfg *Config) newFlowController() *flow.Controller {
	return flow.NewWithCapacity(cfg.MaxPendingMsgs, cfg.MaxPendingBytes, cfg.SubChannelLength)
}

// ParseConfig decodes a YAML document into a Config and applies defaults.
//
// Parameters:
//   - data: YAML document
//
// Returns:
//   - Config: Decoded configuration with defaults applied
//   - error: Decoding or validation error
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadConfig reads a YAML configuration file.
//
// Example:
//
//	# subflow.yaml
//	name: orders-consumer
//	maxPendingMsgs: 1000
//	maxPendingBytes: -1   # unlimited
//	flushTimeout: 2s
//
//	cfg, err := subflow.LoadConfig("subflow.yaml")
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	return ParseConfig(data)
}

// TestConfig returns a configuration suited to fast tests.
//
// Returns:
//   - Config: Configuration with short timeouts and small queues
func TestConfig() Config {
	cfg := DefaultConfig()
	cfg.FlushTimeout = 5 * time.Second
	cfg.ErrorQueueLength = 64

	return cfg
}
