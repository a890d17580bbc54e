package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Defaults applied when bridge_config.yaml omits a field or is absent.
const (
	DefaultPollIntervalSeconds = 60
	DefaultAPIPort             = 8080
	DefaultMQTTClientID        = "vesync-bridge"
	DefaultMQTTTopicPrefix     = "vesync/discovery"
)

// MQTTConfig holds the optional broker sink settings. An empty Broker
// disables the sink.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// BridgeConfig represents the bridge_config.yaml structure
type BridgeConfig struct {
	PollIntervalSeconds int        `yaml:"poll_interval_seconds"`
	APIPort             int        `yaml:"api_port"`
	ReadOnly            bool       `yaml:"read_only"`
	MQTT                MQTTConfig `yaml:"mqtt"`
}

// PollInterval returns the reconcile period as a duration.
func (c *BridgeConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// applyDefaults fills unset fields.
func (c *BridgeConfig) applyDefaults() {
	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = DefaultPollIntervalSeconds
	}
	if c.APIPort <= 0 {
		c.APIPort = DefaultAPIPort
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = DefaultMQTTClientID
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = DefaultMQTTTopicPrefix
	}
}

// Loader manages configuration file loading
type Loader struct {
	configDir    string
	logger       *zap.Logger
	bridgeConfig *BridgeConfig
}

// NewLoader creates a new configuration loader
func NewLoader(configDir string, logger *zap.Logger) *Loader {
	return &Loader{
		configDir: configDir,
		logger:    logger,
	}
}

// LoadAll loads all configuration files
func (l *Loader) LoadAll() error {
	l.logger.Info("Loading configuration files", zap.String("dir", l.configDir))

	if err := l.LoadBridgeConfig(); err != nil {
		return fmt.Errorf("failed to load bridge config: %w", err)
	}

	l.logger.Info("All configuration files loaded successfully")
	return nil
}

// LoadBridgeConfig loads the bridge_config.yaml file. A missing file
// is not an error; defaults apply.
func (l *Loader) LoadBridgeConfig() error {
	path := filepath.Join(l.configDir, "bridge_config.yaml")
	l.logger.Debug("Loading bridge config", zap.String("path", path))

	var config BridgeConfig
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		l.logger.Info("No bridge config found, using defaults", zap.String("path", path))
	case err != nil:
		return fmt.Errorf("failed to read bridge config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return fmt.Errorf("failed to parse bridge config: %w", err)
		}
	}

	config.applyDefaults()
	l.bridgeConfig = &config
	l.logger.Info("Bridge config loaded successfully",
		zap.Int("poll_interval_seconds", config.PollIntervalSeconds),
		zap.Int("api_port", config.APIPort),
		zap.Bool("mqtt_enabled", config.MQTT.Broker != ""))
	return nil
}

// GetBridgeConfig returns the loaded bridge configuration
func (l *Loader) GetBridgeConfig() *BridgeConfig {
	return l.bridgeConfig
}
