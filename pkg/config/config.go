package config

import (
	"fmt"
	"os"

	"github.com/r3e-network/neo-core/pkg/config/netmode"
	"gopkg.in/yaml.v3"
)

const userAgentFormat = "/NEO-CORE:%s/"

// Version is the version of the node, set at build time.
var Version string

// Config top level struct representing the config for the node.
type Config struct {
	ProtocolConfiguration    ProtocolConfiguration    `yaml:"ProtocolConfiguration"`
	ApplicationConfiguration ApplicationConfiguration `yaml:"ApplicationConfiguration"`
}

// GenerateUserAgent creates a user agent string based on the build time environment.
func (c Config) GenerateUserAgent() string {
	return fmt.Sprintf(userAgentFormat, Version)
}

// Load attempts to load the config from the given path for the given netMode.
func Load(path string, netMode netmode.Magic) (Config, error) {
	configPath := fmt.Sprintf("%s/protocol.%s.yml", path, netMode)
	return LoadFile(configPath)
}

// LoadFile loads a config from the given path and applies the defaults to
// the values it doesn't set.
func LoadFile(configPath string) (Config, error) {
	configData, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}

	config := Config{
		ApplicationConfiguration: ApplicationConfiguration{
			PingInterval: 30,
			PingTimeout:  90,
		},
	}

	if err = yaml.Unmarshal(configData, &config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	config.ProtocolConfiguration.SetDefaults()
	if err = config.ProtocolConfiguration.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}
