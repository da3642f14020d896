package commands

import (
	"github.com/mosaicnetworks/gossipnet/src/config"
)

//CLIConfig contains configuration for the Run command
type CLIConfig struct {
	Gossipnet config.Config `mapstructure:",squash"`
	EnableP2P bool          `mapstructure:"enable-p2p"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Gossipnet: *config.NewDefaultConfig(),
		EnableP2P: true,
	}
}
