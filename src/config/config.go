package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/mosaicnetworks/gossipnet/src/common"
	"github.com/mosaicnetworks/gossipnet/src/version"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the node's
	// private key
	DefaultKeyfile = "priv_key"

	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database of discovered peers
	DefaultBadgerFile = "badger_db"
)

// Default configuration values.
const (
	DefaultLogLevel               = "debug"
	DefaultBindAddr               = "127.0.0.1:34553"
	DefaultServiceAddr            = "127.0.0.1:8000"
	DefaultConnectionSetupTimeout = 10 * time.Second
	DefaultMaxOneWayMessageSize   = 4 * 1024 * 1024
	DefaultMaxGossipMessageSize   = 4 * 1024 * 1024
	DefaultConnLowWater           = 64
	DefaultConnHighWater          = 256
	DefaultChainName              = "gossipnet"
	DefaultStore                  = false
)

// DefaultKnownAddresses is the bootstrap list used when nothing else is
// configured: the node's own default bind address, which makes a node started
// with the defaults a bootstrap node.
var DefaultKnownAddresses = []string{DefaultBindAddr}

// Config contains all the configuration properties of a gossipnet node.
type Config struct {
	// DataDir is the top-level directory containing configuration and data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogToFile additionally writes info and debug logs to files in DataDir.
	LogToFile bool `mapstructure:"log-to-file"`

	// Moniker defines the friendly name of this node
	Moniker string `mapstructure:"moniker"`

	// BindAddr is the local address the node listens on for peer connections.
	// Both "ip:port" and multiaddr forms are accepted.
	BindAddr string `mapstructure:"listen"`

	// KnownAddresses are the bootstrap addresses dialed at startup. At least
	// one is required. To be dialable over libp2p an address must identify
	// the remote node with a /p2p/<id> suffix; an address without one is
	// recorded as unreachable right away. A node which lists its own listening
	// address here is a bootstrap node and tolerates being isolated.
	KnownAddresses []string `mapstructure:"known-addresses"`

	// ConnectionSetupTimeout bounds dialing, the security handshake and
	// multiplexer negotiation of a new connection.
	ConnectionSetupTimeout time.Duration `mapstructure:"timeout"`

	// MaxOneWayMessageSize is the maximum encoded size, in bytes, of a direct
	// message.
	MaxOneWayMessageSize uint32 `mapstructure:"max-one-way-message-size"`

	// MaxGossipMessageSize is the maximum encoded size, in bytes, of a gossip
	// message.
	MaxGossipMessageSize uint32 `mapstructure:"max-gossip-message-size"`

	// ConnLowWater and ConnHighWater are handed to the connection manager which
	// trims connections back to ConnLowWater once ConnHighWater is exceeded.
	ConnLowWater  int `mapstructure:"conn-low-water"`
	ConnHighWater int `mapstructure:"conn-high-water"`

	// ChainName namespaces the wire protocols so that nodes of different
	// networks do not talk to each other.
	ChainName string `mapstructure:"chain-name"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the optional HTTP service.
	ServiceAddr string `mapstructure:"service-listen"`

	// Store activates the persistent cache of discovered peers.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// Key is the private key identifying the node. When nil, a fresh Ed25519
	// key is generated for the session.
	Key crypto.PrivKey

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:                DefaultDataDir(),
		LogLevel:               DefaultLogLevel,
		BindAddr:               DefaultBindAddr,
		KnownAddresses:         append([]string{}, DefaultKnownAddresses...),
		ConnectionSetupTimeout: DefaultConnectionSetupTimeout,
		MaxOneWayMessageSize:   DefaultMaxOneWayMessageSize,
		MaxGossipMessageSize:   DefaultMaxGossipMessageSize,
		ConnLowWater:           DefaultConnLowWater,
		ConnHighWater:          DefaultConnHighWater,
		ChainName:              DefaultChainName,
		ServiceAddr:            DefaultServiceAddr,
		Store:                  DefaultStore,
		DatabaseDir:            DefaultDatabaseDir(),
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.NoService = true
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetLogger replaces the underlying logger.
func (c *Config) SetLogger(logger *logrus.Logger) {
	c.logger = logger
}

// SetDataDir sets the top-level directory, and updates the database directory
// if it is currently set to the default value. If the database directory is
// not currently the default, it means the user has explicitely set it to
// something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Keyfile returns the full path of the file containing the private key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// Chainspec returns the network description derived from the configuration.
func (c *Config) Chainspec() Chainspec {
	return Chainspec{
		Name:            c.ChainName,
		ProtocolVersion: version.ProtocolVersion,
	}
}

// Logger returns a formatted logrus Entry, with prefix set to "gossipnet".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
	}
	return c.logger.WithField("prefix", "gossipnet")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level config based
// on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Gossipnet")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Gossipnet")
		} else {
			return filepath.Join(home, ".gossipnet")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
