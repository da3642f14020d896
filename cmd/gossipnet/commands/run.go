package commands

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mosaicnetworks/gossipnet/src/config"
	"github.com/mosaicnetworks/gossipnet/src/gossipnet"
	"github.com/mosaicnetworks/gossipnet/src/network"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

//NewRunCmd returns the command that starts a gossipnet node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runGossipnet,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runGossipnet(cmd *cobra.Command, args []string) error {
	logger := _config.Gossipnet.Logger()

	if _config.EnableP2P {
		if err := os.Setenv(network.EnableEnvVar, "1"); err != nil {
			return err
		}
	}

	engine := gossipnet.NewGossipnet(&_config.Gossipnet)

	if err := engine.Init(); err != nil {
		logger.Error("Cannot initialize engine:", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Run(ctx); err != nil {
		logger.WithError(err).Error("Node halted")
		return err
	}

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.Gossipnet.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Gossipnet.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().Bool("log-to-file", _config.Gossipnet.LogToFile, "Also write info and debug logs to files in datadir")
	cmd.Flags().String("moniker", _config.Gossipnet.Moniker, "Optional name")

	// Network
	cmd.Flags().Bool("enable-p2p", _config.EnableP2P, "Start the peer-to-peer networking layer")
	cmd.Flags().StringP("listen", "l", _config.Gossipnet.BindAddr, "Listen address (IP:Port or multiaddr)")
	cmd.Flags().StringSliceP("known-addresses", "k", _config.Gossipnet.KnownAddresses, "Bootstrap addresses, with a /p2p/<id> suffix")
	cmd.Flags().DurationP("timeout", "t", _config.Gossipnet.ConnectionSetupTimeout, "Connection setup timeout")
	cmd.Flags().Uint32("max-one-way-message-size", _config.Gossipnet.MaxOneWayMessageSize, "Max size in bytes of a direct message")
	cmd.Flags().Uint32("max-gossip-message-size", _config.Gossipnet.MaxGossipMessageSize, "Max size in bytes of a gossip message")
	cmd.Flags().Int("conn-low-water", _config.Gossipnet.ConnLowWater, "Connection manager low water mark")
	cmd.Flags().Int("conn-high-water", _config.Gossipnet.ConnHighWater, "Connection manager high water mark")
	cmd.Flags().String("chain-name", _config.Gossipnet.ChainName, "Network name used to namespace protocols")

	// Service
	cmd.Flags().Bool("no-service", _config.Gossipnet.NoService, "Disable HTTP service")
	cmd.Flags().StringP("service-listen", "s", _config.Gossipnet.ServiceAddr, "Listen IP:Port for HTTP service")

	// Store
	cmd.Flags().Bool("store", _config.Gossipnet.Store, "Persist discovered peers in badgerDB")
	cmd.Flags().String("db", _config.Gossipnet.DatabaseDir, "Database directory")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.Gossipnet.SetDataDir(_config.Gossipnet.DataDir)

	_config.Gossipnet.SetLogger(newLogger())

	logFields := logrus.Fields{
		"gossipnet.DataDir":                _config.Gossipnet.DataDir,
		"gossipnet.LogLevel":               _config.Gossipnet.LogLevel,
		"gossipnet.LogToFile":              _config.Gossipnet.LogToFile,
		"gossipnet.Moniker":                _config.Gossipnet.Moniker,
		"gossipnet.BindAddr":               _config.Gossipnet.BindAddr,
		"gossipnet.KnownAddresses":         _config.Gossipnet.KnownAddresses,
		"gossipnet.ConnectionSetupTimeout": _config.Gossipnet.ConnectionSetupTimeout,
		"gossipnet.MaxOneWayMessageSize":   _config.Gossipnet.MaxOneWayMessageSize,
		"gossipnet.MaxGossipMessageSize":   _config.Gossipnet.MaxGossipMessageSize,
		"gossipnet.ConnLowWater":           _config.Gossipnet.ConnLowWater,
		"gossipnet.ConnHighWater":          _config.Gossipnet.ConnHighWater,
		"gossipnet.ChainName":              _config.Gossipnet.ChainName,
		"gossipnet.NoService":              _config.Gossipnet.NoService,
		"gossipnet.Store":                  _config.Gossipnet.Store,
		"EnableP2P":                        _config.EnableP2P,
	}

	if !_config.Gossipnet.NoService {
		logFields["gossipnet.ServiceAddr"] = _config.Gossipnet.ServiceAddr
	}

	if _config.Gossipnet.Store {
		logFields["gossipnet.DatabaseDir"] = _config.Gossipnet.DatabaseDir
	}

	_config.Gossipnet.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/gossipnet.toml (.json, .yaml also work)
	viper.SetConfigName("gossipnet")
	viper.AddConfigPath(_config.Gossipnet.DataDir)

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Gossipnet.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Gossipnet.Logger().Debugf("No config file found in: %s", _config.Gossipnet.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.Level = config.LogLevel(_config.Gossipnet.LogLevel)
	logger.Formatter = new(prefixed.TextFormatter)

	if !_config.Gossipnet.LogToFile {
		return logger
	}

	if err := os.MkdirAll(_config.Gossipnet.DataDir, 0700); err != nil {
		logger.WithError(err).Info("Failed to create datadir, using default stderr")
		return logger
	}

	pathMap := lfshook.PathMap{}

	infoFile := filepath.Join(_config.Gossipnet.DataDir, "gossipnet_info.log")
	if f, err := os.OpenFile(infoFile, os.O_CREATE|os.O_WRONLY, 0666); err != nil {
		logger.Info("Failed to open gossipnet_info.log file, using default stderr")
	} else {
		f.Close()
		pathMap[logrus.InfoLevel] = infoFile
	}

	debugFile := filepath.Join(_config.Gossipnet.DataDir, "gossipnet_debug.log")
	if f, err := os.OpenFile(debugFile, os.O_CREATE|os.O_WRONLY, 0666); err != nil {
		logger.Info("Failed to open gossipnet_debug.log file, using default stderr")
	} else {
		f.Close()
		pathMap[logrus.DebugLevel] = debugFile
	}

	logger.Hooks.Add(lfshook.NewHook(
		pathMap,
		&logrus.TextFormatter{},
	))

	return logger
}
