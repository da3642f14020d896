// Package config defines the configuration for a gossipnet node.
//
// Regardless of how a node is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package to store and forward configuration options. On top of these
// options, a node relies on a data directory, defined by Config.DataDir, where
// it looks for a few additional files:
//
//  priv_key // (optional) a plain text file containing the hex encoded private key (cf. gossipnet keygen).
//  gossipnet.toml // (optional) a config file, also accepted as .json or .yaml.
//  badger_db/ // the cache of discovered peers, when --store is set.
//
// Networking is only brought up when the GOSSIPNET_ENABLE_P2P environment
// variable is defined; otherwise the node runs without a transport.
package config
