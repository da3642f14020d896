// Package gossipnet implements a peer-to-peer messaging node.
//
// A Gossipnet node joins a network of peers over libp2p, starting from a list
// of known addresses, and lets its users send text messages directly to a
// peer, to a random selection of peers, or to everybody through gossip.
//
// Usage:
//
//	conf := config.NewDefaultConfig()
//	conf.KnownAddresses = []string{"/ip4/10.0.0.1/tcp/34553/p2p/12D3Koo..."}
//
//	node := gossipnet.NewGossipnet(conf)
//	if err := node.Init(); err != nil {
//		return err
//	}
//
//	// returns a fatal error if the node gets isolated
//	err := node.Run(ctx)
//
// The network only starts when the GOSSIPNET_ENABLE_P2P environment variable
// is set.
package gossipnet
