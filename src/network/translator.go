package network

import (
	"github.com/mosaicnetworks/gossipnet/src/net"
	"github.com/mosaicnetworks/gossipnet/src/peers"
	"github.com/mosaicnetworks/gossipnet/src/reactor"
	"github.com/sirupsen/logrus"
)

// handleSwarmEvent translates a swarm event into the events and
// announcements of the node. Internal transport chatter is only logged.
func (s *server[P]) handleSwarmEvent(ev net.SwarmEvent) {
	switch e := ev.(type) {
	case net.ConnectionEstablished:
		if e.Endpoint.IsDialer() {
			s.swarm.AddDiscoveredPeer(e.PeerID, []string{e.Endpoint.RemoteAddr})
		}
		s.schedule(ConnectionEstablished{
			PeerID:         e.PeerID,
			Endpoint:       e.Endpoint,
			NumEstablished: e.NumEstablished,
		}, reactor.Network)

	case net.ConnectionClosed:
		if e.NumEstablished == 0 {
			s.swarm.DiscoverPeers()
		}
		s.schedule(ConnectionClosed{
			PeerID:         e.PeerID,
			Endpoint:       e.Endpoint,
			NumEstablished: e.NumEstablished,
			Cause:          e.Cause,
		}, reactor.Network)

	case net.UnreachableAddr:
		s.schedule(UnreachableAddress{
			PeerID:            e.PeerID,
			Address:           e.Address,
			Error:             e.Error,
			AttemptsRemaining: e.AttemptsRemaining,
		}, reactor.Network)

	case net.UnknownPeerUnreachableAddr:
		s.schedule(UnknownPeerUnreachableAddress{
			Address: e.Address,
			Error:   e.Error,
		}, reactor.Network)

	case net.NewListenAddr:
		s.schedule(NewListenAddress{Address: e.Address}, reactor.Network)

	case net.ExpiredListenAddr:
		s.schedule(ExpiredListenAddress{Address: e.Address}, reactor.Network)

	case net.ListenerClosed:
		s.schedule(ListenerClosed{
			Addresses: e.Addresses,
			Reason:    e.Reason,
		}, reactor.Network)

	case net.ListenerError:
		s.schedule(ListenerError{Error: e.Error}, reactor.Network)

	case net.OneWayRequest:
		s.deliver(e.Peer, e.Data, "one_way")

	case net.OneWayResponse:
		// acknowledgement only

	case net.OneWayOutboundFailure:
		s.logger.WithField("peer", e.Peer.ShortString()).WithError(e.Error).Warn("Failed to send direct message")
		s.metrics.MessagesDropped.WithLabelValues("outbound_failure").Inc()

	case net.OneWayInboundFailure:
		s.logger.WithField("peer", e.Peer.ShortString()).WithError(e.Error).Warn("Failed to receive direct message")

	case net.GossipReceived:
		if e.Source == "" {
			s.logger.WithFields(logrus.Fields{
				"message_id":         e.MessageID,
				"propagation_source": e.PropagationSource.ShortString(),
			}).Warn("Received gossip message without source, dropping")
			s.metrics.MessagesDropped.WithLabelValues("no_source").Inc()
			return
		}
		s.deliver(e.Source, e.Data, "gossip")

	case net.GossipSubscribed:
		s.logger.WithField("peer", e.Peer.ShortString()).Debug("Peer subscribed to gossip")

	case net.GossipUnsubscribed:
		s.logger.WithField("peer", e.Peer.ShortString()).Debug("Peer unsubscribed from gossip")

	case net.IdentifyReceived:
		s.logger.WithFields(logrus.Fields{
			"peer":             e.Peer.ShortString(),
			"agent":            e.AgentVersion,
			"protocol_version": e.ProtocolVersion,
			"listen_addrs":     e.ListenAddrs,
		}).Debug("Identify received")
		s.swarm.AddDiscoveredPeer(e.Peer, e.ListenAddrs)
		if err := s.cache.Put(e.Peer, e.ListenAddrs); err != nil {
			s.logger.WithError(err).Warn("Failed to cache peer addresses")
		}

	case net.IdentifyError:
		s.logger.WithField("peer", e.Peer.ShortString()).WithError(e.Error).Warn("Identify failed")

	case net.KademliaEvent:
		s.logger.Debugf("Kademlia: %s", e.Description)

	case net.IncomingConnection, net.Dialing:
		s.logger.Debugf("%T", ev)

	default:
		s.logger.Debugf("Ignoring swarm event %T", ev)
	}
}

// deliver decodes a payload received from sender and announces it.
func (s *server[P]) deliver(sender peers.NodeID, data []byte, path string) {
	var payload P
	if err := net.Decode(data, &payload); err != nil {
		s.logger.WithFields(logrus.Fields{
			"sender": sender.ShortString(),
			"path":   path,
		}).WithError(err).Warn("Failed to decode message, dropping")
		s.metrics.MessagesDropped.WithLabelValues("decode").Inc()
		return
	}

	s.metrics.MessagesReceived.WithLabelValues(path).Inc()

	s.schedule(MessageReceived[P]{
		Sender:  sender,
		Payload: payload,
	}, reactor.NetworkIncoming)
}
