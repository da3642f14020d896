package network

import (
	"github.com/mosaicnetworks/gossipnet/src/common"
	"github.com/mosaicnetworks/gossipnet/src/net"
	"github.com/mosaicnetworks/gossipnet/src/peers"
	"github.com/mosaicnetworks/gossipnet/src/reactor"
	"github.com/mosaicnetworks/gossipnet/src/telemetry"
	"github.com/sirupsen/logrus"
)

// server owns the swarm. It runs on its own goroutine, forwarding swarm events
// to the event queue and queued messages to the swarm, until the shutdown
// channel is closed.
type server[P Payload] struct {
	swarm      net.Swarm
	oneWay     *common.Queue[*net.OneWayMessage]
	gossip     *common.Queue[*net.GossipMessage]
	shutdownCh <-chan struct{}
	queue      EventQueue
	cache      peers.PeerCache
	logger     *logrus.Entry
	metrics    *telemetry.Metrics
}

func (s *server[P]) run() {
	defer s.drain()

	events := s.swarm.Events()

	for {
		// shutdown takes precedence over everything else
		select {
		case <-s.shutdownCh:
			s.logger.Debug("Shutting down")
			return
		default:
		}

		select {
		case ev, ok := <-events:
			if !ok {
				s.logger.Debug("Swarm event stream closed")
				return
			}
			s.handleSwarmEvent(ev)

		case <-s.oneWay.Ready():
			msg, ok := s.oneWay.Pop()
			if !ok {
				if s.oneWay.Drained() {
					s.logger.Debug("Direct message queue closed")
					return
				}
				continue
			}
			s.swarm.SendOneWay(msg)
			s.metrics.MessagesSent.WithLabelValues("one_way").Inc()

		case <-s.gossip.Ready():
			msg, ok := s.gossip.Pop()
			if !ok {
				if s.gossip.Drained() {
					s.logger.Debug("Gossip queue closed")
					return
				}
				continue
			}
			s.swarm.Gossip(msg)
			s.metrics.MessagesSent.WithLabelValues("gossip").Inc()

		case <-s.shutdownCh:
			s.logger.Debug("Shutting down")
			return
		}
	}
}

// drain abandons whatever is still queued and releases the swarm.
func (s *server[P]) drain() {
	abandoned := s.oneWay.Len() + s.gossip.Len()

	s.oneWay.Close()
	s.gossip.Close()

	if abandoned > 0 {
		s.logger.WithField("messages", abandoned).Debug("Abandoning queued messages")
		s.metrics.MessagesDropped.WithLabelValues("shutdown").Add(float64(abandoned))
	}

	if err := s.cache.Close(); err != nil {
		s.logger.WithError(err).Warn("Closing peer cache")
	}

	if err := s.swarm.Close(); err != nil {
		s.logger.WithError(err).Warn("Closing swarm")
	}

	s.logger.Debug("Server stopped")
}

func (s *server[P]) schedule(ev interface{}, kind reactor.QueueKind) {
	if err := s.queue.Schedule(ev, kind); err != nil {
		s.logger.WithError(err).Debugf("Could not schedule %T", ev)
	}
}
