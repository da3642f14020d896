package net

import (
	"context"
	"time"

	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-msgio"
	"github.com/mosaicnetworks/gossipnet/src/common"
	"github.com/mosaicnetworks/gossipnet/src/peers"
)

/*******************************************************************************
One-way messaging

Each direct message travels on its own stream, as a single varint length
prefixed frame. The receiver never answers: once the frame is written and the
stream closed, the sender reports a OneWayResponse which is only an
acknowledgement.
*******************************************************************************/

// SendOneWay implements the Swarm interface. Messages are handed to a
// per-destination outbox so that a slow peer does not hold up the others, and
// messages to the same peer keep their order.
func (s *Libp2pSwarm) SendOneWay(msg *OneWayMessage) {
	pid := msg.Dest.PeerID()

	s.mu.Lock()
	q, ok := s.outboxes[pid]
	if !ok && !s.isClosing() {
		q = common.NewQueue[*OneWayMessage]()
		s.outboxes[pid] = q
		s.goFunc(func() { s.runOutbox(pid, q) })
	}
	s.mu.Unlock()

	if q == nil {
		s.pump.push(OneWayOutboundFailure{Peer: msg.Dest, Error: ErrSwarmClosed})
		return
	}

	if err := q.Push(msg); err != nil {
		s.pump.push(OneWayOutboundFailure{Peer: msg.Dest, Error: err})
	}
}

func (s *Libp2pSwarm) runOutbox(pid peer.ID, q *common.Queue[*OneWayMessage]) {
	for {
		select {
		case <-q.Ready():
		case <-s.ctx.Done():
			return
		}

		for {
			msg, ok := q.Pop()
			if !ok {
				break
			}
			s.sendOneWay(pid, msg)
		}

		if q.Drained() {
			return
		}
	}
}

func (s *Libp2pSwarm) sendOneWay(pid peer.ID, msg *OneWayMessage) {
	ctx, cancel := context.WithTimeout(s.ctx, s.conf.ConnectionSetupTimeout)
	defer cancel()

	str, err := s.host.NewStream(ctx, pid, s.oneWayProtocol)
	if err != nil {
		s.pump.push(OneWayOutboundFailure{Peer: msg.Dest, Error: err})
		return
	}

	_ = str.SetWriteDeadline(time.Now().Add(s.conf.ConnectionSetupTimeout))

	w := msgio.NewVarintWriter(str)
	if err := w.WriteMsg(msg.Payload); err != nil {
		str.Reset()
		s.pump.push(OneWayOutboundFailure{Peer: msg.Dest, Error: err})
		return
	}

	if err := str.Close(); err != nil {
		s.pump.push(OneWayOutboundFailure{Peer: msg.Dest, Error: err})
		return
	}

	s.pump.push(OneWayResponse{Peer: msg.Dest})
}

func (s *Libp2pSwarm) handleOneWayStream(str network.Stream) {
	from := peers.NodeID(str.Conn().RemotePeer())

	_ = str.SetReadDeadline(time.Now().Add(s.conf.ConnectionSetupTimeout))

	r := msgio.NewVarintReaderSize(str, int(s.conf.MaxOneWayMessageSize))

	data, err := r.ReadMsg()
	if err != nil {
		str.Reset()
		s.pump.push(OneWayInboundFailure{Peer: from, Error: err})
		return
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	r.ReleaseMsg(data)

	str.Close()

	s.pump.push(OneWayRequest{Peer: from, Data: buf})
}

/*******************************************************************************
Gossip
*******************************************************************************/

// Gossip implements the Swarm interface. Publishing happens on a separate
// goroutine, in the order messages were submitted.
func (s *Libp2pSwarm) Gossip(msg *GossipMessage) {
	if err := s.publishQueue.Push(msg); err != nil {
		s.logger.WithError(err).Debug("Dropping gossip message")
	}
}

func (s *Libp2pSwarm) publishLoop() {
	for {
		select {
		case <-s.publishQueue.Ready():
		case <-s.ctx.Done():
			return
		}

		for {
			msg, ok := s.publishQueue.Pop()
			if !ok {
				break
			}
			if err := s.topic.Publish(s.ctx, msg.Payload); err != nil {
				s.logger.WithError(err).Warn("Failed to publish gossip message")
			}
		}

		if s.publishQueue.Drained() {
			return
		}
	}
}

func (s *Libp2pSwarm) gossipLoop() {
	for {
		m, err := s.sub.Next(s.ctx)
		if err != nil {
			return
		}

		if m.Local || m.ReceivedFrom == s.host.ID() {
			continue
		}

		s.pump.push(GossipReceived{
			PropagationSource: peers.NodeID(m.ReceivedFrom),
			MessageID:         m.ID,
			Source:            peers.NodeID(m.GetFrom()),
			Data:              m.Data,
		})
	}
}

func (s *Libp2pSwarm) topicEventsLoop() {
	for {
		pe, err := s.topicEvents.NextPeerEvent(s.ctx)
		if err != nil {
			return
		}

		switch pe.Type {
		case pubsub.PeerJoin:
			s.pump.push(GossipSubscribed{Peer: peers.NodeID(pe.Peer)})
		case pubsub.PeerLeave:
			s.pump.push(GossipUnsubscribed{Peer: peers.NodeID(pe.Peer)})
		}
	}
}
