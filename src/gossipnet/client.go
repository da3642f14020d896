package gossipnet

import (
	"context"

	"github.com/mosaicnetworks/gossipnet/src/network"
	"github.com/mosaicnetworks/gossipnet/src/peers"
	"github.com/mosaicnetworks/gossipnet/src/reactor"
	"github.com/mosaicnetworks/gossipnet/src/service"
)

// The methods below are safe to call from any goroutine. Requests go through
// the API queue and are answered by the dispatch loop, so they block until Run
// handles them or ctx is done.

type statsRequest struct {
	responder *reactor.Responder[network.Stats]
}

// SendMessage sends msg directly to dest.
func (g *Gossipnet) SendMessage(ctx context.Context, dest peers.NodeID, msg Message) error {
	r := reactor.NewResponder[struct{}]()
	if err := g.Scheduler.Schedule(network.SendMessage[Message]{Dest: dest, Payload: msg, Responder: r}, reactor.API); err != nil {
		return err
	}
	_, err := r.Wait(ctx)
	return err
}

// Broadcast gossips msg to the whole network.
func (g *Gossipnet) Broadcast(ctx context.Context, msg Message) error {
	r := reactor.NewResponder[struct{}]()
	if err := g.Scheduler.Schedule(network.Broadcast[Message]{Payload: msg, Responder: r}, reactor.API); err != nil {
		return err
	}
	_, err := r.Wait(ctx)
	return err
}

// Gossip sends msg directly to count random peers not in exclude, and returns
// the peers selected.
func (g *Gossipnet) Gossip(ctx context.Context, msg Message, count int, exclude map[peers.NodeID]struct{}) (map[peers.NodeID]struct{}, error) {
	r := reactor.NewResponder[map[peers.NodeID]struct{}]()
	ev := network.Gossip[Message]{
		Payload:   msg,
		Count:     count,
		Exclude:   exclude,
		Responder: r,
	}
	if err := g.Scheduler.Schedule(ev, reactor.API); err != nil {
		return nil, err
	}
	return r.Wait(ctx)
}

// GetPeers returns the connected peers and their addresses.
func (g *Gossipnet) GetPeers(ctx context.Context) (map[peers.NodeID]string, error) {
	r := reactor.NewResponder[map[peers.NodeID]string]()
	if err := g.Scheduler.Schedule(network.GetPeers{Responder: r}, reactor.API); err != nil {
		return nil, err
	}
	return r.Wait(ctx)
}

// GetStats returns a snapshot of the network state.
func (g *Gossipnet) GetStats(ctx context.Context) (network.Stats, error) {
	r := reactor.NewResponder[network.Stats]()
	if err := g.Scheduler.Schedule(statsRequest{responder: r}, reactor.API); err != nil {
		return network.Stats{}, err
	}
	return r.Wait(ctx)
}

// RecentMessages returns the last messages received, oldest first.
func (g *Gossipnet) RecentMessages() []service.ReceivedMessage {
	g.recentMu.Lock()
	defer g.recentMu.Unlock()
	return append([]service.ReceivedMessage{}, g.recent...)
}

// serviceNode exposes a Gossipnet to the HTTP service, with IDs as strings and
// messages as text.
type serviceNode struct {
	g *Gossipnet
}

func (s *serviceNode) GetStats(ctx context.Context) (network.Stats, error) {
	return s.g.GetStats(ctx)
}

func (s *serviceNode) GetPeers(ctx context.Context) (map[string]string, error) {
	ps, err := s.g.GetPeers(ctx)
	if err != nil {
		return nil, err
	}
	res := make(map[string]string, len(ps))
	for id, addr := range ps {
		res[id.String()] = addr
	}
	return res, nil
}

func (s *serviceNode) SendText(ctx context.Context, dest string, text string) error {
	id, err := peers.ParseNodeID(dest)
	if err != nil {
		return err
	}
	return s.g.SendMessage(ctx, id, s.message(text))
}

func (s *serviceNode) BroadcastText(ctx context.Context, text string) error {
	return s.g.Broadcast(ctx, s.message(text))
}

func (s *serviceNode) GossipText(ctx context.Context, text string, count int) ([]string, error) {
	selected, err := s.g.Gossip(ctx, s.message(text), count, nil)
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, len(selected))
	for id := range selected {
		res = append(res, id.String())
	}
	return res, nil
}

func (s *serviceNode) RecentMessages() []service.ReceivedMessage {
	return s.g.RecentMessages()
}

func (s *serviceNode) message(text string) Message {
	return Message{From: s.g.Config.Moniker, Text: text}
}
