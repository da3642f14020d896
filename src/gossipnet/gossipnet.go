package gossipnet

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/mosaicnetworks/gossipnet/src/config"
	"github.com/mosaicnetworks/gossipnet/src/crypto/keys"
	"github.com/mosaicnetworks/gossipnet/src/net"
	"github.com/mosaicnetworks/gossipnet/src/network"
	"github.com/mosaicnetworks/gossipnet/src/peers"
	"github.com/mosaicnetworks/gossipnet/src/reactor"
	"github.com/mosaicnetworks/gossipnet/src/service"
	"github.com/mosaicnetworks/gossipnet/src/telemetry"
	"github.com/mosaicnetworks/gossipnet/src/version"
	"github.com/sirupsen/logrus"
)

// recentMessagesSize is the number of received messages kept for the API.
const recentMessagesSize = 100

// Gossipnet is a node. It wires the network, the event queue, the peer cache
// and the HTTP service together, and dispatches events one at a time.
type Gossipnet struct {
	Config    *config.Config
	Network   *network.Network[Message]
	Scheduler *reactor.Scheduler
	Cache     peers.PeerCache
	Service   *service.Service
	Metrics   *telemetry.Metrics

	// SwarmFactory builds the transport. It defaults to libp2p.
	SwarmFactory net.SwarmFactory

	// OnMessage, when set, is called from the dispatch loop for every message
	// received.
	OnMessage func(sender peers.NodeID, msg Message)

	logger *logrus.Entry
	rng    *rand.Rand

	recentMu sync.Mutex
	recent   []service.ReceivedMessage

	shutdownOnce sync.Once
}

// NewGossipnet ...
func NewGossipnet(conf *config.Config) *Gossipnet {
	return &Gossipnet{
		Config:       conf,
		SwarmFactory: net.Libp2pFactory,
	}
}

// Init prepares the node. The network starts listening and dialing here.
func (g *Gossipnet) Init() error {
	g.logger = g.Config.Logger()
	g.rng = network.NewRand()

	g.logger.WithFields(logrus.Fields{
		"version": version.Version,
		"moniker": g.Config.Moniker,
	}).Debug("Initializing gossipnet")

	if err := g.initKey(); err != nil {
		return err
	}

	g.Metrics = telemetry.NewMetrics()
	g.Metrics.SetBuildInfo(version.Version, version.GitCommit)

	g.Scheduler = reactor.NewScheduler()

	if err := g.initCache(); err != nil {
		return err
	}

	if err := g.initNetwork(); err != nil {
		return err
	}

	g.initService()

	return nil
}

func (g *Gossipnet) initKey() error {
	if g.Config.Key != nil {
		return nil
	}

	keyfile := keys.NewSimpleKeyfile(g.Config.Keyfile())
	if !keyfile.Exists() {
		g.logger.WithField("keyfile", g.Config.Keyfile()).Info("No key file, using a session key")
		return nil
	}

	key, err := keyfile.ReadKey()
	if err != nil {
		return err
	}

	g.Config.Key = key

	return nil
}

func (g *Gossipnet) initCache() error {
	if !g.Config.Store {
		g.Cache = peers.NewInmemPeerCache()
		g.logger.Debug("Created new in-mem peer cache")
		return nil
	}

	g.logger.WithField("path", g.Config.DatabaseDir).Debug("Attempting to load or create peer cache")

	cache, err := peers.NewBadgerPeerCache(g.Config.DatabaseDir, g.logger)
	if err != nil {
		return err
	}
	g.Cache = cache

	return nil
}

func (g *Gossipnet) initNetwork() error {
	n, err := network.New[Message](
		g.Config,
		g.Config.Chainspec(),
		g.Scheduler,
		g.SwarmFactory,
		g.Cache,
		g.Metrics,
	)
	if err != nil {
		g.Cache.Close()
		return err
	}

	g.Network = n

	g.logger.WithField("id", n.OurID().String()).Info("Node ID")

	return nil
}

func (g *Gossipnet) initService() {
	if g.Config.NoService {
		return
	}
	g.Service = service.NewService(g.Config.ServiceAddr, &serviceNode{g}, g.Metrics, g.logger.WithField("component", "service"))
}

// Run dispatches events until ctx is done, Shutdown is called or a fatal
// error occurs. The fatal error is returned; the node is shut down in every
// case.
func (g *Gossipnet) Run(ctx context.Context) error {
	if g.Service != nil {
		go g.Service.Serve()
	}

	defer g.Shutdown()

	for {
		item, kind, err := g.Scheduler.Pop(ctx)
		if err != nil {
			if errors.Is(err, reactor.ErrSchedulerClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := g.dispatch(item, kind); err != nil {
			g.logger.WithError(err).Error("Halting")
			return err
		}
	}
}

func (g *Gossipnet) dispatch(item interface{}, kind reactor.QueueKind) error {
	switch ev := item.(type) {
	case network.Event:
		return g.Network.HandleEvent(g.rng, ev)
	case network.NewPeer:
		g.logger.WithField("peer", ev.ID.ShortString()).Info("New peer")
	case network.MessageReceived[Message]:
		g.logger.WithFields(logrus.Fields{
			"sender":  ev.Sender.ShortString(),
			"message": ev.Payload.String(),
		}).Debug("Message received")
		g.record(ev.Sender, ev.Payload)
		if g.OnMessage != nil {
			g.OnMessage(ev.Sender, ev.Payload)
		}
	case statsRequest:
		ev.responder.Respond(g.Network.Stats())
	default:
		g.logger.WithField("kind", kind).Warnf("Unexpected event %T", item)
	}

	return nil
}

func (g *Gossipnet) record(sender peers.NodeID, msg Message) {
	g.recentMu.Lock()
	defer g.recentMu.Unlock()

	g.recent = append(g.recent, service.ReceivedMessage{
		Sender: sender.String(),
		From:   msg.From,
		Text:   msg.Text,
	})
	if len(g.recent) > recentMessagesSize {
		g.recent = g.recent[len(g.recent)-recentMessagesSize:]
	}
}

// Shutdown stops the node. It is safe to call several times, and from any
// goroutine.
func (g *Gossipnet) Shutdown() {
	g.shutdownOnce.Do(func() {
		g.logger.Debug("Shutting down")

		g.Scheduler.Close()

		if g.Network != nil {
			g.Network.Finalize()
		}

		if g.Service != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := g.Service.Shutdown(ctx); err != nil {
				g.logger.WithError(err).Warn("Stopping service")
			}
		}
	})
}

// ID returns the ID of the node.
func (g *Gossipnet) ID() peers.NodeID {
	return g.Network.OurID()
}
