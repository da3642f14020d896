package net

import (
	"sync"

	"github.com/mosaicnetworks/gossipnet/src/common"
)

// eventPump merges events pushed from any goroutine into a single channel.
// Producers never block: events are buffered in an unbounded queue and a
// goroutine forwards them, in order, to the consumer.
type eventPump struct {
	queue    *common.Queue[SwarmEvent]
	out      chan SwarmEvent
	closeCh  chan struct{}
	closeOne sync.Once
	done     chan struct{}
}

func newEventPump() *eventPump {
	p := &eventPump{
		queue:   common.NewQueue[SwarmEvent](),
		out:     make(chan SwarmEvent),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *eventPump) push(ev SwarmEvent) {
	// fails only after close, when nobody listens anymore
	_ = p.queue.Push(ev)
}

func (p *eventPump) events() <-chan SwarmEvent {
	return p.out
}

func (p *eventPump) run() {
	defer close(p.done)
	defer close(p.out)

	for {
		select {
		case <-p.queue.Ready():
		case <-p.closeCh:
			return
		}

		for {
			ev, ok := p.queue.Pop()
			if !ok {
				break
			}
			select {
			case p.out <- ev:
			case <-p.closeCh:
				return
			}
		}
	}
}

// close stops the pump, dropping undelivered events, and closes the events
// channel.
func (p *eventPump) close() {
	p.closeOne.Do(func() {
		p.queue.Close()
		close(p.closeCh)
	})
	<-p.done
}
