// Package reactor provides the central event queue of a gossipnet node: a
// weighted multi-kind Scheduler that components push events into and that a
// single dispatcher drains, and the Responder used by request events to carry
// their reply.
package reactor
