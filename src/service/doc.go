// Package service implements the HTTP API of a gossipnet node.
//
// Endpoints:
//
//	GET  /stats         network statistics
//	GET  /peers         connected peers and their addresses
//	GET  /messages      recently received messages
//	GET  /metrics       Prometheus metrics
//	POST /broadcast     {"text": "..."} gossip a message to the whole network
//	POST /send/{id}     {"text": "..."} send a message directly to a peer
//	POST /gossip        {"text": "...", "count": n} send to n random peers
package service
