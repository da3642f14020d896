package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mosaicnetworks/gossipnet/src/network"
	"github.com/mosaicnetworks/gossipnet/src/telemetry"
	"github.com/sirupsen/logrus"
)

const requestTimeout = 10 * time.Second

// ReceivedMessage is a text message received by the node.
type ReceivedMessage struct {
	Sender string `json:"sender"`
	From   string `json:"from"`
	Text   string `json:"text"`
}

// Node is what the service exposes. Every method is safe for concurrent use.
type Node interface {
	GetStats(ctx context.Context) (network.Stats, error)
	GetPeers(ctx context.Context) (map[string]string, error)
	SendText(ctx context.Context, dest string, text string) error
	BroadcastText(ctx context.Context, text string) error
	GossipText(ctx context.Context, text string, count int) ([]string, error)
	RecentMessages() []ReceivedMessage
}

// TextRequest is the body of the POST endpoints.
type TextRequest struct {
	Text  string `json:"text"`
	Count int    `json:"count,omitempty"`
}

// Service is the HTTP API of a node.
type Service struct {
	bindAddress string
	node        Node
	metrics     *telemetry.Metrics
	logger      *logrus.Entry
	router      *mux.Router
	server      *http.Server
}

// NewService ...
func NewService(bindAddress string, n Node, metrics *telemetry.Metrics, logger *logrus.Entry) *Service {
	service := &Service{
		bindAddress: bindAddress,
		node:        n,
		metrics:     metrics,
		logger:      logger,
		router:      mux.NewRouter(),
	}

	service.registerHandlers()

	service.server = &http.Server{
		Addr:              bindAddress,
		Handler:           service.router,
		ReadHeaderTimeout: requestTimeout,
	}

	return service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering API handlers")
	s.router.Handle("/stats", s.makeHandler("stats", s.GetStats)).Methods(http.MethodGet)
	s.router.Handle("/peers", s.makeHandler("peers", s.GetPeers)).Methods(http.MethodGet)
	s.router.Handle("/messages", s.makeHandler("messages", s.GetMessages)).Methods(http.MethodGet)
	s.router.Handle("/broadcast", s.makeHandler("broadcast", s.PostBroadcast)).Methods(http.MethodPost)
	s.router.Handle("/send/{id}", s.makeHandler("send", s.PostSend)).Methods(http.MethodPost)
	s.router.Handle("/gossip", s.makeHandler("gossip", s.PostGossip)).Methods(http.MethodPost)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
}

func (s *Service) makeHandler(op string, fn func(http.ResponseWriter, *http.Request)) http.Handler {
	return s.metrics.Instrument(op, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}))
}

// Handler returns the router serving the API.
func (s *Service) Handler() http.Handler {
	return s.router
}

// Serve listens on the bind address. This is a blocking call which returns
// once Shutdown is called.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving API")

	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error(err)
	}
}

// Shutdown gracefully stops the server.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// GetStats ...
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	stats, err := s.node.GetStats(ctx)
	if err != nil {
		s.fail(w, "Retrieving stats", err, http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, stats)
}

// GetPeers ...
func (s *Service) GetPeers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	peers, err := s.node.GetPeers(ctx)
	if err != nil {
		s.fail(w, "Retrieving peers", err, http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, peers)
}

// GetMessages ...
func (s *Service) GetMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.node.RecentMessages())
}

// PostBroadcast ...
func (s *Service) PostBroadcast(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.node.BroadcastText(ctx, req.Text); err != nil {
		s.fail(w, "Broadcasting", err, http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// PostSend ...
func (s *Service) PostSend(w http.ResponseWriter, r *http.Request) {
	dest := mux.Vars(r)["id"]

	req, ok := s.readRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.node.SendText(ctx, dest, req.Text); err != nil {
		s.fail(w, "Sending", err, http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// PostGossip ...
func (s *Service) PostGossip(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readRequest(w, r)
	if !ok {
		return
	}

	if req.Count <= 0 {
		http.Error(w, "count must be positive", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	selected, err := s.node.GossipText(ctx, req.Text, req.Count)
	if err != nil {
		s.fail(w, "Gossiping", err, http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, selected)
}

func (s *Service) readRequest(w http.ResponseWriter, r *http.Request) (TextRequest, bool) {
	var req TextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, "Decoding request", err, http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (s *Service) fail(w http.ResponseWriter, what string, err error, status int) {
	s.logger.WithError(err).Error(what)
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
