package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mosaicnetworks/gossipnet/src/common"
	"github.com/mosaicnetworks/gossipnet/src/network"
	"github.com/mosaicnetworks/gossipnet/src/telemetry"
)

type fakeNode struct {
	sync.Mutex
	broadcasts []string
	sends      map[string][]string
}

func (f *fakeNode) GetStats(ctx context.Context) (network.Stats, error) {
	return network.Stats{ID: "me", Running: true, Peers: 2}, nil
}

func (f *fakeNode) GetPeers(ctx context.Context) (map[string]string, error) {
	return map[string]string{"alice": "/ip4/127.0.0.1/tcp/1"}, nil
}

func (f *fakeNode) SendText(ctx context.Context, dest string, text string) error {
	if dest == "nobody" {
		return errors.New("invalid peer ID")
	}
	f.Lock()
	defer f.Unlock()
	f.sends[dest] = append(f.sends[dest], text)
	return nil
}

func (f *fakeNode) BroadcastText(ctx context.Context, text string) error {
	f.Lock()
	defer f.Unlock()
	f.broadcasts = append(f.broadcasts, text)
	return nil
}

func (f *fakeNode) GossipText(ctx context.Context, text string, count int) ([]string, error) {
	return []string{"alice"}, nil
}

func (f *fakeNode) RecentMessages() []ReceivedMessage {
	return []ReceivedMessage{{Sender: "alice", From: "Alice", Text: "hi"}}
}

func newTestService(t *testing.T) (*httptest.Server, *fakeNode) {
	node := &fakeNode{sends: make(map[string][]string)}
	service := NewService("127.0.0.1:0", node, telemetry.NewMetrics(), common.NewTestEntry(t, "service"))

	server := httptest.NewServer(service.Handler())
	t.Cleanup(server.Close)

	return server, node
}

func TestGetEndpoints(t *testing.T) {
	server, _ := newTestService(t)

	resp, err := http.Get(server.URL + "/stats")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer resp.Body.Close()

	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("CORS header missing")
	}

	var stats network.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("err: %v", err)
	}
	if stats.ID != "me" || stats.Peers != 2 {
		t.Fatalf("wrong stats %v", stats)
	}

	resp2, err := http.Get(server.URL + "/peers")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer resp2.Body.Close()

	var peers map[string]string
	if err := json.NewDecoder(resp2.Body).Decode(&peers); err != nil {
		t.Fatalf("err: %v", err)
	}
	if peers["alice"] != "/ip4/127.0.0.1/tcp/1" {
		t.Fatalf("wrong peers %v", peers)
	}

	resp3, err := http.Get(server.URL + "/messages")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer resp3.Body.Close()

	var msgs []ReceivedMessage
	if err := json.NewDecoder(resp3.Body).Decode(&msgs); err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text != "hi" {
		t.Fatalf("wrong messages %v", msgs)
	}
}

func TestPostEndpoints(t *testing.T) {
	server, node := newTestService(t)

	resp, err := http.Post(server.URL+"/broadcast", "application/json", strings.NewReader(`{"text":"hello all"}`))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status should be 202, not %d", resp.StatusCode)
	}

	resp, err = http.Post(server.URL+"/send/alice", "application/json", strings.NewReader(`{"text":"hello alice"}`))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status should be 202, not %d", resp.StatusCode)
	}

	resp, err = http.Post(server.URL+"/send/nobody", "application/json", strings.NewReader(`{"text":"hello"}`))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status should be 400, not %d", resp.StatusCode)
	}

	resp, err = http.Post(server.URL+"/gossip", "application/json", strings.NewReader(`{"text":"psst"}`))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("gossip without count should be rejected, got %d", resp.StatusCode)
	}

	resp, err = http.Post(server.URL+"/gossip", "application/json", strings.NewReader(`{"text":"psst","count":1}`))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer resp.Body.Close()
	var selected []string
	if err := json.NewDecoder(resp.Body).Decode(&selected); err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(selected) != 1 {
		t.Fatalf("wrong selection %v", selected)
	}

	node.Lock()
	defer node.Unlock()
	if len(node.broadcasts) != 1 || node.broadcasts[0] != "hello all" {
		t.Fatalf("wrong broadcasts %v", node.broadcasts)
	}
	if len(node.sends["alice"]) != 1 {
		t.Fatalf("wrong sends %v", node.sends)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := newTestService(t)

	resp, err := http.Get(server.URL + "/stats")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer resp.Body.Close()

	buf := new(strings.Builder)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		t.Fatalf("err: %v", err)
	}
	if !strings.Contains(buf.String(), `gossipnet_http_requests_total{op="stats",status="2xx"} 1`) {
		t.Fatalf("request to /stats should be counted")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server, _ := newTestService(t)

	resp, err := http.Get(server.URL + "/broadcast")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status should be 405, not %d", resp.StatusCode)
	}
}
