package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func TestHubBroadcastsPredictions(t *testing.T) {
	hub := NewHub(zap.NewNop(), []string{"*"})
	go hub.Start()
	defer hub.Stop()

	server := httptest.NewServer(hub)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.PublishPrediction(PredictionMessage{SafetyScore: 40, TripsCompleted: 30, FatigueLevel: 6, RiskLevel: "HIGH"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if msg.Type != PredictionEvent {
		t.Fatalf("expected prediction message, got %s", msg.Type)
	}
	var event PredictionMessage
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		t.Fatalf("invalid event: %v", err)
	}
	if event.RiskLevel != "HIGH" {
		t.Fatalf("expected HIGH, got %s", event.RiskLevel)
	}
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	hub := NewHub(zap.NewNop(), []string{"https://fleet.example"})
	go hub.Start()
	defer hub.Stop()

	server := httptest.NewServer(hub)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", resp)
	}
}
