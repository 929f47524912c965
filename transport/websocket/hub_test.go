package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/kickroom/game/engine"
	"github.com/wricardo/kickroom/game/service"
)

func newTestClient(hub *Hub, topic string) *Client {
	return &Client{
		hub:   hub,
		topic: topic,
		send:  make(chan []byte, 256),
	}
}

func readMessage(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for message")
	}
	return Message{}
}

func waitForClients(t *testing.T, hub *Hub, topic string, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount(topic) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Expected %d clients on %q, got %d", want, topic, hub.ClientCount(topic))
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}
	if hub.topics == nil {
		t.Error("Hub topics map is nil")
	}
	if hub.register == nil || hub.unregister == nil {
		t.Error("Hub registration channels are nil")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "classic")

	hub.registerClient(client)

	if !hub.topics["classic"][client] {
		t.Error("Client was not registered in topic")
	}
	if hub.ClientCount("classic") != 1 {
		t.Errorf("Expected 1 client in topic, got %d", hub.ClientCount("classic"))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "classic")

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.topics["classic"]; exists {
		t.Error("Topic should have been cleaned up after last client unregistered")
	}
	if _, ok := <-client.send; ok {
		t.Error("Send channel should be closed")
	}

	// second unregister is a no-op
	hub.unregisterClient(client)
}

func TestHubMultipleClientsInTopic(t *testing.T) {
	hub := NewHub()
	client1 := newTestClient(hub, "classic")
	client2 := newTestClient(hub, "classic")

	hub.registerClient(client1)
	hub.registerClient(client2)
	if hub.ClientCount("classic") != 2 {
		t.Errorf("Expected 2 clients in topic, got %d", hub.ClientCount("classic"))
	}

	hub.unregisterClient(client1)
	if hub.ClientCount("classic") != 1 {
		t.Errorf("Expected 1 client remaining in topic, got %d", hub.ClientCount("classic"))
	}
	if !hub.topics["classic"][client2] {
		t.Error("Wrong client remained in topic")
	}
}

func TestHubRunEvents(t *testing.T) {
	hub := NewHub()
	hub.SetProgressInterval(0)

	puzzleClient := newTestClient(hub, "classic")
	allClient := newTestClient(hub, TopicAll)
	otherClient := newTestClient(hub, "other")
	hub.registerClient(puzzleClient)
	hub.registerClient(allClient)
	hub.registerClient(otherClient)

	run := &service.Run{ID: "run-1", PuzzleID: "classic", Mode: "shortest", Status: service.RunRunning}

	hub.SolveStarted(run)
	msg := readMessage(t, puzzleClient)
	if msg.Event != EventSolveStarted || msg.RunID != "run-1" || msg.Topic != "classic" {
		t.Errorf("Unexpected started message: %+v", msg)
	}
	msg = readMessage(t, allClient)
	if msg.Event != EventSolveStarted || msg.Topic != TopicAll {
		t.Errorf("Unexpected started message on all topic: %+v", msg)
	}

	hub.SolveProgress(run, engine.Progress{Mode: engine.ModeShortest, Round: 3, Frontier: 7, Visited: 42})
	msg = readMessage(t, puzzleClient)
	if msg.Event != EventProgress || msg.Progress == nil || msg.Progress.Visited != 42 {
		t.Errorf("Unexpected progress message: %+v", msg)
	}
	readMessage(t, allClient)

	done := *run
	done.Status = service.RunSolved
	done.Moves = []string{"up"}
	hub.SolveFinished(&done)
	msg = readMessage(t, puzzleClient)
	if msg.Event != EventSolveFinished || msg.Run == nil || msg.Run.Status != service.RunSolved {
		t.Errorf("Unexpected finished message: %+v", msg)
	}

	if len(otherClient.send) != 0 {
		t.Error("Client on another topic should receive nothing")
	}
}

func TestHubRunTopic(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, RunTopic("run-9"))
	hub.registerClient(client)

	hub.SolveStarted(&service.Run{ID: "run-8", PuzzleID: "classic"})
	hub.SolveStarted(&service.Run{ID: "run-9", PuzzleID: "classic"})

	msg := readMessage(t, client)
	if msg.RunID != "run-9" || msg.Topic != "run:run-9" {
		t.Errorf("Unexpected run topic message: %+v", msg)
	}
	if len(client.send) != 0 {
		t.Error("Run topic should only carry its own run")
	}
}

func TestHubThrottlesProgress(t *testing.T) {
	hub := NewHub()
	hub.SetProgressInterval(time.Hour)

	client := newTestClient(hub, "classic")
	hub.registerClient(client)

	run := &service.Run{ID: "run-2", PuzzleID: "classic"}
	for i := 1; i <= 10; i++ {
		hub.SolveProgress(run, engine.Progress{Round: i})
	}

	if got := len(client.send); got != 1 {
		t.Errorf("Expected 1 forwarded progress message, got %d", got)
	}

	hub.SolveFinished(run)
	if _, tracked := hub.lastProgress[run.ID]; tracked {
		t.Error("Finished run should stop being tracked")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := &Client{hub: hub, topic: "classic", send: make(chan []byte, 1)}
	hub.registerClient(slow)

	run := &service.Run{ID: "run-3", PuzzleID: "classic"}
	hub.SolveStarted(run)
	hub.SolveFinished(run)

	if hub.ClientCount("classic") != 0 {
		t.Error("Client with a full send buffer should be dropped")
	}
}

func TestWebSocketUpgrade(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("puzzle"))
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?puzzle=ws-test"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}

	waitForClients(t, hub, "ws-test", 1)

	conn.Close()
	waitForClients(t, hub, "ws-test", 0)
}

func TestWebSocketMessageReceive(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, TopicAll)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	waitForClients(t, hub, TopicAll, 1)

	now := time.Now()
	hub.SolveFinished(&service.Run{
		ID:         "run-ws",
		PuzzleID:   "msg-test",
		Status:     service.RunSolved,
		Moves:      []string{"left", "down"},
		MoveCount:  2,
		FinishedAt: &now,
	})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}

	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	if message.RunID != "run-ws" || message.Event != EventSolveFinished {
		t.Errorf("Unexpected message: %+v", message)
	}
	if message.Run == nil || message.Run.MoveCount != 2 {
		t.Error("Run not correctly received")
	}
}
