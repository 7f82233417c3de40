//go:build integration

package bus

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/orchestrator-core/internal/infrastructure/config"
)

// Integration tests for the message bus client.
// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/bus/...

func integrationConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "orchestrator-integration-test",
			TLS:      false,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestIntegration_ConnectDisconnect(t *testing.T) {
	c := New(integrationConfig())

	if err := c.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if !c.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}

	c.Disconnect()
	if c.IsConnected() {
		t.Error("IsConnected() = true after Disconnect()")
	}
}

func TestIntegration_PublishSubscribeRoundTrip(t *testing.T) {
	cfg := integrationConfig()
	cfg.Broker.ClientID = "orchestrator-int-roundtrip"

	c := New(cfg)
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer c.Disconnect()

	received := make(chan Message, 1)
	err := c.Subscribe("orchestrator/data/+", 1, func(msg Message) error {
		select {
		case received <- msg:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	payload := map[string]any{"value": 42.0}
	if err := c.Publish("orchestrator/data/int_test", payload, 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-received:
		var got map[string]any
		if err := json.Unmarshal(msg.Payload, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got["value"] != 42.0 {
			t.Errorf("value = %v, want 42", got["value"])
		}
		if _, ok := got["timestamp"]; !ok {
			t.Error("expected timestamp injected into published payload")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for round-trip message")
	}
}

func TestIntegration_ConnectionObservers(t *testing.T) {
	cfg := integrationConfig()
	cfg.Broker.ClientID = "orchestrator-int-observer"

	c := New(cfg)

	var mu sync.Mutex
	var events []bool
	c.AddConnectionObserver("test", func(connected bool) {
		mu.Lock()
		events = append(events, connected)
		mu.Unlock()
	})

	if err := c.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	// Observer fires via the async on-connect callback.
	deadline := time.Now().Add(3 * time.Second)
	for {
		mu.Lock()
		n := len(events)
		mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	c.Disconnect()

	mu.Lock()
	defer mu.Unlock()
	if len(events) == 0 {
		t.Fatal("observer never invoked")
	}
	if events[0] != true {
		t.Errorf("first event = %v, want true", events[0])
	}
	if events[len(events)-1] != false {
		t.Errorf("last event = %v, want false after Disconnect", events[len(events)-1])
	}
}
