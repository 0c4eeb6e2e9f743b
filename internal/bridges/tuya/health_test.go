package tuya

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func newTestReporter(client *MockMQTTClient) *HealthReporter {
	return NewHealthReporter(HealthReporterConfig{
		BridgeID:  "tuya-bridge-test",
		Version:   "test",
		Interval:  time.Hour, // effectively disable the ticker
		Publisher: client,
		Stats: func() BridgeStatistics {
			return BridgeStatistics{StatusReceived: 5, CommandsExecuted: 2}
		},
	})
}

func lastHealth(t *testing.T, client *MockMQTTClient) HealthMessage {
	t.Helper()
	published := client.GetPublished()
	if len(published) == 0 {
		t.Fatal("no health message published")
	}
	last := published[len(published)-1]
	if last.Topic != "localtuya/health/bridge" {
		t.Fatalf("topic = %q, want localtuya/health/bridge", last.Topic)
	}
	if !last.Retained {
		t.Error("health message not retained")
	}

	var msg HealthMessage
	if err := json.Unmarshal(last.Payload, &msg); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	return msg
}

func TestHealthReporter_PublishNowHealthy(t *testing.T) {
	client := NewMockMQTTClient()
	h := newTestReporter(client)
	h.SetDeviceCount(3)

	if err := h.PublishNow(); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}

	msg := lastHealth(t, client)
	if msg.Status != HealthHealthy {
		t.Errorf("Status = %q, want healthy", msg.Status)
	}
	if msg.DevicesManaged != 3 {
		t.Errorf("DevicesManaged = %d, want 3", msg.DevicesManaged)
	}
	if msg.Statistics == nil || msg.Statistics.StatusReceived != 5 {
		t.Errorf("Statistics = %+v, want status_received 5", msg.Statistics)
	}
}

func TestHealthReporter_DegradedWhenDisconnected(t *testing.T) {
	client := NewMockMQTTClient()
	client.connected = false
	h := newTestReporter(client)

	if err := h.PublishNow(); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}

	msg := lastHealth(t, client)
	if msg.Status != HealthDegraded {
		t.Errorf("Status = %q, want degraded", msg.Status)
	}
	if msg.Reason == "" {
		t.Error("Reason empty for degraded status")
	}
}

func TestHealthReporter_StopPublishesStopping(t *testing.T) {
	client := NewMockMQTTClient()
	h := newTestReporter(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx)
	h.Stop()
	h.Stop() // safe to call twice

	msg := lastHealth(t, client)
	if msg.Status != HealthStopping {
		t.Errorf("final Status = %q, want stopping", msg.Status)
	}
}

func TestHealthReporter_LWT(t *testing.T) {
	h := newTestReporter(NewMockMQTTClient())

	if got := h.GetLWTTopic(); got != "localtuya/health/bridge" {
		t.Errorf("GetLWTTopic() = %q", got)
	}

	payload, err := h.GetLWTPayload()
	if err != nil {
		t.Fatalf("GetLWTPayload() error = %v", err)
	}
	var msg HealthMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("unmarshal LWT: %v", err)
	}
	if msg.Status != HealthOffline {
		t.Errorf("LWT Status = %q, want offline", msg.Status)
	}
}
