package tuya

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/konewka17/localtuya/internal/infrastructure/mqtt"
	dp "github.com/konewka17/localtuya/internal/tuya"
)

// mqttTransport writes datapoints by publishing to the device's set topic.
// A companion process holding the local Tuya session (or the device's own
// MQTT firmware) consumes localtuya/dp/{device_id}/set and performs the
// actual protocol write.
type mqttTransport struct {
	deviceID string
	client   MQTTClient
	topics   mqtt.Topics
	qos      byte
}

// newMQTTTransport creates a transport bound to one device.
func newMQTTTransport(deviceID string, client MQTTClient, qos byte) *mqttTransport {
	return &mqttTransport{
		deviceID: deviceID,
		client:   client,
		qos:      qos,
	}
}

// SetDP publishes a single datapoint write.
// Payload shape matches the inbound status convention:
//
//	{"dps": {"127": "eyJkSW5mbyI6..."}}
func (t *mqttTransport) SetDP(ctx context.Context, value any, dpID dp.DPID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !t.client.IsConnected() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(map[string]map[dp.DPID]any{
		"dps": {dpID: value},
	})
	if err != nil {
		return fmt.Errorf("marshal dp write: %w", err)
	}

	topic := t.topics.DeviceDPSet(t.deviceID)
	if err := t.client.Publish(topic, payload, t.qos, false); err != nil {
		return fmt.Errorf("publish dp write: %w", err)
	}
	return nil
}

// compile-time interface check
var _ dp.Transport = (*mqttTransport)(nil)
