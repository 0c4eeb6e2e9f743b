package mqtt

import "fmt"

// Topic prefix for everything this gateway publishes or subscribes to.
//
// All topics use the flat scheme: localtuya/{category}/{device_id}. Device
// transports publish raw datapoint snapshots on the status topic and accept
// datapoint writes on the dp set topic; the bridge owns everything else.
const (
	// TopicPrefix is the base for all gateway topics.
	TopicPrefix = "localtuya"
)

// Topics provides builders for gateway MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("vacuum-lounge")
//	// Returns: "localtuya/state/vacuum-lounge"
type Topics struct{}

// =============================================================================
// Device Topics
// =============================================================================

// DeviceStatus returns the topic a device transport publishes raw datapoint
// snapshots on.
//
// Example: localtuya/status/vacuum-lounge
func (Topics) DeviceStatus(deviceID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefix, deviceID)
}

// DeviceState returns the topic the bridge publishes decoded semantic state
// on. Published retained so late subscribers get the current state.
//
// Example: localtuya/state/vacuum-lounge
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, deviceID)
}

// DeviceCommand returns the topic the bridge accepts semantic commands on.
//
// Example: localtuya/command/vacuum-lounge
func (Topics) DeviceCommand(deviceID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, deviceID)
}

// DeviceAck returns the topic the bridge publishes command acknowledgements
// on.
//
// Example: localtuya/ack/vacuum-lounge
func (Topics) DeviceAck(deviceID string) string {
	return fmt.Sprintf("%s/ack/%s", TopicPrefix, deviceID)
}

// DeviceDPSet returns the topic the bridge publishes raw datapoint writes
// on for the device transport to deliver.
//
// Example: localtuya/dp/vacuum-lounge/set
func (Topics) DeviceDPSet(deviceID string) string {
	return fmt.Sprintf("%s/dp/%s/set", TopicPrefix, deviceID)
}

// =============================================================================
// Gateway Topics
// =============================================================================

// BridgeHealth returns the retained topic for bridge health status.
//
// Example: localtuya/health/bridge
func (Topics) BridgeHealth() string {
	return fmt.Sprintf("%s/health/bridge", TopicPrefix)
}

// System returns the gateway availability topic, used for the LWT.
//
// Example: localtuya/system/status
func (Topics) System() string {
	return fmt.Sprintf("%s/system/status", TopicPrefix)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllDeviceStatus returns a pattern matching all raw datapoint snapshots.
//
// Pattern: localtuya/status/+
func (Topics) AllDeviceStatus() string {
	return fmt.Sprintf("%s/status/+", TopicPrefix)
}

// AllDeviceCommands returns a pattern matching all semantic commands.
//
// Pattern: localtuya/command/+
func (Topics) AllDeviceCommands() string {
	return fmt.Sprintf("%s/command/+", TopicPrefix)
}

// AllDeviceStates returns a pattern matching all decoded state topics.
//
// Pattern: localtuya/state/+
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/state/+", TopicPrefix)
}

// AllTopics returns a pattern matching all gateway topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: localtuya/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
