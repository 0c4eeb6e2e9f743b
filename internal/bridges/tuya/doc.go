// Package tuya implements the MQTT bridge for locally controlled Tuya
// vacuum robots.
//
// The bridge sits between raw datapoint traffic and semantic consumers:
//
//	localtuya/status/{id}  ──▶  Decoder  ──▶  localtuya/state/{id} (retained)
//	localtuya/command/{id} ──▶  Dispatcher ──▶ localtuya/dp/{id}/set
//	                                      └──▶ localtuya/ack/{id}
//
// Each managed device gets its own vacuum.Decoder and vacuum.Dispatcher
// built from the options stored in the device registry. Raw snapshots
// accumulate in the decoder, so partial reports (a lone battery update)
// still yield a complete state message.
//
// # Message flow
//
// Inbound status payloads accept both the tinytuya "dps" wrapper and a
// bare datapoint object. Outbound state is published retained so late
// subscribers see the last known state immediately.
//
// Commands are JSON CommandMessage payloads. Every command produces
// exactly one AckMessage: accepted once the datapoint write is
// published, or failed with a machine-readable error code.
//
// # Health
//
// The bridge publishes a retained HealthMessage to localtuya/health/bridge
// at a fixed interval, and registers an LWT so the broker marks the
// bridge offline on unexpected disconnect.
//
// Thread Safety: All exported methods are safe for concurrent use.
package tuya
