package tuya

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/konewka17/localtuya/internal/infrastructure/mqtt"
	"github.com/konewka17/localtuya/internal/vacuum"
)

// Bridge operation constants.
const (
	// minTopicParts is the minimum number of parts in a valid MQTT topic.
	minTopicParts = 3

	// defaultCommandTimeout bounds datapoint writes when no timeout is
	// configured.
	defaultCommandTimeout = 10 * time.Second
)

// Bridge orchestrates bidirectional translation between Tuya datapoint
// traffic and semantic vacuum state. It handles:
//   - Receiving raw datapoint snapshots and publishing decoded state
//   - Receiving commands, encoding them, and writing datapoints back
//   - Health reporting and graceful shutdown
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	id             string
	version        string
	mqtt           MQTTClient
	topics         mqtt.Topics
	qos            byte
	commandTimeout time.Duration
	health         *HealthReporter
	registry       DeviceRegistry  // Optional registry for state persistence
	telemetry      TelemetryWriter // Optional telemetry sink

	// Managed devices, keyed by device ID
	devices   map[string]*managedDevice
	devicesMu sync.RWMutex

	// Operational counters
	statusReceived   atomic.Uint64
	commandsExecuted atomic.Uint64
	errorsTotal      atomic.Uint64

	// Shutdown coordination
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context    // Bridge-level context, cancelled on Stop()
	ctxCancel context.CancelFunc // Cancel function for ctx

	// Logger
	logger   Logger
	loggerMu sync.RWMutex
}

// managedDevice is the per-device runtime: the compiled configuration,
// a decoder accumulating reported datapoints, and a dispatcher writing
// commands back.
type managedDevice struct {
	id         string
	name       string
	cfg        vacuum.DeviceConfig
	decoder    *vacuum.Decoder
	dispatcher *vacuum.Dispatcher
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool

	// Disconnect closes the connection gracefully.
	Disconnect(quiesce uint)
}

// RegistryDevice represents a device loaded from the registry.
// This is a subset of device.Device fields needed for bridge operation.
type RegistryDevice struct {
	ID      string
	Name    string
	Options vacuum.Options
}

// DeviceRegistry provides device configuration and state persistence.
// This interface is satisfied by *device.Registry (via adapter in main.go).
// It is optional - if nil, the bridge operates without registry integration.
type DeviceRegistry interface {
	// ListEnabledDevices returns the devices the bridge should run.
	ListEnabledDevices(ctx context.Context) ([]RegistryDevice, error)

	// SetDeviceState persists the latest decoded semantic state.
	SetDeviceState(ctx context.Context, id string, status vacuum.Status) error

	// TouchDevice records that the device just reported datapoints.
	TouchDevice(ctx context.Context, id string) error
}

// TelemetryWriter records time-series metrics for decoded states.
// This interface is satisfied by *influxdb.Client.
// It is optional - if nil, the bridge operates without telemetry.
type TelemetryWriter interface {
	// WriteVacuumState records a semantic state observation.
	WriteVacuumState(deviceID string, state string)

	// WriteDeviceMetric records a numeric device reading.
	WriteDeviceMetric(deviceID string, measurement string, value float64)

	// WriteVacuumPosition records a decoded robot position.
	WriteVacuumPosition(deviceID string, x, y int, relX, relY float64)
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// ID identifies this bridge instance in health messages.
	ID string

	// Version is the bridge software version for health messages.
	Version string

	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// QoS is the quality of service level for bridge traffic.
	QoS byte

	// HealthInterval is how often to publish health status.
	HealthInterval time.Duration

	// CommandTimeout bounds each datapoint write.
	CommandTimeout time.Duration

	// Logger is optional structured logger.
	Logger Logger

	// Registry is optional device registry for configuration and state
	// persistence. If nil, the bridge runs no devices until AddDevice.
	Registry DeviceRegistry

	// Telemetry is optional metrics sink.
	Telemetry TelemetryWriter
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.ID == "" {
		opts.ID = "tuya-bridge-01"
	}
	if opts.CommandTimeout == 0 {
		opts.CommandTimeout = defaultCommandTimeout
	}
	if opts.QoS == 0 {
		opts.QoS = 1
	}

	// Create bridge-level context for command cancellation on shutdown
	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		id:             opts.ID,
		version:        opts.Version,
		mqtt:           opts.MQTTClient,
		qos:            opts.QoS,
		commandTimeout: opts.CommandTimeout,
		registry:       opts.Registry,  // May be nil (optional)
		telemetry:      opts.Telemetry, // May be nil (optional)
		devices:        make(map[string]*managedDevice),
		done:           make(chan struct{}),
		ctx:            ctx,
		ctxCancel:      ctxCancel,
		logger:         opts.Logger,
	}

	// Create health reporter
	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  opts.ID,
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTTClient,
		Stats:     b.statistics,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start begins bridge operation.
// This loads devices from the registry, subscribes to MQTT topics, and
// starts health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	// Load devices from registry (sole source of device mappings)
	b.loadDevicesFromRegistry(ctx)

	// Publish starting status
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	// Subscribe to raw datapoint snapshots
	statusTopic := b.topics.AllDeviceStatus()
	if err := b.mqtt.Subscribe(statusTopic, b.qos, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to status: %w", err)
	}
	b.logInfo("subscribed to status", "topic", statusTopic)

	// Subscribe to command topics
	commandTopic := b.topics.AllDeviceCommands()
	if err := b.mqtt.Subscribe(commandTopic, b.qos, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", commandTopic)

	// Start health reporting
	b.health.Start(ctx)

	// Publish initial healthy status
	if err := b.health.PublishNow(); err != nil {
		b.logError("failed to publish healthy status", err)
	}

	b.devicesMu.RLock()
	deviceCount := len(b.devices)
	b.devicesMu.RUnlock()

	b.logInfo("bridge started",
		"bridge_id", b.id,
		"devices", deviceCount)

	return nil
}

// Stop gracefully shuts down the bridge.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)

		// Cancel bridge context to abort in-flight commands
		b.ctxCancel()

		// Stop health reporting (publishes "stopping" status)
		b.health.Stop()

		// Wait for pending operations
		b.wg.Wait()

		b.logInfo("bridge stopped")
	})
}

// loadDevicesFromRegistry loads enabled devices from the registry and
// builds the per-device runtimes. The registry is the sole source of
// device configuration — devices are created via seed file or the API.
func (b *Bridge) loadDevicesFromRegistry(ctx context.Context) {
	if b.registry == nil {
		return
	}

	devices, err := b.registry.ListEnabledDevices(ctx)
	if err != nil {
		b.logError("failed to load devices from registry", err)
		return
	}

	b.devicesMu.Lock()
	defer b.devicesMu.Unlock()

	// Rebuild from scratch; decoders for removed devices are dropped and
	// surviving devices start from a fresh snapshot.
	b.devices = make(map[string]*managedDevice, len(devices))

	loaded := 0
	for _, rd := range devices {
		md, err := b.buildManagedDevice(rd)
		if err != nil {
			b.logError("skipping device with invalid options",
				fmt.Errorf("device=%s: %w", rd.ID, err))
			continue
		}
		b.devices[rd.ID] = md
		loaded++
	}

	if loaded > 0 {
		b.logInfo("loaded devices from registry", "count", loaded)
	}
	// Update health reporter with total device count
	b.health.SetDeviceCount(len(b.devices))
}

// buildManagedDevice compiles a registry device into its runtime.
func (b *Bridge) buildManagedDevice(rd RegistryDevice) (*managedDevice, error) {
	cfg, err := vacuum.ParseDeviceConfig(rd.Options)
	if err != nil {
		return nil, err
	}

	decoder := vacuum.NewDecoder(cfg)
	dispatcher := vacuum.NewDispatcher(cfg, newMQTTTransport(rd.ID, b.mqtt, b.qos))

	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()
	if logger != nil {
		decoder.SetLogger(logger)
		dispatcher.SetLogger(logger)
	}

	return &managedDevice{
		id:         rd.ID,
		name:       rd.Name,
		cfg:        cfg,
		decoder:    decoder,
		dispatcher: dispatcher,
	}, nil
}

// ReloadDevices reloads device runtimes from the registry.
// Call this after devices are created, updated, or deleted through the API
// so the bridge can manage them without requiring a restart.
func (b *Bridge) ReloadDevices(ctx context.Context) {
	b.loadDevicesFromRegistry(ctx)
}

// DeviceCount returns the number of managed devices.
func (b *Bridge) DeviceCount() int {
	b.devicesMu.RLock()
	defer b.devicesMu.RUnlock()
	return len(b.devices)
}

// DeviceStatus returns the current decoded status of a managed device.
func (b *Bridge) DeviceStatus(deviceID string) (vacuum.Status, error) {
	b.devicesMu.RLock()
	md, ok := b.devices[deviceID]
	b.devicesMu.RUnlock()

	if !ok {
		return vacuum.Status{}, ErrDeviceNotManaged
	}
	return md.decoder.Status(), nil
}

// SendCommand parses and dispatches a command to a managed device.
// This is the programmatic entry point used by the API; MQTT commands
// arrive through handleCommand and converge on the same path.
func (b *Bridge) SendCommand(ctx context.Context, deviceID, name string, params map[string]any) error {
	b.devicesMu.RLock()
	md, ok := b.devices[deviceID]
	b.devicesMu.RUnlock()

	if !ok {
		return ErrDeviceNotManaged
	}

	cmd, err := vacuum.ParseCommand(name, params)
	if err != nil {
		return err
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, b.commandTimeout)
	defer cancel()

	if err := md.dispatcher.Dispatch(dispatchCtx, cmd); err != nil {
		b.errorsTotal.Add(1)
		return err
	}
	b.commandsExecuted.Add(1)
	return nil
}

// handleMQTTMessage routes incoming MQTT messages to appropriate handlers.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) {
	// Parse topic to determine message type
	parts := strings.Split(topic, "/")
	if len(parts) < minTopicParts {
		b.logError("invalid topic format", fmt.Errorf("topic: %s", topic))
		return
	}

	messageType := parts[1] // status, command
	deviceID := parts[2]

	switch messageType {
	case "status":
		b.handleStatus(deviceID, payload)
	case "command":
		b.handleCommand(deviceID, payload)
	default:
		b.logError("unknown message type", fmt.Errorf("type: %s", messageType))
	}
}

// handleStatus processes a raw datapoint snapshot from a device.
func (b *Bridge) handleStatus(deviceID string, payload []byte) {
	b.devicesMu.RLock()
	md, ok := b.devices[deviceID]
	b.devicesMu.RUnlock()

	if !ok {
		// Unknown device, ignore (might be traffic we don't manage)
		return
	}

	changes, err := ParseStatusPayload(payload)
	if err != nil {
		b.errorsTotal.Add(1)
		b.logError("failed to parse status", fmt.Errorf("device=%s: %w", deviceID, err))
		return
	}
	if len(changes) == 0 {
		return
	}

	b.statusReceived.Add(1)

	status := md.decoder.Decode(changes)
	b.publishState(deviceID, status)

	// Persist in registry (if configured)
	if b.registry != nil {
		if err := b.registry.SetDeviceState(b.ctx, deviceID, status); err != nil {
			b.logDebug("registry state update skipped",
				"device", deviceID,
				"reason", err.Error())
		}
		if err := b.registry.TouchDevice(b.ctx, deviceID); err != nil {
			b.logDebug("registry last-seen update skipped",
				"device", deviceID,
				"reason", err.Error())
		}
	}

	b.recordTelemetry(deviceID, status)
}

// publishState publishes the decoded semantic state (QoS per config, retained).
func (b *Bridge) publishState(deviceID string, status vacuum.Status) {
	msg := NewStateMessage(deviceID, status)

	payload, err := json.Marshal(msg)
	if err != nil {
		b.logError("failed to marshal state", err)
		return
	}

	topic := b.topics.DeviceState(deviceID)
	if err := b.mqtt.Publish(topic, payload, b.qos, true); err != nil {
		b.errorsTotal.Add(1)
		b.logError("failed to publish state", err)
	}
}

// recordTelemetry writes decoded readings to the telemetry sink.
func (b *Bridge) recordTelemetry(deviceID string, status vacuum.Status) {
	if b.telemetry == nil {
		return
	}

	b.telemetry.WriteVacuumState(deviceID, string(status.State))

	attrs := status.Attributes
	if attrs.BatteryLevel != nil {
		b.telemetry.WriteDeviceMetric(deviceID, "battery_percent", float64(*attrs.BatteryLevel))
	}
	if attrs.CleanTime != nil {
		b.telemetry.WriteDeviceMetric(deviceID, "clean_time", float64(*attrs.CleanTime))
	}
	if attrs.CleanArea != nil {
		b.telemetry.WriteDeviceMetric(deviceID, "clean_area", float64(*attrs.CleanArea))
	}
	if attrs.Fault != nil {
		b.telemetry.WriteDeviceMetric(deviceID, "fault_code", float64(*attrs.Fault))
	}
	if attrs.Position != nil && attrs.RelativePosition != nil {
		b.telemetry.WriteVacuumPosition(deviceID,
			attrs.Position.X, attrs.Position.Y,
			attrs.RelativePosition.X, attrs.RelativePosition.Y)
	}
}

// handleCommand processes a command message for a device.
func (b *Bridge) handleCommand(deviceID string, payload []byte) {
	// Parse command message
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.errorsTotal.Add(1)
		b.logError("failed to parse command", err)
		return
	}
	if cmd.DeviceID == "" {
		cmd.DeviceID = deviceID
	}

	b.logInfo("received command",
		"command_id", cmd.ID,
		"device_id", cmd.DeviceID,
		"command", cmd.Command)

	err := b.SendCommand(b.ctx, cmd.DeviceID, cmd.Command, cmd.Parameters)
	if err != nil {
		b.publishAckError(cmd, ackCodeFor(err), err.Error())
		return
	}

	b.publishAck(cmd, AckAccepted)
}

// ackCodeFor maps a dispatch error onto a wire error code.
func ackCodeFor(err error) string {
	switch {
	case errors.Is(err, ErrDeviceNotManaged):
		return ErrCodeNotConfigured
	case errors.Is(err, vacuum.ErrUnsupportedCommand):
		return ErrCodeInvalidCommand
	case errors.Is(err, vacuum.ErrMissingParameter):
		return ErrCodeInvalidParameters
	case errors.Is(err, vacuum.ErrDPNotConfigured):
		return ErrCodeNotConfigured
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	case errors.Is(err, ErrNotConnected):
		return ErrCodeDeviceUnreachable
	default:
		return ErrCodeBridgeError
	}
}

// publishAck publishes a command acknowledgment.
func (b *Bridge) publishAck(cmd CommandMessage, status AckStatus) {
	ack := NewAckMessage(cmd, status)

	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack", err)
		return
	}

	topic := b.topics.DeviceAck(cmd.DeviceID)
	if err := b.mqtt.Publish(topic, payload, b.qos, false); err != nil {
		b.logError("failed to publish ack", err)
	}
}

// publishAckError publishes a failed command acknowledgment.
func (b *Bridge) publishAckError(cmd CommandMessage, code, message string) {
	ack := NewAckError(cmd, code, message)

	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack error", err)
		return
	}

	topic := b.topics.DeviceAck(cmd.DeviceID)
	if err := b.mqtt.Publish(topic, payload, b.qos, false); err != nil {
		b.logError("failed to publish ack error", err)
	}

	b.logError("command failed",
		fmt.Errorf("code=%s message=%s", code, message))
}

// statistics snapshots the operational counters.
func (b *Bridge) statistics() BridgeStatistics {
	return BridgeStatistics{
		StatusReceived:   b.statusReceived.Load(),
		CommandsExecuted: b.commandsExecuted.Load(),
		Errors:           b.errorsTotal.Load(),
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	if b.health != nil {
		b.health.SetLogger(logger)
	}
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}

// logDebug logs a debug message if logger is set.
func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

// BridgeMetrics contains metrics data for the API metrics endpoint.
type BridgeMetrics struct {
	Connected        bool
	Status           string
	StatusReceived   uint64
	CommandsExecuted uint64
	Errors           uint64
	DevicesManaged   int
}

// GetMetrics returns current bridge metrics for the API metrics endpoint.
func (b *Bridge) GetMetrics() BridgeMetrics {
	b.devicesMu.RLock()
	deviceCount := len(b.devices)
	b.devicesMu.RUnlock()

	connected := b.mqtt != nil && b.mqtt.IsConnected()
	status := "disconnected"
	if connected {
		status = "healthy"
	}

	stats := b.statistics()
	return BridgeMetrics{
		Connected:        connected,
		Status:           status,
		StatusReceived:   stats.StatusReceived,
		CommandsExecuted: stats.CommandsExecuted,
		Errors:           stats.Errors,
		DevicesManaged:   deviceCount,
	}
}
